package cli

import (
	"context"
	"errors"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/rs/cors"
	"github.com/spf13/cobra"

	"github.com/rpattn/maintops/internal/auth"
	"github.com/rpattn/maintops/internal/config"
	"github.com/rpattn/maintops/internal/db"
	"github.com/rpattn/maintops/internal/equipment"
	"github.com/rpattn/maintops/internal/export"
	"github.com/rpattn/maintops/internal/ingestion"
	"github.com/rpattn/maintops/internal/metrics"
	"github.com/rpattn/maintops/internal/middleware"
	"github.com/rpattn/maintops/internal/personnel"
	"github.com/rpattn/maintops/internal/reports"
	"github.com/rpattn/maintops/internal/repository"
	"github.com/rpattn/maintops/internal/repository/memory"
	"github.com/rpattn/maintops/internal/storage"
	"github.com/rpattn/maintops/internal/workorders"
)

// ServeCmd starts the HTTP API.
func ServeCmd(opts *Options) *cobra.Command {
	var (
		inMemory       bool
		skipMigrations bool
	)

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Run the maintenance API server",
		Long: `Run the maintenance API server.

Examples:
  maintops serve                  # Postgres from config.yaml / MAINTOPS_* env
  maintops serve --memory         # in-process store, nothing persisted`,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.Load(opts.ConfigPath)
			if err != nil {
				return err
			}

			ctx, cancel := context.WithCancel(cmd.Context())
			defer cancel()

			var store repository.Store
			if inMemory {
				log.Println("Using in-memory store, data is lost on exit")
				store = memory.NewStore()
			} else {
				if !skipMigrations {
					if err := db.RunMigrations(cfg.Database); err != nil {
						return err
					}
				}
				conn, err := db.NewConnection(ctx, cfg.Database)
				if err != nil {
					return fmt.Errorf("failed to connect to database: %w", err)
				}
				defer conn.Close()
				store = repository.NewStore(conn.Pool)
			}

			handler, err := buildHandler(cfg, store)
			if err != nil {
				return err
			}
			return runServer(cfg.HTTP, handler)
		},
	}

	cmd.Flags().BoolVar(&inMemory, "memory", false, "use the in-process store instead of Postgres")
	cmd.Flags().BoolVar(&skipMigrations, "skip-migrations", false, "do not apply pending migrations on start")
	return cmd
}

func buildHandler(cfg config.Config, store repository.Store) (http.Handler, error) {
	collector := metrics.NewCollector()

	secret := cfg.Storage.SigningSecret
	if secret == "" {
		secret = cfg.Auth.JWTSecret
	}
	blobs, err := storage.NewLocalStore(cfg.Storage.Dir, cfg.Storage.PublicBaseURL, storage.NewURLSigner(secret, cfg.Storage.URLTTL))
	if err != nil {
		return nil, err
	}

	workOrderService, err := workorders.NewService(store,
		workorders.WithBlobStore(blobs),
		workorders.WithMetrics(collector),
	)
	if err != nil {
		return nil, err
	}
	importService := ingestion.NewService(store,
		ingestion.WithPreviewLimit(cfg.Import.PreviewLimit),
		ingestion.WithMetrics(collector),
	)

	mux := http.NewServeMux()
	workorders.Register(mux, workorders.NewHTTPHandler(workOrderService))
	equipment.Register(mux, equipment.NewHTTPHandler(equipment.NewService(store)))
	personnel.Register(mux, personnel.NewHTTPHandler(personnel.NewService(store)))
	reports.Register(mux, reports.NewHTTPHandler(reports.NewService(store.Reports())))
	export.Register(mux, export.NewHTTPHandler(export.NewService(store.Equipment())))
	mux.Handle("/imports/", ingestion.NewHTTPHandler(importService))
	mux.Handle("/files/", storage.NewFileHandler(blobs, "/files/"))
	mux.Handle("/metrics", collector.Handler())
	mux.HandleFunc("/healthz", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNoContent)
	})

	corsHandler := cors.New(cors.Options{
		AllowedOrigins:   cfg.HTTP.AllowedOrigins,
		AllowCredentials: true,
		AllowedMethods:   []string{"GET", "POST", "PUT", "PATCH", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"*"},
	})

	return middleware.Chain(mux,
		corsHandler.Handler,
		middleware.LoggingMiddleware,
		middleware.MetricsMiddleware(collector),
		middleware.AuthMiddleware(auth.NewTokenVerifier(cfg.Auth.JWTSecret), middleware.AuthOptions{
			Disabled:       cfg.Auth.Disabled,
			PublicPrefixes: []string{"/metrics", "/files/", "/healthz"},
			Roles:          store.Personnel(),
		}),
		middleware.DataLoaderMiddleware(store.Equipment()),
	), nil
}

func runServer(httpConfig config.HTTPConfig, handler http.Handler) error {
	server := &http.Server{
		Addr:         httpConfig.Addr,
		Handler:      handler,
		ReadTimeout:  httpConfig.ReadTimeout,
		WriteTimeout: httpConfig.WriteTimeout,
		IdleTimeout:  60 * time.Second,
	}

	serverErr := make(chan error, 1)
	go func() {
		log.Printf("Starting maintenance API on %s", httpConfig.Addr)
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			serverErr <- err
		}
		close(serverErr)
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	defer signal.Stop(quit)

	select {
	case err := <-serverErr:
		if err != nil {
			return fmt.Errorf("failed to start server: %w", err)
		}
		return nil
	case <-quit:
	}
	log.Println("Shutting down server...")

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer shutdownCancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("server forced to shutdown: %w", err)
	}

	log.Println("Server exited")
	return nil
}
