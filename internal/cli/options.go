package cli

import (
	"context"
	"fmt"

	"github.com/fatih/color"

	"github.com/rpattn/maintops/internal/config"
	"github.com/rpattn/maintops/internal/db"
	"github.com/rpattn/maintops/internal/repository"
)

// Options holds the flags shared by every command.
type Options struct {
	ConfigPath string
}

var (
	okColor   = color.New(color.FgGreen)
	warnColor = color.New(color.FgYellow)
	errColor  = color.New(color.FgRed)
	dimColor  = color.New(color.Faint)
)

// openStore connects to the configured database. The returned func closes the
// pool.
func openStore(ctx context.Context, opts *Options) (repository.Store, func(), error) {
	dbConfig, err := config.LoadDBConfig(opts.ConfigPath)
	if err != nil {
		return nil, nil, err
	}
	conn, err := db.NewConnection(ctx, dbConfig)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to connect to database: %w", err)
	}
	return repository.NewStore(conn.Pool), conn.Close, nil
}
