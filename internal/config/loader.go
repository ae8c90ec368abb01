package config

import (
	"errors"
	"fmt"
	"log"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/rpattn/maintops/internal/db"
	"github.com/spf13/viper"
)

// Config is the full application configuration.
type Config struct {
	Database db.Config
	HTTP     HTTPConfig
	Storage  StorageConfig
	Auth     AuthConfig
	Import   ImportConfig
}

// HTTPConfig controls the API listener.
type HTTPConfig struct {
	Addr           string
	AllowedOrigins []string
	ReadTimeout    time.Duration
	WriteTimeout   time.Duration
}

// StorageConfig controls where photo blobs live and how their URLs are signed.
type StorageConfig struct {
	Dir           string
	PublicBaseURL string
	URLTTL        time.Duration
	SigningSecret string
}

// AuthConfig controls bearer token validation.
type AuthConfig struct {
	JWTSecret string
	Disabled  bool
}

// ImportConfig tunes bulk uploads.
type ImportConfig struct {
	PreviewLimit int
}

// Default returns the configuration used when nothing is overridden.
func Default() Config {
	return Config{
		Database: db.DefaultConfig(),
		HTTP: HTTPConfig{
			Addr:           ":8080",
			AllowedOrigins: []string{"http://localhost:3000"},
			ReadTimeout:    15 * time.Second,
			WriteTimeout:   15 * time.Second,
		},
		Storage: StorageConfig{
			Dir:           filepath.Join(os.TempDir(), "maintops-photos"),
			PublicBaseURL: "http://localhost:8080/files",
			URLTTL:        15 * time.Minute,
		},
		Import: ImportConfig{PreviewLimit: 20},
	}
}

// Load reads config.yaml from configPath, then applies MAINTOPS_* environment
// overrides such as MAINTOPS_DATABASE_HOST or MAINTOPS_AUTH_JWT_SECRET.
func Load(configPath string) (Config, error) {
	cfg := Default()
	v, err := newViper(configPath)
	if err != nil {
		return cfg, err
	}

	cfg.Database = databaseFrom(v, cfg.Database)

	if v.IsSet("http.addr") {
		cfg.HTTP.Addr = v.GetString("http.addr")
	}
	if v.IsSet("http.allowed_origins") {
		cfg.HTTP.AllowedOrigins = splitList(v.GetStringSlice("http.allowed_origins"))
	}
	if v.IsSet("http.read_timeout") {
		cfg.HTTP.ReadTimeout = v.GetDuration("http.read_timeout")
	}
	if v.IsSet("http.write_timeout") {
		cfg.HTTP.WriteTimeout = v.GetDuration("http.write_timeout")
	}

	if v.IsSet("storage.dir") {
		cfg.Storage.Dir = v.GetString("storage.dir")
	}
	if v.IsSet("storage.public_base_url") {
		cfg.Storage.PublicBaseURL = strings.TrimRight(v.GetString("storage.public_base_url"), "/")
	}
	if v.IsSet("storage.url_ttl") {
		cfg.Storage.URLTTL = v.GetDuration("storage.url_ttl")
	}
	if v.IsSet("storage.signing_secret") {
		cfg.Storage.SigningSecret = v.GetString("storage.signing_secret")
	}

	if v.IsSet("auth.jwt_secret") {
		cfg.Auth.JWTSecret = v.GetString("auth.jwt_secret")
	}
	if v.IsSet("auth.disabled") {
		cfg.Auth.Disabled = v.GetBool("auth.disabled")
	}

	if v.IsSet("import.preview_limit") {
		cfg.Import.PreviewLimit = v.GetInt("import.preview_limit")
	}

	if err := cfg.Validate(); err != nil {
		return cfg, err
	}
	return cfg, nil
}

// Validate rejects settings the server cannot start with.
func (c Config) Validate() error {
	var problems []string
	if strings.TrimSpace(c.HTTP.Addr) == "" {
		problems = append(problems, "http.addr must not be empty")
	}
	if c.Import.PreviewLimit <= 0 {
		problems = append(problems, "import.preview_limit must be positive")
	}
	if c.Storage.URLTTL <= 0 {
		problems = append(problems, "storage.url_ttl must be positive")
	}
	if !c.Auth.Disabled && strings.TrimSpace(c.Auth.JWTSecret) == "" {
		problems = append(problems, "auth.jwt_secret is required unless auth.disabled is set")
	}
	if len(problems) > 0 {
		return errors.New("invalid configuration: " + strings.Join(problems, "; "))
	}
	return nil
}

// LoadDBConfig resolves only the database settings, for commands that never
// start the HTTP server.
func LoadDBConfig(configPath string) (db.Config, error) {
	v, err := newViper(configPath)
	if err != nil {
		return db.DefaultConfig(), err
	}
	return databaseFrom(v, db.DefaultConfig()), nil
}

func newViper(configPath string) (*viper.Viper, error) {
	v := viper.New()
	v.SetConfigName("config")
	v.SetConfigType("yaml")
	v.AddConfigPath(configPath)
	v.SetEnvPrefix("MAINTOPS")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	for _, key := range []string{
		"database.host", "database.port", "database.user", "database.password", "database.dbname", "database.sslmode",
		"http.addr", "http.allowed_origins", "http.read_timeout", "http.write_timeout",
		"storage.dir", "storage.public_base_url", "storage.url_ttl", "storage.signing_secret",
		"auth.jwt_secret", "auth.disabled",
		"import.preview_limit",
	} {
		if err := v.BindEnv(key); err != nil {
			return nil, fmt.Errorf("failed to bind env for %s: %w", key, err)
		}
	}

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) {
			return nil, fmt.Errorf("failed to read config: %w", err)
		}
		log.Printf("[CONFIG] no config.yaml in %s, using defaults and env vars", configPath)
	} else {
		log.Printf("[CONFIG] loaded %s", v.ConfigFileUsed())
	}
	return v, nil
}

func databaseFrom(v *viper.Viper, cfg db.Config) db.Config {
	if v.IsSet("database.host") {
		cfg.Host = v.GetString("database.host")
	}
	if v.IsSet("database.port") {
		cfg.Port = v.GetInt("database.port")
	}
	if v.IsSet("database.user") {
		cfg.User = v.GetString("database.user")
	}
	if v.IsSet("database.password") {
		cfg.Password = v.GetString("database.password")
	}
	if v.IsSet("database.dbname") {
		cfg.DBName = v.GetString("database.dbname")
	}
	if v.IsSet("database.sslmode") {
		cfg.SSLMode = v.GetString("database.sslmode")
	}
	return cfg
}

// splitList accepts both YAML lists and comma separated env values.
func splitList(values []string) []string {
	out := make([]string, 0, len(values))
	for _, value := range values {
		for _, part := range strings.Split(value, ",") {
			if trimmed := strings.TrimSpace(part); trimmed != "" {
				out = append(out, trimmed)
			}
		}
	}
	return out
}
