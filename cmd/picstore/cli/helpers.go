package cli

import (
	"fmt"
	"log/slog"
	"os"

	"github.com/jmoiron/sqlx"
	"github.com/spf13/viper"

	"github.com/picstore/picstore/internal/config"
	"github.com/picstore/picstore/internal/store"
)

// loadConfig resolves the effective configuration: file values first, then
// PICSTORE_* environment overrides for the secrets.
func loadConfig() (*config.YAMLConfig, error) {
	path := viper.ConfigFileUsed()
	if path == "" {
		return config.DefaultYAMLConfig(), nil
	}
	cfg, err := config.LoadYAMLConfig(path)
	if err != nil {
		return nil, err
	}
	if secret := viper.GetString("auth.jwt_secret"); secret != "" {
		cfg.Auth.JWTSecret = secret
	}
	if dsn := viper.GetString("database.dsn"); dsn != "" {
		cfg.Database.DSN = dsn
	}
	return cfg, nil
}

// openDB connects to the store described by the configuration.
func openDB(cfg *config.YAMLConfig) (*sqlx.DB, error) {
	pool := store.DefaultPoolConfig()
	if p := cfg.Database.Pool; p != nil {
		if p.MaxOpenConns > 0 {
			pool.MaxOpenConns = p.MaxOpenConns
		}
		if p.MaxIdleConns > 0 {
			pool.MaxIdleConns = p.MaxIdleConns
		}
		pool.ConnMaxLifetime = config.Duration(p.ConnMaxLifetime, pool.ConnMaxLifetime)
	}
	db, err := store.Open(cfg.Database.Driver, cfg.Database.DSN, pool)
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}
	return db, nil
}

// newLogger builds the process logger from the logging section.
func newLogger(cfg config.LoggingConfig) *slog.Logger {
	level := slog.LevelInfo
	switch cfg.Level {
	case "debug":
		level = slog.LevelDebug
	case "warn":
		level = slog.LevelWarn
	case "error":
		level = slog.LevelError
	}
	opts := &slog.HandlerOptions{Level: level}
	if cfg.Format == "json" {
		return slog.New(slog.NewJSONHandler(os.Stderr, opts))
	}
	return slog.New(slog.NewTextHandler(os.Stderr, opts))
}
