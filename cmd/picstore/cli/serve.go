package cli

import (
	"context"
	"fmt"
	"time"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/picstore/picstore/internal/action"
	"github.com/picstore/picstore/internal/auth"
	"github.com/picstore/picstore/internal/authz"
	"github.com/picstore/picstore/internal/config"
	"github.com/picstore/picstore/internal/server"
	"github.com/picstore/picstore/internal/store"
)

func newServeCmd() *cobra.Command {
	var (
		port int
		host string
		dev  bool
	)

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Start the picstore API server",
		Long:  "Start the HTTP server that exposes the users and photos REST APIs.",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runServe(host, port, dev)
		},
	}

	cmd.Flags().IntVarP(&port, "port", "p", 0, "HTTP listen port (overrides config)")
	cmd.Flags().StringVar(&host, "host", "", "HTTP listen host (overrides config)")
	cmd.Flags().BoolVar(&dev, "dev", false, "Enable development mode (verbose logging)")

	viper.BindPFlag("server.port", cmd.Flags().Lookup("port"))
	viper.BindPFlag("server.host", cmd.Flags().Lookup("host"))

	return cmd
}

func runServe(host string, port int, dev bool) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	if host != "" {
		cfg.Server.Host = host
	}
	if port != 0 {
		cfg.Server.Port = port
	}
	if dev {
		cfg.Logging.Level = "debug"
	}
	logger := newLogger(cfg.Logging)

	db, err := openDB(cfg)
	if err != nil {
		return err
	}
	defer db.Close()
	logger.Info("database connected", "driver", cfg.Database.Driver)

	ctx := context.Background()
	if err := store.Migrate(ctx, db); err != nil {
		return err
	}
	seeded, err := store.PermissionsSeeded(ctx, db)
	if err != nil {
		return err
	}
	if !seeded {
		if err := store.SeedPermissions(ctx, db); err != nil {
			return err
		}
		logger.Info("default permission matrix seeded")
	}

	secret := cfg.Auth.JWTSecret
	if secret == "" {
		secret = "picstore-dev-secret-change-me"
		logger.Warn("auth.jwt_secret not set, using insecure development secret")
	}
	tokens := auth.NewService(db, secret, config.Duration(cfg.Auth.TokenTTL, time.Hour))
	matrices := authz.NewMatrixLoader(db, config.Duration(cfg.Permissions.CacheTTL, 0))
	actions := action.New(db, tokens, matrices)

	srvCfg := server.Config{
		Host:              cfg.Server.Host,
		Port:              cfg.Server.Port,
		ShutdownTimeout:   config.Duration(cfg.Server.ShutdownTimeout, 30*time.Second),
		CORSOrigins:       cfg.Server.CORS.Origins,
		RateLimitRequests: cfg.Server.RateLimit.Requests,
		RateLimitWindow:   config.Duration(cfg.Server.RateLimit.Window, time.Minute),
	}
	srv := server.New(srvCfg, db, actions, tokens, logger)

	fmt.Printf("→ Listening on http://%s:%d\n", cfg.Server.Host, cfg.Server.Port)
	fmt.Printf("→ Health:  http://%s:%d/healthz\n", cfg.Server.Host, cfg.Server.Port)
	fmt.Printf("→ Schema:  http://%s:%d/api/v1/schema\n", cfg.Server.Host, cfg.Server.Port)
	fmt.Println()

	return srv.ListenAndServe()
}
