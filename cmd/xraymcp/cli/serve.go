package cli

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"time"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/bikeracer4487/xray-mcp-sub001/internal/cache"
	"github.com/bikeracer4487/xray-mcp-sub001/internal/config"
	"github.com/bikeracer4487/xray-mcp-sub001/internal/model"
	"github.com/bikeracer4487/xray-mcp-sub001/internal/server"
	"github.com/bikeracer4487/xray-mcp-sub001/internal/service"
)

const banner = `
__  _____      _ __   __   __  __  ___ ___
\ \/ / _ \__ _| |\ \ / /  |  \/  |/ __| _ \
 >  <|   / _' | | \ V /   | |\/| | (__|  _/
/_/\_\_|_\__,_|_|  |_|    |_|  |_|\___|_|
`

func newServeCmd() *cobra.Command {
	var (
		port int
		host string
		dev  bool
	)

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Start the gateway API server",
		Long:  "Start the HTTP server that validates and forwards JQL and GraphQL queries to configured Jira/Xray connections.",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runServe(host, port, dev)
		},
	}

	cmd.Flags().IntVarP(&port, "port", "p", 8080, "HTTP listen port")
	cmd.Flags().StringVar(&host, "host", "0.0.0.0", "HTTP listen host")
	cmd.Flags().BoolVar(&dev, "dev", false, "Enable development mode (verbose logging)")

	viper.BindPFlag("server.port", cmd.Flags().Lookup("port"))
	viper.BindPFlag("server.host", cmd.Flags().Lookup("host"))

	return cmd
}

func runServe(host string, port int, dev bool) error {
	fmt.Print(banner)
	fmt.Println()

	cfg := loadFileConfig()

	logger := newLogger(cfg.Logging, dev)

	store, err := openConfigStore()
	if err != nil {
		return fmt.Errorf("init config store: %w", err)
	}
	defer store.Close()
	logger.Info("config store initialized", "path", resolveDataDir())

	ctx := context.Background()
	syncConnections(ctx, store, cfg.Connections, logger)

	active := 0
	conns, err := store.ListConnections(ctx)
	if err != nil {
		logger.Warn("failed to load connections from config", "error", err)
	}
	for _, c := range conns {
		if c.IsActive {
			active++
		}
	}
	if active == 0 {
		logger.Warn("no active connections - add one with: xraymcp connection add")
	}

	jwtSecret := resolveJWTSecret(cfg)
	authSvc := service.NewAuthService(store, jwtSecret)

	email, _ := store.GetSetting(ctx, settingAdminEmail)
	if email == "" {
		logger.Warn("no admin account found - run: xraymcp admin set")
	}

	resultCache := newResultCache(cfg.Cache)
	gateway := service.NewGateway(store, resultCache, logger, 30*time.Second)

	srvCfg := server.Config{
		Host:            host,
		Port:            port,
		ShutdownTimeout: parseDuration(cfg.Server.ShutdownTimeout, 30*time.Second),
		CORSOrigins:     cfg.Server.CORSOrigins,
		RatePerMinute:   cfg.Server.RatePerMinute,
		Version:         versionString(),
	}
	if viper.GetInt("server.port") != 0 {
		srvCfg.Port = viper.GetInt("server.port")
	}
	if h := viper.GetString("server.host"); h != "" {
		srvCfg.Host = h
	}
	if len(srvCfg.CORSOrigins) == 0 {
		srvCfg.CORSOrigins = []string{"*"}
	}

	srv, err := server.New(srvCfg, store, authSvc, gateway, logger)
	if err != nil {
		return fmt.Errorf("build server: %w", err)
	}

	fmt.Printf("→ xraymcp %s\n", versionString())
	fmt.Printf("→ Listening on http://%s:%d\n", srvCfg.Host, srvCfg.Port)
	fmt.Printf("→ OpenAPI:    http://%s:%d/openapi.json\n", srvCfg.Host, srvCfg.Port)
	fmt.Printf("→ Health:     http://%s:%d/healthz\n", srvCfg.Host, srvCfg.Port)
	fmt.Printf("→ Active connections: %d\n", active)
	fmt.Println()

	return srv.ListenAndServe()
}

// loadFileConfig reads the YAML config file when one is present. A missing
// file is not an error - flags and env vars cover everything it would set.
func loadFileConfig() *config.YAMLConfig {
	path := cfgFile
	if path == "" {
		if _, err := os.Stat("xraymcp.yaml"); err == nil {
			path = "xraymcp.yaml"
		}
	}
	if path == "" {
		return &config.YAMLConfig{}
	}
	cfg, err := config.LoadYAML(path)
	if err != nil {
		fmt.Fprintf(os.Stderr, "warning: %v\n", err)
		return &config.YAMLConfig{}
	}
	return cfg
}

func newLogger(lc config.Logging, dev bool) *slog.Logger {
	level := slog.LevelInfo
	switch lc.Level {
	case "debug":
		level = slog.LevelDebug
	case "warn":
		level = slog.LevelWarn
	case "error":
		level = slog.LevelError
	}
	if dev {
		level = slog.LevelDebug
	}

	opts := &slog.HandlerOptions{Level: level}
	if lc.Format == "json" {
		return slog.New(slog.NewJSONHandler(os.Stderr, opts))
	}
	return slog.New(slog.NewTextHandler(os.Stderr, opts))
}

// syncConnections upserts connections declared in the YAML file into the
// store so file-managed and CLI-managed connections live in one place.
func syncConnections(ctx context.Context, store *config.Store, conns []config.Connection, logger *slog.Logger) {
	for _, c := range conns {
		if c.Name == "" {
			continue
		}
		conn := &model.Connection{
			Name:         c.Name,
			Label:        c.Label,
			JiraURL:      c.JiraURL,
			XrayURL:      c.XrayURL,
			Email:        c.Email,
			APIToken:     c.APIToken,
			ClientID:     c.ClientID,
			ClientSecret: c.ClientSecret,
			ReadOnly:     c.ReadOnly,
			IsActive:     true,
		}
		existing, err := store.GetConnectionByName(ctx, c.Name)
		if err == nil {
			conn.ID = existing.ID
			if err := store.UpdateConnection(ctx, conn); err != nil {
				logger.Error("failed to update connection", "connection", c.Name, "error", err)
			}
			continue
		}
		if err := store.CreateConnection(ctx, conn); err != nil {
			logger.Error("failed to create connection", "connection", c.Name, "error", err)
		} else {
			logger.Info("registered connection", "connection", c.Name)
		}
	}
}

func resolveJWTSecret(cfg *config.YAMLConfig) string {
	if s := viper.GetString("auth.jwt_secret"); s != "" {
		return s
	}
	if cfg.Auth.JWTSecret != "" {
		return cfg.Auth.JWTSecret
	}
	return "xraymcp-dev-secret-change-me"
}

func newResultCache(cc config.Cache) *cache.Cache {
	if !cc.Enabled {
		return nil
	}
	return cache.New(parseDuration(cc.TTL, 5*time.Minute), 1024)
}

func parseDuration(s string, fallback time.Duration) time.Duration {
	if s == "" {
		return fallback
	}
	d, err := time.ParseDuration(s)
	if err != nil {
		return fallback
	}
	return d
}
