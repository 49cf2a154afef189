// Package main is the entry point for the springboardvr-mcp server.
package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/jamesprial/springboardvr"
	"github.com/jamesprial/springboardvr/internal/auth"
	"github.com/jamesprial/springboardvr/internal/config"
	"github.com/jamesprial/springboardvr/internal/graphql"
	"github.com/jamesprial/springboardvr/internal/logging"
	"github.com/jamesprial/springboardvr/internal/safety"
	"github.com/jamesprial/springboardvr/internal/sessions"
	"github.com/jamesprial/springboardvr/internal/tools"
	"github.com/mark3labs/mcp-go/server"
	"go.uber.org/zap"
)

const (
	defaultConfigPath = "/config/config.yaml"
	loginTimeout      = 30 * time.Second
)

func main() {
	cfg, cfgErr := loadConfig()
	config.ApplyEnvOverrides(cfg)

	logger, err := logging.NewLogger(cfg.Log.Level)
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to build logger: %v\n", err)
		os.Exit(1)
	}
	defer func() { _ = logger.Sync() }()

	if cfgErr != nil {
		logger.Warn("could not load config file, using defaults", zap.Error(cfgErr))
	}
	if err := cfg.Validate(); err != nil {
		logger.Fatal("invalid configuration", zap.Error(err))
	}

	tokenBefore := cfg.Server.AuthToken
	token, err := config.EnsureAuthToken(cfg)
	if err != nil {
		logger.Warn("could not generate auth token, running without authentication", zap.Error(err))
	} else if tokenBefore == "" {
		logger.Info("generated auth token (set SPRINGBOARDVR_MCP_AUTH_TOKEN to persist)", zap.String("token", token))
	}

	var auditLogger *safety.AuditLogger
	if cfg.Audit.Enabled {
		f, err := os.OpenFile(cfg.Audit.LogPath, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o600)
		if err != nil {
			logger.Warn("audit logging disabled", zap.String("path", cfg.Audit.LogPath), zap.Error(err))
		} else {
			auditLogger = safety.NewAuditLogger(f)
			defer f.Close()
		}
	}
	rec := tools.Recorder{Audit: auditLogger, Logger: logger.Named("tools")}

	ctx, cancel := context.WithTimeout(context.Background(), loginTimeout)
	client, err := springboardvr.New(ctx, cfg.SpringboardVR.Email, cfg.SpringboardVR.Password,
		springboardvr.WithEndpoint(cfg.SpringboardVR.URL),
		springboardvr.WithTimeout(time.Duration(cfg.SpringboardVR.Timeout)*time.Second),
		springboardvr.WithLogger(logger.Named("graphql")),
	)
	cancel()
	if err != nil {
		if errors.Is(err, springboardvr.ErrInvalidCredentials) {
			logger.Fatal("springboardvr rejected the configured credentials", zap.String("email", cfg.SpringboardVR.Email))
		}
		logger.Fatal("springboardvr login failed", zap.Error(err))
	}
	logger.Info("logged in to springboardvr", zap.String("url", cfg.SpringboardVR.URL))

	mcpServer := server.NewMCPServer(
		"springboardvr-mcp",
		"1.0.0",
		server.WithToolCapabilities(false),
	)

	var registrations []tools.Registration
	registrations = append(registrations, sessions.SessionTools(sessions.Deps{
		Manager:   client.Sessions,
		Locations: safety.NewFilter("location", cfg.Safety.Locations.Allowlist, cfg.Safety.Locations.Denylist),
		Stations:  safety.NewFilter("station", cfg.Safety.Stations.Allowlist, cfg.Safety.Stations.Denylist),
		Confirm:   safety.NewConfirmationTracker(sessions.DestructiveTools),
		Recorder:  rec,
	})...)
	registrations = append(registrations, graphql.GraphQLTools(
		client,
		safety.NewConfirmationTracker(graphql.DestructiveTools),
		rec,
	)...)

	names := tools.RegisterAll(mcpServer, registrations)
	logger.Info("registered tools", zap.Strings("tools", names))

	httpHandler := server.NewStreamableHTTPServer(mcpServer)
	authMiddleware := auth.NewAuthMiddleware(cfg.Server.AuthToken, logger.Named("auth"))

	addr := fmt.Sprintf(":%d", cfg.Server.Port)
	httpSrv := &http.Server{
		Addr:              addr,
		Handler:           authMiddleware(httpHandler),
		ReadHeaderTimeout: 10 * time.Second,
		IdleTimeout:       120 * time.Second,
	}

	stop := make(chan os.Signal, 1)
	signal.Notify(stop, syscall.SIGINT, syscall.SIGTERM)

	go func() {
		logger.Info("springboardvr-mcp listening", zap.String("addr", addr))
		if err := httpSrv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Fatal("HTTP server error", zap.Error(err))
		}
	}()

	<-stop
	logger.Info("shutting down")

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer shutdownCancel()

	if err := httpSrv.Shutdown(shutdownCtx); err != nil {
		logger.Warn("graceful shutdown error", zap.Error(err))
	}
	logger.Info("server stopped")
}

// loadConfig reads the config file named by SPRINGBOARDVR_MCP_CONFIG_PATH,
// or /config/config.yaml. If the file cannot be read DefaultConfig is
// returned along with the load error.
func loadConfig() (*config.Config, error) {
	path := os.Getenv("SPRINGBOARDVR_MCP_CONFIG_PATH")
	if path == "" {
		path = defaultConfigPath
	}

	cfg, err := config.LoadConfig(path)
	if err != nil {
		return config.DefaultConfig(), fmt.Errorf("load %q: %w", path, err)
	}
	return cfg, nil
}
