package cmd

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/AbuSayeed917/MMKRegisteredOfficeServices-sub002/cmd/officeauth/internal/server"
	promexport "github.com/AbuSayeed917/MMKRegisteredOfficeServices-sub002/metrics/export/prometheus"
	"github.com/AbuSayeed917/MMKRegisteredOfficeServices-sub002/middleware"
	"github.com/AbuSayeed917/MMKRegisteredOfficeServices-sub002/password"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

const shutdownTimeout = 10 * time.Second

func newServeCmd() *cobra.Command {
	var addr string

	serveCmd := &cobra.Command{
		Use:   "serve",
		Short: "Start the auth HTTP server",
		Long:  `Starts the HTTP server with the account, session and admin endpoints.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			if addr != "" {
				cfg.HTTPAddr = addr
			}

			logger, err := cfg.NewLogger()
			if err != nil {
				return err
			}
			defer func() { _ = logger.Sync() }()

			ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
			defer stop()

			rdb, closeRedis, err := openRedis(ctx, cfg.RedisURL, logger)
			if err != nil {
				return err
			}
			defer closeRedis()

			users, closeUsers, err := openUsers(ctx, cfg.DatabaseURL, logger)
			if err != nil {
				return err
			}
			defer closeUsers()

			engine, err := buildEngine(cfg, logger, rdb)
			if err != nil {
				return fmt.Errorf("build auth engine: %w", err)
			}
			defer engine.Close()

			report := engine.SecurityReport()
			logger.Info("security posture",
				zap.Bool("tokens_configured", report.TokensConfigured),
				zap.String("signing_algorithm", report.SigningAlgorithm),
				zap.Bool("key_rotation", report.KeyRotationActive),
				zap.Duration("token_ttl", report.TokenTTL),
				zap.Duration("session_ttl", report.SessionTTL),
				zap.Bool("cookie_secure", report.CookieSecure),
				zap.String("rate_limit_backend", report.RateLimitBackend),
				zap.Bool("rate_limit_fail_open", report.RateLimitFailOpen),
				zap.Bool("audit", report.AuditEnabled),
			)
			if !report.TokensConfigured {
				logger.Warn("AUTH_SECRET is not set; bearer tokens will be rejected")
			}
			if !report.CookieSecure {
				logger.Warn("session cookies are not marked Secure")
			}

			hasher, err := password.NewHasher(password.DefaultConfig())
			if err != nil {
				return err
			}
			if err := bootstrapAdmin(ctx, users, hasher, cfg.BootstrapAdminEmail, cfg.BootstrapAdminPassword, logger); err != nil {
				return err
			}

			opts := server.Options{
				Engine: engine,
				Users:  users,
				Hasher: hasher,
				Logger: logger,
			}
			if cfg.MetricsEnabled {
				opts.Metrics = promexport.NewPrometheusExporter(engine).Handler()
			}
			if cfg.ThrottleRPS > 0 {
				opts.Throttle = &middleware.ThrottleConfig{RPS: cfg.ThrottleRPS, Burst: cfg.ThrottleBurst}
			}

			srv := &http.Server{
				Addr:              cfg.HTTPAddr,
				Handler:           server.New(opts).Routes(ctx),
				ReadHeaderTimeout: 5 * time.Second,
				ReadTimeout:       15 * time.Second,
				WriteTimeout:      15 * time.Second,
				IdleTimeout:       60 * time.Second,
			}

			serverErrors := make(chan error, 1)
			go func() {
				logger.Info("starting server", zap.String("addr", cfg.HTTPAddr))
				serverErrors <- srv.ListenAndServe()
			}()

			select {
			case err := <-serverErrors:
				if errors.Is(err, http.ErrServerClosed) {
					return nil
				}
				return fmt.Errorf("server error: %w", err)

			case <-ctx.Done():
				logger.Info("shutting down gracefully")

				shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
				defer cancel()

				if err := srv.Shutdown(shutdownCtx); err != nil {
					_ = srv.Close()
					return fmt.Errorf("graceful shutdown failed: %w", err)
				}

				logger.Info("server stopped")
				return nil
			}
		},
	}

	serveCmd.Flags().StringVar(&addr, "addr", "", "listen address (env: HTTP_ADDR)")
	return serveCmd
}
