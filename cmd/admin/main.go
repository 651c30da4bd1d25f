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

	firebase "firebase.google.com/go/v4"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"go.uber.org/zap"
	"golang.org/x/time/rate"

	"finitefield.org/tenant-admin/internal/admin/config"
	"finitefield.org/tenant-admin/internal/admin/httpserver"
	"finitefield.org/tenant-admin/internal/admin/httpserver/middleware"
	"finitefield.org/tenant-admin/internal/admin/login"
	"finitefield.org/tenant-admin/internal/admin/metrics"
	"finitefield.org/tenant-admin/internal/admin/observability"
	"finitefield.org/tenant-admin/internal/admin/session"
)

func main() {
	if err := run(); err != nil {
		fmt.Fprintf(os.Stderr, "admin: %v\n", err)
		os.Exit(1)
	}
}

func run() error {
	cfg, err := config.Load()
	if err != nil {
		return err
	}

	logger, err := observability.NewLogger(cfg.Server.LogLevel)
	if err != nil {
		return err
	}
	defer func() { _ = logger.Sync() }()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	authenticator, err := login.NewHTTPAuthenticator(cfg.Auth.BaseURL, &http.Client{Timeout: 15 * time.Second})
	if err != nil {
		return err
	}

	sessions, err := session.NewManager(session.Config{
		HashKey:          cfg.Session.HashKey,
		BlockKey:         cfg.Session.BlockKey,
		CookiePath:       cfg.Server.BasePath,
		CookieSecure:     cfg.Session.CookieSecure,
		IdleTimeout:      cfg.Session.IdleTimeout,
		Lifetime:         cfg.Session.Lifetime,
		RememberLifetime: cfg.Session.RememberLifetime,
	})
	if err != nil {
		return err
	}

	registry := prometheus.NewRegistry()
	registry.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	collector := metrics.NewCollector(registry)

	srv := httpserver.New(httpserver.Config{
		Address:             cfg.Server.Address,
		BasePath:            cfg.Server.BasePath,
		Environment:         cfg.Server.Environment,
		Logger:              logger,
		Authenticator:       authenticator,
		Sessions:            sessions,
		BearerAuthenticator: buildBearerAuthenticator(ctx, logger, cfg.Firebase.ProjectID),
		CSRFCookieName:      cfg.CSRF.CookieName,
		CSRFCookieSecure:    cfg.Session.CookieSecure,
		CSRFHeaderName:      cfg.CSRF.HeaderName,
		RedirectDelay:       cfg.Login.RedirectDelay,
		LoginRate:           rate.Limit(float64(cfg.Login.PerMinute) / 60),
		LoginBurst:          cfg.Login.Burst,
		Metrics:             collector,
		Gatherer:            registry,
	})

	serveErr := make(chan error, 1)
	go func() {
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			serveErr <- err
		}
		close(serveErr)
	}()

	logger.Info("admin server listening",
		zap.String("addr", cfg.Server.Address),
		zap.String("base_path", cfg.Server.BasePath),
		zap.String("environment", cfg.Server.Environment),
	)

	select {
	case err := <-serveErr:
		if err != nil {
			return fmt.Errorf("http server failed: %w", err)
		}
		return nil
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("graceful shutdown failed: %w", err)
	}
	logger.Info("admin server stopped")
	return nil
}

// buildBearerAuthenticator enables Firebase ID-token access for API callers.
// It returns nil, leaving only cookie sessions, when no project is configured.
func buildBearerAuthenticator(ctx context.Context, logger *zap.Logger, projectID string) middleware.Authenticator {
	if projectID == "" {
		logger.Info("FIREBASE_PROJECT_ID not set; bearer access disabled")
		return nil
	}

	app, err := firebase.NewApp(ctx, &firebase.Config{
		ProjectID: projectID,
	})
	if err != nil {
		logger.Warn("failed to initialise Firebase app", zap.Error(err))
		return nil
	}

	client, err := app.Auth(ctx)
	if err != nil {
		logger.Warn("failed to initialise Firebase auth client", zap.Error(err))
		return nil
	}

	logger.Info("Firebase bearer authenticator enabled", zap.String("project", projectID))
	return middleware.NewFirebaseAuthenticator(client)
}
