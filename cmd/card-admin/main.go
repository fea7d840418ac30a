package main

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"card-admin/internal/config"
	"card-admin/internal/domain"
	"card-admin/internal/handler"
	"card-admin/internal/messaging"
	"card-admin/internal/middleware"
	"card-admin/internal/observability"
	"card-admin/internal/repository"
	"card-admin/internal/security"
	"card-admin/internal/service"
	"card-admin/internal/validation"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		slog.Error("invalid configuration", slog.String("error", err.Error()))
		os.Exit(1)
	}

	observability.InitLogger(cfg.LogLevel, cfg.LogFormat)

	slog.Info("starting card admin server", slog.String("environment", cfg.Environment))

	openCtx, openCancel := context.WithTimeout(context.Background(), 15*time.Second)
	stores, err := repository.Open(openCtx, cfg)
	openCancel()
	if err != nil {
		slog.Error("failed to open storage", slog.String("error", err.Error()))
		os.Exit(1)
	}
	defer stores.Close()
	slog.Info("storage ready", slog.String("backend", stores.Backend))

	checks := []handler.ReadinessCheck{{Name: "storage", Pinger: stores}}
	if stores.DB != nil {
		checks[0].Metadata = handler.PoolMetadata(stores.DB)
	}

	var publisher domain.CardEventPublisher
	if cfg.RabbitMQURL != "" {
		rmqCtx, rmqCancel := context.WithTimeout(context.Background(), 30*time.Second)
		rmq, err := messaging.NewRabbitMQWithRetry(rmqCtx, cfg.RabbitMQURL)
		rmqCancel()
		if err != nil {
			// Card events are best effort; the admin keeps working without them.
			slog.Error("card events disabled", slog.String("error", err.Error()))
		} else {
			defer rmq.Close()
			publisher = rmq
			checks = append(checks, handler.ReadinessCheck{Name: "rabbitmq", Pinger: rmq})
			slog.Info("connected to rabbitmq")
		}
	}

	authService := service.NewAuthService(stores.Sessions, service.AuthConfig{
		Password:     cfg.FormPassword,
		PasswordHash: cfg.FormPasswordHash,
		SessionTTL:   cfg.SessionTTL,
	})
	cardService := service.NewCardService(stores.Cards, validation.New(), publisher)

	loginLimiter := middleware.NewRateLimiter(cfg.LoginRateLimit, cfg.LoginRateBurst)

	app := &application{
		cfg:         cfg,
		authService: authService,
		cardService: cardService,
		cookies: &middleware.SessionCookies{
			Signer: security.NewSigner(cfg.SessionSecret),
			TTL:    cfg.SessionTTL,
			Secure: cfg.CookieSecure,
		},
		loginLimiter: loginLimiter,
		checks:       checks,
	}

	router, err := app.routes()
	if err != nil {
		slog.Error("failed to build routes", slog.String("error", err.Error()))
		os.Exit(1)
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	go startSessionCleanup(ctx, authService)
	if stores.DB != nil {
		go startDBStatsReporter(ctx, stores)
	}

	srv := &http.Server{
		Addr:         ":" + cfg.Port,
		Handler:      router,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	go func() {
		slog.Info("card admin listening", slog.String("port", cfg.Port))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			slog.Error("server error", slog.String("error", err.Error()))
			os.Exit(1)
		}
	}()

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)
	<-sigChan

	slog.Info("shutting down server")

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer shutdownCancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		slog.Error("server shutdown error", slog.String("error", err.Error()))
	}

	cancel()

	slog.Info("server stopped gracefully")
}

// startSessionCleanup runs a background task to delete expired sessions
func startSessionCleanup(ctx context.Context, auth *service.AuthService) {
	ticker := time.NewTicker(1 * time.Hour)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			slog.Info("stopping session cleanup task")
			return
		case <-ticker.C:
			cleanupCtx, cancel := context.WithTimeout(ctx, 30*time.Second)
			count, err := auth.PurgeExpired(cleanupCtx)
			if err != nil {
				slog.Error("session cleanup failed", slog.String("error", err.Error()))
			} else {
				slog.Info("session cleanup completed", slog.Int64("sessions_deleted", count))
			}
			cancel()
		}
	}
}

// startDBStatsReporter exports connection pool gauges.
func startDBStatsReporter(ctx context.Context, stores *repository.Stores) {
	ticker := time.NewTicker(15 * time.Second)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			observability.RecordDBStats(stores.DB.Stats())
		}
	}
}
