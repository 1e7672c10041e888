package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/go-otp-auth/internal/application/session"
	"github.com/go-otp-auth/internal/application/verification"
	"github.com/go-otp-auth/internal/config"
	"github.com/go-otp-auth/internal/infrastructure/google"
	jwtinfra "github.com/go-otp-auth/internal/infrastructure/jwt"
	"github.com/go-otp-auth/internal/pkg/otp"
	"github.com/go-otp-auth/internal/pkg/password"
	transporthttp "github.com/go-otp-auth/internal/transport/http"
	"github.com/joho/godotenv"
)

func main() {
	if err := godotenv.Load(); err != nil {
		slog.Info("no .env file found, reading from environment")
	}

	cfg, err := config.Load()
	if err != nil {
		slog.Error("load config", "err", err)
		os.Exit(1)
	}
	logger := newLogger(cfg)
	slog.SetDefault(logger)

	if err := run(cfg, logger); err != nil {
		logger.Error("server stopped with error", "err", err)
		os.Exit(1)
	}
}

func run(cfg *config.Config, logger *slog.Logger) error {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	b, err := openBackends(ctx, cfg, logger)
	if err != nil {
		return err
	}
	defer b.close()

	hasher := password.NewHasher(cfg.BcryptCost)
	flows := verification.NewService(verification.ServiceDeps{
		Users:   b.users,
		Ledger:  verification.NewLedger(b.ledger, otp.NewGenerator(), cfg.OTPTTL, nil),
		Tokens:  jwtinfra.NewProvider(cfg.FlowTokenSecret, cfg.OTPTTL, nil),
		Mailer:  b.mailer,
		Hasher:  hasher,
		Timeout: cfg.DependencyTimeout,
		Logger:  logger.With("component", "verification"),
	})

	sessionDeps := session.ServiceDeps{
		UserRepo: b.users,
		Hasher:   hasher,
		Timeout:  cfg.DependencyTimeout,
		Logger:   logger.With("component", "session"),
	}
	if cfg.GoogleClientID != "" {
		sessionDeps.GoogleVerifier = google.NewVerifier(cfg.GoogleClientID)
	}

	router := transporthttp.NewRouter(cfg, &transporthttp.Deps{
		Flows:        flows,
		Sessions:     session.NewService(sessionDeps),
		GoogleSignIn: sessionDeps.GoogleVerifier != nil,
	})

	srv := &http.Server{
		Addr:         fmt.Sprintf(":%s", cfg.AppPort),
		Handler:      router,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	errc := make(chan error, 1)
	go func() {
		logger.Info("server starting", "port", cfg.AppPort, "env", cfg.AppEnv,
			"store", cfg.StoreBackend, "ledger", cfg.LedgerBackend, "mail", cfg.MailBackend)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errc <- err
		}
		close(errc)
	}()

	select {
	case err := <-errc:
		return fmt.Errorf("listen: %w", err)
	case <-ctx.Done():
	}

	logger.Info("shutting down server")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("forced shutdown: %w", err)
	}
	logger.Info("server stopped")
	return nil
}

func newLogger(cfg *config.Config) *slog.Logger {
	var level slog.Level
	if err := level.UnmarshalText([]byte(strings.ToUpper(cfg.LogLevel))); err != nil {
		level = slog.LevelInfo
	}
	opts := &slog.HandlerOptions{Level: level}
	if cfg.IsProduction() {
		return slog.New(slog.NewJSONHandler(os.Stdout, opts))
	}
	return slog.New(slog.NewTextHandler(os.Stdout, opts))
}
