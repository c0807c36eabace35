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

	"github.com/joho/godotenv"
	"github.com/mridang-api/internal/application/verification"
	"github.com/mridang-api/internal/config"
	"github.com/mridang-api/internal/infrastructure/dynamo"
	jwtinfra "github.com/mridang-api/internal/infrastructure/jwt"
	"github.com/mridang-api/internal/infrastructure/memory"
	redisinfra "github.com/mridang-api/internal/infrastructure/redis"
	"github.com/mridang-api/internal/infrastructure/sms"
	"github.com/mridang-api/internal/infrastructure/smtp"
	"github.com/mridang-api/internal/infrastructure/sns"
	transporthttp "github.com/mridang-api/internal/transport/http"
)

func main() {
	envErr := godotenv.Load()
	cfg := config.Load()
	slog.SetDefault(newLogger(cfg))
	if envErr != nil {
		slog.Info("no .env file found, reading from environment")
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	store, closeStore, err := newStore(ctx, cfg)
	if err != nil {
		slog.Error("verification store unavailable", "backend", cfg.VerificationStore, "err", err)
		os.Exit(1)
	}
	defer closeStore()

	// JWT provider (optional: without keys verifications carry no token and /checkout is off).
	var jwtProvider *jwtinfra.Provider
	if p, err := jwtinfra.NewProvider(cfg); err == nil {
		jwtProvider = p
	} else {
		slog.Warn("verification tokens disabled", "err", err)
	}

	mailer := smtp.NewMailer(cfg)
	emailMock := cfg.EmailMockEnabled()
	if emailMock {
		slog.Warn("email mock mode enabled, codes are returned instead of mailed")
	}

	sender := newSMSSender(ctx, cfg)
	smsMode := verification.ResolveSMSMode(sender != nil, cfg.SMSMock, cfg.IsProduction())
	switch smsMode {
	case verification.SMSMock:
		slog.Warn("sms mock mode enabled, codes are returned instead of sent", "provider", cfg.SMSProvider)
	case verification.SMSDisabled:
		slog.Error("no sms gateway configured in production, sms sends will fail", "provider", cfg.SMSProvider)
	}

	deps := &transporthttp.Deps{
		Store:  store,
		Email:  verification.NewEmailDelivery(mailer, cfg.OTPTTL, emailMock),
		SMS:    verification.NewSMSDelivery(sender, smsMode, cfg.OTPTTL),
		Tokens: jwtProvider,
	}

	srv := &http.Server{
		Addr:         fmt.Sprintf(":%s", cfg.AppPort),
		Handler:      transporthttp.NewRouter(ctx, cfg, deps),
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 30 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	go func() {
		slog.Info("server starting", "port", cfg.AppPort, "env", cfg.AppEnv, "store", cfg.VerificationStore)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			slog.Error("server error", "err", err)
			stop()
		}
	}()

	<-ctx.Done()

	slog.Info("shutting down server")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		slog.Error("forced shutdown", "err", err)
		return
	}
	slog.Info("server stopped")
}

func newLogger(cfg *config.Config) *slog.Logger {
	var level slog.Level
	if err := level.UnmarshalText([]byte(cfg.LogLevel)); err != nil {
		level = slog.LevelInfo
	}
	opts := &slog.HandlerOptions{Level: level}
	if cfg.IsProduction() {
		return slog.New(slog.NewJSONHandler(os.Stdout, opts))
	}
	return slog.New(slog.NewTextHandler(os.Stdout, opts))
}

// newStore builds the configured verification store and a func releasing it.
func newStore(ctx context.Context, cfg *config.Config) (verification.Store, func(), error) {
	switch cfg.VerificationStore {
	case "dynamo", "dynamodb":
		client, err := dynamo.NewClient(ctx, cfg)
		if err != nil {
			return nil, nil, err
		}
		if err := dynamo.EnsureVerificationsTable(ctx, client, cfg.DynamoVerificationsTbl); err != nil {
			return nil, nil, err
		}
		return dynamo.NewVerificationRepo(client, cfg.DynamoVerificationsTbl), func() {}, nil
	case "redis":
		client, err := redisinfra.NewClient(ctx, cfg)
		if err != nil {
			return nil, nil, err
		}
		return redisinfra.NewVerificationStore(client), func() { _ = client.Close() }, nil
	case "", "memory":
		return memory.NewVerificationStore(), func() {}, nil
	}
	return nil, nil, fmt.Errorf("unknown VERIFICATION_STORE %q", cfg.VerificationStore)
}

// newSMSSender returns the configured gateway, or nil when none is usable.
func newSMSSender(ctx context.Context, cfg *config.Config) sms.Sender {
	switch strings.ToLower(cfg.SMSProvider) {
	case "sns":
		s, err := sns.NewSender(ctx, cfg)
		if err != nil {
			slog.Warn("sns sender not available", "err", err)
			return nil
		}
		return s
	default:
		if c := sms.NewMSG91(cfg); c != nil {
			return c
		}
		return nil
	}
}
