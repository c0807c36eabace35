package http

import (
	"context"
	"net/http"

	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/mridang-api/internal/application/checkout"
	"github.com/mridang-api/internal/application/verification"
	"github.com/mridang-api/internal/config"
	"github.com/mridang-api/internal/infrastructure/metrics"
	"github.com/mridang-api/internal/transport/http/handler"
	appmiddleware "github.com/mridang-api/internal/transport/http/middleware"
	"golang.org/x/time/rate"
)

// NewRouter builds and returns the application router. ctx bounds the
// lifetime of background helpers such as the rate limiter sweeper.
func NewRouter(ctx context.Context, cfg *config.Config, deps *Deps) http.Handler {
	r := chi.NewRouter()
	r.Use(chimiddleware.RequestID)
	r.Use(chimiddleware.Logger)
	r.Use(chimiddleware.Recoverer)
	r.Use(appmiddleware.Metrics)
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   cfg.AllowedOrigins,
		AllowedMethods:   []string{"GET", "POST", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Content-Type"},
		AllowCredentials: false,
		MaxAge:           300,
	}))

	// 5 requests/second, burst of 10 on endpoints that send messages.
	sendRL := appmiddleware.NewRateLimiter(ctx, rate.Limit(5), 10)

	svcDeps := verification.ServiceDeps{
		Store:       deps.Store,
		Email:       deps.Email,
		SMS:         deps.SMS,
		TTL:         cfg.OTPTTL,
		MaxAttempts: cfg.OTPMaxAttempts,
	}
	var checkoutH *handler.CheckoutHandler
	if deps.Tokens != nil {
		svcDeps.Tokens = deps.Tokens
		checkoutH = handler.NewCheckoutHandler(checkout.NewService(deps.Tokens))
	}

	healthH := handler.NewHealthHandler(handler.StatusEnvelope{
		Env:      cfg.AppEnv,
		Store:    cfg.VerificationStore,
		Checkout: checkoutH != nil,
	})
	otpH := handler.NewOTPHandler(verification.NewService(svcDeps))

	routes := func(r chi.Router) {
		r.Get("/health-check/{action}", healthH.Check)
		r.With(sendRL.Limit).Post("/send-otp", otpH.SendEmail)
		r.Post("/verify-otp", otpH.VerifyEmail)
		r.With(sendRL.Limit).Post("/send-sms-otp", otpH.SendSMS)
		r.Post("/verify-sms-otp", otpH.VerifySMS)
		if checkoutH != nil {
			r.Post("/checkout", checkoutH.Submit)
		}
	}

	r.Handle("/metrics", metrics.Handler())
	r.Group(routes)
	r.Route("/api", routes)

	return r
}
