package main

import (
	"context"
	"net/http"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"go.uber.org/zap"

	"github.com/ai0585413/bkash/internal/callback"
	"github.com/ai0585413/bkash/internal/config"
	"github.com/ai0585413/bkash/internal/handler"
	appMiddleware "github.com/ai0585413/bkash/internal/middleware"
)

type routes struct {
	health   *handler.HealthHandler
	payments *handler.PaymentHandler
	returns  *handler.CallbackHandler
	status   *handler.StatusHandler
}

func newRouter(ctx context.Context, cfg *config.Config, logger *zap.Logger, h routes) http.Handler {
	r := chi.NewRouter()

	// Global middleware
	r.Use(chimw.RequestID)
	r.Use(appMiddleware.Recovery(logger))
	r.Use(appMiddleware.Logger(logger))
	r.Use(appMiddleware.NewRateLimiter(ctx, cfg.RateLimitRPS, cfg.RateLimitBurst).Middleware())

	r.Get("/health", h.health.Check)

	// Gateway return, public and without CSRF protection
	r.Get(callback.ReturnPath, h.returns.Return)
	r.Post(callback.ReturnPath, h.returns.Return)
	r.Get(callback.ReturnPath+"/", h.returns.Return)
	r.Post(callback.ReturnPath+"/", h.returns.Return)

	r.Get(handler.StatusPath, h.status.Show)

	// Merchant RPC
	r.Group(func(r chi.Router) {
		r.Use(cors.Handler(cors.Options{
			AllowedOrigins: cfg.CORSOrigins,
			AllowedMethods: []string{"POST", "OPTIONS"},
			AllowedHeaders: []string{"Accept", "Content-Type", "X-Request-Id"},
			MaxAge:         300,
		}))
		// preflight is answered by the cors handler
		preflight := func(w http.ResponseWriter, r *http.Request) {}
		for path, fn := range map[string]http.HandlerFunc{
			"/payment/gateway/callback_urls": h.payments.CallbackURLs,
			"/payment/gateway/create":        h.payments.Create,
		} {
			r.Post(path, fn)
			r.Options(path, preflight)
		}
	})

	return r
}
