package main

import (
	"context"
	"errors"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"go.uber.org/zap"

	"github.com/ai0585413/bkash/internal/callback"
	"github.com/ai0585413/bkash/internal/config"
	"github.com/ai0585413/bkash/internal/handler"
	"github.com/ai0585413/bkash/internal/logging"
	"github.com/ai0585413/bkash/internal/repository"
	"github.com/ai0585413/bkash/internal/repository/memory"
	"github.com/ai0585413/bkash/internal/service"
	"github.com/ai0585413/bkash/internal/view"
	"github.com/ai0585413/bkash/pkg/payment"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		zap.Must(zap.NewProduction()).Fatal("config error", zap.Error(err))
	}

	logger, err := logging.New(logging.Config{
		ServiceName: "bkash",
		Env:         string(cfg.AppEnv),
		Level:       cfg.LogLevel,
		Format:      cfg.LogFormat,
	})
	if err != nil {
		zap.Must(zap.NewProduction()).Fatal("logger error", zap.Error(err))
	}
	defer logging.Sync(logger)
	zap.ReplaceGlobals(logger)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if err := run(ctx, cfg, logger); err != nil {
		logger.Fatal("server error", zap.Error(err))
	}
}

func run(ctx context.Context, cfg *config.Config, logger *zap.Logger) error {
	store, db, err := openStore(ctx, cfg, logger)
	if err != nil {
		return err
	}
	if db != nil {
		defer db.Close()
	}

	var pinger handler.Pinger
	if db != nil {
		pinger = db
	}
	h, err := buildRoutes(cfg, store, pinger, logger)
	if err != nil {
		return err
	}
	router := newRouter(ctx, cfg, logger, h)

	// gateway calls may hold a request for the full gateway timeout
	server := &http.Server{
		Addr:              cfg.ListenAddr(),
		Handler:           router,
		ReadHeaderTimeout: 10 * time.Second,
		ReadTimeout:       30 * time.Second,
		WriteTimeout:      cfg.Gateway.Timeout + 15*time.Second,
		IdleTimeout:       120 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		logger.Info("listening",
			zap.String("addr", server.Addr),
			zap.String("public_base_url", cfg.PublicBaseURL()),
		)
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}

	logger.Info("shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.ShutdownTimeout)
	defer cancel()
	return server.Shutdown(shutdownCtx)
}

// openStore connects to PostgreSQL when DATABASE_URL is set and falls back to
// the in-memory store otherwise. The returned pool is nil for the memory store.
func openStore(ctx context.Context, cfg *config.Config, logger *zap.Logger) (repository.TransactionStore, *pgxpool.Pool, error) {
	if cfg.DatabaseURL == "" {
		logger.Warn("DATABASE_URL is empty, using the in-memory transaction store")
		return memory.NewTransactionRepository(), nil, nil
	}

	db, err := repository.NewDB(ctx, cfg.DatabaseURL)
	if err != nil {
		return nil, nil, err
	}
	if err := repository.RunMigrations(ctx, db); err != nil {
		db.Close()
		return nil, nil, err
	}
	logger.Info("database connected and migrated")
	return repository.NewTransactionRepository(db), db, nil
}

// buildRoutes wires the gateway client, the payment services and the HTTP handlers.
func buildRoutes(cfg *config.Config, store repository.TransactionStore, db handler.Pinger, logger *zap.Logger) (routes, error) {
	urls, err := callback.NewURLBuilder(cfg.PublicBaseURL())
	if err != nil {
		return routes{}, err
	}
	renderer, err := view.NewHTMLRenderer()
	if err != nil {
		return routes{}, err
	}

	provider := newProvider(cfg.Gateway)
	var gateway payment.Gateway
	if provider.Configured() {
		gateway = payment.NewBkashClient(provider,
			payment.WithTimeout(cfg.Gateway.Timeout),
			payment.WithLogger(logger.Named("bkash")),
		)
	} else {
		logger.Warn("bKash provider is not configured, payments cannot be created")
	}

	engine := service.NewReconciliationEngine(store, gateway, logger)
	paymentSvc := service.NewPaymentService(store, engine, provider, gateway, urls, service.LookupRetry{
		Attempts: cfg.Gateway.LookupRetries,
		Interval: cfg.Gateway.LookupInterval,
	}, logger)

	return routes{
		health:   handler.NewHealthHandler(db),
		payments: handler.NewPaymentHandler(paymentSvc),
		returns:  handler.NewCallbackHandler(paymentSvc, logger),
		status:   handler.NewStatusHandler(paymentSvc, renderer, logger),
	}, nil
}

func newProvider(g config.Gateway) *payment.Provider {
	p := &payment.Provider{
		Code:    g.ProviderCode,
		BaseURL: g.BaseURL,
		AppKey:  g.AppKey,
	}
	if !g.Configured() {
		return p
	}
	if g.Token != "" {
		p.Tokens = payment.StaticToken(g.Token)
	} else {
		p.Tokens = &payment.GrantTokenSource{
			BaseURL:   g.BaseURL,
			AppKey:    g.AppKey,
			AppSecret: g.AppSecret,
			Username:  g.Username,
			Password:  g.Password,
			HTTP:      &http.Client{Timeout: g.Timeout},
		}
	}
	return p
}
