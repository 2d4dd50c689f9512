// Package app wires configuration, storage, domain services, and the HTTP
// server, and owns the graceful shutdown sequence.
package app

import (
	"context"
	"net/http"
	"time"

	"github.com/go-faster/errors"
	"github.com/go-faster/sdk/app"
	"github.com/go-faster/sdk/zctx"
	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"
	"go.uber.org/zap"

	"github.com/craftbazaar/marketplace/internal/domain/catalog"
	"github.com/craftbazaar/marketplace/internal/domain/customer"
	"github.com/craftbazaar/marketplace/internal/domain/order"
	"github.com/craftbazaar/marketplace/internal/handler"
	"github.com/craftbazaar/marketplace/internal/storage/jsonfile"
	"github.com/craftbazaar/marketplace/internal/storage/postgres"
	"github.com/craftbazaar/marketplace/pkg/health"
	"github.com/craftbazaar/marketplace/pkg/httpmiddleware"
)

// repositories bundles the storage layer regardless of backend.
type repositories struct {
	catalog   catalog.Repository
	orders    order.Repository
	customers customer.Repository
	close     func()
}

// Run creates all dependencies, starts the HTTP server, and handles graceful
// shutdown. It is the single wiring point for the application.
func Run(ctx context.Context, lg *zap.Logger, m *app.Telemetry, cfg *Config) error {
	lg.Info("Initializing",
		zap.String("addr", cfg.Addr),
		zap.String("storage", cfg.Storage),
	)

	healthSvc := health.New()
	healthSvc.AddLivenessCheck("goroutines", time.Second, health.GoroutineCountCheck(10000))

	repos, err := buildRepositories(ctx, cfg, healthSvc)
	if err != nil {
		return err
	}
	defer repos.close()

	healthSvc.Start(ctx, 10*time.Second)
	healthSvc.SetReady(true)

	// Domain services.
	orderService := order.NewService(order.NewPricer(repos.catalog), repos.orders, cfg.ShippingFee())
	customerService := customer.NewService(repos.customers)

	// HTTP handlers.
	tokens := handler.NewTokenManager([]byte(cfg.JWT.Secret), cfg.JWT.AccessTTL, cfg.JWT.RefreshTTL)
	h := handler.NewHandler(repos.catalog, orderService, customerService, tokens)

	mux := http.NewServeMux()
	mux.HandleFunc("/livez", healthSvc.LiveEndpoint)
	mux.HandleFunc("/readyz", healthSvc.ReadyEndpoint)
	mux.Handle("/api/", otelhttp.NewHandler(h.Routes(), "marketplace-api",
		otelhttp.WithTracerProvider(m.TracerProvider()),
		otelhttp.WithMeterProvider(m.MeterProvider()),
	))

	server := &http.Server{
		ReadHeaderTimeout: time.Second,
		ReadTimeout:       5 * time.Second,
		WriteTimeout:      10 * time.Second,
		IdleTimeout:       120 * time.Second,
		MaxHeaderBytes:    1 << 20,
		Addr:              cfg.Addr,
		Handler: httpmiddleware.Wrap(mux,
			httpmiddleware.Recovery(),
			httpmiddleware.CORS(httpmiddleware.CORSConfig{
				AllowOrigins: cfg.CORS.Origins,
				AllowHeaders: []string{"Content-Type", "Authorization"},
				MaxAge:       86400,
			}),
			httpmiddleware.RateLimit(ctx, httpmiddleware.RateLimitConfig{
				Max:    cfg.RateLimit.Max,
				Window: cfg.RateLimit.Window,
			}),
			httpmiddleware.RequestID(),
			httpmiddleware.InjectLogger(zctx.From(ctx)),
			httpmiddleware.AccessLog(),
		),
	}

	// Graceful shutdown: stop advertising readiness, give load balancers time
	// to drain, then stop the listener.
	shutdownDone := make(chan struct{})
	go func() {
		<-ctx.Done()
		healthSvc.SetReady(false)
		lg.Info("Readiness set to false, draining", zap.Duration("delay", cfg.Graceful.ReadinessDelay))
		time.Sleep(cfg.Graceful.ReadinessDelay)

		shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.Graceful.ShutdownTimeout)
		defer cancel()

		lg.Info("Shutting down server", zap.Duration("timeout", cfg.Graceful.ShutdownTimeout))
		if err := server.Shutdown(shutdownCtx); err != nil {
			lg.Error("Server shutdown error", zap.Error(err))
		}
		healthSvc.Stop()
		close(shutdownDone)
	}()

	lg.Info("Server listening", zap.String("addr", cfg.Addr))
	if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return errors.Wrap(err, "server")
	}
	<-shutdownDone
	return nil
}

// buildRepositories constructs the configured storage backend and registers
// its readiness check.
func buildRepositories(ctx context.Context, cfg *Config, healthSvc *health.Health) (*repositories, error) {
	switch cfg.Storage {
	case StoragePostgres:
		pool, err := postgres.NewPool(ctx, cfg.DatabaseURL)
		if err != nil {
			return nil, errors.Wrap(err, "create db pool")
		}
		if err := postgres.RunMigrations(ctx, pool); err != nil {
			pool.Close()
			return nil, errors.Wrap(err, "run migrations")
		}
		healthSvc.AddReadinessCheck("postgres", 5*time.Second, health.PingCheck(pool))
		return &repositories{
			catalog:   postgres.NewCatalogRepository(pool),
			orders:    postgres.NewOrderRepository(pool),
			customers: postgres.NewCustomerRepository(pool),
			close:     pool.Close,
		}, nil

	case StorageJSONFile:
		store, err := jsonfile.Open(cfg.StorePath)
		if err != nil {
			return nil, errors.Wrap(err, "open store file")
		}
		return &repositories{
			catalog:   store.Catalog(),
			orders:    store.Orders(),
			customers: store.Customers(),
			close:     func() {},
		}, nil
	}
	return nil, errors.Errorf("unknown storage backend %q", cfg.Storage)
}
