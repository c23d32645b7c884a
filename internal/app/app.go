// Package app wires the POS server together.
package app

import (
	"context"
	"net/http"
	"strings"
	"time"

	"github.com/go-faster/errors"
	"github.com/go-faster/sdk/app"
	"github.com/jackc/pgx/v5/pgxpool"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/CSCE331-Fall2025-900-911/project3-gang-61/internal/domain/order"
	"github.com/CSCE331-Fall2025-900-911/project3-gang-61/internal/handler"
	"github.com/CSCE331-Fall2025-900-911/project3-gang-61/internal/storage/postgres"
	"github.com/CSCE331-Fall2025-900-911/project3-gang-61/pkg/health"
	"github.com/CSCE331-Fall2025-900-911/project3-gang-61/pkg/httpmiddleware"
)

// Run creates all dependencies, starts the HTTP server, and handles graceful
// shutdown. It is the single wiring point for the application.
func Run(ctx context.Context, lg *zap.Logger, m *app.Telemetry, cfg *Config) error {
	lg.Info("Initializing",
		zap.String("addr", cfg.Addr),
		zap.String("stock_policy", cfg.StockPolicy),
		zap.Strings("cors_origins", cfg.CORS.Origins),
	)

	pool, err := postgres.NewPool(ctx, cfg.DatabaseURL, postgres.PoolConfig{
		MaxConns:        cfg.DB.MaxConns,
		MaxConnIdleTime: cfg.DB.MaxConnIdleTime,
	})
	if err != nil {
		return errors.Wrap(err, "create db pool")
	}
	defer pool.Close()

	if err := postgres.RunMigrations(ctx, pool); err != nil {
		return errors.Wrap(err, "run migrations")
	}

	srv, err := newServer(lg, m, cfg, pool)
	if err != nil {
		return err
	}
	httpServer := &http.Server{
		ReadHeaderTimeout: time.Second,
		ReadTimeout:       5 * time.Second,
		WriteTimeout:      cfg.TxTimeout + 5*time.Second,
		IdleTimeout:       120 * time.Second,
		MaxHeaderBytes:    1 << 20,
		Addr:              cfg.Addr,
		Handler:           srv.handler,
	}
	g, ctx := errgroup.WithContext(ctx)
	srv.health.Start(ctx, 10*time.Second)
	defer srv.health.Stop()

	if cfg.RateLimit.Max > 0 {
		g.Go(func() error {
			srv.limiter.RunEviction(ctx)
			return nil
		})
	}
	g.Go(func() error {
		lg.Info("Server listening", zap.String("addr", cfg.Addr))
		if err := httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return errors.Wrap(err, "server")
		}
		return nil
	})
	g.Go(func() error {
		<-ctx.Done()
		srv.health.SetReady(false)
		lg.Info("Readiness set to false, draining", zap.Duration("delay", cfg.Graceful.ReadinessDelay))
		time.Sleep(cfg.Graceful.ReadinessDelay)

		shutdownCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), cfg.Graceful.ShutdownTimeout)
		defer cancel()

		lg.Info("Shutting down server", zap.Duration("timeout", cfg.Graceful.ShutdownTimeout))
		if err := httpServer.Shutdown(shutdownCtx); err != nil {
			return errors.Wrap(err, "shutdown")
		}
		return nil
	})

	srv.health.SetReady(true)
	return g.Wait()
}

// server is the fully wired HTTP surface, independent of the listener.
type server struct {
	handler http.Handler
	health  *health.Health
	limiter *httpmiddleware.Limiter
}

func newServer(lg *zap.Logger, t httpmiddleware.Telemetry, cfg *Config, pool *pgxpool.Pool) (*server, error) {
	policy, err := order.ParseStockPolicy(cfg.StockPolicy)
	if err != nil {
		return nil, errors.Wrap(err, "stock policy")
	}
	orderService, err := order.NewService(
		postgres.NewStore(pool, t.TracerProvider()),
		order.Config{
			StockPolicy:   policy,
			TxTimeout:     cfg.TxTimeout,
			MeterProvider: t.MeterProvider(),
		},
	)
	if err != nil {
		return nil, errors.Wrap(err, "create order service")
	}

	healthSvc := health.New()
	healthSvc.AddReadinessCheck("postgres", 5*time.Second, health.PingCheck(pool))
	healthSvc.AddLivenessCheck("goroutines", time.Second, health.GoroutineCountCheck(10000))
	healthSvc.AddLivenessCheck("gc", time.Second, health.GCMaxPauseCheck(time.Second))

	mux := http.NewServeMux()
	healthSvc.Register(mux)
	handler.New(
		orderService,
		postgres.NewOrderRepository(pool),
		postgres.NewProductRepository(pool),
	).Register(mux)

	limiter := httpmiddleware.NewLimiter(cfg.RateLimit.Max, cfg.RateLimit.Window)
	routeFinder := httpmiddleware.MakeRouteFinder(mux)
	return &server{
		health:  healthSvc,
		limiter: limiter,
		handler: httpmiddleware.Wrap(mux,
			httpmiddleware.RequestID(),
			httpmiddleware.InjectLogger(lg),
			httpmiddleware.Recovery(),
			httpmiddleware.Instrument("pos-api", routeFinder, t),
			httpmiddleware.Labeler(routeFinder),
			httpmiddleware.LogRequests(routeFinder),
			httpmiddleware.CORS(httpmiddleware.CORSConfig{
				AllowOrigins:     cfg.CORS.Origins,
				AllowHeaders:     []string{"Content-Type", "Authorization", httpmiddleware.RequestIDHeader},
				AllowCredentials: cfg.CORS.AllowCredentials,
				MaxAge:           86400,
			}),
			httpmiddleware.RateLimit(httpmiddleware.RateLimitConfig{
				Max:    cfg.RateLimit.Max,
				Window: cfg.RateLimit.Window,
				Skip:   isProbe,
			}, limiter),
		),
	}, nil
}

func isProbe(r *http.Request) bool {
	return !strings.HasPrefix(r.URL.Path, "/api/")
}
