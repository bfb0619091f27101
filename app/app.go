package app

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"sync"
	"time"

	"github.com/Black-And-White-Club/keyquest/app/modules/feed"
	"github.com/Black-And-White-Club/keyquest/app/modules/leaderboard"
	"github.com/Black-And-White-Club/keyquest/app/modules/masterkey"
	"github.com/Black-And-White-Club/keyquest/app/modules/run"
	"github.com/Black-And-White-Club/keyquest/app/modules/station"
	"github.com/Black-And-White-Club/keyquest/app/shared/attr"
	"github.com/Black-And-White-Club/keyquest/app/shared/httpmw"
	"github.com/Black-And-White-Club/keyquest/app/shared/observability"
	"github.com/Black-And-White-Club/keyquest/config"
	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/uptrace/bun"
	"github.com/uptrace/bun/dialect/pgdialect"
	"github.com/uptrace/bun/driver/pgdriver"
	"golang.org/x/time/rate"
)

// shutdownTimeout bounds graceful HTTP shutdown.
const shutdownTimeout = 15 * time.Second

// Modules is the set of wired modules.
type Modules struct {
	Run         *run.Module
	Station     *station.Module
	MasterKey   *masterkey.Module
	Leaderboard *leaderboard.Module
	Feed        *feed.Module
}

// App holds the server's shared resources and modules.
type App struct {
	Config        *config.Config
	Observability observability.Observability
	DB            *bun.DB
	Router        chi.Router
	Modules       Modules

	httpServer    *http.Server
	metricsServer *http.Server
	wg            sync.WaitGroup
}

// New creates an App from cfg. Initialize must be called before Run.
func New(cfg *config.Config) (*App, error) {
	obs, err := observability.New(observability.Config{
		Environment: cfg.Observability.Environment,
		LogLevel:    cfg.Observability.LogLevel,
	}, os.Stdout)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize observability: %w", err)
	}
	return &App{Config: cfg, Observability: obs}, nil
}

// Initialize opens the database, builds the router and wires every module.
func (app *App) Initialize(ctx context.Context) error {
	logger := app.Observability.Logger

	if app.DB == nil {
		db, err := OpenDB(ctx, app.Config.Postgres.DSN)
		if err != nil {
			return err
		}
		app.DB = db
	}

	app.Router = app.newRouter()
	if err := app.initializeModules(ctx); err != nil {
		return err
	}

	app.httpServer = &http.Server{
		Addr:              app.Config.HTTP.Addr,
		Handler:           app.Router,
		ReadHeaderTimeout: 10 * time.Second,
	}
	if addr := app.Config.Observability.MetricsAddress; addr != "" {
		mux := http.NewServeMux()
		mux.Handle("/metrics", promhttp.HandlerFor(app.Observability.Registry, promhttp.HandlerOpts{}))
		app.metricsServer = &http.Server{Addr: addr, Handler: mux, ReadHeaderTimeout: 10 * time.Second}
	}

	logger.InfoContext(ctx, "Application initialized",
		attr.String("http_addr", app.Config.HTTP.Addr),
		attr.String("feed_driver", app.Config.Feed.Driver),
	)
	return nil
}

// OpenDB connects bun to Postgres through pgdriver and pings it.
func OpenDB(ctx context.Context, dsn string) (*bun.DB, error) {
	if dsn == "" {
		return nil, errors.New("postgres dsn is empty")
	}
	sqldb := sql.OpenDB(pgdriver.NewConnector(pgdriver.WithDSN(dsn)))
	db := bun.NewDB(sqldb, pgdialect.New())
	if err := db.PingContext(ctx); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}
	return db, nil
}

func (app *App) newRouter() chi.Router {
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Recoverer)
	r.Use(httpmw.CORSMiddleware(app.Config.HTTP.AllowedOrigins))
	if app.Observability.HTTPMetrics != nil {
		r.Use(app.Observability.HTTPMetrics.Middleware)
	}

	r.Get("/healthz", func(w http.ResponseWriter, r *http.Request) {
		httpmw.WriteJSON(w, http.StatusOK, map[string]string{"status": "ok"})
	})
	return r
}

func (app *App) initializeModules(ctx context.Context) error {
	cfg := app.Config
	obs := app.Observability
	limiter := httpmw.NewIPRateLimiter(rate.Limit(cfg.HTTP.WriteRate), cfg.HTTP.WriteBurst)

	feedModule, err := feed.NewFeedModule(ctx, cfg, obs, app.Router)
	if err != nil {
		return fmt.Errorf("failed to initialize feed module: %w", err)
	}
	app.Modules.Feed = feedModule

	runModule, err := run.NewRunModule(ctx, cfg, obs, app.Router, app.DB, limiter)
	if err != nil {
		return fmt.Errorf("failed to initialize run module: %w", err)
	}
	app.Modules.Run = runModule

	stationModule, err := station.NewStationModule(ctx, cfg, obs, runModule.Service, feedModule.Notifier, app.Router, app.DB, limiter)
	if err != nil {
		return fmt.Errorf("failed to initialize station module: %w", err)
	}
	app.Modules.Station = stationModule

	leaderboardModule, err := leaderboard.NewLeaderboardModule(ctx, cfg, obs, app.Router, app.DB)
	if err != nil {
		return fmt.Errorf("failed to initialize leaderboard module: %w", err)
	}
	app.Modules.Leaderboard = leaderboardModule

	masterKeyModule, err := masterkey.NewMasterKeyModule(ctx, cfg, obs, stationModule.Service, leaderboardModule.LeaderboardService, app.Router, limiter)
	if err != nil {
		return fmt.Errorf("failed to initialize master key module: %w", err)
	}
	app.Modules.MasterKey = masterKeyModule

	return nil
}

// Run starts the modules and servers and blocks until ctx is cancelled or a
// server fails.
func (app *App) Run(ctx context.Context) error {
	logger := app.Observability.Logger

	app.wg.Add(5)
	go app.Modules.Feed.Run(ctx, &app.wg)
	go app.Modules.Run.Run(ctx, &app.wg)
	go app.Modules.Station.Run(ctx, &app.wg)
	go app.Modules.Leaderboard.Run(ctx, &app.wg)
	go app.Modules.MasterKey.Run(ctx, &app.wg)

	errCh := make(chan error, 2)
	go serve(logger, app.httpServer, "api", errCh)
	if app.metricsServer != nil {
		go serve(logger, app.metricsServer, "metrics", errCh)
	}

	select {
	case <-ctx.Done():
		logger.Info("Shutdown requested")
		return nil
	case err := <-errCh:
		return err
	}
}

func serve(logger *slog.Logger, srv *http.Server, name string, errCh chan<- error) {
	logger.Info("HTTP server listening", attr.String("server", name), attr.String("addr", srv.Addr))
	if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		errCh <- fmt.Errorf("%s server failed: %w", name, err)
	}
}

// Close shuts the servers down, stops every module and closes the database.
func (app *App) Close() error {
	logger := app.Observability.Logger
	ctx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()

	var errs []error
	for _, srv := range []*http.Server{app.httpServer, app.metricsServer} {
		if srv == nil {
			continue
		}
		if err := srv.Shutdown(ctx); err != nil {
			errs = append(errs, err)
		}
	}

	var closers []func() error
	if m := app.Modules.MasterKey; m != nil {
		closers = append(closers, m.Close)
	}
	if m := app.Modules.Leaderboard; m != nil {
		closers = append(closers, m.Close)
	}
	if m := app.Modules.Station; m != nil {
		closers = append(closers, m.Close)
	}
	if m := app.Modules.Run; m != nil {
		closers = append(closers, m.Close)
	}
	if m := app.Modules.Feed; m != nil {
		closers = append(closers, m.Close)
	}
	for _, closeFn := range closers {
		if err := closeFn(); err != nil {
			errs = append(errs, err)
		}
	}
	app.wg.Wait()

	if app.DB != nil {
		if err := app.DB.Close(); err != nil {
			errs = append(errs, err)
		}
	}

	logger.Info("Application stopped")
	return errors.Join(errs...)
}
