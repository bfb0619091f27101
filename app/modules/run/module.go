package run

import (
	"context"
	"log/slog"
	"sync"

	runservice "github.com/Black-And-White-Club/keyquest/app/modules/run/application"
	runhandlers "github.com/Black-And-White-Club/keyquest/app/modules/run/infrastructure/handlers"
	rundb "github.com/Black-And-White-Club/keyquest/app/modules/run/infrastructure/repositories"
	"github.com/Black-And-White-Club/keyquest/app/shared/httpmw"
	"github.com/Black-And-White-Club/keyquest/app/shared/observability"
	"github.com/Black-And-White-Club/keyquest/config"
	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/uptrace/bun"
)

// Module represents the run registry module.
type Module struct {
	Service    runservice.Service
	cancelFunc context.CancelFunc
	logger     *slog.Logger
}

// NewRunModule creates the run registry and registers its routes.
func NewRunModule(
	ctx context.Context,
	cfg *config.Config,
	obs observability.Observability,
	httpRouter chi.Router,
	db *bun.DB,
	writeLimiter *httpmw.IPRateLimiter,
) (*Module, error) {
	logger := obs.Logger.With("module", "run")
	logger.InfoContext(ctx, "Initializing run module")

	service := runservice.NewRunService(rundb.NewRepository(db), logger, obs.Metrics, obs.Tracer, db)

	if httpRouter != nil {
		handlers := runhandlers.NewRunHandlers(service, logger, obs.Tracer)
		httpRouter.Group(func(r chi.Router) {
			r.Use(middleware.Timeout(cfg.HTTP.StoreTimeout))
			r.Get("/api/runs/{runID}", handlers.HandleGetRun)

			r.With(httpmw.RateLimitMiddleware(writeLimiter)).Post("/api/runs", handlers.HandleCreateRun)
		})
	}

	return &Module{
		Service: service,
		logger:  logger,
	}, nil
}

// Run starts the run module.
func (m *Module) Run(ctx context.Context, wg *sync.WaitGroup) {
	m.logger.InfoContext(ctx, "Starting run module")

	ctx, cancel := context.WithCancel(ctx)
	m.cancelFunc = cancel
	defer cancel()

	if wg != nil {
		defer wg.Done()
	}

	<-ctx.Done()
	m.logger.InfoContext(ctx, "Run module goroutine stopped")
}

// Close stops the run module.
func (m *Module) Close() error {
	if m.cancelFunc != nil {
		m.cancelFunc()
	}
	m.logger.Info("Run module stopped")
	return nil
}
