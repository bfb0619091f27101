package station

import (
	"context"
	"fmt"
	"log/slog"
	"sync"

	feeddomain "github.com/Black-And-White-Club/keyquest/app/modules/feed/domain"
	keysdomain "github.com/Black-And-White-Club/keyquest/app/modules/keys/domain"
	stationservice "github.com/Black-And-White-Club/keyquest/app/modules/station/application"
	stationhandlers "github.com/Black-And-White-Club/keyquest/app/modules/station/infrastructure/handlers"
	stationdb "github.com/Black-And-White-Club/keyquest/app/modules/station/infrastructure/repositories"
	"github.com/Black-And-White-Club/keyquest/app/shared/httpmw"
	"github.com/Black-And-White-Club/keyquest/app/shared/observability"
	"github.com/Black-And-White-Club/keyquest/config"
	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/uptrace/bun"
)

// Module represents the station result ledger module.
type Module struct {
	Service    stationservice.Service
	cancelFunc context.CancelFunc
	logger     *slog.Logger
}

// NewStationModule creates the ledger and registers the catalog, results and
// station write routes.
func NewStationModule(
	ctx context.Context,
	cfg *config.Config,
	obs observability.Observability,
	runs stationservice.RunRegistry,
	notifier feeddomain.Notifier,
	httpRouter chi.Router,
	db *bun.DB,
	writeLimiter *httpmw.IPRateLimiter,
) (*Module, error) {
	logger := obs.Logger.With("module", "station")
	logger.InfoContext(ctx, "Initializing station module")

	issuer, err := keysdomain.NewIssuer(cfg.Game.FragmentLength)
	if err != nil {
		return nil, fmt.Errorf("failed to create fragment issuer: %w", err)
	}

	finalKey := cfg.Game.FinalStationKey
	service := stationservice.NewLedgerService(
		stationdb.NewRepository(db),
		runs,
		issuer,
		notifier,
		finalKey,
		logger,
		obs.Metrics,
		obs.Tracer,
		db,
	)

	if httpRouter != nil {
		handlers := stationhandlers.NewStationHandlers(service, finalKey, logger, obs.Tracer)
		httpRouter.Group(func(r chi.Router) {
			r.Use(middleware.Timeout(cfg.HTTP.StoreTimeout))
			r.Get("/api/stations", handlers.HandleListStations)
			r.Get("/api/runs/{runID}/results", handlers.HandleListResults)
			r.Get("/api/runs/{runID}/progress", handlers.HandleProgress)
			r.Get("/api/runs/{runID}/stations/{stationKey}", handlers.HandleGetResult)

			r.Group(func(r chi.Router) {
				r.Use(httpmw.RateLimitMiddleware(writeLimiter))
				r.Put("/api/runs/{runID}/stations/{stationKey}", handlers.HandleRecord)
				r.Post("/api/runs/{runID}/stations/{stationKey}/complete", handlers.HandleComplete)
			})
		})
	}

	return &Module{
		Service: service,
		logger:  logger,
	}, nil
}

// Run starts the station module.
func (m *Module) Run(ctx context.Context, wg *sync.WaitGroup) {
	m.logger.InfoContext(ctx, "Starting station module")

	ctx, cancel := context.WithCancel(ctx)
	m.cancelFunc = cancel
	defer cancel()

	if wg != nil {
		defer wg.Done()
	}

	<-ctx.Done()
	m.logger.InfoContext(ctx, "Station module goroutine stopped")
}

// Close stops the station module.
func (m *Module) Close() error {
	if m.cancelFunc != nil {
		m.cancelFunc()
	}
	m.logger.Info("Station module stopped")
	return nil
}
