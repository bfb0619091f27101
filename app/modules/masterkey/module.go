package masterkey

import (
	"context"
	"log/slog"
	"sync"

	masterkeyservice "github.com/Black-And-White-Club/keyquest/app/modules/masterkey/application"
	masterkeyhandlers "github.com/Black-And-White-Club/keyquest/app/modules/masterkey/infrastructure/handlers"
	"github.com/Black-And-White-Club/keyquest/app/shared/httpmw"
	"github.com/Black-And-White-Club/keyquest/app/shared/observability"
	"github.com/Black-And-White-Club/keyquest/config"
	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
)

// Module represents the master key validator.
type Module struct {
	Service    masterkeyservice.Service
	cancelFunc context.CancelFunc
	logger     *slog.Logger
}

// NewMasterKeyModule wires the validator onto the ledger and the tier table used
// by the leaderboard.
func NewMasterKeyModule(
	ctx context.Context,
	cfg *config.Config,
	obs observability.Observability,
	ledger masterkeyservice.Ledger,
	tiers masterkeyservice.TierClassifier,
	httpRouter chi.Router,
	writeLimiter *httpmw.IPRateLimiter,
) (*Module, error) {
	logger := obs.Logger.With("module", "masterkey")
	logger.InfoContext(ctx, "Initializing master key module")

	service := masterkeyservice.NewMasterKeyService(
		ledger,
		tiers,
		masterkeyservice.Config{
			FinalStationKey: cfg.Game.FinalStationKey,
			Bonus:           cfg.Game.Bonus,
			ScoreMax:        cfg.Game.ScoreMax,
		},
		logger,
		obs.Metrics,
		obs.Tracer,
	)

	if httpRouter != nil {
		handlers := masterkeyhandlers.NewMasterKeyHandlers(service, logger, obs.Tracer)
		httpRouter.Group(func(r chi.Router) {
			r.Use(middleware.Timeout(cfg.HTTP.StoreTimeout))
			r.Get("/api/runs/{runID}/master-key", handlers.HandlePreview)
			r.With(httpmw.RateLimitMiddleware(writeLimiter)).Post("/api/runs/{runID}/master-key", handlers.HandleValidate)
		})
	}

	return &Module{
		Service: service,
		logger:  logger,
	}, nil
}

// Run starts the master key module.
func (m *Module) Run(ctx context.Context, wg *sync.WaitGroup) {
	m.logger.InfoContext(ctx, "Starting master key module")

	ctx, cancel := context.WithCancel(ctx)
	m.cancelFunc = cancel
	defer cancel()

	if wg != nil {
		defer wg.Done()
	}

	<-ctx.Done()
	m.logger.InfoContext(ctx, "Master key module goroutine stopped")
}

// Close stops the master key module.
func (m *Module) Close() error {
	if m.cancelFunc != nil {
		m.cancelFunc()
	}
	m.logger.Info("Master key module stopped")
	return nil
}
