package leaderboard

import (
	"context"
	"fmt"
	"log/slog"
	"sync"

	leaderboardservice "github.com/Black-And-White-Club/keyquest/app/modules/leaderboard/application"
	leaderboardhandlers "github.com/Black-And-White-Club/keyquest/app/modules/leaderboard/infrastructure/handlers"
	leaderboarddb "github.com/Black-And-White-Club/keyquest/app/modules/leaderboard/infrastructure/repositories"
	"github.com/Black-And-White-Club/keyquest/app/shared/observability"
	"github.com/Black-And-White-Club/keyquest/config"
	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/uptrace/bun"
)

// Module represents the leaderboard module.
type Module struct {
	LeaderboardService leaderboardservice.Service
	cancelFunc         context.CancelFunc
	logger             *slog.Logger
}

// NewLeaderboardModule creates a new instance of the Leaderboard module.
func NewLeaderboardModule(
	ctx context.Context,
	cfg *config.Config,
	obs observability.Observability,
	httpRouter chi.Router,
	db *bun.DB,
) (*Module, error) {
	logger := obs.Logger.With("module", "leaderboard")
	logger.InfoContext(ctx, "leaderboard.NewLeaderboardModule called")

	tiers, err := cfg.Game.TierTable()
	if err != nil {
		return nil, fmt.Errorf("failed to build tier table: %w", err)
	}

	leaderboardService := leaderboardservice.NewLeaderboardService(
		leaderboarddb.NewRepository(db),
		tiers,
		cfg.Game.FinalStationKey,
		logger,
		obs.Metrics,
		obs.Tracer,
		db,
	)

	if httpRouter != nil {
		handlers := leaderboardhandlers.NewLeaderboardHandlers(leaderboardService, logger, obs.Tracer)
		httpRouter.Group(func(r chi.Router) {
			r.Use(middleware.Timeout(cfg.HTTP.StoreTimeout))
			r.Get("/api/leaderboard", handlers.HandleGetLeaderboard)
			r.Get("/api/leaderboard/chart.png", handlers.HandleChart)
			r.Get("/api/leaderboard/export.xlsx", handlers.HandleExport)
		})
	}

	return &Module{
		LeaderboardService: leaderboardService,
		logger:             logger,
	}, nil
}

// Run starts the leaderboard module.
func (m *Module) Run(ctx context.Context, wg *sync.WaitGroup) {
	m.logger.InfoContext(ctx, "Starting leaderboard module")

	// Create a context that can be canceled
	ctx, cancel := context.WithCancel(ctx)
	m.cancelFunc = cancel
	defer cancel()

	// If we have a wait group, mark as done when this method exits
	if wg != nil {
		defer wg.Done()
	}

	// Keep this goroutine alive until the context is canceled
	<-ctx.Done()
	m.logger.InfoContext(ctx, "Leaderboard module goroutine stopped")
}

// Close stops the leaderboard module and cleans up resources.
func (m *Module) Close() error {
	m.logger.Info("Stopping leaderboard module")

	if m.cancelFunc != nil {
		m.cancelFunc()
	}

	m.logger.Info("Leaderboard module stopped")
	return nil
}
