package feed

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	feeddomain "github.com/Black-And-White-Club/keyquest/app/modules/feed/domain"
	feedhandlers "github.com/Black-And-White-Club/keyquest/app/modules/feed/infrastructure/handlers"
	feedpublishers "github.com/Black-And-White-Club/keyquest/app/modules/feed/infrastructure/publishers"
	feedqueue "github.com/Black-And-White-Club/keyquest/app/modules/feed/infrastructure/queue"
	"github.com/Black-And-White-Club/keyquest/app/shared/attr"
	"github.com/Black-And-White-Club/keyquest/app/shared/observability"
	"github.com/Black-And-White-Club/keyquest/config"
	"github.com/go-chi/chi/v5"
	"github.com/nats-io/nats.go"
)

// Module owns the live feed: the in-process hub, the optional NATS publisher and,
// with the outbox driver, the River delivery queue.
type Module struct {
	// Notifier is what the ledger calls after each successful write.
	Notifier feeddomain.Notifier

	hub        *feedpublishers.Hub
	nc         *nats.Conn
	outbox     *feedqueue.Service
	cancelFunc context.CancelFunc
	logger     *slog.Logger
}

// NewFeedModule builds the feed for cfg.Feed.Driver and registers the websocket routes.
func NewFeedModule(
	ctx context.Context,
	cfg *config.Config,
	obs observability.Observability,
	httpRouter chi.Router,
) (*Module, error) {
	logger := obs.Logger.With("module", "feed")
	logger.InfoContext(ctx, "Initializing feed module", attr.String("driver", cfg.Feed.Driver))

	m := &Module{
		hub:    feedpublishers.NewHub(logger, cfg.Feed.BufferSize),
		logger: logger,
	}

	sinks := feeddomain.MultiNotifier{m.hub}
	if cfg.NATS.URL != "" {
		nc, err := feedpublishers.Connect(cfg.NATS.URL)
		if err != nil {
			m.hub.Close()
			return nil, err
		}
		m.nc = nc
		sinks = append(sinks, feedpublishers.NewNATSPublisher(nc))
	}

	switch cfg.Feed.Driver {
	case config.FeedDriverOutbox:
		outbox, err := feedqueue.NewService(ctx, cfg.Postgres.DSN, sinks, logger, obs.Metrics)
		if err != nil {
			m.closeTransports()
			return nil, fmt.Errorf("failed to create feed outbox: %w", err)
		}
		m.outbox = outbox
		m.Notifier = outbox
	default:
		m.Notifier = sinks
	}

	if httpRouter != nil {
		handlers := feedhandlers.NewFeedHandlers(m.hub, cfg.HTTP.AllowedOrigins, logger, obs.Tracer)
		httpRouter.Get("/api/runs/{runID}/feed", handlers.HandleRunFeed)
		httpRouter.Get("/api/leaderboard/feed", handlers.HandleLeaderboardFeed)
	}

	return m, nil
}

// Run starts outbox delivery, if configured, and blocks until ctx ends.
func (m *Module) Run(ctx context.Context, wg *sync.WaitGroup) {
	m.logger.InfoContext(ctx, "Starting feed module")

	ctx, cancel := context.WithCancel(ctx)
	m.cancelFunc = cancel
	defer cancel()

	if wg != nil {
		defer wg.Done()
	}

	if m.outbox != nil {
		if err := m.outbox.Start(ctx); err != nil {
			m.logger.ErrorContext(ctx, "Failed to start feed outbox", attr.Error(err))
			return
		}
	}

	<-ctx.Done()
	m.logger.InfoContext(ctx, "Feed module goroutine stopped")
}

// Close stops delivery and closes the hub and NATS connection.
func (m *Module) Close() error {
	if m.cancelFunc != nil {
		m.cancelFunc()
	}

	var err error
	if m.outbox != nil {
		stopCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		err = m.outbox.Stop(stopCtx)
		cancel()
	}
	m.closeTransports()

	m.logger.Info("Feed module stopped")
	return err
}

func (m *Module) closeTransports() {
	if m.nc != nil {
		m.nc.Close()
	}
	if err := m.hub.Close(); err != nil {
		m.logger.Warn("Failed to close feed hub", attr.Error(err))
	}
}
