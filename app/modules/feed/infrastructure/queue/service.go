// Package feedqueue is a River-backed outbox for feed events. Writes enqueue a
// delivery job and return; workers push the event to the hub and NATS, retrying on
// failure. Store writes are never retried here.
package feedqueue

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	feeddomain "github.com/Black-And-White-Club/keyquest/app/modules/feed/domain"
	"github.com/Black-And-White-Club/keyquest/app/shared/attr"
	"github.com/Black-And-White-Club/keyquest/app/shared/metrics"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/riverqueue/river"
	"github.com/riverqueue/river/riverdriver/riverpgxv5"
	"github.com/riverqueue/river/rivermigrate"
)

const (
	serviceName = "river"
	// maxDeliveryAttempts caps retries; a feed event older than this is useless.
	maxDeliveryAttempts = 5
)

// Service enqueues feed events and runs the delivery workers.
type Service struct {
	client  *river.Client[pgx.Tx]
	pool    *pgxpool.Pool
	logger  *slog.Logger
	metrics metrics.OperationMetrics
}

// NewService opens a pgx pool on dsn and builds a River client whose workers
// deliver to sink.
func NewService(ctx context.Context, dsn string, sink feeddomain.Notifier, logger *slog.Logger, m metrics.OperationMetrics) (*Service, error) {
	ctxLogger := logger.With(
		attr.String("component", "feed_outbox"),
	)

	start := time.Now()
	m.RecordOperationAttempt(ctx, "initialize_service", serviceName)

	pool, err := openPool(ctx, dsn)
	if err != nil {
		ctxLogger.Error("Failed to open pgx pool for River", attr.Error(err))
		m.RecordOperationFailure(ctx, "initialize_service", serviceName)
		return nil, err
	}

	workers := river.NewWorkers()
	river.AddWorker(workers, NewDeliveryWorker(ctxLogger, sink))

	client, err := river.NewClient(riverpgxv5.New(pool), &river.Config{
		Queues: map[string]river.QueueConfig{
			river.QueueDefault: {MaxWorkers: 10},
			QueueName:          {MaxWorkers: 25},
		},
		Workers: workers,
		Logger:  ctxLogger,
	})
	if err != nil {
		pool.Close()
		ctxLogger.Error("Failed to create River client", attr.Error(err))
		m.RecordOperationFailure(ctx, "initialize_service", serviceName)
		return nil, fmt.Errorf("failed to create River client: %w", err)
	}

	m.RecordOperationSuccess(ctx, "initialize_service", serviceName)
	m.RecordOperationDuration(ctx, "initialize_service", serviceName, time.Since(start))
	ctxLogger.Info("Feed outbox initialized")

	return &Service{
		client:  client,
		pool:    pool,
		logger:  ctxLogger,
		metrics: m,
	}, nil
}

func openPool(ctx context.Context, dsn string) (*pgxpool.Pool, error) {
	config, err := pgxpool.ParseConfig(dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to parse DSN: %w", err)
	}
	pool, err := pgxpool.NewWithConfig(ctx, config)
	if err != nil {
		return nil, fmt.Errorf("failed to create pgx pool: %w", err)
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}
	return pool, nil
}

// Start starts the delivery workers.
func (s *Service) Start(ctx context.Context) error {
	s.metrics.RecordOperationAttempt(ctx, "start_service", serviceName)
	if err := s.client.Start(ctx); err != nil {
		s.logger.Error("Failed to start River client", attr.Error(err))
		s.metrics.RecordOperationFailure(ctx, "start_service", serviceName)
		return fmt.Errorf("failed to start River client: %w", err)
	}
	s.metrics.RecordOperationSuccess(ctx, "start_service", serviceName)
	s.logger.Info("Feed outbox started")
	return nil
}

// Stop waits for running deliveries and closes the pool.
func (s *Service) Stop(ctx context.Context) error {
	s.metrics.RecordOperationAttempt(ctx, "stop_service", serviceName)
	defer s.pool.Close()

	if err := s.client.Stop(ctx); err != nil {
		s.logger.Error("Failed to stop River client", attr.Error(err))
		s.metrics.RecordOperationFailure(ctx, "stop_service", serviceName)
		return fmt.Errorf("failed to stop River client: %w", err)
	}
	s.metrics.RecordOperationSuccess(ctx, "stop_service", serviceName)
	s.logger.Info("Feed outbox stopped")
	return nil
}

// Notify enqueues event for delivery.
func (s *Service) Notify(ctx context.Context, event feeddomain.Event) error {
	start := time.Now()
	s.metrics.RecordOperationAttempt(ctx, "enqueue_delivery", serviceName)

	_, err := s.client.Insert(ctx, DeliveryJob{Event: event}, InsertOpts())
	if err != nil {
		s.metrics.RecordOperationFailure(ctx, "enqueue_delivery", serviceName)
		return fmt.Errorf("failed to enqueue feed delivery: %w", err)
	}

	s.metrics.RecordOperationSuccess(ctx, "enqueue_delivery", serviceName)
	s.metrics.RecordOperationDuration(ctx, "enqueue_delivery", serviceName, time.Since(start))
	return nil
}

// InsertOpts are the options every delivery job is inserted with.
func InsertOpts() *river.InsertOpts {
	return &river.InsertOpts{
		Queue:       QueueName,
		MaxAttempts: maxDeliveryAttempts,
	}
}

// HealthCheck pings the River pool.
func (s *Service) HealthCheck(ctx context.Context) error {
	if err := s.pool.Ping(ctx); err != nil {
		return fmt.Errorf("feed outbox health check failed: %w", err)
	}
	return nil
}

// Migrate brings River's own tables up to date on dsn.
func Migrate(ctx context.Context, dsn string) (int, error) {
	pool, err := openPool(ctx, dsn)
	if err != nil {
		return 0, err
	}
	defer pool.Close()

	migrator, err := rivermigrate.New(riverpgxv5.New(pool), nil)
	if err != nil {
		return 0, fmt.Errorf("failed to create River migrator: %w", err)
	}
	res, err := migrator.Migrate(ctx, rivermigrate.DirectionUp, nil)
	if err != nil {
		return 0, fmt.Errorf("failed to migrate River tables: %w", err)
	}
	return len(res.Versions), nil
}

var _ feeddomain.Notifier = (*Service)(nil)
