package feedqueue

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	feeddomain "github.com/Black-And-White-Club/keyquest/app/modules/feed/domain"
	"github.com/Black-And-White-Club/keyquest/app/shared/attr"
	"github.com/riverqueue/river"
)

// deliveryTimeout bounds a single delivery attempt.
const deliveryTimeout = 10 * time.Second

// DeliveryWorker hands queued events to the live sinks. A failed delivery is
// retried by River with its default backoff.
type DeliveryWorker struct {
	river.WorkerDefaults[DeliveryJob]
	sink   feeddomain.Notifier
	logger *slog.Logger
}

// NewDeliveryWorker creates a worker that delivers to sink.
func NewDeliveryWorker(logger *slog.Logger, sink feeddomain.Notifier) *DeliveryWorker {
	return &DeliveryWorker{sink: sink, logger: logger}
}

func (w *DeliveryWorker) Timeout(*river.Job[DeliveryJob]) time.Duration {
	return deliveryTimeout
}

func (w *DeliveryWorker) Work(ctx context.Context, job *river.Job[DeliveryJob]) error {
	event := job.Args.Event
	if err := w.sink.Notify(ctx, event); err != nil {
		w.logger.WarnContext(ctx, "Feed delivery failed",
			attr.RunID("run_id", event.RunID),
			attr.String("kind", string(event.Kind)),
			attr.Int("attempt", job.Attempt),
			attr.Error(err),
		)
		return fmt.Errorf("failed to deliver feed event: %w", err)
	}
	return nil
}
