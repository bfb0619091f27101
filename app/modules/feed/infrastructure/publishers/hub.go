// Package feedpublishers delivers ledger change events to live listeners.
package feedpublishers

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"

	feeddomain "github.com/Black-And-White-Club/keyquest/app/modules/feed/domain"
	"github.com/Black-And-White-Club/keyquest/app/shared/attr"
	"github.com/ThreeDotsLabs/watermill"
	"github.com/ThreeDotsLabs/watermill/message"
	"github.com/ThreeDotsLabs/watermill/pubsub/gochannel"
)

// DefaultBufferSize is the per-subscriber channel buffer.
const DefaultBufferSize = 64

// Hub fans events out in-process. Every event is published on the run topic and on
// the leaderboard topic.
type Hub struct {
	pubsub *gochannel.GoChannel
	logger *slog.Logger
}

// NewHub creates an in-memory hub backed by a watermill go channel.
func NewHub(logger *slog.Logger, bufferSize int) *Hub {
	if bufferSize <= 0 {
		bufferSize = DefaultBufferSize
	}
	return &Hub{
		pubsub: gochannel.NewGoChannel(gochannel.Config{
			OutputChannelBuffer: int64(bufferSize),
		}, watermill.NewSlogLogger(logger)),
		logger: logger,
	}
}

// Notify publishes event to its run topic and the leaderboard topic.
func (h *Hub) Notify(ctx context.Context, event feeddomain.Event) error {
	payload, err := json.Marshal(event)
	if err != nil {
		return fmt.Errorf("failed to marshal feed event: %w", err)
	}

	for _, topic := range []string{feeddomain.RunTopic(event.RunID), feeddomain.LeaderboardTopic} {
		msg := message.NewMessage(watermill.NewUUID(), payload)
		msg.SetContext(ctx)
		if err := h.pubsub.Publish(topic, msg); err != nil {
			return fmt.Errorf("failed to publish to %s: %w", topic, err)
		}
	}
	return nil
}

// Subscribe streams decoded events for topic until ctx is cancelled.
func (h *Hub) Subscribe(ctx context.Context, topic string) (<-chan feeddomain.Event, error) {
	messages, err := h.pubsub.Subscribe(ctx, topic)
	if err != nil {
		return nil, fmt.Errorf("failed to subscribe to %s: %w", topic, err)
	}

	out := make(chan feeddomain.Event)
	go func() {
		defer close(out)
		for msg := range messages {
			var event feeddomain.Event
			if err := json.Unmarshal(msg.Payload, &event); err != nil {
				h.logger.WarnContext(ctx, "Dropping undecodable feed message",
					attr.String("topic", topic),
					attr.Error(err),
				)
				msg.Ack()
				continue
			}
			msg.Ack()

			select {
			case out <- event:
			case <-ctx.Done():
				return
			}
		}
	}()
	return out, nil
}

// Close shuts the hub down and closes every subscription.
func (h *Hub) Close() error {
	return h.pubsub.Close()
}

var _ feeddomain.Notifier = (*Hub)(nil)
