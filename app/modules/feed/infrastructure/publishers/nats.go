package feedpublishers

import (
	"context"
	"encoding/json"
	"fmt"

	feeddomain "github.com/Black-And-White-Club/keyquest/app/modules/feed/domain"
	"github.com/nats-io/nats.go"
)

// Conn is the part of *nats.Conn the publisher needs.
type Conn interface {
	Publish(subject string, data []byte) error
}

// NATSPublisher forwards events to NATS subjects named after the hub topics.
type NATSPublisher struct {
	conn Conn
}

// NewNATSPublisher wraps an established connection.
func NewNATSPublisher(conn Conn) *NATSPublisher {
	return &NATSPublisher{conn: conn}
}

// Connect dials url with the reconnect settings the service uses.
func Connect(url string) (*nats.Conn, error) {
	nc, err := nats.Connect(url,
		nats.Name("keyquest-feed"),
		nats.MaxReconnects(-1),
		nats.RetryOnFailedConnect(true),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to NATS: %w", err)
	}
	return nc, nil
}

// Notify publishes event on the run subject and the leaderboard subject.
func (p *NATSPublisher) Notify(_ context.Context, event feeddomain.Event) error {
	data, err := json.Marshal(event)
	if err != nil {
		return fmt.Errorf("failed to marshal feed event: %w", err)
	}
	if err := p.conn.Publish(feeddomain.RunTopic(event.RunID), data); err != nil {
		return fmt.Errorf("failed to publish run event: %w", err)
	}
	if err := p.conn.Publish(feeddomain.LeaderboardTopic, data); err != nil {
		return fmt.Errorf("failed to publish leaderboard event: %w", err)
	}
	return nil
}

var _ feeddomain.Notifier = (*NATSPublisher)(nil)
