// Package feeddomain defines the change events pushed to live listeners.
package feeddomain

import (
	"context"
	"time"

	sharedtypes "github.com/Black-And-White-Club/keyquest/app/shared/types"
	"github.com/google/uuid"
)

// EventKind names what changed.
type EventKind string

const (
	EventResultSaved        EventKind = "result_saved"
	EventMasterKeyValidated EventKind = "master_key_validated"
)

// Event tells listeners that a run's ledger changed. Listeners re-read the ledger;
// the event carries only enough to decide whether to.
type Event struct {
	RunID      uuid.UUID              `json:"run_id"`
	StationKey sharedtypes.StationKey `json:"station_key"`
	Kind       EventKind              `json:"kind"`
	Score      int                    `json:"score"`
	At         time.Time              `json:"at"`
}

// Notifier delivers events. Implementations must be safe for concurrent use.
type Notifier interface {
	Notify(ctx context.Context, event Event) error
}

// TopicPrefix scopes every run topic and NATS subject.
const TopicPrefix = "keyquest.runs."

// LeaderboardTopic receives every event regardless of run.
const LeaderboardTopic = "keyquest.leaderboard"

// RunTopic is the per-run topic name.
func RunTopic(runID uuid.UUID) string {
	return TopicPrefix + runID.String()
}

// NopNotifier drops every event.
type NopNotifier struct{}

func (NopNotifier) Notify(context.Context, Event) error { return nil }

// MultiNotifier fans an event out to several notifiers and returns the first error
// after attempting all of them.
type MultiNotifier []Notifier

func (m MultiNotifier) Notify(ctx context.Context, event Event) error {
	var first error
	for _, n := range m {
		if err := n.Notify(ctx, event); err != nil && first == nil {
			first = err
		}
	}
	return first
}
