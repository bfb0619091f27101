package feedqueue

import (
	feeddomain "github.com/Black-And-White-Club/keyquest/app/modules/feed/domain"
)

// QueueName is the dedicated River queue for feed delivery.
const QueueName = "feed"

// DeliveryJob carries one ledger change event to the live sinks.
type DeliveryJob struct {
	Event feeddomain.Event `json:"event"`
}

// Kind returns the job type identifier for River
func (DeliveryJob) Kind() string { return "feed_delivery" }
