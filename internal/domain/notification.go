package domain

import "time"

// Contact is the resolved delivery address of a subscriber.
type Contact struct {
	SubscriberID int64
	Name         string
	Address      string
}

// Envelope is one rendered notification for one subscriber.
type Envelope struct {
	MessageID    string
	SubscriberID int64
	Contact      Contact
	Items        []CatalogItem
	Subject      string
	HTMLBody     string
	TextBody     string
}

// DeliveryStatus enumerates per-subscriber dispatch outcomes.
type DeliveryStatus string

const (
	DeliverySent    DeliveryStatus = "sent"
	DeliveryFailed  DeliveryStatus = "failed"
	DeliverySkipped DeliveryStatus = "skipped"
)

// DispatchOutcome captures the result of notifying a single subscriber.
type DispatchOutcome struct {
	SubscriberID int64
	Items        int
	Status       DeliveryStatus
	Err          error
}

// RunStatus tells a failed run apart from a successful one with zero matches.
type RunStatus string

const (
	RunSucceeded RunStatus = "succeeded"
	RunFailed    RunStatus = "failed"
	RunSkipped   RunStatus = "skipped"
)

// RunReport summarizes one end-to-end pipeline execution.
type RunReport struct {
	RunID               string
	Date                time.Time
	Status              RunStatus
	ItemBatches         int
	ItemsScanned        int
	SubscriptionBatches int
	MalformedSeen       int
	MatchedPairs        int
	Subscribers         int
	Sent                int
	Failed              int
	Skipped             int
	StartedAt           time.Time
	FinishedAt          time.Time
	Err                 error
}

// Duration returns the wall-clock length of the run.
func (r RunReport) Duration() time.Duration {
	if r.FinishedAt.IsZero() {
		return 0
	}
	return r.FinishedAt.Sub(r.StartedAt)
}
