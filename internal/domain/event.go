package domain

import "time"

const (
	EventOrderPlaced   = "OrderPlaced"
	EventOrderFinished = "OrderFinished"
)

// OrderEvent is the JSON payload written to the outbox and published to Kafka.
type OrderEvent struct {
	EventID    string      `json:"event_id"`
	EventType  string      `json:"event_type"`
	Table      string      `json:"table"`
	Count      int64       `json:"count"`
	Finished   bool        `json:"finished"`
	Items      []EventItem `json:"items"`
	Total      string      `json:"total"`
	OccurredAt time.Time   `json:"occurred_at"`
}

type EventItem struct {
	OfferID string `json:"id"`
	Count   int    `json:"count"`
}

// OutboxEvent is a stored event waiting to be published.
type OutboxEvent struct {
	ID          int64
	AggregateID string
	EventType   string
	Payload     []byte
	CreatedAt   time.Time
}
