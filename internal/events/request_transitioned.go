package events

import "time"

const RequestLifecycleTopic = "leave.request.lifecycle.v1"

// RequestTransitioned is emitted after a lifecycle transition commits, via
// the transactional outbox.
type RequestTransitioned struct {
	EventType  string    `json:"event_type"`
	RequestID  int64     `json:"request_id"`
	Action     string    `json:"action"`
	FromStatus string    `json:"from_status"`
	ToStatus   string    `json:"to_status"`
	ActorID    string    `json:"actor_id"`
	ActorEmail string    `json:"actor_email"`
	OccurredAt time.Time `json:"occurred_at"`
}
