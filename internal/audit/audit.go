package audit

import (
	"context"
	"time"
)

// Event is one audit trail entry. OldValue/NewValue are marshaled to JSON by
// the sink implementation.
type Event struct {
	Entity    string
	EntityID  string
	Actor     string
	Action    string
	OldValue  any
	NewValue  any
	Details   string
	Timestamp time.Time
}

// Sink accepts audit events. Persistence is a collaborator concern; the
// services only depend on this interface.
type Sink interface {
	Record(ctx context.Context, ev Event) error
}
