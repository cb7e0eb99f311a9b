package robolink

import (
	"context"
	"time"
)

type Event struct {
	Name string
	Data map[string]interface{}
}

type EventLog struct {
	Id        string
	CreatedAt time.Time
	Holder    HolderKey
	Name      string
	Data      map[string]interface{}
}

// EventStore keeps the audit trail of access events (purchase, release,
// payout) per holder.
type EventStore interface {
	Add(ctx context.Context, holder HolderKey, event Event) error

	// ByHolder returns the holder's events, oldest first.
	ByHolder(ctx context.Context, holder HolderKey) ([]EventLog, error)
}
