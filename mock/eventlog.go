package mock

import (
	"context"

	"github.com/robolink/robolink"
)

type EventStore struct {
	AddFn      func(ctx context.Context, holder robolink.HolderKey, event robolink.Event) error
	ByHolderFn func(ctx context.Context, holder robolink.HolderKey) ([]robolink.EventLog, error)
}

func (s EventStore) Add(ctx context.Context, holder robolink.HolderKey, event robolink.Event) error {
	return s.AddFn(ctx, holder, event)
}

func (s EventStore) ByHolder(ctx context.Context, holder robolink.HolderKey) ([]robolink.EventLog, error) {
	return s.ByHolderFn(ctx, holder)
}
