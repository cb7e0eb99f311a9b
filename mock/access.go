package mock

import (
	"context"
	"time"

	"github.com/robolink/robolink"
)

type SessionStore struct {
	TryAcquireFn   func(ctx context.Context, holder robolink.HolderKey, robot robolink.RobotIdentity, ttl time.Duration, paymentRef string) (robolink.Session, error)
	ByHolderFn     func(ctx context.Context, holder robolink.HolderKey) (robolink.Session, error)
	RobotHolderFn  func(ctx context.Context, robot robolink.RobotIdentity) (robolink.HolderKey, error)
	ReleaseFn      func(ctx context.Context, holder robolink.HolderKey) (bool, error)
	SweepExpiredFn func(ctx context.Context) (int, error)
}

func (s SessionStore) TryAcquire(ctx context.Context, holder robolink.HolderKey,
	robot robolink.RobotIdentity, ttl time.Duration, paymentRef string) (robolink.Session, error) {
	return s.TryAcquireFn(ctx, holder, robot, ttl, paymentRef)
}

func (s SessionStore) ByHolder(ctx context.Context, holder robolink.HolderKey) (robolink.Session, error) {
	return s.ByHolderFn(ctx, holder)
}

func (s SessionStore) RobotHolder(ctx context.Context, robot robolink.RobotIdentity) (robolink.HolderKey, error) {
	return s.RobotHolderFn(ctx, robot)
}

func (s SessionStore) Release(ctx context.Context, holder robolink.HolderKey) (bool, error) {
	return s.ReleaseFn(ctx, holder)
}

func (s SessionStore) SweepExpired(ctx context.Context) (int, error) {
	return s.SweepExpiredFn(ctx)
}
