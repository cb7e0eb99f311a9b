package mock

import (
	"context"

	"github.com/robolink/robolink"
)

type RobotStore struct {
	RegisterFn func(ctx context.Context, robot robolink.Robot) (robolink.Robot, error)
	ByNameFn   func(ctx context.Context, name robolink.RobotIdentity) (robolink.Robot, error)
	AllFn      func(ctx context.Context) ([]robolink.Robot, error)
}

func (s RobotStore) Register(ctx context.Context, robot robolink.Robot) (robolink.Robot, error) {
	return s.RegisterFn(ctx, robot)
}

func (s RobotStore) ByName(ctx context.Context, name robolink.RobotIdentity) (robolink.Robot, error) {
	return s.ByNameFn(ctx, name)
}

func (s RobotStore) All(ctx context.Context) ([]robolink.Robot, error) {
	return s.AllFn(ctx)
}
