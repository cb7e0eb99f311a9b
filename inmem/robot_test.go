package inmem

import (
	"context"
	"testing"

	"github.com/robolink/robolink"
	"github.com/stretchr/testify/assert"
)

func TestRobotStore(t *testing.T) {
	ctx := context.Background()
	assert := assert.New(t)

	s := NewRobotStore()
	_, err := s.ByName(ctx, "tumbller-01")
	assert.Equal(robolink.ErrRobotNotFound, err)

	robot, err := s.Register(ctx, robolink.Robot{
		Name:          "tumbller-01",
		Host:          "tumbller-01.local",
		OwnerAddress:  "0xowner",
		WalletAddress: "0xrobotwallet",
	})
	if !assert.NoError(err) {
		return
	}
	assert.False(robot.CreatedAt.IsZero())

	found, err := s.ByName(ctx, "tumbller-01")
	if !assert.NoError(err) {
		return
	}
	assert.Equal(robot, found)

	_, err = s.Register(ctx, robolink.Robot{Name: "tumbller-01", Host: "elsewhere.local"})
	assert.Equal(robolink.ErrRobotExists, err)
}

func TestRobotStoreAllSorted(t *testing.T) {
	ctx := context.Background()
	assert := assert.New(t)

	s := NewRobotStore()
	for _, name := range []string{"zeta", "alpha", "mid"} {
		_, err := s.Register(ctx, robolink.Robot{Name: robolink.RobotIdentity(name), Host: name + ".local"})
		if !assert.NoError(err) {
			return
		}
	}

	robots, err := s.All(ctx)
	if !assert.NoError(err) {
		return
	}
	names := make([]string, len(robots))
	for i, robot := range robots {
		names[i] = string(robot.Name)
	}
	assert.Equal([]string{"alpha", "mid", "zeta"}, names)
}
