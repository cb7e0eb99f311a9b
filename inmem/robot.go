package inmem

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/robolink/robolink"
)

type RobotStore struct {
	robots map[robolink.RobotIdentity]robolink.Robot
	mutex  sync.RWMutex
}

var _ robolink.RobotStore = (*RobotStore)(nil)

func NewRobotStore() RobotStore {
	return RobotStore{
		robots: map[robolink.RobotIdentity]robolink.Robot{},
		mutex:  sync.RWMutex{},
	}
}

func (s *RobotStore) Register(ctx context.Context, robot robolink.Robot) (robolink.Robot, error) {
	s.mutex.Lock()
	defer s.mutex.Unlock()

	if _, ok := s.robots[robot.Name]; ok {
		return robolink.Robot{}, robolink.ErrRobotExists
	}
	if robot.CreatedAt.IsZero() {
		robot.CreatedAt = time.Now()
	}
	s.robots[robot.Name] = robot
	return robot, nil
}

func (s *RobotStore) ByName(ctx context.Context, name robolink.RobotIdentity) (robolink.Robot, error) {
	s.mutex.RLock()
	defer s.mutex.RUnlock()

	robot, ok := s.robots[name]
	if !ok {
		return robolink.Robot{}, robolink.ErrRobotNotFound
	}
	return robot, nil
}

func (s *RobotStore) All(ctx context.Context) ([]robolink.Robot, error) {
	s.mutex.RLock()
	defer s.mutex.RUnlock()

	robots := make([]robolink.Robot, 0, len(s.robots))
	for _, robot := range s.robots {
		robots = append(robots, robot)
	}
	sort.Slice(robots, func(i, j int) bool { return robots[i].Name < robots[j].Name })
	return robots, nil
}
