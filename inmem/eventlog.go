package inmem

import (
	"context"
	"strconv"
	"sync"
	"time"

	"github.com/robolink/robolink"
)

type EventStore struct {
	lastId int64
	events map[robolink.HolderKey][]robolink.EventLog
	mutex  sync.RWMutex
}

var _ robolink.EventStore = (*EventStore)(nil)

func NewEventStore() EventStore {
	return EventStore{
		events: make(map[robolink.HolderKey][]robolink.EventLog),
		mutex:  sync.RWMutex{},
	}
}

func (s *EventStore) Add(ctx context.Context, holder robolink.HolderKey, event robolink.Event) error {
	s.mutex.Lock()
	defer s.mutex.Unlock()

	logs, ok := s.events[holder]
	if !ok {
		logs = make([]robolink.EventLog, 0, 10)
	}
	s.lastId++
	logs = append(logs, robolink.EventLog{
		Id:        strconv.FormatInt(s.lastId, 10),
		CreatedAt: time.Now(),
		Holder:    holder,
		Name:      event.Name,
		Data:      event.Data,
	})
	s.events[holder] = logs
	return nil
}

func (s *EventStore) ByHolder(ctx context.Context, holder robolink.HolderKey) ([]robolink.EventLog, error) {
	s.mutex.RLock()
	logs, ok := s.events[holder]
	s.mutex.RUnlock()
	if ok {
		return logs, nil
	} else {
		return []robolink.EventLog{}, nil
	}
}
