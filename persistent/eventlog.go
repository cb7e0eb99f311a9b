package persistent

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/robolink/robolink"
	"github.com/tidwall/buntdb"
)

type EventLog struct {
	Id        string                 `json:"id"`
	CreatedAt time.Time              `json:"createdAt"`
	Holder    string                 `json:"holder"`
	Name      string                 `json:"name"`
	Data      map[string]interface{} `json:"data,omitempty"`
}

func (e EventLog) ToDomain() robolink.EventLog {
	return robolink.EventLog{
		Id:        e.Id,
		CreatedAt: e.CreatedAt,
		Holder:    robolink.HolderKey(e.Holder),
		Name:      e.Name,
		Data:      e.Data,
	}
}

// EventStore on buntdb. Keys are "event:<holder>:<nanos>" so an
// ascending key walk returns a holder's events oldest first.
type EventStore struct {
	Buntdb *buntdb.DB
}

var _ robolink.EventStore = (*EventStore)(nil)

func (s *EventStore) Add(ctx context.Context, holder robolink.HolderKey, event robolink.Event) error {
	log := EventLog{
		Id:        uuid.New().String(),
		CreatedAt: time.Now().UTC(),
		Holder:    string(holder),
		Name:      event.Name,
		Data:      event.Data,
	}
	serialized, err := json.Marshal(&log)
	if err != nil {
		return fmt.Errorf("event serialize: %s", err)
	}

	key := fmt.Sprintf("event:%s:%020d", holder, log.CreatedAt.UnixNano())
	err = s.Buntdb.Update(func(tx *buntdb.Tx) error {
		_, _, err := tx.Set(key, string(serialized), nil)
		return err
	})
	if err != nil {
		return fmt.Errorf("bunt update: %s", err)
	}
	return nil
}

func (s *EventStore) ByHolder(ctx context.Context, holder robolink.HolderKey) ([]robolink.EventLog, error) {
	logs := make([]robolink.EventLog, 0, 10)
	var iterErr error
	err := s.Buntdb.View(func(tx *buntdb.Tx) error {
		return tx.AscendKeys("event:"+string(holder)+":*", func(key, value string) bool {
			var log EventLog
			if err := json.Unmarshal([]byte(value), &log); err != nil {
				iterErr = fmt.Errorf("deserialize event: %s", err)
				return false
			}
			logs = append(logs, log.ToDomain())
			return true
		})
	})
	if err != nil {
		return nil, fmt.Errorf("buntdb view: %s", err)
	}
	if iterErr != nil {
		return nil, iterErr
	}
	return logs, nil
}
