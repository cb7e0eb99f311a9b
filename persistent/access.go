package persistent

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/robolink/robolink"
	"github.com/tidwall/buntdb"
)

type Session struct {
	Holder     string    `json:"holder"`
	Robot      string    `json:"robot"`
	CreatedAt  time.Time `json:"createdAt"`
	ExpiresAt  time.Time `json:"expiresAt"`
	PaymentRef string    `json:"paymentRef,omitempty"`
}

func (s Session) ToDomain() robolink.Session {
	return robolink.Session{
		Holder:     robolink.HolderKey(s.Holder),
		Robot:      robolink.RobotIdentity(s.Robot),
		CreatedAt:  s.CreatedAt,
		ExpiresAt:  s.ExpiresAt,
		PaymentRef: s.PaymentRef,
	}
}

// SessionStore on buntdb. Sessions live under "session:<holder>", the
// robot lock index under "robotlock:<robot>"; both keys carry the session
// TTL so buntdb collects stale entries on its own. Every update callback
// runs as one serialized transaction, which makes the availability check
// and the acquire a single atomic step.
//
// Liveness is still double-checked against the injected clock, buntdb's
// TTL collection is only a cleanup mechanism like the reaper.
type SessionStore struct {
	Buntdb *buntdb.DB
	Events robolink.EventStore
	Clock  robolink.Clock
}

var _ robolink.SessionStore = (*SessionStore)(nil)

func sessionKey(holder robolink.HolderKey) string {
	return "session:" + string(holder)
}

func lockKey(robot robolink.RobotIdentity) string {
	return "robotlock:" + string(robot)
}

func (s *SessionStore) TryAcquire(ctx context.Context, holder robolink.HolderKey,
	robot robolink.RobotIdentity, ttl time.Duration, paymentRef string) (robolink.Session, error) {
	if ttl <= 0 {
		panic("persistent: non-positive session ttl")
	}

	now := s.now()
	session := Session{
		Holder:     string(holder),
		Robot:      string(robot),
		CreatedAt:  now,
		ExpiresAt:  now.Add(ttl),
		PaymentRef: paymentRef,
	}
	serialized, err := json.Marshal(&session)
	if err != nil {
		return robolink.Session{}, fmt.Errorf("session serialize: %s", err)
	}

	err = s.Buntdb.Update(func(tx *buntdb.Tx) error {
		other, err := tx.Get(lockKey(robot))
		switch {
		case err == nil && other != string(holder):
			live, err := s.lockHolderLive(tx, robolink.HolderKey(other), now)
			if err != nil {
				return err
			}
			if live {
				return robolink.ErrRobotBusy
			}
			// expired lock, overwritten below
		case err != nil && !errors.Is(err, buntdb.ErrNotFound):
			return fmt.Errorf("get robot lock: %w", err)
		}

		// replacing the holder's previous session frees its old lock
		previousRaw, err := tx.Get(sessionKey(holder))
		if err == nil {
			var previous Session
			if err := json.Unmarshal([]byte(previousRaw), &previous); err != nil {
				return fmt.Errorf("deserialize previous session: %w", err)
			}
			if previous.Robot != string(robot) {
				previousLock := lockKey(robolink.RobotIdentity(previous.Robot))
				if lockedBy, err := tx.Get(previousLock); err == nil && lockedBy == string(holder) {
					if _, err := tx.Delete(previousLock); err != nil {
						return fmt.Errorf("delete previous robot lock: %w", err)
					}
				}
			}
		} else if !errors.Is(err, buntdb.ErrNotFound) {
			return fmt.Errorf("get previous session: %w", err)
		}

		options := &buntdb.SetOptions{Expires: true, TTL: ttl}
		if _, _, err := tx.Set(sessionKey(holder), string(serialized), options); err != nil {
			return fmt.Errorf("set session: %w", err)
		}
		if _, _, err := tx.Set(lockKey(robot), string(holder), options); err != nil {
			return fmt.Errorf("set robot lock: %w", err)
		}
		return nil
	})
	if err != nil {
		if errors.Is(err, robolink.ErrRobotBusy) {
			return robolink.Session{}, robolink.ErrRobotBusy
		}
		return robolink.Session{}, fmt.Errorf("bunt update: %s", err)
	}

	if s.Events != nil {
		err = s.Events.Add(ctx, holder, robolink.Event{Name: "session_created", Data: map[string]interface{}{
			"robot":      string(robot),
			"expiresAt":  session.ExpiresAt.Unix(),
			"paymentRef": paymentRef,
		}})
		if err != nil {
			return robolink.Session{}, fmt.Errorf("add session_created event: %s", err)
		}
	}
	return session.ToDomain(), nil
}

func (s *SessionStore) ByHolder(ctx context.Context, holder robolink.HolderKey) (robolink.Session, error) {
	var session Session
	err := s.Buntdb.View(func(tx *buntdb.Tx) error {
		serialized, err := tx.Get(sessionKey(holder))
		if err != nil {
			return fmt.Errorf("get serialized session: %w", err)
		}
		if err := json.Unmarshal([]byte(serialized), &session); err != nil {
			return fmt.Errorf("deserialize session: %s", err)
		}
		return nil
	})
	if err != nil {
		if errors.Is(err, buntdb.ErrNotFound) {
			return robolink.Session{}, robolink.ErrSessionNotFound
		}
		return robolink.Session{}, fmt.Errorf("buntdb view: %s", err)
	}
	if !session.ToDomain().Live(s.now()) {
		return robolink.Session{}, robolink.ErrSessionNotFound
	}
	return session.ToDomain(), nil
}

func (s *SessionStore) RobotHolder(ctx context.Context, robot robolink.RobotIdentity) (robolink.HolderKey, error) {
	var holder robolink.HolderKey
	var live bool
	err := s.Buntdb.View(func(tx *buntdb.Tx) error {
		raw, err := tx.Get(lockKey(robot))
		if err != nil {
			return fmt.Errorf("get robot lock: %w", err)
		}
		holder = robolink.HolderKey(raw)
		live, err = s.lockHolderLive(tx, holder, s.now())
		return err
	})
	if err != nil {
		if errors.Is(err, buntdb.ErrNotFound) {
			return "", robolink.ErrSessionNotFound
		}
		return "", fmt.Errorf("buntdb view: %s", err)
	}
	if !live {
		return "", robolink.ErrSessionNotFound
	}
	return holder, nil
}

func (s *SessionStore) Release(ctx context.Context, holder robolink.HolderKey) (bool, error) {
	released := false
	err := s.Buntdb.Update(func(tx *buntdb.Tx) error {
		serialized, err := tx.Delete(sessionKey(holder))
		if err != nil {
			if errors.Is(err, buntdb.ErrNotFound) {
				return nil
			}
			return fmt.Errorf("delete session: %w", err)
		}
		released = true

		var session Session
		if err := json.Unmarshal([]byte(serialized), &session); err != nil {
			return fmt.Errorf("deserialize deleted session: %w", err)
		}
		robotLock := lockKey(robolink.RobotIdentity(session.Robot))
		if lockedBy, err := tx.Get(robotLock); err == nil && lockedBy == string(holder) {
			if _, err := tx.Delete(robotLock); err != nil {
				return fmt.Errorf("delete robot lock: %w", err)
			}
		}
		return nil
	})
	if err != nil {
		return false, fmt.Errorf("bunt update: %s", err)
	}

	if released && s.Events != nil {
		if err := s.Events.Add(ctx, holder, robolink.Event{Name: "session_released"}); err != nil {
			return false, fmt.Errorf("add session_released event: %s", err)
		}
	}
	return released, nil
}

func (s *SessionStore) SweepExpired(ctx context.Context) (int, error) {
	now := s.now()
	count := 0
	err := s.Buntdb.Update(func(tx *buntdb.Tx) error {
		type expired struct {
			sessionKey string
			robot      string
			holder     string
		}
		var found []expired
		var iterErr error
		err := tx.AscendKeys("session:*", func(key, value string) bool {
			var session Session
			if err := json.Unmarshal([]byte(value), &session); err != nil {
				iterErr = fmt.Errorf("deserialize session: %s", err)
				return false
			}
			if !session.ToDomain().Live(now) {
				found = append(found, expired{sessionKey: key, robot: session.Robot, holder: session.Holder})
			}
			return true
		})
		if err != nil {
			return fmt.Errorf("ascend sessions: %w", err)
		}
		if iterErr != nil {
			return iterErr
		}

		for _, e := range found {
			if _, err := tx.Delete(e.sessionKey); err != nil && !errors.Is(err, buntdb.ErrNotFound) {
				return fmt.Errorf("delete expired session: %w", err)
			}
			robotLock := lockKey(robolink.RobotIdentity(e.robot))
			if lockedBy, err := tx.Get(robotLock); err == nil && lockedBy == e.holder {
				if _, err := tx.Delete(robotLock); err != nil {
					return fmt.Errorf("delete expired robot lock: %w", err)
				}
			}
			count++
		}
		return nil
	})
	if err != nil {
		return 0, fmt.Errorf("bunt update: %s", err)
	}
	return count, nil
}

// lockHolderLive reports whether the session backing a lock entry is
// still live. A lock without a session counts as dead.
func (s *SessionStore) lockHolderLive(tx *buntdb.Tx, holder robolink.HolderKey, now time.Time) (bool, error) {
	serialized, err := tx.Get(sessionKey(holder))
	if err != nil {
		if errors.Is(err, buntdb.ErrNotFound) {
			return false, nil
		}
		return false, fmt.Errorf("get lock holder session: %w", err)
	}
	var session Session
	if err := json.Unmarshal([]byte(serialized), &session); err != nil {
		return false, fmt.Errorf("deserialize lock holder session: %s", err)
	}
	return session.ToDomain().Live(now), nil
}

func (s *SessionStore) now() time.Time {
	if s.Clock != nil {
		return s.Clock()
	}
	return time.Now()
}
