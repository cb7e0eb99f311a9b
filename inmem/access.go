package inmem

import (
	"context"
	"sync"
	"time"

	"github.com/robolink/robolink"
)

// SessionStore keeps sessions and the robot lock index in two maps
// guarded by one mutex. A single lock is deliberate: at dozens of robots
// the critical sections are a few map operations long, and one lock
// makes the check-and-acquire step trivially atomic.
//
// Reads take the write lock too - lookups drop entries they find
// expired, keeping the lock index consistent with the session table.
type SessionStore struct {
	clock    robolink.Clock
	mutex    sync.Mutex
	sessions map[robolink.HolderKey]robolink.Session
	locks    map[robolink.RobotIdentity]robolink.HolderKey
}

var _ robolink.SessionStore = (*SessionStore)(nil)

func NewSessionStore(clock robolink.Clock) *SessionStore {
	if clock == nil {
		clock = time.Now
	}
	return &SessionStore{
		clock:    clock,
		sessions: map[robolink.HolderKey]robolink.Session{},
		locks:    map[robolink.RobotIdentity]robolink.HolderKey{},
	}
}

func (s *SessionStore) TryAcquire(ctx context.Context, holder robolink.HolderKey,
	robot robolink.RobotIdentity, ttl time.Duration, paymentRef string) (robolink.Session, error) {
	if ttl <= 0 {
		panic("inmem: non-positive session ttl")
	}

	s.mutex.Lock()
	defer s.mutex.Unlock()

	now := s.clock()
	if other, ok := s.locks[robot]; ok && other != holder {
		otherSession, live := s.sessions[other]
		if live && otherSession.Live(now) {
			return robolink.Session{}, robolink.ErrRobotBusy
		}
		// expired or orphaned lock - does not block acquisition
		s.dropLocked(other)
	}

	// one robot per holder: replacing the session frees the old lock
	if previous, ok := s.sessions[holder]; ok {
		s.dropLocked(previous.Holder)
	}

	session := robolink.Session{
		Holder:     holder,
		Robot:      robot,
		CreatedAt:  now,
		ExpiresAt:  now.Add(ttl),
		PaymentRef: paymentRef,
	}
	s.sessions[holder] = session
	s.locks[robot] = holder
	return session, nil
}

func (s *SessionStore) ByHolder(ctx context.Context, holder robolink.HolderKey) (robolink.Session, error) {
	s.mutex.Lock()
	defer s.mutex.Unlock()

	session, ok := s.sessions[holder]
	if !ok {
		return robolink.Session{}, robolink.ErrSessionNotFound
	}
	if !session.Live(s.clock()) {
		s.dropLocked(holder)
		return robolink.Session{}, robolink.ErrSessionNotFound
	}
	return session, nil
}

func (s *SessionStore) RobotHolder(ctx context.Context, robot robolink.RobotIdentity) (robolink.HolderKey, error) {
	s.mutex.Lock()
	defer s.mutex.Unlock()

	holder, ok := s.locks[robot]
	if !ok {
		return "", robolink.ErrSessionNotFound
	}
	session, ok := s.sessions[holder]
	if !ok || !session.Live(s.clock()) {
		s.dropLocked(holder)
		delete(s.locks, robot)
		return "", robolink.ErrSessionNotFound
	}
	return holder, nil
}

func (s *SessionStore) Release(ctx context.Context, holder robolink.HolderKey) (bool, error) {
	s.mutex.Lock()
	defer s.mutex.Unlock()

	_, ok := s.sessions[holder]
	if !ok {
		return false, nil
	}
	s.dropLocked(holder)
	return true, nil
}

func (s *SessionStore) SweepExpired(ctx context.Context) (int, error) {
	s.mutex.Lock()
	defer s.mutex.Unlock()

	now := s.clock()
	count := 0
	for holder, session := range s.sessions {
		if !session.Live(now) {
			s.dropLocked(holder)
			count++
		}
	}
	return count, nil
}

// dropLocked removes the holder's session together with its lock entry.
// Caller must hold the mutex.
func (s *SessionStore) dropLocked(holder robolink.HolderKey) {
	session, ok := s.sessions[holder]
	if !ok {
		return
	}
	delete(s.sessions, holder)
	if s.locks[session.Robot] == holder {
		delete(s.locks, session.Robot)
	}
}
