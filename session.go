package robolink

import (
	"context"
	"errors"
	"strings"
	"time"
)

var (
	ErrSessionNotFound = errors.New("session not found")
	ErrRobotBusy       = errors.New("robot busy")
)

// Clock supplies current time. Injected so expiry can be driven
// deterministically in tests.
type Clock = func() time.Time

// HolderKey identifies the principal controlling a robot - the wallet
// address of the paying user. Always stored normalized, see NewHolderKey.
type HolderKey string

func NewHolderKey(raw string) HolderKey {
	return HolderKey(strings.ToLower(strings.TrimSpace(raw)))
}

// RobotIdentity is the canonical name used to reach a robot (host, mDNS
// name or IP). Normalized the same way as HolderKey so that differently
// cased identifiers never produce two lock entries.
type RobotIdentity string

func NewRobotIdentity(raw string) RobotIdentity {
	return RobotIdentity(strings.ToLower(strings.TrimSpace(raw)))
}

// Session is one purchased access grant binding a holder exclusively
// to a robot until ExpiresAt.
type Session struct {
	Holder     HolderKey
	Robot      RobotIdentity
	CreatedAt  time.Time
	ExpiresAt  time.Time
	PaymentRef string
}

// Live reports whether the session grants access at the given instant.
// A session exactly at its expiry timestamp is already dead.
func (s Session) Live(now time.Time) bool {
	return now.Before(s.ExpiresAt)
}

// Remaining time until expiry, never negative.
func (s Session) Remaining(now time.Time) time.Duration {
	remaining := s.ExpiresAt.Sub(now)
	if remaining < 0 {
		return 0
	}
	return remaining
}

// SessionStore owns the holder->session table and the robot->holder lock
// index. Both structures are mutated only together, by store methods, so
// the lock index stays a bijection over live sessions.
//
// Liveness is evaluated lazily on every read. Expired entries behave as
// absent even before SweepExpired collects them.
type SessionStore interface {
	// TryAcquire atomically binds holder to robot for ttl. Returns
	// ErrRobotBusy when another holder has a live session on the robot.
	// A prior session of the same holder (same or different robot) is
	// replaced and its lock freed. Two racing calls for the same robot
	// must produce exactly one winner.
	TryAcquire(ctx context.Context, holder HolderKey, robot RobotIdentity,
		ttl time.Duration, paymentRef string) (Session, error)

	// ByHolder returns the holder's session if it is still live,
	// ErrSessionNotFound otherwise.
	ByHolder(ctx context.Context, holder HolderKey) (Session, error)

	// RobotHolder returns the holder of the live session locking robot,
	// ErrSessionNotFound when the robot is free.
	RobotHolder(ctx context.Context, robot RobotIdentity) (HolderKey, error)

	// Release drops the holder's session and frees its robot lock.
	// Idempotent. Reports whether anything was actually released.
	Release(ctx context.Context, holder HolderKey) (bool, error)

	// SweepExpired removes entries whose expiry has passed and returns
	// how many were dropped. Purely a memory bound - reads are lazy, so
	// correctness never depends on the sweep running.
	SweepExpired(ctx context.Context) (int, error)
}
