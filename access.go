package robolink

import (
	"context"
	"errors"
	"fmt"
	"time"
)

var (
	ErrPaymentRejected = errors.New("payment rejected")
	ErrAccessDenied    = errors.New("access denied")
)

// PaymentGate verifies an opaque payment proof against the robot's fee
// wallet and returns the settlement reference. Implementations wrap
// rejections in ErrPaymentRejected.
type PaymentGate = func(proof string, payTo string) (string, error)

type PurchaseResult struct {
	Robot            RobotIdentity
	ExpiresAt        time.Time
	RemainingSeconds int64
	PaymentRef       string
}

type SessionStatus struct {
	Active           bool
	Robot            RobotIdentity
	RemainingSeconds int64
}

// AccessService implements the purchase protocol and the authorization
// gate every robot command passes through. Collaborator calls (registry
// lookup, health ping, payment verification) happen before the store's
// critical section so no lock is ever held across network I/O.
type AccessService struct {
	Sessions        SessionStore
	Robots          RobotStore
	Ping            RobotPinger
	VerifyPayment   PaymentGate
	SessionTTL      time.Duration
	PaymentsEnabled bool
	Now             Clock
}

// Purchase binds holder to the named robot for the configured TTL.
// Failure modes, in checking order: ErrRobotNotFound, ErrRobotOffline,
// ErrRobotBusy, ErrPaymentRejected. A failed purchase never leaves a
// partial lock behind. A repeated purchase by the robot's current holder
// replaces the session with a fresh TTL.
func (s *AccessService) Purchase(ctx context.Context, holder HolderKey,
	robotName string, paymentProof string) (PurchaseResult, error) {
	if s.SessionTTL <= 0 {
		panic("robolink: non-positive session ttl")
	}

	robot, err := s.Robots.ByName(ctx, NewRobotIdentity(robotName))
	if err != nil {
		if errors.Is(err, ErrRobotNotFound) {
			return PurchaseResult{}, ErrRobotNotFound
		}
		return PurchaseResult{}, fmt.Errorf("robot by name: %w", err)
	}
	if err := s.Ping(robot.Host); err != nil {
		return PurchaseResult{}, fmt.Errorf("%w: ping %q: %v", ErrRobotOffline, robot.Host, err)
	}

	// Advisory availability check so a doomed purchase fails before the
	// payment gate is invoked. TryAcquire below stays authoritative.
	current, err := s.Sessions.RobotHolder(ctx, robot.Name)
	switch {
	case err == nil && current != holder:
		return PurchaseResult{}, ErrRobotBusy
	case err != nil && !errors.Is(err, ErrSessionNotFound):
		return PurchaseResult{}, fmt.Errorf("robot holder: %w", err)
	}

	var paymentRef string
	if s.PaymentsEnabled {
		paymentRef, err = s.VerifyPayment(paymentProof, robot.WalletAddress)
		if err != nil {
			return PurchaseResult{}, fmt.Errorf("verify payment: %w", err)
		}
	}

	session, err := s.Sessions.TryAcquire(ctx, holder, robot.Name, s.SessionTTL, paymentRef)
	if err != nil {
		if errors.Is(err, ErrRobotBusy) {
			return PurchaseResult{}, ErrRobotBusy
		}
		return PurchaseResult{}, fmt.Errorf("acquire session: %w", err)
	}
	return PurchaseResult{
		Robot:            session.Robot,
		ExpiresAt:        session.ExpiresAt,
		RemainingSeconds: int64(session.Remaining(s.now()) / time.Second),
		PaymentRef:       session.PaymentRef,
	}, nil
}

// Status shapes the holder's session for polling clients. An absent or
// expired session yields an inactive status, not an error.
func (s *AccessService) Status(ctx context.Context, holder HolderKey) (SessionStatus, error) {
	session, err := s.Sessions.ByHolder(ctx, holder)
	if err != nil {
		if errors.Is(err, ErrSessionNotFound) {
			return SessionStatus{Active: false}, nil
		}
		return SessionStatus{}, fmt.Errorf("session by holder: %w", err)
	}
	return SessionStatus{
		Active:           true,
		Robot:            session.Robot,
		RemainingSeconds: int64(session.Remaining(s.now()) / time.Second),
	}, nil
}

// ReleaseCurrent ends the holder's session early. Idempotent.
func (s *AccessService) ReleaseCurrent(ctx context.Context, holder HolderKey) (bool, error) {
	released, err := s.Sessions.Release(ctx, holder)
	if err != nil {
		return false, fmt.Errorf("release session: %w", err)
	}
	return released, nil
}

// Authorize resolves the robot the holder currently controls. Called
// fresh for every command - results must never be cached by callers,
// a session can expire between two motor commands.
func (s *AccessService) Authorize(ctx context.Context, holder HolderKey) (RobotIdentity, error) {
	session, err := s.Sessions.ByHolder(ctx, holder)
	if err != nil {
		if errors.Is(err, ErrSessionNotFound) {
			return "", ErrAccessDenied
		}
		return "", fmt.Errorf("session by holder: %w", err)
	}
	return session.Robot, nil
}

func (s *AccessService) now() time.Time {
	if s.Now != nil {
		return s.Now()
	}
	return time.Now()
}
