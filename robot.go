package robolink

import (
	"context"
	"errors"
	"time"
)

var (
	ErrRobotNotFound = errors.New("robot not found")
	ErrRobotOffline  = errors.New("robot offline")
	ErrRobotExists   = errors.New("robot already registered")
)

// Robot is a registered teleoperable device: an ESP32 motor controller
// plus camera reachable over HTTP at Host. WalletAddress is the custodial
// wallet collecting session fees for this robot; OwnerAddress is where
// earnings are paid out.
type Robot struct {
	Name          RobotIdentity
	Host          string
	OwnerAddress  string
	WalletAddress string
	CreatedAt     time.Time
}

type RobotStore interface {
	// Register stores a new robot. Returns ErrRobotExists when a robot
	// with the same name is already present.
	Register(ctx context.Context, robot Robot) (Robot, error)

	// ByName returns ErrRobotNotFound for unknown names.
	ByName(ctx context.Context, name RobotIdentity) (Robot, error)

	All(ctx context.Context) ([]Robot, error)
}

// RobotPinger probes a robot's firmware health endpoint. A non-nil error
// means the robot is unreachable.
type RobotPinger = func(host string) error
