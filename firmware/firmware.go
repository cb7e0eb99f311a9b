// Package firmware talks to the HTTP server exposed by the robots'
// ESP32 boards: a motor controller answering /ping and /motor/<dir>,
// and a camera module answering /capture.
package firmware

import "errors"

var ErrUnreachable = errors.New("firmware: robot unreachable")

const (
	DirectionForward = "forward"
	DirectionBack    = "back"
	DirectionLeft    = "left"
	DirectionRight   = "right"
	DirectionStop    = "stop"
)

func ValidDirection(direction string) bool {
	switch direction {
	case DirectionForward, DirectionBack, DirectionLeft, DirectionRight, DirectionStop:
		return true
	default:
		return false
	}
}

type Pinger = func(host string) error

type Motor = func(host string, direction string) error

type Camera = func(host string) ([]byte, error)
