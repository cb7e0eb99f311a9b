package firmware

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestValidDirection(t *testing.T) {
	assert := assert.New(t)

	for _, direction := range []string{"forward", "back", "left", "right", "stop"} {
		assert.True(ValidDirection(direction), "direction: %s", direction)
	}
	for _, direction := range []string{"", "up", "FORWARD", "forward ", "backward"} {
		assert.False(ValidDirection(direction), "direction: %s", direction)
	}
}

func TestRestMotorRejectsInvalidDirection(t *testing.T) {
	assert := assert.New(t)

	motor := RestMotor(0)
	err := motor("tumbller-01.local", "sideways")
	assert.Error(err)
	assert.NotErrorIs(err, ErrUnreachable)
}
