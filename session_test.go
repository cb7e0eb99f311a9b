package robolink_test

import (
	"testing"
	"time"

	"github.com/robolink/robolink"
	"github.com/stretchr/testify/assert"
)

func TestKeyNormalization(t *testing.T) {
	assert := assert.New(t)

	assert.Equal(robolink.HolderKey("0xabcdef"), robolink.NewHolderKey("0xABCdef"))
	assert.Equal(robolink.HolderKey("0xabc"), robolink.NewHolderKey("  0xAbC "))
	assert.Equal(robolink.NewHolderKey("0xAAA"), robolink.NewHolderKey("0xaaa"))

	assert.Equal(robolink.RobotIdentity("tumbller-01.local"), robolink.NewRobotIdentity("Tumbller-01.LOCAL"))
}

func TestSessionLiveness(t *testing.T) {
	assert := assert.New(t)

	createdAt := time.Unix(0, 0)
	session := robolink.Session{
		Holder:    "0xaaa",
		Robot:     "tumbller-01",
		CreatedAt: createdAt,
		ExpiresAt: createdAt.Add(600 * time.Second),
	}

	assert.True(session.Live(createdAt))
	assert.True(session.Live(createdAt.Add(599 * time.Second)))
	// expiry boundary is exclusive
	assert.False(session.Live(createdAt.Add(600 * time.Second)))
	assert.False(session.Live(createdAt.Add(601 * time.Second)))

	assert.Equal(300*time.Second, session.Remaining(createdAt.Add(300*time.Second)))
	assert.Equal(time.Duration(0), session.Remaining(createdAt.Add(600*time.Second)))
	assert.Equal(time.Duration(0), session.Remaining(createdAt.Add(2000*time.Second)))
}
