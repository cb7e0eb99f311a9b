package rest

import (
	"context"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/robolink/robolink"
	"github.com/robolink/robolink/firmware"
	"github.com/robolink/robolink/inmem"
	"github.com/stretchr/testify/assert"
)

type commandClock struct {
	mutex sync.Mutex
	now   time.Time
}

func (c *commandClock) Now() time.Time {
	c.mutex.Lock()
	defer c.mutex.Unlock()
	return c.now
}

func (c *commandClock) Advance(d time.Duration) {
	c.mutex.Lock()
	defer c.mutex.Unlock()
	c.now = c.now.Add(d)
}

type commandEnv struct {
	clock   *commandClock
	service *robolink.AccessService
	app     *fiber.App
}

func newCommandEnv(motor firmware.Motor, camera firmware.Camera) commandEnv {
	clock := &commandClock{now: time.Unix(1000, 0)}
	service := &robolink.AccessService{
		Sessions:   inmem.NewSessionStore(clock.Now),
		Robots:     testRobotStore(),
		Ping:       firmware.MockPinger(nil),
		SessionTTL: 10 * time.Minute,
		Now:        clock.Now,
	}
	app := fiber.New(fiber.Config{ErrorHandler: ErrorHandler})
	authorizer := RequestAuthorizer(service, service.Robots)
	controller := CommandController{Motor: motor, Camera: camera}
	controller.InstallTo(authorizer, app)
	return commandEnv{clock: clock, service: service, app: app}
}

func (e commandEnv) purchase(t *testing.T, holder string) {
	t.Helper()
	_, err := e.service.Purchase(context.Background(),
		robolink.NewHolderKey(holder), "tumbller-01", "")
	if err != nil {
		t.Fatalf("purchase: %v", err)
	}
}

func TestCommandMotor(t *testing.T) {
	assert := assert.New(t)
	var gotHost, gotDirection string
	env := newCommandEnv(func(host string, direction string) error {
		gotHost, gotDirection = host, direction
		return nil
	}, firmware.MockCamera(nil, nil))
	env.purchase(t, "0xAlice")

	resp, err := env.app.Test(jsonRequest("POST", "/robot/motor/forward", "0xAlice", ""))
	if !assert.NoError(err) {
		return
	}
	assert.Equal(fiber.StatusOK, resp.StatusCode)
	assert.Equal(`{"direction":"forward","robot":"tumbller-01"}`, readBody(t, resp))
	assert.Equal("10.0.0.7", gotHost)
	assert.Equal("forward", gotDirection)
}

func TestCommandMotorWithoutSession(t *testing.T) {
	assert := assert.New(t)
	env := newCommandEnv(firmware.MockMotor(nil), firmware.MockCamera(nil, nil))

	resp, err := env.app.Test(jsonRequest("POST", "/robot/motor/forward", "0xAlice", ""))
	if !assert.NoError(err) {
		return
	}
	assert.Equal(fiber.StatusUnauthorized, resp.StatusCode)
	assert.Equal(JsonErrorMessageResponse("purchase access first"), readBody(t, resp))
}

func TestCommandMotorAfterExpiry(t *testing.T) {
	assert := assert.New(t)
	env := newCommandEnv(firmware.MockMotor(nil), firmware.MockCamera(nil, nil))
	env.purchase(t, "0xAlice")
	env.clock.Advance(11 * time.Minute)

	resp, err := env.app.Test(jsonRequest("POST", "/robot/motor/forward", "0xAlice", ""))
	if !assert.NoError(err) {
		return
	}
	assert.Equal(fiber.StatusUnauthorized, resp.StatusCode)
	assert.Equal(JsonErrorMessageResponse("purchase access first"), readBody(t, resp))
}

func TestCommandMotorInvalidDirection(t *testing.T) {
	assert := assert.New(t)
	env := newCommandEnv(firmware.MockMotor(nil), firmware.MockCamera(nil, nil))
	env.purchase(t, "0xAlice")

	resp, err := env.app.Test(jsonRequest("POST", "/robot/motor/sideways", "0xAlice", ""))
	if !assert.NoError(err) {
		return
	}
	assert.Equal(fiber.StatusBadRequest, resp.StatusCode)
	assert.Equal(JsonErrorMessageResponse("invalid direction"), readBody(t, resp))
}

func TestCommandMotorUnreachable(t *testing.T) {
	assert := assert.New(t)
	motorErr := fmt.Errorf("%w: connect: host down", firmware.ErrUnreachable)
	env := newCommandEnv(firmware.MockMotor(motorErr), firmware.MockCamera(nil, nil))
	env.purchase(t, "0xAlice")

	resp, err := env.app.Test(jsonRequest("POST", "/robot/motor/stop", "0xAlice", ""))
	if !assert.NoError(err) {
		return
	}
	assert.Equal(fiber.StatusServiceUnavailable, resp.StatusCode)
	assert.Equal(JsonErrorMessageResponse("robot unreachable"), readBody(t, resp))
}

func TestCommandCameraFrame(t *testing.T) {
	assert := assert.New(t)
	frame := []byte{0xFF, 0xD8, 0xFF, 0xE0}
	env := newCommandEnv(firmware.MockMotor(nil), firmware.MockCamera(frame, nil))
	env.purchase(t, "0xAlice")

	resp, err := env.app.Test(jsonRequest("GET", "/robot/camera/frame", "0xAlice", ""))
	if !assert.NoError(err) {
		return
	}
	assert.Equal(fiber.StatusOK, resp.StatusCode)
	assert.Equal("image/jpeg", resp.Header.Get(fiber.HeaderContentType))
	assert.Equal(string(frame), readBody(t, resp))
}
