package rest

import (
	"errors"
	"fmt"

	"github.com/gofiber/fiber/v2"
	"github.com/robolink/robolink"
	"github.com/robolink/robolink/firmware"
)

// CommandController proxies motor and camera requests to the firmware
// of the robot the caller's session is bound to.
type CommandController struct {
	Motor  firmware.Motor
	Camera firmware.Camera
}

func (c *CommandController) InstallTo(requestAuthorizer fiber.Handler, app *fiber.App) {
	app.Post("/robot/motor/:direction", combineHandlers(requestAuthorizer, c.serveMotor))
	app.Get("/robot/camera/frame", combineHandlers(requestAuthorizer, c.serveCameraFrame))
}

func (c *CommandController) serveMotor(ctx *fiber.Ctx) error {
	robot, ok := ctx.Locals(robotLocalsKey).(robolink.Robot)
	if !ok {
		return fiber.ErrUnauthorized
	}

	direction := ctx.Params("direction")
	if !firmware.ValidDirection(direction) {
		return fiber.NewError(fiber.StatusBadRequest, "invalid direction")
	}

	if err := c.Motor(robot.Host, direction); err != nil {
		if errors.Is(err, firmware.ErrUnreachable) {
			return fiber.NewError(fiber.StatusServiceUnavailable, "robot unreachable")
		}
		return fmt.Errorf("motor command: %w", err)
	}
	return ctx.JSON(map[string]string{
		"robot":     string(robot.Name),
		"direction": direction,
	})
}

func (c *CommandController) serveCameraFrame(ctx *fiber.Ctx) error {
	robot, ok := ctx.Locals(robotLocalsKey).(robolink.Robot)
	if !ok {
		return fiber.ErrUnauthorized
	}

	frame, err := c.Camera(robot.Host)
	if err != nil {
		if errors.Is(err, firmware.ErrUnreachable) {
			return fiber.NewError(fiber.StatusServiceUnavailable, "robot unreachable")
		}
		return fmt.Errorf("camera frame: %w", err)
	}

	ctx.Set(fiber.HeaderContentType, "image/jpeg")
	return ctx.Send(frame)
}
