package rest

import (
	"errors"
	"fmt"

	"github.com/gofiber/fiber/v2"
	"github.com/robolink/robolink"
)

type AccessController struct {
	Service *robolink.AccessService
}

func (c *AccessController) InstallTo(app *fiber.App) {
	app.Post("/access/purchase", c.serveAccessPurchase)
	app.Get("/access/status", c.serveAccessStatus)
	app.Delete("/access", c.serveAccessRelease)
}

func (c *AccessController) serveAccessPurchase(ctx *fiber.Ctx) error {
	holder, err := bearerHolder(ctx)
	if err != nil {
		return err
	}

	body := struct {
		Robot        string `json:"robot"`
		PaymentProof string `json:"paymentProof"`
	}{}
	if err := ctx.BodyParser(&body); err != nil {
		requestLog(ctx).WithError(err).Infoln("Invalid body.")
		return fiber.NewError(fiber.StatusBadRequest, "invalid body")
	}
	if body.Robot == "" {
		return fiber.NewError(fiber.StatusBadRequest, "no robot")
	}

	result, err := c.Service.Purchase(ctx.Context(), holder, body.Robot, body.PaymentProof)
	if err != nil {
		switch {
		case errors.Is(err, robolink.ErrRobotNotFound):
			return fiber.NewError(fiber.StatusNotFound, "robot not found")
		case errors.Is(err, robolink.ErrRobotOffline):
			return fiber.NewError(fiber.StatusServiceUnavailable, "robot offline")
		case errors.Is(err, robolink.ErrRobotBusy):
			return fiber.NewError(fiber.StatusConflict, "robot busy")
		case errors.Is(err, robolink.ErrPaymentRejected):
			return fiber.NewError(fiber.StatusPaymentRequired, "payment rejected")
		default:
			return fmt.Errorf("purchase: %w", err)
		}
	}

	requestLog(ctx).
		WithField("holder", holder).
		WithField("robot", result.Robot).
		Infoln("Access purchased.")

	type PurchaseResponse struct {
		Robot            string `json:"robot"`
		ExpiresAt        int64  `json:"expiresAt"`
		RemainingSeconds int64  `json:"remainingSeconds"`
		PaymentRef       string `json:"paymentRef,omitempty"`
	}
	return ctx.Status(fiber.StatusCreated).JSON(PurchaseResponse{
		Robot:            string(result.Robot),
		ExpiresAt:        result.ExpiresAt.Unix(),
		RemainingSeconds: result.RemainingSeconds,
		PaymentRef:       result.PaymentRef,
	})
}

func (c *AccessController) serveAccessStatus(ctx *fiber.Ctx) error {
	holder, err := bearerHolder(ctx)
	if err != nil {
		return err
	}

	status, err := c.Service.Status(ctx.Context(), holder)
	if err != nil {
		return fmt.Errorf("session status: %w", err)
	}

	type StatusResponse struct {
		Active           bool   `json:"active"`
		Robot            string `json:"robot,omitempty"`
		RemainingSeconds int64  `json:"remainingSeconds"`
	}
	return ctx.JSON(StatusResponse{
		Active:           status.Active,
		Robot:            string(status.Robot),
		RemainingSeconds: status.RemainingSeconds,
	})
}

func (c *AccessController) serveAccessRelease(ctx *fiber.Ctx) error {
	holder, err := bearerHolder(ctx)
	if err != nil {
		return err
	}

	released, err := c.Service.ReleaseCurrent(ctx.Context(), holder)
	if err != nil {
		return fmt.Errorf("release session: %w", err)
	}
	return ctx.JSON(map[string]bool{"released": released})
}

// RequestAuthorizer guards robot command endpoints. It re-checks the
// session on every request - authorization is never cached, a session
// can expire between two motor commands. The robot forwarded to always
// comes from the session, never from the request.
func RequestAuthorizer(service *robolink.AccessService, robots robolink.RobotStore) fiber.Handler {
	return func(ctx *fiber.Ctx) error {
		holder, err := bearerHolder(ctx)
		if err != nil {
			return err
		}

		identity, err := service.Authorize(ctx.Context(), holder)
		if err != nil {
			if errors.Is(err, robolink.ErrAccessDenied) {
				return fiber.NewError(fiber.StatusUnauthorized, "purchase access first")
			}
			return fmt.Errorf("authorize holder: %w", err)
		}

		robot, err := robots.ByName(ctx.Context(), identity)
		if err != nil {
			if errors.Is(err, robolink.ErrRobotNotFound) {
				return fiber.NewError(fiber.StatusNotFound, "robot not found")
			}
			return fmt.Errorf("robot by name: %w", err)
		}

		requestLog(ctx).
			WithField("holder", holder).
			WithField("robot", robot.Name).
			Infoln("Authorized access.")

		ctx.Locals(holderLocalsKey, holder)
		ctx.Locals(robotLocalsKey, robot)
		return nil
	}
}
