package rest

import (
	"errors"
	"fmt"

	"github.com/gofiber/fiber/v2"
	"github.com/robolink/robolink"
	"github.com/robolink/robolink/firmware"
	"github.com/robolink/robolink/walletd"
)

type RobotController struct {
	Store        robolink.RobotStore
	Sessions     robolink.SessionStore
	Ping         firmware.Pinger
	CreateWallet walletd.Creator
	Balance      walletd.BalanceProvider
	Transfer     walletd.Transferrer
	Treasury     string
	Events       robolink.EventStore
}

func (c *RobotController) InstallTo(app *fiber.App) {
	app.Get("/robots", c.serveRobots)
	app.Post("/robots", c.serveRegisterRobot)
	app.Get("/robots/:name", c.serveRobot)
	app.Get("/robots/:name/balance", c.serveRobotBalance)
	app.Post("/robots/:name/fund", c.serveFundRobot)
	app.Post("/robots/:name/payout", c.servePayoutRobot)
}

func (c *RobotController) serveRobots(ctx *fiber.Ctx) error {
	robots, err := c.Store.All(ctx.Context())
	if err != nil {
		return fmt.Errorf("all robots: %w", err)
	}

	type RobotMeta struct {
		Name   string `json:"name"`
		Host   string `json:"host"`
		Locked bool   `json:"locked"`
	}
	metas := make([]RobotMeta, len(robots))
	for i, robot := range robots {
		_, err := c.Sessions.RobotHolder(ctx.Context(), robot.Name)
		if err != nil && !errors.Is(err, robolink.ErrSessionNotFound) {
			return fmt.Errorf("robot holder: %w", err)
		}
		metas[i] = RobotMeta{
			Name:   string(robot.Name),
			Host:   robot.Host,
			Locked: err == nil,
		}
	}
	return ctx.JSON(metas)
}

func (c *RobotController) serveRegisterRobot(ctx *fiber.Ctx) error {
	body := struct {
		Name  string `json:"name"`
		Host  string `json:"host"`
		Owner string `json:"owner"`
	}{}
	if err := ctx.BodyParser(&body); err != nil {
		requestLog(ctx).WithError(err).Infoln("Invalid body.")
		return fiber.NewError(fiber.StatusBadRequest, "invalid body")
	}
	if body.Name == "" || body.Host == "" || body.Owner == "" {
		return fiber.NewError(fiber.StatusBadRequest, "name, host and owner are required")
	}

	// each robot collects its fees on a dedicated custodial wallet
	wallet, err := c.CreateWallet()
	if err != nil {
		if errors.Is(err, walletd.ErrUnavailable) {
			return fiber.NewError(fiber.StatusBadGateway, "wallet service unavailable")
		}
		return fmt.Errorf("create wallet: %w", err)
	}

	robot, err := c.Store.Register(ctx.Context(), robolink.Robot{
		Name:          robolink.NewRobotIdentity(body.Name),
		Host:          body.Host,
		OwnerAddress:  body.Owner,
		WalletAddress: wallet.Address,
	})
	if err != nil {
		if errors.Is(err, robolink.ErrRobotExists) {
			return fiber.NewError(fiber.StatusConflict, "robot already registered")
		}
		return fmt.Errorf("register robot: %w", err)
	}

	requestLog(ctx).
		WithField("robot", robot.Name).
		WithField("wallet", robot.WalletAddress).
		Infoln("Robot registered.")

	type RegisterResponse struct {
		Name          string `json:"name"`
		Host          string `json:"host"`
		WalletAddress string `json:"walletAddress"`
	}
	return ctx.Status(fiber.StatusCreated).JSON(RegisterResponse{
		Name:          string(robot.Name),
		Host:          robot.Host,
		WalletAddress: robot.WalletAddress,
	})
}

func (c *RobotController) serveRobot(ctx *fiber.Ctx) error {
	robot, err := c.robotByNameParam(ctx)
	if err != nil {
		return err
	}

	online := c.Ping(robot.Host) == nil
	_, holderErr := c.Sessions.RobotHolder(ctx.Context(), robot.Name)
	if holderErr != nil && !errors.Is(holderErr, robolink.ErrSessionNotFound) {
		return fmt.Errorf("robot holder: %w", holderErr)
	}

	type RobotResponse struct {
		Name      string `json:"name"`
		Host      string `json:"host"`
		Online    bool   `json:"online"`
		Locked    bool   `json:"locked"`
		CreatedAt int64  `json:"createdAt"`
	}
	return ctx.JSON(RobotResponse{
		Name:      string(robot.Name),
		Host:      robot.Host,
		Online:    online,
		Locked:    holderErr == nil,
		CreatedAt: robot.CreatedAt.Unix(),
	})
}

func (c *RobotController) serveRobotBalance(ctx *fiber.Ctx) error {
	robot, err := c.robotByNameParam(ctx)
	if err != nil {
		return err
	}

	balance, err := c.Balance(robot.WalletAddress)
	if err != nil {
		if errors.Is(err, walletd.ErrUnavailable) {
			return fiber.NewError(fiber.StatusBadGateway, "wallet service unavailable")
		}
		return fmt.Errorf("wallet balance: %w", err)
	}
	return ctx.JSON(map[string]string{"balance": balance})
}

// serveFundRobot tops up the robot's custodial wallet with gas money
// from the treasury.
func (c *RobotController) serveFundRobot(ctx *fiber.Ctx) error {
	if c.Treasury == "" {
		return fiber.NewError(fiber.StatusServiceUnavailable, "treasury not configured")
	}
	robot, err := c.robotByNameParam(ctx)
	if err != nil {
		return err
	}

	body := struct {
		Amount string `json:"amount"`
	}{}
	if err := ctx.BodyParser(&body); err != nil {
		requestLog(ctx).WithError(err).Infoln("Invalid body.")
		return fiber.NewError(fiber.StatusBadRequest, "invalid body")
	}
	if body.Amount == "" {
		return fiber.NewError(fiber.StatusBadRequest, "no amount")
	}

	txHash, err := c.Transfer(c.Treasury, robot.WalletAddress, body.Amount)
	if err != nil {
		if errors.Is(err, walletd.ErrUnavailable) {
			return fiber.NewError(fiber.StatusBadGateway, "wallet service unavailable")
		}
		return fmt.Errorf("fund transfer: %w", err)
	}
	c.addRobotEvent(ctx, robot, "robot_funded", map[string]interface{}{
		"amount": body.Amount,
		"txHash": txHash,
	})
	return ctx.JSON(map[string]string{"txHash": txHash})
}

// servePayoutRobot sweeps collected session fees to the owner address.
// Without an explicit amount the full balance is paid out.
func (c *RobotController) servePayoutRobot(ctx *fiber.Ctx) error {
	robot, err := c.robotByNameParam(ctx)
	if err != nil {
		return err
	}

	body := struct {
		Amount string `json:"amount"`
	}{}
	if len(ctx.Body()) > 0 {
		if err := ctx.BodyParser(&body); err != nil {
			requestLog(ctx).WithError(err).Infoln("Invalid body.")
			return fiber.NewError(fiber.StatusBadRequest, "invalid body")
		}
	}

	amount := body.Amount
	if amount == "" {
		amount, err = c.Balance(robot.WalletAddress)
		if err != nil {
			if errors.Is(err, walletd.ErrUnavailable) {
				return fiber.NewError(fiber.StatusBadGateway, "wallet service unavailable")
			}
			return fmt.Errorf("wallet balance: %w", err)
		}
	}

	txHash, err := c.Transfer(robot.WalletAddress, robot.OwnerAddress, amount)
	if err != nil {
		if errors.Is(err, walletd.ErrUnavailable) {
			return fiber.NewError(fiber.StatusBadGateway, "wallet service unavailable")
		}
		return fmt.Errorf("payout transfer: %w", err)
	}
	c.addRobotEvent(ctx, robot, "payout", map[string]interface{}{
		"amount": amount,
		"txHash": txHash,
		"to":     robot.OwnerAddress,
	})

	requestLog(ctx).
		WithField("robot", robot.Name).
		WithField("amount", amount).
		Infoln("Earnings paid out.")

	return ctx.JSON(map[string]string{"txHash": txHash, "amount": amount})
}

func (c *RobotController) robotByNameParam(ctx *fiber.Ctx) (robolink.Robot, error) {
	name := ctx.Params("name")
	if name == "" {
		return robolink.Robot{}, fiber.NewError(fiber.StatusBadRequest, "no robot name")
	}
	robot, err := c.Store.ByName(ctx.Context(), robolink.NewRobotIdentity(name))
	if err != nil {
		if errors.Is(err, robolink.ErrRobotNotFound) {
			return robolink.Robot{}, fiber.NewError(fiber.StatusNotFound, "robot not found")
		}
		return robolink.Robot{}, fmt.Errorf("robot by name: %w", err)
	}
	return robot, nil
}

func (c *RobotController) addRobotEvent(ctx *fiber.Ctx, robot robolink.Robot,
	name string, data map[string]interface{}) {
	if c.Events == nil {
		return
	}
	data["robot"] = string(robot.Name)
	holder := robolink.NewHolderKey(robot.OwnerAddress)
	if err := c.Events.Add(ctx.Context(), holder, robolink.Event{Name: name, Data: data}); err != nil {
		requestLog(ctx).WithError(err).Warningln("Could not add robot event.")
	}
}
