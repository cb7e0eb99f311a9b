package rest

import (
	"context"
	"testing"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/robolink/robolink"
	"github.com/robolink/robolink/firmware"
	"github.com/robolink/robolink/inmem"
	"github.com/robolink/robolink/walletd"
	"github.com/stretchr/testify/assert"
)

func testRobotController() (*RobotController, *inmem.RobotStore, *inmem.SessionStore) {
	robots := inmem.NewRobotStore()
	sessions := inmem.NewSessionStore(fixedClock)
	controller := &RobotController{
		Store:        &robots,
		Sessions:     sessions,
		Ping:         firmware.MockPinger(nil),
		CreateWallet: walletd.MockCreator("0xrobotwallet", nil),
		Balance:      walletd.MockBalanceProvider("12.50", nil),
		Transfer:     walletd.MockTransferrer("0xtx", nil),
	}
	return controller, &robots, sessions
}

func newRobotApp(controller *RobotController) *fiber.App {
	app := fiber.New(fiber.Config{ErrorHandler: ErrorHandler})
	controller.InstallTo(app)
	return app
}

func registerTestRobot(t *testing.T, store *inmem.RobotStore) robolink.Robot {
	t.Helper()
	robot, err := store.Register(context.Background(), robolink.Robot{
		Name:          "tumbller-01",
		Host:          "10.0.0.7",
		OwnerAddress:  "0xowner",
		WalletAddress: "0xfees",
		CreatedAt:     time.Unix(900, 0),
	})
	if err != nil {
		t.Fatalf("register robot: %v", err)
	}
	return robot
}

func TestRobotRegister(t *testing.T) {
	assert := assert.New(t)
	controller, _, _ := testRobotController()
	app := newRobotApp(controller)

	resp, err := app.Test(jsonRequest("POST", "/robots", "",
		`{"name": "Tumbller-01", "host": "10.0.0.7", "owner": "0xowner"}`))
	if !assert.NoError(err) {
		return
	}
	assert.Equal(fiber.StatusCreated, resp.StatusCode)
	assert.Equal(`{"name":"tumbller-01","host":"10.0.0.7","walletAddress":"0xrobotwallet"}`,
		readBody(t, resp))

	resp, err = app.Test(jsonRequest("POST", "/robots", "",
		`{"name": "tumbller-01", "host": "10.0.0.8", "owner": "0xother"}`))
	if !assert.NoError(err) {
		return
	}
	assert.Equal(fiber.StatusConflict, resp.StatusCode)
	assert.Equal(JsonErrorMessageResponse("robot already registered"), readBody(t, resp))
}

func TestRobotRegisterMissingFields(t *testing.T) {
	assert := assert.New(t)
	controller, _, _ := testRobotController()
	app := newRobotApp(controller)

	resp, err := app.Test(jsonRequest("POST", "/robots", "",
		`{"name": "tumbller-01"}`))
	if !assert.NoError(err) {
		return
	}
	assert.Equal(fiber.StatusBadRequest, resp.StatusCode)
}

func TestRobotRegisterWalletUnavailable(t *testing.T) {
	assert := assert.New(t)
	controller, _, _ := testRobotController()
	controller.CreateWallet = walletd.MockCreator("", walletd.ErrUnavailable)
	app := newRobotApp(controller)

	resp, err := app.Test(jsonRequest("POST", "/robots", "",
		`{"name": "tumbller-01", "host": "10.0.0.7", "owner": "0xowner"}`))
	if !assert.NoError(err) {
		return
	}
	assert.Equal(fiber.StatusBadGateway, resp.StatusCode)
	assert.Equal(JsonErrorMessageResponse("wallet service unavailable"), readBody(t, resp))
}

func TestRobotList(t *testing.T) {
	assert := assert.New(t)
	controller, robots, sessions := testRobotController()
	registerTestRobot(t, robots)
	_, err := robots.Register(context.Background(), robolink.Robot{
		Name: "tumbller-02", Host: "10.0.0.8", OwnerAddress: "0xowner", WalletAddress: "0xfees2",
	})
	if !assert.NoError(err) {
		return
	}
	_, err = sessions.TryAcquire(context.Background(), "0xalice", "tumbller-02",
		10*time.Minute, "")
	if !assert.NoError(err) {
		return
	}
	app := newRobotApp(controller)

	resp, err := app.Test(jsonRequest("GET", "/robots", "", ""))
	if !assert.NoError(err) {
		return
	}
	assert.Equal(`[{"name":"tumbller-01","host":"10.0.0.7","locked":false},`+
		`{"name":"tumbller-02","host":"10.0.0.8","locked":true}]`, readBody(t, resp))
}

func TestRobotDetail(t *testing.T) {
	assert := assert.New(t)
	controller, robots, _ := testRobotController()
	registerTestRobot(t, robots)
	app := newRobotApp(controller)

	resp, err := app.Test(jsonRequest("GET", "/robots/tumbller-01", "", ""))
	if !assert.NoError(err) {
		return
	}
	assert.Equal(`{"name":"tumbller-01","host":"10.0.0.7","online":true,`+
		`"locked":false,"createdAt":900}`, readBody(t, resp))
}

func TestRobotDetailNotFound(t *testing.T) {
	assert := assert.New(t)
	controller, _, _ := testRobotController()
	app := newRobotApp(controller)

	resp, err := app.Test(jsonRequest("GET", "/robots/ghost", "", ""))
	if !assert.NoError(err) {
		return
	}
	assert.Equal(fiber.StatusNotFound, resp.StatusCode)
	assert.Equal(JsonErrorMessageResponse("robot not found"), readBody(t, resp))
}

func TestRobotBalance(t *testing.T) {
	assert := assert.New(t)
	controller, robots, _ := testRobotController()
	registerTestRobot(t, robots)
	app := newRobotApp(controller)

	resp, err := app.Test(jsonRequest("GET", "/robots/tumbller-01/balance", "", ""))
	if !assert.NoError(err) {
		return
	}
	assert.Equal(`{"balance":"12.50"}`, readBody(t, resp))
}

func TestRobotFund(t *testing.T) {
	assert := assert.New(t)
	controller, robots, _ := testRobotController()
	registerTestRobot(t, robots)
	var gotFrom, gotTo, gotAmount string
	controller.Treasury = "0xtreasury"
	controller.Transfer = func(from string, to string, amount string) (string, error) {
		gotFrom, gotTo, gotAmount = from, to, amount
		return "0xfundtx", nil
	}
	app := newRobotApp(controller)

	resp, err := app.Test(jsonRequest("POST", "/robots/tumbller-01/fund", "",
		`{"amount": "0.05"}`))
	if !assert.NoError(err) {
		return
	}
	assert.Equal(`{"txHash":"0xfundtx"}`, readBody(t, resp))
	assert.Equal("0xtreasury", gotFrom)
	assert.Equal("0xfees", gotTo)
	assert.Equal("0.05", gotAmount)
}

func TestRobotFundWithoutTreasury(t *testing.T) {
	assert := assert.New(t)
	controller, robots, _ := testRobotController()
	registerTestRobot(t, robots)
	app := newRobotApp(controller)

	resp, err := app.Test(jsonRequest("POST", "/robots/tumbller-01/fund", "",
		`{"amount": "0.05"}`))
	if !assert.NoError(err) {
		return
	}
	assert.Equal(fiber.StatusServiceUnavailable, resp.StatusCode)
	assert.Equal(JsonErrorMessageResponse("treasury not configured"), readBody(t, resp))
}

func TestRobotPayoutFullBalance(t *testing.T) {
	assert := assert.New(t)
	controller, robots, _ := testRobotController()
	registerTestRobot(t, robots)
	var gotFrom, gotTo, gotAmount string
	controller.Transfer = func(from string, to string, amount string) (string, error) {
		gotFrom, gotTo, gotAmount = from, to, amount
		return "0xpayouttx", nil
	}
	app := newRobotApp(controller)

	resp, err := app.Test(jsonRequest("POST", "/robots/tumbller-01/payout", "", ""))
	if !assert.NoError(err) {
		return
	}
	assert.Equal(`{"amount":"12.50","txHash":"0xpayouttx"}`, readBody(t, resp))
	assert.Equal("0xfees", gotFrom)
	assert.Equal("0xowner", gotTo)
	assert.Equal("12.50", gotAmount)
}
