package rest

import (
	"context"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/robolink/robolink"
	"github.com/robolink/robolink/mock"
	"github.com/stretchr/testify/assert"
)

func TestEventController(t *testing.T) {
	assert := assert.New(t)

	store := mock.EventStore{
		ByHolderFn: func(ctx context.Context, holder robolink.HolderKey) ([]robolink.EventLog, error) {
			assert.Equal(robolink.HolderKey("0xalice"), holder)
			return []robolink.EventLog{
				{
					Id:        "1",
					CreatedAt: time.Date(2026, 3, 1, 15, 0, 0, 0, time.UTC),
					Holder:    holder,
					Name:      "session_created",
					Data: map[string]interface{}{
						"robot": "tumbller-01",
					},
				},
				{
					Id:        "2",
					CreatedAt: time.Date(2026, 3, 1, 15, 10, 0, 0, time.UTC),
					Holder:    holder,
					Name:      "session_released",
				},
			}, nil
		},
	}

	app := fiber.New(fiber.Config{ErrorHandler: ErrorHandler})
	controller := EventController{Store: store}
	controller.InstallTo(func(ctx *fiber.Ctx) error {
		ctx.Locals(holderLocalsKey, robolink.NewHolderKey("0xAlice"))
		return nil
	}, app)

	resp, err := app.Test(httptest.NewRequest("GET", "/events", nil))
	if !assert.NoError(err) {
		return
	}
	assert.Equal(`[{"id":"1","createdAt":1772377200,"name":"session_created",`+
		`"data":{"robot":"tumbller-01"}},`+
		`{"id":"2","createdAt":1772377800,"name":"session_released"}]`,
		readBody(t, resp))
}
