package rest

import (
	"fmt"

	"github.com/gofiber/fiber/v2"
	"github.com/robolink/robolink"
)

type EventController struct {
	Store robolink.EventStore
}

func (c *EventController) InstallTo(requestAuthorizer fiber.Handler, app *fiber.App) {
	app.Get("/events", combineHandlers(requestAuthorizer, c.serveEvents))
}

func (c *EventController) serveEvents(ctx *fiber.Ctx) error {
	holder, ok := ctx.Locals(holderLocalsKey).(robolink.HolderKey)
	if !ok {
		return fiber.ErrUnauthorized
	}

	events, err := c.Store.ByHolder(ctx.Context(), holder)
	if err != nil {
		return fmt.Errorf("events by holder: %w", err)
	}

	type EventResponse struct {
		Id        string                 `json:"id"`
		CreatedAt int64                  `json:"createdAt"`
		Name      string                 `json:"name"`
		Data      map[string]interface{} `json:"data,omitempty"`
	}
	response := make([]EventResponse, len(events))
	for i, event := range events {
		response[i] = EventResponse{
			Id:        event.Id,
			CreatedAt: event.CreatedAt.Unix(),
			Name:      event.Name,
			Data:      event.Data,
		}
	}
	return ctx.JSON(response)
}
