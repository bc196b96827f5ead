package handler

import (
	"context"
	"net/http"
	"time"

	"github.com/labstack/echo/v4"

	"github.com/kavyan/clipvault/internal/model"
)

// WebhookHandler receives normalized chat events from the transport
// bridge and feeds them to the dispatcher.
type WebhookHandler struct {
	Dispatcher *Dispatcher
}

func NewWebhookHandler(d *Dispatcher) *WebhookHandler {
	return &WebhookHandler{Dispatcher: d}
}

// Events handles POST /v1/events. The bridge posts one event per
// request; the reply body only acknowledges receipt, any user-visible
// response goes back out through the transport.
func (h *WebhookHandler) Events(c echo.Context) error {
	var ev model.Event
	if err := c.Bind(&ev); err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid body"})
	}
	if ev.UserID == 0 || ev.Name == "" {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "user_id and name required"})
	}
	if ev.Kind == "" {
		ev.Kind = model.EventCommand
	}

	ctx, cancel := context.WithTimeout(c.Request().Context(), 10*time.Second)
	defer cancel()

	if err := h.Dispatcher.Dispatch(ctx, ev); err != nil {
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "dispatch failed"})
	}
	return c.JSON(http.StatusOK, echo.Map{"status": "accepted"})
}
