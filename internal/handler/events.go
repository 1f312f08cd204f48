package handler

import (
	"github.com/GoPolymarket/gasgate/internal/events"
	"github.com/gin-gonic/gin"
)

type EventsHandler struct {
	hub *events.Hub
}

func NewEventsHandler(hub *events.Hub) *EventsHandler {
	return &EventsHandler{hub: hub}
}

// Stream upgrades to a websocket and pushes relay outcomes as they happen.
func (h *EventsHandler) Stream(c *gin.Context) {
	h.hub.ServeWS(c.Writer, c.Request)
}

func (h *EventsHandler) Recent(c *gin.Context) {
	respond(c, h.hub.Recent())
}
