package handlers

import (
	"net/http"

	"parcel-backend/internal/events"
	"parcel-backend/pkg/utils"
)

type EventsHandler struct {
	hub *events.Hub
}

func NewEventsHandler(hub *events.Hub) *EventsHandler {
	return &EventsHandler{hub: hub}
}

// Transitions handles GET /ws/transitions. Subscribers only receive the
// bookings their role may read.
func (h *EventsHandler) Transitions(w http.ResponseWriter, r *http.Request) {
	a, ok := actor(w, r)
	if !ok {
		return
	}
	scope, err := a.Scope()
	if err != nil {
		utils.Error(w, err)
		return
	}
	h.hub.Serve(w, r, scope)
}
