package api

import (
	"context"
	"net/http"

	"github.com/okian/taskforce/internal/domain/model"
)

// EventDependencies defines the interface for event operations.
type EventDependencies interface {
	CreateEvent(ctx context.Context, ev model.Event) (model.Event, error)
	GetEvent(ctx context.Context, eventID string) (model.Event, error)
}

// eventRequest mirrors the OpenAPI schema for POST /events.
type eventRequest struct {
	ID   string `json:"id"`
	Name string `json:"name"`
}

// EventsHandler handles event requests.
type EventsHandler struct {
	deps EventDependencies
}

// NewEventsHandler creates a new events handler.
func NewEventsHandler(deps EventDependencies) *EventsHandler {
	return &EventsHandler{deps: deps}
}

// HandleCreateEvent handles POST /events requests.
func (h *EventsHandler) HandleCreateEvent(w http.ResponseWriter, r *http.Request) {
	const op = "api.create_event"
	var req eventRequest
	if err := decodeBody(w, r, &req); err != nil {
		writeFailure(w, op, err)
		return
	}
	ev, err := h.deps.CreateEvent(r.Context(), model.Event{ID: req.ID, Name: req.Name})
	if err != nil {
		writeFailure(w, op, err)
		return
	}
	writeJSON(w, http.StatusCreated, ev)
}

// HandleGetEvent handles GET /events/{eventID} requests.
func (h *EventsHandler) HandleGetEvent(w http.ResponseWriter, r *http.Request) {
	const op = "api.get_event"
	ev, err := h.deps.GetEvent(r.Context(), pathVar(r, "eventID"))
	if err != nil {
		writeFailure(w, op, err)
		return
	}
	writeJSON(w, http.StatusOK, ev)
}
