// Package api declares HTTP contracts and route registration helpers.
package api

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"

	"github.com/gorilla/mux"

	"github.com/okian/taskforce/internal/adapters/repository"
	service "github.com/okian/taskforce/internal/app"
)

// maxBodyBytes caps request bodies.
const maxBodyBytes = 1 << 20

// Dependencies required by HTTP handlers. Using an interface bundle keeps
// the handler layer loosely coupled to implementations in other packages.
type Dependencies interface {
	EventDependencies
	MemberDependencies
	TaskDependencies
	AllocationDependencies
}

// Server wires HTTP routes for the business API.
type Server struct {
	opsHandler         *OpsHandler
	eventsHandler      *EventsHandler
	membersHandler     *MembersHandler
	tasksHandler       *TasksHandler
	allocationsHandler *AllocationsHandler
}

// NewServer creates a new API server with all handlers.
func NewServer(deps Dependencies, statsProvider StatsProvider) *Server {
	return &Server{
		opsHandler:         NewOpsHandler(statsProvider),
		eventsHandler:      NewEventsHandler(deps),
		membersHandler:     NewMembersHandler(deps),
		tasksHandler:       NewTasksHandler(deps),
		allocationsHandler: NewAllocationsHandler(deps),
	}
}

// Register attaches all HTTP routes to r.
func (s *Server) Register(_ context.Context, r *mux.Router) {
	r.HandleFunc("/healthz", MetricsMiddleware(s.opsHandler.HandleHealth, "healthz")).Methods(http.MethodGet)
	r.HandleFunc("/stats", MetricsMiddleware(s.opsHandler.HandleStats, "stats")).Methods(http.MethodGet)

	r.HandleFunc("/events", MetricsMiddleware(s.eventsHandler.HandleCreateEvent, "events")).Methods(http.MethodPost)
	r.HandleFunc("/events/{eventID}", MetricsMiddleware(s.eventsHandler.HandleGetEvent, "event")).Methods(http.MethodGet)

	r.HandleFunc("/events/{eventID}/members", MetricsMiddleware(s.membersHandler.HandleAddMember, "members")).Methods(http.MethodPost)
	r.HandleFunc("/events/{eventID}/members", MetricsMiddleware(s.membersHandler.HandleListMembers, "members")).Methods(http.MethodGet)

	r.HandleFunc("/events/{eventID}/tasks", MetricsMiddleware(s.tasksHandler.HandleAddTask, "tasks")).Methods(http.MethodPost)
	r.HandleFunc("/events/{eventID}/tasks", MetricsMiddleware(s.tasksHandler.HandleListTasks, "tasks")).Methods(http.MethodGet)
	r.HandleFunc("/events/{eventID}/tasks/{taskID}/complete", MetricsMiddleware(s.tasksHandler.HandleCompleteTask, "complete_task")).Methods(http.MethodPost)

	r.HandleFunc("/events/{eventID}/allocate", MetricsMiddleware(s.allocationsHandler.HandleAllocate, "allocate")).Methods(http.MethodPost)
	r.HandleFunc("/events/{eventID}/allocations", MetricsMiddleware(s.allocationsHandler.HandleSubmit, "allocations")).Methods(http.MethodPost)
	r.HandleFunc("/allocations/{jobID}", MetricsMiddleware(s.allocationsHandler.HandleGetJob, "allocation_job")).Methods(http.MethodGet)
}

type errorResponse struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, code string, err error) {
	msg := http.StatusText(status)
	if err != nil {
		msg = err.Error()
	}
	writeJSON(w, status, errorResponse{Code: code, Message: msg})
}

// writeFailure maps a domain error onto its status and error code.
func writeFailure(w http.ResponseWriter, op string, err error) {
	status, code := classify(err)
	writeError(w, status, code, Wrap(op, err))
}

func classify(err error) (int, string) {
	switch {
	case errors.Is(err, ErrBadRequest),
		errors.Is(err, service.ErrInvalidInput),
		errors.Is(err, repository.ErrInvalid):
		return http.StatusBadRequest, "bad_request"
	case errors.Is(err, repository.ErrNotFound),
		errors.Is(err, service.ErrJobNotFound):
		return http.StatusNotFound, "not_found"
	case errors.Is(err, service.ErrPassInProgress):
		return http.StatusConflict, "pass_in_progress"
	case errors.Is(err, repository.ErrConflict),
		errors.Is(err, repository.ErrTaskCompleted),
		errors.Is(err, repository.ErrAlreadyAssigned):
		return http.StatusConflict, "conflict"
	case errors.Is(err, ErrBackpressure),
		errors.Is(err, service.ErrBackpressure):
		return http.StatusTooManyRequests, "backpressure"
	case errors.Is(err, repository.ErrUnavailable),
		errors.Is(err, service.ErrNotStarted):
		return http.StatusServiceUnavailable, "unavailable"
	default:
		return http.StatusInternalServerError, "internal_error"
	}
}

// decodeBody reads a JSON request body into v.
func decodeBody(w http.ResponseWriter, r *http.Request, v any) error {
	r.Body = http.MaxBytesReader(w, r.Body, maxBodyBytes)
	if err := json.NewDecoder(r.Body).Decode(v); err != nil {
		return WrapKind("decode", ErrBadRequest, err)
	}
	return nil
}

// listResponse wraps collections so empty results encode as [].
type listResponse[T any] struct {
	Items []T `json:"items"`
	Count int `json:"count"`
}

func newList[T any](items []T) listResponse[T] {
	if items == nil {
		items = []T{}
	}
	return listResponse[T]{Items: items, Count: len(items)}
}

func pathVar(r *http.Request, name string) string {
	return mux.Vars(r)[name]
}
