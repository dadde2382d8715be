package api

import (
	"context"
	"net/http"

	"github.com/okian/taskforce/internal/domain/model"
)

// TaskDependencies defines the interface for task operations.
type TaskDependencies interface {
	AddTask(ctx context.Context, eventID string, t model.Task) (model.Task, error)
	ListTasks(ctx context.Context, eventID string) ([]model.Task, error)
	CompleteTask(ctx context.Context, eventID, taskID string) (model.Task, error)
}

type taskRequest struct {
	ID             string   `json:"id"`
	TeamID         string   `json:"team_id"`
	Title          string   `json:"title"`
	RequiredSkills []string `json:"required_skills"`
	Priority       string   `json:"priority"`
}

// TasksHandler handles task requests.
type TasksHandler struct {
	deps TaskDependencies
}

// NewTasksHandler creates a new tasks handler.
func NewTasksHandler(deps TaskDependencies) *TasksHandler {
	return &TasksHandler{deps: deps}
}

// HandleAddTask handles POST /events/{eventID}/tasks requests.
func (h *TasksHandler) HandleAddTask(w http.ResponseWriter, r *http.Request) {
	const op = "api.add_task"
	var req taskRequest
	if err := decodeBody(w, r, &req); err != nil {
		writeFailure(w, op, err)
		return
	}
	t, err := h.deps.AddTask(r.Context(), pathVar(r, "eventID"), model.Task{
		ID:             req.ID,
		TeamID:         req.TeamID,
		Title:          req.Title,
		RequiredSkills: req.RequiredSkills,
		Priority:       model.ParsePriority(req.Priority),
	})
	if err != nil {
		writeFailure(w, op, err)
		return
	}
	writeJSON(w, http.StatusCreated, t)
}

// HandleListTasks handles GET /events/{eventID}/tasks requests.
func (h *TasksHandler) HandleListTasks(w http.ResponseWriter, r *http.Request) {
	const op = "api.list_tasks"
	tasks, err := h.deps.ListTasks(r.Context(), pathVar(r, "eventID"))
	if err != nil {
		writeFailure(w, op, err)
		return
	}
	writeJSON(w, http.StatusOK, newList(tasks))
}

// HandleCompleteTask handles POST /events/{eventID}/tasks/{taskID}/complete requests.
func (h *TasksHandler) HandleCompleteTask(w http.ResponseWriter, r *http.Request) {
	const op = "api.complete_task"
	t, err := h.deps.CompleteTask(r.Context(), pathVar(r, "eventID"), pathVar(r, "taskID"))
	if err != nil {
		writeFailure(w, op, err)
		return
	}
	writeJSON(w, http.StatusOK, t)
}
