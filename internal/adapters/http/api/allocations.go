package api

import (
	"context"
	"net/http"
	"strconv"

	"github.com/okian/taskforce/internal/domain/types"
)

// AllocationDependencies defines the interface for allocation passes.
type AllocationDependencies interface {
	Allocate(ctx context.Context, eventID string) (types.AllocationResult, error)
	Preview(ctx context.Context, eventID string) (types.AllocationResult, error)
	SubmitAllocation(ctx context.Context, eventID string) (types.Job, error)
	Job(ctx context.Context, jobID string) (types.Job, error)
}

// AllocationsHandler handles allocation requests.
type AllocationsHandler struct {
	deps AllocationDependencies
}

// NewAllocationsHandler creates a new allocations handler.
func NewAllocationsHandler(deps AllocationDependencies) *AllocationsHandler {
	return &AllocationsHandler{deps: deps}
}

// HandleAllocate handles POST /events/{eventID}/allocate[?dry_run=true].
func (h *AllocationsHandler) HandleAllocate(w http.ResponseWriter, r *http.Request) {
	const op = "api.allocate"
	dryRun := false
	if raw := r.URL.Query().Get("dry_run"); raw != "" {
		v, err := strconv.ParseBool(raw)
		if err != nil {
			writeFailure(w, op, WrapKind("dry_run", ErrBadRequest, err))
			return
		}
		dryRun = v
	}

	eventID := pathVar(r, "eventID")
	var (
		res types.AllocationResult
		err error
	)
	if dryRun {
		res, err = h.deps.Preview(r.Context(), eventID)
	} else {
		res, err = h.deps.Allocate(r.Context(), eventID)
	}
	if err != nil {
		writeFailure(w, op, err)
		return
	}
	writeJSON(w, http.StatusOK, res)
}

// HandleSubmit handles POST /events/{eventID}/allocations requests.
func (h *AllocationsHandler) HandleSubmit(w http.ResponseWriter, r *http.Request) {
	const op = "api.submit_allocation"
	job, err := h.deps.SubmitAllocation(r.Context(), pathVar(r, "eventID"))
	if err != nil {
		writeFailure(w, op, err)
		return
	}
	w.Header().Set("Location", "/allocations/"+job.ID)
	writeJSON(w, http.StatusAccepted, job)
}

// HandleGetJob handles GET /allocations/{jobID} requests.
func (h *AllocationsHandler) HandleGetJob(w http.ResponseWriter, r *http.Request) {
	const op = "api.get_allocation"
	job, err := h.deps.Job(r.Context(), pathVar(r, "jobID"))
	if err != nil {
		writeFailure(w, op, err)
		return
	}
	writeJSON(w, http.StatusOK, job)
}
