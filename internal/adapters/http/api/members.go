package api

import (
	"context"
	"net/http"

	"github.com/okian/taskforce/internal/domain/model"
)

// MemberDependencies defines the interface for roster operations.
type MemberDependencies interface {
	AddMember(ctx context.Context, eventID string, m model.Member) (model.Member, error)
	ListMembers(ctx context.Context, eventID string) ([]model.Member, error)
}

type memberRequest struct {
	ID     string   `json:"id"`
	TeamID string   `json:"team_id"`
	Name   string   `json:"name"`
	Skills []string `json:"skills"`
}

// MembersHandler handles roster requests.
type MembersHandler struct {
	deps MemberDependencies
}

// NewMembersHandler creates a new members handler.
func NewMembersHandler(deps MemberDependencies) *MembersHandler {
	return &MembersHandler{deps: deps}
}

// HandleAddMember handles POST /events/{eventID}/members requests.
func (h *MembersHandler) HandleAddMember(w http.ResponseWriter, r *http.Request) {
	const op = "api.add_member"
	var req memberRequest
	if err := decodeBody(w, r, &req); err != nil {
		writeFailure(w, op, err)
		return
	}
	m, err := h.deps.AddMember(r.Context(), pathVar(r, "eventID"), model.Member{
		ID:     req.ID,
		TeamID: req.TeamID,
		Name:   req.Name,
		Skills: req.Skills,
	})
	if err != nil {
		writeFailure(w, op, err)
		return
	}
	writeJSON(w, http.StatusCreated, m)
}

// HandleListMembers handles GET /events/{eventID}/members requests.
func (h *MembersHandler) HandleListMembers(w http.ResponseWriter, r *http.Request) {
	const op = "api.list_members"
	members, err := h.deps.ListMembers(r.Context(), pathVar(r, "eventID"))
	if err != nil {
		writeFailure(w, op, err)
		return
	}
	writeJSON(w, http.StatusOK, newList(members))
}
