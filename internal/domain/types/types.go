// Package types contains the wire shapes returned by the application layer.
package types

import "time"

// Assignment statuses reported per row of an allocation response.
const (
	StatusCommitted = "committed"
	StatusPlanned   = "planned"
	StatusFailed    = "failed"
)

// Entry represents one proposed assignment and how its commit went.
type Entry struct {
	TaskID     string `json:"task_id"`
	MemberID   string `json:"member_id"`
	MemberName string `json:"member_name,omitempty"`
	Status     string `json:"status"`
	Error      string `json:"error,omitempty"`
}

// AllocationResult is the response body of an allocation pass.
type AllocationResult struct {
	EventID           string   `json:"event_id"`
	AssignedCount     int      `json:"assigned_count"`
	Assignments       []Entry  `json:"assignments"`
	UnassignedTaskIDs []string `json:"unassigned_task_ids"`
	FailedTaskIDs     []string `json:"failed_task_ids"`
	DryRun            bool     `json:"dry_run"`
}

// Job states for asynchronously submitted passes.
const (
	JobQueued    = "queued"
	JobRunning   = "running"
	JobSucceeded = "succeeded"
	JobFailed    = "failed"
)

// Job is the status of a submitted allocation.
type Job struct {
	ID          string            `json:"id"`
	EventID     string            `json:"event_id"`
	State       string            `json:"state"`
	SubmittedAt time.Time         `json:"submitted_at"`
	FinishedAt  *time.Time        `json:"finished_at,omitempty"`
	Result      *AllocationResult `json:"result,omitempty"`
	Error       string            `json:"error,omitempty"`
}

// Done reports whether the job reached a terminal state.
func (j Job) Done() bool {
	return j.State == JobSucceeded || j.State == JobFailed
}

// Failed counts rows whose commit did not succeed.
func (r AllocationResult) Failed() int {
	n := 0
	for _, e := range r.Assignments {
		if e.Status == StatusFailed {
			n++
		}
	}
	return n
}
