// Package seed drives a running taskforce server with a generated event and
// checks the allocation it produces.
package seed

import (
	"fmt"
	"time"
)

// Config holds configuration for a seed run.
type Config struct {
	BaseURL        string        // Base URL of the service
	Teams          int           // Number of staffed teams
	MembersPerTeam int           // Members generated per team
	Tasks          int           // Tasks spread over the staffed teams
	OrphanTasks    int           // Tasks for a team with no members
	Workers        int           // Concurrent HTTP workers
	Timeout        time.Duration // HTTP request timeout
	Async          bool          // Submit the pass and poll instead of allocating inline
	PollInterval   time.Duration // Job polling interval in async mode
	Seed           uint64        // Generator seed; 0 picks one from the clock
	Verbose        bool          // Log every verified assignment
}

// eventRequest mirrors the POST /events body.
type eventRequest struct {
	Name string `json:"name"`
}

type eventResponse struct {
	ID   string `json:"id"`
	Name string `json:"name"`
}

// MemberRequest is a generated roster member.
type MemberRequest struct {
	ID     string   `json:"id"`
	TeamID string   `json:"team_id"`
	Name   string   `json:"name"`
	Skills []string `json:"skills"`
}

// TaskRequest is a generated task.
type TaskRequest struct {
	ID             string   `json:"id"`
	TeamID         string   `json:"team_id"`
	Title          string   `json:"title"`
	RequiredSkills []string `json:"required_skills"`
	Priority       string   `json:"priority"`
}

// assignmentEntry is one row of an allocation response.
type assignmentEntry struct {
	TaskID   string `json:"task_id"`
	MemberID string `json:"member_id"`
	Status   string `json:"status"`
	Error    string `json:"error,omitempty"`
}

// allocationResult mirrors the allocation response body.
type allocationResult struct {
	EventID           string            `json:"event_id"`
	AssignedCount     int               `json:"assigned_count"`
	Assignments       []assignmentEntry `json:"assignments"`
	UnassignedTaskIDs []string          `json:"unassigned_task_ids"`
	FailedTaskIDs     []string          `json:"failed_task_ids"`
}

type jobResponse struct {
	ID     string            `json:"id"`
	State  string            `json:"state"`
	Result *allocationResult `json:"result,omitempty"`
	Error  string            `json:"error,omitempty"`
}

type storedTask struct {
	ID         string `json:"id"`
	TeamID     string `json:"team_id"`
	Assignment *struct {
		MemberID string `json:"member_id"`
	} `json:"assignment,omitempty"`
}

type taskList struct {
	Items []storedTask `json:"items"`
}

// Stats holds run statistics.
type Stats struct {
	MembersCreated int
	TasksCreated   int
	RequestsFailed int
	Assigned       int
	Unassigned     int
	FailedCommits  int
	MaxTeamSpread  int
	StartTime      time.Time
	EndTime        time.Time
	Duration       time.Duration
}

// Validate rejects configs that cannot produce a meaningful run.
func (c *Config) Validate() error {
	switch {
	case c.BaseURL == "":
		return fmt.Errorf("%w: url is required", ErrInvalidConfig)
	case c.Teams < 1 || c.MembersPerTeam < 1:
		return fmt.Errorf("%w: need at least one team with one member", ErrInvalidConfig)
	case c.Tasks < 0 || c.OrphanTasks < 0:
		return fmt.Errorf("%w: task counts must not be negative", ErrInvalidConfig)
	case c.Workers < 1:
		return fmt.Errorf("%w: workers must be positive", ErrInvalidConfig)
	}
	return nil
}
