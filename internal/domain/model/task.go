package model

import (
	"strings"
	"time"
)

// Priority ranks how urgent a task is.
type Priority string

// Known priorities. Anything else normalizes to PriorityMedium.
const (
	PriorityLow    Priority = "low"
	PriorityMedium Priority = "medium"
	PriorityHigh   Priority = "high"
)

// ParsePriority maps a raw value to a Priority. Missing or unknown values
// default to medium.
func ParsePriority(raw string) Priority {
	switch Priority(strings.ToLower(strings.TrimSpace(raw))) {
	case PriorityLow:
		return PriorityLow
	case PriorityHigh:
		return PriorityHigh
	default:
		return PriorityMedium
	}
}

// Task is a unit of work belonging to one team of an event.
type Task struct {
	ID             string      `json:"id" bson:"_id"`
	EventID        string      `json:"event_id" bson:"event_id"`
	TeamID         string      `json:"team_id" bson:"team_id"`
	Title          string      `json:"title" bson:"title"`
	RequiredSkills []string    `json:"required_skills" bson:"required_skills"`
	Priority       Priority    `json:"priority" bson:"priority"`
	Completed      bool        `json:"completed" bson:"completed"`
	Assignment     *Assignment `json:"assignment,omitempty" bson:"assignment,omitempty"`
	CreatedAt      time.Time   `json:"created_at" bson:"created_at"`
}

// Normalize returns a copy of the task with input defaults applied.
func (t Task) Normalize() Task {
	t.ID = strings.TrimSpace(t.ID)
	t.TeamID = strings.TrimSpace(t.TeamID)
	t.RequiredSkills = NormalizeSkills(t.RequiredSkills)
	t.Priority = ParsePriority(string(t.Priority))
	return t
}

// IsHighPriority reports whether the task counts toward high-priority load.
func (t Task) IsHighPriority() bool {
	return ParsePriority(string(t.Priority)) == PriorityHigh
}

// IsAssigned reports whether the task already has an assignee.
func (t Task) IsAssigned() bool {
	return t.Assignment != nil
}

// IsOpen reports whether the task still counts toward its assignee's load.
func (t Task) IsOpen() bool {
	return !t.Completed
}
