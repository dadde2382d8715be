// Package model contains domain models passed between layers.
package model

import "time"

// Event groups the teams, members and tasks that are allocated together.
type Event struct {
	ID        string    `json:"id" bson:"_id"`
	Name      string    `json:"name" bson:"name"`
	CreatedAt time.Time `json:"created_at" bson:"created_at"`
}

// AllocationJob is a queued request to run an allocation pass for an event.
type AllocationJob struct {
	ID          string    // job id returned to the submitter
	EventID     string    // event whose unassigned tasks are allocated
	SubmittedAt time.Time // enqueue time
}
