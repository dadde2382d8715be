package model

import "time"

// Assignment binds a task to the member chosen for it.
type Assignment struct {
	ID         string    `json:"id" bson:"id"`
	TaskID     string    `json:"task_id" bson:"task_id"`
	MemberID   string    `json:"member_id" bson:"member_id"`
	MemberName string    `json:"member_name" bson:"member_name"`
	CreatedAt  time.Time `json:"created_at" bson:"created_at"`
}

// CommitOutcome is the store's verdict on one assignment of a batch.
// Err is nil when the assignment was persisted.
type CommitOutcome struct {
	TaskID   string
	MemberID string
	Err      error
}

// WorkloadSnapshot counts a member's open tasks.
// HighPriorityOpenCount never exceeds OpenTaskCount.
type WorkloadSnapshot struct {
	MemberID              string `json:"member_id" bson:"_id"`
	OpenTaskCount         int    `json:"open_task_count" bson:"open"`
	HighPriorityOpenCount int    `json:"high_priority_open_count" bson:"high"`
}
