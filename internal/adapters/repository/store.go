// Package repository holds the event, roster and task stores the allocation
// engine reads from and commits to.
package repository

import (
	"context"

	"github.com/okian/taskforce/internal/domain/allocation"
	"github.com/okian/taskforce/internal/domain/model"
)

// Store provides read/write access to events, rosters and tasks.
// Every Store is also an allocation.Gateway.
type Store interface {
	allocation.Gateway

	// CreateEvent stores a new event. Returns ErrConflict if the id exists.
	CreateEvent(ctx context.Context, ev model.Event) error
	// GetEvent returns ErrNotFound if the event is unknown.
	GetEvent(ctx context.Context, eventID string) (model.Event, error)

	// UpsertMember adds a member to the event roster or replaces its profile.
	// A replaced member keeps its roster position.
	UpsertMember(ctx context.Context, m model.Member) error
	// ListMembers returns the roster in roster order.
	ListMembers(ctx context.Context, eventID string) ([]model.Member, error)

	// CreateTask stores a new task. Returns ErrConflict if the id exists.
	CreateTask(ctx context.Context, t model.Task) error
	// ListTasks returns every task of the event in creation order.
	ListTasks(ctx context.Context, eventID string) ([]model.Task, error)
	// CompleteTask marks a task done so it stops counting toward load.
	CompleteTask(ctx context.Context, eventID, taskID string) (model.Task, error)

	// Close releases resources held by the store.
	Close(ctx context.Context) error
}
