package repository

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/sony/gobreaker"

	"github.com/okian/taskforce/internal/domain/model"
	"github.com/okian/taskforce/pkg/logger"
	"github.com/okian/taskforce/pkg/metrics"
)

const (
	defaultBreakerName        = "store"
	defaultBreakerTimeout     = 5 * time.Second
	defaultBreakerThreshold   = 3
	defaultHalfOpenRequests   = 1
	defaultBreakerResetWindow = 0 // counts reset only on state change
)

var _ Store = (*Guarded)(nil)

// Guarded runs every call of an inner Store through a circuit breaker.
// Caller mistakes (not found, conflicts, invalid input, assignment races)
// never count as failures; only unavailability does.
type Guarded struct {
	inner Store
	cb    *gobreaker.CircuitBreaker
	name  string
}

// NewGuarded wraps inner with a circuit breaker.
func NewGuarded(inner Store, opts ...GuardOption) *Guarded {
	cfg := guardSettings{
		name:                defaultBreakerName,
		maxRequests:         defaultHalfOpenRequests,
		interval:            defaultBreakerResetWindow,
		timeout:             defaultBreakerTimeout,
		consecutiveFailures: defaultBreakerThreshold,
	}
	for _, opt := range opts {
		opt(&cfg)
	}

	log := logger.Get().Named("repository")
	g := &Guarded{inner: inner, name: cfg.name}
	g.cb = gobreaker.NewCircuitBreaker(gobreaker.Settings{
		Name:        cfg.name,
		MaxRequests: cfg.maxRequests,
		Interval:    cfg.interval,
		Timeout:     cfg.timeout,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			return counts.ConsecutiveFailures >= cfg.consecutiveFailures
		},
		OnStateChange: func(name string, from, to gobreaker.State) {
			log.Warn(context.Background(), "circuit breaker state changed",
				logger.String("breaker", name),
				logger.String("from", from.String()),
				logger.String("to", to.String()),
			)
			metrics.UpdateBreakerState(name, int(to))
		},
		IsSuccessful: countsAsSuccess,
	})
	metrics.UpdateBreakerState(cfg.name, int(gobreaker.StateClosed))
	return g
}

func countsAsSuccess(err error) bool {
	if err == nil {
		return true
	}
	return !errors.Is(err, ErrUnavailable) &&
		!errors.Is(err, context.DeadlineExceeded)
}

// State returns the breaker state name (closed, half-open, open).
func (g *Guarded) State() string {
	return g.cb.State().String()
}

func guard[T any](g *Guarded, op string, fn func() (T, error)) (T, error) {
	v, err := g.cb.Execute(func() (interface{}, error) {
		return fn()
	})
	if err != nil {
		var zero T
		if errors.Is(err, gobreaker.ErrOpenState) || errors.Is(err, gobreaker.ErrTooManyRequests) {
			metrics.RecordStoreOperation(op, "rejected")
			return zero, fmt.Errorf("%w: %s breaker: %w", ErrUnavailable, g.name, err)
		}
		metrics.RecordStoreOperation(op, "error")
		return zero, err
	}
	metrics.RecordStoreOperation(op, "ok")
	out, _ := v.(T)
	return out, nil
}

func (g *Guarded) CreateEvent(ctx context.Context, ev model.Event) error {
	_, err := guard(g, "create_event", func() (struct{}, error) {
		return struct{}{}, g.inner.CreateEvent(ctx, ev)
	})
	return err
}

func (g *Guarded) GetEvent(ctx context.Context, eventID string) (model.Event, error) {
	return guard(g, "get_event", func() (model.Event, error) {
		return g.inner.GetEvent(ctx, eventID)
	})
}

func (g *Guarded) UpsertMember(ctx context.Context, m model.Member) error {
	_, err := guard(g, "upsert_member", func() (struct{}, error) {
		return struct{}{}, g.inner.UpsertMember(ctx, m)
	})
	return err
}

func (g *Guarded) ListMembers(ctx context.Context, eventID string) ([]model.Member, error) {
	return guard(g, "list_members", func() ([]model.Member, error) {
		return g.inner.ListMembers(ctx, eventID)
	})
}

func (g *Guarded) CreateTask(ctx context.Context, t model.Task) error {
	_, err := guard(g, "create_task", func() (struct{}, error) {
		return struct{}{}, g.inner.CreateTask(ctx, t)
	})
	return err
}

func (g *Guarded) ListTasks(ctx context.Context, eventID string) ([]model.Task, error) {
	return guard(g, "list_tasks", func() ([]model.Task, error) {
		return g.inner.ListTasks(ctx, eventID)
	})
}

func (g *Guarded) CompleteTask(ctx context.Context, eventID, taskID string) (model.Task, error) {
	return guard(g, "complete_task", func() (model.Task, error) {
		return g.inner.CompleteTask(ctx, eventID, taskID)
	})
}

func (g *Guarded) FetchUnassignedTasks(ctx context.Context, eventID string) ([]model.Task, error) {
	return guard(g, "fetch_tasks", func() ([]model.Task, error) {
		return g.inner.FetchUnassignedTasks(ctx, eventID)
	})
}

func (g *Guarded) FetchRoster(ctx context.Context, eventID string) ([]model.Member, error) {
	return guard(g, "fetch_roster", func() ([]model.Member, error) {
		return g.inner.FetchRoster(ctx, eventID)
	})
}

func (g *Guarded) FetchOpenWorkload(ctx context.Context, memberIDs []string) (map[string]model.WorkloadSnapshot, error) {
	return guard(g, "fetch_workload", func() (map[string]model.WorkloadSnapshot, error) {
		return g.inner.FetchOpenWorkload(ctx, memberIDs)
	})
}

func (g *Guarded) CommitAssignments(ctx context.Context, batch []model.Assignment) ([]model.CommitOutcome, error) {
	return guard(g, "commit", func() ([]model.CommitOutcome, error) {
		return g.inner.CommitAssignments(ctx, batch)
	})
}

// Close closes the inner store; it bypasses the breaker.
func (g *Guarded) Close(ctx context.Context) error {
	return g.inner.Close(ctx)
}
