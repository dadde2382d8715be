package repository

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/okian/taskforce/internal/domain/allocation"
	"github.com/okian/taskforce/internal/domain/model"
	"github.com/okian/taskforce/pkg/metrics"
)

const defaultMetricsUpdateInterval = 5 * time.Second

var _ Store = (*MemoryStore)(nil)

// MemoryStore is an in-process Store. Rosters and task lists keep insertion
// order, which is the order the gateway reads return.
type MemoryStore struct {
	mu      sync.RWMutex
	events  map[string]model.Event
	members map[string]model.Member // member id -> member
	tasks   map[string]model.Task   // task id -> task
	roster  map[string][]string     // event id -> member ids in join order
	backlog map[string][]string     // event id -> task ids in creation order

	now                   func() time.Time
	metricsUpdateInterval time.Duration

	wg       sync.WaitGroup
	stopOnce sync.Once
	stopChan chan struct{}
}

// NewMemoryStore constructs an empty store and starts its metrics updater.
func NewMemoryStore(ctx context.Context, opts ...Option) *MemoryStore {
	s := &MemoryStore{
		events:                make(map[string]model.Event),
		members:               make(map[string]model.Member),
		tasks:                 make(map[string]model.Task),
		roster:                make(map[string][]string),
		backlog:               make(map[string][]string),
		now:                   time.Now,
		metricsUpdateInterval: defaultMetricsUpdateInterval,
		stopChan:              make(chan struct{}),
	}
	for _, opt := range opts {
		opt(s)
	}
	s.startMetricsUpdater(ctx)
	return s
}

// Close stops the background metrics updater.
func (s *MemoryStore) Close(_ context.Context) error {
	s.stopOnce.Do(func() { close(s.stopChan) })
	s.wg.Wait()
	return nil
}

func (s *MemoryStore) CreateEvent(_ context.Context, ev model.Event) error {
	if ev.ID == "" {
		return fmt.Errorf("%w: event id is required", ErrInvalid)
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.events[ev.ID]; ok {
		return fmt.Errorf("event %s: %w", ev.ID, ErrConflict)
	}
	if ev.CreatedAt.IsZero() {
		ev.CreatedAt = s.now()
	}
	s.events[ev.ID] = ev
	return nil
}

func (s *MemoryStore) GetEvent(_ context.Context, eventID string) (model.Event, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	ev, ok := s.events[eventID]
	if !ok {
		return model.Event{}, fmt.Errorf("event %s: %w", eventID, ErrNotFound)
	}
	return ev, nil
}

func (s *MemoryStore) UpsertMember(_ context.Context, m model.Member) error {
	m = m.Normalize()
	if m.ID == "" {
		return fmt.Errorf("%w: member id is required", ErrInvalid)
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.events[m.EventID]; !ok {
		return fmt.Errorf("event %s: %w", m.EventID, ErrNotFound)
	}
	if prev, ok := s.members[m.ID]; ok {
		if prev.EventID != m.EventID {
			return fmt.Errorf("member %s belongs to event %s: %w", m.ID, prev.EventID, ErrConflict)
		}
		m.JoinedAt = prev.JoinedAt
		s.members[m.ID] = m
		return nil
	}
	if m.JoinedAt.IsZero() {
		m.JoinedAt = s.now()
	}
	s.members[m.ID] = m
	s.roster[m.EventID] = append(s.roster[m.EventID], m.ID)
	return nil
}

func (s *MemoryStore) ListMembers(_ context.Context, eventID string) ([]model.Member, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if _, ok := s.events[eventID]; !ok {
		return nil, fmt.Errorf("event %s: %w", eventID, ErrNotFound)
	}
	return s.rosterLocked(eventID), nil
}

func (s *MemoryStore) CreateTask(_ context.Context, t model.Task) error {
	t = t.Normalize()
	if t.ID == "" {
		return fmt.Errorf("%w: task id is required", ErrInvalid)
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.events[t.EventID]; !ok {
		return fmt.Errorf("event %s: %w", t.EventID, ErrNotFound)
	}
	if _, ok := s.tasks[t.ID]; ok {
		return fmt.Errorf("task %s: %w", t.ID, ErrConflict)
	}
	if t.CreatedAt.IsZero() {
		t.CreatedAt = s.now()
	}
	s.tasks[t.ID] = t
	s.backlog[t.EventID] = append(s.backlog[t.EventID], t.ID)
	return nil
}

func (s *MemoryStore) ListTasks(_ context.Context, eventID string) ([]model.Task, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if _, ok := s.events[eventID]; !ok {
		return nil, fmt.Errorf("event %s: %w", eventID, ErrNotFound)
	}
	ids := s.backlog[eventID]
	out := make([]model.Task, 0, len(ids))
	for _, id := range ids {
		out = append(out, s.tasks[id])
	}
	return out, nil
}

func (s *MemoryStore) CompleteTask(_ context.Context, eventID, taskID string) (model.Task, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	t, ok := s.tasks[taskID]
	if !ok || t.EventID != eventID {
		return model.Task{}, fmt.Errorf("task %s: %w", taskID, ErrNotFound)
	}
	t.Completed = true
	s.tasks[taskID] = t
	return t, nil
}

// FetchUnassignedTasks implements allocation.Gateway.
func (s *MemoryStore) FetchUnassignedTasks(ctx context.Context, eventID string) ([]model.Task, error) {
	start := time.Now()
	defer observe("fetch_tasks", start)

	all, err := s.ListTasks(ctx, eventID)
	if err != nil {
		return nil, err
	}
	out := make([]model.Task, 0, len(all))
	for _, t := range all {
		if t.IsOpen() && !t.IsAssigned() {
			out = append(out, t)
		}
	}
	return out, nil
}

// FetchRoster implements allocation.Gateway.
func (s *MemoryStore) FetchRoster(ctx context.Context, eventID string) ([]model.Member, error) {
	start := time.Now()
	defer observe("fetch_roster", start)
	return s.ListMembers(ctx, eventID)
}

// FetchOpenWorkload implements allocation.Gateway.
func (s *MemoryStore) FetchOpenWorkload(_ context.Context, memberIDs []string) (map[string]model.WorkloadSnapshot, error) {
	start := time.Now()
	defer observe("fetch_workload", start)

	s.mu.RLock()
	defer s.mu.RUnlock()
	tasks := make([]model.Task, 0, len(s.tasks))
	for _, t := range s.tasks {
		tasks = append(tasks, t)
	}
	return allocation.AggregateWorkload(memberIDs, tasks), nil
}

// CommitAssignments implements allocation.Gateway. Each assignment is applied
// on its own; a rejected one does not roll back the others.
func (s *MemoryStore) CommitAssignments(_ context.Context, batch []model.Assignment) ([]model.CommitOutcome, error) {
	start := time.Now()
	defer observe("commit", start)

	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]model.CommitOutcome, len(batch))
	for i, a := range batch {
		out[i] = model.CommitOutcome{TaskID: a.TaskID, MemberID: a.MemberID, Err: s.applyLocked(a)}
	}
	return out, nil
}

func (s *MemoryStore) applyLocked(a model.Assignment) error {
	t, ok := s.tasks[a.TaskID]
	switch {
	case !ok:
		return fmt.Errorf("task %s: %w", a.TaskID, ErrNotFound)
	case t.Completed:
		return fmt.Errorf("task %s: %w", a.TaskID, ErrTaskCompleted)
	case t.IsAssigned():
		return fmt.Errorf("task %s: %w", a.TaskID, ErrAlreadyAssigned)
	}
	if _, ok := s.members[a.MemberID]; !ok {
		return fmt.Errorf("member %s: %w", a.MemberID, ErrNotFound)
	}
	assignment := a
	t.Assignment = &assignment
	s.tasks[a.TaskID] = t
	return nil
}

func (s *MemoryStore) rosterLocked(eventID string) []model.Member {
	ids := s.roster[eventID]
	out := make([]model.Member, 0, len(ids))
	for _, id := range ids {
		out = append(out, s.members[id])
	}
	return out
}

// startMetricsUpdater starts a background goroutine that publishes record counts.
func (s *MemoryStore) startMetricsUpdater(ctx context.Context) {
	s.wg.Add(1)
	go func() {
		defer s.wg.Done()
		ticker := time.NewTicker(s.metricsUpdateInterval)
		defer ticker.Stop()

		for {
			select {
			case <-ctx.Done():
				return
			case <-s.stopChan:
				return
			case <-ticker.C:
				s.updateMetrics()
			}
		}
	}()
}

func (s *MemoryStore) updateMetrics() {
	s.mu.RLock()
	events, members, tasks := len(s.events), len(s.members), len(s.tasks)
	s.mu.RUnlock()

	metrics.UpdateStoreRecords("events", events)
	metrics.UpdateStoreRecords("members", members)
	metrics.UpdateStoreRecords("tasks", tasks)
}

func observe(op string, start time.Time) {
	metrics.RecordStoreLatency(op, float64(time.Since(start).Milliseconds()))
}
