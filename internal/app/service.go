// Package service provides the core business service that implements
// the dependencies required by the HTTP API.
package service

import (
	"context"
	"fmt"
	"runtime"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	jobqueue "github.com/okian/taskforce/internal/adapters/mq/queue"
	workerpool "github.com/okian/taskforce/internal/adapters/mq/worker"
	"github.com/okian/taskforce/internal/adapters/repository"
	"github.com/okian/taskforce/internal/domain/allocation"
	"github.com/okian/taskforce/internal/domain/lease"
	"github.com/okian/taskforce/internal/domain/model"
	"github.com/okian/taskforce/internal/domain/types"
	"github.com/okian/taskforce/pkg/logger"
	"github.com/okian/taskforce/pkg/metrics"
)

const stopTimeout = 30 * time.Second

// Service implements the API dependencies for the allocation system.
type Service struct {
	mu sync.RWMutex

	// Core components
	store      repository.Store
	ownsStore  bool
	engine     *allocation.Engine
	leaser     lease.Leaser
	jobQueue   *jobqueue.InMemoryQueue
	workerPool *workerpool.Pool
	jobs       *jobRegistry

	// Configuration
	workerCount         int
	queueSize           int
	jobHistory          int
	jobTimeout          time.Duration
	maxConcurrentPasses int
	engineOpts          []allocation.Option
	now                 func() time.Time
	newID               func() string

	// State
	started  bool
	stopping bool
	cancel   context.CancelFunc

	logger logger.Logger
}

// New constructs a new Service with default configuration.
func New(opts ...Option) *Service {
	s := &Service{
		workerCount: runtime.NumCPU(),
		queueSize:   1024,
		jobHistory:  1000,
		jobTimeout:  30 * time.Second,
		now:         time.Now,
		newID:       uuid.NewString,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Start initializes and starts the service components. Workers outlive ctx
// and stop on Stop.
func (s *Service) Start(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.started {
		return nil
	}
	if s.logger == nil {
		s.logger = logger.Get().Named("service")
	}
	s.logger.Info(ctx, "starting allocation service...")

	if s.store == nil {
		s.store = repository.NewMemoryStore(ctx)
		s.ownsStore = true
		s.logger.Info(ctx, "using in-memory store")
	}
	s.engine = allocation.New(s.store, s.engineOpts...)
	s.leaser = lease.NewInMemoryLeaser(lease.WithMaxHeld(s.maxConcurrentPasses))
	s.jobs = newJobRegistry(s.jobHistory)
	s.jobQueue = jobqueue.NewInMemoryQueue(jobqueue.WithCapacity(s.queueSize))
	s.workerPool = workerpool.NewPool(s.workerCount, s.jobQueue, s, workerpool.WithJobTimeout(s.jobTimeout))

	runCtx, cancel := context.WithCancel(context.WithoutCancel(ctx))
	s.cancel = cancel
	s.workerPool.Start(runCtx)

	s.started = true
	s.logger.Info(ctx, "allocation service started",
		logger.Int("workers", s.workerCount),
		logger.Int("queueSize", s.queueSize),
		logger.Int("jobHistory", s.jobHistory),
	)
	return nil
}

// Stop drains queued jobs and shuts down the service. Workers keep the
// service usable while they drain, so the lock is not held meanwhile.
func (s *Service) Stop() {
	s.mu.Lock()
	if !s.started || s.stopping {
		s.mu.Unlock()
		return
	}
	s.stopping = true
	pool := s.workerPool
	s.mu.Unlock()

	ctx, cancel := context.WithTimeout(context.Background(), stopTimeout)
	defer cancel()
	s.logger.Info(ctx, "stopping allocation service...")

	if err := pool.Shutdown(ctx); err != nil {
		s.logger.Warn(ctx, "worker pool shutdown incomplete", logger.Error(err))
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	s.cancel()
	if s.ownsStore {
		if err := s.store.Close(ctx); err != nil {
			s.logger.Warn(ctx, "store close failed", logger.Error(err))
		}
		s.store = nil
		s.ownsStore = false
	}
	s.started = false
	s.stopping = false
	s.logger.Info(ctx, "allocation service stopped")
}

// running returns the live store and engine or ErrNotStarted.
func (s *Service) running() (repository.Store, *allocation.Engine, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if !s.started {
		return nil, nil, ErrNotStarted
	}
	return s.store, s.engine, nil
}

// CreateEvent stores a new event, minting an id when none is given.
func (s *Service) CreateEvent(ctx context.Context, ev model.Event) (model.Event, error) {
	store, _, err := s.running()
	if err != nil {
		return model.Event{}, err
	}
	ev.Name = strings.TrimSpace(ev.Name)
	if ev.Name == "" {
		return model.Event{}, fmt.Errorf("%w: event name is required", ErrInvalidInput)
	}
	if ev.ID == "" {
		ev.ID = s.newID()
	}
	ev.CreatedAt = s.now()
	if err := store.CreateEvent(ctx, ev); err != nil {
		return model.Event{}, err
	}
	return ev, nil
}

// GetEvent returns an event by id.
func (s *Service) GetEvent(ctx context.Context, eventID string) (model.Event, error) {
	store, _, err := s.running()
	if err != nil {
		return model.Event{}, err
	}
	return store.GetEvent(ctx, eventID)
}

// AddMember adds or updates a roster member of eventID.
func (s *Service) AddMember(ctx context.Context, eventID string, m model.Member) (model.Member, error) {
	store, _, err := s.running()
	if err != nil {
		return model.Member{}, err
	}
	m = m.Normalize()
	m.EventID = eventID
	if m.TeamID == "" {
		return model.Member{}, fmt.Errorf("%w: member team is required", ErrInvalidInput)
	}
	if m.ID == "" {
		m.ID = s.newID()
	}
	if m.JoinedAt.IsZero() {
		m.JoinedAt = s.now()
	}
	if err := store.UpsertMember(ctx, m); err != nil {
		return model.Member{}, err
	}
	return m, nil
}

// ListMembers returns the roster of eventID in roster order.
func (s *Service) ListMembers(ctx context.Context, eventID string) ([]model.Member, error) {
	store, _, err := s.running()
	if err != nil {
		return nil, err
	}
	return store.ListMembers(ctx, eventID)
}

// AddTask creates an unassigned task in eventID.
func (s *Service) AddTask(ctx context.Context, eventID string, t model.Task) (model.Task, error) {
	store, _, err := s.running()
	if err != nil {
		return model.Task{}, err
	}
	t = t.Normalize()
	t.EventID = eventID
	t.Assignment = nil
	t.Completed = false
	if t.TeamID == "" {
		return model.Task{}, fmt.Errorf("%w: task team is required", ErrInvalidInput)
	}
	if t.ID == "" {
		t.ID = s.newID()
	}
	t.CreatedAt = s.now()
	if err := store.CreateTask(ctx, t); err != nil {
		return model.Task{}, err
	}
	return t, nil
}

// ListTasks returns the tasks of eventID in creation order.
func (s *Service) ListTasks(ctx context.Context, eventID string) ([]model.Task, error) {
	store, _, err := s.running()
	if err != nil {
		return nil, err
	}
	return store.ListTasks(ctx, eventID)
}

// CompleteTask marks a task done.
func (s *Service) CompleteTask(ctx context.Context, eventID, taskID string) (model.Task, error) {
	store, _, err := s.running()
	if err != nil {
		return model.Task{}, err
	}
	return store.CompleteTask(ctx, eventID, taskID)
}

// Allocate runs a committing pass for eventID. Only one pass per event runs
// at a time; a concurrent request fails with ErrPassInProgress.
func (s *Service) Allocate(ctx context.Context, eventID string) (types.AllocationResult, error) {
	store, engine, err := s.running()
	if err != nil {
		return types.AllocationResult{}, err
	}
	if _, err := store.GetEvent(ctx, eventID); err != nil {
		return types.AllocationResult{}, err
	}
	if !s.leaser.TryAcquire(ctx, eventID) {
		metrics.RecordPassRejected()
		return types.AllocationResult{}, fmt.Errorf("%w: %s", ErrPassInProgress, eventID)
	}
	defer s.leaser.Release(ctx, eventID)

	res, err := engine.Allocate(ctx, eventID)
	if err != nil {
		return types.AllocationResult{}, err
	}
	return toAllocationResult(res), nil
}

// Preview plans a pass for eventID without committing it.
func (s *Service) Preview(ctx context.Context, eventID string) (types.AllocationResult, error) {
	store, engine, err := s.running()
	if err != nil {
		return types.AllocationResult{}, err
	}
	if _, err := store.GetEvent(ctx, eventID); err != nil {
		return types.AllocationResult{}, err
	}
	res, err := engine.Preview(ctx, eventID)
	if err != nil {
		return types.AllocationResult{}, err
	}
	return toAllocationResult(res), nil
}

// SubmitAllocation queues a pass for eventID and returns the queued job.
func (s *Service) SubmitAllocation(ctx context.Context, eventID string) (types.Job, error) {
	store, _, err := s.running()
	if err != nil {
		return types.Job{}, err
	}
	if _, err := store.GetEvent(ctx, eventID); err != nil {
		return types.Job{}, err
	}

	job := model.AllocationJob{ID: s.newID(), EventID: eventID, SubmittedAt: s.now()}
	view := types.Job{ID: job.ID, EventID: eventID, State: types.JobQueued, SubmittedAt: job.SubmittedAt}
	s.jobs.add(view)
	if err := s.jobQueue.Enqueue(ctx, job); err != nil {
		s.jobs.remove(job.ID)
		return types.Job{}, fmt.Errorf("%w: %w", ErrBackpressure, err)
	}
	s.logger.Debug(ctx, "allocation job queued",
		logger.String("jobID", job.ID),
		logger.String("eventID", eventID),
	)
	return view, nil
}

// Job returns the state of a submitted allocation.
func (s *Service) Job(_ context.Context, jobID string) (types.Job, error) {
	if _, _, err := s.running(); err != nil {
		return types.Job{}, err
	}
	j, ok := s.jobs.get(jobID)
	if !ok {
		return types.Job{}, fmt.Errorf("%w: %s", ErrJobNotFound, jobID)
	}
	return j, nil
}

// Process implements worker.Processor by running a queued job's pass.
func (s *Service) Process(ctx context.Context, job model.AllocationJob) error {
	s.jobs.running(job.ID)
	res, err := s.Allocate(ctx, job.EventID)
	if err != nil {
		s.jobs.finish(job.ID, s.now(), nil, err)
		return err
	}
	s.jobs.finish(job.ID, s.now(), &res, nil)
	return nil
}

// GetStats returns service statistics for monitoring.
func (s *Service) GetStats() map[string]interface{} {
	s.mu.RLock()
	defer s.mu.RUnlock()

	stats := map[string]interface{}{
		"started":     s.started,
		"workerCount": s.workerCount,
		"queueSize":   s.queueSize,
		"jobHistory":  s.jobHistory,
	}
	if !s.started {
		return stats
	}

	ctx := context.Background()
	stats["queueLength"] = s.jobQueue.Len(ctx)
	stats["activePasses"] = s.leaser.Size()
	stats["trackedJobs"] = s.jobs.len()
	if b, ok := s.store.(interface{ State() string }); ok {
		stats["breakerState"] = b.State()
	}
	return stats
}
