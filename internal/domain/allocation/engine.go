// Package allocation assigns unassigned event tasks to roster members.
//
// A pass reads one snapshot (tasks, roster, workload), walks the tasks in
// input order and, for each one, filters the roster to the task's team, ranks
// the eligible members by skill match then current load, and charges the
// winner's in-memory workload before moving on. Decisions are therefore
// cumulative and order dependent. The batch of new assignments is written
// with a single gateway call at the end of the pass.
//
// The engine does not serialize passes; callers must hold an exclusive
// per-event lease for the duration of Allocate.
package allocation

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/okian/taskforce/internal/domain/model"
	"github.com/okian/taskforce/pkg/logger"
	"github.com/okian/taskforce/pkg/metrics"
)

// Gateway is the store surface the engine reads its snapshot from and
// writes the batch to.
type Gateway interface {
	// FetchUnassignedTasks returns the event's open tasks without an
	// assignment. The order is significant.
	FetchUnassignedTasks(ctx context.Context, eventID string) ([]model.Task, error)
	// FetchRoster returns the event's members; the order is the final tiebreak.
	FetchRoster(ctx context.Context, eventID string) ([]model.Member, error)
	// FetchOpenWorkload returns open-task counters per member.
	FetchOpenWorkload(ctx context.Context, memberIDs []string) (map[string]model.WorkloadSnapshot, error)
	// CommitAssignments persists the batch in one request and reports an
	// outcome per assignment.
	CommitAssignments(ctx context.Context, batch []model.Assignment) ([]model.CommitOutcome, error)
}

// State is where a task ended up within a pass.
type State string

// Terminal task states of a pass.
const (
	StateAssigned          State = "assigned"
	StateSkippedUnassigned State = "skipped_unassigned"
)

// Decision explains what the pass did with one task.
type Decision struct {
	TaskID     string
	State      State
	MemberID   string
	SkillMatch int
	OpenTasks  int // assignee load before this task was charged
}

// Plan is the outcome of a pass before anything is written.
type Plan struct {
	Assignments       []model.Assignment
	UnassignedTaskIDs []string
	Decisions         []Decision
	Malformed         int
	Workload          Workload // load after every decision of the pass
}

// Outcome is the final status of one planned assignment.
type Outcome struct {
	Assignment model.Assignment
	Committed  bool
	Err        error
}

// Result is returned to allocate callers.
type Result struct {
	EventID           string
	AssignedCount     int
	Outcomes          []Outcome
	UnassignedTaskIDs []string
	FailedTaskIDs     []string
	DryRun            bool
}

// Engine runs allocation passes against a Gateway.
type Engine struct {
	gateway Gateway
	logger  logger.Logger
	now     func() time.Time
	newID   func() string
}

// New creates an Engine reading from and committing to gateway.
func New(gateway Gateway, opts ...Option) *Engine {
	e := &Engine{
		gateway: gateway,
		now:     time.Now,
		newID:   uuid.NewString,
	}
	for _, opt := range opts {
		opt(e)
	}
	if e.logger == nil {
		e.logger = logger.Get().Named("allocation")
	}
	return e
}

// Plan runs one pass over an injected snapshot. It never touches the
// gateway and never mutates its inputs, so identical inputs give identical
// decisions.
func (e *Engine) Plan(ctx context.Context, tasks []model.Task, roster []model.Member, snapshot map[string]model.WorkloadSnapshot) Plan {
	candidates := NewCandidates(roster)
	c := newCommitter(NewWorkload(candidateIDs(candidates), snapshot), e.now, e.newID)

	plan := Plan{
		Assignments:       []model.Assignment{},
		UnassignedTaskIDs: []string{},
	}
	for _, raw := range tasks {
		task := raw.Normalize()
		if task.ID == "" {
			plan.Malformed++
			e.logger.Warn(ctx, "skipping task without id", logger.String("teamID", task.TeamID))
			continue
		}
		if task.IsAssigned() || c.seen(task.ID) {
			e.logger.Debug(ctx, "task already assigned, skipping", logger.String("taskID", task.ID))
			continue
		}

		eligible := Eligible(task, candidates)
		if len(eligible) == 0 {
			plan.UnassignedTaskIDs = append(plan.UnassignedTaskIDs, task.ID)
			plan.Decisions = append(plan.Decisions, Decision{TaskID: task.ID, State: StateSkippedUnassigned})
			e.logger.Debug(ctx, "no eligible member for task",
				logger.String("taskID", task.ID),
				logger.String("teamID", task.TeamID),
			)
			continue
		}

		top := Rank(task, eligible, c.workload)[0]
		a := c.assign(task, top.Member)
		plan.Decisions = append(plan.Decisions, Decision{
			TaskID:     task.ID,
			State:      StateAssigned,
			MemberID:   a.MemberID,
			SkillMatch: top.SkillMatch,
			OpenTasks:  top.OpenTasks,
		})
		e.logger.Debug(ctx, "task assigned",
			logger.String("taskID", task.ID),
			logger.String("memberID", a.MemberID),
			logger.Int("skillMatch", top.SkillMatch),
			logger.Int("openTasks", top.OpenTasks),
		)
	}
	plan.Assignments = append(plan.Assignments, c.batch...)
	plan.Workload = c.workload
	return plan
}

// Allocate runs a full pass for eventID and commits the result.
func (e *Engine) Allocate(ctx context.Context, eventID string) (Result, error) {
	return e.run(ctx, eventID, false)
}

// Preview runs the same pass as Allocate without committing.
func (e *Engine) Preview(ctx context.Context, eventID string) (Result, error) {
	return e.run(ctx, eventID, true)
}

func (e *Engine) run(ctx context.Context, eventID string, dryRun bool) (Result, error) {
	if e.gateway == nil {
		return Result{}, ErrNoGateway
	}
	start := time.Now()
	defer func() {
		metrics.RecordPassLatency(float64(time.Since(start).Milliseconds()))
	}()

	res := Result{
		EventID:           eventID,
		Outcomes:          []Outcome{},
		UnassignedTaskIDs: []string{},
		FailedTaskIDs:     []string{},
		DryRun:            dryRun,
	}

	tasks, err := e.gateway.FetchUnassignedTasks(ctx, eventID)
	if err != nil {
		metrics.RecordAllocationPass("fetch_error")
		return Result{}, fmt.Errorf("%w: tasks for event %s: %w", ErrFetch, eventID, err)
	}
	if len(tasks) == 0 {
		metrics.RecordAllocationPass("empty")
		e.logger.Info(ctx, "no unassigned tasks", logger.String("eventID", eventID))
		return res, nil
	}

	roster, err := e.gateway.FetchRoster(ctx, eventID)
	if err != nil {
		metrics.RecordAllocationPass("fetch_error")
		return Result{}, fmt.Errorf("%w: roster for event %s: %w", ErrFetch, eventID, err)
	}

	var snapshot map[string]model.WorkloadSnapshot
	if len(roster) > 0 {
		snapshot, err = e.gateway.FetchOpenWorkload(ctx, candidateIDs(NewCandidates(roster)))
		if err != nil {
			metrics.RecordAllocationPass("fetch_error")
			return Result{}, fmt.Errorf("%w: workload for event %s: %w", ErrFetch, eventID, err)
		}
	}

	plan := e.Plan(ctx, tasks, roster, snapshot)
	res.UnassignedTaskIDs = plan.UnassignedTaskIDs
	metrics.RecordUnassignedTasks(len(plan.UnassignedTaskIDs))
	metrics.RecordMalformedTasks(plan.Malformed)

	if dryRun {
		for _, a := range plan.Assignments {
			res.Outcomes = append(res.Outcomes, Outcome{Assignment: a})
		}
		metrics.RecordAllocationPass("dry_run")
		return res, nil
	}
	if len(plan.Assignments) > 0 {
		res.Outcomes = e.commit(ctx, plan.Assignments)
	}
	for _, o := range res.Outcomes {
		if o.Committed {
			res.AssignedCount++
			continue
		}
		res.FailedTaskIDs = append(res.FailedTaskIDs, o.Assignment.TaskID)
	}
	metrics.RecordAssignmentsCommitted(res.AssignedCount)
	metrics.RecordAssignmentsFailed(len(res.FailedTaskIDs))
	if len(res.FailedTaskIDs) > 0 {
		metrics.RecordAllocationPass("partial_failure")
	} else {
		metrics.RecordAllocationPass("ok")
	}

	e.logger.Info(ctx, "allocation pass finished",
		logger.String("eventID", eventID),
		logger.Int("tasks", len(tasks)),
		logger.Int("assigned", res.AssignedCount),
		logger.Int("unassigned", len(res.UnassignedTaskIDs)),
		logger.Int("failed", len(res.FailedTaskIDs)),
	)
	return res, nil
}

// commit issues the single batch write and pairs every planned assignment
// with its outcome. A batch-wide error fails every assignment; an assignment
// the store did not report on is failed rather than assumed written.
func (e *Engine) commit(ctx context.Context, batch []model.Assignment) []Outcome {
	start := time.Now()
	reported, err := e.gateway.CommitAssignments(ctx, batch)
	metrics.RecordCommitLatency(float64(time.Since(start).Milliseconds()))

	out := make([]Outcome, len(batch))
	if err != nil {
		e.logger.Error(ctx, "assignment batch commit failed", logger.Int("batch", len(batch)), logger.Error(err))
		metrics.RecordErrorByComponent("allocation", "commit_failed")
		for i, a := range batch {
			out[i] = Outcome{Assignment: a, Err: fmt.Errorf("%w: %w", ErrCommit, err)}
		}
		return out
	}

	byTask := make(map[string]model.CommitOutcome, len(reported))
	for _, r := range reported {
		byTask[r.TaskID] = r
	}
	for i, a := range batch {
		r, ok := byTask[a.TaskID]
		switch {
		case !ok:
			out[i] = Outcome{Assignment: a, Err: ErrMissingOutcome}
		case r.Err != nil:
			out[i] = Outcome{Assignment: a, Err: r.Err}
		default:
			out[i] = Outcome{Assignment: a, Committed: true}
		}
		if out[i].Err != nil {
			e.logger.Warn(ctx, "assignment not persisted",
				logger.String("taskID", a.TaskID),
				logger.String("memberID", a.MemberID),
				logger.Error(out[i].Err),
			)
		}
	}
	return out
}
