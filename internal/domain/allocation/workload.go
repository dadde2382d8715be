package allocation

import (
	"strings"

	"github.com/okian/taskforce/internal/domain/model"
)

// Workload is the pass-owned, mutable view of member load. It is seeded once
// from a snapshot and then only changed by the committer.
type Workload map[string]*model.WorkloadSnapshot

// NewWorkload seeds a Workload for memberIDs from snapshot. Members missing
// from snapshot get a zeroed entry; out-of-range counts are clamped so that
// 0 <= high <= open holds. Snapshot keys are matched after trimming, with an
// exact key taking precedence.
func NewWorkload(memberIDs []string, snapshot map[string]model.WorkloadSnapshot) Workload {
	byID := trimKeys(snapshot)
	w := make(Workload, len(memberIDs))
	for _, id := range memberIDs {
		s := byID[id]
		open := max(s.OpenTaskCount, 0)
		high := min(max(s.HighPriorityOpenCount, 0), open)
		w[id] = &model.WorkloadSnapshot{MemberID: id, OpenTaskCount: open, HighPriorityOpenCount: high}
	}
	return w
}

func trimKeys(snapshot map[string]model.WorkloadSnapshot) map[string]model.WorkloadSnapshot {
	out := make(map[string]model.WorkloadSnapshot, len(snapshot))
	for k, s := range snapshot {
		if t := strings.TrimSpace(k); t != k {
			out[t] = s
		}
	}
	for k, s := range snapshot {
		if strings.TrimSpace(k) == k {
			out[k] = s
		}
	}
	return out
}

// Open returns the member's current open task count.
func (w Workload) Open(memberID string) int {
	if s, ok := w[memberID]; ok {
		return s.OpenTaskCount
	}
	return 0
}

// Record adds one open task to memberID, counting it as high priority when
// the task is.
func (w Workload) Record(memberID string, task model.Task) {
	s, ok := w[memberID]
	if !ok {
		s = &model.WorkloadSnapshot{MemberID: memberID}
		w[memberID] = s
	}
	s.OpenTaskCount++
	if task.IsHighPriority() {
		s.HighPriorityOpenCount++
	}
}

// Snapshot returns a copy of the member's counters.
func (w Workload) Snapshot(memberID string) model.WorkloadSnapshot {
	if s, ok := w[memberID]; ok {
		return *s
	}
	return model.WorkloadSnapshot{MemberID: memberID}
}

// AggregateWorkload counts, for every id in memberIDs, the open tasks in tasks
// assigned to that member. Members with no open tasks get a zeroed snapshot;
// tasks assigned to other members are ignored.
func AggregateWorkload(memberIDs []string, tasks []model.Task) map[string]model.WorkloadSnapshot {
	out := make(map[string]model.WorkloadSnapshot, len(memberIDs))
	for _, id := range memberIDs {
		out[id] = model.WorkloadSnapshot{MemberID: id}
	}
	for i := range tasks {
		t := &tasks[i]
		if !t.IsOpen() || !t.IsAssigned() {
			continue
		}
		s, ok := out[t.Assignment.MemberID]
		if !ok {
			continue
		}
		s.OpenTaskCount++
		if t.IsHighPriority() {
			s.HighPriorityOpenCount++
		}
		out[t.Assignment.MemberID] = s
	}
	return out
}
