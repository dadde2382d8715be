package allocation

import (
	"time"

	"github.com/okian/taskforce/internal/domain/model"
)

// committer records decisions for one pass. It owns the pass workload and
// the batch that is written once the pass ends.
type committer struct {
	workload Workload
	batch    []model.Assignment
	assigned map[string]struct{}
	now      func() time.Time
	newID    func() string
}

func newCommitter(w Workload, now func() time.Time, newID func() string) *committer {
	return &committer{
		workload: w,
		assigned: make(map[string]struct{}),
		now:      now,
		newID:    newID,
	}
}

// seen reports whether the task already received an assignment in this pass.
func (c *committer) seen(taskID string) bool {
	_, ok := c.assigned[taskID]
	return ok
}

// assign records task -> member and charges the member's workload so later
// ranking in the same pass sees it.
func (c *committer) assign(task model.Task, m model.Member) model.Assignment {
	a := model.Assignment{
		ID:         c.newID(),
		TaskID:     task.ID,
		MemberID:   m.ID,
		MemberName: m.Name,
		CreatedAt:  c.now(),
	}
	c.workload.Record(m.ID, task)
	c.assigned[task.ID] = struct{}{}
	c.batch = append(c.batch, a)
	return a
}
