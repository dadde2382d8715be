package service

import (
	"sync"
	"time"

	"github.com/okian/taskforce/internal/domain/types"
)

// jobRegistry tracks submitted jobs. Once more than limit jobs are tracked,
// the oldest finished ones are forgotten first; unfinished jobs are never
// evicted.
type jobRegistry struct {
	mu    sync.Mutex
	jobs  map[string]*types.Job
	order []string // submission order
	limit int
}

func newJobRegistry(limit int) *jobRegistry {
	return &jobRegistry{jobs: make(map[string]*types.Job), limit: limit}
}

func (r *jobRegistry) add(j types.Job) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.jobs[j.ID] = &j
	r.order = append(r.order, j.ID)
	r.evictLocked()
}

func (r *jobRegistry) remove(id string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.jobs[id]; !ok {
		return
	}
	delete(r.jobs, id)
	for i, v := range r.order {
		if v == id {
			r.order = append(r.order[:i], r.order[i+1:]...)
			break
		}
	}
}

func (r *jobRegistry) get(id string) (types.Job, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	j, ok := r.jobs[id]
	if !ok {
		return types.Job{}, false
	}
	return *j, true
}

func (r *jobRegistry) running(id string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if j, ok := r.jobs[id]; ok {
		j.State = types.JobRunning
	}
}

func (r *jobRegistry) finish(id string, at time.Time, res *types.AllocationResult, err error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	j, ok := r.jobs[id]
	if !ok {
		return
	}
	j.FinishedAt = &at
	j.Result = res
	if err != nil {
		j.State = types.JobFailed
		j.Error = err.Error()
	} else {
		j.State = types.JobSucceeded
	}
	r.evictLocked()
}

func (r *jobRegistry) len() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.jobs)
}

func (r *jobRegistry) evictLocked() {
	for i := 0; len(r.jobs) > r.limit && i < len(r.order); {
		id := r.order[i]
		if !r.jobs[id].Done() {
			i++
			continue
		}
		delete(r.jobs, id)
		r.order = append(r.order[:i], r.order[i+1:]...)
	}
}
