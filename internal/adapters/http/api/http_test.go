package api_test

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/mux"

	"github.com/okian/taskforce/internal/adapters/http/api"
	"github.com/okian/taskforce/internal/adapters/repository"
	service "github.com/okian/taskforce/internal/app"
	"github.com/okian/taskforce/internal/domain/model"
	"github.com/okian/taskforce/internal/domain/types"
	. "github.com/smartystreets/goconvey/convey"
)

// mockDependencies records what handlers pass through and returns canned
// values or errors.
type mockDependencies struct {
	events  map[string]model.Event
	members []model.Member
	tasks   []model.Task

	lastMember model.Member
	lastTask   model.Task
	previewed  bool
	allocated  bool

	allocateErr error
	submitErr   error
	addTaskErr  error
	jobs        map[string]types.Job
}

func newMockDependencies() *mockDependencies {
	return &mockDependencies{
		events: map[string]model.Event{"ev-1": {ID: "ev-1", Name: "Hack Week"}},
		jobs:   map[string]types.Job{},
	}
}

func (m *mockDependencies) CreateEvent(_ context.Context, ev model.Event) (model.Event, error) {
	if strings.TrimSpace(ev.Name) == "" {
		return model.Event{}, fmt.Errorf("%w: event name is required", service.ErrInvalidInput)
	}
	if ev.ID == "" {
		ev.ID = "ev-new"
	}
	if _, ok := m.events[ev.ID]; ok {
		return model.Event{}, fmt.Errorf("event %s: %w", ev.ID, repository.ErrConflict)
	}
	m.events[ev.ID] = ev
	return ev, nil
}

func (m *mockDependencies) GetEvent(_ context.Context, eventID string) (model.Event, error) {
	ev, ok := m.events[eventID]
	if !ok {
		return model.Event{}, fmt.Errorf("event %s: %w", eventID, repository.ErrNotFound)
	}
	return ev, nil
}

func (m *mockDependencies) AddMember(_ context.Context, eventID string, mem model.Member) (model.Member, error) {
	mem.EventID = eventID
	m.lastMember = mem
	m.members = append(m.members, mem)
	return mem, nil
}

func (m *mockDependencies) ListMembers(_ context.Context, _ string) ([]model.Member, error) {
	return m.members, nil
}

func (m *mockDependencies) AddTask(_ context.Context, eventID string, t model.Task) (model.Task, error) {
	if m.addTaskErr != nil {
		return model.Task{}, m.addTaskErr
	}
	t.EventID = eventID
	m.lastTask = t
	m.tasks = append(m.tasks, t)
	return t, nil
}

func (m *mockDependencies) ListTasks(_ context.Context, _ string) ([]model.Task, error) {
	return m.tasks, nil
}

func (m *mockDependencies) CompleteTask(_ context.Context, eventID, taskID string) (model.Task, error) {
	if taskID == "done" {
		return model.Task{}, fmt.Errorf("task %s: %w", taskID, repository.ErrTaskCompleted)
	}
	return model.Task{ID: taskID, EventID: eventID, Completed: true}, nil
}

func (m *mockDependencies) Allocate(_ context.Context, eventID string) (types.AllocationResult, error) {
	m.allocated = true
	if m.allocateErr != nil {
		return types.AllocationResult{}, m.allocateErr
	}
	return types.AllocationResult{
		EventID:       eventID,
		AssignedCount: 1,
		Assignments:   []types.Entry{{TaskID: "t1", MemberID: "m1", Status: types.StatusCommitted}},
	}, nil
}

func (m *mockDependencies) Preview(_ context.Context, eventID string) (types.AllocationResult, error) {
	m.previewed = true
	return types.AllocationResult{
		EventID:     eventID,
		Assignments: []types.Entry{{TaskID: "t1", MemberID: "m1", Status: types.StatusPlanned}},
		DryRun:      true,
	}, nil
}

func (m *mockDependencies) SubmitAllocation(_ context.Context, eventID string) (types.Job, error) {
	if m.submitErr != nil {
		return types.Job{}, m.submitErr
	}
	j := types.Job{ID: "job-1", EventID: eventID, State: types.JobQueued, SubmittedAt: time.Now()}
	m.jobs[j.ID] = j
	return j, nil
}

func (m *mockDependencies) Job(_ context.Context, jobID string) (types.Job, error) {
	j, ok := m.jobs[jobID]
	if !ok {
		return types.Job{}, fmt.Errorf("%w: %s", service.ErrJobNotFound, jobID)
	}
	return j, nil
}

type mockStatsProvider struct {
	stats map[string]interface{}
}

func (m *mockStatsProvider) GetStats() map[string]interface{} {
	return m.stats
}

func newRouter(deps *mockDependencies) *mux.Router {
	r := mux.NewRouter()
	server := api.NewServer(deps, &mockStatsProvider{stats: map[string]interface{}{"started": true}})
	server.Register(context.Background(), r)
	return r
}

func do(r http.Handler, method, target, body string) *httptest.ResponseRecorder {
	var req *http.Request
	if body == "" {
		req = httptest.NewRequest(method, target, nil)
	} else {
		req = httptest.NewRequest(method, target, strings.NewReader(body))
	}
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	return w
}

func decodeError(w *httptest.ResponseRecorder) map[string]string {
	var out map[string]string
	So(json.Unmarshal(w.Body.Bytes(), &out), ShouldBeNil)
	return out
}

func TestServer_Register(t *testing.T) {
	Convey("Given a router with all API routes", t, func() {
		r := newRouter(newMockDependencies())

		Convey("Then health serves metrics", func() {
			w := do(r, http.MethodGet, "/healthz", "")
			So(w.Code, ShouldEqual, http.StatusOK)
		})

		Convey("Then stats are served as JSON", func() {
			w := do(r, http.MethodGet, "/stats", "")
			So(w.Code, ShouldEqual, http.StatusOK)
			So(w.Header().Get("Content-Type"), ShouldContainSubstring, "application/json")
			So(w.Body.String(), ShouldContainSubstring, `"started":true`)
		})

		Convey("Then stats answer unavailable without a provider", func() {
			r := mux.NewRouter()
			api.NewServer(newMockDependencies(), nil).Register(context.Background(), r)
			w := do(r, http.MethodGet, "/stats", "")
			So(w.Code, ShouldEqual, http.StatusServiceUnavailable)
			So(decodeError(w)["code"], ShouldEqual, "unavailable")
		})

		Convey("Then unknown paths are not found", func() {
			w := do(r, http.MethodGet, "/unknown", "")
			So(w.Code, ShouldEqual, http.StatusNotFound)
		})

		Convey("Then wrong methods are refused", func() {
			w := do(r, http.MethodDelete, "/events/ev-1", "")
			So(w.Code, ShouldEqual, http.StatusMethodNotAllowed)
		})
	})
}

func TestEventsHandler(t *testing.T) {
	Convey("Given the events endpoints", t, func() {
		r := newRouter(newMockDependencies())

		Convey("When creating an event", func() {
			w := do(r, http.MethodPost, "/events", `{"name":"Jam"}`)

			Convey("Then it is created", func() {
				So(w.Code, ShouldEqual, http.StatusCreated)
				var ev model.Event
				So(json.Unmarshal(w.Body.Bytes(), &ev), ShouldBeNil)
				So(ev.ID, ShouldEqual, "ev-new")
				So(ev.Name, ShouldEqual, "Jam")
			})
		})

		Convey("When the body is not JSON", func() {
			w := do(r, http.MethodPost, "/events", `{`)

			Convey("Then it is a bad request", func() {
				So(w.Code, ShouldEqual, http.StatusBadRequest)
				So(decodeError(w)["code"], ShouldEqual, "bad_request")
			})
		})

		Convey("When the name is missing", func() {
			w := do(r, http.MethodPost, "/events", `{}`)

			Convey("Then it is a bad request", func() {
				So(w.Code, ShouldEqual, http.StatusBadRequest)
			})
		})

		Convey("When the id is taken", func() {
			w := do(r, http.MethodPost, "/events", `{"id":"ev-1","name":"again"}`)

			Convey("Then it conflicts", func() {
				So(w.Code, ShouldEqual, http.StatusConflict)
				So(decodeError(w)["code"], ShouldEqual, "conflict")
			})
		})

		Convey("When reading events", func() {
			found := do(r, http.MethodGet, "/events/ev-1", "")
			missing := do(r, http.MethodGet, "/events/nope", "")

			Convey("Then known ids resolve and unknown ones are not found", func() {
				So(found.Code, ShouldEqual, http.StatusOK)
				So(found.Body.String(), ShouldContainSubstring, `"name":"Hack Week"`)
				So(missing.Code, ShouldEqual, http.StatusNotFound)
				So(decodeError(missing)["message"], ShouldContainSubstring, "api.get_event")
			})
		})
	})
}

func TestMembersAndTasksHandlers(t *testing.T) {
	Convey("Given the roster and task endpoints", t, func() {
		deps := newMockDependencies()
		r := newRouter(deps)

		Convey("When listing an empty roster", func() {
			w := do(r, http.MethodGet, "/events/ev-1/members", "")

			Convey("Then an empty list is returned", func() {
				So(w.Code, ShouldEqual, http.StatusOK)
				So(w.Body.String(), ShouldContainSubstring, `"items":[]`)
				So(w.Body.String(), ShouldContainSubstring, `"count":0`)
			})
		})

		Convey("When adding a member", func() {
			w := do(r, http.MethodPost, "/events/ev-1/members",
				`{"id":"m1","team_id":"red","name":"Ada","skills":["go"]}`)

			Convey("Then the request fields reach the service", func() {
				So(w.Code, ShouldEqual, http.StatusCreated)
				So(deps.lastMember.EventID, ShouldEqual, "ev-1")
				So(deps.lastMember.TeamID, ShouldEqual, "red")
				So(deps.lastMember.Skills, ShouldResemble, []string{"go"})

				list := do(r, http.MethodGet, "/events/ev-1/members", "")
				So(list.Body.String(), ShouldContainSubstring, `"count":1`)
			})
		})

		Convey("When adding a task", func() {
			w := do(r, http.MethodPost, "/events/ev-1/tasks",
				`{"id":"t1","team_id":"red","title":"API","required_skills":["Go"],"priority":"HIGH"}`)

			Convey("Then the priority is parsed", func() {
				So(w.Code, ShouldEqual, http.StatusCreated)
				So(deps.lastTask.Priority, ShouldEqual, model.PriorityHigh)
				So(deps.lastTask.RequiredSkills, ShouldResemble, []string{"Go"})
			})
		})

		Convey("When the store is unavailable", func() {
			deps.addTaskErr = fmt.Errorf("create task: %w", repository.ErrUnavailable)
			w := do(r, http.MethodPost, "/events/ev-1/tasks", `{"team_id":"red"}`)

			Convey("Then the service is reported unavailable", func() {
				So(w.Code, ShouldEqual, http.StatusServiceUnavailable)
				So(decodeError(w)["code"], ShouldEqual, "unavailable")
			})
		})

		Convey("When completing tasks", func() {
			ok := do(r, http.MethodPost, "/events/ev-1/tasks/t1/complete", "")
			done := do(r, http.MethodPost, "/events/ev-1/tasks/done/complete", "")

			Convey("Then an already completed task conflicts", func() {
				So(ok.Code, ShouldEqual, http.StatusOK)
				So(ok.Body.String(), ShouldContainSubstring, `"completed":true`)
				So(done.Code, ShouldEqual, http.StatusConflict)
			})
		})
	})
}

func TestAllocationsHandler(t *testing.T) {
	Convey("Given the allocation endpoints", t, func() {
		deps := newMockDependencies()
		r := newRouter(deps)

		Convey("When allocating", func() {
			w := do(r, http.MethodPost, "/events/ev-1/allocate", "")

			Convey("Then the committed result is returned", func() {
				So(w.Code, ShouldEqual, http.StatusOK)
				So(deps.allocated, ShouldBeTrue)
				So(deps.previewed, ShouldBeFalse)
				var res types.AllocationResult
				So(json.Unmarshal(w.Body.Bytes(), &res), ShouldBeNil)
				So(res.AssignedCount, ShouldEqual, 1)
				So(res.Assignments[0].Status, ShouldEqual, types.StatusCommitted)
			})
		})

		Convey("When asking for a dry run", func() {
			w := do(r, http.MethodPost, "/events/ev-1/allocate?dry_run=true", "")

			Convey("Then the pass is only previewed", func() {
				So(w.Code, ShouldEqual, http.StatusOK)
				So(deps.previewed, ShouldBeTrue)
				So(deps.allocated, ShouldBeFalse)
				So(w.Body.String(), ShouldContainSubstring, `"dry_run":true`)
			})
		})

		Convey("When dry_run is malformed", func() {
			w := do(r, http.MethodPost, "/events/ev-1/allocate?dry_run=maybe", "")

			Convey("Then it is a bad request", func() {
				So(w.Code, ShouldEqual, http.StatusBadRequest)
				So(deps.allocated, ShouldBeFalse)
			})
		})

		Convey("When a pass is already running", func() {
			deps.allocateErr = fmt.Errorf("%w: ev-1", service.ErrPassInProgress)
			w := do(r, http.MethodPost, "/events/ev-1/allocate", "")

			Convey("Then it conflicts", func() {
				So(w.Code, ShouldEqual, http.StatusConflict)
				So(decodeError(w)["code"], ShouldEqual, "pass_in_progress")
			})
		})

		Convey("When submitting an asynchronous pass", func() {
			w := do(r, http.MethodPost, "/events/ev-1/allocations", "")

			Convey("Then it is accepted and can be polled", func() {
				So(w.Code, ShouldEqual, http.StatusAccepted)
				So(w.Header().Get("Location"), ShouldEqual, "/allocations/job-1")

				poll := do(r, http.MethodGet, "/allocations/job-1", "")
				So(poll.Code, ShouldEqual, http.StatusOK)
				So(poll.Body.String(), ShouldContainSubstring, `"state":"queued"`)
			})
		})

		Convey("When the queue is full", func() {
			deps.submitErr = fmt.Errorf("%w: queue full", service.ErrBackpressure)
			w := do(r, http.MethodPost, "/events/ev-1/allocations", "")

			Convey("Then backpressure is reported", func() {
				So(w.Code, ShouldEqual, http.StatusTooManyRequests)
				So(decodeError(w)["code"], ShouldEqual, "backpressure")
			})
		})

		Convey("When polling an unknown job", func() {
			w := do(r, http.MethodGet, "/allocations/nope", "")

			Convey("Then it is not found", func() {
				So(w.Code, ShouldEqual, http.StatusNotFound)
			})
		})
	})
}

func TestErrors(t *testing.T) {
	Convey("Given wrapped API errors", t, func() {
		base := fmt.Errorf("event x: %w", repository.ErrNotFound)

		Convey("Then Wrap keeps the chain and prefixes the op", func() {
			err := api.Wrap("api.get_event", base)
			So(err.Error(), ShouldEqual, "api.get_event: event x: not found")
			So(api.Wrap("noop", nil), ShouldBeNil)
		})

		Convey("Then WrapKind matches both the kind and the cause", func() {
			err := api.WrapKind("decode", api.ErrBadRequest, base)
			So(err.Error(), ShouldContainSubstring, "decode: bad request")
			So(fmt.Sprint(err), ShouldContainSubstring, "not found")
		})

		Convey("Then NewKind carries only the kind", func() {
			So(api.NewKind("serve", api.ErrServe).Error(), ShouldEqual, "serve: http serve failed")
		})
	})
}
