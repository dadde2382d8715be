package service_test

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/okian/taskforce/internal/adapters/repository"
	service "github.com/okian/taskforce/internal/app"
	"github.com/okian/taskforce/internal/domain/model"
	"github.com/okian/taskforce/internal/domain/types"
	"github.com/okian/taskforce/pkg/logger"
	. "github.com/smartystreets/goconvey/convey"
)

func init() {
	err := logger.Init()
	if err != nil {
		panic(err)
	}
}

func sequentialIDs(prefix string) func() string {
	var mu sync.Mutex
	n := 0
	return func() string {
		mu.Lock()
		defer mu.Unlock()
		n++
		return fmt.Sprintf("%s-%d", prefix, n)
	}
}

func startService(opts ...service.Option) *service.Service {
	opts = append([]service.Option{
		service.WithWorkerCount(2),
		service.WithQueueSize(8),
		service.WithIDGenerator(sequentialIDs("id")),
	}, opts...)
	svc := service.New(opts...)
	So(svc.Start(context.Background()), ShouldBeNil)
	return svc
}

// seed creates an event with a two-person red team, one blue member and
// three red tasks.
func seed(svc *service.Service) model.Event {
	ctx := context.Background()
	ev, err := svc.CreateEvent(ctx, model.Event{Name: "Hack Week"})
	So(err, ShouldBeNil)
	for _, m := range []model.Member{
		{ID: "ada", TeamID: "red", Name: "Ada", Skills: []string{"go", "sql"}},
		{ID: "lin", TeamID: "red", Name: "Lin", Skills: []string{"design"}},
		{ID: "bo", TeamID: "blue", Name: "Bo", Skills: []string{"go"}},
	} {
		_, err := svc.AddMember(ctx, ev.ID, m)
		So(err, ShouldBeNil)
	}
	for _, tk := range []model.Task{
		{ID: "api", TeamID: "red", Title: "API", RequiredSkills: []string{"Go"}, Priority: model.PriorityHigh},
		{ID: "ui", TeamID: "red", Title: "UI", RequiredSkills: []string{"design"}},
		{ID: "docs", TeamID: "red", Title: "Docs"},
	} {
		_, err := svc.AddTask(ctx, ev.ID, tk)
		So(err, ShouldBeNil)
	}
	return ev
}

func TestService_Lifecycle(t *testing.T) {
	Convey("Given a new service", t, func() {
		svc := service.New()

		Convey("When getting stats before starting", func() {
			stats := svc.GetStats()

			Convey("Then it should return basic stats", func() {
				So(stats["started"], ShouldEqual, false)
				So(stats["queueLength"], ShouldBeNil)
			})
		})

		Convey("When calling operations before starting", func() {
			_, err := svc.Allocate(context.Background(), "ev")

			Convey("Then they fail as not started", func() {
				So(errors.Is(err, service.ErrNotStarted), ShouldBeTrue)
			})
		})

		Convey("When starting and stopping the service", func() {
			So(svc.Start(context.Background()), ShouldBeNil)
			So(svc.Start(context.Background()), ShouldBeNil)
			started := svc.GetStats()
			svc.Stop()
			svc.Stop()

			Convey("Then stats follow the lifecycle", func() {
				So(started["started"], ShouldEqual, true)
				So(started["queueLength"], ShouldEqual, 0)
				So(started["activePasses"], ShouldEqual, int64(0))
				So(svc.GetStats()["started"], ShouldEqual, false)
			})
		})
	})
}

func TestService_Records(t *testing.T) {
	ctx := context.Background()

	Convey("Given a started service", t, func() {
		svc := startService()
		defer svc.Stop()

		Convey("When creating an event without a name", func() {
			_, err := svc.CreateEvent(ctx, model.Event{Name: "  "})

			Convey("Then it is rejected", func() {
				So(errors.Is(err, service.ErrInvalidInput), ShouldBeTrue)
			})
		})

		Convey("When adding members and tasks without a team", func() {
			ev, err := svc.CreateEvent(ctx, model.Event{Name: "Jam"})
			So(err, ShouldBeNil)
			_, memberErr := svc.AddMember(ctx, ev.ID, model.Member{Name: "x"})
			_, taskErr := svc.AddTask(ctx, ev.ID, model.Task{Title: "x"})

			Convey("Then both are rejected", func() {
				So(errors.Is(memberErr, service.ErrInvalidInput), ShouldBeTrue)
				So(errors.Is(taskErr, service.ErrInvalidInput), ShouldBeTrue)
			})
		})

		Convey("When seeding an event", func() {
			ev := seed(svc)

			Convey("Then ids are minted and records normalized", func() {
				So(ev.ID, ShouldEqual, "id-1")
				tasks, err := svc.ListTasks(ctx, ev.ID)
				So(err, ShouldBeNil)
				So(len(tasks), ShouldEqual, 3)
				So(tasks[0].RequiredSkills, ShouldResemble, []string{"go"})
				So(tasks[1].Priority, ShouldEqual, model.PriorityMedium)
				members, err := svc.ListMembers(ctx, ev.ID)
				So(err, ShouldBeNil)
				So(len(members), ShouldEqual, 3)
			})

			Convey("And an unknown event is not found", func() {
				_, err := svc.GetEvent(ctx, "nope")
				So(errors.Is(err, repository.ErrNotFound), ShouldBeTrue)
				_, err = svc.Allocate(ctx, "nope")
				So(errors.Is(err, repository.ErrNotFound), ShouldBeTrue)
			})
		})
	})
}

func TestService_Allocate(t *testing.T) {
	ctx := context.Background()

	Convey("Given a seeded event", t, func() {
		svc := startService()
		defer svc.Stop()
		ev := seed(svc)

		Convey("When previewing", func() {
			res, err := svc.Preview(ctx, ev.ID)

			Convey("Then assignments are planned but not stored", func() {
				So(err, ShouldBeNil)
				So(res.DryRun, ShouldBeTrue)
				So(res.AssignedCount, ShouldEqual, 0)
				So(len(res.Assignments), ShouldEqual, 3)
				So(res.Assignments[0].Status, ShouldEqual, types.StatusPlanned)

				tasks, _ := svc.ListTasks(ctx, ev.ID)
				for _, tk := range tasks {
					So(tk.Assignment, ShouldBeNil)
				}
			})
		})

		Convey("When allocating", func() {
			res, err := svc.Allocate(ctx, ev.ID)

			Convey("Then every task goes to its own team by skill then load", func() {
				So(err, ShouldBeNil)
				So(res.AssignedCount, ShouldEqual, 3)
				So(res.FailedTaskIDs, ShouldBeEmpty)
				So(res.UnassignedTaskIDs, ShouldBeEmpty)

				got := map[string]string{}
				for _, a := range res.Assignments {
					So(a.Status, ShouldEqual, types.StatusCommitted)
					got[a.TaskID] = a.MemberID
				}
				So(got["api"], ShouldEqual, "ada")
				So(got["ui"], ShouldEqual, "lin")
				So(got["docs"], ShouldEqual, "ada")
			})

			Convey("And a second pass finds nothing to do", func() {
				again, err := svc.Allocate(ctx, ev.ID)
				So(err, ShouldBeNil)
				So(again.AssignedCount, ShouldEqual, 0)
				So(again.Assignments, ShouldBeEmpty)
			})
		})

		Convey("When a task has no eligible team", func() {
			_, err := svc.AddTask(ctx, ev.ID, model.Task{ID: "orphan", TeamID: "green"})
			So(err, ShouldBeNil)
			res, err := svc.Allocate(ctx, ev.ID)

			Convey("Then it is reported unassigned", func() {
				So(err, ShouldBeNil)
				So(res.UnassignedTaskIDs, ShouldResemble, []string{"orphan"})
			})
		})
	})
}

// gatedStore blocks unassigned-task reads until release is closed.
type gatedStore struct {
	*repository.MemoryStore
	entered chan struct{}
	release chan struct{}
	once    sync.Once
}

func (g *gatedStore) FetchUnassignedTasks(ctx context.Context, eventID string) ([]model.Task, error) {
	g.once.Do(func() { close(g.entered) })
	<-g.release
	return g.MemoryStore.FetchUnassignedTasks(ctx, eventID)
}

func TestService_PassExclusion(t *testing.T) {
	ctx := context.Background()

	Convey("Given a pass blocked inside the store", t, func() {
		gate := &gatedStore{
			MemoryStore: repository.NewMemoryStore(ctx),
			entered:     make(chan struct{}),
			release:     make(chan struct{}),
		}
		defer gate.Close(ctx)
		svc := startService(service.WithStore(gate))
		defer svc.Stop()
		ev := seed(svc)

		first := make(chan error, 1)
		go func() {
			_, err := svc.Allocate(ctx, ev.ID)
			first <- err
		}()
		<-gate.entered

		Convey("When a second pass starts for the same event", func() {
			_, err := svc.Allocate(ctx, ev.ID)
			active := svc.GetStats()["activePasses"]
			close(gate.release)

			Convey("Then it is refused while the first completes", func() {
				So(errors.Is(err, service.ErrPassInProgress), ShouldBeTrue)
				So(active, ShouldEqual, int64(1))
				So(<-first, ShouldBeNil)
			})
		})
	})
}

func waitForJob(svc *service.Service, id string) types.Job {
	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		j, err := svc.Job(context.Background(), id)
		So(err, ShouldBeNil)
		if j.Done() {
			return j
		}
		time.Sleep(5 * time.Millisecond)
	}
	return types.Job{State: "timeout"}
}

func TestService_SubmitAllocation(t *testing.T) {
	ctx := context.Background()

	Convey("Given a seeded event", t, func() {
		svc := startService()
		defer svc.Stop()
		ev := seed(svc)

		Convey("When submitting an asynchronous pass", func() {
			job, err := svc.SubmitAllocation(ctx, ev.ID)
			So(err, ShouldBeNil)

			Convey("Then the job is queued and later succeeds", func() {
				So(job.State, ShouldEqual, types.JobQueued)
				So(job.EventID, ShouldEqual, ev.ID)

				done := waitForJob(svc, job.ID)
				So(done.State, ShouldEqual, types.JobSucceeded)
				So(done.FinishedAt, ShouldNotBeNil)
				So(done.Result, ShouldNotBeNil)
				So(done.Result.AssignedCount, ShouldEqual, 3)
			})
		})

		Convey("When submitting for an unknown event", func() {
			_, err := svc.SubmitAllocation(ctx, "nope")

			Convey("Then nothing is queued", func() {
				So(errors.Is(err, repository.ErrNotFound), ShouldBeTrue)
			})
		})

		Convey("When asking for an unknown job", func() {
			_, err := svc.Job(ctx, "nope")

			Convey("Then it is not found", func() {
				So(errors.Is(err, service.ErrJobNotFound), ShouldBeTrue)
			})
		})
	})

	Convey("Given a service whose workers are stuck", t, func() {
		gate := &gatedStore{
			MemoryStore: repository.NewMemoryStore(ctx),
			entered:     make(chan struct{}),
			release:     make(chan struct{}),
		}
		defer gate.Close(ctx)
		svc := startService(service.WithStore(gate), service.WithWorkerCount(1), service.WithQueueSize(1))
		defer svc.Stop()
		ev := seed(svc)

		_, err := svc.SubmitAllocation(ctx, ev.ID)
		So(err, ShouldBeNil)
		<-gate.entered

		Convey("When more jobs arrive than the queue holds", func() {
			var rejected error
			for i := 0; i < 4 && rejected == nil; i++ {
				_, rejected = svc.SubmitAllocation(ctx, ev.ID)
			}
			close(gate.release)

			Convey("Then submission reports backpressure", func() {
				So(errors.Is(rejected, service.ErrBackpressure), ShouldBeTrue)
			})
		})
	})
}
