package seed

import (
	"context"
	"errors"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gorilla/mux"
	. "github.com/smartystreets/goconvey/convey"

	"github.com/okian/taskforce/internal/adapters/http/api"
	service "github.com/okian/taskforce/internal/app"
	"github.com/okian/taskforce/pkg/logger"
)

func init() {
	if err := logger.Init(); err != nil {
		panic(err)
	}
}

func testConfig(url string) *Config {
	return &Config{
		BaseURL:        url,
		Teams:          3,
		MembersPerTeam: 3,
		Tasks:          24,
		OrphanTasks:    2,
		Workers:        4,
		Timeout:        5 * time.Second,
		PollInterval:   10 * time.Millisecond,
		Seed:           7,
	}
}

func TestGenerate(t *testing.T) {
	Convey("Given a seeded config", t, func() {
		cfg := testConfig("http://unused")

		Convey("When generating a scenario", func() {
			sc := Generate(cfg)

			Convey("Then counts and teams follow the config", func() {
				So(len(sc.Members), ShouldEqual, 9)
				So(len(sc.Tasks), ShouldEqual, 26)
				So(sc.Name, ShouldEqual, "seed-7")
				for _, tk := range sc.Tasks[:24] {
					So(tk.TeamID, ShouldNotEqual, orphanTeam)
				}
				So(sc.Tasks[24].TeamID, ShouldEqual, orphanTeam)
				So(sc.Tasks[25].TeamID, ShouldEqual, orphanTeam)
				for _, m := range sc.Members {
					So(len(m.Skills), ShouldBeBetweenOrEqual, 1, 3)
				}
			})

			Convey("And the same seed gives the same shape", func() {
				again := Generate(cfg)
				for i := range sc.Tasks {
					So(again.Tasks[i].TeamID, ShouldEqual, sc.Tasks[i].TeamID)
					So(again.Tasks[i].Priority, ShouldEqual, sc.Tasks[i].Priority)
					So(again.Tasks[i].RequiredSkills, ShouldResemble, sc.Tasks[i].RequiredSkills)
				}
			})
		})
	})
}

func TestVerify(t *testing.T) {
	Convey("Given a small scenario", t, func() {
		sc := Scenario{
			Members: []MemberRequest{
				{ID: "a", TeamID: "team-1"},
				{ID: "b", TeamID: "team-1"},
				{ID: "c", TeamID: "team-2"},
			},
			Tasks: []TaskRequest{
				{ID: "t1", TeamID: "team-1"},
				{ID: "t2", TeamID: "team-1"},
				{ID: "t3", TeamID: "team-2"},
				{ID: "o1", TeamID: orphanTeam},
			},
		}
		good := allocationResult{
			Assignments: []assignmentEntry{
				{TaskID: "t1", MemberID: "a", Status: "committed"},
				{TaskID: "t2", MemberID: "b", Status: "committed"},
				{TaskID: "t3", MemberID: "c", Status: "committed"},
			},
			UnassignedTaskIDs: []string{"o1"},
		}

		Convey("When the result is consistent", func() {
			rep := Verify(sc, good, nil)

			Convey("Then it passes", func() {
				So(rep.OK(), ShouldBeTrue)
				So(rep.Assigned, ShouldEqual, 3)
				So(rep.Unassigned, ShouldEqual, 1)
				So(rep.Spread, ShouldEqual, 0)
			})
		})

		Convey("When a task crosses teams", func() {
			bad := good
			bad.Assignments = append([]assignmentEntry{}, good.Assignments...)
			bad.Assignments[2] = assignmentEntry{TaskID: "t3", MemberID: "a", Status: "committed"}
			rep := Verify(sc, bad, nil)

			Convey("Then the team violation is reported", func() {
				So(rep.OK(), ShouldBeFalse)
				So(rep.Violations[0], ShouldContainSubstring, "t3")
			})
		})

		Convey("When a task is assigned twice", func() {
			bad := good
			bad.Assignments = append(append([]assignmentEntry{}, good.Assignments...),
				assignmentEntry{TaskID: "t1", MemberID: "b", Status: "committed"})
			rep := Verify(sc, bad, nil)

			Convey("Then the duplicate is reported", func() {
				So(rep.OK(), ShouldBeFalse)
				So(rep.Violations[0], ShouldContainSubstring, "assigned twice")
			})
		})

		Convey("When the orphan task is missing from unassigned", func() {
			bad := good
			bad.UnassignedTaskIDs = nil
			rep := Verify(sc, bad, nil)

			Convey("Then it is reported", func() {
				So(rep.OK(), ShouldBeFalse)
			})
		})

		Convey("When the store disagrees with the response", func() {
			stored := []storedTask{{ID: "t1", TeamID: "team-1"}}
			rep := Verify(sc, good, stored)

			Convey("Then it is reported", func() {
				So(rep.OK(), ShouldBeFalse)
				So(rep.Violations[0], ShouldContainSubstring, "stored unassigned")
			})
		})

		Convey("When one member takes every team task", func() {
			skewed := good
			skewed.Assignments = []assignmentEntry{
				{TaskID: "t1", MemberID: "a", Status: "committed"},
				{TaskID: "t2", MemberID: "a", Status: "committed"},
				{TaskID: "t3", MemberID: "c", Status: "committed"},
			}

			Convey("Then the spread shows it", func() {
				So(Verify(sc, skewed, nil).Spread, ShouldEqual, 2)
			})
		})
	})
}

func startServer() (*httptest.Server, func()) {
	svc := service.New(service.WithWorkerCount(2), service.WithQueueSize(4))
	So(svc.Start(context.Background()), ShouldBeNil)
	r := mux.NewRouter()
	api.NewServer(svc, svc).Register(context.Background(), r)
	srv := httptest.NewServer(r)
	return srv, func() {
		srv.Close()
		svc.Stop()
	}
}

func TestRun(t *testing.T) {
	Convey("Given a running server", t, func() {
		srv, stop := startServer()
		defer stop()
		ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()

		Convey("When seeding and allocating inline", func() {
			stats, err := Run(ctx, testConfig(srv.URL))

			Convey("Then the allocation verifies", func() {
				So(err, ShouldBeNil)
				So(stats.MembersCreated, ShouldEqual, 9)
				So(stats.TasksCreated, ShouldEqual, 26)
				So(stats.Assigned, ShouldEqual, 24)
				So(stats.Unassigned, ShouldEqual, 2)
				So(stats.FailedCommits, ShouldEqual, 0)
			})
		})

		Convey("When seeding and allocating through the queue", func() {
			cfg := testConfig(srv.URL)
			cfg.Async = true
			stats, err := Run(ctx, cfg)

			Convey("Then the polled result verifies", func() {
				So(err, ShouldBeNil)
				So(stats.Assigned, ShouldEqual, 24)
			})
		})
	})

	Convey("Given an invalid config", t, func() {
		cfg := testConfig("")
		_, err := Run(context.Background(), cfg)

		Convey("Then Run refuses it", func() {
			So(errors.Is(err, ErrInvalidConfig), ShouldBeTrue)
		})
	})
}
