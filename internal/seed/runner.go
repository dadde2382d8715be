package seed

import (
	"context"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/okian/taskforce/pkg/logger"
)

const defaultPollInterval = 100 * time.Millisecond

// Run seeds one event, allocates it and verifies the result.
func Run(ctx context.Context, cfg *Config) (*Stats, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	log := logger.Get().Named("seed")
	stats := &Stats{StartTime: time.Now()}
	client := newHTTPClient(strings.TrimRight(cfg.BaseURL, "/"), cfg.Timeout)

	log.Info(ctx, "starting taskforce seed run",
		logger.String("baseURL", cfg.BaseURL),
		logger.Int("teams", cfg.Teams),
		logger.Int("membersPerTeam", cfg.MembersPerTeam),
		logger.Int("tasks", cfg.Tasks),
		logger.Int("orphanTasks", cfg.OrphanTasks),
		logger.Bool("async", cfg.Async))

	// Step 1: Check service health
	if err := client.do(ctx, http.MethodGet, "/healthz", nil, http.StatusOK, nil); err != nil {
		return stats, fmt.Errorf("service health check failed: %w", err)
	}

	// Step 2: Generate and create the event
	sc := Generate(cfg)
	var ev eventResponse
	if err := client.do(ctx, http.MethodPost, "/events", eventRequest{Name: sc.Name}, http.StatusCreated, &ev); err != nil {
		return stats, fmt.Errorf("event creation failed: %w", err)
	}
	log.Info(ctx, "event created", logger.String("eventID", ev.ID), logger.String("name", ev.Name))

	// Step 3: Submit the roster and the tasks
	base := "/events/" + ev.ID
	okMembers, failedMembers := submitAll(ctx, client, cfg.Workers, base+"/members", sc.Members)
	okTasks, failedTasks := submitAll(ctx, client, cfg.Workers, base+"/tasks", sc.Tasks)
	stats.MembersCreated = okMembers
	stats.TasksCreated = okTasks
	stats.RequestsFailed = failedMembers + failedTasks
	if stats.RequestsFailed > 0 {
		return stats, fmt.Errorf("%w: %d member/task requests failed", ErrUnexpectedStatus, stats.RequestsFailed)
	}

	// Step 4: Allocate
	res, err := allocate(ctx, client, cfg, ev.ID)
	if err != nil {
		return stats, err
	}

	// Step 5: Verify against the store
	var stored taskList
	if err := client.do(ctx, http.MethodGet, base+"/tasks", nil, http.StatusOK, &stored); err != nil {
		return stats, fmt.Errorf("task listing failed: %w", err)
	}
	rep := Verify(sc, res, stored.Items)
	stats.Assigned = rep.Assigned
	stats.Unassigned = rep.Unassigned
	stats.FailedCommits = rep.FailedCommits
	stats.MaxTeamSpread = rep.Spread
	stats.EndTime = time.Now()
	stats.Duration = stats.EndTime.Sub(stats.StartTime)

	if cfg.Verbose {
		for _, a := range res.Assignments {
			log.Debug(ctx, "assignment",
				logger.String("taskID", a.TaskID),
				logger.String("memberID", a.MemberID),
				logger.String("status", a.Status))
		}
	}
	displayFinalStats(ctx, log, stats)

	if !rep.OK() {
		for _, v := range rep.Violations {
			log.Error(ctx, "verification failed", logger.String("violation", v))
		}
		return stats, fmt.Errorf("%w: %d violations", ErrVerification, len(rep.Violations))
	}
	log.Info(ctx, "seed run verified")
	return stats, nil
}

// allocate runs the pass inline or through the job queue.
func allocate(ctx context.Context, client *HTTPClient, cfg *Config, eventID string) (allocationResult, error) {
	var res allocationResult
	if !cfg.Async {
		if err := client.do(ctx, http.MethodPost, "/events/"+eventID+"/allocate", nil, http.StatusOK, &res); err != nil {
			return res, fmt.Errorf("allocation failed: %w", err)
		}
		return res, nil
	}

	var job jobResponse
	if err := client.do(ctx, http.MethodPost, "/events/"+eventID+"/allocations", nil, http.StatusAccepted, &job); err != nil {
		return res, fmt.Errorf("allocation submit failed: %w", err)
	}

	interval := cfg.PollInterval
	if interval <= 0 {
		interval = defaultPollInterval
	}
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return res, fmt.Errorf("waiting for job %s: %w", job.ID, ctx.Err())
		case <-ticker.C:
		}
		if err := client.do(ctx, http.MethodGet, "/allocations/"+job.ID, nil, http.StatusOK, &job); err != nil {
			return res, fmt.Errorf("job poll failed: %w", err)
		}
		switch job.State {
		case "succeeded":
			if job.Result == nil {
				return res, fmt.Errorf("%w: job %s has no result", ErrJobFailed, job.ID)
			}
			return *job.Result, nil
		case "failed":
			return res, fmt.Errorf("%w: job %s: %s", ErrJobFailed, job.ID, job.Error)
		}
	}
}

func displayFinalStats(ctx context.Context, log logger.Logger, stats *Stats) {
	log.Info(ctx, "final statistics",
		logger.Int("membersCreated", stats.MembersCreated),
		logger.Int("tasksCreated", stats.TasksCreated),
		logger.Int("assigned", stats.Assigned),
		logger.Int("unassigned", stats.Unassigned),
		logger.Int("failedCommits", stats.FailedCommits),
		logger.Int("maxTeamSpread", stats.MaxTeamSpread),
		logger.String("duration", stats.Duration.String()))
}
