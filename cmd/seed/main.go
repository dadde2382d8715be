package main

import (
	"context"
	"flag"
	"os"
	"runtime"
	"time"

	"github.com/okian/taskforce/internal/seed"
)

// Default configuration constants.
const (
	defaultTeams          = 4
	defaultMembersPerTeam = 5
	defaultTasks          = 60
	defaultOrphans        = 3
	defaultWorkers        = 2 // multiplier for runtime.NumCPU()
	defaultTimeout        = 30 * time.Second
	defaultRunTimeout     = 5 * time.Minute
)

func main() {
	var (
		baseURL = flag.String("url", "http://localhost:9080", "Base URL of the service")
		teams   = flag.Int("teams", defaultTeams, "Number of staffed teams")
		members = flag.Int("members", defaultMembersPerTeam, "Members per team")
		tasks   = flag.Int("tasks", defaultTasks, "Tasks spread over the teams")
		orphans = flag.Int("orphans", defaultOrphans, "Tasks for a team with no members")
		workers = flag.Int("workers", runtime.NumCPU()*defaultWorkers, "Number of concurrent workers")
		timeout = flag.Duration("timeout", defaultTimeout, "HTTP request timeout")
		async   = flag.Bool("async", false, "Queue the pass and poll for its result")
		seedVal = flag.Uint64("seed", 0, "Generator seed (0 uses the clock)")
		logFile = flag.String("log", "", "Also log to this file")
		verbose = flag.Bool("verbose", false, "Log every assignment")
		help    = flag.Bool("help", false, "Show help")
	)
	flag.Parse()

	if *help {
		seed.ShowHelp()
		return
	}

	if err := seed.SetupLogging(*logFile, *verbose); err != nil {
		os.Stderr.WriteString("Failed to setup logging: " + err.Error() + "\n")
		os.Exit(1)
	}

	ctx, cancel := context.WithTimeout(context.Background(), defaultRunTimeout)
	defer cancel()

	cfg := &seed.Config{
		BaseURL:        *baseURL,
		Teams:          *teams,
		MembersPerTeam: *members,
		Tasks:          *tasks,
		OrphanTasks:    *orphans,
		Workers:        *workers,
		Timeout:        *timeout,
		Async:          *async,
		Seed:           *seedVal,
		Verbose:        *verbose,
	}

	if _, err := seed.Run(ctx, cfg); err != nil {
		os.Stderr.WriteString("Seed run failed: " + err.Error() + "\n")
		cancel()
		os.Exit(1) //nolint:gocritic // cancel called above
	}
}
