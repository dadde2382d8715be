package seed

import (
	"fmt"
	"os"

	"github.com/okian/taskforce/pkg/logger"
)

// SetupLogging initializes the logger, adding a rotated file sink when
// logFile is set.
func SetupLogging(logFile string, verbose bool) error {
	var opts []logger.Option
	if logFile != "" {
		opts = append(opts, logger.WithFile(logFile))
	}
	if err := logger.Init(opts...); err != nil {
		return fmt.Errorf("failed to initialize logger: %w", err)
	}
	if verbose {
		return logger.SetLevelString("debug")
	}
	return nil
}

// ShowHelp prints usage information for the seed tool.
func ShowHelp() {
	os.Stdout.WriteString(`taskforce seed
==============

Seeds a running taskforce server with a random event, allocates it and
verifies that every task went to its own team exactly once.

Usage:
  go run ./cmd/seed [options]

Options:
  -url string        Base URL of the service (default "http://localhost:9080")
  -teams int         Number of staffed teams (default 4)
  -members int       Members per team (default 5)
  -tasks int         Tasks spread over the teams (default 60)
  -orphans int       Tasks for a team with no members (default 3)
  -workers int       Concurrent HTTP workers (default CPU cores * 2)
  -timeout duration  HTTP request timeout (default 30s)
  -async             Queue the pass and poll for its result
  -seed uint         Generator seed (default: clock)
  -log string        Also log to this file
  -verbose           Log every assignment
  -help              Show this help message

Examples:
  go run ./cmd/seed -teams 8 -tasks 500
  go run ./cmd/seed -async -seed 42 -url http://localhost:8080
`)
}
