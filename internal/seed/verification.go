package seed

import (
	"fmt"
	"slices"
)

// Report summarizes a verified allocation.
type Report struct {
	Assigned      int
	Unassigned    int
	FailedCommits int
	// Spread is the largest difference in tasks handed out between two
	// members of the same team during the pass.
	Spread     int
	Violations []string
}

// OK reports whether no property was violated.
func (r Report) OK() bool {
	return len(r.Violations) == 0
}

// Verify checks a pass result and the stored tasks against the scenario:
// every committed assignment stays inside the task's team, no task is
// assigned twice, orphan tasks stay unassigned and the store agrees with the
// response.
func Verify(sc Scenario, res allocationResult, stored []storedTask) Report {
	var rep Report
	teams := sc.teamOf()
	taskTeam := make(map[string]string, len(sc.Tasks))
	for _, t := range sc.Tasks {
		taskTeam[t.ID] = t.TeamID
	}

	violate := func(format string, args ...any) {
		rep.Violations = append(rep.Violations, fmt.Sprintf(format, args...))
	}

	seen := make(map[string]string, len(res.Assignments))
	perMember := make(map[string]int)
	for _, a := range res.Assignments {
		if prev, dup := seen[a.TaskID]; dup {
			violate("task %s assigned twice (%s, %s)", a.TaskID, prev, a.MemberID)
			continue
		}
		seen[a.TaskID] = a.MemberID

		if a.Status != "committed" {
			rep.FailedCommits++
			continue
		}
		rep.Assigned++
		perMember[a.MemberID]++
		want, known := taskTeam[a.TaskID]
		if !known {
			violate("task %s was not generated by this run", a.TaskID)
			continue
		}
		if got := teams[a.MemberID]; got != want {
			violate("task %s of %s assigned to %s of %q", a.TaskID, want, a.MemberID, got)
		}
	}

	rep.Unassigned = len(res.UnassignedTaskIDs)
	for _, id := range res.UnassignedTaskIDs {
		if _, dup := seen[id]; dup {
			violate("task %s both assigned and unassigned", id)
		}
	}
	for _, t := range sc.Tasks {
		if t.TeamID == orphanTeam && !slices.Contains(res.UnassignedTaskIDs, t.ID) {
			violate("orphan task %s was not reported unassigned", t.ID)
		}
	}

	for _, t := range stored {
		member, inResult := seen[t.ID]
		switch {
		case t.Assignment == nil && inResult && slices.ContainsFunc(res.Assignments, func(a assignmentEntry) bool {
			return a.TaskID == t.ID && a.Status == "committed"
		}):
			violate("task %s committed but stored unassigned", t.ID)
		case t.Assignment != nil && t.Assignment.MemberID != member:
			violate("task %s stored for %s, response says %q", t.ID, t.Assignment.MemberID, member)
		}
	}

	rep.Spread = teamSpread(sc, perMember)
	return rep
}

// teamSpread returns the largest per-team max-min of tasks handed out.
func teamSpread(sc Scenario, perMember map[string]int) int {
	lo := map[string]int{}
	hi := map[string]int{}
	for _, m := range sc.Members {
		n := perMember[m.ID]
		if cur, ok := lo[m.TeamID]; !ok || n < cur {
			lo[m.TeamID] = n
		}
		if n > hi[m.TeamID] {
			hi[m.TeamID] = n
		}
	}
	spread := 0
	for team, h := range hi {
		spread = max(spread, h-lo[team])
	}
	return spread
}
