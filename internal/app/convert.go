package service

import (
	"github.com/okian/taskforce/internal/domain/allocation"
	"github.com/okian/taskforce/internal/domain/types"
)

// toAllocationResult converts an engine result into its wire shape.
func toAllocationResult(res allocation.Result) types.AllocationResult {
	out := types.AllocationResult{
		EventID:           res.EventID,
		AssignedCount:     res.AssignedCount,
		Assignments:       make([]types.Entry, 0, len(res.Outcomes)),
		UnassignedTaskIDs: nonNil(res.UnassignedTaskIDs),
		FailedTaskIDs:     nonNil(res.FailedTaskIDs),
		DryRun:            res.DryRun,
	}
	for _, o := range res.Outcomes {
		e := types.Entry{
			TaskID:     o.Assignment.TaskID,
			MemberID:   o.Assignment.MemberID,
			MemberName: o.Assignment.MemberName,
		}
		switch {
		case res.DryRun:
			e.Status = types.StatusPlanned
		case o.Committed:
			e.Status = types.StatusCommitted
		default:
			e.Status = types.StatusFailed
			if o.Err != nil {
				e.Error = o.Err.Error()
			}
		}
		out.Assignments = append(out.Assignments, e)
	}
	return out
}

func nonNil(ids []string) []string {
	if ids == nil {
		return []string{}
	}
	return ids
}
