package allocation

import "github.com/okian/taskforce/internal/domain/model"

// Candidate is a roster member prepared for ranking.
type Candidate struct {
	Member model.Member
	Order  int // position in the roster as fetched
	skills model.SkillSet
}

// NewCandidates normalizes the roster once per pass, remembering each
// member's roster position for the final tiebreak.
func NewCandidates(roster []model.Member) []Candidate {
	out := make([]Candidate, len(roster))
	for i, m := range roster {
		m = m.Normalize()
		out[i] = Candidate{Member: m, Order: i, skills: model.NewSkillSet(m.Skills...)}
	}
	return out
}

// Eligible returns the candidates on the task's team, in roster order.
// An empty result means the task cannot be assigned in this pass.
func Eligible(task model.Task, roster []Candidate) []Candidate {
	if task.TeamID == "" {
		return nil
	}
	var out []Candidate
	for _, c := range roster {
		if c.Member.TeamID == task.TeamID {
			out = append(out, c)
		}
	}
	return out
}

// candidateIDs returns the normalized member ids in roster order.
func candidateIDs(candidates []Candidate) []string {
	ids := make([]string, len(candidates))
	for i, c := range candidates {
		ids[i] = c.Member.ID
	}
	return ids
}
