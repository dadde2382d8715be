package allocation

import (
	"sort"

	"github.com/okian/taskforce/internal/domain/model"
)

// Ranked is a candidate with the keys it was ordered by.
type Ranked struct {
	Candidate
	SkillMatch int
	OpenTasks  int
}

// SkillMatchCount returns |member skills ∩ required skills|; zero when the
// task requires nothing.
func SkillMatchCount(c Candidate, required model.SkillSet) int {
	if len(required) == 0 {
		return 0
	}
	return c.skills.Overlap(required)
}

// Rank orders eligible candidates for task:
//  1. skill match count, descending
//  2. open task count in w, ascending
//  3. roster order, ascending
//
// The first element is the assignee.
func Rank(task model.Task, eligible []Candidate, w Workload) []Ranked {
	required := model.NewSkillSet(task.RequiredSkills...)
	ranked := make([]Ranked, len(eligible))
	for i, c := range eligible {
		ranked[i] = Ranked{
			Candidate:  c,
			SkillMatch: SkillMatchCount(c, required),
			OpenTasks:  w.Open(c.Member.ID),
		}
	}
	sort.SliceStable(ranked, func(i, j int) bool {
		a, b := ranked[i], ranked[j]
		if a.SkillMatch != b.SkillMatch {
			return a.SkillMatch > b.SkillMatch
		}
		if a.OpenTasks != b.OpenTasks {
			return a.OpenTasks < b.OpenTasks
		}
		return a.Order < b.Order
	})
	return ranked
}
