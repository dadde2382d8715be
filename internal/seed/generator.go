package seed

import (
	"fmt"
	"math/rand/v2"
	"time"

	"github.com/google/uuid"
)

// orphanTeam has tasks but never any members.
const orphanTeam = "team-orphan"

var skillPool = []string{"go", "sql", "design", "frontend", "devops", "docs", "ml", "mobile"}

var priorities = []string{"low", "medium", "high"}

// Scenario is a generated event.
type Scenario struct {
	Name    string
	Members []MemberRequest
	Tasks   []TaskRequest
}

// teamOf maps member id to team id.
func (s Scenario) teamOf() map[string]string {
	out := make(map[string]string, len(s.Members))
	for _, m := range s.Members {
		out[m.ID] = m.TeamID
	}
	return out
}

// Generate builds a scenario from cfg. The same seed yields the same shape;
// ids are always fresh.
func Generate(cfg *Config) Scenario {
	seed := cfg.Seed
	if seed == 0 {
		seed = uint64(time.Now().UnixNano()) //nolint:gosec // non-negative clock
	}
	rng := rand.New(rand.NewPCG(seed, seed^0x9e3779b97f4a7c15)) //nolint:gosec // test data

	sc := Scenario{Name: fmt.Sprintf("seed-%d", seed)}
	for t := 0; t < cfg.Teams; t++ {
		team := fmt.Sprintf("team-%d", t+1)
		for i := 0; i < cfg.MembersPerTeam; i++ {
			sc.Members = append(sc.Members, MemberRequest{
				ID:     uuid.NewString(),
				TeamID: team,
				Name:   fmt.Sprintf("%s member %d", team, i+1),
				Skills: pickSkills(rng, 1+rng.IntN(3)),
			})
		}
	}

	for i := 0; i < cfg.Tasks && cfg.Teams > 0; i++ {
		sc.Tasks = append(sc.Tasks, generateTask(rng, fmt.Sprintf("team-%d", rng.IntN(cfg.Teams)+1), i))
	}
	for i := 0; i < cfg.OrphanTasks; i++ {
		sc.Tasks = append(sc.Tasks, generateTask(rng, orphanTeam, cfg.Tasks+i))
	}
	return sc
}

func generateTask(rng *rand.Rand, team string, n int) TaskRequest {
	return TaskRequest{
		ID:             uuid.NewString(),
		TeamID:         team,
		Title:          fmt.Sprintf("task %d", n+1),
		RequiredSkills: pickSkills(rng, rng.IntN(3)),
		Priority:       priorities[rng.IntN(len(priorities))],
	}
}

// pickSkills returns n distinct skills from the pool.
func pickSkills(rng *rand.Rand, n int) []string {
	perm := rng.Perm(len(skillPool))
	out := make([]string, 0, n)
	for _, idx := range perm[:min(n, len(perm))] {
		out = append(out, skillPool[idx])
	}
	return out
}
