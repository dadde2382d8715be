package model

import (
	"sort"
	"strings"
)

// SkillSet is a set of normalized skill names.
type SkillSet map[string]struct{}

// NewSkillSet builds a set from raw skill names, normalizing each one.
func NewSkillSet(skills ...string) SkillSet {
	set := make(SkillSet, len(skills))
	for _, s := range skills {
		if n := normalizeSkill(s); n != "" {
			set[n] = struct{}{}
		}
	}
	return set
}

// Has reports whether the set contains skill.
func (s SkillSet) Has(skill string) bool {
	_, ok := s[normalizeSkill(skill)]
	return ok
}

// Overlap returns |s ∩ other|.
func (s SkillSet) Overlap(other SkillSet) int {
	small, large := s, other
	if len(small) > len(large) {
		small, large = large, small
	}
	n := 0
	for k := range small {
		if _, ok := large[k]; ok {
			n++
		}
	}
	return n
}

// NormalizeSkills trims, lower-cases and de-duplicates skills, dropping blanks.
// The result keeps first-seen order and is never nil.
func NormalizeSkills(skills []string) []string {
	out := make([]string, 0, len(skills))
	seen := make(map[string]struct{}, len(skills))
	for _, s := range skills {
		n := normalizeSkill(s)
		if n == "" {
			continue
		}
		if _, dup := seen[n]; dup {
			continue
		}
		seen[n] = struct{}{}
		out = append(out, n)
	}
	return out
}

// SortedSkills returns the members of the set in lexical order.
func (s SkillSet) SortedSkills() []string {
	out := make([]string, 0, len(s))
	for k := range s {
		out = append(out, k)
	}
	sort.Strings(out)
	return out
}

func normalizeSkill(s string) string {
	return strings.ToLower(strings.TrimSpace(s))
}
