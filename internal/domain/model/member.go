package model

import (
	"strings"
	"time"
)

// Member is a person on an event roster.
type Member struct {
	ID       string    `json:"id" bson:"_id"`
	EventID  string    `json:"event_id" bson:"event_id"`
	TeamID   string    `json:"team_id" bson:"team_id"`
	Name     string    `json:"name" bson:"name"`
	Skills   []string  `json:"skills" bson:"skills"`
	JoinedAt time.Time `json:"joined_at" bson:"joined_at"`
}

// Normalize returns a copy of the member with input defaults applied.
func (m Member) Normalize() Member {
	m.ID = strings.TrimSpace(m.ID)
	m.TeamID = strings.TrimSpace(m.TeamID)
	m.Skills = NormalizeSkills(m.Skills)
	return m
}
