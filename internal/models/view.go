package models

import "time"

// ServerView is one entity in the merged, UI-ready table.
type ServerView struct {
	ID         int32  `json:"id"`
	Name       string `json:"name"`
	Group      string `json:"group"`
	Weight     int    `json:"weight"`
	Region     string `json:"region,omitempty"`
	Host       Host   `json:"host"`
	Status     Status `json:"status"`
	Online     bool   `json:"online"`
	LastActive string `json:"last_active,omitempty"`
}

// LiveView is the reconciled output pushed to the dashboard: every
// roster entry exactly once in roster order, then every observed entity
// the roster does not know about.
type LiveView struct {
	UpdatedAt time.Time    `json:"updated_at"`
	Servers   []ServerView `json:"servers"`
}
