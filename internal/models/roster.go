package models

// RosterEntry is one long-lived monitored entity from the authoritative
// roster. Entries are identified by an opaque UUID; the numeric ID shown
// to the dashboard is derived from it with HashID.
type RosterEntry struct {
	UUID   string `json:"uuid"`
	Name   string `json:"name"`
	Group  string `json:"group"`
	Weight int    `json:"weight"`
	Note   string `json:"note,omitempty"`
	Region string `json:"region,omitempty"`
	Host   Host   `json:"host"`
}
