package models

import "time"

// ConfederationStat summarises the probability table for one
// confederation.
type ConfederationStat struct {
	Confederation  Confederation `db:"confederation" json:"confederation"`
	Teams          int           `db:"teams" json:"teams"`
	Qualified      int           `db:"qualified" json:"qualified"`
	AvgProbability float64       `db:"avg_probability" json:"avg_probability"`
}

// TeamStats summarises the whole probability table, served by the stats
// endpoint and the status command.
type TeamStats struct {
	TotalTeams     int                 `json:"total_teams"`
	Qualified      int                 `json:"qualified"`
	InProgress     int                 `json:"in_progress"`
	AvgProbability float64             `json:"avg_probability"`
	Confederations []ConfederationStat `json:"confederations"`
	LastUpdated    *time.Time          `json:"last_updated,omitempty"`
}
