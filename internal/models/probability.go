package models

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// TeamSlotProbability is the blender's output for one team: the
// current authoritative estimate that the team fills one of the
// tournament's slots. Exactly one row exists per (team, confederation,
// group) key; a newer run's result replaces it in place.
type TeamSlotProbability struct {
	ID                  uuid.UUID           `db:"id" json:"id"`
	Team                string              `db:"team" json:"team" validate:"required"`
	Confederation       Confederation       `db:"confederation" json:"confederation" validate:"required"`
	QualificationStatus QualificationStatus `db:"qualification_status" json:"qualification_status" validate:"required"`
	ProbFillSlot        decimal.Decimal     `db:"prob_fill_slot" json:"prob_fill_slot"`
	CurrentGroup        string              `db:"current_group" json:"current_group"`
	Position            *int                `db:"position" json:"position"`
	Points              *int                `db:"points" json:"points"`
	Played              *int                `db:"played" json:"played"`
	GoalDiff            *int                `db:"goal_diff" json:"goal_diff"`
	RecentForm          string              `db:"form" json:"form"`
	UpdatedAt           time.Time           `db:"updated_at" json:"updated_at"`
	CreatedAt           time.Time           `db:"created_at" json:"created_at"`
}

// Key returns the natural key the probability table is unique on.
func (p *TeamSlotProbability) Key() string {
	return p.Team + "|" + string(p.Confederation) + "|" + p.CurrentGroup
}

// IsQualified reports whether the team has already secured its slot.
func (p *TeamSlotProbability) IsQualified() bool {
	return p.QualificationStatus == StatusQualified
}

// Probability returns prob_fill_slot as a float in [0,100].
func (p *TeamSlotProbability) Probability() float64 {
	f, _ := p.ProbFillSlot.Float64()
	return f
}

// ProbabilityFromFloat converts a blended float into the 2-decimal
// fixed precision the probability table persists.
func ProbabilityFromFloat(prob float64) decimal.Decimal {
	return decimal.NewFromFloat(prob).Round(2)
}
