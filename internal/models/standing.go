package models

import (
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"sort"
	"strings"
	"time"
)

// QualificationStatus describes where a team stands in its qualifying
// campaign. Only two values are meaningful: a team has either secured a
// tournament slot or is still contesting one.
type QualificationStatus string

const (
	StatusQualified  QualificationStatus = "Qualified"
	StatusInProgress QualificationStatus = "In Progress"
)

// IsValid reports whether s is a recognised qualification status.
func (s QualificationStatus) IsValid() bool {
	return s == StatusQualified || s == StatusInProgress
}

// ParseQualificationStatus normalizes a raw status string (any case,
// underscores accepted in place of spaces) into a QualificationStatus.
func ParseQualificationStatus(s string) (QualificationStatus, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "qualified":
		return StatusQualified, nil
	case "in progress", "in_progress":
		return StatusInProgress, nil
	}
	return "", fmt.Errorf("%w: unknown qualification status %q", ErrInvalidInput, s)
}

// StandingRow is one team's current position in its qualifying table,
// captured from the standings source. Rows are immutable once captured
// for a run; the next ingestion cycle supersedes them wholesale.
type StandingRow struct {
	Team           string              `db:"team" json:"team" validate:"required"`
	Confederation  Confederation       `db:"confederation" json:"confederation" validate:"required"`
	Stage          string              `db:"stage" json:"stage"`
	Group          string              `db:"current_group" json:"group"`
	Rank           *int                `db:"rank" json:"rank"`
	GamesPlayed    int                 `db:"games_played" json:"games_played"`
	Wins           int                 `db:"wins" json:"wins"`
	Draws          int                 `db:"draws" json:"draws"`
	Losses         int                 `db:"losses" json:"losses"`
	GoalsFor       int                 `db:"goals_for" json:"goals_for"`
	GoalsAgainst   int                 `db:"goals_against" json:"goals_against"`
	GoalDifference int                 `db:"goal_difference" json:"goal_difference"`
	Points         int                 `db:"points" json:"points"`
	Note           string              `db:"note" json:"note,omitempty"`
	Status         QualificationStatus `db:"qualification_status" json:"qualification_status" validate:"required"`
	FetchedAt      time.Time           `db:"fetched_at" json:"fetched_at"`
}

// Key returns the natural key the probability table is unique on.
func (r *StandingRow) Key() string {
	return fmt.Sprintf("%s|%s|%s", r.Team, r.Confederation, r.Group)
}

// PointsPerGame returns points / games played, or 0 when no games have
// been played. Callers that need to distinguish "no games yet" from a
// genuine 0.0 should check GamesPlayed first.
func (r *StandingRow) PointsPerGame() float64 {
	if r.GamesPlayed <= 0 {
		return 0
	}
	return float64(r.Points) / float64(r.GamesPlayed)
}

// Validate rejects rows the blender must not process: an unknown
// qualification status, a non-positive explicit rank, or negative
// counters. Failures are per-row, never fatal to a batch.
func (r *StandingRow) Validate() error {
	if strings.TrimSpace(r.Team) == "" {
		return ErrTeamNameRequired
	}
	if !r.Confederation.IsValid() {
		return fmt.Errorf("%w: confederation %q", ErrInvalidInput, r.Confederation)
	}
	if !r.Status.IsValid() {
		return fmt.Errorf("%w: qualification status %q", ErrInvalidInput, r.Status)
	}
	if r.Rank != nil && *r.Rank < 1 {
		return fmt.Errorf("%w: rank %d out of range", ErrInvalidInput, *r.Rank)
	}
	if r.GamesPlayed < 0 {
		return fmt.Errorf("%w: games played %d", ErrInvalidInput, r.GamesPlayed)
	}
	if r.Points < 0 {
		return fmt.Errorf("%w: points %d", ErrInvalidInput, r.Points)
	}
	return nil
}

// canonicalRow is the reduced, field-order-stable form of a StandingRow
// used for input hashing. Volatile fields (fetch time, notes) are
// excluded so re-fetching identical standings hashes identically.
type canonicalRow struct {
	Team          string `json:"team"`
	Confederation string `json:"confederation"`
	Stage         string `json:"stage"`
	Group         string `json:"group"`
	Rank          *int   `json:"rank"`
	GamesPlayed   int    `json:"games_played"`
	GoalDiff      int    `json:"goal_diff"`
	Points        int    `json:"points"`
	Status        string `json:"status"`
}

// InputHash computes the content hash identifying a batch of standing
// rows: rows are sorted by (confederation, group, team), reduced to
// their canonical fields, JSON-encoded and digested with SHA-256. Two
// calls over the same logical set always produce the same hash.
func InputHash(rows []StandingRow) string {
	canon := make([]canonicalRow, 0, len(rows))
	for _, r := range rows {
		canon = append(canon, canonicalRow{
			Team:          r.Team,
			Confederation: string(r.Confederation),
			Stage:         r.Stage,
			Group:         r.Group,
			Rank:          r.Rank,
			GamesPlayed:   r.GamesPlayed,
			GoalDiff:      r.GoalDifference,
			Points:        r.Points,
			Status:        string(r.Status),
		})
	}
	sort.Slice(canon, func(i, j int) bool {
		if canon[i].Confederation != canon[j].Confederation {
			return canon[i].Confederation < canon[j].Confederation
		}
		if canon[i].Group != canon[j].Group {
			return canon[i].Group < canon[j].Group
		}
		return canon[i].Team < canon[j].Team
	})

	payload, err := json.Marshal(canon)
	if err != nil {
		// Marshalling a slice of plain structs cannot fail; keep the
		// signature simple and hash the error text if it ever does.
		payload = []byte(err.Error())
	}
	sum := sha256.Sum256(payload)
	return hex.EncodeToString(sum[:])
}

// ParamsHash computes a content hash for jobs whose input is a
// parameter set rather than a standings batch. Keys are sorted so two
// identical parameter sets always hash identically.
func ParamsHash(params map[string]string) string {
	keys := make([]string, 0, len(params))
	for k := range params {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	var b strings.Builder
	for _, k := range keys {
		b.WriteString(k)
		b.WriteByte('=')
		b.WriteString(params[k])
		b.WriteByte('\n')
	}
	sum := sha256.Sum256([]byte(b.String()))
	return hex.EncodeToString(sum[:])
}
