package models

import (
	"errors"
	"fmt"
)

// Custom errors
var (
	ErrNotFound         = errors.New("record not found")
	ErrDuplicateKey     = errors.New("duplicate key violation")
	ErrInvalidInput     = errors.New("invalid input")
	ErrConnectionFailed = errors.New("database connection failed")
	ErrRunTerminal      = errors.New("run already in a terminal status")
	ErrTeamNameRequired = errors.New("team name is required")
)

// ValidationError is a named, coded validation failure attached to a model.
type ValidationError struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

// NewValidationError creates a coded validation error.
func NewValidationError(code, message string) *ValidationError {
	return &ValidationError{Code: code, Message: message}
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

// RowError records a single standing row that failed validation or
// blending. Rows that error are skipped and counted; they never abort
// the surrounding batch.
type RowError struct {
	Team          string        `json:"team"`
	Confederation Confederation `json:"confederation"`
	Group         string        `json:"group,omitempty"`
	Reason        string        `json:"reason"`
}

func (e *RowError) Error() string {
	return fmt.Sprintf("%s (%s/%s): %s", e.Team, e.Confederation, e.Group, e.Reason)
}

// NewRowError builds a RowError for a standing row.
func NewRowError(row StandingRow, reason string) *RowError {
	return &RowError{
		Team:          row.Team,
		Confederation: row.Confederation,
		Group:         row.Group,
		Reason:        reason,
	}
}
