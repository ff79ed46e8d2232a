// Package standings fetches current qualifying tables from the upstream
// standings provider and normalizes them into rows the blender consumes.
package standings

import (
	"context"
	"time"

	"github.com/yourusername/qualprob/internal/models"
)

// Source defines the interface for fetching qualifying standings from
// an external provider.
type Source interface {
	// FetchStandings retrieves the current tables for one confederation
	FetchStandings(ctx context.Context, confederation models.Confederation) (*ConfederationStandings, error)

	// Confederations returns the confederations this source covers
	Confederations() []models.Confederation

	// Name returns the name of the source
	Name() string
}

// ConfederationStandings is the normalized result of one confederation
// fetch: every table row across the confederation's current groups,
// plus a checksum of the raw payload for change detection.
type ConfederationStandings struct {
	Confederation models.Confederation `json:"confederation"`
	Rows          []models.StandingRow `json:"rows"`
	Checksum      string               `json:"checksum"`
	SourceURL     string               `json:"source_url"`
	FetchedAt     time.Time            `json:"fetched_at"`
}

// SourceError represents errors from standings source operations.
type SourceError struct {
	Source  string // source name
	Code    string // error code (e.g. "invalid_data")
	Message string // error message
	Err     error  // underlying error
}

func (e SourceError) Error() string {
	if e.Err != nil {
		return e.Source + ": " + e.Code + ": " + e.Message + " (" + e.Err.Error() + ")"
	}
	return e.Source + ": " + e.Code + ": " + e.Message
}

func (e SourceError) Unwrap() error {
	return e.Err
}

// Common error codes
const (
	ErrCodeNetworkError = "network_error"
	ErrCodeServerError  = "server_error"
	ErrCodeInvalidData  = "invalid_data"
	ErrCodeNotCovered   = "not_covered"
)

// NewSourceError creates a new source error.
func NewSourceError(source, code, message string, err error) SourceError {
	return SourceError{
		Source:  source,
		Code:    code,
		Message: message,
		Err:     err,
	}
}
