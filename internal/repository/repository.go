package repository

import (
	"fmt"

	"github.com/yourusername/qualprob/internal/database"
)

// Repositories holds all repository implementations
type Repositories struct {
	Probability        ProbabilityRepository
	Run                RunRepository
	Lookup             LookupRepository
	HistoricalStanding HistoricalStandingRepository
}

// NewRepositories creates and returns all repository implementations
func NewRepositories(db *database.DB) (*Repositories, error) {
	if db == nil {
		return nil, fmt.Errorf("database connection is required")
	}

	return &Repositories{
		Probability:        NewPostgresProbabilityRepository(db),
		Run:                NewPostgresRunRepository(db),
		Lookup:             NewPostgresLookupRepository(db),
		HistoricalStanding: NewPostgresHistoricalStandingRepository(db),
	}, nil
}
