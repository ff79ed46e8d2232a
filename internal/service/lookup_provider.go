// Package service wires the standings source, the blending engine and
// the repositories into the batch pipelines recorded in the run ledger.
package service

import (
	"context"
	"fmt"
	"time"

	gocache "github.com/patrickmn/go-cache"
	"github.com/sirupsen/logrus"

	"github.com/yourusername/qualprob/internal/blend"
	"github.com/yourusername/qualprob/internal/metrics"
	"github.com/yourusername/qualprob/internal/models"
	"github.com/yourusername/qualprob/internal/repository"
)

const lookupTableCacheKey = "lookup_table"

// LookupProvider serves the in-memory historical lookup table. The
// table is loaded from the database on first use and cached until it
// expires or a rebuild flushes it; refresh runs between rebuilds all
// blend against the same snapshot.
type LookupProvider struct {
	repo   repository.LookupRepository
	cache  *gocache.Cache
	logger *logrus.Logger
}

// NewLookupProvider creates a provider whose cached table expires after
// ttl, with expired items swept every sweepInterval.
func NewLookupProvider(repo repository.LookupRepository, ttl, sweepInterval time.Duration, logger *logrus.Logger) *LookupProvider {
	if logger == nil {
		logger = logrus.New()
	}
	if ttl <= 0 {
		ttl = 30 * time.Minute
	}
	if sweepInterval <= 0 {
		sweepInterval = 10 * time.Minute
	}

	return &LookupProvider{
		repo:   repo,
		cache:  gocache.New(ttl, sweepInterval),
		logger: logger,
	}
}

// Table returns the current lookup table, from cache when fresh. An
// empty database yields an empty table, not an error; the blender
// falls back to form-only scores against it.
func (p *LookupProvider) Table(ctx context.Context) (*blend.Table, error) {
	if cached, ok := p.cache.Get(lookupTableCacheKey); ok {
		if table, ok := cached.(*blend.Table); ok {
			return table, nil
		}
	}

	entries, err := p.repo.ListAll(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to load lookup table: %w", err)
	}

	values := make([]models.HistoricalProbabilityEntry, 0, len(entries))
	for _, e := range entries {
		values = append(values, *e)
	}

	table := blend.NewTable(values)
	p.cache.Set(lookupTableCacheKey, table, gocache.DefaultExpiration)
	metrics.UpdateLookupTableEntries(float64(table.Size()))

	p.logger.WithFields(logrus.Fields{
		"entries": len(entries),
		"indexed": table.Size(),
	}).Debug("Lookup table loaded")

	return table, nil
}

// Flush drops the cached table so the next Table call reloads from the
// database. Called after a lookup rebuild replaces the persisted rows.
func (p *LookupProvider) Flush() {
	p.cache.Delete(lookupTableCacheKey)
}
