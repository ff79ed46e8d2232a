package standings

import (
	"context"
	"fmt"
	"sort"
	"time"

	"github.com/yourusername/qualprob/internal/logger"
	"github.com/yourusername/qualprob/internal/metrics"
	"github.com/yourusername/qualprob/internal/models"
)

// Batch is the result of one full collection cycle across every
// covered confederation. A confederation that fails stays out of Rows
// and is recorded in Failed; the others are still usable.
type Batch struct {
	Rows      []models.StandingRow
	Counts    map[string]int    // rows per confederation
	Checksums map[string]string // payload checksum per confederation
	Failed    map[string]string // confederation -> error message
	FetchedAt time.Time
}

// FailedConfederations returns the confederations that could not be
// fetched, in stable order.
func (b *Batch) FailedConfederations() []string {
	failed := make([]string, 0, len(b.Failed))
	for confed := range b.Failed {
		failed = append(failed, confed)
	}
	sort.Strings(failed)
	return failed
}

// Collector runs one source across all its confederations
// sequentially and collates the results.
type Collector struct {
	source        Source
	retryAttempts int
	fetchLogger   *logger.FetchLogger
}

// NewCollector creates a collector over the given source.
func NewCollector(source Source, retryAttempts int, fetchLogger *logger.FetchLogger) *Collector {
	return &Collector{
		source:        source,
		retryAttempts: retryAttempts,
		fetchLogger:   fetchLogger,
	}
}

// Collect fetches every covered confederation. It returns an error
// only when no confederation could be fetched at all; partial failures
// are reported through the batch.
func (c *Collector) Collect(ctx context.Context) (*Batch, error) {
	batch := &Batch{
		Counts:    make(map[string]int),
		Checksums: make(map[string]string),
		Failed:    make(map[string]string),
		FetchedAt: time.Now().UTC(),
	}

	for _, confederation := range c.source.Confederations() {
		if err := ctx.Err(); err != nil {
			return nil, fmt.Errorf("collection aborted: %w", err)
		}

		started := time.Now()
		result, err := c.source.FetchStandings(ctx, confederation)
		if err != nil {
			batch.Failed[confederation.String()] = err.Error()
			metrics.RecordStandingsFetchFailure()
			if c.fetchLogger != nil {
				c.fetchLogger.LogFetchFailed(confederation.String(), c.retryAttempts, err)
			}
			continue
		}

		duration := time.Since(started)
		batch.Rows = append(batch.Rows, result.Rows...)
		batch.Counts[confederation.String()] = len(result.Rows)
		batch.Checksums[confederation.String()] = result.Checksum
		metrics.RecordStandingsFetch(duration.Seconds())
		if c.fetchLogger != nil {
			c.fetchLogger.LogFetchCompleted(confederation.String(), len(result.Rows), result.Checksum, duration.Milliseconds())
		}
	}

	if len(batch.Rows) == 0 {
		return nil, fmt.Errorf("no standings collected: all %d confederations failed", len(batch.Failed))
	}

	if c.fetchLogger != nil {
		c.fetchLogger.LogBatchCollected(len(batch.Rows), len(batch.Counts), batch.FailedConfederations(), models.InputHash(batch.Rows))
	}

	return batch, nil
}
