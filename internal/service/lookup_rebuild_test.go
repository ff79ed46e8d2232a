package service

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/yourusername/qualprob/internal/models"
)

func TestRebuildReplacesLookupTable(t *testing.T) {
	archive := &fakeArchiveRepo{
		rankAgg: []*models.HistoricalProbabilityEntry{
			rankEntry(models.ConfederationUEFA, "Group Stage", 1, 1.0),
			rankEntry(models.ConfederationUEFA, "Group Stage", 2, 0.5),
		},
		bucketAgg: []*models.HistoricalProbabilityEntry{
			bucketEntry(models.ConfederationUEFA, "Group Stage", "1", ">=2", 0.95),
		},
	}
	lookupRepo := &fakeLookupRepo{}
	runRepo := newFakeRunRepo()

	svc := NewLookupRebuildService(archive, lookupRepo, runRepo, nil, "test", testLogger())
	result, err := svc.Run(context.Background(), TriggerManual)
	require.NoError(t, err)

	assert.Equal(t, 2, result.RankEntries)
	assert.Equal(t, 1, result.BucketEntries)
	assert.Equal(t, 3, result.Total())
	assert.Len(t, lookupRepo.entries, 3)

	assert.Equal(t, models.RunStatusSuccess, result.Run.Status)
	assert.Equal(t, 3, result.Run.RecordsProcessed)
	assert.Equal(t, 3, result.Run.RecordsInserted)
}

func TestRebuildFlushesProviderCache(t *testing.T) {
	lookupRepo := &fakeLookupRepo{entries: []*models.HistoricalProbabilityEntry{
		rankEntry(models.ConfederationOFC, "Final", 1, 0.7),
	}}
	provider := NewLookupProvider(lookupRepo, time.Minute, time.Minute, testLogger())

	table, err := provider.Table(context.Background())
	require.NoError(t, err)
	require.Equal(t, 1, table.Size())

	archive := &fakeArchiveRepo{
		rankAgg: []*models.HistoricalProbabilityEntry{
			rankEntry(models.ConfederationOFC, "Final", 1, 0.75),
			rankEntry(models.ConfederationOFC, "Final", 2, 0.2),
		},
	}
	svc := NewLookupRebuildService(archive, lookupRepo, newFakeRunRepo(), provider, "test", testLogger())
	_, err = svc.Run(context.Background(), TriggerManual)
	require.NoError(t, err)

	// The provider serves the rebuilt table, not the cached snapshot.
	table, err = provider.Table(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 2, table.Size())
}

func TestRebuildEmptyArchiveFails(t *testing.T) {
	runRepo := newFakeRunRepo()

	svc := NewLookupRebuildService(&fakeArchiveRepo{}, &fakeLookupRepo{}, runRepo, nil, "test", testLogger())
	_, err := svc.Run(context.Background(), TriggerScheduled)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "archive is empty")

	require.Len(t, runRepo.created, 1)
	run := runRepo.runs[runRepo.created[0]]
	assert.Equal(t, models.RunStatusFailed, run.Status)
	assert.Equal(t, "standings archive is empty", run.Notes)
}

func TestRebuildAggregationFailure(t *testing.T) {
	archive := &fakeArchiveRepo{aggErr: errors.New("statement timeout")}
	runRepo := newFakeRunRepo()

	svc := NewLookupRebuildService(archive, &fakeLookupRepo{}, runRepo, nil, "test", testLogger())
	_, err := svc.Run(context.Background(), TriggerScheduled)
	require.Error(t, err)

	run := runRepo.runs[runRepo.created[0]]
	assert.Equal(t, models.RunStatusFailed, run.Status)
	assert.Contains(t, run.Notes, "aggregation failed")
}

func TestRebuildReplaceFailure(t *testing.T) {
	archive := &fakeArchiveRepo{
		rankAgg: []*models.HistoricalProbabilityEntry{
			rankEntry(models.ConfederationCAF, "Group Stage", 1, 0.8),
		},
	}
	lookupRepo := &fakeLookupRepo{replaceErr: errors.New("deadlock detected")}
	runRepo := newFakeRunRepo()

	svc := NewLookupRebuildService(archive, lookupRepo, runRepo, nil, "test", testLogger())
	_, err := svc.Run(context.Background(), TriggerManual)
	require.Error(t, err)

	run := runRepo.runs[runRepo.created[0]]
	assert.Equal(t, models.RunStatusFailed, run.Status)
	assert.Contains(t, run.Notes, "lookup replacement failed")
}
