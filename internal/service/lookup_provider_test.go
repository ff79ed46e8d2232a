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

func TestLookupProviderCachesTable(t *testing.T) {
	repo := &fakeLookupRepo{entries: []*models.HistoricalProbabilityEntry{
		rankEntry(models.ConfederationUEFA, "Group Stage", 1, 0.9),
		bucketEntry(models.ConfederationUEFA, "Group Stage", "3-4", "1.0-1.49", 0.25),
	}}
	provider := NewLookupProvider(repo, time.Minute, time.Minute, testLogger())

	table, err := provider.Table(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 2, table.Size())

	// Second read is served from cache.
	_, err = provider.Table(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 1, repo.listCalls)
}

func TestLookupProviderFlushReloads(t *testing.T) {
	repo := &fakeLookupRepo{entries: []*models.HistoricalProbabilityEntry{
		rankEntry(models.ConfederationAFC, "Third Round", 1, 0.8),
	}}
	provider := NewLookupProvider(repo, time.Minute, time.Minute, testLogger())

	table, err := provider.Table(context.Background())
	require.NoError(t, err)
	require.Equal(t, 1, table.Size())

	repo.entries = append(repo.entries, rankEntry(models.ConfederationAFC, "Third Round", 2, 0.55))
	provider.Flush()

	table, err = provider.Table(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 2, table.Size())
	assert.Equal(t, 2, repo.listCalls)
}

func TestLookupProviderEmptyTable(t *testing.T) {
	provider := NewLookupProvider(&fakeLookupRepo{}, time.Minute, time.Minute, testLogger())

	table, err := provider.Table(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 0, table.Size())
}

func TestLookupProviderPropagatesLoadError(t *testing.T) {
	repo := &fakeLookupRepo{listErr: errors.New("relation does not exist")}
	provider := NewLookupProvider(repo, time.Minute, time.Minute, testLogger())

	_, err := provider.Table(context.Background())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "failed to load lookup table")
}
