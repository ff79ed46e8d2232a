package service

import (
	"context"
	"encoding/json"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/yourusername/qualprob/internal/blend"
	"github.com/yourusername/qualprob/internal/logger"
	"github.com/yourusername/qualprob/internal/models"
	"github.com/yourusername/qualprob/internal/standings"
)

func newRefreshService(source standings.Source, runRepo *fakeRunRepo, probRepo *fakeProbRepo, lookupRepo *fakeLookupRepo, dedup bool) *RefreshService {
	log := testLogger()
	collector := standings.NewCollector(source, 0, logger.NewFetchLogger(log))
	provider := NewLookupProvider(lookupRepo, time.Minute, time.Minute, log)
	materializer := NewMaterializer(probRepo, log)
	blender := blend.NewBlender(blend.DefaultConfig())

	return NewRefreshService(collector, provider, materializer, blender, runRepo, RefreshConfig{
		Environment:  "test",
		DedupEnabled: dedup,
		StaleAfter:   time.Hour,
	}, log)
}

func TestRefreshRunHappyPath(t *testing.T) {
	source := &fakeSource{
		covered: []models.Confederation{models.ConfederationUEFA},
		rows: map[models.Confederation][]models.StandingRow{
			models.ConfederationUEFA: {
				inProgressRow("Spain", models.ConfederationUEFA, "Qualifying Group Stage", "Group A", 1, 16, 8, 12),
				inProgressRow("Georgia", models.ConfederationUEFA, "Qualifying Group Stage", "Group A", 4, 10, 8, 0),
			},
		},
	}
	runRepo := newFakeRunRepo()
	probRepo := newFakeProbRepo()

	svc := newRefreshService(source, runRepo, probRepo, &fakeLookupRepo{}, false)
	result, err := svc.Run(context.Background(), TriggerManual)
	require.NoError(t, err)

	// Two standings rows plus the three seeded hosts.
	assert.Equal(t, 5, result.Processed)
	assert.Equal(t, 0, result.Failed)
	assert.Equal(t, 5, result.Inserted)
	assert.Equal(t, models.RunStatusSuccess, result.Run.Status)
	assert.Equal(t, "seeded 3 host team(s)", result.Run.Notes)
	assert.Equal(t, TriggerManual, result.Run.TriggerSource)
	assert.NotEmpty(t, result.Run.InputHash)

	// With no historical table the form score carries the whole blend.
	spain, err := probRepo.GetByKey(context.Background(), "Spain", models.ConfederationUEFA, "Group A")
	require.NoError(t, err)
	assert.InDelta(t, 97.0, spain.Probability(), 0.001)
	assert.Equal(t, "5W-1D-2L", spain.RecentForm)

	host, err := probRepo.GetByKey(context.Background(), "Canada", models.ConfederationCONCACAF, "Host")
	require.NoError(t, err)
	assert.Equal(t, 100.0, host.Probability())
	assert.True(t, host.IsQualified())
	assert.Nil(t, host.Played)
}

func TestRefreshRunBlendsAgainstLookupTable(t *testing.T) {
	source := &fakeSource{
		covered: []models.Confederation{models.ConfederationUEFA},
		rows: map[models.Confederation][]models.StandingRow{
			models.ConfederationUEFA: {
				inProgressRow("Spain", models.ConfederationUEFA, "Qualifying Group Stage", "Group A", 1, 16, 8, 12),
			},
		},
	}
	lookupRepo := &fakeLookupRepo{entries: []*models.HistoricalProbabilityEntry{
		rankEntry(models.ConfederationUEFA, "Qualifying Group Stage", 1, 0.92),
	}}

	probRepo := newFakeProbRepo()
	svc := newRefreshService(source, newFakeRunRepo(), probRepo, lookupRepo, false)
	_, err := svc.Run(context.Background(), TriggerManual)
	require.NoError(t, err)

	// 0.6*97 + 0.4*92 = 95.0
	spain, err := probRepo.GetByKey(context.Background(), "Spain", models.ConfederationUEFA, "Group A")
	require.NoError(t, err)
	assert.InDelta(t, 95.0, spain.Probability(), 0.001)
}

func TestRefreshRunPartialFailure(t *testing.T) {
	eliminated := inProgressRow("Ghostland", models.ConfederationUEFA, "Qualifying Group Stage", "Group B", 6, 2, 8, -12)
	eliminated.Status = "Eliminated"

	source := &fakeSource{
		covered: []models.Confederation{models.ConfederationUEFA, models.ConfederationAFC},
		rows: map[models.Confederation][]models.StandingRow{
			models.ConfederationUEFA: {
				inProgressRow("Spain", models.ConfederationUEFA, "Qualifying Group Stage", "Group A", 1, 16, 8, 12),
				inProgressRow("Georgia", models.ConfederationUEFA, "Qualifying Group Stage", "Group A", 4, 10, 8, 0),
				eliminated,
			},
			models.ConfederationAFC: {
				inProgressRow("Japan", models.ConfederationAFC, "Third Round", "Group C", 1, 18, 8, 15),
			},
		},
	}
	runRepo := newFakeRunRepo()
	probRepo := newFakeProbRepo()

	svc := newRefreshService(source, runRepo, probRepo, &fakeLookupRepo{}, false)
	result, err := svc.Run(context.Background(), TriggerScheduled)
	require.NoError(t, err)

	assert.Equal(t, models.RunStatusPartial, result.Run.Status)
	assert.Equal(t, 7, result.Processed)
	assert.Equal(t, 1, result.Failed)

	_, err = probRepo.GetByKey(context.Background(), "Ghostland", models.ConfederationUEFA, "Group B")
	assert.ErrorIs(t, err, models.ErrNotFound)

	var rowErrors []*models.RowError
	require.NoError(t, json.Unmarshal(result.Run.ErrorDetails, &rowErrors))
	require.Len(t, rowErrors, 1)
	assert.Equal(t, "Ghostland", rowErrors[0].Team)
}

func TestRefreshRunDeduplicatesIdenticalInput(t *testing.T) {
	source := &fakeSource{
		covered: []models.Confederation{models.ConfederationUEFA},
		rows: map[models.Confederation][]models.StandingRow{
			models.ConfederationUEFA: {
				inProgressRow("Spain", models.ConfederationUEFA, "Qualifying Group Stage", "Group A", 1, 16, 8, 12),
			},
		},
	}
	runRepo := newFakeRunRepo()

	svc := newRefreshService(source, runRepo, newFakeProbRepo(), &fakeLookupRepo{}, true)

	first, err := svc.Run(context.Background(), TriggerScheduled)
	require.NoError(t, err)
	require.False(t, first.Deduplicated)
	require.Equal(t, models.RunStatusSuccess, first.Run.Status)

	second, err := svc.Run(context.Background(), TriggerScheduled)
	require.NoError(t, err)
	assert.True(t, second.Deduplicated)
	require.NotNil(t, second.PriorRun)
	assert.Equal(t, first.Run.ID, second.PriorRun.ID)

	// The skip leaves no new ledger entry behind.
	assert.Len(t, runRepo.created, 1)
}

func TestRefreshRunRecordsCollectionWarnings(t *testing.T) {
	source := &fakeSource{
		covered: []models.Confederation{models.ConfederationAFC, models.ConfederationUEFA},
		rows: map[models.Confederation][]models.StandingRow{
			models.ConfederationUEFA: {
				inProgressRow("Spain", models.ConfederationUEFA, "Qualifying Group Stage", "Group A", 1, 16, 8, 12),
			},
		},
		errs: map[models.Confederation]error{
			models.ConfederationAFC: errors.New("upstream returned 503"),
		},
	}

	svc := newRefreshService(source, newFakeRunRepo(), newFakeProbRepo(), &fakeLookupRepo{}, false)
	result, err := svc.Run(context.Background(), TriggerScheduled)
	require.NoError(t, err)

	// Collection failures degrade the batch, not the run status.
	assert.Equal(t, models.RunStatusSuccess, result.Run.Status)

	var warnings []string
	require.NoError(t, json.Unmarshal(result.Run.Warnings, &warnings))
	require.Len(t, warnings, 1)
	assert.Contains(t, warnings[0], "AFC standings fetch failed")
}

func TestRefreshRunSkipsHostsAlreadyInStandings(t *testing.T) {
	source := &fakeSource{
		covered: []models.Confederation{models.ConfederationCONCACAF},
		rows: map[models.Confederation][]models.StandingRow{
			models.ConfederationCONCACAF: {
				inProgressRow("Mexico", models.ConfederationCONCACAF, "Final Round", "Group A", 1, 14, 6, 8),
			},
		},
	}
	probRepo := newFakeProbRepo()

	svc := newRefreshService(source, newFakeRunRepo(), probRepo, &fakeLookupRepo{}, false)
	result, err := svc.Run(context.Background(), TriggerManual)
	require.NoError(t, err)

	assert.Equal(t, "seeded 2 host team(s)", result.Run.Notes)
	assert.Equal(t, 3, result.Processed)

	// Mexico keeps its blended table row; the other hosts are seeded.
	mexico, err := probRepo.GetByKey(context.Background(), "Mexico", models.ConfederationCONCACAF, "Group A")
	require.NoError(t, err)
	assert.Less(t, mexico.Probability(), 100.0)

	_, err = probRepo.GetByKey(context.Background(), "United States", models.ConfederationCONCACAF, "Host")
	assert.NoError(t, err)
}

func TestRefreshRunTotalCollectionFailure(t *testing.T) {
	source := &fakeSource{
		covered: []models.Confederation{models.ConfederationUEFA},
		errs: map[models.Confederation]error{
			models.ConfederationUEFA: errors.New("connection refused"),
		},
	}
	runRepo := newFakeRunRepo()

	svc := newRefreshService(source, runRepo, newFakeProbRepo(), &fakeLookupRepo{}, false)
	_, err := svc.Run(context.Background(), TriggerScheduled)
	require.Error(t, err)

	// Nothing collected means nothing to hash: no ledger entry at all.
	assert.Empty(t, runRepo.created)
}

func TestRefreshRunMaterializationFailureFailsRun(t *testing.T) {
	source := &fakeSource{
		covered: []models.Confederation{models.ConfederationUEFA},
		rows: map[models.Confederation][]models.StandingRow{
			models.ConfederationUEFA: {
				inProgressRow("Spain", models.ConfederationUEFA, "Qualifying Group Stage", "Group A", 1, 16, 8, 12),
			},
		},
	}
	runRepo := newFakeRunRepo()
	probRepo := newFakeProbRepo()
	probRepo.upsertErr = errors.New("connection reset")

	svc := newRefreshService(source, runRepo, probRepo, &fakeLookupRepo{}, false)
	_, err := svc.Run(context.Background(), TriggerScheduled)
	require.Error(t, err)

	require.Len(t, runRepo.created, 1)
	run := runRepo.runs[runRepo.created[0]]
	assert.Equal(t, models.RunStatusFailed, run.Status)
	assert.Equal(t, run.RecordsProcessed, run.RecordsFailed)
}

func TestReconcileStaleRuns(t *testing.T) {
	runRepo := newFakeRunRepo()

	stale := models.NewRun(models.JobTypeProbabilityUpdate, "hash-a", "test", TriggerScheduled)
	stale.StartedAt = time.Now().UTC().Add(-3 * time.Hour)
	require.NoError(t, runRepo.Create(context.Background(), stale))

	fresh := models.NewRun(models.JobTypeProbabilityUpdate, "hash-b", "test", TriggerScheduled)
	require.NoError(t, runRepo.Create(context.Background(), fresh))

	svc := newRefreshService(&fakeSource{}, runRepo, newFakeProbRepo(), &fakeLookupRepo{}, false)
	count, err := svc.ReconcileStaleRuns(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 1, count)

	assert.Equal(t, models.RunStatusFailed, runRepo.runs[stale.ID].Status)
	assert.Equal(t, models.RunStatusRunning, runRepo.runs[fresh.ID].Status)
}
