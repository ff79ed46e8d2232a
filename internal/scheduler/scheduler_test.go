package scheduler

import (
	"context"
	"io"
	"testing"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestScheduler() *Scheduler {
	logger := logrus.New()
	logger.SetOutput(io.Discard)
	return NewScheduler(logger)
}

func noopJob(ctx context.Context) error { return nil }

func TestRegisterJob(t *testing.T) {
	s := newTestScheduler()

	err := s.RegisterJob("probability-update", "0 */6 * * *", time.Minute, noopJob)
	require.NoError(t, err)

	assert.Contains(t, s.JobNames(), "probability-update")
}

func TestRegisterJobDuplicate(t *testing.T) {
	s := newTestScheduler()

	require.NoError(t, s.RegisterJob("probability-update", "0 */6 * * *", time.Minute, noopJob))

	err := s.RegisterJob("probability-update", "0 */3 * * *", time.Minute, noopJob)
	assert.ErrorContains(t, err, "already registered")
}

func TestRegisterJobInvalidExpression(t *testing.T) {
	s := newTestScheduler()

	err := s.RegisterJob("broken", "not a cron spec", time.Minute, noopJob)
	assert.ErrorContains(t, err, "failed to add job")
}

func TestStartWithoutJobs(t *testing.T) {
	s := newTestScheduler()

	err := s.Start()
	assert.ErrorContains(t, err, "no jobs registered")
}

func TestStartStop(t *testing.T) {
	s := newTestScheduler()

	require.NoError(t, s.RegisterJob("stale-run-sweep", "@every 1h", time.Minute, noopJob))
	require.NoError(t, s.Start())

	assert.True(t, s.IsRunning())
	assert.False(t, s.GetNextRun().IsZero())
	assert.Len(t, s.Entries(), 1)

	// Registration is rejected while running
	err := s.RegisterJob("late", "@every 1h", time.Minute, noopJob)
	assert.ErrorContains(t, err, "while scheduler is running")

	require.NoError(t, s.Stop())
	assert.False(t, s.IsRunning())

	// Stopping twice is a no-op
	require.NoError(t, s.Stop())
}

func TestRemoveJob(t *testing.T) {
	s := newTestScheduler()

	require.NoError(t, s.RegisterJob("historical-refresh", "0 4 * * 1", time.Hour, noopJob))
	require.NoError(t, s.RemoveJob("historical-refresh"))

	assert.Empty(t, s.JobNames())

	err := s.RemoveJob("historical-refresh")
	assert.ErrorContains(t, err, "not registered")
}
