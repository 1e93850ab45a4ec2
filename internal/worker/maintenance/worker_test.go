package maintenance_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/robalyx/sentinel/internal/settings"
	"github.com/robalyx/sentinel/internal/setup/config"
	"github.com/robalyx/sentinel/internal/worker/maintenance"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

var now = time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)

type store struct {
	cutoff    time.Time
	deleteErr error
	stale     []uint64
	queries   []time.Time // activeSince, staleBefore pairs
	refreshed [][]uint64
}

func (s *store) DeleteBefore(_ context.Context, cutoff time.Time) (int64, error) {
	s.cutoff = cutoff
	return 12, s.deleteErr
}

func (s *store) ListStaleTrust(_ context.Context, activeSince, staleBefore time.Time, afterID uint64, limit int) ([]uint64, error) {
	s.queries = append(s.queries, activeSince, staleBefore)

	var page []uint64
	for _, id := range s.stale {
		if id > afterID && len(page) < limit {
			page = append(page, id)
		}
	}
	return page, nil
}

func (s *store) Refresh(_ context.Context, ids []uint64, _ int) error {
	s.refreshed = append(s.refreshed, ids)
	return nil
}

type reporter struct {
	healthy bool
	tasks   []string
}

func (r *reporter) UpdateStatus(task string, _ int) { r.tasks = append(r.tasks, task) }
func (r *reporter) SetHealthy(healthy bool)         { r.healthy = healthy }

func newWorker(s *store, r *reporter) *maintenance.Worker {
	cfg := &config.WorkerConfig{
		Retention:    config.Retention{MessageDays: 30, CleanupInterval: 60},
		TrustRefresh: config.TrustRefresh{Interval: 60, BatchSize: 2, Concurrency: 4},
	}
	moderation := config.WithListDefaults()
	moderation.Trust.CacheHours = 24

	w := maintenance.New(s, s, s, settings.Static(moderation), cfg, r, zap.NewNop())
	w.SetClock(func() time.Time { return now })
	return w
}

func TestCleanup(t *testing.T) {
	t.Parallel()

	s := &store{}
	w := newWorker(s, &reporter{})

	deleted, err := w.Cleanup(t.Context())
	require.NoError(t, err)
	assert.Equal(t, int64(12), deleted)
	assert.Equal(t, now.AddDate(0, 0, -30), s.cutoff)

	s.deleteErr = errors.New("connection refused")
	_, err = w.Cleanup(t.Context())
	require.Error(t, err)
}

func TestRefreshTrustPages(t *testing.T) {
	t.Parallel()

	s := &store{stale: []uint64{3, 5, 8, 13, 21}}
	w := newWorker(s, &reporter{})

	total, err := w.RefreshTrust(t.Context())
	require.NoError(t, err)

	assert.Equal(t, 5, total)
	assert.Equal(t, [][]uint64{{3, 5}, {8, 13}, {21}}, s.refreshed)
	require.GreaterOrEqual(t, len(s.queries), 2)
	assert.Equal(t, now.Add(-time.Hour), s.queries[0])
	assert.Equal(t, now.Add(-24*time.Hour), s.queries[1])
}

func TestRefreshTrustNothingStale(t *testing.T) {
	t.Parallel()

	s := &store{}
	w := newWorker(s, &reporter{})

	total, err := w.RefreshTrust(t.Context())
	require.NoError(t, err)
	assert.Zero(t, total)
	assert.Empty(t, s.refreshed)
}

func TestStartRunsJobsOnce(t *testing.T) {
	t.Parallel()

	s := &store{stale: []uint64{1}}
	r := &reporter{}
	w := newWorker(s, r)

	ctx, cancel := context.WithCancel(t.Context())
	cancel()

	w.Start(ctx)

	// Cleanup runs once, the refresh sees the cancelled context before its first page
	assert.Empty(t, s.refreshed)
	assert.Equal(t, []string{"Retention cleanup", "Idle", "Trust refresh"}, r.tasks)
	assert.True(t, r.healthy)
}

func TestRefreshTrustStopsOnCancel(t *testing.T) {
	t.Parallel()

	s := &store{stale: []uint64{1, 2, 3}}
	w := newWorker(s, &reporter{})

	ctx, cancel := context.WithCancel(t.Context())
	cancel()

	total, err := w.RefreshTrust(ctx)
	require.ErrorIs(t, err, context.Canceled)
	assert.Zero(t, total)
	assert.Empty(t, s.queries)
}
