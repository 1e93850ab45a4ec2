package status_test

import (
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/rueidis"
	"github.com/robalyx/sentinel/internal/worker/status"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func setupClient(t *testing.T) (rueidis.Client, *miniredis.Miniredis) {
	t.Helper()

	mr := miniredis.RunT(t)

	client, err := rueidis.NewClient(rueidis.ClientOption{
		InitAddress:  []string{mr.Addr()},
		DisableCache: true,
	})
	require.NoError(t, err)
	t.Cleanup(client.Close)

	return client, mr
}

func TestReportAndList(t *testing.T) {
	t.Parallel()

	client, mr := setupClient(t)
	ctx := t.Context()

	reporter := status.NewReporter(client, "maintenance", zap.NewNop())
	reporter.UpdateStatus("Retention cleanup", 50)
	reporter.SetHealthy(false)
	require.NoError(t, reporter.Report(ctx))

	key := "worker:maintenance:" + reporter.WorkerID()
	assert.True(t, mr.Exists(key))
	assert.Equal(t, status.HeartbeatTTL, mr.TTL(key))

	require.NoError(t, mr.Set("worker:broken:1", "not json"))

	statuses, err := status.List(ctx, client, zap.NewNop())
	require.NoError(t, err)
	require.Len(t, statuses, 1)

	got := statuses[0]
	assert.Equal(t, reporter.WorkerID(), got.WorkerID)
	assert.Equal(t, "Retention cleanup", got.CurrentTask)
	assert.Equal(t, 50, got.Progress)
	assert.False(t, got.IsHealthy)
	assert.True(t, got.IsOnline(time.Now()))
	assert.False(t, got.IsOnline(time.Now().Add(2*time.Minute)))
}
