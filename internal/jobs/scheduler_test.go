package jobs

import (
	"context"
	"testing"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"filevault/internal/config"
	"filevault/internal/tasks"
)

func newScheduler(t *testing.T, schedule string) (*Scheduler, *redis.Client) {
	t.Helper()
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = client.Close() })

	cfg := config.JobsConfig{Stream: "filevault:tasks", ReconcileCron: schedule}
	return NewScheduler(client, cfg, zerolog.Nop()), client
}

func TestEnqueueReconcile(t *testing.T) {
	s, client := newScheduler(t, "0 30 3 * * *")

	s.enqueueReconcile()

	entries, err := client.XRange(context.Background(), "filevault:tasks", "-", "+").Result()
	require.NoError(t, err)
	require.Len(t, entries, 1)
	assert.Equal(t, tasks.TypeReconcileUploadCounts, entries[0].Values["type"])
	assert.NotEmpty(t, entries[0].Values["enqueued_at"])
}

func TestStart_RejectsBadSchedule(t *testing.T) {
	s, _ := newScheduler(t, "every night")

	err := s.Start()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "schedule reconcile")
}

func TestStart_StopRoundTrip(t *testing.T) {
	s, _ := newScheduler(t, "0 30 3 * * *")

	require.NoError(t, s.Start())
	assert.Len(t, s.cron.Entries(), 1)
	s.Stop()
}
