package app_test

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"grantline/internal/app"
	"grantline/internal/calendar"
	"grantline/internal/synclock"
)

func TestOpenDefaults(t *testing.T) {
	dir := t.TempDir()
	ws, err := app.Open(context.Background(), app.Options{Workspace: dir, Today: "2025-10-10", Metrics: true})
	require.NoError(t, err)
	defer ws.Close()

	assert.FileExists(t, filepath.Join(dir, ".grantline", "grantline.db"))
	assert.Equal(t, "2025-10-10", calendar.FormatDate(ws.Engine.Planner().Today()))
	assert.NotNil(t, ws.Engine.Metrics)
	_, isLocal := ws.Engine.Lock.(*synclock.Local)
	assert.True(t, isLocal)
}

func TestOpenWithRedisLock(t *testing.T) {
	mr := miniredis.RunT(t)
	dir := t.TempDir()
	cfg := "sync:\n  lock: redis\n  redis_addr: " + mr.Addr() + "\n  lock_key: ws:sync\n"
	require.NoError(t, os.WriteFile(filepath.Join(dir, "grantline.yml"), []byte(cfg), 0o644))

	ws, err := app.Open(context.Background(), app.Options{Workspace: dir})
	require.NoError(t, err)
	defer ws.Close()

	_, isRedis := ws.Engine.Lock.(*synclock.Redis)
	assert.True(t, isRedis)
	_, err = ws.Engine.SyncMilestoneTasks(context.Background(), "tester")
	require.NoError(t, err)
}

func TestOpenRejectsBadConfigAndToday(t *testing.T) {
	dir := t.TempDir()
	_, err := app.Open(context.Background(), app.Options{Workspace: dir, Today: "tomorrow"})
	assert.ErrorIs(t, err, calendar.ErrInvalidDate)

	require.NoError(t, os.WriteFile(filepath.Join(dir, "grantline.yml"), []byte("sync:\n  lock: zookeeper\n"), 0o644))
	_, err = app.Open(context.Background(), app.Options{Workspace: dir})
	assert.Error(t, err)
}

func TestFixedClockUsesLocation(t *testing.T) {
	loc, err := time.LoadLocation("Pacific/Auckland")
	require.NoError(t, err)
	now, err := app.FixedClock("2025-03-01", loc)
	require.NoError(t, err)
	assert.Equal(t, "2025-03-01", calendar.FormatDate(calendar.DateOf(now())))
}
