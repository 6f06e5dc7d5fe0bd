package events_test

import (
	"context"
	"encoding/json"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"grantline/internal/db"
	"grantline/internal/events"
	"grantline/internal/migrate"
)

func TestAppendDefaultsActorAndStampsUTC(t *testing.T) {
	conn, err := db.Open(db.Config{Workspace: t.TempDir()})
	require.NoError(t, err)
	defer conn.Close()
	require.NoError(t, migrate.Migrate(conn))

	ctx := context.Background()
	loc := time.FixedZone("EST", -5*3600)
	w := events.Writer{DB: conn, Now: func() time.Time { return time.Date(2025, 9, 20, 22, 30, 0, 0, loc) }}

	tx, err := conn.BeginTx(ctx, nil)
	require.NoError(t, err)
	require.NoError(t, w.Append(ctx, tx, events.SyncCompleted, "sync", "", "", events.EventPayload{"created": 9}))
	require.NoError(t, tx.Commit())

	var ts, actor, payload string
	var entityID *string
	err = conn.QueryRow(`SELECT ts, actor_id, entity_id, payload_json FROM events WHERE type=?`, events.SyncCompleted).
		Scan(&ts, &actor, &entityID, &payload)
	require.NoError(t, err)
	assert.Equal(t, "2025-09-21T03:30:00Z", ts)
	assert.Equal(t, "system", actor)
	assert.Nil(t, entityID)

	var decoded map[string]any
	require.NoError(t, json.Unmarshal([]byte(payload), &decoded))
	assert.EqualValues(t, 9, decoded["created"])
}

func TestAppendRolledBackWithTransaction(t *testing.T) {
	conn, err := db.Open(db.Config{Workspace: t.TempDir()})
	require.NoError(t, err)
	defer conn.Close()
	require.NoError(t, migrate.Migrate(conn))

	ctx := context.Background()
	tx, err := conn.BeginTx(ctx, nil)
	require.NoError(t, err)
	require.NoError(t, events.Writer{DB: conn}.Append(ctx, tx, events.GrantCreated, "grant", "r01", "ada", nil))
	require.NoError(t, tx.Rollback())

	var n int
	require.NoError(t, conn.QueryRow(`SELECT COUNT(*) FROM events`).Scan(&n))
	assert.Zero(t, n)
}
