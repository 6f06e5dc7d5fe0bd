package migrate_test

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"grantline/internal/db"
	"grantline/internal/migrate"
)

func TestMigrateIsIdempotent(t *testing.T) {
	conn, err := db.Open(db.Config{Workspace: t.TempDir()})
	require.NoError(t, err)
	defer conn.Close()

	latest, err := migrate.Latest()
	require.NoError(t, err)
	require.GreaterOrEqual(t, latest, 1)

	require.NoError(t, migrate.Migrate(conn))
	require.NoError(t, migrate.MigrateContext(context.Background(), conn))

	current, err := migrate.Current(context.Background(), conn)
	require.NoError(t, err)
	assert.Equal(t, latest, current)

	for _, table := range []string{"grants", "grant_pis", "tasks", "events"} {
		var name string
		err := conn.QueryRow(`SELECT name FROM sqlite_master WHERE type='table' AND name=?`, table).Scan(&name)
		assert.NoError(t, err, table)
	}
}
