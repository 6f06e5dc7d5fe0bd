package repo_test

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"grantline/internal/db"
	"grantline/internal/domain"
	"grantline/internal/migrate"
	"grantline/internal/repo"
)

func newRepo(t *testing.T) repo.Repo {
	t.Helper()
	conn, err := db.Open(db.Config{Workspace: t.TempDir()})
	require.NoError(t, err)
	t.Cleanup(func() { _ = conn.Close() })
	require.NoError(t, migrate.Migrate(conn))
	return repo.Repo{DB: conn}
}

func ptr(s string) *string { return &s }

const stamp = "2025-09-01T10:00:00Z"

func TestGrantRoundTrip(t *testing.T) {
	r := newRepo(t)
	ctx := context.Background()
	g := domain.Grant{
		ID: "g1", Title: "R01", Sponsor: "NIH", Deadline: ptr("2025-10-12"),
		Status: domain.GrantInProgress, PI: []string{"Ada", "Alan"},
		CreatedAt: stamp, UpdatedAt: stamp,
	}
	require.NoError(t, r.UpsertGrant(ctx, g))

	got, err := r.GetGrant(ctx, "g1")
	require.NoError(t, err)
	assert.Equal(t, g, got)

	g.PI = []string{"Grace"}
	g.Deadline = nil
	require.NoError(t, r.UpsertGrant(ctx, g))
	got, err = r.GetGrant(ctx, "g1")
	require.NoError(t, err)
	assert.Equal(t, []string{"Grace"}, got.PI)
	assert.Nil(t, got.Deadline)

	require.NoError(t, r.DeleteGrant(ctx, "g1"))
	_, err = r.GetGrant(ctx, "g1")
	assert.ErrorIs(t, err, repo.ErrNotFound)
	assert.ErrorIs(t, r.DeleteGrant(ctx, "g1"), repo.ErrNotFound)
}

func TestListGrantsOrderAndFilter(t *testing.T) {
	r := newRepo(t)
	ctx := context.Background()
	for _, g := range []domain.Grant{
		{ID: "undated", Title: "u", Status: domain.GrantNotStarted},
		{ID: "late", Title: "l", Deadline: ptr("2025-12-01"), Status: domain.GrantInProgress, PI: []string{"B"}},
		{ID: "early", Title: "e", Deadline: ptr("2025-10-01"), Status: domain.GrantSubmitted, PI: []string{"A"}},
	} {
		g.CreatedAt, g.UpdatedAt = stamp, stamp
		require.NoError(t, r.UpsertGrant(ctx, g))
	}

	all, err := r.ListGrants(ctx, repo.GrantFilters{})
	require.NoError(t, err)
	require.Len(t, all, 3)
	assert.Equal(t, []string{"early", "late", "undated"}, []string{all[0].ID, all[1].ID, all[2].ID})
	assert.Equal(t, []string{"A"}, all[0].PI)
	assert.Empty(t, all[2].PI)

	active, err := r.ListGrants(ctx, repo.GrantFilters{ActiveOnly: true})
	require.NoError(t, err)
	assert.Len(t, active, 2)

	submitted, err := r.ListGrants(ctx, repo.GrantFilters{Status: domain.GrantSubmitted})
	require.NoError(t, err)
	require.Len(t, submitted, 1)
	assert.Equal(t, "early", submitted[0].ID)
}

func TestTaskUpsertAndFilters(t *testing.T) {
	r := newRepo(t)
	ctx := context.Background()
	milestone := domain.Task{
		ID: "ms-g1-sponsor_deadline", Title: "Sponsor deadline", GrantID: ptr("g1"), DueDate: ptr("2025-10-12"),
		Status: domain.TaskPending, Priority: domain.PriorityLow, Assignee: "Ada", MilestoneKey: ptr("sponsor_deadline"),
		CreatedAt: stamp, UpdatedAt: stamp,
	}
	user := domain.Task{
		ID: "t1", Title: "Call PO", Status: domain.TaskInProgress, Priority: domain.PriorityMedium,
		CreatedAt: stamp, UpdatedAt: stamp,
	}
	require.NoError(t, r.UpsertTask(ctx, milestone))
	require.NoError(t, r.UpsertTask(ctx, user))

	got, err := r.GetTask(ctx, milestone.ID)
	require.NoError(t, err)
	assert.Equal(t, milestone, got)
	assert.Nil(t, got.ProjectID)

	yes, no := true, false
	derived, err := r.ListTasks(ctx, repo.TaskFilters{Derived: &yes})
	require.NoError(t, err)
	require.Len(t, derived, 1)
	assert.Equal(t, milestone.ID, derived[0].ID)

	manual, err := r.ListTasks(ctx, repo.TaskFilters{Derived: &no})
	require.NoError(t, err)
	require.Len(t, manual, 1)
	assert.Equal(t, "t1", manual[0].ID)

	byGrant, err := r.ListTasks(ctx, repo.TaskFilters{GrantID: "g1"})
	require.NoError(t, err)
	assert.Len(t, byGrant, 1)

	milestone.Status = domain.TaskCompleted
	require.NoError(t, r.UpsertTask(ctx, milestone))
	got, err = r.GetTask(ctx, milestone.ID)
	require.NoError(t, err)
	assert.Equal(t, domain.TaskCompleted, got.Status)

	require.NoError(t, r.DeleteTask(ctx, "t1"))
	assert.ErrorIs(t, r.DeleteTask(ctx, "t1"), repo.ErrNotFound)
}

func TestTxVariantsRollback(t *testing.T) {
	r := newRepo(t)
	ctx := context.Background()
	tx, err := r.DB.BeginTx(ctx, nil)
	require.NoError(t, err)
	require.NoError(t, r.UpsertTaskTx(ctx, tx, domain.Task{
		ID: "t1", Title: "x", Status: domain.TaskPending, Priority: domain.PriorityLow, CreatedAt: stamp, UpdatedAt: stamp,
	}))
	inTx, err := r.ListTasksTx(ctx, tx, repo.TaskFilters{})
	require.NoError(t, err)
	assert.Len(t, inTx, 1)
	require.NoError(t, tx.Rollback())

	after, err := r.ListTasks(ctx, repo.TaskFilters{})
	require.NoError(t, err)
	assert.Empty(t, after)
}
