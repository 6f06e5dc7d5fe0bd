package deadline_test

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"grantline/internal/calendar"
	"grantline/internal/deadline"
	"grantline/internal/domain"
)

func activeGrant() domain.Grant {
	return domain.Grant{
		ID:       "g1",
		Title:    "NIH R01",
		Deadline: strPtr("2025-10-12"),
		Status:   domain.GrantInProgress,
		PI:       []string{"Ada Lovelace", "Alan Turing"},
	}
}

func applied(tasks []domain.Task, plan deadline.Plan) []domain.Task {
	retired := map[string]bool{}
	for _, id := range plan.Retire {
		retired[id] = true
	}
	var out []domain.Task
	for _, t := range tasks {
		if !retired[t.ID] {
			out = append(out, t)
		}
	}
	return append(out, plan.Create...)
}

func TestReconcileCreatesAllMilestones(t *testing.T) {
	p := plannerAt(2025, time.September, 20)
	plan := p.Reconcile([]domain.Grant{activeGrant()}, nil)
	require.Len(t, plan.Create, 9)
	assert.Empty(t, plan.Retire)
	assert.Empty(t, plan.Keep)

	byKey := map[string]domain.Task{}
	for _, task := range plan.Create {
		require.NotNil(t, task.MilestoneKey)
		require.NotNil(t, task.GrantID)
		require.NotNil(t, task.DueDate)
		assert.Equal(t, "g1", *task.GrantID)
		assert.Equal(t, deadline.TaskID("g1", deadline.Key(*task.MilestoneKey)), task.ID)
		assert.Equal(t, domain.TaskPending, task.Status)
		assert.Equal(t, "Ada Lovelace", task.Assignee)
		assert.Nil(t, task.ProjectID)
		assert.True(t, task.Derived())
		byKey[*task.MilestoneKey] = task
	}

	sci := byKey[string(deadline.ScienceComponent)]
	assert.Equal(t, "ms-g1-science_component", sci.ID)
	assert.Equal(t, "2025-10-08", *sci.DueDate)
	assert.Equal(t, "NIH R01: Science component uploaded", sci.Title)

	assert.Equal(t, domain.PriorityHigh, byKey[string(deadline.InitialNotification)].Priority)
	assert.Equal(t, domain.PriorityHigh, byKey[string(deadline.InternalAdminDocs)].Priority)
	assert.Equal(t, domain.PriorityMedium, byKey[string(deadline.AdminComponent)].Priority)
	assert.Equal(t, domain.PriorityLow, byKey[string(deadline.SponsorDeadline)].Priority)
}

func TestReconcileIsIdempotent(t *testing.T) {
	p := plannerAt(2025, time.September, 20)
	grants := []domain.Grant{activeGrant()}
	tasks := applied(nil, p.Reconcile(grants, nil))

	plan := p.Reconcile(grants, tasks)
	assert.True(t, plan.Empty())
	assert.Len(t, plan.Keep, 9)
}

func TestReconcileKeepsEditedTasks(t *testing.T) {
	p := plannerAt(2025, time.September, 20)
	grants := []domain.Grant{activeGrant()}
	tasks := applied(nil, p.Reconcile(grants, nil))
	for i := range tasks {
		tasks[i].Status = domain.TaskCompleted
		tasks[i].Priority = domain.PriorityLow
		tasks[i].Title = "renamed"
	}

	// a later sync sees different urgencies but must not touch the tasks
	later := plannerAt(2025, time.October, 9)
	plan := later.Reconcile(grants, tasks)
	assert.True(t, plan.Empty())
	for _, task := range tasks {
		assert.Equal(t, "renamed", task.Title)
	}
}

func TestReconcileRecreatesDeletedMilestone(t *testing.T) {
	p := plannerAt(2025, time.September, 20)
	grants := []domain.Grant{activeGrant()}
	tasks := applied(nil, p.Reconcile(grants, nil))
	tasks = tasks[1:]

	plan := p.Reconcile(grants, tasks)
	require.Len(t, plan.Create, 1)
	assert.Empty(t, plan.Retire)
}

func TestReconcileRetires(t *testing.T) {
	p := plannerAt(2025, time.September, 20)
	base := activeGrant()
	tasks := applied(nil, p.Reconcile([]domain.Grant{base}, nil))

	submitted := base
	submitted.Status = domain.GrantSubmitted

	cleared := base
	cleared.Deadline = nil

	past := base
	past.Deadline = strPtr("2025-09-19")

	cases := map[string][]domain.Grant{
		"submitted":      {submitted},
		"deadline nil":   {cleared},
		"deadline past":  {past},
		"grant deleted":  nil,
		"garbage date":   {{ID: "g1", Deadline: strPtr("tbd"), Status: domain.GrantInProgress}},
		"status awarded": {{ID: "g1", Deadline: base.Deadline, Status: domain.GrantAwarded}},
	}
	for name, grants := range cases {
		t.Run(name, func(t *testing.T) {
			plan := p.Reconcile(grants, tasks)
			assert.Empty(t, plan.Create)
			assert.Len(t, plan.Retire, 9)
			assert.Empty(t, plan.Keep)
		})
	}
}

func TestReconcileDeadlineTodayIsEligible(t *testing.T) {
	p := plannerAt(2025, time.October, 12)
	plan := p.Reconcile([]domain.Grant{activeGrant()}, nil)
	require.Len(t, plan.Create, 9)
	for _, task := range plan.Create {
		if *task.MilestoneKey == string(deadline.SponsorDeadline) {
			assert.Equal(t, domain.PriorityHigh, task.Priority)
		}
	}
}

func TestReconcileMovedDeadline(t *testing.T) {
	p := plannerAt(2025, time.September, 20)
	g := activeGrant()
	tasks := applied(nil, p.Reconcile([]domain.Grant{g}, nil))

	// ids depend on grant and key only, so moving the deadline keeps the tasks
	g.Deadline = strPtr("2025-11-14")
	plan := p.Reconcile([]domain.Grant{g}, tasks)
	assert.True(t, plan.Empty())
}

func TestReconcileIgnoresUserTasks(t *testing.T) {
	p := plannerAt(2025, time.September, 20)
	grantID := "g1"
	user := domain.Task{ID: "t-user", Title: "Call program officer", GrantID: &grantID, Status: domain.TaskPending}
	clash := domain.Task{ID: deadline.TaskID("g1", deadline.SponsorDeadline), Title: "hand made"}

	plan := p.Reconcile(nil, []domain.Task{user, clash})
	assert.True(t, plan.Empty())

	plan = p.Reconcile([]domain.Grant{activeGrant()}, []domain.Task{user, clash})
	assert.Len(t, plan.Create, 8)
	for _, task := range plan.Create {
		assert.NotEqual(t, clash.ID, task.ID)
	}
	assert.NotContains(t, plan.Retire, user.ID)
	assert.NotContains(t, plan.Keep, user.ID)
}

func TestReconcileUntitledGrant(t *testing.T) {
	p := plannerAt(2025, time.September, 20)
	g := activeGrant()
	g.Title = ""
	g.PI = nil
	plan := p.Reconcile([]domain.Grant{g}, nil)
	require.NotEmpty(t, plan.Create)
	for _, task := range plan.Create {
		def, ok := deadline.Lookup(deadline.Key(*task.MilestoneKey))
		require.True(t, ok)
		assert.Equal(t, def.Label, task.Title)
		assert.Empty(t, task.Assignee)
	}
}

func TestReconcileUsesOneTodayAcrossMidnight(t *testing.T) {
	calls := 0
	p := deadline.NewPlanner(calendar.Default(), func() time.Time {
		calls++
		if calls == 1 {
			return time.Date(2025, time.October, 12, 23, 59, 59, 0, time.UTC)
		}
		return time.Date(2025, time.October, 13, 0, 0, 1, 0, time.UTC)
	})

	plan := p.Reconcile([]domain.Grant{activeGrant()}, nil)
	assert.Len(t, plan.Create, 9)
}

func TestFrozenPlannerKeepsItsDay(t *testing.T) {
	calls := 0
	p := deadline.NewPlanner(calendar.Default(), func() time.Time {
		calls++
		return time.Date(2025, time.October, 12, 23, 59, 58, 0, time.UTC).Add(time.Duration(calls) * time.Second)
	}).Frozen()

	assert.Equal(t, p.Today(), p.Today())
	assert.True(t, p.Eligible(activeGrant()))
	assert.Equal(t, 1, calls)
}
