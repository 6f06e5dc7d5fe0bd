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

func plannerAt(y int, m time.Month, d int) deadline.Planner {
	return deadline.NewPlanner(calendar.Default(), func() time.Time {
		return time.Date(y, m, d, 9, 30, 0, 0, time.UTC)
	})
}

func strPtr(s string) *string { return &s }

func TestScienceComponentOverdueTwoDaysBeforeDeadline(t *testing.T) {
	p := plannerAt(2025, time.October, 10)
	timeline, err := p.Timeline("2025-10-12")
	require.NoError(t, err)
	require.Len(t, timeline, 9)

	science := timeline[7]
	require.Equal(t, deadline.ScienceComponent, science.Key)
	assert.Equal(t, "2025-10-08", science.Date)
	assert.Equal(t, deadline.Overdue, science.Urgency)
	assert.Equal(t, -2, science.DaysUntil)
	assert.True(t, science.Passed)

	last := timeline[8]
	assert.Equal(t, deadline.Urgent, last.Urgency)
	assert.True(t, last.Next)
	assert.Equal(t, 2, last.DaysUntil)
	// Friday 10 Oct is the only business day left before the Sunday deadline
	assert.Equal(t, 1, last.BusinessDaysLeft)

	nexts := 0
	for _, e := range timeline {
		if e.Next {
			nexts++
		}
	}
	assert.Equal(t, 1, nexts)
}

func TestNextMilestone(t *testing.T) {
	p := plannerAt(2025, time.October, 10)
	m, ok, err := p.NextMilestone("2025-10-12")
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, deadline.SponsorDeadline, m.Key)
	assert.Equal(t, deadline.Urgent, p.UrgencyOf(m))

	// a milestone dated today has not passed
	m, ok, err = plannerAt(2025, time.October, 8).NextMilestone("2025-10-12")
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, deadline.ScienceComponent, m.Key)

	_, ok, err = plannerAt(2025, time.October, 13).NextMilestone("2025-10-12")
	require.NoError(t, err)
	assert.False(t, ok)

	_, _, err = p.NextMilestone("12/10/2025")
	assert.ErrorIs(t, err, deadline.ErrInvalidDate)
}

func TestTodayIsNotCached(t *testing.T) {
	now := time.Date(2025, 10, 7, 23, 59, 0, 0, time.UTC)
	p := deadline.NewPlanner(calendar.Default(), func() time.Time { return now })
	m, _, err := p.NextMilestone("2025-10-12")
	require.NoError(t, err)
	assert.Equal(t, deadline.ScienceComponent, m.Key)
	assert.Equal(t, deadline.Soon, p.UrgencyOf(deadline.Milestone{Date: "2025-10-12"}))

	now = now.Add(2 * time.Minute)
	assert.Equal(t, "2025-10-08", calendar.FormatDate(p.Today()))
	assert.Equal(t, deadline.Urgent, p.UrgencyOf(m))
}

func TestAlerts(t *testing.T) {
	p := plannerAt(2025, time.October, 10)
	grants := []domain.Grant{
		{ID: "soon", Title: "Soon", Deadline: strPtr("2025-10-24"), Status: domain.GrantNotStarted},
		{ID: "urgent", Title: "Urgent", Deadline: strPtr("2025-10-12"), Status: domain.GrantInProgress},
		{ID: "far", Deadline: strPtr("2025-12-31"), Status: domain.GrantInProgress},
		{ID: "submitted", Deadline: strPtr("2025-10-12"), Status: domain.GrantSubmitted},
		{ID: "no-deadline", Status: domain.GrantInProgress},
		{ID: "past", Deadline: strPtr("2025-10-01"), Status: domain.GrantInProgress},
		{ID: "garbage", Deadline: strPtr("next week"), Status: domain.GrantInProgress},
		{ID: "soon-2", Deadline: strPtr("2025-10-24"), Status: domain.GrantInProgress},
	}
	alerts := p.Alerts(grants)
	require.Len(t, alerts, 3)

	assert.Equal(t, "urgent", alerts[0].GrantID)
	assert.Equal(t, deadline.Urgent, alerts[0].Urgency)
	assert.Equal(t, deadline.SponsorDeadline, alerts[0].Milestone.Key)

	// equal urgency keeps grant order
	assert.Equal(t, "soon", alerts[1].GrantID)
	assert.Equal(t, "soon-2", alerts[2].GrantID)
	assert.Equal(t, deadline.Soon, alerts[1].Urgency)
	assert.Equal(t, deadline.AdminComponent, alerts[1].Milestone.Key)
	assert.Equal(t, "2025-10-14", alerts[1].Milestone.Date)
	assert.Equal(t, 4, alerts[1].DaysUntil)
}

func TestAlertsDoNotMutateInput(t *testing.T) {
	p := plannerAt(2025, time.October, 10)
	grants := []domain.Grant{
		{ID: "b", Deadline: strPtr("2025-10-24"), Status: domain.GrantNotStarted},
		{ID: "a", Deadline: strPtr("2025-10-12"), Status: domain.GrantInProgress},
	}
	_ = p.Alerts(grants)
	assert.Equal(t, "b", grants[0].ID)
	assert.Equal(t, "a", grants[1].ID)
}
