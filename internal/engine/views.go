package engine

import (
	"context"

	"grantline/internal/calendar"
	"grantline/internal/deadline"
	"grantline/internal/domain"
	"grantline/internal/repo"
)

// GrantTimeline is the milestone checklist of one grant. Entries is empty
// when the grant has no deadline.
type GrantTimeline struct {
	Grant   domain.Grant             `json:"grant"`
	Today   string                   `json:"today" format:"date"`
	Entries []deadline.TimelineEntry `json:"entries"`
}

func (e Engine) Timeline(ctx context.Context, grantID string) (GrantTimeline, error) {
	g, err := e.Repo.GetGrant(ctx, grantID)
	if err != nil {
		return GrantTimeline{}, err
	}
	planner := e.Planner().Frozen()
	out := GrantTimeline{
		Grant:   g,
		Today:   calendar.FormatDate(planner.Today()),
		Entries: []deadline.TimelineEntry{},
	}
	if g.Deadline == nil {
		return out, nil
	}
	entries, err := planner.Timeline(*g.Deadline)
	if err != nil {
		return GrantTimeline{}, err
	}
	out.Entries = entries
	return out, nil
}

// Alerts evaluates every grant and refreshes the alert gauge.
func (e Engine) Alerts(ctx context.Context) ([]deadline.Alert, error) {
	grants, err := e.Repo.ListGrants(ctx, repo.GrantFilters{ActiveOnly: true})
	if err != nil {
		return nil, err
	}
	alerts := e.Planner().Alerts(grants)
	if alerts == nil {
		alerts = []deadline.Alert{}
	}
	counts := map[string]int{}
	for _, a := range alerts {
		counts[string(a.Urgency)]++
	}
	e.Metrics.SetAlerts(counts)
	return alerts, nil
}

// Milestones derives the milestones of an arbitrary deadline with today's
// urgency, for planning before a grant is recorded.
func (e Engine) Milestones(deadlineDate string) ([]deadline.TimelineEntry, error) {
	return e.Planner().Timeline(deadlineDate)
}

func (e Engine) Holidays() []string {
	if e.Calendar == nil {
		return calendar.Default().Dates()
	}
	return e.Calendar.Dates()
}

func (e Engine) ListEvents(ctx context.Context, f repo.EventFilters) ([]domain.Event, error) {
	return e.Repo.LatestEvents(ctx, f)
}
