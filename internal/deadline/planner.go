package deadline

import (
	"sort"
	"time"

	"grantline/internal/calendar"
	"grantline/internal/domain"
)

// Planner answers date-relative questions about milestones. Now is sampled on
// every call so a long-lived process crossing midnight sees fresh urgencies.
type Planner struct {
	Calendar *calendar.Calendar
	Now      func() time.Time
}

func NewPlanner(cal *calendar.Calendar, now func() time.Time) Planner {
	return Planner{Calendar: cal, Now: now}
}

// Today is the current calendar date according to the planner's clock.
func (p Planner) Today() time.Time {
	if p.Now != nil {
		return calendar.DateOf(p.Now())
	}
	return calendar.DateOf(time.Now())
}

// Frozen returns a planner whose clock is stopped at the current instant, so
// a multi-step operation sees a single "today".
func (p Planner) Frozen() Planner {
	now := time.Now()
	if p.Now != nil {
		now = p.Now()
	}
	p.Now = func() time.Time { return now }
	return p
}

func (p Planner) deriver() Deriver {
	return Deriver{Calendar: p.Calendar}
}

// Derive returns the milestones of a sponsor deadline.
func (p Planner) Derive(deadline string) ([]Milestone, error) {
	return p.deriver().Derive(deadline)
}

// UrgencyOf classifies a milestone against today.
func (p Planner) UrgencyOf(m Milestone) Urgency {
	return UrgencyAt(m.Day(), p.Today())
}

// NextMilestone returns the first milestone dated today or later. ok is false
// when every milestone has passed.
func (p Planner) NextMilestone(deadline string) (Milestone, bool, error) {
	ms, err := p.Derive(deadline)
	if err != nil {
		return Milestone{}, false, err
	}
	m, ok := next(ms, p.Today())
	return m, ok, nil
}

func next(ms []Milestone, today time.Time) (Milestone, bool) {
	for _, m := range ms {
		if !m.Day().Before(today) {
			return m, true
		}
	}
	return Milestone{}, false
}

// TimelineEntry is one row of a grant's milestone checklist.
type TimelineEntry struct {
	Milestone
	Urgency          Urgency `json:"urgency"`
	DaysUntil        int     `json:"days_until"`
	BusinessDaysLeft int     `json:"business_days_left"`
	Passed           bool    `json:"passed"`
	Next             bool    `json:"next"`
}

// Timeline classifies every milestone of a deadline against one sample of
// today and flags the next upcoming one.
func (p Planner) Timeline(deadline string) ([]TimelineEntry, error) {
	ms, err := p.Derive(deadline)
	if err != nil {
		return nil, err
	}
	today := p.Today()
	out := make([]TimelineEntry, 0, len(ms))
	seenNext := false
	for _, m := range ms {
		day := m.Day()
		e := TimelineEntry{
			Milestone:        m,
			Urgency:          UrgencyAt(day, today),
			DaysUntil:        calendar.DaysBetween(today, day),
			BusinessDaysLeft: p.Calendar.BusinessDaysBetween(today, day),
			Passed:           day.Before(today),
		}
		if !e.Passed && !seenNext {
			e.Next = true
			seenNext = true
		}
		out = append(out, e)
	}
	return out, nil
}

// Alert is a grant whose next milestone needs attention.
type Alert struct {
	GrantID    string    `json:"grant_id"`
	GrantTitle string    `json:"grant_title"`
	Milestone  Milestone `json:"milestone"`
	Urgency    Urgency   `json:"urgency"`
	DaysUntil  int       `json:"days_until"`
}

// Alerts collects the next milestone of every active grant with a deadline,
// keeps overdue/urgent/soon ones and orders them by urgency, otherwise in
// grant order. Grants with unparsable deadlines are skipped.
func (p Planner) Alerts(grants []domain.Grant) []Alert {
	today := p.Today()
	var out []Alert
	for _, g := range grants {
		if g.Deadline == nil || !g.Active() {
			continue
		}
		ms, err := p.Derive(*g.Deadline)
		if err != nil {
			continue
		}
		m, ok := next(ms, today)
		if !ok {
			continue
		}
		u := UrgencyAt(m.Day(), today)
		if !u.Alerting() {
			continue
		}
		out = append(out, Alert{
			GrantID:    g.ID,
			GrantTitle: g.Title,
			Milestone:  m,
			Urgency:    u,
			DaysUntil:  calendar.DaysBetween(today, m.Day()),
		})
	}
	sort.SliceStable(out, func(i, j int) bool {
		return out[i].Urgency.Rank() < out[j].Urgency.Rank()
	})
	return out
}
