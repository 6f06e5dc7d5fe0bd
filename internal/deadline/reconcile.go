package deadline

import (
	"fmt"
	"time"

	"grantline/internal/calendar"
	"grantline/internal/domain"
)

// TaskID is the stable id of the task derived from a grant milestone. Re-sync
// idempotence rests on this being a pure function of its inputs.
func TaskID(grantID string, key Key) string {
	return "ms-" + grantID + "-" + string(key)
}

// Plan is the outcome of reconciling the task list against the grant set.
type Plan struct {
	Create []domain.Task
	Retire []string
	Keep   []string
}

// Empty reports whether applying the plan would change nothing.
func (p Plan) Empty() bool {
	return len(p.Create) == 0 && len(p.Retire) == 0
}

// Eligible reports whether a grant currently produces milestone tasks: it is
// active and its deadline is valid and not yet past.
func (p Planner) Eligible(g domain.Grant) bool {
	return eligibleOn(g, p.Today())
}

func eligibleOn(g domain.Grant, today time.Time) bool {
	if g.Deadline == nil || !g.Active() {
		return false
	}
	day, err := calendar.ParseDate(*g.Deadline)
	if err != nil {
		return false
	}
	return !day.Before(today)
}

// Reconcile computes which milestone tasks to create and which to retire.
// Existing milestone tasks that are still valid are kept as they are, user
// edits included. Tasks without a milestone key are ignored.
func (p Planner) Reconcile(grants []domain.Grant, tasks []domain.Task) Plan {
	today := p.Today()
	existing := make(map[string]bool, len(tasks))
	for _, t := range tasks {
		existing[t.ID] = true
	}

	var plan Plan
	valid := make(map[string]bool)
	for _, g := range grants {
		if !eligibleOn(g, today) {
			continue
		}
		ms, err := p.Derive(*g.Deadline)
		if err != nil {
			continue
		}
		for _, m := range ms {
			id := TaskID(g.ID, m.Key)
			valid[id] = true
			if existing[id] {
				continue
			}
			plan.Create = append(plan.Create, newMilestoneTask(g, m, UrgencyAt(m.Day(), today)))
		}
	}
	for _, t := range tasks {
		if !t.Derived() {
			continue
		}
		if valid[t.ID] {
			plan.Keep = append(plan.Keep, t.ID)
		} else {
			plan.Retire = append(plan.Retire, t.ID)
		}
	}
	return plan
}

func newMilestoneTask(g domain.Grant, m Milestone, u Urgency) domain.Task {
	grantID := g.ID
	key := string(m.Key)
	due := m.Date
	title := m.Label
	if g.Title != "" {
		title = fmt.Sprintf("%s: %s", g.Title, m.Label)
	}
	return domain.Task{
		ID:           TaskID(g.ID, m.Key),
		Title:        title,
		Description:  m.Description,
		GrantID:      &grantID,
		DueDate:      &due,
		Status:       domain.TaskPending,
		Priority:     u.Priority(),
		Assignee:     g.LeadPI(),
		MilestoneKey: &key,
	}
}
