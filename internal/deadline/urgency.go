package deadline

import (
	"time"

	"grantline/internal/calendar"
	"grantline/internal/domain"
)

type Urgency string

const (
	Overdue Urgency = "overdue"
	Urgent  Urgency = "urgent"
	Soon    Urgency = "soon"
	OK      Urgency = "ok"
	Future  Urgency = "future"
)

// Rank orders urgencies from most to least pressing.
func (u Urgency) Rank() int {
	switch u {
	case Overdue:
		return 0
	case Urgent:
		return 1
	case Soon:
		return 2
	case OK:
		return 3
	default:
		return 4
	}
}

// Alerting reports whether the urgency belongs in the alert banner.
func (u Urgency) Alerting() bool {
	return u == Overdue || u == Urgent || u == Soon
}

// Priority maps an urgency to a task priority at creation time.
func (u Urgency) Priority() string {
	switch u {
	case Overdue, Urgent:
		return domain.PriorityHigh
	case Soon:
		return domain.PriorityMedium
	default:
		return domain.PriorityLow
	}
}

// Classify buckets the number of calendar days until a milestone.
func Classify(diffDays int) Urgency {
	switch {
	case diffDays < 0:
		return Overdue
	case diffDays <= 3:
		return Urgent
	case diffDays <= 14:
		return Soon
	case diffDays <= 30:
		return OK
	default:
		return Future
	}
}

// UrgencyAt classifies date relative to today.
func UrgencyAt(date, today time.Time) Urgency {
	return Classify(calendar.DaysBetween(today, date))
}
