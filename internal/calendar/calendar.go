// Package calendar holds the institutional holiday calendar and the
// business-day arithmetic built on top of it. All values are calendar dates:
// a time.Time at UTC midnight, never an instant.
package calendar

import (
	"errors"
	"fmt"
	"sort"
	"strings"
	"time"
)

// Layout is the canonical ISO calendar-date format.
const Layout = "2006-01-02"

var ErrInvalidDate = errors.New("invalid date")

// builtin lists the observed holidays for the maintained years. Years outside
// this list fall back to weekend-only rules.
var builtin = []string{
	// 2024
	"2024-01-01", "2024-01-15", "2024-05-27", "2024-06-19", "2024-07-04",
	"2024-09-02", "2024-11-28", "2024-11-29", "2024-12-24", "2024-12-25",
	// 2025
	"2025-01-01", "2025-01-20", "2025-05-26", "2025-06-19", "2025-07-04",
	"2025-09-01", "2025-11-27", "2025-11-28", "2025-12-24", "2025-12-25",
	// 2026
	"2026-01-01", "2026-01-19", "2026-05-25", "2026-06-19", "2026-07-03",
	"2026-09-07", "2026-11-26", "2026-11-27", "2026-12-24", "2026-12-25",
}

// Calendar is an immutable set of holiday dates.
type Calendar struct {
	holidays map[string]struct{}
}

// Default returns the built-in institutional calendar.
func Default() *Calendar {
	c, err := New(builtin...)
	if err != nil {
		panic(err)
	}
	return c
}

// New builds a calendar from ISO dates.
func New(dates ...string) (*Calendar, error) {
	c := &Calendar{holidays: make(map[string]struct{}, len(dates))}
	for _, d := range dates {
		t, err := ParseDate(d)
		if err != nil {
			return nil, err
		}
		c.holidays[FormatDate(t)] = struct{}{}
	}
	return c, nil
}

// With returns a new calendar holding the receiver's holidays plus extra.
func (c *Calendar) With(extra ...string) (*Calendar, error) {
	dates := append(c.Dates(), extra...)
	return New(dates...)
}

// Dates returns the holidays in ascending order.
func (c *Calendar) Dates() []string {
	if c == nil {
		return nil
	}
	out := make([]string, 0, len(c.holidays))
	for d := range c.holidays {
		out = append(out, d)
	}
	sort.Strings(out)
	return out
}

// IsHoliday reports whether date is an observed holiday. A nil calendar has
// no holidays.
func (c *Calendar) IsHoliday(date time.Time) bool {
	if c == nil {
		return false
	}
	_, ok := c.holidays[FormatDate(date)]
	return ok
}

// ParseDate parses an ISO calendar date. Surrounding whitespace is ignored.
func ParseDate(s string) (time.Time, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return time.Time{}, fmt.Errorf("%w: empty", ErrInvalidDate)
	}
	t, err := time.Parse(Layout, s)
	if err != nil {
		return time.Time{}, fmt.Errorf("%w: %q", ErrInvalidDate, s)
	}
	return t, nil
}

// FormatDate renders the calendar date of t.
func FormatDate(t time.Time) string {
	return t.Format(Layout)
}

// DateOf returns the calendar date of t as seen in t's own location.
func DateOf(t time.Time) time.Time {
	y, m, d := t.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

// DaysBetween returns b - a in whole calendar days.
func DaysBetween(a, b time.Time) int {
	a, b = DateOf(a), DateOf(b)
	return int(b.Sub(a).Hours() / 24)
}
