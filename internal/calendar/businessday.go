package calendar

import "time"

// IsBusinessDay is false on weekends and holidays.
func (c *Calendar) IsBusinessDay(date time.Time) bool {
	switch date.Weekday() {
	case time.Saturday, time.Sunday:
		return false
	}
	return !c.IsHoliday(date)
}

// SubtractBusinessDays walks backward from from (exclusive) until n business
// days have been counted. n <= 0 returns from unchanged.
func (c *Calendar) SubtractBusinessDays(from time.Time, n int) time.Time {
	d := DateOf(from)
	for n > 0 {
		d = d.AddDate(0, 0, -1)
		if c.IsBusinessDay(d) {
			n--
		}
	}
	return d
}

// BusinessDaysBetween counts business days in [from, to), the inverse of
// SubtractBusinessDays. It is zero when to is not after from.
func (c *Calendar) BusinessDaysBetween(from, to time.Time) int {
	d, end := DateOf(from), DateOf(to)
	n := 0
	for d.Before(end) {
		if c.IsBusinessDay(d) {
			n++
		}
		d = d.AddDate(0, 0, 1)
	}
	return n
}

// SubtractWeeks is plain calendar arithmetic: from minus 7n days.
func SubtractWeeks(from time.Time, n int) time.Time {
	return DateOf(from).AddDate(0, 0, -7*n)
}
