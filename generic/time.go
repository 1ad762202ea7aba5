package generic

import (
	"sync"
	"time"
)

// =============================================================================
// CLOCK - Substitutable source of "now"
// =============================================================================

// Clock supplies the current time for due dates, overdue detection and
// notification retention.
type Clock interface {
	Now() time.Time
}

// SystemClock reads the wall clock in UTC.
type SystemClock struct{}

func (SystemClock) Now() time.Time { return time.Now().UTC() }

// FixedClock returns a settable instant. Safe for concurrent use.
type FixedClock struct {
	mu  sync.Mutex
	now time.Time
}

func NewFixedClock(t time.Time) *FixedClock { return &FixedClock{now: t} }

func (c *FixedClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *FixedClock) Set(t time.Time) {
	c.mu.Lock()
	c.now = t
	c.mu.Unlock()
}

func (c *FixedClock) Advance(d time.Duration) {
	c.mu.Lock()
	c.now = c.now.Add(d)
	c.mu.Unlock()
}

// =============================================================================
// CALENDAR ARITHMETIC
// =============================================================================

// AddMonthsClamped adds n calendar months to t. When the target month is
// shorter than t's day of month the result is clamped to the last day of the
// target month (Jan 31 + 1 month = Feb 28/29), unlike time.AddDate which
// overflows into the following month.
func AddMonthsClamped(t time.Time, n int) time.Time {
	y, m, d := t.Date()
	first := time.Date(y, m+time.Month(n), 1, t.Hour(), t.Minute(), t.Second(), t.Nanosecond(), t.Location())
	if last := DaysInMonth(first.Year(), first.Month()); d > last {
		d = last
	}
	return time.Date(first.Year(), first.Month(), d, t.Hour(), t.Minute(), t.Second(), t.Nanosecond(), t.Location())
}

// DaysInMonth returns the number of days in the given month.
func DaysInMonth(year int, month time.Month) int {
	return time.Date(year, month+1, 0, 0, 0, 0, 0, time.UTC).Day()
}

func StartOfMonth(year int, month time.Month) time.Time {
	return time.Date(year, month, 1, 0, 0, 0, 0, time.UTC)
}

func EndOfMonth(year int, month time.Month) time.Time {
	return time.Date(year, month+1, 1, 0, 0, 0, 0, time.UTC).AddDate(0, 0, -1)
}

// ValidPeriod reports whether month/year name a real payroll period.
func ValidPeriod(month, year int) error {
	if month < 1 || month > 12 {
		return &InputError{Field: "month", Reason: "must be between 1 and 12"}
	}
	if year < 1900 || year > 9999 {
		return &InputError{Field: "year", Reason: "must be a four digit year"}
	}
	return nil
}
