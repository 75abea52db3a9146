package ion

import (
	"fmt"
	"time"
)

// DateKey identifies one UTC calendar day. Every adapter derives its temporal
// request parameters (zero-padded month/day, ordinal day-of-year) from this
// single type so that no call site grows its own day arithmetic.
type DateKey struct {
	Year  int
	Month time.Month
	Day   int
}

// NewDateKey truncates an instant to its UTC calendar day.
func NewDateKey(t time.Time) DateKey {
	u := t.UTC()
	return DateKey{Year: u.Year(), Month: u.Month(), Day: u.Day()}
}

// ParseDateKey parses a "YYYY-MM-DD" date.
func ParseDateKey(s string) (DateKey, error) {
	t, err := time.ParseInLocation("2006-01-02", s, time.UTC)
	if err != nil {
		return DateKey{}, fmt.Errorf("parse date %q: %w", s, err)
	}
	return NewDateKey(t), nil
}

// Time returns UTC midnight of the day.
func (k DateKey) Time() time.Time {
	return time.Date(k.Year, k.Month, k.Day, 0, 0, 0, 0, time.UTC)
}

// DayOfYear returns the 1-based ordinal day within the year, leap-year aware.
// Equivalent to floor((midnight(k) - midnight(Jan 1)) / 24h) + 1 in UTC.
func (k DateKey) DayOfYear() int {
	return k.Time().YearDay()
}

// MonthPadded returns the zero-padded two-digit month.
func (k DateKey) MonthPadded() string {
	return fmt.Sprintf("%02d", int(k.Month))
}

// DayPadded returns the zero-padded two-digit day of month.
func (k DateKey) DayPadded() string {
	return fmt.Sprintf("%02d", k.Day)
}

// DayOfYearPadded returns the zero-padded three-digit day-of-year.
func (k DateKey) DayOfYearPadded() string {
	return fmt.Sprintf("%03d", k.DayOfYear())
}

// AddDays returns the day n calendar days later (or earlier for negative n).
func (k DateKey) AddDays(n int) DateKey {
	return NewDateKey(k.Time().AddDate(0, 0, n))
}

// Before reports whether k is an earlier day than other.
func (k DateKey) Before(other DateKey) bool {
	return k.Time().Before(other.Time())
}

// String formats the day as "YYYY-MM-DD".
func (k DateKey) String() string {
	return fmt.Sprintf("%04d-%s-%s", k.Year, k.MonthPadded(), k.DayPadded())
}
