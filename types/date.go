package types

import (
	"fmt"
	"time"
)

// MonthLayout is the billing-month key layout ("2024-01").
const MonthLayout = "2006-01"

// DateLayout is the calendar date layout used for stored dates.
const DateLayout = "2006-01-02"

// Day truncates t to midnight UTC of its calendar date.
func Day(t time.Time) time.Time {
	y, m, d := t.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

// Date builds a UTC calendar date.
func Date(year int, month time.Month, day int) time.Time {
	return time.Date(year, month, day, 0, 0, 0, 0, time.UTC)
}

// DaysBetween returns the number of calendar days from a to b. It is
// negative when b is before a.
func DaysBetween(a, b time.Time) int {
	return int(Day(b).Sub(Day(a)).Hours() / 24)
}

// ParseMonth validates a billing-month key.
func ParseMonth(key string) (time.Time, error) {
	t, err := time.Parse(MonthLayout, key)
	if err != nil {
		return time.Time{}, fmt.Errorf("types: billing month %q must be YYYY-MM", key)
	}
	return t, nil
}

// MonthKey returns the billing-month key for t.
func MonthKey(t time.Time) string {
	return t.Format(MonthLayout)
}

// InvoicePeriod returns the "yyyy/MM" period used in invoice numbers.
func InvoicePeriod(t time.Time) string {
	return t.Format("2006/01")
}

// Within reports whether day falls in [from, to], treating a nil to as
// open-ended.
func Within(day, from time.Time, to *time.Time) bool {
	day = Day(day)
	if Day(from).After(day) {
		return false
	}
	return to == nil || !Day(*to).Before(day)
}
