// Package localdate converts between YYYY-MM-DD strings and local-midnight times.
//
// Dates are always built with time.Local at midnight, never parsed as UTC, so a
// day key keeps meaning the same calendar day in zones behind UTC.
package localdate

import (
	"fmt"
	"strconv"
	"strings"
	"time"
)

// Layout is the canonical day key format.
const Layout = "2006-01-02"

const day = 24 * time.Hour

// Parse reads a strict YYYY-MM-DD string into local midnight.
// Out-of-range parts roll over the way time.Date normalizes them.
func Parse(s string) (time.Time, bool) {
	parts := strings.Split(strings.TrimSpace(s), "-")
	if len(parts) != 3 {
		return time.Time{}, false
	}
	var nums [3]int
	for i, p := range parts {
		if p == "" {
			return time.Time{}, false
		}
		n, err := strconv.Atoi(p)
		if err != nil {
			return time.Time{}, false
		}
		nums[i] = n
	}
	return time.Date(nums[0], time.Month(nums[1]), nums[2], 0, 0, 0, 0, time.Local), true
}

// Format renders t's local calendar day as YYYY-MM-DD.
func Format(t time.Time) string {
	y, m, d := t.In(time.Local).Date()
	return fmt.Sprintf("%04d-%02d-%02d", y, int(m), d)
}

// DateOnly strips the time portion of an ISO timestamp.
func DateOnly(s string) string {
	if i := strings.IndexByte(s, 'T'); i >= 0 {
		return s[:i]
	}
	return s
}

// Today returns the day key of now.
func Today(now time.Time) string {
	return Format(now)
}

// DaysBetween returns the whole days from a to b, floored.
func DaysBetween(a, b time.Time) int {
	diff := b.Sub(a)
	n := int(diff / day)
	if diff%day < 0 {
		n--
	}
	return n
}

// DaysInMonth returns the number of days in the given month.
func DaysInMonth(year int, month time.Month) int {
	return time.Date(year, month+1, 0, 0, 0, 0, 0, time.Local).Day()
}

// AddDays shifts a day key by n calendar days.
func AddDays(s string, n int) (string, bool) {
	t, ok := Parse(s)
	if !ok {
		return "", false
	}
	return Format(t.AddDate(0, 0, n)), true
}

// Valid reports whether s parses as a day key.
func Valid(s string) bool {
	_, ok := Parse(s)
	return ok
}
