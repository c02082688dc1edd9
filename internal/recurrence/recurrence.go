// Package recurrence decides whether a task occurs on a calendar day.
package recurrence

import (
	"math"
	"strconv"
	"strings"
	"time"

	mapset "github.com/deckarep/golang-set/v2"

	"day-organiser/internal/localdate"
	"day-organiser/internal/model"
)

// CycleType is the recurrence kind of a cyclic task.
type CycleType string

const (
	CycleDayWeek CycleType = "dayWeek"
	CycleMonth   CycleType = "month"
	CycleYear    CycleType = "year"
	CycleOther   CycleType = "other"
)

var weekdayTokens = [7]string{"sun", "mon", "tue", "wed", "thu", "fri", "sat"}

var weekdayNames = map[string]string{
	"sunday":    "sun",
	"monday":    "mon",
	"tuesday":   "tue",
	"wednesday": "wed",
	"thursday":  "thu",
	"friday":    "fri",
	"saturday":  "sat",
}

// GetCycleType returns the task's cycle type, or false for one-off tasks.
// A repeat without a cycle type is weekly.
func GetCycleType(task *model.Task) (CycleType, bool) {
	if task == nil || task.Repeat == nil {
		return "", false
	}
	if task.Repeat.CycleType == "" {
		return CycleDayWeek, true
	}
	return CycleType(task.Repeat.CycleType), true
}

// WeekdayToken maps t to sun..sat.
func WeekdayToken(t time.Time) string {
	return weekdayTokens[t.Weekday()]
}

// WeekdayIndex returns the Sunday-based index of a token, or -1.
func WeekdayIndex(tok string) int {
	for i, t := range weekdayTokens {
		if t == tok {
			return i
		}
	}
	return -1
}

// NormalizeWeekday maps a full name, 3-letter abbreviation or 0-6 index
// (Sunday first) to its token. Unknown input returns false.
func NormalizeWeekday(raw string) (string, bool) {
	s := strings.ToLower(strings.TrimSpace(raw))
	if s == "" {
		return "", false
	}
	if n, err := strconv.Atoi(s); err == nil {
		if n < 0 || n > 6 {
			return "", false
		}
		return weekdayTokens[n], true
	}
	if tok, ok := weekdayNames[s]; ok {
		return tok, true
	}
	for _, tok := range weekdayTokens {
		if s == tok {
			return tok, true
		}
	}
	return "", false
}

// NormalizeWeekdays converts configured days to a token set, skipping junk.
func NormalizeWeekdays(days []string) mapset.Set[string] {
	set := mapset.NewThreadUnsafeSet[string]()
	for _, d := range days {
		if tok, ok := NormalizeWeekday(d); ok {
			set.Add(tok)
		}
	}
	return set
}

// ResolveSeed returns the recurrence seed day key, or "" if none is set.
func ResolveSeed(task *model.Task) string {
	if r := task.Repeat; r != nil {
		if r.EventDate != "" {
			return localdate.DateOnly(r.EventDate)
		}
		if r.Date != "" {
			return localdate.DateOnly(r.Date)
		}
	}
	if task.EventDate != "" {
		return localdate.DateOnly(task.EventDate)
	}
	return localdate.DateOnly(task.Date)
}

// ResolveInterval returns the fixed interval in days, floored and never negative.
func ResolveInterval(task *model.Task) int {
	var v *float64
	if r := task.Repeat; r != nil {
		v = firstSet(r.IntervalDays, r.IntervalDaysLegacy)
	}
	if v == nil {
		v = firstSet(task.IntervalDays, task.IntervalDaysLegacy)
	}
	if v == nil || math.IsNaN(*v) {
		return 0
	}
	n := math.Floor(*v)
	if n < 0 {
		return 0
	}
	if n > math.MaxInt32 {
		return math.MaxInt32
	}
	return int(n)
}

func firstSet(vals ...*float64) *float64 {
	for _, v := range vals {
		if v != nil {
			return v
		}
	}
	return nil
}

// BaseDate is the single occurrence day of a one-off task.
func BaseDate(task *model.Task) string {
	switch {
	case task.Date != "":
		return localdate.DateOnly(task.Date)
	case task.EventDate != "":
		return localdate.DateOnly(task.EventDate)
	default:
		return localdate.DateOnly(task.CreatedAt)
	}
}

// OccursOnDay reports whether task has an occurrence on day (YYYY-MM-DD).
// Malformed dates never match.
func OccursOnDay(task *model.Task, day string) bool {
	if task == nil {
		return false
	}
	cycle, cyclic := GetCycleType(task)
	if !cyclic {
		base := BaseDate(task)
		return base != "" && base == day
	}

	target, ok := localdate.Parse(day)
	if !ok {
		return false
	}

	switch cycle {
	case CycleDayWeek:
		return NormalizeWeekdays(task.Repeat.Days).Contains(WeekdayToken(target))
	case CycleMonth:
		seed, ok := localdate.Parse(ResolveSeed(task))
		if !ok {
			return false
		}
		want := seed.Day()
		if last := localdate.DaysInMonth(target.Year(), target.Month()); want > last {
			want = last
		}
		return target.Day() == want
	case CycleYear:
		seed, ok := localdate.Parse(ResolveSeed(task))
		if !ok {
			return false
		}
		return target.Month() == seed.Month() && target.Day() == seed.Day()
	case CycleOther:
		seed, ok := localdate.Parse(ResolveSeed(task))
		if !ok {
			return false
		}
		interval := ResolveInterval(task)
		if interval <= 0 || target.Before(seed) {
			return false
		}
		return localdate.DaysBetween(seed, target)%interval == 0
	default:
		return false
	}
}
