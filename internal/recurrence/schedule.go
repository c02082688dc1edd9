package recurrence

import (
	"fmt"
	"sort"
	"strconv"
	"strings"

	"github.com/pkg/errors"

	"day-organiser/internal/localdate"
	"day-organiser/internal/model"
)

// ParseSchedule reads a short schedule such as "daily", "weekly mon,thu",
// "monthly", "yearly" or "every 3". seed anchors the schedules that need a
// start day. "none" and "" yield a nil Repeat.
func ParseSchedule(text, seed string) (*model.Repeat, error) {
	fields := strings.Fields(strings.ToLower(text))
	if len(fields) == 0 || fields[0] == "none" {
		return nil, nil
	}
	switch fields[0] {
	case "daily":
		return &model.Repeat{CycleType: string(CycleDayWeek), Days: append(model.Weekdays{}, weekdayTokens[:]...)}, nil
	case "weekly":
		var days model.Weekdays
		for _, f := range fields[1:] {
			for _, raw := range strings.Split(f, ",") {
				if raw == "" {
					continue
				}
				tok, ok := NormalizeWeekday(raw)
				if !ok {
					return nil, errors.Errorf("unknown weekday %q", raw)
				}
				days = append(days, tok)
			}
		}
		if len(days) == 0 {
			t, ok := localdate.Parse(seed)
			if !ok {
				return nil, errors.Errorf("weekly schedule needs days or a start date")
			}
			days = model.Weekdays{WeekdayToken(t)}
		}
		return &model.Repeat{CycleType: string(CycleDayWeek), Days: days}, nil
	case "monthly":
		return &model.Repeat{CycleType: string(CycleMonth), EventDate: seed}, nil
	case "yearly":
		return &model.Repeat{CycleType: string(CycleYear), EventDate: seed}, nil
	case "every":
		if len(fields) < 2 {
			return nil, errors.New("every needs a number of days")
		}
		n, err := strconv.Atoi(fields[1])
		if err != nil || n <= 0 {
			return nil, errors.Errorf("bad interval %q", fields[1])
		}
		interval := float64(n)
		return &model.Repeat{CycleType: string(CycleOther), EventDate: seed, IntervalDays: &interval}, nil
	default:
		return nil, errors.Errorf("unknown schedule %q", text)
	}
}

// Describe renders a Repeat back in ParseSchedule's words.
func Describe(r *model.Repeat) string {
	task := &model.Task{Repeat: r}
	cycle, ok := GetCycleType(task)
	if !ok {
		return "none"
	}
	switch cycle {
	case CycleDayWeek:
		days := NormalizeWeekdays(r.Days).ToSlice()
		if len(days) == len(weekdayTokens) {
			return "daily"
		}
		sort.Slice(days, func(i, j int) bool { return WeekdayIndex(days[i]) < WeekdayIndex(days[j]) })
		return "weekly " + strings.Join(days, ",")
	case CycleMonth:
		if seed, ok := localdate.Parse(ResolveSeed(task)); ok {
			return fmt.Sprintf("monthly on %d", seed.Day())
		}
		return "monthly"
	case CycleYear:
		if seed, ok := localdate.Parse(ResolveSeed(task)); ok {
			return "yearly on " + seed.Format("Jan 2")
		}
		return "yearly"
	case CycleOther:
		return fmt.Sprintf("every %d days", ResolveInterval(task))
	default:
		return string(cycle)
	}
}
