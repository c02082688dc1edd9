package service

import (
	"sort"

	"day-organiser/internal/localdate"
	"day-organiser/internal/model"
	"day-organiser/internal/recurrence"
)

// DayItem is a task as it appears on one day.
type DayItem struct {
	Task *model.Task
	Done bool
}

// HiddenGroupSummary counts open tasks of a child group that hides its tasks
// from the active parent.
type HiddenGroupSummary struct {
	Group      *model.Group
	ByPriority map[model.Priority]int
	Total      int
}

// QueryService builds read-only views over the store.
type QueryService struct {
	data *model.OrganiserData
}

func NewQueryService(data *model.OrganiserData) *QueryService {
	return &QueryService{data: data}
}

// DayView lists what shows on day for the active group ("" for all groups).
// When day is today it also pulls in open Todo items from any date and
// prepare/expiration tasks whose window covers today.
func (q *QueryService) DayView(day, today, active string) []DayItem {
	var items []DayItem
	visibility := NewGroupVisibility(q.data.Groups, active)
	for _, key := range sortedKeys(q.data.Days) {
		for _, t := range q.data.Days[key].Tasks {
			if !visibility.Visible(t.GroupID) {
				continue
			}
			if !recurrence.OccursOnDay(t, day) && !(day == today && surfacesToday(t, today)) {
				continue
			}
			items = append(items, DayItem{Task: t, Done: IsDoneOn(t, day)})
		}
	}
	SortByPriorityRank(items)
	return items
}

func surfacesToday(t *model.Task, today string) bool {
	if t.IsCyclic() {
		return false
	}
	if t.TypeID == model.TypeTodo && t.StatusID != model.StatusDone {
		return true
	}
	return inTimeWindow(t, today)
}

// inTimeWindow applies prepare/expiration windows around the task date.
func inTimeWindow(t *model.Task, day string) bool {
	base := recurrence.BaseDate(t)
	if base == "" {
		return false
	}
	switch t.TimeMode {
	case model.TimeModePrepare:
		from, ok := localdate.AddDays(base, -t.TimeOffsetDays)
		return ok && from <= day && day <= base
	case model.TimeModeExpiration:
		until, ok := localdate.AddDays(base, t.TimeOffsetDays)
		return ok && day <= until
	default:
		return false
	}
}

// SortByPriorityRank orders items by severity (critical first), open before done,
// then by event time.
func SortByPriorityRank(items []DayItem) {
	sort.SliceStable(items, func(i, j int) bool {
		a, b := items[i], items[j]
		if a.Done != b.Done {
			return !a.Done
		}
		if ra, rb := a.Task.Priority.Rank(), b.Task.Priority.Rank(); ra != rb {
			return ra < rb
		}
		return a.Task.EventTime < b.Task.EventTime
	})
}

// HiddenGroupSummary tallies open tasks, across all dates, of each direct child
// of active that hides its tasks from its parent.
func (q *QueryService) HiddenGroupSummary(active string) []HiddenGroupSummary {
	if active == "" {
		return nil
	}
	var out []HiddenGroupSummary
	for _, g := range q.data.Groups {
		if g.Parent() != active || !g.HideTasksFromParent {
			continue
		}
		sum := HiddenGroupSummary{Group: g, ByPriority: map[model.Priority]int{}}
		for _, day := range q.data.Days {
			for _, t := range day.Tasks {
				if t.GroupID == g.ID && t.StatusID != model.StatusDone {
					sum.ByPriority[t.Priority]++
					sum.Total++
				}
			}
		}
		if sum.Total > 0 {
			out = append(out, sum)
		}
	}
	return out
}

// Overdue lists open one-off tasks dated before today, oldest first.
func (q *QueryService) Overdue(today, active string) []*model.Task {
	var out []*model.Task
	visibility := NewGroupVisibility(q.data.Groups, active)
	for _, key := range sortedKeys(q.data.Days) {
		if key >= today {
			break
		}
		for _, t := range q.data.Days[key].Tasks {
			if t.IsCyclic() || t.StatusID == model.StatusDone {
				continue
			}
			if t.TimeMode == model.TimeModeExpiration || t.TypeID == model.TypeTodo {
				continue
			}
			if visibility.Visible(t.GroupID) {
				out = append(out, t)
			}
		}
	}
	return out
}
