package service

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"day-organiser/internal/model"
)

func itemIDs(items []DayItem) []string {
	ids := make([]string, 0, len(items))
	for _, it := range items {
		ids = append(ids, it.Task.ID)
	}
	return ids
}

func dayData(tasks ...*model.Task) *model.OrganiserData {
	data := model.NewOrganiserData()
	for _, t := range tasks {
		day := data.Bucket(t.Date)
		day.Tasks = append(day.Tasks, t)
	}
	return data
}

func TestDayView_TodayPullsBacklogAndWindows(t *testing.T) {
	data := dayData(
		&model.Task{ID: "oneoff", Date: "2026-02-03", Priority: model.PriorityLow, StatusID: model.StatusActive},
		&model.Task{ID: "weekly", Date: "2026-01-06", Priority: model.PriorityCritical, StatusID: model.StatusActive,
			Repeat: &model.Repeat{CycleType: "dayWeek", Days: model.Weekdays{"tue"}}},
		&model.Task{ID: "backlog", Date: "2026-01-20", TypeID: model.TypeTodo, Priority: model.PriorityHigh, StatusID: model.StatusActive},
		&model.Task{ID: "backlog-done", Date: "2026-01-20", TypeID: model.TypeTodo, StatusID: model.StatusDone},
		&model.Task{ID: "prepare", Date: "2026-02-05", Priority: model.PriorityMedium, StatusID: model.StatusActive,
			TimeMode: model.TimeModePrepare, TimeOffsetDays: 3},
		&model.Task{ID: "expiring", Date: "2026-02-01", StatusID: model.StatusActive,
			TimeMode: model.TimeModeExpiration, TimeOffsetDays: 5},
		&model.Task{ID: "expired", Date: "2026-01-31", StatusID: model.StatusActive,
			TimeMode: model.TimeModeExpiration, TimeOffsetDays: 2},
		&model.Task{ID: "far-prepare", Date: "2026-02-20", StatusID: model.StatusActive,
			TimeMode: model.TimeModePrepare, TimeOffsetDays: 3},
	)
	q := NewQueryService(data)

	items := q.DayView("2026-02-03", "2026-02-03", "")
	assert.Equal(t, []string{"weekly", "backlog", "prepare", "oneoff", "expiring"}, itemIDs(items))

	data.Days["2026-02-03"].Tasks[0].StatusID = model.StatusDone
	items = q.DayView("2026-02-03", "2026-02-03", "")
	require.Len(t, items, 5)
	assert.Equal(t, "oneoff", items[4].Task.ID)
	assert.True(t, items[4].Done)
}

func TestDayView_OtherDayHasNoAugmentation(t *testing.T) {
	data := dayData(
		&model.Task{ID: "weekly", Date: "2026-01-06", StatusID: model.StatusActive,
			Repeat: &model.Repeat{CycleType: "dayWeek", Days: model.Weekdays{"2"}}},
		&model.Task{ID: "backlog", Date: "2026-01-20", TypeID: model.TypeTodo, StatusID: model.StatusActive},
		&model.Task{ID: "prepare", Date: "2026-02-12", StatusID: model.StatusActive,
			TimeMode: model.TimeModePrepare, TimeOffsetDays: 3},
	)
	q := NewQueryService(data)

	assert.Equal(t, []string{"weekly"}, itemIDs(q.DayView("2026-02-10", "2026-02-03", "")))
}

func TestDayView_RecurringDoneIsPerOccurrence(t *testing.T) {
	weekly := &model.Task{ID: "weekly", Date: "2026-01-06", StatusID: model.StatusActive,
		Repeat: &model.Repeat{CycleType: "dayWeek", Days: model.Weekdays{"tue"}},
		History: []model.HistoryEntry{{Type: model.HistoryCycleDone, IsDone: true, Date: "2026-02-03"}}}
	q := NewQueryService(dayData(weekly))

	items := q.DayView("2026-02-03", "2026-02-03", "")
	require.Len(t, items, 1)
	assert.True(t, items[0].Done)

	items = q.DayView("2026-02-10", "2026-02-03", "")
	require.Len(t, items, 1)
	assert.False(t, items[0].Done)
}

func TestDayView_FiltersByActiveGroup(t *testing.T) {
	data := dayData(
		&model.Task{ID: "home-task", Date: "2026-02-03", GroupID: "home", StatusID: model.StatusActive},
		&model.Task{ID: "loose", Date: "2026-02-03", StatusID: model.StatusActive},
		&model.Task{ID: "secret-task", Date: "2026-02-03", GroupID: "secret", StatusID: model.StatusActive},
	)
	data.Groups = []*model.Group{group("home", "", false, false), group("secret", "home", false, true)}
	q := NewQueryService(data)

	assert.Equal(t, []string{"home-task"}, itemIDs(q.DayView("2026-02-03", "2026-02-03", "home")))
	assert.Len(t, q.DayView("2026-02-03", "2026-02-03", ""), 3)
}

func TestSortByPriorityRank_EventTimeBreaksTies(t *testing.T) {
	items := []DayItem{
		{Task: &model.Task{ID: "late", Priority: model.PriorityHigh, EventTime: "18:00"}},
		{Task: &model.Task{ID: "unknown", Priority: "someday"}},
		{Task: &model.Task{ID: "early", Priority: model.PriorityHigh, EventTime: "07:30"}},
		{Task: &model.Task{ID: "crit-done", Priority: model.PriorityCritical}, Done: true},
	}
	SortByPriorityRank(items)
	assert.Equal(t, []string{"early", "late", "unknown", "crit-done"}, itemIDs(items))
}

func TestHiddenGroupSummary(t *testing.T) {
	data := dayData(
		&model.Task{ID: "s1", Date: "2026-02-03", GroupID: "secret", Priority: model.PriorityHigh, StatusID: model.StatusActive},
		&model.Task{ID: "s2", Date: "2026-03-01", GroupID: "secret", Priority: model.PriorityHigh, StatusID: model.StatusActive},
		&model.Task{ID: "s3", Date: "2026-02-03", GroupID: "secret", Priority: model.PriorityLow, StatusID: model.StatusDone},
		&model.Task{ID: "k1", Date: "2026-02-03", GroupID: "kids", StatusID: model.StatusActive},
		&model.Task{ID: "d1", Date: "2026-02-03", GroupID: "deep", StatusID: model.StatusActive},
	)
	data.Groups = []*model.Group{
		group("home", "", false, false),
		group("secret", "home", false, true),
		group("kids", "home", false, false),
		group("empty-hidden", "home", false, true),
		group("deep", "secret", false, true),
	}
	q := NewQueryService(data)

	got := q.HiddenGroupSummary("home")
	require.Len(t, got, 1)
	assert.Equal(t, "secret", got[0].Group.ID)
	assert.Equal(t, 2, got[0].Total)
	assert.Equal(t, map[model.Priority]int{model.PriorityHigh: 2}, got[0].ByPriority)

	assert.Nil(t, q.HiddenGroupSummary(""))
}

func TestOverdue(t *testing.T) {
	data := dayData(
		&model.Task{ID: "late", Date: "2026-01-30", StatusID: model.StatusActive},
		&model.Task{ID: "older", Date: "2026-01-02", StatusID: model.StatusActive},
		&model.Task{ID: "done", Date: "2026-01-30", StatusID: model.StatusDone},
		&model.Task{ID: "todo", Date: "2026-01-30", TypeID: model.TypeTodo, StatusID: model.StatusActive},
		&model.Task{ID: "expiring", Date: "2026-01-30", TimeMode: model.TimeModeExpiration, StatusID: model.StatusActive},
		&model.Task{ID: "cyclic", Date: "2026-01-30", StatusID: model.StatusActive, Repeat: &model.Repeat{CycleType: "month"}},
		&model.Task{ID: "today", Date: "2026-02-03", StatusID: model.StatusActive},
	)
	q := NewQueryService(data)

	got := q.Overdue("2026-02-03", "")
	ids := make([]string, 0, len(got))
	for _, task := range got {
		ids = append(ids, task.ID)
	}
	assert.Equal(t, []string{"older", "late"}, ids)
}
