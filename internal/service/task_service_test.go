package service

import (
	"fmt"
	"testing"
	"time"

	"github.com/pkg/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"day-organiser/internal/model"
)

var fixedNow = time.Date(2026, 2, 3, 9, 30, 0, 0, time.UTC)

func newTestTaskService(data *model.OrganiserData) *TaskService {
	s := NewTaskService(data)
	s.now = func() time.Time { return fixedNow }
	n := 0
	s.newID = func() string {
		n++
		return fmt.Sprintf("t%d", n)
	}
	return s
}

func intPtr(v int) *int { return &v }

func strPtr(v string) *string { return &v }

func prioPtr(v model.Priority) *model.Priority { return &v }

func bucketIDs(data *model.OrganiserData, date string) []string {
	day, ok := data.Days[date]
	if !ok {
		return nil
	}
	ids := make([]string, 0, len(day.Tasks))
	for _, t := range day.Tasks {
		ids = append(ids, t.ID)
	}
	return ids
}

func TestAddTask_AssignsIDAndTimestamps(t *testing.T) {
	data := model.NewOrganiserData()
	s := newTestTaskService(data)

	task, err := s.AddTask("2026-02-03", TaskInput{Name: "Buy milk", Priority: model.PriorityHigh})
	require.NoError(t, err)

	assert.Equal(t, "t1", task.ID)
	assert.Equal(t, "2026-02-03", task.Date)
	assert.Equal(t, "2026-02-03", task.EventDate)
	assert.Equal(t, model.StatusActive, task.StatusID)
	assert.Equal(t, "2026-02-03T09:30:00.000Z", task.CreatedAt)
	assert.Equal(t, task.CreatedAt, task.UpdatedAt)
	assert.Equal(t, []string{"t1"}, bucketIDs(data, "2026-02-03"))
}

func TestAddTask_CyclicAlwaysStartsActive(t *testing.T) {
	s := newTestTaskService(model.NewOrganiserData())

	task, err := s.AddTask("2026-02-03", TaskInput{
		Name:     "Gym",
		StatusID: intPtr(model.StatusDone),
		Repeat:   &model.Repeat{CycleType: "dayWeek", Days: model.Weekdays{"mon"}},
	})
	require.NoError(t, err)
	assert.Equal(t, model.StatusActive, task.StatusID)

	oneOff, err := s.AddTask("2026-02-03", TaskInput{Name: "Done already", StatusID: intPtr(model.StatusDone)})
	require.NoError(t, err)
	assert.Equal(t, model.StatusDone, oneOff.StatusID)
}

func TestAddTask_RejectsBadDate(t *testing.T) {
	data := model.NewOrganiserData()
	s := newTestTaskService(data)

	_, err := s.AddTask("03/02/2026", TaskInput{Name: "x"})
	assert.True(t, errors.Is(err, ErrInvalidDate))
	assert.Empty(t, data.Days)
}

func TestUpdateTask_RecordsHistoryPerChangedField(t *testing.T) {
	s := newTestTaskService(model.NewOrganiserData())
	task, err := s.AddTask("2026-02-03", TaskInput{Name: "Old", Priority: model.PriorityLow})
	require.NoError(t, err)

	_, err = s.UpdateTask("2026-02-03", task.ID, TaskPatch{
		Name:     strPtr("New"),
		Priority: prioPtr(model.PriorityLow),
		Category: strPtr("home"),
	})
	require.NoError(t, err)

	assert.Equal(t, "New", task.Name)
	assert.Equal(t, "home", task.Category)
	require.Len(t, task.History, 2)
	assert.Equal(t, model.HistoryEntry{Type: model.HistoryUpdate, Field: "name", Old: "Old", New: "New", ChangedAt: "2026-02-03T09:30:00.000Z"}, task.History[0])
	assert.Equal(t, "category", task.History[1].Field)
}

func TestUpdateTask_NotFound(t *testing.T) {
	s := newTestTaskService(model.NewOrganiserData())
	_, err := s.UpdateTask("2026-02-03", "missing", TaskPatch{Name: strPtr("x")})
	assert.True(t, errors.Is(err, ErrTaskNotFound))
}

func TestUpdateTask_StaleBucketHint(t *testing.T) {
	s := newTestTaskService(model.NewOrganiserData())
	task, err := s.AddTask("2026-02-03", TaskInput{Name: "a"})
	require.NoError(t, err)

	_, err = s.UpdateTask("2026-01-01", task.ID, TaskPatch{Name: strPtr("b")})
	require.NoError(t, err)
	assert.Equal(t, "b", task.Name)
}

func TestUpdateTask_CyclicDoneGoesToHistory(t *testing.T) {
	s := newTestTaskService(model.NewOrganiserData())
	task, err := s.AddTask("2026-02-02", TaskInput{
		Name:   "Water plants",
		Repeat: &model.Repeat{Days: model.Weekdays{"mon", "thu"}},
	})
	require.NoError(t, err)

	_, err = s.UpdateTask("2026-02-05", task.ID, TaskPatch{StatusID: intPtr(model.StatusDone)})
	require.NoError(t, err)

	assert.Equal(t, model.StatusActive, task.StatusID)
	require.Len(t, task.History, 1)
	assert.Equal(t, model.HistoryCycleDone, task.History[0].Type)
	assert.Equal(t, "2026-02-05", task.History[0].Date)
	assert.True(t, task.History[0].IsDone)
	assert.True(t, IsDoneOn(task, "2026-02-05"))
	assert.False(t, IsDoneOn(task, "2026-02-09"))

	assert.True(t, s.UndoCycleDone("2026-02-05", task.ID))
	assert.Empty(t, task.History)
	assert.False(t, s.UndoCycleDone("2026-02-05", task.ID))
}

func TestUpdateTask_CyclicDoneTwiceAddsOneEntry(t *testing.T) {
	s := newTestTaskService(model.NewOrganiserData())
	task, err := s.AddTask("2026-02-02", TaskInput{Name: "x", Repeat: &model.Repeat{Days: model.Weekdays{"mon"}}})
	require.NoError(t, err)

	for i := 0; i < 2; i++ {
		_, err = s.UpdateTask("2026-02-09", task.ID, TaskPatch{StatusID: intPtr(0)})
		require.NoError(t, err)
	}
	assert.Len(t, task.History, 1)
}

func TestUpdateTask_DateMovesBucket(t *testing.T) {
	data := model.NewOrganiserData()
	s := newTestTaskService(data)
	task, err := s.AddTask("2026-02-03", TaskInput{Name: "Move me"})
	require.NoError(t, err)
	other, err := s.AddTask("2026-02-03", TaskInput{Name: "Stay"})
	require.NoError(t, err)

	_, err = s.UpdateTask("2026-02-03", task.ID, TaskPatch{Date: strPtr("2026-02-05")})
	require.NoError(t, err)

	assert.Equal(t, []string{other.ID}, bucketIDs(data, "2026-02-03"))
	assert.Equal(t, []string{task.ID}, bucketIDs(data, "2026-02-05"))
	assert.Equal(t, "2026-02-05", task.Date)
	assert.Equal(t, "2026-02-05", task.EventDate)
	assert.Same(t, task, data.Days["2026-02-05"].Tasks[0])

	count := 0
	for _, day := range data.Days {
		for _, t := range day.Tasks {
			if t.ID == task.ID {
				count++
			}
		}
	}
	assert.Equal(t, 1, count)
}

func TestUpdateTask_EventDateAlsoMoves(t *testing.T) {
	data := model.NewOrganiserData()
	s := newTestTaskService(data)
	task, err := s.AddTask("2026-02-03", TaskInput{Name: "x"})
	require.NoError(t, err)

	_, err = s.UpdateTask("2026-02-03", task.ID, TaskPatch{EventDate: strPtr("2026-03-01")})
	require.NoError(t, err)
	assert.Empty(t, bucketIDs(data, "2026-02-03"))
	assert.Equal(t, []string{task.ID}, bucketIDs(data, "2026-03-01"))
	assert.Equal(t, "2026-03-01", task.Date)
}

func TestUpdateTask_BadDateLeavesTaskUntouched(t *testing.T) {
	data := model.NewOrganiserData()
	s := newTestTaskService(data)
	task, err := s.AddTask("2026-02-03", TaskInput{Name: "x"})
	require.NoError(t, err)

	_, err = s.UpdateTask("2026-02-03", task.ID, TaskPatch{Name: strPtr("y"), Date: strPtr("soon")})
	assert.True(t, errors.Is(err, ErrInvalidDate))
	assert.Equal(t, "x", task.Name)
	assert.Empty(t, task.History)
	assert.Equal(t, []string{task.ID}, bucketIDs(data, "2026-02-03"))
}

func TestUpdateTask_EmptyDateRejected(t *testing.T) {
	for name, patch := range map[string]TaskPatch{
		"date":      {Name: strPtr("y"), Date: strPtr("")},
		"eventDate": {Name: strPtr("y"), EventDate: strPtr("")},
	} {
		t.Run(name, func(t *testing.T) {
			data := model.NewOrganiserData()
			s := newTestTaskService(data)
			task, err := s.AddTask("2026-02-03", TaskInput{Name: "x"})
			require.NoError(t, err)

			_, err = s.UpdateTask("2026-02-03", task.ID, patch)
			assert.True(t, errors.Is(err, ErrInvalidDate))
			assert.Equal(t, "x", task.Name)
			assert.Equal(t, "2026-02-03", task.Date)
			assert.Equal(t, "2026-02-03", task.EventDate)
			assert.Empty(t, task.History)
			assert.Equal(t, []string{task.ID}, bucketIDs(data, "2026-02-03"))
		})
	}
}

func TestUpdateTask_DateAndEventDateDisagree(t *testing.T) {
	data := model.NewOrganiserData()
	s := newTestTaskService(data)
	task, err := s.AddTask("2026-02-03", TaskInput{Name: "x"})
	require.NoError(t, err)

	_, err = s.UpdateTask("2026-02-03", task.ID, TaskPatch{
		Date:      strPtr("2026-02-05"),
		EventDate: strPtr("2026-02-09"),
	})
	require.NoError(t, err)

	assert.Equal(t, "2026-02-05", task.Date)
	assert.Equal(t, "2026-02-05", task.EventDate)
	assert.Equal(t, []string{task.ID}, bucketIDs(data, "2026-02-05"))
	assert.Empty(t, bucketIDs(data, "2026-02-09"))

	recorded := map[string]any{}
	for _, h := range task.History {
		recorded[h.Field] = h.New
	}
	assert.Equal(t, "2026-02-05", recorded["date"])
	assert.Equal(t, "2026-02-05", recorded["eventDate"])
}

func TestDeleteTask_ScansAllBuckets(t *testing.T) {
	data := model.NewOrganiserData()
	s := newTestTaskService(data)
	task, err := s.AddTask("2026-02-03", TaskInput{Name: "x"})
	require.NoError(t, err)

	assert.True(t, s.DeleteTask("2026-01-01", task.ID))
	assert.Empty(t, bucketIDs(data, "2026-02-03"))
	assert.False(t, s.DeleteTask("2026-02-03", task.ID))
}

func TestToggleTaskComplete_OneShot(t *testing.T) {
	s := newTestTaskService(model.NewOrganiserData())
	task, err := s.AddTask("2026-02-03", TaskInput{Name: "x"})
	require.NoError(t, err)

	assert.True(t, s.ToggleTaskComplete("2026-02-03", task.ID))
	assert.Equal(t, model.StatusDone, task.StatusID)
	assert.True(t, s.ToggleTaskComplete("2026-02-03", task.ID))
	assert.Equal(t, model.StatusActive, task.StatusID)
	require.Len(t, task.History, 2)
	assert.Equal(t, "status_id", task.History[0].Field)

	assert.False(t, s.ToggleTaskComplete("2026-02-03", "missing"))
}

func TestToggleTaskComplete_Recurring(t *testing.T) {
	s := newTestTaskService(model.NewOrganiserData())
	task, err := s.AddTask("2026-02-02", TaskInput{Name: "x", Repeat: &model.Repeat{CycleType: "other", IntervalDays: floatPtr(1)}})
	require.NoError(t, err)

	assert.True(t, s.ToggleTaskComplete("2026-02-04", task.ID))
	assert.True(t, IsDoneOn(task, "2026-02-04"))
	assert.Equal(t, model.StatusActive, task.StatusID)

	assert.True(t, s.ToggleTaskComplete("2026-02-04", task.ID))
	assert.False(t, IsDoneOn(task, "2026-02-04"))
}

func floatPtr(v float64) *float64 { return &v }

func TestGetTasksInRange_SortsByDateThenPriorityLabel(t *testing.T) {
	data := model.NewOrganiserData()
	s := newTestTaskService(data)
	add := func(date string, p model.Priority) *model.Task {
		task, err := s.AddTask(date, TaskInput{Name: string(p), Priority: p})
		require.NoError(t, err)
		return task
	}
	a := add("2026-02-05", model.PriorityLow)
	b := add("2026-02-03", model.PriorityMedium)
	c := add("2026-02-03", model.PriorityCritical)
	d := add("2026-02-03", model.PriorityLow)
	e := add("2026-02-03", model.PriorityHigh)
	data.Bucket("garbage").Tasks = append(data.Bucket("garbage").Tasks, &model.Task{ID: "junk"})

	all, err := s.GetTasksInRange("1970-01-01", "9999-12-31")
	require.NoError(t, err)

	var ids []string
	for _, task := range all {
		ids = append(ids, task.ID)
	}
	// critical < high < low < medium in string order.
	assert.Equal(t, []string{c.ID, e.ID, d.ID, b.ID, a.ID}, ids)

	some, err := s.GetTasksInRange("2026-02-04", "2026-02-05")
	require.NoError(t, err)
	require.Len(t, some, 1)
	assert.Equal(t, a.ID, some[0].ID)

	_, err = s.GetTasksInRange("bad", "2026-02-05")
	assert.True(t, errors.Is(err, ErrInvalidDate))
}

func TestFilters(t *testing.T) {
	s := newTestTaskService(model.NewOrganiserData())
	a, _ := s.AddTask("2026-02-05", TaskInput{Name: "a", Category: "work", Priority: model.PriorityHigh})
	b, _ := s.AddTask("2026-02-01", TaskInput{Name: "b", Category: "home", Priority: model.PriorityHigh})
	c, _ := s.AddTask("2026-02-03", TaskInput{Name: "c", Category: "work", StatusID: intPtr(model.StatusDone)})

	assert.ElementsMatch(t, []*model.Task{a, c}, s.GetTasksByCategory("work"))
	assert.ElementsMatch(t, []*model.Task{a, b}, s.GetTasksByPriority(model.PriorityHigh))
	assert.Equal(t, []*model.Task{b, a}, s.GetIncompleteTasks())
}

func TestSetDayNotes(t *testing.T) {
	s := newTestTaskService(model.NewOrganiserData())
	require.NoError(t, s.SetDayNotes("2026-02-03", "dentist at 3"))
	day, ok := s.GetDay("2026-02-03")
	require.True(t, ok)
	assert.Equal(t, "dentist at 3", day.Notes)
	assert.Error(t, s.SetDayNotes("x", "y"))
}

func TestResolveID(t *testing.T) {
	data := model.NewOrganiserData()
	data.Bucket("2026-02-03").Tasks = []*model.Task{{ID: "abc123"}, {ID: "abd456"}}
	data.Bucket("2026-02-04").Tasks = []*model.Task{{ID: "x"}}
	s := newTestTaskService(data)

	id, err := s.ResolveID("abc")
	require.NoError(t, err)
	assert.Equal(t, "abc123", id)

	id, err = s.ResolveID("x")
	require.NoError(t, err)
	assert.Equal(t, "x", id)

	_, err = s.ResolveID("ab")
	assert.ErrorContains(t, err, "matches 2 tasks")

	_, err = s.ResolveID("zzz")
	assert.True(t, errors.Is(err, ErrTaskNotFound))
}
