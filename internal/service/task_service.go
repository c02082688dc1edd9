package service

import (
	"sort"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/pkg/errors"

	"day-organiser/internal/localdate"
	"day-organiser/internal/model"
)

const isoLayout = "2006-01-02T15:04:05.000Z07:00"

// TaskInput represents data required to create a task.
type TaskInput struct {
	Name           string
	Description    string
	EventDate      string
	EventTime      string
	Category       string
	Priority       model.Priority
	StatusID       *int
	TypeID         string
	GroupID        string
	Repeat         *model.Repeat
	TimeMode       model.TimeMode
	TimeOffsetDays int
}

// TaskPatch lists the fields an update touches. Nil means untouched.
// GroupID pointing at "" removes the task from its group.
type TaskPatch struct {
	Name           *string
	Description    *string
	Date           *string
	EventDate      *string
	EventTime      *string
	Category       *string
	Priority       *model.Priority
	StatusID       *int
	TypeID         *string
	GroupID        *string
	Repeat         *model.Repeat
	ClearRepeat    bool
	TimeMode       *model.TimeMode
	TimeOffsetDays *int
}

// TaskService mutates and queries the day-indexed task store.
// It performs no locking and no I/O; the owner serializes calls.
type TaskService struct {
	data  *model.OrganiserData
	now   func() time.Time
	newID func() string
}

func NewTaskService(data *model.OrganiserData) *TaskService {
	return &TaskService{data: data, now: time.Now, newID: uuid.NewString}
}

func (s *TaskService) stamp() string {
	return s.now().UTC().Format(isoLayout)
}

// AddTask creates a task in the bucket for date. Cyclic tasks always start active.
func (s *TaskService) AddTask(date string, input TaskInput) (*model.Task, error) {
	if !localdate.Valid(date) {
		return nil, errors.Wrapf(ErrInvalidDate, "add task on %q", date)
	}

	now := s.stamp()
	task := &model.Task{
		ID:             s.newID(),
		Name:           input.Name,
		Description:    input.Description,
		Date:           date,
		EventDate:      input.EventDate,
		EventTime:      input.EventTime,
		Category:       input.Category,
		Priority:       input.Priority,
		StatusID:       model.StatusActive,
		TypeID:         input.TypeID,
		GroupID:        input.GroupID,
		Repeat:         input.Repeat,
		TimeMode:       input.TimeMode,
		TimeOffsetDays: max(input.TimeOffsetDays, 0),
		CreatedAt:      now,
		UpdatedAt:      now,
	}
	if task.EventDate == "" {
		task.EventDate = date
	}
	if input.StatusID != nil && !task.IsCyclic() {
		task.StatusID = *input.StatusID
	}

	day := s.data.Bucket(date)
	day.Tasks = append(day.Tasks, task)
	return task, nil
}

// FindTask looks in the hinted bucket first and then in every bucket.
func (s *TaskService) FindTask(hint, id string) (*model.Task, string, bool) {
	if day, ok := s.data.Days[hint]; ok {
		for _, t := range day.Tasks {
			if t.ID == id {
				return t, hint, true
			}
		}
	}
	for _, key := range sortedKeys(s.data.Days) {
		if key == hint {
			continue
		}
		for _, t := range s.data.Days[key].Tasks {
			if t.ID == id {
				return t, key, true
			}
		}
	}
	return nil, "", false
}

// ResolveID accepts a full task id or an unambiguous prefix of one.
func (s *TaskService) ResolveID(ref string) (string, error) {
	ref = strings.TrimSpace(ref)
	var match string
	n := 0
	for _, t := range s.AllTasks() {
		if t.ID == ref {
			return t.ID, nil
		}
		if ref != "" && strings.HasPrefix(t.ID, ref) {
			match = t.ID
			n++
		}
	}
	switch n {
	case 0:
		return "", errors.Wrapf(ErrTaskNotFound, "task %q", ref)
	case 1:
		return match, nil
	default:
		return "", errors.Errorf("id %q matches %d tasks", ref, n)
	}
}

type fieldChange struct {
	field    string
	old, new any
	apply    func()
}

// UpdateTask applies patch to the task and records a history entry per changed field.
// Setting status_id to 0 on a cyclic task marks the occurrence on date as done
// instead of touching status_id. A new date or eventDate moves the task to that
// bucket; an empty one is rejected.
func (s *TaskService) UpdateTask(date, id string, patch TaskPatch) (*model.Task, error) {
	task, bucket, ok := s.FindTask(date, id)
	if !ok {
		return nil, errors.Wrapf(ErrTaskNotFound, "update task %s", id)
	}

	relocating := patch.Date != nil || patch.EventDate != nil
	target := ""
	switch {
	case patch.Date != nil:
		target = *patch.Date
	case patch.EventDate != nil:
		target = *patch.EventDate
	}
	if relocating && !localdate.Valid(target) {
		return nil, errors.Wrapf(ErrInvalidDate, "update task %s", id)
	}
	// date wins when both are given; history must show where the task ended up.
	if patch.Date != nil && patch.EventDate != nil {
		eventDate := target
		patch.EventDate = &eventDate
	}

	now := s.stamp()
	if patch.StatusID != nil && task.IsCyclic() && *patch.StatusID == model.StatusDone {
		if !IsDoneOn(task, date) {
			Recurring{}.MarkDone(task, date, now)
		}
		patch.StatusID = nil
	}

	for _, c := range patchChanges(task, patch) {
		if entry, ok := updateEntry(c.field, c.old, c.new, now); ok {
			task.History = append(task.History, entry)
		}
		c.apply()
	}
	task.UpdatedAt = now

	if relocating {
		s.relocate(task, bucket, target)
	}
	return task, nil
}

func patchChanges(task *model.Task, p TaskPatch) []fieldChange {
	var out []fieldChange
	str := func(field string, dst *string, v *string) {
		if v == nil {
			return
		}
		val := *v
		out = append(out, fieldChange{field: field, old: *dst, new: val, apply: func() { *dst = val }})
	}
	str("name", &task.Name, p.Name)
	str("description", &task.Description, p.Description)
	str("date", &task.Date, p.Date)
	str("eventDate", &task.EventDate, p.EventDate)
	str("eventTime", &task.EventTime, p.EventTime)
	str("category", &task.Category, p.Category)
	str("type_id", &task.TypeID, p.TypeID)
	str("groupId", &task.GroupID, p.GroupID)

	if p.Priority != nil {
		val := *p.Priority
		out = append(out, fieldChange{field: "priority", old: task.Priority, new: val, apply: func() { task.Priority = val }})
	}
	if p.StatusID != nil {
		val := *p.StatusID
		out = append(out, fieldChange{field: "status_id", old: task.StatusID, new: val, apply: func() { task.StatusID = val }})
	}
	if p.TimeMode != nil {
		val := *p.TimeMode
		out = append(out, fieldChange{field: "timeMode", old: task.TimeMode, new: val, apply: func() { task.TimeMode = val }})
	}
	if p.TimeOffsetDays != nil {
		val := max(*p.TimeOffsetDays, 0)
		out = append(out, fieldChange{field: "timeOffsetDays", old: task.TimeOffsetDays, new: val, apply: func() { task.TimeOffsetDays = val }})
	}
	switch {
	case p.ClearRepeat:
		out = append(out, fieldChange{field: "repeat", old: task.Repeat, new: nil, apply: func() { task.Repeat = nil }})
	case p.Repeat != nil:
		val := p.Repeat
		out = append(out, fieldChange{field: "repeat", old: task.Repeat, new: val, apply: func() { task.Repeat = val }})
	}
	return out
}

// relocate moves task from bucket to target and syncs both date fields.
func (s *TaskService) relocate(task *model.Task, bucket, target string) {
	if bucket != target {
		if day, ok := s.data.Days[bucket]; ok {
			day.Tasks = removeTask(day.Tasks, task.ID)
		}
		dst := s.data.Bucket(target)
		dst.Tasks = append(dst.Tasks, task)
	}
	task.Date = target
	task.EventDate = target
}

// DeleteTask removes the task from the hinted bucket and from any other bucket holding it.
func (s *TaskService) DeleteTask(date, id string) bool {
	removed := false
	if day, ok := s.data.Days[date]; ok {
		n := len(day.Tasks)
		day.Tasks = removeTask(day.Tasks, id)
		removed = len(day.Tasks) != n
	}
	for _, day := range s.data.Days {
		n := len(day.Tasks)
		day.Tasks = removeTask(day.Tasks, id)
		if len(day.Tasks) != n {
			removed = true
		}
	}
	return removed
}

// ToggleTaskComplete flips completion of the task for date.
// It returns false when the task does not exist.
func (s *TaskService) ToggleTaskComplete(date, id string) bool {
	task, _, ok := s.FindTask(date, id)
	if !ok {
		return false
	}
	if task.IsCyclic() {
		Recurring{}.Toggle(task, date, s.stamp())
		task.UpdatedAt = s.stamp()
		return true
	}
	next := model.StatusDone
	if task.StatusID == model.StatusDone {
		next = model.StatusActive
	}
	_, err := s.UpdateTask(date, id, TaskPatch{StatusID: &next})
	return err == nil
}

// UndoCycleDone removes the completion of a recurring task's occurrence on date.
func (s *TaskService) UndoCycleDone(date, id string) bool {
	task, _, ok := s.FindTask(date, id)
	if !ok {
		return false
	}
	if !(Recurring{}).Undo(task, date) {
		return false
	}
	task.UpdatedAt = s.stamp()
	return true
}

// GetTasksInRange returns tasks whose bucket lies within [start, end], sorted by
// date and then by priority label in plain string order.
func (s *TaskService) GetTasksInRange(start, end string) ([]*model.Task, error) {
	from, ok := localdate.Parse(start)
	if !ok {
		return nil, errors.Wrapf(ErrInvalidDate, "range start %q", start)
	}
	to, ok := localdate.Parse(end)
	if !ok {
		return nil, errors.Wrapf(ErrInvalidDate, "range end %q", end)
	}

	type dated struct {
		key  string
		task *model.Task
	}
	var rows []dated
	for _, key := range sortedKeys(s.data.Days) {
		at, ok := localdate.Parse(key)
		if !ok || at.Before(from) || at.After(to) {
			continue
		}
		for _, t := range s.data.Days[key].Tasks {
			rows = append(rows, dated{key: key, task: t})
		}
	}
	sort.SliceStable(rows, func(i, j int) bool {
		if rows[i].key != rows[j].key {
			return rows[i].key < rows[j].key
		}
		return rows[i].task.Priority < rows[j].task.Priority
	})

	out := make([]*model.Task, len(rows))
	for i, r := range rows {
		out[i] = r.task
	}
	return out, nil
}

// GetTasksByCategory returns every task in category.
func (s *TaskService) GetTasksByCategory(category string) []*model.Task {
	return s.filter(func(t *model.Task) bool { return t.Category == category })
}

// GetTasksByPriority returns every task with priority p.
func (s *TaskService) GetTasksByPriority(p model.Priority) []*model.Task {
	return s.filter(func(t *model.Task) bool { return t.Priority == p })
}

// GetIncompleteTasks returns active tasks ordered by date.
func (s *TaskService) GetIncompleteTasks() []*model.Task {
	out := s.filter(func(t *model.Task) bool { return t.StatusID != model.StatusDone })
	sort.SliceStable(out, func(i, j int) bool { return out[i].Date < out[j].Date })
	return out
}

// AllTasks returns every task in bucket order.
func (s *TaskService) AllTasks() []*model.Task {
	return s.filter(func(*model.Task) bool { return true })
}

// SetDayNotes stores free-text notes on a day.
func (s *TaskService) SetDayNotes(date, notes string) error {
	if !localdate.Valid(date) {
		return errors.Wrapf(ErrInvalidDate, "notes for %q", date)
	}
	s.data.Bucket(date).Notes = notes
	return nil
}

// GetDay returns the bucket for date, if any.
func (s *TaskService) GetDay(date string) (*model.Day, bool) {
	day, ok := s.data.Days[date]
	return day, ok
}

func (s *TaskService) filter(keep func(*model.Task) bool) []*model.Task {
	var out []*model.Task
	for _, key := range sortedKeys(s.data.Days) {
		for _, t := range s.data.Days[key].Tasks {
			if keep(t) {
				out = append(out, t)
			}
		}
	}
	return out
}

func removeTask(tasks []*model.Task, id string) []*model.Task {
	out := tasks[:0]
	for _, t := range tasks {
		if t.ID != id {
			out = append(out, t)
		}
	}
	for i := len(out); i < len(tasks); i++ {
		tasks[i] = nil
	}
	return out
}

func sortedKeys(days map[string]*model.Day) []string {
	keys := make([]string, 0, len(days))
	for k := range days {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
