package service

import "day-organiser/internal/model"

// CompletionPolicy is the completion state machine for one kind of task.
// One-shot tasks use status_id; recurring tasks keep status_id active and
// record each completed occurrence as a cycleDone history entry.
type CompletionPolicy interface {
	IsDone(task *model.Task, day string) bool
	MarkDone(task *model.Task, day, now string)
	Toggle(task *model.Task, day, now string)
}

// OneShot completes a task by flipping status_id.
type OneShot struct{}

// Recurring completes a single occurrence through history.
type Recurring struct{}

// PolicyFor picks the completion policy for task.
func PolicyFor(task *model.Task) CompletionPolicy {
	if task.IsCyclic() {
		return Recurring{}
	}
	return OneShot{}
}

func (OneShot) IsDone(task *model.Task, _ string) bool {
	return task.StatusID == model.StatusDone
}

func (OneShot) MarkDone(task *model.Task, _, _ string) {
	task.StatusID = model.StatusDone
}

func (OneShot) Toggle(task *model.Task, _, _ string) {
	if task.StatusID == model.StatusDone {
		task.StatusID = model.StatusActive
		return
	}
	task.StatusID = model.StatusDone
}

func (Recurring) IsDone(task *model.Task, day string) bool {
	return cycleDoneIndex(task, day) >= 0
}

func (Recurring) MarkDone(task *model.Task, day, now string) {
	task.History = append(task.History, model.HistoryEntry{
		Type:      model.HistoryCycleDone,
		IsDone:    true,
		Date:      day,
		ChangedAt: now,
	})
}

func (r Recurring) Toggle(task *model.Task, day, now string) {
	if r.Undo(task, day) {
		return
	}
	r.MarkDone(task, day, now)
}

// Undo removes the latest cycleDone entry for day.
func (Recurring) Undo(task *model.Task, day string) bool {
	i := cycleDoneIndex(task, day)
	if i < 0 {
		return false
	}
	task.History = append(task.History[:i:i], task.History[i+1:]...)
	return true
}

func cycleDoneIndex(task *model.Task, day string) int {
	for i := len(task.History) - 1; i >= 0; i-- {
		h := task.History[i]
		if h.Type == model.HistoryCycleDone && h.Date == day {
			return i
		}
	}
	return -1
}

// IsDoneOn reports whether task counts as completed for day.
func IsDoneOn(task *model.Task, day string) bool {
	return PolicyFor(task).IsDone(task, day)
}
