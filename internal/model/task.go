package model

import (
	"strconv"

	jsoniter "github.com/json-iterator/go"
	"github.com/pkg/errors"
)

var json = jsoniter.ConfigCompatibleWithStandardLibrary

// Priority labels a task's importance.
type Priority string

const (
	PriorityLow      Priority = "low"
	PriorityMedium   Priority = "medium"
	PriorityHigh     Priority = "high"
	PriorityCritical Priority = "critical"
)

// PriorityRank orders priorities by severity, most severe first.
// Unknown labels sort after every known one.
var PriorityRank = map[Priority]int{
	PriorityCritical: 0,
	PriorityHigh:     1,
	PriorityMedium:   2,
	PriorityLow:      3,
}

// Rank returns the severity rank of p.
func (p Priority) Rank() int {
	if r, ok := PriorityRank[p]; ok {
		return r
	}
	return len(PriorityRank)
}

// TimeMode governs how long a task stays visible around its date.
type TimeMode string

const (
	TimeModeEvent      TimeMode = "event"
	TimeModePrepare    TimeMode = "prepare"
	TimeModeExpiration TimeMode = "expiration"
)

// Task type identifiers used by the views.
const (
	TypeTodo      = "Todo"
	TypeTimeEvent = "TimeEvent"
	TypeReplenish = "Replenish"
)

// Status values. Zero means done; anything else is active.
const (
	StatusDone   = 0
	StatusActive = 1
)

// Task is a single organiser item stored in a day bucket.
type Task struct {
	ID             string         `json:"id"`
	Name           string         `json:"name"`
	Description    string         `json:"description,omitempty"`
	Date           string         `json:"date,omitempty"`
	EventDate      string         `json:"eventDate,omitempty"`
	EventTime      string         `json:"eventTime,omitempty"`
	Category       string         `json:"category,omitempty"`
	Priority       Priority       `json:"priority,omitempty"`
	StatusID       int            `json:"status_id"`
	TypeID         string         `json:"type_id,omitempty"`
	GroupID        string         `json:"groupId,omitempty"`
	Repeat         *Repeat        `json:"repeat,omitempty"`
	History        []HistoryEntry `json:"history,omitempty"`
	TimeMode       TimeMode       `json:"timeMode,omitempty"`
	TimeOffsetDays int            `json:"timeOffsetDays,omitempty"`
	CreatedAt      string         `json:"createdAt,omitempty"`
	UpdatedAt      string         `json:"updatedAt,omitempty"`

	// Interval fallbacks for tasks written before the interval moved into repeat.
	IntervalDays       *float64 `json:"intervalDays,omitempty"`
	IntervalDaysLegacy *float64 `json:"interval_days,omitempty"`
}

// UnmarshalJSON decodes a task; a missing or null status_id leaves it active.
func (t *Task) UnmarshalJSON(b []byte) error {
	type fields Task
	var status struct {
		StatusID *int `json:"status_id"`
	}
	if err := json.Unmarshal(b, (*fields)(t)); err != nil {
		return errors.Wrap(err, "task")
	}
	if err := json.Unmarshal(b, &status); err != nil {
		return errors.Wrap(err, "task status")
	}
	t.StatusID = StatusActive
	if status.StatusID != nil {
		t.StatusID = *status.StatusID
	}
	return nil
}

// IsCyclic reports whether the task recurs.
func (t *Task) IsCyclic() bool {
	return t != nil && t.Repeat != nil
}

// Repeat describes how a cyclic task recurs.
type Repeat struct {
	CycleType string   `json:"cycleType,omitempty"`
	Days      Weekdays `json:"days,omitempty"`
	EventDate string   `json:"eventDate,omitempty"`
	Date      string   `json:"date,omitempty"`

	IntervalDays       *float64 `json:"intervalDays,omitempty"`
	IntervalDaysLegacy *float64 `json:"interval_days,omitempty"`
}

// Weekdays holds weekday tokens. On decode it accepts names or 0-6 numbers.
type Weekdays []string

func (w *Weekdays) UnmarshalJSON(b []byte) error {
	var raw []jsoniter.RawMessage
	if err := json.Unmarshal(b, &raw); err != nil {
		return errors.Wrap(err, "weekdays")
	}
	out := make(Weekdays, 0, len(raw))
	for _, item := range raw {
		var s string
		if err := json.Unmarshal(item, &s); err == nil {
			out = append(out, s)
			continue
		}
		var n float64
		if err := json.Unmarshal(item, &n); err != nil {
			return errors.Wrapf(err, "weekday %s", string(item))
		}
		out = append(out, strconv.Itoa(int(n)))
	}
	*w = out
	return nil
}

// History entry kinds.
const (
	HistoryUpdate    = "update"
	HistoryCycleDone = "cycleDone"
)

// HistoryEntry records a field change or a completed occurrence.
type HistoryEntry struct {
	Type      string `json:"type"`
	Field     string `json:"field,omitempty"`
	Old       any    `json:"old,omitempty"`
	New       any    `json:"new,omitempty"`
	IsDone    bool   `json:"is_done,omitempty"`
	Date      string `json:"date,omitempty"`
	ChangedAt string `json:"changedAt"`
}
