package service

import (
	"fmt"
	"html"
	"sort"
	"strings"
	"time"

	"day-organiser/internal/localdate"
	"day-organiser/internal/model"
	"day-organiser/internal/recurrence"
)

// ReminderService builds human-readable summaries for daily notifications.
type ReminderService struct {
	session *Session
}

func NewReminderService(session *Session) *ReminderService {
	return &ReminderService{session: session}
}

// DailySummary renders today's view, overdue items and hidden subgroup counts as HTML.
func (s *ReminderService) DailySummary(now time.Time) string {
	today := localdate.Today(now)
	active := s.session.ActiveGroup()

	var (
		items   []DayItem
		overdue []*model.Task
		hidden  []HiddenGroupSummary
		groups  = map[string]string{}
	)
	s.session.View(func(tx *Tx) {
		items = tx.Queries.DayView(today, today, active)
		overdue = tx.Queries.Overdue(today, active)
		hidden = tx.Queries.HiddenGroupSummary(active)
		for _, g := range tx.Data.Groups {
			groups[g.ID] = g.Name
		}
	})

	var b strings.Builder
	b.WriteString("📋 <b>Daily summary</b>\n")
	b.WriteString(fmt.Sprintf("🗓 %s", now.Format("Mon 02.01.2006")))
	if name, ok := groups[active]; ok {
		b.WriteString(fmt.Sprintf(" · <i>%s</i>", html.EscapeString(name)))
	}
	b.WriteString("\n\n")

	b.WriteString("🔥 <b>Today</b>\n")
	if len(items) == 0 {
		b.WriteString("— nothing planned\n")
	}
	for i, item := range items {
		b.WriteString(FormatDayItem(i+1, item, today))
	}

	if len(overdue) > 0 {
		b.WriteString("\n⚠️ <b>Overdue</b>\n")
		for _, t := range overdue {
			b.WriteString(fmt.Sprintf("• %s <i>(%s)</i>\n", html.EscapeString(t.Name), t.Date))
		}
	}

	if len(hidden) > 0 {
		b.WriteString("\n🙈 <b>Hidden in subgroups</b>\n")
		for _, h := range hidden {
			b.WriteString(fmt.Sprintf("• %s: %d open%s\n", html.EscapeString(h.Group.Name), h.Total, priorityBreakdown(h.ByPriority)))
		}
	}

	return strings.TrimSpace(b.String())
}

// FormatDayItem renders one line of a day view.
func FormatDayItem(n int, item DayItem, day string) string {
	t := item.Task
	icon := "🟢"
	switch {
	case item.Done:
		icon = "✅"
	case t.IsCyclic():
		icon = "♻️"
	case t.TypeID == model.TypeTodo && t.Date < day:
		icon = "📌"
	case t.TimeMode == model.TimeModePrepare && t.Date > day:
		icon = "⏳"
	case t.TimeMode == model.TimeModeExpiration && t.Date < day:
		icon = "⚠️"
	}

	var b strings.Builder
	b.WriteString(fmt.Sprintf("%s <b>%d.</b> ", icon, n))
	if t.EventTime != "" {
		b.WriteString(fmt.Sprintf("%s ", html.EscapeString(t.EventTime)))
	}
	b.WriteString(html.EscapeString(strings.TrimSpace(t.Name)))
	if t.Priority != "" && t.Priority != model.PriorityMedium && t.Priority != model.PriorityLow {
		b.WriteString(fmt.Sprintf(" <i>[%s]</i>", t.Priority))
	}
	if t.IsCyclic() {
		b.WriteString(fmt.Sprintf(" <i>(%s)</i>", recurrence.Describe(t.Repeat)))
	} else if t.Date != day {
		b.WriteString(fmt.Sprintf(" <i>(%s)</i>", t.Date))
	}
	b.WriteByte('\n')
	return b.String()
}

func priorityBreakdown(counts map[model.Priority]int) string {
	keys := make([]model.Priority, 0, len(counts))
	for p := range counts {
		keys = append(keys, p)
	}
	sort.Slice(keys, func(i, j int) bool { return keys[i].Rank() < keys[j].Rank() })
	parts := make([]string, 0, len(keys))
	for _, p := range keys {
		label := string(p)
		if label == "" {
			label = "none"
		}
		parts = append(parts, fmt.Sprintf("%d %s", counts[p], label))
	}
	if len(parts) == 0 {
		return ""
	}
	return " (" + strings.Join(parts, ", ") + ")"
}
