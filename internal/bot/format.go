package bot

import (
	"fmt"
	"strings"

	"day-organiser/internal/localdate"
	"day-organiser/internal/model"
	"day-organiser/internal/recurrence"
	"day-organiser/internal/service"
)

const shortIDLen = 8

func shortID(id string) string {
	if len(id) <= shortIDLen {
		return id
	}
	return id[:shortIDLen]
}

func shortTitle(title string, maxLen int) string {
	clean := strings.TrimSpace(strings.ReplaceAll(title, "\n", " "))
	runes := []rune(clean)
	if len(runes) <= maxLen {
		return clean
	}
	if maxLen <= 1 {
		return string(runes[:maxLen])
	}
	return string(runes[:maxLen-1]) + "…"
}

func toggleData(id, day string) string {
	return cbTogglePrefix + id + ":" + day
}

// parseToggleData splits "toggle:<id>:<date>". Ids never contain ':'.
func parseToggleData(data string) (string, string, bool) {
	rest := strings.TrimPrefix(data, cbTogglePrefix)
	i := strings.LastIndex(rest, ":")
	if i <= 0 {
		return "", "", false
	}
	id, day := rest[:i], rest[i+1:]
	if !localdate.Valid(day) {
		return "", "", false
	}
	return id, day, true
}

func parsePriority(text string) (model.Priority, bool) {
	if isSkipInput(text) {
		return "", true
	}
	p := model.Priority(strings.ToLower(strings.TrimSpace(text)))
	if _, ok := model.PriorityRank[p]; !ok {
		return "", false
	}
	return p, true
}

// parseRepeat reads the schedule typed during task creation.
func parseRepeat(text, seed string) (*model.Repeat, bool) {
	if isSkipInput(text) {
		return nil, true
	}
	if strings.TrimSpace(text) == "" {
		return nil, false
	}
	r, err := recurrence.ParseSchedule(text, seed)
	if err != nil {
		return nil, false
	}
	return r, true
}

func dayTitle(day, today string) string {
	t, ok := localdate.Parse(day)
	if !ok {
		return day
	}
	label := t.Format("Mon 02 Jan 2006")
	if day == today {
		return "Today · " + label
	}
	return label
}

func formatTaskLines(tasks []*model.Task) string {
	var b strings.Builder
	for _, t := range tasks {
		b.WriteString(fmt.Sprintf("• <code>%s</code> %s <i>(%s)</i>", shortID(t.ID), escape(t.Name), t.Date))
		if t.Priority != "" {
			b.WriteString(fmt.Sprintf(" [%s]", t.Priority))
		}
		if t.StatusID == model.StatusDone && !t.IsCyclic() {
			b.WriteString(" ✅")
		}
		b.WriteByte('\n')
	}
	return strings.TrimSpace(b.String())
}

func renderGroupTree(nodes []*service.GroupNode, active string) string {
	var b strings.Builder
	var walk func(nodes []*service.GroupNode, depth int)
	walk = func(nodes []*service.GroupNode, depth int) {
		for _, n := range nodes {
			marker := "•"
			if n.Group.ID == active {
				marker = "▸"
			}
			b.WriteString(fmt.Sprintf("%s%s %s <code>%s</code>", strings.Repeat("   ", depth), marker, escape(n.Group.Name), n.Group.ID))
			if n.Group.HideTasksFromParent {
				b.WriteString(" 🙈")
			}
			if n.Group.ShareSubgroups {
				b.WriteString(" 🔗")
			}
			b.WriteByte('\n')
			walk(n.Children, depth+1)
		}
	}
	walk(nodes, 0)
	return strings.TrimSpace(b.String())
}
