package cli

import (
	"fmt"
	"io"
	"strings"

	"github.com/pkg/errors"
	"github.com/spf13/cobra"

	"day-organiser/internal/localdate"
	"day-organiser/internal/model"
	"day-organiser/internal/recurrence"
	"day-organiser/internal/service"
)

func newTodayCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "today [date]",
		Short: "Show what is on a day (default today)",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := openApp(cmd.Context())
			if err != nil {
				return err
			}
			defer a.Close()

			today := a.session.Today()
			day := today
			if len(args) == 1 {
				if !localdate.Valid(args[0]) {
					return errors.Wrapf(service.ErrInvalidDate, "day %q", args[0])
				}
				day = args[0]
			}
			active := a.session.ActiveGroup()

			var (
				items  []service.DayItem
				hidden []service.HiddenGroupSummary
				notes  string
			)
			a.session.View(func(tx *service.Tx) {
				items = tx.Queries.DayView(day, today, active)
				hidden = tx.Queries.HiddenGroupSummary(active)
				if d, ok := tx.Tasks.GetDay(day); ok {
					notes = d.Notes
				}
			})

			out := cmd.OutOrStdout()
			fmt.Fprintln(out, day)
			if notes != "" {
				fmt.Fprintf(out, "  notes: %s\n", notes)
			}
			if len(items) == 0 {
				fmt.Fprintln(out, "  nothing planned")
			}
			printDayItems(out, items, day)
			for _, h := range hidden {
				fmt.Fprintf(out, "  hidden in %s: %d open\n", h.Group.Name, h.Total)
			}
			return nil
		},
	}
}

func newRangeCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "range <from> <to>",
		Short: "List tasks stored between two dates, inclusive",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := openApp(cmd.Context())
			if err != nil {
				return err
			}
			defer a.Close()

			var tasks []*model.Task
			a.session.View(func(tx *service.Tx) {
				tasks, err = tx.Tasks.GetTasksInRange(args[0], args[1])
			})
			if err != nil {
				return err
			}
			printTasks(cmd.OutOrStdout(), tasks)
			return nil
		},
	}
}

func newListCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "list",
		Short: "List tasks, optionally filtered by category, priority, group or open state",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			category, _ := cmd.Flags().GetString("category")
			priority, _ := cmd.Flags().GetString("priority")
			open, _ := cmd.Flags().GetBool("open")
			groupRef, _ := cmd.Flags().GetString("group")

			a, err := openApp(cmd.Context())
			if err != nil {
				return err
			}
			defer a.Close()

			active := a.session.ActiveGroup()
			var tasks []*model.Task
			a.session.View(func(tx *service.Tx) {
				var subtree map[string]bool
				if groupRef != "" {
					g := tx.Groups.Resolve(groupRef)
					if g == nil {
						err = errors.Wrapf(service.ErrGroupNotFound, "group %q", groupRef)
						return
					}
					subtree = map[string]bool{g.ID: true}
					for _, id := range service.Descendants(tx.Data.Groups, g.ID) {
						subtree[id] = true
					}
				}

				var all []*model.Task
				switch {
				case category != "":
					all = tx.Tasks.GetTasksByCategory(category)
				case priority != "":
					all = tx.Tasks.GetTasksByPriority(model.Priority(strings.ToLower(priority)))
				case open:
					all = tx.Tasks.GetIncompleteTasks()
				default:
					all = tx.Tasks.AllTasks()
				}
				visibility := service.NewGroupVisibility(tx.Data.Groups, active)
				for _, t := range all {
					if open && t.StatusID == model.StatusDone {
						continue
					}
					if subtree != nil {
						if subtree[t.GroupID] {
							tasks = append(tasks, t)
						}
						continue
					}
					if visibility.Visible(t.GroupID) {
						tasks = append(tasks, t)
					}
				}
			})
			if err != nil {
				return err
			}
			printTasks(cmd.OutOrStdout(), tasks)
			return nil
		},
	}
	cmd.Flags().String("category", "", "Only tasks in this category")
	cmd.Flags().String("priority", "", "Only tasks with this priority")
	cmd.Flags().Bool("open", false, "Only tasks that are not done")
	cmd.Flags().String("group", "", "Only tasks of this group and all groups below it")
	return cmd
}

func newAddCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "add <name...>",
		Short: "Add a task",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := openApp(cmd.Context())
			if err != nil {
				return err
			}
			defer a.Close()

			f := cmd.Flags()
			date, _ := f.GetString("date")
			if date == "" {
				date = a.session.Today()
			}
			input, err := taskInputFromFlags(cmd, date)
			if err != nil {
				return err
			}
			input.Name = strings.Join(args, " ")

			var task *model.Task
			err = a.session.Mutate(cmd.Context(), func(tx *service.Tx) error {
				if ref, _ := f.GetString("group"); ref != "" {
					g := tx.Groups.Resolve(ref)
					if g == nil {
						return errors.Wrapf(service.ErrGroupNotFound, "group %q", ref)
					}
					input.GroupID = g.ID
				}
				task, err = tx.Tasks.AddTask(date, input)
				return err
			})
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "added %s on %s\n", task.ID, task.Date)
			return nil
		},
	}
	addTaskFlags(cmd)
	cmd.Flags().String("date", "", "Day of the task (default today)")
	cmd.Flags().String("type", "", "Task type: Todo, TimeEvent or Replenish")
	return cmd
}

func addTaskFlags(cmd *cobra.Command) {
	f := cmd.Flags()
	f.String("description", "", "Longer description")
	f.String("category", "", "Free-form category")
	f.String("priority", "", "critical, high, medium or low")
	f.String("time", "", "Event time, e.g. 18:30")
	f.String("repeat", "", `Schedule: "daily", "weekly mon,thu", "monthly", "yearly", "every 3" or "none"`)
	f.String("group", "", "Group id or name")
	f.String("time-mode", "", "event, prepare or expiration")
	f.Int("offset", 0, "Days of the prepare or expiration window")
}

func taskInputFromFlags(cmd *cobra.Command, date string) (service.TaskInput, error) {
	f := cmd.Flags()
	var in service.TaskInput
	in.Description, _ = f.GetString("description")
	in.Category, _ = f.GetString("category")
	in.EventTime, _ = f.GetString("time")
	in.TypeID, _ = f.GetString("type")
	in.TimeOffsetDays, _ = f.GetInt("offset")

	p, _ := f.GetString("priority")
	priority, err := parsePriority(p)
	if err != nil {
		return in, err
	}
	in.Priority = priority

	mode, _ := f.GetString("time-mode")
	if in.TimeMode, err = parseTimeMode(mode); err != nil {
		return in, err
	}

	schedule, _ := f.GetString("repeat")
	if in.Repeat, err = recurrence.ParseSchedule(schedule, date); err != nil {
		return in, err
	}
	return in, nil
}

func newEditCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "edit <id>",
		Short: "Change fields of a task; a new --date moves it",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := openApp(cmd.Context())
			if err != nil {
				return err
			}
			defer a.Close()

			f := cmd.Flags()
			var patch service.TaskPatch
			for flag, dst := range map[string]**string{
				"name":        &patch.Name,
				"description": &patch.Description,
				"category":    &patch.Category,
				"time":        &patch.EventTime,
				"date":        &patch.Date,
			} {
				if f.Changed(flag) {
					v, _ := f.GetString(flag)
					*dst = &v
				}
			}
			if f.Changed("priority") {
				v, _ := f.GetString("priority")
				p, err := parsePriority(v)
				if err != nil {
					return err
				}
				patch.Priority = &p
			}
			if f.Changed("time-mode") {
				v, _ := f.GetString("time-mode")
				m, err := parseTimeMode(v)
				if err != nil {
					return err
				}
				patch.TimeMode = &m
			}
			if f.Changed("offset") {
				v, _ := f.GetInt("offset")
				patch.TimeOffsetDays = &v
			}

			var task *model.Task
			err = a.session.Mutate(cmd.Context(), func(tx *service.Tx) error {
				id, err := tx.Tasks.ResolveID(args[0])
				if err != nil {
					return err
				}
				if f.Changed("group") {
					ref, _ := f.GetString("group")
					gid := ""
					if ref != "" {
						g := tx.Groups.Resolve(ref)
						if g == nil {
							return errors.Wrapf(service.ErrGroupNotFound, "group %q", ref)
						}
						gid = g.ID
					}
					patch.GroupID = &gid
				}
				if f.Changed("repeat") {
					v, _ := f.GetString("repeat")
					current, _, _ := tx.Tasks.FindTask("", id)
					r, err := recurrence.ParseSchedule(v, recurrence.BaseDate(current))
					if err != nil {
						return err
					}
					patch.Repeat = r
					patch.ClearRepeat = r == nil
				}
				task, err = tx.Tasks.UpdateTask("", id, patch)
				return err
			})
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "updated %s (%d history entries)\n", task.ID, len(task.History))
			return nil
		},
	}
	addTaskFlags(cmd)
	cmd.Flags().String("name", "", "New name")
	cmd.Flags().String("date", "", "Move the task to this day")
	return cmd
}

func newDoneCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "done <id> [date]",
		Short: "Complete a task, or one occurrence of a recurring task",
		Args:  cobra.RangeArgs(1, 2),
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := openApp(cmd.Context())
			if err != nil {
				return err
			}
			defer a.Close()

			day, err := dayArg(a, args)
			if err != nil {
				return err
			}
			var task *model.Task
			err = a.session.Mutate(cmd.Context(), func(tx *service.Tx) error {
				id, err := tx.Tasks.ResolveID(args[0])
				if err != nil {
					return err
				}
				done := model.StatusDone
				task, err = tx.Tasks.UpdateTask(day, id, service.TaskPatch{StatusID: &done})
				return err
			})
			if err != nil {
				return err
			}
			if task.IsCyclic() {
				fmt.Fprintf(cmd.OutOrStdout(), "done %s for %s\n", task.Name, day)
				return nil
			}
			fmt.Fprintf(cmd.OutOrStdout(), "done %s\n", task.Name)
			return nil
		},
	}
}

func newUndoCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "undo <id> [date]",
		Short: "Reopen a task, or one occurrence of a recurring task",
		Args:  cobra.RangeArgs(1, 2),
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := openApp(cmd.Context())
			if err != nil {
				return err
			}
			defer a.Close()

			day, err := dayArg(a, args)
			if err != nil {
				return err
			}
			var changed bool
			err = a.session.Mutate(cmd.Context(), func(tx *service.Tx) error {
				id, err := tx.Tasks.ResolveID(args[0])
				if err != nil {
					return err
				}
				task, _, _ := tx.Tasks.FindTask(day, id)
				if task.IsCyclic() {
					changed = tx.Tasks.UndoCycleDone(day, id)
					return nil
				}
				if task.StatusID != model.StatusDone {
					return nil
				}
				active := model.StatusActive
				_, err = tx.Tasks.UpdateTask(day, id, service.TaskPatch{StatusID: &active})
				changed = err == nil
				return err
			})
			if err != nil {
				return err
			}
			if !changed {
				fmt.Fprintln(cmd.OutOrStdout(), "nothing to undo")
				return nil
			}
			fmt.Fprintln(cmd.OutOrStdout(), "reopened")
			return nil
		},
	}
}

func newDeleteCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "delete <id>",
		Short: "Delete a task",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := openApp(cmd.Context())
			if err != nil {
				return err
			}
			defer a.Close()

			err = a.session.Mutate(cmd.Context(), func(tx *service.Tx) error {
				id, err := tx.Tasks.ResolveID(args[0])
				if err != nil {
					return err
				}
				tx.Tasks.DeleteTask("", id)
				return nil
			})
			if err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), "deleted")
			return nil
		},
	}
}

func newNotesCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "notes <date> [text...]",
		Short: "Show or set the notes of a day",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := openApp(cmd.Context())
			if err != nil {
				return err
			}
			defer a.Close()

			day := args[0]
			if len(args) == 1 {
				var notes string
				a.session.View(func(tx *service.Tx) {
					if d, ok := tx.Tasks.GetDay(day); ok {
						notes = d.Notes
					}
				})
				fmt.Fprintln(cmd.OutOrStdout(), notes)
				return nil
			}
			return a.session.Mutate(cmd.Context(), func(tx *service.Tx) error {
				return tx.Tasks.SetDayNotes(day, strings.Join(args[1:], " "))
			})
		},
	}
}

func dayArg(a *app, args []string) (string, error) {
	if len(args) < 2 {
		return a.session.Today(), nil
	}
	if !localdate.Valid(args[1]) {
		return "", errors.Wrapf(service.ErrInvalidDate, "day %q", args[1])
	}
	return args[1], nil
}

func parsePriority(raw string) (model.Priority, error) {
	p := model.Priority(strings.ToLower(strings.TrimSpace(raw)))
	if p == "" {
		return "", nil
	}
	if _, ok := model.PriorityRank[p]; !ok {
		return "", errors.Errorf("unknown priority %q", raw)
	}
	return p, nil
}

func parseTimeMode(raw string) (model.TimeMode, error) {
	m := model.TimeMode(strings.ToLower(strings.TrimSpace(raw)))
	switch m {
	case "", model.TimeModeEvent, model.TimeModePrepare, model.TimeModeExpiration:
		return m, nil
	default:
		return "", errors.Errorf("unknown time mode %q", raw)
	}
}

func printDayItems(w io.Writer, items []service.DayItem, day string) {
	for i, item := range items {
		t := item.Task
		box := "[ ]"
		if item.Done {
			box = "[x]"
		}
		line := fmt.Sprintf("  %s %2d. ", box, i+1)
		if t.EventTime != "" {
			line += t.EventTime + " "
		}
		line += t.Name
		if t.Priority != "" {
			line += " !" + string(t.Priority)
		}
		if t.IsCyclic() {
			line += " (" + recurrence.Describe(t.Repeat) + ")"
		} else if t.Date != day {
			line += " (" + t.Date + ")"
		}
		fmt.Fprintf(w, "%s  %s\n", line, t.ID)
	}
}

func printTasks(w io.Writer, tasks []*model.Task) {
	if len(tasks) == 0 {
		fmt.Fprintln(w, "no tasks")
		return
	}
	for _, t := range tasks {
		box := "[ ]"
		if t.StatusID == model.StatusDone {
			box = "[x]"
		}
		line := fmt.Sprintf("%s %s %s", t.Date, box, t.Name)
		if t.Priority != "" {
			line += " !" + string(t.Priority)
		}
		if t.IsCyclic() {
			line += " (" + recurrence.Describe(t.Repeat) + ")"
		}
		fmt.Fprintf(w, "%s  %s\n", line, t.ID)
	}
}
