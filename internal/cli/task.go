package cli

import (
	"context"
	"fmt"
	"io"
	"strconv"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/mesh-intelligence/cling/internal/app"
	"github.com/mesh-intelligence/cling/internal/quickadd"
	"github.com/mesh-intelligence/cling/internal/store"
	"github.com/mesh-intelligence/cling/pkg/types"
)

func newTaskCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "task",
		Short: "Manage tasks",
	}
	cmd.AddCommand(newTaskAddCmd())
	cmd.AddCommand(newTaskListCmd())
	cmd.AddCommand(newTaskShowCmd())
	cmd.AddCommand(newTaskUpdateCmd())
	cmd.AddCommand(newTaskDoneCmd())
	cmd.AddCommand(newTaskRemoveCmd())
	cmd.AddCommand(newTaskCalendarCmd())
	return cmd
}

// taskView is a task as printed by the CLI, with tag names resolved.
type taskView struct {
	ID string `json:"id"`
	*types.Task
	Tags []string `json:"tags"`
}

func viewTask(ctx context.Context, s *store.Store, t *types.Task) (taskView, error) {
	names, err := tagNames(ctx, s, "", t.TagIDs)
	if err != nil {
		return taskView{}, err
	}
	if names == nil {
		names = []string{}
	}
	return taskView{ID: t.ID, Task: t, Tags: names}, nil
}

type taskFieldFlags struct {
	list        string
	description string
	priority    int
	tags        []string
	start       string
	end         string
	duration    int
	recurrence  string
}

func (f *taskFieldFlags) register(cmd *cobra.Command) {
	cmd.Flags().StringVarP(&f.list, "list", "l", "", "list name or id")
	cmd.Flags().StringVarP(&f.description, "description", "d", "", "task description")
	cmd.Flags().IntVarP(&f.priority, "priority", "p", 0, "priority 1 (urgent) to 4")
	cmd.Flags().StringSliceVarP(&f.tags, "tag", "t", nil, "tag name (repeatable)")
	cmd.Flags().StringVar(&f.start, "start", "", "start time")
	cmd.Flags().StringVar(&f.end, "end", "", "end time")
	cmd.Flags().IntVar(&f.duration, "duration", 0, "duration in minutes")
	cmd.Flags().StringVar(&f.recurrence, "rrule", "", "recurrence rule, e.g. FREQ=WEEKLY")
}

func newTaskAddCmd() *cobra.Command {
	var (
		f     taskFieldFlags
		quick bool
	)
	cmd := &cobra.Command{
		Use:   "add <title...>",
		Short: "Create a task",
		Long: `Create a task. With --quick the text is parsed for tags, priority,
duration, recurrence and dates, which are removed from the title.

Example:
  cling task add "Write report" --priority 2 --tag work
  cling task add --quick "Review proposal #work P1 tomorrow at 3pm for 30min - draft v2"`,
		Args: cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			text := strings.Join(args, " ")
			return withApp(cmd, func(ctx context.Context, a *app.App) error {
				t := &types.Task{Title: text}
				var tagList []string
				if quick {
					res, err := quickadd.New().Parse(text, time.Now())
					if err != nil {
						return err
					}
					t = res.Task()
					tagList = res.Tags
				}
				if err := f.apply(cmd, t); err != nil {
					return err
				}
				tagList = append(tagList, f.tags...)

				err := a.Store.InTx(ctx, func(tx *store.Store) error {
					ws, err := ensureWorkspace(ctx, tx)
					if err != nil {
						return err
					}
					if f.list != "" {
						l, err := findList(ctx, tx, ws.ID, f.list)
						if err != nil {
							return err
						}
						t.ListID = l.ID
					}
					if t.TagIDs, err = resolveTags(ctx, tx, ws.ID, tagList); err != nil {
						return err
					}
					_, err = tx.CreateTask(ctx, t)
					return err
				})
				if err != nil {
					return fmt.Errorf("create task: %w", err)
				}
				return printTask(ctx, cmd, a.Store, t)
			})
		},
	}
	f.register(cmd)
	cmd.Flags().BoolVarP(&quick, "quick", "q", false, "parse tags, priority, durations and dates from the text")
	return cmd
}

// apply copies explicitly set flags onto t.
func (f *taskFieldFlags) apply(cmd *cobra.Command, t *types.Task) error {
	fl := cmd.Flags()
	if fl.Changed("description") {
		t.Description = f.description
	}
	if fl.Changed("priority") {
		t.Priority = f.priority
	}
	if fl.Changed("start") {
		at, err := parseTimeFlag("start", f.start)
		if err != nil {
			return err
		}
		t.StartAt = &at
	}
	if fl.Changed("end") {
		at, err := parseTimeFlag("end", f.end)
		if err != nil {
			return err
		}
		t.EndAt = &at
	}
	if fl.Changed("duration") {
		d := f.duration
		t.DurationMin = &d
	}
	if fl.Changed("rrule") {
		t.RecurrenceRule = f.recurrence
	}
	return nil
}

func newTaskListCmd() *cobra.Command {
	var (
		list, status, tag string
		limit             int
	)
	cmd := &cobra.Command{
		Use:     "ls",
		Aliases: []string{"list"},
		Short:   "List tasks, most urgent first",
		Args:    cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return withApp(cmd, func(ctx context.Context, a *app.App) error {
				ws, err := ensureWorkspace(ctx, a.Store)
				if err != nil {
					return err
				}
				filter := types.TaskFilter{Status: status, Limit: limit}
				if list != "" {
					l, err := findList(ctx, a.Store, ws.ID, list)
					if err != nil {
						return err
					}
					filter.ListID = l.ID
				}
				if tag != "" {
					t, err := a.Store.TagByName(ctx, ws.ID, strings.TrimPrefix(tag, "#"))
					if err != nil {
						return fmt.Errorf("tag %q: %w", tag, err)
					}
					filter.TagID = t.ID
				}
				tasks, err := a.Store.ListTasks(ctx, filter)
				if err != nil {
					return err
				}
				views := make([]taskView, 0, len(tasks))
				for _, t := range tasks {
					v, err := viewTask(ctx, a.Store, t)
					if err != nil {
						return err
					}
					views = append(views, v)
				}
				return render(out(cmd), views, func(w io.Writer) error {
					rows := make([][]string, 0, len(views))
					for _, v := range views {
						rows = append(rows, []string{
							v.ID, priorityLabel(v.Priority), statusLabel(v.Status),
							v.Title, strings.Join(v.Tags, ","), formatTime(v.StartAt),
						})
					}
					return printTable(w, []string{"ID", "PRI", "STATUS", "TITLE", "TAGS", "START"}, rows)
				})
			})
		},
	}
	cmd.Flags().StringVarP(&list, "list", "l", "", "only tasks on this list (name or id)")
	cmd.Flags().StringVarP(&status, "status", "s", "", "only tasks with this status (todo, in-progress, done)")
	cmd.Flags().StringVarP(&tag, "tag", "t", "", "only tasks carrying this tag")
	cmd.Flags().IntVarP(&limit, "limit", "n", 0, "maximum number of tasks")
	return cmd
}

func newTaskShowCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "show <id>",
		Short: "Show one task",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withApp(cmd, func(ctx context.Context, a *app.App) error {
				t, err := a.Store.GetTask(ctx, args[0])
				if err != nil {
					return fmt.Errorf("task %s: %w", args[0], err)
				}
				return printTask(ctx, cmd, a.Store, t)
			})
		},
	}
}

func printTask(ctx context.Context, cmd *cobra.Command, s *store.Store, t *types.Task) error {
	v, err := viewTask(ctx, s, t)
	if err != nil {
		return err
	}
	return render(out(cmd), v, func(w io.Writer) error {
		fmt.Fprintln(w, styleHeader.Render(v.Title))
		duration := "-"
		if v.DurationMin != nil {
			duration = strconv.Itoa(*v.DurationMin) + "m"
		}
		return printFields(w,
			"id", v.ID,
			"status", statusLabel(v.Status),
			"priority", priorityLabel(v.Priority),
			"list", v.ListID,
			"tags", strings.Join(v.Tags, ", "),
			"start", formatTime(v.StartAt),
			"end", formatTime(v.EndAt),
			"duration", duration,
			"repeat", orDash(v.RecurrenceRule),
			"description", orDash(v.Description),
		)
	})
}

func newTaskUpdateCmd() *cobra.Command {
	var (
		f      taskFieldFlags
		title  string
		status string
	)
	cmd := &cobra.Command{
		Use:   "update <id>",
		Short: "Change fields of a task",
		Long:  "Change the fields given as flags; other fields are left as they are. --tag replaces the tag set.",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withApp(cmd, func(ctx context.Context, a *app.App) error {
				p, err := f.patch(cmd)
				if err != nil {
					return err
				}
				if cmd.Flags().Changed("title") {
					p.Title = &title
				}
				if cmd.Flags().Changed("status") {
					p.Status = &status
				}
				var t *types.Task
				err = a.Store.InTx(ctx, func(tx *store.Store) error {
					ws, err := ensureWorkspace(ctx, tx)
					if err != nil {
						return err
					}
					if f.list != "" {
						l, err := findList(ctx, tx, ws.ID, f.list)
						if err != nil {
							return err
						}
						p.ListID = &l.ID
					}
					if cmd.Flags().Changed("tag") {
						ids, err := resolveTags(ctx, tx, ws.ID, f.tags)
						if err != nil {
							return err
						}
						p.TagIDs = &ids
					}
					t, err = tx.UpdateTask(ctx, args[0], p)
					return err
				})
				if err != nil {
					return fmt.Errorf("update task %s: %w", args[0], err)
				}
				return printTask(ctx, cmd, a.Store, t)
			})
		},
	}
	f.register(cmd)
	cmd.Flags().StringVar(&title, "title", "", "new title")
	cmd.Flags().StringVarP(&status, "status", "s", "", "new status (todo, in-progress, done)")
	return cmd
}

// patch builds a TaskPatch from the explicitly set flags.
func (f *taskFieldFlags) patch(cmd *cobra.Command) (types.TaskPatch, error) {
	var t types.Task
	if err := f.apply(cmd, &t); err != nil {
		return types.TaskPatch{}, err
	}
	var p types.TaskPatch
	fl := cmd.Flags()
	if fl.Changed("description") {
		p.Description = &t.Description
	}
	if fl.Changed("priority") {
		p.Priority = &t.Priority
	}
	p.StartAt, p.EndAt, p.DurationMin = t.StartAt, t.EndAt, t.DurationMin
	if fl.Changed("rrule") {
		p.RecurrenceRule = &t.RecurrenceRule
	}
	return p, nil
}

func newTaskDoneCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "done <id>",
		Short: "Mark a task done",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withApp(cmd, func(ctx context.Context, a *app.App) error {
				status := types.StatusDone
				t, err := a.Store.UpdateTask(ctx, args[0], types.TaskPatch{Status: &status})
				if err != nil {
					return fmt.Errorf("task %s: %w", args[0], err)
				}
				return printTask(ctx, cmd, a.Store, t)
			})
		},
	}
}

func newTaskRemoveCmd() *cobra.Command {
	return &cobra.Command{
		Use:     "rm <id>",
		Aliases: []string{"delete"},
		Short:   "Delete a task",
		Args:    cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withApp(cmd, func(ctx context.Context, a *app.App) error {
				ok, err := a.Store.DeleteTask(ctx, args[0])
				if err != nil {
					return err
				}
				if !ok {
					return notFound(types.KindTask, args[0])
				}
				return render(out(cmd), map[string]string{"deleted": args[0]}, func(w io.Writer) error {
					_, err := fmt.Fprintf(w, "deleted task %s\n", args[0])
					return err
				})
			})
		},
	}
}

func newTaskCalendarCmd() *cobra.Command {
	var from, to string
	cmd := &cobra.Command{
		Use:   "cal",
		Short: "List scheduled tasks in a time range",
		Long:  "List tasks whose start time falls in [--from, --to]. The default range is the next seven days.",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			now := time.Now()
			start := time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, time.Local)
			end := start.AddDate(0, 0, 7)
			var err error
			if from != "" {
				if start, err = parseTimeFlag("from", from); err != nil {
					return err
				}
			}
			if to != "" {
				if end, err = parseTimeFlag("to", to); err != nil {
					return err
				}
			}
			return withApp(cmd, func(ctx context.Context, a *app.App) error {
				events, err := a.Store.CalendarEvents(ctx, start, end)
				if err != nil {
					return err
				}
				return render(out(cmd), events, func(w io.Writer) error {
					rows := make([][]string, 0, len(events))
					for _, e := range events {
						startAt := e.Start
						rows = append(rows, []string{formatTime(&startAt), formatTime(e.End), e.Title, e.TaskID})
					}
					return printTable(w, []string{"START", "END", "TITLE", "TASK"}, rows)
				})
			})
		},
	}
	cmd.Flags().StringVar(&from, "from", "", "range start (default: today)")
	cmd.Flags().StringVar(&to, "to", "", "range end (default: a week from today)")
	return cmd
}

func orDash(s string) string {
	if s == "" {
		return "-"
	}
	return s
}
