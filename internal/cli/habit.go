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
	"github.com/mesh-intelligence/cling/pkg/types"
)

func newHabitCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "habit",
		Short: "Track habits and streaks",
	}
	cmd.AddCommand(newHabitAddCmd())
	cmd.AddCommand(newHabitListCmd())
	cmd.AddCommand(newHabitLogCmd())
	cmd.AddCommand(newHabitStatsCmd())
	return cmd
}

type habitView struct {
	ID string `json:"id"`
	*types.Habit
	Streak int `json:"streak"`
}

func newHabitAddCmd() *cobra.Command {
	var (
		weekly      bool
		days        []int
		description string
	)
	cmd := &cobra.Command{
		Use:   "add <title...>",
		Short: "Create a habit",
		Long: `Create a habit due on the given ISO weekdays (1 = Monday, 7 = Sunday).
A daily habit without --days is due every day.

Example:
  cling habit add "Read 20 minutes"
  cling habit add Gym --weekly --days 1,3,5`,
		Args: cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			sched := types.Daily(days...)
			if weekly {
				sched = types.Weekly(days...)
			}
			return withApp(cmd, func(ctx context.Context, a *app.App) error {
				ws, err := ensureWorkspace(ctx, a.Store)
				if err != nil {
					return err
				}
				h, err := a.Store.CreateHabit(ctx, &types.Habit{
					WorkspaceID: ws.ID,
					Title:       strings.Join(args, " "),
					Description: description,
					Schedule:    sched,
				})
				if err != nil {
					return fmt.Errorf("create habit: %w", err)
				}
				return render(out(cmd), habitView{ID: h.ID, Habit: h, Streak: h.Streak}, func(w io.Writer) error {
					_, err := fmt.Fprintf(w, "created habit %s %s\n", styleHeader.Render(h.Title), styleMuted.Render(h.ID))
					return err
				})
			})
		},
	}
	cmd.Flags().BoolVar(&weekly, "weekly", false, "weekly schedule (requires --days)")
	cmd.Flags().IntSliceVar(&days, "days", nil, "ISO weekdays, e.g. 1,3,5")
	cmd.Flags().StringVarP(&description, "description", "d", "", "habit description")
	return cmd
}

func newHabitListCmd() *cobra.Command {
	return &cobra.Command{
		Use:     "ls",
		Aliases: []string{"list"},
		Short:   "List habits with their current streak",
		Args:    cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return withApp(cmd, func(ctx context.Context, a *app.App) error {
				habits, err := a.Store.ListHabits(ctx)
				if err != nil {
					return err
				}
				views := make([]habitView, 0, len(habits))
				for _, h := range habits {
					views = append(views, habitView{ID: h.ID, Habit: h, Streak: h.Streak})
				}
				return render(out(cmd), views, func(w io.Writer) error {
					rows := make([][]string, 0, len(habits))
					for _, h := range habits {
						rows = append(rows, []string{h.ID, h.Title, scheduleLabel(h.Schedule), streakLabel(h.Streak)})
					}
					return printTable(w, []string{"ID", "TITLE", "SCHEDULE", "STREAK"}, rows)
				})
			})
		},
	}
}

func newHabitLogCmd() *cobra.Command {
	var (
		day   string
		value int
	)
	cmd := &cobra.Command{
		Use:   "log <id>",
		Short: "Record a habit for a day",
		Long:  "Record a value for a habit on a day (default today). Logging the same day again replaces the value; 0 clears it.",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if day == "" {
				day = types.Day(time.Now())
			}
			if _, err := types.ParseDay(day); err != nil {
				return err
			}
			return withApp(cmd, func(ctx context.Context, a *app.App) error {
				l, err := a.Store.LogHabit(ctx, args[0], day, value)
				if err != nil {
					return fmt.Errorf("log habit %s: %w", args[0], err)
				}
				h, err := a.Store.GetHabit(ctx, args[0])
				if err != nil {
					return err
				}
				res := struct {
					ID      string `json:"id"`
					HabitID string `json:"habit_id"`
					Date    string `json:"date"`
					Value   int    `json:"value"`
					Streak  int    `json:"streak"`
				}{l.ID, l.HabitID, l.Date, l.Value, h.Streak}
				return render(out(cmd), res, func(w io.Writer) error {
					_, err := fmt.Fprintf(w, "logged %s on %s, streak %s\n", styleHeader.Render(h.Title), l.Date, streakLabel(h.Streak))
					return err
				})
			})
		},
	}
	cmd.Flags().StringVar(&day, "day", "", "calendar day YYYY-MM-DD (default: today)")
	cmd.Flags().IntVar(&value, "value", 1, "value to record")
	return cmd
}

func newHabitStatsCmd() *cobra.Command {
	var day string
	cmd := &cobra.Command{
		Use:   "stats",
		Short: "Summarise habit activity for a day",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if day == "" {
				day = types.Day(time.Now())
			}
			return withApp(cmd, func(ctx context.Context, a *app.App) error {
				st, err := a.Store.HabitStats(ctx, day)
				if err != nil {
					return err
				}
				return render(out(cmd), st, func(w io.Writer) error {
					return printFields(w,
						"habits", strconv.Itoa(st.TotalHabits),
						"active streaks", strconv.Itoa(st.ActiveStreaks),
						"logged "+day, strconv.Itoa(st.LogsToday),
						"completion", fmt.Sprintf("%.0f%%", st.CompletionRate),
					)
				})
			})
		},
	}
	cmd.Flags().StringVar(&day, "day", "", "calendar day YYYY-MM-DD (default: today)")
	return cmd
}

var weekdayNames = [...]string{"", "Mon", "Tue", "Wed", "Thu", "Fri", "Sat", "Sun"}

func scheduleLabel(s types.Schedule) string {
	if s.Frequency == types.FrequencyDaily && len(s.Days) == 7 {
		return "daily"
	}
	names := make([]string, 0, len(s.Days))
	for _, d := range s.Days {
		if d >= 1 && d <= 7 {
			names = append(names, weekdayNames[d])
		}
	}
	return s.Frequency + " " + strings.Join(names, ",")
}

func streakLabel(n int) string {
	if n == 0 {
		return styleMuted.Render("0")
	}
	return styleOK.Render(strconv.Itoa(n))
}
