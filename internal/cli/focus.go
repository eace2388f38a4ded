package cli

import (
	"context"
	"fmt"
	"io"
	"strconv"
	"time"

	"github.com/spf13/cobra"

	"github.com/mesh-intelligence/cling/internal/app"
	"github.com/mesh-intelligence/cling/pkg/types"
)

// Default planned session lengths.
const (
	defaultFocusMinutes = 25
	defaultBreakMinutes = 5
)

func newFocusCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "focus",
		Short: "Run focus sessions",
	}
	cmd.AddCommand(newFocusStartCmd())
	cmd.AddCommand(newFocusStopCmd())
	cmd.AddCommand(newFocusStatsCmd())
	return cmd
}

type focusView struct {
	ID string `json:"id"`
	*types.FocusSession
}

func newFocusStartCmd() *cobra.Command {
	var (
		taskID  string
		minutes int
		isBreak bool
		noise   string
	)
	cmd := &cobra.Command{
		Use:   "start",
		Short: "Start a focus session or a break",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if !cmd.Flags().Changed("minutes") && isBreak {
				minutes = defaultBreakMinutes
			}
			return withApp(cmd, func(ctx context.Context, a *app.App) error {
				f, err := a.Store.StartFocus(ctx, &types.FocusSession{
					TaskID:      taskID,
					DurationSec: minutes * 60,
					IsBreak:     isBreak,
					NoiseType:   noise,
				})
				if err != nil {
					return fmt.Errorf("start focus: %w", err)
				}
				return render(out(cmd), focusView{ID: f.ID, FocusSession: f}, func(w io.Writer) error {
					kind := "focus session"
					if f.IsBreak {
						kind = "break"
					}
					_, err := fmt.Fprintf(w, "started %d minute %s %s\n", minutes, kind, styleMuted.Render(f.ID))
					return err
				})
			})
		},
	}
	cmd.Flags().StringVar(&taskID, "task", "", "task to focus on")
	cmd.Flags().IntVarP(&minutes, "minutes", "m", defaultFocusMinutes, "planned length in minutes")
	cmd.Flags().BoolVar(&isBreak, "break", false, "start a break instead of a work session")
	cmd.Flags().StringVar(&noise, "noise", "", "background noise type")
	return cmd
}

func newFocusStopCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "stop <id>",
		Short: "End a running session",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withApp(cmd, func(ctx context.Context, a *app.App) error {
				f, err := a.Store.StopFocus(ctx, args[0])
				if err != nil {
					return fmt.Errorf("stop focus %s: %w", args[0], err)
				}
				return render(out(cmd), focusView{ID: f.ID, FocusSession: f}, func(w io.Writer) error {
					elapsed := f.EndedAt.Sub(f.StartedAt).Round(time.Second)
					_, err := fmt.Fprintf(w, "stopped session %s after %s\n", f.ID, elapsed)
					return err
				})
			})
		},
	}
}

func newFocusStatsCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "stats",
		Short: "Summarise focus sessions",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return withApp(cmd, func(ctx context.Context, a *app.App) error {
				st, err := a.Store.FocusStats(ctx, time.Now())
				if err != nil {
					return err
				}
				return render(out(cmd), st, func(w io.Writer) error {
					return printFields(w,
						"sessions", strconv.Itoa(st.TotalSessions),
						"work sessions", strconv.Itoa(st.WorkSessions),
						"work time", (time.Duration(st.TotalWorkSec) * time.Second).String(),
						"break time", (time.Duration(st.TotalBreakSec) * time.Second).String(),
						"average work", (time.Duration(st.AvgWorkSec) * time.Second).Round(time.Second).String(),
						"today", fmt.Sprintf("%d sessions, %s", st.TodaySessions, time.Duration(st.TodayWorkSec)*time.Second),
					)
				})
			})
		},
	}
}
