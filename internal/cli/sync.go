package cli

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/signal"
	"strconv"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/mesh-intelligence/cling/internal/app"
	"github.com/mesh-intelligence/cling/internal/syncer"
)

var errSyncDisabled = errors.New("sync disabled: set CLING_REMOTE_URL and CLING_REMOTE_KEY")

func newSyncCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "sync",
		Short: "Synchronise with the remote authority",
	}
	cmd.AddCommand(newSyncStatusCmd())
	cmd.AddCommand(newSyncPushCmd())
	cmd.AddCommand(newSyncPullCmd())
	cmd.AddCommand(newSyncRunCmd())
	cmd.AddCommand(newSyncDaemonCmd())
	return cmd
}

func newSyncStatusCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "status",
		Short: "Show pending changes and the last sync times",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return withApp(cmd, func(ctx context.Context, a *app.App) error {
				info, err := a.Sync.Info(ctx)
				if err != nil {
					return err
				}
				return render(out(cmd), info, func(w io.Writer) error {
					status := styleOK.Render(info.Status)
					if !a.Sync.Enabled() {
						status = styleWarn.Render(info.Status)
					}
					return printFields(w,
						"sync", status,
						"remote", orDash(a.Remote.URL),
						"pending", strconv.Itoa(info.Dirty),
						"watermark", formatWhen(info.Watermark),
						"last push", formatWhen(info.LastPush),
						"last pull", formatWhen(info.LastPull),
					)
				})
			})
		},
	}
}

// withSync is withApp for commands that need a configured remote.
func withSync(cmd *cobra.Command, fn func(ctx context.Context, a *app.App) error) error {
	return withApp(cmd, func(ctx context.Context, a *app.App) error {
		if !a.Sync.Enabled() {
			return errSyncDisabled
		}
		return fn(ctx, a)
	})
}

func newSyncPushCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "push",
		Short: "Push local changes",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return withSync(cmd, func(ctx context.Context, a *app.App) error {
				rep, err := a.Sync.Push(ctx)
				if perr := render(out(cmd), rep, func(w io.Writer) error { return printPush(w, rep) }); perr != nil {
					return perr
				}
				return err
			})
		},
	}
}

func newSyncPullCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "pull",
		Short: "Pull remote changes",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return withSync(cmd, func(ctx context.Context, a *app.App) error {
				rep, err := a.Sync.Pull(ctx)
				if perr := render(out(cmd), rep, func(w io.Writer) error { return printPull(w, rep) }); perr != nil {
					return perr
				}
				return err
			})
		},
	}
}

func newSyncRunCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "run",
		Short: "Run one pull-then-push cycle",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return withSync(cmd, func(ctx context.Context, a *app.App) error {
				rep, err := a.Sync.Cycle(ctx)
				if perr := render(out(cmd), rep, func(w io.Writer) error {
					if err := printPull(w, rep.Pull); err != nil {
						return err
					}
					return printPush(w, rep.Push)
				}); perr != nil {
					return perr
				}
				return err
			})
		},
	}
}

func newSyncDaemonCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "daemon",
		Short: "Sync in the background until interrupted",
		Long: "Run sync cycles on the configured schedule, shortly after local changes and\n" +
			"when another process writes to the database. Stops on SIGINT or SIGTERM.",
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return withSync(cmd, func(ctx context.Context, a *app.App) error {
				ctx, stop := signal.NotifyContext(ctx, os.Interrupt, syscall.SIGTERM)
				defer stop()

				r := a.NewRunner(syncer.OnCycle(func(rep syncer.Report, err error) {
					if err != nil {
						return
					}
					a.Logger.Info("sync cycle",
						"pulled", rep.Pull.Received, "pushed", rep.Push.Pushed,
						"rejected", rep.Push.Rejected, "failed", rep.Pull.Failed+rep.Push.Failed)
				}))
				r.Trigger()
				if err := r.Run(ctx); err != nil {
					return fmt.Errorf("sync daemon: %w", err)
				}
				return nil
			})
		},
	}
}

func printPush(w io.Writer, rep syncer.PushReport) error {
	_, err := fmt.Fprintf(w, "%s %d pushed, %d rejected, %d stale, %d failed (of %d)\n",
		styleHeader.Render("push:"), rep.Pushed, rep.Rejected, rep.Stale, rep.Failed, rep.Attempted)
	return err
}

func printPull(w io.Writer, rep syncer.PullReport) error {
	_, err := fmt.Fprintf(w, "%s %d received, %d inserted, %d updated, %d kept local, %d failed, watermark %s\n",
		styleHeader.Render("pull:"), rep.Received, rep.Inserted, rep.Updated, rep.KeptLocal, rep.Failed, formatWhen(rep.Watermark))
	return err
}
