// Package cli implements the cling command-line interface.
package cli

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"

	"github.com/spf13/cobra"

	"github.com/mesh-intelligence/cling/internal/app"
)

// Exit codes.
const (
	exitSuccess   = 0
	exitUserError = 1
	exitSysError  = 2
)

// rootFlags holds global flag values accessible to all subcommands.
type rootFlags struct {
	configDir string
	dataDir   string
	jsonMode  bool
}

var flags rootFlags

// NewRootCmd creates the top-level "cling" command with global flags
// and all subcommands registered.
func NewRootCmd() *cobra.Command {
	root := &cobra.Command{
		Use:   "cling",
		Short: "Local-first tasks, habits and focus sessions",
		Long: "cling keeps tasks, lists, habits and focus sessions in a local SQLite\n" +
			"database and synchronises them with a remote authority when one is configured.",
		// Do not print usage on errors returned by subcommands.
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	root.PersistentFlags().StringVar(&flags.configDir, "config-dir", "", "configuration directory (default: platform config dir)")
	root.PersistentFlags().StringVar(&flags.dataDir, "data-dir", "", "data directory (default: platform data dir)")
	root.PersistentFlags().BoolVar(&flags.jsonMode, "json", false, "output in JSON format")

	root.AddCommand(newVersionCmd())
	root.AddCommand(newInitCmd())
	root.AddCommand(newMigrateCmd())
	root.AddCommand(newTaskCmd())
	root.AddCommand(newListsCmd())
	root.AddCommand(newHabitCmd())
	root.AddCommand(newFocusCmd())
	root.AddCommand(newSyncCmd())
	root.AddCommand(newRemoteCmd())

	return root
}

// Execute runs the root command and exits with the appropriate code.
func Execute() {
	root := NewRootCmd()
	err := root.Execute()
	if err == nil {
		os.Exit(exitSuccess)
	}
	fmt.Fprintln(os.Stderr, "Error:", err)
	os.Exit(exitCode(err))
}

// sysError marks failures of the environment rather than of the input:
// unreadable config, a database that cannot be opened or migrated.
type sysError struct{ err error }

func (e *sysError) Error() string { return e.err.Error() }
func (e *sysError) Unwrap() error { return e.err }

func exitCode(err error) int {
	var se *sysError
	if errors.As(err, &se) {
		return exitSysError
	}
	return exitUserError
}

// openApp opens the store for a command. The caller must Close the app.
func openApp(ctx context.Context, cmd *cobra.Command) (*app.App, error) {
	a, err := app.Open(ctx, app.Options{
		ConfigDir: flags.configDir,
		DataDir:   flags.dataDir,
		LogOutput: cmd.ErrOrStderr(),
	})
	if err != nil {
		return nil, &sysError{err}
	}
	return a, nil
}

// withApp runs fn against an opened app and closes it afterwards.
func withApp(cmd *cobra.Command, fn func(ctx context.Context, a *app.App) error) error {
	ctx := cmd.Context()
	if ctx == nil {
		ctx = context.Background()
	}
	a, err := openApp(ctx, cmd)
	if err != nil {
		return err
	}
	defer a.Close()
	return fn(ctx, a)
}

func out(cmd *cobra.Command) io.Writer { return cmd.OutOrStdout() }
