package cli

import (
	"context"
	"fmt"
	"io"

	"github.com/spf13/cobra"

	"github.com/mesh-intelligence/cling/internal/app"
	"github.com/mesh-intelligence/cling/internal/migrate"
)

func newMigrateCmd() *cobra.Command {
	var statusOnly bool
	cmd := &cobra.Command{
		Use:   "migrate",
		Short: "Apply pending schema migrations",
		Long: "Apply every migration script not yet recorded in the ledger. Opening the\n" +
			"database always migrates first; --status lists the scripts and when each ran.",
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return withApp(cmd, func(ctx context.Context, a *app.App) error {
				status, err := a.Store.MigrationStatus(ctx)
				if err != nil {
					return &sysError{err}
				}
				if statusOnly {
					return render(out(cmd), status, func(w io.Writer) error {
						return printMigrationStatus(w, status)
					})
				}
				return render(out(cmd), map[string]int{"applied": len(status)}, func(w io.Writer) error {
					_, err := fmt.Fprintf(w, "%s (%d scripts applied)\n", styleOK.Render("schema up to date"), len(status))
					return err
				})
			})
		},
	}
	cmd.Flags().BoolVar(&statusOnly, "status", false, "list scripts and their ledger state")
	return cmd
}

func printMigrationStatus(w io.Writer, status []migrate.ScriptStatus) error {
	rows := make([][]string, 0, len(status))
	for _, s := range status {
		state, at := styleWarn.Render("pending"), "-"
		if s.Applied {
			state, at = styleOK.Render("applied"), formatWhen(s.ExecutedAt)
		}
		rows = append(rows, []string{s.Filename, state, at})
	}
	return printTable(w, []string{"SCRIPT", "STATE", "EXECUTED"}, rows)
}
