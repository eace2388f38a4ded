package cli

import (
	"context"
	"errors"
	"fmt"
	"io"

	"github.com/spf13/cobra"

	"github.com/mesh-intelligence/cling/internal/app"
	"github.com/mesh-intelligence/cling/internal/store"
	"github.com/mesh-intelligence/cling/pkg/types"
)

// Workspace created by init when the database has none.
const (
	initWorkspaceName = "My Workspace"
	initOwnerID       = "local-user"
	initListName      = "Inbox"
)

func newInitCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "init",
		Short: "Initialize cling storage",
		Long: "Create the configuration and data directories, apply migrations, load the\n" +
			"sample data into an empty database and make sure a workspace exists.",
		RunE: runInit,
	}
}

type initResult struct {
	ConfigDir string `json:"config_dir"`
	DataDir   string `json:"data_dir"`
	Database  string `json:"database"`
	Workspace string `json:"workspace"`
	Sync      string `json:"sync"`
}

func runInit(cmd *cobra.Command, args []string) error {
	return withApp(cmd, func(ctx context.Context, a *app.App) error {
		ws, err := ensureWorkspace(ctx, a.Store)
		if err != nil {
			return &sysError{fmt.Errorf("initialize workspace: %w", err)}
		}
		res := initResult{
			ConfigDir: a.ConfigDir,
			DataDir:   a.DataDir,
			Database:  a.Store.Path(),
			Workspace: ws.Name,
			Sync:      a.Sync.Status(),
		}
		return render(out(cmd), res, func(w io.Writer) error {
			fmt.Fprintln(w, styleOK.Render("cling initialized"))
			return printFields(w,
				"config", res.ConfigDir,
				"database", res.Database,
				"workspace", res.Workspace,
				"sync", res.Sync,
			)
		})
	})
}

// ensureWorkspace returns the default workspace, creating one with an
// Inbox list when the database has none.
func ensureWorkspace(ctx context.Context, s *store.Store) (*types.Workspace, error) {
	ws, err := s.DefaultWorkspace(ctx)
	if err == nil {
		return ws, nil
	}
	if !errors.Is(err, types.ErrNotFound) {
		return nil, err
	}
	err = s.InTx(ctx, func(tx *store.Store) error {
		w, err := tx.CreateWorkspace(ctx, initWorkspaceName, initOwnerID)
		if err != nil {
			return err
		}
		if _, err := tx.CreateList(ctx, &types.List{WorkspaceID: w.ID, Name: initListName}); err != nil {
			return err
		}
		ws = w
		return nil
	})
	return ws, err
}
