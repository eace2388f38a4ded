package cli

import (
	"context"
	"fmt"
	"io"
	"strconv"

	"github.com/spf13/cobra"

	"github.com/mesh-intelligence/cling/internal/app"
	"github.com/mesh-intelligence/cling/pkg/types"
)

func newListsCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "lists",
		Short: "Manage task lists",
	}
	cmd.AddCommand(newListsAddCmd())
	cmd.AddCommand(newListsListCmd())
	cmd.AddCommand(newListsRemoveCmd())
	return cmd
}

type listView struct {
	ID string `json:"id"`
	*types.List
}

func newListsAddCmd() *cobra.Command {
	var color string
	cmd := &cobra.Command{
		Use:   "add <name>",
		Short: "Create a list",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withApp(cmd, func(ctx context.Context, a *app.App) error {
				ws, err := ensureWorkspace(ctx, a.Store)
				if err != nil {
					return err
				}
				l, err := a.Store.CreateList(ctx, &types.List{WorkspaceID: ws.ID, Name: args[0], Color: color})
				if err != nil {
					return fmt.Errorf("create list: %w", err)
				}
				return render(out(cmd), listView{ID: l.ID, List: l}, func(w io.Writer) error {
					_, err := fmt.Fprintf(w, "created list %s %s\n", styleHeader.Render(l.Name), styleMuted.Render(l.ID))
					return err
				})
			})
		},
	}
	cmd.Flags().StringVarP(&color, "color", "c", "", "display color, e.g. #3b82f6")
	return cmd
}

func newListsListCmd() *cobra.Command {
	return &cobra.Command{
		Use:     "ls",
		Aliases: []string{"list"},
		Short:   "List the lists of the workspace",
		Args:    cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return withApp(cmd, func(ctx context.Context, a *app.App) error {
				ws, err := ensureWorkspace(ctx, a.Store)
				if err != nil {
					return err
				}
				lists, err := a.Store.ListLists(ctx, ws.ID)
				if err != nil {
					return err
				}
				views := make([]listView, 0, len(lists))
				for _, l := range lists {
					views = append(views, listView{ID: l.ID, List: l})
				}
				return render(out(cmd), views, func(w io.Writer) error {
					rows := make([][]string, 0, len(lists))
					for _, l := range lists {
						def := ""
						if l.IsDefault {
							def = styleOK.Render("default")
						}
						rows = append(rows, []string{l.ID, l.Name, l.Color, strconv.Itoa(l.Ord), def})
					}
					return printTable(w, []string{"ID", "NAME", "COLOR", "ORD", ""}, rows)
				})
			})
		},
	}
}

func newListsRemoveCmd() *cobra.Command {
	return &cobra.Command{
		Use:     "rm <name|id>",
		Aliases: []string{"delete"},
		Short:   "Delete a list, moving its tasks to the default list",
		Args:    cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withApp(cmd, func(ctx context.Context, a *app.App) error {
				ws, err := ensureWorkspace(ctx, a.Store)
				if err != nil {
					return err
				}
				l, err := findList(ctx, a.Store, ws.ID, args[0])
				if err != nil {
					return err
				}
				ok, err := a.Store.DeleteList(ctx, l.ID)
				if err != nil {
					return fmt.Errorf("delete list %s: %w", l.Name, err)
				}
				if !ok {
					return notFound(types.KindList, l.ID)
				}
				return render(out(cmd), map[string]string{"deleted": l.ID}, func(w io.Writer) error {
					_, err := fmt.Fprintf(w, "deleted list %s\n", l.Name)
					return err
				})
			})
		},
	}
}
