package cli

import (
	"errors"
	"strconv"
	"strings"

	"spcrud-cli/internal/model"
	"spcrud-cli/internal/splist"
	"spcrud-cli/internal/webpart"

	"github.com/spf13/cobra"
)

type itemOut struct {
	ID    int    `json:"Id"`
	Title string `json:"Title"`
	ETag  string `json:"ETag,omitempty"`
}

func versionOut(v model.ItemVersion) itemOut {
	return itemOut{ID: v.Item.ID, Title: v.Item.Title, ETag: v.ETag}
}

func newItemsCmd(app *App) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "items",
		Short: "Read and write list items",
	}
	cmd.AddCommand(newItemsListCmd(app))
	cmd.AddCommand(newItemsLatestCmd(app))
	cmd.AddCommand(newItemsGetCmd(app))
	cmd.AddCommand(newItemsCreateCmd(app))
	cmd.AddCommand(newItemsUpdateCmd(app))
	cmd.AddCommand(newItemsDeleteCmd(app))
	return cmd
}

// itemsTarget builds the client for the configured site and returns the list title.
func itemsTarget(app *App) (*splist.Client, string, error) {
	list, err := app.listTitle()
	if err != nil {
		return nil, "", err
	}
	c, err := app.client(app.logger())
	if err != nil {
		return nil, "", err
	}
	return c, list, nil
}

func parseItemID(arg string) (int, error) {
	id, err := strconv.Atoi(strings.TrimSpace(arg))
	if err != nil || id <= 0 {
		return 0, invalidIDError{arg: arg}
	}
	return id, nil
}

// selectorFor is the item an update/delete goes to: the id argument when
// given, otherwise the most recently created item.
func selectorFor(args []string) (splist.Selector, error) {
	if len(args) == 0 {
		return splist.Latest(), nil
	}
	id, err := parseItemID(args[0])
	if err != nil {
		return splist.Selector{}, err
	}
	return splist.ByID(id), nil
}

func newItemsListCmd(app *App) *cobra.Command {
	return &cobra.Command{
		Use:   "list",
		Short: "List every item (Id and Title)",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			c, list, err := itemsTarget(app)
			if err != nil {
				return writeErr(cmd, err)
			}
			items, err := c.ListItems(cmd.Context(), list)
			if errors.Is(err, splist.ErrEmptyList) {
				items, err = []model.ListItem{}, nil
			}
			if err != nil {
				return writeErr(cmd, err)
			}
			return writeOut(cmd, app, map[string]any{"data": items})
		},
	}
}

func newItemsLatestCmd(app *App) *cobra.Command {
	return &cobra.Command{
		Use:   "latest",
		Short: "Show the most recently created item",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			c, list, err := itemsTarget(app)
			if err != nil {
				return writeErr(cmd, err)
			}
			it, err := c.LatestItem(cmd.Context(), list)
			if err != nil {
				return writeErr(cmd, err)
			}
			return writeOut(cmd, app, map[string]any{"data": it})
		},
	}
}

func newItemsGetCmd(app *App) *cobra.Command {
	return &cobra.Command{
		Use:   "get <id>",
		Short: "Show one item with its ETag",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := parseItemID(args[0])
			if err != nil {
				return writeErr(cmd, err)
			}
			c, list, err := itemsTarget(app)
			if err != nil {
				return writeErr(cmd, err)
			}
			v, err := c.GetItem(cmd.Context(), list, id)
			if err != nil {
				return writeErr(cmd, err)
			}
			return writeOut(cmd, app, map[string]any{"data": versionOut(v)})
		},
	}
}

func newItemsCreateCmd(app *App) *cobra.Command {
	var title string
	cmd := &cobra.Command{
		Use:   "create",
		Short: "Create an item",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			c, list, err := itemsTarget(app)
			if err != nil {
				return writeErr(cmd, err)
			}
			if strings.TrimSpace(title) == "" {
				title = webpart.DefaultCreateTitle
			}
			it, err := c.CreateItem(cmd.Context(), list, title)
			if err != nil {
				return writeErr(cmd, err)
			}
			return writeOut(cmd, app, map[string]any{"data": it})
		},
	}
	cmd.Flags().StringVar(&title, "title", "", "Item title (default \""+webpart.DefaultCreateTitle+"\")")
	return cmd
}

func newItemsUpdateCmd(app *App) *cobra.Command {
	var title string
	cmd := &cobra.Command{
		Use:   "update [<id>]",
		Short: "Overwrite an item's title (default: the latest item)",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			sel, err := selectorFor(args)
			if err != nil {
				return writeErr(cmd, err)
			}
			c, list, err := itemsTarget(app)
			if err != nil {
				return writeErr(cmd, err)
			}
			v, err := c.ResolveTargetItem(cmd.Context(), list, sel)
			if err != nil {
				return writeErr(cmd, err)
			}
			if strings.TrimSpace(title) == "" {
				title = webpart.DefaultUpdateTitle
			}
			if err := c.UpdateItem(cmd.Context(), list, v.Item.ID, title, app.policy().Update.IfMatch(v)); err != nil {
				return writeErr(cmd, err)
			}
			return writeOut(cmd, app, map[string]any{"data": itemOut{ID: v.Item.ID, Title: title}})
		},
	}
	cmd.Flags().StringVar(&title, "title", "", "New title (default \""+webpart.DefaultUpdateTitle+"\")")
	return cmd
}

func newItemsDeleteCmd(app *App) *cobra.Command {
	return &cobra.Command{
		Use:   "delete [<id>]",
		Short: "Delete an item (default: the latest item)",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			sel, err := selectorFor(args)
			if err != nil {
				return writeErr(cmd, err)
			}
			c, list, err := itemsTarget(app)
			if err != nil {
				return writeErr(cmd, err)
			}
			v, err := c.ResolveTargetItem(cmd.Context(), list, sel)
			if err != nil {
				return writeErr(cmd, err)
			}
			if err := c.DeleteItem(cmd.Context(), list, v.Item.ID, app.policy().Delete.IfMatch(v)); err != nil {
				return writeErr(cmd, err)
			}
			return writeOut(cmd, app, map[string]any{"data": map[string]any{"Id": v.Item.ID, "deleted": true}})
		},
	}
}
