package cli

import (
	"fmt"
	"strings"
	"time"

	"spcrud-cli/internal/emulator"
	"spcrud-cli/internal/store"

	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

func newServeCmd(app *App) *cobra.Command {
	var (
		addr      string
		dbPath    string
		seeds     []string
		seedItems []string
		authToken string
	)

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Run a local list-items API (emulator)",
		Long: strings.TrimSpace(`
Run a local server that answers the list-items REST API under
/_api/web/lists/getbytitle('<list>')/items.

Items live in memory unless --db names a SQLite file.
`),
		Example: strings.TrimSpace(`
# In-memory, with an empty "Tasks" list
spcrud serve --seed Tasks

# Persistent, with sample items
spcrud serve --db ./lists.db --seed Tasks --seed-item "Buy milk" --seed-item "Call Bob"
`),
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if app.cfg != nil {
				if !cmd.Flags().Changed("addr") {
					addr = app.cfg.Serve.Addr
				}
				if !cmd.Flags().Changed("db") {
					dbPath = app.cfg.Serve.DB
				}
			}
			ctx := cmd.Context()
			log := app.logger()

			var lists store.Lists
			backend := "memory"
			if strings.TrimSpace(dbPath) != "" {
				db, err := store.OpenSQLite(ctx, dbPath)
				if err != nil {
					return writeErr(cmd, err)
				}
				lists, backend = db, "sqlite"
			} else {
				lists = store.NewMemory()
			}
			defer func() { _ = lists.Close() }()

			for i, list := range seeds {
				titles := seedItems
				if i > 0 {
					titles = nil
				}
				if err := emulator.Seed(ctx, lists, list, titles...); err != nil {
					return writeErr(cmd, fmt.Errorf("seed %q: %w", list, err))
				}
			}

			srv, err := emulator.New(lists, emulator.Config{Token: authToken, Logger: log})
			if err != nil {
				return writeErr(cmd, err)
			}
			ln, err := listen(addr)
			if err != nil {
				return writeErr(cmd, err)
			}
			actualAddr := ln.Addr().String()
			site := "http://" + actualAddr

			_ = writeOut(cmd, app, map[string]any{
				"data": map[string]any{
					"addr":      actualAddr,
					"site":      site,
					"backend":   backend,
					"db":        dbPath,
					"lists":     seeds,
					"startedAt": time.Now().UTC().Format(time.RFC3339Nano),
				},
			})
			fmt.Fprintf(cmd.ErrOrStderr(), "spcrud emulator running at %s (backend=%s)\n", site, backend)
			log.Info("emulator started", zap.String("addr", actualAddr), zap.String("backend", backend))

			if err := serveUntilDone(ctx, ln, srv.Handler(), log); err != nil {
				return writeErr(cmd, err)
			}
			return nil
		},
	}

	cmd.Flags().StringVar(&addr, "addr", "127.0.0.1:8787", "Bind address (host:port or :port)")
	cmd.Flags().StringVar(&dbPath, "db", "", "SQLite file to keep lists in (default: in memory)")
	cmd.Flags().StringArrayVar(&seeds, "seed", nil, "Create this list if it does not exist (repeatable)")
	cmd.Flags().StringArrayVar(&seedItems, "seed-item", nil, "Item title added to the first --seed list when it is created (repeatable)")
	cmd.Flags().StringVar(&authToken, "auth-token", "", "Require this bearer token on every request")
	return cmd
}
