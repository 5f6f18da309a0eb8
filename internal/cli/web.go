package cli

import (
	"fmt"
	"strings"
	"time"

	"spcrud-cli/internal/web"

	"github.com/spf13/cobra"
)

func newWebCmd(app *App) *cobra.Command {
	var addr string

	cmd := &cobra.Command{
		Use:   "web",
		Short: "Serve the list-items form as a web page",
		Long: strings.TrimSpace(`
Serve the list-items form from a local HTTP server.

Server-rendered HTML, no JavaScript. Every browser gets its own form state,
kept in memory for as long as the server runs.
`),
		Example: strings.TrimSpace(`
# Serve the form on localhost
spcrud web --addr 127.0.0.1:8788

# Against the local emulator
spcrud serve --seed Tasks &
spcrud --site http://127.0.0.1:8787 --list Tasks web
`),
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if !cmd.Flags().Changed("addr") && app.cfg != nil {
				addr = app.cfg.Web.Addr
			}
			log := app.logger()
			c, err := app.client(log)
			if err != nil {
				return writeErr(cmd, err)
			}
			srv, err := web.NewServer(app.controller(c, log), web.ServerConfig{
				Addr:      addr,
				SiteURL:   c.SiteURL(),
				ListTitle: app.List,
				Logger:    log,
			})
			if err != nil {
				return writeErr(cmd, err)
			}

			ln, err := listen(addr)
			if err != nil {
				return writeErr(cmd, err)
			}
			actualAddr := ln.Addr().String()
			url := "http://" + actualAddr + "/"

			_ = writeOut(cmd, app, map[string]any{
				"data": map[string]any{
					"addr":      actualAddr,
					"url":       url,
					"site":      c.SiteURL(),
					"list":      app.List,
					"startedAt": time.Now().UTC().Format(time.RFC3339Nano),
				},
			})
			fmt.Fprintf(cmd.ErrOrStderr(), "spcrud web running at %s (site=%s)\n", url, c.SiteURL())

			if err := serveUntilDone(cmd.Context(), ln, srv.Handler(), log); err != nil {
				return writeErr(cmd, err)
			}
			return nil
		},
	}

	cmd.Flags().StringVar(&addr, "addr", "127.0.0.1:8788", "Bind address (host:port or :port)")
	return cmd
}
