package cli

import (
	"path/filepath"

	"spcrud-cli/internal/logging"
	"spcrud-cli/internal/tui"

	"github.com/spf13/cobra"
)

const tuiLogFile = "spcrud.log"

func newTUICmd(app *App) *cobra.Command {
	var load bool
	cmd := &cobra.Command{
		Use:   "tui",
		Short: "Open the interactive list-items form",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runTUI(cmd, app, load)
		},
	}
	cmd.Flags().BoolVar(&load, "load", false, "Run \"Get all items\" when the form opens")
	return cmd
}

// runTUI logs to <config-dir>/spcrud.log: the terminal belongs to the form.
func runTUI(cmd *cobra.Command, app *App, load bool) error {
	log, closeLog, err := logging.NewFile(filepath.Join(app.ConfigDir, tuiLogFile), app.LogLevel)
	if err != nil {
		return writeErr(cmd, err)
	}
	defer func() { _ = closeLog() }()

	c, err := app.client(log)
	if err != nil {
		return writeErr(cmd, err)
	}
	err = tui.Run(cmd.Context(), app.controller(c, log), tui.Options{
		SiteURL:     c.SiteURL(),
		ListTitle:   app.List,
		Logger:      log,
		LoadOnStart: load,
	})
	if err != nil {
		return writeErr(cmd, err)
	}
	return nil
}
