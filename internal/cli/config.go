package cli

import (
	"spcrud-cli/internal/config"

	"github.com/spf13/cobra"
)

func newConfigCmd(app *App) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "config",
		Short: "Show and edit the settings file",
	}
	cmd.AddCommand(&cobra.Command{
		Use:   "show",
		Short: "Show the effective settings (file, env and flags merged)",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return writeOut(cmd, app, map[string]any{"data": effectiveSettings(app)})
		},
	})
	cmd.AddCommand(&cobra.Command{
		Use:   "path",
		Short: "Print the settings file location",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return writeOut(cmd, app, map[string]any{"data": map[string]any{
				"dir":  app.ConfigDir,
				"path": config.Path(app.ConfigDir),
			}})
		},
	})
	cmd.AddCommand(&cobra.Command{
		Use:   "set <key> <value>",
		Short: "Write one setting to the settings file",
		Long:  "Known keys: site_url, list, token, target, update_match, delete_match, timeout, format, log.level, serve.addr, serve.db, web.addr.",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			key, err := config.NormalizeKey(args[0])
			if err != nil {
				return writeErr(cmd, invalidFlagError{err: err})
			}
			if err := config.Set(app.ConfigDir, key, args[1]); err != nil {
				return writeErr(cmd, invalidFlagError{err: err})
			}
			return writeOut(cmd, app, map[string]any{"data": map[string]any{
				"key":   key,
				"value": maskSecret(key, args[1]),
				"path":  config.Path(app.ConfigDir),
			}})
		},
	})
	return cmd
}

func effectiveSettings(app *App) map[string]any {
	out := map[string]any{
		"site_url":     app.SiteURL,
		"list":         app.List,
		"token":        maskSecret("token", app.Token),
		"target":       app.Target,
		"update_match": app.UpdateMatch,
		"delete_match": app.DeleteMatch,
		"format":       app.Format,
		"log.level":    app.LogLevel,
		"config_dir":   app.ConfigDir,
	}
	if c := app.cfg; c != nil {
		out["timeout"] = c.Timeout.String()
		out["serve.addr"] = c.Serve.Addr
		out["serve.db"] = c.Serve.DB
		out["web.addr"] = c.Web.Addr
	}
	return out
}

func maskSecret(key, value string) string {
	if key != "token" || value == "" {
		return value
	}
	return "********"
}
