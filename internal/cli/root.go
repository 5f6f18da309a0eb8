package cli

import (
	"errors"
	"fmt"
	"io"
	"strings"

	"spcrud-cli/internal/config"
	"spcrud-cli/internal/format"
	"spcrud-cli/internal/logging"
	"spcrud-cli/internal/model"
	"spcrud-cli/internal/splist"
	"spcrud-cli/internal/webpart"

	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

// App holds the persistent flags and, after PersistentPreRunE, the merged
// settings (flags over SPCRUD_* env over config.yaml over defaults).
type App struct {
	ConfigDir   string
	SiteURL     string
	List        string
	Token       string
	Target      string
	UpdateMatch string
	DeleteMatch string
	Format      string
	PrettyJSON  bool
	LogLevel    string

	cfg *config.Config
	log *zap.Logger
}

func NewRootCmd() *cobra.Command {
	app := &App{}

	cmd := &cobra.Command{
		Use:           "spcrud",
		Short:         "Create, read, update and delete the items of a list",
		SilenceUsage:  true,
		SilenceErrors: true,
		Example: strings.TrimSpace(`
  # Open the interactive form
  spcrud --site https://contoso.example/sites/team --list Tasks

  # Scriptable commands
  spcrud items list
  spcrud items create --title "Buy milk"

  # Run a local list-items API to try things against
  spcrud serve --seed Tasks
`),
		RunE: func(cmd *cobra.Command, args []string) error {
			// No subcommand => interactive form.
			if len(args) == 0 {
				return runTUI(cmd, app, false)
			}
			return cmd.Help()
		},
	}

	cmd.PersistentPreRunE = func(cmd *cobra.Command, args []string) error {
		if err := app.resolve(cmd); err != nil {
			return writeErr(cmd, err)
		}
		return nil
	}

	pf := cmd.PersistentFlags()
	pf.StringVar(&app.ConfigDir, "config-dir", "", "Config directory (default $SPCRUD_CONFIG_DIR or ~/.spcrud)")
	pf.StringVar(&app.SiteURL, "site", "", "Site URL, e.g. https://contoso.example/sites/team")
	pf.StringVar(&app.List, "list", "", "List title")
	pf.StringVar(&app.Token, "token", "", "Bearer token sent with every request")
	pf.StringVar(&app.Target, "target", "", "Item to operate on without an explicit choice (selected|latest)")
	pf.StringVar(&app.UpdateMatch, "update-match", "", "IF-MATCH policy for updates (wildcard|etag)")
	pf.StringVar(&app.DeleteMatch, "delete-match", "", "IF-MATCH policy for deletes (wildcard|etag)")
	pf.StringVar(&app.Format, "format", "", "Output format (json|edn|text)")
	pf.BoolVar(&app.PrettyJSON, "pretty", false, "Pretty-print output")
	pf.StringVar(&app.LogLevel, "log-level", "", "Log level on stderr (debug|info|warn|error)")

	cmd.AddCommand(newItemsCmd(app))
	cmd.AddCommand(newTUICmd(app))
	cmd.AddCommand(newWebCmd(app))
	cmd.AddCommand(newServeCmd(app))
	cmd.AddCommand(newConfigCmd(app))
	cmd.AddCommand(newDocsCmd(app))

	return cmd
}

// resolve loads the config layer and fills every unset flag from it.
func (app *App) resolve(cmd *cobra.Command) error {
	if app.ConfigDir == "" {
		d, err := config.Dir()
		if err != nil {
			return err
		}
		app.ConfigDir = d
	}
	cfg, err := config.Load(app.ConfigDir)
	if err != nil {
		return err
	}

	flags := cmd.Flags()
	pick := func(name string, dst *string, fromConfig string) {
		if !flags.Changed(name) {
			*dst = fromConfig
		}
	}
	pick("site", &app.SiteURL, cfg.SiteURL)
	pick("list", &app.List, cfg.List)
	pick("token", &app.Token, cfg.Token)
	pick("target", &app.Target, cfg.Target)
	pick("update-match", &app.UpdateMatch, cfg.UpdateMatch)
	pick("delete-match", &app.DeleteMatch, cfg.DeleteMatch)
	pick("format", &app.Format, cfg.Format)
	pick("log-level", &app.LogLevel, cfg.Log.Level)

	cfg.SiteURL, cfg.List, cfg.Token = app.SiteURL, app.List, app.Token
	cfg.Target, cfg.UpdateMatch, cfg.DeleteMatch = app.Target, app.UpdateMatch, app.DeleteMatch
	cfg.Format, cfg.Log.Level = app.Format, app.LogLevel
	if err := cfg.Validate(); err != nil {
		return invalidFlagError{err: err}
	}
	if !format.Valid(app.Format) {
		return invalidFlagError{err: fmt.Errorf("invalid --format %q (expected json|edn|text)", app.Format)}
	}
	app.cfg = cfg

	log, err := logging.New(cmd.ErrOrStderr(), app.LogLevel)
	if err != nil {
		return invalidFlagError{err: err}
	}
	app.log = log
	return nil
}

func (app *App) logger() *zap.Logger {
	if app.log == nil {
		return zap.NewNop()
	}
	return app.log
}

func (app *App) client(log *zap.Logger) (*splist.Client, error) {
	site := strings.TrimSpace(app.SiteURL)
	if site == "" {
		return nil, missingSettingError{flag: "--site", key: "site_url", env: "SPCRUD_SITE_URL"}
	}
	opts := []splist.Option{splist.WithLogger(log)}
	if app.Token != "" {
		opts = append(opts, splist.WithToken(app.Token))
	}
	if app.cfg != nil && app.cfg.Timeout > 0 {
		opts = append(opts, splist.WithTimeout(app.cfg.Timeout))
	}
	return splist.New(site, opts...)
}

func (app *App) listTitle() (string, error) {
	list := strings.TrimSpace(app.List)
	if list == "" {
		return "", missingSettingError{flag: "--list", key: "list", env: "SPCRUD_LIST"}
	}
	return list, nil
}

func (app *App) targetMode() model.TargetMode {
	if app.cfg == nil {
		return model.TargetSelected
	}
	return app.cfg.TargetMode()
}

func (app *App) policy() model.ConcurrencyPolicy {
	if app.cfg == nil {
		return model.DefaultConcurrencyPolicy()
	}
	p, err := app.cfg.Policy()
	if err != nil {
		return model.DefaultConcurrencyPolicy()
	}
	return p
}

func (app *App) controller(c webpart.Client, log *zap.Logger) *webpart.Controller {
	return webpart.NewController(c,
		webpart.WithTargetMode(app.targetMode()),
		webpart.WithConcurrencyPolicy(app.policy()),
		webpart.WithLogger(log),
	)
}

func writeOut(cmd *cobra.Command, app *App, v any) error {
	return format.Write(cmd.OutOrStdout(), v, app.Format, app.PrettyJSON)
}

func writeErr(cmd *cobra.Command, err error) error {
	fmt.Fprintln(cmd.ErrOrStderr(), err.Error())
	return reportedError{err: err}
}

// PrintError writes err to w unless a command already did.
func PrintError(w io.Writer, err error) {
	var rep reportedError
	if err == nil || errors.As(err, &rep) {
		return
	}
	fmt.Fprintln(w, err.Error())
}
