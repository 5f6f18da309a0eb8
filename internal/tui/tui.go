// Package tui is the terminal rendition of the list-items form.
package tui

import (
	"context"
	"errors"

	"spcrud-cli/internal/webpart"

	tea "github.com/charmbracelet/bubbletea"
	"go.uber.org/zap"
)

type Options struct {
	SiteURL   string
	ListTitle string
	Logger    *zap.Logger
	// LoadOnStart runs "Get all items" as soon as the form opens.
	LoadOnStart bool
}

// Run blocks until the user quits or ctx is done. In-flight requests are
// cancelled on quit.
func Run(ctx context.Context, ctl *webpart.Controller, opts Options) error {
	if ctl == nil {
		return errors.New("tui: nil controller")
	}
	applyColorProfilePreference()
	applyThemePreference()

	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	m := newFormModel(ctx, ctl, opts.SiteURL, opts.ListTitle, opts.Logger)
	m.loadOnStart = opts.LoadOnStart
	_, err := tea.NewProgram(m, tea.WithAltScreen(), tea.WithContext(ctx)).Run()
	if errors.Is(err, tea.ErrProgramKilled) && ctx.Err() != nil {
		return nil
	}
	return err
}
