package tui

import (
	"context"
	"errors"
	"log/slog"

	"storevec/internal/liststore"
	"storevec/internal/loader"

	tea "github.com/charmbracelet/bubbletea"
)

type Options struct {
	Resource      *loader.Resource
	StrictDeletes bool
	Logger        *slog.Logger
}

// Run starts the interactive list. With a blocking resource nothing is drawn
// until the initial items have loaded; otherwise the screen shows a spinner
// while they load.
func Run(ctx context.Context, opts Options) error {
	if opts.Resource == nil {
		return errors.New("tui: resource is nil")
	}
	applyColorProfilePreference()
	applyThemePreference()

	store := liststore.New(liststore.WithStrictDeletes(opts.StrictDeletes))
	m := newAppModel(opts.Resource, store, opts.Logger)

	opts.Resource.Start()
	if opts.Resource.Blocking() {
		items, err := opts.Resource.Get(ctx)
		if ctx.Err() != nil {
			return ctx.Err()
		}
		m.applyLoad(items, err)
	}

	_, err := tea.NewProgram(m, tea.WithAltScreen(), tea.WithContext(ctx)).Run()
	if errors.Is(err, tea.ErrProgramKilled) && ctx.Err() != nil {
		return nil
	}
	return err
}
