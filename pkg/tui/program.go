package tui

import (
	"context"
	"errors"
	"time"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/dd0wney/cluso-graphview/pkg/source"
)

// LoadCmd loads the source off the update loop and reports the result as a
// LoadedMsg
func LoadCmd(loader *source.Loader) tea.Cmd {
	return func() tea.Msg {
		res, err := loader.Load(context.Background())
		return LoadedMsg{Result: res, Err: err}
	}
}

// Run starts the terminal program and blocks until the user quits or ctx is
// done. With refresh > 0 and a loader the source is reloaded periodically.
func Run(ctx context.Context, opts Options, refresh time.Duration, programOpts ...tea.ProgramOption) error {
	m := New(opts)

	programOpts = append([]tea.ProgramOption{
		tea.WithAltScreen(),
		tea.WithMouseAllMotion(),
		tea.WithContext(ctx),
	}, programOpts...)
	p := tea.NewProgram(m, programOpts...)

	watchCtx, cancel := context.WithCancel(ctx)
	defer cancel()
	if opts.Loader != nil && refresh > 0 {
		go opts.Loader.Watch(watchCtx, refresh, func(res *source.Result) {
			p.Send(LoadedMsg{Result: res})
		})
	}

	_, err := p.Run()
	if errors.Is(err, tea.ErrProgramKilled) && ctx.Err() != nil {
		return nil
	}
	return err
}
