package system

import (
	"fmt"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/julianstephens/nutrilog/internal/backup"
	"github.com/julianstephens/nutrilog/internal/cli"
	"github.com/julianstephens/nutrilog/internal/tui"
)

type TuiCmd struct{}

func (c *TuiCmd) Run(ctx *cli.Context) error {
	meal, err := ctx.ResolveMeal("")
	if err != nil {
		return err
	}

	// Snapshot on startup, unless the server owns the database
	if ctx.EnsureWritable() == nil {
		ctx.PerformAutomaticBackup(backup.ReasonTUI)
	}

	p := tea.NewProgram(tui.NewModel(tui.Options{
		Store:       ctx.Store,
		DefaultMeal: meal,
		Writable:    ctx.EnsureWritable,
	}), tea.WithAltScreen())
	if _, err := p.Run(); err != nil {
		return fmt.Errorf("alas, there's been an error: %w", err)
	}
	return nil
}
