package main

import (
	"context"
	"fmt"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/desertthunder/aura/internal/shared"
	"github.com/desertthunder/aura/internal/tasks"
	"github.com/desertthunder/aura/internal/ui"
	"github.com/urfave/cli/v3"
)

// TUI launches the interactive terminal UI for browsing lists.
func (r *Runner) TUI(ctx context.Context, cmd *cli.Command) error {
	owner, err := r.owner(cmd)
	if err != nil {
		return err
	}

	// Redirect logs to file to avoid interfering with TUI rendering
	fileLogger, err := shared.NewFileLogger("./tmp/aura-tui.log")
	if err != nil {
		return fmt.Errorf("failed to create file logger: %w", err)
	}
	r.SetLogger(fileLogger)

	if err := r.open(); err != nil {
		return err
	}

	model := ui.NewModel(ctx, r.engine, owner, tasks.BulkExportOpts{OutputDir: cmd.String("export-dir")})
	p := tea.NewProgram(model)

	if _, err := p.Run(); err != nil {
		return fmt.Errorf("error running TUI: %w", err)
	}

	return nil
}
