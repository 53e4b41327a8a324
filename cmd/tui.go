package main

import (
	"context"
	"fmt"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/desertthunder/musicblah/internal/repositories"
	"github.com/desertthunder/musicblah/internal/shared"
	"github.com/desertthunder/musicblah/internal/ui"
	"github.com/urfave/cli/v3"
)

// TUI launches the now-playing dashboard for a user's friends.
func (r *Runner) TUI(ctx context.Context, cmd *cli.Command) error {
	catalog, err := r.catalog()
	if err != nil {
		return err
	}

	// Redirect logs to file to avoid interfering with TUI rendering
	fileLogger, logFile, err := shared.NewFileLogger("./tmp/musicblah-tui.log")
	if err != nil {
		return fmt.Errorf("failed to create file logger: %w", err)
	}
	defer logFile.Close()
	r.SetLogger(fileLogger)

	engine, err := r.engine()
	if err != nil {
		return err
	}

	db, err := r.database()
	if err != nil {
		return err
	}
	user, err := repositories.NewUserRepository(db).GetByUsername(cmd.String("user"))
	if err != nil {
		return fmt.Errorf("failed to find user %s: %w", cmd.String("user"), err)
	}

	interval := cmd.Duration("refresh")
	if interval <= 0 {
		interval = r.config.Polling.FriendsInterval.Duration
	}

	model := ui.NewModel(ctx, engine, catalog, user.ID(), r.config.Polling.FriendsLimit, interval)
	p := tea.NewProgram(model, tea.WithContext(ctx), tea.WithAltScreen())

	if _, err := p.Run(); err != nil {
		return fmt.Errorf("error running TUI: %w", err)
	}

	return nil
}
