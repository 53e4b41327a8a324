package main

import (
	"context"
	"fmt"

	"github.com/desertthunder/musicblah/internal/server"
	"github.com/desertthunder/musicblah/internal/session"
	"github.com/desertthunder/musicblah/internal/shared"
	"github.com/desertthunder/musicblah/internal/tasks"
	"github.com/desertthunder/musicblah/internal/web"
	"github.com/urfave/cli/v3"
)

// Serve runs the HTTP API until the context is cancelled.
//
// When polling is enabled the now-playing poller runs alongside the server and stops with it.
func (r *Runner) Serve(ctx context.Context, cmd *cli.Command) error {
	if r.services.Catalog == nil || r.services.Player == nil {
		return fmt.Errorf("%w: Spotify client_id and client_secret must be set", shared.ErrMissingCredentials)
	}
	if r.services.Lyrics == nil || r.services.Recommender == nil {
		return fmt.Errorf("%w: lyrics and recommendation services not initialized", shared.ErrServiceUnavailable)
	}

	sessions, err := session.NewManager(r.config.Auth)
	if err != nil {
		return err
	}

	db, err := r.database()
	if err != nil {
		return err
	}

	app := web.New(db, r.config, r.services, sessions, shared.WithLogger(r.logger, "component", "web"))

	if r.config.Polling.Enabled && !cmd.Bool("no-poll") {
		interval := r.config.Polling.Interval.Duration
		r.logger.Info("starting now-playing poller", "interval", interval)
		go func() {
			if err := app.Engine().Run(ctx, interval, nil); err != nil {
				r.logger.Error("now-playing poller stopped", "error", err)
			}
		}()
	}

	return server.Serve(ctx, r.config.Server.Addr(), app.Handler(), r.logger)
}

// Poll runs one polling round, or keeps polling with --watch, printing progress as it goes.
func (r *Runner) Poll(ctx context.Context, cmd *cli.Command) error {
	engine, err := r.engine()
	if err != nil {
		return err
	}

	useJSON := cmd.Bool("json")
	progress := make(chan tasks.ProgressUpdate, 50)
	done := make(chan struct{})
	go func() {
		defer close(done)
		for update := range progress {
			if !useJSON {
				r.writePlain("%s\n", update.Message)
			}
		}
	}()

	var result *tasks.RoundResult
	if cmd.Bool("watch") {
		interval := cmd.Duration("interval")
		if interval <= 0 {
			interval = r.config.Polling.Interval.Duration
		}
		r.logger.Info("polling until interrupted", "interval", interval)
		err = engine.Run(ctx, interval, progress)
	} else {
		result, err = engine.PollAll(ctx, progress)
	}

	close(progress)
	<-done

	if err != nil {
		return fmt.Errorf("polling failed: %w", err)
	}
	if useJSON && result != nil {
		return r.writeJSON(result, true)
	}
	return nil
}
