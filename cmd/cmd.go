// submodule cmd contains command definitions
package main

import "github.com/urfave/cli/v3"

func jsonFlag() cli.Flag {
	return &cli.BoolFlag{Name: "json", Usage: "Output raw JSON"}
}

func prettyFlag() cli.Flag {
	return &cli.BoolFlag{Name: "pretty", Usage: "Pretty-print JSON output", Value: true}
}

func configFlag() cli.Flag {
	return &cli.StringFlag{
		Name:    "config",
		Aliases: []string{"c"},
		Usage:   "Path to configuration file",
		Value:   defaultConfigPath,
	}
}

// serveCommand runs the HTTP API
func serveCommand(r *Runner) *cli.Command {
	return &cli.Command{
		Name:  "serve",
		Usage: "Run the HTTP API and the now-playing poller",
		Flags: []cli.Flag{
			&cli.BoolFlag{
				Name:  "no-poll",
				Usage: "Do not start the background now-playing poller",
			},
		},
		Action: r.Serve,
	}
}

// setupCommand handles setup operations for the database and configuration.
func setupCommand(r *Runner) *cli.Command {
	return &cli.Command{
		Name:  "setup",
		Usage: "Setup and configuration commands",
		Commands: []*cli.Command{
			{
				Name:   "database",
				Usage:  "Initialize database and run migrations",
				Flags:  []cli.Flag{configFlag()},
				Action: r.SetupDatabase,
			},
			{
				Name:   "config",
				Usage:  "Write a config.toml from the built-in template",
				Flags:  []cli.Flag{configFlag()},
				Action: r.SetupConfig,
			},
		},
	}
}

// dbCommand handles schema maintenance
func dbCommand(r *Runner) *cli.Command {
	return &cli.Command{
		Name:  "db",
		Usage: "Database maintenance",
		Commands: []*cli.Command{
			{
				Name:   "rollback",
				Usage:  "Roll back the most recent migration",
				Action: r.DBRollback,
			},
			{
				Name:   "status",
				Usage:  "List applied migrations",
				Action: r.DBStatus,
			},
		},
	}
}

// catalogCommand handles Spotify catalog lookups
func catalogCommand(r *Runner) *cli.Command {
	return &cli.Command{
		Name:    "catalog",
		Aliases: []string{"cat"},
		Usage:   "Music catalog lookups",
		Commands: []*cli.Command{
			{
				Name:  "search",
				Usage: "Search tracks and albums",
				Arguments: []cli.Argument{
					&cli.StringArg{Name: "query"},
				},
				Flags: []cli.Flag{
					&cli.StringFlag{
						Name:  "type",
						Usage: "One of all, independent, track or album",
						Value: "all",
					},
					&cli.IntFlag{
						Name:  "limit",
						Usage: "Maximum number of results to print",
						Value: 20,
					},
					jsonFlag(), prettyFlag(),
				},
				Action: r.CatalogSearch,
			},
			{
				Name:  "artist",
				Usage: "Show an artist with top tracks and albums",
				Arguments: []cli.Argument{
					&cli.StringArg{Name: "id"},
				},
				Flags:  []cli.Flag{jsonFlag(), prettyFlag()},
				Action: r.CatalogArtist,
			},
			{
				Name:   "trends",
				Usage:  "List the trending playlist",
				Flags:  []cli.Flag{jsonFlag(), prettyFlag()},
				Action: r.CatalogTrends,
			},
			{
				Name:  "explore",
				Usage: "List the curated artists of a genre",
				Arguments: []cli.Argument{
					&cli.StringArg{Name: "genre"},
				},
				Flags:  []cli.Flag{jsonFlag(), prettyFlag()},
				Action: r.CatalogExplore,
			},
		},
	}
}

// lyricsCommand looks up lyrics
func lyricsCommand(r *Runner) *cli.Command {
	return &cli.Command{
		Name:  "lyrics",
		Usage: "Find the lyrics of a track",
		Flags: []cli.Flag{
			&cli.StringFlag{Name: "artist", Aliases: []string{"a"}, Usage: "Artist name", Required: true},
			&cli.StringFlag{Name: "track", Aliases: []string{"t"}, Usage: "Track name", Required: true},
			&cli.StringFlag{
				Name:  "source",
				Usage: "One of any, lyrics.ovh, vagalume, genius or lrclib",
				Value: "any",
			},
			jsonFlag(), prettyFlag(),
		},
		Action: r.Lyrics,
	}
}

// recommendCommand suggests tracks from a user's stored reviews
func recommendCommand(r *Runner) *cli.Command {
	return &cli.Command{
		Name:  "recommend",
		Usage: "Recommend tracks from a user's reviews",
		Flags: []cli.Flag{
			&cli.StringFlag{Name: "user", Aliases: []string{"u"}, Usage: "Username whose reviews are used"},
			jsonFlag(), prettyFlag(),
		},
		Action: r.Recommend,
	}
}

// pollCommand runs the now-playing poller
func pollCommand(r *Runner) *cli.Command {
	return &cli.Command{
		Name:  "poll",
		Usage: "Poll Spotify for what connected users are playing",
		Flags: []cli.Flag{
			&cli.BoolFlag{
				Name:    "watch",
				Aliases: []string{"w"},
				Usage:   "Keep polling until interrupted",
			},
			&cli.DurationFlag{
				Name:  "interval",
				Usage: "Time between rounds with --watch (defaults to polling.interval)",
			},
			jsonFlag(),
		},
		Action: r.Poll,
	}
}

// exportCommand writes a user's reviews to disk
func exportCommand(r *Runner) *cli.Command {
	return &cli.Command{
		Name:  "export",
		Usage: "Export data",
		Commands: []*cli.Command{
			{
				Name:  "reviews",
				Usage: "Export a user's reviews",
				Flags: []cli.Flag{
					&cli.StringFlag{Name: "user", Aliases: []string{"u"}, Usage: "Username to export", Required: true},
					&cli.StringFlag{
						Name:    "format",
						Aliases: []string{"f"},
						Usage:   "One of csv, markdown, json or text",
						Value:   "csv",
					},
					&cli.StringFlag{
						Name:    "output",
						Aliases: []string{"o"},
						Usage:   "Output path (defaults to the username)",
					},
				},
				Action: r.ExportReviews,
			},
		},
	}
}

// tuiCommand returns the top-level TUI command for the now-playing dashboard.
func tuiCommand(r *Runner) *cli.Command {
	return &cli.Command{
		Name:    "tui",
		Aliases: []string{"dashboard", "ui"},
		Usage:   "Launch the now-playing dashboard",
		Flags: []cli.Flag{
			&cli.StringFlag{Name: "user", Aliases: []string{"u"}, Usage: "Username whose friends are shown", Required: true},
			&cli.DurationFlag{
				Name:  "refresh",
				Usage: "Time between polling rounds (defaults to polling.friends_interval)",
			},
		},
		Action: r.TUI,
	}
}
