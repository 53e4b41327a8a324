package main

import (
	"context"
	"errors"
	"os"
	"os/signal"
	"syscall"

	"github.com/charmbracelet/log"
	"github.com/desertthunder/musicblah/internal/services"
	"github.com/desertthunder/musicblah/internal/shared"
	"github.com/desertthunder/musicblah/internal/web"
	"github.com/urfave/cli/v3"
)

const defaultConfigPath = "config.toml"

func main() {
	logger := shared.NewLogger(nil)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	config, err := loadConfig(defaultConfigPath)
	if err != nil {
		logger.Warn("failed to load config, using defaults", "error", err)
		config = shared.DefaultConfig()
	}

	runner := NewRunner(RunnerOpts{
		Config:     config,
		ConfigPath: defaultConfigPath,
		Services:   newServices(ctx, config, logger),
		Logger:     logger,
	})
	defer runner.Close()

	app := &cli.Command{
		Name:     "musicblah",
		Usage:    "Social music reviews, lyrics and now playing",
		Version:  "0.1.0",
		Commands: runner.register(),
	}

	if err := app.Run(ctx, os.Args); err != nil {
		if errors.Is(err, shared.ErrNotImplemented) {
			logger.Warn("not implemented")
			return
		}
		runner.Close()
		logger.Fatalf("application error: %v", err)
	}
}

// loadConfig reads path when it exists; otherwise the embedded defaults are used.
// Environment variables are applied in both cases.
func loadConfig(path string) (*shared.Config, error) {
	if _, err := os.Stat(path); err == nil {
		return shared.LoadConfig(path)
	}

	config := shared.DefaultConfig()
	if err := shared.ApplyEnv(config); err != nil {
		return nil, err
	}
	return config, nil
}

// newServices builds the upstream clients. Spotify-backed services stay nil without app credentials.
func newServices(ctx context.Context, config *shared.Config, logger *log.Logger) web.Services {
	lyricsLogger := shared.WithLogger(logger, "component", "lyrics")
	svc := web.Services{
		Lyrics: services.NewLyricsService(
			services.NewAPIClient(nil, 2, lyricsLogger),
			config.Credentials.Genius,
			services.WithLyricsLogger(lyricsLogger),
		),
	}

	spotify, err := services.NewSpotifyService(
		config.Credentials.Spotify,
		services.WithCatalogConfig(config.Spotify),
		services.WithSpotifyLogger(shared.WithLogger(logger, "component", "spotify")),
	)
	if err != nil {
		logger.Warn("spotify disabled", "error", err)
		return svc
	}
	svc.Catalog = spotify
	svc.Player = spotify

	var generator services.TextGenerator
	if gemini, err := services.NewGeminiGenerator(ctx, config.Credentials.Gemini); err != nil {
		logger.Debug("gemini disabled, recommending from the fallback list", "error", err)
	} else {
		generator = gemini
	}

	svc.Recommender = services.NewGeminiRecommender(
		spotify, generator, config.Recommend.CacheTTL.Duration, shared.WithLogger(logger, "component", "recommend"),
	)
	return svc
}
