package main

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"io"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/desertthunder/musicblah/internal/models"
	"github.com/desertthunder/musicblah/internal/repositories"
	"github.com/desertthunder/musicblah/internal/services"
	"github.com/desertthunder/musicblah/internal/shared"
	tu "github.com/desertthunder/musicblah/internal/testing"
	"github.com/desertthunder/musicblah/internal/web"
	"github.com/google/go-cmp/cmp"
	"github.com/urfave/cli/v3"
)

type fakeRecommender struct {
	got []services.ReviewInput
}

func (f *fakeRecommender) Recommend(ctx context.Context, reviews []services.ReviewInput) (*services.Recommendations, error) {
	f.got = reviews
	return &services.Recommendations{
		Recommendations: []models.Recommendation{{ID: "r1", Name: "Tempo Perdido", Artist: "Legião Urbana", Reason: "Rock BR essencial"}},
		Source:          services.SourceFallback,
		Message:         "Músicas populares",
	}, nil
}

type fixture struct {
	runner      *Runner
	output      *bytes.Buffer
	catalog     *tu.FakeCatalog
	player      *tu.FakePlayer
	recommender *fakeRecommender
	users       *repositories.UserRepository
	posts       *repositories.PostRepository
}

func newFixture(t *testing.T) *fixture {
	t.Helper()

	db := tu.MustOpenDB(t)
	f := &fixture{
		output: &bytes.Buffer{},
		catalog: &tu.FakeCatalog{
			SearchResults: []models.SearchResult{
				{Type: models.ItemTrack, ID: "t1", Name: "Tempo Perdido", Artist: "Legião Urbana", Album: "Dois", Duration: "5:02"},
				{Type: models.ItemAlbum, ID: "al1", Name: "Dois", Artist: "Legião Urbana", Year: "1986", TotalTracks: 12},
			},
			Artists: map[string]*models.Artist{
				"a1": {ID: "a1", Name: "Legião Urbana", Genres: []string{"rock brasileiro"}, FollowersCount: 1_500_000, Popularity: 70},
			},
			TopTracks:   []models.TopTrack{{ID: "t1", Name: "Tempo Perdido", DurationMs: 302_000, AlbumName: "Dois"}},
			Albums:      &models.AlbumPage{Albums: []models.ArtistAlbum{{ID: "al1", Name: "Dois", ReleaseDate: "1986-07-01", TotalTracks: 12, AlbumType: "album"}}, Total: 1},
			TrendTracks: []models.TrendTrack{{ID: "t2", Name: "Downtown", Artist: "Anitta"}},
			ExploreArtists: []models.ExploreArtist{
				{ID: "a1", Name: "Legião Urbana", Username: "@legiaourbana", Listeners: "1.5M"},
			},
		},
		player:      &tu.FakePlayer{Playing: map[string]*models.NowPlaying{}},
		recommender: &fakeRecommender{},
		users:       repositories.NewUserRepository(db),
		posts:       repositories.NewPostRepository(db),
	}

	config := shared.DefaultConfig()
	config.Server.Port = 0
	config.Polling.Enabled = false

	f.runner = NewRunner(RunnerOpts{
		Config: config,
		Services: web.Services{
			Catalog:     f.catalog,
			Player:      f.player,
			Lyrics:      &tu.FakeLyrics{Lyrics: map[string]string{"Legião Urbana|Tempo Perdido": "Todos os dias quando acordo"}},
			Recommender: f.recommender,
		},
		DB:     db,
		Logger: shared.NewLogger(io.Discard),
		Output: f.output,
	})
	return f
}

// run executes the CLI with args against the fixture's runner.
func (f *fixture) run(ctx context.Context, args ...string) error {
	app := &cli.Command{
		Name:      "musicblah",
		Commands:  f.runner.register(),
		Writer:    io.Discard,
		ErrWriter: io.Discard,
	}
	return app.Run(ctx, append([]string{"musicblah"}, args...))
}

func (f *fixture) mustUser(t *testing.T, username string) *models.User {
	t.Helper()
	user := models.NewUser(0, "User "+username, username, username+"@example.com")
	if err := f.users.Create(user); err != nil {
		t.Fatalf("failed to create user %s: %v", username, err)
	}
	return user
}

func (f *fixture) mustReview(t *testing.T, author *models.User, name string, rating int) {
	t.Helper()
	p := models.NewPost(0, models.KindReview, author.ID(), "review of "+name)
	p.Rating = rating
	p.Album = &models.AlbumRef{ID: "al-" + name, Name: name, Artist: "Legião Urbana", ArtistID: "a1", Year: "1986"}
	if err := f.posts.Create(p); err != nil {
		t.Fatalf("failed to create review: %v", err)
	}
}

func TestRunner(t *testing.T) {
	t.Run("NewRunner", func(t *testing.T) {
		t.Run("with all dependencies provided", func(t *testing.T) {
			config := shared.DefaultConfig()
			logger := shared.NewLogger(nil)
			output := &bytes.Buffer{}
			catalog := &tu.FakeCatalog{}

			runner := NewRunner(RunnerOpts{
				Config:     config,
				ConfigPath: "/test/path/config.toml",
				Logger:     logger,
				Output:     output,
				Services:   web.Services{Catalog: catalog},
			})

			if runner.config != config {
				t.Error("expected config to be set")
			}
			if runner.configPath != "/test/path/config.toml" {
				t.Errorf("expected configPath to be set, got %s", runner.configPath)
			}
			if runner.logger != logger {
				t.Error("expected logger to be set")
			}
			if runner.output != output {
				t.Error("expected output to be set")
			}
			if runner.services.Catalog != catalog {
				t.Error("expected catalog to be set")
			}
		})

		t.Run("with nil values uses defaults", func(t *testing.T) {
			runner := NewRunner(RunnerOpts{})

			if runner.config == nil {
				t.Error("expected default config to be set")
			}
			if runner.logger == nil {
				t.Error("expected default logger to be set")
			}
			if runner.output != os.Stdout {
				t.Error("expected output to default to os.Stdout")
			}
		})
	})

	t.Run("writeJSON", func(t *testing.T) {
		t.Run("writes formatted JSON successfully", func(t *testing.T) {
			output := &bytes.Buffer{}
			runner := NewRunner(RunnerOpts{Output: output})

			if err := runner.writeJSON(map[string]string{"key": "value"}, true); err != nil {
				t.Fatalf("expected no error, got %v", err)
			}

			result := output.String()
			if !strings.Contains(result, `"key": "value"`) {
				t.Errorf("expected formatted JSON, got %s", result)
			}
			if !strings.HasSuffix(result, "\n") {
				t.Error("expected output to end with newline")
			}
		})

		t.Run("writes compact JSON successfully", func(t *testing.T) {
			output := &bytes.Buffer{}
			runner := NewRunner(RunnerOpts{Output: output})

			if err := runner.writeJSON(map[string]string{"key": "value"}, false); err != nil {
				t.Fatalf("expected no error, got %v", err)
			}

			expected := `{"key":"value"}` + "\n"
			if output.String() != expected {
				t.Errorf("expected %q, got %q", expected, output.String())
			}
		})

		t.Run("handles marshal error with non-serializable data", func(t *testing.T) {
			runner := NewRunner(RunnerOpts{Output: &bytes.Buffer{}})

			err := runner.writeJSON(make(chan int), false)
			if err == nil || !strings.Contains(err.Error(), "failed to marshal JSON") {
				t.Errorf("expected marshal error, got %v", err)
			}
		})

		t.Run("handles write failure", func(t *testing.T) {
			runner := NewRunner(RunnerOpts{Output: &tu.FWriter{}})

			err := runner.writeJSON(map[string]string{"key": "value"}, false)
			if err == nil || !strings.Contains(err.Error(), "failed to write output") {
				t.Errorf("expected write error, got %v", err)
			}
		})
	})

	t.Run("writePlain", func(t *testing.T) {
		t.Run("writes plain text successfully", func(t *testing.T) {
			output := &bytes.Buffer{}
			runner := NewRunner(RunnerOpts{Output: output})

			if err := runner.writePlain("hello %s", "world"); err != nil {
				t.Fatalf("expected no error, got %v", err)
			}
			if output.String() != "hello world" {
				t.Errorf("expected 'hello world', got %q", output.String())
			}
		})

		t.Run("handles write failure", func(t *testing.T) {
			runner := NewRunner(RunnerOpts{Output: &tu.FWriter{}})

			err := runner.writePlain("test")
			if err == nil || !strings.Contains(err.Error(), "failed to write output") {
				t.Errorf("expected write error, got %v", err)
			}
		})
	})

	t.Run("register", func(t *testing.T) {
		var names []string
		for _, cmd := range NewRunner(RunnerOpts{}).register() {
			names = append(names, cmd.Name)
		}

		want := []string{"serve", "setup", "db", "catalog", "lyrics", "recommend", "poll", "export", "tui"}
		if diff := cmp.Diff(want, names); diff != "" {
			t.Errorf("commands mismatch (-want +got):\n%s", diff)
		}
	})
}

func TestCatalogCommands(t *testing.T) {
	ctx := context.Background()

	t.Run("Search", func(t *testing.T) {
		f := newFixture(t)
		if err := f.run(ctx, "catalog", "search", "tempo perdido"); err != nil {
			t.Fatalf("expected no error, got %v", err)
		}

		out := f.output.String()
		for _, want := range []string{"Found 2 results", "[track] Legião Urbana - Tempo Perdido", "Year: 1986 • 12 tracks"} {
			if !strings.Contains(out, want) {
				t.Errorf("expected %q in output:\n%s", want, out)
			}
		}
	})

	t.Run("Search JSON With Limit", func(t *testing.T) {
		f := newFixture(t)
		if err := f.run(ctx, "catalog", "search", "--json", "--limit", "1", "tempo"); err != nil {
			t.Fatalf("expected no error, got %v", err)
		}

		var results []models.SearchResult
		if err := json.Unmarshal(f.output.Bytes(), &results); err != nil {
			t.Fatalf("expected JSON output, got %v", err)
		}
		if len(results) != 1 || results[0].ID != "t1" {
			t.Errorf("unexpected results %+v", results)
		}
	})

	t.Run("Search Without Query", func(t *testing.T) {
		f := newFixture(t)
		if err := f.run(ctx, "catalog", "search"); !errors.Is(err, shared.ErrMissingArgument) {
			t.Errorf("expected ErrMissingArgument, got %v", err)
		}
	})

	t.Run("Without Spotify", func(t *testing.T) {
		f := newFixture(t)
		f.runner.services.Catalog = nil
		if err := f.run(ctx, "catalog", "trends"); !errors.Is(err, shared.ErrServiceUnavailable) {
			t.Errorf("expected ErrServiceUnavailable, got %v", err)
		}
	})

	t.Run("Artist", func(t *testing.T) {
		f := newFixture(t)
		if err := f.run(ctx, "catalog", "artist", "a1"); err != nil {
			t.Fatalf("expected no error, got %v", err)
		}

		out := f.output.String()
		for _, want := range []string{"Legião Urbana", "Rock Brasileiro", "Tempo Perdido (5:02) - Dois", "1986  Dois"} {
			if !strings.Contains(out, want) {
				t.Errorf("expected %q in output:\n%s", want, out)
			}
		}
	})

	t.Run("Unknown Artist", func(t *testing.T) {
		f := newFixture(t)
		if err := f.run(ctx, "catalog", "artist", "nope"); !errors.Is(err, shared.ErrArtistNotFound) {
			t.Errorf("expected ErrArtistNotFound, got %v", err)
		}
	})

	t.Run("Trends", func(t *testing.T) {
		f := newFixture(t)
		if err := f.run(ctx, "catalog", "trends"); err != nil {
			t.Fatalf("expected no error, got %v", err)
		}
		if !strings.Contains(f.output.String(), " 1. Anitta - Downtown") {
			t.Errorf("unexpected output:\n%s", f.output.String())
		}
	})

	t.Run("Explore", func(t *testing.T) {
		f := newFixture(t)
		if err := f.run(ctx, "catalog", "explore", "rock-br"); err != nil {
			t.Fatalf("expected no error, got %v", err)
		}
		if !strings.Contains(f.output.String(), "Legião Urbana (@legiaourbana) • 1.5M listeners") {
			t.Errorf("unexpected output:\n%s", f.output.String())
		}

		err := f.run(ctx, "catalog", "explore")
		if !errors.Is(err, shared.ErrMissingArgument) || !strings.Contains(err.Error(), "rock-br") {
			t.Errorf("expected missing genre error listing genres, got %v", err)
		}
	})
}

func TestLyricsCommand(t *testing.T) {
	ctx := context.Background()

	t.Run("Found", func(t *testing.T) {
		f := newFixture(t)
		if err := f.run(ctx, "lyrics", "--artist", "Legião Urbana", "--track", "Tempo Perdido"); err != nil {
			t.Fatalf("expected no error, got %v", err)
		}

		out := f.output.String()
		if !strings.Contains(out, "Todos os dias quando acordo") || !strings.Contains(out, "Source: vagalume") {
			t.Errorf("unexpected output:\n%s", out)
		}
	})

	t.Run("Single Source", func(t *testing.T) {
		f := newFixture(t)
		if err := f.run(ctx, "lyrics", "-a", "Legião Urbana", "-t", "Tempo Perdido", "--source", "lrclib", "--json"); err != nil {
			t.Fatalf("expected no error, got %v", err)
		}

		var result models.LyricsResult
		if err := json.Unmarshal(f.output.Bytes(), &result); err != nil {
			t.Fatalf("expected JSON output, got %v", err)
		}
		if result.Source != services.SourceLRCLib {
			t.Errorf("expected lrclib source, got %s", result.Source)
		}
	})

	t.Run("Unknown Source", func(t *testing.T) {
		f := newFixture(t)
		err := f.run(ctx, "lyrics", "-a", "x", "-t", "y", "--source", "azlyrics")
		if !errors.Is(err, shared.ErrInvalidFlag) {
			t.Errorf("expected ErrInvalidFlag, got %v", err)
		}
	})

	t.Run("Not Found", func(t *testing.T) {
		f := newFixture(t)
		err := f.run(ctx, "lyrics", "-a", "Ninguém", "-t", "Nada")
		if !errors.Is(err, shared.ErrLyricsNotFound) {
			t.Errorf("expected ErrLyricsNotFound, got %v", err)
		}
	})
}

func TestRecommendCommand(t *testing.T) {
	ctx := context.Background()

	t.Run("From Stored Reviews", func(t *testing.T) {
		f := newFixture(t)
		alice := f.mustUser(t, "alice")
		f.mustReview(t, alice, "Dois", 5)
		f.mustReview(t, alice, "Que País É Este", 4)

		if err := f.run(ctx, "recommend", "--user", "alice"); err != nil {
			t.Fatalf("expected no error, got %v", err)
		}

		if len(f.recommender.got) != 2 {
			t.Fatalf("expected 2 reviews sent, got %d", len(f.recommender.got))
		}
		if got := f.recommender.got[1].Album; got == nil || got.Name != "Dois" || f.recommender.got[1].Rating != 5 {
			t.Errorf("unexpected review input %+v", f.recommender.got[1])
		}
		if !strings.Contains(f.output.String(), "1. Legião Urbana - Tempo Perdido") {
			t.Errorf("unexpected output:\n%s", f.output.String())
		}
	})

	t.Run("Without User", func(t *testing.T) {
		f := newFixture(t)
		if err := f.run(ctx, "recommend"); err != nil {
			t.Fatalf("expected no error, got %v", err)
		}
		if len(f.recommender.got) != 0 {
			t.Errorf("expected no reviews, got %d", len(f.recommender.got))
		}
	})

	t.Run("Unknown User", func(t *testing.T) {
		f := newFixture(t)
		if err := f.run(ctx, "recommend", "--user", "ghost"); !errors.Is(err, shared.ErrNotFound) {
			t.Errorf("expected ErrNotFound, got %v", err)
		}
	})
}

func TestPollCommand(t *testing.T) {
	ctx := context.Background()

	setup := func(t *testing.T) *fixture {
		f := newFixture(t)
		alice := f.mustUser(t, "alice")
		err := repositories.NewConnectionRepository(f.runner.db).Save(&models.SpotifyConnection{
			UserID: alice.ID(), AccessToken: "tok", RefreshToken: "ref", ExpiresAt: time.Now().Add(time.Hour),
		})
		if err != nil {
			t.Fatalf("failed to save connection: %v", err)
		}
		f.player.Playing["tok"] = &models.NowPlaying{
			IsPlaying: true,
			Track:     &models.PlayingTrack{ID: "t1", Name: "Tempo Perdido", Artist: "Legião Urbana"},
		}
		return f
	}

	t.Run("Once", func(t *testing.T) {
		f := setup(t)
		if err := f.run(ctx, "poll"); err != nil {
			t.Fatalf("expected no error, got %v", err)
		}

		out := f.output.String()
		for _, want := range []string{"Found 1 connected accounts", "Legião Urbana - Tempo Perdido", "Polled 1 accounts: 1 playing, 0 failed"} {
			if !strings.Contains(out, want) {
				t.Errorf("expected %q in output:\n%s", want, out)
			}
		}
		if f.player.Polls() != 1 {
			t.Errorf("expected 1 poll, got %d", f.player.Polls())
		}
	})

	t.Run("JSON", func(t *testing.T) {
		f := setup(t)
		if err := f.run(ctx, "poll", "--json"); err != nil {
			t.Fatalf("expected no error, got %v", err)
		}

		var result struct{ Total, Playing, Failed int }
		if err := json.Unmarshal(f.output.Bytes(), &result); err != nil {
			t.Fatalf("expected only JSON output, got %v:\n%s", err, f.output.String())
		}
		if result.Total != 1 || result.Playing != 1 {
			t.Errorf("unexpected result %+v", result)
		}
	})

	t.Run("Without Spotify", func(t *testing.T) {
		f := newFixture(t)
		f.runner.services.Player = nil
		if err := f.run(ctx, "poll"); !errors.Is(err, shared.ErrServiceUnavailable) {
			t.Errorf("expected ErrServiceUnavailable, got %v", err)
		}
	})
}

func TestExportCommand(t *testing.T) {
	ctx := context.Background()

	f := newFixture(t)
	alice := f.mustUser(t, "alice")
	f.mustReview(t, alice, "Dois", 5)

	t.Run("CSV", func(t *testing.T) {
		base := filepath.Join(t.TempDir(), "alice")
		if err := f.run(ctx, "export", "reviews", "--user", "alice", "--output", base); err != nil {
			t.Fatalf("expected no error, got %v", err)
		}
		tu.AssertFileExists(t, base+"_reviews.csv")
		tu.AssertFileExists(t, base+"_metadata.json")
	})

	t.Run("JSON", func(t *testing.T) {
		path := filepath.Join(t.TempDir(), "alice.json")
		if err := f.run(ctx, "export", "reviews", "-u", "alice", "-f", "json", "-o", path); err != nil {
			t.Fatalf("expected no error, got %v", err)
		}
		if content := tu.MustReadFile(t, path); !strings.Contains(content, `"reviewCount": 1`) {
			t.Errorf("unexpected export:\n%s", content)
		}
	})

	t.Run("Markdown", func(t *testing.T) {
		dir := filepath.Join(t.TempDir(), "alice")
		if err := f.run(ctx, "export", "reviews", "-u", "alice", "-f", "markdown", "-o", dir); err != nil {
			t.Fatalf("expected no error, got %v", err)
		}
		tu.AssertFileExists(t, filepath.Join(dir, "README.md"))
	})

	t.Run("Unknown Format", func(t *testing.T) {
		err := f.run(ctx, "export", "reviews", "-u", "alice", "-f", "xlsx")
		if !errors.Is(err, shared.ErrInvalidFlag) {
			t.Errorf("expected ErrInvalidFlag, got %v", err)
		}
	})
}

func TestSetupCommands(t *testing.T) {
	ctx := context.Background()

	t.Run("Config", func(t *testing.T) {
		f := newFixture(t)
		path := filepath.Join(t.TempDir(), "config.toml")

		if err := f.run(ctx, "setup", "config", "--config", path); err != nil {
			t.Fatalf("expected no error, got %v", err)
		}
		tu.AssertFileExists(t, path)

		if err := f.run(ctx, "setup", "config", "--config", path); !errors.Is(err, shared.ErrInvalidArgument) {
			t.Errorf("expected ErrInvalidArgument for existing file, got %v", err)
		}
	})

	t.Run("Database", func(t *testing.T) {
		f := newFixture(t)
		dir := t.TempDir()
		path := filepath.Join(dir, "config.toml")
		dbPath := filepath.Join(dir, "test.db")
		if err := os.WriteFile(path, []byte("[database]\npath = \""+dbPath+"\"\n"), 0644); err != nil {
			t.Fatalf("failed to write config: %v", err)
		}

		if err := f.run(ctx, "setup", "database", "-c", path); err != nil {
			t.Fatalf("expected no error, got %v", err)
		}
		tu.AssertFileExists(t, dbPath)
		if !strings.Contains(f.output.String(), "Database ready") {
			t.Errorf("unexpected output:\n%s", f.output.String())
		}
	})

	t.Run("Status And Rollback", func(t *testing.T) {
		f := newFixture(t)

		if err := f.run(ctx, "db", "status"); err != nil {
			t.Fatalf("expected no error, got %v", err)
		}
		if out := f.output.String(); !strings.Contains(out, "0000") || !strings.Contains(out, "0001") {
			t.Errorf("expected both migrations listed:\n%s", out)
		}

		if err := f.run(ctx, "db", "rollback"); err != nil {
			t.Fatalf("expected no error, got %v", err)
		}
		if !strings.Contains(f.output.String(), "Rolled back migration 0001") {
			t.Errorf("unexpected output:\n%s", f.output.String())
		}

		applied, err := shared.AppliedMigrations(f.runner.db)
		if err != nil {
			t.Fatalf("expected no error, got %v", err)
		}
		if len(applied) != 1 {
			t.Errorf("expected 1 applied migration, got %d", len(applied))
		}
	})
}

func TestServeCommand(t *testing.T) {
	t.Run("Requires Spotify", func(t *testing.T) {
		f := newFixture(t)
		f.runner.services.Catalog = nil
		if err := f.run(context.Background(), "serve"); !errors.Is(err, shared.ErrMissingCredentials) {
			t.Errorf("expected ErrMissingCredentials, got %v", err)
		}
	})

	t.Run("Requires JWT Secret", func(t *testing.T) {
		f := newFixture(t)
		f.runner.config.Auth.JWTSecret = ""
		if err := f.run(context.Background(), "serve"); !errors.Is(err, shared.ErrMissingCredentials) {
			t.Errorf("expected ErrMissingCredentials, got %v", err)
		}
	})

	t.Run("Stops With Context", func(t *testing.T) {
		f := newFixture(t)
		ctx, cancel := context.WithCancel(context.Background())
		cancel()

		if err := f.run(ctx, "serve", "--no-poll"); err != nil {
			t.Errorf("expected clean shutdown, got %v", err)
		}
	})
}
