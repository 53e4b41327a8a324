// package testing contains shared testing utilities
package testing

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"net/http"
	"os"
	"strings"
	"sync"
	"testing"

	"github.com/desertthunder/musicblah/internal/models"
	"github.com/desertthunder/musicblah/internal/shared"
	"golang.org/x/oauth2"
)

// FakeCatalog is an in-memory stand-in for the music catalog.
//
// Tracks are resolved by name from Tracks, or made up when ResolveAll is set. A non-nil Err fails every call.
type FakeCatalog struct {
	Err            error
	SearchResults  []models.SearchResult
	Tracks         map[string]models.SearchResult
	ResolveAll     bool
	Artists        map[string]*models.Artist
	TopTracks      []models.TopTrack
	Albums         *models.AlbumPage
	Genres         []models.GenreCount
	ExploreArtists []models.ExploreArtist
	TrendTracks    []models.TrendTrack

	mu       sync.Mutex
	searches []string
}

// Searches returns the names passed to SearchTrack, in call order.
func (c *FakeCatalog) Searches() []string {
	c.mu.Lock()
	defer c.mu.Unlock()
	return append([]string(nil), c.searches...)
}

func (c *FakeCatalog) Search(ctx context.Context, query, kind string) ([]models.SearchResult, error) {
	if c.Err != nil {
		return nil, c.Err
	}
	if strings.TrimSpace(query) == "" {
		return nil, shared.ErrMissingArgument
	}
	return c.SearchResults, nil
}

func (c *FakeCatalog) SearchTrack(ctx context.Context, name, artist string) (*models.SearchResult, error) {
	c.mu.Lock()
	c.searches = append(c.searches, name)
	c.mu.Unlock()

	if c.Err != nil {
		return nil, c.Err
	}
	if t, ok := c.Tracks[name]; ok {
		return &t, nil
	}
	if c.ResolveAll {
		return &models.SearchResult{
			Type: models.ItemTrack, ID: "id-" + name, Name: name, Artist: artist, Duration: "3:00",
		}, nil
	}
	return nil, fmt.Errorf("%w: %s", shared.ErrTrackNotFound, name)
}

func (c *FakeCatalog) Artist(ctx context.Context, id string) (*models.Artist, error) {
	if c.Err != nil {
		return nil, c.Err
	}
	if a, ok := c.Artists[id]; ok {
		return a, nil
	}
	return nil, shared.ErrArtistNotFound
}

func (c *FakeCatalog) ArtistTopTracks(ctx context.Context, id string) ([]models.TopTrack, error) {
	return c.TopTracks, c.Err
}

func (c *FakeCatalog) ArtistAlbums(ctx context.Context, id string, limit, offset int) (*models.AlbumPage, error) {
	if c.Err != nil {
		return nil, c.Err
	}
	if c.Albums == nil {
		return &models.AlbumPage{Albums: []models.ArtistAlbum{}}, nil
	}
	return c.Albums, nil
}

func (c *FakeCatalog) ArtistGenres(ctx context.Context, names []string) ([]models.GenreCount, error) {
	if len(names) == 0 {
		return nil, shared.ErrMissingArgument
	}
	return c.Genres, c.Err
}

func (c *FakeCatalog) Explore(ctx context.Context, genre string) ([]models.ExploreArtist, error) {
	return c.ExploreArtists, c.Err
}

func (c *FakeCatalog) Trends(ctx context.Context) ([]models.TrendTrack, error) {
	return c.TrendTracks, c.Err
}

// FakePlayer is an in-memory stand-in for Spotify account linking and playback.
//
// Codes, refresh tokens and access tokens not present in the maps are rejected.
type FakePlayer struct {
	Codes     map[string]*oauth2.Token
	Refreshes map[string]*oauth2.Token
	Playing   map[string]*models.NowPlaying

	mu    sync.Mutex
	polls int
}

// Polls returns how many times CurrentlyPlaying was called.
func (p *FakePlayer) Polls() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.polls
}

func (p *FakePlayer) AuthURL(state string) string {
	return "https://accounts.example.com/authorize?state=" + state
}

func (p *FakePlayer) Exchange(ctx context.Context, code string) (*oauth2.Token, error) {
	if t, ok := p.Codes[code]; ok {
		return t, nil
	}
	return nil, shared.ErrAuthFailed
}

func (p *FakePlayer) Refresh(ctx context.Context, refreshToken string) (*oauth2.Token, error) {
	if refreshToken == "" {
		return nil, shared.ErrNoRefreshToken
	}
	if t, ok := p.Refreshes[refreshToken]; ok {
		return t, nil
	}
	return nil, shared.ErrRefreshFailed
}

func (p *FakePlayer) CurrentlyPlaying(ctx context.Context, accessToken string) (*models.NowPlaying, error) {
	p.mu.Lock()
	p.polls++
	p.mu.Unlock()

	if accessToken == "" {
		return nil, shared.ErrNotAuthenticated
	}
	np, ok := p.Playing[accessToken]
	if !ok {
		return nil, shared.ErrTokenExpired
	}
	return np, nil
}

// FakeLyrics answers every lyrics provider from Lyrics, keyed by "artist|track".
type FakeLyrics struct {
	Lyrics map[string]string
	Err    error
}

func (f *FakeLyrics) lookup(source, artist, track string) (*models.LyricsResult, error) {
	if f.Err != nil {
		return nil, f.Err
	}
	if artist == "" || track == "" {
		return nil, shared.ErrMissingArgument
	}
	text, ok := f.Lyrics[artist+"|"+track]
	if !ok {
		return nil, shared.ErrLyricsNotFound
	}
	return &models.LyricsResult{Lyrics: &text, Source: source, Artist: artist, Track: track}, nil
}

func (f *FakeLyrics) LyricsOVH(ctx context.Context, artist, track string) (*models.LyricsResult, error) {
	return f.lookup("lyrics.ovh", artist, track)
}

func (f *FakeLyrics) Vagalume(ctx context.Context, artist, track string) (*models.LyricsResult, error) {
	return f.lookup("vagalume", artist, track)
}

func (f *FakeLyrics) Genius(ctx context.Context, artist, track string) (*models.LyricsResult, error) {
	return f.lookup("genius+lyrics.ovh", artist, track)
}

func (f *FakeLyrics) LRCLib(ctx context.Context, artist, track string) (*models.LyricsResult, error) {
	return f.lookup("lrclib", artist, track)
}

func (f *FakeLyrics) Find(ctx context.Context, artist, track string) (*models.LyricsResult, error) {
	return f.lookup("vagalume", artist, track)
}

// MustOpenDB opens a migrated in-memory database that is closed when the test ends.
func MustOpenDB(t *testing.T) *sql.DB {
	t.Helper()
	db, err := shared.OpenDatabase(shared.DatabaseConfig{Path: shared.MemoryDSN})
	if err != nil {
		t.Fatalf("Failed to open test database: %v", err)
	}
	t.Cleanup(func() { db.Close() })
	return db
}

// FWriter always returns an error on Write
type FWriter struct{}

func (f *FWriter) Write(p []byte) (n int, err error) {
	return 0, errors.New("write failed")
}

// MockRoundTripper allows custom HTTP responses for testing
type MockRoundTripper struct {
	response *http.Response
	err      error
}

func NewMockRoundTripper(r *http.Response, e error) *MockRoundTripper {
	return &MockRoundTripper{response: r, err: e}
}

func (m *MockRoundTripper) RoundTrip(*http.Request) (*http.Response, error) {
	return m.response, m.err
}

// FCloser simulates a failure when reading response body
type FCloser struct{}

func (f *FCloser) Read(p []byte) (n int, err error) {
	return 0, errors.New("read failed")
}

func (f *FCloser) Close() error {
	return nil
}

func MustGetwd(t *testing.T) string {
	t.Helper()
	wd, err := os.Getwd()
	if err != nil {
		t.Fatalf("Failed to get working directory: %v", err)
	}
	return wd
}

func MustChdir(t *testing.T, dir string) {
	t.Helper()
	if err := os.Chdir(dir); err != nil {
		t.Fatalf("Failed to change directory to %s: %v", dir, err)
	}
}

func AssertFileExists(t *testing.T, path string) {
	t.Helper()
	if _, err := os.Stat(path); os.IsNotExist(err) {
		t.Errorf("File does not exist: %s", path)
	}
}

func AssertDirExists(t *testing.T, path string) {
	t.Helper()
	info, err := os.Stat(path)
	if os.IsNotExist(err) {
		t.Errorf("Directory does not exist: %s", path)
		return
	}
	if !info.IsDir() {
		t.Errorf("Path is not a directory: %s", path)
	}
}

func MustReadFile(t *testing.T, path string) string {
	t.Helper()
	content, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("Failed to read file %s: %v", path, err)
	}
	return string(content)
}
