package services

import (
	"context"
	"errors"
	"fmt"
	"net/http"

	"github.com/desertthunder/musicblah/internal/models"
	"golang.org/x/oauth2"
)

// Catalog is the read-only music catalog backing search, artist pages and explore.
type Catalog interface {
	// Search finds tracks and/or albums. kind is one of all, independent, track or album.
	Search(ctx context.Context, query, kind string) ([]models.SearchResult, error)

	// SearchTrack returns the best match for a track name and artist.
	SearchTrack(ctx context.Context, name, artist string) (*models.SearchResult, error)

	Artist(ctx context.Context, id string) (*models.Artist, error)
	ArtistTopTracks(ctx context.Context, id string) ([]models.TopTrack, error)
	ArtistAlbums(ctx context.Context, id string, limit, offset int) (*models.AlbumPage, error)

	// ArtistGenres counts the genres shared by the named artists.
	ArtistGenres(ctx context.Context, names []string) ([]models.GenreCount, error)

	// Explore lists the curated artists of a genre key.
	Explore(ctx context.Context, genre string) ([]models.ExploreArtist, error)

	// Trends lists the tracks of the trending playlist.
	Trends(ctx context.Context) ([]models.TrendTrack, error)
}

// Player is the user-scoped side of Spotify: account linking and playback state.
type Player interface {
	AuthURL(state string) string
	Exchange(ctx context.Context, code string) (*oauth2.Token, error)
	Refresh(ctx context.Context, refreshToken string) (*oauth2.Token, error)
	CurrentlyPlaying(ctx context.Context, accessToken string) (*models.NowPlaying, error)
}

// Recommender suggests tracks from a user's reviews.
type Recommender interface {
	Recommend(ctx context.Context, reviews []ReviewInput) (*Recommendations, error)
}

// LyricsFinder looks up lyrics across providers.
type LyricsFinder interface {
	LyricsOVH(ctx context.Context, artist, track string) (*models.LyricsResult, error)
	Vagalume(ctx context.Context, artist, track string) (*models.LyricsResult, error)
	Genius(ctx context.Context, artist, track string) (*models.LyricsResult, error)
	LRCLib(ctx context.Context, artist, track string) (*models.LyricsResult, error)
	Find(ctx context.Context, artist, track string) (*models.LyricsResult, error)
}

var (
	_ Catalog      = (*SpotifyService)(nil)
	_ Player       = (*SpotifyService)(nil)
	_ Recommender  = (*GeminiRecommender)(nil)
	_ LyricsFinder = (*LyricsService)(nil)
)

// StatusError is a non-2xx answer from an upstream API.
//
// Err is the sentinel the status maps to, see [statusError].
type StatusError struct {
	Provider   string
	StatusCode int
	Err        error
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("%s: status %d: %v", e.Provider, e.StatusCode, e.Err)
}

func (e *StatusError) Unwrap() error { return e.Err }

// HTTPStatus returns the upstream status code, or 0 when err did not come from an upstream response.
func HTTPStatus(err error) int {
	var se *StatusError
	if errors.As(err, &se) {
		return se.StatusCode
	}
	return 0
}

func statusError(provider string, code int, sentinels map[int]error, fallback error) *StatusError {
	err, ok := sentinels[code]
	if !ok {
		err = fallback
	}
	return &StatusError{Provider: provider, StatusCode: code, Err: err}
}

func isSuccess(code int) bool {
	return code >= http.StatusOK && code < http.StatusMultipleChoices
}
