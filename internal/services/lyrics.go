// Lyrics lookups on lyrics.ovh, Vagalume, Genius and LRCLib
package services

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"

	"github.com/charmbracelet/log"
	"github.com/desertthunder/musicblah/internal/formatter"
	"github.com/desertthunder/musicblah/internal/models"
	"github.com/desertthunder/musicblah/internal/shared"
)

const (
	lyricsOVHURL = "https://api.lyrics.ovh/v1"
	vagalumeURL  = "https://api.vagalume.com.br"
	vagalumeSite = "https://www.vagalume.com.br"
	geniusURL    = "https://api.genius.com"
	lrclibURL    = "https://lrclib.net/api"
)

// Lyrics sources reported in [models.LyricsResult.Source].
const (
	SourceLyricsOVH   = "lyrics.ovh"
	SourceVagalume    = "vagalume"
	SourceGenius      = "genius"
	SourceGeniusOVH   = "genius+lyrics.ovh"
	SourceLRCLib      = "lrclib"
	geniusUnavailable = "Letra não disponível, mas você pode ver no Genius"
)

type lyricsOVHResponse struct {
	Lyrics string `json:"lyrics"`
}

type vagalumeResponse struct {
	Type string `json:"type"`
	Art  *struct {
		ID   string `json:"id"`
		Name string `json:"name"`
		URL  string `json:"url"`
	} `json:"art"`
	Mus []struct {
		ID        string `json:"id"`
		Name      string `json:"name"`
		URL       string `json:"url"`
		Text      string `json:"text"`
		Translate []struct {
			ID   string `json:"id"`
			Lang int    `json:"lang"`
			URL  string `json:"url"`
			Text string `json:"text"`
		} `json:"translate"`
	} `json:"mus"`
}

func (r *vagalumeResponse) found() bool {
	return r.Type != "notfound" && len(r.Mus) > 0
}

type geniusSearchResponse struct {
	Response struct {
		Hits []struct {
			Result geniusSong `json:"result"`
		} `json:"hits"`
	} `json:"response"`
}

type geniusSong struct {
	ID                       int    `json:"id"`
	Title                    string `json:"title"`
	URL                      string `json:"url"`
	SongArtImageThumbnailURL string `json:"song_art_image_thumbnail_url"`
	LyricsState              string `json:"lyrics_state"`
	PrimaryArtist            *struct {
		Name string `json:"name"`
	} `json:"primary_artist"`
}

type lrclibSong struct {
	ID           int     `json:"id"`
	TrackName    string  `json:"trackName"`
	ArtistName   string  `json:"artistName"`
	AlbumName    string  `json:"albumName"`
	Duration     float64 `json:"duration"`
	PlainLyrics  string  `json:"plainLyrics"`
	SyncedLyrics string  `json:"syncedLyrics"`
}

// LyricsEndpoints holds the base URLs of the lyrics providers.
type LyricsEndpoints struct {
	LyricsOVH string
	Vagalume  string
	Genius    string
	LRCLib    string
}

// DefaultLyricsEndpoints returns the public provider URLs.
func DefaultLyricsEndpoints() LyricsEndpoints {
	return LyricsEndpoints{LyricsOVH: lyricsOVHURL, Vagalume: vagalumeURL, Genius: geniusURL, LRCLib: lrclibURL}
}

// LyricsService looks up lyrics on lyrics.ovh, Vagalume, Genius and LRCLib.
type LyricsService struct {
	api         *APIClient
	geniusToken string
	endpoints   LyricsEndpoints
	logger      *log.Logger
}

// LyricsOption configures a [LyricsService].
type LyricsOption func(*LyricsService)

// WithLyricsEndpoints overrides the provider base URLs.
func WithLyricsEndpoints(e LyricsEndpoints) LyricsOption {
	return func(s *LyricsService) {
		s.endpoints = LyricsEndpoints{
			LyricsOVH: strings.TrimSuffix(e.LyricsOVH, "/"),
			Vagalume:  strings.TrimSuffix(e.Vagalume, "/"),
			Genius:    strings.TrimSuffix(e.Genius, "/"),
			LRCLib:    strings.TrimSuffix(e.LRCLib, "/"),
		}
	}
}

// WithLyricsLogger sets the logger for provider failures that are recovered from.
func WithLyricsLogger(l *log.Logger) LyricsOption {
	return func(s *LyricsService) { s.logger = l }
}

// NewLyricsService creates a [LyricsService]. Genius searches need creds.AccessToken.
func NewLyricsService(api *APIClient, creds shared.GeniusConfig, opts ...LyricsOption) *LyricsService {
	if api == nil {
		api = NewAPIClient(nil, 2, nil)
	}
	s := &LyricsService{
		api:         api,
		geniusToken: creds.AccessToken,
		endpoints:   DefaultLyricsEndpoints(),
		logger:      log.New(io.Discard),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// LyricsOVH fetches lyrics from lyrics.ovh, retrying once with simplified artist and track names.
func (s *LyricsService) LyricsOVH(ctx context.Context, artist, track string) (*models.LyricsResult, error) {
	if err := requireSong(artist, track); err != nil {
		return nil, err
	}

	text, err := s.ovh(ctx, artist, track)
	if err != nil && HTTPStatus(err) != 0 {
		text, err = s.ovh(ctx, formatter.SimplifyArtist(artist), formatter.SimplifyTrack(track))
	}
	if err != nil {
		return nil, lyricsError(err, artist, track)
	}
	return &models.LyricsResult{Lyrics: &text, Source: SourceLyricsOVH}, nil
}

func (s *LyricsService) ovh(ctx context.Context, artist, track string) (string, error) {
	endpoint := fmt.Sprintf("%s/%s/%s", s.endpoints.LyricsOVH, url.PathEscape(artist), url.PathEscape(track))

	var resp lyricsOVHResponse
	if err := s.api.GetJSON(ctx, SourceLyricsOVH, endpoint, nil, &resp); err != nil {
		return "", err
	}
	if strings.TrimSpace(resp.Lyrics) == "" {
		return "", statusError(SourceLyricsOVH, http.StatusNotFound, nil, shared.ErrNotFound)
	}
	return resp.Lyrics, nil
}

// Vagalume fetches lyrics and their first translation from Vagalume.
//
// When the song is not found and simplifying the names changes them, the simplified names are tried once.
func (s *LyricsService) Vagalume(ctx context.Context, artist, track string) (*models.LyricsResult, error) {
	if err := requireSong(artist, track); err != nil {
		return nil, err
	}

	resp, err := s.vagalume(ctx, artist, track)
	if err != nil {
		return nil, lyricsError(err, artist, track)
	}
	if resp.found() {
		return vagalumeResult(resp, artist), nil
	}

	simpleArtist := formatter.SimplifyArtist(artist)
	simpleTrack := formatter.StripTrackQualifiers(track)
	if simpleArtist != artist || simpleTrack != track {
		if alt, err := s.vagalume(ctx, simpleArtist, simpleTrack); err == nil && alt.found() {
			return vagalumeResult(alt, simpleArtist), nil
		}
	}

	return nil, fmt.Errorf("%w: %s - %s", shared.ErrLyricsNotFound, artist, track)
}

func (s *LyricsService) vagalume(ctx context.Context, artist, track string) (*vagalumeResponse, error) {
	q := url.Values{}
	q.Set("art", artist)
	q.Set("mus", track)

	var resp vagalumeResponse
	if err := s.api.GetJSON(ctx, SourceVagalume, s.endpoints.Vagalume+"/search.php?"+q.Encode(), nil, &resp); err != nil {
		return nil, err
	}
	return &resp, nil
}

func vagalumeResult(resp *vagalumeResponse, artist string) *models.LyricsResult {
	song := resp.Mus[0]
	result := &models.LyricsResult{
		Lyrics: &song.Text,
		Source: SourceVagalume,
		Artist: artist,
		Track:  song.Name,
	}
	if resp.Art != nil && resp.Art.Name != "" {
		result.Artist = resp.Art.Name
	}
	if song.URL != "" {
		result.URL = vagalumeSite + song.URL
	}
	if len(song.Translate) > 0 {
		result.Translation = song.Translate[0].Text
	}
	return result
}

// Genius finds the song on Genius and fetches its lyrics from lyrics.ovh using Genius's artist and title.
//
// Without a token, or when Genius fails or has no match, it falls back to [LyricsService.LyricsOVH].
// When Genius knows the song but lyrics.ovh does not, the result has nil Lyrics and links to Genius.
func (s *LyricsService) Genius(ctx context.Context, artist, track string) (*models.LyricsResult, error) {
	if err := requireSong(artist, track); err != nil {
		return nil, err
	}
	if s.geniusToken == "" {
		return s.LyricsOVH(ctx, artist, track)
	}

	q := url.Values{"q": {track + " " + artist}}
	headers := http.Header{"Authorization": {"Bearer " + s.geniusToken}}

	var resp geniusSearchResponse
	if err := s.api.GetJSON(ctx, SourceGenius, s.endpoints.Genius+"/search?"+q.Encode(), headers, &resp); err != nil {
		s.logger.Warn("genius search failed", "error", err)
		return s.LyricsOVH(ctx, artist, track)
	}
	if len(resp.Response.Hits) == 0 {
		return s.LyricsOVH(ctx, artist, track)
	}

	hit := resp.Response.Hits[0].Result
	hitArtist := artist
	if hit.PrimaryArtist != nil && hit.PrimaryArtist.Name != "" {
		hitArtist = hit.PrimaryArtist.Name
	}

	text, err := s.ovh(ctx, hitArtist, hit.Title)
	switch {
	case err == nil:
		return &models.LyricsResult{
			Lyrics:    &text,
			Source:    SourceGeniusOVH,
			GeniusURL: hit.URL,
			Thumbnail: hit.SongArtImageThumbnailURL,
		}, nil
	case HTTPStatus(err) != 0:
		return &models.LyricsResult{
			Source:    SourceGenius,
			GeniusURL: hit.URL,
			Thumbnail: hit.SongArtImageThumbnailURL,
			Message:   geniusUnavailable,
		}, nil
	default:
		s.logger.Warn("lyrics.ovh lookup failed", "error", err)
		return s.LyricsOVH(ctx, artist, track)
	}
}

// LRCLib fetches plain and time-synced lyrics from LRCLib.
//
// Songs with only synced lyrics get plain lyrics derived from them.
func (s *LyricsService) LRCLib(ctx context.Context, artist, track string) (*models.LyricsResult, error) {
	if err := requireSong(artist, track); err != nil {
		return nil, err
	}

	q := url.Values{}
	q.Set("artist_name", artist)
	q.Set("track_name", track)

	var song lrclibSong
	if err := s.api.GetJSON(ctx, SourceLRCLib, s.endpoints.LRCLib+"/get?"+q.Encode(), nil, &song); err != nil {
		return nil, lyricsError(err, artist, track)
	}

	plain := song.PlainLyrics
	if plain == "" && song.SyncedLyrics != "" {
		plain = plainFromSynced(song.SyncedLyrics)
	}
	if plain == "" {
		return nil, fmt.Errorf("%w: %s - %s", shared.ErrLyricsNotFound, artist, track)
	}

	return &models.LyricsResult{
		Lyrics:       &plain,
		Source:       SourceLRCLib,
		SyncedLyrics: song.SyncedLyrics,
		Artist:       song.ArtistName,
		Track:        song.TrackName,
	}, nil
}

// plainFromSynced strips the [mm:ss.xx] timestamps of LRC formatted lyrics.
func plainFromSynced(synced string) string {
	var lines []string
	for _, line := range strings.Split(synced, "\n") {
		if _, text, ok := strings.Cut(line, "]"); ok {
			lines = append(lines, strings.TrimSpace(text))
		}
	}
	return strings.Join(lines, "\n")
}

// Find tries Vagalume, lyrics.ovh and LRCLib in order and returns the first lyrics found.
func (s *LyricsService) Find(ctx context.Context, artist, track string) (*models.LyricsResult, error) {
	if err := requireSong(artist, track); err != nil {
		return nil, err
	}

	providers := []struct {
		name string
		fn   func(context.Context, string, string) (*models.LyricsResult, error)
	}{
		{SourceVagalume, s.Vagalume},
		{SourceLyricsOVH, s.LyricsOVH},
		{SourceLRCLib, s.LRCLib},
	}

	var errs []error
	for _, p := range providers {
		result, err := p.fn(ctx, artist, track)
		if err == nil {
			return result, nil
		}
		if ctx.Err() != nil {
			return nil, ctx.Err()
		}
		s.logger.Debug("lyrics provider missed", "provider", p.name, "error", err)
		errs = append(errs, err)
	}

	for _, err := range errs {
		if errors.Is(err, shared.ErrLyricsNotFound) {
			return nil, fmt.Errorf("%w: %s - %s", shared.ErrLyricsNotFound, artist, track)
		}
	}
	return nil, fmt.Errorf("%w: %w", shared.ErrServiceUnavailable, errors.Join(errs...))
}

func requireSong(artist, track string) error {
	if strings.TrimSpace(artist) == "" || strings.TrimSpace(track) == "" {
		return fmt.Errorf("%w: artist and track", shared.ErrMissingArgument)
	}
	return nil
}

// lyricsError maps an upstream error status to [shared.ErrLyricsNotFound].
// Transport failures wrap [shared.ErrServiceUnavailable].
func lyricsError(err error, artist, track string) error {
	if HTTPStatus(err) != 0 {
		return fmt.Errorf("%w: %s - %s", shared.ErrLyricsNotFound, artist, track)
	}
	return fmt.Errorf("%w: %w", shared.ErrServiceUnavailable, err)
}
