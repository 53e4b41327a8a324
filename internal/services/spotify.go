// Spotify Web API client
//
// Spotify API response types based on https://developer.spotify.com/documentation/web-api/reference/
package services

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/charmbracelet/log"
	"github.com/desertthunder/musicblah/internal/models"
	"github.com/desertthunder/musicblah/internal/shared"
	"golang.org/x/oauth2"
	"golang.org/x/oauth2/clientcredentials"
)

const (
	spotifyAuthURL  = "https://accounts.spotify.com/authorize"
	spotifyTokenURL = "https://accounts.spotify.com/api/token"
	spotifyBaseURL  = "https://api.spotify.com/v1"

	DefaultRedirectURI      = "http://localhost:3000/api/spotify/auth/callback"
	DefaultMarket           = "BR"
	DefaultTrendsPlaylistID = "6u9LZXR0uu3Lu5UD6mfZ4r"
)

// PlayerScopes are requested when a user links their Spotify account.
var PlayerScopes = []string{
	"user-read-currently-playing",
	"user-read-playback-state",
	"user-read-recently-played",
}

type followers struct {
	Total int `json:"total"`
}

type externalURLs struct {
	Spotify string `json:"spotify"`
}

// SpotifyImage represents an image resource.
type SpotifyImage struct {
	URL    string `json:"url"`
	Height int    `json:"height"`
	Width  int    `json:"width"`
}

// SpotifyArtist represents a Spotify artist.
type SpotifyArtist struct {
	ID           string         `json:"id"`
	Name         string         `json:"name"`
	Genres       []string       `json:"genres"`
	Images       []SpotifyImage `json:"images"`
	Popularity   int            `json:"popularity"`
	Followers    followers      `json:"followers"`
	ExternalURLs externalURLs   `json:"external_urls"`
	URI          string         `json:"uri"`
}

// SpotifyAlbum represents a Spotify album.
type SpotifyAlbum struct {
	ID           string          `json:"id"`
	Name         string          `json:"name"`
	AlbumType    string          `json:"album_type"`
	Artists      []SpotifyArtist `json:"artists"`
	ReleaseDate  string          `json:"release_date"`
	TotalTracks  int             `json:"total_tracks"`
	Images       []SpotifyImage  `json:"images"`
	ExternalURLs externalURLs    `json:"external_urls"`
	URI          string          `json:"uri"`
}

// SpotifyTrack represents a Spotify track.
type SpotifyTrack struct {
	ID           string          `json:"id"`
	Name         string          `json:"name"`
	Artists      []SpotifyArtist `json:"artists"`
	Album        SpotifyAlbum    `json:"album"`
	DurationMS   int             `json:"duration_ms"`
	Explicit     bool            `json:"explicit"`
	Popularity   int             `json:"popularity"`
	PreviewURL   string          `json:"preview_url"`
	ExternalURLs externalURLs    `json:"external_urls"`
	URI          string          `json:"uri"`
}

// primaryArtist returns the first credited artist, or a zero value.
func (t SpotifyTrack) primaryArtist() SpotifyArtist {
	if len(t.Artists) == 0 {
		return SpotifyArtist{}
	}
	return t.Artists[0]
}

func (a SpotifyAlbum) primaryArtist() SpotifyArtist {
	if len(a.Artists) == 0 {
		return SpotifyArtist{}
	}
	return a.Artists[0]
}

// spotifyPage is a paginated list of items.
type spotifyPage[T any] struct {
	Items  []T     `json:"items"`
	Total  int     `json:"total"`
	Limit  int     `json:"limit"`
	Offset int     `json:"offset"`
	Next   *string `json:"next"`
}

type spotifySearch struct {
	Tracks  *spotifyPage[SpotifyTrack]  `json:"tracks"`
	Albums  *spotifyPage[SpotifyAlbum]  `json:"albums"`
	Artists *spotifyPage[SpotifyArtist] `json:"artists"`
}

type spotifyPlaylistItem struct {
	Track *SpotifyTrack `json:"track"`
}

type spotifyCurrentlyPlaying struct {
	IsPlaying            bool            `json:"is_playing"`
	ProgressMS           int             `json:"progress_ms"`
	CurrentlyPlayingType string          `json:"currently_playing_type"`
	Item                 json.RawMessage `json:"item"`
}

var spotifySentinels = map[int]error{
	http.StatusUnauthorized:    shared.ErrTokenExpired,
	http.StatusForbidden:       shared.ErrForbidden,
	http.StatusNotFound:        shared.ErrNotFound,
	http.StatusTooManyRequests: shared.ErrRateLimited,
}

// SpotifyService talks to the Spotify Web API.
//
// Catalog lookups use an app token from the client credentials flow, refreshed by [oauth2] as needed.
// Player calls take the user's access token explicitly; linking and refreshing user tokens goes through config.
type SpotifyService struct {
	config     *oauth2.Config
	app        oauth2.TokenSource
	httpClient *http.Client
	baseURL    string
	market     string
	playlistID string
	logger     *log.Logger
}

// SpotifyOption customizes a [SpotifyService].
type SpotifyOption func(*spotifyOptions)

type spotifyOptions struct {
	baseURL, authURL, tokenURL string
	httpClient                 *http.Client
	catalog                    shared.CatalogConfig
	logger                     *log.Logger
}

// WithSpotifyEndpoints points the service at different API, authorize and token URLs.
func WithSpotifyEndpoints(apiURL, authURL, tokenURL string) SpotifyOption {
	return func(o *spotifyOptions) {
		o.baseURL, o.authURL, o.tokenURL = strings.TrimSuffix(apiURL, "/"), authURL, tokenURL
	}
}

// WithHTTPClient sets the client used for API and token requests.
func WithHTTPClient(c *http.Client) SpotifyOption {
	return func(o *spotifyOptions) { o.httpClient = c }
}

// WithCatalogConfig sets the market and trends playlist.
func WithCatalogConfig(c shared.CatalogConfig) SpotifyOption {
	return func(o *spotifyOptions) { o.catalog = c }
}

// WithSpotifyLogger sets the logger for upstream failures that are swallowed.
func WithSpotifyLogger(l *log.Logger) SpotifyOption {
	return func(o *spotifyOptions) { o.logger = l }
}

// NewSpotifyService creates a new Spotify service with the given app credentials.
func NewSpotifyService(creds shared.SpotifyConfig, opts ...SpotifyOption) (*SpotifyService, error) {
	if creds.ClientID == "" {
		return nil, fmt.Errorf("%w: missing spotify client_id", shared.ErrMissingCredentials)
	}
	if creds.ClientSecret == "" {
		return nil, fmt.Errorf("%w: missing spotify client_secret", shared.ErrMissingCredentials)
	}

	o := spotifyOptions{
		baseURL:    spotifyBaseURL,
		authURL:    spotifyAuthURL,
		tokenURL:   spotifyTokenURL,
		httpClient: &http.Client{Timeout: 15 * time.Second},
	}
	for _, opt := range opts {
		opt(&o)
	}
	if o.logger == nil {
		o.logger = log.New(io.Discard)
	}

	redirectURI := creds.RedirectURI
	if redirectURI == "" {
		redirectURI = DefaultRedirectURI
	}
	market := o.catalog.Market
	if market == "" {
		market = DefaultMarket
	}
	playlistID := o.catalog.TrendsPlaylistID
	if playlistID == "" {
		playlistID = DefaultTrendsPlaylistID
	}

	config := &oauth2.Config{
		ClientID:     creds.ClientID,
		ClientSecret: creds.ClientSecret,
		RedirectURL:  redirectURI,
		Scopes:       PlayerScopes,
		Endpoint: oauth2.Endpoint{
			AuthURL:   o.authURL,
			TokenURL:  o.tokenURL,
			AuthStyle: oauth2.AuthStyleInHeader,
		},
	}

	appConfig := &clientcredentials.Config{
		ClientID:     creds.ClientID,
		ClientSecret: creds.ClientSecret,
		TokenURL:     o.tokenURL,
		AuthStyle:    oauth2.AuthStyleInHeader,
	}

	s := &SpotifyService{
		config:     config,
		httpClient: o.httpClient,
		baseURL:    o.baseURL,
		market:     market,
		playlistID: playlistID,
		logger:     o.logger,
	}
	s.app = appConfig.TokenSource(s.oauthContext(context.Background()))
	return s, nil
}

// Name identifies the service in logs and errors.
func (s *SpotifyService) Name() string {
	return "Spotify"
}

// oauthContext makes [oauth2] token requests go through the service's HTTP client.
func (s *SpotifyService) oauthContext(ctx context.Context) context.Context {
	return context.WithValue(ctx, oauth2.HTTPClient, s.httpClient)
}

// AuthURL returns the OAuth2 authorization URL for linking a user's account.
func (s *SpotifyService) AuthURL(state string) string {
	return s.config.AuthCodeURL(state)
}

// Exchange trades an authorization code for user tokens.
func (s *SpotifyService) Exchange(ctx context.Context, code string) (*oauth2.Token, error) {
	if code == "" {
		return nil, fmt.Errorf("%w: authorization code", shared.ErrMissingArgument)
	}

	token, err := s.config.Exchange(s.oauthContext(ctx), code)
	if err != nil {
		return nil, fmt.Errorf("%w: failed to exchange auth code: %v", shared.ErrAuthFailed, err)
	}
	return token, nil
}

// Refresh gets a new access token. The old refresh token is kept when Spotify does not rotate it.
func (s *SpotifyService) Refresh(ctx context.Context, refreshToken string) (*oauth2.Token, error) {
	if refreshToken == "" {
		return nil, shared.ErrNoRefreshToken
	}

	src := s.config.TokenSource(s.oauthContext(ctx), &oauth2.Token{RefreshToken: refreshToken})
	token, err := src.Token()
	if err != nil {
		return nil, fmt.Errorf("%w: %v", shared.ErrRefreshFailed, err)
	}
	if token.RefreshToken == "" {
		token.RefreshToken = refreshToken
	}
	return token, nil
}

// CurrentlyPlaying fetches what the token's owner is playing.
//
// Nothing playing (204) is not an error. Podcasts and other non-track items come back without a track but with their type.
// An expired or revoked token yields [shared.ErrTokenExpired].
func (s *SpotifyService) CurrentlyPlaying(ctx context.Context, accessToken string) (*models.NowPlaying, error) {
	if accessToken == "" {
		return nil, shared.ErrNotAuthenticated
	}

	var cp spotifyCurrentlyPlaying
	status, err := s.doRequest(ctx, accessToken, "/me/player/currently-playing", nil, &cp)
	if err != nil {
		return nil, err
	}

	now := time.Now().UTC()
	if status == http.StatusNoContent {
		return &models.NowPlaying{UpdatedAt: now}, nil
	}

	if cp.CurrentlyPlayingType != "track" || len(cp.Item) == 0 || string(cp.Item) == "null" {
		return &models.NowPlaying{IsPlaying: cp.IsPlaying, Type: cp.CurrentlyPlayingType, UpdatedAt: now}, nil
	}

	var track SpotifyTrack
	if err := json.Unmarshal(cp.Item, &track); err != nil {
		return nil, fmt.Errorf("failed to decode currently playing item: %w", err)
	}

	names := make([]string, 0, len(track.Artists))
	for _, a := range track.Artists {
		names = append(names, a.Name)
	}

	return &models.NowPlaying{
		IsPlaying:  cp.IsPlaying,
		ProgressMs: cp.ProgressMS,
		Type:       cp.CurrentlyPlayingType,
		UpdatedAt:  now,
		Track: &models.PlayingTrack{
			ID:         track.ID,
			Name:       track.Name,
			Artist:     strings.Join(names, ", "),
			ArtistID:   track.primaryArtist().ID,
			Album:      track.Album.Name,
			AlbumID:    track.Album.ID,
			Image:      pickImage(track.Album.Images, 0),
			DurationMs: track.DurationMS,
			PreviewURL: track.PreviewURL,
			SpotifyURL: track.ExternalURLs.Spotify,
		},
	}, nil
}

// doRequest performs an authenticated GET request to the Spotify API and returns the status code.
//
// Non-2xx statuses are returned as a [StatusError].
func (s *SpotifyService) doRequest(ctx context.Context, accessToken, endpoint string, query url.Values, result any) (int, error) {
	apiURL := s.baseURL + endpoint
	if len(query) > 0 {
		apiURL += "?" + query.Encode()
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, apiURL, nil)
	if err != nil {
		return 0, fmt.Errorf("failed to create request: %w", err)
	}

	req.Header.Set("Authorization", "Bearer "+accessToken)
	req.Header.Set("Accept", "application/json")

	resp, err := s.httpClient.Do(req)
	if err != nil {
		return 0, fmt.Errorf("%w: spotify request failed: %v", shared.ErrServiceUnavailable, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusNoContent {
		return resp.StatusCode, nil
	}
	if !isSuccess(resp.StatusCode) {
		return resp.StatusCode, statusError("spotify", resp.StatusCode, spotifySentinels, shared.ErrAPIRequest)
	}

	if result != nil {
		if err := json.NewDecoder(resp.Body).Decode(result); err != nil && !errors.Is(err, io.EOF) {
			return resp.StatusCode, fmt.Errorf("failed to decode response: %w", err)
		}
	}
	return resp.StatusCode, nil
}

// appToken returns a valid client credentials access token.
func (s *SpotifyService) appToken() (string, error) {
	token, err := s.app.Token()
	if err != nil {
		return "", fmt.Errorf("%w: spotify client credentials: %v", shared.ErrAuthFailed, err)
	}
	return token.AccessToken, nil
}

// get performs a catalog request with the app token.
func (s *SpotifyService) get(ctx context.Context, endpoint string, query url.Values, result any) error {
	token, err := s.appToken()
	if err != nil {
		return err
	}
	_, err = s.doRequest(ctx, token, endpoint, query, result)
	return err
}

// pickImage returns the URL of the first image present at one of the given indices.
func pickImage(images []SpotifyImage, indices ...int) string {
	for _, i := range indices {
		if i >= 0 && i < len(images) && images[i].URL != "" {
			return images[i].URL
		}
	}
	return ""
}
