package services

import (
	"context"
	"errors"
	"fmt"
	"net/url"
	"slices"
	"sort"
	"strconv"
	"strings"

	"github.com/desertthunder/musicblah/internal/formatter"
	"github.com/desertthunder/musicblah/internal/models"
	"github.com/desertthunder/musicblah/internal/shared"
	"golang.org/x/sync/errgroup"
)

// Search kinds accepted by [SpotifyService.Search].
const (
	SearchKindAll         = "all"
	SearchKindIndependent = "independent"
	SearchKindTrack       = "track"
	SearchKindAlbum       = "album"
)

const (
	searchTrackLimit = 10
	searchAlbumLimit = 6
	trackOnlyLimit   = 6

	maxGenreArtists = 10
	maxGenres       = 8
	trendsSize      = 5

	independentPopularity = 40
	independentMaxGenres  = 3
)

// Lookups fanned out per request run at most this many at a time.
const lookupConcurrency = 5

var indieGenres = []string{"indie", "lo-fi", "indie rock", "indie pop", "bedroom pop", "indie folk"}

// IsIndependent reports whether a track looks independently released:
// its artist has an indie-like genre, or the track is unpopular and the artist barely tagged.
func IsIndependent(popularity int, genres []string) bool {
	for _, g := range genres {
		g = strings.ToLower(g)
		for _, indie := range indieGenres {
			if strings.Contains(g, indie) {
				return true
			}
		}
	}
	return popularity < independentPopularity && len(genres) < independentMaxGenres
}

// Search queries the catalog.
//
// all and independent search tracks and albums concurrently, track searches tracks only and anything else albums only.
// independent keeps tracks and the items flagged independent.
func (s *SpotifyService) Search(ctx context.Context, query, kind string) ([]models.SearchResult, error) {
	if strings.TrimSpace(query) == "" {
		return nil, fmt.Errorf("%w: empty search query", shared.ErrMissingArgument)
	}

	switch kind {
	case "", SearchKindAll, SearchKindIndependent:
		var (
			tracks []SpotifyTrack
			albums []SpotifyAlbum
		)

		g, gctx := errgroup.WithContext(ctx)
		g.Go(func() error {
			var err error
			tracks, err = s.searchTracks(gctx, query, searchTrackLimit)
			return err
		})
		g.Go(func() error {
			var err error
			albums, err = s.searchAlbums(gctx, query, searchAlbumLimit)
			return err
		})
		if err := g.Wait(); err != nil {
			return nil, err
		}

		results := s.trackResults(ctx, tracks)
		for _, a := range albums {
			results = append(results, albumResult(a))
		}

		if kind == SearchKindIndependent {
			results = slices.DeleteFunc(results, func(r models.SearchResult) bool {
				return !r.IsIndependent && r.Type != models.ItemTrack
			})
		}
		return results, nil
	case SearchKindTrack:
		tracks, err := s.searchTracks(ctx, query, trackOnlyLimit)
		if err != nil {
			return nil, err
		}
		return s.trackResults(ctx, tracks), nil
	default:
		albums, err := s.searchAlbums(ctx, query, searchAlbumLimit)
		if err != nil {
			return nil, err
		}
		results := make([]models.SearchResult, 0, len(albums))
		for _, a := range albums {
			results = append(results, albumResult(a))
		}
		return results, nil
	}
}

// trackResults converts tracks and flags independent ones.
//
// Each distinct primary artist is looked up once; lookup failures leave the track flagged not independent.
func (s *SpotifyService) trackResults(ctx context.Context, tracks []SpotifyTrack) []models.SearchResult {
	index := map[string]int{}
	var ids []string
	for _, t := range tracks {
		id := t.primaryArtist().ID
		if _, ok := index[id]; id != "" && !ok {
			index[id] = len(ids)
			ids = append(ids, id)
		}
	}

	artists := make([]*SpotifyArtist, len(ids))
	var g errgroup.Group
	g.SetLimit(lookupConcurrency)
	for i, id := range ids {
		g.Go(func() error {
			var a SpotifyArtist
			if err := s.get(ctx, "/artists/"+url.PathEscape(id), nil, &a); err != nil {
				s.logger.Debug("artist lookup failed", "artist", id, "error", err)
				return nil
			}
			artists[i] = &a
			return nil
		})
	}
	_ = g.Wait()

	results := make([]models.SearchResult, 0, len(tracks))
	for _, t := range tracks {
		artist := t.primaryArtist()
		independent := false
		if i, ok := index[artist.ID]; ok && artists[i] != nil {
			independent = IsIndependent(t.Popularity, artists[i].Genres)
		}

		results = append(results, models.SearchResult{
			Type:          models.ItemTrack,
			ID:            t.ID,
			Name:          t.Name,
			Artist:        artist.Name,
			ArtistID:      artist.ID,
			Album:         t.Album.Name,
			Image:         pickImage(t.Album.Images, 1, 0),
			Duration:      formatter.Duration(t.DurationMS),
			PreviewURL:    t.PreviewURL,
			IsIndependent: independent,
			Popularity:    t.Popularity,
		})
	}
	return results
}

func albumResult(a SpotifyAlbum) models.SearchResult {
	artist := a.primaryArtist()
	return models.SearchResult{
		Type:        models.ItemAlbum,
		ID:          a.ID,
		Name:        a.Name,
		Artist:      artist.Name,
		ArtistID:    artist.ID,
		Image:       pickImage(a.Images, 1, 0),
		Year:        formatter.ReleaseYear(a.ReleaseDate),
		URL:         a.ExternalURLs.Spotify,
		TotalTracks: a.TotalTracks,
	}
}

func (s *SpotifyService) search(ctx context.Context, query, kind string, limit int, result *spotifySearch) error {
	q := url.Values{}
	q.Set("q", query)
	q.Set("type", kind)
	q.Set("limit", strconv.Itoa(limit))
	return s.get(ctx, "/search", q, result)
}

func (s *SpotifyService) searchTracks(ctx context.Context, query string, limit int) ([]SpotifyTrack, error) {
	var resp spotifySearch
	if err := s.search(ctx, query, "track", limit, &resp); err != nil {
		return nil, err
	}
	if resp.Tracks == nil {
		return nil, nil
	}
	return resp.Tracks.Items, nil
}

func (s *SpotifyService) searchAlbums(ctx context.Context, query string, limit int) ([]SpotifyAlbum, error) {
	var resp spotifySearch
	if err := s.search(ctx, query, "album", limit, &resp); err != nil {
		return nil, err
	}
	if resp.Albums == nil {
		return nil, nil
	}
	return resp.Albums.Items, nil
}

// searchArtist returns the first artist matching name.
func (s *SpotifyService) searchArtist(ctx context.Context, name string) (*SpotifyArtist, error) {
	var resp spotifySearch
	if err := s.search(ctx, name, "artist", 1, &resp); err != nil {
		return nil, err
	}
	if resp.Artists == nil || len(resp.Artists.Items) == 0 || resp.Artists.Items[0].ID == "" {
		return nil, fmt.Errorf("%w: %s", shared.ErrArtistNotFound, name)
	}
	return &resp.Artists.Items[0], nil
}

// SearchTrack finds a track with a field filtered query, then with a plain one.
func (s *SpotifyService) SearchTrack(ctx context.Context, name, artist string) (*models.SearchResult, error) {
	queries := []string{
		fmt.Sprintf("track:%s artist:%s", name, artist),
		name + " " + artist,
	}

	for _, q := range queries {
		tracks, err := s.searchTracks(ctx, q, 1)
		if err != nil {
			return nil, err
		}
		if len(tracks) == 0 {
			continue
		}

		t := tracks[0]
		result := &models.SearchResult{
			Type:       models.ItemTrack,
			ID:         t.ID,
			Name:       t.Name,
			Artist:     artist,
			Album:      t.Album.Name,
			Image:      pickImage(t.Album.Images, 0),
			Duration:   formatter.Duration(t.DurationMS),
			PreviewURL: t.PreviewURL,
			URL:        t.ExternalURLs.Spotify,
			Popularity: t.Popularity,
		}
		if a := t.primaryArtist(); a.Name != "" {
			result.Artist = a.Name
			result.ArtistID = a.ID
		}
		return result, nil
	}

	return nil, fmt.Errorf("%w: %s by %s", shared.ErrTrackNotFound, name, artist)
}

// Artist fetches an artist profile.
func (s *SpotifyService) Artist(ctx context.Context, id string) (*models.Artist, error) {
	if id == "" {
		return nil, fmt.Errorf("%w: artist id", shared.ErrMissingArgument)
	}

	var a SpotifyArtist
	if err := s.get(ctx, "/artists/"+url.PathEscape(id), nil, &a); err != nil {
		if errors.Is(err, shared.ErrNotFound) {
			return nil, fmt.Errorf("%w: %s", shared.ErrArtistNotFound, id)
		}
		return nil, err
	}

	genres := a.Genres
	if genres == nil {
		genres = []string{}
	}

	return &models.Artist{
		ID:             a.ID,
		Name:           a.Name,
		Image:          pickImage(a.Images, 0),
		Genres:         genres,
		Popularity:     a.Popularity,
		FollowersCount: a.Followers.Total,
		SpotifyURL:     a.ExternalURLs.Spotify,
	}, nil
}

// ArtistTopTracks lists an artist's most played tracks in the configured market.
func (s *SpotifyService) ArtistTopTracks(ctx context.Context, id string) ([]models.TopTrack, error) {
	if id == "" {
		return nil, fmt.Errorf("%w: artist id", shared.ErrMissingArgument)
	}

	var resp struct {
		Tracks []SpotifyTrack `json:"tracks"`
	}
	q := url.Values{"market": {s.market}}
	if err := s.get(ctx, "/artists/"+url.PathEscape(id)+"/top-tracks", q, &resp); err != nil {
		return nil, err
	}

	tracks := make([]models.TopTrack, 0, len(resp.Tracks))
	for _, t := range resp.Tracks {
		tracks = append(tracks, models.TopTrack{
			ID:         t.ID,
			Name:       t.Name,
			Image:      pickImage(t.Album.Images, 0),
			PreviewURL: t.PreviewURL,
			DurationMs: t.DurationMS,
			Popularity: t.Popularity,
			AlbumName:  t.Album.Name,
		})
	}
	return tracks, nil
}

// ArtistAlbums pages through an artist's albums, singles and EPs.
//
// Later entries whose name repeats an earlier one, ignoring case, are dropped from the page.
func (s *SpotifyService) ArtistAlbums(ctx context.Context, id string, limit, offset int) (*models.AlbumPage, error) {
	if id == "" {
		return nil, fmt.Errorf("%w: artist id", shared.ErrMissingArgument)
	}
	if limit <= 0 {
		limit = 20
	}
	limit = min(limit, 50)
	offset = max(offset, 0)

	q := url.Values{}
	q.Set("include_groups", "album,single,ep")
	q.Set("limit", strconv.Itoa(limit))
	q.Set("offset", strconv.Itoa(offset))
	q.Set("market", s.market)

	var resp spotifyPage[SpotifyAlbum]
	if err := s.get(ctx, "/artists/"+url.PathEscape(id)+"/albums", q, &resp); err != nil {
		return nil, err
	}

	seen := map[string]bool{}
	albums := make([]models.ArtistAlbum, 0, len(resp.Items))
	for _, a := range resp.Items {
		key := strings.ToLower(a.Name)
		if seen[key] {
			continue
		}
		seen[key] = true

		albums = append(albums, models.ArtistAlbum{
			ID:          a.ID,
			Name:        a.Name,
			Image:       pickImage(a.Images, 0),
			ReleaseDate: a.ReleaseDate,
			TotalTracks: a.TotalTracks,
			AlbumType:   a.AlbumType,
			SpotifyURL:  a.ExternalURLs.Spotify,
			ArtistID:    id,
		})
	}

	return &models.AlbumPage{Albums: albums, Total: resp.Total, HasMore: resp.Next != nil}, nil
}

// ArtistGenres resolves up to ten artist names and counts their title-cased genres.
//
// Names that cannot be resolved are skipped. The eight most frequent genres are returned.
func (s *SpotifyService) ArtistGenres(ctx context.Context, names []string) ([]models.GenreCount, error) {
	if len(names) == 0 {
		return nil, fmt.Errorf("%w: artists", shared.ErrMissingArgument)
	}
	if _, err := s.appToken(); err != nil {
		return nil, err
	}
	names = names[:min(len(names), maxGenreArtists)]

	genres := make([][]string, len(names))
	var g errgroup.Group
	g.SetLimit(lookupConcurrency)
	for i, name := range names {
		g.Go(func() error {
			a, err := s.searchArtist(ctx, name)
			if err != nil {
				s.logger.Debug("genre lookup failed", "artist", name, "error", err)
				return nil
			}
			genres[i] = a.Genres
			return nil
		})
	}
	_ = g.Wait()

	counts := map[string]int{}
	var order []string
	for _, gs := range genres {
		for _, genre := range gs {
			name := formatter.TitleWords(genre)
			if counts[name] == 0 {
				order = append(order, name)
			}
			counts[name]++
		}
	}

	result := make([]models.GenreCount, 0, len(order))
	for _, name := range order {
		result = append(result, models.GenreCount{Name: name, Count: counts[name]})
	}
	sort.SliceStable(result, func(i, j int) bool { return result[i].Count > result[j].Count })

	return result[:min(len(result), maxGenres)], nil
}

// Explore resolves the curated artists of a genre key, most popular first.
//
// Unknown keys yield an empty list. Artists that cannot be resolved are dropped.
func (s *SpotifyService) Explore(ctx context.Context, genre string) ([]models.ExploreArtist, error) {
	names, ok := ExploreGenres[genre]
	if !ok {
		return []models.ExploreArtist{}, nil
	}
	if _, err := s.appToken(); err != nil {
		return nil, err
	}

	found := make([]*SpotifyArtist, len(names))
	var g errgroup.Group
	g.SetLimit(lookupConcurrency)
	for i, name := range names {
		g.Go(func() error {
			a, err := s.searchArtist(ctx, name)
			if err != nil {
				s.logger.Debug("explore lookup failed", "artist", name, "error", err)
				return nil
			}
			found[i] = a
			return nil
		})
	}
	_ = g.Wait()

	artists := make([]models.ExploreArtist, 0, len(found))
	for _, a := range found {
		if a == nil {
			continue
		}
		artists = append(artists, models.ExploreArtist{
			ID:         a.ID,
			Name:       a.Name,
			Username:   a.ID,
			Listeners:  formatter.CompactCount(a.Followers.Total),
			Image:      pickImage(a.Images, 0),
			Popularity: a.Popularity,
		})
	}
	sort.SliceStable(artists, func(i, j int) bool { return artists[i].Popularity > artists[j].Popularity })

	return artists, nil
}

// Trends lists the first entries of the trends playlist, skipping removed tracks.
func (s *SpotifyService) Trends(ctx context.Context) ([]models.TrendTrack, error) {
	q := url.Values{"limit": {strconv.Itoa(trendsSize)}, "market": {s.market}}

	var resp spotifyPage[spotifyPlaylistItem]
	if err := s.get(ctx, "/playlists/"+url.PathEscape(s.playlistID)+"/tracks", q, &resp); err != nil {
		return nil, err
	}

	items := resp.Items[:min(len(resp.Items), trendsSize)]
	tracks := make([]models.TrendTrack, 0, len(items))
	for _, item := range items {
		if item.Track == nil || item.Track.ID == "" {
			continue
		}
		t := item.Track
		tracks = append(tracks, models.TrendTrack{
			ID:         t.ID,
			Name:       t.Name,
			Artist:     t.primaryArtist().Name,
			Image:      pickImage(t.Album.Images, 2),
			URL:        t.ExternalURLs.Spotify,
			PreviewURL: t.PreviewURL,
		})
	}
	return tracks, nil
}
