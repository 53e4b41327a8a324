package main

import (
	"context"
	"fmt"
	"maps"
	"slices"
	"strings"

	"github.com/desertthunder/musicblah/internal/formatter"
	"github.com/desertthunder/musicblah/internal/models"
	"github.com/desertthunder/musicblah/internal/repositories"
	"github.com/desertthunder/musicblah/internal/services"
	"github.com/desertthunder/musicblah/internal/shared"
	"github.com/urfave/cli/v3"
)

// recommendReviewLimit caps how many stored reviews feed a recommendation.
const recommendReviewLimit = 20

func (r *Runner) catalog() (services.Catalog, error) {
	if r.services.Catalog == nil {
		return nil, fmt.Errorf("%w: Spotify service not initialized", shared.ErrServiceUnavailable)
	}
	return r.services.Catalog, nil
}

// CatalogSearch searches tracks and albums.
func (r *Runner) CatalogSearch(ctx context.Context, cmd *cli.Command) error {
	query := strings.TrimSpace(cmd.StringArg("query"))
	if query == "" {
		return fmt.Errorf("%w: search query is required", shared.ErrMissingArgument)
	}

	catalog, err := r.catalog()
	if err != nil {
		return err
	}

	r.logger.Debug("searching catalog", "query", query, "type", cmd.String("type"))
	results, err := catalog.Search(ctx, query, cmd.String("type"))
	if err != nil {
		return fmt.Errorf("search failed: %w", err)
	}
	if limit := cmd.Int("limit"); limit > 0 && limit < len(results) {
		results = results[:limit]
	}

	if cmd.Bool("json") {
		return r.writeJSON(results, cmd.Bool("pretty"))
	}

	r.writePlain("Found %d results for %q:\n\n", len(results), query)
	for i, res := range results {
		r.writePlain("%d. [%s] %s - %s\n", i+1, res.Type, res.Artist, res.Name)
		switch res.Type {
		case models.ItemTrack:
			r.writePlain("   Album: %s • %s\n", res.Album, res.Duration)
		case models.ItemAlbum:
			r.writePlain("   Year: %s • %d tracks\n", res.Year, res.TotalTracks)
		}
		if res.IsIndependent {
			r.writePlain("   Independent\n")
		}
		r.writePlain("   ID: %s\n\n", res.ID)
	}
	return nil
}

// CatalogArtist shows an artist with their top tracks and first page of albums.
func (r *Runner) CatalogArtist(ctx context.Context, cmd *cli.Command) error {
	id := strings.TrimSpace(cmd.StringArg("id"))
	if id == "" {
		return fmt.Errorf("%w: artist id is required", shared.ErrMissingArgument)
	}

	catalog, err := r.catalog()
	if err != nil {
		return err
	}

	artist, err := catalog.Artist(ctx, id)
	if err != nil {
		return fmt.Errorf("failed to fetch artist: %w", err)
	}
	top, err := catalog.ArtistTopTracks(ctx, id)
	if err != nil {
		return fmt.Errorf("failed to fetch top tracks: %w", err)
	}
	albums, err := catalog.ArtistAlbums(ctx, id, 20, 0)
	if err != nil {
		return fmt.Errorf("failed to fetch albums: %w", err)
	}

	if cmd.Bool("json") {
		return r.writeJSON(struct {
			Artist    *models.Artist    `json:"artist"`
			TopTracks []models.TopTrack `json:"topTracks"`
			Albums    *models.AlbumPage `json:"albums"`
		}{artist, top, albums}, cmd.Bool("pretty"))
	}

	r.writePlainHeader(artist.Name)
	r.writePlain("Followers: %s • Popularity: %d\n", formatter.CompactCount(artist.FollowersCount), artist.Popularity)
	if len(artist.Genres) > 0 {
		genres := make([]string, len(artist.Genres))
		for i, g := range artist.Genres {
			genres[i] = formatter.TitleWords(g)
		}
		r.writePlain("Genres: %s\n", strings.Join(genres, ", "))
	}

	r.writePlainln("Top tracks:")
	for i, t := range top {
		r.writePlain("%2d. %s (%s) - %s\n", i+1, t.Name, formatter.Duration(t.DurationMs), t.AlbumName)
	}

	r.writePlainln("Albums (%d):", albums.Total)
	for _, a := range albums.Albums {
		r.writePlain("  %s  %s [%s, %d tracks]\n", formatter.ReleaseYear(a.ReleaseDate), a.Name, a.AlbumType, a.TotalTracks)
	}
	return nil
}

// CatalogTrends lists the trending playlist.
func (r *Runner) CatalogTrends(ctx context.Context, cmd *cli.Command) error {
	catalog, err := r.catalog()
	if err != nil {
		return err
	}

	tracks, err := catalog.Trends(ctx)
	if err != nil {
		return fmt.Errorf("failed to fetch trends: %w", err)
	}

	if cmd.Bool("json") {
		return r.writeJSON(tracks, cmd.Bool("pretty"))
	}

	r.writePlainHeader("Em alta")
	for i, t := range tracks {
		r.writePlain("%2d. %s - %s\n", i+1, t.Artist, t.Name)
	}
	return nil
}

// CatalogExplore lists the curated artists of a genre.
func (r *Runner) CatalogExplore(ctx context.Context, cmd *cli.Command) error {
	genre := strings.TrimSpace(cmd.StringArg("genre"))
	if genre == "" {
		keys := slices.Sorted(maps.Keys(services.ExploreGenres))
		return fmt.Errorf("%w: genre is required (one of %s)", shared.ErrMissingArgument, strings.Join(keys, ", "))
	}

	catalog, err := r.catalog()
	if err != nil {
		return err
	}

	artists, err := catalog.Explore(ctx, genre)
	if err != nil {
		return fmt.Errorf("failed to explore %s: %w", genre, err)
	}

	if cmd.Bool("json") {
		return r.writeJSON(artists, cmd.Bool("pretty"))
	}

	r.writePlainHeader(formatter.TitleWords(genre))
	for i, a := range artists {
		r.writePlain("%2d. %s (%s) • %s listeners\n", i+1, a.Name, a.Username, a.Listeners)
	}
	return nil
}

// Lyrics finds lyrics through one provider or the whole chain.
func (r *Runner) Lyrics(ctx context.Context, cmd *cli.Command) error {
	finder := r.services.Lyrics
	if finder == nil {
		return fmt.Errorf("%w: lyrics service not initialized", shared.ErrServiceUnavailable)
	}

	lookups := map[string]func(context.Context, string, string) (*models.LyricsResult, error){
		"any":                    finder.Find,
		services.SourceLyricsOVH: finder.LyricsOVH,
		services.SourceVagalume:  finder.Vagalume,
		services.SourceGenius:    finder.Genius,
		services.SourceLRCLib:    finder.LRCLib,
	}
	source := cmd.String("source")
	lookup, ok := lookups[source]
	if !ok {
		return fmt.Errorf("%w: unknown lyrics source %q", shared.ErrInvalidFlag, source)
	}

	result, err := lookup(ctx, cmd.String("artist"), cmd.String("track"))
	if err != nil {
		return fmt.Errorf("lyrics lookup failed: %w", err)
	}

	if cmd.Bool("json") {
		return r.writeJSON(result, cmd.Bool("pretty"))
	}

	r.writePlainHeader(fmt.Sprintf("%s - %s", orDefault(result.Artist, cmd.String("artist")), orDefault(result.Track, cmd.String("track"))))
	if result.Lyrics != nil {
		r.writePlain("%s\n", *result.Lyrics)
	} else if result.Message != "" {
		r.writePlain("%s\n", result.Message)
	}
	if result.GeniusURL != "" {
		r.writePlainln("Genius: %s", result.GeniusURL)
	}
	r.writePlainln("Source: %s", result.Source)
	return nil
}

// Recommend suggests tracks from a user's stored reviews, or popular picks without one.
func (r *Runner) Recommend(ctx context.Context, cmd *cli.Command) error {
	recommender := r.services.Recommender
	if recommender == nil {
		return fmt.Errorf("%w: recommendation service not initialized", shared.ErrServiceUnavailable)
	}

	var reviews []services.ReviewInput
	if username := cmd.String("user"); username != "" {
		db, err := r.database()
		if err != nil {
			return err
		}
		user, err := repositories.NewUserRepository(db).GetByUsername(username)
		if err != nil {
			return fmt.Errorf("failed to find user %s: %w", username, err)
		}
		posts, err := repositories.NewPostRepository(db).ReviewsByUser(user.ID(), recommendReviewLimit)
		if err != nil {
			return fmt.Errorf("failed to load reviews: %w", err)
		}
		for _, p := range posts {
			reviews = append(reviews, services.ReviewInputFromPost(p))
		}
		r.logger.Debug("loaded reviews", "user", username, "count", len(reviews))
	}

	recs, err := recommender.Recommend(ctx, reviews)
	if err != nil {
		return fmt.Errorf("recommendation failed: %w", err)
	}

	if cmd.Bool("json") {
		return r.writeJSON(recs, cmd.Bool("pretty"))
	}

	r.writePlain("%s (%s)\n\n", recs.Message, recs.Source)
	for i, rec := range recs.Recommendations {
		r.writePlain("%d. %s - %s\n", i+1, rec.Artist, rec.Name)
		if rec.Reason != "" {
			r.writePlain("   %s\n", rec.Reason)
		}
	}
	return nil
}

func orDefault(s, def string) string {
	if s == "" {
		return def
	}
	return s
}
