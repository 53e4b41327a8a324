package web

import (
	"cmp"
	"fmt"
	"math"
	"net/http"
	"slices"
	"strings"

	"github.com/desertthunder/musicblah/internal/models"
	"github.com/desertthunder/musicblah/internal/repositories"
	"github.com/desertthunder/musicblah/internal/server"
)

const (
	topArtistsSize   = 5
	recentTracksSize = 3
)

// ArtistCount is how many reviews a user wrote about one artist.
type ArtistCount struct {
	Name  string `json:"name"`
	Count int    `json:"count"`
}

// Badge is an achievement shown on a profile.
type Badge struct {
	ID          string `json:"id"`
	Name        string `json:"name"`
	Icon        string `json:"icon"`
	Description string `json:"description"`
}

// MusicStats summarizes a user's latest reviews.
type MusicStats struct {
	TotalReviews  int                 `json:"totalReviews"`
	AverageRating *float64            `json:"averageRating"`
	TopArtists    []ArtistCount       `json:"topArtists"`
	ArtistCount   int                 `json:"artistCount"`
	RecentTracks  []string            `json:"recentTracks"`
	Genres        []models.GenreCount `json:"genres"`
	Badges        []Badge             `json:"badges"`
}

type genreBadge struct {
	key, name, icon string
}

// genreBadges are matched in order against the user's top genre.
var genreBadges = []genreBadge{
	{"pop", "Pop Star", "SparklesIcon"},
	{"rock", "Rockeiro", "FireIcon"},
	{"hip hop", "Hip Hop Head", "MicrophoneIcon"},
	{"rap", "Rap God", "MicrophoneIcon"},
	{"mpb", "MPB Roots", "HeartIcon"},
	{"sertanejo", "Sertanejo", "HomeIcon"},
	{"funk", "Funkeiro", "SpeakerWaveIcon"},
	{"eletronica", "Eletro", "BoltIcon"},
	{"electronic", "Eletro", "BoltIcon"},
	{"indie", "Indie Soul", "MusicalNoteIcon"},
	{"r&b", "R&B Lover", "HeartIcon"},
	{"jazz", "Jazzista", "MusicalNoteIcon"},
	{"classical", "Clássico", "AcademicCapIcon"},
	{"metal", "Metalhead", "FireIcon"},
	{"reggae", "Reggae Vibes", "SunIcon"},
	{"pagode", "Pagodeiro", "MusicalNoteIcon"},
	{"samba", "Sambista", "MusicalNoteIcon"},
	{"trap", "Trap Lord", "SpeakerWaveIcon"},
	{"k-pop", "K-Pop Stan", "SparklesIcon"},
	{"latin", "Latino", "SunIcon"},
}

// ComputeMusicStats aggregates reviews, newest first. Artists are listed in first-seen order so the catalog
// can be asked for their genres.
func ComputeMusicStats(reviews []*models.Post) (MusicStats, []string) {
	stats := MusicStats{
		TotalReviews: len(reviews),
		TopArtists:   []ArtistCount{},
		RecentTracks: []string{},
		Genres:       []models.GenreCount{},
		Badges:       []Badge{},
	}

	counts := make(map[string]int)
	var artists []string
	total, rated := 0, 0
	for _, p := range reviews {
		if name := p.ArtistName(); name != "" {
			if counts[name] == 0 {
				artists = append(artists, name)
			}
			counts[name]++
		}
		if p.Rating > 0 {
			total += p.Rating
			rated++
		}
		if p.Track != nil && p.Track.Name != "" && len(stats.RecentTracks) < recentTracksSize {
			stats.RecentTracks = append(stats.RecentTracks, p.Track.Name)
		}
	}

	for _, name := range artists {
		stats.TopArtists = append(stats.TopArtists, ArtistCount{Name: name, Count: counts[name]})
	}
	slices.SortStableFunc(stats.TopArtists, func(a, b ArtistCount) int { return cmp.Compare(b.Count, a.Count) })
	stats.TopArtists = stats.TopArtists[:min(len(stats.TopArtists), topArtistsSize)]
	stats.ArtistCount = len(artists)

	if rated > 0 {
		avg := math.Round(float64(total)/float64(rated)*10) / 10
		stats.AverageRating = &avg
	}
	return stats, artists
}

// awardBadges sets the profile badges. Genres must be sorted by count.
func (s *MusicStats) awardBadges() {
	var badges []Badge
	switch n := s.TotalReviews; {
	case n >= 50:
		badges = append(badges, Badge{"expert", "Expert Musical", "AcademicCapIcon", "50+ reviews"})
	case n >= 20:
		badges = append(badges, Badge{"melomano", "Melômano", "MusicalNoteIcon", "20+ reviews"})
	case n >= 5:
		badges = append(badges, Badge{"descobridor", "Descobridor", "MagnifyingGlassIcon", "5+ reviews"})
	}

	if avg := s.AverageRating; avg != nil {
		switch {
		case *avg <= 2.5:
			badges = append(badges, Badge{"critico", "Crítico Exigente", "HandThumbDownIcon", "Nota média baixa"})
		case *avg >= 4.5:
			badges = append(badges, Badge{"entusiasta", "Entusiasta", "HeartIcon", "Ama quase tudo!"})
		case *avg >= 3.5:
			badges = append(badges, Badge{"equilibrado", "Ouvido Apurado", "ScaleIcon", "Avaliações equilibradas"})
		}
	}

	if s.ArtistCount >= 10 {
		badges = append(badges, Badge{"ecletico", "Eclético", "GlobeAltIcon", "10+ artistas diferentes"})
	}

	if len(s.TopArtists) > 0 && s.TopArtists[0].Count >= 5 {
		top := s.TopArtists[0].Name
		badges = append(badges, Badge{"superfa", "Fã de " + top, "StarIcon", fmt.Sprintf("5+ reviews de %s", top)})
	}

	if len(s.Genres) > 0 {
		top := strings.ToLower(s.Genres[0].Name)
		for _, g := range genreBadges {
			if strings.Contains(top, g.key) {
				badges = append(badges, Badge{"genre-" + g.key, g.name, g.icon, "Curte " + s.Genres[0].Name})
				break
			}
		}
	}

	s.Badges = orEmpty(badges)
}

func (a *App) musicStats(w http.ResponseWriter, r *http.Request) {
	reviews, err := a.posts.ReviewsByUser(r.PathValue("id"), repositories.RecentReviewWindow)
	if err != nil {
		a.fail(w, r, err, "Erro ao buscar estatísticas")
		return
	}

	stats, artists := ComputeMusicStats(reviews)
	if len(artists) > 0 {
		genres, err := a.catalog.ArtistGenres(r.Context(), artists)
		if err != nil {
			a.logger.Warn("genres unavailable for stats", "user", r.PathValue("id"), "error", err)
		} else {
			stats.Genres = orEmpty(genres)
		}
	}
	stats.awardBadges()

	server.WriteJSON(w, http.StatusOK, stats)
}
