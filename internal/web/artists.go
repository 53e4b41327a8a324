package web

import (
	"errors"
	"net/http"
	"strings"

	"github.com/desertthunder/musicblah/internal/models"
	"github.com/desertthunder/musicblah/internal/server"
	"github.com/desertthunder/musicblah/internal/shared"
)

// communityReviewLimit is how many reviews the artist page shows.
const communityReviewLimit = 10

type followArtistRequest struct {
	ArtistName  string   `json:"artistName"`
	ArtistImage string   `json:"artistImage"`
	Genres      []string `json:"genres"`
}

func (a *App) followArtist(w http.ResponseWriter, r *http.Request) {
	var req followArtistRequest
	if err := decode(r, &req); err != nil {
		a.fail(w, r, err, "Dados inválidos")
		return
	}

	f := models.NewFollowedArtist(0, currentUser(r), r.PathValue("id"), strings.TrimSpace(req.ArtistName))
	f.ArtistImage = req.ArtistImage
	f.Genres = req.Genres

	if err := a.artists.Create(f); err != nil {
		a.fail(w, r, err, "Erro ao seguir artista")
		return
	}
	server.WriteJSON(w, http.StatusCreated, newFollowedArtistView(f))
}

func (a *App) unfollowArtist(w http.ResponseWriter, r *http.Request) {
	if err := a.artists.Unfollow(currentUser(r), r.PathValue("id")); err != nil {
		a.fail(w, r, err, "Artista não seguido")
		return
	}
	server.WriteJSON(w, http.StatusOK, map[string]bool{"following": false})
}

func (a *App) artistFollowStatus(w http.ResponseWriter, r *http.Request) {
	f, err := a.artists.Find(currentUser(r), r.PathValue("id"))
	if errors.Is(err, shared.ErrNotFound) {
		server.WriteJSON(w, http.StatusOK, map[string]any{"following": false})
		return
	}
	if err != nil {
		a.fail(w, r, err, "Erro ao buscar artista")
		return
	}
	server.WriteJSON(w, http.StatusOK, map[string]any{"following": true, "artist": newFollowedArtistView(f)})
}

func (a *App) toggleArtistNotifications(w http.ResponseWriter, r *http.Request) {
	enabled, err := a.artists.ToggleNotifications(currentUser(r), r.PathValue("id"))
	if err != nil {
		a.fail(w, r, err, "Artista não seguido")
		return
	}
	server.WriteJSON(w, http.StatusOK, map[string]bool{"notificationsEnabled": enabled})
}

func (a *App) followedArtists(w http.ResponseWriter, r *http.Request) {
	list, err := a.artists.ListByUser(currentUser(r))
	if err != nil {
		a.fail(w, r, err, "Erro ao buscar artistas")
		return
	}

	views := make([]followedArtistView, 0, len(list))
	for _, f := range list {
		views = append(views, newFollowedArtistView(f))
	}
	server.WriteJSON(w, http.StatusOK, views)
}

// communityReviews lists recent reviews of an artist, matched by ID or by the name query parameter.
func (a *App) communityReviews(w http.ResponseWriter, r *http.Request) {
	posts, err := a.posts.CommunityReviews(r.PathValue("id"), strings.TrimSpace(r.URL.Query().Get("name")), communityReviewLimit)
	if err != nil {
		a.fail(w, r, err, "Erro ao buscar reviews")
		return
	}
	server.WriteJSON(w, http.StatusOK, a.postViews(posts, currentUser(r)))
}
