package web

import (
	"net/http"
	"strings"

	"github.com/desertthunder/musicblah/internal/models"
	"github.com/desertthunder/musicblah/internal/server"
)

const defaultAlbumsLimit = 20

type artistGenresRequest struct {
	Artists []string `json:"artists"`
}

func (a *App) search(w http.ResponseWriter, r *http.Request) {
	q := strings.TrimSpace(r.URL.Query().Get("q"))
	if q == "" {
		server.WriteError(w, http.StatusBadRequest, "Termo de busca vazio")
		return
	}

	kind := r.URL.Query().Get("type")
	if kind == "" {
		kind = "all"
	}

	results, err := a.catalog.Search(r.Context(), q, kind)
	if err != nil {
		a.fail(w, r, err, "Falha ao buscar dados")
		return
	}
	server.WriteJSON(w, http.StatusOK, orEmpty(results))
}

// artistID reads the required id query parameter, answering 400 when it is missing.
func artistID(w http.ResponseWriter, r *http.Request) (string, bool) {
	id := strings.TrimSpace(r.URL.Query().Get("id"))
	if id == "" {
		server.WriteError(w, http.StatusBadRequest, "ID do artista é obrigatório")
		return "", false
	}
	return id, true
}

func (a *App) artist(w http.ResponseWriter, r *http.Request) {
	id, ok := artistID(w, r)
	if !ok {
		return
	}

	artist, err := a.catalog.Artist(r.Context(), id)
	if err != nil {
		a.fail(w, r, err, "Erro ao buscar artista")
		return
	}
	server.WriteJSON(w, http.StatusOK, artist)
}

func (a *App) artistTopTracks(w http.ResponseWriter, r *http.Request) {
	id, ok := artistID(w, r)
	if !ok {
		return
	}

	tracks, err := a.catalog.ArtistTopTracks(r.Context(), id)
	if err != nil {
		a.fail(w, r, err, "Erro ao buscar top tracks")
		return
	}
	server.WriteJSON(w, http.StatusOK, orEmpty(tracks))
}

func (a *App) artistAlbums(w http.ResponseWriter, r *http.Request) {
	id, ok := artistID(w, r)
	if !ok {
		return
	}

	limit := intParam(r, "limit", defaultAlbumsLimit, 1, 50)
	offset := intParam(r, "offset", 0, 0, 10_000)

	page, err := a.catalog.ArtistAlbums(r.Context(), id, limit, offset)
	if err != nil {
		a.fail(w, r, err, "Erro ao buscar álbuns")
		return
	}
	server.WriteJSON(w, http.StatusOK, page)
}

func (a *App) artistGenres(w http.ResponseWriter, r *http.Request) {
	var req artistGenresRequest
	if err := decode(r, &req); err != nil || len(req.Artists) == 0 {
		server.WriteError(w, http.StatusBadRequest, "Artists array required", "genres", []any{})
		return
	}

	genres, err := a.catalog.ArtistGenres(r.Context(), req.Artists)
	if err != nil {
		a.logger.Error("artist genres failed", "artists", len(req.Artists), "error", err)
		server.WriteError(w, http.StatusInternalServerError, "Erro ao buscar gêneros", "genres", []any{})
		return
	}
	server.WriteJSON(w, http.StatusOK, map[string][]models.GenreCount{"genres": orEmpty(genres)})
}

// explore always answers with a list, empty when the genre is unknown or the catalog fails.
func (a *App) explore(w http.ResponseWriter, r *http.Request) {
	artists, err := a.catalog.Explore(r.Context(), r.URL.Query().Get("genre"))
	if err != nil {
		a.logger.Warn("explore failed", "genre", r.URL.Query().Get("genre"), "error", err)
		artists = nil
	}
	server.WriteJSON(w, http.StatusOK, orEmpty(artists))
}

func (a *App) trends(w http.ResponseWriter, r *http.Request) {
	tracks, err := a.catalog.Trends(r.Context())
	if err != nil {
		a.logger.Error("trends failed", "error", err)
		server.WriteError(w, http.StatusInternalServerError, "Erro ao buscar músicas")
		return
	}
	server.WriteJSON(w, http.StatusOK, orEmpty(tracks))
}
