package web

import (
	"context"
	"errors"
	"net/http"
	"strings"

	"github.com/desertthunder/musicblah/internal/models"
	"github.com/desertthunder/musicblah/internal/server"
	"github.com/desertthunder/musicblah/internal/shared"
)

type lyricsLookup func(ctx context.Context, artist, track string) (*models.LyricsResult, error)

// lyricsHandler serves one lyrics provider, reading the artist and track query parameters.
func (a *App) lyricsHandler(lookup lyricsLookup) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		q := r.URL.Query()
		artist, track := strings.TrimSpace(q.Get("artist")), strings.TrimSpace(q.Get("track"))
		if artist == "" || track == "" {
			server.WriteError(w, http.StatusBadRequest, "Artista e música são obrigatórios")
			return
		}

		result, err := lookup(r.Context(), artist, track)
		switch {
		case errors.Is(err, shared.ErrLyricsNotFound):
			server.WriteError(w, http.StatusNotFound, "Letra não encontrada", "lyrics", nil)
		case err != nil:
			a.logger.Error("lyrics lookup failed", "artist", artist, "track", track, "error", err)
			server.WriteError(w, http.StatusInternalServerError, "Erro ao buscar letra", "lyrics", nil)
		default:
			server.WriteJSON(w, http.StatusOK, result)
		}
	}
}
