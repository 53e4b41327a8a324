package web

import (
	"errors"
	"net/http"
	"strings"
	"time"

	"github.com/desertthunder/musicblah/internal/models"
	"github.com/desertthunder/musicblah/internal/server"
	"github.com/desertthunder/musicblah/internal/services"
	"github.com/desertthunder/musicblah/internal/shared"
)

type refreshRequest struct {
	RefreshToken string `json:"refresh_token"`
	UserID       string `json:"user_id"`
}

type refreshResponse struct {
	AccessToken  string `json:"access_token"`
	ExpiresIn    int64  `json:"expires_in"`
	RefreshToken string `json:"refresh_token"`
}

// spotifyLogin starts account linking. Clients asking for JSON get the authorize URL instead of a redirect.
func (a *App) spotifyLogin(w http.ResponseWriter, r *http.Request) {
	state, err := a.sessions.IssueState(currentUser(r))
	if err != nil {
		a.fail(w, r, err, "Erro ao iniciar conexão com Spotify")
		return
	}

	url := a.player.AuthURL(state)
	if strings.Contains(r.Header.Get("Accept"), "application/json") {
		server.WriteJSON(w, http.StatusOK, map[string]string{"url": url})
		return
	}
	http.Redirect(w, r, url, http.StatusFound)
}

// spotifyRefresh exchanges a refresh token. The new tokens are stored only for the signed-in user.
func (a *App) spotifyRefresh(w http.ResponseWriter, r *http.Request) {
	var req refreshRequest
	if err := decode(r, &req); err != nil || req.RefreshToken == "" {
		server.WriteError(w, http.StatusBadRequest, "refresh_token é obrigatório")
		return
	}

	token, err := a.player.Refresh(r.Context(), req.RefreshToken)
	if err != nil {
		a.logger.Warn("spotify refresh failed", "error", err)
		server.WriteError(w, http.StatusBadRequest, "Falha ao renovar token")
		return
	}
	if token.RefreshToken == "" {
		token.RefreshToken = req.RefreshToken
	}

	now := time.Now()
	if viewer := currentUser(r); viewer != "" && (req.UserID == "" || req.UserID == viewer) {
		if err := a.connections.Save(server.ConnectionFromToken(viewer, token, now)); err != nil {
			a.logger.Warn("refreshed tokens not stored", "user", viewer, "error", err)
		}
	}

	expiresIn := token.ExpiresIn
	if expiresIn <= 0 && !token.Expiry.IsZero() {
		expiresIn = int64(token.Expiry.Sub(now).Round(time.Second).Seconds())
	}
	server.WriteJSON(w, http.StatusOK, refreshResponse{
		AccessToken:  token.AccessToken,
		ExpiresIn:    expiresIn,
		RefreshToken: token.RefreshToken,
	})
}

func (a *App) spotifyDisconnect(w http.ResponseWriter, r *http.Request) {
	userID := currentUser(r)
	if err := a.connections.Delete(userID); err != nil {
		a.fail(w, r, err, "Erro ao desconectar Spotify")
		return
	}
	if err := a.playback.Clear(userID); err != nil {
		a.logger.Warn("playback not cleared", "user", userID, "error", err)
	}
	w.WriteHeader(http.StatusNoContent)
}

// currentlyPlaying proxies the playback of the Spotify account whose token is in the Authorization header.
func (a *App) currentlyPlaying(w http.ResponseWriter, r *http.Request) {
	token, ok := server.BearerToken(r)
	if !ok {
		server.WriteError(w, http.StatusUnauthorized, "Token não fornecido", "isPlaying", false)
		return
	}

	np, err := a.player.CurrentlyPlaying(r.Context(), token)
	switch {
	case errors.Is(err, shared.ErrTokenExpired), errors.Is(err, shared.ErrNotAuthenticated):
		server.WriteError(w, http.StatusUnauthorized, "Token expirado", "isPlaying", false, "needsRefresh", true)
		return
	case err != nil:
		status := services.HTTPStatus(err)
		if status < http.StatusBadRequest {
			status = http.StatusInternalServerError
		}
		a.logger.Warn("currently playing failed", "status", status, "error", err)
		server.WriteError(w, status, "Erro ao buscar música atual", "isPlaying", false)
		return
	}
	server.WriteJSON(w, http.StatusOK, np)
}

// userNowPlaying returns the last playback the poller stored for a user.
func (a *App) userNowPlaying(w http.ResponseWriter, r *http.Request) {
	np, err := a.playback.Get(r.PathValue("id"))
	if err != nil {
		a.fail(w, r, err, "Erro ao buscar música atual")
		return
	}
	server.WriteJSON(w, http.StatusOK, np)
}

// friendsListening reads stored playback when the background poller runs, and polls Spotify otherwise.
func (a *App) friendsListening(w http.ResponseWriter, r *http.Request) {
	userID := currentUser(r)
	limit := intParam(r, "limit", 0, 1, 50)

	var (
		friends []models.FriendListening
		err     error
	)
	if a.config.Polling.Enabled {
		friends, err = a.engine.Listening(userID, limit)
	} else {
		friends, err = a.engine.FriendsListening(r.Context(), userID, limit)
	}
	if err != nil {
		a.fail(w, r, err, "Erro ao buscar amigos ouvindo")
		return
	}
	server.WriteJSON(w, http.StatusOK, friends)
}
