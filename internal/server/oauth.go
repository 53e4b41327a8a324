package server

import (
	"context"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/charmbracelet/log"
	"golang.org/x/oauth2"

	"github.com/desertthunder/musicblah/internal/models"
)

// CallbackPath is where Spotify redirects after the user authorizes MusicBlah.
const CallbackPath = "/api/spotify/auth/callback"

// Reasons reported through the spotify_error query parameter.
const (
	ReasonNoCode        = "no_code"
	ReasonInvalidState  = "invalid_state"
	ReasonExchange      = "token_exchange_failed"
	ReasonStorage       = "storage_failed"
	defaultTokenExpires = time.Hour
)

// StateVerifier resolves a signed OAuth state to the user it was issued for.
type StateVerifier interface {
	VerifyState(state string) (string, error)
}

// CodeExchanger trades an authorization code for tokens.
type CodeExchanger interface {
	Exchange(ctx context.Context, code string) (*oauth2.Token, error)
}

// ConnectionStore persists a user's Spotify tokens.
type ConnectionStore interface {
	Save(c *models.SpotifyConnection) error
}

// OAuthHandler handles the Spotify authorization code callback.
//
// The state is a signed token naming the user, so the tokens are stored server-side for that user and never
// appear in the redirect.
type OAuthHandler struct {
	states      StateVerifier
	exchanger   CodeExchanger
	connections ConnectionStore
	homeURL     string
	logger      *log.Logger
	now         func() time.Time
}

// NewOAuthHandler creates an [OAuthHandler] that redirects to publicURL + "/home" when done.
func NewOAuthHandler(states StateVerifier, exchanger CodeExchanger, connections ConnectionStore, publicURL string, logger *log.Logger) *OAuthHandler {
	return &OAuthHandler{
		states:      states,
		exchanger:   exchanger,
		connections: connections,
		homeURL:     strings.TrimSuffix(publicURL, "/") + "/home",
		logger:      logger,
		now:         time.Now,
	}
}

// Routes returns the HTTP routes this handler serves.
func (h *OAuthHandler) Routes() []string {
	return []string{http.MethodGet + " " + CallbackPath}
}

// ServeHTTP validates the state, exchanges the code and stores the connection for the state's user.
func (h *OAuthHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()

	if errParam := q.Get("error"); errParam != "" {
		h.logger.Warn("spotify authorization denied", "error", errParam, "description", q.Get("error_description"))
		h.fail(w, r, errParam)
		return
	}

	code := q.Get("code")
	if code == "" {
		h.fail(w, r, ReasonNoCode)
		return
	}

	userID, err := h.states.VerifyState(q.Get("state"))
	if err != nil {
		h.logger.Warn("invalid oauth state", "error", err)
		h.fail(w, r, ReasonInvalidState)
		return
	}

	token, err := h.exchanger.Exchange(r.Context(), code)
	if err != nil {
		h.logger.Error("token exchange failed", "user", userID, "error", err)
		h.fail(w, r, ReasonExchange)
		return
	}

	if err := h.connections.Save(ConnectionFromToken(userID, token, h.now())); err != nil {
		h.logger.Error("failed to store spotify connection", "user", userID, "error", err)
		h.fail(w, r, ReasonStorage)
		return
	}

	h.logger.Info("spotify connected", "user", userID)
	http.Redirect(w, r, h.homeURL+"?spotify_connected=true", http.StatusFound)
}

func (h *OAuthHandler) fail(w http.ResponseWriter, r *http.Request, reason string) {
	http.Redirect(w, r, h.homeURL+"?spotify_error="+url.QueryEscape(reason), http.StatusFound)
}

// ConnectionFromToken converts an OAuth token into a [models.SpotifyConnection].
//
// Tokens without an expiry are assumed to last an hour from now.
func ConnectionFromToken(userID string, token *oauth2.Token, now time.Time) *models.SpotifyConnection {
	expires := token.Expiry
	if expires.IsZero() {
		expires = now.Add(defaultTokenExpires)
	}
	return &models.SpotifyConnection{
		UserID:       userID,
		AccessToken:  token.AccessToken,
		RefreshToken: token.RefreshToken,
		ExpiresAt:    expires,
	}
}
