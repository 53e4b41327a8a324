package web

import (
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strconv"

	"github.com/charmbracelet/log"

	"github.com/desertthunder/musicblah/internal/repositories"
	"github.com/desertthunder/musicblah/internal/server"
	"github.com/desertthunder/musicblah/internal/services"
	"github.com/desertthunder/musicblah/internal/session"
	"github.com/desertthunder/musicblah/internal/shared"
	"github.com/desertthunder/musicblah/internal/tasks"
)

// maxBodyBytes caps JSON request bodies.
const maxBodyBytes = 1 << 20

// Services are the upstream clients the API proxies.
type Services struct {
	Catalog     services.Catalog
	Player      services.Player
	Lyrics      services.LyricsFinder
	Recommender services.Recommender
}

// App holds the dependencies of every route.
type App struct {
	users         *repositories.UserRepository
	posts         *repositories.PostRepository
	notifications *repositories.NotificationRepository
	artists       *repositories.FollowedArtistRepository
	connections   *repositories.ConnectionRepository
	playback      *repositories.NowPlayingRepository

	catalog     services.Catalog
	player      services.Player
	lyrics      services.LyricsFinder
	recommender services.Recommender

	sessions *session.Manager
	engine   *tasks.NowPlayingEngine
	config   *shared.Config
	logger   *log.Logger
}

// New creates an [App] backed by db.
func New(db *sql.DB, cfg *shared.Config, svc Services, sessions *session.Manager, logger *log.Logger) *App {
	if logger == nil {
		logger = log.New(io.Discard)
	}

	posts := repositories.NewPostRepository(db)
	a := &App{
		users:         repositories.NewUserRepository(db),
		posts:         posts,
		notifications: repositories.NewNotificationRepository(db),
		artists:       repositories.NewFollowedArtistRepository(db, posts),
		connections:   repositories.NewConnectionRepository(db),
		playback:      repositories.NewNowPlayingRepository(db),
		catalog:       svc.Catalog,
		player:        svc.Player,
		lyrics:        svc.Lyrics,
		recommender:   svc.Recommender,
		sessions:      sessions,
		config:        cfg,
		logger:        logger,
	}
	a.engine = tasks.NewNowPlayingEngine(a.player, a.connections, a.playback, a.users, cfg.Polling, shared.WithLogger(logger, "component", "nowplaying"))
	return a
}

// Engine returns the now-playing engine, so the caller can run the background poller.
func (a *App) Engine() *tasks.NowPlayingEngine {
	return a.engine
}

// Handler returns the complete API with logging, CORS and rate limiting applied.
func (a *App) Handler() http.Handler {
	router := server.NewBasicRouter()
	router.Use(server.Recover(a.logger))
	a.Routes(router)

	outer := []server.Middleware{server.Logging(a.logger), server.CORS(a.config.Server.AllowedOrigins)}
	if rps := a.config.Server.RequestsPerSec; rps > 0 {
		limiter := server.NewClientLimiter(rps, int(rps)*2)
		if err := limiter.TrustProxies(a.config.Server.TrustedProxies...); err != nil {
			a.logger.Error("ignoring trusted proxies, rate limiting by remote address", "error", err)
		}
		outer = append(outer, server.RateLimit(limiter))
	}
	return server.Chain(router, outer...)
}

// Routes registers every API route on router.
func (a *App) Routes(router server.Router) {
	auth := server.RequireUser(a.sessions)
	optional := server.OptionalUser(a.sessions)

	router.HandleFunc(http.MethodGet, "/health", a.health)

	// Accounts and follows
	router.HandleFunc(http.MethodPost, "/api/users", a.register)
	router.HandleFunc(http.MethodPost, "/api/sessions", a.login)
	router.Handle(http.MethodGet, "/api/me", auth(http.HandlerFunc(a.me)))
	router.Handle(http.MethodGet, "/api/users/{id}", optional(http.HandlerFunc(a.getUser)))
	router.Handle(http.MethodPost, "/api/users/{id}/follow", auth(http.HandlerFunc(a.followUser)))
	router.Handle(http.MethodDelete, "/api/users/{id}/follow", auth(http.HandlerFunc(a.unfollowUser)))
	router.HandleFunc(http.MethodGet, "/api/users/{id}/followers", a.followers)
	router.HandleFunc(http.MethodGet, "/api/users/{id}/following", a.following)

	// Posts
	router.Handle(http.MethodPost, "/api/posts", auth(http.HandlerFunc(a.createPost)))
	router.Handle(http.MethodGet, "/api/posts/{id}", optional(http.HandlerFunc(a.getPost)))
	router.Handle(http.MethodDelete, "/api/posts/{id}", auth(http.HandlerFunc(a.deletePost)))
	router.Handle(http.MethodGet, "/api/posts/{id}/replies", optional(http.HandlerFunc(a.replies)))
	router.Handle(http.MethodGet, "/api/feed", auth(http.HandlerFunc(a.feed)))
	router.Handle(http.MethodPost, "/api/posts/{id}/like", auth(http.HandlerFunc(a.like)))
	router.Handle(http.MethodDelete, "/api/posts/{id}/like", auth(http.HandlerFunc(a.unlike)))
	router.Handle(http.MethodPost, "/api/posts/{id}/repost", auth(http.HandlerFunc(a.repost)))
	router.Handle(http.MethodDelete, "/api/posts/{id}/repost", auth(http.HandlerFunc(a.unrepost)))
	router.Handle(http.MethodGet, "/api/users/{id}/reviews", optional(http.HandlerFunc(a.userReviews)))
	router.HandleFunc(http.MethodGet, "/api/users/{id}/music-stats", a.musicStats)

	// Followed artists
	router.Handle(http.MethodPost, "/api/artists/{id}/follow", auth(http.HandlerFunc(a.followArtist)))
	router.Handle(http.MethodDelete, "/api/artists/{id}/follow", auth(http.HandlerFunc(a.unfollowArtist)))
	router.Handle(http.MethodGet, "/api/artists/{id}/follow", auth(http.HandlerFunc(a.artistFollowStatus)))
	router.Handle(http.MethodPatch, "/api/artists/{id}/follow/notifications", auth(http.HandlerFunc(a.toggleArtistNotifications)))
	router.Handle(http.MethodGet, "/api/artists/followed", auth(http.HandlerFunc(a.followedArtists)))
	router.Handle(http.MethodGet, "/api/artists/{id}/reviews", optional(http.HandlerFunc(a.communityReviews)))

	// Catalog
	router.HandleFunc(http.MethodGet, "/api/spotify/search", a.search)
	router.HandleFunc(http.MethodGet, "/api/spotify/artist", a.artist)
	router.HandleFunc(http.MethodGet, "/api/spotify/artist-top-tracks", a.artistTopTracks)
	router.HandleFunc(http.MethodGet, "/api/spotify/artist-albums", a.artistAlbums)
	router.HandleFunc(http.MethodPost, "/api/spotify/artist-genres", a.artistGenres)
	router.HandleFunc("", "/api/spotify/artist-genres", func(w http.ResponseWriter, r *http.Request) {
		server.WriteError(w, http.StatusMethodNotAllowed, "Method not allowed", "genres", []any{})
	})
	router.HandleFunc(http.MethodGet, "/api/spotify/explore", a.explore)
	router.HandleFunc(http.MethodGet, "/api/spotify/trends", a.trends)

	// Spotify account and playback
	router.Handle(http.MethodGet, "/api/spotify/auth/login", auth(http.HandlerFunc(a.spotifyLogin)))
	router.Handler(server.NewOAuthHandler(a.sessions, a.player, a.connections, a.config.Server.PublicURL, a.logger))
	router.Handle(http.MethodPost, "/api/spotify/auth/refresh", optional(http.HandlerFunc(a.spotifyRefresh)))
	router.Handle(http.MethodDelete, "/api/spotify/connection", auth(http.HandlerFunc(a.spotifyDisconnect)))
	router.HandleFunc(http.MethodGet, "/api/spotify/me/playing", a.currentlyPlaying)
	router.HandleFunc(http.MethodGet, "/api/users/{id}/now-playing", a.userNowPlaying)
	router.Handle(http.MethodGet, "/api/friends/listening", auth(http.HandlerFunc(a.friendsListening)))

	// Lyrics
	router.HandleFunc(http.MethodGet, "/api/lyrics", a.lyricsHandler(a.lyrics.Find))
	router.HandleFunc(http.MethodGet, "/api/lyrics/search", a.lyricsHandler(a.lyrics.LyricsOVH))
	router.HandleFunc(http.MethodGet, "/api/lyrics/genius", a.lyricsHandler(a.lyrics.Genius))
	router.HandleFunc(http.MethodGet, "/api/lyrics/vagalume", a.lyricsHandler(a.lyrics.Vagalume))
	router.HandleFunc(http.MethodGet, "/api/lyrics/lrclib", a.lyricsHandler(a.lyrics.LRCLib))

	// Recommendations
	router.Handle(http.MethodPost, "/api/gemini/recommend", optional(http.HandlerFunc(a.recommend)))
	router.HandleFunc("", "/api/gemini/recommend", methodNotAllowed)

	// Notifications
	router.Handle(http.MethodPost, "/api/notifications/create", auth(http.HandlerFunc(a.createNotification)))
	router.HandleFunc("", "/api/notifications/create", methodNotAllowed)
	router.Handle(http.MethodGet, "/api/notifications", auth(http.HandlerFunc(a.listNotifications)))
	router.Handle(http.MethodGet, "/api/notifications/unread-count", auth(http.HandlerFunc(a.unreadCount)))
	router.Handle(http.MethodPost, "/api/notifications/{id}/read", auth(http.HandlerFunc(a.markRead)))
	router.Handle(http.MethodPost, "/api/notifications/read-all", auth(http.HandlerFunc(a.markAllRead)))
}

func (a *App) health(w http.ResponseWriter, r *http.Request) {
	server.WriteJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func methodNotAllowed(w http.ResponseWriter, r *http.Request) {
	server.WriteError(w, http.StatusMethodNotAllowed, "Method not allowed")
}

// statusFor maps an error to the HTTP status it is reported with.
func statusFor(err error) int {
	switch {
	case errors.Is(err, shared.ErrInvalidInput), errors.Is(err, shared.ErrMissingArgument),
		errors.Is(err, shared.ErrInvalidArgument):
		return http.StatusBadRequest
	case errors.Is(err, shared.ErrNotAuthenticated), errors.Is(err, shared.ErrTokenExpired),
		errors.Is(err, shared.ErrInvalidCredentials):
		return http.StatusUnauthorized
	case errors.Is(err, shared.ErrForbidden):
		return http.StatusForbidden
	case errors.Is(err, shared.ErrNotFound), errors.Is(err, shared.ErrLyricsNotFound),
		errors.Is(err, shared.ErrTrackNotFound), errors.Is(err, shared.ErrArtistNotFound),
		errors.Is(err, shared.ErrNotConnected):
		return http.StatusNotFound
	case errors.Is(err, shared.ErrConflict):
		return http.StatusConflict
	case errors.Is(err, shared.ErrRateLimited):
		return http.StatusTooManyRequests
	case errors.Is(err, shared.ErrServiceUnavailable), errors.Is(err, shared.ErrAPIRequest),
		errors.Is(err, shared.ErrAuthFailed), errors.Is(err, shared.ErrRefreshFailed):
		return http.StatusBadGateway
	case errors.Is(err, shared.ErrNotImplemented):
		return http.StatusNotImplemented
	}
	return http.StatusInternalServerError
}

// fail writes err with the status [statusFor] picks. Server errors are logged and answered with msg only.
func (a *App) fail(w http.ResponseWriter, r *http.Request, err error, msg string, extra ...any) {
	status := statusFor(err)
	if status >= http.StatusInternalServerError {
		a.logger.Error(msg, "path", r.URL.Path, "error", err)
	} else if status != http.StatusNotFound {
		msg = err.Error()
	}
	server.WriteError(w, status, msg, extra...)
}

// decode reads a JSON request body into v.
func decode(r *http.Request, v any) error {
	dec := json.NewDecoder(io.LimitReader(r.Body, maxBodyBytes))
	if err := dec.Decode(v); err != nil {
		return fmt.Errorf("%w: invalid JSON body: %v", shared.ErrInvalidInput, err)
	}
	return nil
}

// currentUser returns the user ID stored by the auth middleware.
func currentUser(r *http.Request) string {
	id, _ := server.UserID(r.Context())
	return id
}

// intParam parses a query parameter, falling back to def when missing or invalid and clamping to [lo, hi].
func intParam(r *http.Request, name string, def, lo, hi int) int {
	v, err := strconv.Atoi(r.URL.Query().Get(name))
	if err != nil {
		return def
	}
	return min(max(v, lo), hi)
}
