package tasks

import (
	"context"
	"errors"
	"fmt"
	"io"
	"time"

	"github.com/charmbracelet/log"
	"golang.org/x/time/rate"

	"github.com/desertthunder/musicblah/internal/models"
	"github.com/desertthunder/musicblah/internal/services"
	"github.com/desertthunder/musicblah/internal/shared"
)

// DefaultFriendsLimit caps the friends listening list when no limit is given.
const DefaultFriendsLimit = 5

// ConnectionStore holds each user's Spotify tokens.
type ConnectionStore interface {
	Get(userID string) (*models.SpotifyConnection, error)
	Save(c *models.SpotifyConnection) error
	ConnectedUserIDs() ([]string, error)
}

// PlaybackStore records the last observed playback of each user.
type PlaybackStore interface {
	Save(userID string, np *models.NowPlaying) error
	Playing(userIDs []string, limit int) (map[string]*models.NowPlaying, []string, error)
}

// UserDirectory resolves users and who they follow.
type UserDirectory interface {
	Get(id string) (*models.User, error)
	FollowingIDs(id string) ([]string, error)
}

// RoundResult summarizes one pass over every connected account.
type RoundResult struct {
	Total   int
	Playing int
	Failed  int
}

// NowPlayingEngine polls Spotify for what users are listening to, refreshing their tokens as needed.
type NowPlayingEngine struct {
	player      services.Player
	connections ConnectionStore
	playback    PlaybackStore
	users       UserDirectory
	limiter     *rate.Limiter
	includeSelf bool
	limit       int
	logger      *log.Logger
	now         func() time.Time
}

// NewNowPlayingEngine creates a [NowPlayingEngine].
//
// Upstream calls are paced at cfg.RatePerSecond; zero or less means unlimited.
func NewNowPlayingEngine(player services.Player, connections ConnectionStore, playback PlaybackStore, users UserDirectory, cfg shared.PollingConfig, logger *log.Logger) *NowPlayingEngine {
	limit := rate.Inf
	if cfg.RatePerSecond > 0 {
		limit = rate.Limit(cfg.RatePerSecond)
	}
	friends := cfg.FriendsLimit
	if friends <= 0 {
		friends = DefaultFriendsLimit
	}
	if logger == nil {
		logger = log.New(io.Discard)
	}

	return &NowPlayingEngine{
		player:      player,
		connections: connections,
		playback:    playback,
		users:       users,
		limiter:     rate.NewLimiter(limit, 1),
		includeSelf: cfg.IncludeSelf,
		limit:       friends,
		logger:      logger,
		now:         time.Now,
	}
}

// sendProgress sends a progress update through the channel without blocking.
// Uses select with default to ensure progress reporting never blocks execution.
func (e *NowPlayingEngine) sendProgress(progress chan<- ProgressUpdate, update ProgressUpdate) {
	if progress == nil {
		return
	}
	select {
	case progress <- update:
	default:
	}
}

// Poll fetches and stores what userID is playing.
//
// An expired token is refreshed first. If Spotify still rejects the token it is refreshed once more and the
// request retried once. Returns [shared.ErrNotConnected] for users without tokens.
func (e *NowPlayingEngine) Poll(ctx context.Context, userID string) (*models.NowPlaying, error) {
	return e.poll(ctx, userID, nil)
}

func (e *NowPlayingEngine) poll(ctx context.Context, userID string, progress chan<- ProgressUpdate) (*models.NowPlaying, error) {
	conn, err := e.connections.Get(userID)
	if err != nil {
		return nil, err
	}

	if conn.Expired(e.now()) {
		e.sendProgress(progress, refreshTokenUpdate(userID))
		if conn, err = e.refresh(ctx, conn); err != nil {
			return nil, err
		}
	}

	np, err := e.player.CurrentlyPlaying(ctx, conn.AccessToken)
	if errors.Is(err, shared.ErrTokenExpired) {
		e.logger.Debug("token rejected, refreshing", "user", userID)
		e.sendProgress(progress, refreshTokenUpdate(userID))
		if conn, err = e.refresh(ctx, conn); err != nil {
			return nil, err
		}
		np, err = e.player.CurrentlyPlaying(ctx, conn.AccessToken)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to fetch playback for %s: %w", userID, err)
	}

	np.UpdatedAt = e.now().UTC()
	if !np.IsPlaying {
		np.Track = nil
		np.ProgressMs = 0
	}
	if err := e.playback.Save(userID, np); err != nil {
		return nil, err
	}
	return np, nil
}

func (e *NowPlayingEngine) refresh(ctx context.Context, conn *models.SpotifyConnection) (*models.SpotifyConnection, error) {
	token, err := e.player.Refresh(ctx, conn.RefreshToken)
	if err != nil {
		if errors.Is(err, shared.ErrRefreshFailed) {
			return nil, err
		}
		return nil, fmt.Errorf("%w: %w", shared.ErrRefreshFailed, err)
	}

	refreshed := &models.SpotifyConnection{
		UserID:       conn.UserID,
		AccessToken:  token.AccessToken,
		RefreshToken: token.RefreshToken,
		ExpiresAt:    token.Expiry,
	}
	if refreshed.RefreshToken == "" {
		refreshed.RefreshToken = conn.RefreshToken
	}
	if refreshed.ExpiresAt.IsZero() {
		refreshed.ExpiresAt = e.now().Add(time.Hour)
	}

	if err := e.connections.Save(refreshed); err != nil {
		return nil, err
	}
	return refreshed, nil
}

// FriendsListening polls the users userID follows and returns those playing a track, in follow order.
//
// Stops once limit friends were found, zero or less uses the configured limit. Users that cannot be polled
// are skipped.
func (e *NowPlayingEngine) FriendsListening(ctx context.Context, userID string, limit int) ([]models.FriendListening, error) {
	if limit <= 0 {
		limit = e.limit
	}

	ids, err := e.audience(userID)
	if err != nil {
		return nil, err
	}

	friends := []models.FriendListening{}
	for _, id := range ids {
		if len(friends) == limit {
			break
		}
		if err := e.limiter.Wait(ctx); err != nil {
			return friends, err
		}

		np, err := e.Poll(ctx, id)
		if err != nil {
			if !errors.Is(err, shared.ErrNotConnected) {
				e.logger.Warn("failed to poll friend", "user", id, "error", err)
			}
			continue
		}
		if !np.HasTrack() {
			continue
		}

		if friend, ok := e.friend(id, np); ok {
			friends = append(friends, friend)
		}
	}
	return friends, nil
}

// Listening returns the stored playback of the users userID follows, without calling Spotify.
func (e *NowPlayingEngine) Listening(userID string, limit int) ([]models.FriendListening, error) {
	if limit <= 0 {
		limit = e.limit
	}

	ids, err := e.audience(userID)
	if err != nil {
		return nil, err
	}

	states, order, err := e.playback.Playing(ids, limit)
	if err != nil {
		return nil, err
	}

	friends := []models.FriendListening{}
	for _, id := range order {
		if friend, ok := e.friend(id, states[id]); ok {
			friends = append(friends, friend)
		}
	}
	return friends, nil
}

func (e *NowPlayingEngine) audience(userID string) ([]string, error) {
	ids, err := e.users.FollowingIDs(userID)
	if err != nil {
		return nil, err
	}
	if e.includeSelf {
		ids = append([]string{userID}, ids...)
	}
	return ids, nil
}

func (e *NowPlayingEngine) friend(id string, np *models.NowPlaying) (models.FriendListening, bool) {
	user, err := e.users.Get(id)
	if err != nil {
		e.logger.Debug("skipping unknown user", "user", id, "error", err)
		return models.FriendListening{}, false
	}
	return models.FriendListening{
		UserID:   user.ID(),
		Name:     user.Name,
		Username: user.Username,
		Photo:    user.Photo(),
		Track:    np.Track,
		Updated:  np.UpdatedAt,
	}, true
}

// PollAll polls every connected account once.
func (e *NowPlayingEngine) PollAll(ctx context.Context, progress chan<- ProgressUpdate) (*RoundResult, error) {
	ids, err := e.connections.ConnectedUserIDs()
	if err != nil {
		return nil, err
	}

	result := &RoundResult{Total: len(ids)}
	e.sendProgress(progress, listConnectionsUpdate(len(ids)))

	for i, id := range ids {
		if err := e.limiter.Wait(ctx); err != nil {
			return result, err
		}

		np, err := e.poll(ctx, id, progress)
		if err != nil {
			result.Failed++
			e.logger.Warn("poll failed", "user", id, "error", err)
			e.sendProgress(progress, pollFailedUpdate(i+1, len(ids), id, err))
			continue
		}
		if np.HasTrack() {
			result.Playing++
		}
		e.sendProgress(progress, pollUserUpdate(i+1, len(ids), id, np))
	}

	e.sendProgress(progress, roundCompleteUpdate(result))
	return result, nil
}

// Run polls every connected account immediately and then every interval until ctx is cancelled.
func (e *NowPlayingEngine) Run(ctx context.Context, interval time.Duration, progress chan<- ProgressUpdate) error {
	if interval <= 0 {
		return fmt.Errorf("%w: polling interval must be positive", shared.ErrInvalidConfig)
	}

	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		if _, err := e.PollAll(ctx, progress); err != nil && ctx.Err() == nil {
			e.logger.Error("polling round failed", "error", err)
		}

		select {
		case <-ctx.Done():
			return nil
		case <-ticker.C:
		}
	}
}
