package repositories

import (
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/desertthunder/musicblah/internal/models"
	"github.com/desertthunder/musicblah/internal/shared"
)

// ConnectionRepository stores Spotify OAuth tokens, one row per user.
type ConnectionRepository struct {
	db *sql.DB
}

// NewConnectionRepository creates a new [ConnectionRepository] with the given database connection
func NewConnectionRepository(db *sql.DB) *ConnectionRepository {
	return &ConnectionRepository{db: db}
}

// Save inserts or replaces a user's tokens.
func (r *ConnectionRepository) Save(c *models.SpotifyConnection) error {
	if c.UserID == "" || c.AccessToken == "" {
		return fmt.Errorf("%w: user and access token are required", shared.ErrMissingArgument)
	}

	c.UpdatedAt = time.Now().UTC()
	_, err := r.db.Exec(`
		INSERT INTO spotify_connections (user_id, access_token, refresh_token, expires_at, updated_at)
		VALUES (?, ?, ?, ?, ?)
		ON CONFLICT (user_id) DO UPDATE SET
			access_token = excluded.access_token,
			refresh_token = excluded.refresh_token,
			expires_at = excluded.expires_at,
			updated_at = excluded.updated_at
	`, c.UserID, c.AccessToken, c.RefreshToken, c.ExpiresAt.UTC(), c.UpdatedAt)
	if err != nil {
		return fmt.Errorf("failed to save spotify connection: %w", err)
	}
	return nil
}

// Get returns a user's tokens or [shared.ErrNotConnected].
func (r *ConnectionRepository) Get(userID string) (*models.SpotifyConnection, error) {
	c := &models.SpotifyConnection{}
	err := r.db.QueryRow(`
		SELECT user_id, access_token, refresh_token, expires_at, updated_at
		FROM spotify_connections WHERE user_id = ?
	`, userID).Scan(&c.UserID, &c.AccessToken, &c.RefreshToken, &c.ExpiresAt, &c.UpdatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("%w: user %s", shared.ErrNotConnected, userID)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to query spotify connection: %w", err)
	}
	return c, nil
}

// Delete removes a user's tokens. Deleting a missing connection is not an error.
func (r *ConnectionRepository) Delete(userID string) error {
	if _, err := r.db.Exec(`DELETE FROM spotify_connections WHERE user_id = ?`, userID); err != nil {
		return fmt.Errorf("failed to delete spotify connection: %w", err)
	}
	return nil
}

// ConnectedUserIDs lists every user with stored tokens.
func (r *ConnectionRepository) ConnectedUserIDs() ([]string, error) {
	rows, err := r.db.Query(`SELECT user_id FROM spotify_connections ORDER BY updated_at DESC`)
	if err != nil {
		return nil, fmt.Errorf("failed to query spotify connections: %w", err)
	}
	defer rows.Close()

	var ids []string
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return nil, fmt.Errorf("failed to scan spotify connection: %w", err)
		}
		ids = append(ids, id)
	}
	return ids, rows.Err()
}

// NowPlayingRepository stores the last observed playback of each user.
type NowPlayingRepository struct {
	db *sql.DB
}

// NewNowPlayingRepository creates a new [NowPlayingRepository] with the given database connection
func NewNowPlayingRepository(db *sql.DB) *NowPlayingRepository {
	return &NowPlayingRepository{db: db}
}

// Save records the playback state of a user.
func (r *NowPlayingRepository) Save(userID string, np *models.NowPlaying) error {
	if np.UpdatedAt.IsZero() {
		np.UpdatedAt = time.Now().UTC()
	}

	var track sql.NullString
	if np.Track != nil {
		var err error
		if track, err = encodeJSON(np.Track); err != nil {
			return err
		}
	}

	_, err := r.db.Exec(`
		INSERT INTO now_playing (user_id, is_playing, progress_ms, track, item_type, updated_at)
		VALUES (?, ?, ?, ?, ?, ?)
		ON CONFLICT (user_id) DO UPDATE SET
			is_playing = excluded.is_playing,
			progress_ms = excluded.progress_ms,
			track = excluded.track,
			item_type = excluded.item_type,
			updated_at = excluded.updated_at
	`, userID, np.IsPlaying, np.ProgressMs, track, np.Type, np.UpdatedAt.UTC())
	if err != nil {
		return fmt.Errorf("failed to save now playing: %w", err)
	}
	return nil
}

// Clear records that a user is not playing anything.
func (r *NowPlayingRepository) Clear(userID string) error {
	return r.Save(userID, &models.NowPlaying{IsPlaying: false, UpdatedAt: time.Now().UTC()})
}

// Get returns the last saved playback of a user, or a stopped state when none was saved.
func (r *NowPlayingRepository) Get(userID string) (*models.NowPlaying, error) {
	row := r.db.QueryRow(`
		SELECT is_playing, progress_ms, track, item_type, updated_at FROM now_playing WHERE user_id = ?
	`, userID)

	np, err := scanNowPlaying(row)
	if errors.Is(err, sql.ErrNoRows) {
		return &models.NowPlaying{}, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to query now playing: %w", err)
	}
	return np, nil
}

// Playing returns the users among userIDs that are playing a track, most recently updated first.
func (r *NowPlayingRepository) Playing(userIDs []string, limit int) (map[string]*models.NowPlaying, []string, error) {
	if len(userIDs) == 0 {
		return map[string]*models.NowPlaying{}, nil, nil
	}

	args := make([]any, 0, len(userIDs)+1)
	for _, id := range userIDs {
		args = append(args, id)
	}
	args = append(args, limit)

	rows, err := r.db.Query(`
		SELECT user_id, is_playing, progress_ms, track, item_type, updated_at FROM now_playing
		WHERE is_playing = 1 AND track IS NOT NULL AND user_id IN (`+placeholders(len(userIDs))+`)
		ORDER BY updated_at DESC LIMIT ?
	`, args...)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to query now playing: %w", err)
	}
	defer rows.Close()

	states := make(map[string]*models.NowPlaying)
	var order []string
	for rows.Next() {
		var userID string
		np, err := scanNowPlaying(prefixScanner{rows, &userID})
		if err != nil {
			return nil, nil, fmt.Errorf("failed to scan now playing: %w", err)
		}
		states[userID] = np
		order = append(order, userID)
	}
	return states, order, rows.Err()
}

// prefixScanner scans a leading column into dest before the wrapped columns.
type prefixScanner struct {
	s    scanner
	dest any
}

func (p prefixScanner) Scan(dest ...any) error {
	return p.s.Scan(append([]any{p.dest}, dest...)...)
}

func scanNowPlaying(s scanner) (*models.NowPlaying, error) {
	var (
		np    models.NowPlaying
		track sql.NullString
	)
	if err := s.Scan(&np.IsPlaying, &np.ProgressMs, &track, &np.Type, &np.UpdatedAt); err != nil {
		return nil, err
	}
	if track.Valid {
		np.Track = &models.PlayingTrack{}
		if err := decodeJSON(track, np.Track); err != nil {
			return nil, err
		}
	}
	return &np, nil
}
