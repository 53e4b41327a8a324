package repositories

import (
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/desertthunder/musicblah/internal/models"
	"github.com/desertthunder/musicblah/internal/shared"
)

const followedArtistColumns = `id, sequence, user_id, artist_id, artist_name, artist_image, genres, notifications,
	followed_at, created_at, updated_at, deleted_at`

// FollowedArtistRepository implements [models.Repository] for [models.FollowedArtist] persistence.
//
// Review stats are not stored; they are computed from the user's reviews on every read.
type FollowedArtistRepository struct {
	db    *sql.DB
	posts *PostRepository
}

// NewFollowedArtistRepository creates a new [FollowedArtistRepository]
func NewFollowedArtistRepository(db *sql.DB, posts *PostRepository) *FollowedArtistRepository {
	return &FollowedArtistRepository{db: db, posts: posts}
}

// Create follows an artist. Returns [shared.ErrConflict] when the user already follows it.
func (r *FollowedArtistRepository) Create(f *models.FollowedArtist) error {
	if err := f.Validate(); err != nil {
		return fmt.Errorf("validation failed: %w", err)
	}

	if existing, err := r.Find(f.UserID, f.ArtistID); err == nil && existing != nil {
		return fmt.Errorf("%w: already following %s", shared.ErrConflict, f.ArtistID)
	} else if err != nil && !errors.Is(err, shared.ErrNotFound) {
		return err
	}

	sequence, err := NextSequence(r.db, "followed_artists")
	if err != nil {
		return fmt.Errorf("failed to generate sequence: %w", err)
	}

	f.SetID(shared.GenerateID())
	f.SetSequence(sequence)

	genres, err := encodeJSON(nonNil(f.Genres))
	if err != nil {
		return err
	}

	query := `
		INSERT INTO followed_artists (id, sequence, user_id, artist_id, artist_name, artist_image, genres,
			notifications, followed_at, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`

	_, err = r.db.Exec(query, f.ID(), sequence, f.UserID, f.ArtistID, f.ArtistName, f.ArtistImage, genres.String,
		f.Notifications, f.FollowedAt, f.CreatedAt(), f.UpdatedAt())
	if err != nil {
		return fmt.Errorf("failed to insert followed artist: %w", err)
	}

	return r.withStats(f)
}

// Get retrieves a followed artist by record ID.
func (r *FollowedArtistRepository) Get(id string) (*models.FollowedArtist, error) {
	return r.getOne(`SELECT `+followedArtistColumns+` FROM followed_artists WHERE id = ? AND deleted_at IS NULL`, id)
}

// Find retrieves the follow of artistID by userID.
func (r *FollowedArtistRepository) Find(userID, artistID string) (*models.FollowedArtist, error) {
	return r.getOne(`SELECT `+followedArtistColumns+` FROM followed_artists
		WHERE user_id = ? AND artist_id = ? AND deleted_at IS NULL`, userID, artistID)
}

func (r *FollowedArtistRepository) getOne(query string, args ...any) (*models.FollowedArtist, error) {
	f, err := scanFollowedArtist(r.db.QueryRow(query, args...))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("%w: followed artist", shared.ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to query followed artist: %w", err)
	}
	if err := r.withStats(f); err != nil {
		return nil, err
	}
	return f, nil
}

// Update persists the artist snapshot and the notifications flag.
func (r *FollowedArtistRepository) Update(f *models.FollowedArtist) error {
	if err := f.Validate(); err != nil {
		return fmt.Errorf("validation failed: %w", err)
	}

	now := time.Now().UTC()
	f.SetUpdatedAt(now)

	genres, err := encodeJSON(nonNil(f.Genres))
	if err != nil {
		return err
	}

	result, err := r.db.Exec(`
		UPDATE followed_artists
		SET artist_name = ?, artist_image = ?, genres = ?, notifications = ?, updated_at = ?
		WHERE id = ? AND deleted_at IS NULL
	`, f.ArtistName, f.ArtistImage, genres.String, f.Notifications, now, f.ID())
	if err != nil {
		return fmt.Errorf("failed to update followed artist: %w", err)
	}
	return checkAffected(result, "followed artist", f.ID())
}

// Delete soft-deletes a followed artist record.
func (r *FollowedArtistRepository) Delete(id string) error {
	result, err := r.db.Exec(
		`UPDATE followed_artists SET deleted_at = ? WHERE id = ? AND deleted_at IS NULL`, time.Now().UTC(), id,
	)
	if err != nil {
		return fmt.Errorf("failed to delete followed artist: %w", err)
	}
	return checkAffected(result, "followed artist", id)
}

// Unfollow removes userID's follow of artistID.
func (r *FollowedArtistRepository) Unfollow(userID, artistID string) error {
	f, err := r.Find(userID, artistID)
	if err != nil {
		return err
	}
	return r.Delete(f.ID())
}

// ToggleNotifications flips the notifications flag and returns the new value.
func (r *FollowedArtistRepository) ToggleNotifications(userID, artistID string) (bool, error) {
	f, err := r.Find(userID, artistID)
	if err != nil {
		return false, err
	}
	f.Notifications = !f.Notifications
	if err := r.Update(f); err != nil {
		return false, err
	}
	return f.Notifications, nil
}

// List retrieves followed artists, most recently followed first.
//
// Supported criteria: "user_id" (string), "artist_id" (string).
func (r *FollowedArtistRepository) List(criteria map[string]any) ([]*models.FollowedArtist, error) {
	query := `SELECT ` + followedArtistColumns + ` FROM followed_artists WHERE deleted_at IS NULL`
	args := []any{}

	if userID, ok := criteria["user_id"].(string); ok && userID != "" {
		query += " AND user_id = ?"
		args = append(args, userID)
	}

	if artistID, ok := criteria["artist_id"].(string); ok && artistID != "" {
		query += " AND artist_id = ?"
		args = append(args, artistID)
	}

	query += " ORDER BY sequence DESC"

	rows, err := r.db.Query(query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query followed artists: %w", err)
	}

	var artists []*models.FollowedArtist
	for rows.Next() {
		f, err := scanFollowedArtist(rows)
		if err != nil {
			rows.Close()
			return nil, fmt.Errorf("failed to scan followed artist: %w", err)
		}
		artists = append(artists, f)
	}
	err = rows.Err()
	rows.Close()
	if err != nil {
		return nil, fmt.Errorf("row iteration error: %w", err)
	}

	for _, f := range artists {
		if err := r.withStats(f); err != nil {
			return nil, err
		}
	}
	return artists, nil
}

// ListByUser returns the artists a user follows.
func (r *FollowedArtistRepository) ListByUser(userID string) ([]*models.FollowedArtist, error) {
	return r.List(map[string]any{"user_id": userID})
}

func (r *FollowedArtistRepository) withStats(f *models.FollowedArtist) error {
	count, avg, last, err := r.posts.ArtistReviewStats(f.UserID, f.ArtistID)
	if err != nil {
		return err
	}
	f.ApplyStats(count, avg, last)
	return nil
}

func scanFollowedArtist(s scanner) (*models.FollowedArtist, error) {
	var (
		f                    models.FollowedArtist
		id                   string
		sequence             int
		genres               sql.NullString
		createdAt, updatedAt time.Time
		deletedAt            sql.NullTime
	)

	err := s.Scan(&id, &sequence, &f.UserID, &f.ArtistID, &f.ArtistName, &f.ArtistImage, &genres,
		&f.Notifications, &f.FollowedAt, &createdAt, &updatedAt, &deletedAt)
	if err != nil {
		return nil, err
	}
	if err := decodeJSON(genres, &f.Genres); err != nil {
		return nil, err
	}

	f.SetID(id)
	f.SetSequence(sequence)
	f.SetCreatedAt(createdAt)
	f.SetUpdatedAt(updatedAt)
	if deletedAt.Valid {
		f.SetDeletedAt(&deletedAt.Time)
	}
	return &f, nil
}

func nonNil(s []string) []string {
	if s == nil {
		return []string{}
	}
	return s
}
