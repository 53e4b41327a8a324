package repositories

import (
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/desertthunder/musicblah/internal/models"
	"github.com/desertthunder/musicblah/internal/shared"
)

const userColumns = `id, sequence, name, username, email, password_hash, bio, photo_url, verified, created_at, updated_at, deleted_at`

// UserRepository implements [models.Repository] for user [models.User] persistence.
type UserRepository struct {
	db *sql.DB
}

// NewUserRepository creates a new [UserRepository] with the given database connection
func NewUserRepository(db *sql.DB) *UserRepository {
	return &UserRepository{db: db}
}

// Create inserts a new user into the database with generated ID and sequence.
//
// Returns [shared.ErrConflict] when the username or email is taken.
func (r *UserRepository) Create(user *models.User) error {
	if err := user.Validate(); err != nil {
		return fmt.Errorf("validation failed: %w", err)
	}

	sequence, err := NextSequence(r.db, "users")
	if err != nil {
		return fmt.Errorf("failed to generate sequence: %w", err)
	}

	user.SetID(shared.GenerateID())
	user.SetSequence(sequence)

	query := `
		INSERT INTO users (id, sequence, name, username, email, password_hash, bio, photo_url, verified, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`

	_, err = r.db.Exec(query, user.ID(), sequence, user.Name, user.Username, user.Email, user.PasswordHash,
		user.Bio, user.PhotoURL, user.Verified, user.CreatedAt(), user.UpdatedAt())
	if isUniqueViolation(err) {
		return fmt.Errorf("%w: username or email already registered", shared.ErrConflict)
	}
	if err != nil {
		return fmt.Errorf("failed to insert user: %w", err)
	}

	return nil
}

// Get retrieves a user by ID, excluding soft-deleted users
func (r *UserRepository) Get(id string) (*models.User, error) {
	return r.getBy("id", id)
}

// GetByUsername retrieves a user by username, ignoring case.
func (r *UserRepository) GetByUsername(username string) (*models.User, error) {
	return r.getBy("username", username)
}

// GetByEmail retrieves a user by email address.
func (r *UserRepository) GetByEmail(email string) (*models.User, error) {
	return r.getBy("email", strings.ToLower(strings.TrimSpace(email)))
}

func (r *UserRepository) getBy(column, value string) (*models.User, error) {
	query := `SELECT ` + userColumns + ` FROM users WHERE ` + column + ` = ? COLLATE NOCASE AND deleted_at IS NULL`

	user, err := scanUser(r.db.QueryRow(query, value))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("%w: user %s", shared.ErrNotFound, value)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to query user: %w", err)
	}
	return user, nil
}

// Update modifies an existing user's profile in the database
func (r *UserRepository) Update(user *models.User) error {
	if err := user.Validate(); err != nil {
		return fmt.Errorf("validation failed: %w", err)
	}

	now := time.Now().UTC()
	user.SetUpdatedAt(now)

	query := `
		UPDATE users
		SET name = ?, username = ?, email = ?, password_hash = ?, bio = ?, photo_url = ?, verified = ?, updated_at = ?
		WHERE id = ? AND deleted_at IS NULL
	`

	result, err := r.db.Exec(query, user.Name, user.Username, user.Email, user.PasswordHash, user.Bio,
		user.PhotoURL, user.Verified, now, user.ID())
	if isUniqueViolation(err) {
		return fmt.Errorf("%w: username or email already registered", shared.ErrConflict)
	}
	if err != nil {
		return fmt.Errorf("failed to update user: %w", err)
	}
	return checkAffected(result, "user", user.ID())
}

// Delete soft-deletes a user by ID
func (r *UserRepository) Delete(id string) error {
	query := `
		UPDATE users
		SET deleted_at = ?
		WHERE id = ? AND deleted_at IS NULL
	`

	result, err := r.db.Exec(query, time.Now().UTC(), id)
	if err != nil {
		return fmt.Errorf("failed to delete user: %w", err)
	}
	return checkAffected(result, "user", id)
}

// List retrieves all users matching the given criteria, excluding soft-deleted users.
//
// Supported criteria: "email" (string), "username" (string), "ids" ([]string).
func (r *UserRepository) List(criteria map[string]any) ([]*models.User, error) {
	query := `SELECT ` + userColumns + ` FROM users WHERE deleted_at IS NULL`
	args := []any{}

	if email, ok := criteria["email"].(string); ok && email != "" {
		query += " AND email = ?"
		args = append(args, strings.ToLower(email))
	}

	if username, ok := criteria["username"].(string); ok && username != "" {
		query += " AND username = ? COLLATE NOCASE"
		args = append(args, username)
	}

	if ids, ok := criteria["ids"].([]string); ok {
		if len(ids) == 0 {
			return nil, nil
		}
		query += " AND id IN (" + placeholders(len(ids)) + ")"
		for _, id := range ids {
			args = append(args, id)
		}
	}

	query += " ORDER BY sequence ASC"
	return r.query(query, args...)
}

// Follow records that follower follows followee. Following twice is a no-op.
func (r *UserRepository) Follow(followerID, followeeID string) error {
	if followerID == followeeID {
		return fmt.Errorf("%w: users cannot follow themselves", shared.ErrInvalidInput)
	}

	_, err := r.db.Exec(
		`INSERT OR IGNORE INTO user_follows (follower_id, followee_id, created_at) VALUES (?, ?, ?)`,
		followerID, followeeID, time.Now().UTC(),
	)
	if err != nil {
		return fmt.Errorf("failed to follow user: %w", err)
	}
	return nil
}

// Unfollow removes a follow edge. It returns [shared.ErrNotFound] when there was none.
func (r *UserRepository) Unfollow(followerID, followeeID string) error {
	result, err := r.db.Exec(`DELETE FROM user_follows WHERE follower_id = ? AND followee_id = ?`, followerID, followeeID)
	if err != nil {
		return fmt.Errorf("failed to unfollow user: %w", err)
	}
	return checkAffected(result, "follow", followeeID)
}

// IsFollowing reports whether follower follows followee.
func (r *UserRepository) IsFollowing(followerID, followeeID string) (bool, error) {
	var exists bool
	err := r.db.QueryRow(
		`SELECT EXISTS(SELECT 1 FROM user_follows WHERE follower_id = ? AND followee_id = ?)`,
		followerID, followeeID,
	).Scan(&exists)
	if err != nil {
		return false, fmt.Errorf("failed to check follow: %w", err)
	}
	return exists, nil
}

// FollowingIDs returns the IDs of the users id follows, most recent first.
func (r *UserRepository) FollowingIDs(id string) ([]string, error) {
	return r.ids(`
		SELECT f.followee_id FROM user_follows f
		JOIN users u ON u.id = f.followee_id AND u.deleted_at IS NULL
		WHERE f.follower_id = ?
		ORDER BY f.created_at DESC
	`, id)
}

// FollowerIDs returns the IDs of the users following id, most recent first.
func (r *UserRepository) FollowerIDs(id string) ([]string, error) {
	return r.ids(`
		SELECT f.follower_id FROM user_follows f
		JOIN users u ON u.id = f.follower_id AND u.deleted_at IS NULL
		WHERE f.followee_id = ?
		ORDER BY f.created_at DESC
	`, id)
}

// Following returns the users id follows.
func (r *UserRepository) Following(id string) ([]*models.User, error) {
	ids, err := r.FollowingIDs(id)
	if err != nil {
		return nil, err
	}
	return r.List(map[string]any{"ids": ids})
}

// Followers returns the users following id.
func (r *UserRepository) Followers(id string) ([]*models.User, error) {
	ids, err := r.FollowerIDs(id)
	if err != nil {
		return nil, err
	}
	return r.List(map[string]any{"ids": ids})
}

func (r *UserRepository) ids(query string, args ...any) ([]string, error) {
	rows, err := r.db.Query(query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query follows: %w", err)
	}
	defer rows.Close()

	var ids []string
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return nil, fmt.Errorf("failed to scan follow: %w", err)
		}
		ids = append(ids, id)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("row iteration error: %w", err)
	}
	return ids, nil
}

func (r *UserRepository) query(query string, args ...any) ([]*models.User, error) {
	rows, err := r.db.Query(query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query users: %w", err)
	}
	defer rows.Close()

	var users []*models.User
	for rows.Next() {
		user, err := scanUser(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan user: %w", err)
		}
		users = append(users, user)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("row iteration error: %w", err)
	}
	return users, nil
}

func scanUser(s scanner) (*models.User, error) {
	var (
		user      models.User
		id        string
		sequence  int
		createdAt time.Time
		updatedAt time.Time
		deletedAt sql.NullTime
	)

	err := s.Scan(&id, &sequence, &user.Name, &user.Username, &user.Email, &user.PasswordHash, &user.Bio,
		&user.PhotoURL, &user.Verified, &createdAt, &updatedAt, &deletedAt)
	if err != nil {
		return nil, err
	}

	user.SetID(id)
	user.SetSequence(sequence)
	user.SetCreatedAt(createdAt)
	user.SetUpdatedAt(updatedAt)
	if deletedAt.Valid {
		user.SetDeletedAt(&deletedAt.Time)
	}
	return &user, nil
}
