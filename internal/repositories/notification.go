package repositories

import (
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/desertthunder/musicblah/internal/models"
	"github.com/desertthunder/musicblah/internal/shared"
)

const notificationColumns = `id, sequence, type, user_id, from_user_id, from_user_name, from_user_username, from_user_photo,
	tweet_id, tweet_text, read, created_at, updated_at, deleted_at`

// NotificationRepository implements [models.Repository] for [models.Notification] persistence.
type NotificationRepository struct {
	db *sql.DB
}

// NewNotificationRepository creates a new [NotificationRepository] with the given database connection
func NewNotificationRepository(db *sql.DB) *NotificationRepository {
	return &NotificationRepository{db: db}
}

// Create inserts a new notification with generated ID and sequence.
func (r *NotificationRepository) Create(n *models.Notification) error {
	if err := n.Validate(); err != nil {
		return fmt.Errorf("validation failed: %w", err)
	}

	sequence, err := NextSequence(r.db, "notifications")
	if err != nil {
		return fmt.Errorf("failed to generate sequence: %w", err)
	}

	n.SetID(shared.GenerateID())
	n.SetSequence(sequence)

	query := `
		INSERT INTO notifications (id, sequence, type, user_id, from_user_id, from_user_name, from_user_username,
			from_user_photo, tweet_id, tweet_text, read, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`

	_, err = r.db.Exec(query, n.ID(), sequence, n.Type, n.UserID, n.FromUserID, n.FromUserName, n.FromUserUsername,
		n.FromUserPhoto, n.TweetID, n.TweetText, n.Read, n.CreatedAt(), n.UpdatedAt())
	if err != nil {
		return fmt.Errorf("failed to insert notification: %w", err)
	}
	return nil
}

// Get retrieves a notification by ID.
func (r *NotificationRepository) Get(id string) (*models.Notification, error) {
	query := `SELECT ` + notificationColumns + ` FROM notifications WHERE id = ? AND deleted_at IS NULL`

	n, err := scanNotification(r.db.QueryRow(query, id))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("%w: notification %s", shared.ErrNotFound, id)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to query notification: %w", err)
	}
	return n, nil
}

// Update persists the read flag of a notification.
func (r *NotificationRepository) Update(n *models.Notification) error {
	now := time.Now().UTC()
	n.SetUpdatedAt(now)

	result, err := r.db.Exec(
		`UPDATE notifications SET read = ?, updated_at = ? WHERE id = ? AND deleted_at IS NULL`,
		n.Read, now, n.ID(),
	)
	if err != nil {
		return fmt.Errorf("failed to update notification: %w", err)
	}
	return checkAffected(result, "notification", n.ID())
}

// Delete soft-deletes a notification by ID.
func (r *NotificationRepository) Delete(id string) error {
	result, err := r.db.Exec(
		`UPDATE notifications SET deleted_at = ? WHERE id = ? AND deleted_at IS NULL`,
		time.Now().UTC(), id,
	)
	if err != nil {
		return fmt.Errorf("failed to delete notification: %w", err)
	}
	return checkAffected(result, "notification", id)
}

// List retrieves notifications newest first.
//
// Supported criteria: "user_id" (string), "unread" (bool), "limit" (int).
func (r *NotificationRepository) List(criteria map[string]any) ([]*models.Notification, error) {
	query := `SELECT ` + notificationColumns + ` FROM notifications WHERE deleted_at IS NULL`
	args := []any{}

	if userID, ok := criteria["user_id"].(string); ok && userID != "" {
		query += " AND user_id = ?"
		args = append(args, userID)
	}

	if unread, ok := criteria["unread"].(bool); ok && unread {
		query += " AND read = 0"
	}

	query += " ORDER BY sequence DESC"

	if limit, ok := criteria["limit"].(int); ok && limit > 0 {
		query += " LIMIT ?"
		args = append(args, limit)
	}

	rows, err := r.db.Query(query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query notifications: %w", err)
	}
	defer rows.Close()

	var notifications []*models.Notification
	for rows.Next() {
		n, err := scanNotification(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan notification: %w", err)
		}
		notifications = append(notifications, n)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("row iteration error: %w", err)
	}
	return notifications, nil
}

// UnreadCount returns how many unread notifications a user has.
func (r *NotificationRepository) UnreadCount(userID string) (int, error) {
	var count int
	err := r.db.QueryRow(
		`SELECT COUNT(*) FROM notifications WHERE user_id = ? AND read = 0 AND deleted_at IS NULL`, userID,
	).Scan(&count)
	if err != nil {
		return 0, fmt.Errorf("failed to count notifications: %w", err)
	}
	return count, nil
}

// MarkRead marks one of userID's notifications as read.
func (r *NotificationRepository) MarkRead(userID, id string) error {
	result, err := r.db.Exec(
		`UPDATE notifications SET read = 1, updated_at = ? WHERE id = ? AND user_id = ? AND deleted_at IS NULL`,
		time.Now().UTC(), id, userID,
	)
	if err != nil {
		return fmt.Errorf("failed to mark notification read: %w", err)
	}
	return checkAffected(result, "notification", id)
}

// MarkAllRead marks every unread notification of userID as read in one transaction
// and returns how many were updated.
func (r *NotificationRepository) MarkAllRead(userID string) (int, error) {
	tx, err := r.db.Begin()
	if err != nil {
		return 0, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	result, err := tx.Exec(
		`UPDATE notifications SET read = 1, updated_at = ? WHERE user_id = ? AND read = 0 AND deleted_at IS NULL`,
		time.Now().UTC(), userID,
	)
	if err != nil {
		return 0, fmt.Errorf("failed to mark notifications read: %w", err)
	}

	n, err := result.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("failed to get affected rows: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return 0, fmt.Errorf("failed to commit: %w", err)
	}
	return int(n), nil
}

// Remove deletes the notifications fromUserID caused on a post, e.g. when a like is undone.
//
// An empty tweetID matches notifications not tied to a post, such as follows.
func (r *NotificationRepository) Remove(fromUserID string, kind models.NotificationType, tweetID string) (int, error) {
	result, err := r.db.Exec(`
		UPDATE notifications SET deleted_at = ?
		WHERE from_user_id = ? AND type = ? AND tweet_id = ? AND deleted_at IS NULL
	`, time.Now().UTC(), fromUserID, kind, tweetID)
	if err != nil {
		return 0, fmt.Errorf("failed to remove notifications: %w", err)
	}

	n, err := result.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("failed to get affected rows: %w", err)
	}
	return int(n), nil
}

func scanNotification(s scanner) (*models.Notification, error) {
	var (
		n                    models.Notification
		id                   string
		sequence             int
		createdAt, updatedAt time.Time
		deletedAt            sql.NullTime
	)

	err := s.Scan(&id, &sequence, &n.Type, &n.UserID, &n.FromUserID, &n.FromUserName, &n.FromUserUsername,
		&n.FromUserPhoto, &n.TweetID, &n.TweetText, &n.Read, &createdAt, &updatedAt, &deletedAt)
	if err != nil {
		return nil, err
	}

	n.SetID(id)
	n.SetSequence(sequence)
	n.SetCreatedAt(createdAt)
	n.SetUpdatedAt(updatedAt)
	if deletedAt.Valid {
		n.SetDeletedAt(&deletedAt.Time)
	}
	return &n, nil
}
