package repositories

import (
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/desertthunder/musicblah/internal/models"
	"github.com/desertthunder/musicblah/internal/shared"
)

const postColumns = `id, sequence, kind, text, images, parent_id, created_by, rating, album, track, lyric, created_at, updated_at, deleted_at`

// RecentReviewWindow is how many of the latest reviews community and stats queries look at.
const RecentReviewWindow = 50

// PostRepository implements [models.Repository] for [models.Post] persistence.
type PostRepository struct {
	db *sql.DB
}

// NewPostRepository creates a new [PostRepository] with the given database connection
func NewPostRepository(db *sql.DB) *PostRepository {
	return &PostRepository{db: db}
}

// Create inserts a new post with generated ID and sequence.
func (r *PostRepository) Create(post *models.Post) error {
	if err := post.Validate(); err != nil {
		return fmt.Errorf("validation failed: %w", err)
	}

	sequence, err := NextSequence(r.db, "posts")
	if err != nil {
		return fmt.Errorf("failed to generate sequence: %w", err)
	}

	post.SetID(shared.GenerateID())
	post.SetSequence(sequence)

	images, album, track, lyric, err := encodePostColumns(post)
	if err != nil {
		return err
	}

	query := `
		INSERT INTO posts (id, sequence, kind, text, images, parent_id, created_by, rating, album, track, lyric,
			artist_id, artist_name, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`

	_, err = r.db.Exec(query, post.ID(), sequence, post.Kind, post.Text, images.String, nullable(post.ParentID),
		post.CreatedBy, post.Rating, album, track, lyric, post.ArtistID(), post.ArtistName(),
		post.CreatedAt(), post.UpdatedAt())
	if err != nil {
		return fmt.Errorf("failed to insert post: %w", err)
	}
	return nil
}

// Get retrieves a post by ID with its likes, reposts and reply count.
func (r *PostRepository) Get(id string) (*models.Post, error) {
	query := `SELECT ` + postColumns + ` FROM posts WHERE id = ? AND deleted_at IS NULL`

	post, err := scanPost(r.db.QueryRow(query, id))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("%w: post %s", shared.ErrNotFound, id)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to query post: %w", err)
	}

	if err := r.hydrate([]*models.Post{post}); err != nil {
		return nil, err
	}
	return post, nil
}

// Update modifies a post's text, images and rating.
func (r *PostRepository) Update(post *models.Post) error {
	if err := post.Validate(); err != nil {
		return fmt.Errorf("validation failed: %w", err)
	}

	now := time.Now().UTC()
	post.SetUpdatedAt(now)

	images, album, track, lyric, err := encodePostColumns(post)
	if err != nil {
		return err
	}

	query := `
		UPDATE posts
		SET text = ?, images = ?, rating = ?, album = ?, track = ?, lyric = ?, artist_id = ?, artist_name = ?, updated_at = ?
		WHERE id = ? AND deleted_at IS NULL
	`

	result, err := r.db.Exec(query, post.Text, images.String, post.Rating, album, track, lyric,
		post.ArtistID(), post.ArtistName(), now, post.ID())
	if err != nil {
		return fmt.Errorf("failed to update post: %w", err)
	}
	return checkAffected(result, "post", post.ID())
}

// Delete soft-deletes a post by ID
func (r *PostRepository) Delete(id string) error {
	result, err := r.db.Exec(`UPDATE posts SET deleted_at = ? WHERE id = ? AND deleted_at IS NULL`, time.Now().UTC(), id)
	if err != nil {
		return fmt.Errorf("failed to delete post: %w", err)
	}
	return checkAffected(result, "post", id)
}

// List retrieves posts matching the given criteria, newest first.
//
// Supported criteria: "created_by" (string), "kind" (models.PostKind), "parent_id" (string),
// "top_level" (bool), "limit" (int).
func (r *PostRepository) List(criteria map[string]any) ([]*models.Post, error) {
	query := `SELECT ` + postColumns + ` FROM posts WHERE deleted_at IS NULL`
	args := []any{}

	if createdBy, ok := criteria["created_by"].(string); ok && createdBy != "" {
		query += " AND created_by = ?"
		args = append(args, createdBy)
	}

	if kind, ok := criteria["kind"].(models.PostKind); ok && kind != "" {
		query += " AND kind = ?"
		args = append(args, kind)
	}

	if parentID, ok := criteria["parent_id"].(string); ok && parentID != "" {
		query += " AND parent_id = ?"
		args = append(args, parentID)
	}

	if topLevel, ok := criteria["top_level"].(bool); ok && topLevel {
		query += " AND parent_id IS NULL"
	}

	query += " ORDER BY sequence DESC"

	if limit, ok := criteria["limit"].(int); ok && limit > 0 {
		query += " LIMIT ?"
		args = append(args, limit)
	}

	return r.query(query, args...)
}

// Feed returns top-level posts written or reposted by any of authorIDs, newest first.
func (r *PostRepository) Feed(authorIDs []string, limit int) ([]*models.Post, error) {
	if len(authorIDs) == 0 {
		return nil, nil
	}

	in := placeholders(len(authorIDs))
	query := `SELECT ` + postColumns + ` FROM posts
		WHERE deleted_at IS NULL AND parent_id IS NULL
		AND (created_by IN (` + in + `) OR id IN (SELECT post_id FROM post_reposts WHERE user_id IN (` + in + `)))
		ORDER BY sequence DESC LIMIT ?`

	args := make([]any, 0, len(authorIDs)*2+1)
	for range 2 {
		for _, id := range authorIDs {
			args = append(args, id)
		}
	}
	args = append(args, limit)

	return r.query(query, args...)
}

// Replies returns the replies to a post, oldest first.
func (r *PostRepository) Replies(parentID string) ([]*models.Post, error) {
	query := `SELECT ` + postColumns + ` FROM posts WHERE deleted_at IS NULL AND parent_id = ? ORDER BY sequence ASC`
	return r.query(query, parentID)
}

// ReviewsByUser returns a user's reviews, newest first.
func (r *PostRepository) ReviewsByUser(userID string, limit int) ([]*models.Post, error) {
	return r.List(map[string]any{"created_by": userID, "kind": models.KindReview, "limit": limit})
}

// RecentReviews returns the newest reviews across all users.
func (r *PostRepository) RecentReviews(limit int) ([]*models.Post, error) {
	return r.List(map[string]any{"kind": models.KindReview, "limit": limit})
}

// CommunityReviews returns up to limit reviews of an artist taken from the latest [RecentReviewWindow] reviews.
//
// A review matches when its track or its album is by the artist, see [models.Post.ReviewsArtist].
func (r *PostRepository) CommunityReviews(artistID, artistName string, limit int) ([]*models.Post, error) {
	recent, err := r.RecentReviews(RecentReviewWindow)
	if err != nil {
		return nil, err
	}

	var matched []*models.Post
	for _, p := range recent {
		if len(matched) == limit {
			break
		}
		if p.ReviewsArtist(artistID, artistName) {
			matched = append(matched, p)
		}
	}
	return matched, nil
}

// ArtistReviewStats summarizes a user's reviews of an artist.
func (r *PostRepository) ArtistReviewStats(userID, artistID string) (count int, average float64, last *time.Time, err error) {
	rows, err := r.db.Query(`
		SELECT rating, created_at FROM posts
		WHERE deleted_at IS NULL AND kind = ? AND created_by = ? AND artist_id = ?
		ORDER BY sequence DESC
	`, models.KindReview, userID, artistID)
	if err != nil {
		return 0, 0, nil, fmt.Errorf("failed to query review stats: %w", err)
	}
	defer rows.Close()

	total := 0
	for rows.Next() {
		var (
			rating    int
			createdAt time.Time
		)
		if err := rows.Scan(&rating, &createdAt); err != nil {
			return 0, 0, nil, fmt.Errorf("failed to scan review: %w", err)
		}
		if count == 0 {
			last = &createdAt
		}
		count++
		total += rating
	}
	if err := rows.Err(); err != nil {
		return 0, 0, nil, fmt.Errorf("row iteration error: %w", err)
	}

	if count > 0 {
		average = float64(total) / float64(count)
	}
	return count, average, last, nil
}

// Like records a like. It reports false when the user already liked the post.
func (r *PostRepository) Like(postID, userID string) (bool, error) {
	return r.addEdge("post_likes", postID, userID)
}

// Unlike removes a like. It reports false when there was none.
func (r *PostRepository) Unlike(postID, userID string) (bool, error) {
	return r.removeEdge("post_likes", postID, userID)
}

// Repost records a repost. It reports false when the user already reposted.
func (r *PostRepository) Repost(postID, userID string) (bool, error) {
	return r.addEdge("post_reposts", postID, userID)
}

// Unrepost removes a repost. It reports false when there was none.
func (r *PostRepository) Unrepost(postID, userID string) (bool, error) {
	return r.removeEdge("post_reposts", postID, userID)
}

func (r *PostRepository) addEdge(table, postID, userID string) (bool, error) {
	result, err := r.db.Exec(
		`INSERT OR IGNORE INTO `+table+` (post_id, user_id, created_at) VALUES (?, ?, ?)`,
		postID, userID, time.Now().UTC(),
	)
	if err != nil {
		return false, fmt.Errorf("failed to insert into %s: %w", table, err)
	}
	n, err := result.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("failed to get affected rows: %w", err)
	}
	return n > 0, nil
}

func (r *PostRepository) removeEdge(table, postID, userID string) (bool, error) {
	result, err := r.db.Exec(`DELETE FROM `+table+` WHERE post_id = ? AND user_id = ?`, postID, userID)
	if err != nil {
		return false, fmt.Errorf("failed to delete from %s: %w", table, err)
	}
	n, err := result.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("failed to get affected rows: %w", err)
	}
	return n > 0, nil
}

func (r *PostRepository) query(query string, args ...any) ([]*models.Post, error) {
	rows, err := r.db.Query(query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query posts: %w", err)
	}

	var posts []*models.Post
	for rows.Next() {
		post, err := scanPost(rows)
		if err != nil {
			rows.Close()
			return nil, fmt.Errorf("failed to scan post: %w", err)
		}
		posts = append(posts, post)
	}
	err = rows.Err()
	rows.Close()
	if err != nil {
		return nil, fmt.Errorf("row iteration error: %w", err)
	}

	if err := r.hydrate(posts); err != nil {
		return nil, err
	}
	return posts, nil
}

// hydrate fills likes, reposts and reply counts for posts.
func (r *PostRepository) hydrate(posts []*models.Post) error {
	if len(posts) == 0 {
		return nil
	}

	byID := make(map[string]*models.Post, len(posts))
	args := make([]any, 0, len(posts))
	for _, p := range posts {
		byID[p.ID()] = p
		args = append(args, p.ID())
	}
	in := placeholders(len(posts))

	for table, assign := range map[string]func(p *models.Post, userID string){
		"post_likes":   func(p *models.Post, userID string) { p.Likes = append(p.Likes, userID) },
		"post_reposts": func(p *models.Post, userID string) { p.Reposts = append(p.Reposts, userID) },
	} {
		rows, err := r.db.Query(`SELECT post_id, user_id FROM `+table+` WHERE post_id IN (`+in+`) ORDER BY created_at ASC`, args...)
		if err != nil {
			return fmt.Errorf("failed to query %s: %w", table, err)
		}
		for rows.Next() {
			var postID, userID string
			if err := rows.Scan(&postID, &userID); err != nil {
				rows.Close()
				return fmt.Errorf("failed to scan %s: %w", table, err)
			}
			assign(byID[postID], userID)
		}
		err = rows.Err()
		rows.Close()
		if err != nil {
			return fmt.Errorf("row iteration error: %w", err)
		}
	}

	rows, err := r.db.Query(`
		SELECT parent_id, COUNT(*) FROM posts
		WHERE deleted_at IS NULL AND parent_id IN (`+in+`)
		GROUP BY parent_id
	`, args...)
	if err != nil {
		return fmt.Errorf("failed to count replies: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		var (
			parentID string
			count    int
		)
		if err := rows.Scan(&parentID, &count); err != nil {
			return fmt.Errorf("failed to scan reply count: %w", err)
		}
		byID[parentID].ReplyCount = count
	}
	return rows.Err()
}

func encodePostColumns(post *models.Post) (images, album, track, lyric sql.NullString, err error) {
	imgs := post.Images
	if imgs == nil {
		imgs = []string{}
	}
	if images, err = encodeJSON(imgs); err != nil {
		return
	}
	if post.Album != nil {
		if album, err = encodeJSON(post.Album); err != nil {
			return
		}
	}
	if post.Track != nil {
		if track, err = encodeJSON(post.Track); err != nil {
			return
		}
	}
	if post.Lyric != nil {
		lyric, err = encodeJSON(post.Lyric)
	}
	return
}

func scanPost(s scanner) (*models.Post, error) {
	var (
		post                        models.Post
		id                          string
		sequence                    int
		images, album, track, lyric sql.NullString
		parentID                    sql.NullString
		createdAt, updatedAt        time.Time
		deletedAt                   sql.NullTime
	)

	err := s.Scan(&id, &sequence, &post.Kind, &post.Text, &images, &parentID, &post.CreatedBy, &post.Rating,
		&album, &track, &lyric, &createdAt, &updatedAt, &deletedAt)
	if err != nil {
		return nil, err
	}

	if err := decodeJSON(images, &post.Images); err != nil {
		return nil, err
	}
	if album.Valid {
		post.Album = &models.AlbumRef{}
		if err := decodeJSON(album, post.Album); err != nil {
			return nil, err
		}
	}
	if track.Valid {
		post.Track = &models.TrackRef{}
		if err := decodeJSON(track, post.Track); err != nil {
			return nil, err
		}
	}
	if lyric.Valid {
		post.Lyric = &models.LyricCard{}
		if err := decodeJSON(lyric, post.Lyric); err != nil {
			return nil, err
		}
	}

	post.ParentID = parentID.String
	post.SetID(id)
	post.SetSequence(sequence)
	post.SetCreatedAt(createdAt)
	post.SetUpdatedAt(updatedAt)
	if deletedAt.Valid {
		post.SetDeletedAt(&deletedAt.Time)
	}
	return &post, nil
}

// nullable maps an empty string to SQL NULL.
func nullable(s string) sql.NullString {
	return sql.NullString{String: s, Valid: s != ""}
}
