package web

import (
	"time"

	"github.com/desertthunder/musicblah/internal/models"
)

type userView struct {
	ID        string    `json:"id"`
	Name      string    `json:"name"`
	Username  string    `json:"username"`
	Bio       string    `json:"bio"`
	PhotoURL  string    `json:"photoURL"`
	Verified  bool      `json:"verified"`
	CreatedAt time.Time `json:"createdAt"`

	Email     string `json:"email,omitempty"`
	Following *bool  `json:"isFollowing,omitempty"`
}

func newUserView(u *models.User) userView {
	return userView{
		ID:        u.ID(),
		Name:      u.Name,
		Username:  u.Username,
		Bio:       u.Bio,
		PhotoURL:  u.Photo(),
		Verified:  u.Verified,
		CreatedAt: u.CreatedAt(),
	}
}

func newUserViews(users []*models.User) []userView {
	views := make([]userView, 0, len(users))
	for _, u := range users {
		views = append(views, newUserView(u))
	}
	return views
}

type authorView struct {
	ID       string `json:"id"`
	Name     string `json:"name"`
	Username string `json:"username"`
	PhotoURL string `json:"photoURL"`
	Verified bool   `json:"verified"`
}

type postView struct {
	ID         string            `json:"id"`
	Type       models.PostKind   `json:"type"`
	Content    string            `json:"content"`
	Images     []string          `json:"images"`
	ParentID   string            `json:"parentTweetId,omitempty"`
	CreatedBy  string            `json:"createdBy"`
	Author     *authorView       `json:"author,omitempty"`
	Rating     int               `json:"rating,omitempty"`
	Album      *models.AlbumRef  `json:"album,omitempty"`
	Track      *models.TrackRef  `json:"track,omitempty"`
	Lyric      *models.LyricCard `json:"lyricCard,omitempty"`
	Likes      []string          `json:"likes"`
	Retweets   []string          `json:"retweets"`
	Replies    int               `json:"replies"`
	Liked      bool              `json:"liked"`
	CreatedAt  time.Time         `json:"createdAt"`
	UpdatedAt  time.Time         `json:"updatedAt"`
	RepostedBy string            `json:"repostedBy,omitempty"`
}

func newPostView(p *models.Post, viewer string) postView {
	return postView{
		ID:        p.ID(),
		Type:      p.Kind,
		Content:   p.Text,
		Images:    orEmpty(p.Images),
		ParentID:  p.ParentID,
		CreatedBy: p.CreatedBy,
		Rating:    p.Rating,
		Album:     p.Album,
		Track:     p.Track,
		Lyric:     p.Lyric,
		Likes:     orEmpty(p.Likes),
		Retweets:  orEmpty(p.Reposts),
		Replies:   p.ReplyCount,
		Liked:     viewer != "" && p.LikedBy(viewer),
		CreatedAt: p.CreatedAt(),
		UpdatedAt: p.UpdatedAt(),
	}
}

// postViews renders posts with their authors, looking each author up once.
func (a *App) postViews(posts []*models.Post, viewer string) []postView {
	authors := make(map[string]*authorView)
	views := make([]postView, 0, len(posts))
	for _, p := range posts {
		v := newPostView(p, viewer)

		author, ok := authors[p.CreatedBy]
		if !ok {
			if u, err := a.users.Get(p.CreatedBy); err == nil {
				author = &authorView{ID: u.ID(), Name: u.Name, Username: u.Username, PhotoURL: u.Photo(), Verified: u.Verified}
			} else {
				a.logger.Debug("post author missing", "post", p.ID(), "author", p.CreatedBy, "error", err)
			}
			authors[p.CreatedBy] = author
		}
		v.Author = author
		views = append(views, v)
	}
	return views
}

type notificationView struct {
	ID               string                  `json:"id"`
	Type             models.NotificationType `json:"type"`
	UserID           string                  `json:"userId"`
	FromUserID       string                  `json:"fromUserId"`
	FromUserName     string                  `json:"fromUserName"`
	FromUserUsername string                  `json:"fromUserUsername"`
	FromUserPhoto    string                  `json:"fromUserPhoto"`
	TweetID          string                  `json:"tweetId,omitempty"`
	TweetText        string                  `json:"tweetText,omitempty"`
	Read             bool                    `json:"read"`
	CreatedAt        time.Time               `json:"createdAt"`
}

func newNotificationView(n *models.Notification) notificationView {
	return notificationView{
		ID:               n.ID(),
		Type:             n.Type,
		UserID:           n.UserID,
		FromUserID:       n.FromUserID,
		FromUserName:     n.FromUserName,
		FromUserUsername: n.FromUserUsername,
		FromUserPhoto:    n.FromUserPhoto,
		TweetID:          n.TweetID,
		TweetText:        n.TweetText,
		Read:             n.Read,
		CreatedAt:        n.CreatedAt(),
	}
}

type followedArtistView struct {
	ID            string     `json:"id"`
	ArtistID      string     `json:"artistId"`
	ArtistName    string     `json:"artistName"`
	ArtistImage   string     `json:"artistImage"`
	Genres        []string   `json:"genres"`
	Notifications bool       `json:"notificationsEnabled"`
	FollowedAt    time.Time  `json:"followedAt"`
	ReviewsCount  int        `json:"reviewsCount"`
	AverageRating float64    `json:"averageRating"`
	Affinity      string     `json:"affinityLevel"`
	AffinityLabel string     `json:"affinityLabel"`
	AffinityEmoji string     `json:"affinityEmoji"`
	LastReviewAt  *time.Time `json:"lastReviewAt,omitempty"`
}

func newFollowedArtistView(f *models.FollowedArtist) followedArtistView {
	return followedArtistView{
		ID:            f.ID(),
		ArtistID:      f.ArtistID,
		ArtistName:    f.ArtistName,
		ArtistImage:   f.ArtistImage,
		Genres:        orEmpty(f.Genres),
		Notifications: f.Notifications,
		FollowedAt:    f.FollowedAt,
		ReviewsCount:  f.ReviewsCount,
		AverageRating: f.AverageRating,
		Affinity:      string(f.Affinity),
		AffinityLabel: f.Affinity.Label(),
		AffinityEmoji: f.Affinity.Emoji(),
		LastReviewAt:  f.LastReviewAt,
	}
}

func orEmpty[T any](s []T) []T {
	if s == nil {
		return []T{}
	}
	return s
}
