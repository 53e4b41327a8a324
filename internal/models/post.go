package models

import (
	"fmt"
	"strings"
	"unicode/utf8"

	"github.com/desertthunder/musicblah/internal/shared"
)

// PostKind distinguishes plain posts, reviews and lyric cards.
type PostKind string

const (
	KindTweet  PostKind = "tweet"
	KindReview PostKind = "review"
	KindLyric  PostKind = "lyric"
)

// MaxPostLength is the maximum number of runes in a post's text.
const MaxPostLength = 280

// AlbumRef is the album snapshot attached to an album review.
type AlbumRef struct {
	ID       string `json:"id"`
	Name     string `json:"name"`
	Artist   string `json:"artist"`
	ArtistID string `json:"artistId,omitempty"`
	Image    string `json:"image"`
	Year     string `json:"year"`
}

// TrackRef is the track snapshot attached to a track review.
type TrackRef struct {
	ID            string `json:"id"`
	Name          string `json:"name"`
	Artist        string `json:"artist"`
	ArtistID      string `json:"artistId"`
	Image         string `json:"image"`
	Album         string `json:"album"`
	Duration      string `json:"duration"`
	PreviewURL    string `json:"previewUrl,omitempty"`
	IsIndependent bool   `json:"isIndependent,omitempty"`
	Popularity    int    `json:"popularity,omitempty"`
}

// LyricCard is a styled excerpt of a song's lyrics.
type LyricCard struct {
	Text            string `json:"text"`
	BackgroundColor string `json:"backgroundColor"`
	TrackID         string `json:"trackId"`
	TrackName       string `json:"trackName"`
	ArtistName      string `json:"artistName"`
	AlbumName       string `json:"albumName"`
	AlbumImage      string `json:"albumImage"`
	SpotifyURL      string `json:"spotifyUrl,omitempty"`
}

// Post is a tweet, a review or a lyric card. Replies set ParentID.
type Post struct {
	Record
	Kind      PostKind
	Text      string
	Images    []string
	ParentID  string
	CreatedBy string
	Rating    int
	Album     *AlbumRef
	Track     *TrackRef
	Lyric     *LyricCard

	// Populated by the repository on reads.
	Likes      []string
	Reposts    []string
	ReplyCount int
}

// NewPost creates a [Post] of the given kind.
func NewPost(sequence int, kind PostKind, createdBy, text string) *Post {
	return &Post{Record: NewRecord(sequence), Kind: kind, CreatedBy: createdBy, Text: text}
}

// Validate enforces the per-kind requirements.
func (p *Post) Validate() error {
	if p.CreatedBy == "" {
		return fmt.Errorf("%w: author is required", shared.ErrInvalidInput)
	}
	if utf8.RuneCountInString(p.Text) > MaxPostLength {
		return fmt.Errorf("%w: text exceeds %d characters", shared.ErrInvalidInput, MaxPostLength)
	}

	switch p.Kind {
	case KindTweet:
		if strings.TrimSpace(p.Text) == "" && len(p.Images) == 0 {
			return fmt.Errorf("%w: post has no text or images", shared.ErrInvalidInput)
		}
	case KindReview:
		if p.Rating < 1 || p.Rating > 5 {
			return fmt.Errorf("%w: rating must be between 1 and 5", shared.ErrInvalidInput)
		}
		if p.Album == nil && p.Track == nil {
			return fmt.Errorf("%w: review needs an album or a track", shared.ErrInvalidInput)
		}
	case KindLyric:
		if p.Lyric == nil || strings.TrimSpace(p.Lyric.Text) == "" {
			return fmt.Errorf("%w: lyric card has no text", shared.ErrInvalidInput)
		}
	default:
		return fmt.Errorf("%w: unknown post kind %q", shared.ErrInvalidInput, p.Kind)
	}
	return nil
}

// ArtistID returns the catalog artist of the reviewed track or album.
func (p *Post) ArtistID() string {
	switch {
	case p.Track != nil:
		return p.Track.ArtistID
	case p.Album != nil:
		return p.Album.ArtistID
	}
	return ""
}

// ArtistName returns the artist of the reviewed item or lyric card.
func (p *Post) ArtistName() string {
	switch {
	case p.Track != nil:
		return p.Track.Artist
	case p.Album != nil:
		return p.Album.Artist
	case p.Lyric != nil:
		return p.Lyric.ArtistName
	}
	return ""
}

// ReviewsArtist reports whether the reviewed track or album belongs to the artist
// with the given ID, or to an artist with the given name ignoring case.
func (p *Post) ReviewsArtist(artistID, artistName string) bool {
	matches := func(id, name string) bool {
		return (artistID != "" && id == artistID) || (artistName != "" && strings.EqualFold(name, artistName))
	}
	if p.Track != nil && matches(p.Track.ArtistID, p.Track.Artist) {
		return true
	}
	return p.Album != nil && matches(p.Album.ArtistID, p.Album.Artist)
}

// ItemName returns the title of the reviewed track or album.
func (p *Post) ItemName() string {
	switch {
	case p.Track != nil:
		return p.Track.Name
	case p.Album != nil:
		return p.Album.Name
	}
	return ""
}

// LikedBy reports whether userID liked the post.
func (p *Post) LikedBy(userID string) bool {
	for _, id := range p.Likes {
		if id == userID {
			return true
		}
	}
	return false
}
