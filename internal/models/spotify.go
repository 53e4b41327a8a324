package models

import "time"

// SpotifyConnection holds a user's Spotify OAuth tokens.
type SpotifyConnection struct {
	UserID       string
	AccessToken  string
	RefreshToken string
	ExpiresAt    time.Time
	UpdatedAt    time.Time
}

// Expired reports whether the access token is expired at now.
func (c *SpotifyConnection) Expired(now time.Time) bool {
	return !now.Before(c.ExpiresAt)
}

// PlayingTrack is the track a user is listening to.
type PlayingTrack struct {
	ID         string `json:"id"`
	Name       string `json:"name"`
	Artist     string `json:"artist"`
	ArtistID   string `json:"artistId"`
	Album      string `json:"album"`
	AlbumID    string `json:"albumId"`
	Image      string `json:"image,omitempty"`
	DurationMs int    `json:"durationMs"`
	PreviewURL string `json:"previewUrl,omitempty"`
	SpotifyURL string `json:"spotifyUrl"`
}

// NowPlaying is a snapshot of a user's playback.
//
// Track is nil when nothing is playing or the item is not a track, in which case Type names the item type.
type NowPlaying struct {
	IsPlaying  bool          `json:"isPlaying"`
	ProgressMs int           `json:"progressMs,omitempty"`
	Track      *PlayingTrack `json:"track"`
	Type       string        `json:"type,omitempty"`
	UpdatedAt  time.Time     `json:"updatedAt"`
}

// HasTrack reports whether a track is currently playing.
func (n *NowPlaying) HasTrack() bool {
	return n != nil && n.IsPlaying && n.Track != nil
}

// FriendListening pairs a user with the track they are playing.
type FriendListening struct {
	UserID   string        `json:"userId"`
	Name     string        `json:"name"`
	Username string        `json:"username"`
	Photo    string        `json:"photoURL"`
	Track    *PlayingTrack `json:"track"`
	Updated  time.Time     `json:"updatedAt"`
}
