package models

import (
	"fmt"
	"time"

	"github.com/desertthunder/musicblah/internal/shared"
)

// Affinity grades how much a user engages with an artist they follow.
type Affinity string

const (
	AffinityCurious  Affinity = "curious"
	AffinityListener Affinity = "listener"
	AffinityFan      Affinity = "fan"
	AffinitySuperfan Affinity = "superfan"
	AffinityExpert   Affinity = "expert"
)

// AffinityLevel maps a review count to an [Affinity].
func AffinityLevel(reviews int) Affinity {
	switch {
	case reviews <= 0:
		return AffinityCurious
	case reviews <= 3:
		return AffinityListener
	case reviews <= 10:
		return AffinityFan
	case reviews <= 20:
		return AffinitySuperfan
	default:
		return AffinityExpert
	}
}

func (a Affinity) Emoji() string {
	switch a {
	case AffinityCurious:
		return "👀"
	case AffinityListener:
		return "🎧"
	case AffinityFan:
		return "❤️"
	case AffinitySuperfan:
		return "🔥"
	case AffinityExpert:
		return "🏆"
	}
	return ""
}

func (a Affinity) Label() string {
	switch a {
	case AffinityCurious:
		return "Curioso"
	case AffinityListener:
		return "Ouvinte"
	case AffinityFan:
		return "Fã"
	case AffinitySuperfan:
		return "Superfã"
	case AffinityExpert:
		return "Expert"
	}
	return ""
}

// FollowedArtist is a catalog artist followed by a user.
//
// ReviewsCount, AverageRating, Affinity and LastReviewAt are derived from the user's reviews.
type FollowedArtist struct {
	Record
	UserID        string
	ArtistID      string
	ArtistName    string
	ArtistImage   string
	Genres        []string
	Notifications bool
	FollowedAt    time.Time

	ReviewsCount  int
	AverageRating float64
	Affinity      Affinity
	LastReviewAt  *time.Time
}

// NewFollowedArtist creates a [FollowedArtist] with notifications on.
func NewFollowedArtist(sequence int, userID, artistID, name string) *FollowedArtist {
	rec := NewRecord(sequence)
	return &FollowedArtist{
		Record:        rec,
		UserID:        userID,
		ArtistID:      artistID,
		ArtistName:    name,
		Notifications: true,
		FollowedAt:    rec.CreatedAt(),
		Affinity:      AffinityCurious,
	}
}

func (f *FollowedArtist) Validate() error {
	if f.UserID == "" || f.ArtistID == "" {
		return fmt.Errorf("%w: user and artist are required", shared.ErrMissingArgument)
	}
	if f.ArtistName == "" {
		return fmt.Errorf("%w: artist name is required", shared.ErrInvalidInput)
	}
	return nil
}

// ApplyStats sets the derived review stats.
func (f *FollowedArtist) ApplyStats(count int, average float64, last *time.Time) {
	f.ReviewsCount = count
	f.AverageRating = average
	f.Affinity = AffinityLevel(count)
	f.LastReviewAt = last
}
