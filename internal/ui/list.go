package ui

import (
	"fmt"
	"time"

	"github.com/charmbracelet/bubbles/list"
	"github.com/dustin/go-humanize"

	"github.com/desertthunder/musicblah/internal/models"
)

var (
	_ list.Item = friendItem{}
	_ list.Item = trendItem{}
)

// friendItem wraps [models.FriendListening] to implement [list.Item].
//
// The relative update time is computed when the item is built.
type friendItem struct {
	friend models.FriendListening
	since  string
}

func newFriendItem(f models.FriendListening, now time.Time) friendItem {
	return friendItem{friend: f, since: humanize.RelTime(f.Updated, now, "ago", "from now")}
}

func (i friendItem) FilterValue() string { return i.friend.Name + " " + i.friend.Username }
func (i friendItem) Title() string {
	return fmt.Sprintf("%s (@%s)", i.friend.Name, i.friend.Username)
}
func (i friendItem) Description() string {
	if i.friend.Track == nil {
		return i.since
	}
	return fmt.Sprintf("♫ %s - %s • %s", i.friend.Track.Name, i.friend.Track.Artist, i.since)
}

// trendItem wraps [models.TrendTrack] to implement [list.Item].
type trendItem struct {
	rank  int
	track models.TrendTrack
}

func (i trendItem) FilterValue() string { return i.track.Name + " " + i.track.Artist }
func (i trendItem) Title() string       { return fmt.Sprintf("%d. %s", i.rank, i.track.Name) }
func (i trendItem) Description() string { return i.track.Artist }
