package models

import (
	"fmt"

	"github.com/desertthunder/musicblah/internal/shared"
)

// NotificationType is the activity a notification reports.
type NotificationType string

const (
	NotifyLike    NotificationType = "like"
	NotifyRetweet NotificationType = "retweet"
	NotifyReply   NotificationType = "reply"
	NotifyFollow  NotificationType = "follow"
	NotifyMention NotificationType = "mention"
	NotifyReview  NotificationType = "review"
)

// MaxNotificationText is how many runes of the post text a notification keeps.
const MaxNotificationText = 100

// Valid reports whether t is a known notification type.
func (t NotificationType) Valid() bool {
	switch t {
	case NotifyLike, NotifyRetweet, NotifyReply, NotifyFollow, NotifyMention, NotifyReview:
		return true
	}
	return false
}

// Notification is addressed to UserID and describes something FromUserID did.
type Notification struct {
	Record
	Type             NotificationType
	UserID           string
	FromUserID       string
	FromUserName     string
	FromUserUsername string
	FromUserPhoto    string
	TweetID          string
	TweetText        string
	Read             bool
}

// NewNotification creates an unread [Notification] with sender defaults filled in.
func NewNotification(sequence int, kind NotificationType, to, from string) *Notification {
	return &Notification{
		Record:           NewRecord(sequence),
		Type:             kind,
		UserID:           to,
		FromUserID:       from,
		FromUserName:     "Usuário",
		FromUserUsername: "user",
		FromUserPhoto:    DefaultPhotoURL,
	}
}

// SetTweetText stores the first [MaxNotificationText] runes of text.
func (n *Notification) SetTweetText(text string) {
	n.TweetText = shared.Truncate(text, MaxNotificationText)
}

func (n *Notification) Validate() error {
	if !n.Type.Valid() {
		return fmt.Errorf("%w: unknown notification type %q", shared.ErrInvalidInput, n.Type)
	}
	if n.UserID == "" || n.FromUserID == "" {
		return fmt.Errorf("%w: recipient and sender are required", shared.ErrMissingArgument)
	}
	if n.UserID == n.FromUserID {
		return fmt.Errorf("%w: users are not notified about themselves", shared.ErrInvalidInput)
	}
	return nil
}
