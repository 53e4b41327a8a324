package models

import (
	"fmt"
	"regexp"
	"strings"

	"github.com/desertthunder/musicblah/internal/shared"
)

// DefaultPhotoURL is used for users without a profile photo.
const DefaultPhotoURL = "/assets/default-avatar.png"

var usernamePattern = regexp.MustCompile(`^[A-Za-z0-9_]{3,30}$`)

// User is an account on the network.
type User struct {
	Record
	Name         string
	Username     string
	Email        string
	PasswordHash string
	Bio          string
	PhotoURL     string
	Verified     bool
}

// NewUser creates a [User] with the default profile photo.
func NewUser(sequence int, name, username, email string) *User {
	return &User{
		Record:   NewRecord(sequence),
		Name:     name,
		Username: username,
		Email:    strings.ToLower(strings.TrimSpace(email)),
		PhotoURL: DefaultPhotoURL,
	}
}

// Validate checks the display name, username format and email.
func (u *User) Validate() error {
	if strings.TrimSpace(u.Name) == "" {
		return fmt.Errorf("%w: name is required", shared.ErrInvalidInput)
	}
	if !usernamePattern.MatchString(u.Username) {
		return fmt.Errorf("%w: username must be 3-30 letters, digits or underscores", shared.ErrInvalidInput)
	}
	if !strings.Contains(u.Email, "@") {
		return fmt.Errorf("%w: invalid email %q", shared.ErrInvalidInput, u.Email)
	}
	return nil
}

// Photo returns the profile photo, falling back to [DefaultPhotoURL].
func (u *User) Photo() string {
	if u.PhotoURL == "" {
		return DefaultPhotoURL
	}
	return u.PhotoURL
}
