// Package session issues and verifies the signed tokens that identify MusicBlah users.
//
// Session tokens are HS256 JWTs whose subject is the user ID. OAuth state values use the same
// signing key with a short lifetime and a distinct audience, so one can never stand in for the other.
package session

import (
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"

	"github.com/desertthunder/musicblah/internal/shared"
)

const (
	sessionAudience = "session"
	stateAudience   = "spotify-connect"

	// DefaultTTL is used when the configured session lifetime is zero.
	DefaultTTL = 30 * 24 * time.Hour

	// StateTTL bounds how long a Spotify authorization may take.
	StateTTL = 10 * time.Minute
)

// Manager signs and verifies tokens with a shared secret.
type Manager struct {
	secret []byte
	issuer string
	ttl    time.Duration
	now    func() time.Time
}

// NewManager creates a [Manager] from the auth settings. An empty secret is rejected.
func NewManager(cfg shared.AuthConfig) (*Manager, error) {
	if cfg.JWTSecret == "" {
		return nil, fmt.Errorf("%w: jwt secret is empty", shared.ErrMissingCredentials)
	}

	ttl := cfg.SessionTTL.Duration
	if ttl <= 0 {
		ttl = DefaultTTL
	}

	return &Manager{secret: []byte(cfg.JWTSecret), issuer: cfg.Issuer, ttl: ttl, now: time.Now}, nil
}

// Issue returns a session token for userID.
func (m *Manager) Issue(userID string) (string, error) {
	return m.sign(userID, sessionAudience, m.ttl)
}

// Verify returns the user ID carried by a session token.
//
// Expired, malformed or foreign tokens yield [shared.ErrNotAuthenticated].
func (m *Manager) Verify(token string) (string, error) {
	return m.parse(token, sessionAudience)
}

// IssueState returns a short-lived OAuth state bound to userID.
func (m *Manager) IssueState(userID string) (string, error) {
	return m.sign(userID, stateAudience, StateTTL)
}

// VerifyState returns the user ID an OAuth state was issued for.
func (m *Manager) VerifyState(state string) (string, error) {
	return m.parse(state, stateAudience)
}

func (m *Manager) sign(userID, audience string, ttl time.Duration) (string, error) {
	if userID == "" {
		return "", fmt.Errorf("%w: user id", shared.ErrMissingArgument)
	}

	now := m.now()
	claims := jwt.RegisteredClaims{
		Subject:   userID,
		Issuer:    m.issuer,
		Audience:  jwt.ClaimStrings{audience},
		IssuedAt:  jwt.NewNumericDate(now),
		ExpiresAt: jwt.NewNumericDate(now.Add(ttl)),
		ID:        shared.GenerateID(),
	}

	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(m.secret)
	if err != nil {
		return "", fmt.Errorf("failed to sign token: %w", err)
	}
	return signed, nil
}

func (m *Manager) parse(token, audience string) (string, error) {
	if token == "" {
		return "", shared.ErrNotAuthenticated
	}

	opts := []jwt.ParserOption{
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithAudience(audience),
		jwt.WithExpirationRequired(),
		jwt.WithTimeFunc(m.now),
	}
	if m.issuer != "" {
		opts = append(opts, jwt.WithIssuer(m.issuer))
	}

	var claims jwt.RegisteredClaims
	_, err := jwt.ParseWithClaims(token, &claims, func(*jwt.Token) (any, error) {
		return m.secret, nil
	}, opts...)
	switch {
	case errors.Is(err, jwt.ErrTokenExpired):
		return "", fmt.Errorf("%w: token expired", shared.ErrNotAuthenticated)
	case err != nil:
		return "", fmt.Errorf("%w: %v", shared.ErrNotAuthenticated, err)
	case claims.Subject == "":
		return "", fmt.Errorf("%w: token has no subject", shared.ErrNotAuthenticated)
	}
	return claims.Subject, nil
}
