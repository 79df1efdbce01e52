// Package session holds the signed-in identity: the bearer token issued at
// login and the user claims extracted from it. A nil or expired session
// means no realtime connection is kept and none is retried.
package session

import (
	"encoding/json"
	"errors"
	"os"
	"path/filepath"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

type Session struct {
	Token     string    `json:"token"`
	UserID    int64     `json:"user_id"`
	Username  string    `json:"username"`
	ExpiresAt time.Time `json:"expires_at"`
}

var ErrNotSignedIn = errors.New("not signed in")

// New builds a session from a freshly issued token. The signature is not
// verified here: the signing secret lives on the server and the client only
// needs the identity and expiry claims.
func New(token string) (*Session, error) {
	if token == "" {
		return nil, errors.New("token is empty")
	}

	parsed, _, err := jwt.NewParser().ParseUnverified(token, jwt.MapClaims{})
	if err != nil {
		return nil, errors.New("invalid token")
	}

	claims, ok := parsed.Claims.(jwt.MapClaims)
	if !ok {
		return nil, errors.New("invalid claims")
	}

	uidF, ok1 := claims["uid"].(float64)
	uname, ok2 := claims["uname"].(string)
	if !ok1 || !ok2 {
		return nil, errors.New("bad claims")
	}

	s := &Session{
		Token:    token,
		UserID:   int64(uidF),
		Username: uname,
	}
	if expF, ok := claims["exp"].(float64); ok {
		s.ExpiresAt = time.Unix(int64(expF), 0)
	}
	return s, nil
}

// Expired reports whether the token's lifetime has passed. Tokens without
// an exp claim never expire client-side.
func (s *Session) Expired() bool {
	return !s.ExpiresAt.IsZero() && time.Now().After(s.ExpiresAt)
}

// Load reads a persisted session. Returns ErrNotSignedIn when there is no
// usable session on disk.
func Load(path string) (*Session, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, ErrNotSignedIn
	}
	var s Session
	if err := json.Unmarshal(data, &s); err != nil || s.Token == "" {
		return nil, ErrNotSignedIn
	}
	if s.Expired() {
		return nil, ErrNotSignedIn
	}
	return &s, nil
}

// Save persists the session for later invocations.
func (s *Session) Save(path string) error {
	if err := os.MkdirAll(filepath.Dir(path), 0700); err != nil {
		return err
	}
	data, err := json.MarshalIndent(s, "", "  ")
	if err != nil {
		return err
	}
	return os.WriteFile(path, data, 0600)
}

// Clear removes the persisted session, tearing down the signed-in identity.
func Clear(path string) error {
	err := os.Remove(path)
	if err != nil && !os.IsNotExist(err) {
		return err
	}
	return nil
}
