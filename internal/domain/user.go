// Package domain contains entity without logic, just meta-data
package domain

import (
	"errors"
	"strings"
)

const MaxUsernameLen = 36

// PlaceholderUsername stands in for sessions that never announced a name.
const PlaceholderUsername = "A user"

var ErrUsernameTooLong = errors.New("username too long")

// Username is always stored normalized (lowercase, trimmed).
type Username string

func NormalizeUsername(raw string) Username {
	return Username(strings.ToLower(strings.TrimSpace(raw)))
}

// ValidateUsername normalizes raw and caps its length. An empty name is
// allowed; such sessions are left out of presence.
func ValidateUsername(raw string) (Username, error) {
	u := NormalizeUsername(raw)
	if len(u) > MaxUsernameLen {
		return "", ErrUsernameTooLong
	}
	return u, nil
}

// DisplayName returns the placeholder for unnamed sessions.
func (u Username) DisplayName() string {
	if u == "" {
		return PlaceholderUsername
	}
	return string(u)
}
