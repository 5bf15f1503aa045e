package domain

import (
	"regexp"
	"strings"
)

type RoomName string

// General is the permanent room. It always exists and its history is never persisted.
const General RoomName = "general"

// HistoryLimit is how many persisted messages a joining session receives.
const HistoryLimit = 50

var roomNamePattern = regexp.MustCompile(`^[A-Za-z0-9]{3,8}$`)

// ValidRoomName reports whether name may be used for a dynamic room.
func ValidRoomName(name RoomName) bool {
	return roomNamePattern.MatchString(string(name))
}

// IsGeneral is true only for the exact permanent room name.
func (r RoomName) IsGeneral() bool { return r == General }

// Persistent reports whether messages in the room are stored.
func (r RoomName) Persistent() bool { return !r.IsGeneral() }

// Fold is the case-insensitive key used for create collisions.
func (r RoomName) Fold() string { return strings.ToLower(string(r)) }
