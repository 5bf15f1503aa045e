package domain

import (
	"errors"
	"fmt"
)

var (
	ErrRoomNotFound    = errors.New("room not found")
	ErrRoomNameInvalid = errors.New("room name invalid")
	ErrRoomExists      = errors.New("room already exists")
	ErrUserBanned      = errors.New("user banned")
	ErrPersistence     = errors.New("persistence failure")
)

// ClientMessage renders the text sent with an "error message" event.
// Persistence failures are never shown to clients and yield "".
func ClientMessage(err error, room RoomName) string {
	switch {
	case errors.Is(err, ErrRoomNotFound):
		return fmt.Sprintf("Room %q does not exist.", string(room))
	case errors.Is(err, ErrRoomNameInvalid):
		return "Room name must be 3-8 letters/numbers only."
	case errors.Is(err, ErrRoomExists):
		return fmt.Sprintf("Room %q already exists.", string(room))
	case errors.Is(err, ErrUsernameTooLong):
		return fmt.Sprintf("Username must be at most %d characters.", MaxUsernameLen)
	default:
		return ""
	}
}
