package orch

import (
	"encoding/json"
	"errors"
	"fmt"

	"github.com/dkeye/Lobby/internal/core"
	"github.com/dkeye/Lobby/internal/domain"
)

// Inbound event names.
const (
	EvJoinRoom    = "join room"
	EvCreateRoom  = "create room"
	EvCommand     = "command"
	EvChatMessage = "chat message"
)

// Outbound event names.
const (
	EvChatHistory   = "chat history"
	EvUserJoined    = "user joined"
	EvUserLeft      = "user left"
	EvOnlineUsers   = "online users"
	EvJoinedRoom    = "joined room"
	EvRoomCreated   = "room created"
	EvErrorMessage  = "error message"
	EvKicked        = "kicked"
	EvClearMessages = "clear messages"
)

var ErrUnknownEvent = errors.New("unknown event type")

// Inbound is one decoded envelope from a client.
type Inbound struct {
	Type string          `json:"type"`
	Data json.RawMessage `json:"data,omitempty"`
}

type outbound struct {
	Type string `json:"type"`
	Data any    `json:"data,omitempty"`
}

type RoomRequest struct {
	Username string          `json:"username"`
	Room     domain.RoomName `json:"room"`
}

type CommandRequest struct {
	Command  string          `json:"command"`
	Room     domain.RoomName `json:"room"`
	Username string          `json:"username"`
}

// Encode renders an outbound envelope. A nil data omits the field.
func Encode(typ string, data any) (core.Frame, error) {
	b, err := json.Marshal(outbound{Type: typ, Data: data})
	if err != nil {
		return nil, fmt.Errorf("encode %s: %w", typ, err)
	}
	return b, nil
}

func decode[T any](in Inbound) (T, error) {
	var v T
	if len(in.Data) == 0 {
		return v, fmt.Errorf("%s: missing data", in.Type)
	}
	if err := json.Unmarshal(in.Data, &v); err != nil {
		return v, fmt.Errorf("%s: %w", in.Type, err)
	}
	return v, nil
}
