package core

//go:generate mockgen -source=store_iface.go -destination=mocks/gateway_mock.go -package=mocks

import (
	"context"

	"github.com/dkeye/Lobby/internal/domain"
)

// Gateway is the narrow persistence interface for message history and
// the durable room list. Implementations hold no business logic.
type Gateway interface {
	// FindMessages returns at most limit of the newest messages of room,
	// ordered oldest first.
	FindMessages(ctx context.Context, room domain.RoomName, limit int) ([]domain.Message, error)
	SaveMessage(ctx context.Context, msg domain.Message) error
	DeleteMessages(ctx context.Context, room domain.RoomName) error
	// CreateRoom is idempotent.
	CreateRoom(ctx context.Context, name domain.RoomName) error
	ListRooms(ctx context.Context) ([]domain.RoomName, error)
	Close() error
}
