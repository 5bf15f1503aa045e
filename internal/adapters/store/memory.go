package store

import (
	"context"
	"sync"

	"github.com/dkeye/Lobby/internal/domain"
)

// Memory keeps everything in process. History is lost on restart.
type Memory struct {
	mu       sync.RWMutex
	messages map[domain.RoomName][]domain.Message
	rooms    map[domain.RoomName]struct{}
	order    []domain.RoomName
}

func NewMemory() *Memory {
	return &Memory{
		messages: make(map[domain.RoomName][]domain.Message),
		rooms:    make(map[domain.RoomName]struct{}),
	}
}

func (m *Memory) FindMessages(_ context.Context, room domain.RoomName, limit int) ([]domain.Message, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return lastN(m.messages[room], limit), nil
}

func (m *Memory) SaveMessage(_ context.Context, msg domain.Message) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.messages[msg.Room] = append(m.messages[msg.Room], msg)
	return nil
}

func (m *Memory) DeleteMessages(_ context.Context, room domain.RoomName) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.messages, room)
	return nil
}

func (m *Memory) CreateRoom(_ context.Context, name domain.RoomName) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.rooms[name]; ok {
		return nil
	}
	m.rooms[name] = struct{}{}
	m.order = append(m.order, name)
	return nil
}

func (m *Memory) ListRooms(context.Context) ([]domain.RoomName, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	out := make([]domain.RoomName, len(m.order))
	copy(out, m.order)
	return out, nil
}

func (m *Memory) Close() error { return nil }
