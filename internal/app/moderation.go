package app

import (
	"sort"

	"github.com/dkeye/Lobby/internal/domain"
)

// Moderation holds banned usernames for the life of the process.
type Moderation struct {
	banned map[domain.Username]struct{}
}

func NewModeration() *Moderation {
	return &Moderation{banned: make(map[domain.Username]struct{})}
}

// Ban returns true when u was not banned before.
func (m *Moderation) Ban(u domain.Username) bool {
	if _, ok := m.banned[u]; ok {
		return false
	}
	m.banned[u] = struct{}{}
	return true
}

// Unban of a user that is not banned is a no-op.
func (m *Moderation) Unban(u domain.Username) bool {
	if _, ok := m.banned[u]; !ok {
		return false
	}
	delete(m.banned, u)
	return true
}

func (m *Moderation) IsBanned(u domain.Username) bool {
	_, ok := m.banned[u]
	return ok
}

func (m *Moderation) List() []domain.Username {
	out := make([]domain.Username, 0, len(m.banned))
	for u := range m.banned {
		out = append(out, u)
	}
	sort.Slice(out, func(i, j int) bool { return out[i] < out[j] })
	return out
}
