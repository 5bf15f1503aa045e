package domain

import (
	"time"

	"github.com/google/uuid"
)

type Message struct {
	ID        string    `json:"id"`
	Room      RoomName  `json:"room"`
	User      string    `json:"user"`
	Text      string    `json:"text"`
	Timestamp time.Time `json:"timestamp"`
}

// Stamp sets the server receive time and fills the id when the sender left
// it out. A client supplied timestamp is discarded. The id is echoed back to
// the sender and is not a storage key.
func (m *Message) Stamp(now time.Time) {
	if m.ID == "" {
		m.ID = uuid.NewString()
	}
	m.Timestamp = now
}
