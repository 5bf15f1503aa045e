package domain

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestValidRoomName(t *testing.T) {
	tests := []struct {
		name string
		room RoomName
		want bool
	}{
		{"three chars", "abc", true},
		{"eight chars", "abc12345", true},
		{"mixed case", "AbC123", true},
		{"too short", "ab", false},
		{"too long", "abcdefghi", false},
		{"space", "ab c", false},
		{"dash", "ab-c", false},
		{"unicode letter", "abcé", false},
		{"empty", "", false},
		{"trailing newline", "abc\n", false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, ValidRoomName(tt.room))
		})
	}
}

func TestRoomNamePersistent(t *testing.T) {
	assert.False(t, General.Persistent())
	assert.True(t, RoomName("abc123").Persistent())
	assert.True(t, RoomName("General").Persistent())
}

func TestValidateUsername(t *testing.T) {
	u, err := ValidateUsername("  Alice ")
	assert.NoError(t, err)
	assert.Equal(t, Username("alice"), u)

	u, err = ValidateUsername("   ")
	assert.NoError(t, err)
	assert.Equal(t, Username(""), u)

	_, err = ValidateUsername("a123456789012345678901234567890123456")
	assert.ErrorIs(t, err, ErrUsernameTooLong)
}

func TestClientMessage(t *testing.T) {
	assert.Equal(t, `Room "zzz" does not exist.`, ClientMessage(ErrRoomNotFound, "zzz"))
	assert.Equal(t, `Room "abc" already exists.`, ClientMessage(ErrRoomExists, "abc"))
	assert.Equal(t, "Room name must be 3-8 letters/numbers only.", ClientMessage(ErrRoomNameInvalid, "x"))
	assert.Empty(t, ClientMessage(ErrPersistence, "abc"))
}

func TestMessageStamp(t *testing.T) {
	now := time.Date(2024, 5, 1, 10, 0, 0, 0, time.UTC)
	m := Message{ID: "c1", Timestamp: now.Add(-time.Hour)}
	m.Stamp(now)
	assert.Equal(t, "c1", m.ID)
	assert.True(t, now.Equal(m.Timestamp))

	var anon Message
	anon.Stamp(now)
	assert.NotEmpty(t, anon.ID)
}
