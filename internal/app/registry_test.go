package app

import (
	"sync"
	"testing"

	"github.com/dkeye/Lobby/internal/core"
	"github.com/dkeye/Lobby/internal/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type stubConn struct {
	mu     sync.Mutex
	frames []core.Frame
	closed bool
	full   bool
}

func (c *stubConn) TrySend(f core.Frame) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.full {
		return core.ErrBackpressure
	}
	c.frames = append(c.frames, f)
	return nil
}

func (c *stubConn) Close() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.closed = true
}

func TestRegistry_UsernameIndex(t *testing.T) {
	r := NewRegistry()
	r.Bind("s1", &stubConn{})
	r.Bind("s2", &stubConn{})
	r.Bind("s3", &stubConn{})

	r.SetUsername("s1", "bob")
	r.SetUsername("s2", "bob")
	r.SetUsername("s3", "alice")

	bobs := r.ByUsername("bob")
	require.Len(t, bobs, 2)
	assert.Equal(t, core.SessionID("s1"), bobs[0].SID)
	assert.Equal(t, core.SessionID("s2"), bobs[1].SID)

	prev := r.SetUsername("s2", "carol")
	assert.Equal(t, domain.Username("bob"), prev)
	assert.Len(t, r.ByUsername("bob"), 1)
	assert.Len(t, r.ByUsername("carol"), 1)

	r.Unbind("s1")
	assert.Empty(t, r.ByUsername("bob"))
	assert.Equal(t, 2, r.Len())
}

func TestRegistry_RoomLifecycle(t *testing.T) {
	r := NewRegistry()
	s := r.Bind("s1", &stubConn{})
	assert.Equal(t, Unjoined, s.State)

	require.True(t, r.SetRoom("s1", "abc"))
	assert.Equal(t, InRoom, s.State)

	room, ok := r.ClearRoom("s1")
	assert.True(t, ok)
	assert.Equal(t, domain.RoomName("abc"), room)
	assert.Equal(t, Unjoined, s.State)

	_, ok = r.ClearRoom("s1")
	assert.False(t, ok)
}

func TestSession_SendAfterTerminate(t *testing.T) {
	conn := &stubConn{}
	r := NewRegistry()
	s := r.Bind("s1", conn)

	require.NoError(t, s.Send(core.Frame("x")))
	s.Terminate()
	assert.True(t, conn.closed)
	assert.ErrorIs(t, s.Send(core.Frame("y")), ErrSessionClosed)
	assert.Len(t, conn.frames, 1)
}

func coreSID(s string) core.SessionID { return core.SessionID(s) }
