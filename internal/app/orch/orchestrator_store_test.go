package orch

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/dkeye/Lobby/internal/core/mocks"
	"github.com/dkeye/Lobby/internal/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/mock/gomock"
)

func lenientGateway(t *testing.T) *mocks.MockGateway {
	ctrl := gomock.NewController(t)
	gw := mocks.NewMockGateway(ctrl)
	gw.EXPECT().CreateRoom(gomock.Any(), gomock.Any()).Return(nil).AnyTimes()
	gw.EXPECT().SaveMessage(gomock.Any(), gomock.Any()).Return(nil).AnyTimes()
	return gw
}

func TestHistoryFailure_DeliversEmpty(t *testing.T) {
	gw := lenientGateway(t)
	gw.EXPECT().FindMessages(gomock.Any(), domain.RoomName("abc"), domain.HistoryLimit).
		Return(nil, errors.New("connection refused"))

	h := newHarness(t, gw)
	h.connect("a")
	bob := h.connect("b")
	h.create("a", "alice", "abc")
	h.join("b", "bob", "abc")

	require.Eventually(t, func() bool {
		var history []domain.Message
		return bob.last(t, EvChatHistory, &history) && len(history) == 0
	}, time.Second, 10*time.Millisecond)
	assert.Equal(t, []string{"alice", "bob"}, h.members("abc"))
}

func TestHistoryPending_ParksLaterEvents(t *testing.T) {
	release := make(chan struct{})
	gw := lenientGateway(t)
	gw.EXPECT().FindMessages(gomock.Any(), domain.RoomName("abc"), domain.HistoryLimit).
		DoAndReturn(func(context.Context, domain.RoomName, int) ([]domain.Message, error) {
			<-release
			return []domain.Message{{ID: "1", Room: "abc", User: "alice", Text: "earlier"}}, nil
		})

	h := newHarness(t, gw)
	alice := h.connect("a")
	bob := h.connect("b")
	h.create("a", "alice", "abc")
	h.join("b", "bob", "abc")
	h.say("b", "bob", "hi", "abc")
	h.settle()

	assert.NotContains(t, bob.types(), EvChatHistory)
	assert.NotContains(t, alice.types(), EvChatMessage)
	// Presence is not delayed behind storage.
	assert.Equal(t, []string{"alice", "bob"}, h.members("abc"))

	close(release)
	require.Eventually(t, func() bool {
		return countOf(bob.types(), EvChatMessage) == 1
	}, time.Second, 10*time.Millisecond)

	types := bob.types()
	assert.Less(t, indexOf(types, EvChatHistory), indexOf(types, EvChatMessage))
	var history []domain.Message
	require.True(t, bob.last(t, EvChatHistory, &history))
	require.Len(t, history, 1)
	assert.Equal(t, "earlier", history[0].Text)
}

func TestHistoryAfterDisconnect_IsDiscarded(t *testing.T) {
	release := make(chan struct{})
	saved := make(chan struct{})
	gw := mocks.NewMockGateway(gomock.NewController(t))
	gw.EXPECT().CreateRoom(gomock.Any(), gomock.Any()).Return(nil)
	gw.EXPECT().FindMessages(gomock.Any(), gomock.Any(), gomock.Any()).
		DoAndReturn(func(context.Context, domain.RoomName, int) ([]domain.Message, error) {
			<-release
			return nil, nil
		})
	gw.EXPECT().SaveMessage(gomock.Any(), gomock.Any()).
		DoAndReturn(func(context.Context, domain.Message) error {
			close(saved)
			return nil
		})

	h := newHarness(t, gw)
	h.connect("a")
	bob := h.connect("b")
	h.create("a", "alice", "abc")
	h.join("b", "bob", "abc")
	h.settle()
	h.o.Disconnect("b")
	h.settle()
	h.say("a", "alice", "after", "abc")
	h.settle()

	close(release)
	<-saved
	h.settle()

	assert.NotContains(t, bob.types(), EvChatHistory)
	assert.Equal(t, []string{"alice"}, h.members("abc"))
}

func TestClearPending_HoldsRoomChat(t *testing.T) {
	release := make(chan struct{})
	gw := lenientGateway(t)
	gw.EXPECT().DeleteMessages(gomock.Any(), domain.RoomName("abc")).
		DoAndReturn(func(context.Context, domain.RoomName) error {
			<-release
			return errors.New("disk full")
		})

	h := newHarness(t, gw)
	alice := h.connect("a")
	h.create("a", "alice", "abc")
	h.settle()
	alice.reset()

	h.command("a", "/clear", "abc")
	h.say("a", "alice", "fresh", "abc")
	h.settle()
	assert.Empty(t, alice.types())

	close(release)
	require.Eventually(t, func() bool {
		return len(alice.types()) == 2
	}, time.Second, 10*time.Millisecond)
	assert.Equal(t, []string{EvClearMessages, EvChatMessage}, alice.types())
}
