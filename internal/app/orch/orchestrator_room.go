package orch

import (
	"context"

	"github.com/dkeye/Lobby/internal/app"
	"github.com/dkeye/Lobby/internal/core"
	"github.com/dkeye/Lobby/internal/domain"
	"github.com/rs/zerolog/log"
)

func (o *Orchestrator) joinRoom(sid core.SessionID, req RoomRequest) {
	s, ok := o.live(sid)
	if !ok {
		return
	}
	room := req.Room
	if !o.Catalog.Exists(room) {
		o.sendError(s, domain.ErrRoomNotFound, room)
		return
	}
	name, err := domain.ValidateUsername(req.Username)
	if err != nil {
		o.sendError(s, err, room)
		return
	}
	if o.Moderation.IsBanned(name) {
		log.Info().Str("module", "orch").Str("sid", string(sid)).Str("username", string(name)).Msg("banned user refused")
		o.send(s, EvKicked, nil)
		return
	}

	prev := o.Registry.SetUsername(sid, name)
	if s.Room != room {
		o.leave(s, prev.DisplayName())
	}
	o.enter(s, room)
	o.send(s, EvJoinedRoom, room)
	if room.Persistent() {
		o.fetchHistory(s, room)
	} else {
		o.send(s, EvChatHistory, []domain.Message{})
	}
	o.broadcastPresence(room)
	o.broadcast(room, EvUserJoined, name.DisplayName())
	log.Info().Str("module", "orch").Str("sid", string(sid)).Str("room", string(room)).Msg("joined room")
}

func (o *Orchestrator) createRoom(sid core.SessionID, req RoomRequest) {
	s, ok := o.live(sid)
	if !ok {
		return
	}
	room := req.Room
	if err := o.Catalog.ValidateName(room); err != nil {
		o.sendError(s, err, room)
		return
	}
	if o.Catalog.Collides(room) {
		o.sendError(s, domain.ErrRoomExists, room)
		return
	}
	name, err := domain.ValidateUsername(req.Username)
	if err != nil {
		o.sendError(s, err, room)
		return
	}
	if o.Moderation.IsBanned(name) {
		o.send(s, EvKicked, nil)
		return
	}

	prev := o.Registry.SetUsername(sid, name)
	o.leave(s, prev.DisplayName())
	if err := o.Catalog.Register(room); err != nil {
		o.sendError(s, err, room)
		return
	}
	o.persistRoom(room)
	o.enter(s, room)
	o.send(s, EvJoinedRoom, room)
	o.send(s, EvRoomCreated, room)
	o.send(s, EvChatHistory, []domain.Message{})
	o.broadcastPresence(room)
	o.broadcast(room, EvUserJoined, name.DisplayName())
}

func (o *Orchestrator) enter(s *app.Session, room domain.RoomName) {
	o.Presence.Join(room, s.SID)
	o.Registry.SetRoom(s.SID, room)
}

// leave detaches s from its current room and tells the members left behind.
func (o *Orchestrator) leave(s *app.Session, as string) {
	room, ok := o.Registry.ClearRoom(s.SID)
	if !ok {
		return
	}
	o.Presence.Leave(room, s.SID)
	o.broadcast(room, EvUserLeft, as)
	o.broadcastPresence(room)
}

func (o *Orchestrator) disconnect(sid core.SessionID) {
	s, ok := o.Registry.Get(sid)
	if !ok {
		return
	}
	delete(o.waiting, sid)
	delete(o.parked, sid)
	o.leave(s, s.Username.DisplayName())
	s.Terminate()
	o.Registry.Unbind(sid)
	log.Info().Str("module", "orch").Str("sid", string(sid)).Msg("disconnected")
}

// fetchHistory parks the session until the last messages of room arrive.
func (o *Orchestrator) fetchHistory(s *app.Session, room domain.RoomName) {
	sid := s.SID
	var msgs []domain.Message
	o.markBusy(sid)
	ok := o.Store.Submit(app.Job{
		Room: room,
		Op:   "find_messages",
		Run: func(ctx context.Context, gw core.Gateway) error {
			var err error
			msgs, err = gw.FindMessages(ctx, room, domain.HistoryLimit)
			return err
		},
		Done: func(err error) {
			o.post(event{kind: evControl, sid: sid, run: func() {
				o.deliverHistory(sid, room, msgs, err)
			}})
		},
	})
	if !ok {
		o.deliverHistory(sid, room, nil, app.ErrQueueClosed)
	}
}

func (o *Orchestrator) deliverHistory(sid core.SessionID, room domain.RoomName, msgs []domain.Message, err error) {
	defer o.releaseSession(sid)
	s, ok := o.live(sid)
	if !ok || s.Room != room {
		log.Debug().Str("module", "orch").Str("sid", string(sid)).Str("room", string(room)).Msg("history discarded")
		return
	}
	if err != nil {
		log.Warn().Err(err).Str("module", "orch").Str("room", string(room)).Msg("history unavailable")
		msgs = nil
	}
	if msgs == nil {
		msgs = []domain.Message{}
	}
	o.send(s, EvChatHistory, msgs)
}

func (o *Orchestrator) persistRoom(room domain.RoomName) {
	ok := o.Store.Submit(app.Job{
		Room: room,
		Op:   "create_room",
		Run: func(ctx context.Context, gw core.Gateway) error {
			return gw.CreateRoom(ctx, room)
		},
	})
	if !ok {
		log.Error().Str("module", "orch").Str("room", string(room)).Msg("room not persisted")
	}
}
