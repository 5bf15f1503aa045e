package orch

import (
	"context"
	"strings"

	"github.com/dkeye/Lobby/internal/app"
	"github.com/dkeye/Lobby/internal/core"
	"github.com/dkeye/Lobby/internal/domain"
	"github.com/rs/zerolog/log"
)

func (o *Orchestrator) command(sid core.SessionID, req CommandRequest) {
	if _, ok := o.live(sid); !ok {
		return
	}
	if !o.Catalog.Exists(req.Room) {
		return
	}
	fields := strings.Fields(req.Command)
	if len(fields) == 0 {
		return
	}
	logger := log.With().Str("module", "orch").Str("sid", string(sid)).Str("room", string(req.Room)).Logger()

	switch {
	case fields[0] == "/clear" && len(fields) == 1:
		logger.Info().Msg("clear requested")
		o.clear(req.Room)
	case fields[0] == "/kick" && len(fields) > 1:
		target := domain.NormalizeUsername(fields[1])
		logger.Info().Str("target", string(target)).Msg("kick requested")
		o.kick(target)
	case fields[0] == "/unkick" && len(fields) > 1:
		target := domain.NormalizeUsername(fields[1])
		if o.Moderation.Unban(target) {
			logger.Info().Str("target", string(target)).Msg("unbanned")
		}
	default:
		logger.Debug().Str("command", req.Command).Msg("ignored command")
	}
}

// clear wipes the room's history. Chat and commands for a dynamic room
// wait until the delete has finished.
func (o *Orchestrator) clear(room domain.RoomName) {
	if !room.Persistent() {
		o.broadcast(room, EvClearMessages, nil)
		return
	}
	o.hold(room)
	ok := o.Store.Submit(app.Job{
		Room: room,
		Op:   "delete_messages",
		Run: func(ctx context.Context, gw core.Gateway) error {
			return gw.DeleteMessages(ctx, room)
		},
		Done: func(err error) {
			o.post(event{kind: evControl, run: func() { o.cleared(room, err) }})
		},
	})
	if !ok {
		o.cleared(room, app.ErrQueueClosed)
	}
}

func (o *Orchestrator) cleared(room domain.RoomName, err error) {
	if err != nil {
		log.Error().Err(err).Str("module", "orch").Str("room", string(room)).Msg("history not cleared in storage")
	}
	o.broadcast(room, EvClearMessages, nil)
	o.releaseRoom(room)
}

func (o *Orchestrator) kick(target domain.Username) {
	if target == "" {
		return
	}
	o.Moderation.Ban(target)
	for _, s := range o.Registry.ByUsername(target) {
		o.send(s, EvKicked, nil)
		delete(o.waiting, s.SID)
		o.leave(s, s.Username.DisplayName())
		s.Terminate()
	}
}
