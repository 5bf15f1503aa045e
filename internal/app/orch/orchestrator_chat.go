package orch

import (
	"context"

	"github.com/dkeye/Lobby/internal/app"
	"github.com/dkeye/Lobby/internal/core"
	"github.com/dkeye/Lobby/internal/domain"
	"github.com/rs/zerolog/log"
)

func (o *Orchestrator) chat(sid core.SessionID, msg domain.Message) {
	if _, ok := o.live(sid); !ok {
		return
	}
	if !o.Catalog.Exists(msg.Room) {
		log.Debug().Str("module", "orch").Str("room", string(msg.Room)).Msg("chat for unknown room dropped")
		return
	}
	msg.Stamp(o.now())
	if msg.Room.Persistent() {
		ok := o.Store.Submit(app.Job{
			Room: msg.Room,
			Op:   "save_message",
			Run: func(ctx context.Context, gw core.Gateway) error {
				return gw.SaveMessage(ctx, msg)
			},
		})
		if !ok {
			log.Error().Str("module", "orch").Str("room", string(msg.Room)).Str("id", msg.ID).Msg("message not persisted")
		}
	}
	o.broadcast(msg.Room, EvChatMessage, msg)
}
