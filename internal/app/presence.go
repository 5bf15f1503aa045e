package app

import (
	"sort"

	"github.com/dkeye/Lobby/internal/core"
	"github.com/dkeye/Lobby/internal/domain"
	"github.com/rs/zerolog/log"
)

// Presence keeps the membership set of every room. Usernames are
// derived on demand from the Registry, never stored here.
type Presence struct {
	rooms map[domain.RoomName]map[core.SessionID]struct{}
}

func NewPresence() *Presence {
	return &Presence{rooms: make(map[domain.RoomName]map[core.SessionID]struct{})}
}

func (p *Presence) Join(room domain.RoomName, sid core.SessionID) {
	set, ok := p.rooms[room]
	if !ok {
		set = make(map[core.SessionID]struct{})
		p.rooms[room] = set
	}
	set[sid] = struct{}{}
	log.Debug().Str("module", "app.presence").Str("sid", string(sid)).Str("room", string(room)).Msg("member added")
}

func (p *Presence) Leave(room domain.RoomName, sid core.SessionID) {
	set, ok := p.rooms[room]
	if !ok {
		return
	}
	delete(set, sid)
	if len(set) == 0 {
		delete(p.rooms, room)
	}
	log.Debug().Str("module", "app.presence").Str("sid", string(sid)).Str("room", string(room)).Msg("member removed")
}

func (p *Presence) Count(room domain.RoomName) int { return len(p.rooms[room]) }

// Members returns the session ids in room, ordered by id.
func (p *Presence) Members(room domain.RoomName) []core.SessionID {
	set := p.rooms[room]
	out := make([]core.SessionID, 0, len(set))
	for sid := range set {
		out = append(out, sid)
	}
	sort.Slice(out, func(i, j int) bool { return out[i] < out[j] })
	return out
}

// Recompute lists the distinct usernames present in room. Sessions that
// never announced a name are left out. The result is sorted and never nil.
func (p *Presence) Recompute(room domain.RoomName, reg *Registry) []string {
	seen := make(map[domain.Username]struct{})
	out := make([]string, 0, len(p.rooms[room]))
	for sid := range p.rooms[room] {
		s, ok := reg.Get(sid)
		if !ok || s.Username == "" {
			continue
		}
		if _, dup := seen[s.Username]; dup {
			continue
		}
		seen[s.Username] = struct{}{}
		out = append(out, string(s.Username))
	}
	sort.Strings(out)
	return out
}
