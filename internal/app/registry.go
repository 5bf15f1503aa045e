package app

import (
	"errors"
	"sort"

	"github.com/dkeye/Lobby/internal/core"
	"github.com/dkeye/Lobby/internal/domain"
	"github.com/rs/zerolog/log"
)

var ErrSessionClosed = errors.New("session closed")

type SessionState int

const (
	Unjoined SessionState = iota
	InRoom
	Closed
)

func (s SessionState) String() string {
	switch s {
	case Unjoined:
		return "unjoined"
	case InRoom:
		return "in_room"
	case Closed:
		return "closed"
	default:
		return "unknown"
	}
}

// Session is the per-connection record: who is speaking and where.
type Session struct {
	SID      core.SessionID
	Username domain.Username
	Room     domain.RoomName
	State    SessionState
	conn     core.SignalConnection
}

// Send delivers a frame on the session's private channel.
func (s *Session) Send(f core.Frame) error {
	if s.State == Closed {
		return ErrSessionClosed
	}
	return s.conn.TrySend(f)
}

// Terminate marks the session closed and drops the transport.
func (s *Session) Terminate() {
	s.State = Closed
	s.conn.Close()
}

// Registry maps live connections to sessions, with a secondary index
// from username to the sessions currently using it.
// Not safe for concurrent use; the coordinator loop owns it.
type Registry struct {
	sessions map[core.SessionID]*Session
	byUser   map[domain.Username]map[core.SessionID]struct{}
}

func NewRegistry() *Registry {
	return &Registry{
		sessions: make(map[core.SessionID]*Session),
		byUser:   make(map[domain.Username]map[core.SessionID]struct{}),
	}
}

func (r *Registry) Bind(sid core.SessionID, conn core.SignalConnection) *Session {
	if old, ok := r.sessions[sid]; ok {
		r.unindex(old)
	}
	s := &Session{SID: sid, State: Unjoined, conn: conn}
	r.sessions[sid] = s
	log.Info().Str("module", "app.registry").Str("sid", string(sid)).Msg("bound session")
	return s
}

func (r *Registry) Get(sid core.SessionID) (*Session, bool) {
	s, ok := r.sessions[sid]
	return s, ok
}

// SetUsername re-indexes the session and returns the previous name.
func (r *Registry) SetUsername(sid core.SessionID, name domain.Username) domain.Username {
	s, ok := r.sessions[sid]
	if !ok {
		return ""
	}
	prev := s.Username
	if prev == name {
		return prev
	}
	r.unindex(s)
	s.Username = name
	r.index(s)
	log.Debug().Str("module", "app.registry").Str("sid", string(sid)).Str("username", string(name)).Msg("updated username")
	return prev
}

func (r *Registry) SetRoom(sid core.SessionID, room domain.RoomName) bool {
	s, ok := r.sessions[sid]
	if !ok || s.State == Closed {
		return false
	}
	s.Room = room
	s.State = InRoom
	return true
}

// ClearRoom detaches the session from its room and returns that room.
func (r *Registry) ClearRoom(sid core.SessionID) (domain.RoomName, bool) {
	s, ok := r.sessions[sid]
	if !ok || s.Room == "" {
		return "", false
	}
	prev := s.Room
	s.Room = ""
	if s.State == InRoom {
		s.State = Unjoined
	}
	return prev, true
}

func (r *Registry) Unbind(sid core.SessionID) {
	s, ok := r.sessions[sid]
	if !ok {
		return
	}
	r.unindex(s)
	delete(r.sessions, sid)
	log.Info().Str("module", "app.registry").Str("sid", string(sid)).Msg("unbind session")
}

// ByUsername returns live sessions announced under name, ordered by id.
func (r *Registry) ByUsername(name domain.Username) []*Session {
	set := r.byUser[name]
	out := make([]*Session, 0, len(set))
	for sid := range set {
		if s, ok := r.sessions[sid]; ok {
			out = append(out, s)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].SID < out[j].SID })
	return out
}

func (r *Registry) Len() int { return len(r.sessions) }

func (r *Registry) index(s *Session) {
	if s.Username == "" {
		return
	}
	set, ok := r.byUser[s.Username]
	if !ok {
		set = make(map[core.SessionID]struct{})
		r.byUser[s.Username] = set
	}
	set[s.SID] = struct{}{}
}

func (r *Registry) unindex(s *Session) {
	set, ok := r.byUser[s.Username]
	if !ok {
		return
	}
	delete(set, s.SID)
	if len(set) == 0 {
		delete(r.byUser, s.Username)
	}
}

// Sessions returns every bound session, ordered by id.
func (r *Registry) Sessions() []*Session {
	out := make([]*Session, 0, len(r.sessions))
	for _, s := range r.sessions {
		out = append(out, s)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].SID < out[j].SID })
	return out
}
