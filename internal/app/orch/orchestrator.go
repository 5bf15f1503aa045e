package orch

import (
	"context"
	"errors"
	"time"

	"github.com/dkeye/Lobby/internal/app"
	"github.com/dkeye/Lobby/internal/core"
	"github.com/dkeye/Lobby/internal/domain"
	"github.com/rs/zerolog/log"
)

var ErrStopped = errors.New("orchestrator stopped")

type eventKind int

const (
	// evSession events keep per-session order and respect room holds.
	evSession eventKind = iota
	// evControl events run as soon as the loop reads them.
	evControl
)

type event struct {
	kind eventKind
	sid  core.SessionID
	// room is set for events that must wait behind a /clear of that room.
	room domain.RoomName
	run  func()
}

// Orchestrator is the single owner of rooms, bans, presence and sessions.
// Every mutation happens on the goroutine running Run.
type Orchestrator struct {
	Registry   *app.Registry
	Catalog    *app.Catalog
	Presence   *app.Presence
	Moderation *app.Moderation
	Policy     app.Policy
	Store      *app.Queue

	now    func() time.Time
	events chan event
	done   chan struct{}

	// waiting holds events for sessions with an outstanding history fetch.
	waiting map[core.SessionID][]event
	// held holds events for rooms with an outstanding delete.
	held   map[domain.RoomName][]event
	parked map[core.SessionID]domain.RoomName
}

type Option func(*Orchestrator)

func WithClock(now func() time.Time) Option {
	return func(o *Orchestrator) { o.now = now }
}

func WithEventBuffer(n int) Option {
	return func(o *Orchestrator) {
		if n > 0 {
			o.events = make(chan event, n)
		}
	}
}

func WithPolicy(p app.Policy) Option {
	return func(o *Orchestrator) { o.Policy = p }
}

func New(store *app.Queue, opts ...Option) *Orchestrator {
	o := &Orchestrator{
		Registry:   app.NewRegistry(),
		Catalog:    app.NewCatalog(),
		Presence:   app.NewPresence(),
		Moderation: app.NewModeration(),
		Policy:     app.SimplePolicy{},
		Store:      store,
		now:        time.Now,
		events:     make(chan event, 1024),
		done:       make(chan struct{}),
		waiting:    make(map[core.SessionID][]event),
		held:       make(map[domain.RoomName][]event),
		parked:     make(map[core.SessionID]domain.RoomName),
	}
	for _, opt := range opts {
		opt(o)
	}
	return o
}

// Restore loads persisted dynamic rooms into the catalog. Call before Run.
func (o *Orchestrator) Restore(ctx context.Context, gw core.Gateway) error {
	names, err := gw.ListRooms(ctx)
	if err != nil {
		return errors.Join(domain.ErrPersistence, err)
	}
	n := o.Catalog.Restore(names)
	log.Info().Str("module", "orch").Int("rooms", n).Msg("restored rooms")
	return nil
}

// Run processes events until ctx is cancelled, then closes every session.
func (o *Orchestrator) Run(ctx context.Context) error {
	log.Info().Str("module", "orch").Msg("event loop started")
	defer close(o.done)
	for {
		select {
		case <-ctx.Done():
			for _, s := range o.Registry.Sessions() {
				s.Terminate()
				o.Registry.Unbind(s.SID)
			}
			log.Info().Str("module", "orch").Msg("event loop stopped")
			return nil
		case ev := <-o.events:
			o.dispatch(ev)
		}
	}
}

func (o *Orchestrator) post(ev event) bool {
	select {
	case o.events <- ev:
		return true
	case <-o.done:
		return false
	}
}

func (o *Orchestrator) dispatch(ev event) {
	if ev.kind == evControl {
		ev.run()
		return
	}
	if q, busy := o.waiting[ev.sid]; busy {
		o.waiting[ev.sid] = append(q, ev)
		return
	}
	if room, ok := o.parked[ev.sid]; ok {
		o.held[room] = append(o.held[room], ev)
		return
	}
	if ev.room != "" {
		if q, held := o.held[ev.room]; held {
			o.held[ev.room] = append(q, ev)
			o.parked[ev.sid] = ev.room
			return
		}
	}
	ev.run()
}

// markBusy parks later events of sid until releaseSession.
func (o *Orchestrator) markBusy(sid core.SessionID) {
	if _, ok := o.waiting[sid]; !ok {
		o.waiting[sid] = nil
	}
}

func (o *Orchestrator) releaseSession(sid core.SessionID) {
	q, ok := o.waiting[sid]
	if !ok {
		return
	}
	delete(o.waiting, sid)
	for _, ev := range q {
		o.dispatch(ev)
	}
}

func (o *Orchestrator) hold(room domain.RoomName) {
	if _, ok := o.held[room]; !ok {
		o.held[room] = nil
	}
}

func (o *Orchestrator) releaseRoom(room domain.RoomName) {
	q, ok := o.held[room]
	if !ok {
		return
	}
	delete(o.held, room)
	for _, ev := range q {
		if o.parked[ev.sid] == room {
			delete(o.parked, ev.sid)
		}
	}
	for _, ev := range q {
		o.dispatch(ev)
	}
}

// Connect binds a fresh connection. The session starts unjoined.
func (o *Orchestrator) Connect(sid core.SessionID, conn core.SignalConnection) bool {
	return o.post(event{kind: evSession, sid: sid, run: func() {
		o.Registry.Bind(sid, conn)
	}})
}

// Dispatch decodes an inbound envelope on the caller's goroutine and queues
// the matching handler.
func (o *Orchestrator) Dispatch(sid core.SessionID, in Inbound) error {
	ev := event{kind: evSession, sid: sid}
	switch in.Type {
	case EvJoinRoom:
		req, err := decode[RoomRequest](in)
		if err != nil {
			return err
		}
		ev.run = func() { o.joinRoom(sid, req) }
	case EvCreateRoom:
		req, err := decode[RoomRequest](in)
		if err != nil {
			return err
		}
		ev.run = func() { o.createRoom(sid, req) }
	case EvCommand:
		req, err := decode[CommandRequest](in)
		if err != nil {
			return err
		}
		ev.room = req.Room
		ev.run = func() { o.command(sid, req) }
	case EvChatMessage:
		msg, err := decode[domain.Message](in)
		if err != nil {
			return err
		}
		ev.room = msg.Room
		ev.run = func() { o.chat(sid, msg) }
	default:
		return ErrUnknownEvent
	}
	if !o.post(ev) {
		return ErrStopped
	}
	return nil
}

// Disconnect is never parked behind a pending fetch or hold.
func (o *Orchestrator) Disconnect(sid core.SessionID) {
	o.post(event{kind: evControl, sid: sid, run: func() { o.disconnect(sid) }})
}

func query[T any](ctx context.Context, o *Orchestrator, fn func() (T, error)) (T, error) {
	type result struct {
		v   T
		err error
	}
	reply := make(chan result, 1)
	var zero T
	ev := event{kind: evControl, run: func() {
		v, err := fn()
		reply <- result{v, err}
	}}
	select {
	case o.events <- ev:
	case <-o.done:
		return zero, ErrStopped
	case <-ctx.Done():
		return zero, ctx.Err()
	}
	select {
	case r := <-reply:
		return r.v, r.err
	case <-o.done:
		return zero, ErrStopped
	case <-ctx.Done():
		return zero, ctx.Err()
	}
}

// Rooms lists every room, general first.
func (o *Orchestrator) Rooms(ctx context.Context) ([]domain.RoomName, error) {
	return query(ctx, o, func() ([]domain.RoomName, error) {
		return o.Catalog.Names(), nil
	})
}

func (o *Orchestrator) Members(ctx context.Context, room domain.RoomName) ([]string, error) {
	return query(ctx, o, func() ([]string, error) {
		if !o.Catalog.Exists(room) {
			return nil, domain.ErrRoomNotFound
		}
		return o.Presence.Recompute(room, o.Registry), nil
	})
}

func (o *Orchestrator) Bans(ctx context.Context) ([]domain.Username, error) {
	return query(ctx, o, func() ([]domain.Username, error) {
		return o.Moderation.List(), nil
	})
}

// send delivers privately. Failures go through the backpressure policy.
func (o *Orchestrator) send(s *app.Session, typ string, data any) {
	f, err := Encode(typ, data)
	if err != nil {
		log.Error().Err(err).Str("module", "orch").Msg("encode failed")
		return
	}
	o.deliver(s, f)
}

func (o *Orchestrator) broadcast(room domain.RoomName, typ string, data any) {
	f, err := Encode(typ, data)
	if err != nil {
		log.Error().Err(err).Str("module", "orch").Msg("encode failed")
		return
	}
	for _, sid := range o.Presence.Members(room) {
		if s, ok := o.Registry.Get(sid); ok {
			o.deliver(s, f)
		}
	}
}

func (o *Orchestrator) deliver(s *app.Session, f core.Frame) {
	err := s.Send(f)
	if err == nil || !errors.Is(err, core.ErrBackpressure) || o.Policy == nil {
		return
	}
	switch o.Policy.OnBackPressure(s.Room, s) {
	case app.KickMember:
		log.Warn().Str("module", "orch").Str("sid", string(s.SID)).Msg("slow consumer, closing")
		s.Terminate()
	case app.DropFrame, app.NoAction:
	}
}

func (o *Orchestrator) sendError(s *app.Session, err error, room domain.RoomName) {
	o.send(s, EvErrorMessage, domain.ClientMessage(err, room))
}

func (o *Orchestrator) broadcastPresence(room domain.RoomName) {
	o.broadcast(room, EvOnlineUsers, o.Presence.Recompute(room, o.Registry))
}

// live returns the session when it can still receive events.
func (o *Orchestrator) live(sid core.SessionID) (*app.Session, bool) {
	s, ok := o.Registry.Get(sid)
	if !ok || s.State == app.Closed {
		return nil, false
	}
	return s, true
}
