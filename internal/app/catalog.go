package app

import (
	"sort"

	"github.com/dkeye/Lobby/internal/domain"
	"github.com/rs/zerolog/log"
)

// Catalog is the set of known rooms. "general" is registered at
// construction and can never be replaced.
// Not safe for concurrent use; the coordinator loop owns it.
type Catalog struct {
	rooms  map[domain.RoomName]struct{}
	folded map[string]domain.RoomName
}

func NewCatalog() *Catalog {
	c := &Catalog{
		rooms:  make(map[domain.RoomName]struct{}),
		folded: make(map[string]domain.RoomName),
	}
	c.add(domain.General)
	return c
}

func (c *Catalog) add(name domain.RoomName) {
	c.rooms[name] = struct{}{}
	c.folded[name.Fold()] = name
}

// Exists is an exact-name lookup.
func (c *Catalog) Exists(name domain.RoomName) bool {
	_, ok := c.rooms[name]
	return ok
}

// Collides reports whether name matches an existing room ignoring case.
func (c *Catalog) Collides(name domain.RoomName) bool {
	_, ok := c.folded[name.Fold()]
	return ok
}

func (c *Catalog) ValidateName(name domain.RoomName) error {
	if !domain.ValidRoomName(name) {
		return domain.ErrRoomNameInvalid
	}
	return nil
}

// Register adds a dynamic room. Existing entries are never overwritten.
func (c *Catalog) Register(name domain.RoomName) error {
	if err := c.ValidateName(name); err != nil {
		return err
	}
	if c.Collides(name) {
		return domain.ErrRoomExists
	}
	c.add(name)
	log.Info().Str("module", "app.catalog").Str("room", string(name)).Msg("room registered")
	return nil
}

// Restore re-registers rooms loaded from storage. Invalid and duplicate
// names are skipped. Returns how many rooms were added.
func (c *Catalog) Restore(names []domain.RoomName) int {
	added := 0
	for _, n := range names {
		if err := c.Register(n); err != nil {
			log.Warn().Err(err).Str("module", "app.catalog").Str("room", string(n)).Msg("skip stored room")
			continue
		}
		added++
	}
	return added
}

func (c *Catalog) Len() int { return len(c.rooms) }

// Names lists rooms with "general" first, the rest sorted.
func (c *Catalog) Names() []domain.RoomName {
	out := make([]domain.RoomName, 0, len(c.rooms))
	for name := range c.rooms {
		if name.IsGeneral() {
			continue
		}
		out = append(out, name)
	}
	sort.Slice(out, func(i, j int) bool { return out[i] < out[j] })
	return append([]domain.RoomName{domain.General}, out...)
}
