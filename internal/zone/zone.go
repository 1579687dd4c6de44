// Package zone implements Zone/ZoneInstance lifecycle, entity tracking
// and broadcast (spec.md §4.E ZoneManager). Grounded on la2go's
// internal/game/zone (spatial BaseZone, per-type behaviors) and
// internal/game/instance (Manager/Template), generalized from
// la2go's 3D Lineage II grid toward this spec's flat (zoneID,
// dynamicMapID) addressing and UUID entity identity.
package zone

import (
	"sync"

	"golang.org/x/sync/errgroup"

	"github.com/imagine-project/channelserver/internal/model"
)

// FlagKey identifies one zone or zone-instance flag, scoped per
// world-CID; worldCID=0 designates the zone-wide value (spec.md §3
// invariant 5).
type FlagKey struct {
	WorldCID int64
	Name     string
}

// Zone is one addressable (zoneID, dynamicMapID) area this channel is
// authoritative for.
type Zone struct {
	mu sync.RWMutex

	DefinitionID int32
	DynamicMapID int32
	Instance     *ZoneInstance // weak parent reference

	flags map[FlagKey]int32

	entities     map[model.UUID]struct{}
	connections  map[model.UUID]*Session
	spawnGroups  map[int32]*SpawnGroup
	flagTriggers []FlagSetTrigger

	spatial *spatialIndex
}

// Session is the narrow slice of internal/session.Session zone needs:
// enough to broadcast and to read/update position. Kept as a plain
// struct rather than session.Session itself, to avoid zone depending on
// session's full package surface.
type Session struct {
	CharacterID  model.UUID
	WorldCID     int64
	FactionGroup int32 // read by chat's VERSUS same-faction filter
	Send         func(packet any)
}

// Connections returns a snapshot of every session currently connected to
// z, for callers that need the list itself rather than a fan-out send
// (e.g. chat's VERSUS same-faction filter).
func (z *Zone) Connections() []*Session {
	z.mu.RLock()
	defer z.mu.RUnlock()
	out := make([]*Session, 0, len(z.connections))
	for _, s := range z.connections {
		out = append(out, s)
	}
	return out
}

// NewZone constructs an empty zone bound to defID/dynMapID.
func NewZone(defID, dynMapID int32) *Zone {
	return &Zone{
		DefinitionID: defID,
		DynamicMapID: dynMapID,
		flags:        make(map[FlagKey]int32),
		entities:     make(map[model.UUID]struct{}),
		connections:  make(map[model.UUID]*Session),
		spawnGroups:  make(map[int32]*SpawnGroup),
		spatial:      newSpatialIndex(),
	}
}

func (z *Zone) AddEntity(id model.UUID) {
	z.mu.Lock()
	defer z.mu.Unlock()
	z.entities[id] = struct{}{}
}

func (z *Zone) RemoveEntity(id model.UUID) {
	z.mu.Lock()
	delete(z.entities, id)
	z.mu.Unlock()
	z.spatial.Remove(id)
}

// UpdatePosition records id's current position for range-scoped
// broadcast (spec.md §4.E send_to_range). Called whenever an entity
// enters, warps within, or moves inside the zone.
func (z *Zone) UpdatePosition(id model.UUID, pos model.Position) {
	z.spatial.Update(id, pos)
}

// NearbyEntities returns every tracked entity within radius of origin,
// via the zone's region-bucketed spatial index.
func (z *Zone) NearbyEntities(origin model.Position, radius float32) []model.UUID {
	return z.spatial.Nearby(origin, radius)
}

// PositionOf returns id's last recorded position, for actions like
// CREATE_LOOT that place a new entity relative to its source.
func (z *Zone) PositionOf(id model.UUID) (model.Position, bool) {
	return z.spatial.Position(id)
}

func (z *Zone) HasEntity(id model.UUID) bool {
	z.mu.RLock()
	defer z.mu.RUnlock()
	_, ok := z.entities[id]
	return ok
}

func (z *Zone) AddConnection(s *Session) {
	z.mu.Lock()
	defer z.mu.Unlock()
	z.connections[s.CharacterID] = s
}

func (z *Zone) RemoveConnection(characterID model.UUID) {
	z.mu.Lock()
	defer z.mu.Unlock()
	delete(z.connections, characterID)
}

// Broadcast fans packet out to every connected session in the zone
// (spec.md §4.E broadcast_packet). Sends run concurrently, one
// goroutine per session, so one slow Send doesn't hold up the rest of
// the zone's population.
func (z *Zone) Broadcast(packet any) {
	z.mu.RLock()
	conns := make([]*Session, 0, len(z.connections))
	for _, s := range z.connections {
		conns = append(conns, s)
	}
	z.mu.RUnlock()

	var g errgroup.Group
	for _, s := range conns {
		s := s
		g.Go(func() error {
			s.Send(packet)
			return nil
		})
	}
	_ = g.Wait()
}

// SetFlag sets key to value, scoped to worldCID (0 = zone-wide). It
// returns the FlagSetTrigger key so the caller can fire any matching
// trigger through ActionDispatcher (spec.md §4.E "Flag triggers").
func (z *Zone) SetFlag(worldCID int64, name string, value int32) FlagKey {
	k := FlagKey{WorldCID: worldCID, Name: name}
	z.mu.Lock()
	z.flags[k] = value
	z.mu.Unlock()
	return k
}

func (z *Zone) Flag(worldCID int64, name string) (int32, bool) {
	z.mu.RLock()
	defer z.mu.RUnlock()
	v, ok := z.flags[FlagKey{WorldCID: worldCID, Name: name}]
	return v, ok
}

// SpawnGroup is a set of NPCs this zone should keep populated between
// min and max count (spec.md §4.E "Spawn-group reconciliation").
// Grounded on la2go's internal/spawn NPC spawn-table loader,
// generalized with the min/max/time-restriction/round-robin rules
// spec.md adds on top.
type SpawnGroup struct {
	ID                  int32
	Min, Max            int32
	Points              []model.Position
	RoundRobin          bool
	TimeRestrictionMask uint32 // bit per hour-of-day slot the group may spawn in

	nextPointIdx int
	alive        map[model.UUID]struct{}
}

func NewSpawnGroup(id, min, max int32, points []model.Position, roundRobin bool, restrict uint32) *SpawnGroup {
	return &SpawnGroup{
		ID: id, Min: min, Max: max, Points: points,
		RoundRobin: roundRobin, TimeRestrictionMask: restrict,
		alive: make(map[model.UUID]struct{}),
	}
}

func (g *SpawnGroup) AliveCount() int { return len(g.alive) }

func (g *SpawnGroup) allowedAtHour(hour int) bool {
	if g.TimeRestrictionMask == 0 {
		return true
	}
	return g.TimeRestrictionMask&(1<<uint(hour%24)) != 0
}

// NextSpawnPoint picks the next point to spawn at, round-robin or
// pseudo-random (index-based) per the group's configuration.
func (g *SpawnGroup) NextSpawnPoint() (model.Position, bool) {
	if len(g.Points) == 0 {
		return model.Position{}, false
	}
	if g.RoundRobin {
		p := g.Points[g.nextPointIdx%len(g.Points)]
		g.nextPointIdx++
		return p, true
	}
	// Deterministic pseudo-random without math/rand's global state (a
	// linear congruential step on nextPointIdx); tests pin
	// RoundRobin=true for a predictable order.
	g.nextPointIdx = (g.nextPointIdx*1103515245 + 12345) & 0x7fffffff
	return g.Points[(g.nextPointIdx>>16)%len(g.Points)], true
}

func (g *SpawnGroup) MarkAlive(id model.UUID) { g.alive[id] = struct{}{} }
func (g *SpawnGroup) MarkDead(id model.UUID)  { delete(g.alive, id) }

// AddSpawnGroup registers g on z.
func (z *Zone) AddSpawnGroup(g *SpawnGroup) {
	z.mu.Lock()
	defer z.mu.Unlock()
	z.spawnGroups[g.ID] = g
}
