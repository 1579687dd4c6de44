package zone

import (
	"sync"
	"time"

	"github.com/imagine-project/channelserver/internal/model"
)

// zoneKey addresses one zone within an instance by (zoneID, dynamicMapID).
type zoneKey struct {
	zoneID       int32
	dynamicMapID int32
}

// ZoneInstance owns every Zone for one instantiated definition, the set
// of characters with access, per-player destiny boxes, flags, and an
// optional expiry timer (spec.md §3 "ZoneInstance owns").
// Instance kinds that carry their own implicit timer, so ZONE_INSTANCE's
// START_TIMER mode must refuse to arm an explicit timer on them (spec.md
// §4.H "refuses to operate on instances whose type has an implicit
// timer (time-trial, demon-only)").
const (
	KindNormal    = ""
	KindTimeTrial = "TIME_TRIAL"
	KindDemonOnly = "DEMON_ONLY"
)

type ZoneInstance struct {
	mu sync.RWMutex

	ID           int32
	DefinitionID int32
	VariantID    int32
	Kind         string

	zones  map[zoneKey]*Zone
	access map[model.UUID]struct{} // character UUIDs with access

	destinyBoxes map[model.UUID]*model.DestinyBox

	flags map[FlagKey]int32

	timerID         int32
	timerExpireAt   time.Time
	timerExpireEvID string
	timerActive     bool
}

func newZoneInstance(id, defID, variantID int32, kind string) *ZoneInstance {
	return &ZoneInstance{
		ID: id, DefinitionID: defID, VariantID: variantID, Kind: kind,
		zones:        make(map[zoneKey]*Zone),
		access:       make(map[model.UUID]struct{}),
		destinyBoxes: make(map[model.UUID]*model.DestinyBox),
		flags:        make(map[FlagKey]int32),
	}
}

// HasImplicitTimer reports whether zi's type manages its own timer,
// making it ineligible for ZONE_INSTANCE's explicit START_TIMER mode.
func (zi *ZoneInstance) HasImplicitTimer() bool {
	return zi.Kind == KindTimeTrial || zi.Kind == KindDemonOnly
}

func (zi *ZoneInstance) Zone(zoneID, dynMapID int32) (*Zone, bool) {
	zi.mu.RLock()
	defer zi.mu.RUnlock()
	z, ok := zi.zones[zoneKey{zoneID, dynMapID}]
	return z, ok
}

func (zi *ZoneInstance) AddZone(z *Zone) {
	zi.mu.Lock()
	defer zi.mu.Unlock()
	z.Instance = zi
	zi.zones[zoneKey{z.DefinitionID, z.DynamicMapID}] = z
}

// ResolveDynMapID looks up the dynamicMapID zi binds zoneID to, for
// ZONE_CHANGE's "when dynamic_map_id=0 inside a known instance, resolve
// it from the instance's zone-id-list" rule (spec.md §4.H). Ambiguous
// when an instance binds the same zoneID under more than one
// dynamicMapID; callers only use this inside a single-dynamicMapID-per-
// zoneID instance, so the first match found is returned.
func (zi *ZoneInstance) ResolveDynMapID(zoneID int32) (int32, bool) {
	zi.mu.RLock()
	defer zi.mu.RUnlock()
	for k := range zi.zones {
		if k.zoneID == zoneID {
			return k.dynamicMapID, true
		}
	}
	return 0, false
}

func (zi *ZoneInstance) GrantAccess(characterID model.UUID) {
	zi.mu.Lock()
	defer zi.mu.Unlock()
	zi.access[characterID] = struct{}{}
}

func (zi *ZoneInstance) HasAccess(characterID model.UUID) bool {
	zi.mu.RLock()
	defer zi.mu.RUnlock()
	_, ok := zi.access[characterID]
	return ok
}

// RevokeAccess removes characterID's access to zi (ZONE_INSTANCE's
// REMOVE mode, spec.md §4.H).
func (zi *ZoneInstance) RevokeAccess(characterID model.UUID) {
	zi.mu.Lock()
	defer zi.mu.Unlock()
	delete(zi.access, characterID)
}

func (zi *ZoneInstance) DestinyBox(characterID model.UUID) (*model.DestinyBox, bool) {
	zi.mu.RLock()
	defer zi.mu.RUnlock()
	b, ok := zi.destinyBoxes[characterID]
	return b, ok
}

func (zi *ZoneInstance) SetDestinyBox(characterID model.UUID, b *model.DestinyBox) {
	zi.mu.Lock()
	defer zi.mu.Unlock()
	zi.destinyBoxes[characterID] = b
}

// StartTimer arms the instance's timer, failing if one is already
// active (spec.md §4.E "validates that no conflicting timer is active").
func (zi *ZoneInstance) StartTimer(timerID int32, duration time.Duration, expireEventID string) error {
	zi.mu.Lock()
	defer zi.mu.Unlock()
	if zi.timerActive {
		return ErrTimerAlreadyActive
	}
	zi.timerID = timerID
	zi.timerExpireAt = time.Now().Add(duration)
	zi.timerExpireEvID = expireEventID
	zi.timerActive = true
	return nil
}

func (zi *ZoneInstance) StopTimer() {
	zi.mu.Lock()
	defer zi.mu.Unlock()
	zi.timerActive = false
}

func (zi *ZoneInstance) ActiveTimer() (timerID int32, expireAt time.Time, expireEventID string, ok bool) {
	zi.mu.RLock()
	defer zi.mu.RUnlock()
	return zi.timerID, zi.timerExpireAt, zi.timerExpireEvID, zi.timerActive
}

// Connections returns every session connected across all of zi's zones,
// for chat's VERSUS channel ("in-instance same-faction connections",
// spec.md §4.I).
func (zi *ZoneInstance) Connections() []*Session {
	zi.mu.RLock()
	zones := make([]*Zone, 0, len(zi.zones))
	for _, z := range zi.zones {
		zones = append(zones, z)
	}
	zi.mu.RUnlock()

	var out []*Session
	for _, z := range zones {
		out = append(out, z.Connections()...)
	}
	return out
}
