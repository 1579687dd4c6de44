package zone

import (
	"sync"

	"github.com/imagine-project/channelserver/internal/model"
)

// spatialShiftBy buckets positions into regionSize x regionSize cells
// for the 3x3-region AOI window SendToRange queries, the same
// power-of-two bucketing la2go's World/Region grid uses — adapted here
// to a per-Zone index of model.UUID positions instead of a single
// process-wide singleton keyed on la2go's model.WorldObject, since
// spec.md §9 calls for avoiding static globals and this repo's zones
// are already independently addressed by (zoneID, dynMapID).
const spatialShiftBy = 11

const regionSize = 1 << spatialShiftBy // 2048 game units per region

type regionKey struct{ rx, ry int32 }

func regionOf(pos model.Position) regionKey {
	return regionKey{
		rx: int32(pos.X) >> spatialShiftBy,
		ry: int32(pos.Y) >> spatialShiftBy,
	}
}

// spatialIndex tracks each tracked entity's last known position,
// bucketed by region, so SendToRange only needs to scan the origin's
// region plus its 8 neighbors instead of every connection in the zone.
// Grounded on la2go's internal/world Region/World (region bucketing,
// 3x3 surrounding-region window) and the visibility-cache idiom in
// that package's visibility_manager.go, condensed to what a bounded
// single-zone index needs: no global singleton, no cross-region
// snapshot caching (a zone's live population is small enough that a
// direct per-region map scan is cheap).
type spatialIndex struct {
	mu        sync.RWMutex
	positions map[model.UUID]model.Position
	regions   map[regionKey]map[model.UUID]struct{}
}

func newSpatialIndex() *spatialIndex {
	return &spatialIndex{
		positions: make(map[model.UUID]model.Position),
		regions:   make(map[regionKey]map[model.UUID]struct{}),
	}
}

// Update records id's current position, moving it between region
// buckets if it crossed a boundary since the last update.
func (s *spatialIndex) Update(id model.UUID, pos model.Position) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if old, ok := s.positions[id]; ok {
		oldKey := regionOf(old)
		newKey := regionOf(pos)
		if oldKey == newKey {
			s.positions[id] = pos
			return
		}
		s.removeFromRegion(oldKey, id)
	}

	s.positions[id] = pos
	key := regionOf(pos)
	bucket, ok := s.regions[key]
	if !ok {
		bucket = make(map[model.UUID]struct{})
		s.regions[key] = bucket
	}
	bucket[id] = struct{}{}
}

func (s *spatialIndex) Remove(id model.UUID) {
	s.mu.Lock()
	defer s.mu.Unlock()
	pos, ok := s.positions[id]
	if !ok {
		return
	}
	delete(s.positions, id)
	s.removeFromRegion(regionOf(pos), id)
}

func (s *spatialIndex) removeFromRegion(key regionKey, id model.UUID) {
	bucket, ok := s.regions[key]
	if !ok {
		return
	}
	delete(bucket, id)
	if len(bucket) == 0 {
		delete(s.regions, key)
	}
}

// Position returns id's last recorded position.
func (s *spatialIndex) Position(id model.UUID) (model.Position, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	pos, ok := s.positions[id]
	return pos, ok
}

// Nearby returns every tracked id within radius of origin, scanning
// only origin's region and its 8 neighbors (spec.md §4.E "a fixed
// in-game distance radius", la2go's 3x3 surrounding-region window).
func (s *spatialIndex) Nearby(origin model.Position, radius float32) []model.UUID {
	s.mu.RLock()
	defer s.mu.RUnlock()

	center := regionOf(origin)
	r2 := radius * radius
	var out []model.UUID
	for dx := int32(-1); dx <= 1; dx++ {
		for dy := int32(-1); dy <= 1; dy++ {
			bucket, ok := s.regions[regionKey{center.rx + dx, center.ry + dy}]
			if !ok {
				continue
			}
			for id := range bucket {
				pos := s.positions[id]
				ddx, ddy := pos.X-origin.X, pos.Y-origin.Y
				if ddx*ddx+ddy*ddy <= r2 {
					out = append(out, id)
				}
			}
		}
	}
	return out
}
