package sync

import (
	"sync"

	"github.com/imagine-project/channelserver/internal/model"
)

// ActiveTracker holds the currently-active record UUID per key for the
// PentalphaMatch/UBTournament "set active / clear" convention (spec.md
// §4.D "PentalphaMatch / UBTournament: 'set active' if end_time == 0,
// else clear matching active record"). Both record types share this
// tracker shape, keyed differently (Pentalpha by team, UB tournament by
// name), so one small helper backs both ObjectConfigs instead of
// duplicating the same map+mutex twice.
type ActiveTracker struct {
	mu     sync.Mutex
	active map[string]model.UUID
}

func NewActiveTracker() *ActiveTracker {
	return &ActiveTracker{active: make(map[string]model.UUID)}
}

// SetActive records id as the active record for key, replacing any
// prior active record for that key.
func (t *ActiveTracker) SetActive(key string, id model.UUID) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.active[key] = id
}

// Clear removes the active record for key.
func (t *ActiveTracker) Clear(key string) {
	t.mu.Lock()
	defer t.mu.Unlock()
	delete(t.active, key)
}

// Active returns the UUID currently active for key, if any.
func (t *ActiveTracker) Active(key string) (model.UUID, bool) {
	t.mu.Lock()
	defer t.mu.Unlock()
	id, ok := t.active[key]
	return id, ok
}

// NewActiveWindowConfig builds the ObjectConfig shared by PentalphaMatch
// and UBTournament: keyFn extracts the record's tracking key (team ID,
// tournament name, ...) and endTimeFn its EndTime. A record with
// EndTime == 0 is set active for its key; any other EndTime clears it
// (spec.md §4.D).
func NewActiveWindowConfig[T any](tracker *ActiveTracker, keyFn func(T) string, endTimeFn func(T) int64, uuidFn func(T) model.UUID) ObjectConfig {
	return ObjectConfig{
		Persistent: true,
		StoreRef:   "world",
		UpdateHandler: func(_ string, obj any, isRemove bool, _ string) Code {
			rec, ok := obj.(T)
			if !ok {
				return CodeFailed
			}
			key := keyFn(rec)
			if isRemove || endTimeFn(rec) != 0 {
				tracker.Clear(key)
				return CodeUpdated
			}
			tracker.SetActive(key, uuidFn(rec))
			return CodeUpdated
		},
	}
}
