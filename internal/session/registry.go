package session

import (
	"sync"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/imagine-project/channelserver/internal/model"
)

// Notifier is the narrow slice of the world connection SessionRegistry
// needs: reporting logouts and timeouts back to the world server. The
// concrete implementation is internal/serverctx's worldNotifier over
// internal/worldlink.Client; this interface keeps
// session free of that dependency (following la2go's habit of taking
// small interfaces rather than concrete manager types as constructor
// params — see internal/gameserver's CharacterRepository/PlayerPersister).
type Notifier interface {
	NotifyLogout(worldCID int64)
	NotifyTimeout(worldCID int64)
}

// Registry indexes live sessions by username and by world-CID
// (spec.md §4.C). Grounded on la2go's internal/login.SessionManager:
// sync.Map for the username index (read-heavy, write-rare, matching
// SessionManager.sessions), plus a second RWMutex-guarded plain map for
// world-CID lookups since CIDs are dense int64s rather than
// sync.Map-friendly string keys.
type Registry struct {
	byUsername sync.Map // map[string]*Session

	mu         sync.RWMutex
	byCID      map[int64]*Session
	byCharacter map[model.UUID]*Session

	notifier Notifier
}

// NewRegistry builds an empty Registry reporting logouts/timeouts to n.
func NewRegistry(n Notifier) *Registry {
	return &Registry{
		byCID:       make(map[int64]*Session),
		byCharacter: make(map[model.UUID]*Session),
		notifier:    n,
	}
}

// Set inserts session under its username, idempotent for an
// already-registered username (spec.md §4.C "set(session): inserts
// only if absent; idempotent for an already-registered username").
func (r *Registry) Set(s *Session) {
	if _, loaded := r.byUsername.LoadOrStore(s.Username, s); loaded {
		return
	}
	r.mu.Lock()
	r.byCID[s.WorldCID] = s
	if s.CharacterUUID != model.NilUUID {
		r.byCharacter[s.CharacterUUID] = s
	}
	r.mu.Unlock()
}

// Remove deletes session from both indexes and notifies the world of
// the logout.
func (r *Registry) Remove(s *Session) {
	r.byUsername.Delete(s.Username)
	r.mu.Lock()
	delete(r.byCID, s.WorldCID)
	if s.CharacterUUID != model.NilUUID {
		delete(r.byCharacter, s.CharacterUUID)
	}
	r.mu.Unlock()
	if r.notifier != nil {
		r.notifier.NotifyLogout(s.WorldCID)
	}
}

// ByCharacterID returns the session whose active character is
// characterID, if any. Used by sync's StatusEffect insert handler
// (spec.md §4.D "hydrates target character, finds its session, applies
// effect immediately") since that delivery path only carries a
// character UUID, not a world-CID.
func (r *Registry) ByCharacterID(characterID model.UUID) (*Session, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	s, ok := r.byCharacter[characterID]
	return s, ok
}

// ByUsername returns the session registered under name, if any.
func (r *Registry) ByUsername(name string) (*Session, bool) {
	v, ok := r.byUsername.Load(name)
	if !ok {
		return nil, false
	}
	return v.(*Session), true
}

// ByWorldCID returns the session for cid. isWorld is accepted for
// symmetry with the source's dual lobby/world lookup but this channel
// server maintains a single index, since it is not itself split into a
// lobby/world tier (spec.md never gives SessionRegistry a second
// backing store the way Store has one).
func (r *Registry) ByWorldCID(cid int64, isWorld bool) (*Session, bool) {
	_ = isWorld
	r.mu.RLock()
	defer r.mu.RUnlock()
	s, ok := r.byCID[cid]
	return s, ok
}

// Broadcast calls send for every currently-registered session.
func (r *Registry) Broadcast(send func(*Session)) {
	r.byUsername.Range(func(_, v any) bool {
		send(v.(*Session))
		return true
	})
}

// Count returns the number of active sessions.
func (r *Registry) Count() int {
	n := 0
	r.byUsername.Range(func(_, _ any) bool { n++; return true })
	return n
}

// ScheduleTimeouts runs a sweep every 10s (spec.md §4.C) until ctx-like
// stop is closed; any session idle longer than timeout is reported to
// the world exactly once per idle period.
func (r *Registry) ScheduleTimeouts(timeout time.Duration, stop <-chan struct{}) {
	ticker := time.NewTicker(10 * time.Second)
	defer ticker.Stop()
	for {
		select {
		case <-stop:
			return
		case now := <-ticker.C:
			r.sweep(timeout, now)
		}
	}
}

// sweep finds every idle-past-timeout session and reports it to the
// world concurrently, so one slow notifier call doesn't delay the rest
// of the sweep's batch.
func (r *Registry) sweep(timeout time.Duration, now time.Time) {
	var g errgroup.Group
	r.byUsername.Range(func(_, v any) bool {
		s := v.(*Session)
		if s.idleFor(now) <= timeout {
			return true
		}
		if s.MarkTimeoutReported() && r.notifier != nil {
			worldCID := s.WorldCID
			g.Go(func() error {
				r.notifier.NotifyTimeout(worldCID)
				return nil
			})
		}
		return true
	})
	_ = g.Wait()
}
