// Package session implements per-connection session state and the
// registry that indexes live sessions by username and by world
// character ID.
package session

import (
	"sync"
	"time"

	"github.com/imagine-project/channelserver/internal/model"
)

// EventInstance is one frame of a session's event stack (spec.md §3
// "Event state"). It is pushed by event.Runtime and dropped when the
// runtime finishes it or the session's Events.End clears the stacks.
type EventInstance struct {
	EventID         string
	SourceEntityID  model.UUID
	ActionGroupID   int32
	Index           int32
	NoInterrupt     bool
	DisabledChoices map[int32]bool
	ITimeID         int32
}

// EventState is the stack-machine half of a Session: at most one
// current event, a LIFO previous stack, and a FIFO queue, matching
// spec.md §3 invariant 4.
type EventState struct {
	mu       sync.Mutex
	Current  *EventInstance
	Previous []*EventInstance
	Queued   []*EventInstance
}

func (es *EventState) PushPrevious(ev *EventInstance) {
	es.mu.Lock()
	defer es.mu.Unlock()
	es.Previous = append(es.Previous, ev)
}

func (es *EventState) PopPrevious() (*EventInstance, bool) {
	es.mu.Lock()
	defer es.mu.Unlock()
	if len(es.Previous) == 0 {
		return nil, false
	}
	last := len(es.Previous) - 1
	ev := es.Previous[last]
	es.Previous = es.Previous[:last]
	return ev, true
}

func (es *EventState) Enqueue(ev *EventInstance) {
	es.mu.Lock()
	defer es.mu.Unlock()
	es.Queued = append(es.Queued, ev)
}

func (es *EventState) Dequeue() (*EventInstance, bool) {
	es.mu.Lock()
	defer es.mu.Unlock()
	if len(es.Queued) == 0 {
		return nil, false
	}
	ev := es.Queued[0]
	es.Queued = es.Queued[1:]
	return ev, true
}

// End empties current, previous and queued in one step, per spec.md §3
// invariant 4 ("ending an event empties all three").
func (es *EventState) End() {
	es.mu.Lock()
	defer es.mu.Unlock()
	es.Current = nil
	es.Previous = nil
	es.Queued = nil
}

// Session is the per-connection state owned by this channel server for
// one authenticated client (spec.md §3 "Session state").
type Session struct {
	mu sync.RWMutex

	Username      string
	WorldCID      int64
	AccountUUID   model.UUID
	CharacterUUID model.UUID
	Authenticated bool
	SessionKey    [2]int32 // PlayOkID1/2

	Events EventState

	CharacterState *model.CharacterState
	DemonState     *model.DemonState

	// ObjectIDs maps a persistent UUID to this session's per-connection
	// integer wire reference (spec.md §3 "Transient tables").
	ObjectIDs map[model.UUID]int32
	nextObjID int32

	PendingMatchID    model.UUID
	ExchangeSessionID model.UUID
	WebGameSessionID  model.UUID

	lastActivity    time.Time
	timeoutReported bool
}

// NewSession constructs a fresh, unauthenticated session bound to
// worldCID (the world server's character id for wire relay).
func NewSession(username string, worldCID int64) *Session {
	return &Session{
		Username:     username,
		WorldCID:     worldCID,
		ObjectIDs:    make(map[model.UUID]int32),
		lastActivity: time.Now(),
	}
}

// Touch records client activity, resetting the timeout-report marker
// per spec.md §4.C ("its timeout marker is zeroed to prevent double-report").
func (s *Session) Touch() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.lastActivity = time.Now()
	s.timeoutReported = false
}

func (s *Session) idleFor(now time.Time) time.Duration {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return now.Sub(s.lastActivity)
}

// MarkTimeoutReported returns true if this is the first timeout report
// since the last Touch, atomically flipping the marker so a repeated
// sweep never double-reports the same idle session.
func (s *Session) MarkTimeoutReported() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.timeoutReported {
		return false
	}
	s.timeoutReported = true
	return true
}

// WireID returns the per-session integer reference for uuid, assigning
// a new one on first use.
func (s *Session) WireID(uuid model.UUID) int32 {
	s.mu.Lock()
	defer s.mu.Unlock()
	if id, ok := s.ObjectIDs[uuid]; ok {
		return id
	}
	s.nextObjID++
	s.ObjectIDs[uuid] = s.nextObjID
	return s.nextObjID
}
