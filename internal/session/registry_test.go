package session

import (
	"sync"
	"testing"
	"time"

	"github.com/imagine-project/channelserver/internal/model"
)

type fakeNotifier struct {
	mu       sync.Mutex
	logouts  []int64
	timeouts []int64
}

func (f *fakeNotifier) NotifyLogout(cid int64) {
	f.mu.Lock()
	f.logouts = append(f.logouts, cid)
	f.mu.Unlock()
}
func (f *fakeNotifier) NotifyTimeout(cid int64) {
	f.mu.Lock()
	f.timeouts = append(f.timeouts, cid)
	f.mu.Unlock()
}

func TestRegistry_SetIsIdempotentForExistingUsername(t *testing.T) {
	r := NewRegistry(nil)
	first := NewSession("alice", 1)
	second := NewSession("alice", 2)

	r.Set(first)
	r.Set(second)

	got, ok := r.ByUsername("alice")
	if !ok || got != first {
		t.Fatalf("ByUsername(alice) = %v, %v; want the first-registered session", got, ok)
	}
	if _, ok := r.ByWorldCID(2, false); ok {
		t.Fatalf("second session's world CID should not have been indexed")
	}
}

func TestRegistry_RemoveNotifiesLogout(t *testing.T) {
	notifier := &fakeNotifier{}
	r := NewRegistry(notifier)
	s := NewSession("bob", 42)
	r.Set(s)

	r.Remove(s)

	if _, ok := r.ByUsername("bob"); ok {
		t.Fatalf("session still registered after Remove")
	}
	if len(notifier.logouts) != 1 || notifier.logouts[0] != 42 {
		t.Fatalf("logouts = %v, want [42]", notifier.logouts)
	}
}

func TestRegistry_SweepReportsTimeoutOnceUntilTouched(t *testing.T) {
	notifier := &fakeNotifier{}
	r := NewRegistry(notifier)
	s := NewSession("carol", 7)
	r.Set(s)

	past := time.Now().Add(-time.Hour)
	s.lastActivity = past

	r.sweep(time.Minute, time.Now())
	r.sweep(time.Minute, time.Now())

	if len(notifier.timeouts) != 1 {
		t.Fatalf("timeouts = %v, want exactly one report", notifier.timeouts)
	}

	s.Touch()
	s.lastActivity = past // simulate idle again after touch reset the marker
	r.sweep(time.Minute, time.Now())
	if len(notifier.timeouts) != 2 {
		t.Fatalf("timeouts after re-touch+idle = %v, want two reports total", notifier.timeouts)
	}
}

func TestRegistry_ByCharacterIDFindsAndForgetsSession(t *testing.T) {
	r := NewRegistry(nil)
	s := NewSession("dave", 9)
	s.CharacterUUID = model.NewUUID()
	r.Set(s)

	got, ok := r.ByCharacterID(s.CharacterUUID)
	if !ok || got != s {
		t.Fatalf("ByCharacterID(%v) = %v, %v; want the registered session", s.CharacterUUID, got, ok)
	}

	r.Remove(s)
	if _, ok := r.ByCharacterID(s.CharacterUUID); ok {
		t.Fatalf("session still indexed by character UUID after Remove")
	}
}
