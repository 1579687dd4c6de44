package zone

import (
	"testing"
	"time"

	"github.com/imagine-project/channelserver/internal/model"
)

type fakeActionRunner struct {
	calls []string
}

func (f *fakeActionRunner) RunActions(source model.UUID, zone *Zone, actionRefs []string) {
	f.calls = append(f.calls, actionRefs...)
}

func newTestSession() (*Session, *[]any) {
	var received []any
	s := &Session{CharacterID: model.NewUUID(), Send: func(p any) { received = append(received, p) }}
	return s, &received
}

func TestEnterZone_AddsEntityAndFiresOnEnter(t *testing.T) {
	actions := &fakeActionRunner{}
	m := NewManager(actions)
	s, _ := newTestSession()

	z := m.EnterZone(s, nil, 1, 0, model.Position{}, false)

	if !z.HasEntity(s.CharacterID) {
		t.Fatalf("entity not added to zone")
	}
	if len(actions.calls) != 1 || actions.calls[0] != "ON_ENTER" {
		t.Fatalf("actions.calls = %v, want [ON_ENTER]", actions.calls)
	}
}

func TestEnterZone_LeavesSourceZoneWhenForced(t *testing.T) {
	actions := &fakeActionRunner{}
	m := NewManager(actions)
	s, _ := newTestSession()

	source := m.OpenZone(1, 0)
	source.AddEntity(s.CharacterID)
	source.AddConnection(s)

	target := m.EnterZone(s, source, 2, 0, model.Position{}, true)

	if source.HasEntity(s.CharacterID) {
		t.Fatalf("entity should have been removed from source zone")
	}
	if !target.HasEntity(s.CharacterID) {
		t.Fatalf("entity should be in target zone")
	}
}

func TestCreateInstance_AssignsIncreasingIDs(t *testing.T) {
	m := NewManager(nil)
	a := m.CreateInstance(10, 0)
	b := m.CreateInstance(10, 0)
	if a.ID == b.ID {
		t.Fatalf("instance ids should differ, got %d and %d", a.ID, b.ID)
	}
}

func TestZoneInstance_StartTimerRejectsConflicting(t *testing.T) {
	m := NewManager(nil)
	inst := m.CreateInstance(1, 0)

	if err := m.StartInstanceTimer(inst, 5, time.Minute, "evt_expire"); err != nil {
		t.Fatalf("first StartInstanceTimer() error = %v", err)
	}
	if err := m.StartInstanceTimer(inst, 6, time.Minute, "evt_expire"); err == nil {
		t.Fatalf("expected ErrTimerAlreadyActive for second StartInstanceTimer")
	}
	m.StopInstanceTimer(inst)
	if err := m.StartInstanceTimer(inst, 6, time.Minute, "evt_expire"); err != nil {
		t.Fatalf("StartInstanceTimer after stop error = %v", err)
	}
}

func TestUpdateSpawnGroups_FillsUpToMinimum(t *testing.T) {
	m := NewManager(nil)
	z := m.OpenZone(1, 0)
	points := []model.Position{{X: 1}, {X: 2}, {X: 3}}
	g := NewSpawnGroup(1, 2, 4, points, true, 0)
	z.AddSpawnGroup(g)

	var spawned []model.Position
	m.UpdateSpawnGroups(z, false, 0, time.Now(), func(groupID int32, pos model.Position) {
		spawned = append(spawned, pos)
		g.MarkAlive(model.NewUUID())
	})

	if len(spawned) != 2 {
		t.Fatalf("spawned = %d positions, want 2 to reach Min", len(spawned))
	}
}

func TestSetZoneFlag_FiresMatchingTrigger(t *testing.T) {
	actions := &fakeActionRunner{}
	m := NewManager(actions)
	z := m.OpenZone(1, 0)
	m.RegisterFlagTrigger(z, FlagSetTrigger{Name: "boss_dead", Value: 1, ActionRefs: []string{"SPAWN_REWARD"}})

	m.SetZoneFlag(z, 0, "boss_dead", 1, model.NewUUID())

	if len(actions.calls) != 1 || actions.calls[0] != "SPAWN_REWARD" {
		t.Fatalf("actions.calls = %v, want [SPAWN_REWARD]", actions.calls)
	}
}
