package action

import (
	"context"
	"math"
	"testing"

	"github.com/imagine-project/channelserver/internal/definitions"
	"github.com/imagine-project/channelserver/internal/model"
	"github.com/imagine-project/channelserver/internal/store"
	"github.com/imagine-project/channelserver/internal/zone"
)

// recordingActionRunner spies on zone.Manager's ON_ENTER/ON_LEAVE calls,
// used to assert the ZONE_CHANGE in-place-warp case never fires either
// (spec.md §9 Open Question).
type recordingActionRunner struct {
	calls []string
}

func (r *recordingActionRunner) RunActions(_ model.UUID, _ *zone.Zone, actionRefs []string) {
	r.calls = append(r.calls, actionRefs...)
}

func newCharacterWithBoxes(t *testing.T, st *store.Store) *model.Character {
	t.Helper()
	char := &model.Character{UUID: model.NewUUID()}
	box := &model.DemonBox{UUID: model.NewUUID(), CharacterID: char.UUID, Capacity: model.CompDefaultCapacity, Slots: make([]model.UUID, model.CompDefaultCapacity)}
	char.CompID = box.UUID
	store.Put(st, char.UUID, char)
	store.Put(st, box.UUID, box)
	return char
}

func TestHandleAddRemoveItems_MaterialTankRejectsOverCategoryItem(t *testing.T) {
	ctx := context.Background()
	st := store.New(store.NewMemBackend())
	defs := definitions.FromFixtures([]definitions.Item{{ID: 1234, MaxStack: 99, CategoryMain: 2, CategorySub: 3}}, nil, nil, nil, nil)
	d := NewDispatcher(st, zone.NewManager(nil), nil, nil, defs)

	char := newCharacterWithBoxes(t, st)

	actx := &Context{CharacterID: char.UUID}
	err := d.handleAddRemoveItems(ctx, actx, map[string]string{
		"mode": "MATERIAL_TANK", "item_type": "1234", "count": "5",
	})
	if err == nil {
		t.Fatalf("expected an error rejecting item 1234's category, got nil")
	}

	got, err := store.Load[model.Character](ctx, st, char.UUID, false)
	if err != nil {
		t.Fatalf("reload character: %v", err)
	}
	if len(got.ItemBoxIDs) != 0 {
		t.Fatalf("ItemBoxIDs = %v, want none created for a rejected deposit", got.ItemBoxIDs)
	}
}

func TestHandleAddRemoveItems_MaterialTankAcceptsMatchingCategory(t *testing.T) {
	ctx := context.Background()
	st := store.New(store.NewMemBackend())
	defs := definitions.FromFixtures([]definitions.Item{{ID: 42, MaxStack: 99, CategoryMain: 1, CategorySub: 64}}, nil, nil, nil, nil)
	d := NewDispatcher(st, zone.NewManager(nil), nil, nil, defs)

	char := newCharacterWithBoxes(t, st)
	actx := &Context{CharacterID: char.UUID}

	if err := d.handleAddRemoveItems(ctx, actx, map[string]string{
		"mode": "MATERIAL_TANK", "item_type": "42", "count": "5",
	}); err != nil {
		t.Fatalf("handleAddRemoveItems: %v", err)
	}

	got, err := store.Load[model.Character](ctx, st, char.UUID, false)
	if err != nil {
		t.Fatalf("reload character: %v", err)
	}
	if len(got.ItemBoxIDs) != 1 {
		t.Fatalf("ItemBoxIDs = %v, want one material-tank box", got.ItemBoxIDs)
	}
}

func TestHandleAddRemoveItems_PostRejectsRemoval(t *testing.T) {
	ctx := context.Background()
	st := store.New(store.NewMemBackend())
	d := NewDispatcher(st, zone.NewManager(nil), nil, nil, nil)
	char := newCharacterWithBoxes(t, st)
	actx := &Context{CharacterID: char.UUID}

	err := d.handleAddRemoveItems(ctx, actx, map[string]string{
		"mode": "POST", "item_type": "1", "count": "-1",
	})
	if err == nil {
		t.Fatalf("expected POST removal to be rejected")
	}
}

func TestHandleUpdateComp_RejectsRemovingLockedDemon(t *testing.T) {
	ctx := context.Background()
	st := store.New(store.NewMemBackend())
	d := NewDispatcher(st, zone.NewManager(nil), nil, nil, nil)
	char := newCharacterWithBoxes(t, st)

	box, err := store.Load[model.DemonBox](ctx, st, char.CompID, false)
	if err != nil {
		t.Fatalf("load box: %v", err)
	}
	demon := &model.Demon{UUID: model.NewUUID(), BoxID: box.UUID, Locked: true}
	box.Slots[0] = demon.UUID
	store.Put(st, demon.UUID, demon)
	store.Put(st, box.UUID, box)

	actx := &Context{CharacterID: char.UUID}
	err = d.handleUpdateComp(ctx, actx, map[string]string{"remove": demon.UUID.String()})
	if err == nil {
		t.Fatalf("expected error removing a locked demon")
	}

	reloaded, err := store.Load[model.Demon](ctx, st, demon.UUID, false)
	if err != nil {
		t.Fatalf("reload demon: %v", err)
	}
	if reloaded == nil {
		t.Fatalf("locked demon should not have been deleted")
	}
}

func TestHandleUpdateComp_RejectsExceedingMaxCapacity(t *testing.T) {
	ctx := context.Background()
	st := store.New(store.NewMemBackend())
	d := NewDispatcher(st, zone.NewManager(nil), nil, nil, nil)
	char := newCharacterWithBoxes(t, st)

	actx := &Context{CharacterID: char.UUID}
	err := d.handleUpdateComp(ctx, actx, map[string]string{"add_slots": "5"})
	if err == nil {
		t.Fatalf("expected error growing COMP past CompMaxCapacity")
	}
}

func TestHandleCreateLoot_SucceedsWithItemCountAndPosition(t *testing.T) {
	ctx := context.Background()
	st := store.New(store.NewMemBackend())
	zones := zone.NewManager(nil)
	d := NewDispatcher(st, zones, nil, nil, nil)

	z := zone.NewZone(1, 0)
	actx := &Context{CharacterID: model.NewUUID(), Zone: z}

	err := d.handleCreateLoot(ctx, actx, map[string]string{
		"item_type": "7", "count": "3", "x": "10", "y": "20",
	})
	if err != nil {
		t.Fatalf("handleCreateLoot: %v", err)
	}
}

func TestHandleZoneChange_SpotResolvesPositionAndEntersZone(t *testing.T) {
	ctx := context.Background()
	st := store.New(store.NewMemBackend())
	runner := &recordingActionRunner{}
	zones := zone.NewManager(runner)
	defs := definitions.FromFixtures(nil, nil, nil, nil, nil, definitions.Spot{
		DynamicMapID: 1, SpotID: 5,
		Points: []definitions.SpotPoint{{X: 100, Y: 200, Rot: float32(math.Pi)}},
	})
	d := NewDispatcher(st, zones, nil, nil, defs)

	charID := model.NewUUID()
	actx := &Context{CharacterID: charID}
	err := d.handleZoneChange(ctx, actx, map[string]string{
		"zone_id": "1001", "dyn_map_id": "1", "spot_id": "5",
	})
	if err != nil {
		t.Fatalf("handleZoneChange: %v", err)
	}

	z := zones.OpenZone(1001, 1)
	if !z.HasEntity(charID) {
		t.Fatalf("character not present in destination zone (1001,1)")
	}
	pos, ok := z.PositionOf(charID)
	if !ok {
		t.Fatalf("no position recorded for character in destination zone")
	}
	want := model.Position{X: 100, Y: 200, Rot: float32(math.Pi)}
	if pos != want {
		t.Fatalf("position = %+v, want %+v", pos, want)
	}
	if len(runner.calls) != 1 || runner.calls[0] != "ON_ENTER" {
		t.Fatalf("action calls = %v, want exactly one ON_ENTER", runner.calls)
	}
}

func TestHandleZoneChange_SpotInCurrentZoneWarpsWithoutReenter(t *testing.T) {
	ctx := context.Background()
	st := store.New(store.NewMemBackend())
	runner := &recordingActionRunner{}
	zones := zone.NewManager(runner)
	defs := definitions.FromFixtures(nil, nil, nil, nil, nil, definitions.Spot{
		DynamicMapID: 2, SpotID: 3,
		Points: []definitions.SpotPoint{{X: 7, Y: 8, Rot: 1}},
	})
	d := NewDispatcher(st, zones, nil, nil, defs)

	charID := model.NewUUID()
	z := zones.OpenZone(500, 2)
	sess := &zone.Session{CharacterID: charID}
	z.AddEntity(charID)
	z.AddConnection(sess)

	actx := &Context{CharacterID: charID, Zone: z, Session: sess}
	err := d.handleZoneChange(ctx, actx, map[string]string{
		"zone_id": "0", "spot_id": "3",
	})
	if err != nil {
		t.Fatalf("handleZoneChange: %v", err)
	}

	if !z.HasEntity(charID) {
		t.Fatalf("character should remain in the same zone for an in-place spot warp")
	}
	pos, ok := z.PositionOf(charID)
	if !ok || pos != (model.Position{X: 7, Y: 8, Rot: 1}) {
		t.Fatalf("position = %+v, ok=%v, want (7,8,1)", pos, ok)
	}
	if len(runner.calls) != 0 {
		t.Fatalf("action calls = %v, want none (no ON_ENTER/ON_LEAVE for in-place warp)", runner.calls)
	}
}

func TestHandleZoneChange_ZeroZeroUsesHomepoint(t *testing.T) {
	ctx := context.Background()
	st := store.New(store.NewMemBackend())
	zones := zone.NewManager(nil)
	d := NewDispatcher(st, zones, nil, nil, nil)

	char := &model.Character{
		UUID:            model.NewUUID(),
		HomepointZoneID: 42,
		Homepoint:       model.Position{X: 1, Y: 2, Rot: 3},
	}
	store.Put(st, char.UUID, char)

	actx := &Context{CharacterID: char.UUID}
	err := d.handleZoneChange(ctx, actx, map[string]string{"zone_id": "0", "dyn_map_id": "0"})
	if err != nil {
		t.Fatalf("handleZoneChange: %v", err)
	}

	z := zones.OpenZone(42, 0)
	if !z.HasEntity(char.UUID) {
		t.Fatalf("character not moved to homepoint zone 42")
	}
	pos, ok := z.PositionOf(char.UUID)
	if !ok || pos != char.Homepoint {
		t.Fatalf("position = %+v, ok=%v, want homepoint %+v", pos, ok, char.Homepoint)
	}
}

func TestHandleAddRemoveItems_MaterialTankRejectsNonExactCategory(t *testing.T) {
	ctx := context.Background()
	st := store.New(store.NewMemBackend())
	// main=3 (binary 11) satisfies a bitwise-AND check against 1 but must
	// still be rejected: the category match is exact equality, not a bit
	// test (original_source/server/channel/src/ActionManager.cpp:663-664).
	defs := definitions.FromFixtures([]definitions.Item{{ID: 99, MaxStack: 99, CategoryMain: 3, CategorySub: 64}}, nil, nil, nil, nil)
	d := NewDispatcher(st, zone.NewManager(nil), nil, nil, defs)

	char := newCharacterWithBoxes(t, st)
	actx := &Context{CharacterID: char.UUID}
	err := d.handleAddRemoveItems(ctx, actx, map[string]string{
		"mode": "MATERIAL_TANK", "item_type": "99", "count": "5",
	})
	if err == nil {
		t.Fatalf("expected MATERIAL_TANK to reject category main=3 (not exactly 1)")
	}
}
