package action

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/imagine-project/channelserver/internal/event"
	"github.com/imagine-project/channelserver/internal/model"
	"github.com/imagine-project/channelserver/internal/store"
	"github.com/imagine-project/channelserver/internal/zone"
)

// registerBoundHandlers installs the action types that need d's
// store/zones/quests/runtime dependencies, keeping them out of the
// package-level stateless registry (spec.md §4.H's twenty-two action
// types split naturally along this line: most are pure notifications,
// a handful mutate persisted state or the zone graph).
func (d *Dispatcher) registerBoundHandlers() {
	d.handlers["ZONE_CHANGE"] = d.handleZoneChange
	d.handlers["START_EVENT"] = d.handleStartEvent
	d.handlers["ZONE_INSTANCE"] = d.handleZoneInstance
	d.handlers["SPAWN"] = d.handleSpawn
	d.handlers["ADD_REMOVE_ITEMS"] = d.handleAddRemoveItems
	d.handlers["ADD_REMOVE_STATUS"] = d.handleAddRemoveStatus
	d.handlers["UPDATE_COMP"] = d.handleUpdateComp
	d.handlers["GRANT_SKILLS"] = d.handleGrantSkills
	d.handlers["CREATE_LOOT"] = d.handleCreateLoot
	d.handlers["GRANT_XP"] = d.handleGrantXP
	d.handlers["UPDATE_QUEST"] = d.handleUpdateQuest
}

// handleZoneChange runs ZONE_CHANGE (spec.md §4.H): moves the
// character's zone.Session to (zone_id, dyn_map_id, x, y, rot), with
// three destination-resolution rules layered on top of the raw
// params: `(0,0)` means "homepoint" (zone_id and dyn_map_id both zero,
// with no spot_id); a zero dyn_map_id inside a known instance is
// resolved from the instance's own zone-id-list; and a set spot_id
// overrides x/y/rot with a point picked from Definitions.Spot.
// Open Question decision (spec.md §9): `spot_id > 0 && zone_id == 0`
// moves within the character's current zone and must not re-trigger
// ON_LEAVE/ON_ENTER, so that combination bypasses EnterZone entirely
// and calls zone.Manager.Warp instead.
func (d *Dispatcher) handleZoneChange(ctx context.Context, actx *Context, params map[string]string) error {
	zoneID, err := atoi32(params, "zone_id")
	if err != nil {
		return err
	}
	dynMapID, _ := atoi32(params, "dyn_map_id")
	x, err := atof32(params, "x")
	if err != nil {
		return err
	}
	y, err := atof32(params, "y")
	if err != nil {
		return err
	}
	rot, err := atof32(params, "rot")
	if err != nil {
		return err
	}
	pos := model.Position{X: x, Y: y, Rot: rot}

	spotID, hasSpot, err := atoi32Opt(params, "spot_id")
	if err != nil {
		return err
	}

	s := actx.Session
	if s == nil {
		s = &zone.Session{CharacterID: actx.CharacterID, WorldCID: worldCIDFrom(actx.CharacterID)}
	}

	// spot_id>0 && zone_id==0 moves within the current zone (spec.md §9).
	movingWithinCurrentZone := hasSpot && spotID > 0 && zoneID == 0 && actx.Zone != nil
	if movingWithinCurrentZone {
		zoneID = actx.Zone.DefinitionID
		dynMapID = actx.Zone.DynamicMapID
	}

	// A zero dyn_map_id inside a known instance resolves from the
	// instance's own zone-id-list (spec.md §4.H).
	if !movingWithinCurrentZone && dynMapID == 0 && zoneID != 0 && actx.Zone != nil && actx.Zone.Instance != nil {
		if resolved, ok := actx.Zone.Instance.ResolveDynMapID(zoneID); ok {
			dynMapID = resolved
		}
	}

	// (0,0) means homepoint, but only when no spot_id redirected us
	// elsewhere first.
	if !hasSpot && zoneID == 0 && dynMapID == 0 {
		char, err := store.Load[model.Character](ctx, d.store, actx.CharacterID, false)
		if err != nil {
			return fmt.Errorf("action: ZONE_CHANGE(homepoint): %w", err)
		}
		zoneID = char.HomepointZoneID
		pos = char.Homepoint
	}

	if hasSpot && spotID > 0 {
		if d.defs == nil {
			return fmt.Errorf("action: ZONE_CHANGE: spot_id set but no definitions configured")
		}
		spot, ok := d.defs.Spot(dynMapID, spotID)
		if !ok || len(spot.Points) == 0 {
			return fmt.Errorf("action: ZONE_CHANGE: unknown spot %d in dyn map %d", spotID, dynMapID)
		}
		point := spot.Points[d.rng.Intn(len(spot.Points))]
		pos = model.Position{X: point.X, Y: point.Y, Rot: point.Rot}
	}

	if movingWithinCurrentZone {
		d.zones.Warp(actx.Zone, s.CharacterID, pos)
		return nil
	}

	d.zones.EnterZone(s, actx.Zone, zoneID, dynMapID, pos, true)
	return nil
}

func (d *Dispatcher) handleStartEvent(_ context.Context, actx *Context, params map[string]string) error {
	if d.runtime == nil {
		return fmt.Errorf("action: START_EVENT: no event runtime configured")
	}
	if actx.PlayerSession == nil {
		slog.Warn("action: START_EVENT fired with no player session attached", "event_id", params["event_id"])
		return nil
	}
	groupID, _ := atoi32(params, "group_id")
	return d.runtime.HandleEvent(actx.PlayerSession, params["event_id"], actx.CharacterID, groupID, actx.EvalContext)
}

// handleZoneInstance dispatches ZONE_INSTANCE's five modes (spec.md
// §4.H): CREATE allocates a new instance and grants the acting
// character access; JOIN grants access to an existing instance and, if
// a live zone.Session is attached, moves the character in; REMOVE
// revokes access; START_TIMER/STOP_TIMER arm or disarm the instance's
// expiry timer.
func (d *Dispatcher) handleZoneInstance(_ context.Context, actx *Context, params map[string]string) error {
	switch params["mode"] {
	case "", "CREATE":
		defID, err := atoi32(params, "def_id")
		if err != nil {
			return err
		}
		variantID, _ := atoi32(params, "variant_id")
		inst := d.zones.CreateInstanceWithKind(defID, variantID, params["kind"])
		inst.GrantAccess(actx.CharacterID)
		return nil

	case "JOIN":
		inst, err := d.resolveInstance(actx, params)
		if err != nil {
			return fmt.Errorf("action: ZONE_INSTANCE(JOIN): %w", err)
		}
		inst.GrantAccess(actx.CharacterID)
		if actx.Session == nil {
			return nil
		}
		zoneID, err := atoi32(params, "zone_id")
		if err != nil {
			return nil // access granted; no target zone to move into yet
		}
		dynMapID, _ := atoi32(params, "dyn_map_id")
		_, err = d.zones.MoveToInstance(actx.Session, actx.Zone, inst, zoneID, dynMapID, model.Position{})
		if err != nil {
			return fmt.Errorf("action: ZONE_INSTANCE(JOIN): %w", err)
		}
		return nil

	case "REMOVE":
		inst, err := d.resolveInstance(actx, params)
		if err != nil {
			return fmt.Errorf("action: ZONE_INSTANCE(REMOVE): %w", err)
		}
		inst.RevokeAccess(actx.CharacterID)
		return nil

	case "START_TIMER":
		inst, err := d.resolveInstance(actx, params)
		if err != nil {
			return fmt.Errorf("action: ZONE_INSTANCE(START_TIMER): %w", err)
		}
		if inst.HasImplicitTimer() {
			return fmt.Errorf("action: ZONE_INSTANCE(START_TIMER): %w", zone.ErrImplicitTimer)
		}
		timerID, err := atoi32(params, "timer_id")
		if err != nil {
			return err
		}
		durationSec, err := atoi32(params, "duration_sec")
		if err != nil {
			return err
		}
		d.zones.StopInstanceTimer(inst) // stop any pre-existing timer first
		return d.zones.StartInstanceTimer(inst, timerID, time.Duration(durationSec)*time.Second, params["expire_event_id"])

	case "STOP_TIMER":
		inst, err := d.resolveInstance(actx, params)
		if err != nil {
			return fmt.Errorf("action: ZONE_INSTANCE(STOP_TIMER): %w", err)
		}
		d.zones.StopInstanceTimer(inst)
		return nil

	default:
		return fmt.Errorf("action: ZONE_INSTANCE: unknown mode %q", params["mode"])
	}
}

// resolveInstance looks up the instance named by params["instance_id"],
// falling back to the acting character's current instance access when
// the param is absent (JOIN/REMOVE/timer modes fired without an
// explicit target operate on the instance the character already holds).
func (d *Dispatcher) resolveInstance(actx *Context, params map[string]string) (*zone.ZoneInstance, error) {
	if raw, ok := params["instance_id"]; ok && raw != "" {
		id, err := atoi32(params, "instance_id")
		if err != nil {
			return nil, err
		}
		inst, ok := d.zones.Instance(id)
		if !ok {
			return nil, zone.ErrInstanceNotFound
		}
		return inst, nil
	}
	inst, ok := d.zones.GetInstanceAccess(actx.CharacterID)
	if !ok {
		return nil, zone.ErrInstanceNotFound
	}
	return inst, nil
}

func (d *Dispatcher) handleSpawn(_ context.Context, actx *Context, params map[string]string) error {
	if actx.Zone == nil {
		return fmt.Errorf("action: SPAWN requires a zone context")
	}
	groupID, err := atoi32(params, "group_id")
	if err != nil {
		return err
	}
	d.zones.UpdateSpawnGroups(actx.Zone, true, groupID, time.Now(), func(gid int32, pos model.Position) {
		enemyID := model.NewUUID()
		d.zones.SpawnEnemy(actx.Zone, enemyID, pos)
	})
	return nil
}

// materialTankCategoryMain/Sub are the exact (category_main,
// category_sub) values an item must carry to be eligible for
// MATERIAL_TANK storage (spec.md §4.H "validates category (main=1,
// sub=64)", spec.md §8 scenario 5), matching original_source/server/
// channel/src/ActionManager.cpp's strict-equality rejection rather than
// a bit test.
const (
	materialTankCategoryMain = int32(1)
	materialTankCategorySub  = int32(64)

	defaultMaxStack = 99 // used when Definitions has no Item record for item_type
)

// handleAddRemoveItems runs ADD_REMOVE_ITEMS across its four modes
// (spec.md §4.H): POST rejects removals outright; MATERIAL_TANK
// validates the item's main/sub category before touching the tank;
// TIME_TRIAL_REWARD additionally records the trial result. INVENTORY is
// the default when mode is unset.
func (d *Dispatcher) handleAddRemoveItems(ctx context.Context, actx *Context, params map[string]string) error {
	mode := params["mode"]
	if mode == "" {
		mode = "INVENTORY"
	}
	itemType, err := atoi32(params, "item_type")
	if err != nil {
		return err
	}
	count, err := atoi32(params, "count")
	if err != nil {
		return err
	}

	if mode == "POST" && count < 0 {
		return fmt.Errorf("action: ADD_REMOVE_ITEMS(POST): removals are rejected (item_type=%d)", itemType)
	}

	boxType := model.ItemBoxInventory
	switch mode {
	case "MATERIAL_TANK":
		boxType = model.ItemBoxMaterialTank
	case "POST":
		boxType = model.ItemBoxPost
	case "TIME_TRIAL_REWARD":
		boxType = model.ItemBoxTimeTrialReward
	}

	maxStack := int32(defaultMaxStack)
	if mode == "MATERIAL_TANK" {
		if d.defs == nil {
			return fmt.Errorf("action: ADD_REMOVE_ITEMS(MATERIAL_TANK): no definitions configured")
		}
		def, ok := d.defs.Item(itemType)
		if !ok {
			return fmt.Errorf("action: ADD_REMOVE_ITEMS(MATERIAL_TANK): unknown item type %d", itemType)
		}
		if def.CategoryMain != materialTankCategoryMain || def.CategorySub != materialTankCategorySub {
			return fmt.Errorf("action: ADD_REMOVE_ITEMS(MATERIAL_TANK): item %d category (main=%d, sub=%d) is not a material-tank category",
				itemType, def.CategoryMain, def.CategorySub)
		}
		if def.MaxStack > 0 {
			maxStack = def.MaxStack
		}
	} else if d.defs != nil {
		if def, ok := d.defs.Item(itemType); ok && def.MaxStack > 0 {
			maxStack = def.MaxStack
		}
	}

	char, err := store.Load[model.Character](ctx, d.store, actx.CharacterID, false)
	if err != nil {
		return fmt.Errorf("action: ADD_REMOVE_ITEMS: loading character: %w", err)
	}
	box, err := d.findOrCreateBox(ctx, char, boxType)
	if err != nil {
		return fmt.Errorf("action: ADD_REMOVE_ITEMS: resolving box: %w", err)
	}
	if err := d.applyItemDelta(ctx, box, itemType, count, maxStack); err != nil {
		return fmt.Errorf("action: ADD_REMOVE_ITEMS: %w", err)
	}

	if mode == "TIME_TRIAL_REWARD" {
		slog.Info("action: ADD_REMOVE_ITEMS recorded time-trial result", "character", actx.CharacterID, "item_type", itemType, "count", count)
	}
	return nil
}

// findOrCreateBox returns char's item box of boxType, creating (and
// attaching to char.ItemBoxIDs) one if none exists yet.
func (d *Dispatcher) findOrCreateBox(ctx context.Context, char *model.Character, boxType model.ItemBoxType) (*model.ItemBox, error) {
	for _, id := range char.ItemBoxIDs {
		box, err := store.Load[model.ItemBox](ctx, d.store, id, false)
		if err != nil {
			return nil, fmt.Errorf("loading box %s: %w", id, err)
		}
		if box.BoxType == boxType {
			return box, nil
		}
	}

	capacity := model.InventoryMaxSlots
	box := store.NewRecord(d.store, true, func(id model.UUID) *model.ItemBox {
		return &model.ItemBox{UUID: id, CharacterID: char.UUID, BoxType: boxType, Slots: make([]model.UUID, capacity)}
	})
	char.ItemBoxIDs = append(char.ItemBoxIDs, box.UUID)
	ops := []store.ChangeOp{
		store.Insert[model.ItemBox](d.store, box.UUID, box),
		store.Update[model.Character](d.store, char.UUID, char),
	}
	if err := store.Apply(ctx, d.store, ops); err != nil {
		return nil, err
	}
	return box, nil
}

// applyItemDelta adds count (negative to remove) of itemType to box,
// capping any resulting stack at maxStack (spec.md §4.H "caps
// per-material stack"). A removal that would take an existing stack
// below zero fails instead of going negative.
func (d *Dispatcher) applyItemDelta(ctx context.Context, box *model.ItemBox, itemType, count, maxStack int32) error {
	for _, id := range box.Slots {
		if id == model.NilUUID {
			continue
		}
		item, err := store.Load[model.Item](ctx, d.store, id, false)
		if err != nil {
			return fmt.Errorf("loading item %s: %w", id, err)
		}
		if item.ItemType != itemType {
			continue
		}
		newStack := item.Stack + count
		if newStack < 0 {
			return fmt.Errorf("removing %d of item %d would underflow stack of %d", -count, itemType, item.Stack)
		}
		if newStack > maxStack {
			newStack = maxStack
		}
		item.Stack = newStack
		return store.Apply(ctx, d.store, []store.ChangeOp{store.Update[model.Item](d.store, item.UUID, item)})
	}

	if count <= 0 {
		return fmt.Errorf("no existing stack of item %d to remove from", itemType)
	}

	slotIdx := -1
	for i, id := range box.Slots {
		if id == model.NilUUID {
			slotIdx = i
			break
		}
	}
	if slotIdx < 0 {
		return fmt.Errorf("box %s has no empty slot for item %d", box.UUID, itemType)
	}

	stack := count
	if stack > maxStack {
		stack = maxStack
	}
	item := store.NewRecord(d.store, true, func(id model.UUID) *model.Item {
		return &model.Item{UUID: id, ItemBoxID: box.UUID, ItemType: itemType, Stack: stack}
	})
	box.Slots[slotIdx] = item.UUID
	return store.Apply(ctx, d.store, []store.ChangeOp{
		store.Insert[model.Item](d.store, item.UUID, item),
		store.Update[model.ItemBox](d.store, box.UUID, box),
	})
}

func (d *Dispatcher) handleAddRemoveStatus(ctx context.Context, actx *Context, params map[string]string) error {
	statusID, err := atoi32(params, "status_id")
	if err != nil {
		return err
	}
	add := params["mode"] != "remove"
	rec := store.NewRecord(d.store, true, func(id model.UUID) *model.StatusEffect {
		return &model.StatusEffect{UUID: id, TargetID: actx.CharacterID, EffectID: statusID}
	})
	if !add {
		store.Unload[model.StatusEffect](d.store, rec.UUID)
		return nil
	}
	return store.Apply(ctx, d.store, []store.ChangeOp{store.Insert[model.StatusEffect](d.store, rec.UUID, rec)})
}

// handleUpdateComp runs UPDATE_COMP (spec.md §4.H): grows the
// character's COMP by add_slots up to model.CompMaxCapacity, removes the
// demons named in "remove" (rejecting the whole operation if any is
// locked), and contracts a new demon of demon_type into a freed slot, if
// given. Every precondition is checked before any mutation is applied.
func (d *Dispatcher) handleUpdateComp(ctx context.Context, actx *Context, params map[string]string) error {
	addSlots, _, err := atoi32Opt(params, "add_slots")
	if err != nil {
		return fmt.Errorf("action: UPDATE_COMP: %w", err)
	}
	removeIDs, err := parseUUIDList(params["remove"])
	if err != nil {
		return fmt.Errorf("action: UPDATE_COMP: %w", err)
	}
	demonType, wantsContract, err := atoi32Opt(params, "demon_type")
	if err != nil {
		return fmt.Errorf("action: UPDATE_COMP: %w", err)
	}

	char, err := store.Load[model.Character](ctx, d.store, actx.CharacterID, false)
	if err != nil {
		return fmt.Errorf("action: UPDATE_COMP: loading character: %w", err)
	}
	box, err := store.Load[model.DemonBox](ctx, d.store, char.CompID, false)
	if err != nil {
		return fmt.Errorf("action: UPDATE_COMP: loading COMP: %w", err)
	}
	if box.Capacity+addSlots > model.CompMaxCapacity {
		return fmt.Errorf("action: UPDATE_COMP: capacity %d + %d exceeds max %d", box.Capacity, addSlots, model.CompMaxCapacity)
	}
	// Work on a copy so a failed check below leaves the cached COMP as it was.
	boxCopy := *box
	boxCopy.Slots = append([]model.UUID(nil), box.Slots...)
	box = &boxCopy

	removed := make(map[model.UUID]*model.Demon, len(removeIDs))
	for _, id := range removeIDs {
		demon, err := store.Load[model.Demon](ctx, d.store, id, false)
		if err != nil {
			return fmt.Errorf("action: UPDATE_COMP: loading demon %s: %w", id, err)
		}
		if demon.BoxID != box.UUID {
			return fmt.Errorf("action: UPDATE_COMP: demon %s is not in this COMP", id)
		}
		if demon.Locked {
			return fmt.Errorf("action: UPDATE_COMP: demon %s is locked", id)
		}
		removed[id] = demon
	}

	ops := make([]store.ChangeOp, 0, len(removed)+2)
	for i, slot := range box.Slots {
		if _, ok := removed[slot]; ok {
			ops = append(ops, store.Delete[model.Demon](d.store, slot))
			box.Slots[i] = model.NilUUID
		}
	}
	if addSlots > 0 {
		box.Capacity += addSlots
		box.Slots = append(box.Slots, make([]model.UUID, addSlots)...)
	}

	if wantsContract {
		slotIdx := -1
		for i, id := range box.Slots {
			if id == model.NilUUID {
				slotIdx = i
				break
			}
		}
		if slotIdx < 0 {
			return fmt.Errorf("action: UPDATE_COMP: no free slot for new contract")
		}
		demon := store.NewRecord(d.store, true, func(id model.UUID) *model.Demon {
			return &model.Demon{UUID: id, BoxID: box.UUID, DevilID: demonType}
		})
		box.Slots[slotIdx] = demon.UUID
		ops = append(ops, store.Insert[model.Demon](d.store, demon.UUID, demon))
	}

	ops = append(ops, store.Update[model.DemonBox](d.store, box.UUID, box))
	return store.Apply(ctx, d.store, ops)
}

func (d *Dispatcher) handleGrantSkills(ctx context.Context, actx *Context, params map[string]string) error {
	skillID, err := atoi32(params, "skill_id")
	if err != nil {
		return err
	}
	char, err := store.Load[model.Character](ctx, d.store, actx.CharacterID, false)
	if err != nil {
		return fmt.Errorf("action: GRANT_SKILLS: loading character: %w", err)
	}
	progress, err := store.Load[model.CharacterProgress](ctx, d.store, char.ProgressID, false)
	if err != nil {
		return fmt.Errorf("action: GRANT_SKILLS: loading progress: %w", err)
	}
	for _, id := range progress.LearnedSkillIDs {
		if id == skillID {
			return nil
		}
	}
	progress.LearnedSkillIDs = append(progress.LearnedSkillIDs, skillID)
	return store.Apply(ctx, d.store, []store.ChangeOp{store.Update[model.CharacterProgress](d.store, progress.UUID, progress)})
}

// lootCreatedNotification is broadcast when CREATE_LOOT places a new
// loot box, so connected clients can render it without a full reload.
type lootCreatedNotification struct {
	UUID      model.UUID
	Pos       model.Position
	ItemTypes []int32
	Counts    []int32
}

// handleCreateLoot runs CREATE_LOOT (spec.md §4.H): drops a LootBox
// carrying item_type/count at an absolute (x, y, rot) position, or at an
// offset (dx, dy, drot) from the acting character's current position
// when no absolute position is given. With expiration_sec > 0, schedules
// the box's removal via zone.Manager.ScheduleEntityRemoval.
func (d *Dispatcher) handleCreateLoot(_ context.Context, actx *Context, params map[string]string) error {
	itemType, err := atoi32(params, "item_type")
	if err != nil {
		return err
	}
	count, err := atoi32(params, "count")
	if err != nil {
		return err
	}

	pos, err := d.resolveLootPosition(actx, params)
	if err != nil {
		return fmt.Errorf("action: CREATE_LOOT: %w", err)
	}

	loot := store.NewRecord(d.store, false, func(id model.UUID) *model.LootBox {
		return &model.LootBox{
			UUID:      id,
			ZoneDefID: zoneDefIDOf(actx.Zone),
			DynMapID:  actx.Zone.DynamicMapID,
			Pos:       pos,
			ItemTypes: []int32{itemType},
			Counts:    []int32{count},
		}
	})

	actx.Zone.AddEntity(loot.UUID)
	actx.Zone.UpdatePosition(loot.UUID, pos)
	actx.Zone.Broadcast(lootCreatedNotification{UUID: loot.UUID, Pos: pos, ItemTypes: loot.ItemTypes, Counts: loot.Counts})

	expirationSec, hasExpiration, err := atoi32Opt(params, "expiration_sec")
	if err != nil {
		return fmt.Errorf("action: CREATE_LOOT: %w", err)
	}
	if hasExpiration && expirationSec > 0 {
		d.zones.ScheduleEntityRemoval(time.Now().Add(time.Duration(expirationSec)*time.Second), actx.Zone, []model.UUID{loot.UUID})
	}
	return nil
}

// resolveLootPosition computes CREATE_LOOT's drop position: absolute
// (x, y, rot) params when given, otherwise the acting character's
// current position offset by (dx, dy, drot).
func (d *Dispatcher) resolveLootPosition(actx *Context, params map[string]string) (model.Position, error) {
	if _, ok := params["x"]; ok {
		x, err := atof32(params, "x")
		if err != nil {
			return model.Position{}, err
		}
		y, err := atof32(params, "y")
		if err != nil {
			return model.Position{}, err
		}
		rot, _ := atof32(params, "rot")
		return model.Position{X: x, Y: y, Rot: rot}, nil
	}

	base, ok := actx.Zone.PositionOf(actx.CharacterID)
	if !ok {
		return model.Position{}, fmt.Errorf("no source position for character %s", actx.CharacterID)
	}
	dx, _ := atof32(params, "dx")
	dy, _ := atof32(params, "dy")
	drot, _ := atof32(params, "drot")
	return model.Position{X: base.X + dx, Y: base.Y + dy, Rot: base.Rot + drot}, nil
}

func (d *Dispatcher) handleGrantXP(ctx context.Context, actx *Context, params map[string]string) error {
	amount, err := atoi32(params, "amount")
	if err != nil {
		return err
	}
	char, err := store.Load[model.Character](ctx, d.store, actx.CharacterID, false)
	if err != nil {
		return fmt.Errorf("action: GRANT_XP: loading character: %w", err)
	}
	progress, err := store.Load[model.CharacterProgress](ctx, d.store, char.ProgressID, false)
	if err != nil {
		return fmt.Errorf("action: GRANT_XP: loading progress: %w", err)
	}
	progress.XP += int64(amount)
	return store.Apply(ctx, d.store, []store.ChangeOp{store.Update[model.CharacterProgress](d.store, progress.UUID, progress)})
}

// handleUpdateQuest runs UPDATE_QUEST, delegating the phase transition
// itself to event.QuestEngine so the completion/kill-count bookkeeping
// stays in one place (spec.md §4.H, §3 quest phase sentinels).
func (d *Dispatcher) handleUpdateQuest(ctx context.Context, actx *Context, params map[string]string) error {
	if d.quests == nil {
		return fmt.Errorf("action: UPDATE_QUEST: no quest engine configured")
	}
	questID, err := atoi32(params, "quest_id")
	if err != nil {
		return err
	}
	phase, err := atoi32(params, "phase")
	if err != nil {
		return err
	}
	char, err := store.Load[model.Character](ctx, d.store, actx.CharacterID, false)
	if err != nil {
		return fmt.Errorf("action: UPDATE_QUEST: loading character: %w", err)
	}
	progress, err := store.Load[model.CharacterProgress](ctx, d.store, char.ProgressID, false)
	if err != nil {
		return fmt.Errorf("action: UPDATE_QUEST: loading progress: %w", err)
	}
	return d.quests.UpdateQuest(ctx, char, progress, questID, phase)
}

func zoneDefIDOf(z *zone.Zone) int32 {
	if z == nil {
		return 0
	}
	return z.DefinitionID
}
