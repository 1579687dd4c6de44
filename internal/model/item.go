package model

// ItemBox is a slot-indexed container (inventory, material tank, post box).
// Invariant 6 (spec.md §3): inventory boxes carry at most 50 slots.
type ItemBox struct {
	UUID        UUID
	CharacterID UUID
	BoxType     ItemBoxType
	Slots       []UUID // len == capacity; NilUUID marks an empty slot
}

// ItemBoxType distinguishes the container kinds ADD_REMOVE_ITEMS modes
// address (spec.md §4.H).
type ItemBoxType int32

const (
	ItemBoxInventory ItemBoxType = iota
	ItemBoxMaterialTank
	ItemBoxPost
	ItemBoxTimeTrialReward
)

const InventoryMaxSlots = 50

// Item is a single stack of a game-content item type.
type Item struct {
	UUID      UUID
	ItemBoxID UUID // back-pointer; used to recover orphans (invariant 2)
	ItemType  int32
	Stack     int32
	ModSlots  []int32 // enchant/mod slot contents
	Bound     bool
}

// ItemCategory is the (main, sub) material-tank category pair recorded on
// an item type.
type ItemCategory struct {
	Main int32
	Sub  int32
}

// LootBox is a transient, unowned item container CREATE_LOOT places in
// a zone (spec.md §4.H): an entity any character in range can open and
// drain. ScheduleEntityRemoval handles its expiration.
type LootBox struct {
	UUID      UUID
	ZoneDefID int32
	DynMapID  int32
	Pos       Position
	ItemTypes []int32
	Counts    []int32
}

// DestinyBox holds the per-player reward items accumulated during one
// ZoneInstance run, drained on instance completion. Supplemental type
// (not in spec.md's persisted-type list; spec.md §3 names it as a
// ZoneInstance-owned collection without detailing its contents).
type DestinyBox struct {
	CharacterID UUID
	ItemTypes   []int32
	Counts      []int32
}
