package model

// DemonBox is a character's COMP (capacity up to 10, spec.md GLOSSARY).
type DemonBox struct {
	UUID        UUID
	CharacterID UUID
	Capacity    int32
	Slots       []UUID // len == Capacity; NilUUID marks an empty slot
}

const CompDefaultCapacity = 10
const CompMaxCapacity = 10

// Demon is a single contracted demon.
type Demon struct {
	UUID         UUID
	BoxID        UUID
	DevilID      int32
	Level        int32
	Locked       bool
	Familiarity  int32
	EquipmentIDs []UUID
	StatusIDs    []UUID
	InheritedIDs []UUID
}
