package model

// CharacterState is the transient runtime mirror of a Character: computed
// stats, current position, and active status effects. Held by the owning
// Session and referenced (by UUID) from the Zone the character currently
// occupies (spec.md §3 "Session state").
type CharacterState struct {
	CharacterID UUID
	WorldCID    int64
	ZoneID      int32
	DynMapID    int32
	Pos         Position
	InstanceID  int32 // 0 when not inside an instance

	Level     int32
	MaxHP     int32
	CurrentHP int32
	MaxMP     int32
	CurrentMP int32

	ActiveStatusEffects []UUID
	ActiveSkillIDs      []int32

	Gender       int32
	LNC          int32
	LNCType      int32
	FactionGroup int32

	// Counters holds miscellaneous named numeric state read by the
	// condition evaluator (cowrie, ziotite, event counters, and similar
	// single-value character stats that don't warrant their own field).
	Counters map[string]int64
}

// DemonState is the transient runtime mirror of a summoned Demon.
type DemonState struct {
	DemonID  UUID
	OwnerID  UUID // owning character
	Pos      Position
	Level    int32
	MaxHP    int32
	CurrentHP int32

	ActiveStatusEffects []UUID
}
