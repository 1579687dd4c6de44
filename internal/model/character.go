package model

import "time"

// Character is the Store-owned persistent record for a playable character.
// CharacterState (see state.go) is the transient runtime mirror a session
// computes from this record plus Definitions lookups.
type Character struct {
	UUID      UUID
	AccountID UUID
	Name      string
	LNC       int32 // law/neutral/chaos alignment value
	Gender    int32
	RaceID    int32

	ProgressID       UUID
	FriendSettingsID UUID
	CultureDataID    UUID
	DemonQuestID     UUID // NilUUID when none active
	ClanID           UUID // NilUUID when not in a clan
	CompID           UUID // demon box (COMP)
	WorldDemonBoxID  UUID

	ItemBoxIDs    []UUID
	ExpertiseIDs  []UUID
	HotbarIDs     []UUID
	InheritedIDs  []UUID
	QuestIDs      []UUID // active (in-progress) quest records
	EventCounters []UUID

	// Homepoint / logout position, restored verbatim by a channel-switch
	// followed by a non-delay logout (invariant 5, spec.md §8).
	HomepointZoneID int32
	Homepoint       Position

	LogoutZoneID int32
	LogoutDynMap int32
	LogoutPos    Position

	LastLogoutAt time.Time
}

// CharacterProgress tracks level, XP, and the completed-quest bitmask.
type CharacterProgress struct {
	UUID            UUID
	CharacterID     UUID
	Level           int32
	XP              int64
	CompletedQuests map[int32]bool // bit per quest id, set at phase -1
	LearnedSkillIDs []int32
}

// HasCompleted reports whether quest id's completion bit is set.
func (p *CharacterProgress) HasCompleted(questID int32) bool {
	if p.CompletedQuests == nil {
		return false
	}
	return p.CompletedQuests[questID]
}

// SetCompleted sets or clears the completion bit for questID.
func (p *CharacterProgress) SetCompleted(questID int32, v bool) {
	if p.CompletedQuests == nil {
		p.CompletedQuests = make(map[int32]bool)
	}
	if v {
		p.CompletedQuests[questID] = true
	} else {
		delete(p.CompletedQuests, questID)
	}
}

// FriendSettings is the friends-list / privacy record for a character.
type FriendSettings struct {
	UUID        UUID
	CharacterID UUID
	FriendIDs   []UUID
	Blocked     []UUID
}

// CultureData is miscellaneous cosmetic/customization state, persisted
// verbatim but not otherwise interpreted by core gameplay systems.
type CultureData struct {
	UUID        UUID
	CharacterID UUID
	Values      map[string]int32
}

// Hotbar is a character's action-bar slot layout.
type Hotbar struct {
	UUID        UUID
	CharacterID UUID
	Index       int32
	Slots       []HotbarSlot
}

// HotbarSlot is a single assignable action-bar entry.
type HotbarSlot struct {
	SlotType int32 // item, skill, expertise, etc.
	ObjectID int32
}

// Expertise is a per-character crafting/expertise level record.
type Expertise struct {
	UUID        UUID
	CharacterID UUID
	ExpertiseID int32
	Points      int32
}

// InheritedSkill is a skill a character's demon has passed down.
type InheritedSkill struct {
	UUID        UUID
	CharacterID UUID
	SkillID     int32
	Level       int32
}

// BazaarData is the root record for a character's player-shop listing.
type BazaarData struct {
	UUID        UUID
	CharacterID UUID
	Items       []UUID // BazaarItem UUIDs
}

// BazaarItem is a single listed item inside a BazaarData.
type BazaarItem struct {
	UUID      UUID
	BazaarID  UUID
	ItemID    UUID
	Price     int64
	MaxStock  int32
	SoldCount int32
}
