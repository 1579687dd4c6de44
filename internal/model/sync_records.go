package model

import "time"

// InstanceAccess grants a character entry to a ZoneInstance. A record with
// InstanceID == 0 on the local channel is a creation request (spec.md
// §4.D "InstanceAccess").
type InstanceAccess struct {
	UUID        UUID
	CharacterID UUID
	InstanceID  int32
	DefID       int32
	VariantID   int32
	TimerID     int32
	ExpireEventID int32
}

// StatusEffect is a persistent buff/debuff applied to a character or
// demon. Persisted by a dedicated path separate from LogoutCharacter's
// change-set (spec.md §4.F "Logout").
type StatusEffect struct {
	UUID       UUID
	TargetID   UUID // character or demon UUID
	EffectID   int32
	Stack      int32
	Duration   time.Duration
	AppliedAt  time.Time
}

// ChannelLogin captures everything a channel-switch hand-off needs to
// resume on the target channel (spec.md §3 "Lifecycle").
type ChannelLogin struct {
	UUID             UUID
	AccountID        UUID
	CharacterID      UUID
	WorldCID         int64
	TargetChannelID  int32
	TargetZoneID     int32
	TargetDynMapID   int32
	SwitchSkills     []int32
	DigitalizeDemon  UUID // NilUUID when none
	PendingEvent     *ChannelLoginEvent
}

// ChannelLoginEvent is the serialized paused EventInstance carried across
// a channel hand-off (spec.md §4.F "Channel switch").
type ChannelLoginEvent struct {
	EventID          int32
	SourceEntityID    int64
	ActionGroupID     int32
	ActionIndex       int32 // resume point inside a PERFORM_ACTIONS block
	DisabledChoices   []int32
}

// CharacterLogin is the world server's cross-channel record of which
// channel currently holds an account's active login (spec.md §4.D
// "CharacterLogin: bulk updates are routed to AccountManager.update_
// logins", §3 invariant 1 "exactly one active login per account across
// all channels; cross-channel uniqueness is enforced via the world
// server"). Distinct from ChannelLogin, which carries one character's
// paused hand-off state across a single channel switch: CharacterLogin
// is the world's broadcast ledger of who is logged in where, delivered
// to every channel so each can detect and drop a now-stale local
// session for the same account.
type CharacterLogin struct {
	UUID        UUID
	AccountID   UUID
	CharacterID UUID
	ChannelID   int32
	WorldCID    int64
	LoggedIn    bool
}
