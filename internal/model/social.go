package model

// Clan is a cross-channel social record synchronized through the world
// server (spec.md §4.D).
type Clan struct {
	UUID      UUID
	Name      string
	LeaderID  UUID
	MemberIDs []UUID
	HomeZone  int32
}

// Party is a temporary grouping of characters for shared loot/XP.
type Party struct {
	UUID      UUID
	LeaderID  UUID
	MemberIDs []UUID
	LootRule  int32
}

// Team is a larger grouping used by PvP/faction content (PENTALPHA_TEAM,
// TEAM_* conditions).
type Team struct {
	UUID      UUID
	Category  int32
	Type      int32
	LeaderID  UUID
	MemberIDs []UUID
}

// Match is a scheduled or in-progress PvP/event match.
type Match struct {
	UUID      UUID
	Type      int32
	State     int32
	EntryIDs  []UUID
	StartedAt int64
}

// MatchEntry is one participant's registration within a Match.
type MatchEntry struct {
	UUID          UUID
	MatchID       UUID
	CharacterID   UUID
	Result        int32
}

// PvPMatch is a one-off PvP record synchronized independently of the
// generic Match/MatchEntry pair (kept separate to match the SyncManager's
// minimum record set, spec.md §4.D).
type PvPMatch struct {
	UUID      UUID
	ChallengerID UUID
	DefenderID   UUID
	WinnerID     UUID
}

// PentalphaEntry tracks one character's standing within the Pentalpha
// faction competition.
type PentalphaEntry struct {
	UUID        UUID
	CharacterID UUID
	TeamID      int32
	Points      int32
}

// PentalphaMatch is a faction-wide Pentalpha match window. EndTime == 0
// means the match is active (spec.md §4.D "set active" rule).
type PentalphaMatch struct {
	UUID    UUID
	TeamID  int32
	EndTime int64
}

// UBTournament is an Ultimate Battle tournament window, with the same
// EndTime == 0 "active" convention as PentalphaMatch.
type UBTournament struct {
	UUID    UUID
	Name    string
	EndTime int64
}

// UBResult is one character's placement in a finished UBTournament.
type UBResult struct {
	UUID           UUID
	TournamentID   UUID
	CharacterID    UUID
	Rank           int32
	Points         int32
}

// SearchEntry is a recruit/search-board listing. Type encodes one of the
// 14 SearchEntryType variants defined below (party join/recruit, clan
// join/recruit, trade sell/buy and free recruit, each with an
// application mirror).
type SearchEntry struct {
	UUID        UUID
	Type        SearchEntryType
	SourceID    UUID // character who posted it
	ParentID    UUID // for application sub-types, the entry being applied to
	EntryID     int64
	Payload     map[string]string
}

// SearchEntryType is one of the 14 search-board variants. Odd values are
// the "application" mirror of the preceding even value (spec.md §4.D).
type SearchEntryType int32

const (
	SearchPartyJoin SearchEntryType = iota
	SearchPartyJoinApplication
	SearchPartyRecruit
	SearchPartyRecruitApplication
	SearchClanJoin
	SearchClanJoinApplication
	SearchClanRecruit
	SearchClanRecruitApplication
	SearchTradeSell
	SearchTradeSellApplication
	SearchTradeBuy
	SearchTradeBuyApplication
	SearchFreeRecruit
	SearchFreeRecruitApplication
)

// IsApplication reports whether t is the "application" mirror of a parent
// search-entry type (odd enum values, per spec.md §4.D).
func (t SearchEntryType) IsApplication() bool {
	return t%2 == 1
}
