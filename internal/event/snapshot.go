package event

import "github.com/imagine-project/channelserver/internal/model"

// CharacterSnapshot is the read-only view of character state condition
// evaluation and action application run against. It wraps
// model.CharacterState plus the counters/lookups conditions need,
// without importing internal/session (kept narrow and one-directional:
// event depends on model, never on session or zone).
type CharacterSnapshot struct {
	WorldCID           int64
	Level              int32
	LNC                int32
	LNCType            int32
	Gender             int32
	FactionGroup       int32
	ExpertiseClass     int32
	InventoryFreeSlots int32
	PartySize          int32
	TeamSize           int32
	TeamCategory        int32
	TeamType            int32
	PentalphaTeam       int32
	IsTeamLeader        bool
	PartnerAlive        bool
	PartnerZoneID       int32
	HasSummonedDemon    bool
	InClanHome          bool
	HasInstanceAccess   bool

	state *model.CharacterState

	items       map[int32]int64
	materials   map[int32]int64
	equipped    map[int32]bool
	skills      map[int32]bool
	statuses    map[int32]bool
	quests      map[int32]*questSnapshot
	demonRaces  map[int32]bool
	expertise   map[int32]int64
	stats       map[int32]int64
	eventCounts map[int32]int64
}

type questSnapshot struct {
	Phase     int32
	Completed bool
}

// NewCharacterSnapshot builds a snapshot from persisted state. Maps may
// be nil; lookups on a nil map degrade to "not present" rather than
// panicking.
func NewCharacterSnapshot(state *model.CharacterState) *CharacterSnapshot {
	return &CharacterSnapshot{state: state}
}

func (c *CharacterSnapshot) ItemCount(itemType int32) int64 { return c.items[itemType] }
func (c *CharacterSnapshot) MaterialCount(matType int32) int64 { return c.materials[matType] }
func (c *CharacterSnapshot) HasEquipped(itemType int32) bool   { return c.equipped[itemType] }
func (c *CharacterSnapshot) HasSkill(skillID int32) bool       { return c.skills[skillID] }
func (c *CharacterSnapshot) HasStatus(statusID int32) bool     { return c.statuses[statusID] }
func (c *CharacterSnapshot) HasDemonOfRace(race int32) bool    { return c.demonRaces[race] }
func (c *CharacterSnapshot) ExpertisePoints(id int32) int64    { return c.expertise[id] }
func (c *CharacterSnapshot) StatValue(id int32) int64          { return c.stats[id] }
func (c *CharacterSnapshot) EventCounter(id int32) int64       { return c.eventCounts[id] }
func (c *CharacterSnapshot) CompFreeSlots() int32              { return 0 }

func (c *CharacterSnapshot) Counter(name string) int64 {
	if c.state == nil || c.state.Counters == nil {
		return 0
	}
	return c.state.Counters[name]
}

func (c *CharacterSnapshot) HasActiveQuest(questID int32) bool {
	q, ok := c.quests[questID]
	return ok && !q.Completed
}

func (c *CharacterSnapshot) HasCompletedQuest(questID int32) bool {
	q, ok := c.quests[questID]
	return ok && q.Completed
}

func (c *CharacterSnapshot) QuestPhase(questID int32) int32 {
	q, ok := c.quests[questID]
	if !ok {
		return questPhaseNotStarted
	}
	return q.Phase
}

func (c *CharacterSnapshot) ActiveQuestCount() int32 {
	var n int32
	for _, q := range c.quests {
		if !q.Completed {
			n++
		}
	}
	return n
}

// WithItems, WithQuests etc. let callers populate lookup maps without
// exporting mutable fields directly; used by the runtime when it
// hydrates a snapshot from store-loaded records.
func (c *CharacterSnapshot) WithItems(m map[int32]int64) *CharacterSnapshot       { c.items = m; return c }
func (c *CharacterSnapshot) WithMaterials(m map[int32]int64) *CharacterSnapshot   { c.materials = m; return c }
func (c *CharacterSnapshot) WithEquipped(m map[int32]bool) *CharacterSnapshot     { c.equipped = m; return c }
func (c *CharacterSnapshot) WithSkills(m map[int32]bool) *CharacterSnapshot       { c.skills = m; return c }
func (c *CharacterSnapshot) WithStatuses(m map[int32]bool) *CharacterSnapshot     { c.statuses = m; return c }
func (c *CharacterSnapshot) WithDemonRaces(m map[int32]bool) *CharacterSnapshot   { c.demonRaces = m; return c }
func (c *CharacterSnapshot) WithExpertise(m map[int32]int64) *CharacterSnapshot   { c.expertise = m; return c }
func (c *CharacterSnapshot) WithStats(m map[int32]int64) *CharacterSnapshot       { c.stats = m; return c }
func (c *CharacterSnapshot) WithEventCounters(m map[int32]int64) *CharacterSnapshot {
	c.eventCounts = m
	return c
}
func (c *CharacterSnapshot) WithQuests(m map[int32]*questSnapshot) *CharacterSnapshot {
	c.quests = m
	return c
}

// ZoneSnapshot is the read-only view of zone state conditions consult.
type ZoneSnapshot struct {
	DefinitionID int32
	DynamicMapID int32

	flags         map[flagScope]int32
	instanceFlags map[flagScope]int32
	npcStates     map[int32]int32
	worldCounters map[int32]int64
}

type flagScope struct {
	cid  int64
	name string
}

func NewZoneSnapshot(defID, dynMapID int32) *ZoneSnapshot {
	return &ZoneSnapshot{DefinitionID: defID, DynamicMapID: dynMapID}
}

func (z *ZoneSnapshot) Flag(cid int64, name string) int32 {
	return z.flags[flagScope{cid, name}]
}

func (z *ZoneSnapshot) InstanceFlag(cid int64, name string) int32 {
	return z.instanceFlags[flagScope{cid, name}]
}

func (z *ZoneSnapshot) NPCState(npcID int32) int32   { return z.npcStates[npcID] }
func (z *ZoneSnapshot) WorldCounter(id int32) int64  { return z.worldCounters[id] }

func (z *ZoneSnapshot) SetFlag(cid int64, name string, value int32) {
	if z.flags == nil {
		z.flags = make(map[flagScope]int32)
	}
	z.flags[flagScope{cid, name}] = value
}

func (z *ZoneSnapshot) SetInstanceFlag(cid int64, name string, value int32) {
	if z.instanceFlags == nil {
		z.instanceFlags = make(map[flagScope]int32)
	}
	z.instanceFlags[flagScope{cid, name}] = value
}

// Clock abstracts current time and moon phase for the timespan/
// timespan-week/timespan-datetime/moon-phase conditions, so tests can
// inject a fixed instant instead of depending on wall-clock time.
type Clock interface {
	// Minute returns minutes since midnight local time (0-1439).
	Minute() int32
	// Weekday returns 0=Sunday..6=Saturday.
	Weekday() int32
	// UnixMinute returns an absolute minute counter for datetime-range
	// comparisons.
	UnixMinute() int64
	// MoonPhase returns 0-27 in spec.md's demon-summon lunar cycle.
	MoonPhase() int32
}
