// Package event implements the event-graph interpreter, condition
// evaluator and quest engine (spec.md §4.G EventRuntime). Grounded on
// la2go's internal/game/quest (Manager/Quest/QuestState trio) for the
// quest-engine half and internal/html (DialogManager) for the
// dialog/menu half, generalized to the full event type set and
// condition language of spec.md.
package event

// ConditionType enumerates the predicate language spec.md §4.G lists
// under "Condition evaluation".
type ConditionType int32

const (
	CondScript ConditionType = iota
	CondZoneFlags
	CondZoneCharacterFlags
	CondZoneInstanceFlags
	CondZoneInstanceCharacterFlags
	CondPartnerAlive
	CondPartnerZone
	CondQuestActive
	CondQuestComplete
	CondQuestSequence
	CondQuestsActive
	CondLevel
	CondLNCType
	CondLNC
	CondItem
	CondValuable
	CondTimespan
	CondTimespanWeek
	CondTimespanDatetime
	CondMoonPhase
	CondMap
	CondExpertiseActive
	CondExpertiseClass
	CondSIEquipped
	CondSummoned
	CondBethel
	CondClanHome
	CondCompDemon
	CondCompFree
	CondCowrie
	CondDemonBook
	CondDestinyBox
	CondDiasporaBase
	CondEquipped
	CondEventCounter
	CondEventWorldCounter
	CondFactionGroup
	CondGender
	CondInstanceAccess
	CondInventoryFree
	CondMaterial
	CondNPCState
	CondPartySize
	CondPentalphaTeam
	CondPlugin
	CondSkillLearned
	CondStatValue
	CondStatusActive
	CondTeamCategory
	CondTeamLeader
	CondTeamSize
	CondTeamType
	CondZiotiteLarge
	CondZiotiteSmall
)

// CompareMode is the comparison applied between a condition's value1
// and the runtime-observed value (spec.md §4.G).
type CompareMode int32

const (
	CompareDefault CompareMode = iota
	CompareEqual
	CompareLT
	CompareGTE
	CompareBetween
	CompareExists
	CompareLTOrNaN
)

// Condition is one predicate in an event's entry-condition list or a
// branch's choice-condition list (spec.md §4.G).
type Condition struct {
	Type    ConditionType `yaml:"type"`
	Value1  int64         `yaml:"value1"`
	Value2  int64         `yaml:"value2"`
	Compare CompareMode   `yaml:"compare"`
	Negate  bool          `yaml:"negate"`
}

// defaultCompareMode returns the compare mode a condition type uses
// when Compare == CompareDefault, per spec.md §4.G "Each condition type
// specifies a default compare-mode and validates its configured mode".
func defaultCompareMode(t ConditionType) CompareMode {
	switch {
	case t == CondScript || isExistsType(t):
		return CompareExists
	case isGTEType(t):
		return CompareGTE
	case t == CondTimespan || t == CondTimespanWeek || t == CondTimespanDatetime:
		return CompareBetween
	default:
		return CompareEqual
	}
}

// isExistsType reports the condition types whose natural check is a
// boolean presence test rather than a numeric comparison.
func isExistsType(t ConditionType) bool {
	switch t {
	case CondQuestComplete, CondQuestActive, CondSIEquipped, CondSummoned, CondClanHome,
		CondCompFree, CondDemonBook, CondDestinyBox, CondDiasporaBase, CondEquipped,
		CondInstanceAccess, CondSkillLearned, CondStatusActive, CondTeamLeader, CondPlugin:
		return true
	default:
		return false
	}
}

func isGTEType(t ConditionType) bool {
	switch t {
	case CondLevel, CondLNC, CondStatValue, CondPartySize, CondTeamSize, CondCowrie, CondZiotiteLarge, CondZiotiteSmall, CondItem:
		return true
	default:
		return false
	}
}

// numericCompareSupportsBetween reports whether t's compare-mode set is
// the extended {EQ,LT,GTE,BETWEEN} rather than the base {EQ,LT,GTE}
// (spec.md §4.G "Numeric comparisons support two sets").
func numericCompareSupportsBetween(t ConditionType) bool {
	switch t {
	case CondTimespan, CondTimespanWeek, CondTimespanDatetime, CondLevel, CondStatValue:
		return true
	default:
		return false
	}
}

// ValidateCompare rejects a condition whose Compare mode isn't legal
// for its Type (spec.md §4.G "validates its configured mode").
func (c Condition) ValidateCompare() bool {
	if c.Compare == CompareDefault {
		return true
	}
	if c.Compare == CompareBetween && !numericCompareSupportsBetween(c.Type) {
		return false
	}
	return true
}

// compareNumeric applies mode to (observed, value1, value2).
func compareNumeric(mode CompareMode, observed, value1, value2 int64) bool {
	switch mode {
	case CompareEqual:
		return observed == value1
	case CompareLT:
		return observed < value1
	case CompareGTE:
		return observed >= value1
	case CompareBetween:
		return observed >= value1 && observed <= value2
	case CompareLTOrNaN:
		return observed < value1
	case CompareExists:
		return observed != 0
	default:
		return observed == value1
	}
}

// Evaluate runs c against ctx, applying Negate last (spec.md §4.G "a
// negate flag"). Unknown/unsupported condition types are treated as
// failing closed (return false) rather than panicking, since content
// data occasionally references conditions this build doesn't model.
func Evaluate(c Condition, ctx *EvalContext) bool {
	mode := c.Compare
	if mode == CompareDefault {
		mode = defaultCompareMode(c.Type)
	}

	result := evaluateRaw(c, mode, ctx)
	if c.Negate {
		return !result
	}
	return result
}

// EvalContext is the read-only snapshot condition evaluation runs
// against: the active character/demon state, current zone, and a
// pluggable ScriptHost for SCRIPT conditions (spec.md §9 "Scripts
// receive immutable snapshots of the active entities plus the current
// zone; they never mutate state directly").
type EvalContext struct {
	Character *CharacterSnapshot
	Zone      *ZoneSnapshot
	Scripts   ScriptHost
	Clock     Clock
}

// ScriptHost is the pluggable embedded-scripting interface (spec.md §9).
// A no-op implementation satisfies core tests; the concrete gopher-lua
// backed implementation lives in internal/scripthost.
type ScriptHost interface {
	EvalCondition(id string, params map[string]string, ctx *EvalContext) (bool, bool) // (result, ok)
	EvalBranch(id string, params map[string]string, ctx *EvalContext) (int, bool)     // (branchIndex, ok)
	EvalTransform(id string, params map[string]string, ctx *EvalContext) bool         // ok
}

func evaluateRaw(c Condition, mode CompareMode, ctx *EvalContext) bool {
	if ctx == nil || ctx.Character == nil {
		return false
	}
	ch := ctx.Character

	switch c.Type {
	case CondScript:
		if ctx.Scripts == nil {
			return false
		}
		result, ok := ctx.Scripts.EvalCondition(scriptIDFromValue(c.Value1), nil, ctx)
		return ok && result
	case CondLevel:
		return compareNumeric(mode, int64(ch.Level), c.Value1, c.Value2)
	case CondLNC:
		return compareNumeric(mode, int64(ch.LNC), c.Value1, c.Value2)
	case CondLNCType:
		return int64(ch.LNCType) == c.Value1
	case CondGender:
		return int64(ch.Gender) == c.Value1
	case CondFactionGroup:
		return int64(ch.FactionGroup) == c.Value1
	case CondItem:
		return compareNumeric(mode, ch.ItemCount(int32(c.Value1)), c.Value2, 0)
	case CondValuable:
		return compareNumeric(mode, ch.Counter("valuable"), c.Value1, c.Value2)
	case CondQuestComplete:
		return ch.HasCompletedQuest(int32(c.Value1))
	case CondQuestActive:
		return ch.HasActiveQuest(int32(c.Value1))
	case CondQuestSequence:
		return compareNumeric(mode, int64(ch.QuestPhase(int32(c.Value1))), c.Value2, 0)
	case CondQuestsActive:
		return compareNumeric(mode, int64(ch.ActiveQuestCount()), c.Value1, c.Value2)
	case CondSkillLearned:
		return ch.HasSkill(int32(c.Value1))
	case CondStatusActive:
		return ch.HasStatus(int32(c.Value1))
	case CondEquipped:
		return ch.HasEquipped(int32(c.Value1))
	case CondSIEquipped:
		return ch.HasEquipped(int32(c.Value1)) // soul-infused equip check reuses the equipped-slot lookup
	case CondSummoned:
		return ch.HasSummonedDemon
	case CondCompDemon:
		return ch.HasDemonOfRace(int32(c.Value1))
	case CondCompFree:
		return ch.CompFreeSlots() > 0
	case CondCowrie:
		return compareNumeric(mode, ch.Counter("cowrie"), c.Value1, c.Value2)
	case CondZiotiteLarge:
		return compareNumeric(mode, ch.Counter("ziotite_large"), c.Value1, c.Value2)
	case CondZiotiteSmall:
		return compareNumeric(mode, ch.Counter("ziotite_small"), c.Value1, c.Value2)
	case CondDemonBook:
		return ch.Counter("demon_book_entries") > 0
	case CondDestinyBox:
		return ch.Counter("destiny_box_items") > 0
	case CondDiasporaBase:
		return int64(ch.Counter("diaspora_base")) == c.Value1
	case CondEventCounter:
		return compareNumeric(mode, ch.EventCounter(int32(c.Value1)), c.Value2, 0)
	case CondEventWorldCounter:
		if ctx.Zone == nil {
			return false
		}
		return compareNumeric(mode, ctx.Zone.WorldCounter(int32(c.Value1)), c.Value2, 0)
	case CondInventoryFree:
		return compareNumeric(mode, int64(ch.InventoryFreeSlots), c.Value1, 0)
	case CondMaterial:
		return compareNumeric(mode, ch.MaterialCount(int32(c.Value1)), c.Value2, 0)
	case CondExpertiseActive:
		return ch.ExpertisePoints(int32(c.Value1)) > 0
	case CondExpertiseClass:
		return int64(ch.ExpertiseClass) == c.Value1
	case CondBethel:
		return compareNumeric(mode, ch.Counter("bethel"), c.Value1, c.Value2)
	case CondClanHome:
		return ch.InClanHome
	case CondInstanceAccess:
		return ch.HasInstanceAccess
	case CondPartySize:
		return compareNumeric(mode, int64(ch.PartySize), c.Value1, c.Value2)
	case CondPartnerAlive:
		return ch.PartnerAlive
	case CondPartnerZone:
		return ctx.Zone != nil && ch.PartnerZoneID == ctx.Zone.DefinitionID
	case CondTeamCategory:
		return int64(ch.TeamCategory) == c.Value1
	case CondTeamLeader:
		return ch.IsTeamLeader
	case CondTeamSize:
		return compareNumeric(mode, int64(ch.TeamSize), c.Value1, c.Value2)
	case CondTeamType:
		return int64(ch.TeamType) == c.Value1
	case CondPentalphaTeam:
		return int64(ch.PentalphaTeam) == c.Value1
	case CondNPCState:
		if ctx.Zone == nil {
			return false
		}
		return ctx.Zone.NPCState(int32(c.Value1)) == int32(c.Value2)
	case CondStatValue:
		return compareNumeric(mode, ch.StatValue(int32(c.Value1)), c.Value2, 0)
	case CondMap:
		return ctx.Zone != nil && int64(ctx.Zone.DynamicMapID) == c.Value1
	case CondZoneFlags:
		return ctx.Zone != nil && ctx.Zone.Flag(0, flagNameFromValue(c.Value1)) == int32(c.Value2)
	case CondZoneCharacterFlags:
		return ctx.Zone != nil && ctx.Zone.Flag(ch.WorldCID, flagNameFromValue(c.Value1)) == int32(c.Value2)
	case CondZoneInstanceFlags:
		return ctx.Zone != nil && ctx.Zone.InstanceFlag(0, flagNameFromValue(c.Value1)) == int32(c.Value2)
	case CondZoneInstanceCharacterFlags:
		return ctx.Zone != nil && ctx.Zone.InstanceFlag(ch.WorldCID, flagNameFromValue(c.Value1)) == int32(c.Value2)
	case CondTimespan:
		return evaluateTimespan(ctx.Clock, int32(c.Value1), int32(c.Value2))
	case CondTimespanWeek:
		return evaluateTimespanWeek(ctx.Clock, int32(c.Value1), int32(c.Value2))
	case CondTimespanDatetime:
		return evaluateTimespanDatetime(ctx.Clock, c.Value1, c.Value2)
	case CondMoonPhase:
		return int64(ctx.Clock.MoonPhase()) == c.Value1
	case CondPlugin:
		return ch.Counter("plugin_"+flagNameFromValue(c.Value1)) != 0
	default:
		return false
	}
}

func scriptIDFromValue(v int64) string {
	return "script_" + itoa(v)
}

func flagNameFromValue(v int64) string {
	return "flag_" + itoa(v)
}

func itoa(v int64) string {
	if v == 0 {
		return "0"
	}
	neg := v < 0
	if neg {
		v = -v
	}
	var buf [20]byte
	i := len(buf)
	for v > 0 {
		i--
		buf[i] = byte('0' + v%10)
		v /= 10
	}
	if neg {
		i--
		buf[i] = '-'
	}
	return string(buf[i:])
}
