package event

import (
	"context"
	"fmt"
	"math/rand"

	"github.com/imagine-project/channelserver/internal/definitions"
	"github.com/imagine-project/channelserver/internal/model"
	"github.com/imagine-project/channelserver/internal/store"
)

// DemonQuestDef is the static definition of one demon-request template
// (spec.md §4.G "Demon quest engine"), keyed by model.DemonQuestType.
// CandidatePool holds the data-driven list a demon of Type draws its
// TargetID from at offer time; RewardPool holds the weighted reward
// rows a completion draws from. RequiresSkillID/RequiresEquipped gate
// the conditional types (synth requires the demon know a synth skill,
// equipment-mod requires the demon currently carry equipment).
type DemonQuestDef struct {
	Type            model.DemonQuestType  `yaml:"type"`
	TargetCount     int32                 `yaml:"target_count"`
	CandidatePool   []DemonQuestCandidate `yaml:"candidate_pool"`
	RewardPool      []DemonQuestReward    `yaml:"reward_pool"`
	RequiresSkillID int32                 `yaml:"requires_skill_id"` // 0 = no skill gate
	RequiresEquip   bool                  `yaml:"requires_equip"`
}

// DemonQuestCandidate is one field-spawn entry a quest of a given type
// may target, carrying the attributes Offer's filtering pass needs
// (spec.md §4.G "field spawns in player level range ±10, non-talk-
// resistant for non-kill, not self-race for kill").
type DemonQuestCandidate struct {
	TargetID      int32 `yaml:"target_id"`
	Level         int32 `yaml:"level"`
	RaceID        int32 `yaml:"race_id"`
	TalkResistant bool  `yaml:"talk_resistant"`
}

// DemonQuestReward is one weighted reward row, gated by the race/level/
// familiarity/sequence criteria spec.md §4.G names. A non-zero MinRace
// must equal the character's RaceID exactly; MinLevel/MinFamiliarity/
// MinSequence are floors. A value of 0 places no requirement on that
// dimension.
// ChanceItemType/ChanceWeight contribute to DrawReward's separate
// "chance item" draw rather than the primary weighted pick.
type DemonQuestReward struct {
	ItemType int32 `yaml:"item_type"`
	Count    int32 `yaml:"count"`
	Weight   int32 `yaml:"weight"`

	MinRace        int32 `yaml:"min_race"`
	MinLevel       int32 `yaml:"min_level"`
	MinFamiliarity int32 `yaml:"min_familiarity"`
	MinSequence    int32 `yaml:"min_sequence"`

	BonusItemType int32 `yaml:"bonus_item_type"`
	BonusCount    int32 `yaml:"bonus_count"`
	BonusTitleID  int32 `yaml:"bonus_title_id"`
	BonusXP       int32 `yaml:"bonus_xp"`

	ChanceItemType int32 `yaml:"chance_item_type"`
	ChanceWeight   int32 `yaml:"chance_weight"`
}

// demonQuestSequenceXP is the escalating reward table a milestone
// sequence indexes into (spec.md §4.G "reward scales with how many
// times this request line has been completed, capped").
var demonQuestSequenceXP = []int32{100, 150, 200, 260, 330, 410, 500, 600, 720, 850}

// isDemonQuestMilestone reports whether sequence earns a reward at all:
// spec.md §4.G's schedule is sparse ("reward at 5, every 10 through
// 100, every 50 after"), not every completion.
func isDemonQuestMilestone(sequence int32) bool {
	switch {
	case sequence == 5:
		return true
	case sequence > 0 && sequence <= 100 && sequence%10 == 0:
		return true
	case sequence > 100 && sequence%50 == 0:
		return true
	default:
		return false
	}
}

// sequenceXP returns the milestone reward for sequence, or 0 for a
// sequence number the schedule doesn't reward.
func sequenceXP(sequence int32) int32 {
	if !isDemonQuestMilestone(sequence) {
		return 0
	}
	idx := int(sequence) / 10
	if idx >= len(demonQuestSequenceXP) {
		idx = len(demonQuestSequenceXP) - 1
	}
	return demonQuestSequenceXP[idx]
}

// DemonQuestEngine offers, tracks and completes demon quests against
// the Store-owned model.DemonQuest record referenced by
// model.Character.DemonQuestID, grounded on the same Store-record
// approach as QuestEngine rather than a bespoke repository interface.
type DemonQuestEngine struct {
	store   *store.Store
	defs    map[model.DemonQuestType]*DemonQuestDef
	content definitions.Definitions // optional; enables race lookups for kill-type filtering
	rng     *rand.Rand
}

func NewDemonQuestEngine(st *store.Store, defs []*DemonQuestDef, content definitions.Definitions, rng *rand.Rand) *DemonQuestEngine {
	e := &DemonQuestEngine{store: st, defs: make(map[model.DemonQuestType]*DemonQuestDef, len(defs)), content: content, rng: rng}
	for _, d := range defs {
		e.defs[d.Type] = d
	}
	return e
}

func (e *DemonQuestEngine) Def(t model.DemonQuestType) (*DemonQuestDef, bool) {
	d, ok := e.defs[t]
	return d, ok
}

// Active returns the character's in-progress demon quest, or nil if
// DemonQuestID is unset.
func (e *DemonQuestEngine) Active(ctx context.Context, char *model.Character) (*model.DemonQuest, error) {
	if char.DemonQuestID == model.NilUUID {
		return nil, nil
	}
	return store.Load[model.DemonQuest](ctx, e.store, char.DemonQuestID, false)
}

// eligibleForType reports whether demon qualifies for questType's
// conditional gate: synth types need the demon to know the def's synth
// skill, equipment-mod needs the demon to currently carry equipment
// (spec.md §4.G "conditional types require certain demon traits ... or
// player state").
func eligibleForType(def *DemonQuestDef, demon *model.Demon) bool {
	switch def.Type {
	case model.DemonQuestMeleeSynth, model.DemonQuestGunSynth:
		if def.RequiresSkillID == 0 {
			return true
		}
		for _, id := range demon.InheritedIDs {
			if id == def.RequiresSkillID {
				return true
			}
		}
		return false
	case model.DemonQuestEquipmentMod:
		if !def.RequiresEquip {
			return true
		}
		return len(demon.EquipmentIDs) > 0
	default:
		return true
	}
}

// demonRace resolves demon's race through Definitions, or 0 if no
// content is configured or the devil ID is unknown.
func (e *DemonQuestEngine) demonRace(demon *model.Demon) int32 {
	if e.content == nil {
		return 0
	}
	dv, ok := e.content.Devil(demon.DevilID)
	if !ok {
		return 0
	}
	return dv.RaceID
}

func absInt32(v int32) int32 {
	if v < 0 {
		return -v
	}
	return v
}

// filterCandidates narrows def.CandidatePool to the entries Offer may
// legally draw from: within playerLevel ±10, and — depending on
// questType — excluding talk-resistant targets (non-kill) or the
// demon's own race (kill), per spec.md §4.G.
func (e *DemonQuestEngine) filterCandidates(def *DemonQuestDef, demon *model.Demon, playerLevel int32) []DemonQuestCandidate {
	race := e.demonRace(demon)
	out := make([]DemonQuestCandidate, 0, len(def.CandidatePool))
	for _, c := range def.CandidatePool {
		if absInt32(c.Level-playerLevel) > 10 {
			continue
		}
		if def.Type == model.DemonQuestKill {
			if race != 0 && c.RaceID == race {
				continue
			}
		} else if c.TalkResistant {
			continue
		}
		out = append(out, c)
	}
	return out
}

// Offer picks a candidate TargetID for questType and returns a fresh,
// unpersisted model.DemonQuest; the caller commits it via Accept only
// once the player takes the request (spec.md §4.G "one active demon
// quest request at a time").
func (e *DemonQuestEngine) Offer(demon *model.Demon, questType model.DemonQuestType, playerLevel int32) (*model.DemonQuest, error) {
	def, ok := e.defs[questType]
	if !ok {
		return nil, fmt.Errorf("event: demon quest: unknown type %v", questType)
	}
	if !eligibleForType(def, demon) {
		return nil, fmt.Errorf("event: demon quest %v: demon %s does not meet the type's requirements", questType, demon.UUID)
	}
	candidates := e.filterCandidates(def, demon, playerLevel)
	if len(candidates) == 0 {
		return nil, fmt.Errorf("event: demon quest %v: no eligible candidates for level %d", questType, playerLevel)
	}
	target := candidates[e.rng.Intn(len(candidates))]
	return &model.DemonQuest{DemonID: demon.UUID, Type: questType, TargetID: target.TargetID, TargetCount: def.TargetCount}, nil
}

// Accept persists offer as char's one active demon quest.
func (e *DemonQuestEngine) Accept(ctx context.Context, char *model.Character, offer *model.DemonQuest) error {
	rec := store.NewRecord(e.store, true, func(id model.UUID) *model.DemonQuest {
		offer.UUID = id
		offer.CharacterID = char.UUID
		return offer
	})
	char.DemonQuestID = rec.UUID
	return store.Apply(ctx, e.store, []store.ChangeOp{
		store.Insert[model.DemonQuest](e.store, rec.UUID, rec),
		store.Update[model.Character](e.store, char.UUID, char),
	})
}

// RecordProgress advances progress toward the active demon quest if its
// TargetID matches subjectMatch (e.g. the monster type just killed).
// The returned bool reports whether TargetCount has now been reached.
func (e *DemonQuestEngine) RecordProgress(ctx context.Context, char *model.Character, subjectMatch int32, delta int32) (*model.DemonQuest, bool, error) {
	dq, err := e.Active(ctx, char)
	if err != nil || dq == nil {
		return dq, false, err
	}
	if dq.TargetID != subjectMatch {
		return dq, false, nil
	}

	dq.Progress += delta
	done := dq.Progress >= dq.TargetCount
	if err := store.Apply(ctx, e.store, []store.ChangeOp{store.Update[model.DemonQuest](e.store, dq.UUID, dq)}); err != nil {
		return dq, false, err
	}
	return dq, done, nil
}

// eligibleRewards narrows def.RewardPool to rows whose race match and
// level/familiarity/sequence floors char/demon/sequence satisfy (spec.md
// §4.G "reward pools evaluate race/level/familiarity/sequence
// criteria"). A value of 0 places no requirement on that dimension.
func eligibleRewards(def *DemonQuestDef, char *model.Character, demon *model.Demon, sequence int32) []DemonQuestReward {
	out := make([]DemonQuestReward, 0, len(def.RewardPool))
	for _, r := range def.RewardPool {
		if r.MinRace != 0 && r.MinRace != char.RaceID {
			continue
		}
		if demon.Level < r.MinLevel {
			continue
		}
		if demon.Familiarity < r.MinFamiliarity {
			continue
		}
		if sequence < r.MinSequence {
			continue
		}
		out = append(out, r)
	}
	return out
}

// DrawReward picks one weighted reward row from questType's RewardPool,
// filtered to the rows char/demon/sequence qualify for, then separately
// draws a weighted "chance item" from the same eligible set's
// ChanceItemType/ChanceWeight entries and folds it into the result
// (spec.md §4.G "one chance item from weighted drop sets").
func (e *DemonQuestEngine) DrawReward(questType model.DemonQuestType, char *model.Character, demon *model.Demon, sequence int32) (DemonQuestReward, bool) {
	def, ok := e.defs[questType]
	if !ok || len(def.RewardPool) == 0 {
		return DemonQuestReward{}, false
	}
	eligible := eligibleRewards(def, char, demon, sequence)
	if len(eligible) == 0 {
		return DemonQuestReward{}, false
	}

	reward := weightedPickReward(e.rng, eligible, func(r DemonQuestReward) int32 { return r.Weight })
	if chanceType, ok := weightedPickChanceItem(e.rng, eligible); ok {
		reward.ChanceItemType = chanceType
	}
	return reward, true
}

// weightedPickReward draws one row from rows proportional to weightOf,
// falling back to the first row if every weight is non-positive.
func weightedPickReward(rng *rand.Rand, rows []DemonQuestReward, weightOf func(DemonQuestReward) int32) DemonQuestReward {
	total := int32(0)
	for _, r := range rows {
		total += weightOf(r)
	}
	if total <= 0 {
		return rows[0]
	}
	pick := int32(rng.Intn(int(total)))
	for _, r := range rows {
		w := weightOf(r)
		if pick < w {
			return r
		}
		pick -= w
	}
	return rows[len(rows)-1]
}

// weightedPickChanceItem draws one ChanceItemType across rows weighted
// by ChanceWeight; rows with no chance weight don't participate. ok is
// false when no row in rows carries a positive ChanceWeight.
func weightedPickChanceItem(rng *rand.Rand, rows []DemonQuestReward) (int32, bool) {
	total := int32(0)
	for _, r := range rows {
		total += r.ChanceWeight
	}
	if total <= 0 {
		return 0, false
	}
	pick := int32(rng.Intn(int(total)))
	for _, r := range rows {
		if r.ChanceWeight <= 0 {
			continue
		}
		if pick < r.ChanceWeight {
			return r.ChanceItemType, true
		}
		pick -= r.ChanceWeight
	}
	return 0, false
}

// Complete clears char's active demon quest and returns the XP award
// for its sequence number (the completed record's SequenceXP, set by
// the caller at Accept time from a running per-line counter).
func (e *DemonQuestEngine) Complete(ctx context.Context, char *model.Character, dq *model.DemonQuest) (int32, error) {
	char.DemonQuestID = model.NilUUID
	ops := []store.ChangeOp{
		store.Delete[model.DemonQuest](e.store, dq.UUID),
		store.Update[model.Character](e.store, char.UUID, char),
	}
	if err := store.Apply(ctx, e.store, ops); err != nil {
		return 0, err
	}
	return sequenceXP(dq.SequenceXP), nil
}
