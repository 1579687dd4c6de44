package event

import (
	"context"
	"fmt"

	"github.com/imagine-project/channelserver/internal/model"
	"github.com/imagine-project/channelserver/internal/store"
)

// Quest phase sentinels, per model.Quest's doc comment: phase -1 marks
// a quest complete (the record is removed and CharacterProgress's
// completion bit is set); phase -2 removes the record without setting
// completion (abandoned or failed outright).
const (
	QuestPhaseComplete int32 = -1
	QuestPhaseDeleted  int32 = -2
)

// questPhaseNotStarted is QuestPhase's return for a character who has
// never touched questID and has no completion bit set either.
const questPhaseNotStarted int32 = -100

// QuestDef is the static definition of a quest: its per-phase kill-count
// targets update_quest_kill_count checks against (spec.md §4.G).
type QuestDef struct {
	ID           int32                     `yaml:"id"`
	Name         string                    `yaml:"name"`
	KillTargets  map[int32]map[int32]int32 `yaml:"kill_targets"` // phase -> (monster type -> required count)
	StartEventID string                    `yaml:"start_event_id"`
}

// QuestEngine dispatches update_quest / update_quest_kill_count against
// the Store-owned model.Quest/model.Character/model.CharacterProgress
// records, grounded on la2go's quest.Manager (questsByID content
// registry held separately from per-character state) but re-targeted
// at this repo's Store abstraction instead of a bespoke
// QuestRepository, since model.Quest is already a Store record exactly
// like every other persisted type (spec.md §1 "a uniform Store
// abstraction used by every persisted type").
type QuestEngine struct {
	store *store.Store
	defs  map[int32]*QuestDef
}

func NewQuestEngine(st *store.Store, defs []*QuestDef) *QuestEngine {
	e := &QuestEngine{store: st, defs: make(map[int32]*QuestDef, len(defs))}
	for _, d := range defs {
		e.defs[d.ID] = d
	}
	return e
}

func (e *QuestEngine) Def(questID int32) (*QuestDef, bool) {
	d, ok := e.defs[questID]
	return d, ok
}

// findActive returns the live model.Quest record for questID among
// char.QuestIDs, or nil if not currently active.
func (e *QuestEngine) findActive(ctx context.Context, char *model.Character, questID int32) (*model.Quest, error) {
	for _, id := range char.QuestIDs {
		q, err := store.Load[model.Quest](ctx, e.store, id, false)
		if err != nil {
			return nil, fmt.Errorf("event: loading quest record %s: %w", id, err)
		}
		if q.QuestID == questID {
			return q, nil
		}
	}
	return nil, nil
}

// Phase returns a character's current phase for questID:
// questPhaseNotStarted if untouched, QuestPhaseComplete if the
// completion bit is set, else the active record's Phase.
func (e *QuestEngine) Phase(ctx context.Context, char *model.Character, progress *model.CharacterProgress, questID int32) (int32, error) {
	if progress.HasCompleted(questID) {
		return QuestPhaseComplete, nil
	}
	q, err := e.findActive(ctx, char, questID)
	if err != nil {
		return 0, err
	}
	if q == nil {
		return questPhaseNotStarted, nil
	}
	return q.Phase, nil
}

// UpdateQuest sets a character's quest to phase (spec.md §4.G
// "update_quest(quest_id, phase)"). phase >= 0 creates the quest record
// on first use and resets its kill-count scratch on every transition;
// QuestPhaseComplete removes the record and sets the progress
// completion bit; QuestPhaseDeleted removes it without marking
// completion.
func (e *QuestEngine) UpdateQuest(ctx context.Context, char *model.Character, progress *model.CharacterProgress, questID, phase int32) error {
	if _, ok := e.defs[questID]; !ok {
		return fmt.Errorf("event: update_quest: unknown quest id %d", questID)
	}

	existing, err := e.findActive(ctx, char, questID)
	if err != nil {
		return err
	}

	if phase == QuestPhaseComplete || phase == QuestPhaseDeleted {
		if existing == nil {
			if phase == QuestPhaseComplete {
				progress.SetCompleted(questID, true)
				return store.Apply(ctx, e.store, []store.ChangeOp{store.Update[model.CharacterProgress](e.store, progress.UUID, progress)})
			}
			return nil
		}
		char.QuestIDs = removeUUID(char.QuestIDs, existing.UUID)
		ops := []store.ChangeOp{
			store.Delete[model.Quest](e.store, existing.UUID),
			store.Update[model.Character](e.store, char.UUID, char),
		}
		if phase == QuestPhaseComplete {
			progress.SetCompleted(questID, true)
			ops = append(ops, store.Update[model.CharacterProgress](e.store, progress.UUID, progress))
		}
		return store.Apply(ctx, e.store, ops)
	}

	if existing != nil {
		existing.Phase = phase
		existing.KillCounts = make(map[int32]int32)
		return store.Apply(ctx, e.store, []store.ChangeOp{store.Update[model.Quest](e.store, existing.UUID, existing)})
	}

	newQuest := store.NewRecord(e.store, true, func(id model.UUID) *model.Quest {
		return &model.Quest{UUID: id, CharacterID: char.UUID, QuestID: questID, Phase: phase, KillCounts: make(map[int32]int32)}
	})
	char.QuestIDs = append(char.QuestIDs, newQuest.UUID)
	return store.Apply(ctx, e.store, []store.ChangeOp{
		store.Insert[model.Quest](e.store, newQuest.UUID, newQuest),
		store.Update[model.Character](e.store, char.UUID, char),
	})
}

// UpdateQuestKillCount increments the kill counter for monsterType
// against questID's current phase, advancing the quest when every
// configured target for that phase is met (spec.md §4.G
// "update_quest_kill_count(quest_id, monster_type)").
func (e *QuestEngine) UpdateQuestKillCount(ctx context.Context, char *model.Character, progress *model.CharacterProgress, questID, monsterType int32) error {
	def, ok := e.defs[questID]
	if !ok {
		return fmt.Errorf("event: update_quest_kill_count: unknown quest id %d", questID)
	}
	q, err := e.findActive(ctx, char, questID)
	if err != nil || q == nil {
		return err
	}

	targets, hasTargets := def.KillTargets[q.Phase]
	required, tracked := targets[monsterType]
	if !hasTargets || !tracked {
		return nil
	}

	if q.KillCounts == nil {
		q.KillCounts = make(map[int32]int32)
	}
	q.KillCounts[monsterType]++

	if allKillTargetsMet(targets, q.KillCounts) {
		return e.UpdateQuest(ctx, char, progress, questID, q.Phase+1)
	}
	return store.Apply(ctx, e.store, []store.ChangeOp{store.Update[model.Quest](e.store, q.UUID, q)})
}

func allKillTargetsMet(targets map[int32]int32, counts map[int32]int32) bool {
	for monsterType, required := range targets {
		if counts[monsterType] < required {
			return false
		}
	}
	return true
}

// BuildQuestSnapshot hydrates the quests lookup map a CharacterSnapshot
// needs for CondQuestActive/CondQuestComplete/CondQuestSequence, walking
// char.QuestIDs plus progress's completion bitmask.
func (e *QuestEngine) BuildQuestSnapshot(ctx context.Context, char *model.Character, progress *model.CharacterProgress) (map[int32]*questSnapshot, error) {
	out := make(map[int32]*questSnapshot, len(char.QuestIDs)+len(progress.CompletedQuests))
	for questID := range progress.CompletedQuests {
		out[questID] = &questSnapshot{Phase: QuestPhaseComplete, Completed: true}
	}
	for _, id := range char.QuestIDs {
		q, err := store.Load[model.Quest](ctx, e.store, id, false)
		if err != nil {
			return nil, fmt.Errorf("event: hydrating quest snapshot: %w", err)
		}
		out[q.QuestID] = &questSnapshot{Phase: q.Phase}
	}
	return out, nil
}

func removeUUID(ids []model.UUID, target model.UUID) []model.UUID {
	out := ids[:0]
	for _, id := range ids {
		if id != target {
			out = append(out, id)
		}
	}
	return out
}
