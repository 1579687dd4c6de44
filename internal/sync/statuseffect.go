package sync

import (
	"log/slog"

	"github.com/imagine-project/channelserver/internal/model"
	"github.com/imagine-project/channelserver/internal/session"
	"github.com/imagine-project/channelserver/internal/store"
)

// NewStatusEffectConfig builds the ObjectConfig for model.StatusEffect
// (spec.md §4.D "StatusEffect insert: hydrates target character, finds
// its session, applies effect immediately with the stack/duration in
// the payload"). A remove simply drops the cached record; the owning
// character need not be online for a remove to apply.
func NewStatusEffectConfig(st *store.Store, sessions *session.Registry) ObjectConfig {
	return ObjectConfig{
		Persistent: true,
		StoreRef:   "world",
		UpdateHandler: func(_ string, obj any, isRemove bool, _ string) Code {
			effect, ok := obj.(model.StatusEffect)
			if !ok {
				return CodeFailed
			}
			if isRemove {
				store.Unload[model.StatusEffect](st, effect.UUID)
				return CodeUpdated
			}
			if effect.UUID == model.NilUUID {
				effect.UUID = model.NewUUID()
			}
			rec := &effect
			store.Put(st, rec.UUID, rec)

			s, online := sessions.ByCharacterID(effect.TargetID)
			if !online || s.CharacterState == nil {
				slog.Debug("sync: status effect queued for offline character", "character", effect.TargetID, "effect", effect.EffectID)
				return CodeUpdated
			}
			applyToSession(s, rec)
			slog.Info("sync: status effect applied", "character", effect.TargetID, "effect", effect.EffectID, "stack", effect.Stack, "duration", effect.Duration)
			return CodeHandled
		},
	}
}

// applyToSession records eff's UUID on s.CharacterState.ActiveStatusEffects
// unless that same UUID is already listed. Entries are matched by record
// UUID only; an entry for the same effect ID under another UUID stays
// alongside the new one.
func applyToSession(s *session.Session, eff *model.StatusEffect) {
	cs := s.CharacterState
	for i, id := range cs.ActiveStatusEffects {
		if id == eff.UUID {
			cs.ActiveStatusEffects[i] = eff.UUID
			return
		}
	}
	cs.ActiveStatusEffects = append(cs.ActiveStatusEffects, eff.UUID)
}
