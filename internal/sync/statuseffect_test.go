package sync

import (
	"testing"

	"github.com/imagine-project/channelserver/internal/model"
	"github.com/imagine-project/channelserver/internal/session"
	"github.com/imagine-project/channelserver/internal/store"
)

func TestStatusEffectConfig_InsertAppliesToOnlineCharacter(t *testing.T) {
	st := store.New(store.NewMemBackend())
	sessions := session.NewRegistry(nil)
	cfg := NewStatusEffectConfig(st, sessions)

	s := session.NewSession("dave", 9)
	s.CharacterUUID = model.NewUUID()
	s.CharacterState = &model.CharacterState{CharacterID: s.CharacterUUID}
	sessions.Set(s)

	effect := model.StatusEffect{TargetID: s.CharacterUUID, EffectID: 42, Stack: 1}
	code := cfg.UpdateHandler("StatusEffect", effect, false, "world")

	if code != CodeHandled {
		t.Fatalf("UpdateHandler code = %v, want CodeHandled", code)
	}
	if len(s.CharacterState.ActiveStatusEffects) != 1 {
		t.Fatalf("ActiveStatusEffects = %v, want one entry", s.CharacterState.ActiveStatusEffects)
	}
}

func TestStatusEffectConfig_InsertQueuesForOfflineCharacter(t *testing.T) {
	st := store.New(store.NewMemBackend())
	sessions := session.NewRegistry(nil)
	cfg := NewStatusEffectConfig(st, sessions)

	effect := model.StatusEffect{TargetID: model.NewUUID(), EffectID: 7}
	code := cfg.UpdateHandler("StatusEffect", effect, false, "world")

	if code != CodeUpdated {
		t.Fatalf("UpdateHandler code = %v, want CodeUpdated for an offline target", code)
	}
}

func TestStatusEffectConfig_RemoveDropsCachedRecord(t *testing.T) {
	st := store.New(store.NewMemBackend())
	sessions := session.NewRegistry(nil)
	cfg := NewStatusEffectConfig(st, sessions)

	effect := model.StatusEffect{UUID: model.NewUUID(), TargetID: model.NewUUID(), EffectID: 7}
	code := cfg.UpdateHandler("StatusEffect", effect, true, "world")

	if code != CodeUpdated {
		t.Fatalf("UpdateHandler code = %v, want CodeUpdated", code)
	}
}
