package sync

import (
	"testing"

	"github.com/imagine-project/channelserver/internal/model"
)

type fakeLoginUpdater struct {
	batches [][]model.CharacterLogin
}

func (f *fakeLoginUpdater) UpdateLogins(logins []model.CharacterLogin) {
	f.batches = append(f.batches, logins)
}

func TestCharacterLoginConfig_RoutesWholeBatchOnSyncComplete(t *testing.T) {
	updater := &fakeLoginUpdater{}
	cfg := NewCharacterLoginConfig(updater)

	a := model.CharacterLogin{UUID: model.NewUUID(), AccountID: model.NewUUID(), LoggedIn: true}
	b := model.CharacterLogin{UUID: model.NewUUID(), AccountID: model.NewUUID(), LoggedIn: false}

	if code := cfg.UpdateHandler("CharacterLogin", a, false, "world"); code != CodeHandled {
		t.Fatalf("UpdateHandler code = %v, want CodeHandled", code)
	}
	if code := cfg.UpdateHandler("CharacterLogin", b, false, "world"); code != CodeHandled {
		t.Fatalf("UpdateHandler code = %v, want CodeHandled", code)
	}

	batch := []Record{
		{Type: "CharacterLogin", UUID: a.UUID, Data: a},
		{Type: "CharacterLogin", UUID: b.UUID, Data: b},
	}
	cfg.SyncCompleteHandler("CharacterLogin", batch, "world")

	if len(updater.batches) != 1 || len(updater.batches[0]) != 2 {
		t.Fatalf("batches = %+v, want one batch of 2", updater.batches)
	}
}

func TestCharacterLoginConfig_UpdateHandlerRejectsWrongType(t *testing.T) {
	cfg := NewCharacterLoginConfig(&fakeLoginUpdater{})
	if code := cfg.UpdateHandler("CharacterLogin", "not a login", false, "world"); code != CodeFailed {
		t.Fatalf("UpdateHandler code = %v, want CodeFailed", code)
	}
}
