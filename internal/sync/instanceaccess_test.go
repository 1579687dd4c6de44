package sync

import (
	"testing"

	"github.com/imagine-project/channelserver/internal/model"
	"github.com/imagine-project/channelserver/internal/zone"
)

type fakeInstanceEcho struct {
	updates []model.UUID
}

func (f *fakeInstanceEcho) UpdateRecord(typeTag string, uuid model.UUID, data any) {
	f.updates = append(f.updates, uuid)
}

func TestInstanceAccessConfig_ZeroInstanceIDCreatesAndEchoes(t *testing.T) {
	zones := zone.NewManager(nil)
	echo := &fakeInstanceEcho{}
	cfg := NewInstanceAccessConfig(zones, echo)

	access := model.InstanceAccess{UUID: model.NewUUID(), CharacterID: model.NewUUID(), DefID: 1, VariantID: 0}
	code := cfg.UpdateHandler("InstanceAccess", access, false, "world")

	if code != CodeUpdated {
		t.Fatalf("UpdateHandler code = %v, want CodeUpdated", code)
	}
	if len(echo.updates) != 1 || echo.updates[0] != access.UUID {
		t.Fatalf("updates = %v, want one echo of %v", echo.updates, access.UUID)
	}
}

func TestInstanceAccessConfig_NonZeroInstanceIDIsAlreadyResolved(t *testing.T) {
	zones := zone.NewManager(nil)
	echo := &fakeInstanceEcho{}
	cfg := NewInstanceAccessConfig(zones, echo)

	access := model.InstanceAccess{UUID: model.NewUUID(), CharacterID: model.NewUUID(), InstanceID: 5}
	code := cfg.UpdateHandler("InstanceAccess", access, false, "world")

	if code != CodeHandled {
		t.Fatalf("UpdateHandler code = %v, want CodeHandled", code)
	}
	if len(echo.updates) != 0 {
		t.Fatalf("updates = %v, want no echo for an already-resolved grant", echo.updates)
	}
}
