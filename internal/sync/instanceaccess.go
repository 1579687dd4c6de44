package sync

import (
	"log/slog"

	"github.com/imagine-project/channelserver/internal/model"
	"github.com/imagine-project/channelserver/internal/zone"
)

// InstanceCreator is the narrow slice of zone.Manager the InstanceAccess
// ObjectConfig needs to satisfy a local creation request (spec.md §4.D
// "InstanceAccess ... records with zero instance_id on the local channel
// are creation requests").
type InstanceCreator interface {
	CreateInstance(defID, variantID int32) *zone.ZoneInstance
}

// InstanceAccessEcho re-emits a resolved InstanceAccess record to the
// world once its InstanceID has been assigned locally (spec.md §4.D
// "ZoneManager.create_instance is invoked, then the record is echoed
// back via update_record").
type InstanceAccessEcho interface {
	UpdateRecord(typeTag string, uuid model.UUID, data any)
}

// NewInstanceAccessConfig builds the ObjectConfig for model.InstanceAccess.
// A record already carrying a non-zero InstanceID is acknowledged with
// CodeHandled and nothing else: no access is granted on this channel
// for it. A zero InstanceID is this channel's own
// creation request: CreateInstance runs, access is granted immediately,
// and the filled-in record is echoed back.
func NewInstanceAccessConfig(creator InstanceCreator, echo InstanceAccessEcho) ObjectConfig {
	return ObjectConfig{
		Persistent: true,
		StoreRef:   "world",
		UpdateHandler: func(typeTag string, obj any, isRemove bool, _ string) Code {
			access, ok := obj.(model.InstanceAccess)
			if !ok {
				return CodeFailed
			}
			if isRemove {
				return CodeHandled
			}
			if access.InstanceID != 0 {
				return CodeHandled
			}

			inst := creator.CreateInstance(access.DefID, access.VariantID)
			inst.GrantAccess(access.CharacterID)
			access.InstanceID = inst.ID

			slog.Info("sync: instance access creation request resolved",
				"character", access.CharacterID, "def", access.DefID, "instance", inst.ID)

			if echo != nil {
				echo.UpdateRecord(typeTag, access.UUID, access)
			}
			return CodeUpdated
		},
	}
}
