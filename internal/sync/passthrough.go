package sync

import (
	"log/slog"

	"github.com/imagine-project/channelserver/internal/model"
	"github.com/imagine-project/channelserver/internal/store"
)

// NewPassthroughConfig builds the ObjectConfig for a record type with no
// type-specific local handling beyond caching the inbound value in the
// Store (spec.md §4.D lists these among the "minimum" synced record set
// but only a handful — SearchEntry, StatusEffect, InstanceAccess,
// CharacterLogin, PentalphaMatch/UBTournament — get bespoke behavior; the
// rest (Account, CharacterProgress, Match, MatchEntry, EventCounter,
// PentalphaEntry, PvPMatch, UBResult) just need the store's cached copy
// kept current so the rest of this channel sees a consistent snapshot).
// uuidOf extracts the record's UUID for cache keying and removal.
func NewPassthroughConfig[T any](st *store.Store, storeRef string, uuidOf func(T) model.UUID) ObjectConfig {
	return ObjectConfig{
		Persistent: true,
		StoreRef:   storeRef,
		UpdateHandler: func(typeTag string, obj any, isRemove bool, _ string) Code {
			rec, ok := obj.(T)
			if !ok {
				return CodeFailed
			}
			id := uuidOf(rec)
			if isRemove {
				store.Unload[T](st, id)
				return CodeUpdated
			}
			if id == model.NilUUID {
				slog.Warn("sync: passthrough record with nil UUID", "type", typeTag)
				return CodeFailed
			}
			store.Put(st, id, &rec)
			return CodeUpdated
		},
	}
}
