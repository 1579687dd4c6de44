package sync

import (
	"github.com/imagine-project/channelserver/internal/model"
)

// LoginUpdater is the narrow slice of internal/account.Manager the
// CharacterLogin ObjectConfig routes bulk updates to (spec.md §4.D
// "CharacterLogin: bulk updates are routed to AccountManager.update_
// logins").
type LoginUpdater interface {
	UpdateLogins(logins []model.CharacterLogin)
}

// NewCharacterLoginConfig builds the ObjectConfig for model.CharacterLogin.
// Unlike the other per-record handlers, CharacterLogin's real work
// happens once per batch rather than once per record (the whole point is
// comparing the batch against this channel's live sessions), so
// UpdateHandler only classifies the result and SyncCompleteHandler does
// the actual routing.
func NewCharacterLoginConfig(updater LoginUpdater) ObjectConfig {
	return ObjectConfig{
		Persistent: false,
		StoreRef:   "world",
		UpdateHandler: func(_ string, obj any, _ bool, _ string) Code {
			if _, ok := obj.(model.CharacterLogin); !ok {
				return CodeFailed
			}
			return CodeHandled
		},
		SyncCompleteHandler: func(_ string, batch []Record, _ string) {
			logins := make([]model.CharacterLogin, 0, len(batch))
			for _, rec := range batch {
				if login, ok := rec.Data.(model.CharacterLogin); ok {
					logins = append(logins, login)
				}
			}
			if len(logins) > 0 && updater != nil {
				updater.UpdateLogins(logins)
			}
		},
	}
}
