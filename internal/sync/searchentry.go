package sync

import (
	"log/slog"
	"sort"

	"github.com/imagine-project/channelserver/internal/model"
)

// SearchEntryStore is the narrow persistence slice the SearchEntry
// ObjectConfig needs: insert ordered by entry id, remove, and parent
// lookup for application notification (spec.md §4.D "Insert with
// higher entry-id-first ordering ... An 'application' sub-type notifies
// its parent's source character").
type SearchEntryStore interface {
	UpsertSearchEntry(e model.SearchEntry)
	RemoveSearchEntry(uuid model.UUID)
	SearchEntry(uuid model.UUID) (model.SearchEntry, bool)
}

// ParentNotifier delivers a notification to a character when one of
// its search-board postings receives an application.
type ParentNotifier interface {
	NotifySearchApplication(sourceCharacterID model.UUID, e model.SearchEntry)
}

// NewSearchEntryConfig builds the ObjectConfig for model.SearchEntry,
// grounded on spec.md §4.D's "Type-specific behaviors" for SearchEntry.
func NewSearchEntryConfig(store SearchEntryStore, notify ParentNotifier) ObjectConfig {
	return ObjectConfig{
		Persistent: true,
		StoreRef:   "world",
		UpdateHandler: func(_ string, obj any, isRemove bool, _ string) Code {
			entry, ok := obj.(model.SearchEntry)
			if !ok {
				return CodeFailed
			}
			if isRemove {
				store.RemoveSearchEntry(entry.UUID)
				return CodeUpdated
			}
			store.UpsertSearchEntry(entry)

			if entry.Type.IsApplication() {
				if parent, ok := store.SearchEntry(entry.ParentID); ok && notify != nil {
					notify.NotifySearchApplication(parent.SourceID, entry)
				}
			}
			return CodeUpdated
		},
		SyncCompleteHandler: func(_ string, batch []Record, _ string) {
			slog.Debug("search entry sync batch complete", "count", len(batch))
		},
	}
}

// SortByEntryIDDescending orders entries highest-entry-id-first, per
// spec.md §4.D "Insert with higher entry-id-first ordering".
func SortByEntryIDDescending(entries []model.SearchEntry) {
	sort.Slice(entries, func(i, j int) bool {
		return entries[i].EntryID > entries[j].EntryID
	})
}
