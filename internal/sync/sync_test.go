package sync

import (
	"testing"

	"github.com/imagine-project/channelserver/internal/model"
)

type fakeWorldSender struct {
	sent [][]Outbound
}

func (f *fakeWorldSender) SendSyncBatch(batch []Outbound) error {
	f.sent = append(f.sent, batch)
	return nil
}

func TestManager_SyncOutgoingFlushesQueuedBatch(t *testing.T) {
	sender := &fakeWorldSender{}
	m := NewManager(sender)

	id := model.NewUUID()
	m.UpdateRecord("Account", id, map[string]int64{"cp": 5})
	m.RemoveRecord("Account", model.NewUUID())

	if err := m.SyncOutgoing(); err != nil {
		t.Fatalf("SyncOutgoing() error = %v", err)
	}
	if len(sender.sent) != 1 || len(sender.sent[0]) != 2 {
		t.Fatalf("sent = %+v, want one batch of 2", sender.sent)
	}

	if err := m.SyncOutgoing(); err != nil {
		t.Fatalf("second SyncOutgoing() error = %v", err)
	}
	if len(sender.sent) != 1 {
		t.Fatalf("second flush with nothing queued should not call world sender")
	}
}

func TestManager_ApplyIncomingRunsAllUpdatesBeforeAnySyncComplete(t *testing.T) {
	m := NewManager(nil)

	var order []string
	m.Register("Foo", ObjectConfig{
		UpdateHandler: func(typeTag string, obj any, isRemove bool, source string) Code {
			order = append(order, "update:"+typeTag)
			return CodeUpdated
		},
		SyncCompleteHandler: func(typeTag string, batch []Record, source string) {
			order = append(order, "complete:"+typeTag)
		},
	})

	batch := []Record{
		{Type: "Foo", UUID: model.NewUUID()},
		{Type: "Foo", UUID: model.NewUUID()},
	}
	results := m.ApplyIncoming(batch, "world")

	if len(results) != 2 {
		t.Fatalf("results = %+v, want 2 entries", results)
	}
	if len(order) != 3 || order[2] != "complete:Foo" {
		t.Fatalf("order = %v, want both updates before the complete handler", order)
	}
}

func TestSortByEntryIDDescending(t *testing.T) {
	entries := []model.SearchEntry{
		{EntryID: 1},
		{EntryID: 5},
		{EntryID: 3},
	}
	SortByEntryIDDescending(entries)
	if entries[0].EntryID != 5 || entries[1].EntryID != 3 || entries[2].EntryID != 1 {
		t.Fatalf("entries = %+v, want descending by EntryID", entries)
	}
}

type fakeSearchStore struct {
	entries map[model.UUID]model.SearchEntry
}

func (f *fakeSearchStore) UpsertSearchEntry(e model.SearchEntry) { f.entries[e.UUID] = e }
func (f *fakeSearchStore) RemoveSearchEntry(id model.UUID)       { delete(f.entries, id) }
func (f *fakeSearchStore) SearchEntry(id model.UUID) (model.SearchEntry, bool) {
	e, ok := f.entries[id]
	return e, ok
}

type fakeParentNotifier struct {
	notified []model.UUID
}

func (f *fakeParentNotifier) NotifySearchApplication(sourceCharacterID model.UUID, e model.SearchEntry) {
	f.notified = append(f.notified, sourceCharacterID)
}

func TestSearchEntryConfig_ApplicationNotifiesParentSource(t *testing.T) {
	store := &fakeSearchStore{entries: make(map[model.UUID]model.SearchEntry)}
	notifier := &fakeParentNotifier{}
	cfg := NewSearchEntryConfig(store, notifier)

	parentSource := model.NewUUID()
	parent := model.SearchEntry{UUID: model.NewUUID(), Type: model.SearchPartyJoin, SourceID: parentSource}
	store.UpsertSearchEntry(parent)

	application := model.SearchEntry{
		UUID:     model.NewUUID(),
		Type:     model.SearchPartyJoinApplication,
		ParentID: parent.UUID,
	}
	code := cfg.UpdateHandler("SearchEntry", application, false, "world")

	if code != CodeUpdated {
		t.Fatalf("UpdateHandler code = %v, want CodeUpdated", code)
	}
	if len(notifier.notified) != 1 || notifier.notified[0] != parentSource {
		t.Fatalf("notified = %v, want [%v]", notifier.notified, parentSource)
	}
}
