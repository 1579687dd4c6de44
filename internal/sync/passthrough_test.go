package sync

import (
	"context"
	"testing"

	"github.com/imagine-project/channelserver/internal/model"
	"github.com/imagine-project/channelserver/internal/store"
)

func TestPassthroughConfig_InsertCachesRecord(t *testing.T) {
	st := store.New(store.NewMemBackend())
	cfg := NewPassthroughConfig(st, "world", func(c model.EventCounter) model.UUID { return c.UUID })

	id := model.NewUUID()
	counter := model.EventCounter{UUID: id, CounterID: 7, Value: 3}
	code := cfg.UpdateHandler("EventCounter", counter, false, "world")
	if code != CodeUpdated {
		t.Fatalf("UpdateHandler code = %v, want CodeUpdated", code)
	}

	got, err := store.Load[model.EventCounter](context.Background(), st, id, false)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if got.Value != 3 {
		t.Fatalf("cached Value = %d, want 3", got.Value)
	}
}

func TestPassthroughConfig_RemoveUnloadsRecord(t *testing.T) {
	st := store.New(store.NewMemBackend())
	cfg := NewPassthroughConfig(st, "world", func(c model.EventCounter) model.UUID { return c.UUID })

	id := model.NewUUID()
	store.Put(st, id, &model.EventCounter{UUID: id, CounterID: 7})

	code := cfg.UpdateHandler("EventCounter", model.EventCounter{UUID: id}, true, "world")
	if code != CodeUpdated {
		t.Fatalf("UpdateHandler code = %v, want CodeUpdated", code)
	}

	if _, err := store.Load[model.EventCounter](context.Background(), st, id, false); err == nil {
		t.Fatalf("Load after remove: want error (cache miss, and the backend holds no row), got nil")
	}
}

func TestPassthroughConfig_NilUUIDFails(t *testing.T) {
	st := store.New(store.NewMemBackend())
	cfg := NewPassthroughConfig(st, "world", func(c model.EventCounter) model.UUID { return c.UUID })

	code := cfg.UpdateHandler("EventCounter", model.EventCounter{}, false, "world")
	if code != CodeFailed {
		t.Fatalf("UpdateHandler code = %v, want CodeFailed for nil UUID", code)
	}
}
