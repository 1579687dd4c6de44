package zone

import (
	"testing"

	"github.com/imagine-project/channelserver/internal/model"
)

func TestSpatialIndex_NearbyFindsWithinRadiusOnly(t *testing.T) {
	idx := newSpatialIndex()
	near := model.NewUUID()
	far := model.NewUUID()

	idx.Update(near, model.Position{X: 100, Y: 100})
	idx.Update(far, model.Position{X: 5000, Y: 5000})

	got := idx.Nearby(model.Position{X: 0, Y: 0}, 200)
	if len(got) != 1 || got[0] != near {
		t.Fatalf("Nearby = %v, want only %v", got, near)
	}
}

func TestSpatialIndex_UpdateMovesBetweenRegionBuckets(t *testing.T) {
	idx := newSpatialIndex()
	id := model.NewUUID()

	idx.Update(id, model.Position{X: 0, Y: 0})
	if got := idx.Nearby(model.Position{X: 0, Y: 0}, 50); len(got) != 1 {
		t.Fatalf("expected entity found at origin region, got %v", got)
	}

	idx.Update(id, model.Position{X: 100000, Y: 100000})
	if got := idx.Nearby(model.Position{X: 0, Y: 0}, 50); len(got) != 0 {
		t.Fatalf("expected entity gone from origin region after moving far away, got %v", got)
	}
	if got := idx.Nearby(model.Position{X: 100000, Y: 100000}, 50); len(got) != 1 {
		t.Fatalf("expected entity found at its new region, got %v", got)
	}
}

func TestSpatialIndex_RemoveClearsRegionBucket(t *testing.T) {
	idx := newSpatialIndex()
	id := model.NewUUID()
	idx.Update(id, model.Position{X: 10, Y: 10})
	idx.Remove(id)

	if got := idx.Nearby(model.Position{X: 0, Y: 0}, 200); len(got) != 0 {
		t.Fatalf("expected no entities after Remove, got %v", got)
	}
}

func TestZone_RemoveEntityClearsSpatialIndex(t *testing.T) {
	z := NewZone(1, 0)
	id := model.NewUUID()
	z.AddEntity(id)
	z.UpdatePosition(id, model.Position{X: 0, Y: 0})

	if got := z.NearbyEntities(model.Position{X: 0, Y: 0}, 200); len(got) != 1 {
		t.Fatalf("expected entity tracked before removal, got %v", got)
	}

	z.RemoveEntity(id)
	if got := z.NearbyEntities(model.Position{X: 0, Y: 0}, 200); len(got) != 0 {
		t.Fatalf("expected entity untracked after RemoveEntity, got %v", got)
	}
}
