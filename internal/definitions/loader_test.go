package definitions

import (
	"os"
	"path/filepath"
	"testing"
)

func TestLoadDir_MergesMultipleFixtureFiles(t *testing.T) {
	dir := t.TempDir()

	writeFixture(t, dir, "items.yaml", `
items:
  - id: 1
    max_stack: 99
    category_main: 4
    category_sub: 1
`)
	writeFixture(t, dir, "zones.yaml", `
zones:
  - id: 100
    name: Shibuya
spots:
  - dynamic_map_id: 100
    spot_id: 1
    points:
      - x: 1.5
        y: 2.5
        rot: 0
`)

	defs, err := LoadDir(dir)
	if err != nil {
		t.Fatalf("LoadDir() error = %v", err)
	}

	if item, ok := defs.Item(1); !ok || item.MaxStack != 99 {
		t.Fatalf("Item(1) = %+v, %v; want MaxStack=99, ok=true", item, ok)
	}
	if _, ok := defs.Item(2); ok {
		t.Fatalf("Item(2) ok = true, want false for missing id")
	}
	if zone, ok := defs.Zone(100); !ok || zone.Name != "Shibuya" {
		t.Fatalf("Zone(100) = %+v, %v; want Name=Shibuya, ok=true", zone, ok)
	}
	if spot, ok := defs.Spot(100, 1); !ok || len(spot.Points) != 1 {
		t.Fatalf("Spot(100,1) = %+v, %v; want one point, ok=true", spot, ok)
	}
}

func TestFromFixtures_BuildsInMemoryDefinitions(t *testing.T) {
	defs := FromFixtures(
		[]Item{{ID: 7, MaxStack: 1}},
		[]Devil{{ID: 9, RaceID: 2}},
		nil, nil, nil,
	)
	if item, ok := defs.Item(7); !ok || item.MaxStack != 1 {
		t.Fatalf("Item(7) = %+v, %v", item, ok)
	}
	devils := defs.DevilBook()
	if len(devils) != 1 || devils[0].ID != 9 {
		t.Fatalf("DevilBook() = %+v, want one devil with ID=9", devils)
	}
}

func writeFixture(t *testing.T, dir, name, content string) {
	t.Helper()
	if err := os.WriteFile(filepath.Join(dir, name), []byte(content), 0o644); err != nil {
		t.Fatalf("writing fixture %s: %v", name, err)
	}
}
