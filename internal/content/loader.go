// Package content loads the script/event-graph side of game content:
// event nodes, quest and demon-quest definitions, and zone-group action
// lists. It is kept separate from internal/definitions because these
// shapes are event-graph content (spec.md §4.G), not the flat lookup
// tables definitions.LoadDir serves, but it follows the same merge-
// across-files fixture idiom (internal/definitions/loader.go).
package content

import (
	"fmt"
	"log/slog"
	"os"
	"path/filepath"

	"gopkg.in/yaml.v3"

	"github.com/imagine-project/channelserver/internal/action"
	"github.com/imagine-project/channelserver/internal/event"
)

// GroupAction binds one named action list to the zone definition it
// fires in, the fixture shape action.GroupLookup resolves at runtime
// (e.g. a zone's ON_ENTER hook or a flag-set trigger name).
type GroupAction struct {
	ZoneDefID int32             `yaml:"zone_def_id"`
	Name      string            `yaml:"name"`
	Actions   []event.ActionRef `yaml:"actions"`
}

// fixtures is the on-disk shape of the content directory: one YAML file
// per table, named after the table, mirroring internal/definitions'
// fixtures shape.
type fixtures struct {
	Events       []event.Def           `yaml:"events"`
	Quests       []event.QuestDef      `yaml:"quests"`
	DemonQuests  []event.DemonQuestDef `yaml:"demon_quests"`
	GroupActions []GroupAction         `yaml:"group_actions"`
}

// Content is the loaded result: pointer slices (event.NewGraph,
// event.NewQuestEngine and event.NewDemonQuestEngine all key off *Def/
// *QuestDef/*DemonQuestDef) plus a ready-to-use action.GroupLookup over
// the merged group-action table.
type Content struct {
	Events      []*event.Def
	Quests      []*event.QuestDef
	DemonQuests []*event.DemonQuestDef
	GroupLookup action.GroupLookup
}

type groupKey struct {
	zoneDefID int32
	name      string
}

// LoadDir reads every *.yaml file in dir matching the fixtures shape and
// merges them, the same append-only merge LoadDir in internal/definitions
// uses. A directory with no files yields an empty, harmless Content
// (every lookup method returns ok=false / nil) rather than failing, so a
// server can still boot without content wired up yet.
func LoadDir(dir string) (*Content, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		if os.IsNotExist(err) {
			slog.Warn("content: directory does not exist, booting with no event/quest content", "dir", dir)
			return emptyContent(), nil
		}
		return nil, fmt.Errorf("content: reading %s: %w", dir, err)
	}

	var merged fixtures
	loaded := 0
	for _, e := range entries {
		if e.IsDir() || filepath.Ext(e.Name()) != ".yaml" {
			continue
		}
		raw, err := os.ReadFile(filepath.Join(dir, e.Name()))
		if err != nil {
			return nil, fmt.Errorf("content: reading %s: %w", e.Name(), err)
		}
		var f fixtures
		if err := yaml.Unmarshal(raw, &f); err != nil {
			return nil, fmt.Errorf("content: parsing %s: %w", e.Name(), err)
		}
		merged.Events = append(merged.Events, f.Events...)
		merged.Quests = append(merged.Quests, f.Quests...)
		merged.DemonQuests = append(merged.DemonQuests, f.DemonQuests...)
		merged.GroupActions = append(merged.GroupActions, f.GroupActions...)
		loaded++
	}

	c := build(&merged)
	slog.Info("loaded event/quest content",
		"files", loaded, "events", len(c.Events), "quests", len(c.Quests),
		"demon_quests", len(c.DemonQuests))
	return c, nil
}

func emptyContent() *Content {
	return build(&fixtures{})
}

func build(f *fixtures) *Content {
	events := make([]*event.Def, len(f.Events))
	for i := range f.Events {
		events[i] = &f.Events[i]
	}
	quests := make([]*event.QuestDef, len(f.Quests))
	for i := range f.Quests {
		quests[i] = &f.Quests[i]
	}
	demonQuests := make([]*event.DemonQuestDef, len(f.DemonQuests))
	for i := range f.DemonQuests {
		demonQuests[i] = &f.DemonQuests[i]
	}

	groups := make(map[groupKey][]event.ActionRef, len(f.GroupActions))
	for _, g := range f.GroupActions {
		groups[groupKey{g.ZoneDefID, g.Name}] = g.Actions
	}
	lookup := action.GroupLookup(func(zoneDefID int32, name string) []event.ActionRef {
		return groups[groupKey{zoneDefID, name}]
	})

	return &Content{Events: events, Quests: quests, DemonQuests: demonQuests, GroupLookup: lookup}
}
