package definitions

import (
	"fmt"
	"log/slog"
	"os"
	"path/filepath"

	"gopkg.in/yaml.v3"
)

// fixtures is the on-disk shape of the definitions directory: one YAML
// file per table, named after the table. Missing files simply leave
// that table empty rather than failing the load, since a channel
// server running against a partial content set (e.g. in tests) should
// still boot.
type fixtures struct {
	Items          []Item          `yaml:"items"`
	Devils         []Devil         `yaml:"devils"`
	Skills         []Skill         `yaml:"skills"`
	Statuses       []Status        `yaml:"statuses"`
	Zones          []ZoneDef       `yaml:"zones"`
	Spots          []Spot          `yaml:"spots"`
	Quests         []QuestDef      `yaml:"quests"`
	ShopProducts   []ShopProduct   `yaml:"shop_products"`
	Enchants       []Enchant       `yaml:"enchants"`
	Syntheses      []Synthesis     `yaml:"syntheses"`
	ExpertClasses  []ExpertClass   `yaml:"expert_classes"`
	TimeLimits     []TimeLimit     `yaml:"time_limits"`
	GuardianLevels []GuardianLevel `yaml:"guardian_levels"`
	Tokuseis       []Tokusei       `yaml:"tokuseis"`
	FusionRanges   []FusionRange   `yaml:"fusion_ranges"`

	// FunctionIDSkills maps a tag (e.g. "hotbar_default") to the skill
	// IDs bound to it, per spec.md §4.A functionIdSkills(tag).
	FunctionIDSkills map[string][]int32 `yaml:"function_id_skills"`
}

// table is the registry built from a single fixtures file, grounded on
// la2go's internal/data loader idiom (global map + accessor) but kept
// instance-scoped rather than package-global so tests can build
// independent Definitions without clobbering each other.
type table struct {
	items         map[int32]Item
	devils        map[int32]Devil
	skills        map[int32]Skill
	statuses      map[int32]Status
	zones         map[int32]ZoneDef
	spots         map[spotKey]Spot
	quests        map[int32]QuestDef
	shopProducts  map[int32]ShopProduct
	enchants      map[int32]Enchant
	syntheses     map[int32]Synthesis
	expertClasses map[int32]ExpertClass
	timeLimits    map[int32]TimeLimit
	guardians     map[int32]GuardianLevel
	tokuseis      map[int32]Tokusei
	fusionRanges  map[int32][]FusionRange
	functionIDs   map[string][]int32
}

type spotKey struct {
	dynamicMapID int32
	spotID       int32
}

var _ Definitions = (*table)(nil)

// LoadDir builds a Definitions from every *.yaml file in dir matching
// the fixtures shape. Files are merged: later files may add entries to
// tables earlier files left empty, but a table populated by an earlier
// file is not overwritten by a later empty one.
func LoadDir(dir string) (Definitions, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, fmt.Errorf("definitions: reading %s: %w", dir, err)
	}

	merged := fixtures{FunctionIDSkills: map[string][]int32{}}
	loaded := 0
	for _, e := range entries {
		if e.IsDir() || filepath.Ext(e.Name()) != ".yaml" {
			continue
		}
		raw, err := os.ReadFile(filepath.Join(dir, e.Name()))
		if err != nil {
			return nil, fmt.Errorf("definitions: reading %s: %w", e.Name(), err)
		}
		var f fixtures
		if err := yaml.Unmarshal(raw, &f); err != nil {
			return nil, fmt.Errorf("definitions: parsing %s: %w", e.Name(), err)
		}
		mergeFixtures(&merged, &f)
		loaded++
	}

	t := buildTable(&merged)
	slog.Info("loaded definitions",
		"files", loaded,
		"items", len(t.items), "devils", len(t.devils), "skills", len(t.skills),
		"zones", len(t.zones), "quests", len(t.quests))
	return t, nil
}

func mergeFixtures(dst, src *fixtures) {
	dst.Items = append(dst.Items, src.Items...)
	dst.Devils = append(dst.Devils, src.Devils...)
	dst.Skills = append(dst.Skills, src.Skills...)
	dst.Statuses = append(dst.Statuses, src.Statuses...)
	dst.Zones = append(dst.Zones, src.Zones...)
	dst.Spots = append(dst.Spots, src.Spots...)
	dst.Quests = append(dst.Quests, src.Quests...)
	dst.ShopProducts = append(dst.ShopProducts, src.ShopProducts...)
	dst.Enchants = append(dst.Enchants, src.Enchants...)
	dst.Syntheses = append(dst.Syntheses, src.Syntheses...)
	dst.ExpertClasses = append(dst.ExpertClasses, src.ExpertClasses...)
	dst.TimeLimits = append(dst.TimeLimits, src.TimeLimits...)
	dst.GuardianLevels = append(dst.GuardianLevels, src.GuardianLevels...)
	dst.Tokuseis = append(dst.Tokuseis, src.Tokuseis...)
	dst.FusionRanges = append(dst.FusionRanges, src.FusionRanges...)
	for k, v := range src.FunctionIDSkills {
		dst.FunctionIDSkills[k] = append(dst.FunctionIDSkills[k], v...)
	}
}

// FromFixtures builds a Definitions directly from an in-memory fixture
// set, bypassing disk IO. Used by tests and by callers that generate
// content programmatically. spots is variadic since most callers don't
// need it.
func FromFixtures(items []Item, devils []Devil, skills []Skill, zones []ZoneDef, quests []QuestDef, spots ...Spot) Definitions {
	f := fixtures{Items: items, Devils: devils, Skills: skills, Zones: zones, Quests: quests, Spots: spots}
	return buildTable(&f)
}

// FromShopFixtures builds a Definitions carrying only item and shop
// product tables, for tests exercising SHOP_BUY without the rest of
// FromFixtures' positional parameters.
func FromShopFixtures(items []Item, products []ShopProduct) Definitions {
	return buildTable(&fixtures{Items: items, ShopProducts: products})
}

func buildTable(f *fixtures) *table {
	t := &table{
		items:         make(map[int32]Item, len(f.Items)),
		devils:        make(map[int32]Devil, len(f.Devils)),
		skills:        make(map[int32]Skill, len(f.Skills)),
		statuses:      make(map[int32]Status, len(f.Statuses)),
		zones:         make(map[int32]ZoneDef, len(f.Zones)),
		spots:         make(map[spotKey]Spot, len(f.Spots)),
		quests:        make(map[int32]QuestDef, len(f.Quests)),
		shopProducts:  make(map[int32]ShopProduct, len(f.ShopProducts)),
		enchants:      make(map[int32]Enchant, len(f.Enchants)),
		syntheses:     make(map[int32]Synthesis, len(f.Syntheses)),
		expertClasses: make(map[int32]ExpertClass, len(f.ExpertClasses)),
		timeLimits:    make(map[int32]TimeLimit, len(f.TimeLimits)),
		guardians:     make(map[int32]GuardianLevel, len(f.GuardianLevels)),
		tokuseis:      make(map[int32]Tokusei, len(f.Tokuseis)),
		fusionRanges:  make(map[int32][]FusionRange, len(f.FusionRanges)),
		functionIDs:   f.FunctionIDSkills,
	}
	for _, v := range f.Items {
		t.items[v.ID] = v
	}
	for _, v := range f.Devils {
		t.devils[v.ID] = v
	}
	for _, v := range f.Skills {
		t.skills[v.ID] = v
	}
	for _, v := range f.Statuses {
		t.statuses[v.ID] = v
	}
	for _, v := range f.Zones {
		t.zones[v.ID] = v
	}
	for _, v := range f.Spots {
		t.spots[spotKey{v.DynamicMapID, v.SpotID}] = v
	}
	for _, v := range f.Quests {
		t.quests[v.ID] = v
	}
	for _, v := range f.ShopProducts {
		t.shopProducts[v.ID] = v
	}
	for _, v := range f.Enchants {
		t.enchants[v.ID] = v
	}
	for _, v := range f.Syntheses {
		t.syntheses[v.ID] = v
	}
	for _, v := range f.ExpertClasses {
		t.expertClasses[v.ID] = v
	}
	for _, v := range f.TimeLimits {
		t.timeLimits[v.ID] = v
	}
	for _, v := range f.GuardianLevels {
		t.guardians[v.RaceID] = v
	}
	for _, v := range f.Tokuseis {
		t.tokuseis[v.ID] = v
	}
	for _, v := range f.FusionRanges {
		t.fusionRanges[v.RaceID] = append(t.fusionRanges[v.RaceID], v)
	}
	if t.functionIDs == nil {
		t.functionIDs = map[string][]int32{}
	}
	return t
}

func (t *table) Item(id int32) (Item, bool)     { v, ok := t.items[id]; return v, ok }
func (t *table) Devil(id int32) (Devil, bool)   { v, ok := t.devils[id]; return v, ok }
func (t *table) Skill(id int32) (Skill, bool)   { v, ok := t.skills[id]; return v, ok }
func (t *table) Status(id int32) (Status, bool) { v, ok := t.statuses[id]; return v, ok }
func (t *table) Zone(id int32) (ZoneDef, bool)  { v, ok := t.zones[id]; return v, ok }

func (t *table) Spot(dynamicMapID, spotID int32) (Spot, bool) {
	v, ok := t.spots[spotKey{dynamicMapID, spotID}]
	return v, ok
}

func (t *table) Quest(id int32) (QuestDef, bool)             { v, ok := t.quests[id]; return v, ok }
func (t *table) ShopProduct(id int32) (ShopProduct, bool)    { v, ok := t.shopProducts[id]; return v, ok }
func (t *table) Enchant(id int32) (Enchant, bool)            { v, ok := t.enchants[id]; return v, ok }
func (t *table) Synthesis(id int32) (Synthesis, bool)        { v, ok := t.syntheses[id]; return v, ok }
func (t *table) ExpertClass(id int32) (ExpertClass, bool)    { v, ok := t.expertClasses[id]; return v, ok }
func (t *table) TimeLimit(id int32) (TimeLimit, bool)        { v, ok := t.timeLimits[id]; return v, ok }
func (t *table) GuardianLevel(raceID int32) (GuardianLevel, bool) {
	v, ok := t.guardians[raceID]
	return v, ok
}
func (t *table) Tokusei(id int32) (Tokusei, bool) { v, ok := t.tokuseis[id]; return v, ok }

func (t *table) DevilBook() []Devil {
	out := make([]Devil, 0, len(t.devils))
	for _, v := range t.devils {
		out = append(out, v)
	}
	return out
}

func (t *table) FusionRanges(raceID int32) []FusionRange {
	return t.fusionRanges[raceID]
}

func (t *table) FunctionIDSkills(tag string) []int32 {
	return t.functionIDs[tag]
}
