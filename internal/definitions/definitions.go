// Package definitions implements the read-only game-content lookup
// service (spec.md §4.A). It is the channel server's only dependency on
// item/demon/skill/zone content tables; every lookup is optional (a
// missing ID returns ok=false rather than an error, since content gaps
// are a data problem, not a runtime fault).
package definitions

// Item, Devil, Skill, Status, ZoneDef, Spot, QuestDef, ShopProduct,
// Enchant, Synthesis, ExpertClass, TimeLimit, GuardianLevel, Tokusei and
// FusionRange are immutable content records. Field sets are deliberately
// narrow: only what the channel server's own components (zone, event,
// action, account) read, per spec.md §1 ("Game-content definitions ...
// consumed as immutable lookup tables").
type Item struct {
	ID           int32 `yaml:"id"`
	MaxStack     int32 `yaml:"max_stack"`
	CategoryMain int32 `yaml:"category_main"`
	CategorySub  int32 `yaml:"category_sub"`
}

type Devil struct {
	ID     int32 `yaml:"id"`
	RaceID int32 `yaml:"race_id"`
}

type Skill struct {
	ID int32 `yaml:"id"`
}

type Status struct {
	ID int32 `yaml:"id"`
}

type ZoneDef struct {
	ID   int32  `yaml:"id"`
	Name string `yaml:"name"`
}

type Spot struct {
	DynamicMapID int32       `yaml:"dynamic_map_id"`
	SpotID       int32       `yaml:"spot_id"`
	Points       []SpotPoint `yaml:"points"`
}

type SpotPoint struct {
	X   float32 `yaml:"x"`
	Y   float32 `yaml:"y"`
	Rot float32 `yaml:"rot"`
}

type QuestDef struct {
	ID         int32 `yaml:"id"`
	Repeatable bool  `yaml:"repeatable"`
	PhaseCount int32 `yaml:"phase_count"`
}

// ShopProduct is a purchasable shop entry. CPCost marks a CP-billed
// product (delivered to the post box) rather than a macca/inventory one
// (original_source/server/channel/src/packets/game/ShopBuy.cpp picks
// this off the item's own flag rather than trusting a zero CP cost, but
// this lookup table folds that decision into the fixture itself).
// Stack is the fixed quantity granted per CP purchase; inventory
// purchases instead grant `quantity` from SHOP_BUY's own params.
type ShopProduct struct {
	ID       int32 `yaml:"id"`
	Price    int64 `yaml:"price"`
	ItemType int32 `yaml:"item_type"`
	Stack    int32 `yaml:"stack"`
	CPCost   bool  `yaml:"cp_cost"`
}

type Enchant struct {
	ID int32 `yaml:"id"`
}
type Synthesis struct {
	ID int32 `yaml:"id"`
}
type ExpertClass struct {
	ID int32 `yaml:"id"`
}
type TimeLimit struct {
	ID       int32 `yaml:"id"`
	Duration int64 `yaml:"duration"` // seconds
}
type GuardianLevel struct {
	RaceID int32 `yaml:"race_id"`
	Level  int32 `yaml:"level"`
}
type Tokusei struct {
	ID int32 `yaml:"id"`
}
type FusionRange struct {
	RaceID   int32 `yaml:"race_id"`
	MinLevel int32 `yaml:"min_level"`
	MaxLevel int32 `yaml:"max_level"`
}

// Definitions is the read-only lookup surface every other component
// depends on. All methods return (value, ok); ok=false means "no such
// content record" (spec.md §4.A "All returns are optional").
type Definitions interface {
	Item(id int32) (Item, bool)
	Devil(id int32) (Devil, bool)
	Skill(id int32) (Skill, bool)
	Status(id int32) (Status, bool)
	Zone(id int32) (ZoneDef, bool)
	Spot(dynamicMapID, spotID int32) (Spot, bool)
	Quest(id int32) (QuestDef, bool)
	ShopProduct(id int32) (ShopProduct, bool)
	Enchant(id int32) (Enchant, bool)
	Synthesis(id int32) (Synthesis, bool)
	ExpertClass(id int32) (ExpertClass, bool)
	TimeLimit(id int32) (TimeLimit, bool)
	DevilBook() []Devil
	GuardianLevel(raceID int32) (GuardianLevel, bool)
	Tokusei(id int32) (Tokusei, bool)
	FusionRanges(raceID int32) []FusionRange
	FunctionIDSkills(tag string) []int32
}
