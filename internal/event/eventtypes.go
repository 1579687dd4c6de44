package event

import "github.com/imagine-project/channelserver/internal/model"

// EventType enumerates the event node kinds spec.md §4.G lists: simple
// dialog, scripted multi-party dialog, branching prompts, cutscenes,
// action-only nodes, menus, one-shot directions, ITime-scoped menus and
// conditional forks.
type EventType int32

const (
	EventNPCMessage EventType = iota
	EventExNPCMessage
	EventMultitalk
	EventPrompt
	EventPlayScene
	EventPerformActions
	EventOpenMenu
	EventDirection
	EventITime
	EventFork
)

// ActionRef names one action-list entry to run when a node or branch
// fires. Concrete action types/params are interpreted by internal/action;
// event only carries the reference through.
type ActionRef struct {
	Type   string            `yaml:"type"`
	Params map[string]string `yaml:"params"`
}

// Choice is one branch option of a PROMPT/MULTITALK/OPEN_MENU node.
type Choice struct {
	Index      int32       `yaml:"index"`
	Conditions []Condition `yaml:"conditions"`
	Next       string      `yaml:"next"`
	Actions    []ActionRef `yaml:"actions"`
	Disabled   bool        `yaml:"-"` // pre-computed from session.EventInstance.DisabledChoices at dispatch time
}

// Def is one node of the event graph (spec.md §4.G "Event definitions").
type Def struct {
	ID           string       `yaml:"id"`
	Type         EventType    `yaml:"type"`
	Conditions   []Condition  `yaml:"conditions"`
	Choices      []Choice     `yaml:"choices"`
	Actions      []ActionRef  `yaml:"actions"`
	Next         string       `yaml:"next"`
	NoInterrupt  bool         `yaml:"no_interrupt"`
	ITimeID      int32        `yaml:"itime_id"`
	ITimeChoices ITimeChoices `yaml:"itime_choices"`
	Fork         []ForkBranch `yaml:"fork"`
}

// ForkBranch is one FORK node arm: the first branch whose conditions
// all pass (AND) is taken.
type ForkBranch struct {
	Conditions []Condition `yaml:"conditions"`
	Next       string      `yaml:"next"`
}

// Graph looks up event node definitions by ID, built once from content
// and shared read-only across sessions.
type Graph struct {
	defs map[string]*Def
}

func NewGraph(defs []*Def) *Graph {
	g := &Graph{defs: make(map[string]*Def, len(defs))}
	for _, d := range defs {
		g.defs[d.ID] = d
	}
	return g
}

func (g *Graph) Get(id string) (*Def, bool) {
	d, ok := g.defs[id]
	return d, ok
}

// ActionRunner delegates PERFORM_ACTIONS and choice-selected action
// lists to internal/action without event importing it directly (mirrors
// zone.ActionRunner's narrow-interface idiom).
type ActionRunner interface {
	RunActions(source model.UUID, refs []ActionRef) error
}
