// Package action implements the action dispatcher (spec.md §4.H
// ActionDispatcher): the fan-out executor every event choice, zone
// ON_ENTER/ON_LEAVE hook and flag-set trigger ultimately calls into.
// Grounded on la2go's internal/game/itemhandler registry idiom
// (Register(name, handler)/Get(name)) generalized from item-use
// handlers to the twenty-two action types spec.md §4.H names, and on
// original_source/server/channel/src/ActionManager.cpp's fan-out
// semantics (run every action in a list; a source-context scopes who
// the action applies to; a location scopes where it broadcasts).
package action

import (
	"context"
	"fmt"
	"log/slog"
	"math/rand"
	"time"

	"github.com/imagine-project/channelserver/internal/definitions"
	"github.com/imagine-project/channelserver/internal/event"
	"github.com/imagine-project/channelserver/internal/model"
	psession "github.com/imagine-project/channelserver/internal/session"
	"github.com/imagine-project/channelserver/internal/store"
	"github.com/imagine-project/channelserver/internal/zone"
)

// SourceContext scopes who an action list applies to (spec.md §4.H
// "source_context").
type SourceContext int32

const (
	SourceOnly SourceContext = iota
	SourceParty
	SourceAll
)

// Location scopes where an action's effects broadcast (spec.md §4.H
// "location").
type Location int32

const (
	LocationZone Location = iota
	LocationInstance
	LocationChannel
	LocationWorld
)

// Context is everything a single action invocation needs: the
// triggering character, the zone it fired in (nil for channel/world-
// scoped triggers), and the source/location scoping of the action list
// it belongs to.
type Context struct {
	CharacterID model.UUID
	Zone        *zone.Zone
	Source      SourceContext
	Location    Location

	// Session, when set by the caller, is the live zone.Session for
	// CharacterID — needed by handlers that call zone.Manager.EnterZone
	// (ZONE_CHANGE). Handlers fall back to a minimal synthesized session
	// when nil, since most action types don't need one.
	Session *zone.Session
	// PlayerSession, when set, is the live internal/session.Session —
	// needed by START_EVENT to drive event.Runtime.HandleEvent.
	PlayerSession *psession.Session
	// EvalContext, when set, lets a handler re-run condition-shaped
	// logic (e.g. a FORK-like guarded branch inside UPDATE_QUEST). Most
	// handlers don't need it.
	EvalContext *event.EvalContext
}

// Handler executes one action type against params and ctx.
type Handler func(ctx context.Context, actx *Context, params map[string]string) error

var registry = map[string]Handler{}

// Register adds a handler for an action type name, mirroring
// itemhandler.Register.
func Register(name string, h Handler) { registry[name] = h }

// Get returns the handler for name, or nil if unregistered.
func Get(name string) Handler { return registry[name] }

// Dispatcher runs event.ActionRef/zone flag-trigger action lists
// against the registry, injecting the narrow dependencies (store, zone
// manager, quest engine, event runtime) individual handlers need.
type Dispatcher struct {
	store   *store.Store
	zones   *zone.Manager
	quests  *event.QuestEngine
	runtime *event.Runtime
	defs    definitions.Definitions
	rng     *rand.Rand

	// handlers starts as a copy of the package-level stateless registry
	// plus this Dispatcher's own bound handlers for action types that
	// need store/zones/quests/runtime access (spec.md §4.H ZONE_CHANGE,
	// START_EVENT, ZONE_INSTANCE, SPAWN, ADD_REMOVE_ITEMS,
	// ADD_REMOVE_STATUS, UPDATE_COMP, GRANT_SKILLS, CREATE_LOOT, GRANT_XP,
	// UPDATE_QUEST).
	handlers map[string]Handler
}

func NewDispatcher(st *store.Store, zones *zone.Manager, quests *event.QuestEngine, runtime *event.Runtime, defs definitions.Definitions) *Dispatcher {
	d := &Dispatcher{
		store: st, zones: zones, quests: quests, runtime: runtime, defs: defs,
		rng:      rand.New(rand.NewSource(time.Now().UnixNano())),
		handlers: make(map[string]Handler, len(registry)+16),
	}
	for name, h := range registry {
		d.handlers[name] = h
	}
	d.registerBoundHandlers()
	return d
}

// SetRuntime rebinds the event.Runtime after construction, for callers
// that need a *Dispatcher to build the Runtime itself (Runtime's
// ActionRunner is the Dispatcher) before the Runtime exists — the same
// two-phase construction zone.Manager.SetActionRunner uses.
func (d *Dispatcher) SetRuntime(runtime *event.Runtime) {
	d.runtime = runtime
}

// RunActions satisfies event.ActionRunner: runs every ref against an
// actx whose CharacterID is source, stopping at the first handler error
// (spec.md §4.H "an action list runs in order; a failed action aborts
// the remainder").
func (d *Dispatcher) RunActions(source model.UUID, refs []event.ActionRef) error {
	return d.run(context.Background(), &Context{CharacterID: source}, refs)
}

// RunActionsIn is RunActions scoped to a zone, used by zone-triggered
// action lists (ON_ENTER/ON_LEAVE/flag triggers).
func (d *Dispatcher) RunActionsIn(source model.UUID, z *zone.Zone, refs []event.ActionRef) error {
	return d.run(context.Background(), &Context{CharacterID: source, Zone: z}, refs)
}

func (d *Dispatcher) run(ctx context.Context, actx *Context, refs []event.ActionRef) error {
	for _, ref := range refs {
		h := d.handlers[ref.Type]
		if h == nil {
			slog.Warn("action: no handler registered", "type", ref.Type)
			continue
		}
		if err := h(ctx, actx, ref.Params); err != nil {
			return fmt.Errorf("action: %s: %w", ref.Type, err)
		}
	}
	return nil
}

func init() {
	Register("SET_HOMEPOINT", handleSetHomepoint)
	Register("DISPLAY_MESSAGE", handleDisplayMessage)
	Register("UPDATE_FLAG", handleUpdateFlag)
	Register("UPDATE_ZONE_FLAGS", handleUpdateZoneFlags)
	Register("UPDATE_LNC", handleUpdateLNC)
	Register("UPDATE_POINTS", handleUpdatePoints)
	Register("SET_NPC_STATE", handleSetNPCState)
	Register("STAGE_EFFECT", handleStageEffect)
	Register("SPECIAL_DIRECTION", handleSpecialDirection)
	Register("PLAY_BGM", handlePlaySoundLike("bgm"))
	Register("PLAY_SOUND_EFFECT", handlePlaySoundLike("sfx"))
}
