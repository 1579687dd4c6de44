// Package serverctx is the channel server's composition root: it builds
// every subsystem package and wires them together in dependency order,
// so nothing in the rest of the tree reaches for a static global (spec.md
// §9 "avoid static globals"). Grounded on la2go's internal/gameserver.
// Server/Handler, which holds one field per subsystem and wires them,
// in dependency order, inside NewServer.
package serverctx

import (
	"context"
	"encoding/gob"
	"fmt"
	"log/slog"
	"math/rand"
	"strconv"
	"time"

	"github.com/imagine-project/channelserver/internal/account"
	"github.com/imagine-project/channelserver/internal/action"
	"github.com/imagine-project/channelserver/internal/chat"
	"github.com/imagine-project/channelserver/internal/config"
	"github.com/imagine-project/channelserver/internal/definitions"
	"github.com/imagine-project/channelserver/internal/event"
	"github.com/imagine-project/channelserver/internal/model"
	"github.com/imagine-project/channelserver/internal/scripthost"
	"github.com/imagine-project/channelserver/internal/session"
	"github.com/imagine-project/channelserver/internal/store"
	"github.com/imagine-project/channelserver/internal/sync"
	"github.com/imagine-project/channelserver/internal/worldlink"
	"github.com/imagine-project/channelserver/internal/zone"
)

// Ctx is the fully-wired set of subsystems one running channel server
// needs (spec.md §9's {store, definitions, zones, sessions, sync,
// world_conn, clock} bag, expanded with every subsystem added since:
// accounts, actions, chat, events, quests, scripts).
type Ctx struct {
	Config      config.ChannelServer
	Log         *slog.Logger
	Store       *store.Store
	Definitions definitions.Definitions
	World       *worldlink.Client
	Sessions    *session.Registry
	Zones       *zone.Manager
	Sync        *sync.Manager
	Accounts    *account.Manager
	Scripts     event.ScriptHost
	Quests      *event.QuestEngine
	DemonQuests *event.DemonQuestEngine
	Events      *event.Runtime
	Actions     *action.Dispatcher
	ZoneActions *action.ZoneAdapter
	Chat        *chat.Router
}

// wallClock is the production event.Clock, backed by the real wall
// clock. event.Clock exists purely so tests can fake time; this is its
// only non-test implementation.
type wallClock struct{}

func (wallClock) Minute() int32 {
	t := time.Now()
	return int32(t.Hour()*60 + t.Minute())
}

func (wallClock) Weekday() int32 { return int32(time.Now().Weekday()) }

func (wallClock) UnixMinute() int64 { return time.Now().Unix() / 60 }

// MoonPhase returns the day (0-27) within a 28-day cycle counted from
// days-since-epoch; no spec-given epoch or cycle length exists, so day 0
// of the Unix epoch is phase 0 by convention.
func (wallClock) MoonPhase() int32 {
	days := time.Now().Unix() / 86400
	return int32(days % 28)
}

// worldNotifier adapts session.Notifier to worldlink.Client: both a
// plain logout and a timeout end a session the same way from the
// world's point of view, a disconnect of that worldCID (spec.md §5,
// "a session with idle time over the timeout is sent to the world as
// disconnected, the same as an explicit logout").
type worldNotifier struct {
	world *worldlink.Client
}

func (n worldNotifier) NotifyLogout(worldCID int64) { n.world.SendLogoutDisconnect(worldCID) }

func (n worldNotifier) NotifyTimeout(worldCID int64) { n.world.SendLogoutDisconnect(worldCID) }

// searchEntryStoreAdapter adapts *store.Store to sync.SearchEntryStore,
// the way searchApplicationNotifier below adapts sessions/world to
// sync.ParentNotifier. The notifier cannot live inside internal/sync:
// internal/worldlink already imports internal/sync (see
// sync.WorldSender), so nothing world-facing can be built there.
type searchEntryStoreAdapter struct {
	st *store.Store
}

func (a searchEntryStoreAdapter) UpsertSearchEntry(e model.SearchEntry) {
	rec := e
	store.Put(a.st, rec.UUID, &rec)
}

func (a searchEntryStoreAdapter) RemoveSearchEntry(uuid model.UUID) {
	store.Unload[model.SearchEntry](a.st, uuid)
}

func (a searchEntryStoreAdapter) SearchEntry(uuid model.UUID) (model.SearchEntry, bool) {
	rec, err := store.Load[model.SearchEntry](context.Background(), a.st, uuid, false)
	if err != nil || rec == nil {
		return model.SearchEntry{}, false
	}
	return *rec, true
}

// searchApplicationPacket is the outbound shape delivered to a search
// entry's source character when one of its postings receives an
// application (spec.md §4.D "notifies its parent's source character"),
// mirroring internal/chat's chatPacket/tellPacket convention of a small
// gob-registered struct per relay payload.
type searchApplicationPacket struct {
	Entry model.SearchEntry
}

func init() {
	gob.Register(searchApplicationPacket{})
}

// searchApplicationNotifier adapts Sessions/World to sync.ParentNotifier.
// Only a source character with a session on THIS channel can be relayed
// to directly; a source character logged in elsewhere is reachable only
// through the world's own fan-out of the SearchEntry sync record itself,
// so this is a best-effort local nudge, not the only delivery path.
type searchApplicationNotifier struct {
	sessions *session.Registry
	world    *worldlink.Client
	log      *slog.Logger
}

func (n searchApplicationNotifier) NotifySearchApplication(sourceCharacterID model.UUID, e model.SearchEntry) {
	s, ok := n.sessions.ByCharacterID(sourceCharacterID)
	if !ok {
		return
	}
	inner := worldlink.Envelope{Type: "SEARCH_APPLICATION", Payload: searchApplicationPacket{Entry: e}}
	if err := n.world.SendRelay(s.WorldCID, worldlink.RelayCharacter, s.WorldCID, true, inner); err != nil {
		n.log.Warn("serverctx: relay search application", "character", sourceCharacterID, "error", err)
	}
}

// Build wires every subsystem in dependency order and returns the
// composed Ctx. eventDefs/questDefs/demonQuestDefs/groupActions are
// loaded by the caller via internal/content.LoadDir before calling
// Build; content loading stays outside serverctx so Build's signature
// doesn't grow a content-directory path alongside its already-loaded
// definitions.Definitions parameter.
func Build(
	cfg config.ChannelServer,
	backend store.Backend,
	defs definitions.Definitions,
	eventDefs []*event.Def,
	questDefs []*event.QuestDef,
	demonQuestDefs []*event.DemonQuestDef,
	groupActions action.GroupLookup,
	log *slog.Logger,
) (*Ctx, error) {
	if log == nil {
		log = slog.Default()
	}

	st := store.New(backend)

	conn, err := worldlink.Dial(fmt.Sprintf("%s:%d", cfg.WorldHost, cfg.WorldPort), log)
	if err != nil {
		return nil, fmt.Errorf("serverctx: dial world: %w", err)
	}
	world := worldlink.NewClient(conn, log)

	sessions := session.NewRegistry(worldNotifier{world: world})

	// Two-phase: zone.Manager needs an ActionRunner before it exists,
	// action.Dispatcher needs *zone.Manager before it has one. Start
	// the manager with a nil runner, build the dispatcher/adapter
	// against it, then bind the adapter back in.
	zones := zone.NewManager(nil)

	syncMgr := sync.NewManager(world)

	quests := event.NewQuestEngine(st, questDefs)
	demonQuests := event.NewDemonQuestEngine(st, demonQuestDefs, defs, rand.New(rand.NewSource(time.Now().UnixNano())))

	var scripts event.ScriptHost = scripthost.NoOp{}
	if cfg.ScriptsDir != "" {
		lua, err := scripthost.NewLuaHost(cfg.ScriptsDir, log)
		if err != nil {
			return nil, fmt.Errorf("serverctx: lua scripts: %w", err)
		}
		scripts = lua
	}

	graph := event.NewGraph(eventDefs)

	// Two-phase again: Runtime's ActionRunner is the Dispatcher, but
	// Dispatcher.runtime can't be set until the Runtime exists.
	dispatcher := action.NewDispatcher(st, zones, quests, nil, defs)
	zoneAdapter := action.NewZoneAdapter(dispatcher, groupActions)
	zones.SetActionRunner(zoneAdapter)

	runtime := event.NewRuntime(graph, dispatcher, scripts, quests, demonQuests, wallClock{})
	dispatcher.SetRuntime(runtime)

	accounts := account.NewManager(st, sessions, world, runtime)
	accounts.SetExpectedVersion(cfg.ClientVersion)

	chatRouter := chat.NewRouter(zones, world, log)

	// Register every world-synced record type's ObjectConfig (spec.md
	// §4.D's per-type behavior table). Order doesn't matter to
	// sync.Manager.Register itself, but CharacterLogin's config needs
	// accounts, so it's registered after accounts exists.
	syncMgr.Register("SearchEntry", sync.NewSearchEntryConfig(
		searchEntryStoreAdapter{st: st},
		searchApplicationNotifier{sessions: sessions, world: world, log: log},
	))
	syncMgr.Register("StatusEffect", sync.NewStatusEffectConfig(st, sessions))
	syncMgr.Register("InstanceAccess", sync.NewInstanceAccessConfig(zones, syncMgr))
	syncMgr.Register("CharacterLogin", sync.NewCharacterLoginConfig(accounts))

	pentalphaTracker := sync.NewActiveTracker()
	syncMgr.Register("PentalphaMatch", sync.NewActiveWindowConfig(
		pentalphaTracker,
		func(m model.PentalphaMatch) string { return strconv.Itoa(int(m.TeamID)) },
		func(m model.PentalphaMatch) int64 { return m.EndTime },
		func(m model.PentalphaMatch) model.UUID { return m.UUID },
	))

	ubTracker := sync.NewActiveTracker()
	syncMgr.Register("UBTournament", sync.NewActiveWindowConfig(
		ubTracker,
		func(m model.UBTournament) string { return m.Name },
		func(m model.UBTournament) int64 { return m.EndTime },
		func(m model.UBTournament) model.UUID { return m.UUID },
	))

	// The rest of spec.md §4.D's minimum record set has no per-type
	// behavior beyond keeping the Store's cached snapshot current.
	syncMgr.Register("Account", sync.NewPassthroughConfig(st, "lobby", func(a model.Account) model.UUID { return a.UUID }))
	syncMgr.Register("CharacterProgress", sync.NewPassthroughConfig(st, "world", func(p model.CharacterProgress) model.UUID { return p.UUID }))
	syncMgr.Register("Match", sync.NewPassthroughConfig(st, "world", func(m model.Match) model.UUID { return m.UUID }))
	syncMgr.Register("MatchEntry", sync.NewPassthroughConfig(st, "world", func(e model.MatchEntry) model.UUID { return e.UUID }))
	syncMgr.Register("EventCounter", sync.NewPassthroughConfig(st, "world", func(c model.EventCounter) model.UUID { return c.UUID }))
	syncMgr.Register("PentalphaEntry", sync.NewPassthroughConfig(st, "world", func(e model.PentalphaEntry) model.UUID { return e.UUID }))
	syncMgr.Register("PvPMatch", sync.NewPassthroughConfig(st, "world", func(m model.PvPMatch) model.UUID { return m.UUID }))
	syncMgr.Register("UBResult", sync.NewPassthroughConfig(st, "world", func(r model.UBResult) model.UUID { return r.UUID }))

	return &Ctx{
		Config:      cfg,
		Log:         log,
		Store:       st,
		Definitions: defs,
		World:       world,
		Sessions:    sessions,
		Zones:       zones,
		Sync:        syncMgr,
		Accounts:    accounts,
		Scripts:     scripts,
		Quests:      quests,
		DemonQuests: demonQuests,
		Events:      runtime,
		Actions:     dispatcher,
		ZoneActions: zoneAdapter,
		Chat:        chatRouter,
	}, nil
}

// Shutdown releases Ctx's external connections.
func (c *Ctx) Shutdown(ctx context.Context) error {
	return c.World.Close()
}
