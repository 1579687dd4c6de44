package scripthost

import (
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/sirupsen/logrus"
	lua "github.com/yuin/gopher-lua"

	"github.com/imagine-project/channelserver/internal/event"
)

// LuaHost wraps a single gopher-lua VM loaded from a script directory.
// Scripts expose three global functions, one per ScriptHost method:
// eval_condition(id, params, ctx), eval_branch(id, params, ctx),
// eval_transform(id, params, ctx). A script that doesn't recognize id
// returns nil, which LuaHost reports back as "not handled" (ok=false)
// so the caller falls through to its own default.
//
// Grounded on l1jgo-whale's internal/scripting.Engine: one *lua.LState
// for the process, scripts loaded once at startup from subdirectories,
// table-packed call contexts, Protect:true calls that degrade to a safe
// default rather than panicking the caller on a script error. Unlike
// that engine (single-goroutine game loop access), this channel server
// dispatches conditions from many connection goroutines concurrently,
// so every entry point here takes callMu.
type LuaHost struct {
	callMu sync.Mutex
	vm     *lua.LState
	log    *slog.Logger

	// trace logs every script call (function, id, params, outcome,
	// latency) on its own logger rather than the ambient slog one, so a
	// deployment can turn this firehose on or off — and route it
	// wherever it wants (file, syslog, collector) — independently of
	// the rest of the server's logging.
	trace *logrus.Entry
}

// NewLuaHost loads every .lua file directly under scriptsDir (no
// subdirectory convention imposed; content organizes its own scripts
// directory) into a fresh VM.
func NewLuaHost(scriptsDir string, log *slog.Logger) (*LuaHost, error) {
	if log == nil {
		log = slog.Default()
	}
	trace := logrus.New()
	trace.SetLevel(logrus.TraceLevel)
	vm := lua.NewState(lua.Options{SkipOpenLibs: false})
	h := &LuaHost{vm: vm, log: log, trace: trace.WithField("component", "scripthost")}
	if err := h.loadDir(scriptsDir); err != nil {
		vm.Close()
		return nil, fmt.Errorf("scripthost: %w", err)
	}
	return h, nil
}

func (h *LuaHost) loadDir(dir string) error {
	entries, err := os.ReadDir(dir)
	if err != nil {
		if os.IsNotExist(err) {
			return nil
		}
		return err
	}
	for _, entry := range entries {
		if entry.IsDir() || filepath.Ext(entry.Name()) != ".lua" {
			continue
		}
		path := filepath.Join(dir, entry.Name())
		if err := h.vm.DoFile(path); err != nil {
			return fmt.Errorf("load %s: %w", path, err)
		}
		h.log.Debug("scripthost: loaded script", "file", path)
	}
	return nil
}

func (h *LuaHost) Close() { h.vm.Close() }

func paramsTable(vm *lua.LState, params map[string]string) *lua.LTable {
	t := vm.NewTable()
	for k, v := range params {
		t.RawSetString(k, lua.LString(v))
	}
	return t
}

// ctxTable packs the subset of EvalContext a script can safely read
// without mutating state (spec.md §9 "Scripts receive immutable
// snapshots ... they never mutate state directly"): character fields,
// zone definition ids, and clock readings. Lookup-map accessors
// (has_item, has_quest_active) are exposed as callable closures rather
// than pre-flattened tables, since their key sets are open-ended.
func ctxTable(vm *lua.LState, ctx *event.EvalContext) *lua.LTable {
	t := vm.NewTable()
	if ctx == nil {
		return t
	}
	if ch := ctx.Character; ch != nil {
		c := vm.NewTable()
		c.RawSetString("level", lua.LNumber(ch.Level))
		c.RawSetString("lnc", lua.LNumber(ch.LNC))
		c.RawSetString("gender", lua.LNumber(ch.Gender))
		c.RawSetString("faction_group", lua.LNumber(ch.FactionGroup))
		c.RawSetString("party_size", lua.LNumber(ch.PartySize))
		c.RawSetString("team_size", lua.LNumber(ch.TeamSize))
		c.RawSetString("is_team_leader", lua.LBool(ch.IsTeamLeader))
		c.RawSetString("has_summoned_demon", lua.LBool(ch.HasSummonedDemon))
		c.RawSetString("has_item", vm.NewFunction(func(l *lua.LState) int {
			itemType := int32(l.CheckNumber(1))
			l.Push(lua.LNumber(ch.ItemCount(itemType)))
			return 1
		}))
		c.RawSetString("has_quest_active", vm.NewFunction(func(l *lua.LState) int {
			questID := int32(l.CheckNumber(1))
			l.Push(lua.LBool(ch.HasActiveQuest(questID)))
			return 1
		}))
		t.RawSetString("character", c)
	}
	if z := ctx.Zone; z != nil {
		zt := vm.NewTable()
		zt.RawSetString("definition_id", lua.LNumber(z.DefinitionID))
		zt.RawSetString("dynamic_map_id", lua.LNumber(z.DynamicMapID))
		t.RawSetString("zone", zt)
	}
	if ctx.Clock != nil {
		clk := vm.NewTable()
		clk.RawSetString("minute", lua.LNumber(ctx.Clock.Minute()))
		clk.RawSetString("weekday", lua.LNumber(ctx.Clock.Weekday()))
		clk.RawSetString("moon_phase", lua.LNumber(ctx.Clock.MoonPhase()))
		t.RawSetString("clock", clk)
	}
	return t
}

func (h *LuaHost) call(fnName, id string, params map[string]string, ctx *event.EvalContext) (lua.LValue, bool) {
	h.callMu.Lock()
	defer h.callMu.Unlock()

	start := time.Now()
	fn := h.vm.GetGlobal(fnName)
	if fn == lua.LNil {
		h.trace.WithFields(logrus.Fields{"fn": fnName, "id": id}).Trace("no script handler defined")
		return lua.LNil, false
	}
	err := h.vm.CallByParam(lua.P{Fn: fn, NRet: 1, Protect: true},
		lua.LString(id), paramsTable(h.vm, params), ctxTable(h.vm, ctx))
	entry := h.trace.WithFields(logrus.Fields{"fn": fnName, "id": id, "elapsed": time.Since(start)})
	if err != nil {
		h.log.Error("scripthost: call failed", "fn", fnName, "id", id, "err", err)
		entry.WithError(err).Trace("call errored")
		return lua.LNil, false
	}
	ret := h.vm.Get(-1)
	h.vm.Pop(1)
	if ret == lua.LNil {
		entry.Trace("call returned nil")
		return lua.LNil, false
	}
	entry.Trace("call returned")
	return ret, true
}

func (h *LuaHost) EvalCondition(id string, params map[string]string, ctx *event.EvalContext) (bool, bool) {
	ret, ok := h.call("eval_condition", id, params, ctx)
	if !ok {
		return false, false
	}
	return ret == lua.LTrue, true
}

func (h *LuaHost) EvalBranch(id string, params map[string]string, ctx *event.EvalContext) (int, bool) {
	ret, ok := h.call("eval_branch", id, params, ctx)
	if !ok {
		return 0, false
	}
	n, isNum := ret.(lua.LNumber)
	if !isNum {
		h.log.Error("scripthost: eval_branch returned non-number", "id", id)
		return 0, false
	}
	return int(n), true
}

func (h *LuaHost) EvalTransform(id string, params map[string]string, ctx *event.EvalContext) bool {
	_, ok := h.call("eval_transform", id, params, ctx)
	return ok
}
