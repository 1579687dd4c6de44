// Package scripthost provides the pluggable ScriptHost implementations
// event.Runtime calls into for CondScript/EventFork script branches and
// action-list transforms (spec.md §9 "Embedded scripting"). NoOp
// satisfies core tests without a script directory; LuaHost is the
// reference gopher-lua-backed implementation, grounded on l1jgo-whale's
// internal/scripting.Engine.
package scripthost

import (
	"github.com/imagine-project/channelserver/internal/event"
)

// NoOp always reports "no script handled this id", matching spec.md §9's
// "a no-op implementation must suffice for core tests".
type NoOp struct{}

func (NoOp) EvalCondition(string, map[string]string, *event.EvalContext) (bool, bool) {
	return false, false
}

func (NoOp) EvalBranch(string, map[string]string, *event.EvalContext) (int, bool) {
	return 0, false
}

func (NoOp) EvalTransform(string, map[string]string, *event.EvalContext) bool {
	return false
}

var _ event.ScriptHost = NoOp{}
var _ event.ScriptHost = (*LuaHost)(nil)
