package scripthost

import "github.com/imagine-project/channelserver/internal/event"

func newTestEvalContext(level int32, isTeamLeader bool) *event.EvalContext {
	ch := event.NewCharacterSnapshot(nil)
	ch.Level = level
	ch.IsTeamLeader = isTeamLeader
	return &event.EvalContext{Character: ch}
}
