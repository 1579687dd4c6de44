package event

import "github.com/imagine-project/channelserver/internal/session"

// ITime scopes an OPEN_MENU/EventITime node's choices to a particular
// "internal time" slot — content authors reuse one menu definition
// across several ITimeID variants, each enabling a different subset of
// choices (spec.md §4.G "ITime"). ITimeChoices maps an ITimeID to the
// set of choice indices that are enabled for it; any index absent from
// the set is disabled for that slot.
type ITimeChoices map[int32]map[int32]bool

// ApplyITime computes inst.DisabledChoices from choices's definition
// for the node's ITimeID, so HandleResponse's disabled-choice check
// (spec.md §4.G "handle_response ... rejects a disabled choice") covers
// ITime-scoped menus without the driver needing ITime-specific logic.
func ApplyITime(inst *session.EventInstance, totalChoices int32, choices ITimeChoices) {
	enabled, ok := choices[inst.ITimeID]
	if !ok {
		return
	}
	disabled := make(map[int32]bool, totalChoices)
	for i := int32(0); i < totalChoices; i++ {
		if !enabled[i] {
			disabled[i] = true
		}
	}
	inst.DisabledChoices = disabled
}
