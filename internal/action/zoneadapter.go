package action

import (
	"log/slog"

	"github.com/imagine-project/channelserver/internal/event"
	"github.com/imagine-project/channelserver/internal/model"
	"github.com/imagine-project/channelserver/internal/zone"
)

// GroupLookup resolves a named action-group reference (e.g. "ON_ENTER",
// a flag-trigger name) scoped to a zone definition into the concrete
// action list content defines for it. Injected so this package doesn't
// need a Definitions dependency of its own.
type GroupLookup func(zoneDefID int32, groupName string) []event.ActionRef

// ZoneAdapter satisfies zone.ActionRunner by resolving zone's
// string-named action-group references through lookup and running them
// through Dispatcher, bridging zone's []string trigger-name shape to
// event.ActionRef's structured shape (spec.md §4.E ON_ENTER/ON_LEAVE/
// flag-set triggers, §4.H action lists).
type ZoneAdapter struct {
	dispatcher *Dispatcher
	lookup     GroupLookup
}

func NewZoneAdapter(d *Dispatcher, lookup GroupLookup) *ZoneAdapter {
	return &ZoneAdapter{dispatcher: d, lookup: lookup}
}

// RunActions implements zone.ActionRunner. zone.Manager's call sites
// don't propagate an error (spec.md's ON_ENTER/ON_LEAVE/flag-trigger
// hooks fire-and-forget from the zone's perspective), so failures are
// logged rather than returned.
func (a *ZoneAdapter) RunActions(source model.UUID, z *zone.Zone, actionRefs []string) {
	for _, name := range actionRefs {
		refs := a.lookup(z.DefinitionID, name)
		if len(refs) == 0 {
			continue
		}
		if err := a.dispatcher.RunActionsIn(source, z, refs); err != nil {
			slog.Error("action: zone-triggered action list failed", "zone", z.DefinitionID, "group", name, "err", err)
		}
	}
}
