package event

import (
	"strconv"

	"github.com/imagine-project/channelserver/internal/model"
	"github.com/imagine-project/channelserver/internal/session"
)

// The four methods below satisfy internal/account's narrow EventRuntime
// interface, letting AccountManager restore or clear event state across
// logins and channel switches without importing this package's full
// surface back into account (spec.md §4.F login/channel-switch steps
// reference "restore switch skills", "cancel zone-out effects" and
// "set/continue the channel-login event" without detailing them
// further, so the behavior here is the minimal state transition that
// satisfies those call sites: clearing or re-queuing event state,
// never touching persisted records directly).

// RestoreSwitchSkills re-applies a channel-switch's pending event after
// the character rehydrates on the new channel, if the carried-over
// ChannelLogin named one.
func (r *Runtime) RestoreSwitchSkills(s *session.Session, login model.ChannelLogin) {
	if login.PendingEvent == nil {
		return
	}
	s.Events.Enqueue(&session.EventInstance{
		EventID:        strconv.Itoa(int(login.PendingEvent.EventID)),
		SourceEntityID: uuidFromLow(login.PendingEvent.SourceEntityID),
		ActionGroupID:  login.PendingEvent.ActionGroupID,
		Index:          login.PendingEvent.ActionIndex,
		DisabledChoices: disabledSet(login.PendingEvent.DisabledChoices),
	})
}

// CancelZoneOutAndLogoutEffects clears any event state left over from
// an interrupted session (spec.md §4.G "ending an event empties all
// three" stacks) on a fresh login with no channel-switch hand-off.
func (r *Runtime) CancelZoneOutAndLogoutEffects(s *session.Session) {
	s.Events.End()
}

// SetChannelLoginEvent captures the session's current event onto login
// so a subsequent channel can resume it via RestoreSwitchSkills.
func (r *Runtime) SetChannelLoginEvent(s *session.Session, login *model.ChannelLogin) {
	cur := s.Events.Current
	if cur == nil {
		return
	}
	eventID, err := strconv.Atoi(cur.EventID)
	if err != nil {
		return
	}
	login.PendingEvent = &model.ChannelLoginEvent{
		EventID:         int32(eventID),
		SourceEntityID:  uuidLow(cur.SourceEntityID),
		ActionGroupID:   cur.ActionGroupID,
		ActionIndex:     cur.Index,
		DisabledChoices: enabledIndices(cur.DisabledChoices),
	}
}

// ContinueChannelChangeEvent resumes login's pending event immediately,
// used when the target channel is this same process (no disconnect
// round-trip).
func (r *Runtime) ContinueChannelChangeEvent(s *session.Session, login model.ChannelLogin) {
	r.RestoreSwitchSkills(s, login)
}

func disabledSet(indices []int32) map[int32]bool {
	if len(indices) == 0 {
		return nil
	}
	m := make(map[int32]bool, len(indices))
	for _, i := range indices {
		m[i] = true
	}
	return m
}

func enabledIndices(m map[int32]bool) []int32 {
	if len(m) == 0 {
		return nil
	}
	out := make([]int32, 0, len(m))
	for i := range m {
		out = append(out, i)
	}
	return out
}

// uuidLow and uuidFromLow round-trip the first 8 bytes of a UUID through
// an int64 for the legacy-shaped SourceEntityID field on
// model.ChannelLoginEvent. The identity only needs to survive a
// round-trip through this process's own write, never to be globally
// unique, since it is read back only by RestoreSwitchSkills on the
// same character's next login.
func uuidLow(id model.UUID) int64 {
	var v int64
	for i := 0; i < 8; i++ {
		v = v<<8 | int64(id[i])
	}
	return v
}

func uuidFromLow(v int64) model.UUID {
	var id model.UUID
	for i := 7; i >= 0; i-- {
		id[i] = byte(v)
		v >>= 8
	}
	return id
}
