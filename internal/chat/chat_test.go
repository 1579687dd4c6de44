package chat

import (
	"context"
	"testing"

	"github.com/imagine-project/channelserver/internal/model"
	"github.com/imagine-project/channelserver/internal/worldlink"
	"github.com/imagine-project/channelserver/internal/zone"
)

type fakeRelay struct {
	worldCID    int64
	mode        worldlink.RelayMode
	targetID    int64
	includeSelf bool
	inner       worldlink.Envelope
	calls       int
	err         error
}

func (f *fakeRelay) SendRelay(worldCID int64, mode worldlink.RelayMode, targetID int64, includeSelf bool, inner worldlink.Envelope) error {
	f.worldCID, f.mode, f.targetID, f.includeSelf, f.inner = worldCID, mode, targetID, includeSelf, inner
	f.calls++
	return f.err
}

type fakeBroadcaster struct {
	broadcastCalls   int
	sendToRangeCalls int
	lastPacket       any
}

func (f *fakeBroadcaster) BroadcastPacket(z *zone.Zone, packet any) {
	f.broadcastCalls++
	f.lastPacket = packet
}

func (f *fakeBroadcaster) SendToRange(z *zone.Zone, origin *zone.Session, originPos model.Position, packet any, includeSelf bool) {
	f.sendToRangeCalls++
	f.lastPacket = packet
}

func newSession(id model.UUID, faction int32) *zone.Session {
	var sent []any
	return &zone.Session{
		CharacterID:  id,
		FactionGroup: faction,
		Send:         func(p any) { sent = append(sent, p) },
	}
}

func TestRouter_Route_PartyRelaysWithPartyID(t *testing.T) {
	relay := &fakeRelay{}
	r := NewRouter(&fakeBroadcaster{}, relay, nil)

	err := r.Route(context.Background(), Message{Channel: ChannelParty, SenderName: "Alice", Text: "hi"},
		Speaker{WorldCID: 42, PartyID: 7, Zone: zone.NewZone(1, 0)})
	if err != nil {
		t.Fatalf("Route: %v", err)
	}
	if relay.calls != 1 || relay.mode != worldlink.RelayParty || relay.targetID != 7 {
		t.Fatalf("relay = %+v, want party relay to target 7", relay)
	}
}

func TestRouter_Route_PartyWithoutPartyIDFails(t *testing.T) {
	relay := &fakeRelay{}
	r := NewRouter(&fakeBroadcaster{}, relay, nil)

	err := r.Route(context.Background(), Message{Channel: ChannelParty, Text: "hi"},
		Speaker{Zone: zone.NewZone(1, 0)})
	if err != ErrNotInParty {
		t.Fatalf("Route = %v, want ErrNotInParty", err)
	}
	if relay.calls != 0 {
		t.Fatalf("expected no relay call, got %d", relay.calls)
	}
}

func TestRouter_Route_ShoutBroadcastsToZone(t *testing.T) {
	bcast := &fakeBroadcaster{}
	r := NewRouter(bcast, &fakeRelay{}, nil)

	err := r.Route(context.Background(), Message{Channel: ChannelShout, Text: "hi"},
		Speaker{Zone: zone.NewZone(1, 0)})
	if err != nil {
		t.Fatalf("Route: %v", err)
	}
	if bcast.broadcastCalls != 1 {
		t.Fatalf("broadcastCalls = %d, want 1", bcast.broadcastCalls)
	}
}

func TestRouter_Route_SayUsesSendToRange(t *testing.T) {
	bcast := &fakeBroadcaster{}
	r := NewRouter(bcast, &fakeRelay{}, nil)

	err := r.Route(context.Background(), Message{Channel: ChannelSay, Text: "hi"},
		Speaker{Zone: zone.NewZone(1, 0), Session: newSession(model.NewUUID(), 0)})
	if err != nil {
		t.Fatalf("Route: %v", err)
	}
	if bcast.sendToRangeCalls != 1 {
		t.Fatalf("sendToRangeCalls = %d, want 1", bcast.sendToRangeCalls)
	}
}

func TestRouter_Route_EmptyMessageFails(t *testing.T) {
	r := NewRouter(&fakeBroadcaster{}, &fakeRelay{}, nil)
	err := r.Route(context.Background(), Message{Channel: ChannelShout, Text: ""}, Speaker{Zone: zone.NewZone(1, 0)})
	if err != ErrEmptyMessage {
		t.Fatalf("Route = %v, want ErrEmptyMessage", err)
	}
}

func TestRouter_Route_TellRelaysByNameWithoutZone(t *testing.T) {
	relay := &fakeRelay{}
	r := NewRouter(&fakeBroadcaster{}, relay, nil)

	err := r.Route(context.Background(), Message{
		Channel: ChannelTell, SenderName: "Alice", TargetName: "Bob", Text: "psst",
	}, Speaker{WorldCID: 9})
	if err != nil {
		t.Fatalf("Route: %v", err)
	}
	if relay.calls != 1 || relay.mode != worldlink.RelayCharacter {
		t.Fatalf("relay = %+v, want character relay", relay)
	}
	tp, ok := relay.inner.Payload.(tellPacket)
	if !ok || tp.To != "Bob" {
		t.Fatalf("inner payload = %+v, want tellPacket{To: Bob}", relay.inner.Payload)
	}
}

func TestRouter_Route_VersusWithoutInstanceSendsSelfOnly(t *testing.T) {
	r := NewRouter(&fakeBroadcaster{}, &fakeRelay{}, nil)
	z := zone.NewZone(1, 0)

	var received int
	self := &zone.Session{CharacterID: model.NewUUID(), Send: func(any) { received++ }}

	err := r.Route(context.Background(), Message{Channel: ChannelVersus, Text: "gg"},
		Speaker{Zone: z, Session: self})
	if err != nil {
		t.Fatalf("Route: %v", err)
	}
	if received != 1 {
		t.Fatalf("received = %d, want 1 (self only, no instance)", received)
	}
}

func TestRouter_Route_VersusFiltersBySameFaction(t *testing.T) {
	r := NewRouter(&fakeBroadcaster{}, &fakeRelay{}, nil)

	inst := zone.NewManager(nil).CreateInstance(1, 0)
	z := zone.NewZone(1, 0)
	inst.AddZone(z)

	var allyReceived, enemyReceived int
	ally := &zone.Session{CharacterID: model.NewUUID(), FactionGroup: 1, Send: func(any) { allyReceived++ }}
	enemy := &zone.Session{CharacterID: model.NewUUID(), FactionGroup: 2, Send: func(any) { enemyReceived++ }}
	z.AddConnection(ally)
	z.AddConnection(enemy)

	err := r.Route(context.Background(), Message{Channel: ChannelVersus, Text: "gg"},
		Speaker{Zone: z, Session: ally, FactionGroup: 1})
	if err != nil {
		t.Fatalf("Route: %v", err)
	}
	if allyReceived != 1 || enemyReceived != 0 {
		t.Fatalf("allyReceived=%d enemyReceived=%d, want 1/0", allyReceived, enemyReceived)
	}
}
