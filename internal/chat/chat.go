// Package chat classifies and delivers chat messages across the channel
// set spec.md §4.I names (PARTY, CLAN, TEAM, VERSUS, SHOUT, SAY, SELF,
// TELL). Grounded on la2go's internal/gameserver/chat_type.go channel
// enum, generalized from Lineage II's 21-channel client set to this
// spec's 8, and on original_source/server/channel/src/ChatManager.cpp's
// SendChatMessage, whose per-channel visibility/relay switch is the
// source for which channels relay to the world versus broadcast locally.
package chat

import (
	"context"
	"encoding/gob"
	"errors"
	"fmt"
	"log/slog"

	"github.com/imagine-project/channelserver/internal/model"
	"github.com/imagine-project/channelserver/internal/worldlink"
	"github.com/imagine-project/channelserver/internal/zone"
)

// Channel classifies an incoming chat message (spec.md §4.I).
type Channel int32

const (
	ChannelSelf Channel = iota
	ChannelParty
	ChannelClan
	ChannelTeam
	ChannelVersus
	ChannelShout
	ChannelSay
	ChannelTell
)

// Message is one line of chat awaiting classification and delivery.
type Message struct {
	Channel    Channel
	SenderID   model.UUID
	SenderName string
	Text       string

	// TargetName addresses ChannelTell; ignored for every other channel.
	TargetName string
}

// Speaker is the narrow slice of session/zone state Router needs to
// resolve a message's destination, mirroring what ChatManager::
// SendChatMessage reads off ClientState (world CID, party/clan/team
// membership, current zone and position). PartyID/ClanID/TeamID are the
// world server's numeric group ids, not this channel's UUIDs, since the
// world server — not this channel — is authoritative for group
// membership (spec.md §6); 0 means "not in one."
type Speaker struct {
	WorldCID     int64
	PartyID      int64
	ClanID       int64
	TeamID       int64
	FactionGroup int32

	Session *zone.Session
	Zone    *zone.Zone
	Pos     model.Position
}

// Relay is the narrow interface Router uses to hand a message to the
// world server for PARTY/CLAN/TEAM/TELL delivery (spec.md §6 "Relay
// envelope"). Satisfied by *worldlink.Client.
type Relay interface {
	SendRelay(worldCID int64, mode worldlink.RelayMode, targetID int64, includeSelf bool, inner worldlink.Envelope) error
}

// ZoneBroadcaster is the narrow slice of *zone.Manager Router needs for
// SHOUT/SAY delivery.
type ZoneBroadcaster interface {
	BroadcastPacket(z *zone.Zone, packet any)
	SendToRange(z *zone.Zone, origin *zone.Session, originPos model.Position, packet any, includeSelf bool)
}

// Router classifies and delivers chat messages. Grounded on ChatManager
// (original_source); Route keeps that method's single switch over the
// message's channel.
type Router struct {
	zones ZoneBroadcaster
	relay Relay
	log   *slog.Logger
}

func NewRouter(zones ZoneBroadcaster, relay Relay, log *slog.Logger) *Router {
	if log == nil {
		log = slog.Default()
	}
	return &Router{zones: zones, relay: relay, log: log}
}

// chatPacket is the outbound shape delivered to clients for every
// non-TELL channel (spec.md §6 [ADD]: message shapes are plain structs,
// not byte layouts, since binary codecs are out of scope).
type chatPacket struct {
	Channel Channel
	From    string
	Text    string
}

// tellPacket is TELL's relay payload. RelayEnvelope addresses by numeric
// target id, but TELL addresses by character name (spec.md §4.I "relay
// envelope to world by character name"), so the name travels inside the
// inner payload for the world server to resolve — mirroring
// ChatManager::SendTellMessage, which writes the target name straight
// into the relay packet rather than resolving it client-side.
type tellPacket struct {
	From string
	To   string
	Text string
}

func init() {
	gob.Register(chatPacket{})
	gob.Register(tellPacket{})
}

var (
	ErrEmptyMessage = errors.New("chat: message text is empty")
	ErrNoZone       = errors.New("chat: speaker has no current zone")
	ErrNotInParty   = errors.New("chat: character is not in a party")
	ErrNotInClan    = errors.New("chat: character is not in a clan")
	ErrNotInTeam    = errors.New("chat: character is not on a team")
)

// Route classifies msg by its Channel and delivers it per spec.md §4.I.
func (r *Router) Route(ctx context.Context, msg Message, sp Speaker) error {
	if msg.Text == "" {
		return ErrEmptyMessage
	}
	if msg.Channel != ChannelTell && sp.Zone == nil {
		return ErrNoZone
	}

	packet := chatPacket{Channel: msg.Channel, From: msg.SenderName, Text: msg.Text}

	switch msg.Channel {
	case ChannelParty:
		if sp.PartyID == 0 {
			r.log.Error("chat: party chat attempted outside a party", "sender", msg.SenderName)
			return ErrNotInParty
		}
		return r.relayPacket(sp.WorldCID, worldlink.RelayParty, sp.PartyID, packet)

	case ChannelClan:
		if sp.ClanID == 0 {
			r.log.Error("chat: clan chat attempted outside a clan", "sender", msg.SenderName)
			return ErrNotInClan
		}
		return r.relayPacket(sp.WorldCID, worldlink.RelayClan, sp.ClanID, packet)

	case ChannelTeam:
		if sp.TeamID == 0 {
			r.log.Error("chat: team chat attempted outside a team", "sender", msg.SenderName)
			return ErrNotInTeam
		}
		return r.relayPacket(sp.WorldCID, worldlink.RelayTeam, sp.TeamID, packet)

	case ChannelVersus:
		r.sendVersus(sp, packet)
		return nil

	case ChannelShout:
		r.zones.BroadcastPacket(sp.Zone, packet)
		return nil

	case ChannelSay:
		r.zones.SendToRange(sp.Zone, sp.Session, sp.Pos, packet, true)
		return nil

	case ChannelSelf:
		if sp.Session != nil {
			sp.Session.Send(packet)
		}
		return nil

	case ChannelTell:
		return r.sendTell(sp.WorldCID, msg)

	default:
		return fmt.Errorf("chat: unknown channel %d", msg.Channel)
	}
}

func (r *Router) relayPacket(worldCID int64, mode worldlink.RelayMode, targetID int64, packet chatPacket) error {
	inner := worldlink.Envelope{Type: "CHAT", Payload: packet}
	if err := r.relay.SendRelay(worldCID, mode, targetID, true, inner); err != nil {
		return fmt.Errorf("chat: relay: %w", err)
	}
	return nil
}

func (r *Router) sendTell(worldCID int64, msg Message) error {
	inner := worldlink.Envelope{Type: "TELL", Payload: tellPacket{
		From: msg.SenderName, To: msg.TargetName, Text: msg.Text,
	}}
	if err := r.relay.SendRelay(worldCID, worldlink.RelayCharacter, 0, true, inner); err != nil {
		return fmt.Errorf("chat: tell: %w", err)
	}
	return nil
}

// sendVersus delivers to every same-faction connection inside sp.Zone's
// instance, or just sp itself when the zone has no instance (spec.md
// §4.I; ChatManager.cpp's CHAT_VIS_VERSUS case, which builds the same
// "instance connections filtered by SameFaction, else self" list).
func (r *Router) sendVersus(sp Speaker, packet chatPacket) {
	if sp.Zone.Instance == nil {
		if sp.Session != nil {
			sp.Session.Send(packet)
		}
		return
	}
	for _, conn := range sp.Zone.Instance.Connections() {
		if conn.FactionGroup == sp.FactionGroup {
			conn.Send(packet)
		}
	}
}
