// Package worldlink implements the channel↔world internal relay
// (spec.md §6 "Channel ↔ world, internal protocol"): the envelope types
// every cross-process message travels in, and Client, the concrete
// account.WorldConn/sync.WorldSender implementation that frames and
// sends them. Grounded on la2go's internal/gslistener/protocol.go
// length-prefixed framing, minus its Blowfish encryption/checksum layer
// — this relay runs over a trusted internal link, not a client-facing
// one, so that layer has no reason to exist here. Named distinctly
// from internal/world (the teacher's spatial grid/region/visibility
// subsystem, a different concern under the same word).
package worldlink

import (
	"encoding/gob"

	"github.com/imagine-project/channelserver/internal/model"
)

// init registers every concrete payload type Envelope.Payload and
// RelayEnvelope.Inner can hold, since gob must know a type's wire
// descriptor before it can encode it behind an interface{} field.
// SyncOp.Data is the one payload shape this can't cover ahead of time
// (it carries whatever application record type a sync batch entry
// wraps); the content/definitions layer that produces those values is
// responsible for registering its own concrete types with gob.
func init() {
	gob.Register(AccountLoginMsg{})
	gob.Register(AccountLogoutMsg{})
	gob.Register(GetWorldInfoMsg{})
	gob.Register(PartyUpdateMsg{})
	gob.Register(ClanUpdateMsg{})
	gob.Register(WebGameMsg{})
	gob.Register(SyncBatchMsg{})
	gob.Register(RelayEnvelope{})
}

// RelayMode scopes a relayed packet's delivery fan-out (spec.md §6
// "PACKET_RELAY(world_cid, mode, target_id, include_self)").
type RelayMode int32

const (
	RelayCharacter RelayMode = iota
	RelayParty
	RelayClan
	RelayTeam
)

// RelayEnvelope wraps an inner message with delivery-scoping metadata
// (spec.md §6 PACKET_RELAY).
type RelayEnvelope struct {
	WorldCID    int64
	Mode        RelayMode
	TargetID    int64
	IncludeSelf bool
	Inner       Envelope
}

// Envelope is the generic (type, payload) shape every message on the
// wire takes, mirroring la2go's opcode-tagged packet idiom but keyed by
// a string type name instead of a numeric opcode, since this internal
// link isn't byte-budget constrained the way a client packet is.
type Envelope struct {
	Type    string
	Payload any
}

// AccountLoginAction/AccountLogoutAction distinguish the two directions
// spec.md §6 PACKET_ACCOUNT_LOGIN/PACKET_ACCOUNT_LOGOUT can carry.
type AccountLoginAction int32

const (
	AccountLoginRequest AccountLoginAction = iota
	AccountLoginOK
	AccountLoginFailed
)

type AccountLogoutAction int32

const (
	AccountLogoutNormal AccountLogoutAction = iota
	AccountLogoutKick
)

// AccountLoginMsg is PACKET_ACCOUNT_LOGIN's payload.
type AccountLoginMsg struct {
	Mode       AccountLoginAction
	Username   string
	SessionKey [2]int32
}

// AccountLogoutMsg is PACKET_ACCOUNT_LOGOUT's payload.
type AccountLogoutMsg struct {
	Action    AccountLogoutAction
	Username  string
	KickLevel int32
}

// GetWorldInfoMsg is PACKET_GET_WORLD_INFO's (empty) payload.
type GetWorldInfoMsg struct{}

// PartyUpdateMsg is PACKET_PARTY_UPDATE's payload.
type PartyUpdateMsg struct {
	PartyID model.UUID
	Members []model.UUID
}

// ClanUpdateMsg is PACKET_CLAN_UPDATE's payload.
type ClanUpdateMsg struct {
	ClanID model.UUID
	Data   map[string]int64
}

// WebGameAction distinguishes PACKET_WEB_GAME's two shapes (spec.md §6
// "action, session | world_cid").
type WebGameAction int32

const (
	WebGameSession WebGameAction = iota
	WebGameWorldCID
)

// WebGameMsg is PACKET_WEB_GAME's payload.
type WebGameMsg struct {
	Action     WebGameAction
	SessionKey string
	WorldCID   int64
}

// SyncBatchMsg carries one internal/sync flush (spec.md §6 "typed sync
// batches"). TypeTag/ops mirror sync.Outbound without this package
// importing internal/sync directly for the wire shape, since Outbound's
// Data field is `any` and this package only needs to relay it, not
// interpret it.
type SyncBatchMsg struct {
	Ops []SyncOp
}

type SyncOp struct {
	TypeTag  string
	UUID     model.UUID
	IsRemove bool
	Data     any
}
