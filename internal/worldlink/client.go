package worldlink

import (
	"fmt"
	"log/slog"

	"github.com/imagine-project/channelserver/internal/sync"
)

// Client is the channel server's handle onto its world-process
// connection. It satisfies account.WorldConn and sync.WorldSender,
// letting those packages depend on narrow interfaces while Client does
// the actual framing/relaying.
type Client struct {
	conn *Conn
	log  *slog.Logger
}

func NewClient(conn *Conn, log *slog.Logger) *Client {
	if log == nil {
		log = slog.Default()
	}
	return &Client{conn: conn, log: log}
}

// Close releases the underlying world connection.
func (c *Client) Close() error {
	return c.conn.Close()
}

// SendAccountLogin implements account.WorldConn (spec.md §6
// PACKET_ACCOUNT_LOGIN).
func (c *Client) SendAccountLogin(username string, sessionKey [2]int32) {
	env := Envelope{Type: "ACCOUNT_LOGIN", Payload: AccountLoginMsg{
		Mode: AccountLoginRequest, Username: username, SessionKey: sessionKey,
	}}
	if err := c.conn.Send(env); err != nil {
		c.log.Error("world: SendAccountLogin failed", "username", username, "err", err)
	}
}

// SendLogoutDisconnect implements account.WorldConn (spec.md §6
// PACKET_ACCOUNT_LOGOUT, action=DISCONNECT side).
func (c *Client) SendLogoutDisconnect(worldCID int64) {
	inner := Envelope{Type: "ACCOUNT_LOGOUT", Payload: AccountLogoutMsg{
		Action: AccountLogoutNormal, KickLevel: 0,
	}}
	relay := Envelope{Type: "RELAY", Payload: RelayEnvelope{
		WorldCID: worldCID, Mode: RelayCharacter, IncludeSelf: true, Inner: inner,
	}}
	if err := c.conn.Send(relay); err != nil {
		c.log.Error("world: SendLogoutDisconnect failed", "worldCID", worldCID, "err", err)
	}
}

// SendSyncBatch implements sync.WorldSender (spec.md §6 "typed sync
// batches").
func (c *Client) SendSyncBatch(batch []sync.Outbound) error {
	ops := make([]SyncOp, 0, len(batch))
	for _, o := range batch {
		ops = append(ops, SyncOp{TypeTag: o.Type, UUID: o.UUID, IsRemove: o.IsRemove, Data: o.Data})
	}
	env := Envelope{Type: "SYNC_BATCH", Payload: SyncBatchMsg{Ops: ops}}
	if err := c.conn.Send(env); err != nil {
		return fmt.Errorf("world: SendSyncBatch: %w", err)
	}
	return nil
}

// SendRelay wraps inner in a PACKET_RELAY envelope addressed by mode and
// targetID (spec.md §6 "Relay envelope"), for callers that need the
// general party/clan/team/character relay shape rather than one of the
// fixed message kinds above — internal/chat's PARTY/CLAN/TEAM/TELL
// channels route through this.
func (c *Client) SendRelay(worldCID int64, mode RelayMode, targetID int64, includeSelf bool, inner Envelope) error {
	relay := Envelope{Type: "RELAY", Payload: RelayEnvelope{
		WorldCID: worldCID, Mode: mode, TargetID: targetID, IncludeSelf: includeSelf, Inner: inner,
	}}
	if err := c.conn.Send(relay); err != nil {
		return fmt.Errorf("world: SendRelay: %w", err)
	}
	return nil
}

// SendPartyUpdate and SendClanUpdate round out the relay surface spec.md
// §6 names (PACKET_PARTY_UPDATE, PACKET_CLAN_UPDATE) that no narrow
// interface currently requires a caller to go through, but Client
// exposes directly for whatever component ends up owning party/clan
// broadcast.
func (c *Client) SendPartyUpdate(msg PartyUpdateMsg) error {
	return c.send("PARTY_UPDATE", msg)
}

func (c *Client) SendClanUpdate(msg ClanUpdateMsg) error {
	return c.send("CLAN_UPDATE", msg)
}

func (c *Client) SendWebGame(msg WebGameMsg) error {
	return c.send("WEB_GAME", msg)
}

func (c *Client) send(typeName string, payload any) error {
	if err := c.conn.Send(Envelope{Type: typeName, Payload: payload}); err != nil {
		return fmt.Errorf("world: %s: %w", typeName, err)
	}
	return nil
}
