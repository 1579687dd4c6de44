package worldlink

import (
	"net"
	"testing"

	"github.com/imagine-project/channelserver/internal/model"
	"github.com/imagine-project/channelserver/internal/sync"
)

func pipeConns(t *testing.T) (*Conn, *Conn) {
	t.Helper()
	a, b := net.Pipe()
	return &Conn{conn: a}, &Conn{conn: b}
}

func TestConn_SendRecv_RoundTripsEnvelope(t *testing.T) {
	sender, receiver := pipeConns(t)
	defer sender.Close()
	defer receiver.Close()

	want := Envelope{Type: "ACCOUNT_LOGIN", Payload: AccountLoginMsg{
		Mode: AccountLoginRequest, Username: "alice", SessionKey: [2]int32{1, 2},
	}}

	errCh := make(chan error, 1)
	go func() { errCh <- sender.Send(want) }()

	got, err := receiver.Recv()
	if err != nil {
		t.Fatalf("Recv: %v", err)
	}
	if err := <-errCh; err != nil {
		t.Fatalf("Send: %v", err)
	}
	if got.Type != want.Type {
		t.Fatalf("Type = %q, want %q", got.Type, want.Type)
	}
	msg, ok := got.Payload.(AccountLoginMsg)
	if !ok {
		t.Fatalf("Payload type = %T, want AccountLoginMsg", got.Payload)
	}
	if msg.Username != "alice" || msg.SessionKey != [2]int32{1, 2} {
		t.Fatalf("payload = %+v, want username=alice sessionKey=[1 2]", msg)
	}
}

func TestClient_SendSyncBatch_FramesEveryOp(t *testing.T) {
	sender, receiver := pipeConns(t)
	defer sender.Close()
	defer receiver.Close()

	client := NewClient(sender, nil)
	batch := []sync.Outbound{
		{Type: "Account", UUID: model.NewUUID(), Data: map[string]int64{"cp": 5}},
		{Type: "Account", UUID: model.NewUUID(), IsRemove: true},
	}

	errCh := make(chan error, 1)
	go func() { errCh <- client.SendSyncBatch(batch) }()

	env, err := receiver.Recv()
	if err != nil {
		t.Fatalf("Recv: %v", err)
	}
	if err := <-errCh; err != nil {
		t.Fatalf("SendSyncBatch: %v", err)
	}
	if env.Type != "SYNC_BATCH" {
		t.Fatalf("Type = %q, want SYNC_BATCH", env.Type)
	}
	msg, ok := env.Payload.(SyncBatchMsg)
	if !ok {
		t.Fatalf("Payload type = %T, want SyncBatchMsg", env.Payload)
	}
	if len(msg.Ops) != 2 || !msg.Ops[1].IsRemove {
		t.Fatalf("Ops = %+v, want 2 ops with the second marked removed", msg.Ops)
	}
}

func TestClient_SatisfiesAccountWorldConnAndSyncWorldSender(t *testing.T) {
	var _ interface {
		SendAccountLogin(username string, sessionKey [2]int32)
		SendLogoutDisconnect(worldCID int64)
	} = (*Client)(nil)
	var _ sync.WorldSender = (*Client)(nil)
}
