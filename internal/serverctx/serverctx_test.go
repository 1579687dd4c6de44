package serverctx

import (
	"context"
	"net"
	"strconv"
	"testing"

	"github.com/imagine-project/channelserver/internal/action"
	"github.com/imagine-project/channelserver/internal/config"
	"github.com/imagine-project/channelserver/internal/definitions"
	"github.com/imagine-project/channelserver/internal/event"
	"github.com/imagine-project/channelserver/internal/store"
)

// fakeWorld starts a listener standing in for the world process Build
// dials, accepting connections until the test ends.
func fakeWorld(t *testing.T) string {
	t.Helper()
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	if err != nil {
		t.Fatalf("listen: %v", err)
	}
	t.Cleanup(func() { ln.Close() })
	go func() {
		for {
			conn, err := ln.Accept()
			if err != nil {
				return
			}
			conn.Close()
		}
	}()
	return ln.Addr().String()
}

func noGroupActions(int32, string) []event.ActionRef { return nil }

func TestBuild_WiresEverySubsystem(t *testing.T) {
	addr := fakeWorld(t)
	host, portStr, err := net.SplitHostPort(addr)
	if err != nil {
		t.Fatalf("split %s: %v", addr, err)
	}
	port, err := strconv.Atoi(portStr)
	if err != nil {
		t.Fatalf("parse port %s: %v", portStr, err)
	}

	defs, err := definitions.LoadDir(t.TempDir())
	if err != nil {
		t.Fatalf("LoadDir: %v", err)
	}

	cfg := config.DefaultChannelServer()
	cfg.WorldHost = host
	cfg.WorldPort = port

	ctx, err := Build(cfg, store.NewMemBackend(), defs, nil, nil, nil, action.GroupLookup(noGroupActions), nil)
	if err != nil {
		t.Fatalf("Build: %v", err)
	}
	defer ctx.Shutdown(context.Background())

	switch {
	case ctx.Store == nil:
		t.Fatal("Store not wired")
	case ctx.World == nil:
		t.Fatal("World not wired")
	case ctx.Sessions == nil:
		t.Fatal("Sessions not wired")
	case ctx.Zones == nil:
		t.Fatal("Zones not wired")
	case ctx.Sync == nil:
		t.Fatal("Sync not wired")
	case ctx.Accounts == nil:
		t.Fatal("Accounts not wired")
	case ctx.Scripts == nil:
		t.Fatal("Scripts not wired")
	case ctx.Quests == nil:
		t.Fatal("Quests not wired")
	case ctx.DemonQuests == nil:
		t.Fatal("DemonQuests not wired")
	case ctx.Events == nil:
		t.Fatal("Events not wired")
	case ctx.Actions == nil:
		t.Fatal("Actions not wired")
	case ctx.ZoneActions == nil:
		t.Fatal("ZoneActions not wired")
	case ctx.Chat == nil:
		t.Fatal("Chat not wired")
	}
}

func TestBuild_DialFailureIsReported(t *testing.T) {
	cfg := config.DefaultChannelServer()
	cfg.WorldHost = "127.0.0.1"
	cfg.WorldPort = 1 // nothing listens on a reserved low port in a test sandbox

	defs, err := definitions.LoadDir(t.TempDir())
	if err != nil {
		t.Fatalf("LoadDir: %v", err)
	}

	_, err = Build(cfg, store.NewMemBackend(), defs, nil, nil, nil, action.GroupLookup(noGroupActions), nil)
	if err == nil {
		t.Fatal("Build: expected dial error, got nil")
	}
}
