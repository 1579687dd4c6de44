package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"golang.org/x/sync/errgroup"

	"github.com/imagine-project/channelserver/internal/config"
	"github.com/imagine-project/channelserver/internal/content"
	"github.com/imagine-project/channelserver/internal/definitions"
	"github.com/imagine-project/channelserver/internal/serverctx"
	"github.com/imagine-project/channelserver/internal/store"
)

const ConfigPath = "config/channelserver.yaml"

func main() {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		sig := <-sigCh
		slog.Info("shutting down", "signal", sig)
		cancel()
	}()

	if err := run(ctx); err != nil {
		slog.Error("fatal", "err", err)
		os.Exit(1)
	}
}

func run(ctx context.Context) error {
	cfgPath := ConfigPath
	if p := os.Getenv("CHANNELSERVER_CONFIG"); p != "" {
		cfgPath = p
	}
	cfg, err := config.LoadChannelServer(cfgPath)
	if err != nil {
		return fmt.Errorf("loading config: %w", err)
	}

	slog.SetDefault(slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{
		Level: parseLogLevel(cfg.LogLevel),
	})))

	slog.Info("channel server starting",
		"bind", cfg.BindAddress, "port", cfg.Port,
		"world", fmt.Sprintf("%s:%d", cfg.WorldHost, cfg.WorldPort))

	pool, err := store.Connect(ctx, cfg.Database.DSN())
	if err != nil {
		return fmt.Errorf("connecting to database: %w", err)
	}
	defer pool.Close()
	slog.Info("database connected")

	if err := store.RunMigrations(ctx, cfg.Database.DSN()); err != nil {
		return fmt.Errorf("running migrations: %w", err)
	}
	slog.Info("database migrations applied")

	defs, err := definitions.LoadDir(cfg.DefinitionsDir)
	if err != nil {
		return fmt.Errorf("loading definitions: %w", err)
	}
	slog.Info("definitions loaded", "dir", cfg.DefinitionsDir)

	// Event graph nodes, quest/demon-quest definitions and zone-group
	// action lists are script/event content, not the static table data
	// internal/definitions loads (spec.md §4.A-§4.G content vs. §4.G
	// event-graph distinction), so they're loaded through their own
	// fixture directory.
	ct, err := content.LoadDir(cfg.ContentDir)
	if err != nil {
		return fmt.Errorf("loading event/quest content: %w", err)
	}

	backend := store.NewPgBackend(pool)
	serverCtx, err := serverctx.Build(cfg, backend, defs, ct.Events, ct.Quests, ct.DemonQuests, ct.GroupLookup, slog.Default())
	if err != nil {
		return fmt.Errorf("building server context: %w", err)
	}
	defer serverCtx.Shutdown(context.Background())

	slog.Info("server context wired")

	g, gctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		slog.Info("starting session timeout sweep", "timeout", cfg.SessionTimeout)
		stop := make(chan struct{})
		go func() {
			<-gctx.Done()
			close(stop)
		}()
		serverCtx.Sessions.ScheduleTimeouts(cfg.SessionTimeout, stop)
		return nil
	})

	if err := g.Wait(); err != nil {
		return fmt.Errorf("server error: %w", err)
	}

	return nil
}

// parseLogLevel converts a string log level to slog.Level, defaulting
// to Info for an invalid or empty value.
func parseLogLevel(level string) slog.Level {
	switch level {
	case "debug":
		return slog.LevelDebug
	case "info":
		return slog.LevelInfo
	case "warn":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}
