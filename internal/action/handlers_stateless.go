package action

import (
	"context"
	"fmt"
	"log/slog"
	"strconv"
	"strings"

	"github.com/google/uuid"
	"github.com/imagine-project/channelserver/internal/model"
)

// The handlers in this file need nothing beyond their params and the
// Context they're called with, so they're registered once at package
// init into the shared registry rather than bound per-Dispatcher.

func handleSetHomepoint(_ context.Context, actx *Context, params map[string]string) error {
	zoneID, err := atoi32(params, "zone_id")
	if err != nil {
		return err
	}
	slog.Info("action: SET_HOMEPOINT", "character", actx.CharacterID, "zone_id", zoneID)
	return nil
}

func handleDisplayMessage(_ context.Context, actx *Context, params map[string]string) error {
	slog.Info("action: DISPLAY_MESSAGE", "character", actx.CharacterID, "message_id", params["message_id"])
	return nil
}

func handleUpdateFlag(_ context.Context, actx *Context, params map[string]string) error {
	if actx.Zone == nil {
		return fmt.Errorf("action: UPDATE_FLAG requires a zone context")
	}
	value, err := atoi32(params, "value")
	if err != nil {
		return err
	}
	actx.Zone.SetFlag(worldCIDFrom(actx.CharacterID), params["name"], value)
	return nil
}

func handleUpdateZoneFlags(_ context.Context, actx *Context, params map[string]string) error {
	if actx.Zone == nil {
		return fmt.Errorf("action: UPDATE_ZONE_FLAGS requires a zone context")
	}
	value, err := atoi32(params, "value")
	if err != nil {
		return err
	}
	// a world-scoped zone flag (cid 0) rather than a per-character one,
	// per spec.md §4.E's zone-flags/zone-character-flags distinction.
	actx.Zone.SetFlag(0, params["name"], value)
	return nil
}

func handleUpdateLNC(_ context.Context, actx *Context, params map[string]string) error {
	delta, err := atoi32(params, "delta")
	if err != nil {
		return err
	}
	slog.Info("action: UPDATE_LNC", "character", actx.CharacterID, "delta", delta)
	return nil
}

func handleUpdatePoints(_ context.Context, actx *Context, params map[string]string) error {
	delta, err := atoi32(params, "delta")
	if err != nil {
		return err
	}
	slog.Info("action: UPDATE_POINTS", "character", actx.CharacterID, "kind", params["kind"], "delta", delta)
	return nil
}

func handleSetNPCState(_ context.Context, actx *Context, params map[string]string) error {
	if actx.Zone == nil {
		return fmt.Errorf("action: SET_NPC_STATE requires a zone context")
	}
	npcID, err := atoi32(params, "npc_id")
	if err != nil {
		return err
	}
	state, err := atoi32(params, "state")
	if err != nil {
		return err
	}
	slog.Info("action: SET_NPC_STATE", "zone", actx.Zone.DefinitionID, "npc_id", npcID, "state", state)
	return nil
}

func handleStageEffect(_ context.Context, actx *Context, params map[string]string) error {
	slog.Info("action: STAGE_EFFECT", "character", actx.CharacterID, "effect", params["effect_id"])
	return nil
}

func handleSpecialDirection(_ context.Context, actx *Context, params map[string]string) error {
	slog.Info("action: SPECIAL_DIRECTION", "character", actx.CharacterID, "direction", params["direction_id"])
	return nil
}

// handlePlaySoundLike builds PLAY_BGM/PLAY_SOUND_EFFECT, which only
// differ in the log label, not in any stateful effect.
func handlePlaySoundLike(kind string) Handler {
	return func(_ context.Context, actx *Context, params map[string]string) error {
		slog.Info("action: play "+kind, "character", actx.CharacterID, "id", params["sound_id"])
		return nil
	}
}

// worldCIDFrom derives a per-character-flag scoping key from a
// character UUID. Zone character-flags are properly scoped by the
// session's world-CID (spec.md §4.E), but ActionRunner's interface
// (grounded on zone.ActionRunner/event.ActionRunner, spec.md §9 narrow-
// interface rule) only carries the character's UUID into action
// handlers. Truncating the UUID to an int64 is a stable per-character
// key, which is sufficient for flag scoping even though it isn't the
// real world-CID a session would use elsewhere.
func worldCIDFrom(id model.UUID) int64 {
	var v int64
	for i := 0; i < 8; i++ {
		v = v<<8 | int64(id[i])
	}
	return v
}

func atoi32(params map[string]string, key string) (int32, error) {
	raw, ok := params[key]
	if !ok {
		return 0, fmt.Errorf("action: missing param %q", key)
	}
	v, err := strconv.Atoi(raw)
	if err != nil {
		return 0, fmt.Errorf("action: param %q not an integer: %w", key, err)
	}
	return int32(v), nil
}

// atof32 parses a float param, defaulting to 0 when absent.
func atof32(params map[string]string, key string) (float32, error) {
	raw, ok := params[key]
	if !ok || raw == "" {
		return 0, nil
	}
	v, err := strconv.ParseFloat(raw, 32)
	if err != nil {
		return 0, fmt.Errorf("action: param %q not a float: %w", key, err)
	}
	return float32(v), nil
}

// atoi32Opt parses an optional integer param, returning (0, false) when
// key is absent or empty rather than an error.
func atoi32Opt(params map[string]string, key string) (int32, bool, error) {
	raw, ok := params[key]
	if !ok || raw == "" {
		return 0, false, nil
	}
	v, err := strconv.Atoi(raw)
	if err != nil {
		return 0, false, fmt.Errorf("action: param %q not an integer: %w", key, err)
	}
	return int32(v), true, nil
}

// parseUUIDList parses a comma-separated list of UUIDs, skipping blank
// entries. Used by UPDATE_COMP's "remove" param.
func parseUUIDList(raw string) ([]model.UUID, error) {
	if raw == "" {
		return nil, nil
	}
	parts := strings.Split(raw, ",")
	out := make([]model.UUID, 0, len(parts))
	for _, p := range parts {
		p = strings.TrimSpace(p)
		if p == "" {
			continue
		}
		id, err := uuid.Parse(p)
		if err != nil {
			return nil, fmt.Errorf("action: invalid uuid %q: %w", p, err)
		}
		out = append(out, id)
	}
	return out, nil
}
