// Package account implements the login → play → logout lifecycle
// (spec.md §4.F AccountManager). Grounded on
// original_source/server/channel/src/AccountManager.{h,cpp} for
// sequencing, and on la2go's internal/gameserver (CharacterRepository/
// PlayerPersister interfaces, handler.go's character-selection flow)
// for the Go shape: small storage interfaces injected into the
// constructor instead of a global singleton manager.
package account

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/imagine-project/channelserver/internal/chanerr"
	"github.com/imagine-project/channelserver/internal/model"
	"github.com/imagine-project/channelserver/internal/session"
	"github.com/imagine-project/channelserver/internal/store"
)

// WorldConn is the narrow slice of internal/worldlink AccountManager needs:
// emitting the internal ACCOUNT_LOGIN packet and LOGOUT_DISCONNECT.
type WorldConn interface {
	SendAccountLogin(username string, sessionKey [2]int32)
	SendLogoutDisconnect(worldCID int64)
}

// EventRuntime is the narrow slice of internal/event AccountManager
// needs to restore or clear event state across logins/channel-switches.
type EventRuntime interface {
	RestoreSwitchSkills(s *session.Session, login model.ChannelLogin)
	CancelZoneOutAndLogoutEffects(s *session.Session)
	SetChannelLoginEvent(s *session.Session, login *model.ChannelLogin)
	ContinueChannelChangeEvent(s *session.Session, login model.ChannelLogin)
}

// Manager orchestrates login/logout/channel-switch and character
// hydration (spec.md §4.F).
type Manager struct {
	store    *store.Store
	sessions *session.Registry
	world    WorldConn
	events   EventRuntime

	// expectedVersion is the exact PACKET_LOGIN client version string to
	// accept; "" disables the check (used by tests that don't care).
	expectedVersion string
}

func NewManager(st *store.Store, sessions *session.Registry, world WorldConn, events EventRuntime) *Manager {
	return &Manager{store: st, sessions: sessions, world: world, events: events}
}

// SetExpectedVersion configures the client version HandleLoginRequest
// requires; production wiring points this at config.ChannelServer.ClientVersion.
func (m *Manager) SetExpectedVersion(v string) { m.expectedVersion = v }

// The expectedVersion set through SetExpectedVersion is compared verbatim
// against every HandleLoginRequest's clientVersion (spec.md §8 scenario 1).

// HandleLoginRequest loads the Account from the lobby store and, if
// found, assigns it to s and forwards the login to the world (spec.md
// §4.F step 1). A missing account is logged and dropped, not
// propagated as an error, matching the source's silent-drop behavior.
// A wrong clientVersion or an already-logged-in username is rejected
// with a classified error instead, so the caller can reply with
// WRONG_CLIENT_VERSION / ACCOUNT_STILL_LOGGED_IN (spec.md §8 scenarios
// 1, 2) and leave the session in its pre-auth state.
func (m *Manager) HandleLoginRequest(ctx context.Context, username, clientVersion string, sessionKey [2]int32, findAccount func(username string) (model.UUID, bool)) error {
	if m.expectedVersion != "" && clientVersion != m.expectedVersion {
		return fmt.Errorf("account: login %q: %w", username, chanerr.New(chanerr.KindValidation, "HandleLoginRequest", chanerr.ErrWrongClientVersion))
	}

	if _, exists := m.sessions.ByUsername(username); exists {
		return fmt.Errorf("account: login %q: %w", username, chanerr.New(chanerr.KindValidation, "HandleLoginRequest", chanerr.ErrAccountStillLoggedIn))
	}

	accountID, ok := findAccount(username)
	if !ok {
		slog.Warn("login request for unknown account", "username", username)
		return nil
	}

	acct, err := store.Load[model.Account](ctx, m.store, accountID, true)
	if err != nil {
		slog.Warn("login request: loading account failed", "username", username, "err", err)
		return nil
	}

	s := session.NewSession(username, 0)
	s.AccountUUID = acct.UUID
	s.SessionKey = sessionKey
	m.sessions.Set(s)

	m.world.SendAccountLogin(username, sessionKey)
	return nil
}

// HandleLoginResponse runs once the world replies with character
// selection (spec.md §4.F step 2).
func (m *Manager) HandleLoginResponse(ctx context.Context, s *session.Session, worldCID int64, characterID model.UUID, priorChannelLogin *model.ChannelLogin) error {
	if err := m.InitializeCharacter(ctx, s, worldCID, characterID); err != nil {
		m.failLogin(s)
		return fmt.Errorf("account: initializing character: %w", err)
	}

	s.WorldCID = worldCID
	s.CharacterUUID = characterID
	s.Authenticated = true

	if priorChannelLogin != nil {
		if m.events != nil {
			m.events.RestoreSwitchSkills(s, *priorChannelLogin)
		}
	} else if m.events != nil {
		m.events.CancelZoneOutAndLogoutEffects(s)
	}

	return nil
}

// failLogin disables save-on-logout and tells the world to disconnect,
// per spec.md §4.F step 3.
func (m *Manager) failLogin(s *session.Session) {
	s.Authenticated = false
	if m.world != nil {
		m.world.SendLogoutDisconnect(s.WorldCID)
	}
}

// InitializeCharacter walks the owned graph for characterID, recovering
// orphaned items, clearing invalid slots and validating skill IDs
// (spec.md §4.F "Character initialization").
func (m *Manager) InitializeCharacter(ctx context.Context, s *session.Session, worldCID int64, characterID model.UUID) error {
	char, err := store.Load[model.Character](ctx, m.store, characterID, true)
	if err != nil {
		return fmt.Errorf("loading character: %w", chanerr.New(chanerr.KindStorage, "InitializeCharacter", err))
	}

	progress, err := store.Load[model.CharacterProgress](ctx, m.store, char.ProgressID, true)
	if err != nil {
		return fmt.Errorf("loading progress: %w", err)
	}
	if _, err := store.Load[model.FriendSettings](ctx, m.store, char.FriendSettingsID, true); err != nil {
		return fmt.Errorf("loading friend settings: %w", err)
	}

	for _, boxID := range char.ItemBoxIDs {
		box, err := store.Load[model.ItemBox](ctx, m.store, boxID, true)
		if err != nil {
			return fmt.Errorf("loading item box %s: %w", boxID, err)
		}
		if err := m.recoverOrphansAndClearInvalidSlots(ctx, box); err != nil {
			return err
		}
	}

	for _, skillID := range progress.LearnedSkillIDs {
		if !m.skillIsValid(skillID) {
			return fmt.Errorf("%w: unknown skill id %d", chanerr.ErrUnknownSkill, skillID)
		}
	}

	s.CharacterState = &model.CharacterState{
		CharacterID: char.UUID,
		WorldCID:    worldCID,
		Pos:         char.LogoutPos,
	}
	return nil
}

// skillValidator lets callers plug in Definitions.Skill without this
// package importing internal/definitions directly for a one-method need.
type skillValidator func(id int32) bool

var validateSkill skillValidator = func(int32) bool { return true }

// SetSkillValidator overrides the skill-ID validity check used by
// InitializeCharacter; production wiring points this at
// Definitions.Skill.
func SetSkillValidator(v func(id int32) bool) { validateSkill = v }

func (m *Manager) skillIsValid(id int32) bool { return validateSkill(id) }

// recoverOrphansAndClearInvalidSlots implements spec.md §3 invariant 2:
// persistent items whose item_box back-pointer matches box but aren't
// slotted are placed into any empty slot; null or cross-owned entries
// become empty.
func (m *Manager) recoverOrphansAndClearInvalidSlots(ctx context.Context, box *model.ItemBox) error {
	slotted := make(map[model.UUID]bool, len(box.Slots))
	for i, id := range box.Slots {
		if id == model.NilUUID {
			continue
		}
		item, err := store.Load[model.Item](ctx, m.store, id, false)
		if err != nil || item.ItemBoxID != box.UUID {
			box.Slots[i] = model.NilUUID
			continue
		}
		slotted[id] = true
	}

	recovered := 0
	for i := range box.Slots {
		if box.Slots[i] != model.NilUUID {
			continue
		}
		orphan, ok := m.findOrphan(box, slotted)
		if !ok {
			break
		}
		box.Slots[i] = orphan
		slotted[orphan] = true
		recovered++
	}
	if recovered > 0 {
		slog.Info("recovered orphan items", "box", box.UUID, "count", recovered)
	}
	return nil
}

// findOrphanFn is the hook findOrphan delegates to when looking for an
// item whose ItemBoxID names box but which no slot holds. The default
// finds nothing and no store query is wired to it, so no orphan is
// recovered unless this variable is replaced.
var findOrphanFn = func(box *model.ItemBox, slotted map[model.UUID]bool) (model.UUID, bool) {
	return model.NilUUID, false
}

func (m *Manager) findOrphan(box *model.ItemBox, slotted map[model.UUID]bool) (model.UUID, bool) {
	return findOrphanFn(box, slotted)
}

// CharacterRepo is the narrow slice of internal/store access Logout
// needs to build its change-set, kept as an interface so tests can
// stub persistence without a full Store.
type CharacterRepo interface {
	LogoutChangeSet(ctx context.Context, characterID model.UUID) ([]store.ChangeOp, error)
}

// Logout ends the session: if delay is false it runs LogoutCharacter
// and removes the session immediately (spec.md §4.F "Logout"). Status
// effects are persisted by a separate path and excluded from the
// change-set here, per spec.
func (m *Manager) Logout(ctx context.Context, s *session.Session, delay bool, repo CharacterRepo) error {
	if delay {
		return nil
	}

	ops, err := repo.LogoutChangeSet(ctx, s.CharacterUUID)
	if err != nil {
		return fmt.Errorf("account: building logout change-set: %w", err)
	}
	if err := store.Apply(ctx, m.store, ops); err != nil {
		return fmt.Errorf("account: applying logout change-set: %w", chanerr.New(chanerr.KindStorage, "Logout", err))
	}

	m.sessions.Remove(s)
	store.Unload[model.Account](m.store, s.AccountUUID)
	store.Unload[model.Character](m.store, s.CharacterUUID)
	return nil
}

// PrepareChannelChange creates a ChannelLogin capturing the session's
// hand-off state and runs the immediate logout save, leaving the
// session registered until the world hands off to the target channel
// (spec.md §4.F "Channel switch").
func (m *Manager) PrepareChannelChange(ctx context.Context, s *session.Session, zoneID, dynMapID int32, channelID int32, repo CharacterRepo) (*model.ChannelLogin, error) {
	login := &model.ChannelLogin{
		AccountID:       s.AccountUUID,
		CharacterID:     s.CharacterUUID,
		WorldCID:        s.WorldCID,
		TargetZoneID:    zoneID,
		TargetDynMapID:  dynMapID,
		TargetChannelID: channelID,
	}

	if m.events != nil {
		m.events.SetChannelLoginEvent(s, login)
	}

	ops, err := repo.LogoutChangeSet(ctx, s.CharacterUUID)
	if err != nil {
		return nil, fmt.Errorf("account: building channel-switch change-set: %w", err)
	}
	if err := store.Apply(ctx, m.store, ops); err != nil {
		return nil, fmt.Errorf("account: applying channel-switch save: %w", chanerr.New(chanerr.KindStorage, "PrepareChannelChange", err))
	}

	return login, nil
}

// IncreaseCP applies a compare-and-swap delta to account.CP and, on
// success, queues the updated Account record for sync (spec.md §4.F
// "Account CP"). A losing CAS (store.ErrConflict, meaning a concurrent
// IncreaseCP committed first) re-reads the current balance and retries
// rather than dropping its delta, so that N concurrent callers converge
// on cp_final = cp_initial + sum(n_i) (spec.md §8 testable property 6),
// the same retry loop internal/store's own CAS test demonstrates.
func (m *Manager) IncreaseCP(ctx context.Context, accountID model.UUID, amount int64, syncRecord func(model.UUID)) error {
	for {
		cur, err := store.Load[model.Account](ctx, m.store, accountID, true)
		if err != nil {
			return err
		}
		if _, err := store.ExplicitUpdate[model.Account](ctx, m.store, accountID, "CP", amount, cur.CP); err != nil {
			if errors.Is(err, store.ErrConflict) {
				continue
			}
			return fmt.Errorf("%w", chanerr.New(chanerr.KindStorage, "IncreaseCP", err))
		}
		if syncRecord != nil {
			syncRecord(accountID)
		}
		return nil
	}
}

// UpdateLogins applies a batch of world-relayed model.CharacterLogin
// records (spec.md §4.D "CharacterLogin: bulk updates are routed to
// AccountManager.update_logins"). A record reporting the account logged
// in on a WorldCID different from this channel's local session for that
// account means the account logged in elsewhere first; this channel's
// now-stale local session is force-removed to preserve invariant 1
// ("exactly one active login per account across all channels"). A
// record reporting the account logged out (LoggedIn == false) removes
// any local session for that account outright.
func (m *Manager) UpdateLogins(logins []model.CharacterLogin) {
	for _, login := range logins {
		s, ok := m.sessions.ByCharacterID(login.CharacterID)
		if !ok {
			continue
		}
		if s.AccountUUID != login.AccountID {
			continue
		}
		if !login.LoggedIn || s.WorldCID != login.WorldCID {
			slog.Info("account: dropping stale local session for account logged in elsewhere",
				"account", login.AccountID, "character", login.CharacterID, "local_cid", s.WorldCID, "reported_cid", login.WorldCID)
			m.failLogin(s)
			m.sessions.Remove(s)
		}
	}
}
