// Package sync implements the typed record replication layer between
// this channel server and the world server (spec.md §4.D SyncManager).
// There is no direct teacher analogue (la2go has no world-server tier),
// so the registry shape is grounded on
// original_source/server/channel/src/ChannelSyncManager.{h,cpp},
// re-expressed as a Go registry keyed by type tag following the
// teacher's itemhandler.Register/Get function-table idiom.
package sync

import (
	"fmt"
	"sync"

	"github.com/imagine-project/channelserver/internal/model"
)

// Code is a SyncManager operation result (spec.md §4.D).
type Code int

const (
	CodeUpdated Code = iota
	CodeHandled
	CodeFailed
)

// Record is the type-erased payload exchanged with the world
// connection: a type tag plus its JSON-ish representation. The wire
// codec itself belongs to internal/worldlink; sync only needs to route by
// Type.
type Record struct {
	Type     string
	UUID     model.UUID
	IsRemove bool
	Data     any
}

// BuildHandler constructs a non-persistent record from a raw wire
// payload (spec.md §4.D build_handler).
type BuildHandler func(raw any) any

// UpdateHandler runs type-specific local handling on each inbound
// record (spec.md §4.D update_handler).
type UpdateHandler func(typeTag string, obj any, isRemove bool, source string) Code

// SyncCompleteHandler runs bulk post-processing after a sync batch is
// applied (spec.md §4.D sync_complete_handler).
type SyncCompleteHandler func(typeTag string, batch []Record, source string)

// ObjectConfig is the per-type registration entry (spec.md §4.D).
type ObjectConfig struct {
	Persistent          bool
	StoreRef            string // "lobby" or "world"; resolved by the caller, sync only tags it through
	BuildHandler        BuildHandler
	UpdateHandler       UpdateHandler
	SyncCompleteHandler SyncCompleteHandler
}

// Outbound is an emitted queued change awaiting flush to the world
// connection.
type Outbound struct {
	Type     string
	UUID     model.UUID
	IsRemove bool
	Data     any
}

// WorldSender is the narrow slice of internal/worldlink SyncManager needs
// to flush a batch; kept as an interface to avoid a sync->worldlink import
// cycle (world relays application-level envelopes, sync only needs
// "send this batch").
type WorldSender interface {
	SendSyncBatch(batch []Outbound) error
}

// Manager is the registry of ObjectConfig plus the outbound queue.
type Manager struct {
	mu       sync.Mutex
	configs  map[string]ObjectConfig
	outbound []Outbound
	world    WorldSender
}

func NewManager(world WorldSender) *Manager {
	return &Manager{
		configs: make(map[string]ObjectConfig),
		world:   world,
	}
}

// Register installs the ObjectConfig for typeTag, following the
// teacher's itemhandler.Register(name, handler) idiom generalized from
// one interface value to a small config struct per type.
func (m *Manager) Register(typeTag string, cfg ObjectConfig) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.configs[typeTag] = cfg
}

// Config returns the ObjectConfig registered for typeTag.
func (m *Manager) Config(typeTag string) (ObjectConfig, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	cfg, ok := m.configs[typeTag]
	return cfg, ok
}

// UpdateRecord queues an outbound change (spec.md §4.D update_record).
func (m *Manager) UpdateRecord(typeTag string, uuid model.UUID, data any) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.outbound = append(m.outbound, Outbound{Type: typeTag, UUID: uuid, Data: data})
}

// RemoveRecord queues an outbound delete (spec.md §4.D remove_record).
func (m *Manager) RemoveRecord(typeTag string, uuid model.UUID) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.outbound = append(m.outbound, Outbound{Type: typeTag, UUID: uuid, IsRemove: true})
}

// SyncOutgoing flushes one batch to the world connection (spec.md §4.D
// sync_outgoing).
func (m *Manager) SyncOutgoing() error {
	m.mu.Lock()
	batch := m.outbound
	m.outbound = nil
	m.mu.Unlock()

	if len(batch) == 0 {
		return nil
	}
	if m.world == nil {
		return fmt.Errorf("sync: no world connection to flush %d outbound records", len(batch))
	}
	return m.world.SendSyncBatch(batch)
}

// ApplyIncoming runs update_handler for every record in batch, then
// sync_complete_handler grouped by type, preserving the ordering
// guarantee of spec.md §4.D ("within a single inbound batch, all
// update_handler calls precede any sync_complete_handler call").
func (m *Manager) ApplyIncoming(batch []Record, source string) map[model.UUID]Code {
	results := make(map[model.UUID]Code, len(batch))
	byType := make(map[string][]Record)

	for _, rec := range batch {
		cfg, ok := m.Config(rec.Type)
		if !ok || cfg.UpdateHandler == nil {
			results[rec.UUID] = CodeFailed
			continue
		}
		results[rec.UUID] = cfg.UpdateHandler(rec.Type, rec.Data, rec.IsRemove, source)
		byType[rec.Type] = append(byType[rec.Type], rec)
	}

	for typeTag, recs := range byType {
		cfg, ok := m.Config(typeTag)
		if ok && cfg.SyncCompleteHandler != nil {
			cfg.SyncCompleteHandler(typeTag, recs, source)
		}
	}

	return results
}
