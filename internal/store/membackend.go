package store

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"

	"github.com/imagine-project/channelserver/internal/model"
)

// MemBackend is an in-process Backend used by tests and by any deployment
// that does not need cross-restart durability for a given record type. It
// is also the reference implementation of the CAS semantics Apply and
// ExplicitUpdate rely on.
type MemBackend struct {
	mu   sync.Mutex
	rows map[string]map[model.UUID]map[string]any // typeName -> id -> decoded fields
}

// NewMemBackend creates an empty in-memory Backend.
func NewMemBackend() *MemBackend {
	return &MemBackend{rows: make(map[string]map[model.UUID]map[string]any)}
}

func (b *MemBackend) Fetch(_ context.Context, typeName string, id model.UUID, dst any) error {
	b.mu.Lock()
	defer b.mu.Unlock()

	tbl, ok := b.rows[typeName]
	if !ok {
		return ErrNotFound
	}
	fields, ok := tbl[id]
	if !ok {
		return ErrNotFound
	}
	data, err := json.Marshal(fields)
	if err != nil {
		return fmt.Errorf("membackend: re-encode %s/%s: %w", typeName, id, err)
	}
	return json.Unmarshal(data, dst)
}

func (b *MemBackend) Persist(_ context.Context, ops []RawRecordOp) error {
	b.mu.Lock()
	defer b.mu.Unlock()

	// Validate every op before mutating anything, so a failure partway
	// through never leaves a partial commit (all-or-nothing, spec.md §4.B).
	for _, op := range ops {
		if op.Kind != OpExplicitUpdate {
			continue
		}
		fields, ok := b.rows[op.TypeName][op.ID]
		if !ok {
			return ErrNotFound
		}
		cur, isNum := fields[op.Field].(float64)
		if v, isInt := fields[op.Field].(int64); isInt {
			cur, isNum = float64(v), true
		}
		if !isNum && fields[op.Field] != nil {
			return fmt.Errorf("membackend: field %q is not numeric", op.Field)
		}
		if op.ExpectCurrent >= 0 && int64(cur) != op.ExpectCurrent {
			return fmt.Errorf("%w: %s.%s expected %d, got %d", ErrConflict, op.TypeName, op.Field, op.ExpectCurrent, int64(cur))
		}
	}

	for _, op := range ops {
		tbl := b.rows[op.TypeName]
		if tbl == nil {
			tbl = make(map[model.UUID]map[string]any)
			b.rows[op.TypeName] = tbl
		}

		switch op.Kind {
		case OpInsert, OpUpdate:
			var fields map[string]any
			if err := json.Unmarshal(op.JSON, &fields); err != nil {
				return fmt.Errorf("membackend: decode %s/%s: %w", op.TypeName, op.ID, err)
			}
			tbl[op.ID] = fields
		case OpDelete:
			delete(tbl, op.ID)
		case OpExplicitUpdate:
			if err := b.explicitUpdateLocked(op.TypeName, op.ID, op.Field, op.Delta, op.ExpectCurrent); err != nil {
				return err
			}
		}
	}
	return nil
}

func (b *MemBackend) ExplicitUpdate(_ context.Context, typeName string, id model.UUID, field string, delta, expectCurrent int64) (int64, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	if err := b.explicitUpdateLocked(typeName, id, field, delta, expectCurrent); err != nil {
		return 0, err
	}
	return b.rows[typeName][id][field].(int64), nil
}

// explicitUpdateLocked must be called with b.mu held.
func (b *MemBackend) explicitUpdateLocked(typeName string, id model.UUID, field string, delta, expectCurrent int64) error {
	tbl, ok := b.rows[typeName]
	if !ok {
		return ErrNotFound
	}
	fields, ok := tbl[id]
	if !ok {
		return ErrNotFound
	}

	var current int64
	switch v := fields[field].(type) {
	case int64:
		current = v
	case float64:
		current = int64(v)
	case nil:
		current = 0
	default:
		return fmt.Errorf("membackend: field %q is not numeric", field)
	}

	if expectCurrent >= 0 && current != expectCurrent {
		return fmt.Errorf("%w: %s.%s expected %d, got %d", ErrConflict, typeName, field, expectCurrent, current)
	}

	fields[field] = current + delta
	return nil
}
