package store

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/imagine-project/channelserver/internal/model"
)

// ChangeOp is one entry in a ChangeSet, built by Insert/Update/Delete/
// ExplicitUpdateOp. It carries everything Apply needs to both persist the
// change through the Backend and, on success, update the in-memory cache
// — without Apply itself needing reflection over the caller's types.
type ChangeOp struct {
	raw    RawRecordOp
	commit func(s *Store)
}

// RawRecordOp is what actually crosses into the Backend: a type-erased,
// JSON-encoded record plus enough addressing info to write it.
type RawRecordOp struct {
	TypeName string
	Kind     OpKind
	ID       model.UUID

	JSON []byte // encoded record; empty for Delete/ExplicitUpdate

	// ExplicitUpdate-only fields.
	Field         string
	Delta         int64
	ExpectCurrent int64
}

// Insert stages rec for insertion into T's backing table (and cache).
func Insert[T any](s *Store, id model.UUID, rec *T) ChangeOp {
	return mutate[T](s, OpInsert, id, rec)
}

// Update stages rec as a full replacement of the existing row/cache entry.
func Update[T any](s *Store, id model.UUID, rec *T) ChangeOp {
	return mutate[T](s, OpUpdate, id, rec)
}

// Delete stages removal of id from T's backing table and cache.
func Delete[T any](s *Store, id model.UUID) ChangeOp {
	return ChangeOp{
		raw: RawRecordOp{TypeName: typeName[T](), Kind: OpDelete, ID: id},
		commit: func(s *Store) {
			Unload[T](s, id)
		},
	}
}

// ExplicitUpdateOp stages a CAS-style field delta (spec.md §4.B
// "explicit_update") — e.g. "subtract N CP, expect current = X". newValue
// is not written: Apply reports only whether the batch committed, and the
// new value is read by re-Loading with refresh=true.
func ExplicitUpdateOp[T any](s *Store, id model.UUID, field string, delta, expectCurrent int64, newValue *int64) ChangeOp {
	return ChangeOp{
		raw: RawRecordOp{
			TypeName:      typeName[T](),
			Kind:          OpExplicitUpdate,
			ID:            id,
			Field:         field,
			Delta:         delta,
			ExpectCurrent: expectCurrent,
		},
		commit: func(s *Store) {
			// Cache refresh for explicit updates is the caller's
			// responsibility (it usually re-Loads with refresh=true);
			// newValue is left untouched.
		},
	}
}

func mutate[T any](s *Store, kind OpKind, id model.UUID, rec *T) ChangeOp {
	data, err := json.Marshal(rec)
	if err != nil {
		// Encoding a record built entirely of this package's own types
		// never fails in practice; a panic here would indicate a caller
		// passed something unmarshalable, a programming error.
		panic(fmt.Sprintf("store: marshal %s: %v", typeName[T](), err))
	}
	return ChangeOp{
		raw: RawRecordOp{TypeName: typeName[T](), Kind: kind, ID: id, JSON: data},
		commit: func(s *Store) {
			Put[T](s, id, rec)
		},
	}
}

// Apply applies ops atomically: either every operation commits or none
// does (spec.md §4.B "apply ... fails with StoreError if any operation
// conflicts"). With no Backend configured, ops are applied directly to
// the cache (used by tests and fully in-memory record types).
func Apply(ctx context.Context, s *Store, ops []ChangeOp) error {
	if len(ops) == 0 {
		return nil
	}

	if s.backend != nil {
		raws := make([]RawRecordOp, len(ops))
		for i, op := range ops {
			raws[i] = op.raw
		}
		if err := s.backend.Persist(ctx, raws); err != nil {
			return fmt.Errorf("store: apply: %w", err)
		}
	}

	for _, op := range ops {
		op.commit(s)
	}
	return nil
}

// ExplicitUpdate performs a single CAS-style field delta immediately
// (outside a larger ChangeSet) and returns the resulting value. Used by
// AccountManager.IncreaseCP (spec.md §4.F).
func ExplicitUpdate[T any](ctx context.Context, s *Store, id model.UUID, field string, delta, expectCurrent int64) (int64, error) {
	if s.backend == nil {
		return 0, fmt.Errorf("store: explicit update %s/%s: %w", typeName[T](), id, fmt.Errorf("no backend configured"))
	}
	v, err := s.backend.ExplicitUpdate(ctx, typeName[T](), id, field, delta, expectCurrent)
	if err != nil {
		return 0, fmt.Errorf("store: explicit update %s/%s: %w", typeName[T](), id, err)
	}
	return v, nil
}
