package store

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/imagine-project/channelserver/internal/model"
)

// PgBackend persists every record type into one generic jsonb-keyed table
// (store_records). A single relational table per domain type would be
// more queryable, but the spec treats the relational schema as an
// implementation detail behind the abstract Store interface (§1 "Relational
// persistence driver ... used through an abstract Store interface"); the
// generic table keeps every one of the ~25 persisted record types wired to
// the real driver without hand-writing 25 bespoke schemas.
type PgBackend struct {
	pool *pgxpool.Pool
}

// NewPgBackend wraps an existing pgx pool. Call store.RunMigrations first.
func NewPgBackend(pool *pgxpool.Pool) *PgBackend {
	return &PgBackend{pool: pool}
}

// Connect opens a pool against dsn and pings it, following the teacher's
// db.New (internal/db/db.go) connect-then-ping pattern.
func Connect(ctx context.Context, dsn string) (*pgxpool.Pool, error) {
	pool, err := pgxpool.New(ctx, dsn)
	if err != nil {
		return nil, fmt.Errorf("store: connecting to database: %w", err)
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("store: pinging database: %w", err)
	}
	return pool, nil
}

func (b *PgBackend) Fetch(ctx context.Context, typeName string, id model.UUID, dst any) error {
	var data []byte
	err := b.pool.QueryRow(ctx,
		`SELECT data FROM store_records WHERE type_name = $1 AND id = $2`,
		typeName, id,
	).Scan(&data)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return ErrNotFound
		}
		return fmt.Errorf("pgbackend: fetch %s/%s: %w", typeName, id, err)
	}
	return unmarshalInto(data, dst)
}

func (b *PgBackend) Persist(ctx context.Context, ops []RawRecordOp) error {
	tx, err := b.pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("pgbackend: begin tx: %w", err)
	}
	defer tx.Rollback(ctx) //nolint:errcheck // no-op once committed

	for _, op := range ops {
		switch op.Kind {
		case OpInsert, OpUpdate:
			_, err = tx.Exec(ctx,
				`INSERT INTO store_records (type_name, id, data, updated_at)
				 VALUES ($1, $2, $3, now())
				 ON CONFLICT (type_name, id) DO UPDATE SET data = EXCLUDED.data, updated_at = now()`,
				op.TypeName, op.ID, op.JSON)
		case OpDelete:
			_, err = tx.Exec(ctx,
				`DELETE FROM store_records WHERE type_name = $1 AND id = $2`,
				op.TypeName, op.ID)
		case OpExplicitUpdate:
			var tag pgx.CommandTag
			tag, err = tx.Exec(ctx,
				`UPDATE store_records
				 SET data = jsonb_set(data, ARRAY[$3::text], to_jsonb(((data->>$3)::bigint)+$4::bigint)), updated_at = now()
				 WHERE type_name = $1 AND id = $2 AND (data->>$3)::bigint = $5::bigint`,
				op.TypeName, op.ID, op.Field, op.Delta, op.ExpectCurrent)
			if err == nil && tag.RowsAffected() == 0 {
				return fmt.Errorf("%w: %s.%s no matching row at expected value %d", ErrConflict, op.TypeName, op.Field, op.ExpectCurrent)
			}
		}
		if err != nil {
			return fmt.Errorf("pgbackend: persist %s op on %s/%s: %w", opKindName(op.Kind), op.TypeName, op.ID, err)
		}
	}

	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("pgbackend: commit tx: %w", err)
	}
	return nil
}

func (b *PgBackend) ExplicitUpdate(ctx context.Context, typeName string, id model.UUID, field string, delta, expectCurrent int64) (int64, error) {
	var result int64
	err := b.pool.QueryRow(ctx,
		`UPDATE store_records
		 SET data = jsonb_set(data, ARRAY[$3::text], to_jsonb(((data->>$3)::bigint)+$4::bigint)), updated_at = now()
		 WHERE type_name = $1 AND id = $2 AND (data->>$3)::bigint = $5::bigint
		 RETURNING (data->>$3)::bigint`,
		typeName, id, field, delta, expectCurrent,
	).Scan(&result)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return 0, fmt.Errorf("%w: %s.%s no matching row at expected value %d", ErrConflict, typeName, field, expectCurrent)
		}
		return 0, fmt.Errorf("pgbackend: explicit update %s/%s: %w", typeName, id, err)
	}
	return result, nil
}

func opKindName(k OpKind) string {
	switch k {
	case OpInsert:
		return "insert"
	case OpUpdate:
		return "update"
	case OpDelete:
		return "delete"
	case OpExplicitUpdate:
		return "explicit_update"
	default:
		return "unknown"
	}
}
