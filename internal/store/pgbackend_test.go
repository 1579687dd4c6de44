package store

import (
	"context"
	"log"
	"os"
	"testing"

	"github.com/stretchr/testify/require"
	"github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/modules/postgres"

	"github.com/imagine-project/channelserver/internal/model"
)

var testDSN string

// TestMain starts a disposable Postgres container via the
// testcontainers postgres module and runs migrations once for every
// test in this package, following the teacher's testutil.PostgresDSN
// TestMain shape.
func TestMain(m *testing.M) {
	ctx := context.Background()

	container, err := postgres.Run(ctx,
		"postgres:16-alpine",
		postgres.WithDatabase("testdb"),
		postgres.WithUsername("test"),
		postgres.WithPassword("test"),
		postgres.BasicWaitStrategies(),
	)
	if err != nil {
		log.Printf("skipping pgbackend tests: starting postgres container: %v", err)
		os.Exit(0)
	}
	defer func() { _ = testcontainers.TerminateContainer(container) }()

	testDSN, err = container.ConnectionString(ctx, "sslmode=disable")
	if err != nil {
		log.Fatalf("getting connection string: %v", err)
	}

	if err := RunMigrations(ctx, testDSN); err != nil {
		log.Fatalf("running migrations: %v", err)
	}

	os.Exit(m.Run())
}

type pgTestRecord struct {
	UUID  model.UUID
	Name  string
	Score int64
}

func TestPgBackend_InsertFetchExplicitUpdate(t *testing.T) {
	ctx := context.Background()
	pool, err := Connect(ctx, testDSN)
	require.NoError(t, err)
	defer pool.Close()

	backend := NewPgBackend(pool)
	s := New(backend)

	id := model.NewUUID()
	rec := &pgTestRecord{UUID: id, Name: "alice", Score: 10}
	require.NoError(t, Apply(ctx, s, []ChangeOp{Insert[pgTestRecord](s, id, rec)}))

	Unload[pgTestRecord](s, id) // force re-fetch from Postgres
	got, err := Load[pgTestRecord](ctx, s, id, false)
	require.NoError(t, err)
	require.Equal(t, "alice", got.Name)
	require.Equal(t, int64(10), got.Score)

	newVal, err := ExplicitUpdate[pgTestRecord](ctx, s, id, "Score", 5, 10)
	require.NoError(t, err)
	require.Equal(t, int64(15), newVal)

	// Wrong expected value must conflict and leave the row untouched.
	_, err = ExplicitUpdate[pgTestRecord](ctx, s, id, "Score", 100, 10)
	require.Error(t, err, "expected conflict error for stale expectCurrent")
}
