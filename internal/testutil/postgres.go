// Package testutil provides shared testing utilities: a disposable
// PostgreSQL container with the schema applied, a deterministic mock
// model, and a quiet test logger.
package testutil

import (
	"context"
	"os"
	"testing"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/modules/postgres"
	"github.com/testcontainers/testcontainers-go/wait"

	"github.com/aetherchat/aether/db"
)

// TestDB wraps a PostgreSQL test container and a ready connection pool.
type TestDB struct {
	Container *postgres.PostgresContainer
	Pool      *pgxpool.Pool
	ConnStr   string
}

// SetupPostgres starts an isolated PostgreSQL container, applies the
// embedded migrations, and returns a connected pool. The container and
// pool are cleaned up automatically when the test finishes.
//
// Skips the test when AETHER_SKIP_DOCKER_TESTS is set, for environments
// without a container runtime.
func SetupPostgres(t *testing.T) *TestDB {
	t.Helper()

	if os.Getenv("AETHER_SKIP_DOCKER_TESTS") != "" {
		t.Skip("skipping: AETHER_SKIP_DOCKER_TESTS is set")
	}

	ctx := context.Background()

	container, err := postgres.Run(ctx,
		"postgres:16-alpine",
		postgres.WithDatabase("aether_test"),
		postgres.WithUsername("aether_test"),
		postgres.WithPassword("test_password"),
		testcontainers.WithWaitStrategy(
			wait.ForLog("database system is ready to accept connections").
				WithOccurrence(2).
				WithStartupTimeout(60*time.Second)),
	)
	if err != nil {
		t.Fatalf("starting postgres container: %v", err)
	}
	t.Cleanup(func() {
		_ = container.Terminate(context.Background())
	})

	connStr, err := container.ConnectionString(ctx, "sslmode=disable")
	if err != nil {
		t.Fatalf("getting connection string: %v", err)
	}

	if err := db.Migrate(connStr); err != nil {
		t.Fatalf("running migrations: %v", err)
	}

	pool, err := pgxpool.New(ctx, connStr)
	if err != nil {
		t.Fatalf("creating connection pool: %v", err)
	}
	t.Cleanup(pool.Close)

	if err := pool.Ping(ctx); err != nil {
		t.Fatalf("pinging database: %v", err)
	}

	return &TestDB{Container: container, Pool: pool, ConnStr: connStr}
}
