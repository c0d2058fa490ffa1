//go:build integration

package containers

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"testing"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/testcontainers/testcontainers-go"
	tcpostgres "github.com/testcontainers/testcontainers-go/modules/postgres"

	"stagehand/internal/platform/postgres"
)

// PostgresContainer wraps a testcontainers PostgreSQL instance with both the
// lib/pq handle used by the staging stores and the pgx pool used by the target
// gateway.
type PostgresContainer struct {
	Container testcontainers.Container
	URL       string
	DB        *sql.DB
	Pool      *pgxpool.Pool
}

// NewPostgresContainer starts PostgreSQL and applies the schema.
func NewPostgresContainer(t *testing.T) *PostgresContainer {
	t.Helper()

	ctx := context.Background()

	container, err := tcpostgres.Run(ctx, "postgres:16-alpine",
		tcpostgres.WithDatabase("stagehand"),
		tcpostgres.WithUsername("stagehand"),
		tcpostgres.WithPassword("stagehand"),
		tcpostgres.BasicWaitStrategies(),
	)
	if err != nil {
		t.Fatalf("failed to start postgres container: %v", err)
	}

	url, err := container.ConnectionString(ctx, "sslmode=disable")
	if err != nil {
		terminate(t, container, "failed to get postgres connection string: %v", err)
	}

	db, err := postgres.Open(ctx, url, postgres.DefaultPool)
	if err != nil {
		terminate(t, container, "failed to open postgres: %v", err)
	}
	if err := postgres.Migrate(ctx, db); err != nil {
		_ = db.Close()
		terminate(t, container, "failed to migrate postgres: %v", err)
	}

	pool, err := postgres.OpenPool(ctx, url, 10)
	if err != nil {
		_ = db.Close()
		terminate(t, container, "failed to open pgx pool: %v", err)
	}

	return &PostgresContainer{
		Container: container,
		URL:       url,
		DB:        db,
		Pool:      pool,
	}
}

// TruncateTables empties tables and restarts their id sequences.
// Use between tests to ensure isolation.
func (p *PostgresContainer) TruncateTables(ctx context.Context, tables ...string) error {
	if len(tables) == 0 {
		return nil
	}
	query := fmt.Sprintf("TRUNCATE %s RESTART IDENTITY CASCADE", strings.Join(tables, ", "))
	if _, err := p.DB.ExecContext(ctx, query); err != nil {
		return fmt.Errorf("truncate %v: %w", tables, err)
	}
	return nil
}
