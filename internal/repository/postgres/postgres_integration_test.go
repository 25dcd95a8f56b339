//go:build integration

package postgres_test

import (
	"context"
	"database/sql"
	"fmt"
	"testing"
	"time"

	"github.com/google/uuid"
	_ "github.com/lib/pq"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/wait"

	"github.com/schedcu/v2/internal/entity"
	"github.com/schedcu/v2/internal/repository/postgres"
)

// postgresTestHelper spins up a disposable PostgreSQL container for the
// postgres package's repository implementations to run against, since
// sql.DB behavior (constraints, unique violations, transactions) can't
// be verified with the in-memory repository alone.
type postgresTestHelper struct {
	db        *sql.DB
	container testcontainers.Container
	ctx       context.Context
}

func newPostgresTestHelper(ctx context.Context, t *testing.T) *postgresTestHelper {
	t.Helper()
	req := testcontainers.ContainerRequest{
		Image:        "postgres:15-alpine",
		ExposedPorts: []string{"5432/tcp"},
		Env: map[string]string{
			"POSTGRES_USER":     "test",
			"POSTGRES_PASSWORD": "test",
			"POSTGRES_DB":       "schedcu_test",
		},
		WaitingFor: wait.ForLog("database system is ready to accept connections").
			WithOccurrence(2).
			WithStartupTimeout(30 * time.Second),
	}

	container, err := testcontainers.GenericContainer(ctx, testcontainers.GenericContainerRequest{
		ContainerRequest: req,
		Started:          true,
	})
	require.NoError(t, err)

	host, err := container.Host(ctx)
	require.NoError(t, err)
	port, err := container.MappedPort(ctx, "5432")
	require.NoError(t, err)

	connStr := fmt.Sprintf("postgres://test:test@%s:%s/schedcu_test?sslmode=disable", host, port.Port())
	db, err := sql.Open("postgres", connStr)
	require.NoError(t, err)
	require.NoError(t, db.PingContext(ctx))
	require.NoError(t, createSchema(ctx, db))

	return &postgresTestHelper{db: db, container: container, ctx: ctx}
}

func (h *postgresTestHelper) close(t *testing.T) {
	t.Helper()
	if err := h.db.Close(); err != nil {
		t.Logf("warning: failed to close database: %v", err)
	}
	if err := h.container.Terminate(h.ctx); err != nil {
		t.Logf("warning: failed to terminate container: %v", err)
	}
}

func createSchema(ctx context.Context, db *sql.DB) error {
	schema := `
	CREATE TABLE IF NOT EXISTS persons (
		id UUID PRIMARY KEY,
		type VARCHAR(20) NOT NULL,
		pgy_level INTEGER NOT NULL DEFAULT 0,
		email VARCHAR(255) NOT NULL UNIQUE,
		name VARCHAR(255) NOT NULL,
		specialties TEXT[] DEFAULT '{}',
		performs_procedures BOOLEAN DEFAULT false,
		faculty_role VARCHAR(50) DEFAULT '',
		created_at TIMESTAMP NOT NULL DEFAULT NOW(),
		updated_at TIMESTAMP NOT NULL DEFAULT NOW(),
		deleted_at TIMESTAMP
	);

	CREATE TABLE IF NOT EXISTS blocks (
		id UUID PRIMARY KEY,
		date DATE NOT NULL,
		time_of_day VARCHAR(2) NOT NULL,
		block_number INTEGER NOT NULL,
		is_weekend BOOLEAN DEFAULT false,
		is_holiday BOOLEAN DEFAULT false,
		holiday_name VARCHAR(255) DEFAULT '',
		created_at TIMESTAMP NOT NULL DEFAULT NOW(),
		UNIQUE (date, time_of_day)
	);
	`
	_, err := db.ExecContext(ctx, schema)
	return err
}

func TestPostgresPersonRepository_CreateAndGetByID(t *testing.T) {
	ctx := context.Background()
	h := newPostgresTestHelper(ctx, t)
	defer h.close(t)

	repo := postgres.NewPersonRepository(h.db)
	p, err := entity.NewPerson(uuid.New(), entity.PersonTypeResident, 2, "int-test@example.com", "Integration Resident", []string{"sports_medicine"})
	require.NoError(t, err)

	require.NoError(t, repo.Create(ctx, p))

	fetched, err := repo.GetByID(ctx, p.ID)
	require.NoError(t, err)
	assert.Equal(t, p.Email, fetched.Email)
	assert.Equal(t, p.Specialties, fetched.Specialties)

	_, err = repo.GetByID(ctx, uuid.New())
	assert.True(t, entity.IsNotFound(err))
}

func TestPostgresBlockRepository_UniqueDateTimeOfDay(t *testing.T) {
	ctx := context.Background()
	h := newPostgresTestHelper(ctx, t)
	defer h.close(t)

	repo := postgres.NewBlockRepository(h.db)
	b1, err := entity.NewBlock(uuid.New(), entity.NewDate(2026, 1, 5), entity.TimeOfDayAM, 1)
	require.NoError(t, err)
	require.NoError(t, repo.Create(ctx, b1))

	b2, err := entity.NewBlock(uuid.New(), entity.NewDate(2026, 1, 5), entity.TimeOfDayAM, 1)
	require.NoError(t, err)
	err = repo.Create(ctx, b2)
	require.Error(t, err)
	assert.True(t, entity.IsConflict(err))
}
