// Package testutil starts throwaway PostgreSQL containers for battle store tests.
package testutil

import (
	"context"
	"path/filepath"
	"runtime"
	"testing"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/wait"

	"github.com/cory-johannsen/skirmish/internal/config"
	"github.com/cory-johannsen/skirmish/internal/storage/postgres"
)

const (
	pgImage    = "postgres:16-alpine"
	pgPort     = "5432/tcp"
	pgUser     = "arena"
	pgPassword = "arena"
	pgDatabase = "battles"
)

// PostgresContainer is a running database plus a pool connected to it.
type PostgresContainer struct {
	Pool   *postgres.Pool
	Config config.DatabaseConfig
}

// NewPostgresContainer starts an empty database. The container and pool are
// released by t.Cleanup.
//
// Postcondition: the test is skipped when no container provider is healthy,
// and fails if the database cannot be reached.
func NewPostgresContainer(t *testing.T) *PostgresContainer {
	t.Helper()
	testcontainers.SkipIfProviderIsNotHealthy(t)
	ctx := context.Background()
	start := time.Now()

	ctr, err := testcontainers.GenericContainer(ctx, testcontainers.GenericContainerRequest{
		ContainerRequest: testcontainers.ContainerRequest{
			Image:        pgImage,
			ExposedPorts: []string{pgPort},
			Env: map[string]string{
				"POSTGRES_USER":     pgUser,
				"POSTGRES_PASSWORD": pgPassword,
				"POSTGRES_DB":       pgDatabase,
			},
			// The server restarts once after initdb, so the ready line appears twice.
			WaitingFor: wait.ForAll(
				wait.ForLog("database system is ready to accept connections").WithOccurrence(2),
				wait.ForListeningPort(pgPort),
			).WithStartupTimeout(45 * time.Second),
		},
		Started: true,
	})
	if err != nil {
		t.Fatalf("starting %s: %v [%s]", pgImage, err, time.Since(start))
	}
	t.Cleanup(func() { _ = ctr.Terminate(context.Background()) })

	host, err := ctr.Host(ctx)
	if err != nil {
		t.Fatalf("container host: %v", err)
	}
	port, err := ctr.MappedPort(ctx, pgPort)
	if err != nil {
		t.Fatalf("container port: %v", err)
	}

	cfg := config.DatabaseConfig{
		Host:            host,
		Port:            port.Int(),
		User:            pgUser,
		Password:        pgPassword,
		Name:            pgDatabase,
		SSLMode:         "disable",
		MaxConns:        4,
		MinConns:        1,
		MaxConnLifetime: 5 * time.Minute,
	}
	pool, err := postgres.NewPool(ctx, cfg)
	if err != nil {
		t.Fatalf("connecting to %s: %v [%s]", cfg.Host, err, time.Since(start))
	}
	t.Cleanup(pool.Close)

	t.Logf("postgres ready on %s:%d [%s]", host, cfg.Port, time.Since(start))
	return &PostgresContainer{Pool: pool, Config: cfg}
}

// DSN returns the connection string for the container database.
func (pc *PostgresContainer) DSN() string {
	return pc.Config.DSN()
}

// ApplyMigrations brings the schema to the latest version under MigrationsDir.
func (pc *PostgresContainer) ApplyMigrations(t *testing.T) {
	t.Helper()
	res, err := postgres.Migrate(pc.DSN(), MigrationsDir(), false, 0)
	if err != nil {
		t.Fatalf("applying migrations: %v", err)
	}
	t.Logf("schema at version %d", res.Version)
}

// NewPool starts a migrated database and returns its pgx pool.
func NewPool(t *testing.T) *pgxpool.Pool {
	t.Helper()
	pc := NewPostgresContainer(t)
	pc.ApplyMigrations(t)
	return pc.Pool.DB()
}

// MigrationsDir returns the absolute path of the repository's migrations directory.
func MigrationsDir() string {
	_, file, _, _ := runtime.Caller(0)
	return filepath.Join(filepath.Dir(file), "..", "..", "migrations")
}
