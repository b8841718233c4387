// Package testutil starts throwaway Postgres and S3 containers for
// integration and e2e tests.
package testutil

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/cloo-solutions/askdesk/internal/database"
	"github.com/docker/go-connections/nat"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/wait"
)

const (
	postgresImage = "pgvector/pgvector:0.8.1-pg18"
	rustfsImage   = "rustfs/rustfs:latest"

	// RustFS credentials baked into the container.
	RustFSAccessKey = "rustfsadmin"
	RustFSSecretKey = "rustfsadmin"
)

// Container is a started test container reachable at Host:Port.
type Container struct {
	ctr  testcontainers.Container
	Host string
	Port string
}

// Terminate stops and removes the container.
func (c *Container) Terminate(ctx context.Context) error {
	return testcontainers.TerminateContainer(c.ctr)
}

func start(ctx context.Context, t *testing.T, req testcontainers.ContainerRequest, port string) *Container {
	t.Helper()

	ctr, err := testcontainers.GenericContainer(ctx, testcontainers.GenericContainerRequest{
		ContainerRequest: req,
		Started:          true,
	})
	if err != nil {
		t.Fatalf("failed to start %s: %v", req.Image, err)
	}

	host, err := ctr.Host(ctx)
	if err != nil {
		t.Fatalf("failed to get %s host: %v", req.Image, err)
	}
	mapped, err := ctr.MappedPort(ctx, nat.Port(port))
	if err != nil {
		t.Fatalf("failed to get %s port: %v", req.Image, err)
	}

	return &Container{ctr: ctr, Host: host, Port: mapped.Port()}
}

// PostgresContainer runs Postgres with the pgvector extension available.
type PostgresContainer struct {
	*Container
}

func NewPostgresContainer(ctx context.Context, t *testing.T) *PostgresContainer {
	return &PostgresContainer{start(ctx, t, testcontainers.ContainerRequest{
		Image:        postgresImage,
		ExposedPorts: []string{"5432/tcp"},
		Env: map[string]string{
			"POSTGRES_USER":     "askdesk",
			"POSTGRES_PASSWORD": "askdesk",
			"POSTGRES_DB":       "askdesk",
		},
		// The entrypoint restarts postgres once after init, hence two occurrences.
		WaitingFor: wait.ForAll(
			wait.ForLog("database system is ready to accept connections").WithOccurrence(2),
			wait.ForListeningPort("5432/tcp"),
		).WithStartupTimeout(60 * time.Second),
	}, "5432")}
}

func (pc *PostgresContainer) ConnectionString() string {
	return fmt.Sprintf("postgres://askdesk:askdesk@%s:%s/askdesk?sslmode=disable", pc.Host, pc.Port)
}

// RustFSContainer runs an S3-compatible object store.
type RustFSContainer struct {
	*Container
}

func NewRustFSContainer(ctx context.Context, t *testing.T) *RustFSContainer {
	return &RustFSContainer{start(ctx, t, testcontainers.ContainerRequest{
		Image:        rustfsImage,
		ExposedPorts: []string{"9000/tcp"},
		Env: map[string]string{
			"RUSTFS_ACCESS_KEY": RustFSAccessKey,
			"RUSTFS_SECRET_KEY": RustFSSecretKey,
		},
		WaitingFor: wait.ForListeningPort("9000/tcp").WithStartupTimeout(30 * time.Second),
	}, "9000")}
}

func (rc *RustFSContainer) Endpoint() string {
	return fmt.Sprintf("http://%s:%s", rc.Host, rc.Port)
}

// NewTestPool connects to pc, retrying while the server settles, and applies
// the embedded migrations. The pool is closed when the test ends.
func NewTestPool(ctx context.Context, t *testing.T, pc *PostgresContainer) *pgxpool.Pool {
	t.Helper()

	cfg := database.Config{URL: pc.ConnectionString(), MaxConns: 5}
	var pool *pgxpool.Pool
	var err error
	for attempt := 1; attempt <= 5; attempt++ {
		if pool, err = database.NewPool(ctx, cfg); err == nil {
			break
		}
		time.Sleep(time.Duration(attempt) * 500 * time.Millisecond)
	}
	if err != nil {
		t.Fatalf("failed to connect to postgres: %v", err)
	}
	t.Cleanup(pool.Close)

	if _, err := database.MigrateUp(cfg.URL, nil); err != nil {
		t.Fatalf("failed to run migrations: %v", err)
	}
	return pool
}
