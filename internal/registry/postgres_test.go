package registry_test

import (
	"context"
	"path/filepath"
	"runtime"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/modules/postgres"
	"github.com/testcontainers/testcontainers-go/wait"

	"github.com/kiranshivaraju/sitewatch/internal/config"
	"github.com/kiranshivaraju/sitewatch/internal/registry"
	"github.com/kiranshivaraju/sitewatch/pkg/models"
)

// migrationsDir returns the absolute path to the migrations directory.
func migrationsDir() string {
	_, filename, _, _ := runtime.Caller(0)
	return filepath.Join(filepath.Dir(filename), "..", "..", "migrations")
}

func setupPostgres(t *testing.T) *registry.PostgresOverlay {
	t.Helper()
	ctx := context.Background()

	pgContainer, err := postgres.Run(ctx,
		"postgres:16-alpine",
		postgres.WithDatabase("sitewatch_test"),
		postgres.WithUsername("test"),
		postgres.WithPassword("test"),
		testcontainers.WithWaitStrategy(
			wait.ForLog("database system is ready to accept connections").
				WithOccurrence(2).
				WithStartupTimeout(60*time.Second)),
	)
	require.NoError(t, err)

	t.Cleanup(func() {
		require.NoError(t, pgContainer.Terminate(ctx))
	})

	connStr, err := pgContainer.ConnectionString(ctx, "sslmode=disable")
	require.NoError(t, err)

	require.NoError(t, registry.RunMigrations(connStr, migrationsDir()))
	// A second run is a no-op.
	require.NoError(t, registry.RunMigrations(connStr, migrationsDir()))

	pool, err := registry.Connect(ctx, config.DatabaseConfig{
		URL:             connStr,
		MaxOpenConns:    5,
		MaxIdleConns:    1,
		ConnMaxLifetime: time.Minute,
	})
	require.NoError(t, err)

	o := registry.NewPostgresOverlay(pool)
	t.Cleanup(func() { o.Close() })
	return o
}

func TestPostgresOverlay_CRUD(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping integration test")
	}
	o := setupPostgres(t)
	ctx := context.Background()

	require.NoError(t, o.Ping(ctx))
	require.NoError(t, o.Insert(ctx, models.Target{ID: "a", Name: "A", URL: "https://a.example", ClientID: "c1", Type: "website"}))
	require.NoError(t, o.Insert(ctx, models.Target{ID: "b", Name: "B", URL: "https://b.example", Type: "website"}))

	err := o.Insert(ctx, models.Target{ID: "a", Name: "A2", URL: "https://a2.example", Type: "website"})
	assert.ErrorIs(t, err, registry.ErrDuplicateTarget)

	list, err := o.List(ctx)
	require.NoError(t, err)
	require.Len(t, list, 2)
	assert.Equal(t, "c1", list[0].ClientID)

	require.NoError(t, o.Delete(ctx, "a"))
	assert.ErrorIs(t, o.Delete(ctx, "a"), registry.ErrNotFound)

	list, err = o.List(ctx)
	require.NoError(t, err)
	require.Len(t, list, 1)
	assert.Equal(t, "b", list[0].ID)
}

func TestPostgresOverlay_BehindRegistry(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping integration test")
	}
	o := setupPostgres(t)
	ctx := context.Background()

	r := registry.New([]models.Target{{ID: "static", Name: "S", URL: "https://s.example"}}, o)
	added, err := r.Add(ctx, models.Target{URL: "https://www.example.org"})
	require.NoError(t, err)
	assert.Equal(t, "example-org", added.ID)

	assert.ErrorIs(t, r.Remove(ctx, "static"), registry.ErrStaticTarget)
	require.NoError(t, r.Remove(ctx, "example-org"))
}
