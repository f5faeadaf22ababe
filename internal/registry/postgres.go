package registry

import (
	"context"
	"errors"
	"fmt"

	"github.com/golang-migrate/migrate/v4"
	_ "github.com/golang-migrate/migrate/v4/database/postgres"
	_ "github.com/golang-migrate/migrate/v4/source/file"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/kiranshivaraju/sitewatch/internal/config"
	"github.com/kiranshivaraju/sitewatch/pkg/models"
)

// Connect opens a pgx pool sized from cfg and verifies connectivity.
func Connect(ctx context.Context, cfg config.DatabaseConfig) (*pgxpool.Pool, error) {
	poolCfg, err := pgxpool.ParseConfig(cfg.URL)
	if err != nil {
		return nil, fmt.Errorf("parse database URL: %w", err)
	}
	poolCfg.MaxConns = int32(cfg.MaxOpenConns)
	poolCfg.MinConns = int32(cfg.MaxIdleConns)
	poolCfg.MaxConnLifetime = cfg.ConnMaxLifetime

	pool, err := pgxpool.NewWithConfig(ctx, poolCfg)
	if err != nil {
		return nil, fmt.Errorf("connect to database: %w", err)
	}

	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("ping database: %w", err)
	}

	return pool, nil
}

// RunMigrations applies every pending migration in dir to the database.
func RunMigrations(databaseURL, dir string) error {
	m, err := migrate.New("file://"+dir, databaseURL)
	if err != nil {
		return fmt.Errorf("init migrations: %w", err)
	}
	defer m.Close()

	if err := m.Up(); err != nil && !errors.Is(err, migrate.ErrNoChange) {
		return fmt.Errorf("apply migrations: %w", err)
	}
	return nil
}

// PostgresOverlay stores overlay targets in Postgres.
type PostgresOverlay struct {
	pool *pgxpool.Pool
}

func NewPostgresOverlay(pool *pgxpool.Pool) *PostgresOverlay {
	return &PostgresOverlay{pool: pool}
}

func (o *PostgresOverlay) List(ctx context.Context) ([]models.Target, error) {
	rows, err := o.pool.Query(ctx,
		`SELECT id, name, url, client_id, type FROM targets ORDER BY created_at, id`)
	if err != nil {
		return nil, fmt.Errorf("list overlay targets: %w", err)
	}
	defer rows.Close()

	out := []models.Target{}
	for rows.Next() {
		var t models.Target
		if err := rows.Scan(&t.ID, &t.Name, &t.URL, &t.ClientID, &t.Type); err != nil {
			return nil, fmt.Errorf("scan overlay target: %w", err)
		}
		out = append(out, t)
	}
	return out, rows.Err()
}

func (o *PostgresOverlay) Insert(ctx context.Context, t models.Target) error {
	tag, err := o.pool.Exec(ctx,
		`INSERT INTO targets (id, name, url, client_id, type)
		 VALUES ($1, $2, $3, $4, $5)
		 ON CONFLICT (id) DO NOTHING`,
		t.ID, t.Name, t.URL, t.ClientID, t.Type)
	if err != nil {
		return fmt.Errorf("insert overlay target: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("%w: %s", ErrDuplicateTarget, t.ID)
	}
	return nil
}

func (o *PostgresOverlay) Delete(ctx context.Context, id string) error {
	tag, err := o.pool.Exec(ctx, `DELETE FROM targets WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("delete overlay target: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("%w: %s", ErrNotFound, id)
	}
	return nil
}

func (o *PostgresOverlay) Ping(ctx context.Context) error {
	return o.pool.Ping(ctx)
}

// Close releases the pool.
func (o *PostgresOverlay) Close() error {
	o.pool.Close()
	return nil
}

var _ Overlay = (*PostgresOverlay)(nil)
