package registry

import (
	"context"
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"time"

	_ "modernc.org/sqlite"

	"github.com/kiranshivaraju/sitewatch/pkg/models"
)

const sqliteSchema = `
CREATE TABLE IF NOT EXISTS targets (
    id         TEXT PRIMARY KEY,
    name       TEXT NOT NULL,
    url        TEXT NOT NULL,
    client_id  TEXT NOT NULL DEFAULT '',
    type       TEXT NOT NULL DEFAULT 'website',
    created_at INTEGER NOT NULL
);`

// SQLiteOverlay stores overlay targets in a local SQLite file. It is the
// default when no Postgres database is configured.
type SQLiteOverlay struct {
	db *sql.DB
}

// OpenSQLite opens (creating if needed) the database at path.
func OpenSQLite(ctx context.Context, path string) (*SQLiteOverlay, error) {
	if dir := filepath.Dir(path); dir != "" {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, fmt.Errorf("create overlay directory: %w", err)
		}
	}

	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("open sqlite overlay: %w", err)
	}
	// A single connection serialises writers; SQLite allows only one anyway.
	db.SetMaxOpenConns(1)

	if _, err := db.ExecContext(ctx, sqliteSchema); err != nil {
		db.Close()
		return nil, fmt.Errorf("create overlay schema: %w", err)
	}
	return &SQLiteOverlay{db: db}, nil
}

func (o *SQLiteOverlay) List(ctx context.Context) ([]models.Target, error) {
	rows, err := o.db.QueryContext(ctx,
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

func (o *SQLiteOverlay) Insert(ctx context.Context, t models.Target) error {
	res, err := o.db.ExecContext(ctx,
		`INSERT INTO targets (id, name, url, client_id, type, created_at)
		 VALUES (?, ?, ?, ?, ?, ?)
		 ON CONFLICT(id) DO NOTHING`,
		t.ID, t.Name, t.URL, t.ClientID, t.Type, time.Now().UnixMilli())
	if err != nil {
		return fmt.Errorf("insert overlay target: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("insert overlay target: %w", err)
	}
	if n == 0 {
		return fmt.Errorf("%w: %s", ErrDuplicateTarget, t.ID)
	}
	return nil
}

func (o *SQLiteOverlay) Delete(ctx context.Context, id string) error {
	res, err := o.db.ExecContext(ctx, `DELETE FROM targets WHERE id = ?`, id)
	if err != nil {
		return fmt.Errorf("delete overlay target: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("delete overlay target: %w", err)
	}
	if n == 0 {
		return fmt.Errorf("%w: %s", ErrNotFound, id)
	}
	return nil
}

func (o *SQLiteOverlay) Ping(ctx context.Context) error {
	return o.db.PingContext(ctx)
}

func (o *SQLiteOverlay) Close() error {
	return o.db.Close()
}

var _ Overlay = (*SQLiteOverlay)(nil)
