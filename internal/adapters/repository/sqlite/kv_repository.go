package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/vncsmyrnk/poker/internal/core/ports"
	_ "modernc.org/sqlite"
)

// KeyValueRepository persists device-local settings in a single sqlite file.
type KeyValueRepository struct {
	db *sql.DB
}

var _ ports.KeyValueStore = (*KeyValueRepository)(nil)

func Open(path string) (*KeyValueRepository, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, fmt.Errorf("failed to create state directory: %w", err)
	}
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("failed to open state file: %w", err)
	}
	db.SetMaxOpenConns(1)

	r := &KeyValueRepository{db: db}
	if err := r.initSchema(); err != nil {
		_ = db.Close()
		return nil, err
	}
	return r, nil
}

func (r *KeyValueRepository) initSchema() error {
	stmts := []string{
		`PRAGMA journal_mode=WAL;`,
		`CREATE TABLE IF NOT EXISTS device_kv (
			key TEXT PRIMARY KEY,
			value TEXT NOT NULL,
			updated_at TEXT NOT NULL
		);`,
	}
	for _, stmt := range stmts {
		if _, err := r.db.Exec(stmt); err != nil {
			return fmt.Errorf("failed to init state schema: %w", err)
		}
	}
	return nil
}

func (r *KeyValueRepository) Close() error {
	return r.db.Close()
}

func (r *KeyValueRepository) Get(ctx context.Context, key string) (string, bool, error) {
	var value string
	err := r.db.QueryRowContext(ctx, `SELECT value FROM device_kv WHERE key = ?`, key).Scan(&value)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return "", false, nil
		}
		return "", false, fmt.Errorf("failed to read %s: %w", key, err)
	}
	return value, true, nil
}

func (r *KeyValueRepository) Set(ctx context.Context, key, value string) error {
	query := `
		INSERT INTO device_kv (key, value, updated_at)
		VALUES (?, ?, ?)
		ON CONFLICT(key) DO UPDATE SET value = excluded.value, updated_at = excluded.updated_at
	`
	now := time.Now().UTC().Format(time.RFC3339Nano)
	if _, err := r.db.ExecContext(ctx, query, key, value, now); err != nil {
		return fmt.Errorf("failed to write %s: %w", key, err)
	}
	return nil
}
