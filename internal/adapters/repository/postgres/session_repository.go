package postgres

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/vncsmyrnk/poker/internal/core/domain"
	"github.com/vncsmyrnk/poker/internal/core/ports"
)

// DefaultNotifyChannel carries the id of every changed session.
const DefaultNotifyChannel = "session_changes"

type SessionRepository struct {
	db      *sql.DB
	hub     *Hub
	channel string
}

// NewSessionRepository returns a store backed by the sessions table. Subscriptions are
// served by hub, whose Start loop must be running for changes to be pushed.
func NewSessionRepository(db *sql.DB, hub *Hub) *SessionRepository {
	channel := DefaultNotifyChannel
	if hub != nil {
		channel = hub.cfg.Channel
	}
	return &SessionRepository{
		db:      db,
		hub:     hub,
		channel: channel,
	}
}

var (
	_ ports.SessionStore   = (*SessionRepository)(nil)
	_ ports.SessionJanitor = (*SessionRepository)(nil)
)

func (r *SessionRepository) Create(ctx context.Context, id string, doc []byte) error {
	if !domain.ValidID(id) {
		return fmt.Errorf("%w: %q", domain.ErrInvalidSessionID, id)
	}
	if !json.Valid(doc) {
		return fmt.Errorf("%w: document is not valid json", domain.ErrInvalidPatch)
	}

	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	query := `
		INSERT INTO sessions (id, doc)
		VALUES ($1, $2)
		ON CONFLICT (id) DO NOTHING
	`
	res, err := tx.ExecContext(ctx, query, id, string(doc))
	if err != nil {
		return fmt.Errorf("failed to insert session: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to check inserted rows: %w", err)
	}
	if n == 0 {
		return domain.ErrSessionExists
	}

	if err := r.notify(ctx, tx, id); err != nil {
		return err
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit transaction: %w", err)
	}
	return nil
}

// Update merges patch into the stored document. The row lock serializes concurrent
// patches, so writers touching disjoint paths never lose each other's fields.
func (r *SessionRepository) Update(ctx context.Context, id string, patch domain.Patch) error {
	if err := patch.Validate(); err != nil {
		return err
	}

	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	var raw []byte
	err = tx.QueryRowContext(ctx, `SELECT doc FROM sessions WHERE id = $1 FOR UPDATE`, id).Scan(&raw)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return domain.ErrSessionNotFound
		}
		return fmt.Errorf("failed to lock session: %w", err)
	}

	var doc map[string]any
	if err := json.Unmarshal(raw, &doc); err != nil {
		return fmt.Errorf("failed to decode session %s: %w", id, err)
	}
	if err := domain.ApplyPatch(doc, patch); err != nil {
		return err
	}
	data, err := json.Marshal(doc)
	if err != nil {
		return fmt.Errorf("failed to encode session %s: %w", id, err)
	}

	query := `
		UPDATE sessions
		SET doc = $2, version = version + 1, updated_at = NOW()
		WHERE id = $1
	`
	if _, err := tx.ExecContext(ctx, query, id, string(data)); err != nil {
		return fmt.Errorf("failed to update session: %w", err)
	}

	if err := r.notify(ctx, tx, id); err != nil {
		return err
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit transaction: %w", err)
	}
	return nil
}

func (r *SessionRepository) Get(ctx context.Context, id string) ([]byte, error) {
	data, _, err := fetch(ctx, r.db, id)
	return data, err
}

func (r *SessionRepository) Subscribe(ctx context.Context, id string) (<-chan ports.Snapshot, error) {
	if r.hub == nil {
		return nil, errors.New("postgres session repository has no notification hub")
	}
	return r.hub.Subscribe(ctx, id)
}

func (r *SessionRepository) ListIdle(ctx context.Context, before time.Time) ([]string, error) {
	rows, err := r.db.QueryContext(ctx, `SELECT id FROM sessions WHERE updated_at < $1 ORDER BY id`, before)
	if err != nil {
		return nil, fmt.Errorf("failed to list idle sessions: %w", err)
	}
	defer rows.Close()

	var ids []string
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return nil, fmt.Errorf("failed to scan session id: %w", err)
		}
		ids = append(ids, id)
	}
	return ids, rows.Err()
}

func (r *SessionRepository) Delete(ctx context.Context, id string) error {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	res, err := tx.ExecContext(ctx, `DELETE FROM sessions WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("failed to delete session: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to check deleted rows: %w", err)
	}
	if n == 0 {
		return domain.ErrSessionNotFound
	}

	if err := r.notify(ctx, tx, id); err != nil {
		return err
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit transaction: %w", err)
	}
	return nil
}

// notify is delivered by postgres only when tx commits.
func (r *SessionRepository) notify(ctx context.Context, tx *sql.Tx, id string) error {
	if _, err := tx.ExecContext(ctx, `SELECT pg_notify($1, $2)`, r.channel, id); err != nil {
		return fmt.Errorf("failed to notify session change: %w", err)
	}
	return nil
}

type queryer interface {
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
}

func fetch(ctx context.Context, q queryer, id string) ([]byte, int64, error) {
	var (
		data    []byte
		version int64
	)
	err := q.QueryRowContext(ctx, `SELECT doc, version FROM sessions WHERE id = $1`, id).Scan(&data, &version)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, 0, domain.ErrSessionNotFound
		}
		return nil, 0, fmt.Errorf("failed to get session: %w", err)
	}
	return data, version, nil
}
