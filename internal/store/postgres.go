// internal/store/postgres.go
package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
)

const (
	createSlotTableSQL = `CREATE TABLE IF NOT EXISTS kv_slots (key TEXT PRIMARY KEY, value JSONB NOT NULL, updated_at TIMESTAMPTZ NOT NULL DEFAULT now())`
	selectSlotSQL      = `SELECT value FROM kv_slots WHERE key = $1`
	upsertSlotSQL      = `INSERT INTO kv_slots (key, value, updated_at) VALUES ($1, $2, now()) ON CONFLICT (key) DO UPDATE SET value = EXCLUDED.value, updated_at = now()`
)

// PostgresSlot stores the collection as one row of kv_slots.
type PostgresSlot struct {
	db  *sql.DB
	key string
}

func NewPostgresSlot(db *sql.DB, key string) *PostgresSlot {
	if key == "" {
		key = DefaultKey
	}
	return &PostgresSlot{db: db, key: key}
}

// EnsureSchema creates the kv_slots table if it does not exist.
func (p *PostgresSlot) EnsureSchema(ctx context.Context) error {
	if _, err := p.db.ExecContext(ctx, createSlotTableSQL); err != nil {
		return fmt.Errorf("create kv_slots: %w", err)
	}
	return nil
}

func (p *PostgresSlot) Load(ctx context.Context) ([]byte, bool, error) {
	var data []byte
	err := p.db.QueryRowContext(ctx, selectSlotSQL, p.key).Scan(&data)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, err
	}
	return data, true, nil
}

func (p *PostgresSlot) Store(ctx context.Context, data []byte) error {
	_, err := p.db.ExecContext(ctx, upsertSlotSQL, p.key, string(data))
	return err
}

func (p *PostgresSlot) Backend() string { return "postgres" }
