package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"olivetrace/domain"

	"github.com/jmoiron/sqlx"

	_ "github.com/lib/pq"
)

const schema = `
CREATE TABLE IF NOT EXISTS participants (
	address    TEXT PRIMARY KEY,
	name       TEXT NOT NULL,
	role       TEXT NOT NULL,
	created_at TIMESTAMPTZ NOT NULL DEFAULT now(),
	updated_at TIMESTAMPTZ NOT NULL DEFAULT now()
);

CREATE TABLE IF NOT EXISTS ledger_cursors (
	name       TEXT PRIMARY KEY,
	block      BIGINT NOT NULL,
	updated_at TIMESTAMPTZ NOT NULL DEFAULT now()
);`

type PgRepository struct {
	db *sqlx.DB
}

func NewPgRepository(dsn string) *PgRepository {
	db := sqlx.MustConnect("postgres", dsn)

	// Connection pool configuration
	db.SetMaxOpenConns(15)
	db.SetMaxIdleConns(8)
	db.SetConnMaxLifetime(5 * time.Minute)
	db.SetConnMaxIdleTime(2 * time.Minute)

	return &PgRepository{db: db}
}

func (r *PgRepository) Close() error {
	return r.db.Close()
}

// Migrate creates the registry and cursor tables if they are missing.
func (r *PgRepository) Migrate(ctx context.Context) error {
	if _, err := r.db.ExecContext(ctx, schema); err != nil {
		return fmt.Errorf("migrate schema: %w", err)
	}
	return nil
}

// GetPoolStats returns current connection pool statistics
func (r *PgRepository) GetPoolStats() map[string]interface{} {
	stats := r.db.Stats()
	return map[string]interface{}{
		"max_open_connections": stats.MaxOpenConnections,
		"open_connections":     stats.OpenConnections,
		"in_use":               stats.InUse,
		"idle":                 stats.Idle,
		"wait_count":           stats.WaitCount,
		"wait_duration_ms":     stats.WaitDuration.Milliseconds(),
	}
}

func (r *PgRepository) GetParticipant(ctx context.Context, address string) (domain.Participant, error) {
	var p domain.Participant
	query := `SELECT * FROM participants WHERE address = $1`

	err := r.db.GetContext(ctx, &p, query, address)
	if errors.Is(err, sql.ErrNoRows) {
		return p, domain.ErrParticipantNotFound
	}
	return p, err
}

func (r *PgRepository) GetParticipants(ctx context.Context, role domain.Role, limit, offset int) ([]domain.Participant, error) {
	participants := make([]domain.Participant, 0)
	query := `SELECT * FROM participants
		WHERE ($1 = '' OR role = $1)
		ORDER BY name ASC, address ASC
		LIMIT $2 OFFSET $3`

	if err := r.db.SelectContext(ctx, &participants, query, string(role), limit, offset); err != nil {
		return nil, err
	}
	return participants, nil
}

func (r *PgRepository) CountParticipants(ctx context.Context, role domain.Role) (int, error) {
	var count int
	query := `SELECT COUNT(*) FROM participants WHERE ($1 = '' OR role = $1)`

	if err := r.db.GetContext(ctx, &count, query, string(role)); err != nil {
		return 0, err
	}
	return count, nil
}

func (r *PgRepository) UpsertParticipant(ctx context.Context, p domain.Participant) (domain.Participant, error) {
	var saved domain.Participant
	query := `
		INSERT INTO participants (address, name, role)
		VALUES (:address, :name, :role)
		ON CONFLICT (address) DO UPDATE
		SET name = EXCLUDED.name, role = EXCLUDED.role, updated_at = now()
		RETURNING *`

	rows, err := r.db.NamedQueryContext(ctx, query, p)
	if err != nil {
		return saved, err
	}
	defer rows.Close()

	if rows.Next() {
		err = rows.StructScan(&saved)
	}
	return saved, err
}

func (r *PgRepository) GetCursor(ctx context.Context, name string) (uint64, bool, error) {
	var block int64
	query := `SELECT block FROM ledger_cursors WHERE name = $1`

	err := r.db.GetContext(ctx, &block, query, name)
	if errors.Is(err, sql.ErrNoRows) {
		return 0, false, nil
	}
	if err != nil {
		return 0, false, err
	}
	return uint64(block), true, nil
}

func (r *PgRepository) SaveCursor(ctx context.Context, name string, block uint64) error {
	query := `
		INSERT INTO ledger_cursors (name, block) VALUES ($1, $2)
		ON CONFLICT (name) DO UPDATE SET block = EXCLUDED.block, updated_at = now()`

	_, err := r.db.ExecContext(ctx, query, name, int64(block))
	return err
}
