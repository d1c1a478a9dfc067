package repository

import (
	"context"
	"errors"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
)

const pgSessionSchema = `
	CREATE TABLE IF NOT EXISTS dashboard_sessions (
		device_key  TEXT NOT NULL,
		session_key TEXT NOT NULL,
		payload     BYTEA NOT NULL,
		updated_at  TIMESTAMPTZ NOT NULL,
		PRIMARY KEY (device_key, session_key)
	)
`

type pgExecutor interface {
	Exec(ctx context.Context, sql string, arguments ...any) (pgconn.CommandTag, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
}

// PgSessionBackend guarda blobs de sesion en Postgres, una fila por dispositivo.
type PgSessionBackend struct {
	pool      pgExecutor
	deviceKey string
}

func NewPgSessionBackend(pool pgExecutor, deviceKey string) *PgSessionBackend {
	return &PgSessionBackend{pool: pool, deviceKey: deviceKey}
}

// EnsureSchema crea la tabla si no existe.
func (r *PgSessionBackend) EnsureSchema(ctx context.Context) error {
	_, err := r.pool.Exec(ctx, pgSessionSchema)
	return err
}

func (r *PgSessionBackend) Get(ctx context.Context, key string) ([]byte, bool, error) {
	const query = `
		SELECT payload
		FROM dashboard_sessions
		WHERE device_key = $1 AND session_key = $2
	`
	var payload []byte
	err := r.pool.QueryRow(ctx, query, r.deviceKey, key).Scan(&payload)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, err
	}
	return payload, true, nil
}

func (r *PgSessionBackend) Put(ctx context.Context, key string, value []byte) error {
	const query = `
		INSERT INTO dashboard_sessions (device_key, session_key, payload, updated_at)
		VALUES ($1, $2, $3, $4)
		ON CONFLICT (device_key, session_key)
		DO UPDATE SET payload = EXCLUDED.payload, updated_at = EXCLUDED.updated_at
	`
	_, err := r.pool.Exec(ctx, query,
		r.deviceKey,
		key,
		value,
		time.Now().UTC(),
	)
	return err
}

func (r *PgSessionBackend) Delete(ctx context.Context, key string) error {
	const query = `
		DELETE FROM dashboard_sessions
		WHERE device_key = $1 AND session_key = $2
	`
	_, err := r.pool.Exec(ctx, query, r.deviceKey, key)
	return err
}
