package session

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

// PostgresStore keeps sessions in a portal_sessions table so multiple portal
// instances can share them.
type PostgresStore struct {
	pool *pgxpool.Pool
}

func NewPostgresStore(pool *pgxpool.Pool) *PostgresStore {
	return &PostgresStore{pool: pool}
}

// EnsureSchema creates the sessions table if it does not exist yet.
func (s *PostgresStore) EnsureSchema(ctx context.Context) error {
	_, err := s.pool.Exec(ctx,
		`CREATE TABLE IF NOT EXISTS portal_sessions (
			id TEXT PRIMARY KEY,
			data JSONB NOT NULL,
			updated_at TIMESTAMPTZ NOT NULL DEFAULT now()
		)`)
	if err != nil {
		return fmt.Errorf("ensure portal_sessions schema: %w", err)
	}
	return nil
}

func (s *PostgresStore) Read(ctx context.Context, sid string) (Session, error) {
	var data []byte
	err := s.pool.QueryRow(ctx,
		`SELECT data FROM portal_sessions WHERE id = $1`, sid).Scan(&data)

	if errors.Is(err, pgx.ErrNoRows) {
		return Session{}, nil
	}
	if err != nil {
		return Session{}, fmt.Errorf("read session: %w", err)
	}

	var sess Session
	if err := json.Unmarshal(data, &sess); err != nil {
		return Session{}, fmt.Errorf("decode session: %w", err)
	}
	return sess, nil
}

func (s *PostgresStore) Write(ctx context.Context, sid string, sess Session) error {
	data, err := json.Marshal(sess)
	if err != nil {
		return fmt.Errorf("encode session: %w", err)
	}

	_, err = s.pool.Exec(ctx,
		`INSERT INTO portal_sessions (id, data, updated_at)
		 VALUES ($1, $2, $3)
		 ON CONFLICT (id) DO UPDATE SET data = $2, updated_at = $3`,
		sid, data, time.Now().UTC())
	if err != nil {
		return fmt.Errorf("write session: %w", err)
	}
	return nil
}

func (s *PostgresStore) Clear(ctx context.Context, sid string) error {
	_, err := s.pool.Exec(ctx, `DELETE FROM portal_sessions WHERE id = $1`, sid)
	if err != nil {
		return fmt.Errorf("clear session: %w", err)
	}
	return nil
}
