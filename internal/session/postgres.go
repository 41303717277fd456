package session

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	_ "github.com/lib/pq"

	"github.com/park285/bsky-shogi-thread/internal/bsky"
)

const createSessionsTable = `
	CREATE TABLE IF NOT EXISTS bsky_sessions (
		identifier  TEXT PRIMARY KEY,
		did         TEXT NOT NULL,
		handle      TEXT NOT NULL,
		access_jwt  TEXT NOT NULL,
		refresh_jwt TEXT NOT NULL,
		updated_at  TIMESTAMPTZ NOT NULL DEFAULT now()
	)`

// PostgresStore keeps one row per login identifier in bsky_sessions.
type PostgresStore struct {
	db         *sql.DB
	identifier string
}

// OpenPostgres connects, pings and makes sure the sessions table exists.
func OpenPostgres(ctx context.Context, databaseURL, identifier string) (*PostgresStore, error) {
	if strings.TrimSpace(databaseURL) == "" {
		return nil, fmt.Errorf("DATABASE_URL is required")
	}
	db, err := sql.Open("postgres", databaseURL)
	if err != nil {
		return nil, fmt.Errorf("open postgres: %w", err)
	}
	db.SetMaxOpenConns(2)
	db.SetMaxIdleConns(1)
	db.SetConnMaxLifetime(30 * time.Minute)

	pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	if err := db.PingContext(pingCtx); err != nil {
		db.Close()
		return nil, fmt.Errorf("ping postgres: %w", err)
	}
	store := NewPostgresStore(db, identifier)
	if err := store.Migrate(ctx); err != nil {
		db.Close()
		return nil, err
	}
	return store, nil
}

func NewPostgresStore(db *sql.DB, identifier string) *PostgresStore {
	return &PostgresStore{db: db, identifier: strings.ToLower(strings.TrimSpace(identifier))}
}

func (p *PostgresStore) Migrate(ctx context.Context) error {
	if _, err := p.db.ExecContext(ctx, createSessionsTable); err != nil {
		return fmt.Errorf("create bsky_sessions: %w", err)
	}
	return nil
}

func (p *PostgresStore) Load(ctx context.Context) (*bsky.Session, error) {
	const query = `
		SELECT did, handle, access_jwt, refresh_jwt
		FROM bsky_sessions
		WHERE identifier = $1`

	var s bsky.Session
	err := p.db.QueryRowContext(ctx, query, p.identifier).Scan(&s.DID, &s.Handle, &s.AccessJwt, &s.RefreshJwt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("select session: %w", err)
	}
	if !valid(&s) {
		return nil, nil
	}
	return &s, nil
}

func (p *PostgresStore) Save(ctx context.Context, s *bsky.Session) error {
	if s == nil {
		return errors.New("nil session")
	}
	const query = `
		INSERT INTO bsky_sessions (identifier, did, handle, access_jwt, refresh_jwt, updated_at)
		VALUES ($1, $2, $3, $4, $5, now())
		ON CONFLICT (identifier) DO UPDATE SET
			did = EXCLUDED.did,
			handle = EXCLUDED.handle,
			access_jwt = EXCLUDED.access_jwt,
			refresh_jwt = EXCLUDED.refresh_jwt,
			updated_at = EXCLUDED.updated_at`

	if _, err := p.db.ExecContext(ctx, query, p.identifier, s.DID, s.Handle, s.AccessJwt, s.RefreshJwt); err != nil {
		return fmt.Errorf("upsert session: %w", err)
	}
	return nil
}

func (p *PostgresStore) Close() error {
	if p == nil || p.db == nil {
		return nil
	}
	return p.db.Close()
}
