package session

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"time"

	_ "github.com/lib/pq" // PostgreSQL driver
	"go.uber.org/zap"
)

const sessionsSchema = `
	CREATE TABLE IF NOT EXISTS sessions (
		id         TEXT PRIMARY KEY,
		record     JSONB NOT NULL,
		updated_at TIMESTAMPTZ NOT NULL DEFAULT now()
	)
`

// PostgresStore persists session records in PostgreSQL so sessions
// survive process restarts and can be shared across replicas.
type PostgresStore struct {
	db     *sql.DB
	logger *zap.Logger
}

// NewPostgresStore opens a connection pool, verifies it, and ensures
// the sessions table exists.
func NewPostgresStore(dsn string, logger *zap.Logger) (*PostgresStore, error) {
	db, err := sql.Open("postgres", dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	db.SetMaxOpenConns(25)
	db.SetMaxIdleConns(5)
	db.SetConnMaxLifetime(5 * time.Minute)

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := db.PingContext(ctx); err != nil {
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}
	if _, err := db.ExecContext(ctx, sessionsSchema); err != nil {
		return nil, fmt.Errorf("failed to ensure sessions table: %w", err)
	}

	logger.Info("session store backed by postgres")
	return &PostgresStore{db: db, logger: logger}, nil
}

// Put stores or overwrites the record for the given session id.
func (s *PostgresStore) Put(ctx context.Context, id string, rec Record) error {
	payload, err := json.Marshal(rec)
	if err != nil {
		return fmt.Errorf("failed to encode session record: %w", err)
	}

	query := `
		INSERT INTO sessions (id, record, updated_at)
		VALUES ($1, $2, now())
		ON CONFLICT (id) DO UPDATE SET record = $2, updated_at = now()
	`
	if _, err := s.db.ExecContext(ctx, query, id, payload); err != nil {
		return fmt.Errorf("failed to store session: %w", err)
	}

	s.logger.Debug("session stored", zap.String("id", id))
	return nil
}

// Get returns the record for the given session id, if any.
func (s *PostgresStore) Get(ctx context.Context, id string) (Record, bool, error) {
	var payload []byte
	err := s.db.QueryRowContext(ctx, `SELECT record FROM sessions WHERE id = $1`, id).Scan(&payload)
	if err == sql.ErrNoRows {
		return Record{}, false, nil
	}
	if err != nil {
		return Record{}, false, fmt.Errorf("failed to load session: %w", err)
	}

	var rec Record
	if err := json.Unmarshal(payload, &rec); err != nil {
		return Record{}, false, fmt.Errorf("failed to decode session record: %w", err)
	}
	return rec, true, nil
}

// Clear removes the record for the given session id.
func (s *PostgresStore) Clear(ctx context.Context, id string) error {
	if _, err := s.db.ExecContext(ctx, `DELETE FROM sessions WHERE id = $1`, id); err != nil {
		return fmt.Errorf("failed to clear session: %w", err)
	}
	return nil
}

// Close closes the underlying connection pool.
func (s *PostgresStore) Close() error {
	s.logger.Info("closing session store database connection")
	return s.db.Close()
}
