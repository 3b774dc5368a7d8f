package events

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"time"

	// Registers the pgx database/sql driver used by OpenPostgres.
	_ "github.com/jackc/pgx/v5/stdlib"
)

// PostgresStore persists events to an append-only outbox table so external
// indexers can tail committed notifications.
//
// Schema:
//
//	CREATE TABLE IF NOT EXISTS event_outbox (
//	    id         UUID PRIMARY KEY,
//	    action     TEXT NOT NULL,
//	    agent      TEXT NOT NULL DEFAULT '',
//	    occurred_at TIMESTAMPTZ NOT NULL,
//	    payload    JSONB NOT NULL
//	);
type PostgresStore struct {
	db *sql.DB
}

// OpenPostgres opens a pgx-backed connection pool for the outbox.
// Returns nil if the DSN is empty (postgres not configured).
func OpenPostgres(dsn string) (*PostgresStore, error) {
	if dsn == "" {
		return nil, nil
	}
	db, err := sql.Open("pgx", dsn)
	if err != nil {
		return nil, fmt.Errorf("open postgres: %w", err)
	}
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := db.PingContext(ctx); err != nil {
		db.Close()
		return nil, fmt.Errorf("postgres ping failed: %w", err)
	}
	return NewPostgresStore(db), nil
}

// NewPostgresStore wraps an existing handle (tests inject their own).
func NewPostgresStore(db *sql.DB) *PostgresStore {
	return &PostgresStore{db: db}
}

func (s *PostgresStore) Append(ctx context.Context, event Event) error {
	payload, err := json.Marshal(event)
	if err != nil {
		return fmt.Errorf("marshal event: %w", err)
	}
	_, err = s.db.ExecContext(ctx,
		`INSERT INTO event_outbox (id, action, agent, occurred_at, payload)
		 VALUES ($1, $2, $3, $4, $5)`,
		event.ID, event.Action, event.Agent, event.Timestamp, payload,
	)
	if err != nil {
		return fmt.Errorf("append event: %w", err)
	}
	return nil
}

func (s *PostgresStore) ListByAgent(ctx context.Context, agent string) ([]Event, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT payload FROM event_outbox WHERE agent = $1 ORDER BY occurred_at`,
		agent,
	)
	if err != nil {
		return nil, fmt.Errorf("list events: %w", err)
	}
	defer rows.Close()

	var out []Event
	for rows.Next() {
		var payload []byte
		if err := rows.Scan(&payload); err != nil {
			return nil, fmt.Errorf("scan event: %w", err)
		}
		var event Event
		if err := json.Unmarshal(payload, &event); err != nil {
			return nil, fmt.Errorf("decode event: %w", err)
		}
		out = append(out, event)
	}
	return out, rows.Err()
}

func (s *PostgresStore) Close() error {
	return s.db.Close()
}
