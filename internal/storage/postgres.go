// internal/storage/postgres.go
package storage

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/google/uuid"
	_ "github.com/lib/pq"
)

const schema = `
	CREATE TABLE IF NOT EXISTS records (
		resource   TEXT NOT NULL,
		id         TEXT NOT NULL,
		data       JSONB NOT NULL,
		created_at TIMESTAMPTZ NOT NULL DEFAULT NOW(),
		PRIMARY KEY (resource, id)
	)`

// Postgres keeps every resource in one JSONB table keyed by (resource, id).
type Postgres struct {
	DB *sql.DB
}

func NewPostgres(dsn string) (*Postgres, error) {
	db, err := sql.Open("postgres", dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to open db: %w", err)
	}
	if err := db.Ping(); err != nil {
		return nil, fmt.Errorf("failed to connect to db: %w", err)
	}
	return &Postgres{DB: db}, nil
}

// EnsureSchema creates the records table if not exists
func (s *Postgres) EnsureSchema(ctx context.Context) error {
	if _, err := s.DB.ExecContext(ctx, schema); err != nil {
		return fmt.Errorf("failed to create records table: %w", err)
	}
	return nil
}

func (s *Postgres) Get(ctx context.Context, resource, id string) (json.RawMessage, error) {
	var data []byte
	err := s.DB.QueryRowContext(ctx,
		`SELECT data FROM records WHERE resource = $1 AND id = $2`,
		resource, id,
	).Scan(&data)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("get %s/%s: %w", resource, id, err)
	}
	return json.RawMessage(data), nil
}

func (s *Postgres) List(ctx context.Context, resource string) (map[string]json.RawMessage, error) {
	rows, err := s.DB.QueryContext(ctx,
		`SELECT id, data FROM records WHERE resource = $1 ORDER BY created_at`,
		resource,
	)
	if err != nil {
		return nil, fmt.Errorf("query failed: %w", err)
	}
	defer rows.Close()

	out := make(map[string]json.RawMessage)
	for rows.Next() {
		var (
			id   string
			data []byte
		)
		if err := rows.Scan(&id, &data); err != nil {
			return nil, fmt.Errorf("scan failed: %w", err)
		}
		out[id] = json.RawMessage(data)
	}
	return out, rows.Err()
}

func (s *Postgres) Create(ctx context.Context, resource string, record any) (string, error) {
	data, err := json.Marshal(record)
	if err != nil {
		return "", fmt.Errorf("encode %s record: %w", resource, err)
	}
	id := uuid.NewString()
	_, err = s.DB.ExecContext(ctx,
		`INSERT INTO records (resource, id, data) VALUES ($1, $2, $3)`,
		resource, id, data,
	)
	if err != nil {
		return "", fmt.Errorf("insert %s record: %w", resource, err)
	}
	return id, nil
}

// Patch relies on jsonb concatenation so the merge happens in one statement.
func (s *Postgres) Patch(ctx context.Context, resource, id string, fields map[string]any) error {
	data, err := json.Marshal(fields)
	if err != nil {
		return fmt.Errorf("encode patch: %w", err)
	}
	res, err := s.DB.ExecContext(ctx, `
		UPDATE records
		SET data = data || $3::jsonb
		WHERE resource = $1 AND id = $2
	`, resource, id, data)
	if err != nil {
		return fmt.Errorf("patch %s/%s: %w", resource, id, err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("patch %s/%s: %w", resource, id, err)
	}
	if n == 0 {
		return ErrNotFound
	}
	return nil
}

func (s *Postgres) Delete(ctx context.Context, resource, id string) error {
	_, err := s.DB.ExecContext(ctx, `DELETE FROM records WHERE resource = $1 AND id = $2`, resource, id)
	if err != nil {
		return fmt.Errorf("delete %s/%s: %w", resource, id, err)
	}
	return nil
}

func (s *Postgres) Close() error {
	return s.DB.Close()
}
