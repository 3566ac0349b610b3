package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	_ "github.com/lib/pq"
)

const schemaQuery = `
	CREATE TABLE IF NOT EXISTS campushub_blobs (
		key        TEXT PRIMARY KEY,
		data       BYTEA NOT NULL,
		updated_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
	)
`

// PostgresBlob stores the document as one row of the campushub_blobs table
type PostgresBlob struct {
	db  *sql.DB
	key string
}

// OpenPostgres opens and pings a Postgres connection pool
func OpenPostgres(ctx context.Context, dsn string) (*sql.DB, error) {
	db, err := sql.Open("postgres", dsn)
	if err != nil {
		return nil, fmt.Errorf("opening database: %w", err)
	}
	if err := db.PingContext(ctx); err != nil {
		db.Close() // nolint:errcheck
		return nil, fmt.Errorf("pinging database: %w", err)
	}
	return db, nil
}

// NewPostgresBlob creates a blob stored under key
func NewPostgresBlob(db *sql.DB, key string) *PostgresBlob {
	if key == "" {
		key = DefaultBlobName
	}
	return &PostgresBlob{db: db, key: key}
}

// EnsureSchema creates the backing table if it doesn't exist
func (p *PostgresBlob) EnsureSchema(ctx context.Context) error {
	if _, err := p.db.ExecContext(ctx, schemaQuery); err != nil {
		return fmt.Errorf("creating campushub_blobs table: %w", err)
	}
	return nil
}

// Load reads the row for this blob's key
func (p *PostgresBlob) Load(ctx context.Context) ([]byte, error) {
	query := `SELECT data FROM campushub_blobs WHERE key = $1`

	var data []byte
	if err := p.db.QueryRowContext(ctx, query, p.key).Scan(&data); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrNotExist
		}
		return nil, fmt.Errorf("loading blob %s: %w", p.key, err)
	}
	return data, nil
}

// Save upserts the row for this blob's key
func (p *PostgresBlob) Save(ctx context.Context, data []byte) error {
	query := `
		INSERT INTO campushub_blobs (key, data, updated_at)
		VALUES ($1, $2, NOW())
		ON CONFLICT (key) DO UPDATE SET data = EXCLUDED.data, updated_at = NOW()
	`
	if _, err := p.db.ExecContext(ctx, query, p.key, data); err != nil {
		return fmt.Errorf("saving blob %s: %w", p.key, err)
	}
	return nil
}
