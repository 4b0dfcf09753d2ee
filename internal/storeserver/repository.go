package storeserver

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
)

// Record is one schemaless row: arbitrary top-level JSON fields plus the
// store-assigned id.
type Record map[string]any

// ErrNotFound is returned when an id does not exist in a collection.
var ErrNotFound = errors.New("record not found")

// Repository defines what the HTTP layer needs from the storage layer.
type Repository interface {
	Create(ctx context.Context, collection string, data Record) (Record, error)
	List(ctx context.Context, collection string, filters map[string]string) ([]Record, error)
	Update(ctx context.Context, collection, id string, patch Record) (Record, error)
	Delete(ctx context.Context, collection, id string) error
}

// PostgresRepository stores records as jsonb, one table for every
// collection. Partial updates are a jsonb merge, which gives the
// last-write-wins-per-field semantics the protocol is designed around.
type PostgresRepository struct {
	db *sql.DB
}

// NewPostgresRepository creates a repository on an open connection.
func NewPostgresRepository(db *sql.DB) *PostgresRepository {
	return &PostgresRepository{db: db}
}

// CreateSchema creates the records table if it does not exist.
func (r *PostgresRepository) CreateSchema(ctx context.Context) error {
	_, err := r.db.ExecContext(ctx, `
		CREATE TABLE IF NOT EXISTS records (
			collection TEXT NOT NULL,
			id UUID NOT NULL,
			data JSONB NOT NULL,
			created_at TIMESTAMPTZ NOT NULL DEFAULT now(),
			updated_at TIMESTAMPTZ NOT NULL DEFAULT now(),
			PRIMARY KEY (collection, id)
		)`)
	if err != nil {
		return fmt.Errorf("failed to create schema: %w", err)
	}
	return nil
}

func withID(data Record, id string) Record {
	out := make(Record, len(data)+1)
	for k, v := range data {
		out[k] = v
	}
	out["id"] = id
	return out
}

func (r *PostgresRepository) Create(ctx context.Context, collection string, data Record) (Record, error) {
	id := uuid.New().String()
	delete(data, "id")
	data["created_date"] = time.Now().UTC().Format(time.RFC3339)

	payload, err := json.Marshal(data)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal record: %w", err)
	}

	_, err = r.db.ExecContext(ctx,
		`INSERT INTO records (collection, id, data) VALUES ($1, $2, $3)`,
		collection, id, payload)
	if err != nil {
		return nil, fmt.Errorf("failed to insert record: %w", err)
	}

	return withID(data, id), nil
}

func (r *PostgresRepository) List(ctx context.Context, collection string, filters map[string]string) ([]Record, error) {
	query := `SELECT id, data FROM records WHERE collection = $1`
	args := []any{collection}

	for key, value := range filters {
		if key == "id" {
			query += fmt.Sprintf(" AND id::text = $%d", len(args)+1)
			args = append(args, value)
			continue
		}
		// ->> renders scalars as text, so ?is_active=true matches a JSON
		// boolean and numeric filters match numbers.
		query += fmt.Sprintf(" AND data->>$%d = $%d", len(args)+1, len(args)+2)
		args = append(args, key, value)
	}
	query += ` ORDER BY created_at`

	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to list records: %w", err)
	}
	defer rows.Close()

	records := []Record{}
	for rows.Next() {
		var id string
		var payload []byte
		if err := rows.Scan(&id, &payload); err != nil {
			return nil, fmt.Errorf("failed to scan record: %w", err)
		}
		var data Record
		if err := json.Unmarshal(payload, &data); err != nil {
			return nil, fmt.Errorf("failed to unmarshal record %s: %w", id, err)
		}
		records = append(records, withID(data, id))
	}
	return records, rows.Err()
}

func (r *PostgresRepository) Update(ctx context.Context, collection, id string, patch Record) (Record, error) {
	delete(patch, "id")
	payload, err := json.Marshal(patch)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal patch: %w", err)
	}

	var merged []byte
	err = r.db.QueryRowContext(ctx,
		`UPDATE records SET data = data || $3, updated_at = now()
		 WHERE collection = $1 AND id::text = $2
		 RETURNING data`,
		collection, id, payload).Scan(&merged)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to update record: %w", err)
	}

	var data Record
	if err := json.Unmarshal(merged, &data); err != nil {
		return nil, fmt.Errorf("failed to unmarshal record %s: %w", id, err)
	}
	return withID(data, id), nil
}

func (r *PostgresRepository) Delete(ctx context.Context, collection, id string) error {
	res, err := r.db.ExecContext(ctx,
		`DELETE FROM records WHERE collection = $1 AND id::text = $2`,
		collection, id)
	if err != nil {
		return fmt.Errorf("failed to delete record: %w", err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to read delete result: %w", err)
	}
	if affected == 0 {
		return ErrNotFound
	}
	return nil
}
