package repository

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"

	"github.com/anime-shed/media-inspector-go/internal/analysis"
	"github.com/anime-shed/media-inspector-go/internal/features"
)

// DBTX is satisfied by *pgxpool.Pool, *pgx.Conn and pgx.Tx
type DBTX interface {
	Exec(context.Context, string, ...interface{}) (pgconn.CommandTag, error)
	Query(context.Context, string, ...interface{}) (pgx.Rows, error)
	QueryRow(context.Context, string, ...interface{}) pgx.Row
}

const schema = `
	CREATE TABLE IF NOT EXISTS analysis_history (
		id UUID PRIMARY KEY,
		media_type VARCHAR(16) NOT NULL,
		created_at TIMESTAMPTZ NOT NULL,
		content TEXT NOT NULL DEFAULT '',
		features TEXT[] NOT NULL DEFAULT '{}',
		results JSONB NOT NULL DEFAULT '{}'
	);
	CREATE INDEX IF NOT EXISTS analysis_history_created_at_idx ON analysis_history (created_at DESC);
`

// PostgresHistoryRepository stores history in PostgreSQL
type PostgresHistoryRepository struct {
	db DBTX
}

// NewPostgresHistoryRepository creates a repository on top of a pool or transaction
func NewPostgresHistoryRepository(db DBTX) *PostgresHistoryRepository {
	return &PostgresHistoryRepository{db: db}
}

// Migrate creates the history table when it does not exist
func (r *PostgresHistoryRepository) Migrate(ctx context.Context) error {
	if _, err := r.db.Exec(ctx, schema); err != nil {
		return fmt.Errorf("failed to migrate history schema: %w", err)
	}
	return nil
}

func (r *PostgresHistoryRepository) Save(ctx context.Context, record *Record) error {
	if err := prepare(record); err != nil {
		return err
	}
	results, err := json.Marshal(record.Results)
	if err != nil {
		return fmt.Errorf("failed to encode results: %w", err)
	}

	query := `
		INSERT INTO analysis_history (id, media_type, created_at, content, features, results)
		VALUES ($1, $2, $3, $4, $5, $6)
		ON CONFLICT (id) DO UPDATE SET
			media_type = EXCLUDED.media_type,
			content = EXCLUDED.content,
			features = EXCLUDED.features,
			results = EXCLUDED.results
	`
	_, err = r.db.Exec(ctx, query,
		record.ID,
		string(record.MediaType),
		record.Timestamp,
		record.Content,
		record.Features,
		results,
	)
	return err
}

func (r *PostgresHistoryRepository) Get(ctx context.Context, id uuid.UUID) (*Record, error) {
	query := `
		SELECT id, media_type, created_at, content, features, results
		FROM analysis_history
		WHERE id = $1
	`
	rec, err := scanRecord(r.db.QueryRow(ctx, query, id))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, fmt.Errorf("%w: %s", ErrRecordNotFound, id)
		}
		return nil, err
	}
	return rec, nil
}

func (r *PostgresHistoryRepository) List(ctx context.Context, filter Filter) ([]*Record, error) {
	query := `
		SELECT id, media_type, created_at, content, features, results
		FROM analysis_history
		WHERE ($1 = '' OR media_type = $1)
		  AND ($2 = '' OR strpos(lower(content), lower($2)) > 0)
		ORDER BY created_at DESC
		LIMIT $3
	`
	rows, err := r.db.Query(ctx, query, string(filter.MediaType), strings.TrimSpace(filter.Query), filter.limit())
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	records := []*Record{}
	for rows.Next() {
		rec, err := scanRecord(rows)
		if err != nil {
			return nil, err
		}
		records = append(records, rec)
	}
	return records, rows.Err()
}

func (r *PostgresHistoryRepository) Delete(ctx context.Context, id uuid.UUID) error {
	tag, err := r.db.Exec(ctx, `DELETE FROM analysis_history WHERE id = $1`, id)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("%w: %s", ErrRecordNotFound, id)
	}
	return nil
}

func scanRecord(row pgx.Row) (*Record, error) {
	var (
		rec       Record
		mediaType string
		results   []byte
	)
	if err := row.Scan(&rec.ID, &mediaType, &rec.Timestamp, &rec.Content, &rec.Features, &results); err != nil {
		return nil, err
	}
	rec.MediaType = features.MediaType(mediaType)
	rec.Results = analysis.Result{}
	if len(results) > 0 {
		if err := json.Unmarshal(results, &rec.Results); err != nil {
			return nil, fmt.Errorf("failed to decode results of %s: %w", rec.ID, err)
		}
	}
	if rec.Features == nil {
		rec.Features = []string{}
	}
	return &rec, nil
}
