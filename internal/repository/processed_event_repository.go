package repository

import (
	"context"
	"database/sql"

	"github.com/rs/zerolog"
)

// ProcessedEventRepository is the dedup ledger for at-least-once
// delivery: a consumer checks an event's natural key before applying
// its effect and records the key once the effect is in place.
type ProcessedEventRepository interface {
	Processed(ctx context.Context, eventKey string) (bool, error)
	MarkProcessed(ctx context.Context, eventKey string) (bool, error)
	Ping(ctx context.Context) error
}

type processedEventRepository struct {
	*PostgresRepository
}

func NewProcessedEventRepository(db *sql.DB, logger zerolog.Logger) ProcessedEventRepository {
	return &processedEventRepository{
		PostgresRepository: NewPostgresRepository(db, logger),
	}
}

// Processed reports whether the key was already recorded.
func (r *processedEventRepository) Processed(ctx context.Context, eventKey string) (bool, error) {
	query := `SELECT EXISTS (SELECT 1 FROM processed_events WHERE event_key = $1)`

	var exists bool
	if err := r.db.QueryRowContext(ctx, query, eventKey).Scan(&exists); err != nil {
		return false, err
	}

	return exists, nil
}

// MarkProcessed returns false when the key was already recorded.
func (r *processedEventRepository) MarkProcessed(ctx context.Context, eventKey string) (bool, error) {
	query := `
		INSERT INTO processed_events (event_key, processed_at)
		VALUES ($1, NOW())
		ON CONFLICT (event_key) DO NOTHING
	`

	result, err := r.db.ExecContext(ctx, query, eventKey)
	if err != nil {
		return false, err
	}

	rows, err := result.RowsAffected()
	if err != nil {
		return false, err
	}

	return rows > 0, nil
}
