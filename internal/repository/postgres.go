package repository

import (
	"context"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/Nengock/katepeh/internal/domain"
)

// PostgresRepository persists the extraction audit trail. Only request
// metadata is stored; extracted card fields never reach the database.
type PostgresRepository struct {
	db *pgxpool.Pool
}

func NewPostgresRepository(db *pgxpool.Pool) *PostgresRepository {
	return &PostgresRepository{db: db}
}

func (r *PostgresRepository) RecordExtraction(ctx context.Context, e *domain.ExtractionEvent) error {
	query := `INSERT INTO extractions (id, file_name, content_type, size_bytes, confidence, duration_ms, status, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)`
	_, err := r.db.Exec(ctx, query,
		e.ID, e.FileName, e.ContentType, e.SizeBytes,
		e.Confidence, e.Duration.Milliseconds(), string(e.Status), e.CreatedAt)
	return err
}

func (r *PostgresRepository) ListExtractions(ctx context.Context, limit int) ([]domain.ExtractionEvent, error) {
	if limit <= 0 {
		limit = 50
	}
	query := `SELECT id, file_name, content_type, size_bytes, confidence, duration_ms, status, created_at
		FROM extractions ORDER BY created_at DESC LIMIT $1`
	rows, err := r.db.Query(ctx, query, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var events []domain.ExtractionEvent
	for rows.Next() {
		var e domain.ExtractionEvent
		var durationMs int64
		var status string
		if err := rows.Scan(&e.ID, &e.FileName, &e.ContentType, &e.SizeBytes,
			&e.Confidence, &durationMs, &status, &e.CreatedAt); err != nil {
			return nil, err
		}
		e.Duration = time.Duration(durationMs) * time.Millisecond
		e.Status = domain.ExtractionStatus(status)
		events = append(events, e)
	}
	return events, rows.Err()
}
