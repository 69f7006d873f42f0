package store

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/scoutlens/scoutlens/internal/domain"
)

// ErrNotFound is returned when a requested run does not exist.
var ErrNotFound = errors.New("not found")

// RunStore persists finished enrichment records. The record itself is
// stored as one JSONB document; indexed columns exist for listing.
type RunStore struct {
	db *pgxpool.Pool
}

func NewRunStore(db *pgxpool.Pool) *RunStore {
	return &RunStore{db: db}
}

func (s *RunStore) Save(ctx context.Context, record *domain.EnrichedProfile) error {
	recordJSON, err := json.Marshal(record)
	if err != nil {
		return fmt.Errorf("marshal run record: %w", err)
	}

	_, err = s.db.Exec(ctx,
		`INSERT INTO enrichment_runs (
			id, candidate_name, consistency_score, record, started_at, finished_at
		) VALUES ($1, $2, $3, $4, $5, $6)
		ON CONFLICT (id) DO UPDATE SET
			consistency_score = EXCLUDED.consistency_score,
			record = EXCLUDED.record,
			finished_at = EXCLUDED.finished_at`,
		record.RunID, record.CandidateName, record.Consistency.Score,
		recordJSON, record.StartedAt, record.FinishedAt,
	)
	if err != nil {
		return fmt.Errorf("insert run: %w", err)
	}
	return nil
}

func (s *RunStore) GetByID(ctx context.Context, id uuid.UUID) (*domain.EnrichedProfile, error) {
	var recordJSON []byte
	err := s.db.QueryRow(ctx,
		`SELECT record FROM enrichment_runs WHERE id = $1`, id,
	).Scan(&recordJSON)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("query run: %w", err)
	}

	var record domain.EnrichedProfile
	if err := json.Unmarshal(recordJSON, &record); err != nil {
		return nil, fmt.Errorf("unmarshal run record: %w", err)
	}
	return &record, nil
}

// RunSummary is one row of the run listing.
type RunSummary struct {
	ID               uuid.UUID `json:"id"`
	CandidateName    string    `json:"candidate_name"`
	ConsistencyScore float64   `json:"consistency_score"`
	FinishedAt       string    `json:"finished_at"`
}

func (s *RunStore) List(ctx context.Context, limit int) ([]RunSummary, error) {
	if limit <= 0 || limit > 100 {
		limit = 20
	}
	rows, err := s.db.Query(ctx,
		`SELECT id, candidate_name, consistency_score, finished_at::text
		 FROM enrichment_runs ORDER BY finished_at DESC LIMIT $1`, limit)
	if err != nil {
		return nil, fmt.Errorf("list runs: %w", err)
	}
	defer rows.Close()

	var out []RunSummary
	for rows.Next() {
		var r RunSummary
		if err := rows.Scan(&r.ID, &r.CandidateName, &r.ConsistencyScore, &r.FinishedAt); err != nil {
			return nil, fmt.Errorf("scan run row: %w", err)
		}
		out = append(out, r)
	}
	return out, rows.Err()
}
