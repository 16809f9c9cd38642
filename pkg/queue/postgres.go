package queue

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

// PGSource serves candidates from the back-office Postgres database.
// Candidates are claimed one at a time so a stopped run leaves the
// remainder of the queue untouched for the next run.
type PGSource struct {
	pool *pgxpool.Pool
}

// OpenPG connects a pooled source to the given DSN.
func OpenPG(ctx context.Context, dsn string) (*PGSource, error) {
	cfg, err := pgxpool.ParseConfig(dsn)
	if err != nil {
		return nil, fmt.Errorf("queue: parse postgres dsn: %w", err)
	}

	pool, err := pgxpool.NewWithConfig(ctx, cfg)
	if err != nil {
		return nil, fmt.Errorf("queue: connect postgres: %w", err)
	}
	return &PGSource{pool: pool}, nil
}

// Next claims the oldest pending candidate and marks it claimed in the
// same statement, so two overlapping runs can never hand out the same
// case. Returns (nil, nil) when no pending candidates remain.
func (s *PGSource) Next(ctx context.Context) (*Candidate, error) {
	row := s.pool.QueryRow(ctx, `
		UPDATE case_candidates
		SET claimed = TRUE
		WHERE id = (
			SELECT id FROM case_candidates
			WHERE NOT claimed
			ORDER BY created_at
			LIMIT 1
			FOR UPDATE SKIP LOCKED
		)
		RETURNING case_id, address_id, address_text, content`)

	var c Candidate
	err := row.Scan(&c.CaseID, &c.AddressID, &c.AddressText, &c.Content)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("queue: claim candidate: %w", err)
	}
	return &c, nil
}

// Totals counts pending and processed candidates for display.
func (s *PGSource) Totals(ctx context.Context) (Totals, error) {
	row := s.pool.QueryRow(ctx, `
		SELECT
			COUNT(*) FILTER (WHERE NOT claimed),
			COUNT(*) FILTER (WHERE claimed)
		FROM case_candidates`)

	var t Totals
	if err := row.Scan(&t.PendingCases, &t.ProcessedCases); err != nil {
		return Totals{}, fmt.Errorf("queue: count candidates: %w", err)
	}
	return t, nil
}

// Close releases the connection pool.
func (s *PGSource) Close() {
	s.pool.Close()
}
