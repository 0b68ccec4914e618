package run

import (
	"context"
	"database/sql"
)

type Repository interface {
	Save(ctx context.Context, run *Run) error
	List(ctx context.Context, limit int) ([]Run, error)
	Get(ctx context.Context, id string) (*Run, error)
}

type PostgresRepo struct {
	db *sql.DB
}

func NewPostgresRepo(db *sql.DB) *PostgresRepo {
	return &PostgresRepo{db: db}
}

const runColumns = `id, source, total, empty, gibberish, too_short, outliers, retained, threshold, embedded, embedding_model, duration_ms, created_at`

func (r *PostgresRepo) Save(ctx context.Context, run *Run) error {
	query := `INSERT INTO runs (id, source, total, empty, gibberish, too_short, outliers, retained, threshold, embedded, embedding_model, duration_ms) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12)
		ON CONFLICT (id) DO UPDATE SET source = EXCLUDED.source, total = EXCLUDED.total, empty = EXCLUDED.empty,
			gibberish = EXCLUDED.gibberish, too_short = EXCLUDED.too_short, outliers = EXCLUDED.outliers,
			retained = EXCLUDED.retained, threshold = EXCLUDED.threshold, embedded = EXCLUDED.embedded,
			embedding_model = EXCLUDED.embedding_model, duration_ms = EXCLUDED.duration_ms
		RETURNING created_at`
	return r.db.QueryRowContext(ctx, query,
		run.ID, run.Source, run.Total, run.Empty, run.Gibberish, run.TooShort, run.Outliers, run.Retained,
		run.Threshold, run.Embedded, run.EmbeddingModel, run.DurationMs,
	).Scan(&run.CreatedAt)
}

func (r *PostgresRepo) List(ctx context.Context, limit int) ([]Run, error) {
	query := `SELECT ` + runColumns + ` FROM runs ORDER BY created_at DESC LIMIT $1`
	rows, err := r.db.QueryContext(ctx, query, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var runs []Run
	for rows.Next() {
		var run Run
		if err := scanRun(rows, &run); err != nil {
			return nil, err
		}
		runs = append(runs, run)
	}
	return runs, rows.Err()
}

func (r *PostgresRepo) Get(ctx context.Context, id string) (*Run, error) {
	run := &Run{}
	query := `SELECT ` + runColumns + ` FROM runs WHERE id = $1`
	if err := scanRun(r.db.QueryRowContext(ctx, query, id), run); err != nil {
		return nil, err
	}
	return run, nil
}

// Totals aggregates every recorded run.
type Totals struct {
	Runs     int `json:"runs"`
	Comments int `json:"comments"`
	Retained int `json:"retained"`
	Outliers int `json:"outliers"`
}

func (r *PostgresRepo) Totals(ctx context.Context) (Totals, error) {
	var t Totals
	query := `SELECT COUNT(*), COALESCE(SUM(total), 0), COALESCE(SUM(retained), 0), COALESCE(SUM(outliers), 0) FROM runs`
	err := r.db.QueryRowContext(ctx, query).Scan(&t.Runs, &t.Comments, &t.Retained, &t.Outliers)
	return t, err
}

type scanner interface {
	Scan(dest ...any) error
}

func scanRun(s scanner, run *Run) error {
	return s.Scan(&run.ID, &run.Source, &run.Total, &run.Empty, &run.Gibberish, &run.TooShort, &run.Outliers,
		&run.Retained, &run.Threshold, &run.Embedded, &run.EmbeddingModel, &run.DurationMs, &run.CreatedAt)
}
