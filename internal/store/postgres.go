package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"

	_ "github.com/lib/pq"

	"github.com/medforge/casgen/internal/types"
)

// PostgresStore persists jobs in a single table with the summary and
// config stored as JSONB.
type PostgresStore struct {
	db *sql.DB
}

// NewPostgresStore connects to the database and ensures the schema.
func NewPostgresStore(ctx context.Context, databaseURL string) (*PostgresStore, error) {
	db, err := sql.Open("postgres", databaseURL)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}
	if err := db.PingContext(ctx); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}
	s := &PostgresStore{db: db}
	if err := s.ensureSchema(ctx); err != nil {
		db.Close()
		return nil, err
	}
	return s, nil
}

func (s *PostgresStore) ensureSchema(ctx context.Context) error {
	_, err := s.db.ExecContext(ctx, `
CREATE TABLE IF NOT EXISTS jobs (
	job_id           TEXT PRIMARY KEY,
	status           TEXT NOT NULL,
	progress_percent INT NOT NULL DEFAULT 0,
	progress_detail  TEXT NOT NULL DEFAULT '',
	created_at       TIMESTAMPTZ NOT NULL,
	started_at       TIMESTAMPTZ,
	finished_at      TIMESTAMPTZ,
	error            TEXT NOT NULL DEFAULT '',
	error_kind       TEXT NOT NULL DEFAULT '',
	output_paths     JSONB,
	summary          JSONB,
	config           JSONB,
	seed             BIGINT NOT NULL DEFAULT 0
);
CREATE INDEX IF NOT EXISTS jobs_created_at_idx ON jobs (created_at DESC);
CREATE INDEX IF NOT EXISTS jobs_status_idx ON jobs (status);
`)
	if err != nil {
		return fmt.Errorf("failed to ensure schema: %w", err)
	}
	return nil
}

// Close releases the database pool.
func (s *PostgresStore) Close() error {
	return s.db.Close()
}

func (s *PostgresStore) CreateJob(ctx context.Context, job *types.Job) error {
	paths, summary, err := marshalJobBlobs(job)
	if err != nil {
		return err
	}
	_, err = s.db.ExecContext(ctx, `
INSERT INTO jobs (job_id, status, progress_percent, progress_detail, created_at,
	started_at, finished_at, error, error_kind, output_paths, summary, config, seed)
VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11,$12,$13)`,
		job.JobID, job.Status, job.ProgressPercent, job.ProgressDetail, job.CreatedAt,
		job.StartedAt, job.FinishedAt, job.Error, job.ErrorKind, paths, summary,
		[]byte(job.Config), job.Seed)
	if err != nil {
		return fmt.Errorf("failed to insert job: %w", err)
	}
	return nil
}

func (s *PostgresStore) UpdateJob(ctx context.Context, job *types.Job) error {
	paths, summary, err := marshalJobBlobs(job)
	if err != nil {
		return err
	}
	res, err := s.db.ExecContext(ctx, `
UPDATE jobs SET status=$2, progress_percent=$3, progress_detail=$4,
	started_at=$5, finished_at=$6, error=$7, error_kind=$8,
	output_paths=$9, summary=$10, seed=$11
WHERE job_id=$1`,
		job.JobID, job.Status, job.ProgressPercent, job.ProgressDetail,
		job.StartedAt, job.FinishedAt, job.Error, job.ErrorKind,
		paths, summary, job.Seed)
	if err != nil {
		return fmt.Errorf("failed to update job: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return ErrNotFound
	}
	return nil
}

func (s *PostgresStore) GetJob(ctx context.Context, jobID string) (*types.Job, error) {
	row := s.db.QueryRowContext(ctx, `
SELECT job_id, status, progress_percent, progress_detail, created_at,
	started_at, finished_at, error, error_kind, output_paths, summary, config, seed
FROM jobs WHERE job_id=$1`, jobID)
	job, err := scanJob(row)
	if err == sql.ErrNoRows {
		return nil, ErrNotFound
	}
	return job, err
}

func (s *PostgresStore) ListJobs(ctx context.Context, limit, offset int) ([]*types.Job, int, error) {
	var total int
	if err := s.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM jobs`).Scan(&total); err != nil {
		return nil, 0, fmt.Errorf("failed to count jobs: %w", err)
	}

	if limit <= 0 {
		limit = total
	}
	rows, err := s.db.QueryContext(ctx, `
SELECT job_id, status, progress_percent, progress_detail, created_at,
	started_at, finished_at, error, error_kind, output_paths, summary, config, seed
FROM jobs ORDER BY created_at DESC, job_id DESC LIMIT $1 OFFSET $2`, limit, offset)
	if err != nil {
		return nil, 0, fmt.Errorf("failed to list jobs: %w", err)
	}
	defer rows.Close()

	var jobs []*types.Job
	for rows.Next() {
		job, err := scanJob(rows)
		if err != nil {
			return nil, 0, err
		}
		jobs = append(jobs, job)
	}
	return jobs, total, rows.Err()
}

func (s *PostgresStore) DeleteJob(ctx context.Context, jobID string) error {
	_, err := s.db.ExecContext(ctx, `DELETE FROM jobs WHERE job_id=$1`, jobID)
	if err != nil {
		return fmt.Errorf("failed to delete job: %w", err)
	}
	return nil
}

func marshalJobBlobs(job *types.Job) (paths, summary []byte, err error) {
	if job.OutputPaths != nil {
		paths, err = json.Marshal(job.OutputPaths)
		if err != nil {
			return nil, nil, err
		}
	}
	if job.Summary != nil {
		summary, err = json.Marshal(job.Summary)
		if err != nil {
			return nil, nil, err
		}
	}
	return paths, summary, nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanJob(r rowScanner) (*types.Job, error) {
	var job types.Job
	var paths, summary, config []byte
	err := r.Scan(&job.JobID, &job.Status, &job.ProgressPercent, &job.ProgressDetail,
		&job.CreatedAt, &job.StartedAt, &job.FinishedAt, &job.Error, &job.ErrorKind,
		&paths, &summary, &config, &job.Seed)
	if err != nil {
		return nil, err
	}
	if len(paths) > 0 {
		if err := json.Unmarshal(paths, &job.OutputPaths); err != nil {
			return nil, fmt.Errorf("corrupt output_paths for job %s: %w", job.JobID, err)
		}
	}
	if len(summary) > 0 {
		job.Summary = &types.Summary{}
		if err := json.Unmarshal(summary, job.Summary); err != nil {
			return nil, fmt.Errorf("corrupt summary for job %s: %w", job.JobID, err)
		}
	}
	if len(config) > 0 {
		job.Config = json.RawMessage(config)
	}
	return &job, nil
}
