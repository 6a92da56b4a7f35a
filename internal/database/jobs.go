package database

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"media-converter/internal/logging"
	"media-converter/internal/metrics"
	"media-converter/internal/orchestrator"
)

// ErrJobNotFound is returned when no history row matches an id.
var ErrJobNotFound = errors.New("job not found")

// Default and maximum page sizes for ListJobs.
const (
	DefaultListLimit = 50
	MaxListLimit     = 500
)

// ReasonInterrupted marks jobs that were in flight when the service stopped.
const ReasonInterrupted = "interrupted"

// RecordSubmitted inserts a history row for a newly submitted job.
func (d *Database) RecordSubmitted(ctx context.Context, job orchestrator.Job) error {
	start := time.Now()
	var err error
	defer func() { recordQuery("insert_job", start, err) }()

	d.mu.Lock()
	defer d.mu.Unlock()

	ctx, cancel := context.WithTimeout(ctx, defaultTimeout)
	defer cancel()

	_, err = d.db.ExecContext(ctx, `
	INSERT INTO jobs (id, kind, source, watermark, quality, output_path, state, stages, submitted_at)
	VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)
	`,
		job.ID,
		string(job.Kind),
		job.Source,
		job.Watermark,
		job.Quality,
		job.OutputPath,
		string(job.State),
		job.Stages,
		job.SubmittedAt.UnixMilli(),
	)
	if err != nil {
		return fmt.Errorf("failed to record job %s: %w", job.ID, err)
	}
	return nil
}

// RecordFinished stores a job's terminal state. A successful job also
// becomes the last output.
func (d *Database) RecordFinished(ctx context.Context, job orchestrator.Job) error {
	if err := d.finishJob(ctx, job); err != nil {
		return err
	}
	if job.State == orchestrator.StateSucceeded {
		return d.SetMetadata(ctx, lastOutputKey, job.OutputPath)
	}
	return nil
}

func (d *Database) finishJob(ctx context.Context, job orchestrator.Job) error {
	start := time.Now()
	var err error
	defer func() { recordQuery("finish_job", start, err) }()

	d.mu.Lock()
	defer d.mu.Unlock()

	ctx, cancel := context.WithTimeout(ctx, defaultTimeout)
	defer cancel()

	finishedAt := job.FinishedAt
	if finishedAt.IsZero() {
		finishedAt = time.Now()
	}

	var result sql.Result
	result, err = d.db.ExecContext(ctx, `
	UPDATE jobs SET state = ?, duration = ?, status_code = ?, reason = ?, error = ?, finished_at = ?
	WHERE id = ?
	`,
		string(job.State),
		job.Duration,
		job.StatusCode,
		string(job.Reason),
		job.Error,
		finishedAt.UnixMilli(),
		job.ID,
	)
	if err != nil {
		return fmt.Errorf("failed to finish job %s: %w", job.ID, err)
	}
	if rows, _ := result.RowsAffected(); rows == 0 {
		err = fmt.Errorf("%w: %s", ErrJobNotFound, job.ID)
		return err
	}
	return nil
}

// MarkInterrupted fails every job still recorded as in flight. It is run at
// startup, before any job is submitted.
func (d *Database) MarkInterrupted(ctx context.Context) (int64, error) {
	start := time.Now()
	var err error
	defer func() { recordQuery("mark_interrupted", start, err) }()

	d.mu.Lock()
	defer d.mu.Unlock()

	ctx, cancel := context.WithTimeout(ctx, defaultTimeout)
	defer cancel()

	var result sql.Result
	result, err = d.db.ExecContext(ctx, `
	UPDATE jobs SET state = ?, reason = ?, finished_at = ?
	WHERE state IN (?, ?)
	`,
		string(orchestrator.StateFailed),
		ReasonInterrupted,
		time.Now().UnixMilli(),
		string(orchestrator.StateProbing),
		string(orchestrator.StateRunning),
	)
	if err != nil {
		return 0, err
	}

	rows, _ := result.RowsAffected()
	if rows > 0 {
		logging.Warn("Marked %d interrupted job(s) as failed", rows)
	}
	return rows, nil
}

const jobColumns = `id, kind, source, watermark, quality, output_path, state, stages,
	duration, status_code, reason, error, submitted_at, finished_at`

type rowScanner interface {
	Scan(dest ...any) error
}

func scanJob(row rowScanner) (JobRecord, error) {
	var rec JobRecord
	var submittedAt int64
	var finishedAt sql.NullInt64

	err := row.Scan(
		&rec.ID, &rec.Kind, &rec.Source, &rec.Watermark, &rec.Quality, &rec.OutputPath,
		&rec.State, &rec.Stages, &rec.Duration, &rec.StatusCode, &rec.Reason, &rec.Error,
		&submittedAt, &finishedAt,
	)
	if err != nil {
		return JobRecord{}, err
	}

	rec.SubmittedAt = time.UnixMilli(submittedAt)
	if finishedAt.Valid {
		t := time.UnixMilli(finishedAt.Int64)
		rec.FinishedAt = &t
	}
	return rec, nil
}

// GetJob retrieves a single job by id.
func (d *Database) GetJob(ctx context.Context, id string) (*JobRecord, error) {
	start := time.Now()
	var err error
	defer func() { recordQuery("get_job", start, err) }()

	d.mu.RLock()
	defer d.mu.RUnlock()

	ctx, cancel := context.WithTimeout(ctx, defaultTimeout)
	defer cancel()

	var rec JobRecord
	rec, err = scanJob(d.db.QueryRowContext(ctx, "SELECT "+jobColumns+" FROM jobs WHERE id = ?", id))
	if errors.Is(err, sql.ErrNoRows) {
		err = nil
		return nil, ErrJobNotFound
	}
	if err != nil {
		return nil, err
	}
	return &rec, nil
}

// ListJobs returns the newest jobs first. A non-positive limit uses
// DefaultListLimit; limits above MaxListLimit are capped.
func (d *Database) ListJobs(ctx context.Context, limit int) (*JobList, error) {
	start := time.Now()
	var err error
	defer func() { recordQuery("list_jobs", start, err) }()

	if limit <= 0 {
		limit = DefaultListLimit
	}
	if limit > MaxListLimit {
		limit = MaxListLimit
	}

	d.mu.RLock()
	defer d.mu.RUnlock()

	ctx, cancel := context.WithTimeout(ctx, defaultTimeout)
	defer cancel()

	list := &JobList{Items: []JobRecord{}, Limit: limit}
	if err = d.db.QueryRowContext(ctx, "SELECT COUNT(*) FROM jobs").Scan(&list.TotalItems); err != nil {
		return nil, err
	}

	var rows *sql.Rows
	rows, err = d.db.QueryContext(ctx,
		"SELECT "+jobColumns+" FROM jobs ORDER BY submitted_at DESC, rowid DESC LIMIT ?", limit)
	if err != nil {
		return nil, err
	}
	defer func() {
		if closeErr := rows.Close(); closeErr != nil {
			logging.Warn("failed to close job rows: %v", closeErr)
		}
	}()

	for rows.Next() {
		var rec JobRecord
		rec, err = scanJob(rows)
		if err != nil {
			return nil, err
		}
		list.Items = append(list.Items, rec)
	}
	if err = rows.Err(); err != nil {
		return nil, err
	}
	return list, nil
}

// HasSucceeded reports whether a job for source has ever succeeded.
func (d *Database) HasSucceeded(ctx context.Context, source string) (bool, error) {
	start := time.Now()
	var err error
	defer func() { recordQuery("has_succeeded", start, err) }()

	d.mu.RLock()
	defer d.mu.RUnlock()

	ctx, cancel := context.WithTimeout(ctx, defaultTimeout)
	defer cancel()

	var n int
	err = d.db.QueryRowContext(ctx,
		"SELECT COUNT(*) FROM jobs WHERE source = ? AND state = ?", source, string(orchestrator.StateSucceeded)).Scan(&n)
	if err != nil {
		return false, err
	}
	return n > 0, nil
}

// GetStats returns job counts by state for the metrics collector. Errors
// are logged and yield zero counts.
func (d *Database) GetStats() metrics.Stats {
	start := time.Now()
	var err error
	defer func() { recordQuery("job_stats", start, err) }()

	d.UpdateDBMetrics()

	d.mu.RLock()
	defer d.mu.RUnlock()

	ctx, cancel := context.WithTimeout(context.Background(), defaultTimeout)
	defer cancel()

	var rows *sql.Rows
	rows, err = d.db.QueryContext(ctx, "SELECT state, COUNT(*) FROM jobs GROUP BY state")
	if err != nil {
		logging.Warn("failed to collect job stats: %v", err)
		return metrics.Stats{}
	}
	defer func() {
		if closeErr := rows.Close(); closeErr != nil {
			logging.Warn("failed to close stats rows: %v", closeErr)
		}
	}()

	var stats metrics.Stats
	for rows.Next() {
		var state string
		var count int
		if err = rows.Scan(&state, &count); err != nil {
			logging.Warn("failed to scan job stats: %v", err)
			return metrics.Stats{}
		}
		stats.TotalJobs += count
		switch orchestrator.State(state) {
		case orchestrator.StateProbing, orchestrator.StateRunning:
			stats.Running += count
		case orchestrator.StateSucceeded:
			stats.Succeeded = count
		case orchestrator.StateFailed:
			stats.Failed = count
		case orchestrator.StateCancelled:
			stats.Cancelled = count
		}
	}
	err = rows.Err()
	return stats
}

var _ orchestrator.Journal = (*Database)(nil)
var _ metrics.StatsProvider = (*Database)(nil)
