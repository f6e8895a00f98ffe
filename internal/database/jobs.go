package database

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/vocalizeapp/vocalize/pkg/models"
)

// CreateJob creates a new job record
func (r *Repository) CreateJob(ctx context.Context, job *models.Job) error {
	if job.ID == "" {
		job.ID = uuid.New().String()
	}
	if job.Status == "" {
		job.Status = models.JobStatusQueued
	}

	query := `
		INSERT INTO jobs (id, user_id, kind, status, input_chars, input_key, artifact_key, error_msg)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
		RETURNING created_at
	`

	err := r.db.Pool.QueryRow(ctx, query,
		job.ID, job.UserID, job.Kind, job.Status, job.InputChars,
		job.InputKey, job.ArtifactKey, job.ErrorMsg,
	).Scan(&job.CreatedAt)

	if err != nil {
		return fmt.Errorf("failed to create job: %w", err)
	}

	return nil
}

// GetJob retrieves a job by ID
func (r *Repository) GetJob(ctx context.Context, id string) (*models.Job, error) {
	return r.getJob(ctx, `WHERE id = $1`, id)
}

// GetJobForUser retrieves a job by ID scoped to its owner
func (r *Repository) GetJobForUser(ctx context.Context, id, userID string) (*models.Job, error) {
	return r.getJob(ctx, `WHERE id = $1 AND user_id = $2`, id, userID)
}

func (r *Repository) getJob(ctx context.Context, where string, args ...any) (*models.Job, error) {
	var job models.Job

	query := `
		SELECT id, user_id, kind, status, input_chars, input_key, artifact_key,
		       error_msg, created_at, completed_at
		FROM jobs
	` + where

	err := r.db.Pool.QueryRow(ctx, query, args...).Scan(
		&job.ID, &job.UserID, &job.Kind, &job.Status, &job.InputChars,
		&job.InputKey, &job.ArtifactKey, &job.ErrorMsg,
		&job.CreatedAt, &job.CompletedAt,
	)

	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get job: %w", err)
	}

	return &job, nil
}

// ListJobsByUser retrieves a user's jobs, newest first
func (r *Repository) ListJobsByUser(ctx context.Context, userID string, limit, offset int) ([]*models.Job, error) {
	query := `
		SELECT id, user_id, kind, status, input_chars, input_key, artifact_key,
		       error_msg, created_at, completed_at
		FROM jobs
		WHERE user_id = $1
		ORDER BY created_at DESC
		LIMIT $2 OFFSET $3
	`

	rows, err := r.db.Pool.Query(ctx, query, userID, limit, offset)
	if err != nil {
		return nil, fmt.Errorf("failed to list jobs: %w", err)
	}
	defer rows.Close()

	var jobs []*models.Job
	for rows.Next() {
		var job models.Job
		err := rows.Scan(
			&job.ID, &job.UserID, &job.Kind, &job.Status, &job.InputChars,
			&job.InputKey, &job.ArtifactKey, &job.ErrorMsg,
			&job.CreatedAt, &job.CompletedAt,
		)
		if err != nil {
			return nil, fmt.Errorf("failed to scan job: %w", err)
		}
		jobs = append(jobs, &job)
	}

	return jobs, nil
}

// MarkJobDone transitions a queued job to done with its artifact key.
// Terminal jobs are immutable; a second transition returns ErrNotFound.
func (r *Repository) MarkJobDone(ctx context.Context, id, artifactKey string) error {
	query := `
		UPDATE jobs
		SET status = $2, artifact_key = $3, completed_at = now()
		WHERE id = $1 AND status = $4
	`

	tag, err := r.db.Pool.Exec(ctx, query, id, models.JobStatusDone, artifactKey, models.JobStatusQueued)
	if err != nil {
		return fmt.Errorf("failed to mark job done: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}

	return nil
}

// MarkJobFailed transitions a queued job to failed with the supplied error
// text. Terminal jobs are immutable.
func (r *Repository) MarkJobFailed(ctx context.Context, id, errMsg string) error {
	query := `
		UPDATE jobs
		SET status = $2, error_msg = $3, completed_at = now()
		WHERE id = $1 AND status = $4
	`

	tag, err := r.db.Pool.Exec(ctx, query, id, models.JobStatusFailed, errMsg, models.JobStatusQueued)
	if err != nil {
		return fmt.Errorf("failed to mark job failed: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}

	return nil
}
