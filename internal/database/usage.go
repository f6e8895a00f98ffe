package database

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"github.com/vocalizeapp/vocalize/pkg/models"
)

// CreateUsageRecord records one billed request
func (r *Repository) CreateUsageRecord(ctx context.Context, rec *models.UsageRecord) error {
	if rec.ID == "" {
		rec.ID = uuid.New().String()
	}

	query := `
		INSERT INTO usage_records (id, user_id, job_id, kind, units)
		VALUES ($1, $2, $3, $4, $5)
		RETURNING created_at
	`

	err := r.db.Pool.QueryRow(ctx, query,
		rec.ID, rec.UserID, rec.JobID, rec.Kind, rec.Units,
	).Scan(&rec.CreatedAt)

	if err != nil {
		return fmt.Errorf("failed to create usage record: %w", err)
	}

	return nil
}

// SummarizeUsage aggregates a user's billed units per job kind
func (r *Repository) SummarizeUsage(ctx context.Context, userID string) (*models.UsageSummary, error) {
	query := `
		SELECT kind, COALESCE(SUM(units), 0)
		FROM usage_records
		WHERE user_id = $1
		GROUP BY kind
	`

	rows, err := r.db.Pool.Query(ctx, query, userID)
	if err != nil {
		return nil, fmt.Errorf("failed to summarize usage: %w", err)
	}
	defer rows.Close()

	summary := &models.UsageSummary{
		UserID: userID,
		ByKind: make(map[string]int64),
	}

	for rows.Next() {
		var kind string
		var units int64
		if err := rows.Scan(&kind, &units); err != nil {
			return nil, fmt.Errorf("failed to scan usage row: %w", err)
		}
		summary.ByKind[kind] = units
		summary.TotalUnits += units
	}

	return summary, nil
}
