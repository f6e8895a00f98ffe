package models

import (
	"time"
)

// UsageRecord captures a single billed request against a user's balance
type UsageRecord struct {
	ID        string    `json:"id" db:"id"`
	UserID    string    `json:"user_id" db:"user_id"`
	JobID     string    `json:"job_id" db:"job_id"`
	Kind      string    `json:"kind" db:"kind"`
	Units     int64     `json:"units" db:"units"`
	CreatedAt time.Time `json:"created_at" db:"created_at"`
}

// UsageSummary aggregates billed units per job kind for one user
type UsageSummary struct {
	UserID     string           `json:"user_id"`
	TotalUnits int64            `json:"total_units"`
	ByKind     map[string]int64 `json:"by_kind"`
}
