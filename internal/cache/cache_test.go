package cache

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/vocalizeapp/vocalize/pkg/models"
)

func setupTestCache(t *testing.T) (*Cache, *miniredis.Miniredis) {
	mr, err := miniredis.Run()
	if err != nil {
		t.Fatalf("Failed to start miniredis: %v", err)
	}

	cache, err := NewCache(mr.Host(), mr.Server().Addr().Port, "", 0)
	if err != nil {
		mr.Close()
		t.Fatalf("Failed to create cache: %v", err)
	}

	return cache, mr
}

func TestNewCache(t *testing.T) {
	cache, mr := setupTestCache(t)
	defer mr.Close()
	defer cache.Close()

	if err := cache.Ping(context.Background()); err != nil {
		t.Errorf("Ping failed: %v", err)
	}
}

func TestCache_JobOperations(t *testing.T) {
	cache, mr := setupTestCache(t)
	defer mr.Close()
	defer cache.Close()

	ctx := context.Background()

	job := &models.Job{
		ID:         "job-1",
		UserID:     "user-1",
		Kind:       models.JobKindSpeech,
		Status:     models.JobStatusQueued,
		InputChars: 42,
	}

	if err := cache.SetJob(ctx, job, time.Minute); err != nil {
		t.Fatalf("SetJob failed: %v", err)
	}

	got, err := cache.GetJob(ctx, "job-1")
	if err != nil {
		t.Fatalf("GetJob failed: %v", err)
	}

	if got.ID != job.ID || got.Status != job.Status || got.InputChars != job.InputChars {
		t.Errorf("cached job mismatch: got %+v, want %+v", got, job)
	}

	if err := cache.InvalidateJob(ctx, "job-1"); err != nil {
		t.Fatalf("InvalidateJob failed: %v", err)
	}

	if _, err := cache.GetJob(ctx, "job-1"); err != ErrMiss {
		t.Errorf("expected ErrMiss after invalidation, got %v", err)
	}
}

func TestCache_JobTTL(t *testing.T) {
	cache, mr := setupTestCache(t)
	defer mr.Close()
	defer cache.Close()

	ctx := context.Background()

	job := &models.Job{ID: "job-ttl", Status: models.JobStatusQueued}
	if err := cache.SetJob(ctx, job, time.Second); err != nil {
		t.Fatalf("SetJob failed: %v", err)
	}

	mr.FastForward(2 * time.Second)

	if _, err := cache.GetJob(ctx, "job-ttl"); err != ErrMiss {
		t.Errorf("expected ErrMiss after TTL, got %v", err)
	}
}

func TestCache_UsageSummaryOperations(t *testing.T) {
	cache, mr := setupTestCache(t)
	defer mr.Close()
	defer cache.Close()

	ctx := context.Background()

	summary := &models.UsageSummary{
		UserID:     "user-1",
		TotalUnits: 120,
		ByKind: map[string]int64{
			models.JobKindSpeech:         100,
			models.JobKindVideoTranslate: 20,
		},
	}

	if err := cache.SetUsageSummary(ctx, summary, time.Minute); err != nil {
		t.Fatalf("SetUsageSummary failed: %v", err)
	}

	got, err := cache.GetUsageSummary(ctx, "user-1")
	if err != nil {
		t.Fatalf("GetUsageSummary failed: %v", err)
	}

	if got.TotalUnits != 120 || got.ByKind[models.JobKindSpeech] != 100 {
		t.Errorf("cached summary mismatch: got %+v", got)
	}

	if err := cache.InvalidateUsageSummary(ctx, "user-1"); err != nil {
		t.Fatalf("InvalidateUsageSummary failed: %v", err)
	}

	if _, err := cache.GetUsageSummary(ctx, "user-1"); err != ErrMiss {
		t.Errorf("expected ErrMiss after invalidation, got %v", err)
	}
}
