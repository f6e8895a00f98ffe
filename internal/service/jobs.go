package service

import (
	"context"
	"crypto/subtle"
	"encoding/base64"
	"fmt"
	"io"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/google/uuid"
	"github.com/vocalizeapp/vocalize/internal/database"
	"github.com/vocalizeapp/vocalize/internal/logging"
	"github.com/vocalizeapp/vocalize/internal/metrics"
	"github.com/vocalizeapp/vocalize/internal/storage"
	"github.com/vocalizeapp/vocalize/pkg/models"
)

const (
	maxSpeechChars  = 50_000
	jobCacheTTL     = 30 * time.Second
	usageCacheTTL   = time.Minute
	wavContentType  = "audio/wav"
	defaultVideoCT  = "video/mp4"
	defaultPageSize = 20
)

// JobsRepository is the persistence surface the jobs service needs
type JobsRepository interface {
	DebitCredits(ctx context.Context, userID string, amount int64) error
	RefundCredits(ctx context.Context, userID string, amount int64) error
	CreateJob(ctx context.Context, job *models.Job) error
	GetJob(ctx context.Context, id string) (*models.Job, error)
	GetJobForUser(ctx context.Context, id, userID string) (*models.Job, error)
	ListJobsByUser(ctx context.Context, userID string, limit, offset int) ([]*models.Job, error)
	MarkJobDone(ctx context.Context, id, artifactKey string) error
	MarkJobFailed(ctx context.Context, id, errMsg string) error
	CreateUsageRecord(ctx context.Context, rec *models.UsageRecord) error
	SummarizeUsage(ctx context.Context, userID string) (*models.UsageSummary, error)
}

// ObjectStore is the artifact storage surface
type ObjectStore interface {
	Upload(ctx context.Context, objectName string, reader io.Reader, size int64, contentType string) error
	UploadBytes(ctx context.Context, objectName string, data []byte, contentType string) error
	SignedURL(ctx context.Context, objectName string) (string, error)
}

// Dispatcher publishes queued jobs for the worker
type Dispatcher interface {
	PublishDispatch(ctx context.Context, msg *models.DispatchMessage) error
}

// InferenceClient is the external GPU service surface
type InferenceClient interface {
	Synthesize(ctx context.Context, text string) ([]byte, error)
	SubmitTranslation(ctx context.Context, jobID, userID, inputKey string) error
}

// JobCache is the optional read-through cache surface
type JobCache interface {
	GetJob(ctx context.Context, id string) (*models.Job, error)
	SetJob(ctx context.Context, job *models.Job, ttl time.Duration) error
	InvalidateJob(ctx context.Context, id string) error
	GetUsageSummary(ctx context.Context, userID string) (*models.UsageSummary, error)
	SetUsageSummary(ctx context.Context, summary *models.UsageSummary, ttl time.Duration) error
	InvalidateUsageSummary(ctx context.Context, userID string) error
}

// JobResult is a job together with its artifact URL when available
type JobResult struct {
	Job *models.Job `json:"job"`
	URL string      `json:"url,omitempty"`
}

// Jobs implements job submission, billing and completion. Every
// balance-consuming operation debits atomically before any side effect and
// compensates with a refund when downstream work fails.
type Jobs struct {
	repo          JobsRepository
	store         ObjectStore
	queue         Dispatcher
	infer         InferenceClient
	cache         JobCache
	logger        *logging.Logger
	callbackToken string
	videoJobCost  int64
}

// NewJobs creates the jobs service. cache may be nil.
func NewJobs(repo JobsRepository, store ObjectStore, queue Dispatcher, infer InferenceClient, cache JobCache, logger *logging.Logger, callbackToken string, videoJobCost int64) *Jobs {
	return &Jobs{
		repo:          repo,
		store:         store,
		queue:         queue,
		infer:         infer,
		cache:         cache,
		logger:        logger,
		callbackToken: callbackToken,
		videoJobCost:  videoJobCost,
	}
}

// SynthesizeSync runs the blocking text-to-speech flow: debit, record the
// job, proxy to the inference service, store the artifact and hand back a
// time-limited URL.
func (s *Jobs) SynthesizeSync(ctx context.Context, userID, text string) (*JobResult, error) {
	cost, err := speechCost(text)
	if err != nil {
		return nil, err
	}

	job, err := s.acceptJob(ctx, userID, models.JobKindSpeech, cost, "")
	if err != nil {
		return nil, err
	}

	audio, err := s.infer.Synthesize(ctx, text)
	if err != nil {
		s.failJob(ctx, job, cost, fmt.Sprintf("synthesis failed: %v", err))
		return nil, err
	}

	artifactKey := storage.SpeechArtifactKey(userID, job.ID)
	if err := s.store.UploadBytes(ctx, artifactKey, audio, wavContentType); err != nil {
		s.failJob(ctx, job, cost, fmt.Sprintf("artifact write failed: %v", err))
		return nil, err
	}
	metrics.ArtifactSizeBytes.Observe(float64(len(audio)))

	if err := s.repo.MarkJobDone(ctx, job.ID, artifactKey); err != nil {
		s.failJob(ctx, job, cost, fmt.Sprintf("completion write failed: %v", err))
		return nil, err
	}
	job.Status = models.JobStatusDone
	job.ArtifactKey = artifactKey
	s.invalidateJob(ctx, job)
	metrics.JobsCompletedTotal.WithLabelValues(job.Kind, job.Status).Inc()
	s.logger.LogJobEvent(job.ID, "completed", job.Status)

	url, err := s.store.SignedURL(ctx, artifactKey)
	if err != nil {
		return nil, err
	}

	return &JobResult{Job: job, URL: url}, nil
}

// SubmitSpeech runs the asynchronous text-to-speech flow: debit, record the
// job and hand it to the worker through the queue.
func (s *Jobs) SubmitSpeech(ctx context.Context, userID, text string) (*models.Job, error) {
	cost, err := speechCost(text)
	if err != nil {
		return nil, err
	}

	job, err := s.acceptJob(ctx, userID, models.JobKindSpeech, cost, "")
	if err != nil {
		return nil, err
	}

	msg := &models.DispatchMessage{
		JobID:  job.ID,
		UserID: userID,
		Kind:   models.JobKindSpeech,
		Text:   text,
	}
	if err := s.queue.PublishDispatch(ctx, msg); err != nil {
		s.failJob(ctx, job, cost, fmt.Sprintf("dispatch failed: %v", err))
		return nil, err
	}

	return job, nil
}

// SubmitVideo streams an uploaded video into storage, debits the flat video
// cost and queues the job for dispatch to the inference service.
func (s *Jobs) SubmitVideo(ctx context.Context, userID string, body io.Reader, size int64, contentType string) (*models.Job, error) {
	if body == nil {
		return nil, ErrInvalidInput
	}
	if contentType == "" {
		contentType = defaultVideoCT
	}

	if err := s.debit(ctx, userID, "", models.JobKindVideoTranslate, s.videoJobCost); err != nil {
		return nil, err
	}

	jobID := uuid.New().String()
	inputKey := storage.VideoInputKey(userID, jobID)

	start := time.Now()
	if err := s.store.Upload(ctx, inputKey, body, size, contentType); err != nil {
		s.refund(ctx, userID, jobID, models.JobKindVideoTranslate, s.videoJobCost)
		return nil, err
	}
	metrics.StorageOperationDuration.WithLabelValues("upload").Observe(time.Since(start).Seconds())

	job := &models.Job{
		ID:       jobID,
		UserID:   userID,
		Kind:     models.JobKindVideoTranslate,
		Status:   models.JobStatusQueued,
		InputKey: inputKey,
	}
	if err := s.recordJob(ctx, job, s.videoJobCost); err != nil {
		s.refund(ctx, userID, jobID, models.JobKindVideoTranslate, s.videoJobCost)
		return nil, err
	}

	msg := &models.DispatchMessage{
		JobID:    job.ID,
		UserID:   userID,
		Kind:     models.JobKindVideoTranslate,
		InputKey: inputKey,
	}
	if err := s.queue.PublishDispatch(ctx, msg); err != nil {
		s.failJob(ctx, job, s.videoJobCost, fmt.Sprintf("dispatch failed: %v", err))
		return nil, err
	}

	return job, nil
}

// GetJob returns a job scoped to its owner, read through the cache.
func (s *Jobs) GetJob(ctx context.Context, userID, jobID string) (*models.Job, error) {
	if s.cache != nil {
		if job, err := s.cache.GetJob(ctx, jobID); err == nil {
			if job.UserID != userID {
				return nil, database.ErrNotFound
			}
			return job, nil
		}
	}

	job, err := s.repo.GetJobForUser(ctx, jobID, userID)
	if err != nil {
		return nil, err
	}

	if s.cache != nil {
		_ = s.cache.SetJob(ctx, job, jobCacheTTL)
	}

	return job, nil
}

// ListJobs returns a user's jobs, newest first.
func (s *Jobs) ListJobs(ctx context.Context, userID string, limit, offset int) ([]*models.Job, error) {
	if limit <= 0 {
		limit = defaultPageSize
	}
	if offset < 0 {
		offset = 0
	}
	return s.repo.ListJobsByUser(ctx, userID, limit, offset)
}

// Result returns a job and, when it is done, a fresh signed artifact URL.
func (s *Jobs) Result(ctx context.Context, userID, jobID string) (*JobResult, error) {
	job, err := s.GetJob(ctx, userID, jobID)
	if err != nil {
		return nil, err
	}

	result := &JobResult{Job: job}
	if job.Status == models.JobStatusDone && job.ArtifactKey != "" {
		url, err := s.store.SignedURL(ctx, job.ArtifactKey)
		if err != nil {
			return nil, err
		}
		result.URL = url
	}

	return result, nil
}

// Usage returns a user's billed usage summary, read through the cache.
func (s *Jobs) Usage(ctx context.Context, userID string) (*models.UsageSummary, error) {
	if s.cache != nil {
		if summary, err := s.cache.GetUsageSummary(ctx, userID); err == nil {
			return summary, nil
		}
	}

	summary, err := s.repo.SummarizeUsage(ctx, userID)
	if err != nil {
		return nil, err
	}

	if s.cache != nil {
		_ = s.cache.SetUsageSummary(ctx, summary, usageCacheTTL)
	}

	return summary, nil
}

// CompleteCallback handles the inference service's completion report. The
// shared token is checked before any state is read or written; a mismatch
// is forbidden even when the job ID is valid.
func (s *Jobs) CompleteCallback(ctx context.Context, token string, req *models.CallbackRequest) error {
	if subtle.ConstantTimeCompare([]byte(token), []byte(s.callbackToken)) != 1 {
		return ErrForbidden
	}

	job, err := s.repo.GetJob(ctx, req.JobID)
	if err != nil {
		return err
	}
	if job.Terminal() {
		return database.ErrConflict
	}

	if !req.Success {
		errMsg := req.Error
		if errMsg == "" {
			errMsg = "inference service reported failure"
		}
		s.failJob(ctx, job, s.billedUnits(job), errMsg)
		return nil
	}

	if req.Payload == "" {
		return ErrInvalidInput
	}
	artifact, err := base64.StdEncoding.DecodeString(req.Payload)
	if err != nil {
		return ErrInvalidInput
	}

	contentType := req.ContentType
	artifactKey := storage.SpeechArtifactKey(job.UserID, job.ID)
	if job.Kind == models.JobKindVideoTranslate {
		artifactKey = storage.VideoArtifactKey(job.UserID, job.ID)
		if contentType == "" {
			contentType = defaultVideoCT
		}
	} else if contentType == "" {
		contentType = wavContentType
	}

	if err := s.store.UploadBytes(ctx, artifactKey, artifact, contentType); err != nil {
		return err
	}
	metrics.ArtifactSizeBytes.Observe(float64(len(artifact)))

	if err := s.repo.MarkJobDone(ctx, job.ID, artifactKey); err != nil {
		return err
	}
	job.Status = models.JobStatusDone
	s.invalidateJob(ctx, job)
	metrics.JobsCompletedTotal.WithLabelValues(job.Kind, models.JobStatusDone).Inc()
	s.logger.LogJobEvent(job.ID, "callback_completed", models.JobStatusDone)

	return nil
}

// ProcessDispatch drives one queued job from the worker: synthesize and
// store for speech jobs, notify the inference service for video jobs.
// Failures mark the job failed and refund the debit; the message is acked
// either way since the job record carries the outcome.
func (s *Jobs) ProcessDispatch(ctx context.Context, msg *models.DispatchMessage) error {
	job, err := s.repo.GetJob(ctx, msg.JobID)
	if err != nil {
		return err
	}
	if job.Terminal() {
		return nil
	}

	switch msg.Kind {
	case models.JobKindSpeech:
		start := time.Now()
		audio, err := s.infer.Synthesize(ctx, msg.Text)
		outcome := "ok"
		if err != nil {
			outcome = "error"
		}
		metrics.InferenceCallDuration.WithLabelValues(msg.Kind, outcome).Observe(time.Since(start).Seconds())
		if err != nil {
			s.failJob(ctx, job, s.billedUnits(job), fmt.Sprintf("synthesis failed: %v", err))
			return nil
		}

		artifactKey := storage.SpeechArtifactKey(msg.UserID, msg.JobID)
		if err := s.store.UploadBytes(ctx, artifactKey, audio, wavContentType); err != nil {
			s.failJob(ctx, job, s.billedUnits(job), fmt.Sprintf("artifact write failed: %v", err))
			return nil
		}

		if err := s.repo.MarkJobDone(ctx, msg.JobID, artifactKey); err != nil {
			return err
		}
		job.Status = models.JobStatusDone
		s.invalidateJob(ctx, job)
		metrics.JobsCompletedTotal.WithLabelValues(job.Kind, models.JobStatusDone).Inc()
		s.logger.LogJobEvent(job.ID, "completed", models.JobStatusDone)
		return nil

	case models.JobKindVideoTranslate:
		start := time.Now()
		err := s.infer.SubmitTranslation(ctx, msg.JobID, msg.UserID, msg.InputKey)
		outcome := "ok"
		if err != nil {
			outcome = "error"
		}
		metrics.InferenceCallDuration.WithLabelValues(msg.Kind, outcome).Observe(time.Since(start).Seconds())
		if err != nil {
			s.failJob(ctx, job, s.billedUnits(job), fmt.Sprintf("translation submit failed: %v", err))
			return nil
		}
		// Completion arrives via the callback
		return nil

	default:
		return fmt.Errorf("unknown job kind %q", msg.Kind)
	}
}

// acceptJob performs the debit-then-record sequence shared by the speech
// flows.
func (s *Jobs) acceptJob(ctx context.Context, userID, kind string, cost int64, inputKey string) (*models.Job, error) {
	if err := s.debit(ctx, userID, "", kind, cost); err != nil {
		return nil, err
	}

	job := &models.Job{
		UserID:     userID,
		Kind:       kind,
		Status:     models.JobStatusQueued,
		InputChars: int(cost),
		InputKey:   inputKey,
	}
	if err := s.recordJob(ctx, job, cost); err != nil {
		s.refund(ctx, userID, job.ID, kind, cost)
		return nil, err
	}

	return job, nil
}

func (s *Jobs) recordJob(ctx context.Context, job *models.Job, cost int64) error {
	if err := s.repo.CreateJob(ctx, job); err != nil {
		return err
	}

	rec := &models.UsageRecord{
		UserID: job.UserID,
		JobID:  job.ID,
		Kind:   job.Kind,
		Units:  cost,
	}
	if err := s.repo.CreateUsageRecord(ctx, rec); err != nil {
		return err
	}

	if s.cache != nil {
		_ = s.cache.InvalidateUsageSummary(ctx, job.UserID)
	}

	metrics.JobsCreatedTotal.WithLabelValues(job.Kind).Inc()
	s.logger.LogJobEvent(job.ID, "created", job.Status)
	return nil
}

func (s *Jobs) debit(ctx context.Context, userID, jobID, kind string, amount int64) error {
	if err := s.repo.DebitCredits(ctx, userID, amount); err != nil {
		if err == database.ErrInsufficientCredits {
			metrics.InsufficientCreditsTotal.Inc()
		}
		return err
	}

	metrics.CreditsDebitedTotal.WithLabelValues(kind).Add(float64(amount))
	s.logger.LogBillingEvent(userID, jobID, "debit", amount)
	return nil
}

func (s *Jobs) refund(ctx context.Context, userID, jobID, kind string, amount int64) {
	if err := s.repo.RefundCredits(ctx, userID, amount); err != nil {
		s.logger.WithError(err).WithUserID(userID).Error("refund failed")
		return
	}

	metrics.CreditsRefundedTotal.WithLabelValues(kind).Add(float64(amount))
	s.logger.LogBillingEvent(userID, jobID, "refund", amount)
}

// failJob marks a job failed and compensates the debit
func (s *Jobs) failJob(ctx context.Context, job *models.Job, cost int64, errMsg string) {
	if err := s.repo.MarkJobFailed(ctx, job.ID, errMsg); err != nil {
		s.logger.WithError(err).WithJobID(job.ID).Error("failed to mark job failed")
		return
	}
	job.Status = models.JobStatusFailed
	s.invalidateJob(ctx, job)
	s.refund(ctx, job.UserID, job.ID, job.Kind, cost)
	metrics.JobsCompletedTotal.WithLabelValues(job.Kind, models.JobStatusFailed).Inc()
	s.logger.LogJobEvent(job.ID, "failed", models.JobStatusFailed)
}

func (s *Jobs) invalidateJob(ctx context.Context, job *models.Job) {
	if s.cache != nil {
		_ = s.cache.InvalidateJob(ctx, job.ID)
	}
}

func (s *Jobs) billedUnits(job *models.Job) int64 {
	if job.Kind == models.JobKindVideoTranslate {
		return s.videoJobCost
	}
	return int64(job.InputChars)
}

// speechCost validates synthesis input and prices it at one credit per
// character.
func speechCost(text string) (int64, error) {
	if strings.TrimSpace(text) == "" {
		return 0, ErrInvalidInput
	}

	chars := utf8.RuneCountInString(text)
	if chars > maxSpeechChars {
		return 0, ErrInvalidInput
	}

	return int64(chars), nil
}
