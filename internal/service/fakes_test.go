package service

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/vocalizeapp/vocalize/internal/database"
	"github.com/vocalizeapp/vocalize/pkg/models"
)

// fakeRepo is an in-memory stand-in for the postgres repository. It
// implements both AccountsRepository and JobsRepository with the same
// semantics the SQL layer enforces: atomic conditional debits, unique
// emails and immutable terminal jobs.
type fakeRepo struct {
	mu      sync.Mutex
	users   map[string]*models.User
	byEmail map[string]string
	jobs    map[string]*models.Job
	usage   []*models.UsageRecord

	debitErr    error
	createErr   error
	markDoneErr error
}

func newFakeRepo() *fakeRepo {
	return &fakeRepo{
		users:   make(map[string]*models.User),
		byEmail: make(map[string]string),
		jobs:    make(map[string]*models.Job),
	}
}

func (r *fakeRepo) addUser(id string, credits int64) *models.User {
	r.mu.Lock()
	defer r.mu.Unlock()
	u := &models.User{ID: id, Email: id + "@example.com", Credits: credits}
	r.users[id] = u
	r.byEmail[u.Email] = id
	return u
}

func (r *fakeRepo) credits(id string) int64 {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.users[id].Credits
}

func (r *fakeRepo) CreateUser(_ context.Context, user *models.User) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.createErr != nil {
		return r.createErr
	}
	if _, exists := r.byEmail[user.Email]; exists {
		return database.ErrConflict
	}
	if user.ID == "" {
		user.ID = uuid.New().String()
	}
	user.CreatedAt = time.Now()
	copied := *user
	r.users[user.ID] = &copied
	r.byEmail[user.Email] = user.ID
	return nil
}

func (r *fakeRepo) GetUser(_ context.Context, id string) (*models.User, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	u, ok := r.users[id]
	if !ok {
		return nil, database.ErrNotFound
	}
	copied := *u
	return &copied, nil
}

func (r *fakeRepo) GetUserByEmail(_ context.Context, email string) (*models.User, error) {
	r.mu.Lock()
	id, ok := r.byEmail[email]
	r.mu.Unlock()
	if !ok {
		return nil, database.ErrNotFound
	}
	return r.GetUser(context.Background(), id)
}

func (r *fakeRepo) UpdateAPIKeyHash(_ context.Context, userID, hash string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	u, ok := r.users[userID]
	if !ok {
		return database.ErrNotFound
	}
	u.APIKeyHash = hash
	return nil
}

func (r *fakeRepo) DebitCredits(_ context.Context, userID string, amount int64) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.debitErr != nil {
		return r.debitErr
	}
	u, ok := r.users[userID]
	if !ok {
		return database.ErrNotFound
	}
	if u.Credits < amount {
		return database.ErrInsufficientCredits
	}
	u.Credits -= amount
	return nil
}

func (r *fakeRepo) RefundCredits(_ context.Context, userID string, amount int64) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	u, ok := r.users[userID]
	if !ok {
		return database.ErrNotFound
	}
	u.Credits += amount
	return nil
}

func (r *fakeRepo) CreateJob(_ context.Context, job *models.Job) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if job.ID == "" {
		job.ID = uuid.New().String()
	}
	if job.Status == "" {
		job.Status = models.JobStatusQueued
	}
	job.CreatedAt = time.Now()
	copied := *job
	r.jobs[job.ID] = &copied
	return nil
}

func (r *fakeRepo) GetJob(_ context.Context, id string) (*models.Job, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	job, ok := r.jobs[id]
	if !ok {
		return nil, database.ErrNotFound
	}
	copied := *job
	return &copied, nil
}

func (r *fakeRepo) GetJobForUser(_ context.Context, id, userID string) (*models.Job, error) {
	job, err := r.GetJob(context.Background(), id)
	if err != nil {
		return nil, err
	}
	if job.UserID != userID {
		return nil, database.ErrNotFound
	}
	return job, nil
}

func (r *fakeRepo) ListJobsByUser(_ context.Context, userID string, limit, offset int) ([]*models.Job, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []*models.Job
	for _, job := range r.jobs {
		if job.UserID == userID {
			copied := *job
			out = append(out, &copied)
		}
	}
	return out, nil
}

func (r *fakeRepo) MarkJobDone(_ context.Context, id, artifactKey string) error {
	r.mu.Lock()
	err := r.markDoneErr
	r.mu.Unlock()
	if err != nil {
		return err
	}
	return r.transition(id, models.JobStatusDone, artifactKey, "")
}

func (r *fakeRepo) MarkJobFailed(_ context.Context, id, errMsg string) error {
	return r.transition(id, models.JobStatusFailed, "", errMsg)
}

func (r *fakeRepo) transition(id, status, artifactKey, errMsg string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	job, ok := r.jobs[id]
	if !ok || job.Status != models.JobStatusQueued {
		return database.ErrNotFound
	}
	job.Status = status
	if artifactKey != "" {
		job.ArtifactKey = artifactKey
	}
	job.ErrorMsg = errMsg
	now := time.Now()
	job.CompletedAt = &now
	return nil
}

func (r *fakeRepo) CreateUsageRecord(_ context.Context, rec *models.UsageRecord) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	copied := *rec
	r.usage = append(r.usage, &copied)
	return nil
}

func (r *fakeRepo) SummarizeUsage(_ context.Context, userID string) (*models.UsageSummary, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	summary := &models.UsageSummary{UserID: userID, ByKind: make(map[string]int64)}
	for _, rec := range r.usage {
		if rec.UserID == userID {
			summary.TotalUnits += rec.Units
			summary.ByKind[rec.Kind] += rec.Units
		}
	}
	return summary, nil
}

// fakeStore records uploads in memory
type fakeStore struct {
	mu        sync.Mutex
	objects   map[string][]byte
	uploadErr error
}

func newFakeStore() *fakeStore {
	return &fakeStore{objects: make(map[string][]byte)}
}

func (s *fakeStore) Upload(_ context.Context, objectName string, reader io.Reader, _ int64, _ string) error {
	if s.uploadErr != nil {
		return s.uploadErr
	}
	var buf bytes.Buffer
	if _, err := buf.ReadFrom(reader); err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.objects[objectName] = buf.Bytes()
	return nil
}

func (s *fakeStore) UploadBytes(_ context.Context, objectName string, data []byte, _ string) error {
	if s.uploadErr != nil {
		return s.uploadErr
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.objects[objectName] = append([]byte(nil), data...)
	return nil
}

func (s *fakeStore) SignedURL(_ context.Context, objectName string) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.objects[objectName]; !ok {
		return "", fmt.Errorf("object %q not found", objectName)
	}
	return "https://storage.test/" + objectName + "?sig=abc", nil
}

// fakeQueue records published dispatches
type fakeQueue struct {
	mu         sync.Mutex
	published  []*models.DispatchMessage
	publishErr error
}

func (q *fakeQueue) PublishDispatch(_ context.Context, msg *models.DispatchMessage) error {
	if q.publishErr != nil {
		return q.publishErr
	}
	q.mu.Lock()
	defer q.mu.Unlock()
	copied := *msg
	q.published = append(q.published, &copied)
	return nil
}

// fakeInference returns canned audio or a configured error
type fakeInference struct {
	audio     []byte
	synthErr  error
	submitErr error

	mu          sync.Mutex
	submissions []string
}

func (f *fakeInference) Synthesize(_ context.Context, text string) ([]byte, error) {
	if f.synthErr != nil {
		return nil, f.synthErr
	}
	if f.audio != nil {
		return f.audio, nil
	}
	return []byte("RIFF" + text), nil
}

func (f *fakeInference) SubmitTranslation(_ context.Context, jobID, userID, inputKey string) error {
	if f.submitErr != nil {
		return f.submitErr
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	f.submissions = append(f.submissions, jobID)
	return nil
}
