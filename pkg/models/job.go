package models

import (
	"time"
)

// Job represents a unit of requested inference work
type Job struct {
	ID          string     `json:"id" db:"id"`
	UserID      string     `json:"user_id" db:"user_id"`
	Kind        string     `json:"kind" db:"kind"`
	Status      string     `json:"status" db:"status"`
	InputChars  int        `json:"input_chars" db:"input_chars"`
	InputKey    string     `json:"-" db:"input_key"`
	ArtifactKey string     `json:"-" db:"artifact_key"`
	ErrorMsg    string     `json:"error,omitempty" db:"error_msg"`
	CreatedAt   time.Time  `json:"created_at" db:"created_at"`
	CompletedAt *time.Time `json:"completed_at,omitempty" db:"completed_at"`
}

// JobStatus constants. A job is terminal once done or failed.
const (
	JobStatusQueued = "queued"
	JobStatusDone   = "done"
	JobStatusFailed = "failed"
)

// JobKind constants
const (
	JobKindSpeech         = "tts"
	JobKindVideoTranslate = "video_translate"
)

// Terminal reports whether the job has reached a final state.
func (j *Job) Terminal() bool {
	return j.Status == JobStatusDone || j.Status == JobStatusFailed
}

// DispatchMessage is the queue payload handed to the worker for a queued job.
type DispatchMessage struct {
	JobID    string `json:"job_id"`
	UserID   string `json:"user_id"`
	Kind     string `json:"kind"`
	Text     string `json:"text,omitempty"`
	InputKey string `json:"input_key,omitempty"`
}

// CallbackRequest is the inbound completion report from the inference service.
type CallbackRequest struct {
	JobID       string `json:"job_id" binding:"required"`
	Success     bool   `json:"success"`
	Payload     string `json:"payload,omitempty"` // base64-encoded artifact bytes
	ContentType string `json:"content_type,omitempty"`
	Error       string `json:"error,omitempty"`
}
