package inference

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/vocalizeapp/vocalize/internal/config"
)

// ErrUpstream indicates the inference service answered with a non-success
// status or was unreachable.
var ErrUpstream = errors.New("inference service failure")

const (
	defaultTimeout = 120 * time.Second

	// How much of an upstream error body is carried into our error text
	maxErrorExcerpt = 500
)

// Client talks to the external GPU inference service
type Client struct {
	httpClient     *http.Client
	speechEndpoint string
	videoEndpoint  string
	token          string
}

// New creates an inference client
func New(cfg config.InferenceConfig) *Client {
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = defaultTimeout
	}

	return &Client{
		httpClient: &http.Client{
			Timeout: timeout,
		},
		speechEndpoint: cfg.SpeechEndpoint,
		videoEndpoint:  cfg.VideoEndpoint,
		token:          cfg.Token,
	}
}

type speechRequest struct {
	Text string `json:"text"`
}

// Synthesize sends text for speech synthesis and returns the audio bytes.
func (c *Client) Synthesize(ctx context.Context, text string) ([]byte, error) {
	body, err := json.Marshal(speechRequest{Text: text})
	if err != nil {
		return nil, fmt.Errorf("failed to marshal synthesis request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.speechEndpoint, bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("failed to create synthesis request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	c.authorize(req)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrUpstream, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return nil, upstreamError(resp)
	}

	audio, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("%w: reading response: %v", ErrUpstream, err)
	}

	return audio, nil
}

type translationRequest struct {
	JobID    string `json:"job_id"`
	UserID   string `json:"user_id"`
	InputKey string `json:"input_key"`
}

// SubmitTranslation notifies the inference service of an uploaded video.
// The service reports completion later through the job callback.
func (c *Client) SubmitTranslation(ctx context.Context, jobID, userID, inputKey string) error {
	body, err := json.Marshal(translationRequest{
		JobID:    jobID,
		UserID:   userID,
		InputKey: inputKey,
	})
	if err != nil {
		return fmt.Errorf("failed to marshal translation request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.videoEndpoint, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("failed to create translation request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	c.authorize(req)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("%w: %v", ErrUpstream, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return upstreamError(resp)
	}

	return nil
}

func (c *Client) authorize(req *http.Request) {
	if c.token != "" {
		req.Header.Set("Authorization", "Bearer "+c.token)
	}
}

func upstreamError(resp *http.Response) error {
	excerpt, _ := io.ReadAll(io.LimitReader(resp.Body, maxErrorExcerpt))
	return fmt.Errorf("%w: status %d: %s", ErrUpstream, resp.StatusCode, string(excerpt))
}
