package inference

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/vocalizeapp/vocalize/internal/config"
)

func TestSynthesize(t *testing.T) {
	wav := []byte("RIFF....WAVEfmt fake audio")

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPost, r.Method)
		assert.Equal(t, "application/json", r.Header.Get("Content-Type"))
		assert.Equal(t, "Bearer modal-token", r.Header.Get("Authorization"))

		var req speechRequest
		require.NoError(t, json.NewDecoder(r.Body).Decode(&req))
		assert.Equal(t, "hello world", req.Text)

		w.Header().Set("Content-Type", "audio/wav")
		w.Write(wav)
	}))
	defer server.Close()

	client := New(config.InferenceConfig{
		SpeechEndpoint: server.URL,
		Token:          "modal-token",
		Timeout:        5 * time.Second,
	})

	audio, err := client.Synthesize(context.Background(), "hello world")
	require.NoError(t, err)
	assert.Equal(t, wav, audio)
}

func TestSynthesizeUpstreamFailure(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "GPU pool exhausted", http.StatusServiceUnavailable)
	}))
	defer server.Close()

	client := New(config.InferenceConfig{
		SpeechEndpoint: server.URL,
		Timeout:        5 * time.Second,
	})

	_, err := client.Synthesize(context.Background(), "hello")
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrUpstream)
	assert.Contains(t, err.Error(), "GPU pool exhausted")
}

func TestSynthesizeUnreachable(t *testing.T) {
	client := New(config.InferenceConfig{
		SpeechEndpoint: "http://127.0.0.1:1", // nothing listens here
		Timeout:        time.Second,
	})

	_, err := client.Synthesize(context.Background(), "hello")
	assert.ErrorIs(t, err, ErrUpstream)
}

func TestSynthesizeTimeout(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		time.Sleep(200 * time.Millisecond)
	}))
	defer server.Close()

	client := New(config.InferenceConfig{
		SpeechEndpoint: server.URL,
		Timeout:        50 * time.Millisecond,
	})

	_, err := client.Synthesize(context.Background(), "hello")
	assert.ErrorIs(t, err, ErrUpstream)
}

func TestSubmitTranslation(t *testing.T) {
	var got translationRequest

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.NoError(t, json.NewDecoder(r.Body).Decode(&got))
		w.WriteHeader(http.StatusAccepted)
	}))
	defer server.Close()

	client := New(config.InferenceConfig{
		VideoEndpoint: server.URL,
		Timeout:       5 * time.Second,
	})

	err := client.SubmitTranslation(context.Background(), "job-1", "user-1", "video/user-1/job-1/original.mp4")
	require.NoError(t, err)
	assert.Equal(t, "job-1", got.JobID)
	assert.Equal(t, "user-1", got.UserID)
	assert.Equal(t, "video/user-1/job-1/original.mp4", got.InputKey)
}

func TestSubmitTranslationUpstreamFailure(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "bad request", http.StatusBadRequest)
	}))
	defer server.Close()

	client := New(config.InferenceConfig{
		VideoEndpoint: server.URL,
		Timeout:       5 * time.Second,
	})

	err := client.SubmitTranslation(context.Background(), "job-1", "user-1", "key")
	assert.ErrorIs(t, err, ErrUpstream)
}
