package storage

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"time"

	"github.com/minio/minio-go/v7"
	"github.com/minio/minio-go/v7/pkg/credentials"
	"github.com/vocalizeapp/vocalize/internal/config"
)

// DefaultSignedURLExpiry bounds how long an artifact URL stays valid.
const DefaultSignedURLExpiry = 600 * time.Second

// Storage provides object storage operations for job inputs and artifacts
type Storage struct {
	client       *minio.Client
	bucketName   string
	signedExpiry time.Duration
}

// New creates a new storage client
func New(cfg config.StorageConfig) (*Storage, error) {
	client, err := minio.New(cfg.Endpoint, &minio.Options{
		Creds:  credentials.NewStaticV4(cfg.AccessKeyID, cfg.SecretAccessKey, ""),
		Secure: cfg.UseSSL,
		Region: cfg.Region,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create storage client: %w", err)
	}

	// Ensure bucket exists
	ctx := context.Background()
	exists, err := client.BucketExists(ctx, cfg.BucketName)
	if err != nil {
		return nil, fmt.Errorf("failed to check bucket existence: %w", err)
	}

	if !exists {
		err = client.MakeBucket(ctx, cfg.BucketName, minio.MakeBucketOptions{
			Region: cfg.Region,
		})
		if err != nil {
			return nil, fmt.Errorf("failed to create bucket: %w", err)
		}
	}

	expiry := cfg.SignedURLExpiry
	if expiry <= 0 {
		expiry = DefaultSignedURLExpiry
	}

	return &Storage{
		client:       client,
		bucketName:   cfg.BucketName,
		signedExpiry: expiry,
	}, nil
}

// Upload uploads a reader to storage
func (s *Storage) Upload(ctx context.Context, objectName string, reader io.Reader, size int64, contentType string) error {
	_, err := s.client.PutObject(ctx, s.bucketName, objectName, reader, size, minio.PutObjectOptions{
		ContentType: contentType,
	})
	if err != nil {
		return fmt.Errorf("failed to upload object: %w", err)
	}

	return nil
}

// UploadBytes uploads an in-memory artifact to storage
func (s *Storage) UploadBytes(ctx context.Context, objectName string, data []byte, contentType string) error {
	return s.Upload(ctx, objectName, bytes.NewReader(data), int64(len(data)), contentType)
}

// Download downloads an object from storage
func (s *Storage) Download(ctx context.Context, objectName string) (io.ReadCloser, error) {
	object, err := s.client.GetObject(ctx, s.bucketName, objectName, minio.GetObjectOptions{})
	if err != nil {
		return nil, fmt.Errorf("failed to download object: %w", err)
	}

	return object, nil
}

// Delete deletes an object from storage
func (s *Storage) Delete(ctx context.Context, objectName string) error {
	err := s.client.RemoveObject(ctx, s.bucketName, objectName, minio.RemoveObjectOptions{})
	if err != nil {
		return fmt.Errorf("failed to delete object: %w", err)
	}

	return nil
}

// SignedURL returns a time-limited presigned GET URL for an artifact.
// URLs are generated on demand and never persisted.
func (s *Storage) SignedURL(ctx context.Context, objectName string) (string, error) {
	url, err := s.client.PresignedGetObject(ctx, s.bucketName, objectName, s.signedExpiry, nil)
	if err != nil {
		return "", fmt.Errorf("failed to generate URL: %w", err)
	}

	return url.String(), nil
}

// SpeechArtifactKey builds the object key for a synthesized audio artifact
func SpeechArtifactKey(userID, jobID string) string {
	return fmt.Sprintf("tts/%s/%s.wav", userID, jobID)
}

// VideoInputKey builds the object key for an uploaded source video
func VideoInputKey(userID, jobID string) string {
	return fmt.Sprintf("video/%s/%s/original.mp4", userID, jobID)
}

// VideoArtifactKey builds the object key for a translated video artifact
func VideoArtifactKey(userID, jobID string) string {
	return fmt.Sprintf("video/%s/%s/translated.mp4", userID, jobID)
}
