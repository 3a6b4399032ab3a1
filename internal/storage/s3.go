package storage

import (
	"bytes"
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/gatherly/backend/internal/models"
	"github.com/google/uuid"
)

// MediaStore handles event media uploads to AWS S3
type MediaStore struct {
	client  *s3.Client
	bucket  string
	region  string
	baseURL string
}

// UploadResult contains the result of an upload
type UploadResult struct {
	Key  string           `json:"key"`
	URL  string           `json:"url"`
	Kind models.MediaKind `json:"kind"`
	Size int64            `json:"size"`
}

// NewMediaStore creates a new S3-backed media store
func NewMediaStore(region, bucket, baseURL string) (*MediaStore, error) {
	cfg, err := config.LoadDefaultConfig(context.TODO(),
		config.WithRegion(region),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to load AWS config: %w", err)
	}

	return &MediaStore{
		client:  s3.NewFromConfig(cfg),
		bucket:  bucket,
		region:  region,
		baseURL: baseURL,
	}, nil
}

// Upload stores a media object and returns its key, public URL, and
// detected kind. Content types outside image/* and video/* are
// rejected before anything is written.
func (m *MediaStore) Upload(ctx context.Context, data []byte, contentType, ownerID string) (*UploadResult, error) {
	kind, err := kindFromContentType(contentType)
	if err != nil {
		return nil, err
	}

	now := time.Now()
	key := fmt.Sprintf("media/%d/%02d/%s/%s%s",
		now.Year(), now.Month(), ownerID, uuid.New().String(), extensionFor(contentType))

	putObjectInput := &s3.PutObjectInput{
		Bucket:       aws.String(m.bucket),
		Key:          aws.String(key),
		Body:         bytes.NewReader(data),
		ContentType:  aws.String(contentType),
		CacheControl: aws.String("max-age=3600"),
		Metadata: map[string]string{
			"owner-id":         ownerID,
			"upload-timestamp": now.Format(time.RFC3339),
			"file-type":        string(kind),
		},
	}

	if _, err := m.client.PutObject(ctx, putObjectInput); err != nil {
		return nil, fmt.Errorf("failed to upload to S3: %w", err)
	}

	publicURL := fmt.Sprintf("%s/%s", strings.TrimSuffix(m.baseURL, "/"), key)

	return &UploadResult{
		Key:  key,
		URL:  publicURL,
		Kind: kind,
		Size: int64(len(data)),
	}, nil
}

// Remove deletes a media object by key
func (m *MediaStore) Remove(ctx context.Context, key string) error {
	_, err := m.client.DeleteObject(ctx, &s3.DeleteObjectInput{
		Bucket: aws.String(m.bucket),
		Key:    aws.String(key),
	})
	if err != nil {
		return fmt.Errorf("failed to delete from S3: %w", err)
	}

	return nil
}

// CheckBucketAccess verifies that we can access the S3 bucket
func (m *MediaStore) CheckBucketAccess(ctx context.Context) error {
	_, err := m.client.HeadBucket(ctx, &s3.HeadBucketInput{
		Bucket: aws.String(m.bucket),
	})
	if err != nil {
		return fmt.Errorf("cannot access S3 bucket %s: %w", m.bucket, err)
	}

	return nil
}

// kindFromContentType classifies an upload as image or video
func kindFromContentType(contentType string) (models.MediaKind, error) {
	switch {
	case strings.HasPrefix(contentType, "image/"):
		return models.MediaImage, nil
	case strings.HasPrefix(contentType, "video/"):
		return models.MediaVideo, nil
	default:
		return "", fmt.Errorf("unsupported content type %q", contentType)
	}
}

// extensionFor returns a file extension for common media content types
func extensionFor(contentType string) string {
	switch strings.ToLower(contentType) {
	case "image/jpeg":
		return ".jpg"
	case "image/png":
		return ".png"
	case "image/gif":
		return ".gif"
	case "image/webp":
		return ".webp"
	case "video/mp4":
		return ".mp4"
	case "video/webm":
		return ".webm"
	case "video/quicktime":
		return ".mov"
	default:
		return ""
	}
}
