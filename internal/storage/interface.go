package storage

import (
	"context"
)

// Store is the object-storage surface the HTTP layer depends on.
// Keeping it narrow makes handlers testable without a bucket.
type Store interface {
	Upload(ctx context.Context, data []byte, contentType, ownerID string) (*UploadResult, error)
	Remove(ctx context.Context, key string) error
}

var _ Store = (*MediaStore)(nil)
