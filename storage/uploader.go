package storage

import (
	"context"
	"io"
)

// UploadResult describes a stored archive object.
type UploadResult struct {
	Key      string
	Location string
	ETag     string
}

// FileUploader is the object-storage surface the archiver needs: write a
// snapshot, remove it, and resolve its public URL.
type FileUploader interface {
	Upload(ctx context.Context, key string, contentType string, reader io.Reader) (*UploadResult, error)

	Delete(ctx context.Context, key string) error

	GetPublicURL(key string) string
}
