// Package storage wraps S3-compatible object storage for uploaded corpus files.
package storage

import (
	"context"
	"io"
	"strings"
	"time"
)

// Object describes a stored file.
type Object struct {
	Key          string
	Size         int64
	ContentType  string
	LastModified time.Time
	// Metadata holds user metadata set at upload, keyed case-insensitively.
	Metadata map[string]string
}

// Meta looks up a user metadata value ignoring key case.
func (o Object) Meta(key string) string {
	for k, v := range o.Metadata {
		if strings.EqualFold(k, key) {
			return v
		}
	}
	return ""
}

// StorageService defines the object storage operations the knowledge module uses.
type StorageService interface {
	// EnsureBucketExists creates the bucket if it doesn't exist.
	EnsureBucketExists(ctx context.Context, bucket string) error

	// UploadFile stores reader under folder with a unique, time-ordered key
	// and returns that key. meta is attached as user metadata.
	UploadFile(ctx context.Context, bucket, folder, fileName, contentType string, reader io.Reader, size int64, meta map[string]string) (string, error)

	// DownloadFile opens an object. The caller closes the reader.
	DownloadFile(ctx context.Context, bucket, fileKey string) (io.ReadCloser, error)

	// LatestObject returns the most recently modified object under prefix,
	// including its user metadata.
	LatestObject(ctx context.Context, bucket, prefix string) (Object, bool, error)

	// DeletePrefix removes every object under prefix.
	DeletePrefix(ctx context.Context, bucket, prefix string) error

	// ValidateContentType checks if the content type is allowed.
	ValidateContentType(contentType string) error

	// ValidateFileSize checks if the file size is within limits.
	ValidateFileSize(sizeBytes int64) error
}

// Config defines the configuration interface for storage.
type Config interface {
	GetMinIOEndpoint() string
	GetMinIOAccessKey() string
	GetMinIOSecretKey() string
	GetMinIOUseSSL() bool
	GetMinIOMaxFileSize() int64
	IsMinIOEnabled() bool
}
