package storage

import (
	"context"
	"fmt"
	"io"
	"path"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/minio/minio-go/v7"
	"github.com/minio/minio-go/v7/pkg/credentials"
)

// MinIOService implements StorageService using MinIO.
type MinIOService struct {
	client      *minio.Client
	maxFileSize int64
}

// NewMinIOService creates a new MinIO storage service.
func NewMinIOService(cfg Config) (*MinIOService, error) {
	if !cfg.IsMinIOEnabled() {
		return nil, fmt.Errorf("MinIO is not configured")
	}

	client, err := minio.New(cfg.GetMinIOEndpoint(), &minio.Options{
		Creds:  credentials.NewStaticV4(cfg.GetMinIOAccessKey(), cfg.GetMinIOSecretKey(), ""),
		Secure: cfg.GetMinIOUseSSL(),
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create MinIO client: %w", err)
	}

	return &MinIOService{
		client:      client,
		maxFileSize: cfg.GetMinIOMaxFileSize(),
	}, nil
}

// EnsureBucketExists creates the bucket if it doesn't exist.
func (s *MinIOService) EnsureBucketExists(ctx context.Context, bucket string) error {
	exists, err := s.client.BucketExists(ctx, bucket)
	if err != nil {
		return fmt.Errorf("failed to check bucket existence: %w", err)
	}

	if !exists {
		err = s.client.MakeBucket(ctx, bucket, minio.MakeBucketOptions{})
		if err != nil {
			return fmt.Errorf("failed to create bucket %s: %w", bucket, err)
		}
	}

	return nil
}

// ObjectKey builds "<folder>/<unix-nanos>_<shortid>_<name>" so keys sort by
// upload time.
func ObjectKey(folder, fileName string, at time.Time) string {
	base := path.Base(strings.ReplaceAll(fileName, "\\", "/"))
	if base == "." || base == "/" || base == "" {
		base = "upload"
	}
	name := fmt.Sprintf("%020d_%s_%s", at.UTC().UnixNano(), uuid.New().String()[:8], base)
	return path.Join(strings.Trim(folder, "/"), name)
}

// UploadFile uploads a file directly to storage from an io.Reader and returns the file key.
func (s *MinIOService) UploadFile(ctx context.Context, bucket, folder, fileName, contentType string, reader io.Reader, size int64, meta map[string]string) (string, error) {
	if err := s.ValidateFileSize(size); err != nil {
		return "", err
	}
	fileKey := ObjectKey(folder, fileName, time.Now())

	userMeta := map[string]string{"original-name": path.Base(fileName)}
	for k, v := range meta {
		userMeta[k] = v
	}

	_, err := s.client.PutObject(ctx, bucket, fileKey, reader, size, minio.PutObjectOptions{
		ContentType:  contentType,
		UserMetadata: userMeta,
	})
	if err != nil {
		return "", fmt.Errorf("failed to upload file %s: %w", fileKey, err)
	}
	return fileKey, nil
}

// DownloadFile downloads a file directly from storage.
// The caller is responsible for closing the returned io.ReadCloser.
func (s *MinIOService) DownloadFile(ctx context.Context, bucket, fileKey string) (io.ReadCloser, error) {
	obj, err := s.client.GetObject(ctx, bucket, fileKey, minio.GetObjectOptions{})
	if err != nil {
		return nil, fmt.Errorf("failed to get object %s: %w", fileKey, err)
	}
	return obj, nil
}

// LatestObject lists prefix and returns the newest object.
func (s *MinIOService) LatestObject(ctx context.Context, bucket, prefix string) (Object, bool, error) {
	var (
		latest Object
		found  bool
	)
	for info := range s.client.ListObjects(ctx, bucket, minio.ListObjectsOptions{Prefix: prefix, Recursive: true}) {
		if info.Err != nil {
			return Object{}, false, fmt.Errorf("failed to list %s: %w", prefix, info.Err)
		}
		if !found || info.LastModified.After(latest.LastModified) ||
			(info.LastModified.Equal(latest.LastModified) && info.Key > latest.Key) {
			latest = Object{
				Key:          info.Key,
				Size:         info.Size,
				ContentType:  info.ContentType,
				LastModified: info.LastModified,
			}
			found = true
		}
	}
	if !found {
		return Object{}, false, nil
	}

	stat, err := s.client.StatObject(ctx, bucket, latest.Key, minio.StatObjectOptions{})
	if err != nil {
		return Object{}, false, fmt.Errorf("failed to stat %s: %w", latest.Key, err)
	}
	latest.ContentType = stat.ContentType
	latest.Metadata = map[string]string(stat.UserMetadata)
	return latest, true, nil
}

// DeletePrefix removes every object under prefix.
func (s *MinIOService) DeletePrefix(ctx context.Context, bucket, prefix string) error {
	objects := s.client.ListObjects(ctx, bucket, minio.ListObjectsOptions{Prefix: prefix, Recursive: true})
	for result := range s.client.RemoveObjects(ctx, bucket, objects, minio.RemoveObjectsOptions{}) {
		if result.Err != nil {
			return fmt.Errorf("failed to delete object %s: %w", result.ObjectName, result.Err)
		}
	}
	return nil
}
