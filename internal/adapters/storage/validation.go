package storage

import (
	"fmt"
	"mime"
	"strings"
)

// AllowedContentTypes lists the MIME types accepted for corpus uploads.
var AllowedContentTypes = map[string]bool{
	"text/csv":                 true,
	"application/csv":          true,
	"application/vnd.ms-excel": true, // browsers send this for .csv on Windows
	"application/pdf":          true,
	"text/plain":               true,
	"text/markdown":            true,
	"application/octet-stream": true,
}

// ValidateContentType checks the media type, ignoring parameters such as charset.
func (s *MinIOService) ValidateContentType(contentType string) error {
	return ValidateContentType(contentType)
}

// ValidateFileSize checks if the file size is within limits.
func (s *MinIOService) ValidateFileSize(sizeBytes int64) error {
	return ValidateFileSize(sizeBytes, s.maxFileSize)
}

// ValidateContentType is the storage-independent content type check.
func ValidateContentType(contentType string) error {
	mediaType, _, err := mime.ParseMediaType(contentType)
	if err != nil {
		mediaType = strings.ToLower(strings.TrimSpace(contentType))
	}
	if !AllowedContentTypes[mediaType] {
		return fmt.Errorf("content type %q is not allowed", contentType)
	}
	return nil
}

// ValidateFileSize rejects empty files and files above maxSize (when positive).
func ValidateFileSize(sizeBytes, maxSize int64) error {
	if sizeBytes <= 0 {
		return fmt.Errorf("file is empty")
	}
	if maxSize > 0 && sizeBytes > maxSize {
		return fmt.Errorf("file size %d exceeds maximum allowed size of %d bytes", sizeBytes, maxSize)
	}
	return nil
}

var _ StorageService = (*MinIOService)(nil)
