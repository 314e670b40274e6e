package media

import (
	"context"
	"errors"
	"io"
	"strings"

	"github.com/eludris-go/eludris/internal/apierr"
)

// Sentinel errors for storage operations.
var (
	ErrFileTooLarge       = errors.New("file exceeds the maximum upload size")
	ErrStorageKeyNotFound = errors.New("storage key not found")
)

// StorageProvider abstracts file storage so the server can swap between local disk, S3, or other backends without
// changing business logic.
type StorageProvider interface {
	// Put writes the contents of r to the given key, creating parent directories as needed. The caller is responsible
	// for closing r.
	Put(ctx context.Context, key string, r io.Reader) error

	// Get opens the file at key for reading. The caller must close the returned ReadCloser. Returns
	// ErrStorageKeyNotFound when the key does not exist.
	Get(ctx context.Context, key string) (io.ReadCloser, error)

	// Delete removes the file at key. Missing keys are not treated as errors.
	Delete(ctx context.Context, key string) error

	// URL returns the public URL for the given storage key.
	URL(key string) string
}

// AttachmentsBucket is the one bucket permitted to hold arbitrary content types. Every other bucket (assets,
// avatars, banners, ...) accepts only the probed image and video types, matching the original's
// `bucket != "attachments"` check.
const AttachmentsBucket = "attachments"

// imageContentTypes are the types eligible for dimension probing and JPEG metadata stripping.
var imageContentTypes = map[string]bool{
	"image/gif":  true,
	"image/jpeg": true,
	"image/png":  true,
	"image/webp": true,
}

// videoContentTypes are the types eligible for ffprobe-based dimension probing. Like the image types, they are
// accepted in every bucket.
var videoContentTypes = map[string]bool{
	"video/mp4":       true,
	"video/webm":      true,
	"video/quicktime": true,
}

// IsImageContentType reports whether contentType is one of the four probed image formats.
func IsImageContentType(contentType string) bool {
	return imageContentTypes[normaliseContentType(contentType)]
}

// IsVideoContentType reports whether contentType is one of the three probed video formats.
func IsVideoContentType(contentType string) bool {
	return videoContentTypes[normaliseContentType(contentType)]
}

// ValidateBucketContentType rejects non-image, non-video content types outside the attachments bucket, matching the
// original's per-bucket content type restriction.
func ValidateBucketContentType(contentType, bucket string) *apierr.Error {
	ct := normaliseContentType(contentType)
	if IsImageContentType(ct) || IsVideoContentType(ct) || bucket == AttachmentsBucket {
		return nil
	}
	return apierr.Validation("content_type", "Non attachment buckets can only have images and gifs")
}

// normaliseContentType strips any parameters (e.g. charset) from a MIME type and lowercases it.
func normaliseContentType(ct string) string {
	if i := strings.IndexByte(ct, ';'); i != -1 {
		ct = ct[:i]
	}
	return strings.TrimSpace(strings.ToLower(ct))
}
