package file

import (
	"bytes"
	"context"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"io"
	"strconv"

	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"

	"github.com/eludris-go/eludris/internal/apierr"
	"github.com/eludris-go/eludris/internal/media"
	"github.com/eludris-go/eludris/internal/snowflake"
)

// Service implements the upload/fetch/dedup logic of spec §4.5.
type Service struct {
	repo    *Repository
	ids     *snowflake.Generator
	storage media.StorageProvider
	rdb     *redis.Client
	log     zerolog.Logger
}

// NewService creates a Service.
func NewService(repo *Repository, ids *snowflake.Generator, storage media.StorageProvider, rdb *redis.Client, logger zerolog.Logger) *Service {
	return &Service{repo: repo, ids: ids, storage: storage, rdb: rdb, log: logger}
}

// storageKey is the path a blob is stored under, keyed by bucket and the blob's own FileID (not the row ID, so
// deduplicated rows never need a second Put).
func storageKey(bucket string, fileID uint64) string {
	return bucket + "/" + strconv.FormatUint(fileID, 10)
}

// Upload stores a file, deduplicating against any existing blob in the same bucket sharing the same SHA-256 hash.
// Matches the original's File::create: empty files and oversized names are rejected before any I/O, magic-byte
// sniffing determines the true content type regardless of what the client claims, and non-image/video types are
// rejected outside the attachments bucket.
func (s *Service) Upload(ctx context.Context, bucket, filename string, spoiler bool, data []byte) (PublicData, error) {
	if len(data) == 0 {
		return PublicData{}, apierr.Validation("file", "You cannot upload an empty file")
	}

	name := sanitizeName(filename)
	if verr := validateName(name); verr != nil {
		return PublicData{}, verr
	}

	contentType := media.Sniff(data)
	if verr := media.ValidateBucketContentType(contentType, bucket); verr != nil {
		return PublicData{}, verr
	}

	sum := sha256.Sum256(data)
	hash := hex.EncodeToString(sum[:])

	existing, err := s.repo.FindByHash(ctx, hash, bucket)
	if err != nil {
		return PublicData{}, fmt.Errorf("find by hash: %w", err)
	}

	id := s.ids.Next()
	var f File
	if existing != nil {
		f = File{
			ID: id, FileID: existing.FileID, Name: name, ContentType: existing.ContentType,
			Hash: hash, Bucket: bucket, Spoiler: spoiler, Width: existing.Width, Height: existing.Height,
		}
		if err := s.repo.Insert(ctx, f); err != nil {
			return PublicData{}, fmt.Errorf("insert deduplicated file: %w", err)
		}
		return f.Public(), nil
	}

	if err := s.storage.Put(ctx, storageKey(bucket, id), bytes.NewReader(data)); err != nil {
		return PublicData{}, fmt.Errorf("store file: %w", err)
	}
	f = File{ID: id, FileID: id, Name: name, ContentType: contentType, Hash: hash, Bucket: bucket, Spoiler: spoiler}
	if err := s.repo.Insert(ctx, f); err != nil {
		return PublicData{}, fmt.Errorf("insert file: %w", err)
	}

	if media.IsImageContentType(contentType) || media.IsVideoContentType(contentType) {
		job := media.ProbeJob{FileID: id, StorageKey: storageKey(bucket, id), ContentType: contentType}
		if err := media.EnqueueProbe(ctx, s.rdb, job); err != nil {
			s.log.Warn().Err(err).Uint64("file_id", id).Msg("Failed to enqueue dimension probe job")
		}
	}

	return f.Public(), nil
}

// Fetch resolves a file within bucket and opens its stored blob for reading. The caller must close the returned
// ReadCloser.
func (s *Service) Fetch(ctx context.Context, id uint64, bucket string) (io.ReadCloser, *File, error) {
	f, err := s.repo.GetByID(ctx, id, bucket)
	if err != nil {
		return nil, nil, err
	}
	rc, err := s.storage.Get(ctx, storageKey(bucket, f.FileID))
	if err != nil {
		return nil, nil, fmt.Errorf("open stored file: %w", err)
	}
	return rc, f, nil
}
