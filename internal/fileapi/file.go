// Package fileapi serves the effis file API: upload, fetch, download, and metadata routes over internal/file's
// content-addressed storage.
package fileapi

import (
	"fmt"
	"io"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/gofiber/fiber/v3"

	"github.com/eludris-go/eludris/internal/apierr"
	"github.com/eludris-go/eludris/internal/file"
	"github.com/eludris-go/eludris/internal/media"
	"github.com/eludris-go/eludris/internal/ratelimit"
)

// Buckets is the closed set of upload destinations, matching the original's BUCKETS constant.
var Buckets = map[string]bool{
	"assets":      true,
	"avatars":     true,
	"banners":     true,
	"attachments": true,
}

// rateLimitBucket maps an upload bucket to the rate-limit bucket that governs its admission and file-size cap:
// attachments has its own policy, every other bucket shares the "assets" policy, matching the two upload entries
// (Assets, Attachments) of config's EffisRateLimits table.
func rateLimitBucket(uploadBucket string) string {
	if uploadBucket == media.AttachmentsBucket {
		return ratelimit.BucketAttachments
	}
	return ratelimit.BucketAssets
}

// FileHandler serves the bucket-scoped upload/fetch routes.
type FileHandler struct {
	Files     *file.Service
	Limiter   *ratelimit.Limiter
	StaticDir string
}

func checkBucket(bucket string) error {
	if !Buckets[bucket] {
		return apierr.Validation("bucket", "Unknown bucket")
	}
	return nil
}

// Upload handles POST /<bucket> (multipart/form-data: file, spoiler).
func (h *FileHandler) Upload(c fiber.Ctx) error {
	bucket := c.Params("bucket")
	if err := checkBucket(bucket); err != nil {
		return err
	}
	return h.upload(c, bucket)
}

// UploadAttachment handles POST / (the attachments-bucket shortcut).
func (h *FileHandler) UploadAttachment(c fiber.Ctx) error {
	return h.upload(c, media.AttachmentsBucket)
}

func (h *FileHandler) upload(c fiber.Ctx, bucket string) error {
	fh, err := c.FormFile("file")
	if err != nil {
		return apierr.Validation("file", "Missing file field in multipart form")
	}

	if policy, ok := h.Limiter.Bucket(rateLimitBucket(bucket)); ok && policy.FileSizeLimit > 0 && fh.Size > policy.FileSizeLimit {
		return apierr.Validation("file", "File exceeds the maximum upload size for this bucket")
	}

	f, err := fh.Open()
	if err != nil {
		return apierr.Server("failed to open uploaded file")
	}
	defer func() { _ = f.Close() }()

	data, err := io.ReadAll(f)
	if err != nil {
		return apierr.Server("failed to read uploaded file")
	}

	spoiler := c.FormValue("spoiler") == "true"

	result, err := h.Files.Upload(c.Context(), bucket, fh.Filename, spoiler, data)
	if err != nil {
		return err
	}
	return c.Status(fiber.StatusCreated).JSON(result)
}

// Get handles GET /<bucket>/<id>, replying with Content-Disposition: inline.
func (h *FileHandler) Get(c fiber.Ctx) error {
	bucket := c.Params("bucket")
	if err := checkBucket(bucket); err != nil {
		return err
	}
	return h.serve(c, bucket, "inline")
}

// GetAttachment handles GET /<id> (the attachments-bucket shortcut).
func (h *FileHandler) GetAttachment(c fiber.Ctx) error {
	return h.serve(c, media.AttachmentsBucket, "inline")
}

// Download handles GET /<bucket>/<id>/download, replying with Content-Disposition: attachment.
func (h *FileHandler) Download(c fiber.Ctx) error {
	bucket := c.Params("bucket")
	if err := checkBucket(bucket); err != nil {
		return err
	}
	return h.serve(c, bucket, "attachment")
}

// DownloadAttachment handles GET /<id>/download (the attachments-bucket shortcut).
func (h *FileHandler) DownloadAttachment(c fiber.Ctx) error {
	return h.serve(c, media.AttachmentsBucket, "attachment")
}

func (h *FileHandler) serve(c fiber.Ctx, bucket, disposition string) error {
	id, err := strconv.ParseUint(c.Params("id"), 10, 64)
	if err != nil {
		return apierr.Validation("id", "id must be a number")
	}

	rc, f, err := h.Files.Fetch(c.Context(), id, bucket)
	if err != nil {
		if err == file.ErrNotFound {
			return apierr.NotFound("file")
		}
		return apierr.Server(err.Error())
	}
	defer func() { _ = rc.Close() }()

	c.Set(fiber.HeaderContentType, f.ContentType)
	c.Set(fiber.HeaderContentDisposition, fmt.Sprintf(`%s; filename=%q`, disposition, f.Name))
	return c.SendStream(rc)
}

// Data handles GET /<bucket>/<id>/data, returning file metadata without the blob body.
func (h *FileHandler) Data(c fiber.Ctx) error {
	bucket := c.Params("bucket")
	if err := checkBucket(bucket); err != nil {
		return err
	}
	return h.data(c, bucket)
}

// DataAttachment handles GET /<id>/data (the attachments-bucket shortcut).
func (h *FileHandler) DataAttachment(c fiber.Ctx) error {
	return h.data(c, media.AttachmentsBucket)
}

func (h *FileHandler) data(c fiber.Ctx, bucket string) error {
	id, err := strconv.ParseUint(c.Params("id"), 10, 64)
	if err != nil {
		return apierr.Validation("id", "id must be a number")
	}

	rc, f, err := h.Files.Fetch(c.Context(), id, bucket)
	if err != nil {
		if err == file.ErrNotFound {
			return apierr.NotFound("file")
		}
		return apierr.Server(err.Error())
	}
	_ = rc.Close()
	return c.JSON(f.Public())
}

// staticName validates a static file name the way the original's get_file does: a bare file name with no path
// components, rejecting anything that would traverse outside the static directory.
func staticName(raw string) (string, error) {
	if raw == "" || strings.ContainsAny(raw, `/\`) {
		return "", apierr.Validation("name", "Invalid file name")
	}
	name := filepath.Base(raw)
	if name == "" || name == "." || name == ".." {
		return "", apierr.Validation("name", "Invalid file name")
	}
	return name, nil
}

// GetStatic handles GET /static/<name>, replying with Content-Disposition: inline. Static files are instance-owner
// provided and live outside the content-addressed file table.
func (h *FileHandler) GetStatic(c fiber.Ctx) error {
	return h.serveStatic(c, "inline")
}

// DownloadStatic handles GET /static/<name>/download.
func (h *FileHandler) DownloadStatic(c fiber.Ctx) error {
	return h.serveStatic(c, "attachment")
}

func (h *FileHandler) serveStatic(c fiber.Ctx, disposition string) error {
	name, err := staticName(c.Params("name"))
	if err != nil {
		return err
	}

	path := filepath.Join(h.StaticDir, name)
	c.Set(fiber.HeaderContentDisposition, fmt.Sprintf(`%s; filename=%q`, disposition, name))
	if err := c.SendFile(path); err != nil {
		return apierr.NotFound("file")
	}
	return nil
}
