// Package file implements the content-addressed upload/fetch/dedup logic shared by every storage bucket (assets,
// avatars, banners, attachments), grounded on original_source/todel/src/models/logic/files.rs.
package file

import (
	"errors"
	"regexp"
	"strings"

	"github.com/eludris-go/eludris/internal/apierr"
	"github.com/eludris-go/eludris/internal/media"
)

// ErrNotFound is returned when a file id does not exist within the requested bucket.
var ErrNotFound = errors.New("file not found")

// Metadata tags what kind of dimension data (if any) a file carries, mirroring the original's FileMetadata enum.
type Metadata string

const (
	MetadataImage Metadata = "image"
	MetadataVideo Metadata = "video"
	MetadataText  Metadata = "text"
	MetadataOther Metadata = "other"
)

// File is a row of the files table. FileID differs from ID only when this row was deduplicated onto an
// already-stored blob: ID is this row's own identity, FileID names the blob on disk.
type File struct {
	ID          uint64
	FileID      uint64
	Name        string
	ContentType string
	Hash        string
	Bucket      string
	Spoiler     bool
	Width       *int
	Height      *int
}

// metadataFor classifies a file the way the original's get_file_data does: image/video kinds only report their
// metadata variant when both dimensions were successfully probed.
func (f *File) metadataFor() Metadata {
	switch {
	case media.IsImageContentType(f.ContentType):
		if f.Width != nil && f.Height != nil {
			return MetadataImage
		}
		return MetadataOther
	case media.IsVideoContentType(f.ContentType):
		if f.Width != nil && f.Height != nil {
			return MetadataVideo
		}
		return MetadataOther
	case strings.HasPrefix(f.ContentType, "text"):
		return MetadataText
	default:
		return MetadataOther
	}
}

// PublicData is the client-facing shape of a file, omitting the internal FileID/Hash dedup bookkeeping.
type PublicData struct {
	ID       uint64   `json:"id,string"`
	Name     string   `json:"name"`
	Bucket   string   `json:"bucket"`
	Metadata Metadata `json:"metadata"`
	Width    *int     `json:"width,omitempty"`
	Height   *int     `json:"height,omitempty"`
	Spoiler  bool     `json:"spoiler"`
}

// Public converts f to its wire representation.
func (f *File) Public() PublicData {
	meta := f.metadataFor()
	data := PublicData{ID: f.ID, Name: f.Name, Bucket: f.Bucket, Metadata: meta, Spoiler: f.Spoiler}
	if meta == MetadataImage || meta == MetadataVideo {
		data.Width, data.Height = f.Width, f.Height
	}
	return data
}

const maxNameLength = 256

// fallbackName is substituted when the uploaded filename is missing or unsafe, matching the original's "attachment".
const fallbackName = "attachment"

var unsafeNameChars = regexp.MustCompile(`[/\\]`)

// sanitizeName removes every path separator from a client-supplied filename and falls back to a generic name when the
// result is empty. The other characters of every path component are kept, so "a/b/c.png" becomes "abc.png" rather
// than just the last component.
func sanitizeName(raw string) string {
	name := unsafeNameChars.ReplaceAllString(strings.TrimSpace(raw), "")
	if name == "" {
		return fallbackName
	}
	return name
}

// validateName enforces the original's 1-256 character bound on the stored file name.
func validateName(name string) *apierr.Error {
	if name == "" || len(name) > maxNameLength {
		return apierr.Validation("name", "Invalid file name. File name must be between 1 and 256 characters long")
	}
	return nil
}
