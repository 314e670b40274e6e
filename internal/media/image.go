package media

import (
	"bytes"
	"fmt"
	"image"
	_ "image/gif"  // register GIF decoding for image.DecodeConfig
	_ "image/png"  // register PNG decoding for image.DecodeConfig
	"io"

	"github.com/disintegration/imaging"
	_ "golang.org/x/image/webp" // register WebP decoding for image.DecodeConfig
)

// ProbeImageDimensions decodes just enough of data to report its pixel dimensions, without materializing the full
// image. Supports gif, jpeg, png, and webp, matching the original's imagesize::blob_size call.
func ProbeImageDimensions(data []byte) (width, height int, ok bool) {
	cfg, _, err := image.DecodeConfig(bytes.NewReader(data))
	if err != nil {
		return 0, 0, false
	}
	return cfg.Width, cfg.Height, true
}

// StripJPEGMetadata decodes and re-encodes a JPEG, discarding any EXIF/XMP metadata embedded by the capturing
// device. Mirrors the original's decode-then-save_with_format(Jpeg) round trip.
func StripJPEGMetadata(r io.Reader) ([]byte, error) {
	img, err := imaging.Decode(r)
	if err != nil {
		return nil, fmt.Errorf("decode jpeg: %w", err)
	}
	var buf bytes.Buffer
	if err := imaging.Encode(&buf, img, imaging.JPEG); err != nil {
		return nil, fmt.Errorf("re-encode jpeg: %w", err)
	}
	return buf.Bytes(), nil
}
