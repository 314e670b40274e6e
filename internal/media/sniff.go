package media

import "net/http"

// Sniff detects a file's content type from its leading bytes, ignoring whatever Content-Type header the client
// claimed. Mirrors the original's use of tree_magic_mini::from_u8 as the source of truth for file.content_type.
func Sniff(data []byte) string {
	return normaliseContentType(http.DetectContentType(data))
}
