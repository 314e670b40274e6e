package media

import "testing"

func TestIsImageContentType(t *testing.T) {
	t.Parallel()

	tests := []struct {
		contentType string
		want        bool
	}{
		{"image/jpeg", true},
		{"image/png", true},
		{"image/gif", true},
		{"image/webp", true},

		// With charset parameter
		{"image/png; charset=binary", true},

		// Not probed
		{"image/svg+xml", false},
		{"image/bmp", false},
		{"video/mp4", false},
		{"", false},
	}
	for _, tt := range tests {
		if got := IsImageContentType(tt.contentType); got != tt.want {
			t.Errorf("IsImageContentType(%q) = %v, want %v", tt.contentType, got, tt.want)
		}
	}
}

func TestIsVideoContentType(t *testing.T) {
	t.Parallel()

	tests := []struct {
		contentType string
		want        bool
	}{
		{"video/mp4", true},
		{"video/webm", true},
		{"video/quicktime", true},
		{"video/ogg", false},
		{"image/jpeg", false},
		{"", false},
	}
	for _, tt := range tests {
		if got := IsVideoContentType(tt.contentType); got != tt.want {
			t.Errorf("IsVideoContentType(%q) = %v, want %v", tt.contentType, got, tt.want)
		}
	}
}

func TestValidateBucketContentType(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name        string
		contentType string
		bucket      string
		wantErr     bool
	}{
		{"image in assets bucket", "image/png", "assets", false},
		{"video in attachments bucket", "video/mp4", "attachments", false},
		{"video in assets bucket accepted", "video/mp4", "assets", false},
		{"arbitrary type in attachments bucket", "application/zip", "attachments", false},
		{"arbitrary type in assets bucket rejected", "application/zip", "assets", true},
		{"arbitrary type in avatars bucket rejected", "text/plain", "avatars", true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			err := ValidateBucketContentType(tt.contentType, tt.bucket)
			if (err != nil) != tt.wantErr {
				t.Errorf("ValidateBucketContentType(%q, %q) error = %v, wantErr %v", tt.contentType, tt.bucket, err, tt.wantErr)
			}
		})
	}
}

func TestNormaliseContentType(t *testing.T) {
	t.Parallel()

	tests := []struct {
		input string
		want  string
	}{
		{"image/jpeg", "image/jpeg"},
		{"IMAGE/JPEG", "image/jpeg"},
		{"text/plain; charset=utf-8", "text/plain"},
		{"  Application/JSON ; charset=utf-8 ", "application/json"},
		{"", ""},
	}
	for _, tt := range tests {
		if got := normaliseContentType(tt.input); got != tt.want {
			t.Errorf("normaliseContentType(%q) = %q, want %q", tt.input, got, tt.want)
		}
	}
}
