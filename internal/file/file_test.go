package file

import "testing"

func TestSanitizeName(t *testing.T) {
	t.Parallel()

	tests := []struct {
		raw  string
		want string
	}{
		{"trolley.mp4", "trolley.mp4"},
		{"../../etc/passwd", "....etcpasswd"},
		{"a/b/c.png", "abc.png"},
		{"", fallbackName},
		{"   ", fallbackName},
	}
	for _, tt := range tests {
		if got := sanitizeName(tt.raw); got != tt.want {
			t.Errorf("sanitizeName(%q) = %q, want %q", tt.raw, got, tt.want)
		}
	}
}

func TestValidateName(t *testing.T) {
	t.Parallel()

	if err := validateName(""); err == nil {
		t.Error("validateName(\"\") = nil, want error")
	}

	long := make([]byte, 257)
	for i := range long {
		long[i] = 'a'
	}
	if err := validateName(string(long)); err == nil {
		t.Error("validateName(257 chars) = nil, want error")
	}

	if err := validateName("trolley.mp4"); err != nil {
		t.Errorf("validateName(valid) = %v, want nil", err)
	}
}

func TestFile_Public_ImageWithDimensions(t *testing.T) {
	t.Parallel()

	w, h := 800, 600
	f := &File{ID: 1, Name: "a.png", ContentType: "image/png", Bucket: "assets", Width: &w, Height: &h}
	p := f.Public()
	if p.Metadata != MetadataImage {
		t.Errorf("Metadata = %q, want %q", p.Metadata, MetadataImage)
	}
	if p.Width == nil || *p.Width != 800 {
		t.Error("Public() should carry probed width")
	}
}

func TestFile_Public_ImageWithoutDimensions(t *testing.T) {
	t.Parallel()

	f := &File{ID: 1, Name: "a.png", ContentType: "image/png", Bucket: "assets"}
	p := f.Public()
	if p.Metadata != MetadataOther {
		t.Errorf("Metadata = %q, want %q (dimensions not yet probed)", p.Metadata, MetadataOther)
	}
}

func TestFile_Public_Text(t *testing.T) {
	t.Parallel()

	f := &File{ID: 1, Name: "a.txt", ContentType: "text/plain", Bucket: "attachments"}
	if p := f.Public(); p.Metadata != MetadataText {
		t.Errorf("Metadata = %q, want %q", p.Metadata, MetadataText)
	}
}
