package user

import (
	"errors"
	"testing"
)

func TestValidateUsername(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name     string
		username string
		wantErr  bool
	}{
		{"valid", "yendri", false},
		{"too short", "y", true},
		{"too long", "yendri_jesus_sanchez_gonzalez1988", true},
		{"spaces", "yendri sanchez", true},
		{"unicode", "sánchez", true},
		{"capital letters", "Yendri", true},
		{"digits and dash only, no letters", "123-456", true},
		{"dash and underscore allowed", "ye-ndr_i", false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			err := ValidateUsername(tt.username)
			if (err != nil) != tt.wantErr {
				t.Errorf("ValidateUsername(%q) error = %v, wantErr %v", tt.username, err, tt.wantErr)
			}
		})
	}
}

func TestValidateEmail(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name    string
		email   string
		wantErr bool
	}{
		{"valid", "yendri@llamoyendri.io", false},
		{"missing domain", "no", true},
		{"missing at", "yendri.llamoyendri.io", true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			err := ValidateEmail(tt.email)
			if (err != nil) != tt.wantErr {
				t.Errorf("ValidateEmail(%q) error = %v, wantErr %v", tt.email, err, tt.wantErr)
			}
		})
	}
}

func TestValidatePassword(t *testing.T) {
	t.Parallel()
	if err := ValidatePassword("1234"); err == nil {
		t.Error("ValidatePassword(\"1234\") = nil, want error")
	}
	if err := ValidatePassword("autentícame por favor"); err != nil {
		t.Errorf("ValidatePassword() error = %v, want nil", err)
	}
}

func TestProfileParamsHasAnyField(t *testing.T) {
	t.Parallel()
	if (ProfileParams{}).HasAnyField() {
		t.Error("empty ProfileParams.HasAnyField() = true, want false")
	}
	name := "new name"
	if !(ProfileParams{DisplayName: &name}).HasAnyField() {
		t.Error("ProfileParams.HasAnyField() = false, want true")
	}
}

func TestMaskUser(t *testing.T) {
	t.Parallel()

	text := "hi"
	u := &User{ID: 1, Username: "a", Email: "a@b.com", Verified: true, Status: Status{Type: StatusOnline, Text: &text}}

	t.Run("self sees everything", func(t *testing.T) {
		t.Parallel()
		self := uint64(1)
		got := maskUser(u, &self, false)
		if got.Email == "" || !got.Verified {
			t.Error("self view should keep email/verified")
		}
		if got.Status.Type != StatusOnline {
			t.Error("self view should keep real status")
		}
	})

	t.Run("other offline user is masked", func(t *testing.T) {
		t.Parallel()
		other := uint64(2)
		got := maskUser(u, &other, false)
		if got.Email != "" || got.Verified {
			t.Error("non-self view should clear email/verified")
		}
		if got.Status.Type != StatusOffline || got.Status.Text != nil {
			t.Error("non-self offline view should force status to offline/nil text")
		}
	})

	t.Run("other online user keeps status", func(t *testing.T) {
		t.Parallel()
		other := uint64(2)
		got := maskUser(u, &other, true)
		if got.Status.Type != StatusOnline {
			t.Error("non-self online view should keep real status")
		}
	})

	t.Run("anonymous requester is masked", func(t *testing.T) {
		t.Parallel()
		got := maskUser(u, nil, false)
		if got.Email != "" || got.Verified {
			t.Error("anonymous view should clear email/verified")
		}
	})
}

func TestPublic(t *testing.T) {
	t.Parallel()
	u := &User{ID: 1, Username: "a", Email: "a@b.com", Verified: true}

	if p := u.Public(false); p.Email != nil || p.Verified != nil {
		t.Error("Public(false) should omit email/verified")
	}
	if p := u.Public(true); p.Email == nil || *p.Email != "a@b.com" {
		t.Error("Public(true) should include email")
	}
}

func TestCreatedAtMS(t *testing.T) {
	t.Parallel()
	u := &User{ID: 12345 << 16}
	if u.CreatedAtMS() != 12345 {
		t.Errorf("CreatedAtMS() = %d, want 12345", u.CreatedAtMS())
	}
}

func TestSentinelErrorsDistinct(t *testing.T) {
	t.Parallel()
	if errors.Is(ErrNotFound, ErrTombstoned) {
		t.Error("ErrNotFound and ErrTombstoned should be distinct")
	}
}
