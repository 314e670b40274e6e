package apierr

import "testing"

func TestStatus(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name string
		err  *Error
		want int
	}{
		{"unauthorized", Unauthorized("bad creds"), 401},
		{"forbidden", Forbidden("nope"), 403},
		{"not found", NotFound("missing"), 404},
		{"conflict", Conflict("email"), 409},
		{"misdirected", Misdirected("no mailer"), 421},
		{"validation", Validation("username", "too short"), 422},
		{"rate limited", RateLimited(500), 429},
		{"server", Server("db down"), 500},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			if got := tt.err.Status(); got != tt.want {
				t.Errorf("Status() = %d, want %d", got, tt.want)
			}
		})
	}
}

func TestConflict_Item(t *testing.T) {
	t.Parallel()
	err := Conflict("username")
	if err.Item != "username" {
		t.Errorf("Item = %q, want %q", err.Item, "username")
	}
}

func TestAs(t *testing.T) {
	t.Parallel()

	var err error = NotFound("x")
	e, ok := As(err)
	if !ok || e.Kind != KindNotFound {
		t.Fatalf("As() = %v, %v, want KindNotFound", e, ok)
	}

	_, ok = As(nil)
	if ok {
		t.Error("As(nil) should not match")
	}
}
