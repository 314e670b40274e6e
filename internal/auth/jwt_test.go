package auth

import "testing"

func testSecret() [128]byte {
	var s [128]byte
	for i := range s {
		s[i] = byte(i)
	}
	return s
}

func TestNewAndParseToken_RoundTrip(t *testing.T) {
	t.Parallel()
	secret := testSecret()

	token, err := NewToken(42, 7, secret)
	if err != nil {
		t.Fatalf("NewToken() error = %v", err)
	}

	userID, sessionID, err := ParseToken(token, secret)
	if err != nil {
		t.Fatalf("ParseToken() error = %v", err)
	}
	if userID != 42 || sessionID != 7 {
		t.Errorf("ParseToken() = %d, %d, want 42, 7", userID, sessionID)
	}
}

func TestParseToken_WrongSecretRejected(t *testing.T) {
	t.Parallel()
	secret := testSecret()
	token, err := NewToken(1, 1, secret)
	if err != nil {
		t.Fatalf("NewToken() error = %v", err)
	}

	var wrong [128]byte
	wrong[0] = 0xFF
	if _, _, err := ParseToken(token, wrong); err != ErrInvalidToken {
		t.Errorf("ParseToken() with wrong secret error = %v, want ErrInvalidToken", err)
	}
}

func TestParseToken_GarbageRejected(t *testing.T) {
	t.Parallel()
	if _, _, err := ParseToken("not-a-token", testSecret()); err != ErrInvalidToken {
		t.Errorf("ParseToken() garbage error = %v, want ErrInvalidToken", err)
	}
}
