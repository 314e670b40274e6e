package auth

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gofiber/fiber/v3"

	"github.com/eludris-go/eludris/internal/httputil"
)

type fakeValidator struct {
	userID, sessionID uint64
	err               error
}

func (f fakeValidator) ValidateToken(ctx context.Context, token string) (uint64, uint64, error) {
	if f.err != nil {
		return 0, 0, f.err
	}
	return f.userID, f.sessionID, nil
}

func newTestApp(v Validator) *fiber.App {
	app := fiber.New(fiber.Config{ErrorHandler: httputil.ErrorHandler})
	app.Get("/protected", RequireAuth(v), func(c fiber.Ctx) error {
		return c.JSON(fiber.Map{
			"userID":    c.Locals("userID"),
			"sessionID": c.Locals("sessionID"),
		})
	})
	return app
}

func TestRequireAuth_MissingHeader(t *testing.T) {
	t.Parallel()
	app := newTestApp(fakeValidator{userID: 1, sessionID: 2})

	req := httptest.NewRequest(http.MethodGet, "/protected", nil)
	resp, err := app.Test(req)
	if err != nil {
		t.Fatalf("Test() error = %v", err)
	}
	if resp.StatusCode != http.StatusUnauthorized {
		t.Fatalf("status = %d, want 401", resp.StatusCode)
	}
}

func TestRequireAuth_InvalidToken(t *testing.T) {
	t.Parallel()
	app := newTestApp(fakeValidator{err: ErrInvalidToken})

	req := httptest.NewRequest(http.MethodGet, "/protected", nil)
	req.Header.Set("Authorization", "garbage")
	resp, err := app.Test(req)
	if err != nil {
		t.Fatalf("Test() error = %v", err)
	}
	if resp.StatusCode != http.StatusUnauthorized {
		t.Fatalf("status = %d, want 401", resp.StatusCode)
	}
}

func TestRequireAuth_ValidToken(t *testing.T) {
	t.Parallel()
	app := newTestApp(fakeValidator{userID: 42, sessionID: 7})

	req := httptest.NewRequest(http.MethodGet, "/protected", nil)
	req.Header.Set("Authorization", "validtoken")
	resp, err := app.Test(req)
	if err != nil {
		t.Fatalf("Test() error = %v", err)
	}
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("status = %d, want 200", resp.StatusCode)
	}
}

func newOptionalAuthApp(v Validator) *fiber.App {
	app := fiber.New(fiber.Config{ErrorHandler: httputil.ErrorHandler})
	app.Get("/optional", OptionalAuth(v), func(c fiber.Ctx) error {
		id, ok := UserID(c)
		return c.JSON(fiber.Map{"authenticated": ok, "userID": id})
	})
	return app
}

func TestOptionalAuth_MissingHeaderPassesThrough(t *testing.T) {
	t.Parallel()
	app := newOptionalAuthApp(fakeValidator{userID: 1, sessionID: 2})

	req := httptest.NewRequest(http.MethodGet, "/optional", nil)
	resp, err := app.Test(req)
	if err != nil {
		t.Fatalf("Test() error = %v", err)
	}
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("status = %d, want 200", resp.StatusCode)
	}
}

func TestOptionalAuth_InvalidTokenPassesThrough(t *testing.T) {
	t.Parallel()
	app := newOptionalAuthApp(fakeValidator{err: ErrInvalidToken})

	req := httptest.NewRequest(http.MethodGet, "/optional", nil)
	req.Header.Set("Authorization", "garbage")
	resp, err := app.Test(req)
	if err != nil {
		t.Fatalf("Test() error = %v", err)
	}
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("status = %d, want 200", resp.StatusCode)
	}
}

func TestOptionalAuth_ValidTokenSetsLocals(t *testing.T) {
	t.Parallel()
	app := newOptionalAuthApp(fakeValidator{userID: 42, sessionID: 7})

	req := httptest.NewRequest(http.MethodGet, "/optional", nil)
	req.Header.Set("Authorization", "validtoken")
	resp, err := app.Test(req)
	if err != nil {
		t.Fatalf("Test() error = %v", err)
	}
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("status = %d, want 200", resp.StatusCode)
	}

	var body struct {
		Authenticated bool   `json:"authenticated"`
		UserID        uint64 `json:"userID"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if !body.Authenticated || body.UserID != 42 {
		t.Errorf("body = %+v, want authenticated=true userID=42", body)
	}
}
