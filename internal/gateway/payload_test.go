package gateway

import (
	"encoding/json"
	"testing"

	"github.com/eludris-go/eludris/internal/events"
	"github.com/eludris-go/eludris/internal/ratelimit"
	"github.com/eludris-go/eludris/internal/user"
)

func TestHelloFrame(t *testing.T) {
	t.Parallel()

	raw, err := helloFrame(45000, json.RawMessage(`{"instance_name":"test"}`), ratelimit.Bucket{ResetAfter: 10_000_000_000, Limit: 5})
	if err != nil {
		t.Fatalf("helloFrame() error = %v", err)
	}

	var f Frame
	if err := json.Unmarshal(raw, &f); err != nil {
		t.Fatalf("unmarshal frame: %v", err)
	}
	if f.Op != OpHello {
		t.Errorf("Op = %q, want %q", f.Op, OpHello)
	}

	var data helloData
	if err := json.Unmarshal(f.Data, &data); err != nil {
		t.Fatalf("unmarshal hello data: %v", err)
	}
	if data.HeartbeatIntervalMS != 45000 {
		t.Errorf("HeartbeatIntervalMS = %d, want 45000", data.HeartbeatIntervalMS)
	}
	if data.RateLimit.Limit != 5 || data.RateLimit.ResetAfter != 10 {
		t.Errorf("RateLimit = %+v, want {ResetAfter:10 Limit:5}", data.RateLimit)
	}
}

func TestDecodeFrame_Authenticate(t *testing.T) {
	t.Parallel()

	raw := []byte(`{"op":"AUTHENTICATE","d":{"token":"abc123"}}`)
	f, err := decodeFrame(raw)
	if err != nil {
		t.Fatalf("decodeFrame() error = %v", err)
	}
	if f.Op != OpAuthenticate {
		t.Errorf("Op = %q, want %q", f.Op, OpAuthenticate)
	}

	var payload authenticatePayload
	if err := json.Unmarshal(f.Data, &payload); err != nil {
		t.Fatalf("unmarshal authenticate payload: %v", err)
	}
	if payload.Token != "abc123" {
		t.Errorf("Token = %q, want %q", payload.Token, "abc123")
	}
}

func TestDecodeFrame_Ping(t *testing.T) {
	t.Parallel()

	f, err := decodeFrame([]byte(`{"op":"PING"}`))
	if err != nil {
		t.Fatalf("decodeFrame() error = %v", err)
	}
	if f.Op != OpPing {
		t.Errorf("Op = %q, want %q", f.Op, OpPing)
	}
}

func TestDecodeFrame_Invalid(t *testing.T) {
	t.Parallel()

	if _, err := decodeFrame([]byte(`not json`)); err == nil {
		t.Error("decodeFrame(invalid) = nil error, want error")
	}
}

func TestAuthenticatedFrame(t *testing.T) {
	t.Parallel()

	self := user.PublicUser{ID: 1, Username: "alice"}
	others := []user.PublicUser{{ID: 2, Username: "bob"}}
	raw, err := authenticatedFrame(self, others)
	if err != nil {
		t.Fatalf("authenticatedFrame() error = %v", err)
	}

	var f Frame
	if err := json.Unmarshal(raw, &f); err != nil {
		t.Fatalf("unmarshal frame: %v", err)
	}
	if f.Op != OpAuthenticated {
		t.Errorf("Op = %q, want %q", f.Op, OpAuthenticated)
	}

	var data authenticatedData
	if err := json.Unmarshal(f.Data, &data); err != nil {
		t.Fatalf("unmarshal authenticated data: %v", err)
	}
	if data.User.ID != 1 || len(data.Users) != 1 || data.Users[0].ID != 2 {
		t.Errorf("authenticated data = %+v, want user=1 users=[2]", data)
	}
}

func TestMaskUserUpdateForOthers_ClearsPrivateFields(t *testing.T) {
	t.Parallel()

	email := "alice@example.com"
	verified := true
	text := "brb"
	u := user.PublicUser{ID: 1, Email: &email, Verified: &verified, Status: user.Status{Type: user.StatusOnline, Text: &text}}

	masked := maskUserUpdateForOthers(u)
	if masked.Email != nil || masked.Verified != nil {
		t.Error("maskUserUpdateForOthers should clear Email and Verified")
	}
	if masked.Status.Text == nil || *masked.Status.Text != "brb" {
		t.Error("online user's status text should survive masking")
	}
}

func TestMaskUserUpdateForOthers_ClearsOfflineStatusText(t *testing.T) {
	t.Parallel()

	text := "brb"
	u := user.PublicUser{ID: 1, Status: user.Status{Type: user.StatusOffline, Text: &text}}

	masked := maskUserUpdateForOthers(u)
	if masked.Status.Text != nil {
		t.Error("offline user's status text should be cleared")
	}
}

func TestPresenceUpdateFrame_RoundTrip(t *testing.T) {
	t.Parallel()

	text := "afk"
	raw, err := presenceUpdateFrame(events.PresenceUpdate{UserID: 7, Status: events.Status{Type: "idle", Text: &text}})
	if err != nil {
		t.Fatalf("presenceUpdateFrame() error = %v", err)
	}

	var f Frame
	if err := json.Unmarshal(raw, &f); err != nil {
		t.Fatalf("unmarshal frame: %v", err)
	}
	if f.Op != OpPresenceUpdate {
		t.Errorf("Op = %q, want %q", f.Op, OpPresenceUpdate)
	}

	var p events.PresenceUpdate
	if err := json.Unmarshal(f.Data, &p); err != nil {
		t.Fatalf("unmarshal presence update: %v", err)
	}
	if p.UserID != 7 || p.Status.Type != "idle" {
		t.Errorf("presence update = %+v, want user_id=7 type=idle", p)
	}
}
