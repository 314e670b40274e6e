package gateway

import (
	"testing"
	"time"

	"github.com/rs/zerolog"

	"github.com/eludris-go/eludris/internal/user"
)

func newTestClient() *Client {
	return &Client{
		send:     make(chan []byte, 64),
		done:     make(chan struct{}),
		log:      zerolog.Nop(),
		lastPing: time.Now(),
	}
}

func TestClient_SessionState(t *testing.T) {
	t.Parallel()

	c := newTestClient()
	if _, _, ok := c.session(); ok {
		t.Fatal("session() should report unauthenticated before setAuthenticated")
	}

	c.setAuthenticated(42, user.Status{Type: user.StatusOnline})
	id, status, ok := c.session()
	if !ok || id != 42 || status.Type != user.StatusOnline {
		t.Fatalf("session() = (%d, %+v, %v), want (42, online, true)", id, status, ok)
	}

	c.setStatus(user.Status{Type: user.StatusIdle})
	_, status, _ = c.session()
	if status.Type != user.StatusIdle {
		t.Errorf("status after setStatus = %q, want %q", status.Type, user.StatusIdle)
	}
}

func TestClient_Enqueue_DropsAfterClose(t *testing.T) {
	t.Parallel()

	c := newTestClient()
	c.closeSend()
	c.enqueue([]byte("hello"))

	select {
	case <-c.send:
		t.Fatal("enqueue after close should not deliver to send channel")
	default:
	}
}

func TestClient_Touch_ResetsSincePing(t *testing.T) {
	t.Parallel()

	c := newTestClient()
	c.lastPing = time.Now().Add(-time.Hour)
	if c.sincePing() < time.Minute {
		t.Fatal("sincePing should reflect the stale lastPing before touch")
	}

	c.touch()
	if c.sincePing() > time.Second {
		t.Errorf("sincePing() after touch = %v, want near 0", c.sincePing())
	}
}

func TestClient_DeathDetector_ClosesOnTimeout(t *testing.T) {
	t.Parallel()

	c := newTestClient()
	c.lastPing = time.Now().Add(-time.Hour)

	done := make(chan struct{})
	go func() {
		c.deathDetector(10 * time.Millisecond)
		close(done)
	}()

	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("deathDetector should close after the timeout elapses")
	}

	select {
	case <-c.done:
	default:
		t.Error("deathDetector should have closed the client's done channel")
	}
}

func TestClient_DeathDetector_StopsWhenDoneClosed(t *testing.T) {
	t.Parallel()

	c := newTestClient()

	done := make(chan struct{})
	go func() {
		c.deathDetector(time.Hour)
		close(done)
	}()

	c.closeSend()

	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("deathDetector should return promptly once done is closed")
	}
}
