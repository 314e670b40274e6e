package ratelimit

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
)

func newTestLimiter(t *testing.T, buckets map[string]Bucket) *Limiter {
	t.Helper()
	mr := miniredis.RunT(t)
	rdb := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = rdb.Close() })
	return New(rdb, buckets)
}

func TestAdmit_WithinLimit(t *testing.T) {
	t.Parallel()

	l := newTestLimiter(t, map[string]Bucket{"b": {ResetAfter: 5 * time.Second, Limit: 2}})
	ctx := context.Background()

	r1, err := l.Admit(ctx, "b", "ip1")
	if err != nil || !r1.Admitted || r1.RequestCount != 1 {
		t.Fatalf("first admit: %+v, err=%v", r1, err)
	}

	r2, err := l.Admit(ctx, "b", "ip1")
	if err != nil || !r2.Admitted || r2.RequestCount != 2 {
		t.Fatalf("second admit: %+v, err=%v", r2, err)
	}
}

func TestAdmit_RejectsOverLimit(t *testing.T) {
	t.Parallel()

	l := newTestLimiter(t, map[string]Bucket{"b": {ResetAfter: 5 * time.Second, Limit: 2}})
	ctx := context.Background()

	_, _ = l.Admit(ctx, "b", "ip1")
	_, _ = l.Admit(ctx, "b", "ip1")

	r3, err := l.Admit(ctx, "b", "ip1")
	if err != nil {
		t.Fatalf("third admit error: %v", err)
	}
	if r3.Admitted {
		t.Fatal("third admission should be rejected")
	}
	if r3.RetryAfterMS > 5000 || r3.RetryAfterMS < 0 {
		t.Errorf("retry_after_ms = %d, want in [0, 5000]", r3.RetryAfterMS)
	}
	if r3.RequestCount != 2 {
		t.Errorf("request count = %d, want 2", r3.RequestCount)
	}
}

func TestAdmit_IndependentIdentifiers(t *testing.T) {
	t.Parallel()

	l := newTestLimiter(t, map[string]Bucket{"b": {ResetAfter: 5 * time.Second, Limit: 1}})
	ctx := context.Background()

	r1, _ := l.Admit(ctx, "b", "ip1")
	r2, _ := l.Admit(ctx, "b", "ip2")
	if !r1.Admitted || !r2.Admitted {
		t.Fatalf("expected both identifiers admitted independently: %+v %+v", r1, r2)
	}
}

func TestAdmit_UnknownBucket(t *testing.T) {
	t.Parallel()

	l := newTestLimiter(t, map[string]Bucket{})
	_, err := l.Admit(context.Background(), "nope", "ip1")
	if err == nil {
		t.Fatal("expected error for unknown bucket")
	}
}

func TestAdmit_ResetsAfterWindow(t *testing.T) {
	t.Parallel()

	l := newTestLimiter(t, map[string]Bucket{"b": {ResetAfter: 50 * time.Millisecond, Limit: 1}})
	ctx := context.Background()

	_, _ = l.Admit(ctx, "b", "ip1")
	r2, _ := l.Admit(ctx, "b", "ip1")
	if r2.Admitted {
		t.Fatal("second admit within window should be rejected")
	}

	time.Sleep(60 * time.Millisecond)

	r3, err := l.Admit(ctx, "b", "ip1")
	if err != nil || !r3.Admitted || r3.RequestCount != 1 {
		t.Fatalf("admit after window reset: %+v, err=%v", r3, err)
	}
}
