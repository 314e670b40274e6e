// Package ratelimit implements the cache-backed sliding-window rate limiter shared by every service.
package ratelimit

import (
	"context"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

// Bucket holds the admission policy for one named class of operation.
type Bucket struct {
	// ResetAfter is the window length.
	ResetAfter time.Duration
	// Limit is the maximum number of admissions per window.
	Limit int64
	// FileSizeLimit is nonzero only for upload buckets; an upload whose declared size exceeds it is rejected in the
	// same admission step.
	FileSizeLimit int64
}

// Result describes the outcome of an admission check, carrying the four response header values regardless of whether
// the request was admitted.
type Result struct {
	Admitted     bool
	Reset        time.Duration
	Max          int64
	LastReset    int64
	RequestCount int64
	RetryAfterMS int64
}

// Limiter checks admission for (bucket, identifier) pairs against Valkey.
type Limiter struct {
	rdb     *redis.Client
	buckets map[string]Bucket
}

// New creates a Limiter backed by rdb with the given bucket table.
func New(rdb *redis.Client, buckets map[string]Bucket) *Limiter {
	return &Limiter{rdb: rdb, buckets: buckets}
}

// Bucket returns the policy for the named bucket and whether it is known.
func (l *Limiter) Bucket(name string) (Bucket, bool) {
	b, ok := l.buckets[name]
	return b, ok
}

// Admit checks and records one admission attempt for (bucket, identifier). The cache key format is
// rate_limit:<bucket>:<identifier>, matching the documented external contract.
func (l *Limiter) Admit(ctx context.Context, bucket, identifier string) (Result, error) {
	policy, ok := l.buckets[bucket]
	if !ok {
		return Result{}, fmt.Errorf("ratelimit: unknown bucket %q", bucket)
	}

	key := cacheKey(bucket, identifier)
	nowMS := time.Now().UnixMilli()

	vals, err := l.rdb.HMGet(ctx, key, "last_reset", "request_count").Result()
	if err != nil {
		return Result{}, fmt.Errorf("ratelimit: read state: %w", err)
	}

	lastReset, count, exists := parseState(vals)

	switch {
	case !exists:
		lastReset, count = nowMS, 1
		if err := l.store(ctx, key, policy, lastReset, count); err != nil {
			return Result{}, err
		}
		return result(true, policy, lastReset, count, 0), nil

	case nowMS-lastReset >= policy.ResetAfter.Milliseconds():
		lastReset, count = nowMS, 1
		if err := l.store(ctx, key, policy, lastReset, count); err != nil {
			return Result{}, err
		}
		return result(true, policy, lastReset, count, 0), nil

	case count >= policy.Limit:
		retryAfter := lastReset + policy.ResetAfter.Milliseconds() - nowMS
		if retryAfter < 0 {
			retryAfter = 0
		}
		return result(false, policy, lastReset, count, retryAfter), nil

	default:
		count++
		if err := l.store(ctx, key, policy, lastReset, count); err != nil {
			return Result{}, err
		}
		return result(true, policy, lastReset, count, 0), nil
	}
}

func (l *Limiter) store(ctx context.Context, key string, policy Bucket, lastReset, count int64) error {
	pipe := l.rdb.TxPipeline()
	pipe.HSet(ctx, key, "last_reset", lastReset, "request_count", count)
	pipe.Expire(ctx, key, policy.ResetAfter*2)
	if _, err := pipe.Exec(ctx); err != nil {
		return fmt.Errorf("ratelimit: write state: %w", err)
	}
	return nil
}

func parseState(vals []any) (lastReset, count int64, exists bool) {
	if len(vals) != 2 || vals[0] == nil || vals[1] == nil {
		return 0, 0, false
	}
	lastReset = toInt64(vals[0])
	count = toInt64(vals[1])
	return lastReset, count, true
}

func toInt64(v any) int64 {
	s, ok := v.(string)
	if !ok {
		return 0
	}
	var n int64
	_, _ = fmt.Sscan(s, &n)
	return n
}

func result(admitted bool, policy Bucket, lastReset, count, retryAfter int64) Result {
	return Result{
		Admitted:     admitted,
		Reset:        policy.ResetAfter,
		Max:          policy.Limit,
		LastReset:    lastReset,
		RequestCount: count,
		RetryAfterMS: retryAfter,
	}
}

func cacheKey(bucket, identifier string) string {
	return "rate_limit:" + bucket + ":" + identifier
}

// Canonical bucket names, enumerated as a closed set (replacing the original's macro-based enumeration).
const (
	BucketGetInstanceInfo         = "get_instance_info"
	BucketCreateMessage           = "create_message"
	BucketCreateUser              = "create_user"
	BucketVerifyUser              = "verify_user"
	BucketGetUser                 = "get_user"
	BucketGuestGetUser            = "guest_get_user"
	BucketUpdateUser              = "update_user"
	BucketUpdateProfile           = "update_profile"
	BucketDeleteUser              = "delete_user"
	BucketCreatePasswordResetCode = "create_password_reset_code"
	BucketResetPassword           = "reset_password"
	BucketCreateSession           = "create_session"
	BucketGetSessions             = "get_sessions"
	BucketDeleteSession           = "delete_session"
	BucketPandemonium              = "pandemonium"
	BucketAssets                   = "assets"
	BucketAttachments              = "attachments"
	BucketFetchFile                = "fetch_file"
)

// DefaultBuckets returns the canonical bucket table with the numeric defaults from the original instance's config,
// with create_password_reset_code using its own named default rather than the conflicting value accidentally wired
// by the original's Default impl (see DESIGN.md).
func DefaultBuckets() map[string]Bucket {
	return map[string]Bucket{
		BucketGetInstanceInfo:         {ResetAfter: 5 * time.Second, Limit: 2},
		BucketCreateMessage:           {ResetAfter: 5 * time.Second, Limit: 5},
		BucketCreateUser:              {ResetAfter: 5 * time.Minute, Limit: 2},
		BucketVerifyUser:              {ResetAfter: time.Hour, Limit: 4},
		BucketGetUser:                 {ResetAfter: 5 * time.Second, Limit: 5},
		BucketGuestGetUser:            {ResetAfter: 5 * time.Second, Limit: 2},
		BucketUpdateUser:              {ResetAfter: 5 * time.Minute, Limit: 2},
		BucketUpdateProfile:           {ResetAfter: time.Minute, Limit: 5},
		BucketDeleteUser:              {ResetAfter: time.Hour, Limit: 1},
		BucketCreatePasswordResetCode: {ResetAfter: 30 * time.Minute, Limit: 2},
		BucketResetPassword:           {ResetAfter: time.Hour, Limit: 4},
		BucketCreateSession:           {ResetAfter: 30 * time.Minute, Limit: 5},
		BucketGetSessions:             {ResetAfter: 5 * time.Second, Limit: 2},
		BucketDeleteSession:           {ResetAfter: time.Minute, Limit: 2},
		BucketPandemonium:             {ResetAfter: 10 * time.Second, Limit: 5},
		BucketAssets:                  {ResetAfter: time.Minute, Limit: 5, FileSizeLimit: 30_000_000},
		BucketAttachments:             {ResetAfter: 3 * time.Minute, Limit: 20, FileSizeLimit: 500_000_000},
		BucketFetchFile:               {ResetAfter: time.Minute, Limit: 30},
	}
}
