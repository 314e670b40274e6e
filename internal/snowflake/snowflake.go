// Package snowflake generates monotonic 64-bit IDs from a fixed custom epoch.
package snowflake

import (
	"sync"
	"time"
)

// epochSeconds is the custom origin IDs are measured from: the Unix epoch plus 1,650,000,000 seconds
// (2022-04-15T09:20:00Z), matching the original instance's pinned epoch.
const epochSeconds int64 = 1_650_000_000

// Generator produces IDs of the form:
//
//	seconds_since_epoch<<16 | worker_id<<8 | sequence
//
// sequence is an 8-bit counter that increments on every call and wraps from 255 back to 0. A Generator is safe for
// concurrent use; callers do not need to serialize access themselves.
type Generator struct {
	mu       sync.Mutex
	workerID uint8
	seq      uint8
	now      func() time.Time
}

// NewGenerator creates a Generator for the given worker ID (0-255, typically from ELUDRIS_WORKER_ID).
func NewGenerator(workerID uint8) *Generator {
	return &Generator{workerID: workerID, now: time.Now}
}

// Next returns the next ID. Within one second, 256 consecutive calls on the same Generator give distinct IDs; the
// 8-bit sequence then wraps, so the ID after sequence 255 is smaller than its predecessor and the 257th repeats the
// first. Across seconds IDs increase because the timestamp component dominates.
func (g *Generator) Next() uint64 {
	g.mu.Lock()
	defer g.mu.Unlock()

	g.seq++
	seconds := uint64(g.now().Unix() - epochSeconds)
	return seconds<<16 | uint64(g.workerID)<<8 | uint64(g.seq)
}

// Timestamp extracts the creation time encoded in an ID, truncated to the second.
func Timestamp(id uint64) time.Time {
	seconds := int64(id>>16) + epochSeconds
	return time.Unix(seconds, 0).UTC()
}

// WorkerID extracts the worker component of an ID.
func WorkerID(id uint64) uint8 {
	return uint8(id >> 8)
}

// Sequence extracts the sequence component of an ID.
func Sequence(id uint64) uint8 {
	return uint8(id)
}
