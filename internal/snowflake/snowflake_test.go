package snowflake

import (
	"testing"
	"time"
)

func TestNext_Monotonic(t *testing.T) {
	t.Parallel()

	g := NewGenerator(3)
	g.now = func() time.Time { return time.Unix(epochSeconds+100, 0) }

	var last uint64
	for i := 0; i < 10; i++ {
		id := g.Next()
		if id <= last {
			t.Fatalf("id %d did not increase over previous %d", id, last)
		}
		last = id
	}
}

func TestNext_SequenceWraps(t *testing.T) {
	t.Parallel()

	g := NewGenerator(0)
	g.now = func() time.Time { return time.Unix(epochSeconds+1, 0) }

	var first uint64
	for i := 0; i < 256; i++ {
		id := g.Next()
		if i == 0 {
			first = id
		}
	}
	// After 256 calls the sequence has wrapped back to 0, reproducing the first ID's low byte.
	wrapped := g.Next()
	if Sequence(wrapped) != Sequence(first) {
		t.Errorf("sequence after wrap = %d, want %d", Sequence(wrapped), Sequence(first))
	}
}

func TestNext_EncodesComponents(t *testing.T) {
	t.Parallel()

	g := NewGenerator(42)
	g.now = func() time.Time { return time.Unix(epochSeconds+7, 0) }

	id := g.Next()
	if got := WorkerID(id); got != 42 {
		t.Errorf("WorkerID() = %d, want 42", got)
	}
	if got := Sequence(id); got != 1 {
		t.Errorf("Sequence() = %d, want 1", got)
	}
	if got := Timestamp(id); !got.Equal(time.Unix(epochSeconds+7, 0).UTC()) {
		t.Errorf("Timestamp() = %v, want %v", got, time.Unix(epochSeconds+7, 0).UTC())
	}
}

func TestNext_DistinctWithinSameSecond(t *testing.T) {
	t.Parallel()

	g := NewGenerator(1)
	g.now = func() time.Time { return time.Unix(epochSeconds+50, 0) }

	seen := make(map[uint64]bool)
	for i := 0; i < 255; i++ {
		id := g.Next()
		if seen[id] {
			t.Fatalf("duplicate id %d", id)
		}
		seen[id] = true
	}
}
