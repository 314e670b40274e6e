package media

import (
	"bytes"
	"context"
	"encoding/json"
	"image"
	"image/color"
	"image/jpeg"
	"testing"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
)

// fakeUpdater records UpdateDimensions calls for test assertions.
type fakeUpdater struct {
	calls map[uint64][2]int
}

func newFakeUpdater() *fakeUpdater {
	return &fakeUpdater{calls: make(map[uint64][2]int)}
}

func (f *fakeUpdater) UpdateDimensions(_ context.Context, fileID uint64, width, height int) error {
	f.calls[fileID] = [2]int{width, height}
	return nil
}

func TestEnqueueProbe(t *testing.T) {
	t.Parallel()
	mr := miniredis.RunT(t)
	rdb := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	defer func() { _ = rdb.Close() }()

	ctx := context.Background()
	job := ProbeJob{FileID: 42, StorageKey: "assets/abc.png", ContentType: "image/png"}
	if err := EnqueueProbe(ctx, rdb, job); err != nil {
		t.Fatalf("EnqueueProbe() error: %v", err)
	}

	msgs, err := rdb.XRange(ctx, probeStream, "-", "+").Result()
	if err != nil {
		t.Fatalf("XRange() error: %v", err)
	}
	if len(msgs) != 1 {
		t.Fatalf("got %d messages, want 1", len(msgs))
	}

	raw := msgs[0].Values["job"].(string)
	var decoded ProbeJob
	if err := json.Unmarshal([]byte(raw), &decoded); err != nil {
		t.Fatalf("unmarshal job: %v", err)
	}
	if decoded.FileID != job.FileID {
		t.Errorf("file_id = %d, want %d", decoded.FileID, job.FileID)
	}
}

func TestProbeWorker_ProbeImage_JPEGIsStrippedAndDimensioned(t *testing.T) {
	t.Parallel()
	ctx := context.Background()

	img := image.NewRGBA(image.Rect(0, 0, 320, 240))
	for y := range 240 {
		for x := range 320 {
			img.Set(x, y, color.RGBA{G: 255, A: 255})
		}
	}
	var buf bytes.Buffer
	if err := jpeg.Encode(&buf, img, &jpeg.Options{Quality: 90}); err != nil {
		t.Fatalf("encode test JPEG: %v", err)
	}

	dir := t.TempDir()
	store := NewLocalStorage(dir, "http://localhost:8080")
	storageKey := "attachments/test.jpg"
	if err := store.Put(ctx, storageKey, bytes.NewReader(buf.Bytes())); err != nil {
		t.Fatalf("store.Put() error: %v", err)
	}

	updater := newFakeUpdater()
	mr := miniredis.RunT(t)
	rdb := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	defer func() { _ = rdb.Close() }()

	worker := NewProbeWorker(rdb, store, updater, zerolog.Nop())
	job := ProbeJob{FileID: 7, StorageKey: storageKey, ContentType: "image/jpeg"}
	if err := worker.probe(ctx, job); err != nil {
		t.Fatalf("probe() error: %v", err)
	}

	dims, ok := updater.calls[7]
	if !ok {
		t.Fatal("UpdateDimensions was not called")
	}
	if dims[0] != 320 || dims[1] != 240 {
		t.Errorf("dimensions = %v, want (320, 240)", dims)
	}

	rc, err := store.Get(ctx, storageKey)
	if err != nil {
		t.Fatalf("store.Get() error: %v", err)
	}
	defer func() { _ = rc.Close() }()
	if _, err := jpeg.Decode(rc); err != nil {
		t.Errorf("stored file is no longer a valid jpeg: %v", err)
	}
}

func TestProbeWorker_ProbeNonImageNonVideo_NoOp(t *testing.T) {
	t.Parallel()
	ctx := context.Background()

	dir := t.TempDir()
	store := NewLocalStorage(dir, "http://localhost:8080")
	storageKey := "attachments/test.pdf"
	if err := store.Put(ctx, storageKey, bytes.NewReader([]byte("%PDF-1.4"))); err != nil {
		t.Fatalf("store.Put() error: %v", err)
	}

	updater := newFakeUpdater()
	mr := miniredis.RunT(t)
	rdb := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	defer func() { _ = rdb.Close() }()

	worker := NewProbeWorker(rdb, store, updater, zerolog.Nop())
	job := ProbeJob{FileID: 9, StorageKey: storageKey, ContentType: "application/pdf"}
	if err := worker.probe(ctx, job); err != nil {
		t.Fatalf("probe() error: %v", err)
	}
	if _, ok := updater.calls[9]; ok {
		t.Error("UpdateDimensions was called for a non-image, non-video file")
	}
}
