package media

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
)

const (
	probeStream   = "effis.jobs.probe"
	consumerGroup = "effis-workers"

	// retryMinIdle is the minimum time a message must sit unacknowledged before it becomes eligible for reclaim.
	retryMinIdle = 30 * time.Second

	// maxRetries is the maximum number of delivery attempts for a single job. After this many failures the job is
	// acknowledged and discarded to prevent infinite retry loops.
	maxRetries = 3
)

// errPermanent wraps an error to indicate that retrying will not help (e.g. corrupt image, unknown file id).
var errPermanent = errors.New("permanent")

// ProbeJob describes a pending dimension-probe task, enqueued by the upload handler right after the dedup check so
// the CPU-bound decode/re-encode/ffprobe work runs off the request-dispatch path.
type ProbeJob struct {
	FileID      uint64 `json:"file_id,string"`
	StorageKey  string `json:"storage_key"`
	ContentType string `json:"content_type"`
}

// DimensionUpdater records probed width/height. Satisfied by file.Repository.
type DimensionUpdater interface {
	UpdateDimensions(ctx context.Context, fileID uint64, width, height int) error
}

// ProbeWorker consumes dimension-probe jobs from a Valkey stream. For JPEGs it also rewrites the stored blob with
// its metadata stripped. Adapted from the teacher's ThumbnailWorker: same Valkey Stream consumer-group idiom
// (XReadGroup/XAutoClaim/XAck, bounded retries), retargeted at dimension probing since this repo has no thumbnail
// concept.
type ProbeWorker struct {
	rdb     *redis.Client
	storage StorageProvider
	updater DimensionUpdater
	log     zerolog.Logger
}

// NewProbeWorker creates a worker that processes dimension-probe jobs.
func NewProbeWorker(rdb *redis.Client, storage StorageProvider, updater DimensionUpdater, logger zerolog.Logger) *ProbeWorker {
	return &ProbeWorker{rdb: rdb, storage: storage, updater: updater, log: logger}
}

// EnsureStream creates the consumer group for the probe stream, ignoring errors if the group already exists.
func (w *ProbeWorker) EnsureStream(ctx context.Context) {
	err := w.rdb.XGroupCreateMkStream(ctx, probeStream, consumerGroup, "0").Err()
	if err != nil && !strings.HasPrefix(err.Error(), "BUSYGROUP") {
		w.log.Warn().Err(err).Msg("Failed to create probe consumer group")
	}
}

// Run reads and processes probe jobs until the context is cancelled. Transient failures leave the message
// unacknowledged so it can be reclaimed on the next iteration. Permanent failures and messages that exceed the
// maximum retry count are acknowledged and discarded.
func (w *ProbeWorker) Run(ctx context.Context) error {
	consumerName := "worker-" + uuid.New().String()[:8]

	for {
		w.reclaimStale(ctx, consumerName)

		streams, err := w.rdb.XReadGroup(ctx, &redis.XReadGroupArgs{
			Group:    consumerGroup,
			Consumer: consumerName,
			Streams:  []string{probeStream, ">"},
			Count:    1,
			Block:    0,
		}).Result()
		if err != nil {
			if ctx.Err() != nil {
				return ctx.Err()
			}
			return fmt.Errorf("xreadgroup: %w", err)
		}

		for _, stream := range streams {
			for _, msg := range stream.Messages {
				w.processJob(ctx, msg)
			}
		}
	}
}

// reclaimStale uses XAUTOCLAIM to take ownership of messages that have been pending longer than retryMinIdle.
func (w *ProbeWorker) reclaimStale(ctx context.Context, consumerName string) {
	msgs, _, err := w.rdb.XAutoClaim(ctx, &redis.XAutoClaimArgs{
		Stream:   probeStream,
		Group:    consumerGroup,
		Consumer: consumerName,
		MinIdle:  retryMinIdle,
		Start:    "0-0",
		Count:    10,
	}).Result()
	if err != nil {
		if ctx.Err() == nil {
			w.log.Warn().Err(err).Msg("Failed to reclaim stale probe jobs")
		}
		return
	}

	for _, msg := range msgs {
		w.processJob(ctx, msg)
	}
}

func (w *ProbeWorker) processJob(ctx context.Context, msg redis.XMessage) {
	raw, ok := msg.Values["job"]
	if !ok {
		w.log.Warn().Str("message_id", msg.ID).Msg("Probe job missing 'job' field")
		w.ack(ctx, msg.ID)
		return
	}

	var job ProbeJob
	if err := json.Unmarshal([]byte(raw.(string)), &job); err != nil {
		w.log.Warn().Err(err).Str("message_id", msg.ID).Msg("Failed to unmarshal probe job")
		w.ack(ctx, msg.ID)
		return
	}

	if err := w.probe(ctx, job); err != nil {
		if errors.Is(err, errPermanent) || w.deliveryCount(ctx, msg.ID) >= maxRetries {
			w.log.Warn().Err(err).Uint64("file_id", job.FileID).Msg("Dimension probe failed permanently")
			w.ack(ctx, msg.ID)
			return
		}
		w.log.Warn().Err(err).Uint64("file_id", job.FileID).Msg("Dimension probe failed, will retry")
		return
	}
	w.ack(ctx, msg.ID)
}

// probe dispatches to the image or video probing path based on content type. Content types outside both sets are
// never enqueued by the upload handler, so they are a no-op here.
func (w *ProbeWorker) probe(ctx context.Context, job ProbeJob) error {
	rc, err := w.storage.Get(ctx, job.StorageKey)
	if err != nil {
		if errors.Is(err, ErrStorageKeyNotFound) {
			return fmt.Errorf("read stored file: %w", errors.Join(err, errPermanent))
		}
		return fmt.Errorf("read stored file: %w", err)
	}
	data, err := io.ReadAll(rc)
	_ = rc.Close()
	if err != nil {
		return fmt.Errorf("read stored file: %w", err)
	}

	switch {
	case IsImageContentType(job.ContentType):
		return w.probeImage(ctx, job, data)
	case IsVideoContentType(job.ContentType):
		return w.probeVideo(ctx, job, data)
	default:
		return nil
	}
}

func (w *ProbeWorker) probeImage(ctx context.Context, job ProbeJob, data []byte) error {
	if normaliseContentType(job.ContentType) == "image/jpeg" {
		stripped, err := StripJPEGMetadata(bytes.NewReader(data))
		if err != nil {
			return fmt.Errorf("strip jpeg metadata: %w", errors.Join(err, errPermanent))
		}
		if err := w.storage.Put(ctx, job.StorageKey, bytes.NewReader(stripped)); err != nil {
			return fmt.Errorf("write stripped jpeg: %w", err)
		}
		data = stripped
	}

	width, height, ok := ProbeImageDimensions(data)
	if !ok {
		w.log.Debug().Uint64("file_id", job.FileID).Msg("Could not determine image dimensions")
		return nil
	}
	if err := w.updater.UpdateDimensions(ctx, job.FileID, width, height); err != nil {
		return fmt.Errorf("update dimensions: %w", err)
	}
	return nil
}

func (w *ProbeWorker) probeVideo(ctx context.Context, job ProbeJob, data []byte) error {
	tmp, err := os.CreateTemp("", "effis-probe-*")
	if err != nil {
		return fmt.Errorf("create temp file: %w", err)
	}
	defer func() {
		_ = tmp.Close()
		_ = os.Remove(tmp.Name())
	}()
	if _, err := tmp.Write(data); err != nil {
		return fmt.Errorf("write temp file: %w", err)
	}

	width, height, ok, err := ProbeVideoDimensions(ctx, tmp.Name())
	if err != nil {
		return fmt.Errorf("ffprobe: %w", err)
	}
	if !ok {
		w.log.Debug().Uint64("file_id", job.FileID).Msg("Could not determine video dimensions")
		return nil
	}
	if err := w.updater.UpdateDimensions(ctx, job.FileID, width, height); err != nil {
		return fmt.Errorf("update dimensions: %w", err)
	}
	return nil
}

// deliveryCount returns how many times the given message has been delivered to a consumer. Returns maxRetries on
// error so the caller treats it as exhausted rather than retrying indefinitely.
func (w *ProbeWorker) deliveryCount(ctx context.Context, messageID string) int64 {
	pending, err := w.rdb.XPendingExt(ctx, &redis.XPendingExtArgs{
		Stream: probeStream,
		Group:  consumerGroup,
		Start:  messageID,
		End:    messageID,
		Count:  1,
	}).Result()
	if err != nil || len(pending) == 0 {
		return maxRetries
	}
	return pending[0].RetryCount
}

func (w *ProbeWorker) ack(ctx context.Context, messageID string) {
	if err := w.rdb.XAck(ctx, probeStream, consumerGroup, messageID).Err(); err != nil {
		w.log.Warn().Err(err).Str("message_id", messageID).Msg("Failed to ACK probe job")
	}
}

// EnqueueProbe adds a dimension-probe job to the stream.
func EnqueueProbe(ctx context.Context, rdb *redis.Client, job ProbeJob) error {
	data, err := json.Marshal(job)
	if err != nil {
		return fmt.Errorf("marshal probe job: %w", err)
	}
	return rdb.XAdd(ctx, &redis.XAddArgs{
		Stream: probeStream,
		Values: map[string]any{"job": string(data)},
	}).Err()
}
