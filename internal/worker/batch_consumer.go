package worker

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"github.com/nsqio/go-nsq"

	"murmur/features/clean"
	"murmur/features/job"
	"murmur/internal/config"
	"murmur/internal/dataset"
	"murmur/internal/middleware"
)

// batchTimeout bounds the cleaning and embedding of one message.
const batchTimeout = 5 * time.Minute

type BatchConsumer struct {
	cleaner     Cleaner
	publisher   TaskPublisher
	failures    FailureStore
	maxAttempts uint16
}

// NewBatchConsumer accepts a nil publisher; cleaned batches are then only stored
// and recorded.
func NewBatchConsumer(c Cleaner, p TaskPublisher) *BatchConsumer {
	return &BatchConsumer{cleaner: c, publisher: p}
}

// WithDeadLetter makes the consumer save a batch to store and finish it once its
// cleaning has failed on the maxAttempts-th delivery.
func (h *BatchConsumer) WithDeadLetter(store FailureStore, maxAttempts uint16) *BatchConsumer {
	h.failures = store
	h.maxAttempts = maxAttempts
	return h
}

func (h *BatchConsumer) HandleMessage(m *nsq.Message) error {
	if len(m.Body) == 0 {
		return nil
	}

	var payload RawBatchPayload
	if err := json.Unmarshal(m.Body, &payload); err != nil {
		// Poison Pill: Invalid JSON, don't retry
		slog.Error("poison pill: invalid json", "error", err)
		return nil
	}

	if payload.CorrelationID == "" {
		payload.CorrelationID = uuid.New().String()
	}
	if payload.RunID == "" {
		payload.RunID = uuid.New().String()
	}
	if payload.Source == "" {
		payload.Source = config.TopicCommentsRaw
	}

	ctx := middleware.WithCorrelationID(context.Background(), payload.CorrelationID)
	ctx = middleware.WithRunID(ctx, payload.RunID)

	records, columns, err := dataset.ReadJSON(bytes.NewReader(payload.Records), payload.TextField)
	if err != nil {
		slog.ErrorContext(ctx, "poison pill: unreadable records", "error", err)
		return nil
	}

	runCtx, cancel := context.WithTimeout(ctx, batchTimeout)
	defer cancel()

	res, err := h.cleaner.Clean(runCtx, clean.Request{
		Source:    payload.Source,
		Records:   records,
		Threshold: payload.Threshold,
	})
	if errors.Is(err, clean.ErrInvalidThreshold) {
		// Poison Pill: a redelivery carries the same threshold
		slog.ErrorContext(ctx, "poison pill: invalid threshold", "error", err)
		return nil
	}
	if err != nil {
		slog.ErrorContext(ctx, "batch cleaning failed", "error", err, "records", len(records), "attempts", m.Attempts)
		if h.failures != nil && h.maxAttempts > 0 && m.Attempts >= h.maxAttempts {
			return h.deadLetter(ctx, m, payload.RunID, err)
		}
		return err // Retry
	}

	if h.publisher == nil {
		slog.InfoContext(ctx, "batch cleaned", "retained", res.Stats.Retained)
		return nil
	}

	var data bytes.Buffer
	if err := dataset.EncodeJSON(&data, columns, res.Records, dataset.WriteOptions{Similarity: res.Embedded}); err != nil {
		return err
	}
	out, err := json.Marshal(CleanedBatchPayload{
		RunID:          res.RunID,
		Source:         payload.Source,
		Stats:          res.Stats,
		Embedded:       res.Embedded,
		Threshold:      res.Threshold,
		EmbeddingModel: res.EmbeddingModel,
		Records:        data.Bytes(),
		CorrelationID:  payload.CorrelationID,
	})
	if err != nil {
		return fmt.Errorf("failed to encode cleaned batch: %w", err)
	}
	if err := h.publisher.Publish(config.TopicCommentsCleaned, out); err != nil {
		slog.ErrorContext(ctx, "failed to publish cleaned batch", "error", err)
		return err // Retry
	}

	slog.InfoContext(ctx, "cleaned batch published", "retained", res.Stats.Retained, "topic", config.TopicCommentsCleaned)
	return nil
}

func (h *BatchConsumer) deadLetter(ctx context.Context, m *nsq.Message, runID string, cause error) error {
	j := &job.Job{
		RunID:   runID,
		Handler: job.HandlerCleanBatch,
		Payload: m.Body,
		Error:   cause.Error(),
		Retries: int(m.Attempts),
	}
	if err := h.failures.Save(ctx, j); err != nil {
		slog.ErrorContext(ctx, "failed to save dead-lettered batch", "error", err)
		return cause // Retry
	}
	slog.WarnContext(ctx, "batch dead-lettered", "job_id", j.ID, "attempts", m.Attempts)
	return nil
}
