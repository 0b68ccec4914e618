package clean

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"murmur/features/run"
	"murmur/internal/comment"
	"murmur/internal/pipeline"
)

var ErrInvalidThreshold = errors.New("threshold must be within [-1, 1]")

// VectorStore receives the retained records of a run together with their embeddings.
type VectorStore interface {
	DeleteRun(ctx context.Context, runID string) error
	StoreComments(ctx context.Context, runID string, records []comment.CleanedRecord) error
}

// Recorder persists the summary of a finished run.
type Recorder interface {
	Record(ctx context.Context, source string, res *pipeline.Result) (*run.Run, error)
}

type Request struct {
	// Source names where the batch came from in the run ledger.
	Source    string
	Records   []comment.RawRecord
	Threshold *float64
}

type Service struct {
	pipeline *pipeline.Pipeline
	store    VectorStore
	recorder Recorder
}

// NewService accepts a nil store or recorder.
func NewService(p *pipeline.Pipeline, store VectorStore, recorder Recorder) *Service {
	return &Service{pipeline: p, store: store, recorder: recorder}
}

// Clean runs one batch through the pipeline, stores the retained records in the
// vector sink and records the run. A ledger failure is logged and does not fail
// the batch.
func (s *Service) Clean(ctx context.Context, req Request) (*pipeline.Result, error) {
	p := s.pipeline
	if req.Threshold != nil {
		if *req.Threshold < -1 || *req.Threshold > 1 {
			return nil, fmt.Errorf("%w: got %v", ErrInvalidThreshold, *req.Threshold)
		}
		p = p.WithThreshold(*req.Threshold)
	}

	res, err := p.Run(ctx, req.Records)
	if err != nil {
		return nil, err
	}

	if s.store != nil && res.Embedded && len(res.Records) > 0 {
		// A redelivered or retried batch keeps its run id; replace what an earlier
		// attempt stored.
		if err := s.store.DeleteRun(ctx, res.RunID); err != nil {
			return nil, fmt.Errorf("failed to clear run %s: %w", res.RunID, err)
		}
		if err := s.store.StoreComments(ctx, res.RunID, res.Records); err != nil {
			return nil, fmt.Errorf("failed to store run %s: %w", res.RunID, err)
		}
		slog.InfoContext(ctx, "retained comments stored", "count", len(res.Records))
	}

	if s.recorder != nil {
		if _, err := s.recorder.Record(ctx, req.Source, res); err != nil {
			slog.WarnContext(ctx, "failed to record run", "error", err)
		}
	}
	return res, nil
}
