// Package outlier drops comments that sit semantically far from the rest of their batch.
//
// The reference point is the centroid of the batch being filtered, not any fixed
// corpus: the same comment can pass in one batch and fail in another. An outlier
// here means "distant from what this run is about".
package outlier

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"golang.org/x/sync/errgroup"

	"murmur/internal/comment"
)

const (
	DefaultThreshold   = 0.25
	DefaultBatchSize   = 100
	DefaultConcurrency = 4
)

type Embedder interface {
	EmbedBatch(ctx context.Context, texts []string) ([][]float32, error)
}

type Options struct {
	BatchSize   int
	Concurrency int
}

// Filter shares one embedder across every batch it scores.
type Filter struct {
	embedder    Embedder
	batchSize   int
	concurrency int
}

func NewFilter(e Embedder, opts Options) *Filter {
	if opts.BatchSize <= 0 {
		opts.BatchSize = DefaultBatchSize
	}
	if opts.Concurrency <= 0 {
		opts.Concurrency = DefaultConcurrency
	}
	return &Filter{embedder: e, batchSize: opts.BatchSize, concurrency: opts.Concurrency}
}

// FilterOutliers keeps the records whose similarity to the batch centroid is at
// least threshold, in their original order. Retained records carry their embedding
// and similarity.
func (f *Filter) FilterOutliers(ctx context.Context, records []comment.CleanedRecord, threshold float64) ([]comment.CleanedRecord, error) {
	scored, err := f.Score(ctx, records)
	if err != nil {
		return nil, err
	}
	return Retain(scored, threshold), nil
}

// Score embeds every record and sets its similarity to the batch centroid.
// The input slice is not modified.
func (f *Filter) Score(ctx context.Context, records []comment.CleanedRecord) ([]comment.CleanedRecord, error) {
	if len(records) == 0 {
		return nil, nil
	}
	start := time.Now()

	texts := make([]string, len(records))
	for i, r := range records {
		texts[i] = r.CleanText
	}

	vectors, err := f.embedAll(ctx, texts)
	if err != nil {
		return nil, err
	}

	centroid, err := Centroid(vectors)
	if err != nil {
		return nil, fmt.Errorf("failed to compute centroid: %w", err)
	}

	out := make([]comment.CleanedRecord, len(records))
	for i, r := range records {
		sim := CosineSimilarity(vectors[i], centroid)
		r.Embedding = vectors[i]
		r.Similarity = &sim
		out[i] = r
	}

	slog.InfoContext(ctx, "batch scored against centroid",
		"records", len(records), "dimension", len(centroid), "duration", time.Since(start))
	return out, nil
}

// Retain applies the threshold to already scored records. Lowering the threshold
// never removes a record that a higher threshold kept.
func Retain(scored []comment.CleanedRecord, threshold float64) []comment.CleanedRecord {
	kept, _ := Partition(scored, threshold)
	return kept
}

// Partition splits scored records into those at or above threshold and the
// outliers below it. Outliers are tagged with comment.RejectOutlier. Both slices
// keep input order.
func Partition(scored []comment.CleanedRecord, threshold float64) (kept, dropped []comment.CleanedRecord) {
	kept = make([]comment.CleanedRecord, 0, len(scored))
	for _, r := range scored {
		if r.Similarity != nil && *r.Similarity >= threshold {
			kept = append(kept, r)
			continue
		}
		r.Rejection = comment.RejectOutlier
		dropped = append(dropped, r)
	}
	return kept, dropped
}

func (f *Filter) embedAll(ctx context.Context, texts []string) ([][]float32, error) {
	vectors := make([][]float32, len(texts))

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(f.concurrency)

	for lo := 0; lo < len(texts); lo += f.batchSize {
		hi := min(lo+f.batchSize, len(texts))
		g.Go(func() error {
			batch, err := f.embedder.EmbedBatch(gctx, texts[lo:hi])
			if err != nil {
				return fmt.Errorf("failed to embed records %d-%d: %w", lo, hi-1, err)
			}
			if len(batch) != hi-lo {
				return fmt.Errorf("embedder returned %d vectors for %d texts", len(batch), hi-lo)
			}
			copy(vectors[lo:hi], batch)
			return nil
		})
	}

	if err := g.Wait(); err != nil {
		return nil, err
	}
	return vectors, nil
}
