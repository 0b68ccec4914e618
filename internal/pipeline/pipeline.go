// Package pipeline runs the cleaning stages over one batch of comments.
//
// Per record: strip artifacts, repair encoding, reject gibberish, normalize,
// filter tokens, drop records left with too few tokens. Records that survive are
// then scored as a batch against their centroid when an outlier filter is set.
package pipeline

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"

	"murmur/internal/comment"
	"murmur/internal/middleware"
	"murmur/internal/outlier"
	"murmur/internal/text"
)

const DefaultConcurrency = 8

var ErrNoVocabulary = errors.New("pipeline requires a vocabulary")

type Options struct {
	Normalizer  *text.Normalizer
	Repairer    *text.Repairer
	Gibberish   *text.GibberishDetector
	Vocabulary  text.Vocabulary
	MinTokens   int
	Concurrency int

	// Filter is optional; nil skips the embedding stage.
	Filter         *outlier.Filter
	Threshold      float64
	EmbeddingModel string
}

type Pipeline struct {
	normalizer     *text.Normalizer
	repairer       *text.Repairer
	gibberish      *text.GibberishDetector
	vocab          text.Vocabulary
	minTokens      int
	concurrency    int
	filter         *outlier.Filter
	threshold      float64
	embeddingModel string
}

type Stats struct {
	Total     int `json:"total"`
	Empty     int `json:"empty"`
	Gibberish int `json:"gibberish"`
	TooShort  int `json:"too_short"`
	Outliers  int `json:"outliers"`
	Retained  int `json:"retained"`
}

type Result struct {
	RunID          string                  `json:"run_id"`
	Records        []comment.CleanedRecord `json:"records"`
	Rejected       []comment.CleanedRecord `json:"-"`
	Stats          Stats                   `json:"stats"`
	Embedded       bool                    `json:"embedded"`
	Threshold      float64                 `json:"threshold"`
	EmbeddingModel string                  `json:"embedding_model,omitempty"`
	Duration       time.Duration           `json:"-"`
}

func New(opts Options) (*Pipeline, error) {
	if opts.Vocabulary == nil {
		return nil, ErrNoVocabulary
	}
	if opts.Normalizer == nil {
		opts.Normalizer = text.NewNormalizer(text.ModeASCII)
	}
	if opts.Repairer == nil {
		r, err := text.NewRepairer(text.CodecWindows1252)
		if err != nil {
			return nil, err
		}
		opts.Repairer = r
	}
	if opts.Gibberish == nil {
		opts.Gibberish = text.NewGibberishDetector(text.DefaultMinAlnumRun, text.DefaultMinSymbolRun)
	}
	if opts.MinTokens <= 0 {
		opts.MinTokens = text.DefaultMinTokens
	}
	if opts.Concurrency <= 0 {
		opts.Concurrency = DefaultConcurrency
	}
	return &Pipeline{
		normalizer:     opts.Normalizer,
		repairer:       opts.Repairer,
		gibberish:      opts.Gibberish,
		vocab:          opts.Vocabulary,
		minTokens:      opts.MinTokens,
		concurrency:    opts.Concurrency,
		filter:         opts.Filter,
		threshold:      opts.Threshold,
		embeddingModel: opts.EmbeddingModel,
	}, nil
}

// WithThreshold returns a copy of p that retains at the given similarity threshold.
func (p *Pipeline) WithThreshold(threshold float64) *Pipeline {
	cp := *p
	cp.threshold = threshold
	return &cp
}

// WithoutEmbedding returns a copy of p that stops after the per-record stages.
func (p *Pipeline) WithoutEmbedding() *Pipeline {
	cp := *p
	cp.filter = nil
	return &cp
}

func (p *Pipeline) Threshold() float64 {
	return p.threshold
}

func (p *Pipeline) Embeds() bool {
	return p.filter != nil
}

// CleanOne applies the per-record stages to one text. A non-empty rejection means
// the record leaves the batch; the returned text is then whatever survived up to
// that stage.
func (p *Pipeline) CleanOne(raw string) (string, comment.Rejection) {
	s := text.StripArtifacts(raw)
	if s == "" {
		return "", comment.RejectEmpty
	}
	s = p.repairer.Repair(s)
	if p.gibberish.IsGibberish(s) {
		return "", comment.RejectGibberish
	}
	s = p.normalizer.Normalize(s)
	s = text.FilterTokens(s, p.vocab)
	if text.TokenCount(s) < p.minTokens {
		return s, comment.RejectTooFewWords
	}
	return s, comment.Retained
}

// Run cleans records and, when an outlier filter is configured, keeps only those
// close enough to the batch centroid. Retained records keep input order. Any
// embedding failure aborts the whole run.
func (p *Pipeline) Run(ctx context.Context, records []comment.RawRecord) (*Result, error) {
	runID := middleware.GetRunID(ctx)
	if runID == "" {
		runID = uuid.New().String()
		ctx = middleware.WithRunID(ctx, runID)
	}
	start := time.Now()

	res := &Result{
		RunID:          runID,
		Threshold:      p.threshold,
		Embedded:       p.filter != nil,
		EmbeddingModel: p.embeddingModel,
	}
	res.Stats.Total = len(records)

	cleaned, err := p.cleanAll(ctx, records)
	if err != nil {
		return nil, err
	}

	survivors := make([]comment.CleanedRecord, 0, len(cleaned))
	for _, c := range cleaned {
		switch c.Rejection {
		case comment.Retained:
			survivors = append(survivors, c)
			continue
		case comment.RejectEmpty:
			res.Stats.Empty++
		case comment.RejectGibberish:
			res.Stats.Gibberish++
		case comment.RejectTooFewWords:
			res.Stats.TooShort++
		}
		res.Rejected = append(res.Rejected, c)
	}

	slog.InfoContext(ctx, "records cleaned",
		"total", res.Stats.Total,
		"survivors", len(survivors),
		"gibberish", res.Stats.Gibberish,
		"too_short", res.Stats.TooShort,
		"empty", res.Stats.Empty,
		"duration", time.Since(start))

	if p.filter != nil && len(survivors) > 0 {
		scored, err := p.filter.Score(ctx, survivors)
		if err != nil {
			return nil, fmt.Errorf("failed to filter outliers: %w", err)
		}
		kept, dropped := outlier.Partition(scored, p.threshold)
		res.Stats.Outliers = len(dropped)
		res.Rejected = append(res.Rejected, dropped...)
		survivors = kept
	}

	res.Records = survivors
	res.Stats.Retained = len(survivors)
	res.Duration = time.Since(start)

	slog.InfoContext(ctx, "pipeline run completed",
		"retained", res.Stats.Retained,
		"outliers", res.Stats.Outliers,
		"threshold", p.threshold,
		"embedded", res.Embedded,
		"duration", res.Duration)
	return res, nil
}

func (p *Pipeline) cleanAll(ctx context.Context, records []comment.RawRecord) ([]comment.CleanedRecord, error) {
	out := make([]comment.CleanedRecord, len(records))

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(p.concurrency)

	for i, r := range records {
		g.Go(func() error {
			if err := gctx.Err(); err != nil {
				return err
			}
			clean, rejection := p.CleanOne(r.Text)
			if rejection != comment.Retained {
				slog.DebugContext(gctx, "record rejected", "index", i, "reason", rejection)
			}
			out[i] = comment.CleanedRecord{RawRecord: r, CleanText: clean, Rejection: rejection}
			return nil
		})
	}

	if err := g.Wait(); err != nil {
		return nil, err
	}
	return out, nil
}
