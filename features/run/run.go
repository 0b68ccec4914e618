package run

import (
	"time"

	"murmur/internal/pipeline"
)

// Run is the ledger entry of one pipeline execution.
type Run struct {
	ID             string    `json:"id"`
	Source         string    `json:"source"`
	Total          int       `json:"total"`
	Empty          int       `json:"empty"`
	Gibberish      int       `json:"gibberish"`
	TooShort       int       `json:"too_short"`
	Outliers       int       `json:"outliers"`
	Retained       int       `json:"retained"`
	Threshold      float64   `json:"threshold"`
	Embedded       bool      `json:"embedded"`
	EmbeddingModel string    `json:"embedding_model"`
	DurationMs     int64     `json:"duration_ms"`
	CreatedAt      time.Time `json:"created_at"`
}

// FromResult summarizes a pipeline result. source names where the batch came from:
// a file path, "http" or an NSQ topic.
func FromResult(source string, res *pipeline.Result) *Run {
	return &Run{
		ID:             res.RunID,
		Source:         source,
		Total:          res.Stats.Total,
		Empty:          res.Stats.Empty,
		Gibberish:      res.Stats.Gibberish,
		TooShort:       res.Stats.TooShort,
		Outliers:       res.Stats.Outliers,
		Retained:       res.Stats.Retained,
		Threshold:      res.Threshold,
		Embedded:       res.Embedded,
		EmbeddingModel: res.EmbeddingModel,
		DurationMs:     res.Duration.Milliseconds(),
	}
}
