package clean_test

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"murmur/features/run"
	"murmur/internal/adapter/hashing"
	"murmur/internal/comment"
	"murmur/internal/outlier"
	"murmur/internal/pipeline"
	"murmur/internal/vocabulary"
)

type MockStore struct{ mock.Mock }

func (m *MockStore) DeleteRun(ctx context.Context, runID string) error {
	return m.Called(ctx, runID).Error(0)
}

func (m *MockStore) StoreComments(ctx context.Context, runID string, records []comment.CleanedRecord) error {
	return m.Called(ctx, runID, records).Error(0)
}

type MockRecorder struct{ mock.Mock }

func (m *MockRecorder) Record(ctx context.Context, source string, res *pipeline.Result) (*run.Run, error) {
	args := m.Called(ctx, source, res)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*run.Run), args.Error(1)
}

type brokenEmbedder struct{}

func (brokenEmbedder) EmbedBatch(context.Context, []string) ([][]float32, error) {
	return nil, errors.New("quota exceeded")
}

func newPipeline(t *testing.T, e outlier.Embedder, threshold float64) *pipeline.Pipeline {
	t.Helper()
	opts := pipeline.Options{
		Vocabulary: vocabulary.NewFromWords([]string{"the", "this", "is", "and"}, nil),
		Threshold:  threshold,
	}
	if e != nil {
		opts.Filter = outlier.NewFilter(e, outlier.Options{})
		opts.EmbeddingModel = "hashing"
	}
	p, err := pipeline.New(opts)
	require.NoError(t, err)
	return p
}

func hashingPipeline(t *testing.T, threshold float64) *pipeline.Pipeline {
	return newPipeline(t, hashing.NewEmbedder(64), threshold)
}

func records(texts ...string) []comment.RawRecord {
	out := make([]comment.RawRecord, len(texts))
	for i, text := range texts {
		out[i] = comment.RawRecord{
			Text:   text,
			Fields: []comment.Field{{Name: "text", Value: text}},
		}
	}
	return out
}
