package gemini

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/google/generative-ai-go/genai"
	"google.golang.org/api/option"
)

const DefaultModel = "gemini-embedding-001"

// MaxBatchSize is the largest request batchEmbedContents accepts.
const MaxBatchSize = 100

var (
	ErrEmbedderUnavailable = errors.New("embedding model unavailable")
	ErrEmptyEmbedding      = errors.New("empty embedding received")
)

// Embedder wraps one genai client and model; build it once per process and share it.
type Embedder struct {
	client *genai.Client
	model  string
}

func NewEmbedder(ctx context.Context, apiKey, model string, opts ...option.ClientOption) (*Embedder, error) {
	if apiKey == "" {
		return nil, fmt.Errorf("%w: gemini api key not configured", ErrEmbedderUnavailable)
	}
	if model == "" {
		model = DefaultModel
	}
	opts = append(opts, option.WithAPIKey(apiKey))
	client, err := genai.NewClient(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrEmbedderUnavailable, err)
	}
	return &Embedder{client: client, model: model}, nil
}

func (e *Embedder) Model() string {
	return e.model
}

func (e *Embedder) Embed(ctx context.Context, text string) ([]float32, error) {
	slog.DebugContext(ctx, "embedding content", "model", e.model, "length", len(text))
	em := e.client.EmbeddingModel(e.model)
	res, err := em.EmbedContent(ctx, genai.Text(text))
	if err != nil {
		slog.ErrorContext(ctx, "embedding failed", "error", err)
		return nil, err
	}
	if res.Embedding == nil || len(res.Embedding.Values) == 0 {
		return nil, ErrEmptyEmbedding
	}
	return res.Embedding.Values, nil
}

func (e *Embedder) EmbedBatch(ctx context.Context, texts []string) ([][]float32, error) {
	if len(texts) == 0 {
		return nil, nil
	}
	if len(texts) > MaxBatchSize {
		return nil, fmt.Errorf("batch of %d exceeds limit of %d", len(texts), MaxBatchSize)
	}

	slog.DebugContext(ctx, "embedding batch", "model", e.model, "size", len(texts))
	em := e.client.EmbeddingModel(e.model)
	batch := em.NewBatch()
	for _, t := range texts {
		batch.AddContent(genai.Text(t))
	}

	res, err := em.BatchEmbedContents(ctx, batch)
	if err != nil {
		slog.ErrorContext(ctx, "batch embedding failed", "error", err, "size", len(texts))
		return nil, err
	}
	if len(res.Embeddings) != len(texts) {
		return nil, fmt.Errorf("got %d embeddings for %d texts", len(res.Embeddings), len(texts))
	}

	out := make([][]float32, len(texts))
	for i, emb := range res.Embeddings {
		if emb == nil || len(emb.Values) == 0 {
			return nil, fmt.Errorf("%w: item %d", ErrEmptyEmbedding, i)
		}
		out[i] = emb.Values
	}
	return out, nil
}

// Probe embeds a short text to confirm the model answers before a run starts, and
// reports the vector dimension.
func (e *Embedder) Probe(ctx context.Context) (int, error) {
	vec, err := e.Embed(ctx, "probe")
	if err != nil {
		return 0, fmt.Errorf("%w: %s: %v", ErrEmbedderUnavailable, e.model, err)
	}
	return len(vec), nil
}

func (e *Embedder) Close() error {
	return e.client.Close()
}
