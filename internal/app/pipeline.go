package app

import (
	"context"
	"fmt"
	"log/slog"

	"murmur/internal/adapter/gemini"
	"murmur/internal/adapter/hashing"
	"murmur/internal/config"
	"murmur/internal/outlier"
	"murmur/internal/pipeline"
	"murmur/internal/text"
	"murmur/internal/vocabulary"
)

// Embedder is an outlier embedder that names its model for the run ledger.
type Embedder interface {
	outlier.Embedder
	Model() string
}

// NewEmbedder builds and probes the configured embedding provider. It returns nil
// when embedding is disabled. A gemini embedder must be closed by the caller.
func NewEmbedder(ctx context.Context, cfg *config.Config) (Embedder, error) {
	if !cfg.EmbeddingEnabled {
		return nil, nil
	}

	switch cfg.EmbeddingProvider {
	case config.ProviderHashing:
		e := hashing.NewEmbedder(cfg.EmbeddingDimensions)
		slog.Info("embedder ready", "provider", cfg.EmbeddingProvider, "dimensions", e.Dimension())
		return e, nil
	case config.ProviderGemini:
		if err := cfg.RequireGeminiKey(); err != nil {
			return nil, err
		}
		e, err := gemini.NewEmbedder(ctx, cfg.GeminiAPIKey, cfg.EmbeddingModel)
		if err != nil {
			return nil, err
		}
		dim, err := e.Probe(ctx)
		if err != nil {
			_ = e.Close()
			return nil, err
		}
		slog.Info("embedder ready", "provider", cfg.EmbeddingProvider, "model", e.Model(), "dimensions", dim)
		return e, nil
	}
	return nil, fmt.Errorf("%w: EMBEDDING_PROVIDER %q", config.ErrInvalidValue, cfg.EmbeddingProvider)
}

// NewPipeline assembles the cleaning stages from configuration. A nil embedder
// leaves out the outlier stage.
func NewPipeline(cfg *config.Config, embedder Embedder) (*pipeline.Pipeline, error) {
	vocab, err := vocabulary.New(vocabulary.Options{
		Languages:      cfg.StopwordLanguages,
		StopwordsFile:  cfg.StopwordsFile,
		DictionaryFile: cfg.DictionaryFile,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to load vocabulary: %w", err)
	}

	repairer, err := text.NewRepairer(cfg.RepairCodec)
	if err != nil {
		return nil, err
	}

	opts := pipeline.Options{
		Normalizer:  text.NewNormalizer(text.Mode(cfg.NormalizerMode)),
		Repairer:    repairer,
		Gibberish:   text.NewGibberishDetector(cfg.GibberishMinAlnumRun, cfg.GibberishMinSymbolRun),
		Vocabulary:  vocab,
		MinTokens:   cfg.MinTokens,
		Concurrency: cfg.CleanConcurrency,
		Threshold:   cfg.SimilarityThreshold,
	}
	if embedder != nil {
		batchSize := cfg.EmbeddingBatchSize
		if cfg.EmbeddingProvider == config.ProviderGemini {
			batchSize = min(batchSize, gemini.MaxBatchSize)
		}
		opts.Filter = outlier.NewFilter(embedder, outlier.Options{BatchSize: batchSize})
		opts.EmbeddingModel = embedder.Model()
	}

	slog.Info("pipeline configured",
		"languages", vocab.Languages(),
		"normalizer", cfg.NormalizerMode,
		"codec", repairer.Codec(),
		"min_tokens", cfg.MinTokens,
		"embedding", embedder != nil,
		"threshold", cfg.SimilarityThreshold)
	return pipeline.New(opts)
}
