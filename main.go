package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/google/uuid"

	"murmur/features/clean"
	"murmur/internal/adapter/youtube"
	"murmur/internal/app"
	"murmur/internal/config"
	"murmur/internal/dataset"
	"murmur/internal/logger"
	"murmur/internal/middleware"
	"murmur/internal/worker"
)

const usage = `usage: murmur <command> [flags]

commands:
  clean   clean a CSV or JSON comment table
  fetch   download the comments of a YouTube video
  serve   run the HTTP API and the NSQ batch worker`

var errUsage = errors.New("invalid usage")

func main() {
	level := new(slog.LevelVar)
	handler := logger.NewContextHandler(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{Level: level}))
	slog.SetDefault(slog.New(handler))

	cfg, err := config.Load()
	if err != nil {
		slog.Error("failed to load config", "error", err)
		os.Exit(1)
	}
	level.Set(cfg.SlogLevel())

	if err := execute(cfg, os.Args[1:]); err != nil {
		if errors.Is(err, errUsage) || errors.Is(err, flag.ErrHelp) {
			fmt.Fprintln(os.Stderr, usage)
		}
		slog.Error("command failed", "error", err)
		os.Exit(1)
	}
}

func execute(cfg *config.Config, args []string) error {
	if len(args) == 0 {
		return errUsage
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	switch args[0] {
	case "clean":
		return cleanCommand(ctx, cfg, args[1:])
	case "fetch":
		return fetchCommand(ctx, cfg, args[1:])
	case "serve":
		return run(ctx, cfg)
	}
	return fmt.Errorf("%w: unknown command %q", errUsage, args[0])
}

type cleanFlags struct {
	input     string
	output    string
	textField string
	threshold float64
	noEmbed   bool
	format    string
}

func parseCleanFlags(cfg *config.Config, args []string) (cleanFlags, error) {
	var f cleanFlags
	fs := flag.NewFlagSet("clean", flag.ContinueOnError)
	fs.StringVar(&f.input, "input", "", "input table (.csv or .json)")
	fs.StringVar(&f.output, "output", "", "output table (.csv or .json)")
	fs.StringVar(&f.textField, "text-field", cfg.TextField, "column holding the comment text")
	fs.Float64Var(&f.threshold, "threshold", cfg.SimilarityThreshold, "minimum cosine similarity to the batch centroid")
	fs.BoolVar(&f.noEmbed, "no-embed", !cfg.EmbeddingEnabled, "skip the embedding outlier filter")
	fs.StringVar(&f.format, "format", "", "output format, csv or json (default from --output extension)")
	if err := fs.Parse(args); err != nil {
		return f, err
	}

	if f.input == "" || f.output == "" {
		return f, fmt.Errorf("%w: --input and --output are required", errUsage)
	}
	if f.threshold < -1 || f.threshold > 1 {
		return f, fmt.Errorf("%w: --threshold must be within [-1, 1]", config.ErrInvalidValue)
	}
	if f.format == "" {
		format, err := dataset.FormatFromPath(f.output)
		if err != nil {
			return f, err
		}
		f.format = string(format)
	}
	switch dataset.Format(f.format) {
	case dataset.FormatCSV, dataset.FormatJSON:
	default:
		return f, fmt.Errorf("%w: %s", dataset.ErrUnsupportedFormat, f.format)
	}
	return f, nil
}

func cleanCommand(ctx context.Context, cfg *config.Config, args []string) error {
	f, err := parseCleanFlags(cfg, args)
	if err != nil {
		return err
	}
	cfg.EmbeddingEnabled = !f.noEmbed

	ctx = middleware.WithRunID(ctx, uuid.New().String())

	records, columns, err := dataset.ReadFile(f.input, f.textField)
	if err != nil {
		return err
	}

	embedder, err := app.NewEmbedder(ctx, cfg)
	if err != nil {
		return err
	}
	if c, ok := embedder.(io.Closer); ok {
		defer c.Close()
	}

	p, err := app.NewPipeline(cfg, embedder)
	if err != nil {
		return err
	}

	// Only the ledger and vector sink matter for a one-shot run.
	cfg.EnablePublisher = false
	cfg.EnableConsumer = false
	deps, err := app.Bootstrap(ctx, cfg)
	if err != nil {
		return err
	}
	defer deps.Close()

	a, err := app.New(cfg, p, deps)
	if err != nil {
		return err
	}

	res, err := a.CleanService.Clean(ctx, clean.Request{Source: f.input, Records: records, Threshold: &f.threshold})
	if err != nil {
		return err
	}

	opts := dataset.WriteOptions{BOM: cfg.OutputBOM, Similarity: res.Embedded}
	if err := dataset.WriteFile(f.output, dataset.Format(f.format), columns, res.Records, opts); err != nil {
		return err
	}

	slog.InfoContext(ctx, "clean finished",
		"input", f.input,
		"output", f.output,
		"total", res.Stats.Total,
		"retained", res.Stats.Retained,
		"gibberish", res.Stats.Gibberish,
		"too_short", res.Stats.TooShort,
		"outliers", res.Stats.Outliers,
		"duration", res.Duration)
	return nil
}

// Default raw export paths for fetched comments.
const (
	defaultFetchJSON = "data/raw/youtube_comments.json"
	defaultFetchCSV  = "data/raw/youtube_comments.csv"
)

type fetchFlags struct {
	videoID string
	outJSON string
	outCSV  string
}

// parseFetchFlags writes both raw exports by default; an empty path skips one.
func parseFetchFlags(cfg *config.Config, args []string) (fetchFlags, error) {
	var f fetchFlags
	fs := flag.NewFlagSet("fetch", flag.ContinueOnError)
	fs.StringVar(&f.videoID, "video-id", "", "YouTube video id")
	fs.StringVar(&f.outJSON, "out-json", defaultFetchJSON, "write fetched comments as JSON (empty to skip)")
	fs.StringVar(&f.outCSV, "out-csv", defaultFetchCSV, "write fetched comments as CSV (empty to skip)")
	if err := fs.Parse(args); err != nil {
		return f, err
	}
	if f.videoID == "" {
		return f, fmt.Errorf("%w: --video-id is required", errUsage)
	}
	if f.outJSON == "" && f.outCSV == "" && !cfg.EnablePublisher {
		return f, fmt.Errorf("%w: set --out-json, --out-csv or ENABLE_PUBLISHER", errUsage)
	}
	return f, nil
}

func fetchCommand(ctx context.Context, cfg *config.Config, args []string) error {
	f, err := parseFetchFlags(cfg, args)
	if err != nil {
		return err
	}
	if err := cfg.RequireYouTubeKey(); err != nil {
		return err
	}

	client, err := youtube.NewClient(ctx, cfg.YouTubeAPIKey)
	if err != nil {
		return err
	}
	records, err := client.FetchComments(ctx, f.videoID)
	if err != nil {
		return err
	}

	if f.outJSON != "" {
		if err := dataset.WriteRawJSON(f.outJSON, records); err != nil {
			return err
		}
		slog.Info("comments written", "path", f.outJSON, "count", len(records))
	}
	if f.outCSV != "" {
		if err := dataset.WriteRawCSV(f.outCSV, records, cfg.OutputBOM); err != nil {
			return err
		}
		slog.Info("comments written", "path", f.outCSV, "count", len(records))
	}

	if cfg.EnablePublisher {
		deps, err := app.Bootstrap(ctx, &config.Config{EnablePublisher: true, NSQDHost: cfg.NSQDHost, NSQDHTTP: cfg.NSQDHTTP})
		if err != nil {
			return err
		}
		defer deps.Close()

		runID, err := worker.NewPublisher(deps.NSQProducer).PublishRaw("youtube:"+f.videoID, "comment", records)
		if err != nil {
			return err
		}
		slog.Info("comments queued for cleaning", "run_id", runID, "count", len(records))
	}
	return nil
}

// run serves the HTTP API, and consumes comments.raw when the consumer is enabled,
// until ctx is cancelled.
func run(ctx context.Context, cfg *config.Config) error {
	deps, err := app.Bootstrap(ctx, cfg)
	if err != nil {
		return err
	}
	defer deps.Close()

	embedder, err := app.NewEmbedder(ctx, cfg)
	if err != nil {
		return err
	}
	if c, ok := embedder.(io.Closer); ok {
		defer c.Close()
	}

	p, err := app.NewPipeline(cfg, embedder)
	if err != nil {
		return err
	}

	a, err := app.New(cfg, p, deps)
	if err != nil {
		return err
	}

	if cfg.EnableConsumer {
		consumer, err := app.StartConsumer(cfg, a.BatchConsumer)
		if err != nil {
			return err
		}
		defer consumer.Stop()
	}

	return a.Run(ctx)
}
