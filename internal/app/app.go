package app

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"

	"murmur/features/clean"
	"murmur/features/job"
	"murmur/features/run"
	"murmur/features/stats"
	"murmur/internal/config"
	"murmur/internal/middleware"
	"murmur/internal/pipeline"
	"murmur/internal/worker"
)

type App struct {
	Handler       http.Handler
	CleanService  *clean.Service
	RunService    *run.Service
	JobService    *job.Service
	BatchConsumer *worker.BatchConsumer
	port          int
}

func New(cfg *config.Config, p *pipeline.Pipeline, deps *Dependencies) (*App, error) {
	if p == nil {
		return nil, errors.New("app requires a pipeline")
	}
	if deps == nil {
		deps = &Dependencies{}
	}

	// Feature: Run ledger
	report, err := run.NewFileReportLogger(cfg.RunLogPath)
	if err != nil {
		slog.Warn("failed to create run report logger, falling back to stdout", "error", err)
		report = run.NewReportLogger(os.Stdout)
	}
	var (
		runRepo    run.Repository
		runTotals  stats.RunRepo
		jobRepo    job.Repository
		jobCounter stats.JobRepo
	)
	if deps.DB != nil {
		pgRuns := run.NewPostgresRepo(deps.DB)
		runRepo, runTotals = pgRuns, pgRuns
		pgJobs := job.NewPostgresRepo(deps.DB)
		jobRepo, jobCounter = pgJobs, pgJobs
	}
	runService := run.NewService(runRepo, report)
	runHandler := run.NewHandler(runService)

	// Feature: Clean
	var (
		store        clean.VectorStore
		storeCounter stats.VectorStore
	)
	if deps.VectorStore != nil {
		store, storeCounter = deps.VectorStore, deps.VectorStore
	}
	cleanService := clean.NewService(p, store, runService)
	cleanHandler := clean.NewHandler(cleanService)

	// Worker
	var publisher worker.TaskPublisher
	if deps.NSQProducer != nil {
		publisher = deps.NSQProducer
	}
	batchConsumer := worker.NewBatchConsumer(cleanService, publisher)
	if jobRepo != nil {
		batchConsumer.WithDeadLetter(jobRepo, cfg.NSQMaxAttempts)
	}

	// Feature: Failed jobs
	jobService := job.NewService(jobRepo, publisher)
	jobHandler := job.NewHandler(jobService)

	// Feature: Stats
	statsHandler := stats.NewHandler(runTotals, jobCounter, storeCounter)

	// Routes
	mux := http.NewServeMux()
	mux.Handle("POST /clean", middleware.CorrelationID(http.HandlerFunc(cleanHandler.Clean)))
	mux.Handle("GET /runs", middleware.CorrelationID(http.HandlerFunc(runHandler.List)))
	mux.Handle("GET /runs/{id}", middleware.CorrelationID(http.HandlerFunc(runHandler.Get)))
	mux.Handle("GET /jobs/failed", middleware.CorrelationID(http.HandlerFunc(jobHandler.List)))
	mux.Handle("POST /jobs/{id}/retry", middleware.CorrelationID(http.HandlerFunc(jobHandler.Retry)))
	mux.Handle("GET /stats", middleware.CorrelationID(http.HandlerFunc(statsHandler.GetStats)))

	mux.HandleFunc("GET /health", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte(`{"status":"ok"}`))
	})

	return &App{
		Handler:       mux,
		CleanService:  cleanService,
		RunService:    runService,
		JobService:    jobService,
		BatchConsumer: batchConsumer,
		port:          cfg.ServerPort,
	}, nil
}

func (a *App) Run(ctx context.Context) error {
	srv := &http.Server{
		Addr:    fmt.Sprintf(":%d", a.port),
		Handler: a.Handler,
	}

	go func() {
		<-ctx.Done()
		slog.Info("shutting down server...")
		if err := srv.Shutdown(context.Background()); err != nil {
			slog.Error("server shutdown failed", "error", err)
		}
	}()

	slog.Info("server starting", "port", a.port)
	if err := srv.ListenAndServe(); !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}
