package stats

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"

	"murmur/features/run"
	"murmur/internal/middleware"
)

type RunRepo interface {
	Totals(ctx context.Context) (run.Totals, error)
}

type JobRepo interface {
	Count(ctx context.Context) (int, error)
}

type VectorStore interface {
	CountComments(ctx context.Context) (int, error)
}

// Handler reports totals across the run ledger, the dead-letter store and the
// vector sink. Any of them may be nil when its backend is disabled; its counts
// are then zero.
type Handler struct {
	runRepo     RunRepo
	jobRepo     JobRepo
	vectorStore VectorStore
}

func NewHandler(r RunRepo, j JobRepo, v VectorStore) *Handler {
	return &Handler{runRepo: r, jobRepo: j, vectorStore: v}
}

type StatsResponse struct {
	Runs           int `json:"runs"`
	Comments       int `json:"comments"`
	Retained       int `json:"retained"`
	Outliers       int `json:"outliers"`
	StoredComments int `json:"stored_comments"`
	FailedJobs     int `json:"failed_jobs"`
}

func (h *Handler) GetStats(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	correlationID := middleware.GetCorrelationID(ctx)

	slog.InfoContext(ctx, "getting stats", "correlationId", correlationID)

	var resp StatsResponse

	if h.runRepo != nil {
		totals, err := h.runRepo.Totals(ctx)
		if err != nil {
			slog.ErrorContext(ctx, "failed to total runs", "error", err, "correlationId", correlationID)
			h.writeError(ctx, w, "INTERNAL_ERROR", "failed to total runs", http.StatusInternalServerError)
			return
		}
		resp.Runs = totals.Runs
		resp.Comments = totals.Comments
		resp.Retained = totals.Retained
		resp.Outliers = totals.Outliers
	}

	if h.jobRepo != nil {
		n, err := h.jobRepo.Count(ctx)
		if err != nil {
			slog.ErrorContext(ctx, "failed to count jobs", "error", err, "correlationId", correlationID)
			h.writeError(ctx, w, "INTERNAL_ERROR", "failed to count jobs", http.StatusInternalServerError)
			return
		}
		resp.FailedJobs = n
	}

	if h.vectorStore != nil {
		n, err := h.vectorStore.CountComments(ctx)
		if err != nil {
			slog.ErrorContext(ctx, "failed to count stored comments", "error", err, "correlationId", correlationID)
			h.writeError(ctx, w, "INTERNAL_ERROR", "failed to count stored comments", http.StatusInternalServerError)
			return
		}
		resp.StoredComments = n
	}

	w.Header().Set("Content-Type", "application/json")
	if err := json.NewEncoder(w).Encode(map[string]interface{}{"data": resp}); err != nil {
		slog.ErrorContext(ctx, "failed to encode response", "error", err)
	}
}

func (h *Handler) writeError(ctx context.Context, w http.ResponseWriter, code, message string, status int) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)

	resp := map[string]interface{}{
		"error": map[string]string{
			"code":    code,
			"message": message,
		},
		"correlationId": middleware.GetCorrelationID(ctx),
	}

	if err := json.NewEncoder(w).Encode(resp); err != nil {
		slog.Error("failed to encode error response", "error", err)
	}
}
