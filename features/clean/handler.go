package clean

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"

	"murmur/internal/dataset"
	"murmur/internal/middleware"
	"murmur/internal/outlier"
)

// maxBodyBytes bounds one POST /clean request.
const maxBodyBytes = 32 << 20

type Handler struct {
	service *Service
}

func NewHandler(s *Service) *Handler {
	return &Handler{service: s}
}

type cleanRequest struct {
	Records   json.RawMessage `json:"records"`
	TextField string          `json:"text_field"`
	Threshold *float64        `json:"threshold"`
}

type cleanMeta struct {
	RunID          string  `json:"run_id"`
	Total          int     `json:"total"`
	Empty          int     `json:"empty"`
	Gibberish      int     `json:"gibberish"`
	TooShort       int     `json:"too_short"`
	Outliers       int     `json:"outliers"`
	Retained       int     `json:"retained"`
	Embedded       bool    `json:"embedded"`
	Threshold      float64 `json:"threshold"`
	EmbeddingModel string  `json:"embedding_model,omitempty"`
}

func (h *Handler) Clean(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	correlationID := middleware.GetCorrelationID(ctx)

	var req cleanRequest
	if err := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxBodyBytes)).Decode(&req); err != nil {
		h.writeError(ctx, w, "INVALID_JSON", "Invalid request body", http.StatusBadRequest)
		return
	}
	if len(req.Records) == 0 {
		h.writeError(ctx, w, "VALIDATION_ERROR", "records is required", http.StatusBadRequest)
		return
	}

	records, columns, err := dataset.ReadJSON(bytes.NewReader(req.Records), req.TextField)
	if err != nil {
		h.writeError(ctx, w, "VALIDATION_ERROR", err.Error(), http.StatusBadRequest)
		return
	}

	slog.InfoContext(ctx, "clean request received", "records", len(records), "correlationId", correlationID)

	res, err := h.service.Clean(ctx, Request{Source: "http", Records: records, Threshold: req.Threshold})
	if err != nil {
		slog.ErrorContext(ctx, "failed to clean batch", "error", err, "correlationId", correlationID)
		switch {
		case errors.Is(err, ErrInvalidThreshold):
			h.writeError(ctx, w, "VALIDATION_ERROR", err.Error(), http.StatusBadRequest)
		case errors.Is(err, outlier.ErrDimensionMismatch):
			h.writeError(ctx, w, "EMBEDDING_ERROR", err.Error(), http.StatusBadGateway)
		default:
			h.writeError(ctx, w, "INTERNAL_ERROR", err.Error(), http.StatusInternalServerError)
		}
		return
	}

	var data bytes.Buffer
	if err := dataset.EncodeJSON(&data, columns, res.Records, dataset.WriteOptions{Similarity: res.Embedded}); err != nil {
		h.writeError(ctx, w, "INTERNAL_ERROR", err.Error(), http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	resp := map[string]interface{}{
		"data": json.RawMessage(data.Bytes()),
		"meta": cleanMeta{
			RunID:          res.RunID,
			Total:          res.Stats.Total,
			Empty:          res.Stats.Empty,
			Gibberish:      res.Stats.Gibberish,
			TooShort:       res.Stats.TooShort,
			Outliers:       res.Stats.Outliers,
			Retained:       res.Stats.Retained,
			Embedded:       res.Embedded,
			Threshold:      res.Threshold,
			EmbeddingModel: res.EmbeddingModel,
		},
	}
	if err := json.NewEncoder(w).Encode(resp); err != nil {
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
