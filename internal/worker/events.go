package worker

import (
	"encoding/json"

	"murmur/internal/pipeline"
)

// RawBatchPayload is the body of a comments.raw message. Records is a JSON array of
// flat objects, the same shape POST /clean accepts.
type RawBatchPayload struct {
	RunID         string          `json:"run_id,omitempty"`
	Source        string          `json:"source,omitempty"`
	TextField     string          `json:"text_field,omitempty"`
	Threshold     *float64        `json:"threshold,omitempty"`
	Records       json.RawMessage `json:"records"`
	CorrelationID string          `json:"correlation_id,omitempty"`
}

// CleanedBatchPayload is the body of a comments.cleaned message.
type CleanedBatchPayload struct {
	RunID          string          `json:"run_id"`
	Source         string          `json:"source,omitempty"`
	Stats          pipeline.Stats  `json:"stats"`
	Embedded       bool            `json:"embedded"`
	Threshold      float64         `json:"threshold"`
	EmbeddingModel string          `json:"embedding_model,omitempty"`
	Records        json.RawMessage `json:"records"`
	CorrelationID  string          `json:"correlation_id,omitempty"`
}
