package worker

import (
	"bytes"
	"encoding/json"
	"fmt"
	"log/slog"

	"github.com/google/uuid"

	"murmur/internal/comment"
	"murmur/internal/config"
	"murmur/internal/dataset"
)

// Publisher sends freshly acquired comments to the cleaning workers.
type Publisher struct {
	producer TaskPublisher
}

func NewPublisher(p TaskPublisher) *Publisher {
	return &Publisher{producer: p}
}

// PublishRaw enqueues records as one comments.raw batch and returns its run id. An
// empty textField leaves column discovery to the consumer.
func (p *Publisher) PublishRaw(source, textField string, records []comment.RawRecord) (string, error) {
	var data bytes.Buffer
	if err := dataset.EncodeRawJSON(&data, records); err != nil {
		return "", err
	}

	payload := RawBatchPayload{
		RunID:     uuid.New().String(),
		Source:    source,
		TextField: textField,
		Records:   data.Bytes(),
	}
	body, err := json.Marshal(payload)
	if err != nil {
		return "", fmt.Errorf("failed to encode batch: %w", err)
	}
	if err := p.producer.Publish(config.TopicCommentsRaw, body); err != nil {
		return "", fmt.Errorf("failed to publish batch: %w", err)
	}

	slog.Info("raw batch published", "run_id", payload.RunID, "records", len(records), "topic", config.TopicCommentsRaw)
	return payload.RunID, nil
}
