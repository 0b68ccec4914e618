package worker

import (
	"context"

	"murmur/features/clean"
	"murmur/features/job"
	"murmur/internal/pipeline"
)

// Cleaner runs one comment batch through the pipeline and its sinks.
type Cleaner interface {
	Clean(ctx context.Context, req clean.Request) (*pipeline.Result, error)
}

// TaskPublisher is satisfied by *nsq.Producer.
type TaskPublisher interface {
	Publish(topic string, body []byte) error
}

// FailureStore keeps batches that exhausted their delivery attempts.
type FailureStore interface {
	Save(ctx context.Context, j *job.Job) error
}
