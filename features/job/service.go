package job

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"murmur/internal/config"
)

var publishTimeout = 5 * time.Second

var (
	ErrPublishTimeout     = errors.New("timeout waiting for NSQ publish")
	ErrPublisherDisabled  = errors.New("publisher is disabled")
	ErrDeadLetterDisabled = errors.New("failed job store is disabled")
)

type EventPublisher interface {
	Publish(topic string, body []byte) error
}

// Service lists dead-lettered batches and puts them back on comments.raw.
type Service struct {
	repo Repository
	pub  EventPublisher
}

// NewService accepts a nil repo or publisher; the dependent operations then fail
// with ErrDeadLetterDisabled or ErrPublisherDisabled.
func NewService(repo Repository, pub EventPublisher) *Service {
	return &Service{repo: repo, pub: pub}
}

func (s *Service) List(ctx context.Context) ([]Job, error) {
	if s.repo == nil {
		return nil, ErrDeadLetterDisabled
	}
	return s.repo.List(ctx)
}

func (s *Service) Retry(ctx context.Context, id string) error {
	if s.repo == nil {
		return ErrDeadLetterDisabled
	}
	if s.pub == nil {
		return ErrPublisherDisabled
	}

	job, err := s.repo.Get(ctx, id)
	if err != nil {
		return err
	}

	// nsq.Producer.Publish has no context; bound it here.
	done := make(chan error, 1)
	go func() {
		done <- s.pub.Publish(config.TopicCommentsRaw, job.Payload)
	}()
	select {
	case err := <-done:
		if err != nil {
			return err
		}
	case <-time.After(publishTimeout):
		return ErrPublishTimeout
	case <-ctx.Done():
		return ctx.Err()
	}

	slog.InfoContext(ctx, "failed job republished", "id", id, "run_id", job.RunID, "topic", config.TopicCommentsRaw)
	return s.repo.Delete(ctx, id)
}

func (s *Service) Count(ctx context.Context) (int, error) {
	if s.repo == nil {
		return 0, nil
	}
	return s.repo.Count(ctx)
}
