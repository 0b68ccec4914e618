package worker_test

import (
	"context"

	"github.com/stretchr/testify/mock"

	"murmur/features/clean"
	"murmur/features/job"
	"murmur/internal/pipeline"
)

type MockCleaner struct{ mock.Mock }

func (m *MockCleaner) Clean(ctx context.Context, req clean.Request) (*pipeline.Result, error) {
	args := m.Called(ctx, req)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*pipeline.Result), args.Error(1)
}

type MockTaskPublisher struct{ mock.Mock }

func (m *MockTaskPublisher) Publish(topic string, body []byte) error {
	args := m.Called(topic, body)
	return args.Error(0)
}

type MockFailureStore struct{ mock.Mock }

func (m *MockFailureStore) Save(ctx context.Context, j *job.Job) error {
	args := m.Called(ctx, j)
	return args.Error(0)
}
