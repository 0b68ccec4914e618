package run_test

import (
	"bytes"
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"murmur/features/run"
	"murmur/internal/middleware"
	"murmur/internal/pipeline"
)

type MockRepo struct {
	mock.Mock
}

func (m *MockRepo) Save(ctx context.Context, r *run.Run) error {
	return m.Called(ctx, r).Error(0)
}

func (m *MockRepo) List(ctx context.Context, limit int) ([]run.Run, error) {
	args := m.Called(ctx, limit)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]run.Run), args.Error(1)
}

func (m *MockRepo) Get(ctx context.Context, id string) (*run.Run, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*run.Run), args.Error(1)
}

func sampleResult() *pipeline.Result {
	return &pipeline.Result{
		RunID:          "run-1",
		Stats:          pipeline.Stats{Total: 6, Empty: 1, Gibberish: 1, TooShort: 1, Outliers: 1, Retained: 2},
		Embedded:       true,
		Threshold:      0.25,
		EmbeddingModel: "hashing",
		Duration:       1500 * time.Millisecond,
	}
}

func TestService_Record(t *testing.T) {
	t.Run("Saves And Reports", func(t *testing.T) {
		repo := new(MockRepo)
		var buf bytes.Buffer
		svc := run.NewService(repo, run.NewReportLogger(&buf))

		repo.On("Save", mock.Anything, mock.MatchedBy(func(r *run.Run) bool {
			return r.ID == "run-1" && r.Source == "in.csv" && r.Retained == 2 && r.DurationMs == 1500
		})).Return(nil).Once()

		ctx := middleware.WithCorrelationID(context.Background(), "corr-1")
		r, err := svc.Record(ctx, "in.csv", sampleResult())
		require.NoError(t, err)
		assert.Equal(t, 1, r.Outliers)
		repo.AssertExpectations(t)

		var entry map[string]interface{}
		require.NoError(t, json.Unmarshal(buf.Bytes(), &entry))
		assert.Equal(t, "run-1", entry["id"])
		assert.Equal(t, "corr-1", entry["correlation_id"])
		assert.Equal(t, float64(6), entry["total"])
		assert.NotEmpty(t, entry["timestamp"])
	})

	t.Run("Report Only", func(t *testing.T) {
		var buf bytes.Buffer
		svc := run.NewService(nil, run.NewReportLogger(&buf))
		assert.False(t, svc.LedgerEnabled())

		_, err := svc.Record(context.Background(), "comments.raw", sampleResult())
		require.NoError(t, err)

		var entry map[string]interface{}
		require.NoError(t, json.Unmarshal(buf.Bytes(), &entry))
		assert.NotContains(t, entry, "correlation_id")
	})

	t.Run("Save Failure", func(t *testing.T) {
		repo := new(MockRepo)
		var buf bytes.Buffer
		svc := run.NewService(repo, run.NewReportLogger(&buf))
		repo.On("Save", mock.Anything, mock.Anything).Return(errors.New("db down")).Once()

		_, err := svc.Record(context.Background(), "in.csv", sampleResult())
		assert.ErrorContains(t, err, "db down")
		assert.Zero(t, buf.Len())
	})
}

func TestService_ListAndGet(t *testing.T) {
	ctx := context.Background()

	t.Run("Ledger Disabled", func(t *testing.T) {
		svc := run.NewService(nil, nil)
		_, err := svc.List(ctx, 0)
		assert.ErrorIs(t, err, run.ErrLedgerDisabled)
		_, err = svc.Get(ctx, "x")
		assert.ErrorIs(t, err, run.ErrLedgerDisabled)
	})

	t.Run("Limit Defaults And Caps", func(t *testing.T) {
		repo := new(MockRepo)
		svc := run.NewService(repo, nil)
		repo.On("List", ctx, run.DefaultListLimit).Return([]run.Run{{ID: "a"}}, nil).Once()
		repo.On("List", ctx, run.MaxListLimit).Return([]run.Run{}, nil).Once()

		runs, err := svc.List(ctx, 0)
		require.NoError(t, err)
		assert.Len(t, runs, 1)

		_, err = svc.List(ctx, 10_000)
		require.NoError(t, err)
		repo.AssertExpectations(t)
	})

	t.Run("Not Found", func(t *testing.T) {
		repo := new(MockRepo)
		svc := run.NewService(repo, nil)
		repo.On("Get", ctx, "missing").Return(nil, sql.ErrNoRows).Once()

		_, err := svc.Get(ctx, "missing")
		assert.ErrorIs(t, err, run.ErrNotFound)
	})
}

func TestReportLogger_ThreadSafety(t *testing.T) {
	var buf bytes.Buffer
	logger := run.NewReportLogger(&buf)

	concurrency := 20
	iterations := 50
	var wg sync.WaitGroup

	wg.Add(concurrency)
	for i := 0; i < concurrency; i++ {
		go func() {
			defer wg.Done()
			for j := 0; j < iterations; j++ {
				logger.Log(run.ReportEntry{Run: run.Run{ID: "r", Total: j}})
			}
		}()
	}
	wg.Wait()

	decoder := json.NewDecoder(&buf)
	count := 0
	for decoder.More() {
		var entry run.ReportEntry
		require.NoError(t, decoder.Decode(&entry), "entry %d", count)
		count++
	}
	assert.Equal(t, concurrency*iterations, count)
}
