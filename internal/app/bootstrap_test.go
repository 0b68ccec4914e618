package app_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"murmur/internal/app"
	"murmur/internal/config"
)

type mockSchemaStore struct {
	err       error
	callCount int
	failUntil int
}

func (m *mockSchemaStore) EnsureSchema(ctx context.Context) error {
	m.callCount++
	if m.err != nil {
		return m.err
	}
	if m.callCount <= m.failUntil {
		return errors.New("schema error")
	}
	return nil
}

func TestEnsureSchemaWithRetry_Success(t *testing.T) {
	store := &mockSchemaStore{}
	err := app.EnsureSchemaWithRetry(context.Background(), store, 1, time.Millisecond)
	assert.NoError(t, err)
	assert.Equal(t, 1, store.callCount)
}

func TestEnsureSchemaWithRetry_Retries(t *testing.T) {
	store := &mockSchemaStore{failUntil: 2}
	err := app.EnsureSchemaWithRetry(context.Background(), store, 5, time.Millisecond)
	assert.NoError(t, err)
	assert.Equal(t, 3, store.callCount)
}

func TestEnsureSchemaWithRetry_Fail(t *testing.T) {
	store := &mockSchemaStore{err: errors.New("permanent error")}
	err := app.EnsureSchemaWithRetry(context.Background(), store, 3, time.Millisecond)
	assert.EqualError(t, err, "permanent error")
	assert.Equal(t, 3, store.callCount)
}

func TestBootstrap_NothingEnabled(t *testing.T) {
	deps, err := app.Bootstrap(context.Background(), &config.Config{})
	require.NoError(t, err)
	assert.Nil(t, deps.DB)
	assert.Nil(t, deps.VectorStore)
	assert.Nil(t, deps.NSQProducer)
	deps.Close()
}

func TestBootstrap_Resilience_DBDown(t *testing.T) {
	cfg := &config.Config{
		EnableRunLedger:            true,
		DBHost:                     "localhost",
		DBPort:                     54322,
		DBUser:                     "test",
		DBPass:                     "test",
		DBName:                     "test",
		BootstrapRetryAttempts:     1,
		BootstrapRetryDelaySeconds: 0,
	}

	start := time.Now()
	deps, err := app.Bootstrap(context.Background(), cfg)

	assert.Error(t, err)
	assert.Nil(t, deps)
	assert.Contains(t, err.Error(), "failed to ping db")
	assert.Less(t, time.Since(start), 5*time.Second)
}
