package worker_test

import (
	"bytes"
	"encoding/json"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"murmur/internal/comment"
	"murmur/internal/config"
	"murmur/internal/dataset"
	"murmur/internal/worker"
)

func TestPublisher_PublishRaw(t *testing.T) {
	records := []comment.RawRecord{
		{Text: "nice riff", Fields: []comment.Field{{Name: "author", Value: "ann"}, {Name: "comment", Value: "nice riff"}}},
	}

	t.Run("Success", func(t *testing.T) {
		p := new(MockTaskPublisher)
		var payload worker.RawBatchPayload
		p.On("Publish", config.TopicCommentsRaw, mock.Anything).Run(func(args mock.Arguments) {
			require.NoError(t, json.Unmarshal(args.Get(1).([]byte), &payload))
		}).Return(nil).Once()

		runID, err := worker.NewPublisher(p).PublishRaw("yt:abc", "comment", records)
		require.NoError(t, err)
		assert.Equal(t, runID, payload.RunID)
		assert.Equal(t, "yt:abc", payload.Source)
		assert.Equal(t, "comment", payload.TextField)

		decoded, columns, err := dataset.ReadJSON(bytes.NewReader(payload.Records), payload.TextField)
		require.NoError(t, err)
		assert.Equal(t, []string{"author", "comment"}, columns)
		assert.Equal(t, "nice riff", decoded[0].Text)
	})

	t.Run("Producer Error", func(t *testing.T) {
		p := new(MockTaskPublisher)
		p.On("Publish", mock.Anything, mock.Anything).Return(errors.New("refused")).Once()

		_, err := worker.NewPublisher(p).PublishRaw("x", "", records)
		assert.ErrorContains(t, err, "refused")
	})
}
