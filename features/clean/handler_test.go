package clean_test

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"murmur/features/clean"
	"murmur/internal/middleware"
)

type cleanResponse struct {
	Data []map[string]interface{} `json:"data"`
	Meta struct {
		RunID    string `json:"run_id"`
		Total    int    `json:"total"`
		TooShort int    `json:"too_short"`
		Retained int    `json:"retained"`
		Embedded bool   `json:"embedded"`
	} `json:"meta"`
}

func serve(h *clean.Handler, body string) *httptest.ResponseRecorder {
	req := httptest.NewRequest("POST", "/clean", strings.NewReader(body))
	w := httptest.NewRecorder()
	middleware.CorrelationID(http.HandlerFunc(h.Clean)).ServeHTTP(w, req)
	return w
}

func TestHandler_Clean(t *testing.T) {
	t.Run("Success", func(t *testing.T) {
		h := clean.NewHandler(clean.NewService(newPipeline(t, nil, 0.25), nil, nil))
		body := `{"records":[{"author":"ann","comment":"Great guitar solo tonight!!!"},{"author":"bob","comment":"ok"}]}`

		w := serve(h, body)
		require.Equal(t, http.StatusOK, w.Code)

		var resp cleanResponse
		require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
		assert.Equal(t, 2, resp.Meta.Total)
		assert.Equal(t, 1, resp.Meta.TooShort)
		assert.Equal(t, 1, resp.Meta.Retained)
		assert.False(t, resp.Meta.Embedded)
		assert.NotEmpty(t, resp.Meta.RunID)

		require.Len(t, resp.Data, 1)
		assert.Equal(t, "ann", resp.Data[0]["author"])
		assert.Equal(t, "great guitar solo tonight", resp.Data[0]["clean_text"])
		assert.NotContains(t, resp.Data[0], "similarity")
	})

	t.Run("Explicit Text Field With Similarity", func(t *testing.T) {
		h := clean.NewHandler(clean.NewService(hashingPipeline(t, -1), nil, nil))
		body := `{"text_field":"body","records":[{"id":1,"body":"lovely melody every time"},{"id":2,"body":"great guitar solo tonight"}]}`

		w := serve(h, body)
		require.Equal(t, http.StatusOK, w.Code)

		var resp cleanResponse
		require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
		assert.True(t, resp.Meta.Embedded)
		require.Len(t, resp.Data, 2)
		assert.Equal(t, "1", resp.Data[0]["id"])
		assert.IsType(t, float64(0), resp.Data[0]["similarity"])
	})

	t.Run("Invalid JSON", func(t *testing.T) {
		h := clean.NewHandler(clean.NewService(newPipeline(t, nil, 0.25), nil, nil))

		w := serve(h, `{"records":`)
		assert.Equal(t, http.StatusBadRequest, w.Code)
		assert.Contains(t, w.Body.String(), "INVALID_JSON")
		assert.NotEmpty(t, w.Header().Get("X-Correlation-ID"))
	})

	t.Run("Missing Records", func(t *testing.T) {
		h := clean.NewHandler(clean.NewService(newPipeline(t, nil, 0.25), nil, nil))

		w := serve(h, `{"text_field":"comment"}`)
		assert.Equal(t, http.StatusBadRequest, w.Code)
		assert.Contains(t, w.Body.String(), "records is required")
	})

	t.Run("Unknown Text Field", func(t *testing.T) {
		h := clean.NewHandler(clean.NewService(newPipeline(t, nil, 0.25), nil, nil))

		w := serve(h, `{"text_field":"nope","records":[{"comment":"hello there"}]}`)
		assert.Equal(t, http.StatusBadRequest, w.Code)
		assert.Contains(t, w.Body.String(), "no text field found")
	})

	t.Run("Invalid Threshold", func(t *testing.T) {
		h := clean.NewHandler(clean.NewService(newPipeline(t, nil, 0.25), nil, nil))

		w := serve(h, `{"threshold":3,"records":[{"comment":"hello there"}]}`)
		assert.Equal(t, http.StatusBadRequest, w.Code)
	})

	t.Run("Embedding Failure", func(t *testing.T) {
		h := clean.NewHandler(clean.NewService(newPipeline(t, brokenEmbedder{}, 0.25), nil, nil))

		w := serve(h, `{"records":[{"comment":"great guitar solo tonight"}]}`)
		assert.Equal(t, http.StatusInternalServerError, w.Code)
	})
}
