package weaviate_test

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/weaviate/weaviate-go-client/v5/weaviate"

	adapter "murmur/internal/adapter/weaviate"
	"murmur/internal/comment"
	"murmur/internal/vector"
)

func mockWeaviate(t *testing.T, handler http.HandlerFunc) (*weaviate.Client, *httptest.Server) {
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path == "/v1/meta" {
			w.WriteHeader(http.StatusOK)
			w.Write([]byte(`{"version": "1.19.0"}`))
			return
		}
		handler(w, r)
	}))
	cfg := weaviate.Config{Host: ts.Listener.Addr().String(), Scheme: "http"}
	client, err := weaviate.NewClient(cfg)
	assert.NoError(t, err)
	return client, ts
}

func scored(text string, sim float64, vec []float32) comment.CleanedRecord {
	likes := 5
	published := time.Date(2024, 5, 1, 10, 0, 0, 0, time.UTC)
	return comment.CleanedRecord{
		RawRecord:  comment.RawRecord{Author: "alice", Text: text, LikeCount: &likes, PublishedAt: &published},
		CleanText:  text,
		Embedding:  vec,
		Similarity: &sim,
	}
}

func TestStore_StoreComments(t *testing.T) {
	var objects []map[string]interface{}
	client, ts := mockWeaviate(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/v1/batch/objects", r.URL.Path)
		assert.Equal(t, "POST", r.Method)

		var body struct {
			Objects []map[string]interface{} `json:"objects"`
		}
		require.NoError(t, json.NewDecoder(r.Body).Decode(&body))
		objects = append(objects, body.Objects...)

		resp := make([]map[string]interface{}, len(body.Objects))
		for i, o := range body.Objects {
			resp[i] = map[string]interface{}{"class": o["class"], "properties": o["properties"], "result": map[string]interface{}{}}
		}
		w.WriteHeader(http.StatusOK)
		json.NewEncoder(w).Encode(resp)
	})
	defer ts.Close()

	store := adapter.NewStore(client)
	records := []comment.CleanedRecord{
		scored("great song", 0.9, []float32{0.1, 0.2}),
		scored("no vector", 0.5, nil),
	}
	err := store.StoreComments(context.Background(), "run-1", records)
	require.NoError(t, err)

	require.Len(t, objects, 1)
	assert.Equal(t, "Comment", objects[0]["class"])
	props := objects[0]["properties"].(map[string]interface{})
	assert.Equal(t, "great song", props["cleanText"])
	assert.Equal(t, "run-1", props["runId"])
	assert.Equal(t, "2024-05-01T10:00:00Z", props["publishedAt"])
	assert.Equal(t, 0.9, props["similarity"])
	assert.Len(t, objects[0]["vector"], 2)
}

func TestStore_StoreComments_ObjectErrors(t *testing.T) {
	client, ts := mockWeaviate(t, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		w.Write([]byte(`[{"class":"Comment","result":{"errors":{"error":[{"message":"vector lengths don't match"}]}}}]`))
	})
	defer ts.Close()

	store := adapter.NewStore(client)
	err := store.StoreComments(context.Background(), "run-1", []comment.CleanedRecord{scored("x y", 0.4, []float32{1})})
	assert.ErrorContains(t, err, "vector lengths don't match")
}

func TestStore_StoreComments_NothingToStore(t *testing.T) {
	client, ts := mockWeaviate(t, func(w http.ResponseWriter, r *http.Request) {
		t.Errorf("unexpected request %s", r.URL.Path)
	})
	defer ts.Close()

	store := adapter.NewStore(client)
	assert.NoError(t, store.StoreComments(context.Background(), "run-1", nil))
}

func TestStore_DeleteRun(t *testing.T) {
	client, ts := mockWeaviate(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/v1/batch/objects", r.URL.Path)
		assert.Equal(t, "DELETE", r.Method)

		var body map[string]interface{}
		require.NoError(t, json.NewDecoder(r.Body).Decode(&body))
		match := body["match"].(map[string]interface{})
		assert.Equal(t, "Comment", match["class"])

		w.WriteHeader(http.StatusOK)
		json.NewEncoder(w).Encode(map[string]interface{}{"results": map[string]interface{}{"matches": 1}})
	})
	defer ts.Close()

	store := adapter.NewStore(client)
	assert.NoError(t, store.DeleteRun(context.Background(), "run-1"))
}

func TestStore_CountRun(t *testing.T) {
	client, ts := mockWeaviate(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/v1/graphql", r.URL.Path)
		w.WriteHeader(http.StatusOK)
		json.NewEncoder(w).Encode(map[string]interface{}{
			"data": map[string]interface{}{
				"Aggregate": map[string]interface{}{
					"Comment": []interface{}{
						map[string]interface{}{"meta": map[string]interface{}{"count": 7}},
					},
				},
			},
		})
	})
	defer ts.Close()

	store := adapter.NewStore(client)
	n, err := store.CountRun(context.Background(), "run-1")
	require.NoError(t, err)
	assert.Equal(t, 7, n)
}

func TestStore_CountComments_GraphQLError(t *testing.T) {
	client, ts := mockWeaviate(t, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		json.NewEncoder(w).Encode(map[string]interface{}{
			"errors": []interface{}{map[string]interface{}{"message": "class Comment not found"}},
		})
	})
	defer ts.Close()

	_, err := adapter.NewStore(client).CountComments(context.Background())
	assert.ErrorContains(t, err, "class Comment not found")
}

func TestStore_EnsureSchema_NotReady(t *testing.T) {
	client, ts := mockWeaviate(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/v1/.well-known/ready", r.URL.Path)
		w.WriteHeader(http.StatusServiceUnavailable)
	})
	defer ts.Close()

	store := adapter.NewStore(client)
	assert.ErrorIs(t, store.EnsureSchema(context.Background()), vector.ErrNotReady)
}
