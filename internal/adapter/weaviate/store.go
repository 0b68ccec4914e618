package weaviate

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/weaviate/weaviate-go-client/v5/weaviate"
	"github.com/weaviate/weaviate-go-client/v5/weaviate/filters"
	"github.com/weaviate/weaviate-go-client/v5/weaviate/graphql"
	"github.com/weaviate/weaviate/entities/models"

	"murmur/internal/comment"
	"murmur/internal/vector"
)

// batchSize bounds one objects batch request.
const batchSize = 100

type Store struct {
	client *weaviate.Client
}

func NewStore(client *weaviate.Client) *Store {
	return &Store{client: client}
}

// EnsureSchema checks readiness, then creates or extends the Comment class. It
// fails fast when the instance is not ready so callers can retry.
func (s *Store) EnsureSchema(ctx context.Context) error {
	adapter := vector.NewWeaviateClientAdapter(s.client)
	if err := adapter.Ready(ctx); err != nil {
		return err
	}
	return vector.EnsureSchema(ctx, adapter)
}

// StoreComments writes retained records of one run with their embeddings. Records
// without an embedding are skipped.
func (s *Store) StoreComments(ctx context.Context, runID string, records []comment.CleanedRecord) error {
	objects := make([]*models.Object, 0, len(records))
	for _, r := range records {
		if len(r.Embedding) == 0 {
			continue
		}
		objects = append(objects, &models.Object{
			Class:      vector.CommentClass,
			Properties: commentProperties(runID, r),
			Vector:     r.Embedding,
		})
	}

	for lo := 0; lo < len(objects); lo += batchSize {
		hi := min(lo+batchSize, len(objects))
		resp, err := s.client.Batch().ObjectsBatcher().WithObjects(objects[lo:hi]...).Do(ctx)
		if err != nil {
			return fmt.Errorf("failed to store comments %d-%d: %w", lo, hi-1, err)
		}
		var failed []string
		for _, o := range resp {
			if o.Result != nil && o.Result.Errors != nil {
				for _, e := range o.Result.Errors.Error {
					failed = append(failed, e.Message)
				}
			}
		}
		if len(failed) > 0 {
			return fmt.Errorf("failed to store %d comments: %s", len(failed), strings.Join(failed, "; "))
		}
	}

	slog.InfoContext(ctx, "comments stored in vector sink", "run_id", runID, "count", len(objects))
	return nil
}

// DeleteRun removes every comment stored for runID.
func (s *Store) DeleteRun(ctx context.Context, runID string) error {
	_, err := s.client.Batch().ObjectsBatchDeleter().
		WithClassName(vector.CommentClass).
		WithOutput("minimal").
		WithWhere(runFilter(runID)).
		Do(ctx)
	return err
}

// CountRun reports how many comments are stored for runID.
func (s *Store) CountRun(ctx context.Context, runID string) (int, error) {
	return s.count(ctx, runFilter(runID))
}

// CountComments reports how many comments are stored across all runs.
func (s *Store) CountComments(ctx context.Context) (int, error) {
	return s.count(ctx, nil)
}

func (s *Store) count(ctx context.Context, where *filters.WhereBuilder) (int, error) {
	agg := s.client.GraphQL().Aggregate().
		WithClassName(vector.CommentClass).
		WithFields(graphql.Field{Name: "meta", Fields: []graphql.Field{{Name: "count"}}})
	if where != nil {
		agg = agg.WithWhere(where)
	}
	res, err := agg.Do(ctx)
	if err != nil {
		return 0, err
	}
	if len(res.Errors) > 0 {
		return 0, fmt.Errorf("graphql error: %v", res.Errors[0].Message)
	}

	if data, ok := res.Data["Aggregate"].(map[string]interface{}); ok {
		if groups, ok := data[vector.CommentClass].([]interface{}); ok && len(groups) > 0 {
			if group, ok := groups[0].(map[string]interface{}); ok {
				if meta, ok := group["meta"].(map[string]interface{}); ok {
					if count, ok := meta["count"].(float64); ok {
						return int(count), nil
					}
				}
			}
		}
	}
	return 0, nil
}

func runFilter(runID string) *filters.WhereBuilder {
	return filters.Where().
		WithPath([]string{"runId"}).
		WithOperator(filters.Equal).
		WithValueString(runID)
}

func commentProperties(runID string, r comment.CleanedRecord) map[string]interface{} {
	props := map[string]interface{}{
		"text":      r.Text,
		"cleanText": r.CleanText,
		"author":    r.Author,
		"runId":     runID,
	}
	if r.LikeCount != nil {
		props["likeCount"] = *r.LikeCount
	}
	if r.PublishedAt != nil {
		props["publishedAt"] = r.PublishedAt.UTC().Format(time.RFC3339)
	}
	if r.Similarity != nil {
		props["similarity"] = *r.Similarity
	}
	return props
}
