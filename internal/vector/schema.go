package vector

import (
	"context"
	"fmt"

	"github.com/weaviate/weaviate/entities/models"
)

// CommentClass holds retained comments with the vectors they were scored with.
const CommentClass = "Comment"

// SchemaClient defines the interface for Weaviate schema operations
type SchemaClient interface {
	ClassExists(ctx context.Context, className string) (bool, error)
	CreateClass(ctx context.Context, class *models.Class) error
	GetClass(ctx context.Context, className string) (*models.Class, error)
	AddProperty(ctx context.Context, className string, property *models.Property) error
}

func commentProperties() []*models.Property {
	return []*models.Property{
		{Name: "text", DataType: []string{"text"}},
		{Name: "cleanText", DataType: []string{"text"}},
		{Name: "author", DataType: []string{"string"}},
		{Name: "likeCount", DataType: []string{"int"}},
		{Name: "publishedAt", DataType: []string{"date"}},
		{Name: "runId", DataType: []string{"string"}}, // UUID as string (exact match)
		{Name: "similarity", DataType: []string{"number"}},
	}
}

// EnsureSchema creates the Comment class, or adds the properties an older class lacks.
func EnsureSchema(ctx context.Context, client SchemaClient) error {
	exists, err := client.ClassExists(ctx, CommentClass)
	if err != nil {
		return fmt.Errorf("failed to check class %s: %w", CommentClass, err)
	}

	properties := commentProperties()

	if !exists {
		class := &models.Class{
			Class:       CommentClass,
			Description: "A cleaned social media comment",
			Vectorizer:  "none",
			Properties:  properties,
		}
		return client.CreateClass(ctx, class)
	}

	class, err := client.GetClass(ctx, CommentClass)
	if err != nil {
		return fmt.Errorf("failed to read class %s: %w", CommentClass, err)
	}

	existingProps := make(map[string]bool)
	for _, p := range class.Properties {
		existingProps[p.Name] = true
	}

	for _, p := range properties {
		if !existingProps[p.Name] {
			if err := client.AddProperty(ctx, CommentClass, p); err != nil {
				return fmt.Errorf("failed to add property %s: %w", p.Name, err)
			}
		}
	}

	return nil
}
