package database

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"

	"github.com/shopmesh/shopmesh/internal/models"
)

// ErrProductNotFound is returned when a product id does not exist
var ErrProductNotFound = errors.New("product not found")

// ProductRepository provides catalog queries, including the hybrid and
// vector retrieval capabilities the search engine depends on.
type ProductRepository struct {
	db *Database
}

// NewProductRepository creates a product repository
func NewProductRepository(db *Database) *ProductRepository {
	return &ProductRepository{db: db}
}

// GetByID fetches a single product
func (r *ProductRepository) GetByID(ctx context.Context, id string) (*models.Product, error) {
	var p models.Product
	err := r.db.DB().GetContext(ctx, &p, `
		SELECT id, name, description, price, category, image_url, created_at
		FROM products
		WHERE id = $1
	`, id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrProductNotFound
		}
		return nil, fmt.Errorf("failed to get product: %w", err)
	}
	return &p, nil
}

// HybridSearch runs the combined lexical+vector ranking function. The
// lexical query feeds full-text matching, the embedding feeds pgvector
// similarity, and the two ranked lists are fused with Reciprocal Rank
// Fusion inside the hybrid_search_products SQL function.
func (r *ProductRepository) HybridSearch(ctx context.Context, lexicalQuery string, embedding []float32, limit int, rrfK int) ([]models.RankedProduct, error) {
	if len(embedding) == 0 {
		return nil, errors.New("embedding vector cannot be empty")
	}

	var results []models.RankedProduct
	err := r.db.DB().SelectContext(ctx, &results, `
		SELECT id, name, description, price, category, image_url, created_at, score
		FROM hybrid_search_products($1, $2::vector, $3, $4)
	`, lexicalQuery, formatVectorForPg(embedding), limit, rrfK)
	if err != nil {
		return nil, fmt.Errorf("hybrid search failed: %w", err)
	}
	return results, nil
}

// VectorSearch runs a pure pgvector cosine-similarity query with a
// minimum similarity threshold.
func (r *ProductRepository) VectorSearch(ctx context.Context, embedding []float32, minSimilarity float64, limit int) ([]models.RankedProduct, error) {
	if len(embedding) == 0 {
		return nil, errors.New("embedding vector cannot be empty")
	}

	var results []models.RankedProduct
	err := r.db.DB().SelectContext(ctx, &results, `
		SELECT id, name, description, price, category, image_url, created_at,
			1 - (embedding <=> $1::vector) AS score
		FROM products
		WHERE embedding IS NOT NULL
			AND (1 - (embedding <=> $1::vector)) >= $2
		ORDER BY embedding <=> $1::vector
		LIMIT $3
	`, formatVectorForPg(embedding), minSimilarity, limit)
	if err != nil {
		return nil, fmt.Errorf("vector search failed: %w", err)
	}
	return results, nil
}

// KeywordSearch is the lowest-quality always-available path: a
// case-insensitive substring match on name and description.
func (r *ProductRepository) KeywordSearch(ctx context.Context, query string, limit int) ([]models.RankedProduct, error) {
	pattern := "%" + query + "%"

	var results []models.RankedProduct
	err := r.db.DB().SelectContext(ctx, &results, `
		SELECT id, name, description, price, category, image_url, created_at,
			0::float8 AS score
		FROM products
		WHERE name ILIKE $1 OR description ILIKE $1
		ORDER BY created_at DESC
		LIMIT $2
	`, pattern, limit)
	if err != nil {
		return nil, fmt.Errorf("keyword search failed: %w", err)
	}
	return results, nil
}

// formatVectorForPg formats a float vector in pgvector text syntax
func formatVectorForPg(vector []float32) string {
	elements := make([]string, len(vector))
	for i, v := range vector {
		elements[i] = fmt.Sprintf("%f", v)
	}
	return "[" + strings.Join(elements, ",") + "]"
}
