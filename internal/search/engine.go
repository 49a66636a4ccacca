// Package search implements hybrid product retrieval: a lexical channel
// fed by an LLM query rewrite and a semantic channel fed by embeddings
// of the original query, fused in the storage layer, with a fallback
// cascade that degrades down to a plain substring match.
package search

import (
	"context"
	"strings"

	"github.com/shopmesh/shopmesh/internal/embedding"
	"github.com/shopmesh/shopmesh/internal/models"
	"github.com/shopmesh/shopmesh/internal/observability"
)

const (
	// DefaultLimit caps result counts when callers pass no limit
	DefaultLimit = 10
	// MaxLimit is the hard ceiling on requested result counts
	MaxLimit = 10

	// rrfConstant is the Reciprocal Rank Fusion smoothing constant
	// passed to the hybrid ranking function
	rrfConstant = 60
	// vectorSimilarityThreshold is the minimum cosine similarity for
	// the vector-only fallback
	vectorSimilarityThreshold = 0.5
)

// rewriteSystemPrompt steers the rewrite model: the catalog is indexed
// in English, user queries arrive in any language.
const rewriteSystemPrompt = `You translate e-commerce search queries to English and extract the keywords. ` +
	`Strip filler words, keep product attributes like category, color, size, and budget. ` +
	`Output only the rewritten query, nothing else.`

// ProductSearcher is the storage capability the engine depends on
type ProductSearcher interface {
	HybridSearch(ctx context.Context, lexicalQuery string, embedding []float32, limit int, rrfK int) ([]models.RankedProduct, error)
	VectorSearch(ctx context.Context, embedding []float32, minSimilarity float64, limit int) ([]models.RankedProduct, error)
	KeywordSearch(ctx context.Context, query string, limit int) ([]models.RankedProduct, error)
}

// Rewriter produces the English keyword reformulation of a query
type Rewriter interface {
	Complete(ctx context.Context, system, user string) (string, error)
}

// Embedder produces the query embedding, degrading to the zero sentinel
type Embedder interface {
	EmbedQuery(ctx context.Context, text string) []float32
}

// Engine resolves free-text queries into ranked product lists. Every
// failure mode degrades to a weaker but valid result set, down to
// empty: Search never returns an error.
type Engine struct {
	products ProductSearcher
	rewriter Rewriter
	embedder Embedder
	logger   observability.Logger
}

// NewEngine creates a search engine. The rewriter may be nil, in which
// case the lexical channel uses the original query verbatim.
func NewEngine(products ProductSearcher, rewriter Rewriter, embedder Embedder, logger observability.Logger) *Engine {
	if logger == nil {
		logger = observability.NewNoopLogger()
	}
	return &Engine{
		products: products,
		rewriter: rewriter,
		embedder: embedder,
		logger:   logger,
	}
}

// Search maps a free-text query to ranked products. Read-only, never
// errors. An empty query short-circuits to an empty result without
// touching any backend.
func (e *Engine) Search(ctx context.Context, query string, limit int) []models.RankedProduct {
	if strings.TrimSpace(query) == "" {
		return []models.RankedProduct{}
	}
	if limit <= 0 || limit > MaxLimit {
		limit = DefaultLimit
	}

	// Lexical channel: English keyword rewrite, verbatim on failure.
	translated := e.translate(ctx, query)

	// Semantic channel embeds the original query so multilingual recall
	// does not depend on the rewrite.
	vector := e.embedder.EmbedQuery(ctx, query)

	if embedding.IsZeroVector(vector) {
		// Semantic search unavailable: substring match on the
		// translated query is the always-available floor.
		results, err := e.products.KeywordSearch(ctx, translated, limit)
		if err != nil {
			e.logger.Error("keyword fallback failed", map[string]interface{}{
				"error": err.Error(),
			})
			return []models.RankedProduct{}
		}
		return results
	}

	results, err := e.products.HybridSearch(ctx, translated, vector, limit, rrfConstant)
	if err == nil {
		return results
	}
	e.logger.Warn("hybrid search unavailable, falling back to vector search", map[string]interface{}{
		"error": err.Error(),
	})

	results, err = e.products.VectorSearch(ctx, vector, vectorSimilarityThreshold, limit)
	if err != nil {
		e.logger.Error("vector fallback failed", map[string]interface{}{
			"error": err.Error(),
		})
		return []models.RankedProduct{}
	}
	return results
}

// translate rewrites the query for the lexical channel. Any failure
// degrades to the original query; no retry, no error surfaced.
func (e *Engine) translate(ctx context.Context, query string) string {
	if e.rewriter == nil {
		return query
	}

	rewritten, err := e.rewriter.Complete(ctx, rewriteSystemPrompt, query)
	if err != nil {
		e.logger.Debug("query rewrite failed, using original query", map[string]interface{}{
			"error": err.Error(),
		})
		return query
	}

	rewritten = strings.TrimSpace(rewritten)
	if rewritten == "" {
		return query
	}
	return rewritten
}
