// Package embedding generates query embeddings for semantic retrieval.
// The service wraps the upstream provider so callers receive a
// zero-vector sentinel instead of an error: semantic search being
// unavailable is a quality degradation, not a failure.
package embedding

import (
	"context"
	"strings"

	"github.com/shopmesh/shopmesh/internal/observability"
)

// DefaultDimensions is the fixed embedding dimensionality
const DefaultDimensions = 1024

// Client generates an embedding for a piece of text
type Client interface {
	Embed(ctx context.Context, text string) ([]float32, error)
}

// Service wraps a Client with the degradation contract: EmbedQuery
// never fails, it returns the all-zero sentinel instead.
type Service struct {
	client     Client
	dimensions int
	logger     observability.Logger
}

// NewService creates an embedding service. A nil client means the
// embedding credential is absent; every query then degrades to the
// zero-vector sentinel.
func NewService(client Client, dimensions int, logger observability.Logger) *Service {
	if dimensions <= 0 {
		dimensions = DefaultDimensions
	}
	if logger == nil {
		logger = observability.NewNoopLogger()
	}
	return &Service{
		client:     client,
		dimensions: dimensions,
		logger:     logger,
	}
}

// Dimensions returns the fixed vector dimensionality
func (s *Service) Dimensions() int {
	return s.dimensions
}

// EmbedQuery embeds the given text, normalizing newlines to spaces
// first. On a missing credential or any upstream failure it returns a
// zero vector of the fixed dimensionality and never an error.
func (s *Service) EmbedQuery(ctx context.Context, text string) []float32 {
	if s.client == nil {
		return make([]float32, s.dimensions)
	}

	normalized := strings.ReplaceAll(text, "\n", " ")

	vector, err := s.client.Embed(ctx, normalized)
	if err != nil {
		s.logger.Warn("embedding generation failed, degrading to zero vector", map[string]interface{}{
			"error": err.Error(),
		})
		return make([]float32, s.dimensions)
	}
	if len(vector) != s.dimensions {
		s.logger.Warn("embedding has unexpected dimensionality, degrading to zero vector", map[string]interface{}{
			"expected": s.dimensions,
			"got":      len(vector),
		})
		return make([]float32, s.dimensions)
	}
	return vector
}

// IsZeroVector reports whether the vector is the "embedding
// unavailable" sentinel. An all-zero embedding is always treated as the
// sentinel, even though a valid embedding could in principle be zero.
func IsZeroVector(v []float32) bool {
	for _, x := range v {
		if x != 0 {
			return false
		}
	}
	return true
}
