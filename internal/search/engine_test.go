package search

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/shopmesh/shopmesh/internal/models"
)

type fakeSearcher struct {
	hybridCalls  int
	vectorCalls  int
	keywordCalls int

	lastLexical string
	lastVector  []float32

	hybridResults  []models.RankedProduct
	hybridErr      error
	vectorResults  []models.RankedProduct
	vectorErr      error
	keywordResults []models.RankedProduct
	keywordErr     error
}

func (f *fakeSearcher) HybridSearch(ctx context.Context, lexicalQuery string, embedding []float32, limit int, rrfK int) ([]models.RankedProduct, error) {
	f.hybridCalls++
	f.lastLexical = lexicalQuery
	f.lastVector = embedding
	return f.hybridResults, f.hybridErr
}

func (f *fakeSearcher) VectorSearch(ctx context.Context, embedding []float32, minSimilarity float64, limit int) ([]models.RankedProduct, error) {
	f.vectorCalls++
	f.lastVector = embedding
	return f.vectorResults, f.vectorErr
}

func (f *fakeSearcher) KeywordSearch(ctx context.Context, query string, limit int) ([]models.RankedProduct, error) {
	f.keywordCalls++
	f.lastLexical = query
	return f.keywordResults, f.keywordErr
}

type fakeRewriter struct {
	lastInput string
	output    string
	err       error
}

func (f *fakeRewriter) Complete(ctx context.Context, system, user string) (string, error) {
	f.lastInput = user
	return f.output, f.err
}

type fakeEmbedder struct {
	lastInput string
	vector    []float32
}

func (f *fakeEmbedder) EmbedQuery(ctx context.Context, text string) []float32 {
	f.lastInput = text
	if f.vector == nil {
		return make([]float32, 4)
	}
	return f.vector
}

func ranked(ids ...string) []models.RankedProduct {
	out := make([]models.RankedProduct, len(ids))
	for i, id := range ids {
		out[i] = models.RankedProduct{Product: models.Product{ID: id}}
	}
	return out
}

func TestEngine_EmptyQueryShortCircuits(t *testing.T) {
	searcher := &fakeSearcher{}
	embedder := &fakeEmbedder{}
	engine := NewEngine(searcher, &fakeRewriter{}, embedder, nil)

	results := engine.Search(context.Background(), "", 10)

	assert.Empty(t, results)
	assert.Zero(t, searcher.hybridCalls)
	assert.Zero(t, searcher.vectorCalls)
	assert.Zero(t, searcher.keywordCalls)
	assert.Empty(t, embedder.lastInput)
}

func TestEngine_WhitespaceQueryShortCircuits(t *testing.T) {
	searcher := &fakeSearcher{}
	engine := NewEngine(searcher, &fakeRewriter{}, &fakeEmbedder{}, nil)

	assert.Empty(t, engine.Search(context.Background(), "   \n ", 10))
	assert.Zero(t, searcher.keywordCalls)
}

func TestEngine_HybridPath(t *testing.T) {
	searcher := &fakeSearcher{hybridResults: ranked("p1", "p2")}
	rewriter := &fakeRewriter{output: "leather boots"}
	embedder := &fakeEmbedder{vector: []float32{0.1, 0.2, 0.3, 0.4}}
	engine := NewEngine(searcher, rewriter, embedder, nil)

	results := engine.Search(context.Background(), "botas de cuero", 5)

	require.Len(t, results, 2)
	assert.Equal(t, 1, searcher.hybridCalls)
	assert.Zero(t, searcher.vectorCalls)
	assert.Equal(t, "leather boots", searcher.lastLexical)
}

func TestEngine_ChineseQueryChannels(t *testing.T) {
	// The lexical channel receives the English rewrite while the
	// semantic channel embeds the original text directly.
	searcher := &fakeSearcher{hybridResults: ranked("p1")}
	rewriter := &fakeRewriter{output: "apple iphone smartphone"}
	embedder := &fakeEmbedder{vector: []float32{0.9, 0, 0, 0}}
	engine := NewEngine(searcher, rewriter, embedder, nil)

	engine.Search(context.Background(), "苹果手机", 5)

	assert.Equal(t, "苹果手机", rewriter.lastInput)
	assert.Equal(t, "苹果手机", embedder.lastInput)
	assert.Equal(t, "apple iphone smartphone", searcher.lastLexical)
}

func TestEngine_RewriteFailureUsesOriginalQuery(t *testing.T) {
	searcher := &fakeSearcher{hybridResults: ranked("p1")}
	rewriter := &fakeRewriter{err: errors.New("provider timeout")}
	embedder := &fakeEmbedder{vector: []float32{0.5, 0, 0, 0}}
	engine := NewEngine(searcher, rewriter, embedder, nil)

	engine.Search(context.Background(), "botas de cuero", 5)

	assert.Equal(t, "botas de cuero", searcher.lastLexical)
}

func TestEngine_EmptyRewriteUsesOriginalQuery(t *testing.T) {
	searcher := &fakeSearcher{hybridResults: ranked("p1")}
	rewriter := &fakeRewriter{output: "  "}
	embedder := &fakeEmbedder{vector: []float32{0.5, 0, 0, 0}}
	engine := NewEngine(searcher, rewriter, embedder, nil)

	engine.Search(context.Background(), "boots", 5)

	assert.Equal(t, "boots", searcher.lastLexical)
}

func TestEngine_ZeroVectorSkipsHybridAndVector(t *testing.T) {
	searcher := &fakeSearcher{keywordResults: ranked("p3")}
	rewriter := &fakeRewriter{output: "boots"}
	embedder := &fakeEmbedder{vector: make([]float32, 4)}
	engine := NewEngine(searcher, rewriter, embedder, nil)

	results := engine.Search(context.Background(), "boots please", 5)

	require.Len(t, results, 1)
	assert.Equal(t, "p3", results[0].ID)
	assert.Zero(t, searcher.hybridCalls)
	assert.Zero(t, searcher.vectorCalls)
	assert.Equal(t, 1, searcher.keywordCalls)
}

func TestEngine_HybridFailureFallsBackToVector(t *testing.T) {
	searcher := &fakeSearcher{
		hybridErr:     errors.New("function hybrid_search_products does not exist"),
		vectorResults: ranked("p4"),
	}
	embedder := &fakeEmbedder{vector: []float32{0.7, 0, 0, 0}}
	engine := NewEngine(searcher, &fakeRewriter{output: "boots"}, embedder, nil)

	results := engine.Search(context.Background(), "boots", 5)

	require.Len(t, results, 1)
	assert.Equal(t, "p4", results[0].ID)
	assert.Equal(t, 1, searcher.hybridCalls)
	assert.Equal(t, 1, searcher.vectorCalls)
}

func TestEngine_AllBackendsFailingReturnsEmpty(t *testing.T) {
	searcher := &fakeSearcher{
		hybridErr: errors.New("down"),
		vectorErr: errors.New("also down"),
	}
	embedder := &fakeEmbedder{vector: []float32{0.7, 0, 0, 0}}
	engine := NewEngine(searcher, &fakeRewriter{output: "boots"}, embedder, nil)

	results := engine.Search(context.Background(), "boots", 5)
	assert.NotNil(t, results)
	assert.Empty(t, results)
}

func TestEngine_KeywordFallbackFailureReturnsEmpty(t *testing.T) {
	searcher := &fakeSearcher{keywordErr: errors.New("db gone")}
	embedder := &fakeEmbedder{vector: make([]float32, 4)}
	engine := NewEngine(searcher, &fakeRewriter{output: "boots"}, embedder, nil)

	results := engine.Search(context.Background(), "boots", 5)
	assert.NotNil(t, results)
	assert.Empty(t, results)
}

func TestEngine_NilRewriter(t *testing.T) {
	searcher := &fakeSearcher{hybridResults: ranked("p1")}
	embedder := &fakeEmbedder{vector: []float32{0.7, 0, 0, 0}}
	engine := NewEngine(searcher, nil, embedder, nil)

	engine.Search(context.Background(), "boots", 5)
	assert.Equal(t, "boots", searcher.lastLexical)
}

func TestEngine_LimitClamping(t *testing.T) {
	searcher := &fakeSearcher{keywordResults: ranked()}
	embedder := &fakeEmbedder{vector: make([]float32, 4)}
	engine := NewEngine(searcher, nil, embedder, nil)

	// Out-of-range limits are replaced with the default; the call still
	// reaches the backend exactly once.
	engine.Search(context.Background(), "boots", 500)
	engine.Search(context.Background(), "boots", -1)
	assert.Equal(t, 2, searcher.keywordCalls)
}
