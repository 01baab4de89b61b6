package retrieval

import (
	"context"
	"io"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"docqa/internal/domain"
)

// fakeStore returns a canned candidate list, so tests control the semantic
// scores exactly.
type fakeStore struct {
	results []domain.SearchResult
	lastK   int
}

func (f *fakeStore) Add(context.Context, []domain.Chunk) error { return nil }
func (f *fakeStore) Search(_ context.Context, _ string, k int, _ domain.Filter) ([]domain.SearchResult, error) {
	f.lastK = k
	if k > len(f.results) {
		k = len(f.results)
	}
	return f.results[:k], nil
}
func (f *fakeStore) Persist(io.Writer) error  { return nil }
func (f *fakeStore) Load(io.Reader) error     { return nil }
func (f *fakeStore) Stats() domain.IndexStats { return domain.IndexStats{} }

func candidate(id, text string, score float64, cats ...string) domain.SearchResult {
	return domain.SearchResult{
		Chunk: domain.Chunk{ID: id, DocumentID: "d1", Text: text, Categories: cats},
		Score: score,
	}
}

func costAnalysis() domain.QueryAnalysis {
	return domain.QueryAnalysis{
		Query: "How much is the deductible?",
		Type:  domain.QueryCost,
		Entities: []domain.Entity{
			{Type: "deductible", Text: "deductible"},
		},
	}
}

func TestRetrieveOversamples(t *testing.T) {
	store := &fakeStore{}
	e := New(store, Config{})
	_, err := e.Retrieve(context.Background(), costAnalysis(), 5, domain.Filter{})
	require.NoError(t, err)
	assert.Equal(t, 10, store.lastK)
}

func TestRetrieveEmptyStore(t *testing.T) {
	e := New(&fakeStore{}, Config{})
	rc, err := e.Retrieve(context.Background(), costAnalysis(), 5, domain.Filter{})
	require.NoError(t, err)
	assert.Empty(t, rc.Chunks)
	assert.Zero(t, rc.Quality)
	assert.Empty(t, rc.Text)
}

func TestKeywordEvidenceReordersCandidates(t *testing.T) {
	// Second candidate is semantically weaker but actually mentions the
	// deductible; the keyword signal should lift it above the first.
	store := &fakeStore{results: []domain.SearchResult{
		candidate("a", "general conditions apply to all policies at all times", 0.80),
		candidate("b", "the deductible is $500 per claim", 0.72, "deductible"),
	}}
	e := New(store, Config{})

	rc, err := e.Retrieve(context.Background(), costAnalysis(), 2, domain.Filter{})
	require.NoError(t, err)
	require.Len(t, rc.Chunks, 2)
	assert.Equal(t, "b", rc.Chunks[0].Chunk.ID)
	assert.Greater(t, rc.Chunks[0].Keyword, rc.Chunks[1].Keyword)
}

func TestScoreFloorDropsWeakCandidates(t *testing.T) {
	store := &fakeStore{results: []domain.SearchResult{
		candidate("strong", "the deductible is $500", 0.9, "deductible"),
		candidate("weak", "unrelated text about gardening", 0.1),
	}}
	e := New(store, Config{})

	rc, err := e.Retrieve(context.Background(), costAnalysis(), 5, domain.Filter{})
	require.NoError(t, err)
	require.Len(t, rc.Chunks, 1)
	assert.Equal(t, "strong", rc.Chunks[0].Chunk.ID)
}

func TestContextRespectsCharBudget(t *testing.T) {
	long := strings.Repeat("coverage terms and conditions ", 20)
	store := &fakeStore{results: []domain.SearchResult{
		candidate("a", long, 0.9),
		candidate("b", long, 0.85),
		candidate("c", long, 0.8),
	}}
	e := New(store, Config{MaxContextChars: 2*len(long) + 10})

	rc, err := e.Retrieve(context.Background(), domain.QueryAnalysis{Query: "coverage terms"}, 3, domain.Filter{})
	require.NoError(t, err)
	assert.Len(t, rc.Chunks, 2)
	assert.LessOrEqual(t, len(rc.Text), 2*len(long)+2)
}

func TestQualityBlendsScoresAndEntityCoverage(t *testing.T) {
	store := &fakeStore{results: []domain.SearchResult{
		candidate("a", "the deductible is $500", 1.0, "deductible"),
	}}
	e := New(store, Config{})

	rc, err := e.Retrieve(context.Background(), costAnalysis(), 1, domain.Filter{})
	require.NoError(t, err)
	require.Len(t, rc.Chunks, 1)
	// Entity type "deductible" is covered by the chunk's categories, so
	// quality is the blend of the mean fused score and full coverage.
	want := 0.7*rc.MeanScore() + 0.3*1.0
	assert.InDelta(t, want, rc.Quality, 1e-9)
}

func TestKeywordSimilarityPhraseBonus(t *testing.T) {
	queryTokens := tokenize("waiting period for surgery")
	noEntities := map[string]struct{}{}

	exact := keywordSimilarity(queryTokens, noEntities, "the waiting period for surgery is ninety days")
	scattered := keywordSimilarity(queryTokens, noEntities, "surgery has a period of waiting")
	assert.Greater(t, exact, scattered)
	assert.LessOrEqual(t, exact, 1.0)
}

func TestKeywordSimilarityEmptyQuery(t *testing.T) {
	assert.Zero(t, keywordSimilarity(nil, nil, "anything"))
}
