package sqlite

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"docqa/internal/domain"
)

func openTestStore(t *testing.T) *Store {
	t.Helper()
	s, err := Open(filepath.Join(t.TempDir(), "docqa.db"))
	require.NoError(t, err)
	return s
}

func TestDocumentRoundTrip(t *testing.T) {
	s := openTestStore(t)
	ctx := context.Background()

	doc := &domain.Document{
		ID:        "doc-1",
		Filename:  "policy.pdf",
		Source:    domain.SourceUpload,
		SizeBytes: 2048,
		Status:    domain.StatusPending,
		CreatedAt: time.Now().UTC().Truncate(time.Second),
	}
	require.NoError(t, s.SaveDocument(ctx, doc))

	// Status transition reuses the same row.
	doc.Status = domain.StatusCompleted
	doc.ChunkCount = 7
	require.NoError(t, s.SaveDocument(ctx, doc))

	got, err := s.Document(ctx, "doc-1")
	require.NoError(t, err)
	assert.Equal(t, domain.StatusCompleted, got.Status)
	assert.Equal(t, 7, got.ChunkCount)
	assert.Equal(t, "policy.pdf", got.Filename)
	assert.Equal(t, domain.SourceUpload, got.Source)

	docs, _, _, err := s.Counts(ctx)
	require.NoError(t, err)
	assert.EqualValues(t, 1, docs)
}

func TestFailedDocumentKeepsError(t *testing.T) {
	s := openTestStore(t)
	ctx := context.Background()

	doc := &domain.Document{
		ID:       "doc-2",
		Filename: "broken.pdf",
		Source:   domain.SourceUpload,
		Status:   domain.StatusFailed,
		Error:    "open pdf: malformed file",
	}
	require.NoError(t, s.SaveDocument(ctx, doc))

	got, err := s.Document(ctx, "doc-2")
	require.NoError(t, err)
	assert.Equal(t, domain.StatusFailed, got.Status)
	assert.Equal(t, "open pdf: malformed file", got.Error)
	assert.Zero(t, got.ChunkCount)
}

func TestSaveChunks(t *testing.T) {
	s := openTestStore(t)
	ctx := context.Background()

	chunks := []domain.Chunk{
		{ID: "c1", DocumentID: "doc-1", Index: 0, Text: "first", SemanticType: domain.TypeParagraph, Categories: []string{"coverage", "currency"}, WordCount: 1},
		{ID: "c2", DocumentID: "doc-1", Index: 1, Text: "second", SemanticType: domain.TypeList, WordCount: 1, Position: 0.5},
	}
	require.NoError(t, s.SaveChunks(ctx, chunks))
	require.NoError(t, s.SaveChunks(ctx, chunks)) // upsert, not duplicate

	_, count, _, err := s.Counts(ctx)
	require.NoError(t, err)
	assert.EqualValues(t, 2, count)
}

func TestSaveChunksEmpty(t *testing.T) {
	s := openTestStore(t)
	assert.NoError(t, s.SaveChunks(context.Background(), nil))
}

func TestQueryLogAppends(t *testing.T) {
	s := openTestStore(t)
	ctx := context.Background()

	rec := &domain.QueryRecord{
		ID:             "q1",
		Query:          "How much is the deductible?",
		QueryType:      domain.QueryCost,
		Answer:         "The deductible is $500.",
		Confidence:     0.82,
		SourceChunkIDs: []string{"c1", "c2"},
		Duration:       1200 * time.Millisecond,
		CreatedAt:      time.Now().UTC(),
	}
	require.NoError(t, s.SaveQueryRecord(ctx, rec))

	_, _, queries, err := s.Counts(ctx)
	require.NoError(t, err)
	assert.EqualValues(t, 1, queries)
}

func TestDocumentNotFound(t *testing.T) {
	s := openTestStore(t)
	_, err := s.Document(context.Background(), "missing")
	assert.Error(t, err)
}
