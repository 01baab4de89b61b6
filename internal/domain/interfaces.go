package domain

import (
	"context"
	"io"
)

// Embedder converts free text into a fixed-length numeric vector. The same
// text always produces the same vector.
type Embedder interface {
	Name() string
	Dimension() int
	Embed(ctx context.Context, text string) ([]float64, error)
}

// Filter restricts a vector store search to a document or to chunks carrying
// any of the given content categories. The zero value matches everything.
type Filter struct {
	DocumentID string
	Categories []string
}

// VectorStore owns the embedding index over chunks. Adds serialize behind a
// single writer; searches may run concurrently with each other.
type VectorStore interface {
	// Add embeds and indexes the chunks. Re-adding a chunk ID replaces its
	// prior entry.
	Add(ctx context.Context, chunks []Chunk) error
	// Search embeds the query text and returns up to k nearest chunks.
	// An empty index yields an empty result, not an error.
	Search(ctx context.Context, query string, k int, filter Filter) ([]SearchResult, error)
	// Persist and Load round-trip the index state: loading a persisted
	// snapshot reproduces identical search results.
	Persist(w io.Writer) error
	Load(r io.Reader) error
	Stats() IndexStats
}

// Generator turns a query and its assembled context into a structured answer.
type Generator interface {
	Generate(ctx context.Context, analysis QueryAnalysis, rc Context) (Answer, error)
}

// Store is the relational persistence collaborator. The core never knows the
// storage engine behind it.
type Store interface {
	SaveDocument(ctx context.Context, doc *Document) error
	SaveChunks(ctx context.Context, chunks []Chunk) error
	SaveQueryRecord(ctx context.Context, rec *QueryRecord) error
	Document(ctx context.Context, id string) (*Document, error)
	Counts(ctx context.Context) (documents, chunks, queries int64, err error)
}
