package domain

import (
	"time"
)

// Source records how a document entered the system.
type Source string

const (
	SourceUpload Source = "upload"
	SourceURL    Source = "url"
)

// Status is the processing state of a document. Completed and failed are terminal.
type Status string

const (
	StatusPending    Status = "pending"
	StatusProcessing Status = "processing"
	StatusCompleted  Status = "completed"
	StatusFailed     Status = "failed"
)

// SemanticType classifies the structural role of a chunk within its document.
type SemanticType string

const (
	TypeHeading   SemanticType = "heading"
	TypeParagraph SemanticType = "paragraph"
	TypeTable     SemanticType = "table"
	TypeList      SemanticType = "list"
	TypeClause    SemanticType = "clause"
	TypeUnknown   SemanticType = "unknown"
)

// QueryType is the primary classification of a user query.
type QueryType string

const (
	QueryCoverage  QueryType = "coverage"
	QueryExclusion QueryType = "exclusion"
	QueryCost      QueryType = "cost"
	QueryProcedure QueryType = "procedure"
	QueryCondition QueryType = "condition"
	QueryGeneral   QueryType = "general"
)

// Document holds metadata and processing status for one ingested file.
type Document struct {
	ID         string
	Filename   string
	Source     Source
	SizeBytes  int64
	Status     Status
	Error      string
	ChunkCount int
	CreatedAt  time.Time
}

// Chunk is a contiguous slice of a document's extracted text, the unit of
// retrieval. Indices are contiguous 0..n-1 within a document and chunks are
// never mutated after creation.
type Chunk struct {
	ID           string
	DocumentID   string
	Index        int
	Text         string
	SemanticType SemanticType
	Page         int
	Categories   []string
	WordCount    int
	Position     float64
}

// HasCategory reports whether the chunk carries the given content category.
func (c Chunk) HasCategory(name string) bool {
	for _, cat := range c.Categories {
		if cat == name {
			return true
		}
	}
	return false
}

// SearchResult is a chunk matched by the vector store with its similarity score.
type SearchResult struct {
	Chunk Chunk
	Score float64
}

// Entity is a typed span extracted from query text.
type Entity struct {
	Type  string
	Text  string
	Start int
	End   int
}

// QueryAnalysis is the output of query classification.
type QueryAnalysis struct {
	Query    string
	Type     QueryType
	Intents  []string
	Entities []Entity
}

// ScoredChunk carries the per-signal and fused relevance scores of a
// retrieved chunk.
type ScoredChunk struct {
	Chunk    Chunk
	Semantic float64
	Keyword  float64
	Score    float64
}

// Context is an assembled, ordered selection of chunks supporting a query.
type Context struct {
	Chunks  []ScoredChunk
	Text    string
	Quality float64
}

// TopScore returns the fused score of the highest ranked chunk, 0 when empty.
func (c Context) TopScore() float64 {
	if len(c.Chunks) == 0 {
		return 0
	}
	return c.Chunks[0].Score
}

// MeanScore returns the average fused score over the selected chunks.
func (c Context) MeanScore() float64 {
	if len(c.Chunks) == 0 {
		return 0
	}
	sum := 0.0
	for _, sc := range c.Chunks {
		sum += sc.Score
	}
	return sum / float64(len(c.Chunks))
}

// SourceRef is a citation pointing at one chunk that grounded an answer.
type SourceRef struct {
	ChunkID    string
	DocumentID string
	Score      float64
	Categories []string
}

// Answer is the structured output of the answer generator.
type Answer struct {
	Text       string
	Confidence float64
	Sources    []SourceRef
	Reasoning  string
}

// QueryRecord is one append-only query log entry, kept for analytics only.
type QueryRecord struct {
	ID             string
	Query          string
	QueryType      QueryType
	Answer         string
	Confidence     float64
	SourceChunkIDs []string
	Duration       time.Duration
	CreatedAt      time.Time
}

// IndexStats summarises the state of the vector index.
type IndexStats struct {
	Chunks     int
	Dimension  int
	Sources    int
	Built      bool
	Categories map[string]int
}
