// Package vectorstore owns the embedding index over chunks: insertion,
// nearest-neighbour search, statistics and snapshot persistence.
package vectorstore

import (
	"context"
	"fmt"
	"math"
	"sort"
	"sync"

	"docqa/internal/domain"
)

// Store is an in-memory cosine-similarity index guarded by a read-write
// lock: adds serialize, searches run concurrently.
type Store struct {
	mu        sync.RWMutex
	embedder  domain.Embedder
	dimension int
	slots     map[string]int // chunk ID -> position in chunks/vectors
	chunks    []domain.Chunk
	vectors   [][]float64
	built     bool
}

func New(embedder domain.Embedder) *Store {
	return &Store{
		embedder: embedder,
		slots:    make(map[string]int),
	}
}

// Add embeds and indexes the chunks. Re-adding a chunk ID replaces the prior
// entry instead of duplicating it.
func (s *Store) Add(ctx context.Context, chunks []domain.Chunk) error {
	if len(chunks) == 0 {
		return nil
	}
	// Embedding happens outside the lock: it is the dominant latency source
	// and must not block concurrent searches.
	vectors := make([][]float64, len(chunks))
	for i, ch := range chunks {
		vec, err := s.embedder.Embed(ctx, ch.Text)
		if err != nil {
			return fmt.Errorf("embed chunk %s: %w", ch.ID, err)
		}
		vectors[i] = vec
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	for i, ch := range chunks {
		if s.dimension == 0 {
			s.dimension = len(vectors[i])
		}
		if len(vectors[i]) != s.dimension {
			return fmt.Errorf("vector dimension mismatch: got %d, index has %d", len(vectors[i]), s.dimension)
		}
		if slot, ok := s.slots[ch.ID]; ok {
			s.chunks[slot] = ch
			s.vectors[slot] = vectors[i]
			continue
		}
		s.slots[ch.ID] = len(s.chunks)
		s.chunks = append(s.chunks, ch)
		s.vectors = append(s.vectors, vectors[i])
	}
	s.built = true
	return nil
}

// Search embeds the query and returns up to k nearest chunks by cosine
// similarity. An empty index yields an empty result. Ties break on the lower
// sequence index, then document ID, so results are deterministic.
func (s *Store) Search(ctx context.Context, query string, k int, filter domain.Filter) ([]domain.SearchResult, error) {
	if k <= 0 {
		k = 5
	}
	s.mu.RLock()
	empty := len(s.chunks) == 0
	s.mu.RUnlock()
	if empty {
		return nil, nil
	}
	qvec, err := s.embedder.Embed(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("embed query: %w", err)
	}

	s.mu.RLock()
	defer s.mu.RUnlock()
	results := make([]domain.SearchResult, 0, len(s.chunks))
	for i, ch := range s.chunks {
		if !matchesFilter(ch, filter) {
			continue
		}
		results = append(results, domain.SearchResult{Chunk: ch, Score: cosine(s.vectors[i], qvec)})
	}
	sort.Slice(results, func(i, j int) bool {
		if results[i].Score != results[j].Score {
			return results[i].Score > results[j].Score
		}
		if results[i].Chunk.Index != results[j].Chunk.Index {
			return results[i].Chunk.Index < results[j].Chunk.Index
		}
		return results[i].Chunk.DocumentID < results[j].Chunk.DocumentID
	})
	if k > len(results) {
		k = len(results)
	}
	return results[:k], nil
}

// Stats summarises the index state.
func (s *Store) Stats() domain.IndexStats {
	s.mu.RLock()
	defer s.mu.RUnlock()
	sources := make(map[string]struct{})
	categories := make(map[string]int)
	for _, ch := range s.chunks {
		sources[ch.DocumentID] = struct{}{}
		for _, cat := range ch.Categories {
			categories[cat]++
		}
	}
	return domain.IndexStats{
		Chunks:     len(s.chunks),
		Dimension:  s.dimension,
		Sources:    len(sources),
		Built:      s.built,
		Categories: categories,
	}
}

func matchesFilter(ch domain.Chunk, filter domain.Filter) bool {
	if filter.DocumentID != "" && ch.DocumentID != filter.DocumentID {
		return false
	}
	if len(filter.Categories) == 0 {
		return true
	}
	for _, want := range filter.Categories {
		if ch.HasCategory(want) {
			return true
		}
	}
	return false
}

func cosine(a, b []float64) float64 {
	n := len(a)
	if len(b) < n {
		n = len(b)
	}
	var dot, na, nb float64
	for i := 0; i < n; i++ {
		dot += a[i] * b[i]
		na += a[i] * a[i]
		nb += b[i] * b[i]
	}
	if na == 0 || nb == 0 {
		return 0
	}
	return dot / (math.Sqrt(na) * math.Sqrt(nb))
}
