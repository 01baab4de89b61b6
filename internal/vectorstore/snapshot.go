package vectorstore

import (
	"encoding/json"
	"fmt"
	"io"

	"docqa/internal/domain"
)

const snapshotVersion = 1

// ErrSnapshotMismatch reports a snapshot written by a different embedder
// configuration. The index stays empty and the caller should re-ingest.
var ErrSnapshotMismatch = fmt.Errorf("%w: snapshot embedder mismatch", domain.ErrIndexUnavailable)

type snapshot struct {
	Version   int             `json:"version"`
	Embedder  string          `json:"embedder"`
	Dimension int             `json:"dimension"`
	Entries   []snapshotEntry `json:"entries"`
}

type snapshotEntry struct {
	Chunk  domain.Chunk `json:"chunk"`
	Vector []float64    `json:"vector"`
}

// Persist writes the index as a versioned JSON snapshot. The embedder name
// and dimension travel with the data so a later Load can refuse vectors it
// cannot compare against.
func (s *Store) Persist(w io.Writer) error {
	s.mu.RLock()
	defer s.mu.RUnlock()
	snap := snapshot{
		Version:   snapshotVersion,
		Embedder:  s.embedder.Name(),
		Dimension: s.dimension,
		Entries:   make([]snapshotEntry, len(s.chunks)),
	}
	for i := range s.chunks {
		snap.Entries[i] = snapshotEntry{Chunk: s.chunks[i], Vector: s.vectors[i]}
	}
	enc := json.NewEncoder(w)
	if err := enc.Encode(snap); err != nil {
		return fmt.Errorf("encode snapshot: %w", err)
	}
	return nil
}

// Load replaces the index contents with a snapshot. A snapshot produced by a
// different embedder or dimension returns ErrSnapshotMismatch and leaves the
// index empty.
func (s *Store) Load(r io.Reader) error {
	var snap snapshot
	if err := json.NewDecoder(r).Decode(&snap); err != nil {
		return fmt.Errorf("decode snapshot: %w", err)
	}
	if snap.Version != snapshotVersion {
		return fmt.Errorf("unsupported snapshot version %d", snap.Version)
	}
	if snap.Embedder != s.embedder.Name() {
		return fmt.Errorf("%w: snapshot has %q, configured %q", ErrSnapshotMismatch, snap.Embedder, s.embedder.Name())
	}
	if dim := s.embedder.Dimension(); dim > 0 && snap.Dimension != 0 && snap.Dimension != dim {
		return fmt.Errorf("%w: snapshot dimension %d, configured %d", ErrSnapshotMismatch, snap.Dimension, dim)
	}

	// Validate the whole snapshot before touching live state, so a corrupt
	// entry cannot leave the index half replaced.
	slots := make(map[string]int, len(snap.Entries))
	chunks := make([]domain.Chunk, 0, len(snap.Entries))
	vectors := make([][]float64, 0, len(snap.Entries))
	for _, e := range snap.Entries {
		if len(e.Vector) != snap.Dimension {
			return fmt.Errorf("corrupt snapshot: chunk %s vector has %d dims, header says %d", e.Chunk.ID, len(e.Vector), snap.Dimension)
		}
		slots[e.Chunk.ID] = len(chunks)
		chunks = append(chunks, e.Chunk)
		vectors = append(vectors, e.Vector)
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	s.slots = slots
	s.chunks = chunks
	s.vectors = vectors
	s.dimension = snap.Dimension
	s.built = len(chunks) > 0
	return nil
}
