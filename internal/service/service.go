// Package service wires extraction, chunking, indexing, retrieval and
// generation into the operations the binaries expose.
package service

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"os"
	"path/filepath"
	"time"

	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"

	"docqa/internal/analyzer"
	"docqa/internal/domain"
	"docqa/internal/extract"
	"docqa/internal/logger"
	"docqa/internal/processor"
	"docqa/internal/retrieval"
)

// maxUploadBytes bounds how much of a document we accept, matching the
// upload limit of typical deployments.
const maxUploadBytes = 16 << 20

// Service owns the full question answering pipeline over a set of ingested
// documents.
type Service struct {
	log       *logger.Logger
	processor *processor.Processor
	analyzer  *analyzer.Analyzer
	index     domain.VectorStore
	engine    *retrieval.Engine
	generator domain.Generator
	store     domain.Store
	client    *http.Client
	topK      int
}

// Options carries the collaborators the service cannot build itself.
type Options struct {
	Logger    *logger.Logger
	Processor *processor.Processor
	Analyzer  *analyzer.Analyzer
	Index     domain.VectorStore
	Engine    *retrieval.Engine
	Generator domain.Generator
	Store     domain.Store
	FetchTime time.Duration
	TopK      int
}

func New(opts Options) *Service {
	if opts.Logger == nil {
		opts.Logger = logger.Nop()
	}
	if opts.FetchTime <= 0 {
		opts.FetchTime = 30 * time.Second
	}
	if opts.TopK <= 0 {
		opts.TopK = 5
	}
	return &Service{
		log:       opts.Logger,
		processor: opts.Processor,
		analyzer:  opts.Analyzer,
		index:     opts.Index,
		engine:    opts.Engine,
		generator: opts.Generator,
		store:     opts.Store,
		client:    &http.Client{Timeout: opts.FetchTime},
		topK:      opts.TopK,
	}
}

// Ingest runs the full pipeline over raw document bytes: extract, chunk,
// embed, index, persist. The returned document carries the terminal status;
// on failure the error is recorded on the document and no chunks survive.
func (s *Service) Ingest(ctx context.Context, filename string, data []byte, source domain.Source) (*domain.Document, error) {
	doc := &domain.Document{
		ID:        uuid.NewString(),
		Filename:  filename,
		Source:    source,
		SizeBytes: int64(len(data)),
		Status:    domain.StatusPending,
		CreatedAt: time.Now().UTC(),
	}
	if err := s.saveDoc(ctx, doc); err != nil {
		return nil, err
	}

	doc.Status = domain.StatusProcessing
	if err := s.saveDoc(ctx, doc); err != nil {
		return nil, err
	}

	chunks, err := s.process(ctx, doc, filename, data, "")
	if err != nil {
		return s.fail(ctx, doc, err)
	}

	doc.Status = domain.StatusCompleted
	doc.ChunkCount = len(chunks)
	if err := s.saveDoc(ctx, doc); err != nil {
		return nil, err
	}
	s.log.Info("document ingested", "id", doc.ID, "filename", filename, "chunks", len(chunks))
	return doc, nil
}

// IngestFile reads a local file and ingests it.
func (s *Service) IngestFile(ctx context.Context, path string) (*domain.Document, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read %s: %w", path, err)
	}
	if len(data) > maxUploadBytes {
		return nil, fmt.Errorf("%w: %s exceeds %d bytes", domain.ErrValidation, path, maxUploadBytes)
	}
	return s.Ingest(ctx, filepath.Base(path), data, domain.SourceUpload)
}

// IngestURL fetches a document over HTTP and ingests it. The response
// content type is kept as a fallback for format detection when the URL path
// has no usable extension.
func (s *Service) IngestURL(ctx context.Context, rawURL string) (*domain.Document, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, rawURL, nil)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", domain.ErrValidation, err)
	}
	resp, err := s.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("fetch %s: %w", rawURL, err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("fetch %s: unexpected status %s", rawURL, resp.Status)
	}
	data, err := io.ReadAll(io.LimitReader(resp.Body, maxUploadBytes+1))
	if err != nil {
		return nil, fmt.Errorf("read body of %s: %w", rawURL, err)
	}
	if len(data) > maxUploadBytes {
		return nil, fmt.Errorf("%w: %s exceeds %d bytes", domain.ErrValidation, rawURL, maxUploadBytes)
	}

	name := filepath.Base(req.URL.Path)
	if name == "." || name == "/" || name == "" {
		name = req.URL.Host
	}
	doc := &domain.Document{
		ID:        uuid.NewString(),
		Filename:  name,
		Source:    domain.SourceURL,
		SizeBytes: int64(len(data)),
		Status:    domain.StatusPending,
		CreatedAt: time.Now().UTC(),
	}
	if err := s.saveDoc(ctx, doc); err != nil {
		return nil, err
	}
	doc.Status = domain.StatusProcessing
	if err := s.saveDoc(ctx, doc); err != nil {
		return nil, err
	}

	chunks, err := s.process(ctx, doc, name, data, resp.Header.Get("Content-Type"))
	if err != nil {
		return s.fail(ctx, doc, err)
	}
	doc.Status = domain.StatusCompleted
	doc.ChunkCount = len(chunks)
	if err := s.saveDoc(ctx, doc); err != nil {
		return nil, err
	}
	s.log.Info("url ingested", "id", doc.ID, "url", rawURL, "chunks", len(chunks))
	return doc, nil
}

func (s *Service) process(ctx context.Context, doc *domain.Document, filename string, data []byte, contentType string) ([]domain.Chunk, error) {
	format, err := extract.DetectFormat(filename, contentType)
	if err != nil {
		return nil, err
	}
	res, err := extract.Extract(format, data)
	if err != nil {
		return nil, err
	}
	chunks, err := s.processor.Process(*doc, res)
	if err != nil {
		return nil, err
	}
	if err := s.index.Add(ctx, chunks); err != nil {
		return nil, fmt.Errorf("index chunks: %w", err)
	}
	if s.store != nil {
		if err := s.store.SaveChunks(ctx, chunks); err != nil {
			return nil, fmt.Errorf("persist chunks: %w", err)
		}
	}
	return chunks, nil
}

func (s *Service) fail(ctx context.Context, doc *domain.Document, cause error) (*domain.Document, error) {
	doc.Status = domain.StatusFailed
	doc.Error = cause.Error()
	doc.ChunkCount = 0
	if err := s.saveDoc(ctx, doc); err != nil {
		return nil, errors.Join(cause, err)
	}
	s.log.Warn("ingestion failed", "id", doc.ID, "filename", doc.Filename, "error", cause)
	return doc, cause
}

func (s *Service) saveDoc(ctx context.Context, doc *domain.Document) error {
	if s.store == nil {
		return nil
	}
	if err := s.store.SaveDocument(ctx, doc); err != nil {
		return fmt.Errorf("persist document %s: %w", doc.ID, err)
	}
	return nil
}

// Query answers a single question against the index and appends the outcome
// to the query log.
func (s *Service) Query(ctx context.Context, question string) (*domain.Answer, error) {
	if question == "" {
		return nil, fmt.Errorf("%w: empty question", domain.ErrValidation)
	}
	started := time.Now()
	analysis := s.analyzer.Analyze(question)
	rc, err := s.engine.Retrieve(ctx, analysis, s.topK, domain.Filter{})
	if err != nil {
		return nil, err
	}
	answer, err := s.generator.Generate(ctx, analysis, rc)
	if err != nil {
		// The query stays unanswered but the retrieved sources are still
		// reported, so callers can see what generation would have used.
		return &answer, err
	}
	s.logQuery(ctx, analysis, answer, time.Since(started))
	return &answer, nil
}

func (s *Service) logQuery(ctx context.Context, analysis domain.QueryAnalysis, answer domain.Answer, took time.Duration) {
	if s.store == nil {
		return
	}
	ids := make([]string, len(answer.Sources))
	for i, src := range answer.Sources {
		ids[i] = src.ChunkID
	}
	rec := &domain.QueryRecord{
		ID:             uuid.NewString(),
		Query:          analysis.Query,
		QueryType:      analysis.Type,
		Answer:         answer.Text,
		Confidence:     answer.Confidence,
		SourceChunkIDs: ids,
		Duration:       took,
		CreatedAt:      time.Now().UTC(),
	}
	// The query log is analytics, not correctness: a write failure must not
	// turn a good answer into an error.
	if err := s.store.SaveQueryRecord(ctx, rec); err != nil {
		s.log.Warn("query log write failed", "error", err)
	}
}

// AnswerAll answers the questions concurrently, bounded by limit workers.
// Answers come back in input order. Questions fail independently: a failed
// one yields a zero-confidence answer carrying whatever sources retrieval
// found, and the rest of the batch still runs.
func (s *Service) AnswerAll(ctx context.Context, questions []string, limit int) ([]domain.Answer, error) {
	if limit <= 0 {
		limit = 4
	}
	answers := make([]domain.Answer, len(questions))
	var g errgroup.Group
	g.SetLimit(limit)
	for i, q := range questions {
		i, q := i, q
		g.Go(func() error {
			a, err := s.Query(ctx, q)
			if a != nil {
				answers[i] = *a
			}
			if err != nil {
				s.log.Warn("question failed", "question", i+1, "error", err)
				answers[i].Confidence = 0
				if answers[i].Text == "" {
					answers[i].Text = "This question could not be answered."
				}
			}
			return nil
		})
	}
	_ = g.Wait()
	if err := ctx.Err(); err != nil {
		return answers, err
	}
	return answers, nil
}

// Status reports the index statistics and stored row counts.
type Status struct {
	Index     domain.IndexStats
	Documents int64
	Chunks    int64
	Queries   int64
}

func (s *Service) Status(ctx context.Context) (Status, error) {
	st := Status{Index: s.index.Stats()}
	if s.store == nil {
		return st, nil
	}
	docs, chunks, queries, err := s.store.Counts(ctx)
	if err != nil {
		return st, fmt.Errorf("count rows: %w", err)
	}
	st.Documents, st.Chunks, st.Queries = docs, chunks, queries
	return st, nil
}

// SaveIndex writes the vector index snapshot to path.
func (s *Service) SaveIndex(path string) error {
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("create %s: %w", path, err)
	}
	defer f.Close()
	if err := s.index.Persist(f); err != nil {
		return err
	}
	return f.Close()
}

// LoadIndex restores the vector index from a snapshot at path. A missing
// file is not an error; the index simply starts empty.
func (s *Service) LoadIndex(path string) error {
	f, err := os.Open(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil
		}
		return fmt.Errorf("open %s: %w", path, err)
	}
	defer f.Close()
	return s.index.Load(f)
}
