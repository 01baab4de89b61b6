package service

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"docqa/internal/analyzer"
	"docqa/internal/domain"
	"docqa/internal/embedding/hashing"
	"docqa/internal/generator"
	"docqa/internal/processor"
	"docqa/internal/retrieval"
	"docqa/internal/storage/sqlite"
	"docqa/internal/vectorstore"
)

const policyText = `# Health Policy

Coverage

Hospital stays and surgery are covered in full for all insured members.

Costs

A deductible of $500 applies to every claim. The monthly premium is $120.

Exclusions

Cosmetic surgery is not covered. Claims arising from self-inflicted injury are excluded.
`

type countingLLM struct {
	calls   int64
	failOn  string
	failErr error
}

func (c *countingLLM) Complete(_ context.Context, _, user string) (string, error) {
	atomic.AddInt64(&c.calls, 1)
	if c.failOn != "" && strings.Contains(user, c.failOn) {
		return "", c.failErr
	}
	return `{"answer":"The deductible is $500 per claim.","confidence":0.9,"reasoning":"stated in the costs section"}`, nil
}

var testCategories = []processor.Category{
	{Name: "coverage", Terms: []string{"cover", "coverage", "covered"}},
	{Name: "exclusion", Terms: []string{"exclude", "excluded", "not covered"}},
	{Name: "deductible", Terms: []string{"deductible", "premium"}},
}

func newTestService(t *testing.T, store domain.Store) (*Service, *countingLLM) {
	t.Helper()
	emb, err := hashing.New(256)
	require.NoError(t, err)
	index := vectorstore.New(emb)
	llm := &countingLLM{}
	return New(Options{
		Processor: processor.New(400, 80, testCategories),
		Analyzer:  analyzer.New(testCategories),
		Index:     index,
		Engine:    retrieval.New(index, retrieval.Config{MinScore: 0.05}),
		Generator: generator.New(llm, generator.Config{}),
		Store:     store,
	}), llm
}

func TestIngestAndQuery(t *testing.T) {
	svc, llm := newTestService(t, nil)
	ctx := context.Background()

	doc, err := svc.Ingest(ctx, "policy.md", []byte(policyText), domain.SourceUpload)
	require.NoError(t, err)
	assert.Equal(t, domain.StatusCompleted, doc.Status)
	assert.Positive(t, doc.ChunkCount)
	assert.Empty(t, doc.Error)

	answer, err := svc.Query(ctx, "How much is the deductible?")
	require.NoError(t, err)
	assert.Equal(t, "The deductible is $500 per claim.", answer.Text)
	assert.Positive(t, answer.Confidence)
	assert.NotEmpty(t, answer.Sources)
	assert.EqualValues(t, 1, llm.calls)
}

func TestQueryEmptyIndexHasZeroConfidence(t *testing.T) {
	svc, llm := newTestService(t, nil)

	answer, err := svc.Query(context.Background(), "How much is the deductible?")
	require.NoError(t, err)
	assert.Zero(t, answer.Confidence)
	assert.Empty(t, answer.Sources)
	assert.Zero(t, llm.calls)
}

func TestQueryRejectsEmptyQuestion(t *testing.T) {
	svc, _ := newTestService(t, nil)
	_, err := svc.Query(context.Background(), "")
	assert.ErrorIs(t, err, domain.ErrValidation)
}

func TestIngestCorruptDocumentFails(t *testing.T) {
	store, err := sqlite.Open(filepath.Join(t.TempDir(), "docqa.db"))
	require.NoError(t, err)
	svc, _ := newTestService(t, store)
	ctx := context.Background()

	doc, err := svc.Ingest(ctx, "broken.pdf", []byte("not a pdf at all"), domain.SourceUpload)
	require.Error(t, err)
	require.NotNil(t, doc)
	assert.Equal(t, domain.StatusFailed, doc.Status)
	assert.NotEmpty(t, doc.Error)
	assert.Zero(t, doc.ChunkCount)

	// The failure is durable: the stored row carries the same state.
	saved, err := store.Document(ctx, doc.ID)
	require.NoError(t, err)
	assert.Equal(t, domain.StatusFailed, saved.Status)
	assert.Zero(t, saved.ChunkCount)

	// Nothing from the failed document reached the index.
	assert.Zero(t, svc.index.Stats().Chunks)
}

func TestIngestUnsupportedFormat(t *testing.T) {
	svc, _ := newTestService(t, nil)
	doc, err := svc.Ingest(context.Background(), "archive.zip", []byte("zipzip"), domain.SourceUpload)
	require.Error(t, err)
	assert.ErrorIs(t, err, domain.ErrUnsupportedFormat)
	assert.Equal(t, domain.StatusFailed, doc.Status)
}

func TestIngestPersistsDocumentAndChunks(t *testing.T) {
	store, err := sqlite.Open(filepath.Join(t.TempDir(), "docqa.db"))
	require.NoError(t, err)
	svc, _ := newTestService(t, store)
	ctx := context.Background()

	doc, err := svc.Ingest(ctx, "policy.md", []byte(policyText), domain.SourceUpload)
	require.NoError(t, err)

	docs, chunks, _, err := store.Counts(ctx)
	require.NoError(t, err)
	assert.EqualValues(t, 1, docs)
	assert.EqualValues(t, doc.ChunkCount, chunks)
}

func TestQueryAppendOnlyLog(t *testing.T) {
	store, err := sqlite.Open(filepath.Join(t.TempDir(), "docqa.db"))
	require.NoError(t, err)
	svc, _ := newTestService(t, store)
	ctx := context.Background()

	_, err = svc.Ingest(ctx, "policy.md", []byte(policyText), domain.SourceUpload)
	require.NoError(t, err)

	_, err = svc.Query(ctx, "How much is the deductible?")
	require.NoError(t, err)
	_, err = svc.Query(ctx, "What is not covered?")
	require.NoError(t, err)

	_, _, queries, err := store.Counts(ctx)
	require.NoError(t, err)
	assert.EqualValues(t, 2, queries)
}

func TestIngestFile(t *testing.T) {
	svc, _ := newTestService(t, nil)
	path := filepath.Join(t.TempDir(), "policy.txt")
	require.NoError(t, os.WriteFile(path, []byte(policyText), 0o644))

	doc, err := svc.IngestFile(context.Background(), path)
	require.NoError(t, err)
	assert.Equal(t, "policy.txt", doc.Filename)
	assert.Equal(t, domain.StatusCompleted, doc.Status)
}

func TestAnswerAllPreservesOrder(t *testing.T) {
	svc, llm := newTestService(t, nil)
	ctx := context.Background()
	_, err := svc.Ingest(ctx, "policy.md", []byte(policyText), domain.SourceUpload)
	require.NoError(t, err)

	questions := make([]string, 6)
	for i := range questions {
		questions[i] = fmt.Sprintf("How much is the deductible? (variant %d)", i)
	}
	answers, err := svc.AnswerAll(ctx, questions, 3)
	require.NoError(t, err)
	require.Len(t, answers, len(questions))
	for _, a := range answers {
		assert.Equal(t, "The deductible is $500 per claim.", a.Text)
	}
	assert.EqualValues(t, len(questions), llm.calls)
}

func TestQueryGenerationFailureKeepsSources(t *testing.T) {
	svc, llm := newTestService(t, nil)
	llm.failOn = "deductible"
	llm.failErr = errors.New("rate limited")
	ctx := context.Background()

	_, err := svc.Ingest(ctx, "policy.md", []byte(policyText), domain.SourceUpload)
	require.NoError(t, err)

	answer, err := svc.Query(ctx, "How much is the deductible?")
	require.Error(t, err)
	var genErr *domain.GenerationError
	assert.True(t, errors.As(err, &genErr))
	require.NotNil(t, answer)
	assert.NotEmpty(t, answer.Sources, "retrieved sources must survive a failed generation")
	assert.Zero(t, answer.Confidence)
}

func TestAnswerAllDegradesPerQuestion(t *testing.T) {
	svc, llm := newTestService(t, nil)
	// The question mark keeps the trigger off the context chunks, which also
	// mention the premium.
	llm.failOn = "monthly premium?"
	llm.failErr = errors.New("rate limited")
	ctx := context.Background()

	_, err := svc.Ingest(ctx, "policy.md", []byte(policyText), domain.SourceUpload)
	require.NoError(t, err)

	questions := []string{
		"How much is the deductible?",
		"What is the monthly premium?",
		"How much is the deductible exactly?",
	}
	answers, err := svc.AnswerAll(ctx, questions, 2)
	require.NoError(t, err, "one failed question must not abort the batch")
	require.Len(t, answers, 3)

	assert.Equal(t, "The deductible is $500 per claim.", answers[0].Text)
	assert.Equal(t, "The deductible is $500 per claim.", answers[2].Text)

	assert.Zero(t, answers[1].Confidence)
	assert.NotEmpty(t, answers[1].Text)
	assert.NotEmpty(t, answers[1].Sources, "failed question still reports its sources")
}

func TestStatus(t *testing.T) {
	store, err := sqlite.Open(filepath.Join(t.TempDir(), "docqa.db"))
	require.NoError(t, err)
	svc, _ := newTestService(t, store)
	ctx := context.Background()

	_, err = svc.Ingest(ctx, "policy.md", []byte(policyText), domain.SourceUpload)
	require.NoError(t, err)

	st, err := svc.Status(ctx)
	require.NoError(t, err)
	assert.True(t, st.Index.Built)
	assert.Positive(t, st.Index.Chunks)
	assert.EqualValues(t, 1, st.Documents)
	assert.EqualValues(t, st.Index.Chunks, st.Chunks)
}

func TestSaveLoadIndex(t *testing.T) {
	svc, _ := newTestService(t, nil)
	ctx := context.Background()
	_, err := svc.Ingest(ctx, "policy.md", []byte(policyText), domain.SourceUpload)
	require.NoError(t, err)
	before := svc.index.Stats()

	path := filepath.Join(t.TempDir(), "index.json")
	require.NoError(t, svc.SaveIndex(path))

	restored, _ := newTestService(t, nil)
	require.NoError(t, restored.LoadIndex(path))
	assert.Equal(t, before, restored.index.Stats())
}

func TestLoadIndexMissingFileIsFine(t *testing.T) {
	svc, _ := newTestService(t, nil)
	assert.NoError(t, svc.LoadIndex(filepath.Join(t.TempDir(), "absent.json")))
}
