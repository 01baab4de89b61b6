// Package retrieval fuses dense and keyword evidence into a ranked context
// for the generator.
package retrieval

import (
	"context"
	"fmt"
	"regexp"
	"sort"
	"strings"

	"docqa/internal/domain"
)

// Config tunes the fusion. Zero values are replaced by the defaults used
// throughout the pipeline.
type Config struct {
	SemanticWeight  float64
	KeywordWeight   float64
	Oversample      int
	MinScore        float64
	MaxContextChars int
}

func (c Config) withDefaults() Config {
	if c.SemanticWeight == 0 && c.KeywordWeight == 0 {
		c.SemanticWeight, c.KeywordWeight = 0.7, 0.3
	}
	if c.Oversample <= 0 {
		c.Oversample = 2
	}
	if c.MinScore == 0 {
		c.MinScore = 0.3
	}
	if c.MaxContextChars <= 0 {
		c.MaxContextChars = 6000
	}
	return c
}

// Engine retrieves candidate chunks from the vector store, re-scores them
// with keyword overlap against the analyzed query, and assembles the final
// context window.
type Engine struct {
	store domain.VectorStore
	cfg   Config
}

func New(store domain.VectorStore, cfg Config) *Engine {
	return &Engine{store: store, cfg: cfg.withDefaults()}
}

// Retrieve returns up to k chunks scored by the weighted fusion of semantic
// and keyword similarity, plus the assembled context. Candidates below the
// score floor are dropped; an empty candidate set yields a context with
// quality zero.
func (e *Engine) Retrieve(ctx context.Context, analysis domain.QueryAnalysis, k int, filter domain.Filter) (domain.Context, error) {
	if k <= 0 {
		k = 5
	}
	candidates, err := e.store.Search(ctx, analysis.Query, k*e.cfg.Oversample, filter)
	if err != nil {
		return domain.Context{}, fmt.Errorf("vector search: %w", err)
	}
	if len(candidates) == 0 {
		return domain.Context{}, nil
	}

	queryTokens := tokenize(analysis.Query)
	entityTokens := make(map[string]struct{})
	for _, ent := range analysis.Entities {
		for _, tok := range tokenize(ent.Text) {
			entityTokens[tok] = struct{}{}
		}
	}

	scored := make([]domain.ScoredChunk, 0, len(candidates))
	for _, cand := range candidates {
		kw := keywordSimilarity(queryTokens, entityTokens, cand.Chunk.Text)
		sc := domain.ScoredChunk{
			Chunk:    cand.Chunk,
			Semantic: cand.Score,
			Keyword:  kw,
			Score:    e.cfg.SemanticWeight*cand.Score + e.cfg.KeywordWeight*kw,
		}
		if sc.Score < e.cfg.MinScore {
			continue
		}
		scored = append(scored, sc)
	}
	sort.SliceStable(scored, func(i, j int) bool { return scored[i].Score > scored[j].Score })
	if k < len(scored) {
		scored = scored[:k]
	}
	return e.assemble(scored, analysis), nil
}

// assemble concatenates chunk texts up to the context budget and computes a
// quality score from the mean fusion score and how well the chunk categories
// cover the query's entity types.
func (e *Engine) assemble(scored []domain.ScoredChunk, analysis domain.QueryAnalysis) domain.Context {
	if len(scored) == 0 {
		return domain.Context{}
	}
	var b strings.Builder
	kept := make([]domain.ScoredChunk, 0, len(scored))
	for _, sc := range scored {
		if b.Len() > 0 && b.Len()+len(sc.Chunk.Text)+2 > e.cfg.MaxContextChars {
			break
		}
		if b.Len() > 0 {
			b.WriteString("\n\n")
		}
		b.WriteString(sc.Chunk.Text)
		kept = append(kept, sc)
	}
	rc := domain.Context{Chunks: kept, Text: b.String()}
	rc.Quality = 0.7*rc.MeanScore() + 0.3*entityCoverage(kept, analysis.Entities)
	return rc
}

// entityCoverage is the fraction of distinct entity types from the query
// that appear among the kept chunks' categories. No entities means the
// signal is neutral.
func entityCoverage(kept []domain.ScoredChunk, entities []domain.Entity) float64 {
	if len(entities) == 0 {
		return 1
	}
	want := make(map[string]struct{})
	for _, ent := range entities {
		want[ent.Type] = struct{}{}
	}
	have := make(map[string]struct{})
	for _, sc := range kept {
		for _, cat := range sc.Chunk.Categories {
			if _, ok := want[cat]; ok {
				have[cat] = struct{}{}
			}
		}
	}
	return float64(len(have)) / float64(len(want))
}

// keywordSimilarity blends token overlap with a bigram phrase bonus. Tokens
// that came from recognized entities count double in the overlap, since a
// question about "$500" should favour chunks that actually mention it.
func keywordSimilarity(queryTokens []string, entityTokens map[string]struct{}, text string) float64 {
	if len(queryTokens) == 0 {
		return 0
	}
	chunkTokens := tokenize(text)
	chunkSet := make(map[string]struct{}, len(chunkTokens))
	for _, tok := range chunkTokens {
		chunkSet[tok] = struct{}{}
	}

	var hit, total float64
	seen := make(map[string]struct{}, len(queryTokens))
	for _, tok := range queryTokens {
		if _, dup := seen[tok]; dup {
			continue
		}
		seen[tok] = struct{}{}
		weight := 1.0
		if _, ok := entityTokens[tok]; ok {
			weight = 2.0
		}
		total += weight
		if _, ok := chunkSet[tok]; ok {
			hit += weight
		}
	}
	overlap := 0.0
	if total > 0 {
		overlap = hit / total
	}

	lower := strings.ToLower(text)
	phrase := 0.0
	for i := 0; i+1 < len(queryTokens); i++ {
		bigram := queryTokens[i] + " " + queryTokens[i+1]
		if strings.Contains(lower, bigram) {
			phrase += 0.3
		}
	}
	if phrase > 1 {
		phrase = 1
	}
	score := 0.6*overlap + 0.4*phrase
	if score > 1 {
		score = 1
	}
	return score
}

var tokenRe = regexp.MustCompile(`[\p{L}\p{N}$%.]+`)

var stopwords = map[string]struct{}{
	"the": {}, "a": {}, "an": {}, "is": {}, "are": {}, "was": {}, "were": {},
	"do": {}, "does": {}, "did": {}, "what": {}, "which": {}, "how": {},
	"of": {}, "in": {}, "on": {}, "to": {}, "for": {}, "it": {}, "this": {},
	"that": {}, "and": {}, "or": {}, "my": {}, "i": {}, "be": {}, "by": {},
	"with": {}, "at": {}, "from": {},
}

func tokenize(s string) []string {
	raw := tokenRe.FindAllString(strings.ToLower(s), -1)
	out := make([]string, 0, len(raw))
	for _, tok := range raw {
		tok = strings.Trim(tok, ".")
		if tok == "" {
			continue
		}
		if _, stop := stopwords[tok]; stop {
			continue
		}
		out = append(out, tok)
	}
	return out
}
