// Package generator turns a retrieved context and an analyzed query into a
// grounded answer with a confidence estimate.
package generator

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"docqa/internal/domain"
)

const systemPrompt = `You are an assistant answering questions about documents. ` +
	`Answer strictly from the provided context. If the context does not contain ` +
	`the answer, say so instead of guessing. Respond with a JSON object with keys ` +
	`"answer" (string), "confidence" (number between 0 and 1) and "reasoning" (string).`

// Config weights the retrieval signals that cap the model's self-reported
// confidence.
type Config struct {
	RetrievalWeight float64
	QualityWeight   float64
}

func (c Config) withDefaults() Config {
	if c.RetrievalWeight == 0 && c.QualityWeight == 0 {
		c.RetrievalWeight, c.QualityWeight = 0.6, 0.4
	}
	return c
}

type Generator struct {
	llm LLM
	cfg Config
}

func New(llm LLM, cfg Config) *Generator {
	return &Generator{llm: llm, cfg: cfg.withDefaults()}
}

// Generate answers the query from the retrieved context. An empty context
// short-circuits to a canned answer with zero confidence without touching
// the model.
func (g *Generator) Generate(ctx context.Context, analysis domain.QueryAnalysis, rc domain.Context) (domain.Answer, error) {
	if len(rc.Chunks) == 0 {
		return domain.Answer{
			Text:       "The indexed documents do not contain information relevant to this question.",
			Confidence: 0,
			Reasoning:  "no context passed the retrieval score threshold",
		}, nil
	}

	raw, err := g.llm.Complete(ctx, systemPrompt, buildPrompt(analysis, rc))
	if err != nil {
		// Retrieval already succeeded; report what the answer would have been
		// grounded on even though the model call failed.
		return domain.Answer{Sources: sources(rc)}, &domain.GenerationError{Err: err}
	}

	answer := parseResponse(raw)
	answer.Confidence = g.confidence(answer.Confidence, rc)
	answer.Sources = sources(rc)
	return answer, nil
}

// buildPrompt lays the context out as numbered blocks with their fusion
// scores, followed by query-type specific guidance and the question itself.
func buildPrompt(analysis domain.QueryAnalysis, rc domain.Context) string {
	var b strings.Builder
	for i, sc := range rc.Chunks {
		fmt.Fprintf(&b, "--- Context %d (Score: %.2f) ---\n%s\n\n", i+1, sc.Score, sc.Chunk.Text)
	}
	b.WriteString(guidance(analysis.Type))
	b.WriteString("\n\nQuestion: ")
	b.WriteString(analysis.Query)
	return b.String()
}

func guidance(t domain.QueryType) string {
	switch t {
	case domain.QueryCoverage:
		return "Focus on what is covered or included. Quote the relevant clause when possible."
	case domain.QueryExclusion:
		return "Focus on exclusions and limitations. State explicitly what is not covered."
	case domain.QueryCost:
		return "Focus on amounts, fees, deductibles and limits. Include exact figures from the context."
	case domain.QueryProcedure:
		return "Focus on the required steps. Present them in order."
	case domain.QueryCondition:
		return "Focus on conditions, eligibility requirements and waiting periods."
	default:
		return "Answer the question directly using the context."
	}
}

type modelResponse struct {
	Answer     string  `json:"answer"`
	Confidence float64 `json:"confidence"`
	Reasoning  string  `json:"reasoning"`
}

// parseResponse extracts the structured reply. Models occasionally wrap the
// JSON in prose or code fences, so the parser hunts for the outermost object
// before giving up and treating the whole reply as plain text.
func parseResponse(raw string) domain.Answer {
	if body, ok := extractJSON(raw); ok {
		var mr modelResponse
		if err := json.Unmarshal([]byte(body), &mr); err == nil && mr.Answer != "" {
			conf := mr.Confidence
			if conf <= 0 || conf > 1 {
				conf = 0.8
			}
			return domain.Answer{Text: mr.Answer, Confidence: conf, Reasoning: mr.Reasoning}
		}
	}
	return domain.Answer{Text: strings.TrimSpace(raw), Confidence: 0.8}
}

func extractJSON(raw string) (string, bool) {
	start := strings.Index(raw, "{")
	end := strings.LastIndex(raw, "}")
	if start < 0 || end <= start {
		return "", false
	}
	return raw[start : end+1], true
}

// confidence caps the model's self-estimate by what retrieval actually
// supports: a blend of the top fusion score and the context quality, plus a
// fixed allowance. A model cannot be more confident than its evidence.
func (g *Generator) confidence(model float64, rc domain.Context) float64 {
	blend := g.cfg.RetrievalWeight*rc.TopScore() + g.cfg.QualityWeight*rc.Quality
	conf := model
	if ceiling := blend + 0.3; conf > ceiling {
		conf = ceiling
	}
	return clamp01(conf)
}

func sources(rc domain.Context) []domain.SourceRef {
	refs := make([]domain.SourceRef, len(rc.Chunks))
	for i, sc := range rc.Chunks {
		refs[i] = domain.SourceRef{
			ChunkID:    sc.Chunk.ID,
			DocumentID: sc.Chunk.DocumentID,
			Score:      sc.Score,
			Categories: sc.Chunk.Categories,
		}
	}
	return refs
}

func clamp01(x float64) float64 {
	if x < 0 {
		return 0
	}
	if x > 1 {
		return 1
	}
	return x
}
