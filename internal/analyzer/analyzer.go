// Package analyzer classifies questions before retrieval: query type,
// secondary intents and the entities mentioned in the text.
package analyzer

import (
	"strings"

	"docqa/internal/domain"
	"docqa/internal/processor"
)

// rule maps trigger phrases to a query type. Rules are checked in order and
// the first hit wins, so more specific phrasings must come before the broad
// ones: "not cover" contains "cover", and "when does coverage start" is a
// condition question even though it mentions coverage, so the coverage rule
// goes last among the typed rules.
type rule struct {
	queryType domain.QueryType
	phrases   []string
}

var rules = []rule{
	{domain.QueryExclusion, []string{"not cover", "does not cover", "excluded", "exclusion", "exception"}},
	{domain.QueryCost, []string{"cost", "how much", "price", "premium", "deductible", "copay", "co-pay", "fee", "pay"}},
	{domain.QueryProcedure, []string{"how do i", "how to", "process", "procedure", "claim", "file", "submit", "apply"}},
	{domain.QueryCondition, []string{"when", "condition", "require", "eligib", "qualify", "waiting period"}},
	{domain.QueryCoverage, []string{"cover", "coverage", "covered", "include", "included", "benefit"}},
}

// intent maps phrases to a secondary intent tag. Unlike the type rules,
// every matching intent is collected.
var intents = []struct {
	name    string
	phrases []string
}{
	{"waiting_period", []string{"waiting period", "wait", "after how long"}},
	{"eligibility", []string{"eligib", "qualify", "who can", "entitled"}},
	{"benefit", []string{"benefit", "payout", "reimburse", "compensation"}},
}

// Analyzer derives a QueryAnalysis from raw question text. Classification is
// a deterministic phrase lookup, so equal inputs always produce equal
// outputs.
type Analyzer struct {
	categories []processor.Category
}

func New(categories []processor.Category) *Analyzer {
	return &Analyzer{categories: categories}
}

func (a *Analyzer) Analyze(query string) domain.QueryAnalysis {
	lower := strings.ToLower(query)
	analysis := domain.QueryAnalysis{
		Query: query,
		Type:  classify(lower),
	}
	for _, in := range intents {
		if containsAny(lower, in.phrases) {
			analysis.Intents = append(analysis.Intents, in.name)
		}
	}
	analysis.Entities = processor.Entities(query, a.categories)
	return analysis
}

func classify(lower string) domain.QueryType {
	for _, r := range rules {
		if containsAny(lower, r.phrases) {
			return r.queryType
		}
	}
	return domain.QueryGeneral
}

func containsAny(s string, phrases []string) bool {
	for _, p := range phrases {
		if strings.Contains(s, p) {
			return true
		}
	}
	return false
}
