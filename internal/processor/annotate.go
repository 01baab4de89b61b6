package processor

import (
	"regexp"
	"sort"
	"strings"

	"docqa/internal/domain"
)

// Category is one configurable domain keyword category.
type Category struct {
	Name  string
	Terms []string
}

// Builtin content-category names.
const (
	CategoryCurrency   = "currency"
	CategoryDate       = "date"
	CategoryPercentage = "percentage"
	CategoryNumber     = "number"
)

var (
	currencyRe = regexp.MustCompile(`(?i)[$€£₹]\s?\d[\d,]*(?:\.\d+)?|\b\d[\d,]*(?:\.\d+)?\s?(?:dollar|euro|pound|rupee)s?\b|\b(?:dollar|euro|pound|rupee)s?\b`)
	dateRe     = regexp.MustCompile(`(?i)\b\d{1,2}[/-]\d{1,2}[/-]\d{2,4}\b|\b(?:january|february|march|april|may|june|july|august|september|october|november|december)\b`)
	percentRe  = regexp.MustCompile(`\d+(?:\.\d+)?\s?%`)
	numberRe   = regexp.MustCompile(`\b\d[\d,]*(?:\.\d+)?\b`)
)

// builtinMatchers is the ordered pattern table shared by chunk annotation
// and query entity extraction.
var builtinMatchers = []struct {
	name string
	re   *regexp.Regexp
}{
	{CategoryCurrency, currencyRe},
	{CategoryDate, dateRe},
	{CategoryPercentage, percentRe},
	{CategoryNumber, numberRe},
}

// ContentCategories returns the builtin and domain categories present in the
// text, in a stable order.
func ContentCategories(text string, categories []Category) []string {
	var out []string
	for _, m := range builtinMatchers {
		if m.re.MatchString(text) {
			out = append(out, m.name)
		}
	}
	lower := strings.ToLower(text)
	for _, cat := range categories {
		for _, term := range cat.Terms {
			if strings.Contains(lower, term) {
				out = append(out, cat.Name)
				break
			}
		}
	}
	return out
}

// Entities extracts typed spans from the text using the same matchers as
// chunk annotation plus the domain term lists. Overlapping matches keep the
// longer span.
func Entities(text string, categories []Category) []domain.Entity {
	var candidates []domain.Entity
	for _, m := range builtinMatchers {
		for _, loc := range m.re.FindAllStringIndex(text, -1) {
			candidates = append(candidates, domain.Entity{
				Type:  m.name,
				Text:  text[loc[0]:loc[1]],
				Start: loc[0],
				End:   loc[1],
			})
		}
	}
	lower := strings.ToLower(text)
	for _, cat := range categories {
		for _, term := range cat.Terms {
			for from := 0; ; {
				i := strings.Index(lower[from:], term)
				if i < 0 {
					break
				}
				start := from + i
				candidates = append(candidates, domain.Entity{
					Type:  cat.Name,
					Text:  text[start : start+len(term)],
					Start: start,
					End:   start + len(term),
				})
				from = start + len(term)
			}
		}
	}
	return resolveOverlaps(candidates)
}

// resolveOverlaps keeps non-overlapping entities, preferring longer spans,
// then earlier ones.
func resolveOverlaps(candidates []domain.Entity) []domain.Entity {
	sort.Slice(candidates, func(i, j int) bool {
		li, lj := candidates[i].End-candidates[i].Start, candidates[j].End-candidates[j].Start
		if li != lj {
			return li > lj
		}
		return candidates[i].Start < candidates[j].Start
	})
	var kept []domain.Entity
	for _, cand := range candidates {
		overlaps := false
		for _, k := range kept {
			if cand.Start < k.End && k.Start < cand.End {
				overlaps = true
				break
			}
		}
		if !overlaps {
			kept = append(kept, cand)
		}
	}
	sort.Slice(kept, func(i, j int) bool { return kept[i].Start < kept[j].Start })
	return kept
}

var (
	tableCueRe  = regexp.MustCompile(`(?i)\btable\b|\brow\b|\bcolumn\b`)
	clauseCueRe = regexp.MustCompile(`(?i)\bsection\b|\bchapter\b|\barticle\b|\bclause\b`)
	listMarkRe  = regexp.MustCompile(`(?m)^\s*(?:[-*•]|\d+\.)\s`)
)

// inferSemanticType maps a structural hint from extraction, or text cues
// when the hint is just "paragraph", to the chunk's semantic type.
func inferSemanticType(hint domain.SemanticType, text string) domain.SemanticType {
	if hint != "" && hint != domain.TypeParagraph {
		return hint
	}
	switch {
	case strings.Count(text, "|") >= 2 || tableCueRe.MatchString(text):
		return domain.TypeTable
	case listMarkRe.MatchString(text):
		return domain.TypeList
	case clauseCueRe.MatchString(text):
		return domain.TypeClause
	case hint == domain.TypeParagraph:
		return domain.TypeParagraph
	default:
		return domain.TypeUnknown
	}
}
