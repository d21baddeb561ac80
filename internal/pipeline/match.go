package pipeline

import (
	"math"
	"sort"
	"strings"

	"quotescribe/internal"
	"quotescribe/internal/catalog"
	"quotescribe/internal/config"
	"quotescribe/internal/util"
)

// Score and confidence constants for the five match passes. Values are fixed
// by the established scoring behavior; only the fuzzy threshold is
// configurable.
const (
	ScoreExactCode  = 100.0
	ScoreExactName  = 90.0
	ScoreContextual = 25.0

	FuzzyScoreScale   = 80.0
	PartialScoreScale = 20.0
	BrandExactBonus   = 30.0

	ConfidenceExactCode  = 0.95
	ConfidenceExactName  = 0.90
	ConfidenceContextual = 0.6

	FuzzyConfidenceScale  = 0.8
	PartialConfidenceCap  = 0.8
	DefaultFuzzyThreshold = 0.7
	DefaultMaxResults     = 10
)

// categoryRules drives the contextual pass: a query containing any keyword
// pulls in every product whose category or name contains the category string.
// The slice order is fixed so a product matching several triggered categories
// is always attributed to the same one.
var categoryRules = []struct {
	category string
	keywords []string
}{
	{"paper", []string{"a4", "a3", "sheet", "ream", "printing"}},
	{"stationery", []string{"pen", "pencil", "eraser", "notebook"}},
	{"office", []string{"supplies", "equipment", "furniture"}},
}

// Matcher runs the tiered match strategies over one catalog snapshot. It is
// safe for concurrent use: each FindMatches call only mutates its own local
// result map.
type Matcher struct {
	products       []internal.Product
	index          *catalog.Index
	fuzzyThreshold float64
}

func NewMatcher(cfg config.Config, products []internal.Product) *Matcher {
	threshold := cfg.FuzzyMatchThreshold
	if threshold <= 0 {
		threshold = DefaultFuzzyThreshold
	}
	return &Matcher{
		products:       products,
		index:          catalog.BuildIndex(products),
		fuzzyThreshold: threshold,
	}
}

// FindMatches returns the top matches for free text, descending by score, one
// entry per product code. Cheap high-precision passes run first; later passes
// only replace an entry when they score strictly higher, except the
// contextual pass which never overwrites.
func (m *Matcher) FindMatches(searchText string, maxResults int) []internal.ProductMatch {
	if maxResults <= 0 {
		maxResults = DefaultMaxResults
	}

	text := strings.ToLower(searchText)
	results := map[string]internal.ProductMatch{}

	m.matchExactCode(text, results)
	m.matchExactName(text, results)
	m.matchFuzzyName(text, results)
	m.matchBrandPartial(text, results)
	m.matchContextual(text, results)

	out := make([]internal.ProductMatch, 0, len(results))
	for _, match := range results {
		out = append(out, match)
	}
	sort.SliceStable(out, func(i, j int) bool {
		if out[i].Score != out[j].Score {
			return out[i].Score > out[j].Score
		}
		return out[i].Product.ProductCode < out[j].Product.ProductCode
	})
	if len(out) > maxResults {
		out = out[:maxResults]
	}
	return out
}

// FindBatchMatches runs FindMatches independently per term. There is no
// cross-term deduplication or aggregation.
func (m *Matcher) FindBatchMatches(terms []string, maxResults int) map[string][]internal.ProductMatch {
	out := make(map[string][]internal.ProductMatch, len(terms))
	for _, term := range terms {
		out[term] = m.FindMatches(term, maxResults)
	}
	return out
}

func (m *Matcher) matchExactCode(text string, results map[string]internal.ProductMatch) {
	for _, p := range m.products {
		code := strings.ToLower(p.ProductCode)
		if code == "" || !strings.Contains(text, code) {
			continue
		}
		upsert(results, internal.ProductMatch{
			Product:      p,
			Score:        ScoreExactCode,
			Confidence:   ConfidenceExactCode,
			MatchType:    internal.MatchExactCode,
			MatchedTerms: []string{p.ProductCode},
		})
	}
}

func (m *Matcher) matchExactName(text string, results map[string]internal.ProductMatch) {
	for _, p := range m.products {
		name := strings.ToLower(p.Name)
		if name == "" || !strings.Contains(text, name) {
			continue
		}
		upsert(results, internal.ProductMatch{
			Product:      p,
			Score:        ScoreExactName,
			Confidence:   ConfidenceExactName,
			MatchType:    internal.MatchExactName,
			MatchedTerms: []string{p.Name},
		})
	}
}

func (m *Matcher) matchFuzzyName(text string, results map[string]internal.ProductMatch) {
	for _, p := range m.products {
		similarity := util.TextSimilarity(text, strings.ToLower(p.Name))
		if similarity <= m.fuzzyThreshold {
			continue
		}
		upsert(results, internal.ProductMatch{
			Product:      p,
			Score:        math.Round(similarity * FuzzyScoreScale),
			Confidence:   similarity * FuzzyConfidenceScale,
			MatchType:    internal.MatchFuzzyName,
			MatchedTerms: []string{p.Name},
		})
	}
}

func (m *Matcher) matchBrandPartial(text string, results map[string]internal.ProductMatch) {
	for _, token := range util.Tokenize(text) {
		for _, p := range m.index.Lookup(token) {
			score := util.WordImportance(token, p) * PartialScoreScale
			matchType := internal.MatchPartial
			if p.Brand != nil && strings.EqualFold(token, *p.Brand) {
				score += BrandExactBonus
				matchType = internal.MatchBrand
			}
			confidence := score / 100
			if confidence > PartialConfidenceCap {
				confidence = PartialConfidenceCap
			}
			upsert(results, internal.ProductMatch{
				Product:      p,
				Score:        score,
				Confidence:   confidence,
				MatchType:    matchType,
				MatchedTerms: []string{token},
			})
		}
	}
}

func (m *Matcher) matchContextual(text string, results map[string]internal.ProductMatch) {
	for _, rule := range categoryRules {
		triggered := ""
		for _, kw := range rule.keywords {
			if strings.Contains(text, kw) {
				triggered = kw
				break
			}
		}
		if triggered == "" {
			continue
		}

		for _, p := range m.products {
			inCategory := p.Category != nil && strings.Contains(strings.ToLower(*p.Category), rule.category)
			inName := strings.Contains(strings.ToLower(p.Name), rule.category)
			if !inCategory && !inName {
				continue
			}
			if _, exists := results[p.ProductCode]; exists {
				continue
			}
			results[p.ProductCode] = internal.ProductMatch{
				Product:      p,
				Score:        ScoreContextual,
				Confidence:   ConfidenceContextual,
				MatchType:    internal.MatchPartial,
				MatchedTerms: []string{triggered},
			}
		}
	}
}

// upsert replaces an existing entry only when the new score is strictly
// higher.
func upsert(results map[string]internal.ProductMatch, match internal.ProductMatch) {
	existing, ok := results[match.Product.ProductCode]
	if ok && existing.Score >= match.Score {
		return
	}
	results[match.Product.ProductCode] = match
}
