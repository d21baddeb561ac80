package util

import (
	"regexp"
	"strings"

	"quotescribe/internal"
)

var (
	reTokenSplit = regexp.MustCompile(`[\s\-_,.]+`)
	reSpaces     = regexp.MustCompile(`\s+`)
)

// TextSimilarity is the Jaccard index over whitespace-delimited token sets.
// Comparison is case-sensitive as passed in; callers lower-case beforehand.
// Two empty inputs score 0, not NaN.
func TextSimilarity(a, b string) float64 {
	setA := wordSet(a)
	setB := wordSet(b)

	union := map[string]struct{}{}
	for w := range setA {
		union[w] = struct{}{}
	}
	for w := range setB {
		union[w] = struct{}{}
	}
	if len(union) == 0 {
		return 0
	}

	inter := 0
	for w := range setA {
		if _, ok := setB[w]; ok {
			inter++
		}
	}
	return float64(inter) / float64(len(union))
}

// WordImportance weights a query token for ranking: base 1.0, plus 0.1 per
// character, +2 when the word occurs inside the product name, +3 when it
// occurs inside the brand. Purely additive and only meaningful relative to
// other tokens of the same query.
func WordImportance(word string, product internal.Product) float64 {
	importance := 1.0 + 0.1*float64(len(word))

	lower := strings.ToLower(word)
	if strings.Contains(strings.ToLower(product.Name), lower) {
		importance += 2
	}
	if product.Brand != nil && strings.Contains(strings.ToLower(*product.Brand), lower) {
		importance += 3
	}
	return importance
}

// Tokenize lower-cases the input, splits on whitespace, hyphen, underscore,
// comma and period, and keeps tokens longer than 2 characters.
func Tokenize(input string) []string {
	parts := reTokenSplit.Split(strings.ToLower(input), -1)
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		if len([]rune(p)) > 2 {
			out = append(out, p)
		}
	}
	return out
}

// NormalizeSpaces collapses runs of whitespace to single spaces.
func NormalizeSpaces(input string) string {
	return strings.TrimSpace(reSpaces.ReplaceAllString(input, " "))
}

func wordSet(s string) map[string]struct{} {
	set := map[string]struct{}{}
	for _, w := range strings.Fields(s) {
		set[w] = struct{}{}
	}
	return set
}

func StringPtr(v string) *string { return &v }

func IntPtr(v int) *int { return &v }

func FloatPtr(v float64) *float64 { return &v }
