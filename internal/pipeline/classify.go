package pipeline

import (
	"fmt"
	"strings"

	"quotescribe/internal"
)

// quoteKeywords marks quote intent. Matching is a plain substring check over
// the lower-cased subject+body.
var quoteKeywords = []string{
	"quote", "quotation", "pricing", "price", "cost", "how much",
	"rate", "rates", "estimate", "interested in", "purchase", "buy",
	"order", "enquiry", "inquiry", "supply", "require", "need",
}

// classifierHighCutoff is the product score a detection must clear, together
// with quote intent, for a high-confidence classification.
const classifierHighCutoff = 10

// ClassifyEmail produces a single best-guess summary of one email against the
// catalog. Pure and stateless; never fails on malformed input.
func ClassifyEmail(email internal.EmailMessage, products []internal.Product) internal.EmailClassification {
	combined := strings.ToLower(email.Subject + " " + email.Body)

	keywordCount := 0
	for _, kw := range quoteKeywords {
		if strings.Contains(combined, kw) {
			keywordCount++
		}
	}
	isQuoteRequest := keywordCount > 0

	var detected *internal.DetectedProduct
	bestScore := 0
	for _, p := range products {
		score := productScore(combined, p)
		if score > bestScore {
			bestScore = score
			detected = &internal.DetectedProduct{
				Name:        p.Name,
				Code:        p.ProductCode,
				Description: productDescription(p),
			}
		}
	}

	confidence := internal.ConfidenceLow
	switch {
	case isQuoteRequest && detected != nil && bestScore > classifierHighCutoff:
		confidence = internal.ConfidenceHigh
	case isQuoteRequest || detected != nil:
		confidence = internal.ConfidenceMedium
	}

	reasoning := fmt.Sprintf("%d quote keywords, no product match", keywordCount)
	if detected != nil {
		reasoning = fmt.Sprintf("%d quote keywords, matched product %q (score %d)", keywordCount, detected.Name, bestScore)
	}

	return internal.EmailClassification{
		IsQuoteRequest:  isQuoteRequest,
		Confidence:      confidence,
		DetectedProduct: detected,
		Reasoning:       reasoning,
	}
}

// productScore sums len(word) over every word longer than 2 characters of
// "{name} {code} {brand}" found as a substring of the email text.
func productScore(combined string, p internal.Product) int {
	searchText := p.Name + " " + p.ProductCode
	if p.Brand != nil {
		searchText += " " + *p.Brand
	}

	score := 0
	for _, word := range strings.Fields(strings.ToLower(searchText)) {
		if len(word) <= 2 {
			continue
		}
		if strings.Contains(combined, word) {
			score += len(word)
		}
	}
	return score
}

func productDescription(p internal.Product) string {
	if p.Category != nil && *p.Category != "" {
		return *p.Category
	}
	return p.Name
}
