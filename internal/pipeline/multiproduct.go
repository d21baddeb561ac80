package pipeline

import (
	"encoding/json"
	"fmt"
	"os"
	"regexp"
	"strconv"
	"strings"

	"quotescribe/internal"
	"quotescribe/internal/util"
)

// ProductPattern is one entry of the extraction table: ordered quantity
// regexes, keywords for presence scoring, and the quantity assumed when
// keywords match but no regex captures a number. The table is configuration
// data so the catalog can grow without code changes.
type ProductPattern struct {
	Name            string
	Patterns        []*regexp.Regexp
	Keywords        []string
	DefaultQuantity int
}

type patternSpec struct {
	Name            string   `json:"name"`
	Patterns        []string `json:"patterns"`
	Keywords        []string `json:"keywords"`
	DefaultQuantity int      `json:"defaultQuantity"`
}

func compileAll(exprs ...string) []*regexp.Regexp {
	out := make([]*regexp.Regexp, 0, len(exprs))
	for _, expr := range exprs {
		out = append(out, regexp.MustCompile(expr))
	}
	return out
}

// DefaultProductPatterns is the built-in stationery table.
func DefaultProductPatterns() []ProductPattern {
	return []ProductPattern{
		{
			Name: "A4 Paper - 80gsm",
			Patterns: compileAll(
				`(\d+)\s*(?:reams?|sheets?)(?:\s+of)?\s+a4`,
				`a4[^\d]*?(\d+)\s*(?:reams?|sheets?)`,
				`(\d+)\s*(?:reams?|sheets?)\s*(?:of\s*)?paper`,
			),
			Keywords:        []string{"a4", "paper", "ream", "sheets", "80gsm"},
			DefaultQuantity: 500,
		},
		{
			Name: "Ballpoint Pens - Blue",
			Patterns: compileAll(
				`(\d+)\s*(?:ballpoint\s*)?pens?\b`,
				`(\d+)\s*(?:boxes?\s+of\s+)?pens?\b`,
			),
			Keywords:        []string{"pen", "pens", "ballpoint"},
			DefaultQuantity: 50,
		},
		{
			Name: "Stapler - Medium",
			Patterns: compileAll(
				`(\d+)\s*staplers?\b`,
			),
			Keywords:        []string{"stapler", "staplers", "stapling"},
			DefaultQuantity: 10,
		},
		{
			Name: "Notebooks - A5 Ruled",
			Patterns: compileAll(
				`(\d+)\s*(?:a5\s*)?notebooks?\b`,
				`(\d+)\s*notepads?\b`,
			),
			Keywords:        []string{"notebook", "notebooks", "notepad"},
			DefaultQuantity: 25,
		},
		{
			Name: "Whiteboard Markers",
			Patterns: compileAll(
				`(\d+)\s*(?:whiteboard\s*)?markers?\b`,
			),
			Keywords:        []string{"marker", "markers", "whiteboard"},
			DefaultQuantity: 5,
		},
		{
			Name: "Manila Folders",
			Patterns: compileAll(
				`(\d+)\s*(?:manila\s*)?folders?\b`,
			),
			Keywords:        []string{"folder", "folders", "manila"},
			DefaultQuantity: 3,
		},
	}
}

// LoadProductPatterns reads a pattern table from a JSON file.
func LoadProductPatterns(path string) ([]ProductPattern, error) {
	blob, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}

	var specs []patternSpec
	if err := json.Unmarshal(blob, &specs); err != nil {
		return nil, fmt.Errorf("parse pattern table %s: %w", path, err)
	}

	out := make([]ProductPattern, 0, len(specs))
	for _, spec := range specs {
		entry := ProductPattern{
			Name:            spec.Name,
			Keywords:        spec.Keywords,
			DefaultQuantity: spec.DefaultQuantity,
		}
		for _, raw := range spec.Patterns {
			re, err := regexp.Compile(raw)
			if err != nil {
				return nil, fmt.Errorf("pattern table %s: product %q: %w", path, spec.Name, err)
			}
			entry.Patterns = append(entry.Patterns, re)
		}
		out = append(out, entry)
	}
	return out, nil
}

// MultiProductParser extracts a list of (product, quantity, confidence)
// tuples from one email using its pattern table.
type MultiProductParser struct {
	patterns []ProductPattern
}

func NewMultiProductParser(patterns []ProductPattern) *MultiProductParser {
	if len(patterns) == 0 {
		patterns = DefaultProductPatterns()
	}
	return &MultiProductParser{patterns: patterns}
}

// ParseEmail never fails; malformed input degrades to low-confidence or
// empty results.
func (p *MultiProductParser) ParseEmail(email internal.EmailMessage) internal.MultiProductParsedInfo {
	name, address := util.ParseSender(email.From)
	body := strings.ToLower(email.Body)

	detected := make([]internal.ParsedProductInfo, 0, len(p.patterns))
	for _, entry := range p.patterns {
		keywordScore := 0
		for _, kw := range entry.Keywords {
			if strings.Contains(body, kw) {
				keywordScore++
			}
		}
		if keywordScore == 0 {
			continue
		}

		quantity, captured := captureQuantity(entry.Patterns, body)
		confidence := internal.ConfidenceMedium
		switch {
		case !captured:
			quantity = entry.DefaultQuantity
			confidence = internal.ConfidenceLow
		case keywordScore >= 2:
			confidence = internal.ConfidenceHigh
		}

		detected = append(detected, internal.ParsedProductInfo{
			Product:    entry.Name,
			Quantity:   quantity,
			Confidence: confidence,
		})
	}

	products := dedupeByProduct(detected)

	return internal.MultiProductParsedInfo{
		CustomerName:      name,
		EmailAddress:      address,
		Products:          products,
		OriginalText:      email.Body,
		OverallConfidence: overallConfidence(products),
	}
}

func captureQuantity(patterns []*regexp.Regexp, body string) (int, bool) {
	for _, re := range patterns {
		m := re.FindStringSubmatch(body)
		if m == nil {
			continue
		}
		for _, group := range m[1:] {
			if group == "" {
				continue
			}
			qty, err := strconv.Atoi(group)
			if err != nil {
				continue
			}
			return qty, true
		}
	}
	return 0, false
}

// dedupeByProduct keeps one entry per product name: high confidence wins,
// otherwise the larger quantity. The single pass over the table should not
// produce duplicates; the reduce is kept defensive.
func dedupeByProduct(items []internal.ParsedProductInfo) []internal.ParsedProductInfo {
	byName := map[string]internal.ParsedProductInfo{}
	order := make([]string, 0, len(items))

	for _, item := range items {
		existing, ok := byName[item.Product]
		if !ok {
			byName[item.Product] = item
			order = append(order, item.Product)
			continue
		}
		if existing.Confidence == internal.ConfidenceHigh {
			continue
		}
		if item.Confidence == internal.ConfidenceHigh || item.Quantity > existing.Quantity {
			byName[item.Product] = item
		}
	}

	out := make([]internal.ParsedProductInfo, 0, len(order))
	for _, name := range order {
		out = append(out, byName[name])
	}
	return out
}

func overallConfidence(products []internal.ParsedProductInfo) internal.Confidence {
	if len(products) == 0 {
		return internal.ConfidenceNone
	}
	overall := internal.ConfidenceLow
	for _, p := range products {
		switch p.Confidence {
		case internal.ConfidenceHigh:
			return internal.ConfidenceHigh
		case internal.ConfidenceMedium:
			overall = internal.ConfidenceMedium
		}
	}
	return overall
}
