package pipeline

import (
	"os"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"quotescribe/internal"
)

func TestParseEmailCapturedQuantity(t *testing.T) {
	parser := NewMultiProductParser(nil)
	email := internal.EmailMessage{
		From: "Sam Lee <sam@acme.com>",
		Body: "need 30 staplers please",
	}

	result := parser.ParseEmail(email)

	assert.Equal(t, "Sam Lee", result.CustomerName)
	assert.Equal(t, "sam@acme.com", result.EmailAddress)
	require.Len(t, result.Products, 1)
	assert.Equal(t, internal.ParsedProductInfo{
		Product:    "Stapler - Medium",
		Quantity:   30,
		Confidence: internal.ConfidenceHigh,
	}, result.Products[0])
	assert.Equal(t, internal.ConfidenceHigh, result.OverallConfidence)
}

func TestParseEmailDefaultQuantityFallback(t *testing.T) {
	parser := NewMultiProductParser(nil)
	email := internal.EmailMessage{
		From: "buyer@example.com",
		Body: "interested in ballpoint pens for our office",
	}

	result := parser.ParseEmail(email)

	require.Len(t, result.Products, 1)
	assert.Equal(t, internal.ParsedProductInfo{
		Product:    "Ballpoint Pens - Blue",
		Quantity:   50,
		Confidence: internal.ConfidenceLow,
	}, result.Products[0])
	assert.Equal(t, internal.ConfidenceLow, result.OverallConfidence)
}

func TestParseEmailMultipleProducts(t *testing.T) {
	parser := NewMultiProductParser(nil)
	email := internal.EmailMessage{
		From: "Sarah Chen <sarah.chen@acme-office.com>",
		Body: "Please quote 10 reams of a4 paper, 30 staplers and 2 whiteboard markers.",
	}

	result := parser.ParseEmail(email)

	require.Len(t, result.Products, 3)
	byName := map[string]internal.ParsedProductInfo{}
	for _, p := range result.Products {
		byName[p.Product] = p
	}

	assert.Equal(t, 10, byName["A4 Paper - 80gsm"].Quantity)
	assert.Equal(t, internal.ConfidenceHigh, byName["A4 Paper - 80gsm"].Confidence)
	assert.Equal(t, 30, byName["Stapler - Medium"].Quantity)
	assert.Equal(t, 2, byName["Whiteboard Markers"].Quantity)
	assert.Equal(t, internal.ConfidenceHigh, result.OverallConfidence)
}

func TestParseEmailNoProducts(t *testing.T) {
	parser := NewMultiProductParser(nil)
	email := internal.EmailMessage{From: "x@y.com", Body: "see you at lunch"}

	result := parser.ParseEmail(email)

	assert.Empty(t, result.Products)
	assert.Equal(t, internal.ConfidenceNone, result.OverallConfidence)
}

func TestParseEmailMalformedFrom(t *testing.T) {
	parser := NewMultiProductParser(nil)
	email := internal.EmailMessage{From: "no address here", Body: "need 5 staplers"}

	result := parser.ParseEmail(email)

	assert.Equal(t, "Customer", result.CustomerName)
	assert.Equal(t, "", result.EmailAddress)
	require.Len(t, result.Products, 1)
	assert.Equal(t, 5, result.Products[0].Quantity)
}

func TestDedupeByProduct(t *testing.T) {
	items := []internal.ParsedProductInfo{
		{Product: "Stapler - Medium", Quantity: 5, Confidence: internal.ConfidenceMedium},
		{Product: "Stapler - Medium", Quantity: 3, Confidence: internal.ConfidenceHigh},
		{Product: "Manila Folders", Quantity: 2, Confidence: internal.ConfidenceLow},
		{Product: "Manila Folders", Quantity: 8, Confidence: internal.ConfidenceLow},
	}

	out := dedupeByProduct(items)

	require.Len(t, out, 2)
	// High confidence wins over a larger quantity ...
	assert.Equal(t, internal.ParsedProductInfo{Product: "Stapler - Medium", Quantity: 3, Confidence: internal.ConfidenceHigh}, out[0])
	// ... otherwise the larger quantity wins.
	assert.Equal(t, internal.ParsedProductInfo{Product: "Manila Folders", Quantity: 8, Confidence: internal.ConfidenceLow}, out[1])
}

func TestOverallConfidence(t *testing.T) {
	assert.Equal(t, internal.ConfidenceNone, overallConfidence(nil))
	assert.Equal(t, internal.ConfidenceLow, overallConfidence([]internal.ParsedProductInfo{
		{Confidence: internal.ConfidenceLow},
	}))
	assert.Equal(t, internal.ConfidenceMedium, overallConfidence([]internal.ParsedProductInfo{
		{Confidence: internal.ConfidenceLow}, {Confidence: internal.ConfidenceMedium},
	}))
	assert.Equal(t, internal.ConfidenceHigh, overallConfidence([]internal.ParsedProductInfo{
		{Confidence: internal.ConfidenceLow}, {Confidence: internal.ConfidenceHigh},
	}))
}

func TestLoadProductPatterns(t *testing.T) {
	path := t.TempDir() + "/patterns.json"
	blob := `[
  {"name": "Custom Tape", "patterns": ["(\\d+)\\s*rolls?\\s+of\\s+tape"], "keywords": ["tape", "roll"], "defaultQuantity": 6}
]`
	require.NoError(t, os.WriteFile(path, []byte(blob), 0o644))

	patterns, err := LoadProductPatterns(path)
	require.NoError(t, err)
	require.Len(t, patterns, 1)

	parser := NewMultiProductParser(patterns)
	result := parser.ParseEmail(internal.EmailMessage{Body: "please send 4 rolls of tape"})
	require.Len(t, result.Products, 1)
	assert.Equal(t, "Custom Tape", result.Products[0].Product)
	assert.Equal(t, 4, result.Products[0].Quantity)
	assert.Equal(t, internal.ConfidenceHigh, result.Products[0].Confidence)
}

func TestLoadProductPatternsBadRegex(t *testing.T) {
	path := t.TempDir() + "/patterns.json"
	require.NoError(t, os.WriteFile(path, []byte(`[{"name": "Broken", "patterns": ["("], "keywords": ["x"], "defaultQuantity": 1}]`), 0o644))

	_, err := LoadProductPatterns(path)
	assert.Error(t, err)
}
