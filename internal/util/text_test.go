package util

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"quotescribe/internal"
)

func TestTextSimilarity(t *testing.T) {
	assert.Equal(t, 1.0, TextSimilarity("blue pens", "pens blue"))
	assert.Equal(t, 0.0, TextSimilarity("paper", "stapler"))
	assert.Equal(t, 0.0, TextSimilarity("", ""))
	// {a4, paper, ream} vs {a4, paper}: 2 shared of 3 total.
	assert.InDelta(t, 2.0/3.0, TextSimilarity("a4 paper ream", "a4 paper"), 1e-9)
}

func TestTokenize(t *testing.T) {
	assert.Equal(t, []string{"stapler", "medium"}, Tokenize("Stapler - Medium"))
	assert.Equal(t, []string{"paper", "80gsm"}, Tokenize("A4 Paper - 80gsm"))
	assert.Equal(t, []string{"alpha", "beta", "gamma"}, Tokenize("alpha_beta,gamma."))
	assert.Empty(t, Tokenize("a b cd"))
}

func TestWordImportance(t *testing.T) {
	plain := internal.Product{Name: "Stapler - Medium", ProductCode: "STP-M"}
	branded := internal.Product{Name: "Whiteboard Markers", ProductCode: "MKR-W", Brand: StringPtr("Staedtler")}

	// Base 1.0 plus 0.1 per character, no field hits.
	assert.InDelta(t, 1.5, WordImportance("paper", plain), 1e-9)
	// +2 for a name hit.
	assert.InDelta(t, 1.7+2, WordImportance("stapler", plain), 1e-9)
	// +3 for a brand hit on top of the name miss.
	assert.InDelta(t, 1.9+3, WordImportance("staedtler", branded), 1e-9)
	// Name and brand hits stack.
	both := internal.Product{Name: "Staedtler Markers", ProductCode: "MKR-S", Brand: StringPtr("Staedtler")}
	assert.InDelta(t, 1.9+2+3, WordImportance("staedtler", both), 1e-9)
}
