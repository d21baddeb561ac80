package pipeline

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"quotescribe/internal"
	"quotescribe/internal/config"
	"quotescribe/internal/util"
)

func matchCatalog() []internal.Product {
	return []internal.Product{
		{ID: 1, Name: "A4 Paper - 80gsm", ProductCode: "A4-80", UnitPrice: 0.05, Category: util.StringPtr("paper")},
		{ID: 2, Name: "Stapler - Medium", ProductCode: "STP-M", UnitPrice: 8.50, Category: util.StringPtr("office")},
		{ID: 3, Name: "Blue Pens", ProductCode: "PEN-BL", UnitPrice: 1.20, Category: util.StringPtr("stationery")},
		{ID: 4, Name: "Whiteboard Markers", ProductCode: "MKR-W", UnitPrice: 2.40, Brand: util.StringPtr("Staedtler"), Category: util.StringPtr("stationery")},
	}
}

func newTestMatcher(t *testing.T) *Matcher {
	t.Helper()
	cfg, err := config.Load()
	require.NoError(t, err)
	return NewMatcher(cfg, matchCatalog())
}

func TestFindMatchesExactCodePriority(t *testing.T) {
	m := newTestMatcher(t)

	// Both the code and the full name appear; exact_code must win at 100.
	matches := m.FindMatches("need stp-m stapler - medium today", 10)
	require.NotEmpty(t, matches)

	var stapler *internal.ProductMatch
	for i := range matches {
		if matches[i].Product.ProductCode == "STP-M" {
			stapler = &matches[i]
			break
		}
	}
	require.NotNil(t, stapler)
	assert.Equal(t, internal.MatchExactCode, stapler.MatchType)
	assert.Equal(t, ScoreExactCode, stapler.Score)
	assert.Equal(t, ConfidenceExactCode, stapler.Confidence)
}

func TestFindMatchesScoreOrdering(t *testing.T) {
	m := newTestMatcher(t)

	matches := m.FindMatches("stp-m stapler paper pens markers", 10)
	for i := 1; i < len(matches); i++ {
		assert.GreaterOrEqual(t, matches[i-1].Score, matches[i].Score)
	}
}

func TestFindMatchesDeterminism(t *testing.T) {
	// The organiser belongs to two categories and the query triggers both, so
	// a stable category order is required for identical repeated output.
	products := append(matchCatalog(), internal.Product{
		ID: 5, Name: "Desk Organiser", ProductCode: "ORG-1", UnitPrice: 12.00,
		Category: util.StringPtr("office stationery"),
	})
	m := NewMatcher(mustConfig(t), products)

	query := "paper pens staedtler markers supplies"
	first := m.FindMatches(query, 10)
	for i := 0; i < 100; i++ {
		assert.Equal(t, first, m.FindMatches(query, 10))
	}
}

func TestFindMatchesContextualCategoryOrder(t *testing.T) {
	products := []internal.Product{
		{ID: 1, Name: "Desk Organiser", ProductCode: "ORG-1", Category: util.StringPtr("office stationery")},
	}
	m := NewMatcher(mustConfig(t), products)

	// "pen" triggers stationery and "supplies" triggers office; stationery
	// runs first and must claim the product on every call.
	first := m.FindMatches("pen supplies", 10)
	require.Len(t, first, 1)
	assert.Equal(t, ScoreContextual, first[0].Score)
	assert.Equal(t, []string{"pen"}, first[0].MatchedTerms)
	for i := 0; i < 100; i++ {
		assert.Equal(t, first, m.FindMatches("pen supplies", 10))
	}
}

func TestFindMatchesFuzzyName(t *testing.T) {
	m := newTestMatcher(t)

	// "pens blue" is not a substring of anything, but its token set equals
	// "blue pens" exactly, so the fuzzy pass fires at similarity 1.
	matches := m.FindMatches("pens blue", 10)
	require.NotEmpty(t, matches)
	top := matches[0]
	assert.Equal(t, "PEN-BL", top.Product.ProductCode)
	assert.Equal(t, internal.MatchFuzzyName, top.MatchType)
	assert.Equal(t, 80.0, top.Score)
	assert.InDelta(t, 0.8, top.Confidence, 1e-9)
}

func TestFindMatchesBrandBonus(t *testing.T) {
	m := newTestMatcher(t)

	matches := m.FindMatches("staedtler restock", 10)
	require.Len(t, matches, 1)
	top := matches[0]
	assert.Equal(t, "MKR-W", top.Product.ProductCode)
	assert.Equal(t, internal.MatchBrand, top.MatchType)
	// importance (1 + 0.9 + 3) * 20 + 30 brand bonus.
	assert.InDelta(t, 128.0, top.Score, 1e-9)
	// Confidence is capped at 0.8.
	assert.InDelta(t, 0.8, top.Confidence, 1e-9)
}

func TestFindMatchesContextualNeverOverwrites(t *testing.T) {
	m := newTestMatcher(t)

	// "paper" hits the token index at a high partial score; "ream" triggers
	// the paper category afterwards and must not replace it.
	matches := m.FindMatches("paper ream", 10)
	require.NotEmpty(t, matches)
	top := matches[0]
	assert.Equal(t, "A4-80", top.Product.ProductCode)
	assert.Equal(t, internal.MatchPartial, top.MatchType)
	assert.Greater(t, top.Score, ScoreContextual)
}

func TestFindMatchesContextualOnly(t *testing.T) {
	m := newTestMatcher(t)

	// "ream" alone has no index token and no name/code substring; only the
	// contextual paper category can surface the paper product.
	matches := m.FindMatches("ream pricing please", 10)
	require.NotEmpty(t, matches)

	var paper *internal.ProductMatch
	for i := range matches {
		if matches[i].Product.ProductCode == "A4-80" {
			paper = &matches[i]
			break
		}
	}
	require.NotNil(t, paper)
	assert.Equal(t, ScoreContextual, paper.Score)
	assert.Equal(t, ConfidenceContextual, paper.Confidence)
}

func TestFindMatchesTruncation(t *testing.T) {
	m := newTestMatcher(t)

	matches := m.FindMatches("stp-m stapler paper pens markers staedtler", 2)
	assert.Len(t, matches, 2)
}

func TestFindMatchesEmptyInput(t *testing.T) {
	m := newTestMatcher(t)
	assert.Empty(t, m.FindMatches("", 10))

	empty := NewMatcher(mustConfig(t), nil)
	assert.Empty(t, empty.FindMatches("stapler", 10))
}

func TestFindBatchMatches(t *testing.T) {
	m := newTestMatcher(t)

	batch := m.FindBatchMatches([]string{"stp-m", "pens blue"}, 5)
	require.Len(t, batch, 2)
	require.NotEmpty(t, batch["stp-m"])
	assert.Equal(t, internal.MatchExactCode, batch["stp-m"][0].MatchType)
	require.NotEmpty(t, batch["pens blue"])
	assert.Equal(t, "PEN-BL", batch["pens blue"][0].Product.ProductCode)
}

func mustConfig(t *testing.T) config.Config {
	t.Helper()
	cfg, err := config.Load()
	require.NoError(t, err)
	return cfg
}
