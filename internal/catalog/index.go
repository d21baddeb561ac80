package catalog

import (
	"strings"

	"quotescribe/internal"
	"quotescribe/internal/util"
)

// Index maps lower-cased tokens to the catalog products containing them.
// Lists keep insertion order and may hold the same product more than once
// when it matches a token through multiple fields. The index is built once
// per catalog snapshot; callers rebuild it when the catalog changes.
type Index struct {
	ByToken map[string][]internal.Product
}

// BuildIndex derives tokens per product from the product code, each name
// word longer than 2 characters, and the brand verbatim.
func BuildIndex(products []internal.Product) *Index {
	idx := &Index{ByToken: map[string][]internal.Product{}}

	for _, p := range products {
		if code := strings.ToLower(strings.TrimSpace(p.ProductCode)); code != "" {
			idx.ByToken[code] = append(idx.ByToken[code], p)
		}
		for _, token := range util.Tokenize(p.Name) {
			idx.ByToken[token] = append(idx.ByToken[token], p)
		}
		if p.Brand != nil {
			if brand := strings.ToLower(strings.TrimSpace(*p.Brand)); brand != "" {
				idx.ByToken[brand] = append(idx.ByToken[brand], p)
			}
		}
	}

	return idx
}

// Lookup returns the candidate products for one token.
func (idx *Index) Lookup(token string) []internal.Product {
	return idx.ByToken[strings.ToLower(token)]
}
