package pipeline

import (
	"quotescribe/internal"
)

// CalculateMultiProductPrice prices extracted products against the catalog.
// Each line takes the first catalog entry whose name matches exactly and
// whose quantity bracket contains the requested quantity; a line with no
// bracket keeps unit price 0 and is flagged Unpriced so callers can tell it
// apart from a free item. No rounding is applied; display formatting is the
// caller's concern.
func CalculateMultiProductPrice(products []internal.ParsedProductInfo, catalog []internal.Product) internal.QuoteSummary {
	summary := internal.QuoteSummary{
		ItemBreakdown: make([]internal.QuoteLine, 0, len(products)),
	}

	for _, parsed := range products {
		line := internal.QuoteLine{
			Product:    parsed.Product,
			Quantity:   parsed.Quantity,
			Confidence: parsed.Confidence,
			Unpriced:   true,
		}

		for _, entry := range catalog {
			if entry.Name != parsed.Product {
				continue
			}
			if !bracketContains(entry, parsed.Quantity) {
				continue
			}
			line.UnitPrice = entry.UnitPrice
			line.GSTRate = entry.GSTRate
			line.Unpriced = false
			break
		}

		line.Subtotal = line.UnitPrice * float64(parsed.Quantity)
		line.GSTAmount = line.Subtotal * line.GSTRate / 100

		summary.TotalPrice += line.Subtotal
		summary.TotalGST += line.GSTAmount
		summary.ItemBreakdown = append(summary.ItemBreakdown, line)
	}

	summary.GrandTotal = summary.TotalPrice + summary.TotalGST
	return summary
}

// bracketContains reports whether the entry's [min, max] range covers the
// quantity. A missing bound is treated as unbounded on that side.
func bracketContains(entry internal.Product, quantity int) bool {
	if entry.MinQuantity != nil && quantity < *entry.MinQuantity {
		return false
	}
	if entry.MaxQuantity != nil && quantity > *entry.MaxQuantity {
		return false
	}
	return true
}
