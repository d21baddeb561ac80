package catalog

import (
	"context"
	"io"
	"net/http"
	"strings"
	"testing"

	"google.golang.org/api/option"
	"google.golang.org/api/sheets/v4"

	"quotescribe/internal/config"
)

func TestToProduct(t *testing.T) {
	row := []any{"A4 Paper - 80gsm", "A4-80", "PaperCo", 0.05, 10.0, "paper", 1.0, 10000.0}

	product, err := toProduct(3, row)
	if err != nil {
		t.Fatalf("toProduct: %v", err)
	}
	if product.ID != 3 {
		t.Errorf("id = %d", product.ID)
	}
	if product.Name != "A4 Paper - 80gsm" || product.ProductCode != "A4-80" {
		t.Errorf("name/code = %q / %q", product.Name, product.ProductCode)
	}
	if product.Brand == nil || *product.Brand != "PaperCo" {
		t.Errorf("brand = %v", product.Brand)
	}
	if product.UnitPrice != 0.05 || product.GSTRate != 10 {
		t.Errorf("price/gst = %v / %v", product.UnitPrice, product.GSTRate)
	}
	if product.MinQuantity == nil || *product.MinQuantity != 1 {
		t.Errorf("min = %v", product.MinQuantity)
	}
	if product.MaxQuantity == nil || *product.MaxQuantity != 10000 {
		t.Errorf("max = %v", product.MaxQuantity)
	}
}

func TestToProductSparseRow(t *testing.T) {
	product, err := toProduct(1, []any{" Stapler - Medium ", "STP-M"})
	if err != nil {
		t.Fatalf("toProduct: %v", err)
	}
	if product.Name != "Stapler - Medium" {
		t.Errorf("name = %q", product.Name)
	}
	if product.Brand != nil || product.Category != nil {
		t.Errorf("brand/category should be nil: %v %v", product.Brand, product.Category)
	}
	if product.MinQuantity != nil || product.MaxQuantity != nil {
		t.Errorf("brackets should be nil: %v %v", product.MinQuantity, product.MaxQuantity)
	}
	if product.UnitPrice != 0 {
		t.Errorf("unit price = %v", product.UnitPrice)
	}
}

func TestToProductStringNumbers(t *testing.T) {
	product, err := toProduct(1, []any{"Pens", "PEN-BL", "", "1,20", "10", "", "1", "99"})
	if err != nil {
		t.Fatalf("toProduct: %v", err)
	}
	if product.UnitPrice != 1.20 {
		t.Errorf("unit price = %v", product.UnitPrice)
	}
	if product.MinQuantity == nil || *product.MinQuantity != 1 || product.MaxQuantity == nil || *product.MaxQuantity != 99 {
		t.Errorf("brackets = %v %v", product.MinQuantity, product.MaxQuantity)
	}
}

func TestToProductRejectsUnnamedRows(t *testing.T) {
	if _, err := toProduct(1, []any{"", "A4-80"}); err == nil {
		t.Error("expected error for missing name")
	}
	if _, err := toProduct(2, []any{"A4 Paper"}); err == nil {
		t.Error("expected error for missing code")
	}
	if _, err := toProduct(3, nil); err == nil {
		t.Error("expected error for empty row")
	}
}

type roundTripFunc func(*http.Request) (*http.Response, error)

func (f roundTripFunc) RoundTrip(req *http.Request) (*http.Response, error) { return f(req) }

func newFakeClient(t *testing.T, handler roundTripFunc) *Client {
	t.Helper()
	svc, err := sheets.NewService(context.Background(),
		option.WithHTTPClient(&http.Client{Transport: handler}))
	if err != nil {
		t.Fatalf("sheets service: %v", err)
	}
	cfg := config.Config{
		SheetsSpreadsheetID: "sheet-1",
		SheetsCatalogRange:  "Catalog!A2:H",
		SheetsRateLimitRPS:  1000,
	}
	return &Client{cfg: cfg, service: svc, limiter: NewRateLimiter(cfg.SheetsRateLimitRPS)}
}

func jsonResponse(status int, body string) *http.Response {
	return &http.Response{
		StatusCode: status,
		Header:     http.Header{"Content-Type": []string{"application/json"}},
		Body:       io.NopCloser(strings.NewReader(body)),
	}
}

func TestFetchCatalogSkipsBadRows(t *testing.T) {
	client := newFakeClient(t, func(req *http.Request) (*http.Response, error) {
		if !strings.Contains(req.URL.Path, "sheet-1") {
			t.Errorf("unexpected path %s", req.URL.Path)
		}
		return jsonResponse(200, `{
  "range": "Catalog!A2:H",
  "values": [
    ["A4 Paper - 80gsm", "A4-80", "", 0.05, 10, "paper", 1, 10000],
    ["", ""],
    ["Stapler - Medium", "STP-M", "", 8.5, 10, "office", 1, 49]
  ]
}`), nil
	})

	products, err := client.FetchCatalog(context.Background())
	if err != nil {
		t.Fatalf("fetch: %v", err)
	}
	if len(products) != 2 {
		t.Fatalf("products = %d, want 2", len(products))
	}
	if products[0].ProductCode != "A4-80" || products[1].ProductCode != "STP-M" {
		t.Errorf("order = %s, %s", products[0].ProductCode, products[1].ProductCode)
	}
}

func TestFetchCatalogRetriesThenSucceeds(t *testing.T) {
	attempts := 0
	client := newFakeClient(t, func(req *http.Request) (*http.Response, error) {
		attempts++
		if attempts == 1 {
			return jsonResponse(503, `{"error": {"code": 503, "message": "backend"}}`), nil
		}
		return jsonResponse(200, `{"values": [["Pens", "PEN-BL", "", 1.2, 10]]}`), nil
	})

	products, err := client.FetchCatalog(context.Background())
	if err != nil {
		t.Fatalf("fetch: %v", err)
	}
	if attempts != 2 {
		t.Errorf("attempts = %d, want 2", attempts)
	}
	if len(products) != 1 || products[0].ProductCode != "PEN-BL" {
		t.Errorf("products = %+v", products)
	}
}

func TestFetchCatalogPermanentError(t *testing.T) {
	client := newFakeClient(t, func(req *http.Request) (*http.Response, error) {
		return jsonResponse(403, `{"error": {"code": 403, "message": "forbidden"}}`), nil
	})

	if _, err := client.FetchCatalog(context.Background()); err == nil {
		t.Fatal("expected error")
	}
}
