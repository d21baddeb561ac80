package catalog

import (
	"context"
	"errors"
	"fmt"
	"math/rand"
	"strconv"
	"strings"
	"time"

	"golang.org/x/oauth2"
	"golang.org/x/oauth2/google"
	"google.golang.org/api/googleapi"
	"google.golang.org/api/option"
	"google.golang.org/api/sheets/v4"

	"quotescribe/internal"
	"quotescribe/internal/config"
	"quotescribe/internal/util"
)

// Client reads the product catalog from a Google Sheet. Each row of the
// configured range is (name, code, brand, unit_price, gst_rate, category,
// min_qty, max_qty); rows with an empty name or code are skipped.
type Client struct {
	cfg     config.Config
	service *sheets.Service
	limiter *RateLimiter
}

func NewClient(ctx context.Context, cfg config.Config) (*Client, error) {
	if err := cfg.Require("GOOGLE_CLIENT_ID", cfg.GoogleClientID); err != nil {
		return nil, err
	}
	if err := cfg.Require("GOOGLE_CLIENT_SECRET", cfg.GoogleClientSecret); err != nil {
		return nil, err
	}
	if err := cfg.Require("GOOGLE_REFRESH_TOKEN", cfg.GoogleRefreshToken); err != nil {
		return nil, err
	}
	if err := cfg.Require("SHEETS_SPREADSHEET_ID", cfg.SheetsSpreadsheetID); err != nil {
		return nil, err
	}

	oauthCfg := &oauth2.Config{
		ClientID:     cfg.GoogleClientID,
		ClientSecret: cfg.GoogleClientSecret,
		Endpoint:     google.Endpoint,
		RedirectURL:  cfg.GoogleRedirectURI,
		Scopes:       []string{sheets.SpreadsheetsReadonlyScope},
	}

	tokenSource := oauthCfg.TokenSource(ctx, &oauth2.Token{RefreshToken: cfg.GoogleRefreshToken})
	svc, err := sheets.NewService(ctx, option.WithTokenSource(tokenSource))
	if err != nil {
		return nil, err
	}

	return &Client{
		cfg:     cfg,
		service: svc,
		limiter: NewRateLimiter(cfg.SheetsRateLimitRPS),
	}, nil
}

// FetchCatalog pulls every row of the catalog range and converts it into
// product records, preserving sheet order.
func (c *Client) FetchCatalog(ctx context.Context) ([]internal.Product, error) {
	values, err := c.fetchRange(ctx, c.cfg.SheetsCatalogRange)
	if err != nil {
		return nil, err
	}

	out := make([]internal.Product, 0, len(values))
	for i, row := range values {
		product, err := toProduct(i+1, row)
		if err != nil {
			continue
		}
		out = append(out, product)
	}
	return out, nil
}

func (c *Client) fetchRange(ctx context.Context, readRange string) ([][]any, error) {
	var lastErr error
	for attempt := 1; attempt <= 5; attempt++ {
		c.limiter.WaitTurn()

		resp, err := c.service.Spreadsheets.Values.
			Get(c.cfg.SheetsSpreadsheetID, readRange).
			ValueRenderOption("UNFORMATTED_VALUE").
			Context(ctx).
			Do()
		if err != nil {
			if isRetryable(err) && attempt < 5 {
				backoff := time.Duration(250*(1<<(attempt-1))+rand.Intn(100)) * time.Millisecond
				time.Sleep(backoff)
				lastErr = err
				continue
			}
			return nil, fmt.Errorf("sheets read %s: %w", readRange, err)
		}
		return resp.Values, nil
	}

	if lastErr == nil {
		lastErr = errors.New("sheets request failed")
	}
	return nil, lastErr
}

func isRetryable(err error) bool {
	var apiErr *googleapi.Error
	if !errors.As(err, &apiErr) {
		return false
	}
	switch apiErr.Code {
	case 429, 500, 502, 503, 504:
		return true
	default:
		return false
	}
}

func toProduct(rowNo int, row []any) (internal.Product, error) {
	name := strings.TrimSpace(cellString(row, 0))
	code := strings.TrimSpace(cellString(row, 1))
	if name == "" || code == "" {
		return internal.Product{}, fmt.Errorf("row %d: missing name or code", rowNo)
	}

	product := internal.Product{
		ID:          rowNo,
		Name:        name,
		ProductCode: code,
		UnitPrice:   cellFloat(row, 3),
		GSTRate:     cellFloat(row, 4),
	}
	if brand := strings.TrimSpace(cellString(row, 2)); brand != "" {
		product.Brand = util.StringPtr(brand)
	}
	if category := strings.TrimSpace(cellString(row, 5)); category != "" {
		product.Category = util.StringPtr(category)
	}
	if v, ok := cellInt(row, 6); ok {
		product.MinQuantity = util.IntPtr(v)
	}
	if v, ok := cellInt(row, 7); ok {
		product.MaxQuantity = util.IntPtr(v)
	}
	return product, nil
}

func cellString(row []any, idx int) string {
	if idx >= len(row) {
		return ""
	}
	switch v := row[idx].(type) {
	case string:
		return v
	case float64:
		return strconv.FormatFloat(v, 'f', -1, 64)
	default:
		return fmt.Sprintf("%v", v)
	}
}

func cellFloat(row []any, idx int) float64 {
	if idx >= len(row) {
		return 0
	}
	switch v := row[idx].(type) {
	case float64:
		return v
	case int:
		return float64(v)
	case string:
		parsed, err := strconv.ParseFloat(strings.ReplaceAll(strings.TrimSpace(v), ",", "."), 64)
		if err != nil {
			return 0
		}
		return parsed
	default:
		return 0
	}
}

func cellInt(row []any, idx int) (int, bool) {
	if idx >= len(row) {
		return 0, false
	}
	switch v := row[idx].(type) {
	case float64:
		return int(v), true
	case int:
		return v, true
	case string:
		parsed, err := strconv.Atoi(strings.TrimSpace(v))
		if err != nil {
			return 0, false
		}
		return parsed, true
	default:
		return 0, false
	}
}
