package internal

// Confidence is the coarse reliability tier attached to extraction and
// classification results.
type Confidence string

const (
	ConfidenceHigh   Confidence = "high"
	ConfidenceMedium Confidence = "medium"
	ConfidenceLow    Confidence = "low"
	ConfidenceNone   Confidence = "none"
)

// MatchType names the matcher strategy that produced a ProductMatch.
type MatchType string

const (
	MatchExactCode MatchType = "exact_code"
	MatchExactName MatchType = "exact_name"
	MatchFuzzyName MatchType = "fuzzy_name"
	MatchBrand     MatchType = "brand_match"
	MatchPartial   MatchType = "partial_match"
)

// Product is one catalog row. The same product name may appear multiple times
// with different (MinQuantity, MaxQuantity, UnitPrice) brackets; a pricing
// lookup picks the first bracket containing the requested quantity.
type Product struct {
	ID          int     `json:"id"`
	Name        string  `json:"name"`
	ProductCode string  `json:"productCode"`
	Brand       *string `json:"brand,omitempty"`
	UnitPrice   float64 `json:"unitPrice"`
	GSTRate     float64 `json:"gstRate"`
	Category    *string `json:"category,omitempty"`
	MinQuantity *int    `json:"minQuantity,omitempty"`
	MaxQuantity *int    `json:"maxQuantity,omitempty"`
}

// EmailMessage is the immutable input to all extraction logic. Body is free
// text, untrusted, already flattened from whatever MIME parts the message
// carried.
type EmailMessage struct {
	ID      string `json:"id"`
	From    string `json:"from"`
	Subject string `json:"subject"`
	Body    string `json:"body"`
	Date    string `json:"date"`
}

// ParsedProductInfo is one extracted (product, quantity) tuple, not yet tied
// to a specific catalog entry.
type ParsedProductInfo struct {
	Product    string     `json:"product"`
	Quantity   int        `json:"quantity"`
	Confidence Confidence `json:"confidence"`
}

// MultiProductParsedInfo is the multi-product extractor output for one email.
type MultiProductParsedInfo struct {
	CustomerName      string              `json:"customerName"`
	EmailAddress      string              `json:"emailAddress"`
	Products          []ParsedProductInfo `json:"products"`
	OriginalText      string              `json:"originalText"`
	OverallConfidence Confidence          `json:"overallConfidence"`
}

// ProductMatch is one matcher result. Score is an internal ranking unit
// (roughly 0-130); Confidence is the normalized externally-facing estimate.
type ProductMatch struct {
	Product      Product   `json:"product"`
	Confidence   float64   `json:"confidence"`
	MatchType    MatchType `json:"matchType"`
	MatchedTerms []string  `json:"matchedTerms"`
	Score        float64   `json:"score"`
}

// DetectedProduct is the classifier's single best guess.
type DetectedProduct struct {
	Name        string `json:"name"`
	Code        string `json:"code"`
	Description string `json:"description"`
}

// EmailClassification summarizes one email. Reasoning is informational only,
// never parsed by consumers.
type EmailClassification struct {
	IsQuoteRequest  bool             `json:"isQuoteRequest"`
	Confidence      Confidence       `json:"confidence"`
	DetectedProduct *DetectedProduct `json:"detectedProduct,omitempty"`
	Reasoning       string           `json:"reasoning"`
}

// QuoteLine is one priced line of a quote. Unpriced distinguishes "no catalog
// bracket matched" from a legitimately zero-priced item; UnitPrice stays 0 in
// both cases for compatibility.
type QuoteLine struct {
	Product    string     `json:"product"`
	Quantity   int        `json:"quantity"`
	Confidence Confidence `json:"confidence"`
	UnitPrice  float64    `json:"unitPrice"`
	Subtotal   float64    `json:"subtotal"`
	GSTRate    float64    `json:"gstRate"`
	GSTAmount  float64    `json:"gstAmount"`
	Unpriced   bool       `json:"unpriced"`
}

// QuoteSummary is the pricing engine output. TotalPrice is the ex-GST sum of
// subtotals; GrandTotal adds GST on top.
type QuoteSummary struct {
	TotalPrice    float64     `json:"totalPrice"`
	TotalGST      float64     `json:"totalGst"`
	GrandTotal    float64     `json:"grandTotal"`
	ItemBreakdown []QuoteLine `json:"itemBreakdown"`
}

// EmailRow is one stored email as persisted by storage.
type EmailRow struct {
	ID         int
	Provider   string
	MessageID  string
	Subject    string
	Sender     string
	ReceivedAt string
	Hash       string
	Status     string
	RawRef     string
}

// FetchedMailMessage is a raw message pulled from a mail provider.
type FetchedMailMessage struct {
	Provider   string
	MessageID  string
	Subject    string
	From       string
	ReceivedAt string
	Raw        []byte
}

// QuoteExportRow is one flattened row of a quote export.
type QuoteExportRow struct {
	LineNo       int
	Product      string
	Quantity     int
	Confidence   string
	UnitPrice    float64
	Subtotal     float64
	GSTRate      float64
	GSTAmount    float64
	Unpriced     bool
	CustomerName string
	EmailAddress string
}
