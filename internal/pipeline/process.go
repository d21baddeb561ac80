package pipeline

import (
	"os"
	"strconv"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"quotescribe/internal"
	"quotescribe/internal/config"
	"quotescribe/internal/storage"
)

// ProcessingService turns stored emails into classifications and priced
// quotes.
type ProcessingService struct {
	db     *storage.DB
	cfg    config.Config
	parser *MultiProductParser
	log    *zap.Logger
}

func NewProcessingService(db *storage.DB, cfg config.Config, log *zap.Logger) *ProcessingService {
	patterns := DefaultProductPatterns()
	if cfg.PatternsPath != "" {
		loaded, err := LoadProductPatterns(cfg.PatternsPath)
		if err != nil {
			log.Warn("pattern table load failed, using built-in table",
				zap.String("path", cfg.PatternsPath), zap.Error(err))
		} else {
			patterns = loaded
		}
	}
	return &ProcessingService{db: db, cfg: cfg, parser: NewMultiProductParser(patterns), log: log}
}

type ProcessResult struct {
	EmailID  int
	Detected int
}

func (s *ProcessingService) ProcessByProviderMessageID(provider, messageID string) (ProcessResult, error) {
	email, err := s.db.MustEmailByProviderMessageID(provider, messageID)
	if err != nil {
		return ProcessResult{}, err
	}
	return s.ProcessEmail(email)
}

func (s *ProcessingService) ProcessPending(limit int, provider string) (int, int, error) {
	pending, err := s.db.ListEmailsByStatus("fetched", limit)
	if err != nil {
		return 0, 0, err
	}
	processedEmails := 0
	processedLines := 0
	for _, email := range pending {
		if provider != "" && email.Provider != provider {
			continue
		}
		res, err := s.ProcessEmail(email)
		if err != nil {
			return processedEmails, processedLines, err
		}
		processedEmails++
		processedLines += res.Detected
	}
	return processedEmails, processedLines, nil
}

func (s *ProcessingService) ProcessEmail(email internal.EmailRow) (ProcessResult, error) {
	start := time.Now()
	traceID := uuid.NewString()

	raw, err := os.ReadFile(email.RawRef)
	if err != nil {
		return ProcessResult{}, err
	}

	msg, attachmentNames, err := ExtractEmailFromRaw(strconv.Itoa(email.ID), raw)
	if err != nil {
		return ProcessResult{}, err
	}
	if msg.From == "" {
		msg.From = email.Sender
	}
	if msg.Subject == "" {
		msg.Subject = email.Subject
	}

	products, err := s.db.ListProducts()
	if err != nil {
		return ProcessResult{}, err
	}

	classification := ClassifyEmail(msg, products)
	if err := s.db.ClearEmailProcessing(email.ID); err != nil {
		return ProcessResult{}, err
	}
	if err := s.db.InsertClassification(email.ID, classification); err != nil {
		return ProcessResult{}, err
	}

	if !classification.IsQuoteRequest {
		if err := s.db.UpdateEmailStatus(email.ID, "skipped"); err != nil {
			return ProcessResult{}, err
		}
		if err := s.db.InsertRun(traceID, email.ID, float64(time.Since(start).Milliseconds()), 0, 0, 0); err != nil {
			s.log.Warn("run record insert failed",
				zap.String("traceId", traceID), zap.Int("emailId", email.ID), zap.Error(err))
		}
		s.log.Info("email skipped, no quote intent",
			zap.String("traceId", traceID),
			zap.Int("emailId", email.ID),
			zap.String("reasoning", classification.Reasoning))
		return ProcessResult{EmailID: email.ID}, nil
	}

	parsed := s.parser.ParseEmail(msg)
	summary := CalculateMultiProductPrice(parsed.Products, products)

	if _, err := s.db.InsertQuote(email.ID, parsed, summary); err != nil {
		return ProcessResult{}, err
	}
	if err := s.db.UpdateEmailStatus(email.ID, "quoted"); err != nil {
		return ProcessResult{}, err
	}

	priced, unpriced := 0, 0
	for _, line := range summary.ItemBreakdown {
		if line.Unpriced {
			unpriced++
		} else {
			priced++
		}
	}
	if err := s.db.InsertRun(traceID, email.ID, float64(time.Since(start).Milliseconds()), len(parsed.Products), priced, unpriced); err != nil {
		s.log.Warn("run record insert failed",
			zap.String("traceId", traceID), zap.Int("emailId", email.ID), zap.Error(err))
	}

	s.log.Info("email quoted",
		zap.String("traceId", traceID),
		zap.Int("emailId", email.ID),
		zap.Int("detected", len(parsed.Products)),
		zap.Int("priced", priced),
		zap.Int("unpriced", unpriced),
		zap.Float64("totalPrice", summary.TotalPrice),
		zap.Int("attachments", len(attachmentNames)),
		zap.String("overallConfidence", string(parsed.OverallConfidence)))

	return ProcessResult{EmailID: email.ID, Detected: len(parsed.Products)}, nil
}
