package listener

import (
	"context"
	"fmt"
	"path/filepath"
	"strings"
	"time"

	"go.uber.org/zap"

	"quotescribe/internal/config"
	"quotescribe/internal/connectors"
	gmailconnector "quotescribe/internal/connectors/gmail"
	imapconnector "quotescribe/internal/connectors/imap"
	"quotescribe/internal/pipeline"
	"quotescribe/internal/storage"
)

// Service runs the fetch -> process -> export cycle on an interval until the
// context is cancelled.
type Service struct {
	db  *storage.DB
	cfg config.Config
	log *zap.Logger
}

func NewService(db *storage.DB, cfg config.Config, log *zap.Logger) *Service {
	return &Service{db: db, cfg: cfg, log: log}
}

func (s *Service) Run(ctx context.Context) error {
	for {
		if err := s.runCycle(); err != nil {
			s.log.Error("listener cycle failed", zap.Error(err))
		}

		select {
		case <-ctx.Done():
			return nil
		case <-time.After(time.Duration(s.cfg.MailListenerIntervalSec) * time.Second):
		}
	}
}

func (s *Service) runCycle() error {
	provider := strings.ToLower(strings.TrimSpace(s.cfg.MailListenerProvider))
	mailConnector, err := s.makeConnector(provider)
	if err != nil {
		return err
	}

	fetchService := connectors.NewFetchService(s.db, s.cfg.RawMailDir, mailConnector)
	fetchResult, err := fetchService.FetchAndStore(s.cfg.MailListenerLabel, s.cfg.MailListenerFetchMax)
	if err != nil {
		return err
	}

	processor := pipeline.NewProcessingService(s.db, s.cfg, s.log)
	processedEmails, _, err := processor.ProcessPending(s.cfg.MailListenerProcessBatch, provider)
	if err != nil {
		return err
	}

	if s.cfg.MailListenerAutoExport {
		if err := s.exportQuoted(provider); err != nil {
			return err
		}
	}

	s.log.Info("listener cycle done",
		zap.String("provider", provider),
		zap.Int("fetched", fetchResult.Fetched),
		zap.Int("stored", fetchResult.Stored),
		zap.Int("processed", processedEmails))
	return nil
}

func (s *Service) exportQuoted(provider string) error {
	emails, err := s.db.ListEmailsByStatus("quoted", 200)
	if err != nil {
		return err
	}

	for _, email := range emails {
		if email.Provider != provider {
			continue
		}
		rows, err := s.db.GetQuoteExportRows(email.ID)
		if err != nil {
			return err
		}
		if len(rows) == 0 {
			continue
		}
		filename := fmt.Sprintf("%d_%s.xlsx", email.ID, sanitizeMessageID(email.MessageID))
		outputPath := filepath.Join(s.cfg.OutputDir, "listener", filename)
		if err := pipeline.ExportQuoteToXLSX(rows, outputPath); err != nil {
			return err
		}
		_ = s.db.UpdateEmailStatus(email.ID, "exported")
	}
	return nil
}

func (s *Service) makeConnector(provider string) (connectors.MailConnector, error) {
	switch provider {
	case "gmail":
		return gmailconnector.NewConnector(s.cfg)
	case "imap":
		return imapconnector.NewConnector(s.cfg)
	default:
		return nil, fmt.Errorf("unsupported listener provider: %s", provider)
	}
}

func sanitizeMessageID(input string) string {
	repl := strings.NewReplacer("<", "_", ">", "_", ":", "_", "/", "_", "\\", "_", "|", "_", "?", "_", "*", "_", " ", "_")
	out := repl.Replace(input)
	if len(out) > 120 {
		out = out[:120]
	}
	return out
}
