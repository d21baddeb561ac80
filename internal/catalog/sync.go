package catalog

import (
	"context"
	"time"

	"go.uber.org/zap"

	"quotescribe/internal/config"
	"quotescribe/internal/storage"
)

// SyncService refreshes the local catalog snapshot from the Google Sheet.
type SyncService struct {
	db     *storage.DB
	client *Client
	cfg    config.Config
	log    *zap.Logger
}

func NewSyncService(db *storage.DB, client *Client, cfg config.Config, log *zap.Logger) *SyncService {
	return &SyncService{db: db, client: client, cfg: cfg, log: log}
}

// Sync replaces the stored catalog with the current sheet contents. The
// catalog is snapshot-replaced rather than merged: the sheet is the single
// source of truth and row order defines bracket lookup order.
func (s *SyncService) Sync(ctx context.Context) (int, error) {
	products, err := s.client.FetchCatalog(ctx)
	if err != nil {
		return 0, err
	}

	if err := s.db.ReplaceProducts(products); err != nil {
		return 0, err
	}
	_ = s.db.SetMetadata("catalog.last_sync", time.Now().UTC().Format(time.RFC3339))

	s.log.Info("catalog sync complete",
		zap.Int("products", len(products)),
		zap.String("range", s.cfg.SheetsCatalogRange))
	return len(products), nil
}
