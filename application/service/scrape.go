package service

import (
	"context"
	"fmt"
	"log/slog"
	"path/filepath"
	"strings"

	"github.com/MekdelawitGebre/customer-experience-fintech/domain/review"
	"github.com/MekdelawitGebre/customer-experience-fintech/infrastructure/csvio"
	"github.com/MekdelawitGebre/customer-experience-fintech/internal/metrics"
)

// Fetcher returns up to n of an app's newest reviews.
type Fetcher interface {
	Reviews(ctx context.Context, appID string, n int) ([]review.Raw, error)
}

// Scrape fetches a bank's store reviews and writes them to the raw directory.
type Scrape struct {
	fetcher    Fetcher
	apps       review.AppIDs
	rawDir     string
	maxPerBank int
	logger     *slog.Logger
}

// NewScrape creates a new Scrape service.
func NewScrape(fetcher Fetcher, apps review.AppIDs, rawDir string, maxPerBank int, logger *slog.Logger) *Scrape {
	return &Scrape{
		fetcher:    fetcher,
		apps:       apps,
		rawDir:     rawDir,
		maxPerBank: maxPerBank,
		logger:     logger,
	}
}

// RawPath returns the raw CSV path for bank.
func RawPath(dir, bank string) string {
	return filepath.Join(dir, strings.ToLower(bank)+"_raw.csv")
}

// Banks returns the banks with a known app.
func (s *Scrape) Banks() []string {
	return s.apps.Banks()
}

// ScrapeBank fetches up to n reviews for bank and writes the raw CSV,
// returning its path. n <= 0 uses the configured per-bank maximum. A bank
// without an app mapping fails with review.ErrNoAppMapping before any
// request is made.
func (s *Scrape) ScrapeBank(ctx context.Context, bank string, n int) (string, error) {
	appID, err := s.apps.Lookup(bank)
	if err != nil {
		return "", err
	}
	if n <= 0 {
		n = s.maxPerBank
	}

	s.logger.Info("scraping reviews", slog.String("bank", bank), slog.String("app_id", appID), slog.Int("limit", n))
	rows, err := s.fetcher.Reviews(ctx, appID, n)
	if err != nil {
		return "", fmt.Errorf("scrape %s: %w", bank, err)
	}

	out := RawPath(s.rawDir, bank)
	if err := csvio.WriteRaw(out, rows); err != nil {
		return "", err
	}
	metrics.ObserveStage("scrape", bank, len(rows))
	s.logger.Info("reviews scraped", slog.String("bank", bank), slog.Int("count", len(rows)), slog.String("path", out))
	return out, nil
}
