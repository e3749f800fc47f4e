package service

import (
	"context"
	"fmt"
	"log/slog"
	"path/filepath"
	"sort"
	"strings"

	"github.com/MekdelawitGebre/customer-experience-fintech/domain/review"
	"github.com/MekdelawitGebre/customer-experience-fintech/infrastructure/csvio"
	"github.com/MekdelawitGebre/customer-experience-fintech/internal/metrics"
)

// IngestResult reports the outcome for one analysed file.
type IngestResult struct {
	File     string `json:"file"`
	Bank     string `json:"bank"`
	Inserted int    `json:"inserted"`
	Err      error  `json:"-"`
}

// Ingest loads analysed CSV files into the review store.
type Ingest struct {
	writer review.Writer
	logger *slog.Logger
}

// NewIngest creates a new Ingest service.
func NewIngest(writer review.Writer, logger *slog.Logger) *Ingest {
	return &Ingest{writer: writer, logger: logger}
}

// BankFromFile returns the bank name encoded in an analysed file name: the
// part of the stem before the first underscore.
func BankFromFile(path string) string {
	stem := strings.TrimSuffix(filepath.Base(path), filepath.Ext(path))
	bank, _, _ := strings.Cut(stem, "_")
	return bank
}

// IngestFile inserts the reviews of one analysed file under the bank named
// by its file name.
func (s *Ingest) IngestFile(ctx context.Context, path string) (int, error) {
	return s.IngestBank(ctx, BankFromFile(path), path)
}

// IngestBank inserts the reviews of one analysed file under bank.
func (s *Ingest) IngestBank(ctx context.Context, bank, path string) (int, error) {
	reviews, err := csvio.ReadAnalyzed(path)
	if err != nil {
		return 0, err
	}
	n, err := s.writer.Insert(ctx, bank, reviews)
	if err != nil {
		return 0, fmt.Errorf("insert %s: %w", path, err)
	}
	metrics.ObserveStage("insert", bank, n)
	return n, nil
}

// IngestDir inserts every *_themes.csv file in dir, in name order. A file
// that fails is logged and skipped.
func (s *Ingest) IngestDir(ctx context.Context, dir string) ([]IngestResult, error) {
	files, err := filepath.Glob(filepath.Join(dir, "*"+ThemesSuffix))
	if err != nil {
		return nil, fmt.Errorf("list %s: %w", dir, err)
	}
	sort.Strings(files)
	if len(files) == 0 {
		s.logger.Warn("no analysed files found", slog.String("dir", dir))
	}

	results := make([]IngestResult, 0, len(files))
	for _, file := range files {
		res := IngestResult{File: file, Bank: BankFromFile(file)}
		res.Inserted, res.Err = s.IngestFile(ctx, file)
		if res.Err != nil {
			s.logger.Error("failed to ingest file",
				slog.String("file", file),
				slog.String("bank", res.Bank),
				slog.String("error", res.Err.Error()),
			)
		} else {
			s.logger.Info("file ingested",
				slog.String("file", file),
				slog.String("bank", res.Bank),
				slog.Int("inserted", res.Inserted),
			)
		}
		results = append(results, res)
	}
	return results, nil
}
