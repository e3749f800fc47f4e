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

// ThemesSuffix names the analysed CSV files.
const ThemesSuffix = "_themes.csv"

// ThemesPath returns the analysed CSV path for bank.
func ThemesPath(dir, bank string) string {
	return filepath.Join(dir, strings.ToLower(bank)+ThemesSuffix)
}

// Analyze labels a bank's cleaned reviews with sentiment and themes.
type Analyze struct {
	sentiment *Sentiment
	themes    *Themes
	topN      int
	cleanDir  string
	outputDir string
	logger    *slog.Logger
}

// NewAnalyze creates a new Analyze service.
func NewAnalyze(sentiment *Sentiment, themes *Themes, topN int, cleanDir, outputDir string, logger *slog.Logger) *Analyze {
	return &Analyze{
		sentiment: sentiment,
		themes:    themes,
		topN:      topN,
		cleanDir:  cleanDir,
		outputDir: outputDir,
		logger:    logger,
	}
}

// Label returns the reviews with sentiment and themes attached.
func (a *Analyze) Label(ctx context.Context, reviews []review.Review) ([]review.Review, error) {
	texts := make([]string, len(reviews))
	for i, r := range reviews {
		texts[i] = r.Text()
	}

	sentiments := a.sentiment.Predict(ctx, texts)
	themes, err := a.themes.ExtractPerReview(ctx, texts, a.topN)
	if err != nil {
		return nil, fmt.Errorf("extract themes: %w", err)
	}

	out := make([]review.Review, len(reviews))
	for i, r := range reviews {
		out[i] = r.WithSentiment(sentiments[i]).WithThemes(themes[i])
	}
	return out, nil
}

// AnalyzeBank reads the cleaned CSV for bank, labels it and writes the
// analysed CSV, returning its path.
func (a *Analyze) AnalyzeBank(ctx context.Context, bank string) (string, error) {
	reviews, err := csvio.ReadCleaned(CleanPath(a.cleanDir, bank))
	if err != nil {
		return "", err
	}
	labelled, err := a.Label(ctx, reviews)
	if err != nil {
		return "", fmt.Errorf("analyze %s: %w", bank, err)
	}

	out := ThemesPath(a.outputDir, bank)
	if err := csvio.WriteAnalyzed(out, labelled); err != nil {
		return "", err
	}
	metrics.ObserveStage("analyze", bank, len(labelled))
	a.logger.Info("reviews analyzed",
		slog.String("bank", bank),
		slog.Int("count", len(labelled)),
		slog.String("path", out),
	)
	return out, nil
}
