package service

import (
	"context"
	"log/slog"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/araddon/dateparse"

	"github.com/MekdelawitGebre/customer-experience-fintech/domain/review"
	"github.com/MekdelawitGebre/customer-experience-fintech/infrastructure/csvio"
	"github.com/MekdelawitGebre/customer-experience-fintech/internal/metrics"
)

// Layouts tried before the lenient parser.
var structuredLayouts = []string{
	time.RFC3339Nano,
	time.DateTime,
	time.DateOnly,
}

// CleanPath returns the cleaned CSV path for bank.
func CleanPath(dir, bank string) string {
	return filepath.Join(dir, strings.ToLower(bank)+"_clean.csv")
}

// CleanReviews normalizes scraped rows, in order: whitespace is collapsed
// and trimmed, empty texts are dropped, dates are parsed (nil when
// unparseable), rows repeating an earlier (text, date) pair are dropped, and
// rows whose rating is not an integer in [1,5] are dropped. Surviving rows
// keep their relative order.
func CleanReviews(rows []review.Raw) []review.Review {
	type key struct {
		text string
		date string
	}
	seen := make(map[key]struct{}, len(rows))
	out := make([]review.Review, 0, len(rows))

	for _, row := range rows {
		text := CleanText(row.Text)
		if text == "" {
			continue
		}
		date := ParseDate(row.Date)

		k := key{text: text}
		if date != nil {
			k.date = date.UTC().Format(time.RFC3339Nano)
		}
		if _, dup := seen[k]; dup {
			continue
		}
		seen[k] = struct{}{}

		rating, ok := ParseRating(row.Rating)
		if !ok {
			continue
		}
		out = append(out, review.NewReview(text, rating, date, row.UserName, row.Source))
	}
	return out
}

// CleanText collapses runs of whitespace to one space and trims the ends.
func CleanText(s string) string {
	return strings.Join(strings.Fields(s), " ")
}

// ParseDate parses s with the structured layouts, then leniently, and
// returns nil when neither succeeds.
func ParseDate(s string) *time.Time {
	s = strings.TrimSpace(s)
	if s == "" {
		return nil
	}
	for _, layout := range structuredLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			return &t
		}
	}
	t, err := dateparse.ParseIn(s, time.UTC)
	if err != nil {
		return nil
	}
	return &t
}

// ParseRating reads a star rating such as "4" or "4.0". It fails for
// non-numeric, fractional, or out-of-range values.
func ParseRating(s string) (int, bool) {
	f, err := strconv.ParseFloat(strings.TrimSpace(s), 64)
	if err != nil || f != float64(int(f)) {
		return 0, false
	}
	r := int(f)
	if r < 1 || r > 5 {
		return 0, false
	}
	return r, true
}

// Clean turns a bank's raw CSV into a cleaned CSV.
type Clean struct {
	rawDir   string
	cleanDir string
	logger   *slog.Logger
}

// NewClean creates a new Clean service.
func NewClean(rawDir, cleanDir string, logger *slog.Logger) *Clean {
	return &Clean{rawDir: rawDir, cleanDir: cleanDir, logger: logger}
}

// CleanBank reads the raw CSV for bank, cleans it and writes the cleaned
// CSV, returning its path.
func (c *Clean) CleanBank(_ context.Context, bank string) (string, error) {
	rows, err := csvio.ReadRaw(RawPath(c.rawDir, bank))
	if err != nil {
		return "", err
	}
	cleaned := CleanReviews(rows)

	out := CleanPath(c.cleanDir, bank)
	if err := csvio.WriteCleaned(out, cleaned); err != nil {
		return "", err
	}
	metrics.ObserveStage("clean", bank, len(cleaned))
	c.logger.Info("reviews cleaned",
		slog.String("bank", bank),
		slog.Int("input", len(rows)),
		slog.Int("kept", len(cleaned)),
		slog.String("path", out),
	)
	return out, nil
}
