package service

import (
	"context"
	"fmt"
	"log/slog"
	"maps"
	"slices"
	"strings"
	"time"

	"github.com/shopspring/decimal"
	"golang.org/x/sync/singleflight"

	"github.com/MekdelawitGebre/customer-experience-fintech/domain/review"
)

// DefaultDashboardTTL is how long a fetched dataset is reused.
const DefaultDashboardTTL = 300 * time.Second

const datasetKey = "dashboard:dataset"

// KPI colours.
const (
	ColorRed   = "#ef4444"
	ColorAmber = "#f59e0b"
	ColorGreen = "#22c55e"
	ColorSlate = "#64748b"
)

// SentimentColors are the fixed chart colours per label.
var SentimentColors = map[review.SentimentLabel]string{
	review.Positive: ColorGreen,
	review.Neutral:  ColorSlate,
	review.Negative: ColorRed,
}

// DatasetCache stores JSON-encodable values with a TTL.
type DatasetCache interface {
	Get(ctx context.Context, key string, dst any) (bool, error)
	Set(ctx context.Context, key string, v any, ttl time.Duration) error
	Del(ctx context.Context, key string) error
}

// Row is one review as the dashboard shows it.
type Row struct {
	ID             int64                 `json:"review_id"`
	BankID         int64                 `json:"bank_id"`
	Bank           string                `json:"bank"`
	Text           string                `json:"review_text"`
	Rating         int                   `json:"rating"`
	Date           *time.Time            `json:"review_date,omitempty"`
	SentimentLabel review.SentimentLabel `json:"sentiment_label"`
	SentimentScore float64               `json:"sentiment_score"`
	StdScore       float64               `json:"std_score"`
	Themes         review.Themes         `json:"themes"`
}

// NewRow converts a stored review to a dashboard row.
func NewRow(r review.Review) Row {
	return Row{
		ID:             r.ID(),
		BankID:         r.BankID(),
		Bank:           r.Bank(),
		Text:           r.Text(),
		Rating:         r.Rating(),
		Date:           r.Date(),
		SentimentLabel: r.Sentiment().Label,
		SentimentScore: r.Sentiment().Score,
		StdScore:       r.StdScore(),
		Themes:         r.Themes(),
	}
}

// KPIs are the headline figures for a selection of reviews.
type KPIs struct {
	Volume       int     `json:"volume"`
	AvgRating    float64 `json:"avg_rating"`
	PctPositive  float64 `json:"pct_positive"`
	Polarization float64 `json:"polarization"`
}

// ThemeDriver is a theme's mean sentiment score and the number of reviews
// mentioning it.
type ThemeDriver struct {
	Theme  string  `json:"theme"`
	Impact float64 `json:"impact"`
	Volume int     `json:"volume"`
}

// BankSentiment counts reviews per label for one bank.
type BankSentiment struct {
	Bank   string                        `json:"bank"`
	Counts map[review.SentimentLabel]int `json:"counts"`
}

// BankRatings counts reviews per star for one bank. Stars[0] is one star.
type BankRatings struct {
	Bank  string `json:"bank"`
	Stars [5]int `json:"stars"`
}

// Summary is everything the dashboard renders above the raw table.
type Summary struct {
	Banks     []string        `json:"banks"`
	Selected  []string        `json:"selected"`
	KPIs      KPIs            `json:"kpis"`
	KPIColor  string          `json:"kpi_color"`
	Sentiment []BankSentiment `json:"sentiment_by_bank"`
	Ratings   []BankRatings   `json:"rating_distribution"`
	Drivers   []ThemeDriver   `json:"theme_drivers"`
}

// Dashboard serves cached, read-only views over the stored reviews.
type Dashboard struct {
	reader      review.Reader
	cache       DatasetCache
	ttl         time.Duration
	useFallback bool
	group       singleflight.Group
	logger      *slog.Logger
}

// NewDashboard creates a Dashboard service. A non-positive ttl uses
// DefaultDashboardTTL.
func NewDashboard(reader review.Reader, cache DatasetCache, ttl time.Duration, logger *slog.Logger) *Dashboard {
	if ttl <= 0 {
		ttl = DefaultDashboardTTL
	}
	return &Dashboard{
		reader:      reader,
		cache:       cache,
		ttl:         ttl,
		useFallback: true,
		logger:      logger,
	}
}

// Dataset returns every stored review as dashboard rows. Results are cached
// for the TTL and concurrent misses share one read. A failed read is retried
// once before the error is returned.
func (d *Dashboard) Dataset(ctx context.Context) ([]Row, error) {
	var rows []Row
	hit, err := d.cache.Get(ctx, datasetKey, &rows)
	if err != nil {
		d.logger.Warn("dataset cache read failed", slog.String("error", err.Error()))
	}
	if hit {
		return rows, nil
	}

	// The shared read outlives any one caller's cancellation.
	shared := context.WithoutCancel(ctx)
	v, err, _ := d.group.Do(datasetKey, func() (any, error) {
		rows, err := d.fetch(shared)
		if err != nil {
			return nil, err
		}
		if err := d.cache.Set(shared, datasetKey, rows, d.ttl); err != nil {
			d.logger.Warn("dataset cache write failed", slog.String("error", err.Error()))
		}
		return rows, nil
	})
	if err != nil {
		return nil, err
	}
	return v.([]Row), nil
}

func (d *Dashboard) fetch(ctx context.Context) ([]Row, error) {
	reviews, err := d.reader.GetAllReviews(ctx, d.useFallback)
	if err != nil {
		d.logger.Warn("dataset read failed, retrying", slog.String("error", err.Error()))
		reviews, err = d.reader.GetAllReviews(ctx, d.useFallback)
	}
	if err != nil {
		return nil, fmt.Errorf("load reviews: %w", err)
	}

	rows := make([]Row, len(reviews))
	for i, r := range reviews {
		rows[i] = NewRow(r)
	}
	return rows, nil
}

// Invalidate drops the cached dataset.
func (d *Dashboard) Invalidate(ctx context.Context) error {
	return d.cache.Del(ctx, datasetKey)
}

// Rows returns the dataset restricted to banks. No banks selects all.
func (d *Dashboard) Rows(ctx context.Context, banks []string) ([]Row, error) {
	rows, err := d.Dataset(ctx)
	if err != nil {
		return nil, err
	}
	return FilterBanks(rows, banks), nil
}

// Summary computes the dashboard figures for the selected banks.
func (d *Dashboard) Summary(ctx context.Context, banks []string) (Summary, error) {
	rows, err := d.Dataset(ctx)
	if err != nil {
		return Summary{}, err
	}
	all := BankNames(rows)
	selected := all
	if len(banks) > 0 {
		selected = banks
	}
	filtered := FilterBanks(rows, banks)
	kpis := ComputeKPIs(filtered)

	return Summary{
		Banks:     all,
		Selected:  selected,
		KPIs:      kpis,
		KPIColor:  KPIColor(kpis.PctPositive),
		Sentiment: SentimentByBank(filtered),
		Ratings:   RatingDistribution(filtered),
		Drivers:   ThemeDrivers(filtered),
	}, nil
}

// BankNames returns the distinct bank names in sorted order.
func BankNames(rows []Row) []string {
	set := map[string]struct{}{}
	for _, r := range rows {
		set[r.Bank] = struct{}{}
	}
	return slices.Sorted(maps.Keys(set))
}

// FilterBanks keeps rows whose bank is in banks. No banks keeps everything.
func FilterBanks(rows []Row, banks []string) []Row {
	if len(banks) == 0 {
		return rows
	}
	out := make([]Row, 0, len(rows))
	for _, r := range rows {
		if slices.Contains(banks, r.Bank) {
			out = append(out, r)
		}
	}
	return out
}

// ComputeKPIs returns the headline figures unrounded. An empty selection
// gives zeros. Polarization is |five-star count - one-star count| / volume.
func ComputeKPIs(rows []Row) KPIs {
	n := len(rows)
	if n == 0 {
		return KPIs{}
	}
	var sum, positive, ones, fives int
	for _, r := range rows {
		sum += r.Rating
		switch r.Rating {
		case 1:
			ones++
		case 5:
			fives++
		}
		if r.SentimentLabel == review.Positive {
			positive++
		}
	}
	diff := fives - ones
	if diff < 0 {
		diff = -diff
	}
	total := float64(n)
	return KPIs{
		Volume:       n,
		AvgRating:    float64(sum) / total,
		PctPositive:  float64(positive*100) / total,
		Polarization: float64(diff) / total,
	}
}

// KPIColor maps a positive percentage to red below 40, amber below 70 and
// green otherwise.
func KPIColor(pctPositive float64) string {
	switch {
	case pctPositive < 40:
		return ColorRed
	case pctPositive < 70:
		return ColorAmber
	default:
		return ColorGreen
	}
}

// ThemeDrivers returns, per theme, the mean std score of the reviews that
// mention it and their count. A review counts once per theme. Drivers are
// sorted by impact, highest first, then by theme.
func ThemeDrivers(rows []Row) []ThemeDriver {
	type acc struct {
		sum   float64
		count int
	}
	byTheme := map[string]*acc{}
	for _, r := range rows {
		seen := map[string]struct{}{}
		for _, theme := range r.Themes {
			if _, dup := seen[theme]; dup {
				continue
			}
			seen[theme] = struct{}{}
			a, ok := byTheme[theme]
			if !ok {
				a = &acc{}
				byTheme[theme] = a
			}
			a.sum += r.StdScore
			a.count++
		}
	}

	out := make([]ThemeDriver, 0, len(byTheme))
	for theme, a := range byTheme {
		impact, _ := decimal.NewFromFloat(a.sum).
			DivRound(decimal.NewFromInt(int64(a.count)), 4).Float64()
		out = append(out, ThemeDriver{Theme: theme, Impact: impact, Volume: a.count})
	}
	slices.SortFunc(out, func(a, b ThemeDriver) int {
		switch {
		case a.Impact > b.Impact:
			return -1
		case a.Impact < b.Impact:
			return 1
		}
		return strings.Compare(a.Theme, b.Theme)
	})
	return out
}

// SentimentByBank counts labels per bank, banks in sorted order. Every
// label is present in each count map.
func SentimentByBank(rows []Row) []BankSentiment {
	byBank := map[string]map[review.SentimentLabel]int{}
	for _, r := range rows {
		counts, ok := byBank[r.Bank]
		if !ok {
			counts = map[review.SentimentLabel]int{}
			for _, l := range review.Labels() {
				counts[l] = 0
			}
			byBank[r.Bank] = counts
		}
		if r.SentimentLabel.Valid() {
			counts[r.SentimentLabel]++
		}
	}
	out := make([]BankSentiment, 0, len(byBank))
	for _, bank := range slices.Sorted(maps.Keys(byBank)) {
		out = append(out, BankSentiment{Bank: bank, Counts: byBank[bank]})
	}
	return out
}

// RatingDistribution counts stars per bank, banks in sorted order.
func RatingDistribution(rows []Row) []BankRatings {
	byBank := map[string]*[5]int{}
	for _, r := range rows {
		stars, ok := byBank[r.Bank]
		if !ok {
			stars = &[5]int{}
			byBank[r.Bank] = stars
		}
		if r.Rating >= 1 && r.Rating <= 5 {
			stars[r.Rating-1]++
		}
	}
	out := make([]BankRatings, 0, len(byBank))
	for _, bank := range slices.Sorted(maps.Keys(byBank)) {
		out = append(out, BankRatings{Bank: bank, Stars: *byBank[bank]})
	}
	return out
}
