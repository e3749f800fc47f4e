package csvio

import (
	"fmt"
	"regexp"
	"strconv"
	"strings"
	"time"

	"github.com/MekdelawitGebre/customer-experience-fintech/domain/review"
)

// Column names shared by the review files.
const (
	ColReviewText     = "review_text"
	ColRating         = "rating"
	ColReviewDate     = "review_date"
	ColUserName       = "user_name"
	ColSource         = "source"
	ColSentimentLabel = "sentiment_label"
	ColSentimentScore = "sentiment_score"
	ColTheme          = "identified_theme"
	ColReviewID       = "review_id"
	ColBankID         = "bank_id"
	ColThemes         = "themes"
	ColBank           = "bank"
)

// Header layouts.
var (
	RawHeaders      = []string{ColReviewText, ColRating, ColReviewDate, ColUserName, ColSource}
	CleanHeaders    = RawHeaders
	AnalyzedHeaders = append(append([]string{}, RawHeaders...), ColSentimentLabel, ColSentimentScore, ColTheme)
	SnapshotHeaders = []string{
		ColReviewID, ColBankID, ColReviewText, ColRating, ColReviewDate,
		ColSentimentLabel, ColSentimentScore, ColThemes, ColSource, ColBank,
	}
)

// DateTimeLayout is the date format of cleaned and analysed files.
const DateTimeLayout = "2006-01-02 15:04:05"

var readLayouts = []string{time.RFC3339, DateTimeLayout, time.DateOnly}

// modelSuffix matches the _m<digits> suffix some exports append to column names.
var modelSuffix = regexp.MustCompile(`_m\d+$`)

// StripModelSuffix removes a trailing _m<digits> from a column name.
func StripModelSuffix(column string) string {
	return modelSuffix.ReplaceAllString(column, "")
}

// WriteRaw writes scraped rows.
func WriteRaw(path string, rows []review.Raw) error {
	records := make([][]string, len(rows))
	for i, r := range rows {
		records[i] = []string{r.Text, r.Rating, r.Date, r.UserName, r.Source}
	}
	return WriteFile(path, RawHeaders, records)
}

// ReadRaw reads scraped rows. Missing columns read as empty strings.
func ReadRaw(path string) ([]review.Raw, error) {
	t, err := ReadFile(path)
	if err != nil {
		return nil, err
	}
	rows := make([]review.Raw, len(t.Rows))
	for i, row := range t.Rows {
		rows[i] = review.Raw{
			Text:     row[ColReviewText],
			Rating:   row[ColRating],
			Date:     row[ColReviewDate],
			UserName: row[ColUserName],
			Source:   row[ColSource],
		}
	}
	return rows, nil
}

// WriteCleaned writes cleaned reviews.
func WriteCleaned(path string, reviews []review.Review) error {
	records := make([][]string, len(reviews))
	for i, r := range reviews {
		records[i] = cleanRecord(r)
	}
	return WriteFile(path, CleanHeaders, records)
}

// ReadCleaned reads cleaned reviews.
func ReadCleaned(path string) ([]review.Review, error) {
	t, err := ReadFile(path)
	if err != nil {
		return nil, err
	}
	reviews := make([]review.Review, 0, len(t.Rows))
	for i, row := range t.Rows {
		rating, err := parseRating(row[ColRating])
		if err != nil {
			return nil, fmt.Errorf("%s row %d: %w", path, i+1, err)
		}
		reviews = append(reviews, review.NewReview(
			row[ColReviewText], rating, ParseDate(row[ColReviewDate]), row[ColUserName], row[ColSource],
		))
	}
	return reviews, nil
}

// WriteAnalyzed writes labelled reviews with themes as list literals.
func WriteAnalyzed(path string, reviews []review.Review) error {
	records := make([][]string, len(reviews))
	for i, r := range reviews {
		s := r.Sentiment()
		records[i] = append(cleanRecord(r),
			string(s.Label),
			formatScore(s.Score),
			r.Themes().ListLiteral(),
		)
	}
	return WriteFile(path, AnalyzedHeaders, records)
}

// ReadAnalyzed reads labelled reviews. Column names lose any _m<digits>
// suffix, and a missing identified_theme column gives empty themes.
func ReadAnalyzed(path string) ([]review.Review, error) {
	t, err := ReadFile(path)
	if err != nil {
		return nil, err
	}
	t = t.RenameColumns(StripModelSuffix)

	reviews := make([]review.Review, 0, len(t.Rows))
	for i, row := range t.Rows {
		rating, err := parseRating(row[ColRating])
		if err != nil {
			return nil, fmt.Errorf("%s row %d: %w", path, i+1, err)
		}
		r := review.NewReview(
			row[ColReviewText], rating, ParseDate(row[ColReviewDate]), row[ColUserName], row[ColSource],
		).
			WithSentiment(parseSentiment(row[ColSentimentLabel], row[ColSentimentScore])).
			WithThemes(review.ParseThemes(row[ColTheme]))
		reviews = append(reviews, r)
	}
	return reviews, nil
}

// WriteSnapshot writes stored reviews in the fallback snapshot layout.
func WriteSnapshot(path string, reviews []review.Review) error {
	records := make([][]string, len(reviews))
	for i, r := range reviews {
		s := r.Sentiment()
		records[i] = []string{
			strconv.FormatInt(r.ID(), 10),
			strconv.FormatInt(r.BankID(), 10),
			r.Text(),
			strconv.Itoa(r.Rating()),
			formatDate(r.Date(), time.DateOnly),
			string(s.Label),
			formatScore(s.Score),
			r.Themes().JSON(),
			r.Source(),
			r.Bank(),
		}
	}
	return WriteFile(path, SnapshotHeaders, records)
}

// ReadSnapshot reads the fallback snapshot. Unparseable ids read as zero.
func ReadSnapshot(path string) ([]review.Review, error) {
	t, err := ReadFile(path)
	if err != nil {
		return nil, err
	}
	reviews := make([]review.Review, 0, len(t.Rows))
	for i, row := range t.Rows {
		rating, err := parseRating(row[ColRating])
		if err != nil {
			return nil, fmt.Errorf("%s row %d: %w", path, i+1, err)
		}
		id, _ := strconv.ParseInt(strings.TrimSpace(row[ColReviewID]), 10, 64)
		bankID, _ := strconv.ParseInt(strings.TrimSpace(row[ColBankID]), 10, 64)
		reviews = append(reviews, review.ReconstructReview(
			id, bankID, row[ColBank], row[ColReviewText], rating, ParseDate(row[ColReviewDate]),
			row[ColSource], parseSentiment(row[ColSentimentLabel], row[ColSentimentScore]),
			review.ParseThemes(row[ColThemes]),
		))
	}
	return reviews, nil
}

// ParseDate reads a date written by any pipeline stage, nil when empty or unknown.
func ParseDate(s string) *time.Time {
	s = strings.TrimSpace(s)
	if s == "" {
		return nil
	}
	for _, layout := range readLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			return &t
		}
	}
	return nil
}

func cleanRecord(r review.Review) []string {
	return []string{
		r.Text(),
		strconv.Itoa(r.Rating()),
		formatDate(r.Date(), DateTimeLayout),
		r.UserName(),
		r.Source(),
	}
}

func formatDate(t *time.Time, layout string) string {
	if t == nil {
		return ""
	}
	return t.Format(layout)
}

func formatScore(score float64) string {
	return strconv.FormatFloat(score, 'f', -1, 64)
}

func parseRating(s string) (int, error) {
	f, err := strconv.ParseFloat(strings.TrimSpace(s), 64)
	if err != nil || f != float64(int(f)) {
		return 0, fmt.Errorf("invalid rating %q", s)
	}
	return int(f), nil
}

// parseSentiment reads a label and score; a missing score reads as zero.
func parseSentiment(label, score string) review.Sentiment {
	s := review.Sentiment{Label: review.SentimentLabel(strings.ToUpper(strings.TrimSpace(label)))}
	if v, err := strconv.ParseFloat(strings.TrimSpace(score), 64); err == nil {
		s.Score = v
	}
	return s
}
