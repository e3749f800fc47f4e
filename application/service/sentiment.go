package service

import (
	"context"
	"log/slog"
	"strings"
	"unicode"

	"github.com/shopspring/decimal"
	"golang.org/x/text/unicode/runenames"

	"github.com/MekdelawitGebre/customer-experience-fintech/domain/review"
)

// emojiSentiment maps single-rune emoji to a fixed prediction.
var emojiSentiment = map[rune]review.Sentiment{
	'👍': {Label: review.Positive, Score: 0.95},
	'👌': {Label: review.Positive, Score: 0.9},
	'❤': {Label: review.Positive, Score: 0.95},
	'😊': {Label: review.Positive, Score: 0.9},
	'😍': {Label: review.Positive, Score: 0.95},
	'🙏': {Label: review.Positive, Score: 0.85},
	'👎': {Label: review.Negative, Score: 0.95},
	'😡': {Label: review.Negative, Score: 0.95},
	'😠': {Label: review.Negative, Score: 0.9},
	'🤬': {Label: review.Negative, Score: 0.95},
	'😞': {Label: review.Negative, Score: 0.85},
	'😢': {Label: review.Negative, Score: 0.85},
	'💔': {Label: review.Negative, Score: 0.9},
	'😐': {Label: review.Neutral, Score: 0.8},
	'🤔': {Label: review.Neutral, Score: 0.7},
}

// Sentiment labels review texts.
type Sentiment struct {
	classifier review.Classifier
	logger     *slog.Logger
}

// NewSentiment creates a Sentiment service. A nil classifier is valid: every
// text without a known emoji is then labelled neutral.
func NewSentiment(classifier review.Classifier, logger *slog.Logger) *Sentiment {
	return &Sentiment{classifier: classifier, logger: logger}
}

// HasClassifier reports whether a classifier is configured.
func (s *Sentiment) HasClassifier() bool {
	return s.classifier != nil
}

// Predict returns one sentiment per text, in order. The first known emoji
// in a text decides its label. Otherwise the classifier is asked; a missing
// classifier, a failed call or an unknown label gives NEUTRAL 0.5 for that
// text alone.
func (s *Sentiment) Predict(ctx context.Context, texts []string) []review.Sentiment {
	out := make([]review.Sentiment, len(texts))
	fallbacks := 0
	for i, text := range texts {
		sentiment, ok := s.predictOne(ctx, text)
		if !ok {
			fallbacks++
		}
		out[i] = sentiment
	}
	if fallbacks > 0 {
		s.logger.Warn("neutral sentiment fallback used",
			slog.Int("fallbacks", fallbacks),
			slog.Int("total", len(texts)),
			slog.Bool("classifier", s.HasClassifier()),
		)
	}
	return out
}

func (s *Sentiment) predictOne(ctx context.Context, text string) (review.Sentiment, bool) {
	if sentiment, ok := EmojiSentiment(text); ok {
		return sentiment, true
	}
	if s.classifier == nil {
		return review.NeutralSentiment(), false
	}

	pred, err := s.classifier.Classify(ctx, Demojize(text))
	if err != nil {
		s.logger.Debug("classification failed", slog.String("error", err.Error()))
		return review.NeutralSentiment(), false
	}
	label, ok := review.ParseLabel(pred.Label)
	if !ok {
		s.logger.Debug("unknown classifier label", slog.String("label", pred.Label))
		return review.NeutralSentiment(), false
	}
	return review.Sentiment{Label: label, Score: RoundScore(pred.Score)}, true
}

// EmojiSentiment returns the fixed sentiment of the first known emoji in text.
func EmojiSentiment(text string) (review.Sentiment, bool) {
	for _, r := range text {
		if s, ok := emojiSentiment[r]; ok {
			return s, true
		}
	}
	return review.Sentiment{}, false
}

// RoundScore clamps a confidence to [0,1] and rounds it to 4 decimals.
func RoundScore(score float64) float64 {
	d := decimal.NewFromFloat(score)
	switch {
	case d.LessThan(decimal.Zero):
		d = decimal.Zero
	case d.GreaterThan(decimal.NewFromInt(1)):
		d = decimal.NewFromInt(1)
	}
	f, _ := d.Round(4).Float64()
	return f
}

// Demojize replaces symbol runes with their lower-case Unicode names,
// replaces underscores and colons with spaces, and trims the result.
// "Great 😊" becomes "Great smiling face with smiling eyes".
func Demojize(text string) string {
	var b strings.Builder
	for _, r := range text {
		switch {
		case r == '\u200d' || unicode.Is(unicode.Variation_Selector, r):
			continue
		case isPictograph(r):
			if name := runenames.Name(r); name != "" {
				b.WriteByte(' ')
				b.WriteString(strings.ToLower(name))
				b.WriteByte(' ')
				continue
			}
			b.WriteRune(r)
		case r == '_' || r == ':':
			b.WriteByte(' ')
		default:
			b.WriteRune(r)
		}
	}
	return strings.Join(strings.Fields(b.String()), " ")
}

func isPictograph(r rune) bool {
	return unicode.Is(unicode.So, r) || (unicode.Is(unicode.Sk, r) && r > 0x2000)
}
