package review

import (
	"strings"
)

// SentimentLabel is the coarse polarity of a review.
type SentimentLabel string

// SentimentLabel values.
const (
	Positive SentimentLabel = "POSITIVE"
	Neutral  SentimentLabel = "NEUTRAL"
	Negative SentimentLabel = "NEGATIVE"
)

// NeutralScore is the confidence reported when no prediction could be made.
const NeutralScore = 0.5

// Labels lists every sentiment label in display order.
func Labels() []SentimentLabel {
	return []SentimentLabel{Positive, Neutral, Negative}
}

// Valid reports whether l is one of the three known labels.
func (l SentimentLabel) Valid() bool {
	switch l {
	case Positive, Neutral, Negative:
		return true
	}
	return false
}

// String returns the label text.
func (l SentimentLabel) String() string { return string(l) }

// Sentiment pairs a label with a confidence in [0,1].
type Sentiment struct {
	Label SentimentLabel `json:"label"`
	Score float64        `json:"score"`
}

// NeutralSentiment is the fallback prediction.
func NeutralSentiment() Sentiment {
	return Sentiment{Label: Neutral, Score: NeutralScore}
}

// ParseLabel maps a classifier label to a SentimentLabel. The raw value is
// upper-cased and stripped of a LABEL_ prefix first, so LABEL_0, neg and
// Negative are all accepted.
func ParseLabel(raw string) (SentimentLabel, bool) {
	s := strings.ToUpper(strings.TrimSpace(raw))
	s = strings.TrimPrefix(s, "LABEL_")
	switch s {
	case "0", "NEG", "NEGATIVE":
		return Negative, true
	case "1", "NEU", "NEUTRAL":
		return Neutral, true
	case "2", "POS", "POSITIVE":
		return Positive, true
	}
	return "", false
}
