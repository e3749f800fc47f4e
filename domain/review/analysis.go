package review

import "context"

// Prediction is a classifier's raw answer for one text.
type Prediction struct {
	Label string
	Score float64
}

// Classifier assigns a raw sentiment label and confidence to a text.
type Classifier interface {
	Classify(ctx context.Context, text string) (Prediction, error)
}

// Universal part-of-speech tags kept as themes.
const (
	POSNoun      = "NOUN"
	POSAdjective = "ADJ"
)

// Token is one tagged word or word group.
type Token struct {
	Text string
	POS  string
}

// Tagger assigns universal part-of-speech tags to the words of a text.
type Tagger interface {
	Tag(ctx context.Context, text string) ([]Token, error)
}
