package review

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestReview_Validate(t *testing.T) {
	valid := NewReview("good app", 5, nil, "u", SourceGooglePlay).
		WithSentiment(Sentiment{Label: Positive, Score: 0.9})

	tests := []struct {
		name   string
		review Review
		ok     bool
	}{
		{name: "valid", review: valid, ok: true},
		{name: "score bounds", review: valid.WithSentiment(Sentiment{Label: Neutral, Score: 0}), ok: true},
		{name: "blank text", review: NewReview("  ", 5, nil, "u", SourceGooglePlay).WithSentiment(valid.Sentiment())},
		{name: "rating too high", review: NewReview("x", 9, nil, "u", SourceGooglePlay).WithSentiment(valid.Sentiment())},
		{name: "rating zero", review: NewReview("x", 0, nil, "u", SourceGooglePlay).WithSentiment(valid.Sentiment())},
		{name: "unknown label", review: valid.WithSentiment(Sentiment{Label: "BOGUS", Score: 0.5})},
		{name: "unlabelled", review: valid.WithSentiment(Sentiment{})},
		{name: "score above one", review: valid.WithSentiment(Sentiment{Label: Positive, Score: 7.5})},
		{name: "negative score", review: valid.WithSentiment(Sentiment{Label: Negative, Score: -0.1})},
		{name: "NaN score", review: valid.WithSentiment(Sentiment{Label: Negative, Score: math.NaN()})},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.review.Validate()
			if tt.ok {
				assert.NoError(t, err)
				return
			}
			assert.ErrorIs(t, err, ErrInvalidReview)
		})
	}
}
