package repository

import (
	"encoding/json"
	"strings"
)

// WithBankName filters by the "bank_name" column.
func WithBankName(name string) Option {
	return WithCondition("bank_name", name)
}

// WithBankIDIn filters by the "bank_id" column using IN.
func WithBankIDIn(ids []int64) Option {
	return WithConditionIn("bank_id", ids)
}

// WithSentimentLabel filters by the "sentiment_label" column.
func WithSentimentLabel(label string) Option {
	return WithCondition("sentiment_label", label)
}

// WithRating filters by the "rating" column.
func WithRating(rating int) Option {
	return WithCondition("rating", rating)
}

// WithMinRating keeps rows whose rating is at least n.
func WithMinRating(n int) Option {
	return WithWhere("rating >= ?", n)
}

// WithTheme keeps rows whose "themes" JSON array holds theme exactly.
func WithTheme(theme string) Option {
	quoted, _ := json.Marshal(theme)
	return WithWhere("themes LIKE ? ESCAPE '!'", "%"+likeEscaper.Replace(string(quoted))+"%")
}

var likeEscaper = strings.NewReplacer("!", "!!", "%", "!%", "_", "!_")
