package jsonapi

import (
	"strconv"
	"time"

	"github.com/MekdelawitGebre/customer-experience-fintech/application/service"
)

// ReviewType is the resource type of a review.
const ReviewType = "review"

// ReviewAttributes are the attributes of a review resource.
type ReviewAttributes struct {
	Bank           string   `json:"bank"`
	Text           string   `json:"review_text"`
	Rating         int      `json:"rating"`
	Date           *string  `json:"review_date,omitempty"`
	SentimentLabel string   `json:"sentiment_label"`
	SentimentScore float64  `json:"sentiment_score"`
	Themes         []string `json:"themes"`
}

// ReviewResource converts a dashboard row to a review resource.
func ReviewResource(row service.Row) *Resource {
	attrs := ReviewAttributes{
		Bank:           row.Bank,
		Text:           row.Text,
		Rating:         row.Rating,
		SentimentLabel: string(row.SentimentLabel),
		SentimentScore: row.SentimentScore,
		Themes:         row.Themes.Clone(),
	}
	if row.Date != nil {
		d := row.Date.Format(time.DateOnly)
		attrs.Date = &d
	}
	return NewResource(ReviewType, strconv.FormatInt(row.ID, 10), attrs)
}

// ReviewResources converts rows in order.
func ReviewResources(rows []service.Row) []*Resource {
	out := make([]*Resource, len(rows))
	for i, row := range rows {
		out[i] = ReviewResource(row)
	}
	return out
}
