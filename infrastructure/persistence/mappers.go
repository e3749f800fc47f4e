package persistence

import (
	"github.com/MekdelawitGebre/customer-experience-fintech/domain/review"
)

// BankMapper maps between domain Bank and persistence BankModel.
type BankMapper struct{}

// ToDomain converts a BankModel to a domain Bank.
func (BankMapper) ToDomain(m BankModel) review.Bank {
	return review.ReconstructBank(m.ID, m.Name, m.AppName)
}

// ToModel converts a domain Bank to a BankModel.
func (BankMapper) ToModel(b review.Bank) BankModel {
	return BankModel{ID: b.ID(), Name: b.Name(), AppName: b.AppName()}
}

// ReviewMapper maps between domain Review and persistence ReviewModel.
type ReviewMapper struct{}

// ToDomain converts a ReviewModel to a domain Review.
func (ReviewMapper) ToDomain(m ReviewModel) review.Review {
	sentiment := review.Sentiment{Label: review.SentimentLabel(m.SentimentLabel)}
	if m.SentimentScore != nil {
		sentiment.Score = *m.SentimentScore
	}

	return review.ReconstructReview(
		m.ID,
		m.BankID,
		m.BankName,
		m.Text,
		m.Rating,
		m.Date,
		m.Source,
		sentiment,
		review.ParseThemes(m.Themes),
	)
}

// ToModel converts a domain Review to a ReviewModel. An unlabelled review
// stores no sentiment score.
func (ReviewMapper) ToModel(r review.Review) ReviewModel {
	m := ReviewModel{
		ID:             r.ID(),
		BankID:         r.BankID(),
		BankName:       r.Bank(),
		Text:           r.Text(),
		Rating:         r.Rating(),
		Date:           r.Date(),
		SentimentLabel: string(r.Sentiment().Label),
		Themes:         r.Themes().JSON(),
		Source:         r.Source(),
	}
	if r.Sentiment().Label != "" {
		score := r.Sentiment().Score
		m.SentimentScore = &score
	}
	return m
}
