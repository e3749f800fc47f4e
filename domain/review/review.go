// Package review provides the domain types shared by every pipeline stage:
// banks, scraped rows, and cleaned, labelled reviews.
package review

import (
	"time"
)

// SourceGooglePlay tags reviews fetched from the Google Play store.
const SourceGooglePlay = "google_play"

// Bank is a banking institution whose app reviews are analysed.
type Bank struct {
	id      int64
	name    string
	appName string
}

// NewBank creates a bank that is not yet persisted. The app name defaults to
// the bank name.
func NewBank(name string) Bank {
	return Bank{name: name, appName: name}
}

// ReconstructBank recreates a bank from persistence.
func ReconstructBank(id int64, name, appName string) Bank {
	return Bank{id: id, name: name, appName: appName}
}

// ID returns the bank's database identifier.
func (b Bank) ID() int64 { return b.id }

// Name returns the unique bank name.
func (b Bank) Name() string { return b.name }

// AppName returns the app name recorded for the bank.
func (b Bank) AppName() string { return b.appName }

// Raw is one scraped review as written to the raw CSV. Every field is text;
// interpretation happens in the cleaner.
type Raw struct {
	Text     string
	Rating   string
	Date     string
	UserName string
	Source   string
}

// Review is a cleaned review, optionally labelled and persisted.
// It is an immutable value; the With methods return modified copies.
type Review struct {
	id        int64
	bankID    int64
	bank      string
	text      string
	rating    int
	date      *time.Time
	userName  string
	source    string
	sentiment Sentiment
	themes    Themes
}

// NewReview creates a cleaned review that has not been labelled yet.
func NewReview(text string, rating int, date *time.Time, userName, source string) Review {
	return Review{
		text:      text,
		rating:    rating,
		date:      copyTime(date),
		userName:  userName,
		source:    source,
		sentiment: Sentiment{},
		themes:    Themes{},
	}
}

// ReconstructReview recreates a review from persistence.
func ReconstructReview(
	id int64,
	bankID int64,
	bank string,
	text string,
	rating int,
	date *time.Time,
	source string,
	sentiment Sentiment,
	themes Themes,
) Review {
	return Review{
		id:        id,
		bankID:    bankID,
		bank:      bank,
		text:      text,
		rating:    rating,
		date:      copyTime(date),
		source:    source,
		sentiment: sentiment,
		themes:    themes.Clone(),
	}
}

// ID returns the review's database identifier, zero before insertion.
func (r Review) ID() int64 { return r.id }

// BankID returns the identifier of the owning bank, zero before insertion.
func (r Review) BankID() int64 { return r.bankID }

// Bank returns the owning bank's name.
func (r Review) Bank() string { return r.bank }

// Text returns the cleaned review text.
func (r Review) Text() string { return r.text }

// Rating returns the star rating in [1,5].
func (r Review) Rating() int { return r.rating }

// Date returns the review date, or nil when it could not be parsed.
func (r Review) Date() *time.Time { return copyTime(r.date) }

// UserName returns the reviewer's display name.
func (r Review) UserName() string { return r.userName }

// Source returns the origin tag, e.g. google_play.
func (r Review) Source() string { return r.source }

// Sentiment returns the sentiment label and score.
func (r Review) Sentiment() Sentiment { return r.sentiment }

// Themes returns a copy of the review's themes.
func (r Review) Themes() Themes { return r.themes.Clone() }

// StdScore returns the sentiment score used for theme impact, zero when the
// review has no score.
func (r Review) StdScore() float64 {
	return r.sentiment.Score
}

// WithBank returns a copy attached to the given bank.
func (r Review) WithBank(id int64, name string) Review {
	r.bankID = id
	r.bank = name
	return r
}

// WithSentiment returns a copy with the given sentiment.
func (r Review) WithSentiment(s Sentiment) Review {
	r.sentiment = s
	return r
}

// WithThemes returns a copy with the given themes.
func (r Review) WithThemes(t Themes) Review {
	r.themes = t.Clone()
	return r
}

func copyTime(t *time.Time) *time.Time {
	if t == nil {
		return nil
	}
	c := *t
	return &c
}
