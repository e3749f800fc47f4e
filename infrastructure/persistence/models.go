package persistence

import "time"

// BankModel represents the banks table. Reviews declares the one-to-many
// relation so the foreign key lands on reviews.bank_id.
type BankModel struct {
	ID      int64         `gorm:"column:bank_id;primaryKey;autoIncrement"`
	Name    string        `gorm:"column:bank_name;size:128;not null;uniqueIndex:uq_banks_bank_name"`
	AppName string        `gorm:"column:app_name;size:255"`
	Reviews []ReviewModel `gorm:"foreignKey:BankID;references:ID;constraint:OnUpdate:CASCADE,OnDelete:CASCADE"`
}

// TableName returns the table name.
func (BankModel) TableName() string { return "banks" }

// ReviewModel represents the reviews table. Themes hold a JSON array.
// BankName is filled from the banks table on read and never stored.
type ReviewModel struct {
	ID             int64      `gorm:"column:review_id;primaryKey;autoIncrement"`
	BankID         int64      `gorm:"column:bank_id;not null;index:ix_reviews_bank_id"`
	BankName       string     `gorm:"-"`
	Text           string     `gorm:"column:review_text;type:text;not null"`
	Rating         int        `gorm:"column:rating;not null"`
	Date           *time.Time `gorm:"column:review_date"`
	SentimentLabel string     `gorm:"column:sentiment_label;size:16"`
	SentimentScore *float64   `gorm:"column:sentiment_score"`
	Themes         string     `gorm:"column:themes;type:text"`
	Source         string     `gorm:"column:source;size:64"`
}

// TableName returns the table name.
func (ReviewModel) TableName() string { return "reviews" }
