package review

import "context"

// Writer persists labelled reviews for a bank.
type Writer interface {
	// InsertReviews stores the reviews for bankName in one transaction,
	// creating the bank on first use. ok is false when nothing was stored.
	InsertReviews(ctx context.Context, bankName string, reviews []Review) (n int, ok bool)

	// Insert is InsertReviews with the failure returned instead of logged.
	Insert(ctx context.Context, bankName string, reviews []Review) (int, error)
}

// Reader reads persisted reviews joined with their bank name.
type Reader interface {
	// GetAllReviews returns every stored review. When the store cannot be
	// read and useFallback is set, the fallback snapshot is returned instead.
	GetAllReviews(ctx context.Context, useFallback bool) ([]Review, error)
}
