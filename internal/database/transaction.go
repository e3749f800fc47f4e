package database

import (
	"context"
	"fmt"

	"gorm.io/gorm"
)

// WithTransaction executes fn within a transaction, committing on success or
// rolling back on error or panic.
func WithTransaction(ctx context.Context, db Database, fn func(tx *gorm.DB) error) error {
	return db.Session(ctx).Transaction(fn)
}

// WithTransactionResult executes fn within a transaction, returning the result on success.
// On failure the zero value of T is returned.
func WithTransactionResult[T any](ctx context.Context, db Database, fn func(tx *gorm.DB) (T, error)) (T, error) {
	var result T
	err := db.Session(ctx).Transaction(func(tx *gorm.DB) error {
		v, err := fn(tx)
		if err != nil {
			return err
		}
		result = v
		return nil
	})
	if err != nil {
		var zero T
		return zero, err
	}
	return result, nil
}

// InBatches runs fn over items in consecutive slices of at most size
// elements, all inside one transaction.
func InBatches[T any](ctx context.Context, db Database, items []T, size int, fn func(tx *gorm.DB, batch []T) error) error {
	if size <= 0 {
		return fmt.Errorf("batch size must be positive, got %d", size)
	}
	return WithTransaction(ctx, db, func(tx *gorm.DB) error {
		for start := 0; start < len(items); start += size {
			end := min(start+size, len(items))
			if err := fn(tx, items[start:end]); err != nil {
				return err
			}
		}
		return nil
	})
}
