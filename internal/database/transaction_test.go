package database

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
)

var errBoom = errors.New("boom")

func newItemsDB(t *testing.T) Database {
	t.Helper()
	db, _ := newFileDB(t)
	require.NoError(t, db.Session(context.Background()).
		Exec("CREATE TABLE test_items (id INTEGER PRIMARY KEY, name TEXT NOT NULL UNIQUE)").Error)
	return db
}

func countItems(t *testing.T, db Database) int64 {
	t.Helper()
	var count int64
	require.NoError(t, db.Session(context.Background()).Raw("SELECT COUNT(*) FROM test_items").Scan(&count).Error)
	return count
}

func TestWithTransaction(t *testing.T) {
	tests := []struct {
		name      string
		fn        func(tx *gorm.DB) error
		wantErr   bool
		wantCount int64
	}{
		{
			name: "commits on success",
			fn: func(tx *gorm.DB) error {
				return tx.Exec("INSERT INTO test_items (name) VALUES (?), (?)", "a", "b").Error
			},
			wantCount: 2,
		},
		{
			name: "rolls back on error",
			fn: func(tx *gorm.DB) error {
				if err := tx.Exec("INSERT INTO test_items (name) VALUES (?)", "a").Error; err != nil {
					return err
				}
				return errBoom
			},
			wantErr: true,
		},
		{
			name: "rolls back on constraint violation",
			fn: func(tx *gorm.DB) error {
				if err := tx.Exec("INSERT INTO test_items (name) VALUES (?)", "a").Error; err != nil {
					return err
				}
				return tx.Exec("INSERT INTO test_items (name) VALUES (?)", "a").Error
			},
			wantErr: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			db := newItemsDB(t)

			err := WithTransaction(context.Background(), db, tt.fn)
			if tt.wantErr {
				assert.Error(t, err)
			} else {
				assert.NoError(t, err)
			}
			assert.Equal(t, tt.wantCount, countItems(t, db))
		})
	}
}

func TestWithTransactionResult(t *testing.T) {
	db := newItemsDB(t)
	ctx := context.Background()

	n, err := WithTransactionResult(ctx, db, func(tx *gorm.DB) (int64, error) {
		res := tx.Exec("INSERT INTO test_items (name) VALUES (?), (?), (?)", "a", "b", "c")
		return res.RowsAffected, res.Error
	})
	require.NoError(t, err)
	assert.Equal(t, int64(3), n)

	n, err = WithTransactionResult(ctx, db, func(tx *gorm.DB) (int64, error) {
		if err := tx.Exec("INSERT INTO test_items (name) VALUES (?)", "d").Error; err != nil {
			return 0, err
		}
		return 1, errBoom
	})
	assert.ErrorIs(t, err, errBoom)
	assert.Zero(t, n)
	assert.Equal(t, int64(3), countItems(t, db))
}

func TestInBatches(t *testing.T) {
	db := newItemsDB(t)
	ctx := context.Background()
	names := []string{"a", "b", "c", "d", "e"}

	var sizes []int
	err := InBatches(ctx, db, names, 2, func(tx *gorm.DB, batch []string) error {
		sizes = append(sizes, len(batch))
		for _, name := range batch {
			if err := tx.Exec("INSERT INTO test_items (name) VALUES (?)", name).Error; err != nil {
				return err
			}
		}
		return nil
	})
	require.NoError(t, err)
	assert.Equal(t, []int{2, 2, 1}, sizes)
	assert.Equal(t, int64(5), countItems(t, db))

	assert.Error(t, InBatches(ctx, db, names, 0, func(*gorm.DB, []string) error { return nil }))
}
