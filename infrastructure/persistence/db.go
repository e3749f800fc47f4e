// Package persistence stores banks and their labelled reviews with GORM.
package persistence

import (
	"context"
	"fmt"

	"github.com/MekdelawitGebre/customer-experience-fintech/internal/database"
)

// AutoMigrate creates or updates the banks and reviews tables. It is safe to
// run repeatedly.
func AutoMigrate(db database.Database) error {
	return CreateSchema(context.Background(), db)
}

// CreateSchema is AutoMigrate bound to ctx.
func CreateSchema(ctx context.Context, db database.Database) error {
	if err := db.Session(ctx).AutoMigrate(&BankModel{}, &ReviewModel{}); err != nil {
		return fmt.Errorf("migrate schema: %w", err)
	}
	return nil
}
