package persistence

import (
	"context"
	"errors"
	"fmt"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/MekdelawitGebre/customer-experience-fintech/domain/repository"
	"github.com/MekdelawitGebre/customer-experience-fintech/domain/review"
	"github.com/MekdelawitGebre/customer-experience-fintech/internal/database"
)

// BankStore reads banks.
type BankStore struct {
	database.Repository[review.Bank, BankModel]
}

// NewBankStore creates a new BankStore.
func NewBankStore(db database.Database) BankStore {
	return BankStore{
		Repository: database.NewRepository[review.Bank, BankModel](db, BankMapper{}, "bank"),
	}
}

// All returns every bank ordered by name.
func (s BankStore) All(ctx context.Context) ([]review.Bank, error) {
	return s.Find(ctx, repository.WithOrderAsc("bank_name"))
}

// names maps bank ids to names.
func (s BankStore) names(ctx context.Context) (map[int64]string, error) {
	banks, err := s.All(ctx)
	if err != nil {
		return nil, err
	}
	names := make(map[int64]string, len(banks))
	for _, b := range banks {
		names[b.ID()] = b.Name()
	}
	return names, nil
}

// findOrCreateBank returns the bank called name inside tx, creating it with
// app_name = bank_name when missing. A concurrent insert of the same name
// hits the unique index and is ignored, so both callers read back one row.
func findOrCreateBank(tx *gorm.DB, name string) (BankModel, error) {
	byName := repository.WithBankName(name)

	var bank BankModel
	err := database.ApplyConditions(tx, byName).First(&bank).Error
	if err == nil {
		return bank, nil
	}
	if !errors.Is(err, gorm.ErrRecordNotFound) {
		return BankModel{}, fmt.Errorf("find bank: %w", err)
	}

	created := BankModel{Name: name, AppName: name}
	if err := tx.Clauses(clause.OnConflict{DoNothing: true}).Create(&created).Error; err != nil {
		return BankModel{}, fmt.Errorf("create bank: %w", err)
	}
	if err := database.ApplyConditions(tx, byName).First(&bank).Error; err != nil {
		return BankModel{}, fmt.Errorf("reload bank: %w", err)
	}
	return bank, nil
}
