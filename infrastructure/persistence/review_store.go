package persistence

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"

	"gorm.io/gorm"

	"github.com/MekdelawitGebre/customer-experience-fintech/domain/repository"
	"github.com/MekdelawitGebre/customer-experience-fintech/domain/review"
	"github.com/MekdelawitGebre/customer-experience-fintech/infrastructure/csvio"
	"github.com/MekdelawitGebre/customer-experience-fintech/internal/database"
)

// ErrEmptyBankName is returned when reviews are inserted without a bank.
var ErrEmptyBankName = errors.New("persistence: empty bank name")

const insertBatchSize = 500

// ReviewStore implements review.Writer and review.Reader using GORM.
type ReviewStore struct {
	database.Repository[review.Review, ReviewModel]
	banks       BankStore
	fallbackCSV string
	logger      *slog.Logger
}

// NewReviewStore creates a new ReviewStore. fallbackCSV names the snapshot
// read when the database cannot be; empty disables the fallback.
func NewReviewStore(db database.Database, fallbackCSV string, logger *slog.Logger) ReviewStore {
	return ReviewStore{
		Repository:  database.NewRepository[review.Review, ReviewModel](db, ReviewMapper{}, "review"),
		banks:       NewBankStore(db),
		fallbackCSV: fallbackCSV,
		logger:      logger,
	}
}

// Insert stores reviews for bankName in one transaction, creating the bank
// on first use. Reviews failing Validate are logged and skipped. On failure
// nothing is stored.
func (s ReviewStore) Insert(ctx context.Context, bankName string, reviews []review.Review) (int, error) {
	if bankName == "" {
		return 0, ErrEmptyBankName
	}
	reviews = s.valid(bankName, reviews)

	n, err := database.WithTransactionResult(ctx, s.Database(), func(tx *gorm.DB) (int, error) {
		bank, err := findOrCreateBank(tx, bankName)
		if err != nil {
			return 0, err
		}
		if len(reviews) == 0 {
			return 0, nil
		}

		models := make([]ReviewModel, len(reviews))
		for i, r := range reviews {
			models[i] = s.Mapper().ToModel(r.WithBank(bank.ID, bank.Name))
			models[i].ID = 0
		}
		if err := tx.CreateInBatches(&models, insertBatchSize).Error; err != nil {
			return 0, fmt.Errorf("insert reviews: %w", err)
		}
		return len(models), nil
	})
	if err != nil {
		return 0, err
	}

	s.logger.Info("inserted reviews", slog.String("bank", bankName), slog.Int("count", n))
	return n, nil
}

func (s ReviewStore) valid(bankName string, reviews []review.Review) []review.Review {
	out := make([]review.Review, 0, len(reviews))
	for i, r := range reviews {
		if err := r.Validate(); err != nil {
			s.logger.Warn("skipping invalid review",
				slog.String("bank", bankName),
				slog.Int("row", i+1),
				slog.String("error", err.Error()),
			)
			continue
		}
		out = append(out, r)
	}
	return out
}

// InsertReviews is Insert with failures logged. ok is false when the
// transaction was rolled back.
func (s ReviewStore) InsertReviews(ctx context.Context, bankName string, reviews []review.Review) (int, bool) {
	n, err := s.Insert(ctx, bankName, reviews)
	if err != nil {
		s.logger.Error("failed to insert reviews",
			slog.String("bank", bankName),
			slog.Int("count", len(reviews)),
			slog.String("error", err.Error()),
		)
		return 0, false
	}
	return n, true
}

// GetAllReviews returns every review with its bank name, ordered by id.
// When the query fails and useFallback is set, the fallback snapshot is
// returned if the file exists.
func (s ReviewStore) GetAllReviews(ctx context.Context, useFallback bool) ([]review.Review, error) {
	reviews, err := s.all(ctx)
	if err == nil {
		return reviews, nil
	}
	if !useFallback || !s.fallbackExists() {
		return nil, err
	}

	s.logger.Warn("reading fallback snapshot",
		slog.String("path", s.fallbackCSV),
		slog.String("error", err.Error()),
	)
	reviews, ferr := csvio.ReadSnapshot(s.fallbackCSV)
	if ferr != nil {
		return nil, fmt.Errorf("read fallback after %w: %w", err, ferr)
	}
	return reviews, nil
}

func (s ReviewStore) all(ctx context.Context) ([]review.Review, error) {
	reviews, err := s.Find(ctx, repository.WithOrderAsc("review_id"))
	if err != nil {
		return nil, fmt.Errorf("get all reviews: %w", err)
	}
	return reviews, nil
}

// Find returns the reviews matching options, each with its bank name.
func (s ReviewStore) Find(ctx context.Context, options ...repository.Option) ([]review.Review, error) {
	reviews, err := s.Repository.Find(ctx, options...)
	if err != nil {
		return nil, err
	}
	if len(reviews) == 0 {
		return reviews, nil
	}
	names, err := s.banks.names(ctx)
	if err != nil {
		return nil, err
	}
	for i, r := range reviews {
		reviews[i] = r.WithBank(r.BankID(), names[r.BankID()])
	}
	return reviews, nil
}

// Banks returns every bank ordered by name.
func (s ReviewStore) Banks(ctx context.Context) ([]review.Bank, error) {
	return s.banks.All(ctx)
}

func (s ReviewStore) fallbackExists() bool {
	if s.fallbackCSV == "" {
		return false
	}
	info, err := os.Stat(s.fallbackCSV)
	return err == nil && !info.IsDir()
}

// ExportSnapshot writes every stored review to path in the fallback format
// and returns the number written.
func (s ReviewStore) ExportSnapshot(ctx context.Context, path string) (int, error) {
	reviews, err := s.all(ctx)
	if err != nil {
		return 0, err
	}
	if err := csvio.WriteSnapshot(path, reviews); err != nil {
		return 0, err
	}
	s.logger.Info("snapshot exported", slog.String("path", path), slog.Int("count", len(reviews)))
	return len(reviews), nil
}

var (
	_ review.Writer = ReviewStore{}
	_ review.Reader = ReviewStore{}
)
