package service

import (
	"context"
	"fmt"
	"log/slog"
	"slices"

	"github.com/MekdelawitGebre/customer-experience-fintech/domain/repository"
	"github.com/MekdelawitGebre/customer-experience-fintech/domain/review"
)

// ReviewFinder queries the stored reviews. persistence.ReviewStore
// implements it.
type ReviewFinder interface {
	Find(ctx context.Context, options ...repository.Option) ([]review.Review, error)
	Count(ctx context.Context, options ...repository.Option) (int64, error)
	Banks(ctx context.Context) ([]review.Bank, error)
}

// RowSource serves the full dataset. *Dashboard implements it.
type RowSource interface {
	Rows(ctx context.Context, banks []string) ([]Row, error)
}

// ReviewQuery selects reviews. Zero fields do not filter; a zero Limit
// returns every match.
type ReviewQuery struct {
	Banks     []string
	Sentiment review.SentimentLabel
	Theme     string
	Rating    int
	MinRating int
	Limit     int
	Offset    int
}

// Match reports whether row passes every filter except Banks.
func (q ReviewQuery) Match(row Row) bool {
	switch {
	case q.Sentiment != "" && row.SentimentLabel != q.Sentiment:
		return false
	case q.Theme != "" && !slices.Contains(row.Themes, q.Theme):
		return false
	case q.Rating != 0 && row.Rating != q.Rating:
		return false
	case q.MinRating != 0 && row.Rating < q.MinRating:
		return false
	}
	return true
}

func (q ReviewQuery) options(bankIDs []int64) []repository.Option {
	var opts []repository.Option
	if len(q.Banks) > 0 {
		opts = append(opts, repository.WithBankIDIn(bankIDs))
	}
	if q.Sentiment != "" {
		opts = append(opts, repository.WithSentimentLabel(string(q.Sentiment)))
	}
	if q.Theme != "" {
		opts = append(opts, repository.WithTheme(q.Theme))
	}
	if q.Rating != 0 {
		opts = append(opts, repository.WithRating(q.Rating))
	}
	if q.MinRating != 0 {
		opts = append(opts, repository.WithMinRating(q.MinRating))
	}
	return opts
}

// Reviews lists stored reviews through the store's query options. When the
// store cannot be queried the cached dataset is filtered instead, so the
// snapshot fallback keeps serving.
type Reviews struct {
	finder ReviewFinder
	rows   RowSource
	logger *slog.Logger
}

// NewReviews creates a Reviews service.
func NewReviews(finder ReviewFinder, rows RowSource, logger *slog.Logger) *Reviews {
	return &Reviews{finder: finder, rows: rows, logger: logger}
}

// List returns the page of reviews selected by q, ordered by id, and the
// number of matches across all pages.
func (s *Reviews) List(ctx context.Context, q ReviewQuery) ([]Row, int64, error) {
	rows, total, err := s.query(ctx, q)
	if err == nil {
		return rows, total, nil
	}
	s.logger.Warn("review query failed, filtering dataset", slog.String("error", err.Error()))

	all, err := s.rows.Rows(ctx, q.Banks)
	if err != nil {
		return nil, 0, err
	}
	matched := make([]Row, 0, len(all))
	for _, row := range all {
		if q.Match(row) {
			matched = append(matched, row)
		}
	}
	return window(matched, q.Limit, q.Offset), int64(len(matched)), nil
}

func (s *Reviews) query(ctx context.Context, q ReviewQuery) ([]Row, int64, error) {
	var ids []int64
	if len(q.Banks) > 0 {
		banks, err := s.finder.Banks(ctx)
		if err != nil {
			return nil, 0, fmt.Errorf("resolve banks: %w", err)
		}
		for _, b := range banks {
			if slices.Contains(q.Banks, b.Name()) {
				ids = append(ids, b.ID())
			}
		}
		if len(ids) == 0 {
			return []Row{}, 0, nil
		}
	}

	opts := q.options(ids)
	total, err := s.finder.Count(ctx, opts...)
	if err != nil {
		return nil, 0, err
	}

	opts = append(opts, repository.WithOrderAsc("review_id"))
	if q.Limit > 0 {
		opts = append(opts, repository.WithPagination(q.Limit, q.Offset)...)
	}
	reviews, err := s.finder.Find(ctx, opts...)
	if err != nil {
		return nil, 0, err
	}

	rows := make([]Row, len(reviews))
	for i, r := range reviews {
		rows[i] = NewRow(r)
	}
	return rows, total, nil
}

// Banks returns the stored bank names in sorted order, read from the
// dataset when the store cannot be queried.
func (s *Reviews) Banks(ctx context.Context) ([]string, error) {
	banks, err := s.finder.Banks(ctx)
	if err == nil {
		names := make([]string, len(banks))
		for i, b := range banks {
			names[i] = b.Name()
		}
		slices.Sort(names)
		return names, nil
	}
	s.logger.Warn("bank query failed, reading dataset", slog.String("error", err.Error()))

	rows, err := s.rows.Rows(ctx, nil)
	if err != nil {
		return nil, err
	}
	return BankNames(rows), nil
}

func window[T any](items []T, limit, offset int) []T {
	start := min(max(offset, 0), len(items))
	if limit <= 0 {
		return items[start:]
	}
	end := min(start+limit, len(items))
	return items[start:end]
}
