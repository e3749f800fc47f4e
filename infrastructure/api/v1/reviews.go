// Package v1 provides the v1 JSON API routes.
package v1

import (
	"fmt"
	"log/slog"
	"net/http"
	"strconv"
	"strings"

	"github.com/go-chi/chi/v5"

	"github.com/MekdelawitGebre/customer-experience-fintech/application/service"
	"github.com/MekdelawitGebre/customer-experience-fintech/domain/review"
	"github.com/MekdelawitGebre/customer-experience-fintech/infrastructure/api/jsonapi"
	"github.com/MekdelawitGebre/customer-experience-fintech/infrastructure/api/middleware"
)

// ReviewsRouter serves the stored reviews.
type ReviewsRouter struct {
	reviews *service.Reviews
	logger  *slog.Logger
}

// NewReviewsRouter creates a new ReviewsRouter.
func NewReviewsRouter(reviews *service.Reviews, logger *slog.Logger) *ReviewsRouter {
	return &ReviewsRouter{reviews: reviews, logger: logger}
}

// Routes returns the chi router for review endpoints.
func (r *ReviewsRouter) Routes() chi.Router {
	router := chi.NewRouter()
	router.Get("/", r.List)
	return router
}

// List handles GET /api/v1/reviews.
//
// Query parameters: bank (repeatable), sentiment, theme, rating,
// min_rating, page, page_size.
func (r *ReviewsRouter) List(w http.ResponseWriter, req *http.Request) {
	ctx := req.Context()
	pagination := ParsePagination(req)

	query, err := parseReviewQuery(req)
	if err != nil {
		middleware.WriteError(w, req, middleware.NewAPIError(http.StatusBadRequest, err.Error(), nil), r.logger)
		return
	}
	query.Limit = pagination.Limit()
	query.Offset = pagination.Offset()

	rows, total, err := r.reviews.List(ctx, query)
	if err != nil {
		middleware.WriteError(w, req, unavailable(err), r.logger)
		return
	}

	doc := jsonapi.NewListResponse(jsonapi.ReviewResources(rows))
	doc.Meta = PaginationMeta(pagination, total)
	doc.Links = PaginationLinks(req, pagination, total)
	middleware.WriteJSON(w, http.StatusOK, doc)
}

func parseReviewQuery(req *http.Request) (service.ReviewQuery, error) {
	params := req.URL.Query()
	q := service.ReviewQuery{
		Banks: Banks(req),
		Theme: strings.TrimSpace(params.Get("theme")),
	}

	if raw := params.Get("sentiment"); raw != "" {
		label, ok := review.ParseLabel(raw)
		if !ok {
			return q, fmt.Errorf("unknown sentiment %s", raw)
		}
		q.Sentiment = label
	}

	var err error
	if q.Rating, err = starParam(params.Get("rating"), "rating"); err != nil {
		return q, err
	}
	if q.MinRating, err = starParam(params.Get("min_rating"), "min_rating"); err != nil {
		return q, err
	}
	return q, nil
}

// starParam parses an optional 1-5 star value; empty gives 0.
func starParam(raw, name string) (int, error) {
	if raw == "" {
		return 0, nil
	}
	n, err := strconv.Atoi(raw)
	if err != nil || n < review.MinRating || n > review.MaxRating {
		return 0, fmt.Errorf("%s must be %d-%d, got %s", name, review.MinRating, review.MaxRating, raw)
	}
	return n, nil
}

// Banks returns the bank filter from repeated ?bank= parameters. Empty
// values are ignored; no banks selects all.
func Banks(req *http.Request) []string {
	var banks []string
	for _, b := range req.URL.Query()["bank"] {
		if b != "" {
			banks = append(banks, b)
		}
	}
	return banks
}

func unavailable(err error) error {
	return middleware.NewAPIError(http.StatusServiceUnavailable, "reviews unavailable: "+err.Error(), err)
}
