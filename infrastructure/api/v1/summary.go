package v1

import (
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/MekdelawitGebre/customer-experience-fintech/application/service"
	"github.com/MekdelawitGebre/customer-experience-fintech/infrastructure/api/middleware"
)

// SummaryRouter serves the dashboard figures as JSON.
type SummaryRouter struct {
	dashboard *service.Dashboard
	logger    *slog.Logger
}

// NewSummaryRouter creates a new SummaryRouter.
func NewSummaryRouter(dashboard *service.Dashboard, logger *slog.Logger) *SummaryRouter {
	return &SummaryRouter{dashboard: dashboard, logger: logger}
}

// Routes returns the chi router for summary endpoints.
func (r *SummaryRouter) Routes() chi.Router {
	router := chi.NewRouter()
	router.Get("/", r.Get)
	return router
}

// Get handles GET /api/v1/summary.
func (r *SummaryRouter) Get(w http.ResponseWriter, req *http.Request) {
	summary, err := r.dashboard.Summary(req.Context(), Banks(req))
	if err != nil {
		middleware.WriteError(w, req, unavailable(err), r.logger)
		return
	}
	middleware.WriteJSON(w, http.StatusOK, summary)
}
