// Package api serves the review dashboard and its JSON API.
package api

import (
	"context"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/mark3labs/mcp-go/server"
	"github.com/prometheus/client_golang/prometheus"

	"github.com/MekdelawitGebre/customer-experience-fintech/application/service"
	apimiddleware "github.com/MekdelawitGebre/customer-experience-fintech/infrastructure/api/middleware"
	v1 "github.com/MekdelawitGebre/customer-experience-fintech/infrastructure/api/v1"
	mcpinternal "github.com/MekdelawitGebre/customer-experience-fintech/internal/mcp"
	"github.com/MekdelawitGebre/customer-experience-fintech/internal/metrics"
)

// Pinger reports whether a backing store is reachable.
type Pinger interface {
	Ping(ctx context.Context) error
}

// APIServer serves the HTML dashboard, the v1 JSON API, the MCP endpoint,
// health checks and Prometheus metrics.
type APIServer struct {
	dashboard *service.Dashboard
	reviews   *service.Reviews
	version   string
	registry  *prometheus.Registry
	pingers   map[string]Pinger
	server    *Server
	router    chi.Router
	logger    *slog.Logger
}

// NewAPIServer creates a new APIServer. pingers are checked by /healthz,
// keyed by the name reported on failure. version is reported to MCP clients.
func NewAPIServer(dashboard *service.Dashboard, reviews *service.Reviews, version string, registry *prometheus.Registry, pingers map[string]Pinger, logger *slog.Logger) *APIServer {
	if logger == nil {
		logger = slog.Default()
	}
	return &APIServer{
		dashboard: dashboard,
		reviews:   reviews,
		version:   version,
		registry:  registry,
		pingers:   pingers,
		logger:    logger,
	}
}

// mountRoutes wires every route on the given router.
func (a *APIServer) mountRoutes(router chi.Router) {
	reviewsRouter := v1.NewReviewsRouter(a.reviews, a.logger)
	summaryRouter := v1.NewSummaryRouter(a.dashboard, a.logger)

	router.Method(http.MethodGet, "/", NewDashboardPage(a.dashboard, a.logger))
	router.Get("/health", a.health)
	router.Get("/healthz", a.healthz)
	if a.registry != nil {
		router.Method(http.MethodGet, "/metrics", metrics.Handler(a.registry))
	}

	router.Route("/api/v1", func(r chi.Router) {
		r.Use(chimiddleware.Timeout(60 * time.Second))
		r.Mount("/reviews", reviewsRouter.Routes())
		r.Mount("/summary", summaryRouter.Routes())
	})

	// Streaming responses hold their own session headers, so /mcp stays
	// outside the Timeout middleware.
	mcpSrv := mcpinternal.NewServer(a.dashboard, a.reviews, a.version, a.logger)
	router.Mount("/mcp", server.NewStreamableHTTPServer(mcpSrv.MCPServer()))
}

func (a *APIServer) health(w http.ResponseWriter, _ *http.Request) {
	apimiddleware.WriteJSON(w, http.StatusOK, map[string]string{"status": "healthy"})
}

// healthz pings every backing store and reports 503 naming the first that
// fails.
func (a *APIServer) healthz(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 5*time.Second)
	defer cancel()

	checks := make(map[string]string, len(a.pingers))
	status := http.StatusOK
	for name, p := range a.pingers {
		if err := p.Ping(ctx); err != nil {
			checks[name] = err.Error()
			status = http.StatusServiceUnavailable
			continue
		}
		checks[name] = "ok"
	}

	body := map[string]any{"status": "healthy", "checks": checks}
	if status != http.StatusOK {
		body["status"] = "unhealthy"
	}
	apimiddleware.WriteJSON(w, status, body)
}

// Handler returns the routes as an http.Handler for use with custom servers
// and tests. It carries no server middleware.
func (a *APIServer) Handler() http.Handler {
	if a.router == nil {
		a.router = chi.NewRouter()
		a.mountRoutes(a.router)
	}
	return a.router
}

// ListenAndServe starts the HTTP server on the given address.
func (a *APIServer) ListenAndServe(addr string) error {
	server := NewServer(addr, a.logger)
	a.server = &server
	a.mountRoutes(server.Router())
	return server.Start()
}

// Shutdown gracefully shuts down the server.
func (a *APIServer) Shutdown(ctx context.Context) error {
	if a.server == nil {
		return nil
	}
	return a.server.Shutdown(ctx)
}
