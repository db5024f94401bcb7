// ABOUTME: HTTP server struct, constructor, and handler wiring for collabd.
// ABOUTME: Assembles the store, resolver, grant service, and labeler behind chi + huma.
package api

import (
	"encoding/json"
	"log/slog"
	"net/http"
	"time"

	"github.com/danielgtaylor/huma/v2"
	"github.com/danielgtaylor/huma/v2/adapters/humachi"
	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"golang.org/x/time/rate"

	"github.com/pdekraker-epa/ckanext-collaborators/internal/collab"
	"github.com/pdekraker-epa/ckanext-collaborators/internal/config"
	"github.com/pdekraker-epa/ckanext-collaborators/internal/store"
)

// Server holds the dependencies for the HTTP layer.
type Server struct {
	store       *store.Store
	cfg         *config.Config
	service     *collab.Service
	resolver    *collab.Resolver
	labeler     *collab.Labeler
	rateLimiter *ipRateLimiter
}

// NewServer creates a Server, wiring the Postgres store in as both the host
// directory and the grant store. notifier may be nil to disable the side
// channel.
func NewServer(s *store.Store, cfg *config.Config, notifier collab.Notifier) *Server {
	base := collab.NewLabelBaseline(s, s)
	resolver := collab.NewResolver(s, base, s)

	evictTTL := cfg.RateLimitEvictTTL
	if evictTTL == 0 {
		evictTTL = 15 * time.Minute
	}
	// 30 writes per minute per IP, burst of 10.
	rl := newIPRateLimiter(rate.Limit(30.0/60), 10, evictTTL)

	return &Server{
		store:       s,
		cfg:         cfg,
		service:     collab.NewService(s, s, resolver, notifier),
		resolver:    resolver,
		labeler:     collab.NewLabeler(s, s),
		rateLimiter: rl,
	}
}

// Close releases the server's background resources — currently the rate
// limiter's cleanup goroutine. The HTTP listener is owned by the caller.
func (srv *Server) Close() {
	srv.rateLimiter.Close()
}

// Handler builds and returns the http.Handler.
func (srv *Server) Handler() http.Handler {
	var db *pgxpool.Pool
	if srv.store != nil {
		db = srv.store.Pool()
	}
	r := chi.NewRouter()

	// ── Security headers ──────────────────────────────────────────────────────
	// Must be first so they appear on every response including errors.
	r.Use(func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.Header().Set("X-Content-Type-Options", "nosniff")
			w.Header().Set("X-Frame-Options", "DENY")
			w.Header().Set("Referrer-Policy", "strict-origin-when-cross-origin")
			next.ServeHTTP(w, r)
		})
	})

	// ── Standard chi middleware ───────────────────────────────────────────────
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	// 1 MB global body limit — protect against OOM from large request bodies.
	r.Use(middleware.RequestSize(1 << 20))
	r.Use(middleware.Recoverer)

	// ── Infrastructure endpoints ──────────────────────────────────────────────
	r.Get("/healthz", healthzHandler(db))
	r.Handle("/metrics", promhttp.Handler())

	// ── API v1 sub-router with huma (OpenAPI 3.1) ────────────────────────────
	apiRouter := chi.NewRouter()
	apiRouter.Use(srv.writeRateLimit())
	humaConfig := huma.DefaultConfig("Dataset Collaborators API", "0.1.0")
	humaConfig.Info.Description = "Collaborator grant layer for a data-catalog platform"
	api := humachi.New(apiRouter, humaConfig)
	registerCollaboratorRoutes(api, srv)
	registerDatasetRoutes(api, srv)
	registerSeedRoutes(api, srv)

	r.Mount("/api/v1", apiRouter)

	return r
}

// healthResponse is the JSON body for /healthz.
type healthResponse struct {
	Status string `json:"status"`
	DB     string `json:"db,omitempty"`
}

// healthzHandler returns 200 {"status":"ok"} when the DB is reachable,
// or 503 {"status":"degraded","db":"unavailable"} when it is not.
func healthzHandler(db *pgxpool.Pool) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		resp := healthResponse{Status: "ok"}
		statusCode := http.StatusOK

		if db == nil {
			resp.Status = "degraded"
			resp.DB = "unavailable"
			statusCode = http.StatusServiceUnavailable
		} else if err := db.Ping(r.Context()); err != nil {
			slog.WarnContext(r.Context(), "healthz: db ping failed", "error", err)
			resp.Status = "degraded"
			resp.DB = "unavailable"
			statusCode = http.StatusServiceUnavailable
		}

		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(statusCode)
		if err := json.NewEncoder(w).Encode(resp); err != nil {
			slog.ErrorContext(r.Context(), "healthz: failed to encode response", "error", err)
		}
	}
}
