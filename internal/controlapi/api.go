// Package controlapi implements the REST surface of the service: the
// administrative flag CRUD (authenticated) and the public evaluation
// endpoint consumed by SDKs that cannot embed the engine.
package controlapi

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/render"

	"github.com/rafaeljc/verdandi/internal/engine"
	"github.com/rafaeljc/verdandi/internal/registry"
	"github.com/rafaeljc/verdandi/internal/store"
)

// API holds the router and its dependencies.
type API struct {
	// Router is the chi multiplexer handling HTTP requests.
	Router *chi.Mux

	// registry is the authoritative in-memory flag set; all mutations land
	// here first.
	registry *registry.Registry

	// engine answers the evaluation endpoint.
	engine *engine.Engine

	// repo is the optional write-through persistence layer; nil when the
	// service runs memory-only.
	repo store.FlagRepository

	// apiKeyHash is the SHA-256 hash of the valid API key for admin routes.
	apiKeyHash string

	// skipAuth disables authentication (tests and local development only).
	skipAuth bool
}

// NewAPI creates the API with authentication enabled. repo may be nil.
func NewAPI(reg *registry.Registry, eng *engine.Engine, repo store.FlagRepository, apiKeyHash string) *API {
	return NewAPIWithConfig(reg, eng, repo, apiKeyHash, false)
}

// NewAPIWithConfig creates the API with explicit control over
// authentication. Panics on missing mandatory dependencies or on an empty
// key hash while auth is enabled.
func NewAPIWithConfig(reg *registry.Registry, eng *engine.Engine, repo store.FlagRepository, apiKeyHash string, skipAuth bool) *API {
	if reg == nil {
		panic("controlapi: registry cannot be nil")
	}
	if eng == nil {
		panic("controlapi: engine cannot be nil")
	}
	if !skipAuth && apiKeyHash == "" {
		panic("controlapi: apiKeyHash cannot be empty when authentication is enabled")
	}

	api := &API{
		Router:     chi.NewRouter(),
		registry:   reg,
		engine:     eng,
		repo:       repo,
		apiKeyHash: apiKeyHash,
		skipAuth:   skipAuth,
	}

	api.configureRoutes()
	return api
}

// configureRoutes registers the middleware stack and endpoints.
func (a *API) configureRoutes() {
	// RequestID first so every log line downstream can carry it.
	a.Router.Use(middleware.RequestID)
	a.Router.Use(middleware.RealIP)
	a.Router.Use(RequestLogger)
	a.Router.Use(MetricsCollector)
	a.Router.Use(middleware.Recoverer)
	a.Router.Use(render.SetContentType(render.ContentTypeJSON))

	// Public routes.
	a.Router.Get("/health", a.handleHealthCheck)
	a.Router.Post("/api/v1/evaluate/{key}", a.handleEvaluate)

	// Protected admin routes.
	a.Router.Route("/api/v1/flags", func(r chi.Router) {
		r.Use(a.authenticateAPIKey)

		r.Post("/", a.handleCreateFlag)
		r.Get("/", a.handleListFlags)

		r.Route("/{key}", func(r chi.Router) {
			r.Get("/", a.handleGetFlag)
			r.Patch("/", a.handleUpdateFlag)
			r.Delete("/", a.handleDeleteFlag)
		})
	})
}

// handleHealthCheck reports HTTP serving capability. Deep checks live on the
// observability server.
func (a *API) handleHealthCheck(w http.ResponseWriter, r *http.Request) {
	render.Status(r, http.StatusOK)
	render.JSON(w, r, map[string]string{"status": "ok"})
}
