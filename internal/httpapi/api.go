// Package httpapi is the HTTP surface of the service: session endpoints,
// resource routes guarded by the authorization dispatcher, and operational
// endpoints (health, readiness, metrics).
package httpapi

import (
	"context"
	"database/sql"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"

	"taskera.org/internal/auth"
	"taskera.org/internal/authz"
	"taskera.org/internal/obs"
)

// ReadyProbe reports readiness, pinging the database when one is attached.
type ReadyProbe struct {
	DB *sql.DB
}

func (rp ReadyProbe) Check(ctx context.Context) error {
	if rp.DB == nil {
		return nil
	}
	return rp.DB.PingContext(ctx)
}

// Options carries the collaborators the API serves.
type Options struct {
	Sessions   *auth.SessionService
	Tokens     *auth.TokenService
	Dispatcher *authz.Dispatcher
	Resources  ResourceService
	Ready      ReadyProbe
	Version    string

	// Rate limit for the anonymous auth endpoints, per client IP.
	AuthRateBurst     int
	AuthRatePerSecond int
}

// API is the HTTP layer.
type API struct {
	router     chi.Router
	sessions   *auth.SessionService
	tokens     *auth.TokenService
	dispatcher *authz.Dispatcher
	resources  ResourceService
	ready      ReadyProbe
	version    string
}

// New wires the router. Middleware order: request id, JSON logging, security
// headers, body cap; metrics instrumentation wraps the whole chain in
// Handler.
func New(opts Options) *API {
	a := &API{
		router:     chi.NewRouter(),
		sessions:   opts.Sessions,
		tokens:     opts.Tokens,
		dispatcher: opts.Dispatcher,
		resources:  opts.Resources,
		ready:      opts.Ready,
		version:    opts.Version,
	}

	burst, perSecond := opts.AuthRateBurst, opts.AuthRatePerSecond
	if burst <= 0 {
		burst = 10
	}
	if perSecond <= 0 {
		perSecond = 5
	}

	r := a.router
	r.Use(RequestID)
	r.Use(LoggingJSON)
	r.Use(SecurityHeaders)
	r.Use(MaxBodyBytes(1 << 20))

	r.Get("/healthz", a.handleHealthz)
	r.Get("/readyz", a.handleReadyz)
	r.Get("/v1/info", a.handleInfo)
	r.Method(http.MethodGet, "/metrics", obs.Handler())

	// Anonymous session endpoints; these run before any token exists and
	// bypass the authorization dispatcher entirely.
	r.Group(func(r chi.Router) {
		r.Use(RateLimit(burst, perSecond))
		r.Post("/v1/auth/login", a.handleLogin)
		r.Post("/v1/auth/refresh", a.handleRefresh)
		r.Post("/v1/auth/logout", a.handleLogout)
	})

	// Everything below requires a validated access token and an allow from
	// the dispatcher.
	r.Group(func(r chi.Router) {
		r.Use(a.withAuth)

		r.Get("/v1/teams", a.authorized(a.handleListTeams))
		r.Post("/v1/teams", a.authorized(a.handleCreateTeam))
		r.Route("/v1/teams/{teamID}", func(r chi.Router) {
			r.Get("/", a.authorized(a.handleGetTeam))
			r.Put("/", a.authorized(a.handleUpdateTeam))
			r.Delete("/", a.authorized(a.handleDeleteTeam))
			r.Post("/members", a.authorized(a.handleSetMember))
			r.Delete("/members", a.authorized(a.handleRemoveMember))
			r.Post("/projects", a.authorized(a.handleCreateProject))
		})
		r.Route("/v1/projects/{projectID}", func(r chi.Router) {
			r.Get("/", a.authorized(a.handleGetProject))
			r.Put("/", a.authorized(a.handleUpdateProject))
			r.Delete("/", a.authorized(a.handleDeleteProject))
			r.Post("/tasks", a.authorized(a.handleCreateTask))
		})
		r.Route("/v1/tasks/{taskID}", func(r chi.Router) {
			r.Get("/", a.authorized(a.handleGetTask))
			r.Put("/", a.authorized(a.handleUpdateTask))
			r.Delete("/", a.authorized(a.handleDeleteTask))
			r.Put("/status", a.authorized(a.handleUpdateTaskStatus))
			r.Put("/assign", a.authorized(a.handleAssignTask))
			r.Post("/comments", a.authorized(a.handleAddComment))
		})
	})

	return a
}

// Handler returns the fully instrumented handler for the server.
func (a *API) Handler() http.Handler {
	return obs.Instrument(a.router)
}

func (a *API) handleHealthz(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (a *API) handleReadyz(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
	defer cancel()
	if err := a.ready.Check(ctx); err != nil {
		writeError(w, r, http.StatusServiceUnavailable, "not ready")
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "ready"})
}

func (a *API) handleInfo(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{
		"name":    "taskera-api",
		"version": a.version,
	})
}
