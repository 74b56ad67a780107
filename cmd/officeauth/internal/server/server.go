// Package server wires the officeauth engine, the account store and the
// password hasher into the HTTP API.
package server

import (
	"context"
	"net/http"

	officeauth "github.com/AbuSayeed917/MMKRegisteredOfficeServices-sub002"
	"github.com/AbuSayeed917/MMKRegisteredOfficeServices-sub002/middleware"
	"github.com/AbuSayeed917/MMKRegisteredOfficeServices-sub002/password"
	"github.com/AbuSayeed917/MMKRegisteredOfficeServices-sub002/userstore"
	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"
)

// Options holds the collaborators of a [Server].
type Options struct {
	Engine *officeauth.Engine
	Users  userstore.Store
	Hasher *password.Hasher
	Logger *zap.Logger

	// Metrics serves GET /metrics. Nil disables the route.
	Metrics http.Handler
	// Throttle enables the per-IP token bucket in front of every route.
	Throttle *middleware.ThrottleConfig
}

// Server is the HTTP surface of the auth service.
type Server struct {
	engine  *officeauth.Engine
	users   userstore.Store
	hasher  *password.Hasher
	logger  *zap.Logger
	metrics http.Handler
	thr     *middleware.ThrottleConfig
}

// New returns a Server. Engine, Users and Hasher are required.
func New(opts Options) *Server {
	logger := opts.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Server{
		engine:  opts.Engine,
		users:   opts.Users,
		hasher:  opts.Hasher,
		logger:  logger,
		metrics: opts.Metrics,
		thr:     opts.Throttle,
	}
}

// Routes builds the router. ctx bounds background work owned by the
// middleware chain, such as the throttle sweeper.
func (s *Server) Routes(ctx context.Context) chi.Router {
	r := chi.NewRouter()

	r.Use(middleware.Recover(s.logger))
	r.Use(middleware.RequestID())
	r.Use(middleware.AccessLog(s.logger))
	if s.thr != nil {
		r.Use(middleware.Throttle(ctx, *s.thr))
	}
	r.Use(middleware.Authenticate(s.engine))

	r.Get("/healthz", s.healthz)
	if s.metrics != nil {
		r.Method(http.MethodGet, "/metrics", s.metrics)
	}

	r.Route("/api/auth", func(r chi.Router) {
		r.With(middleware.RateLimit(s.engine, officeauth.OperationRegister)).Post("/register", s.register)
		r.With(middleware.RateLimit(s.engine, officeauth.OperationLogin)).Post("/login", s.login)
		r.With(middleware.RateLimit(s.engine, officeauth.OperationLogin)).Post("/mobile/login", s.mobileLogin)
		r.Post("/logout", s.logout)
		r.With(middleware.RequireIdentity()).Get("/me", s.me)
	})

	r.Route("/api/admin", func(r chi.Router) {
		r.Use(middleware.RequireRole(s.engine, officeauth.RoleAdmin, officeauth.RoleSuperAdmin))
		r.Get("/clients", s.listClients)
		r.Patch("/clients/{id}/status", s.updateClientStatus)
	})

	return r
}

func (s *Server) healthz(w http.ResponseWriter, _ *http.Request) {
	middleware.WriteJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}
