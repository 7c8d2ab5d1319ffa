package server

import (
	"net/http"

	"cpathways/cprules/pkg/security/auth"
	"cpathways/cprules/pkg/telemetry/health"

	"github.com/go-chi/chi/v5"
)

func (s *Server) setupRoutes() http.Handler {
	r := chi.NewRouter()

	// Recovery is outermost so it also covers the other middleware.
	r.Use(s.recoverer)
	r.Use(requestID)
	r.Use(s.traceRequests)
	r.Use(s.observe)

	r.NotFound(func(w http.ResponseWriter, r *http.Request) {
		writeError(w, http.StatusNotFound, ErrorTypeNotFound, "route not found")
	})
	r.MethodNotAllowed(func(w http.ResponseWriter, r *http.Request) {
		writeError(w, http.StatusMethodNotAllowed, ErrorTypeInvalidRequest, "method not allowed")
	})

	r.Route("/v1", func(r chi.Router) {
		if s.opts.Auth != nil {
			r.Use(s.authenticate())
		}
		r.Post("/evaluate", s.handleEvaluate)
		r.Post("/evaluate/batch", s.handleEvaluateBatch)
		r.Get("/rules", s.handleRules)
		r.Get("/audit", s.handleAudit)
	})

	r.Get("/health", s.opts.Health.LivenessHandler())
	r.Get("/ready", s.opts.Health.ReadinessHandler())
	r.Get("/version", health.VersionHandler(s.opts.Version, s.opts.Commit, s.opts.BuildTime))
	r.Get("/openapi.yaml", s.handleOpenAPIYAML)
	r.Get("/openapi.json", s.handleOpenAPIJSON)

	if s.opts.Metrics != nil {
		r.Handle(s.opts.MetricsPath, s.opts.Metrics.Handler())
	}

	return r
}

func (s *Server) authenticate() func(http.Handler) http.Handler {
	sources := s.opts.AuthSources
	if len(sources) == 0 {
		sources = []auth.KeySource{{Type: auth.SourceHeader, Name: "Authorization", Scheme: "Bearer"}}
	}

	mw := auth.NewMiddleware(s.opts.Auth, sources, s.logger)
	mw.OnDenied(func(w http.ResponseWriter, r *http.Request, err error) {
		w.Header().Set("WWW-Authenticate", `Bearer realm="cprules"`)
		writeError(w, http.StatusUnauthorized, ErrorTypeAuthentication, err.Error())
	})
	return mw.Handle
}
