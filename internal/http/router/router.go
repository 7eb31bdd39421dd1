package router

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"
	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"

	"github.com/sandeepkv93/secure-credential-service/internal/health"
	"github.com/sandeepkv93/secure-credential-service/internal/http/handler"
	"github.com/sandeepkv93/secure-credential-service/internal/http/middleware"
	"github.com/sandeepkv93/secure-credential-service/internal/http/response"
)

const defaultBodyLimit = 64 << 10

type Dependencies struct {
	CredentialHandler *handler.CredentialHandler
	Readiness         *health.ProbeRunner
	BodyLimitBytes    int64
	EnableOTelHTTP    bool
}

func NewRouter(dep Dependencies) http.Handler {
	bodyLimit := dep.BodyLimitBytes
	if bodyLimit <= 0 {
		bodyLimit = defaultBodyLimit
	}

	r := chi.NewRouter()
	r.Use(chimiddleware.RealIP)
	r.Use(chimiddleware.Recoverer)
	r.Use(middleware.RequestID)
	r.Use(middleware.StructuredRequestLogger)
	r.Use(middleware.SecurityHeaders)
	r.Use(middleware.BodyLimit(bodyLimit))

	r.Get("/health/live", func(w http.ResponseWriter, r *http.Request) {
		response.JSON(w, r, http.StatusOK, map[string]string{"status": "ok"})
	})
	r.Get("/health/ready", func(w http.ResponseWriter, r *http.Request) {
		if dep.Readiness == nil {
			response.JSON(w, r, http.StatusOK, map[string]any{"status": "ready", "checks": []any{}})
			return
		}
		ready, results := dep.Readiness.Ready(r.Context())
		if ready {
			response.JSON(w, r, http.StatusOK, map[string]any{"status": "ready", "checks": results})
			return
		}
		response.Error(w, r, http.StatusServiceUnavailable, "DEPENDENCY_UNREADY", "dependencies are not ready", map[string]any{"checks": results})
	})

	r.Route("/api/v1", func(r chi.Router) {
		r.Use(middleware.Actor)
		r.Post("/login", dep.CredentialHandler.Login)
		r.Route("/credentials/{userID}", func(r chi.Router) {
			r.Post("/", dep.CredentialHandler.CreateOrUpdate)
			r.Put("/", dep.CredentialHandler.SetPassword)
			r.Delete("/", dep.CredentialHandler.Destroy)
		})
	})

	var h http.Handler = r
	if dep.EnableOTelHTTP {
		h = otelhttp.NewHandler(r, "http.server")
	}
	return h
}
