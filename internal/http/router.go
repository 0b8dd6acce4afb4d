package http

import (
	stdhttp "net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/campushub/notifier/internal/rate"
	"github.com/campushub/notifier/internal/verification"
)

// RouterConfig wires the API surface.
type RouterConfig struct {
	Verification *verification.Service

	// APISecret enables HS256 bearer auth on /v1 when non-empty.
	APISecret string

	// Limiter throttles POST /v1/codes when non-nil.
	Limiter rate.Limiter

	// Registry backs GET /metrics; nil disables the endpoint.
	Registry *prometheus.Registry
}

// NewRouter builds the chi mux: health and metrics unauthenticated, the
// /v1 API behind bearer auth.
func NewRouter(cfg RouterConfig) *chi.Mux {
	h := &Handler{Verification: cfg.Verification, Limiter: cfg.Limiter}

	r := chi.NewRouter()
	r.Use(middleware.RealIP)
	r.Use(RequestLogger)
	r.Use(MetricsMiddleware)
	r.Use(middleware.Recoverer)

	r.Get("/healthz", func(w stdhttp.ResponseWriter, _ *stdhttp.Request) {
		w.WriteHeader(stdhttp.StatusOK)
		_, _ = w.Write([]byte("ok"))
	})
	if cfg.Registry != nil {
		r.Method(stdhttp.MethodGet, "/metrics",
			promhttp.HandlerFor(cfg.Registry, promhttp.HandlerOpts{}))
	}

	r.Route("/v1", func(r chi.Router) {
		if cfg.APISecret != "" {
			r.Use(BearerAuth(cfg.APISecret))
		}
		r.Post("/codes", h.sendCodes)
		r.Post("/codes/verify", h.verifyCode)
	})

	return r
}
