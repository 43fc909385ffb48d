package httpapi

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus"
	"go.uber.org/zap"

	"github.com/MrEthical07/trackauth"
	authprom "github.com/MrEthical07/trackauth/metrics/prometheus"
	"github.com/MrEthical07/trackauth/middleware"
)

const maxBodySize = 64 << 10

// API holds the dependencies needed by the REST handlers.
type API struct {
	engine   *trackauth.Engine
	log      *zap.Logger
	metrics  *httpMetrics
	registry *prometheus.Registry
	scrape   http.Handler

	trustProxy bool
}

// Option configures the API instance.
type Option func(*API)

// WithTrustedProxy takes the client address from X-Forwarded-For / X-Real-IP.
// Enable it only behind a proxy that overwrites those headers; otherwise a
// client can pick a fresh address per request and sidestep the per-IP login
// throttle.
func WithTrustedProxy() Option {
	return func(a *API) {
		a.trustProxy = true
	}
}

// New creates an API over engine. A nil logger is replaced with a no-op one.
func New(engine *trackauth.Engine, log *zap.Logger, opts ...Option) *API {
	if log == nil {
		log = zap.NewNop()
	}
	scrape, reg := authprom.Handler(engine)
	a := &API{
		engine:   engine,
		log:      log,
		metrics:  newHTTPMetrics(reg),
		registry: reg,
		scrape:   scrape,
	}
	for _, opt := range opts {
		opt(a)
	}
	return a
}

// Registry is the Prometheus registry served on /metrics.
func (a *API) Registry() *prometheus.Registry {
	return a.registry
}

// Router returns a chi.Router with every route mounted.
func (a *API) Router() chi.Router {
	r := chi.NewRouter()
	r.Use(chimw.RequestID)
	if a.trustProxy {
		r.Use(chimw.RealIP)
	}
	r.Use(chimw.Recoverer)
	r.Use(a.instrument)

	r.Get("/health", func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte("OK"))
	})
	r.Method(http.MethodGet, "/metrics", a.scrape)

	r.Post("/auth/register", a.Register)
	r.Post("/auth/login", a.Login)
	r.Post("/auth/refresh", a.Refresh)
	r.Post("/auth/password/forgot", a.ForgotPassword)
	r.Post("/auth/password/reset", a.ResetPassword)
	r.Post("/auth/email/verify", a.VerifyEmail)

	r.Group(func(r chi.Router) {
		r.Use(middleware.Require(a.engine))
		r.Post("/auth/logout", a.Logout)
		r.Post("/auth/password/change", a.ChangePassword)
		r.Post("/auth/email/resend", a.ResendVerification)
		r.Get("/me", a.Me)
	})

	return r
}
