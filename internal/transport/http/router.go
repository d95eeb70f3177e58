// Package httptransport assembles the public HTTP surface: the shared
// middleware chain, the registration routes and the operational endpoints.
package httptransport

import (
	"context"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"profreg/internal/platform/metrics"
	"profreg/internal/platform/middleware"
	"profreg/internal/registrant/handler"
	"profreg/internal/session"
	"profreg/pkg/platform/middleware/metadata"
	"profreg/pkg/platform/middleware/requesttime"
	"profreg/pkg/requestcontext"
)

// Pinger reports whether the backing store is reachable.
type Pinger interface {
	Ping(ctx context.Context) error
}

// Deps are the collaborators the router needs. Metrics, Gatherer and Health
// are optional.
type Deps struct {
	Logger         *slog.Logger
	Metrics        *metrics.Metrics
	Gatherer       prometheus.Gatherer
	Registrants    *handler.Handler
	Cookies        *session.CookieCodec
	Cookie         session.CookieConfig
	RequestTimeout time.Duration
	Health         Pinger
}

// NewRouter wires all public endpoints behind the shared middleware chain.
// Only the registration routes carry a session cookie.
func NewRouter(d Deps) http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(metadata.ClientMetadata)
	r.Use(requesttime.Middleware)
	r.Use(middleware.Logger(d.Logger))
	r.Use(middleware.Recovery(d.Logger, d.Registrants.RenderPanic))
	r.Use(middleware.Timeout(d.RequestTimeout))
	r.Use(middleware.LatencyMiddleware(d.Metrics))

	r.Get("/healthz", healthz(d.Health, d.Logger))
	if d.Gatherer != nil {
		r.Method(http.MethodGet, "/metrics", promhttp.HandlerFor(d.Gatherer, promhttp.HandlerOpts{}))
	}

	r.Group(func(r chi.Router) {
		r.Use(session.Middleware(d.Cookies, d.Cookie, d.Logger))
		d.Registrants.Register(r)
	})
	return r
}

func healthz(store Pinger, logger *slog.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "text/plain; charset=utf-8")
		if store != nil {
			if err := store.Ping(r.Context()); err != nil {
				ctx := r.Context()
				logger.WarnContext(ctx, "health check failed",
					"request_id", requestcontext.RequestID(ctx),
					"error", err,
				)
				w.WriteHeader(http.StatusServiceUnavailable)
				_, _ = w.Write([]byte("database unavailable\n"))
				return
			}
		}
		_, _ = w.Write([]byte("ok\n"))
	}
}
