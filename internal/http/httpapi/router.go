package httpapi

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"productstudio/internal/generation"
	"productstudio/internal/http/handlers"
	"productstudio/internal/infra"
	"productstudio/internal/middleware"
)

// Options tune the middleware stack.
type Options struct {
	Logger          *infra.Logger
	RateLimitPerMin int
	CORSOrigins     []string
}

func NewRouter(app *handlers.App, opts Options) http.Handler {
	logger := opts.Logger
	if logger == nil {
		logger = infra.NopLogger()
	}

	r := chi.NewRouter()
	r.Use(
		middleware.RequestID,
		chimw.RealIP,
		chimw.Recoverer,
		middleware.Logger(*logger),
		middleware.CORS(opts.CORSOrigins),
		middleware.UserID(generation.DefaultUserID),
	)

	r.Get("/v1/healthz", app.Health)
	r.Get("/v1/info", app.Info)
	r.Handle("/metrics", promhttp.Handler())

	// Generation calls the paid model API; only those routes are limited.
	limited := middleware.RateLimit(opts.RateLimitPerMin, time.Minute)

	r.Route("/v1/tasks", func(r chi.Router) {
		r.With(limited).Post("/", app.CreateTask)
		r.Get("/", app.ListTasks)
		r.Get("/{id}", app.GetTask)
		r.Delete("/{id}", app.DeleteTask)
		r.Get("/{id}/archive", app.ExportTask)
		r.With(limited).Post("/{id}/images/{index}/regenerate", app.RegenerateImage)
	})

	r.Get("/v1/breaker", app.BreakerStatus)
	r.Post("/v1/breaker/reset", app.BreakerReset)
	r.Delete("/v1/cache", app.CacheClear)

	return r
}
