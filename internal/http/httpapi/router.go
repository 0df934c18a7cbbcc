package httpapi

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"

	"editorcore/internal/http/handlers"
	"editorcore/internal/infra"
	"editorcore/internal/middleware"
)

// Options carries router settings from configuration.
type Options struct {
	CORSOrigins     []string
	RateLimitPerMin int
	StaticDir       string
}

func NewRouter(app *handlers.App, logger infra.Logger, opts Options) http.Handler {
	r := chi.NewRouter()
	r.Use(
		middleware.RequestID,
		chimw.RealIP,
		chimw.Recoverer,
		middleware.Logger(logger),
		middleware.CORS(opts.CORSOrigins),
	)

	// Health
	r.Get("/v1/healthz", app.Health)

	// Provider callbacks bypass the rate limiter.
	r.Post("/v1/webhooks/compute", app.ComputeWebhook)

	r.Group(func(r chi.Router) {
		r.Use(middleware.RateLimit(opts.RateLimitPerMin, time.Minute))

		r.Route("/v1/jobs", func(r chi.Router) {
			r.Post("/", app.JobsSubmit)
			r.Get("/{run_id}", app.JobStatus)
		})
		r.Route("/v1/segment", func(r chi.Router) {
			r.Post("/tensor", app.SegmentTensor)
			r.Post("/cutout", app.SegmentCutout)
		})
		r.Delete("/v1/workbenches/{workbench_id}/selection", app.SelectionClear)
		r.Post("/v1/trajectories/path", app.TrajectoryPath)
	})

	if opts.StaticDir != "" {
		r.Handle("/static/*", http.StripPrefix("/static/", http.FileServer(http.Dir(opts.StaticDir))))
	}

	return r
}
