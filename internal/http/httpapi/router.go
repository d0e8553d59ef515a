package httpapi

import (
	stdhttp "net/http"
	"time"

	"avatarstudio/internal/http/handlers"
	"avatarstudio/internal/middleware"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"
)

// Options carries the router's cross-cutting settings.
type Options struct {
	AllowedOrigins  []string
	RateLimitPerMin int
	CountryLookup   middleware.CountryLookup
}

// NewRouter wires the API surface. The websocket endpoint sits outside the
// rate limiter because one upgrade carries a whole editing session.
func NewRouter(app *handlers.App, opts Options) stdhttp.Handler {
	r := chi.NewRouter()
	r.Use(
		chimw.RealIP,
		middleware.RequestID,
		chimw.Recoverer,
		middleware.Logger(app.Logger),
		middleware.CORS(opts.AllowedOrigins),
	)

	r.Get("/api/status", app.Status)
	r.Get("/metrics", app.Metrics.Handler().ServeHTTP)

	if app.Hub != nil {
		r.Get("/ws", app.Hub.ServeHTTP)
	}

	r.Group(func(r chi.Router) {
		if opts.RateLimitPerMin > 0 {
			r.Use(middleware.RateLimit(opts.RateLimitPerMin, time.Minute))
		}
		r.Use(middleware.Locale(opts.CountryLookup))

		r.Route("/api/avatar", func(r chi.Router) {
			r.Post("/generate", app.GenerateSubmit)
			r.Get("/generate", app.GenerateStatus)
			r.Get("/avatars", app.Avatars)
			r.Get("/voices", app.Voices)
		})

		r.Route("/api/projects", func(r chi.Router) {
			r.Post("/", app.ProjectCreate)
			r.Get("/", app.ProjectIndex)
			r.Route("/{id}", func(r chi.Router) {
				r.Get("/", app.ProjectGet)
				r.Put("/", app.ProjectUpdate)
				r.Delete("/", app.ProjectDelete)
				r.Post("/collaborators/{userId}", app.CollaboratorAdd)
				r.Delete("/collaborators/{userId}", app.CollaboratorRemove)
			})
		})
	})

	return r
}
