package httpapi

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"
	"github.com/rs/zerolog"

	"tryon/internal/http/handlers"
	"tryon/internal/middleware"
)

// Options configures the middleware stack around the handlers.
type Options struct {
	Logger          zerolog.Logger
	CORSOrigins     []string
	JWTSecret       string
	RateLimitPerMin int
	DefaultLocale   string
	CountryLookup   middleware.CountryLookup
	// StaticDir is served under /static when set.
	StaticDir string
}

func NewRouter(app *handlers.App, opts Options) http.Handler {
	r := chi.NewRouter()

	r.Use(
		middleware.RequestID,
		chimw.RealIP,
		middleware.Logger(opts.Logger),
		chimw.Recoverer,
		middleware.CORS(opts.CORSOrigins),
		middleware.I18N(opts.DefaultLocale, opts.CountryLookup),
		middleware.Identity(opts.JWTSecret),
	)

	r.Get("/v1/healthz", app.Health)
	r.Get("/v1/openapi.json", app.OpenAPIJSON)
	r.Get("/v1/docs", app.OpenAPIDocs)

	r.Group(func(r chi.Router) {
		r.Use(middleware.RateLimit(opts.RateLimitPerMin, time.Minute))
		r.Post("/v1/tryon", app.TryOn)
		r.Post("/v1/tryon/hybrid", app.HybridTryOn)
		r.Post("/v1/remove-bg", app.RemoveBackground)
	})

	r.Route("/v1/closet", func(r chi.Router) {
		r.Use(middleware.RequireUser)
		r.Get("/", app.ClosetList)
		r.Post("/", app.ClosetCreate)
		r.Get("/export", app.ClosetExport)
		r.Patch("/{id}/favorite", app.ClosetFavorite)
		r.Delete("/{id}", app.ClosetDelete)
	})

	if opts.StaticDir != "" {
		r.Handle("/static/*", http.StripPrefix("/static/", http.FileServer(http.Dir(opts.StaticDir))))
	}

	return r
}
