package app

import (
	"io/fs"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"

	"github.com/Git-me-Harish/Video-KYC/internal/auth"
	"github.com/Git-me-Harish/Video-KYC/internal/launcher"
	"github.com/Git-me-Harish/Video-KYC/internal/observability"
	"github.com/Git-me-Harish/Video-KYC/internal/proxy"
	"github.com/Git-me-Harish/Video-KYC/internal/shared"
	"github.com/Git-me-Harish/Video-KYC/internal/view"
	"github.com/Git-me-Harish/Video-KYC/jobs"
	"github.com/Git-me-Harish/Video-KYC/web"
)

// RouterParams groups dependencies for building the HTTP router.
type RouterParams struct {
	Logger         *slog.Logger
	Config         *Config
	Templates      *view.Engine
	SessionManager *shared.SessionManager
	AuthHandler    *auth.Handler
	ChatProxy      *proxy.Forwarder
	LaunchHandler  *launcher.Handler
	JobHandler     *jobs.Handler
	Metrics        *observability.Metrics
}

// NewRouter constructs the chi.Router with gateway defaults. Only the pages
// and endpoints that act on the signed-in user load the session. The chat
// proxy and the synchronous launch never touch it, and the launch is not
// bounded by the request timeout since it waits for the script to exit.
func NewRouter(params RouterParams) http.Handler {
	r := chi.NewRouter()

	for _, mw := range MiddlewareStack(MiddlewareConfig{
		Logger:  params.Logger,
		Config:  params.Config,
		Metrics: params.Metrics,
	}) {
		r.Use(mw)
	}

	r.Use(chimw.Logger)

	if params.LaunchHandler != nil {
		params.LaunchHandler.MountRoutes(r)
	}

	rateLimit := 10
	if params.Config != nil && params.Config.RateLimitAuth > 0 {
		rateLimit = params.Config.RateLimitAuth
	}

	r.Group(func(r chi.Router) {
		r.Use(RequestTimeout(params.Config))

		r.Get("/healthz", func(w http.ResponseWriter, r *http.Request) {
			w.Header().Set("Content-Type", "application/json")
			w.WriteHeader(http.StatusOK)
			_, _ = w.Write([]byte(`{"status":"ok"}`))
		})

		if params.ChatProxy != nil {
			params.ChatProxy.MountRoutes(r)
		}
		if params.JobHandler != nil {
			r.Route("/jobs", params.JobHandler.MountRoutes)
		}
		if params.Metrics != nil {
			r.Method(http.MethodGet, "/metrics", params.Metrics.Handler())
		}
		params.AuthHandler.MountLogout(r)

		r.Group(func(r chi.Router) {
			r.Use(SessionMiddleware(params.SessionManager, params.Logger))

			r.With(shared.RequireSession).Get(shared.HomePath, func(w http.ResponseWriter, r *http.Request) {
				sess := shared.SessionFromContext(r.Context())
				data := view.TemplateData{
					Title:       "Video KYC",
					CurrentPath: r.URL.Path,
					User:        &sess.Claim,
				}
				if err := params.Templates.Render(w, "pages/index.html", data); err != nil {
					params.Logger.Error("render home", slog.Any("error", err))
					http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
				}
			})

			r.Group(func(r chi.Router) {
				r.Use(AuthRateLimit(rateLimit))
				params.AuthHandler.MountRoutes(r)
			})

			if params.LaunchHandler != nil {
				params.LaunchHandler.MountQueueRoutes(r)
			}
		})

		staticFS, err := fs.Sub(web.Static, "static")
		if err != nil {
			params.Logger.Error("create static sub filesystem", slog.Any("error", err))
		} else {
			fileServer := http.StripPrefix("/static/", http.FileServer(http.FS(staticFS)))
			r.Handle("/static/*", staticCacheHandler(fileServer))
		}
	})

	return r
}

// staticCacheHandler lets browsers cache embedded assets for an hour.
func staticCacheHandler(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Cache-Control", "public, max-age=3600")
		next.ServeHTTP(w, r)
	})
}
