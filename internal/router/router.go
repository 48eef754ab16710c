package router

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"

	"go-fileops/internal/handler"
	"go-fileops/internal/middleware"
)

type Options struct {
	RequestTimeout time.Duration
	CORSOrigins    []string
	RateLimitRPM   int
	HeavyRateRPM   int
}

type Handlers struct {
	Entries    *handler.EntriesHandler
	Operations *handler.OperationsHandler
	Trash      *handler.TrashHandler
	Jobs       *handler.JobsHandler
	Audit      *handler.AuditHandler
	Health     *handler.HealthHandler
	Events     http.Handler
}

func New(opts Options, auth *middleware.AuthMiddleware, h Handlers) http.Handler {
	r := chi.NewRouter()
	rateLimitMiddleware := middleware.NewRateLimitMiddleware(opts.RateLimitRPM, opts.HeavyRateRPM)

	r.Use(chimw.RealIP)
	r.Use(middleware.Logging)
	r.Use(middleware.Recovery)
	r.Use(middleware.CORS(opts.CORSOrigins))

	r.Get("/health", h.Health.Health)

	r.Route("/api/v1", func(api chi.Router) {
		api.Use(auth.RequireAuth)
		api.Use(rateLimitMiddleware.Handler)

		writers := auth.RequireRoles(middleware.RoleEditor, middleware.RoleAdmin)
		admins := auth.RequireRoles(middleware.RoleAdmin)

		// Websocket connections outlive any request deadline.
		if h.Events != nil {
			api.Get("/ws", h.Events.ServeHTTP)
		}

		api.Group(func(api chi.Router) {
			api.Use(middleware.Timeout(opts.RequestTimeout))

			api.Get("/entries/stat", h.Entries.Stat)
			api.Get("/entries/list", h.Entries.List)
			api.Get("/entries/mime", h.Entries.MimeType)
			api.With(writers).Put("/entries/times", h.Entries.SetTimes)
			api.With(writers).Post("/entries/symlink", h.Entries.Symlink)
			api.Get("/volumes", h.Entries.Volumes)

			api.Route("/operations", func(ops chi.Router) {
				ops.Use(writers)
				ops.Post("/move", h.Operations.Move)
				ops.Post("/copy", h.Operations.Copy)
				ops.Post("/trash", h.Operations.Trash)
				ops.Post("/delete", h.Operations.Delete)
				ops.Post("/undelete", h.Operations.Undelete)
			})

			api.Route("/trash", func(trash chi.Router) {
				trash.Get("/", h.Trash.List)
				trash.Get("/store", h.Trash.Browse)
				trash.With(writers).Post("/restore-latest", h.Trash.RestoreLatest)
				trash.With(writers).Post("/restore-by-time", h.Trash.RestoreByTime)
				trash.With(writers).Post("/{id}/restore", h.Trash.Restore)
				trash.With(writers).Delete("/{id}", h.Trash.Purge)
				trash.With(admins).Delete("/", h.Trash.Empty)
			})

			api.Route("/jobs", func(jobs chi.Router) {
				jobs.With(writers).Post("/", h.Jobs.Create)
				jobs.Get("/{job_id}", h.Jobs.Get)
				jobs.Get("/{job_id}/items", h.Jobs.Items)
				jobs.With(writers).Post("/{job_id}/cancel", h.Jobs.Cancel)
			})

			api.With(admins).Get("/audit", h.Audit.List)
		})
	})

	return r
}
