package collectionshttp

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/httprate"
)

// MountRoutes registers dashboard, action, API and export endpoints.
func (h *Handler) MountRoutes(r chi.Router) {
	if h == nil {
		return
	}
	limiter := httprate.Limit(10, time.Minute,
		httprate.WithKeyFuncs(rateLimitKey),
		httprate.WithLimitHandler(func(w http.ResponseWriter, r *http.Request) {
			http.Error(w, http.StatusText(http.StatusTooManyRequests), http.StatusTooManyRequests)
		}),
	)
	guard := h.auth.Middleware

	r.Get("/", h.handleOverview)
	r.Route("/divisions/{division}", func(r chi.Router) {
		r.Get("/", h.handleDivision)
		r.Get("/actions", h.handleActions)
		r.Group(func(gr chi.Router) {
			gr.Use(guard)
			gr.Post("/actions", h.handleCreateAction)
			gr.Post("/actions/{id}/comment", h.handleUpdateComment)
			gr.Post("/actions/{id}/delete", h.handleDeleteAction)
		})
	})

	r.Route("/api", func(r chi.Router) {
		r.Get("/months", h.apiMonths)
		r.Get("/overview", h.apiOverview)
		r.Get("/divisions/{division}", h.apiDivision)
		r.Get("/actions", h.apiListActions)
		r.Get("/actions/{id}", h.apiGetAction)
		r.Group(func(gr chi.Router) {
			gr.Use(guard)
			gr.Post("/actions", h.apiCreateAction)
			gr.Patch("/actions/{id}", h.apiUpdateComment)
			gr.Delete("/actions/{id}", h.apiDeleteAction)
		})
	})

	r.Group(func(gr chi.Router) {
		gr.Use(limiter)
		gr.Get("/export/overview.csv", h.handleCSV)
		gr.Get("/export/overview.pdf", h.handlePDF)
	})
}

// MountEvents registers the event stream. It is kept apart from MountRoutes
// so the caller can mount it outside request timeouts and compression.
func (h *Handler) MountEvents(r chi.Router) {
	if h == nil {
		return
	}
	r.Get("/events", h.handleEvents)
}

func rateLimitKey(r *http.Request) (string, error) {
	if user, _, ok := r.BasicAuth(); ok && user != "" {
		return "user:" + user, nil
	}
	key, err := httprate.KeyByIP(r)
	if err != nil {
		return "", err
	}
	return "ip:" + key, nil
}
