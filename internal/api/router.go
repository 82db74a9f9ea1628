/**
 * @description
 * HTTP router for the MonetizeGram service: SMS webhook, admin API, cron trigger,
 * health and metrics.
 *
 * @dependencies
 * - github.com/go-chi/chi/v5: routing and standard middleware.
 * - github.com/go-chi/cors: CORS for the admin API.
 */

package api

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
)

// Secrets are the shared secrets gating each route group.
type Secrets struct {
	Automation string
	SuperAdmin string
	Cron       string
}

// NewRouter wires the handlers. metrics may be nil.
func NewRouter(h *Handler, secrets Secrets, metrics http.Handler) *chi.Mux {
	r := chi.NewRouter()

	r.Use(middleware.Logger)
	r.Use(middleware.Recoverer)
	r.Use(middleware.Timeout(60 * time.Second))
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins: []string{"https://*", "http://*"},
		AllowedMethods: []string{"GET", "POST", "OPTIONS"},
		AllowedHeaders: []string{"Accept", "Content-Type", "X-Shortcut-Secret"},
		MaxAge:         300,
	}))

	r.Get("/health", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		w.Write([]byte("MonetizeGram is healthy"))
	})
	if metrics != nil {
		r.Method(http.MethodGet, "/metrics", metrics)
	}

	r.With(HeaderSecretMiddleware("x-shortcut-secret", secrets.Automation)).
		Post("/api/shortcut", h.handleShortcut)

	r.With(QuerySecretMiddleware("secret", secrets.Cron)).
		Get("/api/internal/cron", h.handleCron)

	r.Route("/api/super", func(r chi.Router) {
		r.Use(QuerySecretMiddleware("secret", secrets.SuperAdmin))

		r.Get("/stats", h.handleStats)

		r.Get("/owners", h.handleListOwners)
		r.Get("/owners/{ownerID}", h.handleGetOwner)
		r.Post("/owners/{ownerID}/ban", h.handleBanOwner)
		r.Post("/owners/{ownerID}/unban", h.handleUnbanOwner)

		r.Get("/channels", h.handleListChannels)
		r.Post("/channels/{channelID}/inspect", h.handleInspectChannel)

		r.Get("/withdrawals", h.handleListWithdrawals)
		r.Post("/withdrawals/{id}/approve", h.handleApproveWithdrawal)
		r.Post("/withdrawals/{id}/reject", h.handleRejectWithdrawal)

		r.Get("/reports", h.handleListReports)
		r.Post("/reports/{id}/resolve", h.handleResolveReport)

		r.Post("/reconcile", h.handleReconcile)
	})

	return r
}
