package handler

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"
)

// RouterOptions configure NewRouter.
type RouterOptions struct {
	// AllowedOrigins for CORS; empty allows any origin.
	AllowedOrigins []string
	// WebDir, when set, is served at the root.
	WebDir string
}

// NewRouter builds the chi router for the whole API.
func NewRouter(h *Handler, opts RouterOptions) http.Handler {
	r := chi.NewRouter()

	// Global middleware stack
	r.Use(chimiddleware.Recoverer) // recover from panics, return 500
	r.Use(chimiddleware.RequestID) // attach request IDs
	r.Use(chimiddleware.RealIP)    // trust X-Forwarded-For
	r.Use(Logger)
	r.Use(CORS(opts.AllowedOrigins))

	r.Get("/health", HealthCheck)

	r.Get("/venues", h.ListVenues)
	r.Post("/checkins", h.CheckIn)
	if h.events != nil {
		r.Get("/ws", h.Stream)
	}

	r.Group(func(r chi.Router) {
		r.Use(h.Authenticate)

		r.Get("/session", h.GetSession)
		r.Get("/matches", h.ListMatches)
		r.Get("/matches/{nickname}/quota", h.GetQuota)
		r.Post("/messages", h.SendMessage)
		r.Get("/conversations/{nickname}", h.GetConversation)
		r.Get("/inbox", h.GetInbox)
		r.Post("/checkout", h.Checkout)
	})

	if opts.WebDir != "" {
		r.Handle("/*", http.FileServer(http.Dir(opts.WebDir)))
	}
	return r
}
