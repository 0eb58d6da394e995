package api

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/starford/archiver/internal/auth"
	"github.com/starford/archiver/internal/registry"
)

// NewRouter creates a chi router with all API routes mounted.
// authn guards every route. sseHandler, if non-nil, is mounted at GET /events.
func NewRouter(reg *registry.Registry, authn auth.Authenticator, sseHandler http.Handler) chi.Router {
	h := NewHandler(reg)

	r := chi.NewRouter()
	r.Use(AuthMiddleware(authn))

	r.Post("/books", h.ArchiveBook)
	r.Get("/books/{fingerprint}", h.BookSummary)
	r.Get("/fingerprint", h.Fingerprint)

	if sseHandler != nil {
		r.Get("/events", sseHandler.ServeHTTP)
	}

	return r
}
