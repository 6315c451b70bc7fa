package api

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
)

func NewRouter(apiHandler *APIHandler) http.Handler {
	r := chi.NewRouter()

	r.Use(middleware.Logger)       // Basic request logging
	r.Use(middleware.Recoverer)    // Recover from panics
	r.Use(middleware.StripSlashes) // Ensure consistent path handling

	// All API routes will be under /api
	r.Route("/api", func(r chi.Router) {
		r.Get("/health", func(w http.ResponseWriter, r *http.Request) {
			w.WriteHeader(http.StatusOK)
			w.Write([]byte(`{"status":"ok"}`))
		})

		// Identity-resolved routes (registered id from upstream auth, or a
		// guest id minted here)
		r.Group(func(r chi.Router) {
			r.Use(apiHandler.IdentityMiddleware)

			r.Post("/rag/query", apiHandler.QueryHandler)
			r.Get("/user/status", apiHandler.StatusHandler)
			r.Get("/user/chats", apiHandler.ListChatsHandler)
			r.Post("/chat/new", apiHandler.NewChatHandler)
			r.Post("/documents", apiHandler.IngestHandler)
		})
	})

	return r
}
