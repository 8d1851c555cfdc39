package api

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
)

// Routes configura e retorna o roteador Chi
func (h *Handler) Routes() http.Handler {
	r := chi.NewRouter()

	// Middlewares globais
	r.Use(middleware.Logger)
	r.Use(middleware.Recoverer)
	r.Use(middleware.StripSlashes)

	// Permite que um painel local converse com o backend em desenvolvimento
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   []string{"http://localhost:3000"},
		AllowedMethods:   []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type", "X-API-Key"},
		AllowCredentials: true,
		MaxAge:           300, // Tempo de cache da preflight
	}))

	// Rotas da API V1
	r.Route("/v1", func(r chi.Router) {
		// Endpoint de troca de chave de API por token (guardado pela chave)
		r.Post("/auth/token", h.handleIssueToken)

		// Endpoints protegidos (requerem token)
		r.Group(func(r chi.Router) {
			r.Use(h.AuthMiddleware)

			r.Post("/transfers/text", h.handleCreateTextTransfer)
			r.Post("/transfers/file", h.handleCreateFileTransfer)
			r.Get("/transfers/{id}", h.handleGetTransfer)
			r.Get("/transfers/{id}/download", h.handleDownloadTransfer)
			r.Post("/transfers/{id}/confirm", h.handleConfirmTransfer)
			r.Delete("/transfers/{id}", h.handleDeleteTransfer)

			r.Get("/me/stats", h.handleGetStats)

			r.Post("/admin/superusers", h.handleAddSuperuser)
		})
	})

	return r
}
