package api

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/folio/folio/internal/api/handlers"
	"github.com/folio/folio/internal/api/middleware"
)

// AuthService authenticates bearer tokens and issues them
type AuthService interface {
	middleware.Authenticator
	handlers.TokenIssuer
}

// Dependencies are the collaborators the HTTP surface is built from
type Dependencies struct {
	Auth         AuthService
	Limiter      middleware.Limiter
	Issuer       handlers.Issuer
	Documents    handlers.DocumentFinder
	Drafts       handlers.DraftEditor
	POSThreshold int64
	Checks       map[string]handlers.Check
}

// NewRouter creates and configures the HTTP router
func NewRouter(deps Dependencies) http.Handler {
	r := chi.NewRouter()

	// Global middleware
	r.Use(middleware.RequestID)
	r.Use(middleware.Recoverer)
	r.Use(middleware.Logging)
	r.Use(middleware.CORS)

	healthHandler := handlers.NewHealthHandler(deps.Checks)
	r.Get("/health", healthHandler.Health)
	r.Get("/ready", healthHandler.Ready)

	authHandler := handlers.NewAuthHandler(deps.Auth)
	documentHandler := handlers.NewDocumentHandler(deps.Issuer, deps.Documents)
	draftHandler := handlers.NewDraftHandler(deps.Drafts)
	totalsHandler := handlers.NewTotalsHandler(deps.POSThreshold)

	authMiddleware := middleware.NewAuthMiddleware(deps.Auth)
	rateLimitMiddleware := middleware.NewRateLimitMiddleware(deps.Limiter)

	r.Route("/api/v1", func(r chi.Router) {
		r.Post("/oauth/token", authHandler.Token)
		r.Get("/document-types", handlers.ListDocumentTypes)

		r.Group(func(r chi.Router) {
			r.Use(authMiddleware.Authenticate)
			if deps.Limiter != nil {
				r.Use(rateLimitMiddleware.RateLimit)
			}

			r.Post("/totals", totalsHandler.Preview)

			r.Route("/documents", func(r chi.Router) {
				r.Post("/{type}", documentHandler.Issue)
				r.Get("/{id}", documentHandler.Get)
			})

			r.Route("/drafts/{type}", func(r chi.Router) {
				r.Get("/", draftHandler.Get)
				r.Delete("/", draftHandler.Discard)
				r.Post("/actions", draftHandler.Apply)
				r.Post("/duplicate/{id}", draftHandler.Duplicate)
			})
		})
	})

	return r
}
