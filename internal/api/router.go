package api

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"

	"pkgindex/internal/config"
	"pkgindex/internal/middleware"
	"pkgindex/internal/service/security"
)

// NewRouter assembles the HTTP surface. Package resolution and file downloads
// are always mounted; the auth API disappears entirely (404) when the auth
// feature is disabled.
func NewRouter(h *APIHandler, identity *security.IdentityService, cfg *config.Config) http.Handler {
	r := chi.NewRouter()

	r.Use(middleware.RequestID)
	r.Use(chimiddleware.Recoverer)
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   cfg.CORSAllowedOrigins,
		AllowedMethods:   []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type", "X-Request-ID"},
		AllowCredentials: true,
		MaxAge:           300,
	}))
	r.Use(middleware.RateLimiter(middleware.RateLimitConfig{
		RequestsPerSecond: cfg.RateLimitRPS,
		Burst:             cfg.RateLimitBurst,
	}))
	r.Use(middleware.Authenticate(identity, []byte(cfg.Auth.JWTSecret)))

	r.Get("/healthz", h.Health)

	r.Get("/packages/{project}", h.GetPackage)
	r.Handle("/files/*", http.StripPrefix("/files/",
		http.FileServer(http.Dir(h.resolver.Store().Root()))))

	if cfg.Auth.Enabled {
		r.Post("/login", h.Login)

		r.Route("/users", func(r chi.Router) {
			r.Get("/", h.ListUsers)
			r.Post("/", h.CreateUser)
			r.Get("/self", h.Self)
			r.Delete("/self", h.DeleteSelf)
			r.Post("/self/password", h.ChangePassword)
			r.Route("/{method}/{value}", func(r chi.Router) {
				r.Get("/", h.GetUser)
				r.Delete("/", h.DeleteUser)
				r.Get("/permissions", h.ListUserPermissions)
				r.Post("/permissions", h.AddUserPermission)
				r.Delete("/permissions", h.RemoveUserPermission)
				r.Get("/permissions/{project}", h.ListUserPermissions)
			})
		})

		r.Route("/groups", func(r chi.Router) {
			r.Get("/", h.ListGroups)
			r.Post("/", h.CreateGroup)
			r.Route("/{method}/{value}", func(r chi.Router) {
				r.Get("/", h.GetGroup)
				r.Delete("/", h.DeleteGroup)
				r.Post("/members", h.AddGroupMember)
				r.Delete("/members", h.RemoveGroupMember)
				r.Get("/permissions", h.ListGroupPermissions)
				r.Post("/permissions", h.AddGroupPermission)
				r.Delete("/permissions", h.RemoveGroupPermission)
				r.Get("/permissions/{project}", h.ListGroupPermissions)
			})
		})

		r.Route("/tokens", func(r chi.Router) {
			r.Get("/", h.ListTokens)
			r.Post("/", h.CreateToken)
			r.Delete("/{id}", h.DeleteToken)
		})

		r.Get("/audit", h.ListAudit)
	}

	return r
}
