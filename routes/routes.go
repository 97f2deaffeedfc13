package routes

import (
	"net/http"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/upb/contact-directory/app"
	"github.com/upb/contact-directory/handlers"
	"github.com/upb/contact-directory/internal/observability"
	"github.com/upb/contact-directory/models"
	"github.com/upb/contact-directory/services/importer"
	"github.com/upb/contact-directory/utils"
)

// SetupRoutes configures all application routes and middleware.
//
// Every /api route passes Authenticate (login is on the public allow-list).
// Admin routes add RequireRole(admin) and mutating routes are wrapped in
// handlers.Audited, so the chain is authenticate, authorize, execute, audit.
func SetupRoutes(deps *app.Dependencies) http.Handler {
	logger := deps.Logger
	r := chi.NewRouter()

	// Core middleware
	r.Use(chimw.RequestID)
	r.Use(observability.AccessLog(logger.Named("http")))
	r.Use(chimw.Recoverer)
	r.Use(chimw.Timeout(60 * time.Second))

	// CORS middleware
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   deps.Config.CORS.AllowedOrigins,
		AllowedMethods:   []string{"GET", "POST", "PUT", "PATCH", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type"},
		ExposedHeaders:   []string{"X-Request-ID", "Retry-After"},
		AllowCredentials: true,
		MaxAge:           300,
	}))

	health := handlers.NewHealthHandler(deps.SQLDB(), logger)
	authH := handlers.NewAuthHandler(deps.Auth, logger)
	contactH := handlers.NewContactHandler(deps.Contacts, logger)
	licenseH := handlers.NewLicenseHandler(deps.Licenses, logger)
	userH := handlers.NewUserHandler(deps.Users, logger)
	uploadH := handlers.NewUploadHandler(deps.Importer, logger)
	auditH := handlers.NewAuditLogHandler(deps.Audit, logger)

	audited := func(action models.AuditAction, entityType string, fn handlers.MutationFunc) http.HandlerFunc {
		return handlers.Audited(deps.Audit, logger, action, entityType, fn)
	}
	admin := deps.AuthMiddleware.RequireRole(models.RoleAdmin)

	// Health check endpoints
	r.Get("/healthz", health.HandleHealth)
	r.Get("/readyz", health.HandleReadiness)

	// Imported files
	r.Handle(importer.PublicPrefix+"*", http.StripPrefix(importer.PublicPrefix, fileServer(deps.Importer.Dir())))

	r.Route("/api", func(r chi.Router) {
		r.Use(deps.AuthMiddleware.Authenticate)

		r.Route("/auth", func(r chi.Router) {
			r.With(deps.LoginThrottle.Middleware).Post("/login", authH.HandleLogin)
			r.Get("/me", authH.HandleMe)
		})

		r.Route("/contacts", func(r chi.Router) {
			r.Get("/", contactH.HandleList)
			r.Get("/{id}", contactH.HandleGet)

			r.Group(func(r chi.Router) {
				r.Use(admin)
				r.Post("/", audited(models.AuditActionCreate, models.EntityContact, contactH.Create))
				r.Put("/{id}", audited(models.AuditActionUpdate, models.EntityContact, contactH.Update))
				r.Patch("/{id}", audited(models.AuditActionUpdate, models.EntityContact, contactH.Update))
				r.Delete("/{id}", audited(models.AuditActionDelete, models.EntityContact, contactH.Delete))
			})
		})

		r.With(admin, chimw.RequestSize(deps.Config.Storage.MaxUploadBytes)).
			Post("/upload", audited(models.AuditActionImport, models.EntityFile, uploadH.Upload))

		r.Route("/licenses", func(r chi.Router) {
			r.Use(admin)
			r.Get("/", licenseH.HandleList)
			r.Post("/", audited(models.AuditActionCreate, models.EntityLicense, licenseH.Create))
		})

		r.Route("/users", func(r chi.Router) {
			r.Use(admin)
			r.Get("/", userH.HandleList)
			r.Post("/", audited(models.AuditActionCreate, models.EntityUser, userH.Create))
			r.Put("/{id}", audited(models.AuditActionUpdate, models.EntityUser, userH.Update))
			r.Patch("/{id}", audited(models.AuditActionUpdate, models.EntityUser, userH.Update))
		})

		r.With(admin).Get("/audit-logs", auditH.HandleList)
	})

	r.NotFound(func(w http.ResponseWriter, r *http.Request) {
		_ = utils.WriteNotFound(w, "endpoint not found")
	})
	r.MethodNotAllowed(func(w http.ResponseWriter, r *http.Request) {
		_ = utils.WriteError(w, http.StatusMethodNotAllowed, "method_not_allowed", "method not allowed", nil)
	})

	return r
}

// fileServer serves files from dir without directory listings
func fileServer(dir string) http.Handler {
	fs := http.FileServer(http.Dir(dir))
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path == "" || strings.HasSuffix(r.URL.Path, "/") {
			_ = utils.WriteNotFound(w, "")
			return
		}
		fs.ServeHTTP(w, r)
	})
}
