package httpserver

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"go.uber.org/zap"
	"gorm.io/gorm"

	"contentgen/internal/auth"
	"contentgen/internal/config"
	"contentgen/internal/httpserver/handlers"
	"contentgen/internal/models"
)

// NewRouter wires every route. Two login surfaces exist for historical
// frontend reasons; both run the same handler, differing only in token TTL.
func NewRouter(db *gorm.DB, cfg *config.Config, ai handlers.TextGenerator, mail handlers.ResetMailer, lg *zap.SugaredLogger) http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.RequestID, middleware.RealIP, middleware.Recoverer, middleware.Logger)
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   cfg.AllowedOrigins,
		AllowedMethods:   []string{"GET", "HEAD", "PUT", "PATCH", "POST", "DELETE"},
		AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type"},
		AllowCredentials: true,
		MaxAge:           300,
	}))

	r.Get("/", func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte("content-generator API running"))
	})

	r.Post("/api/auth/register", handlers.Register(db, lg))
	r.Post("/api/auth/login", handlers.Login(db, cfg.JWTSecret, 24*time.Hour, lg))
	r.Post("/api/auth/approve", handlers.Approve(db, lg))
	r.Post("/api/auth/forgot-password", handlers.ForgotPassword(db, mail, cfg.AppBaseURL, lg))
	r.Post("/api/auth/reset-password/{token}", handlers.ResetPassword(db, lg))

	r.Post("/api/users/register", handlers.Register(db, lg))
	r.Post("/api/users/login", handlers.Login(db, cfg.JWTSecret, time.Hour, lg))

	r.Group(func(protected chi.Router) {
		protected.Use(auth.JWTAuth(cfg.JWTSecret))

		protected.Post("/api/auth/change-password", handlers.ChangePassword(db, lg))

		protected.Post("/api/clients", handlers.CreateClient(db, lg))
		protected.Get("/api/clients", handlers.ListClients(db, lg))
		protected.Put("/api/clients/{id}", handlers.UpdateClient(db, lg))
		protected.Delete("/api/clients/{id}", handlers.DeleteClient(db, lg))

		protected.Post("/api/content/generate", handlers.GenerateContent(db, ai, lg))
		protected.Post("/api/content/save", handlers.SaveContent(db, lg))
		protected.Post("/api/content/regenerate", handlers.RegenerateContent(db, ai, lg))
		protected.Post("/api/content/track-usage", handlers.TrackUsage(db, lg))

		protected.Group(func(admin chi.Router) {
			admin.Use(auth.RequireRole(models.RoleSuperAdmin))
			admin.Get("/api/content/logs", handlers.ContentLogs(db, lg))
			admin.Get("/api/content/usage", handlers.Usage(db, lg))
			admin.Get("/api/users", handlers.ListUsers(db, lg))
			admin.Post("/api/users", handlers.CreateUser(db, lg))
			admin.Delete("/api/users/{id}", handlers.DeleteUser(db, lg))
			admin.Post("/api/users/{id}/approve", handlers.ApproveUser(db, lg))
			admin.Post("/api/users/{id}/block", handlers.BlockUser(db, lg))
			admin.Post("/api/users/{id}/unblock", handlers.UnblockUser(db, lg))
		})
	})

	r.Get("/healthz", func(w http.ResponseWriter, r *http.Request) { w.WriteHeader(http.StatusOK) })
	return r
}
