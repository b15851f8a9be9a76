package main

import (
	"net/http"

	"github.com/joho/godotenv"
	"go.uber.org/zap"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"

	"contentgen/internal/auth"
	"contentgen/internal/config"
	"contentgen/internal/genai"
	"contentgen/internal/httpserver"
	"contentgen/internal/logger"
	"contentgen/internal/mailer"
	"contentgen/internal/models"
)

func main() {
	_ = godotenv.Load()
	lg := logger.New()
	defer lg.Sync()

	cfg, err := config.Load()
	if err != nil {
		lg.Fatalw("config load failed", "error", err)
	}
	db, err := gorm.Open(postgres.Open(cfg.DatabaseURL), &gorm.Config{})
	if err != nil {
		lg.Fatalw("db connect failed", "error", err)
	}
	if err := db.AutoMigrate(&models.User{}, &models.ClientProfile{}, &models.Content{}, &models.AuditLog{}); err != nil {
		lg.Fatalw("automigrate failed", "error", err)
	}
	// One aggregate row per user per calendar month; normal content rows
	// carry a NULL usage_month and stay outside the index.
	if err := db.Exec(`CREATE UNIQUE INDEX IF NOT EXISTS idx_contents_usage_bucket ON contents (user_id, usage_month) WHERE usage_month IS NOT NULL`).Error; err != nil {
		lg.Fatalw("usage index failed", "error", err)
	}
	seedSuperAdmin(db, cfg, lg)

	ai := genai.New(cfg.OpenAI)
	mail := mailer.New(cfg.SMTP)
	router := httpserver.NewRouter(db, cfg, ai, mail, lg)

	lg.Infow("listening", "port", cfg.HTTPPort)
	if err := http.ListenAndServe(":"+cfg.HTTPPort, router); err != nil {
		lg.Fatalw("server stopped", "error", err)
	}
}

func seedSuperAdmin(db *gorm.DB, cfg *config.Config, lg *zap.SugaredLogger) {
	var count int64
	db.Model(&models.User{}).Where("email = ?", cfg.Seed.AdminEmail).Count(&count)
	if count > 0 {
		return
	}
	hash, err := auth.HashPassword(cfg.Seed.AdminPassword)
	if err != nil {
		lg.Fatalw("seed hash failed", "error", err)
	}
	u := models.User{
		Name:         "Super Admin",
		Email:        cfg.Seed.AdminEmail,
		PasswordHash: hash,
		Role:         models.RoleSuperAdmin,
		Approved:     true,
	}
	if err := db.Create(&u).Error; err != nil {
		lg.Fatalw("seed super admin failed", "error", err)
	}
	lg.Infow("seeded super admin", "email", cfg.Seed.AdminEmail)
}
