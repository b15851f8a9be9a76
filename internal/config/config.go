package config

import (
	"errors"
	"os"
	"strconv"
	"strings"
)

type Config struct {
	HTTPPort       string
	DatabaseURL    string
	JWTSecret      string
	AppBaseURL     string
	AllowedOrigins []string
	OpenAI         OpenAIConfig
	SMTP           SMTPConfig
	Seed           SeedConfig
}

type OpenAIConfig struct {
	APIKey  string
	BaseURL string
	Model   string
}

type SMTPConfig struct {
	Host     string
	Port     int
	Username string
	Password string
	From     string
}

// SeedConfig holds the bootstrap super-admin credentials created on startup
// when no matching account exists.
type SeedConfig struct {
	AdminEmail    string
	AdminPassword string
}

// Load reads configuration from the environment. Call godotenv.Load first if
// a .env file should be honored.
func Load() (*Config, error) {
	cfg := &Config{
		HTTPPort:       getenv("HTTP_PORT", "5050"),
		DatabaseURL:    os.Getenv("DATABASE_URL"),
		JWTSecret:      os.Getenv("JWT_SECRET"),
		AppBaseURL:     getenv("APP_BASE_URL", "http://localhost:5173"),
		AllowedOrigins: splitList(getenv("ALLOWED_ORIGINS", "http://localhost:5173")),
		OpenAI: OpenAIConfig{
			APIKey:  os.Getenv("OPENAI_API_KEY"),
			BaseURL: getenv("OPENAI_BASE_URL", "https://api.openai.com/v1"),
			Model:   getenv("OPENAI_MODEL", "gpt-3.5-turbo"),
		},
		SMTP: SMTPConfig{
			Host:     os.Getenv("SMTP_HOST"),
			Port:     getenvInt("SMTP_PORT", 587),
			Username: os.Getenv("SMTP_USER"),
			Password: os.Getenv("SMTP_PASSWORD"),
			From:     getenv("SMTP_FROM", "no-reply@localhost"),
		},
		Seed: SeedConfig{
			AdminEmail:    getenv("SUPERADMIN_EMAIL", "admin@test.com"),
			AdminPassword: getenv("SUPERADMIN_PASSWORD", "admin"),
		},
	}
	if cfg.DatabaseURL == "" {
		return nil, errors.New("DATABASE_URL is empty")
	}
	if cfg.JWTSecret == "" {
		return nil, errors.New("JWT_SECRET is empty")
	}
	return cfg, nil
}

func getenv(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}

func getenvInt(key string, def int) int {
	if v := os.Getenv(key); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			return n
		}
	}
	return def
}

func splitList(s string) []string {
	parts := strings.Split(s, ",")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		if p = strings.TrimSpace(p); p != "" {
			out = append(out, p)
		}
	}
	return out
}
