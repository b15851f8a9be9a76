package handlers

import (
	"net/http"

	"go.uber.org/zap"
	"gorm.io/gorm"

	"contentgen/internal/models"
)

// ContentLogs returns every content record with owning user and client
// identity resolved. Superadmin only (enforced by the router).
func ContentLogs(db *gorm.DB, lg *zap.SugaredLogger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var logs []models.Content
		if err := db.Preload("Client").Preload("User").Order("created_at desc").Find(&logs).Error; err != nil {
			respondError(w, http.StatusInternalServerError, "Server error")
			return
		}
		respondJSON(w, http.StatusOK, logs)
	}
}

type dailyUsageRow struct {
	Date          string `json:"date"`
	Generations   int    `json:"generations"`
	Regenerations int    `json:"regenerations"`
}

type userUsageRow struct {
	User               string `json:"user"`
	Email              string `json:"email"`
	TotalGenerations   int    `json:"totalGenerations"`
	TotalRegenerations int    `json:"totalRegenerations"`
	Month              int    `json:"month"`
	Year               int    `json:"year"`
}

const dailyUsageSQL = `SELECT to_char(c.created_at, 'YYYY-MM-DD') AS date, ` +
	`COALESCE(SUM(c.generations), 0)::int AS generations, ` +
	`COALESCE(SUM(c.regenerations), 0)::int AS regenerations ` +
	`FROM contents c ` +
	`WHERE c.created_at >= date_trunc('month', now()) ` +
	`AND c.created_at < date_trunc('month', now()) + interval '1 month' ` +
	`GROUP BY 1 ORDER BY 1 ASC`

const userUsageSQL = `SELECT u.name AS "user", u.email AS email, ` +
	`EXTRACT(MONTH FROM c.created_at)::int AS month, ` +
	`EXTRACT(YEAR FROM c.created_at)::int AS year, ` +
	`COALESCE(SUM(c.generations), 0)::int AS total_generations, ` +
	`COALESCE(SUM(c.regenerations), 0)::int AS total_regenerations ` +
	`FROM contents c JOIN users u ON u.id = c.user_id ` +
	`GROUP BY u.name, u.email, month, year ` +
	`ORDER BY year DESC, month DESC, u.name ASC`

// Usage aggregates content records. ?by=day buckets the current month per
// day; the default buckets per (user, month, year) across all time.
func Usage(db *gorm.DB, lg *zap.SugaredLogger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Query().Get("by") == "day" {
			rows := []dailyUsageRow{}
			if err := db.Raw(dailyUsageSQL).Scan(&rows).Error; err != nil {
				respondError(w, http.StatusInternalServerError, "Server error")
				return
			}
			respondJSON(w, http.StatusOK, rows)
			return
		}
		rows := []userUsageRow{}
		if err := db.Raw(userUsageSQL).Scan(&rows).Error; err != nil {
			respondError(w, http.StatusInternalServerError, "Server error")
			return
		}
		respondJSON(w, http.StatusOK, rows)
	}
}
