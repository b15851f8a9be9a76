package handlers

import (
	"encoding/json"
	"errors"
	"net/http"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"
	"gorm.io/gorm"

	"contentgen/internal/auth"
	"contentgen/internal/models"
)

type clientProfileReq struct {
	Name    string `json:"name"`
	Website string `json:"website"`
	Prompt  string `json:"prompt"`
}

func CreateClient(db *gorm.DB, lg *zap.SugaredLogger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req clientProfileReq
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			respondError(w, http.StatusBadRequest, err.Error())
			return
		}
		req.Name = strings.TrimSpace(req.Name)
		req.Website = strings.TrimSpace(req.Website)
		if req.Name == "" || req.Website == "" {
			respondError(w, http.StatusBadRequest, "name and website required")
			return
		}
		uid := auth.Subject(r.Context())
		now := time.Now()
		c := models.ClientProfile{
			Name:        req.Name,
			Website:     req.Website,
			Prompt:      req.Prompt,
			CreatedByID: &uid,
			CreatedAt:   now,
			UpdatedByID: &uid,
			UpdatedAt:   now,
		}
		if err := db.Create(&c).Error; err != nil {
			lg.Errorw("client create failed", "error", err)
			respondError(w, http.StatusInternalServerError, "Server error")
			return
		}
		respondJSON(w, http.StatusCreated, c)
	}
}

// ListClients returns all profiles with creator/updater identity resolved.
func ListClients(db *gorm.DB, lg *zap.SugaredLogger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var cs []models.ClientProfile
		if err := db.Preload("CreatedBy").Preload("UpdatedBy").Order("created_at desc").Find(&cs).Error; err != nil {
			respondError(w, http.StatusInternalServerError, "Server error")
			return
		}
		respondJSON(w, http.StatusOK, cs)
	}
}

func UpdateClient(db *gorm.DB, lg *zap.SugaredLogger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id := chi.URLParam(r, "id")
		var req clientProfileReq
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			respondError(w, http.StatusBadRequest, err.Error())
			return
		}
		var c models.ClientProfile
		err := db.First(&c, "id = ?", id).Error
		if errors.Is(err, gorm.ErrRecordNotFound) {
			respondError(w, http.StatusNotFound, "Client not found")
			return
		}
		if err != nil {
			respondError(w, http.StatusInternalServerError, "Server error")
			return
		}
		uid := auth.Subject(r.Context())
		c.Name = req.Name
		c.Website = req.Website
		c.Prompt = req.Prompt
		c.UpdatedByID = &uid
		c.UpdatedAt = time.Now()
		if err := db.Save(&c).Error; err != nil {
			respondError(w, http.StatusInternalServerError, "Server error")
			return
		}
		respondJSON(w, http.StatusOK, c)
	}
}

func DeleteClient(db *gorm.DB, lg *zap.SugaredLogger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id := chi.URLParam(r, "id")
		res := db.Delete(&models.ClientProfile{}, "id = ?", id)
		if res.Error != nil {
			respondError(w, http.StatusInternalServerError, "Server error")
			return
		}
		if res.RowsAffected == 0 {
			respondError(w, http.StatusNotFound, "Client not found")
			return
		}
		respondJSON(w, http.StatusOK, map[string]any{"message": "Deleted"})
	}
}
