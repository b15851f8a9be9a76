package handlers

import (
	"encoding/json"
	"errors"
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"
	"gorm.io/gorm"

	"contentgen/internal/auth"
	"contentgen/internal/models"
)

func ListUsers(db *gorm.DB, lg *zap.SugaredLogger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var users []models.User
		if err := db.Order("created_at desc").Find(&users).Error; err != nil {
			respondError(w, http.StatusInternalServerError, "Server error")
			return
		}
		respondJSON(w, http.StatusOK, users)
	}
}

// CreateUser provisions an account directly: pre-approved, with an
// admin-assigned role.
func CreateUser(db *gorm.DB, lg *zap.SugaredLogger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req struct {
			Name     string `json:"name"`
			Email    string `json:"email"`
			Password string `json:"password"`
			Role     string `json:"role"`
		}
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			respondError(w, http.StatusBadRequest, err.Error())
			return
		}
		req.Email = strings.TrimSpace(strings.ToLower(req.Email))
		if req.Name == "" || req.Email == "" || req.Password == "" {
			respondError(w, http.StatusBadRequest, "Missing fields")
			return
		}
		if req.Role == "" {
			req.Role = models.RoleUser
		}
		if req.Role != models.RoleUser && req.Role != models.RoleSuperAdmin {
			respondError(w, http.StatusBadRequest, "Invalid role")
			return
		}
		var existing models.User
		err := db.First(&existing, "email = ?", req.Email).Error
		if err == nil {
			respondError(w, http.StatusBadRequest, "Email already exists")
			return
		}
		if !errors.Is(err, gorm.ErrRecordNotFound) {
			respondError(w, http.StatusInternalServerError, "Server error")
			return
		}
		hash, err := auth.HashPassword(req.Password)
		if err != nil {
			respondError(w, http.StatusInternalServerError, "Server error")
			return
		}
		u := models.User{Name: req.Name, Email: req.Email, PasswordHash: hash, Role: req.Role, Approved: true}
		if err := db.Create(&u).Error; err != nil {
			lg.Errorw("admin create user failed", "error", err)
			respondError(w, http.StatusInternalServerError, "Server error")
			return
		}
		auditUserAction(db, auth.Subject(r.Context()), u.ID, "USER_CREATE")
		respondJSON(w, http.StatusCreated, u)
	}
}

func DeleteUser(db *gorm.DB, lg *zap.SugaredLogger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id := chi.URLParam(r, "id")
		res := db.Delete(&models.User{}, "id = ?", id)
		if res.Error != nil {
			respondError(w, http.StatusInternalServerError, "Server error")
			return
		}
		if res.RowsAffected == 0 {
			respondError(w, http.StatusNotFound, "User not found")
			return
		}
		auditUserAction(db, auth.Subject(r.Context()), id, "USER_DELETE")
		respondJSON(w, http.StatusOK, map[string]any{"message": "User deleted"})
	}
}

func ApproveUser(db *gorm.DB, lg *zap.SugaredLogger) http.HandlerFunc {
	return setUserFlag(db, lg, "approved", true, "USER_APPROVE", "User approved")
}

func BlockUser(db *gorm.DB, lg *zap.SugaredLogger) http.HandlerFunc {
	return setUserFlag(db, lg, "blocked", true, "USER_BLOCK", "User blocked")
}

func UnblockUser(db *gorm.DB, lg *zap.SugaredLogger) http.HandlerFunc {
	return setUserFlag(db, lg, "blocked", false, "USER_UNBLOCK", "User unblocked")
}

// setUserFlag is the shared shape of the moderation routes: flip one boolean
// on the target user and return the updated record.
func setUserFlag(db *gorm.DB, lg *zap.SugaredLogger, column string, value bool, action, message string) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id := chi.URLParam(r, "id")
		var u models.User
		err := db.First(&u, "id = ?", id).Error
		if errors.Is(err, gorm.ErrRecordNotFound) {
			respondError(w, http.StatusNotFound, "User not found")
			return
		}
		if err != nil {
			respondError(w, http.StatusInternalServerError, "Server error")
			return
		}
		if err := db.Model(&u).Update(column, value).Error; err != nil {
			respondError(w, http.StatusInternalServerError, "Server error")
			return
		}
		switch column {
		case "approved":
			u.Approved = value
		case "blocked":
			u.Blocked = value
		}
		auditUserAction(db, auth.Subject(r.Context()), u.ID, action)
		respondJSON(w, http.StatusOK, map[string]any{"message": message, "user": u})
	}
}

func auditUserAction(db *gorm.DB, actorID, targetID, action string) {
	md, _ := json.Marshal(map[string]any{"target_user_id": targetID})
	entry := models.AuditLog{Action: action, Metadata: models.JSONB(md)}
	if actorID != "" {
		entry.UserID = &actorID
	}
	_ = db.Create(&entry).Error
}
