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

// ResetMailer delivers the forgot-password email. Satisfied by
// mailer.Mailer; faked in tests.
type ResetMailer interface {
	SendPasswordReset(to, name, link string) error
}

func Register(db *gorm.DB, lg *zap.SugaredLogger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req struct {
			Name     string `json:"name"`
			Email    string `json:"email"`
			Password string `json:"password"`
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
		u := models.User{Name: req.Name, Email: req.Email, PasswordHash: hash, Role: models.RoleUser}
		if err := db.Create(&u).Error; err != nil {
			lg.Errorw("register create failed", "error", err)
			respondError(w, http.StatusInternalServerError, "Server error")
			return
		}
		respondJSON(w, http.StatusCreated, map[string]any{"message": "Registered. Awaiting admin approval."})
	}
}

// Login checks credentials and the approval/block gate, then issues a signed
// bearer token. The TTL depends on which login surface is mounted.
func Login(db *gorm.DB, secret string, ttl time.Duration, lg *zap.SugaredLogger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req struct {
			Email    string `json:"email"`
			Password string `json:"password"`
		}
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			respondError(w, http.StatusBadRequest, err.Error())
			return
		}
		var u models.User
		err := db.First(&u, "email = ?", strings.TrimSpace(strings.ToLower(req.Email))).Error
		if errors.Is(err, gorm.ErrRecordNotFound) {
			respondError(w, http.StatusBadRequest, "Invalid credentials")
			return
		}
		if err != nil {
			respondError(w, http.StatusInternalServerError, "Server error")
			return
		}
		if !u.Approved {
			respondError(w, http.StatusForbidden, "Awaiting admin approval")
			return
		}
		if u.Blocked {
			respondError(w, http.StatusForbidden, "Your access has been revoked. Please contact admin.")
			return
		}
		if err := auth.CheckPassword(u.PasswordHash, req.Password); err != nil {
			respondError(w, http.StatusBadRequest, "Invalid credentials")
			return
		}
		tok, err := auth.Sign(secret, u.ID, u.Role, ttl)
		if err != nil {
			respondError(w, http.StatusInternalServerError, "Server error")
			return
		}
		respondJSON(w, http.StatusOK, map[string]any{
			"token": tok,
			"user":  map[string]any{"id": u.ID, "name": u.Name, "role": u.Role},
		})
	}
}

// Approve flips the approved flag for the user named in the body.
// TODO: decide which role may call this route; as mounted it performs no
// role check, so any caller can approve any user id. The moderation route
// under /api/users/{id}/approve is the superadmin-gated path.
func Approve(db *gorm.DB, lg *zap.SugaredLogger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req struct {
			UserID string `json:"userId"`
		}
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			respondError(w, http.StatusBadRequest, err.Error())
			return
		}
		if req.UserID == "" {
			respondError(w, http.StatusBadRequest, "Missing fields")
			return
		}
		res := db.Model(&models.User{}).Where("id = ?", req.UserID).Update("approved", true)
		if res.Error != nil {
			respondError(w, http.StatusInternalServerError, "Server error")
			return
		}
		if res.RowsAffected == 0 {
			respondError(w, http.StatusNotFound, "User not found")
			return
		}
		respondJSON(w, http.StatusOK, map[string]any{"message": "User approved"})
	}
}

func ChangePassword(db *gorm.DB, lg *zap.SugaredLogger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req struct {
			OldPassword string `json:"oldPassword"`
			NewPassword string `json:"newPassword"`
		}
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			respondError(w, http.StatusBadRequest, err.Error())
			return
		}
		if req.OldPassword == "" || req.NewPassword == "" {
			respondError(w, http.StatusBadRequest, "Missing fields")
			return
		}
		var u models.User
		err := db.First(&u, "id = ?", auth.Subject(r.Context())).Error
		if errors.Is(err, gorm.ErrRecordNotFound) {
			respondError(w, http.StatusNotFound, "User not found")
			return
		}
		if err != nil {
			respondError(w, http.StatusInternalServerError, "Server error")
			return
		}
		if err := auth.CheckPassword(u.PasswordHash, req.OldPassword); err != nil {
			respondError(w, http.StatusBadRequest, "Current password is incorrect")
			return
		}
		hash, err := auth.HashPassword(req.NewPassword)
		if err != nil {
			respondError(w, http.StatusInternalServerError, "Server error")
			return
		}
		if err := db.Model(&u).Update("password_hash", hash).Error; err != nil {
			respondError(w, http.StatusInternalServerError, "Server error")
			return
		}
		respondJSON(w, http.StatusOK, map[string]any{"message": "Password changed successfully"})
	}
}

// ForgotPassword stores a fresh single-use reset token (1h expiry) and
// emails a link embedding it.
func ForgotPassword(db *gorm.DB, m ResetMailer, appBaseURL string, lg *zap.SugaredLogger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req struct {
			Email string `json:"email"`
		}
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			respondError(w, http.StatusBadRequest, err.Error())
			return
		}
		var u models.User
		err := db.First(&u, "email = ?", strings.TrimSpace(strings.ToLower(req.Email))).Error
		if errors.Is(err, gorm.ErrRecordNotFound) {
			respondError(w, http.StatusNotFound, "User not found")
			return
		}
		if err != nil {
			respondError(w, http.StatusInternalServerError, "Server error")
			return
		}
		token, err := auth.NewResetToken()
		if err != nil {
			respondError(w, http.StatusInternalServerError, "Server error")
			return
		}
		expiry := time.Now().Add(auth.ResetTokenTTL)
		updates := map[string]any{"reset_token": token, "reset_token_expiry": expiry}
		if err := db.Model(&u).Updates(updates).Error; err != nil {
			respondError(w, http.StatusInternalServerError, "Server error")
			return
		}
		link := strings.TrimRight(appBaseURL, "/") + "/reset-password/" + token
		if err := m.SendPasswordReset(u.Email, u.Name, link); err != nil {
			lg.Errorw("reset email failed", "email", u.Email, "error", err)
			respondError(w, http.StatusInternalServerError, "Email error: "+err.Error())
			return
		}
		respondJSON(w, http.StatusOK, map[string]any{"message": "Password reset email sent"})
	}
}

// ResetPassword consumes a reset token: it must match a stored token whose
// expiry is still in the future, and it is cleared on success.
func ResetPassword(db *gorm.DB, lg *zap.SugaredLogger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		token := chi.URLParam(r, "token")
		var req struct {
			NewPassword string `json:"newPassword"`
		}
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			respondError(w, http.StatusBadRequest, err.Error())
			return
		}
		if token == "" || req.NewPassword == "" {
			respondError(w, http.StatusBadRequest, "Missing fields")
			return
		}
		var u models.User
		err := db.First(&u, "reset_token = ? AND reset_token_expiry > ?", token, time.Now()).Error
		if errors.Is(err, gorm.ErrRecordNotFound) {
			respondError(w, http.StatusBadRequest, "Invalid or expired token")
			return
		}
		if err != nil {
			respondError(w, http.StatusInternalServerError, "Server error")
			return
		}
		hash, err := auth.HashPassword(req.NewPassword)
		if err != nil {
			respondError(w, http.StatusInternalServerError, "Server error")
			return
		}
		updates := map[string]any{"password_hash": hash, "reset_token": nil, "reset_token_expiry": nil}
		if err := db.Model(&u).Updates(updates).Error; err != nil {
			respondError(w, http.StatusInternalServerError, "Server error")
			return
		}
		respondJSON(w, http.StatusOK, map[string]any{"message": "Password reset successfully"})
	}
}
