package handlers

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"
	"gorm.io/gorm"

	"contentgen/internal/auth"
	"contentgen/internal/genai"
	"contentgen/internal/models"
)

// TextGenerator is the outbound text-generation API. Satisfied by
// genai.Client; faked in tests.
type TextGenerator interface {
	Complete(ctx context.Context, prompt string) (string, error)
}

type generateReq struct {
	ClientID string   `json:"clientId"`
	Title    string   `json:"title"`
	Keywords []string `json:"keywords"`
	Length   int      `json:"length"`
	Type     string   `json:"type"`
	Headings int      `json:"headings"`
}

func validContentType(t string) bool {
	return t == models.ContentTypeBlog || t == models.ContentTypeWebsite
}

// GenerateContent composes a prompt from the client profile plus the request
// parameters and returns the generated text without persisting it.
func GenerateContent(db *gorm.DB, ai TextGenerator, lg *zap.SugaredLogger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req generateReq
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			respondError(w, http.StatusBadRequest, err.Error())
			return
		}
		if req.ClientID == "" || req.Title == "" {
			respondError(w, http.StatusBadRequest, "clientId and title required")
			return
		}
		if req.Type == "" {
			req.Type = models.ContentTypeBlog
		}
		if !validContentType(req.Type) {
			respondError(w, http.StatusBadRequest, "Invalid content type")
			return
		}
		var client models.ClientProfile
		err := db.First(&client, "id = ?", req.ClientID).Error
		if errors.Is(err, gorm.ErrRecordNotFound) {
			respondError(w, http.StatusNotFound, "Client not found")
			return
		}
		if err != nil {
			respondError(w, http.StatusInternalServerError, "Server error")
			return
		}
		prompt := genai.BuildPrompt(genai.PromptParams{
			ClientName:    client.Name,
			ClientWebsite: client.Website,
			ClientNature:  client.Prompt,
			Title:         req.Title,
			Keywords:      req.Keywords,
			Length:        req.Length,
			Type:          req.Type,
			Headings:      req.Headings,
		})
		text, err := ai.Complete(r.Context(), prompt)
		if err != nil {
			lg.Errorw("generation failed", "client_id", client.ID, "error", err)
			respondError(w, http.StatusInternalServerError, "Generation error: "+err.Error())
			return
		}
		uid := auth.Subject(r.Context())
		auditContentAction(db, uid, &client.ID, "CONTENT_GENERATE", map[string]any{"title": req.Title, "type": req.Type})
		respondJSON(w, http.StatusOK, map[string]any{"generatedContent": text})
	}
}

// SaveContent persists a generated record. Counters always start at
// generations=1, regenerations=0.
func SaveContent(db *gorm.DB, lg *zap.SugaredLogger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req struct {
			generateReq
			GeneratedContent string `json:"generatedContent"`
		}
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			respondError(w, http.StatusBadRequest, err.Error())
			return
		}
		if req.ClientID == "" || req.Title == "" {
			respondError(w, http.StatusBadRequest, "clientId and title required")
			return
		}
		if req.Type == "" {
			req.Type = models.ContentTypeBlog
		}
		if !validContentType(req.Type) {
			respondError(w, http.StatusBadRequest, "Invalid content type")
			return
		}
		keywords := models.StringList(req.Keywords)
		if keywords == nil {
			keywords = models.StringList{}
		}
		c := models.Content{
			UserID:           auth.Subject(r.Context()),
			ClientID:         &req.ClientID,
			Title:            req.Title,
			Keywords:         keywords,
			Length:           req.Length,
			Type:             req.Type,
			Headings:         req.Headings,
			GeneratedContent: req.GeneratedContent,
			Generations:      1,
			Regenerations:    0,
		}
		if err := db.Create(&c).Error; err != nil {
			lg.Errorw("content save failed", "error", err)
			respondError(w, http.StatusInternalServerError, "Server error")
			return
		}
		respondJSON(w, http.StatusCreated, c)
	}
}

// RegenerateContent rebuilds the stored record's prompt, replaces the text
// in place and bumps the regeneration counter by one.
func RegenerateContent(db *gorm.DB, ai TextGenerator, lg *zap.SugaredLogger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req struct {
			ContentID string `json:"contentId"`
		}
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			respondError(w, http.StatusBadRequest, err.Error())
			return
		}
		if req.ContentID == "" {
			respondError(w, http.StatusBadRequest, "contentId required")
			return
		}
		var content models.Content
		err := db.First(&content, "id = ?", req.ContentID).Error
		if errors.Is(err, gorm.ErrRecordNotFound) {
			respondError(w, http.StatusNotFound, "Content not found")
			return
		}
		if err != nil {
			respondError(w, http.StatusInternalServerError, "Server error")
			return
		}
		if content.ClientID == nil {
			respondError(w, http.StatusNotFound, "Client not found")
			return
		}
		var client models.ClientProfile
		err = db.First(&client, "id = ?", *content.ClientID).Error
		if errors.Is(err, gorm.ErrRecordNotFound) {
			respondError(w, http.StatusNotFound, "Client not found")
			return
		}
		if err != nil {
			respondError(w, http.StatusInternalServerError, "Server error")
			return
		}
		prompt := genai.BuildPrompt(genai.PromptParams{
			ClientName:    client.Name,
			ClientWebsite: client.Website,
			ClientNature:  client.Prompt,
			Title:         content.Title,
			Keywords:      content.Keywords,
			Length:        content.Length,
			Type:          content.Type,
			Headings:      content.Headings,
		})
		text, err := ai.Complete(r.Context(), prompt)
		if err != nil {
			lg.Errorw("regeneration failed", "content_id", content.ID, "error", err)
			respondError(w, http.StatusInternalServerError, "Generation error: "+err.Error())
			return
		}
		updates := map[string]any{
			"generated_content": text,
			"regenerations":     gorm.Expr("regenerations + ?", 1),
		}
		if err := db.Model(&content).Updates(updates).Error; err != nil {
			respondError(w, http.StatusInternalServerError, "Server error")
			return
		}
		uid := auth.Subject(r.Context())
		auditContentAction(db, uid, content.ClientID, "CONTENT_REGENERATE", map[string]any{"content_id": content.ID})
		respondJSON(w, http.StatusOK, map[string]any{"generatedContent": text})
	}
}

// trackUsageUpsert bumps the caller's monthly aggregate row, creating it on
// first use. The conflict target matches the partial unique index on
// (user_id, usage_month), so concurrent calls in the same month serialize on
// a single row instead of creating duplicates.
const trackUsageUpsert = `INSERT INTO contents ` +
	`(id, user_id, client_id, title, keywords, length, type, headings, generated_content, generations, regenerations, usage_month, created_at) ` +
	`VALUES (?, ?, NULL, '', '[]', 0, 'blog', 0, '', ?, ?, ?, ?) ` +
	`ON CONFLICT (user_id, usage_month) WHERE usage_month IS NOT NULL ` +
	`DO UPDATE SET generations = contents.generations + EXCLUDED.generations, ` +
	`regenerations = contents.regenerations + EXCLUDED.regenerations`

// TrackUsage increments the caller's monthly generation or regeneration
// tally.
func TrackUsage(db *gorm.DB, lg *zap.SugaredLogger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req struct {
			Type string `json:"type"`
		}
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			respondError(w, http.StatusBadRequest, err.Error())
			return
		}
		var genInc, regenInc int
		switch req.Type {
		case "generation":
			genInc = 1
		case "regeneration":
			regenInc = 1
		default:
			respondError(w, http.StatusBadRequest, "Invalid usage type")
			return
		}
		uid := auth.Subject(r.Context())
		now := time.Now()
		bucket := now.Format("2006-01")
		err := db.Exec(trackUsageUpsert, uuid.NewString(), uid, genInc, regenInc, bucket, now).Error
		if err != nil {
			lg.Errorw("usage upsert failed", "user_id", uid, "error", err)
			respondError(w, http.StatusInternalServerError, "Server error")
			return
		}
		respondJSON(w, http.StatusOK, map[string]any{"success": true})
	}
}

func auditContentAction(db *gorm.DB, actorID string, clientID *string, action string, meta map[string]any) {
	md, _ := json.Marshal(meta)
	entry := models.AuditLog{ClientID: clientID, Action: action, Metadata: models.JSONB(md)}
	if actorID != "" {
		entry.UserID = &actorID
	}
	_ = db.Create(&entry).Error
}
