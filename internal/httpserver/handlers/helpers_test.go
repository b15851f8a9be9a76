package handlers

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"

	"contentgen/internal/auth"
	"contentgen/internal/models"
)

// newTestDB opens a GORM handle over a sqlmock connection. Regexp query
// matching keeps expectations readable; the default transaction wrapper is
// skipped so single writes do not need Begin/Commit expectations.
func newTestDB(t *testing.T) (*gorm.DB, sqlmock.Sqlmock) {
	t.Helper()
	sqlDB, mock, err := sqlmock.New(sqlmock.QueryMatcherOption(sqlmock.QueryMatcherRegexp))
	require.NoError(t, err)
	t.Cleanup(func() { _ = sqlDB.Close() })

	db, err := gorm.Open(postgres.New(postgres.Config{Conn: sqlDB, PreferSimpleProtocol: true}), &gorm.Config{
		SkipDefaultTransaction: true,
		Logger:                 gormlogger.Default.LogMode(gormlogger.Silent),
	})
	require.NoError(t, err)
	return db, mock
}

func jsonBody(t *testing.T, v any) io.Reader {
	t.Helper()
	b, err := json.Marshal(v)
	require.NoError(t, err)
	return bytes.NewReader(b)
}

func authedRequest(method, target string, body io.Reader, uid, role string) *http.Request {
	req := httptest.NewRequest(method, target, body)
	return req.WithContext(auth.WithClaims(req.Context(), auth.Claims{Subject: uid, Role: role}))
}

func decodeBody(t *testing.T, rec *httptest.ResponseRecorder) map[string]any {
	t.Helper()
	var out map[string]any
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &out))
	return out
}

var userColumns = []string{
	"id", "name", "email", "password_hash", "role",
	"approved", "blocked", "reset_token", "reset_token_expiry", "created_at",
}

// ptrVal flattens optional fields into plain driver values for sqlmock rows.
func ptrVal[T any](p *T) any {
	if p == nil {
		return nil
	}
	return *p
}

func userRow(u models.User) *sqlmock.Rows {
	return sqlmock.NewRows(userColumns).AddRow(
		u.ID, u.Name, u.Email, u.PasswordHash, u.Role,
		u.Approved, u.Blocked, ptrVal(u.ResetToken), ptrVal(u.ResetTokenExpiry), u.CreatedAt,
	)
}

func emptyUserRows() *sqlmock.Rows {
	return sqlmock.NewRows(userColumns)
}

var clientColumns = []string{
	"id", "name", "website", "prompt",
	"created_by_id", "created_at", "updated_by_id", "updated_at",
}

func clientRow(c models.ClientProfile) *sqlmock.Rows {
	return sqlmock.NewRows(clientColumns).AddRow(
		c.ID, c.Name, c.Website, c.Prompt,
		ptrVal(c.CreatedByID), c.CreatedAt, ptrVal(c.UpdatedByID), c.UpdatedAt,
	)
}

var contentColumns = []string{
	"id", "user_id", "client_id", "title", "keywords", "length", "type",
	"headings", "generated_content", "generations", "regenerations",
	"usage_month", "created_at",
}

func contentRow(c models.Content) *sqlmock.Rows {
	kw, _ := json.Marshal([]string(c.Keywords))
	return sqlmock.NewRows(contentColumns).AddRow(
		c.ID, c.UserID, ptrVal(c.ClientID), c.Title, kw, c.Length, c.Type,
		c.Headings, c.GeneratedContent, c.Generations, c.Regenerations,
		ptrVal(c.UsageMonth), c.CreatedAt,
	)
}

func expectAuditInsert(mock sqlmock.Sqlmock) {
	mock.ExpectQuery(`INSERT INTO "audit_logs"`).
		WillReturnRows(sqlmock.NewRows([]string{"id"}).AddRow(int64(1)))
}

// fakeGenerator stands in for the chat-completion client.
type fakeGenerator struct {
	text    string
	err     error
	prompts []string
}

func (f *fakeGenerator) Complete(ctx context.Context, prompt string) (string, error) {
	f.prompts = append(f.prompts, prompt)
	if f.err != nil {
		return "", f.err
	}
	return f.text, nil
}

// fakeMailer records reset links instead of dialing SMTP.
type fakeMailer struct {
	err   error
	to    []string
	links []string
}

func (f *fakeMailer) SendPasswordReset(to, name, link string) error {
	f.to = append(f.to, to)
	f.links = append(f.links, link)
	return f.err
}

func mustHash(t *testing.T, pw string) string {
	t.Helper()
	h, err := auth.HashPassword(pw)
	require.NoError(t, err)
	return h
}

func testUser(role string, approved, blocked bool, hash string) models.User {
	return models.User{
		ID:           "11111111-1111-1111-1111-111111111111",
		Name:         "Test User",
		Email:        "user@example.com",
		PasswordHash: hash,
		Role:         role,
		Approved:     approved,
		Blocked:      blocked,
		CreatedAt:    time.Now(),
	}
}
