package handlers

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/go-chi/chi/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"contentgen/internal/auth"
	"contentgen/internal/models"
)

const testSecret = "handler-test-secret"

var testLogger = zap.NewNop().Sugar()

func TestLoginUnknownEmail(t *testing.T) {
	db, mock := newTestDB(t)
	mock.ExpectQuery(`SELECT \* FROM "users" WHERE email = \$1`).WillReturnRows(emptyUserRows())

	rec := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodPost, "/api/auth/login",
		jsonBody(t, map[string]string{"email": "nobody@example.com", "password": "pw"}))
	Login(db, testSecret, time.Hour, testLogger)(rec, req)

	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Equal(t, "Invalid credentials", decodeBody(t, rec)["message"])
}

func TestLoginUnapproved(t *testing.T) {
	db, mock := newTestDB(t)
	u := testUser(models.RoleUser, false, false, mustHash(t, "pw"))
	mock.ExpectQuery(`SELECT \* FROM "users" WHERE email = \$1`).WillReturnRows(userRow(u))

	rec := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodPost, "/api/auth/login",
		jsonBody(t, map[string]string{"email": u.Email, "password": "pw"}))
	Login(db, testSecret, time.Hour, testLogger)(rec, req)

	assert.Equal(t, http.StatusForbidden, rec.Code)
	assert.Equal(t, "Awaiting admin approval", decodeBody(t, rec)["message"])
}

func TestLoginBlocked(t *testing.T) {
	db, mock := newTestDB(t)
	u := testUser(models.RoleUser, true, true, mustHash(t, "pw"))
	mock.ExpectQuery(`SELECT \* FROM "users" WHERE email = \$1`).WillReturnRows(userRow(u))

	rec := httptest.NewRecorder()
	// wrong password on purpose: blocked wins regardless of credentials
	req := httptest.NewRequest(http.MethodPost, "/api/auth/login",
		jsonBody(t, map[string]string{"email": u.Email, "password": "wrong"}))
	Login(db, testSecret, time.Hour, testLogger)(rec, req)

	assert.Equal(t, http.StatusForbidden, rec.Code)
	assert.Equal(t, "Your access has been revoked. Please contact admin.", decodeBody(t, rec)["message"])
}

func TestLoginWrongPassword(t *testing.T) {
	db, mock := newTestDB(t)
	u := testUser(models.RoleUser, true, false, mustHash(t, "right"))
	mock.ExpectQuery(`SELECT \* FROM "users" WHERE email = \$1`).WillReturnRows(userRow(u))

	rec := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodPost, "/api/auth/login",
		jsonBody(t, map[string]string{"email": u.Email, "password": "wrong"}))
	Login(db, testSecret, time.Hour, testLogger)(rec, req)

	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Equal(t, "Invalid credentials", decodeBody(t, rec)["message"])
}

func TestLoginSuccess(t *testing.T) {
	db, mock := newTestDB(t)
	u := testUser(models.RoleSuperAdmin, true, false, mustHash(t, "pw"))
	mock.ExpectQuery(`SELECT \* FROM "users" WHERE email = \$1`).WillReturnRows(userRow(u))

	rec := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodPost, "/api/auth/login",
		jsonBody(t, map[string]string{"email": "USER@example.com", "password": "pw"}))
	Login(db, testSecret, 24*time.Hour, testLogger)(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)
	body := decodeBody(t, rec)
	tok, _ := body["token"].(string)
	require.NotEmpty(t, tok)

	claims, err := auth.Verify(testSecret, tok)
	require.NoError(t, err)
	assert.Equal(t, u.ID, claims.Subject)
	assert.Equal(t, models.RoleSuperAdmin, claims.Role)

	user, _ := body["user"].(map[string]any)
	require.NotNil(t, user)
	assert.Equal(t, u.ID, user["id"])
	assert.Equal(t, u.Name, user["name"])
}

func TestRegisterMissingFields(t *testing.T) {
	db, _ := newTestDB(t)
	rec := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodPost, "/api/auth/register",
		jsonBody(t, map[string]string{"email": "a@x.com"}))
	Register(db, testLogger)(rec, req)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestRegisterDuplicateEmail(t *testing.T) {
	db, mock := newTestDB(t)
	u := testUser(models.RoleUser, false, false, "hash")
	mock.ExpectQuery(`SELECT \* FROM "users" WHERE email = \$1`).WillReturnRows(userRow(u))

	rec := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodPost, "/api/auth/register",
		jsonBody(t, map[string]string{"name": "A", "email": "user@example.com", "password": "pw"}))
	Register(db, testLogger)(rec, req)

	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Equal(t, "Email already exists", decodeBody(t, rec)["message"])
}

func TestRegisterSuccess(t *testing.T) {
	db, mock := newTestDB(t)
	mock.ExpectQuery(`SELECT \* FROM "users" WHERE email = \$1`).WillReturnRows(emptyUserRows())
	mock.ExpectQuery(`INSERT INTO "users"`).
		WillReturnRows(sqlmock.NewRows([]string{"approved", "blocked"}).AddRow(false, false))

	rec := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodPost, "/api/auth/register",
		jsonBody(t, map[string]string{"name": "A", "email": "A@X.com", "password": "pw"}))
	Register(db, testLogger)(rec, req)

	assert.Equal(t, http.StatusCreated, rec.Code)
	assert.Equal(t, "Registered. Awaiting admin approval.", decodeBody(t, rec)["message"])
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestApproveNotFound(t *testing.T) {
	db, mock := newTestDB(t)
	mock.ExpectExec(`UPDATE "users" SET "approved"`).WillReturnResult(sqlmock.NewResult(0, 0))

	rec := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodPost, "/api/auth/approve",
		jsonBody(t, map[string]string{"userId": "missing-id"}))
	Approve(db, testLogger)(rec, req)

	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestApproveSuccess(t *testing.T) {
	db, mock := newTestDB(t)
	mock.ExpectExec(`UPDATE "users" SET "approved"`).WillReturnResult(sqlmock.NewResult(0, 1))

	rec := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodPost, "/api/auth/approve",
		jsonBody(t, map[string]string{"userId": "some-id"}))
	Approve(db, testLogger)(rec, req)

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "User approved", decodeBody(t, rec)["message"])
}

func TestChangePasswordWrongOld(t *testing.T) {
	db, mock := newTestDB(t)
	u := testUser(models.RoleUser, true, false, mustHash(t, "current"))
	mock.ExpectQuery(`SELECT \* FROM "users" WHERE id = \$1`).WillReturnRows(userRow(u))

	rec := httptest.NewRecorder()
	req := authedRequest(http.MethodPost, "/api/auth/change-password",
		jsonBody(t, map[string]string{"oldPassword": "bad", "newPassword": "next"}), u.ID, u.Role)
	ChangePassword(db, testLogger)(rec, req)

	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Equal(t, "Current password is incorrect", decodeBody(t, rec)["message"])
}

func TestChangePasswordSuccess(t *testing.T) {
	db, mock := newTestDB(t)
	u := testUser(models.RoleUser, true, false, mustHash(t, "current"))
	mock.ExpectQuery(`SELECT \* FROM "users" WHERE id = \$1`).WillReturnRows(userRow(u))
	mock.ExpectExec(`UPDATE "users" SET "password_hash"`).WillReturnResult(sqlmock.NewResult(0, 1))

	rec := httptest.NewRecorder()
	req := authedRequest(http.MethodPost, "/api/auth/change-password",
		jsonBody(t, map[string]string{"oldPassword": "current", "newPassword": "next"}), u.ID, u.Role)
	ChangePassword(db, testLogger)(rec, req)

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestForgotPasswordUnknownEmail(t *testing.T) {
	db, mock := newTestDB(t)
	mock.ExpectQuery(`SELECT \* FROM "users" WHERE email = \$1`).WillReturnRows(emptyUserRows())

	rec := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodPost, "/api/auth/forgot-password",
		jsonBody(t, map[string]string{"email": "nobody@example.com"}))
	ForgotPassword(db, &fakeMailer{}, "http://app.example", testLogger)(rec, req)

	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestForgotPasswordSuccess(t *testing.T) {
	db, mock := newTestDB(t)
	u := testUser(models.RoleUser, true, false, "hash")
	mock.ExpectQuery(`SELECT \* FROM "users" WHERE email = \$1`).WillReturnRows(userRow(u))
	mock.ExpectExec(`UPDATE "users" SET`).WillReturnResult(sqlmock.NewResult(0, 1))

	fm := &fakeMailer{}
	rec := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodPost, "/api/auth/forgot-password",
		jsonBody(t, map[string]string{"email": u.Email}))
	ForgotPassword(db, fm, "http://app.example/", testLogger)(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)
	require.Len(t, fm.links, 1)
	assert.Equal(t, []string{u.Email}, fm.to)
	assert.True(t, strings.HasPrefix(fm.links[0], "http://app.example/reset-password/"))
	// the embedded token is 32 random bytes hex-encoded
	assert.Len(t, strings.TrimPrefix(fm.links[0], "http://app.example/reset-password/"), 64)
}

func TestForgotPasswordMailFailure(t *testing.T) {
	db, mock := newTestDB(t)
	u := testUser(models.RoleUser, true, false, "hash")
	mock.ExpectQuery(`SELECT \* FROM "users" WHERE email = \$1`).WillReturnRows(userRow(u))
	mock.ExpectExec(`UPDATE "users" SET`).WillReturnResult(sqlmock.NewResult(0, 1))

	fm := &fakeMailer{err: assert.AnError}
	rec := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodPost, "/api/auth/forgot-password",
		jsonBody(t, map[string]string{"email": u.Email}))
	ForgotPassword(db, fm, "http://app.example", testLogger)(rec, req)

	assert.Equal(t, http.StatusInternalServerError, rec.Code)
}

func resetPasswordRequest(t *testing.T, token, newPassword string) *http.Request {
	req := httptest.NewRequest(http.MethodPost, "/api/auth/reset-password/"+token,
		jsonBody(t, map[string]string{"newPassword": newPassword}))
	rctx := chi.NewRouteContext()
	rctx.URLParams.Add("token", token)
	return req.WithContext(context.WithValue(req.Context(), chi.RouteCtxKey, rctx))
}

func TestResetPasswordInvalidToken(t *testing.T) {
	db, mock := newTestDB(t)
	mock.ExpectQuery(`SELECT \* FROM "users" WHERE reset_token = \$1 AND reset_token_expiry > \$2`).
		WillReturnRows(emptyUserRows())

	rec := httptest.NewRecorder()
	ResetPassword(db, testLogger)(rec, resetPasswordRequest(t, "expired-or-bogus", "newpw"))

	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Equal(t, "Invalid or expired token", decodeBody(t, rec)["message"])
}

func TestResetPasswordSuccess(t *testing.T) {
	db, mock := newTestDB(t)
	token := "sometoken"
	expiry := time.Now().Add(30 * time.Minute)
	u := testUser(models.RoleUser, true, false, "oldhash")
	u.ResetToken = &token
	u.ResetTokenExpiry = &expiry
	mock.ExpectQuery(`SELECT \* FROM "users" WHERE reset_token = \$1 AND reset_token_expiry > \$2`).
		WillReturnRows(userRow(u))
	mock.ExpectExec(`UPDATE "users" SET`).WillReturnResult(sqlmock.NewResult(0, 1))

	rec := httptest.NewRecorder()
	ResetPassword(db, testLogger)(rec, resetPasswordRequest(t, token, "newpw"))

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.NoError(t, mock.ExpectationsWereMet())
}
