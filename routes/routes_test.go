package routes

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"strconv"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/upb/contact-directory/app"
	"github.com/upb/contact-directory/config"
	"github.com/upb/contact-directory/models"
	"github.com/upb/contact-directory/repositories/memory"
	"github.com/upb/contact-directory/services/auth"
	"github.com/upb/contact-directory/services/token"
	"go.uber.org/zap"
)

const testSecret = "routes-test-secret"

type testEnv struct {
	t       *testing.T
	deps    *app.Dependencies
	store   *memory.Store
	handler http.Handler
}

func newTestEnv(t *testing.T, mutate ...func(*config.Config)) *testEnv {
	t.Helper()
	dir := t.TempDir()
	cfg := &config.Config{
		Environment: "test",
		Auth: config.AuthConfig{
			JWTSecret:         testSecret,
			TokenTTL:          time.Hour,
			BootstrapEmail:    "admin@example.com",
			BootstrapPassword: "password",
			BootstrapName:     "Admin User",
			LoginRatePerMin:   6000,
			LoginBurst:        100,
			PublicPrefixes:    []string{"/api/auth/login"},
			BcryptCost:        4,
		},
		Audit: config.AuditConfig{
			BufferSize:   100,
			WorkerCount:  2,
			WriteTimeout: time.Second,
			StopTimeout:  5 * time.Second,
		},
		CORS: config.CORSConfig{
			AllowedOrigins: []string{"http://localhost:*", "http://127.0.0.1:*"},
		},
		Storage: config.StorageConfig{
			UploadDir:      filepath.Join(dir, "uploads"),
			LicenseFile:    filepath.Join(dir, "license.key"),
			MaxUploadBytes: 1 << 20,
		},
	}
	for _, m := range mutate {
		m(cfg)
	}

	deps, store, err := app.NewInMemoryDependencies(cfg, zap.NewNop())
	require.NoError(t, err)
	t.Cleanup(func() { _ = deps.Close() })

	_, err = deps.Auth.Bootstrap(context.Background())
	require.NoError(t, err)

	return &testEnv{t: t, deps: deps, store: store, handler: SetupRoutes(deps)}
}

func (e *testEnv) do(method, path, token, body string) *httptest.ResponseRecorder {
	e.t.Helper()
	var reader io.Reader
	if body != "" {
		reader = strings.NewReader(body)
	}
	req := httptest.NewRequest(method, path, reader)
	req.RemoteAddr = "192.0.2.1:5555"
	if body != "" {
		req.Header.Set("Content-Type", "application/json")
	}
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	w := httptest.NewRecorder()
	e.handler.ServeHTTP(w, req)
	return w
}

func (e *testEnv) login(email, password string) string {
	e.t.Helper()
	w := e.do(http.MethodPost, "/api/auth/login", "", `{"email":"`+email+`","password":"`+password+`"}`)
	require.Equal(e.t, http.StatusOK, w.Code, w.Body.String())
	var resp struct {
		AccessToken string `json:"access_token"`
	}
	require.NoError(e.t, json.NewDecoder(w.Body).Decode(&resp))
	return resp.AccessToken
}

func (e *testEnv) addViewer(email, password string) *models.User {
	e.t.Helper()
	hash, err := auth.HashPassword(password, 4)
	require.NoError(e.t, err)
	u := models.NewUser(email, hash, "Viewer", models.RoleViewer)
	require.NoError(e.t, e.store.Repositories().Users.Create(context.Background(), u))
	return u
}

// auditEntries drains the recorder so every queued entry is visible.
// Entries recorded afterwards are written inline.
func (e *testEnv) auditEntries() []models.AuditLog {
	e.t.Helper()
	require.NoError(e.t, e.deps.Audit.Stop(5*time.Second))
	return e.store.AuditEntries()
}

func (e *testEnv) entriesFor(action models.AuditAction) []models.AuditLog {
	var out []models.AuditLog
	for _, entry := range e.auditEntries() {
		if entry.Action == action {
			out = append(out, entry)
		}
	}
	return out
}

func decodeData(t *testing.T, w *httptest.ResponseRecorder, dst interface{}) {
	t.Helper()
	var env struct {
		Data  json.RawMessage `json:"data"`
		Error *string         `json:"error"`
	}
	require.NoError(t, json.NewDecoder(w.Body).Decode(&env))
	assert.Nil(t, env.Error)
	require.NoError(t, json.Unmarshal(env.Data, dst))
}

func errorCode(t *testing.T, w *httptest.ResponseRecorder) string {
	t.Helper()
	var resp struct {
		Code string `json:"code"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	return resp.Code
}

func TestHealthEndpoints(t *testing.T) {
	e := newTestEnv(t)

	assert.Equal(t, http.StatusOK, e.do(http.MethodGet, "/healthz", "", "").Code)
	assert.Equal(t, http.StatusOK, e.do(http.MethodGet, "/readyz", "", "").Code)
}

func TestMissingTokenNeverReachesHandler(t *testing.T) {
	e := newTestEnv(t)

	routes := []struct{ method, path, body string }{
		{http.MethodGet, "/api/contacts", ""},
		{http.MethodGet, "/api/contacts/1", ""},
		{http.MethodPost, "/api/contacts", `{"firstName":"Ada"}`},
		{http.MethodPut, "/api/contacts/1", `{"firstName":"Ada"}`},
		{http.MethodDelete, "/api/contacts/1", ""},
		{http.MethodGet, "/api/users", ""},
		{http.MethodPost, "/api/users", `{"email":"x@example.com","password":"longenough"}`},
		{http.MethodGet, "/api/licenses", ""},
		{http.MethodPost, "/api/licenses", `{"customer_name":"Acme"}`},
		{http.MethodGet, "/api/audit-logs", ""},
		{http.MethodGet, "/api/auth/me", ""},
	}

	for _, rt := range routes {
		t.Run(rt.method+" "+rt.path, func(t *testing.T) {
			w := e.do(rt.method, rt.path, "", rt.body)
			assert.Equal(t, http.StatusUnauthorized, w.Code)
			assert.Equal(t, "unauthenticated", errorCode(t, w))
		})
	}

	contacts, err := e.deps.Contacts.List(context.Background())
	require.NoError(t, err)
	assert.Empty(t, contacts, "no write went through")
	assert.Empty(t, e.auditEntries())
}

func TestInvalidAndExpiredTokens(t *testing.T) {
	e := newTestEnv(t)

	t.Run("garbage token", func(t *testing.T) {
		w := e.do(http.MethodGet, "/api/auth/me", "not.a.token", "")
		assert.Equal(t, http.StatusForbidden, w.Code)
		assert.Equal(t, "token_invalid", errorCode(t, w))
	})

	t.Run("token signed with another secret", func(t *testing.T) {
		other, err := token.NewService("someone-elses-secret", time.Hour)
		require.NoError(t, err)
		forged, err := other.Issue(models.Principal{ID: 1, Email: "admin@example.com", Role: models.RoleAdmin})
		require.NoError(t, err)

		w := e.do(http.MethodPost, "/api/contacts", forged, `{"firstName":"Mallory"}`)
		assert.Equal(t, http.StatusForbidden, w.Code)
		assert.Equal(t, "token_invalid", errorCode(t, w))
	})

	t.Run("token valid at issuance is rejected after expiry", func(t *testing.T) {
		issuedAt := time.Now().Add(-2 * time.Hour)
		past, err := token.NewService(testSecret, time.Hour, token.WithClock(func() time.Time { return issuedAt }))
		require.NoError(t, err)
		stale, err := past.Issue(models.Principal{ID: 1, Email: "admin@example.com", Role: models.RoleAdmin})
		require.NoError(t, err)

		w := e.do(http.MethodGet, "/api/auth/me", stale, "")
		assert.Equal(t, http.StatusForbidden, w.Code)
		assert.Equal(t, "token_expired", errorCode(t, w))
	})
}

func TestLoginAndMe(t *testing.T) {
	e := newTestEnv(t)

	w := e.do(http.MethodPost, "/api/auth/login", "", `{"email":"admin@example.com","password":"password"}`)
	require.Equal(t, http.StatusOK, w.Code)

	var resp struct {
		User        models.PublicUser `json:"user"`
		AccessToken string            `json:"access_token"`
		Error       *string           `json:"error"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	assert.Equal(t, "admin@example.com", resp.User.Email)
	assert.Equal(t, models.RoleAdmin, resp.User.Role)
	assert.Nil(t, resp.Error)
	assert.NotContains(t, w.Body.String(), "password")

	me := e.do(http.MethodGet, "/api/auth/me", resp.AccessToken, "")
	require.Equal(t, http.StatusOK, me.Code)
	var claims map[string]interface{}
	require.NoError(t, json.Unmarshal(me.Body.Bytes(), &claims))
	assert.Equal(t, "admin@example.com", claims["email"])
	assert.Equal(t, "admin", claims["role"])
	assert.NotZero(t, claims["iat"])
	assert.NotZero(t, claims["exp"])

	logins := e.entriesFor(models.AuditActionLogin)
	require.Len(t, logins, 1)
	assert.Equal(t, "Login from 192.0.2.1", logins[0].Details)
}

func TestLoginFailuresAreUniform(t *testing.T) {
	e := newTestEnv(t)

	wrongPassword := e.do(http.MethodPost, "/api/auth/login", "", `{"email":"admin@example.com","password":"wrong"}`)
	unknownEmail := e.do(http.MethodPost, "/api/auth/login", "", `{"email":"nobody@example.com","password":"wrong"}`)

	assert.Equal(t, http.StatusUnauthorized, wrongPassword.Code)
	assert.Equal(t, http.StatusUnauthorized, unknownEmail.Code)
	assert.JSONEq(t, wrongPassword.Body.String(), unknownEmail.Body.String())
	assert.Empty(t, e.entriesFor(models.AuditActionLogin), "failed logins are not audited")
}

func TestLoginThrottle(t *testing.T) {
	e := newTestEnv(t, func(cfg *config.Config) {
		cfg.Auth.LoginRatePerMin = 1
		cfg.Auth.LoginBurst = 2
	})

	for i := 0; i < 2; i++ {
		w := e.do(http.MethodPost, "/api/auth/login", "", `{"email":"admin@example.com","password":"wrong"}`)
		assert.Equal(t, http.StatusUnauthorized, w.Code)
	}

	w := e.do(http.MethodPost, "/api/auth/login", "", `{"email":"admin@example.com","password":"password"}`)
	assert.Equal(t, http.StatusTooManyRequests, w.Code)
	assert.NotEmpty(t, w.Header().Get("Retry-After"))
	assert.Equal(t, "rate_limit", errorCode(t, w))
}

func TestRoleGuard(t *testing.T) {
	e := newTestEnv(t)
	e.addViewer("viewer@example.com", "viewer-pass")
	viewer := e.login("viewer@example.com", "viewer-pass")
	admin := e.login("admin@example.com", "password")

	adminOnly := []struct{ method, path, body string }{
		{http.MethodPost, "/api/contacts", `{"firstName":"Ada"}`},
		{http.MethodGet, "/api/users", ""},
		{http.MethodGet, "/api/licenses", ""},
		{http.MethodGet, "/api/audit-logs", ""},
	}
	for _, rt := range adminOnly {
		t.Run("viewer "+rt.method+" "+rt.path, func(t *testing.T) {
			w := e.do(rt.method, rt.path, viewer, rt.body)
			assert.Equal(t, http.StatusForbidden, w.Code)
			assert.Equal(t, "insufficient_privilege", errorCode(t, w))
		})
		t.Run("admin "+rt.method+" "+rt.path, func(t *testing.T) {
			w := e.do(rt.method, rt.path, admin, rt.body)
			assert.Less(t, w.Code, 300, w.Body.String())
		})
	}

	t.Run("viewer can read contacts", func(t *testing.T) {
		assert.Equal(t, http.StatusOK, e.do(http.MethodGet, "/api/contacts", viewer, "").Code)
	})
}

func TestCreateProducesExactlyOneAuditEntry(t *testing.T) {
	e := newTestEnv(t)
	admin := e.login("admin@example.com", "password")

	w := e.do(http.MethodPost, "/api/contacts", admin, `{"firstName":"Ada","lastName":"Lovelace"}`)
	require.Equal(t, http.StatusCreated, w.Code)
	var created models.Contact
	decodeData(t, w, &created)

	creates := e.entriesFor(models.AuditActionCreate)
	require.Len(t, creates, 1)
	assert.Equal(t, models.EntityContact, creates[0].EntityType)
	require.NotNil(t, creates[0].EntityID)
	assert.Equal(t, created.ID, *creates[0].EntityID)
	require.NotNil(t, creates[0].UserID)
	assert.Contains(t, creates[0].Details, "Lovelace")
}

func TestFailedMutationProducesNoAuditEntry(t *testing.T) {
	e := newTestEnv(t)
	admin := e.login("admin@example.com", "password")

	assert.Equal(t, http.StatusNotFound, e.do(http.MethodPut, "/api/contacts/404", admin, `{"title":"x"}`).Code)
	assert.Equal(t, http.StatusNotFound, e.do(http.MethodDelete, "/api/contacts/404", admin, "").Code)
	assert.Equal(t, http.StatusBadRequest, e.do(http.MethodPost, "/api/contacts", admin, `{"workEmail":"nope"}`).Code)
	assert.Equal(t, http.StatusBadRequest, e.do(http.MethodPost, "/api/users", admin, `{"email":"x@example.com"}`).Code)

	for _, entry := range e.auditEntries() {
		assert.Equal(t, models.AuditActionLogin, entry.Action, "only the login is recorded")
	}
}

func TestContactLifecycle(t *testing.T) {
	e := newTestEnv(t)
	admin := e.login("admin@example.com", "password")

	w := e.do(http.MethodPost, "/api/contacts", admin, `{"firstName":"Grace","companyName":"Navy"}`)
	require.Equal(t, http.StatusCreated, w.Code)
	var c models.Contact
	decodeData(t, w, &c)
	path := "/api/contacts/" + strconv.FormatInt(c.ID, 10)

	w = e.do(http.MethodPatch, path, admin, `{"title":"Rear Admiral"}`)
	require.Equal(t, http.StatusOK, w.Code)
	var updated models.Contact
	decodeData(t, w, &updated)
	assert.Equal(t, "Rear Admiral", updated.Title)
	assert.Equal(t, "Navy", updated.CompanyName)

	require.Equal(t, http.StatusOK, e.do(http.MethodDelete, path, admin, "").Code)
	assert.Equal(t, http.StatusNotFound, e.do(http.MethodGet, path, admin, "").Code)

	var actions []models.AuditAction
	for _, entry := range e.auditEntries() {
		if entry.EntityType == models.EntityContact {
			assert.Equal(t, c.ID, *entry.EntityID)
			actions = append(actions, entry.Action)
		}
	}
	assert.ElementsMatch(t, []models.AuditAction{models.AuditActionCreate, models.AuditActionUpdate, models.AuditActionDelete}, actions)
}

func TestUsersAndLicenses(t *testing.T) {
	e := newTestEnv(t)
	admin := e.login("admin@example.com", "password")

	// A second account needs a license file
	w := e.do(http.MethodPost, "/api/users", admin, `{"email":"new@example.com","password":"longenough"}`)
	assert.Equal(t, http.StatusForbidden, w.Code)
	assert.Equal(t, "license_required", errorCode(t, w))

	w = e.do(http.MethodPost, "/api/licenses", admin, `{"customer_name":"Acme"}`)
	require.Equal(t, http.StatusCreated, w.Code)
	var lic models.License
	decodeData(t, w, &lic)
	assert.True(t, strings.HasPrefix(lic.GeneratedKey, "NORD-"))

	// The admin cannot demote themselves while they are the only admin
	w = e.do(http.MethodPatch, "/api/users/1", admin, `{"role":"viewer"}`)
	assert.Equal(t, http.StatusConflict, w.Code)

	w = e.do(http.MethodGet, "/api/users", admin, "")
	require.Equal(t, http.StatusOK, w.Code)
	assert.NotContains(t, w.Body.String(), "$2a$")
}

func TestAuditLogsEndpoint(t *testing.T) {
	e := newTestEnv(t)
	admin := e.login("admin@example.com", "password")

	// Drain the queue; later entries are written inline and in order
	e.auditEntries()
	require.Equal(t, http.StatusCreated, e.do(http.MethodPost, "/api/contacts", admin, `{"firstName":"Ada"}`).Code)

	w := e.do(http.MethodGet, "/api/audit-logs", admin, "")
	require.Equal(t, http.StatusOK, w.Code)

	var logs []models.AuditLog
	decodeData(t, w, &logs)
	require.Len(t, logs, 2)
	assert.Equal(t, models.AuditActionCreate, logs[0].Action, "newest first")
	require.NotNil(t, logs[0].UserEmail)
	assert.Equal(t, "admin@example.com", *logs[0].UserEmail)
}

func TestUploadAndServe(t *testing.T) {
	e := newTestEnv(t)
	admin := e.login("admin@example.com", "password")

	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)
	part, err := mw.CreateFormFile("file", "contacts.csv")
	require.NoError(t, err)
	_, _ = part.Write([]byte("firstName\nAda\n"))
	require.NoError(t, mw.Close())

	req := httptest.NewRequest(http.MethodPost, "/api/upload", &buf)
	req.Header.Set("Content-Type", mw.FormDataContentType())
	req.Header.Set("Authorization", "Bearer "+admin)
	w := httptest.NewRecorder()
	e.handler.ServeHTTP(w, req)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())

	var out map[string]string
	decodeData(t, w, &out)
	require.NotEmpty(t, out["publicUrl"])

	served := e.do(http.MethodGet, out["publicUrl"], "", "")
	assert.Equal(t, http.StatusOK, served.Code)
	assert.Equal(t, "firstName\nAda\n", served.Body.String())

	assert.Equal(t, http.StatusNotFound, e.do(http.MethodGet, "/storage/imports/", "", "").Code)

	imports := e.entriesFor(models.AuditActionImport)
	require.Len(t, imports, 1)
	assert.Contains(t, imports[0].Details, "contacts.csv")
}

func TestUnknownRoute(t *testing.T) {
	e := newTestEnv(t)

	w := e.do(http.MethodGet, "/nope", "", "")
	assert.Equal(t, http.StatusNotFound, w.Code)
	assert.Equal(t, "not_found", errorCode(t, w))
}

func TestCORSAllowsOnlyConfiguredOrigins(t *testing.T) {
	e := newTestEnv(t)

	preflight := func(origin string) *httptest.ResponseRecorder {
		req := httptest.NewRequest(http.MethodOptions, "/api/contacts", nil)
		req.Header.Set("Origin", origin)
		req.Header.Set("Access-Control-Request-Method", http.MethodPost)
		w := httptest.NewRecorder()
		e.handler.ServeHTTP(w, req)
		return w
	}

	local := preflight("http://localhost:5173")
	assert.Equal(t, "http://localhost:5173", local.Header().Get("Access-Control-Allow-Origin"))
	assert.Equal(t, "true", local.Header().Get("Access-Control-Allow-Credentials"))

	foreign := preflight("https://attacker.example.com")
	assert.Empty(t, foreign.Header().Get("Access-Control-Allow-Origin"))
}
