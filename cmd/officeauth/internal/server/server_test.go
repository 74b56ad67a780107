package server

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	officeauth "github.com/AbuSayeed917/MMKRegisteredOfficeServices-sub002"
	promexport "github.com/AbuSayeed917/MMKRegisteredOfficeServices-sub002/metrics/export/prometheus"
	"github.com/AbuSayeed917/MMKRegisteredOfficeServices-sub002/password"
	"github.com/AbuSayeed917/MMKRegisteredOfficeServices-sub002/userstore"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"
)

type harness struct {
	engine *officeauth.Engine
	users  *userstore.MemoryStore
	hasher *password.Hasher
	router http.Handler
}

func newHarness(t *testing.T, mutate func(*officeauth.Config)) *harness {
	t.Helper()

	cfg := officeauth.DefaultConfig()
	cfg.Token.Secret = []byte("server-test-secret-server-test-s")
	cfg.Session.CookieSecure = false
	if mutate != nil {
		mutate(&cfg)
	}
	engine, err := officeauth.New().WithConfig(cfg).Build()
	require.NoError(t, err)
	t.Cleanup(engine.Close)

	hasher, err := password.NewHasher(password.Config{Memory: 8 * 1024, Time: 1, Parallelism: 1, SaltLength: 16, KeyLength: 16})
	require.NoError(t, err)

	h := &harness{engine: engine, users: userstore.NewMemoryStore(), hasher: hasher}
	srv := New(Options{
		Engine:  engine,
		Users:   h.users,
		Hasher:  hasher,
		Metrics: promexport.NewPrometheusExporter(engine).Handler(),
	})

	ctx, cancel := context.WithCancel(context.Background())
	t.Cleanup(cancel)
	h.router = srv.Routes(ctx)
	return h
}

func (h *harness) seed(t *testing.T, email, plain string, role officeauth.Role, status userstore.Status) *userstore.User {
	t.Helper()
	hash, err := h.hasher.Hash(plain)
	require.NoError(t, err)
	u := &userstore.User{Email: email, PasswordHash: hash, Role: role, Status: status}
	require.NoError(t, h.users.Create(context.Background(), u))
	return u
}

type call struct {
	method string
	path   string
	body   any
	cookie *http.Cookie
	bearer string
	ip     string
}

func (h *harness) do(t *testing.T, c call) *httptest.ResponseRecorder {
	t.Helper()

	var body bytes.Buffer
	switch b := c.body.(type) {
	case nil:
	case string:
		body.WriteString(b)
	default:
		require.NoError(t, json.NewEncoder(&body).Encode(b))
	}

	req := httptest.NewRequest(c.method, c.path, &body)
	req.Header.Set("Content-Type", "application/json")
	if c.ip != "" {
		req.RemoteAddr = c.ip + ":5000"
	}
	if c.cookie != nil {
		req.AddCookie(c.cookie)
	}
	if c.bearer != "" {
		req.Header.Set("Authorization", "Bearer "+c.bearer)
	}

	rr := httptest.NewRecorder()
	h.router.ServeHTTP(rr, req)
	return rr
}

func sessionCookie(t *testing.T, rr *httptest.ResponseRecorder) *http.Cookie {
	t.Helper()
	for _, c := range rr.Result().Cookies() {
		if c.Name == "session" {
			return c
		}
	}
	t.Fatalf("no session cookie in response")
	return nil
}

func errorMessage(t *testing.T, rr *httptest.ResponseRecorder) string {
	t.Helper()
	var body struct {
		Error string `json:"error"`
	}
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &body))
	return body.Error
}

func TestRegisterCreatesPendingClient(t *testing.T) {
	h := newHarness(t, nil)

	rr := h.do(t, call{method: http.MethodPost, path: "/api/auth/register", body: map[string]string{
		"email":    "Director@Acme.co.uk",
		"password": "correct horse",
		"name":     "Acme Ltd",
	}})
	require.Equal(t, http.StatusCreated, rr.Code, rr.Body.String())

	var out struct {
		User map[string]any `json:"user"`
	}
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &out))
	assert.Equal(t, "director@acme.co.uk", out.User["email"])
	assert.Equal(t, "CLIENT", out.User["role"])
	assert.Equal(t, "PENDING", out.User["status"])
	assert.NotContains(t, rr.Body.String(), "argon2id", "hash must never be serialized")

	stored, err := h.users.FindByEmail(context.Background(), "director@acme.co.uk")
	require.NoError(t, err)
	assert.True(t, strings.HasPrefix(stored.PasswordHash, "$argon2id$"))
}

func TestRegisterValidation(t *testing.T) {
	h := newHarness(t, nil)
	h.seed(t, "taken@acme.co.uk", "password123", officeauth.RoleClient, userstore.StatusPending)

	cases := []struct {
		name string
		body any
		code int
	}{
		{"missing fields", map[string]string{"email": "a@b.com"}, http.StatusBadRequest},
		{"bad email", map[string]string{"email": "not-an-email", "password": "password123"}, http.StatusBadRequest},
		{"display name form", map[string]string{"email": "Ann <a@b.com>", "password": "password123"}, http.StatusBadRequest},
		{"short password", map[string]string{"email": "a@b.com", "password": "short"}, http.StatusBadRequest},
		{"unknown field", map[string]string{"email": "a@b.com", "password": "password123", "role": "ADMIN"}, http.StatusBadRequest},
		{"not json", "{", http.StatusBadRequest},
		{"duplicate", map[string]string{"email": "TAKEN@acme.co.uk", "password": "password123"}, http.StatusConflict},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			rr := h.do(t, call{method: http.MethodPost, path: "/api/auth/register", body: tc.body})
			assert.Equal(t, tc.code, rr.Code, rr.Body.String())
		})
	}
}

func TestRegisterRateLimit(t *testing.T) {
	h := newHarness(t, nil)

	for i := 0; i < 20; i++ {
		rr := h.do(t, call{method: http.MethodPost, path: "/api/auth/register", ip: "1.2.3.4", body: map[string]string{
			"email":    fmt.Sprintf("user%d@acme.co.uk", i),
			"password": "password123",
		}})
		require.Equal(t, http.StatusCreated, rr.Code, "request %d", i+1)
	}

	rr := h.do(t, call{method: http.MethodPost, path: "/api/auth/register", ip: "1.2.3.4", body: map[string]string{
		"email":    "one-too-many@acme.co.uk",
		"password": "password123",
	}})
	assert.Equal(t, http.StatusTooManyRequests, rr.Code)
	assert.NotEmpty(t, rr.Header().Get("Retry-After"))

	rr = h.do(t, call{method: http.MethodPost, path: "/api/auth/register", ip: "5.6.7.8", body: map[string]string{
		"email":    "other-ip@acme.co.uk",
		"password": "password123",
	}})
	assert.Equal(t, http.StatusCreated, rr.Code)
}

func TestLoginRejectsInactiveAccounts(t *testing.T) {
	h := newHarness(t, nil)
	h.seed(t, "pending@acme.co.uk", "password123", officeauth.RoleClient, userstore.StatusPending)
	h.seed(t, "suspended@acme.co.uk", "password123", officeauth.RoleClient, userstore.StatusSuspended)

	rr := h.do(t, call{method: http.MethodPost, path: "/api/auth/login", body: map[string]string{"email": "pending@acme.co.uk", "password": "password123"}})
	assert.Equal(t, http.StatusForbidden, rr.Code)
	assert.Equal(t, "Account is awaiting approval", errorMessage(t, rr))
	assert.Empty(t, rr.Result().Cookies())

	rr = h.do(t, call{method: http.MethodPost, path: "/api/auth/mobile/login", body: map[string]string{"email": "suspended@acme.co.uk", "password": "password123"}})
	assert.Equal(t, http.StatusForbidden, rr.Code)
	assert.Equal(t, "Account is suspended", errorMessage(t, rr))
}

func TestLoginBadCredentials(t *testing.T) {
	h := newHarness(t, nil)
	h.seed(t, "client@acme.co.uk", "password123", officeauth.RoleClient, userstore.StatusActive)

	rr := h.do(t, call{method: http.MethodPost, path: "/api/auth/login", body: map[string]string{"email": "client@acme.co.uk", "password": "wrong-password"}})
	assert.Equal(t, http.StatusUnauthorized, rr.Code)

	rr = h.do(t, call{method: http.MethodPost, path: "/api/auth/login", body: map[string]string{"email": "nobody@acme.co.uk", "password": "password123"}})
	assert.Equal(t, http.StatusUnauthorized, rr.Code)
	assert.Equal(t, "Invalid email or password", errorMessage(t, rr))
}

func TestSessionLifecycle(t *testing.T) {
	h := newHarness(t, nil)
	u := h.seed(t, "client@acme.co.uk", "password123", officeauth.RoleClient, userstore.StatusActive)

	rr := h.do(t, call{method: http.MethodPost, path: "/api/auth/login", body: map[string]string{"email": "CLIENT@acme.co.uk", "password": "password123"}})
	require.Equal(t, http.StatusOK, rr.Code, rr.Body.String())
	cookie := sessionCookie(t, rr)
	assert.True(t, cookie.HttpOnly)
	assert.NotEmpty(t, cookie.Value)

	rr = h.do(t, call{method: http.MethodGet, path: "/api/auth/me", cookie: cookie})
	require.Equal(t, http.StatusOK, rr.Code)
	var me struct {
		User officeauth.Identity `json:"user"`
	}
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &me))
	assert.Equal(t, officeauth.Identity{ID: u.ID, Email: u.Email, Role: officeauth.RoleClient}, me.User)

	rr = h.do(t, call{method: http.MethodPost, path: "/api/auth/logout", cookie: cookie})
	assert.Equal(t, http.StatusNoContent, rr.Code)
	cleared := sessionCookie(t, rr)
	assert.Empty(t, cleared.Value)
	assert.Equal(t, -1, cleared.MaxAge)

	rr = h.do(t, call{method: http.MethodGet, path: "/api/auth/me", cookie: cookie})
	assert.Equal(t, http.StatusUnauthorized, rr.Code)

	rr = h.do(t, call{method: http.MethodPost, path: "/api/auth/logout"})
	assert.Equal(t, http.StatusNoContent, rr.Code, "logout without a session still succeeds")
}

func TestMobileLoginIssuesBearerToken(t *testing.T) {
	h := newHarness(t, nil)
	u := h.seed(t, "mobile@acme.co.uk", "password123", officeauth.RoleClient, userstore.StatusActive)

	rr := h.do(t, call{method: http.MethodPost, path: "/api/auth/mobile/login", body: map[string]string{"email": "mobile@acme.co.uk", "password": "password123"}})
	require.Equal(t, http.StatusOK, rr.Code, rr.Body.String())
	assert.Empty(t, rr.Result().Cookies())

	var out struct {
		Token string         `json:"token"`
		User  userstore.User `json:"user"`
	}
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &out))
	require.NotEmpty(t, out.Token)
	assert.Equal(t, u.ID, out.User.ID)

	rr = h.do(t, call{method: http.MethodGet, path: "/api/auth/me", bearer: out.Token})
	assert.Equal(t, http.StatusOK, rr.Code)

	rr = h.do(t, call{method: http.MethodGet, path: "/api/auth/me", bearer: out.Token + "x"})
	assert.Equal(t, http.StatusUnauthorized, rr.Code)
}

func TestMobileLoginWithoutSecret(t *testing.T) {
	h := newHarness(t, func(cfg *officeauth.Config) { cfg.Token.Secret = nil })
	h.seed(t, "mobile@acme.co.uk", "password123", officeauth.RoleClient, userstore.StatusActive)

	rr := h.do(t, call{method: http.MethodPost, path: "/api/auth/mobile/login", body: map[string]string{"email": "mobile@acme.co.uk", "password": "password123"}})
	assert.Equal(t, http.StatusServiceUnavailable, rr.Code)

	rr = h.do(t, call{method: http.MethodPost, path: "/api/auth/login", body: map[string]string{"email": "mobile@acme.co.uk", "password": "password123"}})
	assert.Equal(t, http.StatusOK, rr.Code, "web sessions do not need the token secret")
}

func TestLoginUpgradesLegacyBcryptHash(t *testing.T) {
	h := newHarness(t, nil)

	legacy, err := bcrypt.GenerateFromPassword([]byte("password123"), bcrypt.MinCost)
	require.NoError(t, err)
	u := &userstore.User{Email: "legacy@acme.co.uk", PasswordHash: string(legacy), Status: userstore.StatusActive}
	require.NoError(t, h.users.Create(context.Background(), u))

	rr := h.do(t, call{method: http.MethodPost, path: "/api/auth/login", body: map[string]string{"email": "legacy@acme.co.uk", "password": "password123"}})
	require.Equal(t, http.StatusOK, rr.Code)

	stored, err := h.users.FindByID(context.Background(), u.ID)
	require.NoError(t, err)
	assert.True(t, strings.HasPrefix(stored.PasswordHash, "$argon2id$"))

	rr = h.do(t, call{method: http.MethodPost, path: "/api/auth/login", body: map[string]string{"email": "legacy@acme.co.uk", "password": "password123"}})
	assert.Equal(t, http.StatusOK, rr.Code)
}

func TestLoginRateLimit(t *testing.T) {
	h := newHarness(t, nil)

	for i := 0; i < 10; i++ {
		rr := h.do(t, call{method: http.MethodPost, path: "/api/auth/login", ip: "9.9.9.9", body: map[string]string{"email": "nobody@acme.co.uk", "password": "password123"}})
		require.Equal(t, http.StatusUnauthorized, rr.Code)
	}

	// web and mobile logins share the login budget
	rr := h.do(t, call{method: http.MethodPost, path: "/api/auth/mobile/login", ip: "9.9.9.9", body: map[string]string{"email": "nobody@acme.co.uk", "password": "password123"}})
	assert.Equal(t, http.StatusTooManyRequests, rr.Code)
}

func loginCookie(t *testing.T, h *harness, email string) *http.Cookie {
	t.Helper()
	rr := h.do(t, call{method: http.MethodPost, path: "/api/auth/login", body: map[string]string{"email": email, "password": "password123"}})
	require.Equal(t, http.StatusOK, rr.Code, rr.Body.String())
	return sessionCookie(t, rr)
}

func TestAdminRoutesRequireStaff(t *testing.T) {
	h := newHarness(t, nil)
	h.seed(t, "client@acme.co.uk", "password123", officeauth.RoleClient, userstore.StatusActive)
	h.seed(t, "admin@mmk.co.uk", "password123", officeauth.RoleAdmin, userstore.StatusActive)
	h.seed(t, "root@mmk.co.uk", "password123", officeauth.RoleSuperAdmin, userstore.StatusActive)
	h.seed(t, "new@acme.co.uk", "password123", officeauth.RoleClient, userstore.StatusPending)

	rr := h.do(t, call{method: http.MethodGet, path: "/api/admin/clients"})
	assert.Equal(t, http.StatusUnauthorized, rr.Code)

	rr = h.do(t, call{method: http.MethodGet, path: "/api/admin/clients", cookie: loginCookie(t, h, "client@acme.co.uk")})
	assert.Equal(t, http.StatusForbidden, rr.Code)

	for _, email := range []string{"admin@mmk.co.uk", "root@mmk.co.uk"} {
		rr = h.do(t, call{method: http.MethodGet, path: "/api/admin/clients", cookie: loginCookie(t, h, email)})
		require.Equal(t, http.StatusOK, rr.Code, email)

		var out struct {
			Clients []userstore.User `json:"clients"`
		}
		require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &out))
		assert.Len(t, out.Clients, 2, "only CLIENT accounts are listed")
	}
}

func TestApproveAndSuspendClient(t *testing.T) {
	h := newHarness(t, nil)
	client := h.seed(t, "client@acme.co.uk", "password123", officeauth.RoleClient, userstore.StatusPending)
	admin := h.seed(t, "admin@mmk.co.uk", "password123", officeauth.RoleAdmin, userstore.StatusActive)
	adminCookie := loginCookie(t, h, "admin@mmk.co.uk")

	path := "/api/admin/clients/" + client.ID + "/status"

	rr := h.do(t, call{method: http.MethodPatch, path: path, cookie: adminCookie, body: map[string]string{"status": "active"}})
	require.Equal(t, http.StatusOK, rr.Code, rr.Body.String())

	clientCookie := loginCookie(t, h, "client@acme.co.uk")
	rr = h.do(t, call{method: http.MethodGet, path: "/api/auth/me", cookie: clientCookie})
	require.Equal(t, http.StatusOK, rr.Code)

	rr = h.do(t, call{method: http.MethodPatch, path: path, cookie: adminCookie, body: map[string]string{"status": "SUSPENDED"}})
	require.Equal(t, http.StatusOK, rr.Code)

	rr = h.do(t, call{method: http.MethodGet, path: "/api/auth/me", cookie: clientCookie})
	assert.Equal(t, http.StatusUnauthorized, rr.Code, "suspension revokes live sessions")

	rr = h.do(t, call{method: http.MethodPost, path: "/api/auth/login", body: map[string]string{"email": "client@acme.co.uk", "password": "password123"}})
	assert.Equal(t, http.StatusForbidden, rr.Code)

	rr = h.do(t, call{method: http.MethodPatch, path: path, cookie: adminCookie, body: map[string]string{"status": "DELETED"}})
	assert.Equal(t, http.StatusBadRequest, rr.Code)

	rr = h.do(t, call{method: http.MethodPatch, path: "/api/admin/clients/missing/status", cookie: adminCookie, body: map[string]string{"status": "ACTIVE"}})
	assert.Equal(t, http.StatusNotFound, rr.Code)

	rr = h.do(t, call{method: http.MethodPatch, path: "/api/admin/clients/" + admin.ID + "/status", cookie: adminCookie, body: map[string]string{"status": "SUSPENDED"}})
	assert.Equal(t, http.StatusNotFound, rr.Code, "staff accounts are not managed here")
}

func TestSuspensionLeavesIssuedTokensUntilExpiry(t *testing.T) {
	h := newHarness(t, nil)
	client := h.seed(t, "mobile@acme.co.uk", "password123", officeauth.RoleClient, userstore.StatusActive)
	h.seed(t, "admin@mmk.co.uk", "password123", officeauth.RoleAdmin, userstore.StatusActive)
	adminCookie := loginCookie(t, h, "admin@mmk.co.uk")

	creds := map[string]string{"email": "mobile@acme.co.uk", "password": "password123"}
	rr := h.do(t, call{method: http.MethodPost, path: "/api/auth/mobile/login", body: creds})
	require.Equal(t, http.StatusOK, rr.Code, rr.Body.String())
	var issued struct {
		Token string `json:"token"`
	}
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &issued))
	require.NotEmpty(t, issued.Token)

	rr = h.do(t, call{method: http.MethodPatch, path: "/api/admin/clients/" + client.ID + "/status", cookie: adminCookie, body: map[string]string{"status": "SUSPENDED"}})
	require.Equal(t, http.StatusOK, rr.Code)

	rr = h.do(t, call{method: http.MethodGet, path: "/api/auth/me", bearer: issued.Token})
	assert.Equal(t, http.StatusOK, rr.Code, "bearer tokens are stateless and live until AUTH_TOKEN_TTL")

	rr = h.do(t, call{method: http.MethodPost, path: "/api/auth/mobile/login", body: creds})
	assert.Equal(t, http.StatusForbidden, rr.Code, "suspended accounts cannot obtain new tokens")
}

func TestHealthAndMetrics(t *testing.T) {
	h := newHarness(t, nil)

	rr := h.do(t, call{method: http.MethodGet, path: "/healthz"})
	assert.Equal(t, http.StatusOK, rr.Code)
	assert.JSONEq(t, `{"status":"ok"}`, rr.Body.String())

	h.do(t, call{method: http.MethodGet, path: "/api/auth/me"})

	rr = h.do(t, call{method: http.MethodGet, path: "/metrics"})
	require.Equal(t, http.StatusOK, rr.Code)
	assert.Contains(t, rr.Body.String(), "officeauth_resolve_anonymous_total")
	assert.Contains(t, rr.Body.String(), "officeauth_resolve_latency_seconds_bucket")
}

func TestResponsesCarryRequestID(t *testing.T) {
	h := newHarness(t, nil)

	rr := h.do(t, call{method: http.MethodGet, path: "/healthz"})
	assert.NotEmpty(t, rr.Header().Get("X-Request-ID"))
}
