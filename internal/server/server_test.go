package server_test

import (
	"context"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/localtv/localtv/internal/auth"
	"github.com/localtv/localtv/internal/server"
	"github.com/pashagolub/pgxmock/v3"
)

const testJWTSecret = "test-secret"

// --- Mock types ---

type mockPinger struct{ err error }

func (m *mockPinger) Ping(ctx context.Context) error { return m.err }

type mockStorage struct{}

func (m *mockStorage) PutObject(ctx context.Context, key string, body io.Reader, size int64, contentType string) error {
	return nil
}

func (m *mockStorage) GenerateDownloadURL(ctx context.Context, key string, expiry time.Duration) (string, error) {
	return "https://example.com/download/" + key, nil
}

func (m *mockStorage) DeleteObject(ctx context.Context, key string) error {
	return nil
}

// --- Helpers ---

func newServerWithoutDB() *server.Server {
	return server.New(server.Config{})
}

func mockPool(t *testing.T) pgxmock.PgxPoolIface {
	t.Helper()
	mock, err := pgxmock.NewPool()
	if err != nil {
		t.Fatalf("failed to create pgxmock pool: %v", err)
	}
	t.Cleanup(func() { mock.Close() })
	return mock
}

func newServerWithDB(t *testing.T) (*server.Server, pgxmock.PgxPoolIface) {
	t.Helper()
	mock := mockPool(t)

	srv := server.New(server.Config{
		DB:         mock,
		Storage:    &mockStorage{},
		JWTSecret:  testJWTSecret,
		BaseURL:    "https://tv.example.com",
		SiteDomain: "tv.example.com",
	})
	return srv, mock
}

func executeRequest(srv *server.Server, method, path string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(method, path, nil)
	req.Host = "tv.example.com"
	rec := httptest.NewRecorder()
	srv.ServeHTTP(rec, req)
	return rec
}

func executeRequestWithBody(srv *server.Server, method, path, body string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(method, path, strings.NewReader(body))
	req.Host = "tv.example.com"
	req.Header.Set("Content-Type", "application/json")
	rec := httptest.NewRecorder()
	srv.ServeHTTP(rec, req)
	return rec
}

func executeAuthedRequest(t *testing.T, srv *server.Server, method, path, userID string) *httptest.ResponseRecorder {
	t.Helper()
	token, err := auth.GenerateAccessToken(testJWTSecret, userID)
	if err != nil {
		t.Fatalf("generate token: %v", err)
	}
	req := httptest.NewRequest(method, path, nil)
	req.Host = "tv.example.com"
	req.Header.Set("Authorization", "Bearer "+token)
	rec := httptest.NewRecorder()
	srv.ServeHTTP(rec, req)
	return rec
}

func expectSiteLookup(mock pgxmock.PgxPoolIface) {
	mock.ExpectQuery(`SELECT id, domain, name FROM sites WHERE domain = \$1`).
		WithArgs("tv.example.com").
		WillReturnRows(pgxmock.NewRows([]string{"id", "domain", "name"}).
			AddRow("site-1", "tv.example.com", "Example TV"))
}

// --- Health ---

func TestHealthEndpointReturnsOK(t *testing.T) {
	srv := newServerWithoutDB()
	rec := executeRequest(srv, http.MethodGet, "/api/health")

	if rec.Code != http.StatusOK {
		t.Errorf("expected status 200, got %d", rec.Code)
	}
	if body := rec.Body.String(); body != `{"status":"ok"}` {
		t.Errorf("unexpected body: %s", body)
	}
	if ct := rec.Header().Get("Content-Type"); ct != "application/json" {
		t.Errorf("expected application/json, got %q", ct)
	}
}

func TestHealthEndpointWithPingFailure(t *testing.T) {
	srv := server.New(server.Config{Pinger: &mockPinger{err: errors.New("connection refused")}})
	rec := executeRequest(srv, http.MethodGet, "/api/health")

	if rec.Code != http.StatusServiceUnavailable {
		t.Errorf("expected status 503, got %d", rec.Code)
	}
	if !strings.Contains(rec.Body.String(), "unhealthy") {
		t.Errorf("expected unhealthy body, got %s", rec.Body.String())
	}
}

func TestHealthEndpointWrongMethodReturnsMethodNotAllowed(t *testing.T) {
	srv := newServerWithoutDB()
	rec := executeRequest(srv, http.MethodPost, "/api/health")

	if rec.Code != http.StatusMethodNotAllowed {
		t.Errorf("expected status 405, got %d", rec.Code)
	}
}

func TestMetricsEndpointExposesCounters(t *testing.T) {
	srv := newServerWithoutDB()
	rec := executeRequest(srv, http.MethodGet, "/metrics")

	if rec.Code != http.StatusOK {
		t.Fatalf("expected status 200, got %d", rec.Code)
	}
	if !strings.Contains(rec.Body.String(), "go_goroutines") {
		t.Error("expected Go runtime metrics in /metrics output")
	}
}

// --- Route registration ---

func TestNilDBRoutesNotRegistered(t *testing.T) {
	srv := newServerWithoutDB()

	paths := []struct{ method, path string }{
		{http.MethodPost, "/api/auth/login"},
		{http.MethodGet, "/api/admin/moderation/videos"},
		{http.MethodGet, "/api/admin/widget-settings"},
		{http.MethodPost, "/api/submit"},
		{http.MethodGet, "/api/notifications/preferences"},
	}
	for _, p := range paths {
		rec := executeRequest(srv, p.method, p.path)
		if rec.Code != http.StatusNotFound {
			t.Errorf("%s %s: expected 404 without a database, got %d", p.method, p.path, rec.Code)
		}
	}
}

func TestLogoutRouteRegisteredWithDB(t *testing.T) {
	srv, _ := newServerWithDB(t)
	rec := executeRequest(srv, http.MethodPost, "/api/auth/logout")

	if rec.Code != http.StatusNoContent {
		t.Errorf("expected status 204, got %d", rec.Code)
	}
}

func TestLogoutCookieSecureFlag(t *testing.T) {
	for _, secure := range []bool{false, true} {
		srv := server.New(server.Config{DB: mockPool(t), JWTSecret: testJWTSecret, SecureCookies: secure})
		rec := executeRequest(srv, http.MethodPost, "/api/auth/logout")

		cookies := rec.Result().Cookies()
		if len(cookies) != 1 {
			t.Fatalf("secure=%v: expected one cookie, got %d", secure, len(cookies))
		}
		if cookies[0].Secure != secure {
			t.Errorf("cookie Secure = %v, want %v", cookies[0].Secure, secure)
		}
	}
}

func TestAuthRoutesRateLimited(t *testing.T) {
	srv, _ := newServerWithDB(t)

	var lastCode int
	for i := 0; i < 20; i++ {
		rec := executeRequestWithBody(srv, http.MethodPost, "/api/auth/login", "{}")
		lastCode = rec.Code
		if lastCode == http.StatusTooManyRequests {
			return
		}
	}
	t.Errorf("expected 429 after many rapid requests, last status was %d", lastCode)
}

func TestPasswordRouteRequiresAuth(t *testing.T) {
	srv, _ := newServerWithDB(t)
	rec := executeRequestWithBody(srv, http.MethodPost, "/api/auth/password", "{}")

	if rec.Code != http.StatusUnauthorized {
		t.Errorf("expected status 401, got %d", rec.Code)
	}
}

func TestPreferencesRouteRequiresAuth(t *testing.T) {
	srv, _ := newServerWithDB(t)
	rec := executeRequest(srv, http.MethodGet, "/api/notifications/preferences")

	if rec.Code != http.StatusUnauthorized {
		t.Errorf("expected status 401, got %d", rec.Code)
	}
}

// --- Admin routes ---

func TestAdminRoutesRequireAuth(t *testing.T) {
	srv, mock := newServerWithDB(t)
	expectSiteLookup(mock)

	rec := executeRequest(srv, http.MethodGet, "/api/admin/moderation/videos")

	if rec.Code != http.StatusUnauthorized {
		t.Errorf("expected status 401, got %d", rec.Code)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Errorf("unmet expectations: %v", err)
	}
}

func TestAdminRoutesRejectNonAdmin(t *testing.T) {
	srv, mock := newServerWithDB(t)
	expectSiteLookup(mock)
	mock.ExpectQuery(`SELECT u.is_superuser OR EXISTS`).
		WithArgs("site-1", "user-1").
		WillReturnRows(pgxmock.NewRows([]string{"is_admin"}).AddRow(false))

	rec := executeAuthedRequest(t, srv, http.MethodGet, "/api/admin/moderation/comments", "user-1")

	if rec.Code != http.StatusForbidden {
		t.Errorf("expected status 403, got %d", rec.Code)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Errorf("unmet expectations: %v", err)
	}
}

func TestWidgetSettingsRouteServesSiteAdmin(t *testing.T) {
	srv, mock := newServerWithDB(t)
	expectSiteLookup(mock)
	mock.ExpectQuery(`SELECT u.is_superuser OR EXISTS`).
		WithArgs("site-1", "admin-1").
		WillReturnRows(pgxmock.NewRows([]string{"is_admin"}).AddRow(true))
	mock.ExpectQuery(`SELECT title, icon_key, css_key FROM widget_settings WHERE site_id = \$1`).
		WithArgs("site-1").
		WillReturnError(pgx.ErrNoRows)

	rec := executeAuthedRequest(t, srv, http.MethodGet, "/api/admin/widget-settings", "admin-1")

	if rec.Code != http.StatusOK {
		t.Fatalf("expected status 200, got %d: %s", rec.Code, rec.Body.String())
	}
	if !strings.Contains(rec.Body.String(), "Watch Videos on Example TV") {
		t.Errorf("expected default widget title, got %s", rec.Body.String())
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Errorf("unmet expectations: %v", err)
	}
}

func TestSubmitRouteResolvesSite(t *testing.T) {
	srv, mock := newServerWithDB(t)
	mock.ExpectQuery(`SELECT id, domain, name FROM sites WHERE domain = \$1`).
		WithArgs("tv.example.com").
		WillReturnError(pgx.ErrNoRows)

	rec := executeRequestWithBody(srv, http.MethodPost, "/api/submit", `{"url":"https://example.org"}`)

	if rec.Code != http.StatusNotFound {
		t.Errorf("expected status 404 for unknown site, got %d", rec.Code)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Errorf("unmet expectations: %v", err)
	}
}

func TestDocsRoutesRegisteredWithoutDB(t *testing.T) {
	srv := newServerWithoutDB()

	rec := executeRequest(srv, http.MethodGet, "/api/docs/openapi.yaml")
	if rec.Code != http.StatusOK {
		t.Errorf("expected status 200 for OpenAPI document, got %d", rec.Code)
	}

	rec = executeRequest(srv, http.MethodGet, "/api/docs")
	if csp := rec.Header().Get("Content-Security-Policy"); !strings.Contains(csp, "cdn.jsdelivr.net") {
		t.Errorf("docs page should override the API CSP, got %q", csp)
	}
}
