package main

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/sushihentaime/blogsphere/internal/userservice"
)

func newBareApplication() *application {
	cfg := testConfig()
	return &application{
		config:  cfg,
		logger:  testLogger(),
		media:   &fakeMedia{},
		limiter: newIPLimiter(cfg.LimiterRPS, cfg.LimiterBurst),
	}
}

func okHandler(w http.ResponseWriter, r *http.Request) {
	w.WriteHeader(http.StatusOK)
}

func TestRecoverPanic(t *testing.T) {
	app := newBareApplication()

	handler := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		panic("something went wrong")
	})

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	res := httptest.NewRecorder()

	app.recoverPanic(handler).ServeHTTP(res, req)

	assert.Equal(t, http.StatusInternalServerError, res.Code)
	assert.Equal(t, "close", res.Header().Get("Connection"))
	assert.Contains(t, res.Body.String(), `"success": false`)
}

func TestLogRequest(t *testing.T) {
	app := newBareApplication()

	var seen string
	handler := app.logRequest(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		seen = requestID(r)
	}))

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	res := httptest.NewRecorder()
	handler.ServeHTTP(res, req)
	assert.Len(t, seen, 36)
	assert.Equal(t, seen, res.Header().Get("X-Request-ID"))

	req = httptest.NewRequest(http.MethodGet, "/", nil)
	req.Header.Set("X-Request-ID", "from-the-proxy")
	res = httptest.NewRecorder()
	handler.ServeHTTP(res, req)
	assert.Equal(t, "from-the-proxy", seen)
	assert.Equal(t, "from-the-proxy", res.Header().Get("X-Request-ID"))
}

func TestRateLimit(t *testing.T) {
	app := newBareApplication()
	app.config.LimiterEnabled = true
	app.limiter = newIPLimiter(1, 2)

	handler := app.rateLimit(http.HandlerFunc(okHandler))

	send := func(addr string) int {
		req := httptest.NewRequest(http.MethodGet, "/", nil)
		req.RemoteAddr = addr
		res := httptest.NewRecorder()
		handler.ServeHTTP(res, req)
		return res.Code
	}

	assert.Equal(t, http.StatusOK, send("10.0.0.1:1234"))
	assert.Equal(t, http.StatusOK, send("10.0.0.1:1235"))
	assert.Equal(t, http.StatusTooManyRequests, send("10.0.0.1:1236"))
	assert.Equal(t, http.StatusOK, send("10.0.0.2:1234"), "other clients have their own bucket")

	app.config.LimiterEnabled = false
	assert.Equal(t, http.StatusOK, send("10.0.0.1:1237"))
}

func TestIPLimiterSweep(t *testing.T) {
	l := newIPLimiter(1, 1)
	l.allow("a")
	l.allow("b")
	l.clients["a"].lastSeen = time.Now().Add(-time.Hour)

	l.sweep(time.Minute)

	assert.NotContains(t, l.clients, "a")
	assert.Contains(t, l.clients, "b")
}

func TestMetrics(t *testing.T) {
	app := newBareApplication()
	route := "/v1/test/:id"

	before := testutil.ToFloat64(httpRequests.WithLabelValues(route, http.MethodGet, "418"))

	handler := app.metrics(route, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusTeapot)
	})
	handler.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "/v1/test/abc", nil))

	after := testutil.ToFloat64(httpRequests.WithLabelValues(route, http.MethodGet, "418"))
	assert.Equal(t, before+1, after)
}

func TestEnableCORS(t *testing.T) {
	app := newBareApplication()
	handler := app.enableCORS(http.HandlerFunc(okHandler))

	req := httptest.NewRequest(http.MethodOptions, "/v1/blogs", nil)
	req.Header.Set("Origin", "http://localhost:3000")
	req.Header.Set("Access-Control-Request-Method", http.MethodPost)
	res := httptest.NewRecorder()
	handler.ServeHTTP(res, req)
	assert.Equal(t, "http://localhost:3000", res.Header().Get("Access-Control-Allow-Origin"))

	req = httptest.NewRequest(http.MethodGet, "/v1/blogs", nil)
	req.Header.Set("Origin", "http://evil.example.com")
	res = httptest.NewRecorder()
	handler.ServeHTTP(res, req)
	assert.Empty(t, res.Header().Get("Access-Control-Allow-Origin"))
}

func TestRequirePermission(t *testing.T) {
	app := newBareApplication()
	handler := app.requirePermission(okHandler, userservice.PermissionWriteBlog)

	testCases := []struct {
		name           string
		user           *userservice.User
		expectedStatus int
	}{
		{name: "anonymous", user: userservice.AnonymousUser, expectedStatus: http.StatusUnauthorized},
		{name: "not activated", user: &userservice.User{Username: "new"}, expectedStatus: http.StatusForbidden},
		{name: "missing permission", user: &userservice.User{Username: "reader", Activated: true}, expectedStatus: http.StatusForbidden},
		{name: "writer", user: &userservice.User{Username: "writer", Activated: true, Permissions: userservice.Permissions{userservice.PermissionWriteBlog}}, expectedStatus: http.StatusOK},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			req := app.createUserContext(httptest.NewRequest(http.MethodPost, "/", nil), tc.user)
			res := httptest.NewRecorder()

			handler.ServeHTTP(res, req)

			assert.Equal(t, tc.expectedStatus, res.Code)
		})
	}
}

func TestAuthenticate(t *testing.T) {
	app, _, events := newTestApplication(t)
	ts := newTestServer(t, app.routes())
	token := registerAndLogin(t, ts, events, "authuser")

	var seen *userservice.User
	handler := app.authenticate(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		seen = app.getUserContext(r)
		w.WriteHeader(http.StatusOK)
	}))

	testCases := []struct {
		name           string
		header         string
		expectedStatus int
		anonymous      bool
	}{
		{name: "no authentication header", expectedStatus: http.StatusOK, anonymous: true},
		{name: "malformed header", header: "Token abc", expectedStatus: http.StatusUnauthorized},
		{name: "invalid token", header: "Bearer invalid-token", expectedStatus: http.StatusUnauthorized},
		{name: "unknown token", header: "Bearer AAAAAAAAAAAAAAAAAAAAAAAAAA", expectedStatus: http.StatusUnauthorized},
		{name: "valid token", header: "Bearer " + token, expectedStatus: http.StatusOK},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			seen = nil
			req := httptest.NewRequest(http.MethodGet, "/", nil)
			if tc.header != "" {
				req.Header.Set("Authorization", tc.header)
			}
			res := httptest.NewRecorder()

			handler.ServeHTTP(res, req)

			assert.Equal(t, tc.expectedStatus, res.Code)
			if tc.expectedStatus != http.StatusOK {
				return
			}
			require.NotNil(t, seen)
			assert.Equal(t, tc.anonymous, seen.IsAnonymous())
			if !tc.anonymous {
				assert.Equal(t, "authuser", seen.Username)
			}
		})
	}
}
