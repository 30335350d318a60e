package middleware

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"docflow/internal/auth"
	"docflow/internal/config"
	"docflow/internal/models"
	"docflow/internal/service"
	"docflow/internal/testutil"
)

var (
	boardUser = models.User{ID: 2, Name: "Board", Role: models.RoleBoshqaruv}
	headUser  = models.User{ID: 5, Name: "Head", Role: models.RoleTarmoq}
)

func newAuthMiddleware(dir *testutil.MemDirectory) *AuthMiddleware {
	return NewAuthMiddleware(auth.NewService(&config.JWTConfig{Secret: testutil.TestJWTSecret}), dir)
}

func actorEcho(w http.ResponseWriter, r *http.Request) {
	actor, ok := GetActor(r)
	if !ok {
		w.WriteHeader(http.StatusTeapot)
		return
	}
	_ = json.NewEncoder(w).Encode(actor)
}

func TestAuthenticate(t *testing.T) {
	dir := testutil.NewMemDirectory(boardUser)
	handler := newAuthMiddleware(dir).Authenticate(http.HandlerFunc(actorEcho))
	helper := testutil.NewAuthHelper()

	t.Run("valid token resolves actor", func(t *testing.T) {
		req := helper.CreateAuthenticatedRequest(t, http.MethodGet, "/", &boardUser, nil)
		rr := testutil.NewTestResponse()
		handler.ServeHTTP(rr, req)

		rr.AssertStatusOK(t)
		var got models.User
		rr.Decode(t, &got)
		assert.Equal(t, models.RoleBoshqaruv, got.Role)
	})

	t.Run("missing header", func(t *testing.T) {
		rr := testutil.NewTestResponse()
		handler.ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/", nil))
		rr.AssertStatusUnauthorized(t)
	})

	t.Run("malformed header", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodGet, "/", nil)
		req.Header.Set("Authorization", "Token abc")
		rr := testutil.NewTestResponse()
		handler.ServeHTTP(rr, req)
		rr.AssertStatusUnauthorized(t)
	})

	t.Run("bad signature", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodGet, "/", nil)
		token, err := (&testutil.AuthHelper{JWTSecret: []byte("wrong")}).GenerateToken(boardUser.ID)
		require.NoError(t, err)
		req.Header.Set("Authorization", "Bearer "+token)
		rr := testutil.NewTestResponse()
		handler.ServeHTTP(rr, req)
		rr.AssertStatusUnauthorized(t)
	})

	t.Run("unknown user", func(t *testing.T) {
		req := helper.CreateAuthenticatedRequest(t, http.MethodGet, "/", &headUser, nil)
		rr := testutil.NewTestResponse()
		handler.ServeHTTP(rr, req)
		rr.AssertStatusUnauthorized(t)
	})

	t.Run("directory failure", func(t *testing.T) {
		broken := testutil.NewMemDirectory(boardUser)
		broken.Err = assert.AnError
		h := newAuthMiddleware(broken).Authenticate(http.HandlerFunc(actorEcho))

		req := helper.CreateAuthenticatedRequest(t, http.MethodGet, "/", &boardUser, nil)
		rr := testutil.NewTestResponse()
		h.ServeHTTP(rr, req)
		rr.AssertStatus(t, http.StatusInternalServerError)
	})
}

func TestRequireAnyRole(t *testing.T) {
	handler := RequireAnyRole(models.RoleAdmin, models.RoleBoshqaruv)(http.HandlerFunc(actorEcho))

	tests := []struct {
		name   string
		actor  *models.User
		status int
	}{
		{"allowed role", &boardUser, http.StatusOK},
		{"other role", &headUser, http.StatusForbidden},
		{"no actor", nil, http.StatusUnauthorized},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodGet, "/", nil)
			if tt.actor != nil {
				req = req.WithContext(WithActor(req.Context(), tt.actor))
			}
			rr := testutil.NewTestResponse()
			handler.ServeHTTP(rr, req)
			rr.AssertStatus(t, tt.status)
		})
	}
}

func TestRequestMeta(t *testing.T) {
	var got service.RequestMeta
	handler := RequestMeta(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		got = service.RequestMetaFrom(r.Context())
	}))

	req := httptest.NewRequest(http.MethodPost, "/", nil)
	req.Header.Set("X-Forwarded-For", "10.1.1.1, 172.16.0.1")
	req.Header.Set("User-Agent", "docflow-test")
	handler.ServeHTTP(httptest.NewRecorder(), req)

	assert.Equal(t, "10.1.1.1", got.IPAddress)
	assert.Equal(t, "docflow-test", got.UserAgent)
}

func TestGetIP(t *testing.T) {
	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.RemoteAddr = "192.0.2.7:51234"
	assert.Equal(t, "192.0.2.7", getIP(req))

	req.Header.Set("X-Real-IP", "198.51.100.2")
	assert.Equal(t, "198.51.100.2", getIP(req))
}

func TestRequestID(t *testing.T) {
	var seen string
	handler := RequestID(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		seen = GetRequestID(r)
	}))

	rr := httptest.NewRecorder()
	handler.ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/", nil))
	_, err := uuid.Parse(seen)
	require.NoError(t, err)
	assert.Equal(t, seen, rr.Header().Get("X-Request-ID"))

	given := uuid.NewString()
	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.Header.Set("X-Request-ID", given)
	handler.ServeHTTP(httptest.NewRecorder(), req)
	assert.Equal(t, given, seen)
}

func TestRateLimiter(t *testing.T) {
	rl := NewRateLimiter(&config.RateLimitConfig{Enabled: true, Requests: 2, Duration: time.Hour})
	handler := rl.Limit(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))

	do := func(ip string) int {
		req := httptest.NewRequest(http.MethodGet, "/", nil)
		req.RemoteAddr = ip + ":1234"
		rr := httptest.NewRecorder()
		handler.ServeHTTP(rr, req)
		return rr.Code
	}

	assert.Equal(t, http.StatusOK, do("10.0.0.1"))
	assert.Equal(t, http.StatusOK, do("10.0.0.1"))
	assert.Equal(t, http.StatusTooManyRequests, do("10.0.0.1"))
	assert.Equal(t, http.StatusOK, do("10.0.0.2"))

	rl.cleanup(time.Now().Add(2 * visitorTTL))
	rl.mu.Lock()
	assert.Empty(t, rl.visitors)
	rl.mu.Unlock()
}

func TestRateLimiter_Disabled(t *testing.T) {
	rl := NewRateLimiter(&config.RateLimitConfig{Enabled: false, Requests: 1, Duration: time.Hour})
	handler := rl.Limit(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))

	for i := 0; i < 5; i++ {
		rr := httptest.NewRecorder()
		handler.ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/", nil))
		assert.Equal(t, http.StatusOK, rr.Code)
	}
}

func TestRateLimiter_RunStops(t *testing.T) {
	rl := NewRateLimiter(&config.RateLimitConfig{Enabled: true, Requests: 1, Duration: time.Second})
	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		rl.Run(ctx)
		close(done)
	}()
	cancel()

	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("Run did not stop after cancel")
	}
}

func TestCORS(t *testing.T) {
	cors := NewCORSMiddleware(&config.CORSConfig{
		AllowedOrigins: []string{"https://docs.bank.uz"},
		AllowedMethods: []string{"GET", "POST"},
		AllowedHeaders: []string{"Authorization", "Content-Type"},
		MaxAge:         600,
	})
	handler := cors.Handler(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))

	req := httptest.NewRequest(http.MethodOptions, "/api/v1/documents", nil)
	req.Header.Set("Origin", "https://docs.bank.uz")
	req.Header.Set("Access-Control-Request-Method", "POST")
	rr := httptest.NewRecorder()
	handler.ServeHTTP(rr, req)

	assert.Equal(t, http.StatusNoContent, rr.Code)
	assert.Equal(t, "https://docs.bank.uz", rr.Header().Get("Access-Control-Allow-Origin"))
	assert.Equal(t, "GET, POST", rr.Header().Get("Access-Control-Allow-Methods"))
	assert.Equal(t, "600", rr.Header().Get("Access-Control-Max-Age"))

	req = httptest.NewRequest(http.MethodGet, "/", nil)
	req.Header.Set("Origin", "https://evil.example")
	rr = httptest.NewRecorder()
	handler.ServeHTTP(rr, req)
	assert.Empty(t, rr.Header().Get("Access-Control-Allow-Origin"))
}

func TestSecurityHeaders(t *testing.T) {
	handler := SecurityHeaders(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))

	rr := httptest.NewRecorder()
	handler.ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/api/v1/documents", nil))
	assert.Equal(t, "nosniff", rr.Header().Get("X-Content-Type-Options"))
	assert.NotEmpty(t, rr.Header().Get("Content-Security-Policy"))

	rr = httptest.NewRecorder()
	handler.ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/swagger/index.html", nil))
	assert.Empty(t, rr.Header().Get("Content-Security-Policy"))
}
