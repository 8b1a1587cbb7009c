package handler

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"golang.org/x/time/rate"

	"github.com/hitoshi/fixman/internal/middleware"
	"github.com/hitoshi/fixman/internal/model"
)

// mockRouterAuthenticator はルーティングテスト用のAuthenticator実装。
type mockRouterAuthenticator struct {
	authenticateFn func(ctx context.Context, accessToken string) (*model.User, error)
}

func (m *mockRouterAuthenticator) Authenticate(ctx context.Context, accessToken string) (*model.User, error) {
	if m.authenticateFn != nil {
		return m.authenticateFn(ctx, accessToken)
	}
	return nil, errors.New("認証に失敗しました")
}

func newTestRouter(t *testing.T, authenticator middleware.Authenticator) http.Handler {
	t.Helper()
	rl := middleware.NewRateLimiter(middleware.RateLimiterConfig{
		GeneralRate:     rate.Limit(100),
		GeneralBurst:    100,
		LoginRate:       rate.Limit(100),
		LoginBurst:      100,
		CleanupInterval: time.Hour,
	})
	t.Cleanup(rl.Stop)

	return NewRouter(&RouterDeps{
		Authenticator:     authenticator,
		CORSAllowedOrigin: "http://localhost:3000",
		RateLimiter:       rl,
		AuthService:       &mockAuthService{},
		Users:             &mockUserRepo{},
		Roles:             &mockRoleRepo{},
		Tokens:            &mockTokenRepo{},
		Catalog:           &mockCatalogRepo{},
		Devices:           &mockDeviceRepo{},
		Orders:            &mockOrderRepo{},
		Payments:          &mockPaymentRepo{},
		Sanitizer:         newTestSanitizer(),
	})
}

func TestRouter_Health_IsPublic(t *testing.T) {
	router := newTestRouter(t, &mockRouterAuthenticator{})

	req := httptest.NewRequest(http.MethodGet, "/health", nil)
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)

	if w.Code != http.StatusOK {
		t.Errorf("status = %d, want %d", w.Code, http.StatusOK)
	}
}

func TestRouter_AuthRoutes_ArePublic(t *testing.T) {
	router := newTestRouter(t, &mockRouterAuthenticator{})

	targets := []string{
		"/v1/auth/register",
		"/v1/auth/login",
		"/v1/auth/refresh",
		"/v1/auth/logout",
	}
	for _, target := range targets {
		req := jsonRequest(http.MethodPost, target, map[string]string{})
		w := httptest.NewRecorder()
		router.ServeHTTP(w, req)

		// 認証ミドルウェアを通らないため401にはならない
		if w.Code == http.StatusUnauthorized {
			t.Errorf("%s: status = 401, auth routes should not require a bearer token", target)
		}
	}
}

func TestRouter_ProtectedRoutes_RequireBearerToken(t *testing.T) {
	router := newTestRouter(t, &mockRouterAuthenticator{})

	targets := []struct {
		method string
		path   string
	}{
		{http.MethodGet, "/v1/users"},
		{http.MethodGet, "/v1/roles"},
		{http.MethodGet, "/v1/device-types"},
		{http.MethodGet, "/v1/brands"},
		{http.MethodGet, "/v1/models"},
		{http.MethodGet, "/v1/devices"},
		{http.MethodGet, "/v1/orders"},
		{http.MethodGet, "/v1/assigns"},
		{http.MethodGet, "/v1/payments"},
	}
	for _, target := range targets {
		req := httptest.NewRequest(target.method, target.path, nil)
		w := httptest.NewRecorder()
		router.ServeHTTP(w, req)

		if w.Code != http.StatusUnauthorized {
			t.Errorf("%s %s: status = %d, want %d", target.method, target.path, w.Code, http.StatusUnauthorized)
		}
	}
}

func TestRouter_ProtectedRoute_WithValidToken_Succeeds(t *testing.T) {
	authenticator := &mockRouterAuthenticator{
		authenticateFn: func(ctx context.Context, accessToken string) (*model.User, error) {
			if accessToken != "valid-access-token" {
				return nil, errors.New("認証に失敗しました")
			}
			return &model.User{ID: 7, IsActive: true}, nil
		},
	}
	router := newTestRouter(t, authenticator)

	req := httptest.NewRequest(http.MethodGet, "/v1/orders", nil)
	req.Header.Set("Authorization", "Bearer valid-access-token")
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)

	if w.Code != http.StatusOK {
		t.Errorf("status = %d, want %d", w.Code, http.StatusOK)
	}
}

func TestRouter_UnknownRoute_ReturnsNotFound(t *testing.T) {
	router := newTestRouter(t, &mockRouterAuthenticator{})

	req := httptest.NewRequest(http.MethodGet, "/v1/unknown", nil)
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)

	if w.Code != http.StatusNotFound {
		t.Errorf("status = %d, want %d", w.Code, http.StatusNotFound)
	}
}
