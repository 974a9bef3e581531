package middleware

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"threadora-backend/internal/domain"
	"threadora-backend/pkg/utils"
)

func authedRequest(t *testing.T, role string) *http.Request {
	t.Helper()
	utils.SetSecret("test-secret")
	token, err := utils.GenerateJWT("u1", "u1@example.com", role, time.Hour)
	if err != nil {
		t.Fatal(err)
	}
	req := httptest.NewRequest(http.MethodGet, "/api/v1/orders", nil)
	req.Header.Set("Authorization", "Bearer "+token)
	return req
}

func TestAuthMiddlewarePopulatesUser(t *testing.T) {
	var got *domain.User
	next := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		got, _ = r.Context().Value(domain.UserContextKey).(*domain.User)
	})

	rec := httptest.NewRecorder()
	AuthMiddleware(next).ServeHTTP(rec, authedRequest(t, "customer"))
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d", rec.Code)
	}
	if got == nil || got.ID != "u1" || got.Role != "customer" {
		t.Errorf("user in context = %+v", got)
	}
}

func TestAuthMiddlewareAcceptsCookie(t *testing.T) {
	utils.SetSecret("test-secret")
	token, err := utils.GenerateJWT("u2", "u2@example.com", "customer", time.Hour)
	if err != nil {
		t.Fatal(err)
	}
	req := httptest.NewRequest(http.MethodGet, "/api/v1/cart", nil)
	req.AddCookie(&http.Cookie{Name: "accessToken", Value: token})

	rec := httptest.NewRecorder()
	called := false
	AuthMiddleware(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		called = true
	})).ServeHTTP(rec, req)
	if !called || rec.Code != http.StatusOK {
		t.Errorf("called = %v, status = %d", called, rec.Code)
	}
}

func TestAuthMiddlewareRejections(t *testing.T) {
	next := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		t.Error("handler should not run")
	})

	rec := httptest.NewRecorder()
	AuthMiddleware(next).ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/v1/orders", nil))
	if rec.Code != http.StatusUnauthorized {
		t.Errorf("no token status = %d, want 401", rec.Code)
	}

	req := httptest.NewRequest(http.MethodGet, "/api/v1/orders", nil)
	req.Header.Set("Authorization", "Bearer not-a-token")
	rec = httptest.NewRecorder()
	AuthMiddleware(next).ServeHTTP(rec, req)
	if rec.Code != http.StatusUnauthorized {
		t.Errorf("bad token status = %d, want 401", rec.Code)
	}
}

func TestAdminMiddlewareGate(t *testing.T) {
	called := false
	chain := AuthMiddleware(AdminMiddleware(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		called = true
	})))

	rec := httptest.NewRecorder()
	chain.ServeHTTP(rec, authedRequest(t, "customer"))
	if rec.Code != http.StatusForbidden || called {
		t.Errorf("customer: status = %d, called = %v, want 403 uncalled", rec.Code, called)
	}

	rec = httptest.NewRecorder()
	chain.ServeHTTP(rec, authedRequest(t, "admin"))
	if rec.Code != http.StatusOK || !called {
		t.Errorf("admin: status = %d, called = %v, want 200 called", rec.Code, called)
	}
}
