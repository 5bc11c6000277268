package middleware

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"parcel-backend/internal/auth"
	"parcel-backend/internal/config"
	"parcel-backend/internal/models"
)

func newAuth(t *testing.T) (*AuthMiddleware, *auth.JWTManager) {
	t.Helper()
	cfg := &config.Config{}
	cfg.JWT.Secret = "test-secret"
	cfg.JWT.ExpirationHours = 1
	m := auth.NewJWTManager(cfg)
	return NewAuthMiddleware(m), m
}

func TestAuthenticatePutsActorInContext(t *testing.T) {
	mw, jwt := newAuth(t)
	want := models.Actor{UserID: 4, CompanyID: 2, Role: models.RoleSubadmin, BranchCity: "Rajkot"}
	token, err := jwt.GenerateToken(want)
	if err != nil {
		t.Fatal(err)
	}

	var got models.Actor
	h := mw.Authenticate(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		got, _ = GetActorFromContext(r.Context())
		w.WriteHeader(http.StatusNoContent)
	}))

	req := httptest.NewRequest(http.MethodGet, "/booking", nil)
	req.Header.Set("Authorization", "Bearer "+token)
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)

	if rec.Code != http.StatusNoContent {
		t.Fatalf("status = %d", rec.Code)
	}
	if got != want {
		t.Errorf("actor = %+v, want %+v", got, want)
	}
	scope, err := got.Scope()
	if err != nil || scope.FromCity != "Rajkot" || scope.CompanyID != 2 {
		t.Errorf("scope = %+v, %v", scope, err)
	}
}

func TestAuthenticateRejects(t *testing.T) {
	mw, _ := newAuth(t)
	h := mw.Authenticate(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		t.Error("handler reached")
	}))

	for _, header := range []string{"", "Token abc", "Bearer not.a.jwt"} {
		req := httptest.NewRequest(http.MethodGet, "/booking", nil)
		if header != "" {
			req.Header.Set("Authorization", header)
		}
		rec := httptest.NewRecorder()
		h.ServeHTTP(rec, req)
		if rec.Code != http.StatusUnauthorized {
			t.Errorf("%q: status = %d, want 401", header, rec.Code)
		}
	}
}

func TestRequireRole(t *testing.T) {
	h := RequireRole(models.RoleAdmin)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	}))

	tests := []struct {
		name   string
		actor  *models.Actor
		status int
	}{
		{"admin", &models.Actor{CompanyID: 1, Role: models.RoleAdmin}, http.StatusOK},
		{"employee", &models.Actor{CompanyID: 1, Role: models.RoleEmployee, BranchID: "b1"}, http.StatusForbidden},
		{"anonymous", nil, http.StatusUnauthorized},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodDelete, "/booking/1", nil)
			if tt.actor != nil {
				req = req.WithContext(WithActor(req.Context(), *tt.actor))
			}
			rec := httptest.NewRecorder()
			h.ServeHTTP(rec, req)
			if rec.Code != tt.status {
				t.Errorf("status = %d, want %d", rec.Code, tt.status)
			}
		})
	}
}

func TestRequestLoggingAssignsID(t *testing.T) {
	var seen string
	h := RequestLogging(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		seen = GetRequestID(r.Context())
	}))

	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/booking", nil))
	if seen == "" || rec.Header().Get(RequestIDHeader) != seen {
		t.Errorf("request id %q, header %q", seen, rec.Header().Get(RequestIDHeader))
	}

	req := httptest.NewRequest(http.MethodGet, "/booking", nil)
	req.Header.Set(RequestIDHeader, "upstream-1")
	rec = httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	if seen != "upstream-1" {
		t.Errorf("upstream id not kept: %q", seen)
	}
}

func TestPanicRecovery(t *testing.T) {
	h := PanicRecovery(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		panic("boom")
	}))
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/", nil))
	if rec.Code != http.StatusInternalServerError {
		t.Errorf("status = %d", rec.Code)
	}
}
