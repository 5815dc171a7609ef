package chi

import (
	"net/http"
	"net/http/httptest"
	"testing"
)

func authHandler(keys []string) http.Handler {
	return BearerAuthMiddleware(keys)(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
	}))
}

func TestAuthDisabledWhenNoKeys(t *testing.T) {
	rec := httptest.NewRecorder()
	authHandler(nil).ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/v1/search", nil))
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", rec.Code)
	}
}

func TestAuthRejectsMissingHeader(t *testing.T) {
	rec := httptest.NewRecorder()
	authHandler([]string{"key-1"}).ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/v1/search", nil))
	if rec.Code != http.StatusUnauthorized {
		t.Fatalf("status = %d, want 401", rec.Code)
	}
}

func TestAuthRejectsWrongKey(t *testing.T) {
	req := httptest.NewRequest(http.MethodPost, "/v1/search", nil)
	req.Header.Set("Authorization", "Bearer wrong")
	rec := httptest.NewRecorder()
	authHandler([]string{"key-1"}).ServeHTTP(rec, req)
	if rec.Code != http.StatusUnauthorized {
		t.Fatalf("status = %d, want 401", rec.Code)
	}
}

func TestAuthAcceptsValidKey(t *testing.T) {
	req := httptest.NewRequest(http.MethodPost, "/v1/search", nil)
	req.Header.Set("Authorization", "Bearer key-1")
	rec := httptest.NewRecorder()
	authHandler([]string{"key-1"}).ServeHTTP(rec, req)
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", rec.Code)
	}
}

func TestAuthExemptsHealthAndMetrics(t *testing.T) {
	for _, path := range []string{"/health", "/metrics"} {
		rec := httptest.NewRecorder()
		authHandler([]string{"key-1"}).ServeHTTP(rec, httptest.NewRequest(http.MethodGet, path, nil))
		if rec.Code != http.StatusOK {
			t.Fatalf("%s status = %d, want 200", path, rec.Code)
		}
	}
}

func TestAuthRejectsNonBearerScheme(t *testing.T) {
	req := httptest.NewRequest(http.MethodPost, "/v1/search", nil)
	req.Header.Set("Authorization", "Basic dXNlcjpwYXNz")
	rec := httptest.NewRecorder()
	authHandler([]string{"key-1"}).ServeHTTP(rec, req)
	if rec.Code != http.StatusUnauthorized {
		t.Fatalf("status = %d, want 401", rec.Code)
	}
}
