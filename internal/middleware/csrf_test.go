package middleware

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
)

func TestCSRFMiddleware_SkipsSafeMethods(t *testing.T) {
	handler := NewCSRFMiddleware()(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	}))

	for _, method := range []string{http.MethodGet, http.MethodHead, http.MethodOptions} {
		req := httptest.NewRequest(method, "/api/tokens", nil)
		rec := httptest.NewRecorder()
		handler.ServeHTTP(rec, req)
		if rec.Code != http.StatusOK {
			t.Errorf("%s: status = %d, want 200", method, rec.Code)
		}
	}
}

func TestCSRFMiddleware_ValidToken(t *testing.T) {
	handler := NewCSRFMiddleware()(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	}))

	req := httptest.NewRequest(http.MethodPost, "/api/tokens", nil)
	req.AddCookie(&http.Cookie{Name: "csrf_token", Value: "token-abc"})
	req.Header.Set("X-CSRF-Token", "token-abc")
	rec := httptest.NewRecorder()

	handler.ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Errorf("status = %d, want 200", rec.Code)
	}
}

func TestCSRFMiddleware_MissingCookie(t *testing.T) {
	handler := NewCSRFMiddleware()(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		t.Fatal("next handler should not be called")
	}))

	req := httptest.NewRequest(http.MethodPost, "/api/tokens", nil)
	req.Header.Set("X-CSRF-Token", "token-abc")
	rec := httptest.NewRecorder()

	handler.ServeHTTP(rec, req)

	if rec.Code != http.StatusForbidden {
		t.Errorf("status = %d, want 403", rec.Code)
	}
}

func TestCSRFMiddleware_MissingHeader(t *testing.T) {
	handler := NewCSRFMiddleware()(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		t.Fatal("next handler should not be called")
	}))

	req := httptest.NewRequest(http.MethodPost, "/api/tokens", nil)
	req.AddCookie(&http.Cookie{Name: "csrf_token", Value: "token-abc"})
	rec := httptest.NewRecorder()

	handler.ServeHTTP(rec, req)

	if rec.Code != http.StatusForbidden {
		t.Errorf("status = %d, want 403", rec.Code)
	}
}

func TestCSRFMiddleware_TokenMismatch(t *testing.T) {
	handler := NewCSRFMiddleware()(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		t.Fatal("next handler should not be called")
	}))

	req := httptest.NewRequest(http.MethodPost, "/api/tokens", nil)
	req.AddCookie(&http.Cookie{Name: "csrf_token", Value: "token-abc"})
	req.Header.Set("X-CSRF-Token", "token-xyz")
	rec := httptest.NewRecorder()

	handler.ServeHTTP(rec, req)

	if rec.Code != http.StatusForbidden {
		t.Errorf("status = %d, want 403", rec.Code)
	}
}

func TestCSRFTokenHandler_IssuesToken(t *testing.T) {
	handler := NewCSRFTokenHandler(false)

	req := httptest.NewRequest(http.MethodGet, "/api/csrf-token", nil)
	rec := httptest.NewRecorder()

	handler.ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", rec.Code)
	}

	var body map[string]string
	if err := json.Unmarshal(rec.Body.Bytes(), &body); err != nil {
		t.Fatalf("failed to parse response: %v", err)
	}
	token := body["csrf_token"]
	if len(token) != 64 {
		t.Errorf("token length = %d, want 64 hex chars", len(token))
	}

	cookies := rec.Result().Cookies()
	var cookieToken string
	for _, c := range cookies {
		if c.Name == "csrf_token" {
			cookieToken = c.Value
			if c.HttpOnly {
				t.Error("csrf_token cookie must be readable from JS")
			}
		}
	}
	if cookieToken != token {
		t.Errorf("cookie token %q does not match body token %q", cookieToken, token)
	}
}
