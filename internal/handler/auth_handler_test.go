package handler

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/cryptofund/cryptofund/internal/auth"
	"github.com/cryptofund/cryptofund/internal/model"
)

type mockAuthService struct {
	handleLoginFunc    func(ctx context.Context, authToken string) (*model.Session, *model.Profile, error)
	logoutFunc         func(ctx context.Context, sessionID string) error
	getCurrentUserFunc func(ctx context.Context, sessionID string) (*model.Profile, error)
}

var _ AuthServiceInterface = (*mockAuthService)(nil)

func (m *mockAuthService) HandleLogin(ctx context.Context, authToken string) (*model.Session, *model.Profile, error) {
	return m.handleLoginFunc(ctx, authToken)
}

func (m *mockAuthService) Logout(ctx context.Context, sessionID string) error {
	return m.logoutFunc(ctx, sessionID)
}

func (m *mockAuthService) GetCurrentUser(ctx context.Context, sessionID string) (*model.Profile, error) {
	return m.getCurrentUserFunc(ctx, sessionID)
}

func strPtr(s string) *string { return &s }

func testProfile() *model.Profile {
	return &model.Profile{
		ID:          "profile-1",
		UserAddress: strPtr("0xABCDEF"),
		PrivyID:     "privy-user-1",
		DisplayName: strPtr("0xABCD"),
	}
}

func TestAuthHandler_Login_Success(t *testing.T) {
	service := &mockAuthService{
		handleLoginFunc: func(ctx context.Context, authToken string) (*model.Session, *model.Profile, error) {
			if authToken != "valid-token" {
				t.Errorf("auth token = %q, want valid-token", authToken)
			}
			return &model.Session{ID: "session-abc", ProfileID: "profile-1"}, testProfile(), nil
		},
	}
	h := NewAuthHandler(service, AuthHandlerConfig{SessionMaxAge: 3600})

	req := httptest.NewRequest(http.MethodPost, "/auth/login", strings.NewReader(`{"auth_token":"valid-token"}`))
	rec := httptest.NewRecorder()

	h.Login(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200, body: %s", rec.Code, rec.Body.String())
	}

	var sessionCookie *http.Cookie
	for _, c := range rec.Result().Cookies() {
		if c.Name == "session_id" {
			sessionCookie = c
		}
	}
	if sessionCookie == nil {
		t.Fatal("expected session_id cookie")
	}
	if sessionCookie.Value != "session-abc" {
		t.Errorf("cookie value = %q, want session-abc", sessionCookie.Value)
	}
	if !sessionCookie.HttpOnly {
		t.Error("session cookie must be HttpOnly")
	}

	var resp profileResponse
	if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
		t.Fatalf("failed to parse response: %v", err)
	}
	if resp.ID != "profile-1" {
		t.Errorf("profile id = %q, want profile-1", resp.ID)
	}
	if resp.UserAddress == nil || *resp.UserAddress != "0xABCDEF" {
		t.Errorf("user_address = %v, want 0xABCDEF", resp.UserAddress)
	}
}

func TestAuthHandler_Login_InvalidBody(t *testing.T) {
	h := NewAuthHandler(&mockAuthService{}, AuthHandlerConfig{})

	req := httptest.NewRequest(http.MethodPost, "/auth/login", strings.NewReader("not-json"))
	rec := httptest.NewRecorder()

	h.Login(rec, req)

	if rec.Code != http.StatusBadRequest {
		t.Errorf("status = %d, want 400", rec.Code)
	}
}

func TestAuthHandler_Login_NotAuthenticated(t *testing.T) {
	service := &mockAuthService{
		handleLoginFunc: func(ctx context.Context, authToken string) (*model.Session, *model.Profile, error) {
			return nil, nil, auth.ErrNotAuthenticated
		},
	}
	h := NewAuthHandler(service, AuthHandlerConfig{})

	req := httptest.NewRequest(http.MethodPost, "/auth/login", strings.NewReader(`{"auth_token":"bad"}`))
	rec := httptest.NewRecorder()

	h.Login(rec, req)

	if rec.Code != http.StatusUnauthorized {
		t.Errorf("status = %d, want 401", rec.Code)
	}
}

// 認証済みだがユーザー情報が欠落している場合は不整合エラーを返す
func TestAuthHandler_Login_InconsistentSession(t *testing.T) {
	service := &mockAuthService{
		handleLoginFunc: func(ctx context.Context, authToken string) (*model.Session, *model.Profile, error) {
			return nil, nil, model.NewInconsistentSessionError()
		},
	}
	h := NewAuthHandler(service, AuthHandlerConfig{})

	req := httptest.NewRequest(http.MethodPost, "/auth/login", strings.NewReader(`{"auth_token":"weird"}`))
	rec := httptest.NewRecorder()

	h.Login(rec, req)

	if rec.Code != http.StatusUnauthorized {
		t.Errorf("status = %d, want 401", rec.Code)
	}

	var body apiErrorResponse
	if err := json.Unmarshal(rec.Body.Bytes(), &body); err != nil {
		t.Fatalf("failed to parse response: %v", err)
	}
	if body.Error.Code != model.ErrCodeInconsistentSession {
		t.Errorf("code = %q, want %q", body.Error.Code, model.ErrCodeInconsistentSession)
	}
}

func TestAuthHandler_Login_TransportError(t *testing.T) {
	service := &mockAuthService{
		handleLoginFunc: func(ctx context.Context, authToken string) (*model.Session, *model.Profile, error) {
			return nil, nil, model.NewTransportError("store unreachable")
		},
	}
	h := NewAuthHandler(service, AuthHandlerConfig{})

	req := httptest.NewRequest(http.MethodPost, "/auth/login", strings.NewReader(`{"auth_token":"tok"}`))
	rec := httptest.NewRecorder()

	h.Login(rec, req)

	if rec.Code != http.StatusBadGateway {
		t.Errorf("status = %d, want 502", rec.Code)
	}
}

func TestAuthHandler_Logout_ClearsCookie(t *testing.T) {
	var loggedOut string
	service := &mockAuthService{
		logoutFunc: func(ctx context.Context, sessionID string) error {
			loggedOut = sessionID
			return nil
		},
	}
	h := NewAuthHandler(service, AuthHandlerConfig{})

	req := httptest.NewRequest(http.MethodPost, "/auth/logout", nil)
	req.AddCookie(&http.Cookie{Name: "session_id", Value: "session-abc"})
	rec := httptest.NewRecorder()

	h.Logout(rec, req)

	if rec.Code != http.StatusNoContent {
		t.Errorf("status = %d, want 204", rec.Code)
	}
	if loggedOut != "session-abc" {
		t.Errorf("logged out session = %q, want session-abc", loggedOut)
	}

	var cleared bool
	for _, c := range rec.Result().Cookies() {
		if c.Name == "session_id" && c.MaxAge < 0 {
			cleared = true
		}
	}
	if !cleared {
		t.Error("expected session cookie to be cleared")
	}
}

func TestAuthHandler_Logout_WithoutCookie(t *testing.T) {
	service := &mockAuthService{
		logoutFunc: func(ctx context.Context, sessionID string) error {
			t.Fatal("Logout should not be called without a cookie")
			return nil
		},
	}
	h := NewAuthHandler(service, AuthHandlerConfig{})

	req := httptest.NewRequest(http.MethodPost, "/auth/logout", nil)
	rec := httptest.NewRecorder()

	h.Logout(rec, req)

	if rec.Code != http.StatusNoContent {
		t.Errorf("status = %d, want 204", rec.Code)
	}
}

func TestAuthHandler_Me_Success(t *testing.T) {
	service := &mockAuthService{
		getCurrentUserFunc: func(ctx context.Context, sessionID string) (*model.Profile, error) {
			return testProfile(), nil
		},
	}
	h := NewAuthHandler(service, AuthHandlerConfig{})

	req := httptest.NewRequest(http.MethodGet, "/auth/me", nil)
	req.AddCookie(&http.Cookie{Name: "session_id", Value: "session-abc"})
	rec := httptest.NewRecorder()

	h.Me(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", rec.Code)
	}

	var resp profileResponse
	if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
		t.Fatalf("failed to parse response: %v", err)
	}
	if resp.ID != "profile-1" {
		t.Errorf("profile id = %q, want profile-1", resp.ID)
	}
}

func TestAuthHandler_Me_NoCookie(t *testing.T) {
	h := NewAuthHandler(&mockAuthService{}, AuthHandlerConfig{})

	req := httptest.NewRequest(http.MethodGet, "/auth/me", nil)
	rec := httptest.NewRecorder()

	h.Me(rec, req)

	if rec.Code != http.StatusUnauthorized {
		t.Errorf("status = %d, want 401", rec.Code)
	}
}

func TestAuthHandler_Me_SessionExpired(t *testing.T) {
	service := &mockAuthService{
		getCurrentUserFunc: func(ctx context.Context, sessionID string) (*model.Profile, error) {
			return nil, auth.ErrSessionNotFound
		},
	}
	h := NewAuthHandler(service, AuthHandlerConfig{})

	req := httptest.NewRequest(http.MethodGet, "/auth/me", nil)
	req.AddCookie(&http.Cookie{Name: "session_id", Value: "stale"})
	rec := httptest.NewRecorder()

	h.Me(rec, req)

	if rec.Code != http.StatusUnauthorized {
		t.Errorf("status = %d, want 401", rec.Code)
	}
}
