package handler

import (
	"bytes"
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"golang.org/x/time/rate"

	"github.com/cryptofund/cryptofund/internal/logger"
	"github.com/cryptofund/cryptofund/internal/middleware"
	"github.com/cryptofund/cryptofund/internal/model"
	"github.com/cryptofund/cryptofund/internal/repository"
)

type routerSessionFinder struct {
	findByIDFunc func(ctx context.Context, id string) (*model.Session, error)
}

func (m *routerSessionFinder) FindByID(ctx context.Context, id string) (*model.Session, error) {
	return m.findByIDFunc(ctx, id)
}

func newTestRouter(t *testing.T) http.Handler {
	t.Helper()

	var buf bytes.Buffer
	rl := middleware.NewRateLimiter(middleware.RateLimiterConfig{
		GeneralRate:     rate.Limit(100),
		GeneralBurst:    100,
		TradeRate:       rate.Limit(100),
		TradeBurst:      100,
		CleanupInterval: time.Minute,
	})
	t.Cleanup(rl.Stop)

	sessionFinder := &routerSessionFinder{
		findByIDFunc: func(ctx context.Context, id string) (*model.Session, error) {
			if id == "valid-session" {
				return &model.Session{ID: id, ProfileID: "profile-1", ExpiresAt: time.Now().Add(time.Hour)}, nil
			}
			return nil, nil
		},
	}

	return NewRouter(&RouterDeps{
		SessionFinder:     sessionFinder,
		CORSAllowedOrigin: "https://app.example.com",
		RateLimiter:       rl,
		Logger:            logger.Setup(&buf),
		AuthService: &mockAuthService{
			getCurrentUserFunc: func(ctx context.Context, sessionID string) (*model.Profile, error) {
				return testProfile(), nil
			},
		},
		AuthConfig: AuthHandlerConfig{SessionMaxAge: 3600},
		ProfileService: &mockProfileService{
			getByIDFunc: func(ctx context.Context, id string) (*model.Profile, error) {
				return testProfile(), nil
			},
		},
		TokenService: &mockTokenService{
			listFunc: func(ctx context.Context, opts repository.TokenListOptions) ([]model.Token, error) {
				return nil, nil
			},
		},
		NewsService: &mockNewsService{
			listRecentFunc: func(ctx context.Context, limit int) ([]model.NewsItem, error) {
				return nil, nil
			},
		},
		ErrorRing: logger.NewErrorRing(10),
	})
}

func TestRouter_HealthEndpoint(t *testing.T) {
	router := newTestRouter(t)

	req := httptest.NewRequest(http.MethodGet, "/health", nil)
	rec := httptest.NewRecorder()

	router.ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Errorf("status = %d, want 200", rec.Code)
	}
}

func TestRouter_PublicTokenListing(t *testing.T) {
	router := newTestRouter(t)

	req := httptest.NewRequest(http.MethodGet, "/api/tokens", nil)
	rec := httptest.NewRecorder()

	router.ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Errorf("status = %d, want 200: token listing should not require auth", rec.Code)
	}
}

func TestRouter_PublicNews(t *testing.T) {
	router := newTestRouter(t)

	req := httptest.NewRequest(http.MethodGet, "/api/news", nil)
	rec := httptest.NewRecorder()

	router.ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Errorf("status = %d, want 200", rec.Code)
	}
}

func TestRouter_ProfileRequiresSession(t *testing.T) {
	router := newTestRouter(t)

	req := httptest.NewRequest(http.MethodGet, "/api/profile", nil)
	rec := httptest.NewRecorder()

	router.ServeHTTP(rec, req)

	if rec.Code != http.StatusUnauthorized {
		t.Errorf("status = %d, want 401", rec.Code)
	}
}

func TestRouter_ProfileWithValidSession(t *testing.T) {
	router := newTestRouter(t)

	req := httptest.NewRequest(http.MethodGet, "/api/profile", nil)
	req.AddCookie(&http.Cookie{Name: "session_id", Value: "valid-session"})
	rec := httptest.NewRecorder()

	router.ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Errorf("status = %d, want 200, body: %s", rec.Code, rec.Body.String())
	}
}

// 状態変更リクエストはCSRFトークンなしでは拒否される
func TestRouter_CSRFEnforcedOnStateChange(t *testing.T) {
	router := newTestRouter(t)

	req := httptest.NewRequest(http.MethodPut, "/api/profile", nil)
	req.AddCookie(&http.Cookie{Name: "session_id", Value: "valid-session"})
	rec := httptest.NewRecorder()

	router.ServeHTTP(rec, req)

	if rec.Code != http.StatusForbidden {
		t.Errorf("status = %d, want 403", rec.Code)
	}
}

func TestRouter_CSRFTokenEndpoint(t *testing.T) {
	router := newTestRouter(t)

	req := httptest.NewRequest(http.MethodGet, "/api/csrf-token", nil)
	rec := httptest.NewRecorder()

	router.ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Errorf("status = %d, want 200", rec.Code)
	}
}

func TestRouter_DebugErrorsRequiresSession(t *testing.T) {
	router := newTestRouter(t)

	req := httptest.NewRequest(http.MethodGet, "/api/debug/errors", nil)
	rec := httptest.NewRecorder()

	router.ServeHTTP(rec, req)

	if rec.Code != http.StatusUnauthorized {
		t.Errorf("status = %d, want 401", rec.Code)
	}
}

func TestRouter_SecurityHeadersApplied(t *testing.T) {
	router := newTestRouter(t)

	req := httptest.NewRequest(http.MethodGet, "/health", nil)
	rec := httptest.NewRecorder()

	router.ServeHTTP(rec, req)

	if got := rec.Header().Get("X-Content-Type-Options"); got != "nosniff" {
		t.Errorf("X-Content-Type-Options = %q, want nosniff", got)
	}
}
