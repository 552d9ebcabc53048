package middleware

import (
	"context"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/cryptofund/cryptofund/internal/model"
)

type mockSessionFinder struct {
	findByIDFunc func(ctx context.Context, id string) (*model.Session, error)
}

var _ SessionFinder = (*mockSessionFinder)(nil)

func (m *mockSessionFinder) FindByID(ctx context.Context, id string) (*model.Session, error) {
	return m.findByIDFunc(ctx, id)
}

func TestSessionMiddleware_ValidSession(t *testing.T) {
	finder := &mockSessionFinder{
		findByIDFunc: func(ctx context.Context, id string) (*model.Session, error) {
			if id != "valid-session-id" {
				t.Errorf("session id = %q, want %q", id, "valid-session-id")
			}
			return &model.Session{
				ID:        id,
				ProfileID: "profile-123",
				ExpiresAt: time.Now().Add(time.Hour),
			}, nil
		},
	}

	var gotProfileID string
	handler := NewSessionMiddleware(finder)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		id, err := ProfileIDFromContext(r.Context())
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		gotProfileID = id
		w.WriteHeader(http.StatusOK)
	}))

	req := httptest.NewRequest(http.MethodGet, "/api/tokens", nil)
	req.AddCookie(&http.Cookie{Name: "session_id", Value: "valid-session-id"})
	rec := httptest.NewRecorder()

	handler.ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Errorf("status = %d, want %d", rec.Code, http.StatusOK)
	}
	if gotProfileID != "profile-123" {
		t.Errorf("profile ID = %q, want %q", gotProfileID, "profile-123")
	}
}

func TestSessionMiddleware_MissingCookie(t *testing.T) {
	finder := &mockSessionFinder{
		findByIDFunc: func(ctx context.Context, id string) (*model.Session, error) {
			t.Fatal("FindByID should not be called without a cookie")
			return nil, nil
		},
	}

	handler := NewSessionMiddleware(finder)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		t.Fatal("next handler should not be called")
	}))

	req := httptest.NewRequest(http.MethodGet, "/api/tokens", nil)
	rec := httptest.NewRecorder()

	handler.ServeHTTP(rec, req)

	if rec.Code != http.StatusUnauthorized {
		t.Errorf("status = %d, want %d", rec.Code, http.StatusUnauthorized)
	}
}

func TestSessionMiddleware_UnknownSession(t *testing.T) {
	finder := &mockSessionFinder{
		findByIDFunc: func(ctx context.Context, id string) (*model.Session, error) {
			return nil, nil
		},
	}

	handler := NewSessionMiddleware(finder)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		t.Fatal("next handler should not be called")
	}))

	req := httptest.NewRequest(http.MethodGet, "/api/tokens", nil)
	req.AddCookie(&http.Cookie{Name: "session_id", Value: "expired-session"})
	rec := httptest.NewRecorder()

	handler.ServeHTTP(rec, req)

	if rec.Code != http.StatusUnauthorized {
		t.Errorf("status = %d, want %d", rec.Code, http.StatusUnauthorized)
	}
}

func TestSessionMiddleware_FinderError(t *testing.T) {
	finder := &mockSessionFinder{
		findByIDFunc: func(ctx context.Context, id string) (*model.Session, error) {
			return nil, fmt.Errorf("db connection lost")
		},
	}

	handler := NewSessionMiddleware(finder)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		t.Fatal("next handler should not be called")
	}))

	req := httptest.NewRequest(http.MethodGet, "/api/tokens", nil)
	req.AddCookie(&http.Cookie{Name: "session_id", Value: "any"})
	rec := httptest.NewRecorder()

	handler.ServeHTTP(rec, req)

	if rec.Code != http.StatusUnauthorized {
		t.Errorf("status = %d, want %d", rec.Code, http.StatusUnauthorized)
	}
}

func TestProfileIDFromContext_Missing(t *testing.T) {
	_, err := ProfileIDFromContext(context.Background())
	if err == nil {
		t.Error("expected error for context without profile ID")
	}
}

func TestContextWithProfileID_RoundTrip(t *testing.T) {
	ctx := ContextWithProfileID(context.Background(), "profile-abc")

	got, err := ProfileIDFromContext(ctx)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if got != "profile-abc" {
		t.Errorf("profile ID = %q, want %q", got, "profile-abc")
	}
}
