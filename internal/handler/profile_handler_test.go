package handler

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/cryptofund/cryptofund/internal/model"
)

type mockProfileService struct {
	getByIDFunc func(ctx context.Context, id string) (*model.Profile, error)
	syncFunc    func(ctx context.Context, identifier, providerUserID, displayName, avatarURL string) (*model.Profile, error)
}

var _ ProfileServiceInterface = (*mockProfileService)(nil)

func (m *mockProfileService) GetByID(ctx context.Context, id string) (*model.Profile, error) {
	return m.getByIDFunc(ctx, id)
}

func (m *mockProfileService) Sync(ctx context.Context, identifier, providerUserID, displayName, avatarURL string) (*model.Profile, error) {
	return m.syncFunc(ctx, identifier, providerUserID, displayName, avatarURL)
}

func TestProfileHandler_GetProfile_Success(t *testing.T) {
	service := &mockProfileService{
		getByIDFunc: func(ctx context.Context, id string) (*model.Profile, error) {
			if id != "profile-1" {
				t.Errorf("profile id = %q, want profile-1", id)
			}
			return testProfile(), nil
		},
	}
	h := NewProfileHandler(service)

	req := authedRequest(http.MethodGet, "/api/profile", "")
	rec := httptest.NewRecorder()

	h.GetProfile(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", rec.Code)
	}

	var resp profileResponse
	if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
		t.Fatalf("failed to parse response: %v", err)
	}
	if resp.ID != "profile-1" {
		t.Errorf("id = %q, want profile-1", resp.ID)
	}
}

func TestProfileHandler_GetProfile_Unauthenticated(t *testing.T) {
	h := NewProfileHandler(&mockProfileService{})

	req := httptest.NewRequest(http.MethodGet, "/api/profile", nil)
	rec := httptest.NewRecorder()

	h.GetProfile(rec, req)

	if rec.Code != http.StatusUnauthorized {
		t.Errorf("status = %d, want 401", rec.Code)
	}
}

func TestProfileHandler_UpdateProfile_SyncsWithIdentifier(t *testing.T) {
	var gotIdentifier, gotDisplayName, gotAvatarURL string
	service := &mockProfileService{
		getByIDFunc: func(ctx context.Context, id string) (*model.Profile, error) {
			return testProfile(), nil
		},
		syncFunc: func(ctx context.Context, identifier, providerUserID, displayName, avatarURL string) (*model.Profile, error) {
			gotIdentifier = identifier
			gotDisplayName = displayName
			gotAvatarURL = avatarURL
			return &model.Profile{
				ID:          "profile-1",
				UserAddress: strPtr("0xABCDEF"),
				DisplayName: &displayName,
			}, nil
		},
	}
	h := NewProfileHandler(service)

	req := authedRequest(http.MethodPut, "/api/profile", `{"display_name":"satoshi","avatar_url":"https://example.com/a.png"}`)
	rec := httptest.NewRecorder()

	h.UpdateProfile(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200, body: %s", rec.Code, rec.Body.String())
	}
	if gotIdentifier != "0xABCDEF" {
		t.Errorf("identifier = %q, want 0xABCDEF", gotIdentifier)
	}
	if gotDisplayName != "satoshi" {
		t.Errorf("display name = %q, want satoshi", gotDisplayName)
	}
	if gotAvatarURL != "https://example.com/a.png" {
		t.Errorf("avatar url = %q, want https://example.com/a.png", gotAvatarURL)
	}
}

func TestProfileHandler_UpdateProfile_InvalidAvatarURL(t *testing.T) {
	service := &mockProfileService{
		getByIDFunc: func(ctx context.Context, id string) (*model.Profile, error) {
			return testProfile(), nil
		},
		syncFunc: func(ctx context.Context, identifier, providerUserID, displayName, avatarURL string) (*model.Profile, error) {
			return nil, model.NewInvalidAvatarURLError("httpsではありません")
		},
	}
	h := NewProfileHandler(service)

	req := authedRequest(http.MethodPut, "/api/profile", `{"avatar_url":"http://insecure.example.com/a.png"}`)
	rec := httptest.NewRecorder()

	h.UpdateProfile(rec, req)

	if rec.Code != http.StatusBadRequest {
		t.Errorf("status = %d, want 400", rec.Code)
	}
}

func TestProfileHandler_UpdateProfile_InvalidBody(t *testing.T) {
	h := NewProfileHandler(&mockProfileService{
		getByIDFunc: func(ctx context.Context, id string) (*model.Profile, error) {
			return testProfile(), nil
		},
	})

	req := authedRequest(http.MethodPut, "/api/profile", "not-json")
	rec := httptest.NewRecorder()

	h.UpdateProfile(rec, req)

	if rec.Code != http.StatusBadRequest {
		t.Errorf("status = %d, want 400", rec.Code)
	}
}
