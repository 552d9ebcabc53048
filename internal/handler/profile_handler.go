package handler

import (
	"context"
	"encoding/json"
	"net/http"

	"github.com/cryptofund/cryptofund/internal/middleware"
	"github.com/cryptofund/cryptofund/internal/model"
)

// ProfileServiceInterface はプロファイルハンドラーが必要とするサービスインターフェース。
type ProfileServiceInterface interface {
	// GetByID はプロファイルIDで取得する。見つからない場合は(nil, nil)。
	GetByID(ctx context.Context, id string) (*model.Profile, error)
	// Sync は識別子でプロファイルをupsertする。
	Sync(ctx context.Context, identifier, providerUserID, displayName, avatarURL string) (*model.Profile, error)
}

// ProfileHandler はプロファイル管理のHTTPハンドラー。
type ProfileHandler struct {
	service ProfileServiceInterface
}

// NewProfileHandler はProfileHandlerを生成する。
func NewProfileHandler(service ProfileServiceInterface) *ProfileHandler {
	return &ProfileHandler{service: service}
}

// updateProfileRequest はプロファイル更新リクエストのボディ。
// 空のフィールドは変更しない。
type updateProfileRequest struct {
	DisplayName string `json:"display_name"`
	AvatarURL   string `json:"avatar_url"`
}

// GetProfile は自分のプロファイルを取得する。
// GET /api/profile
func (h *ProfileHandler) GetProfile(w http.ResponseWriter, r *http.Request) {
	profileID, err := middleware.ProfileIDFromContext(r.Context())
	if err != nil {
		writeUnauthorized(w)
		return
	}

	profile, err := h.service.GetByID(r.Context(), profileID)
	if err != nil {
		handleServiceError(w, err)
		return
	}
	if profile == nil {
		writeUnauthorized(w)
		return
	}

	writeJSON(w, http.StatusOK, toProfileResponse(profile))
}

// UpdateProfile は自分のプロファイルの表示名・アバターを更新する。
// PUT /api/profile
func (h *ProfileHandler) UpdateProfile(w http.ResponseWriter, r *http.Request) {
	profileID, err := middleware.ProfileIDFromContext(r.Context())
	if err != nil {
		writeUnauthorized(w)
		return
	}

	var req updateProfileRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeInvalidRequestBody(w)
		return
	}

	profile, err := h.service.GetByID(r.Context(), profileID)
	if err != nil {
		handleServiceError(w, err)
		return
	}
	if profile == nil {
		writeUnauthorized(w)
		return
	}

	updated, err := h.service.Sync(r.Context(), profile.Identifier(), profile.PrivyID, req.DisplayName, req.AvatarURL)
	if err != nil {
		handleServiceError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, toProfileResponse(updated))
}
