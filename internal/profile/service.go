// Package profile はリモートプロファイルストアとの同期および照会を提供する。
package profile

import (
	"context"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/cryptofund/cryptofund/internal/model"
	"github.com/cryptofund/cryptofund/internal/repository"
	"github.com/cryptofund/cryptofund/internal/security"
)

// Service はプロファイルの同期と照会のビジネスロジックを提供する。
type Service struct {
	repo      repository.ProfileRepository
	sanitizer security.SanitizerService
	urlGuard  security.URLGuardService
}

// NewService はServiceを生成する。
func NewService(
	repo repository.ProfileRepository,
	sanitizer security.SanitizerService,
	urlGuard security.URLGuardService,
) *Service {
	return &Service{
		repo:      repo,
		sanitizer: sanitizer,
		urlGuard:  urlGuard,
	}
}

// Sync は識別子に対応するプロファイルを作成または更新する。
// 「@」を含む識別子はメールアドレス、それ以外はウォレットアドレスとして
// 対応するカラムで検索し、存在すれば属性を更新、なければ新規作成する。
// ストア到達不能はTRANSPORT_ERRORとして返し、呼び出し側でリトライしない。
func (s *Service) Sync(ctx context.Context, identifier, providerUserID, displayName, avatarURL string) (*model.Profile, error) {
	if identifier == "" {
		return nil, model.NewInvalidIdentifierError()
	}

	displayName = s.sanitizer.SanitizeText(displayName)

	if avatarURL != "" {
		if err := s.urlGuard.ValidatePublicHTTPS(avatarURL); err != nil {
			return nil, model.NewInvalidAvatarURLError(err.Error())
		}
	}

	existing, err := s.findByIdentifier(ctx, identifier)
	if err != nil {
		return nil, model.NewTransportError(err.Error())
	}

	now := time.Now()

	if existing != nil {
		existing.PrivyID = providerUserID
		if displayName != "" {
			existing.DisplayName = &displayName
		}
		if avatarURL != "" {
			existing.AvatarURL = &avatarURL
		}
		existing.UpdatedAt = now

		if err := s.repo.Update(ctx, existing); err != nil {
			return nil, model.NewTransportError(err.Error())
		}

		slog.Info("profile updated",
			slog.String("profile_id", existing.ID),
			slog.String("provider_user_id", providerUserID),
		)
		return existing, nil
	}

	profile := &model.Profile{
		ID:        uuid.New().String(),
		PrivyID:   providerUserID,
		CreatedAt: now,
		UpdatedAt: now,
	}
	if displayName != "" {
		profile.DisplayName = &displayName
	}
	if avatarURL != "" {
		profile.AvatarURL = &avatarURL
	}

	switch model.KindOfIdentifier(identifier) {
	case model.IdentifierEmail:
		email := identifier
		profile.Email = &email
	default:
		address := identifier
		profile.UserAddress = &address
	}

	if err := s.repo.Create(ctx, profile); err != nil {
		return nil, model.NewTransportError(err.Error())
	}

	slog.Info("profile created",
		slog.String("profile_id", profile.ID),
		slog.String("provider_user_id", providerUserID),
	)
	return profile, nil
}

// GetByIdentifier は識別子でプロファイルを検索する。
// 見つからない場合は(nil, nil)を返す。
func (s *Service) GetByIdentifier(ctx context.Context, identifier string) (*model.Profile, error) {
	if identifier == "" {
		return nil, model.NewInvalidIdentifierError()
	}

	profile, err := s.findByIdentifier(ctx, identifier)
	if err != nil {
		return nil, model.NewTransportError(err.Error())
	}
	return profile, nil
}

// GetByID はIDでプロファイルを検索する。見つからない場合は(nil, nil)を返す。
func (s *Service) GetByID(ctx context.Context, id string) (*model.Profile, error) {
	profile, err := s.repo.FindByID(ctx, id)
	if err != nil {
		return nil, model.NewTransportError(err.Error())
	}
	return profile, nil
}

// findByIdentifier は識別子の種別に応じたカラムで検索する。
func (s *Service) findByIdentifier(ctx context.Context, identifier string) (*model.Profile, error) {
	if model.KindOfIdentifier(identifier) == model.IdentifierEmail {
		return s.repo.FindByEmail(ctx, identifier)
	}
	return s.repo.FindByAddress(ctx, identifier)
}
