package auth

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/cryptofund/cryptofund/internal/identity"
	"github.com/cryptofund/cryptofund/internal/metrics"
	"github.com/cryptofund/cryptofund/internal/model"
	"github.com/cryptofund/cryptofund/internal/repository"
)

// ErrNotAuthenticated はIdentityプロバイダーがトークンを拒否したことを示す。
var ErrNotAuthenticated = errors.New("authentication failed")

// ErrSessionNotFound はセッションが存在しないか期限切れであることを示す。
var ErrSessionNotFound = errors.New("session not found or expired")

// ProfileService は認証フローが必要とするプロファイル操作のインターフェース。
type ProfileService interface {
	ProfileSyncer
	GetByIdentifier(ctx context.Context, identifier string) (*model.Profile, error)
	GetByID(ctx context.Context, id string) (*model.Profile, error)
}

// ServiceConfig は認証サービスの設定。
type ServiceConfig struct {
	SessionMaxAge    int           // セッション有効期間（秒）
	GuardLogoutDelay time.Duration // 不整合検出から強制ログアウトまでの猶予時間
}

// Service は認証に関するビジネスロジックを提供する。
type Service struct {
	provider    identity.Provider
	profiles    ProfileService
	reconciler  *Reconciler
	sessionRepo repository.SessionRepository
	config      ServiceConfig
	metrics     metrics.MetricsCollector
}

// NewService はServiceを生成する。metricsはnil可。
func NewService(
	provider identity.Provider,
	profiles ProfileService,
	sessionRepo repository.SessionRepository,
	config ServiceConfig,
	collector metrics.MetricsCollector,
) *Service {
	return &Service{
		provider:    provider,
		profiles:    profiles,
		reconciler:  NewReconciler(profiles),
		sessionRepo: sessionRepo,
		config:      config,
		metrics:     collector,
	}
}

// HandleLogin は認証トークンを検証し、プロファイル同期とセッション発行を行う。
// プロバイダーが「認証済みだがユーザー情報なし」を返した場合はログインを拒否し、
// ガードが猶予時間経過後に1回だけ強制ログアウト処理を実行する。
func (s *Service) HandleLogin(ctx context.Context, authToken string) (*model.Session, *model.Profile, error) {
	// 1. トークンの検証
	result, err := s.provider.VerifyToken(ctx, authToken)
	if err != nil {
		return nil, nil, model.NewTransportError(err.Error())
	}

	// 2. ログインエピソードの状態追跡を開始
	tracker := NewTracker()
	guard := NewGuard(s.config.GuardLogoutDelay, func() {
		if s.metrics != nil {
			s.metrics.RecordGuardTrip()
		}

		// プロバイダー側のセッションをトークン指定で失効させ、
		// 未認証のクリーンな状態へ戻す。失効失敗はログのみで追加の是正はしない。
		revokeCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		if err := s.provider.RevokeToken(revokeCtx, authToken); err != nil {
			slog.Error("強制ログアウトのトークン失効に失敗しました",
				slog.String("error", err.Error()),
			)
		}
		tracker.Set(model.SessionState{Ready: true, Authenticated: false})
	})
	tracker.Subscribe(guard.Observe)

	prev := tracker.Current()
	next := model.SessionState{
		Ready:         true,
		Authenticated: result.Authenticated,
		User:          result.User,
	}
	tracker.Set(next)

	if !result.Authenticated {
		return nil, nil, ErrNotAuthenticated
	}

	// 不整合状態。ガードが予約済みなのでここではエラーを返すのみ
	if result.User == nil {
		return nil, nil, model.NewInconsistentSessionError()
	}

	// 3. プロファイル同期（失敗してもログインは継続し、既存プロファイルで復旧を試みる）
	profile, err := s.reconciler.Reconcile(ctx, prev, next)
	if err != nil {
		if s.metrics != nil {
			s.metrics.RecordSyncFailure(err.Error())
		}

		identifier, _ := deriveIdentity(result.User)
		profile, err = s.profiles.GetByIdentifier(ctx, identifier)
		if err != nil {
			return nil, nil, model.NewTransportError(err.Error())
		}
	}
	if profile == nil {
		return nil, nil, model.NewInvalidIdentifierError()
	}

	if s.metrics != nil {
		s.metrics.RecordSyncSuccess()
	}

	// 4. セッションを発行
	session, err := s.createSession(ctx, profile.ID)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to create session: %w", err)
	}

	slog.Info("user logged in",
		slog.String("profile_id", profile.ID),
		slog.String("provider_user_id", result.User.ID),
	)
	return session, profile, nil
}

// Logout はセッションを破棄し、Identityプロバイダー側のセッションも失効させる。
// プロバイダー側の失効失敗はログに記録するのみで、ローカルの破棄は続行する。
func (s *Service) Logout(ctx context.Context, sessionID string) error {
	if sessionID == "" {
		return fmt.Errorf("session ID is required")
	}

	session, err := s.sessionRepo.FindByID(ctx, sessionID)
	if err != nil {
		return fmt.Errorf("failed to find session: %w", err)
	}

	if session != nil {
		profile, err := s.profiles.GetByID(ctx, session.ProfileID)
		if err != nil {
			slog.Error("failed to find profile for logout", slog.String("error", err.Error()))
		} else if profile != nil {
			if err := s.provider.RevokeSessions(ctx, profile.PrivyID); err != nil {
				slog.Error("プロバイダー側セッションの失効に失敗しました",
					slog.String("profile_id", profile.ID),
					slog.String("error", err.Error()),
				)
			}
		}
	}

	if err := s.sessionRepo.DeleteByID(ctx, sessionID); err != nil {
		return fmt.Errorf("failed to delete session: %w", err)
	}

	slog.Info("user logged out", slog.String("session_id", sessionID))
	return nil
}

// GetCurrentUser はセッションから現在のプロファイルを取得する。
func (s *Service) GetCurrentUser(ctx context.Context, sessionID string) (*model.Profile, error) {
	if sessionID == "" {
		return nil, ErrSessionNotFound
	}

	session, err := s.sessionRepo.FindByID(ctx, sessionID)
	if err != nil {
		return nil, fmt.Errorf("failed to find session: %w", err)
	}
	if session == nil {
		return nil, ErrSessionNotFound
	}

	profile, err := s.profiles.GetByID(ctx, session.ProfileID)
	if err != nil {
		return nil, fmt.Errorf("failed to find profile: %w", err)
	}
	if profile == nil {
		return nil, ErrSessionNotFound
	}

	return profile, nil
}

// createSession はセッションを作成し永続化する。
func (s *Service) createSession(ctx context.Context, profileID string) (*model.Session, error) {
	sessionID, err := generateSessionID()
	if err != nil {
		return nil, fmt.Errorf("failed to generate session ID: %w", err)
	}

	session := &model.Session{
		ID:        sessionID,
		ProfileID: profileID,
		ExpiresAt: time.Now().Add(time.Duration(s.config.SessionMaxAge) * time.Second),
		CreatedAt: time.Now(),
	}

	if err := s.sessionRepo.Create(ctx, session); err != nil {
		return nil, fmt.Errorf("failed to save session: %w", err)
	}

	return session, nil
}

// generateSessionID は暗号的に安全なセッションIDを生成する。
func generateSessionID() (string, error) {
	b := make([]byte, 32)
	if _, err := rand.Read(b); err != nil {
		return "", err
	}
	return hex.EncodeToString(b), nil
}
