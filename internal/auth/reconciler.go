package auth

import (
	"context"
	"log/slog"

	"github.com/cryptofund/cryptofund/internal/model"
)

// ProfileSyncer はIdentityプロバイダーのユーザー情報をプロファイルストアへ
// 同期するインターフェース。
type ProfileSyncer interface {
	Sync(ctx context.Context, identifier, providerUserID, displayName, avatarURL string) (*model.Profile, error)
}

// Reconciler は認証完了時にIdentityプロバイダーのユーザー情報から
// プロファイル属性を導出し、ストアへ1回だけ同期する。
// 同期失敗はログに記録するのみで、ログイン自体は失敗させない。
type Reconciler struct {
	syncer ProfileSyncer
}

// NewReconciler はReconcilerを生成する。
func NewReconciler(syncer ProfileSyncer) *Reconciler {
	return &Reconciler{syncer: syncer}
}

// Reconcile はセッション状態の遷移を評価し、同期条件を満たす場合のみ
// プロファイル同期を実行する。条件を満たさない遷移では(nil, nil)を返す。
// 同期条件: 遷移後が「初期化完了・認証済み・ユーザー情報あり」で、
// かつ遷移前はその条件を満たしていない（同一ユーザーの再通知は無視）。
func (r *Reconciler) Reconcile(ctx context.Context, prev, next model.SessionState) (*model.Profile, error) {
	if !qualifies(prev, next) {
		return nil, nil
	}

	user := next.User
	identifier, email := deriveIdentity(user)
	if identifier == "" {
		slog.Warn("リンクアカウントに識別子がないため、プロファイル同期をスキップします",
			slog.String("provider_user_id", user.ID),
		)
		return nil, nil
	}

	// 表示名はメールアドレスを優先し、なければアドレスの先頭6文字
	displayName := email
	if displayName == "" {
		displayName = identifier
		if len(displayName) > 6 {
			displayName = displayName[:6]
		}
	}

	profile, err := r.syncer.Sync(ctx, identifier, user.ID, displayName, "")
	if err != nil {
		// リトライはしない。次のセッション遷移で再同期される
		slog.Error("プロファイル同期に失敗しました",
			slog.String("provider_user_id", user.ID),
			slog.String("error", err.Error()),
		)
		return nil, err
	}

	slog.Info("profile reconciled",
		slog.String("profile_id", profile.ID),
		slog.String("provider_user_id", user.ID),
	)
	return profile, nil
}

// qualifies は同期を実行すべき遷移かどうかを判定する。
func qualifies(prev, next model.SessionState) bool {
	if !next.Ready || !next.Authenticated || next.User == nil {
		return false
	}
	if prev.Ready && prev.Authenticated && prev.User != nil && prev.User.ID == next.User.ID {
		return false
	}
	return true
}

// deriveIdentity はリンクアカウント列から同期用の識別子とメールアドレスを導出する。
// 識別子はウォレットアドレスを優先し、なければメールアドレスを使う。
func deriveIdentity(user *model.IdentityUser) (identifier, email string) {
	var wallet string
	for _, account := range user.LinkedAccounts {
		switch a := account.(type) {
		case model.WalletAccount:
			if wallet == "" {
				wallet = a.Address
			}
		case model.EmailAccount:
			if email == "" {
				email = a.Email
			}
		}
	}

	if wallet != "" {
		return wallet, email
	}
	return email, email
}
