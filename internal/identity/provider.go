// Package identity は外部Identityプロバイダーとの連携を提供する。
package identity

import (
	"context"

	"github.com/cryptofund/cryptofund/internal/model"
)

// VerifyResult はトークン検証の結果を表す。
// Authenticated=trueかつUser=nilは、トークンは有効だがユーザー情報が取得できない
// 不整合状態を意味する。この状態の是正はauthパッケージの不整合ガードが担う。
type VerifyResult struct {
	Authenticated bool
	User          *model.IdentityUser
}

// Provider はIdentityプロバイダーのインターフェース。
// login/logoutに相当する操作は成功/失敗以外の契約を持たない不透明な非同期呼び出しとして扱う。
type Provider interface {
	// VerifyToken はフロントエンドから渡された認証トークンを検証し、
	// プロバイダーが保持するユーザー情報（リンクアカウント含む）を取得する。
	// トークンが無効な場合はAuthenticated=falseを返す（エラーではない）。
	VerifyToken(ctx context.Context, authToken string) (*VerifyResult, error)

	// RevokeSessions は指定ユーザーのプロバイダー側セッションを失効させる。
	// ログアウト時に使用される。
	RevokeSessions(ctx context.Context, providerUserID string) error

	// RevokeToken は認証トークン自体を失効させる。
	// ユーザーIDが特定できない不整合状態からの強制ログアウトで使用される。
	RevokeToken(ctx context.Context, authToken string) error
}
