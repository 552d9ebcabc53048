// Package model はドメインモデルを定義する。
package model

import "time"

// Session はユーザーのログインセッションを表す。
// IDは暗号的に安全な不透明トークンで、HTTP Only Cookieに格納される。
type Session struct {
	ID        string
	ProfileID string
	ExpiresAt time.Time
	CreatedAt time.Time
}

// SessionState はIdentityプロバイダーとのセッション状態スナップショットを表す。
// Readyはプロバイダー初期化の完了、Authenticatedは認証の成否を示す。
// Authenticated=trueかつUser=nilは不整合状態（トークンはあるがユーザー情報が欠落）。
type SessionState struct {
	Ready         bool
	Authenticated bool
	User          *IdentityUser
}

// IdentityUser は外部Identityプロバイダーが保持するユーザーを表す。
// アプリケーションからは読み取り専用。
type IdentityUser struct {
	ID             string
	LinkedAccounts []LinkedAccount
}

// LinkedAccount はIdentityプロバイダーに紐付くアカウントの閉じたバリアント型。
// 実装はWalletAccountとEmailAccountのみ。型スイッチで網羅的に分岐できる。
type LinkedAccount interface {
	linkedAccount()
}

// WalletAccount はウォレット型のリンクアカウント。
type WalletAccount struct {
	Address string
}

// EmailAccount はメール型のリンクアカウント。
type EmailAccount struct {
	Email string
}

func (WalletAccount) linkedAccount() {}
func (EmailAccount) linkedAccount()  {}

// WalletAddress はリンクアカウント列から最初のウォレットアドレスを返す。
// 存在しない場合は空文字列。
func (u *IdentityUser) WalletAddress() string {
	for _, account := range u.LinkedAccounts {
		if w, ok := account.(WalletAccount); ok {
			return w.Address
		}
	}
	return ""
}

// EmailAddress はリンクアカウント列から最初のメールアドレスを返す。
// 存在しない場合は空文字列。
func (u *IdentityUser) EmailAddress() string {
	for _, account := range u.LinkedAccounts {
		if e, ok := account.(EmailAccount); ok {
			return e.Email
		}
	}
	return ""
}
