// Package model はドメインモデルを定義する。
package model

import (
	"strings"
	"time"
)

// Profile はウォレットアドレスまたはメールアドレスで識別されるユーザープロファイルを表す。
// user_addressとemailはちょうど一方だけが非nilになる（識別子の種別に対応）。
type Profile struct {
	ID          string
	UserAddress *string
	Email       *string
	PrivyID     string
	DisplayName *string
	AvatarURL   *string
	CreatedAt   time.Time
	UpdatedAt   time.Time
}

// IdentifierKind はプロファイル検索に使う識別子の種別。
type IdentifierKind int

const (
	// IdentifierWallet はウォレットアドレス（user_addressカラム）での検索。
	IdentifierWallet IdentifierKind = iota
	// IdentifierEmail はメールアドレス（emailカラム）での検索。
	IdentifierEmail
)

// KindOfIdentifier は識別子の種別を判定する。
// 「@」を含む識別子はメールアドレス、それ以外はウォレットアドレスとして扱う。
func KindOfIdentifier(identifier string) IdentifierKind {
	if strings.Contains(identifier, "@") {
		return IdentifierEmail
	}
	return IdentifierWallet
}

// Identifier はプロファイルの正規識別子（非nilの方のカラム値）を返す。
func (p *Profile) Identifier() string {
	if p.UserAddress != nil {
		return *p.UserAddress
	}
	if p.Email != nil {
		return *p.Email
	}
	return ""
}
