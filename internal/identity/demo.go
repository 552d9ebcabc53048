package identity

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"fmt"
	"strings"
	"time"

	"github.com/cryptofund/cryptofund/internal/model"
)

// DemoProvider は外部IdPなしで動作するデモ用プロバイダー。
// DEMO_MODE=true のときに使用され、任意のトークンを受理して
// 擬似ユーザーを生成する。本番環境では使用しない。
type DemoProvider struct {
	// テストで時刻を固定するためのフック
	now func() time.Time
}

// NewDemoProvider はDemoProviderを生成する。
func NewDemoProvider() *DemoProvider {
	return &DemoProvider{now: time.Now}
}

// VerifyToken はトークンを検証せずに擬似ユーザーを返す。
// トークンが "email:" で始まる場合はメールアカウント、
// それ以外はランダムなウォレットアドレスをリンクする。
// 空トークンのみ未認証として扱う。
func (p *DemoProvider) VerifyToken(_ context.Context, authToken string) (*VerifyResult, error) {
	if authToken == "" {
		return &VerifyResult{Authenticated: false}, nil
	}

	userID := fmt.Sprintf("user_%d", p.now().UnixMilli())

	var account model.LinkedAccount
	if after, ok := strings.CutPrefix(authToken, "email:"); ok {
		account = model.EmailAccount{Email: after}
	} else {
		addr, err := randomWalletAddress()
		if err != nil {
			return nil, fmt.Errorf("failed to generate demo wallet address: %w", err)
		}
		account = model.WalletAccount{Address: addr}
	}

	return &VerifyResult{
		Authenticated: true,
		User: &model.IdentityUser{
			ID:             userID,
			LinkedAccounts: []model.LinkedAccount{account},
		},
	}, nil
}

// RevokeSessions はデモモードでは何もしない。
func (p *DemoProvider) RevokeSessions(_ context.Context, _ string) error {
	return nil
}

// RevokeToken はデモモードでは何もしない。
func (p *DemoProvider) RevokeToken(_ context.Context, _ string) error {
	return nil
}

// randomWalletAddress は0xプレフィックス付き40桁hexのアドレスを生成する。
func randomWalletAddress() (string, error) {
	b := make([]byte, 20)
	if _, err := rand.Read(b); err != nil {
		return "", err
	}
	return "0x" + hex.EncodeToString(b), nil
}

var _ Provider = (*DemoProvider)(nil)
