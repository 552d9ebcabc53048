package identity

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"

	"github.com/cryptofund/cryptofund/internal/model"
)

const defaultPrivyAPIURL = "https://auth.privy.io"

// PrivyConfig はPrivyプロバイダーの設定。
type PrivyConfig struct {
	AppID     string
	AppSecret string

	// テスト用にオーバーライド可能なAPIベースURL
	APIURL string
}

// PrivyProvider はPrivyのサーバーAPIによるトークン検証を提供する。
type PrivyProvider struct {
	config     PrivyConfig
	httpClient *http.Client
}

// NewPrivyProvider はPrivyProviderを生成する。
// httpClientがnilの場合はhttp.DefaultClientを使用する。
func NewPrivyProvider(config PrivyConfig, httpClient *http.Client) *PrivyProvider {
	if config.APIURL == "" {
		config.APIURL = defaultPrivyAPIURL
	}
	if httpClient == nil {
		httpClient = http.DefaultClient
	}
	return &PrivyProvider{config: config, httpClient: httpClient}
}

// privyLinkedAccount はPrivyのリンクアカウントのレスポンス。
// typeフィールドでwallet/emailを判別する。
type privyLinkedAccount struct {
	Type    string `json:"type"`
	Address string `json:"address,omitempty"`
	Email   string `json:"email,omitempty"`
}

// privyUserResponse はPrivyのユーザー情報エンドポイントのレスポンス。
type privyUserResponse struct {
	ID             string               `json:"id"`
	LinkedAccounts []privyLinkedAccount `json:"linked_accounts"`
}

// VerifyToken は認証トークンを検証し、ユーザー情報を取得する。
// 401/403はAuthenticated=falseとして返す（エラーではない）。
// 200でユーザーIDが欠落している場合はAuthenticated=true, User=nilの不整合状態を返す。
func (p *PrivyProvider) VerifyToken(ctx context.Context, authToken string) (*VerifyResult, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, p.config.APIURL+"/api/v1/users/me", nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create verify request: %w", err)
	}
	req.Header.Set("Authorization", "Bearer "+authToken)
	req.Header.Set("privy-app-id", p.config.AppID)

	resp, err := p.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("verify request failed: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("failed to read verify response: %w", err)
	}

	switch {
	case resp.StatusCode == http.StatusUnauthorized || resp.StatusCode == http.StatusForbidden:
		return &VerifyResult{Authenticated: false}, nil
	case resp.StatusCode != http.StatusOK:
		return nil, fmt.Errorf("identity provider returned status %d: %s", resp.StatusCode, string(body))
	}

	var userResp privyUserResponse
	if err := json.Unmarshal(body, &userResp); err != nil {
		return nil, fmt.Errorf("failed to parse user response: %w", err)
	}

	// トークンは受理されたがユーザー情報が欠落している不整合状態。
	// 呼び出し側のガードが強制ログアウトで是正する。
	if userResp.ID == "" {
		return &VerifyResult{Authenticated: true, User: nil}, nil
	}

	return &VerifyResult{
		Authenticated: true,
		User: &model.IdentityUser{
			ID:             userResp.ID,
			LinkedAccounts: toLinkedAccounts(userResp.LinkedAccounts),
		},
	}, nil
}

// RevokeSessions は指定ユーザーのプロバイダー側セッションを全て失効させる。
func (p *PrivyProvider) RevokeSessions(ctx context.Context, providerUserID string) error {
	url := fmt.Sprintf("%s/api/v1/users/%s/sessions", p.config.APIURL, providerUserID)
	req, err := http.NewRequestWithContext(ctx, http.MethodDelete, url, nil)
	if err != nil {
		return fmt.Errorf("failed to create revoke request: %w", err)
	}
	req.SetBasicAuth(p.config.AppID, p.config.AppSecret)
	req.Header.Set("privy-app-id", p.config.AppID)

	resp, err := p.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("revoke request failed: %w", err)
	}
	defer resp.Body.Close()
	io.Copy(io.Discard, resp.Body)

	if resp.StatusCode != http.StatusOK && resp.StatusCode != http.StatusNoContent {
		return fmt.Errorf("session revoke failed with status %d", resp.StatusCode)
	}
	return nil
}

// RevokeToken は認証トークン自体を失効させる。
// ユーザーIDが欠落した不整合セッションの強制ログアウト用に、
// トークン保有者のセッションをトークン指定で破棄する。
func (p *PrivyProvider) RevokeToken(ctx context.Context, authToken string) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodDelete, p.config.APIURL+"/api/v1/sessions", nil)
	if err != nil {
		return fmt.Errorf("failed to create token revoke request: %w", err)
	}
	req.Header.Set("Authorization", "Bearer "+authToken)
	req.Header.Set("privy-app-id", p.config.AppID)

	resp, err := p.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("token revoke request failed: %w", err)
	}
	defer resp.Body.Close()
	io.Copy(io.Discard, resp.Body)

	if resp.StatusCode != http.StatusOK && resp.StatusCode != http.StatusNoContent {
		return fmt.Errorf("token revoke failed with status %d", resp.StatusCode)
	}
	return nil
}

// toLinkedAccounts はPrivyのレスポンスを閉じたバリアント型の列に変換する。
// wallet/email以外のアカウント種別は識別子導出に関与しないため読み飛ばす。
func toLinkedAccounts(accounts []privyLinkedAccount) []model.LinkedAccount {
	var result []model.LinkedAccount
	for _, a := range accounts {
		switch a.Type {
		case "wallet":
			result = append(result, model.WalletAccount{Address: a.Address})
		case "email":
			// Privyはemailアカウントのアドレスをaddressフィールドで返す場合がある
			email := a.Email
			if email == "" {
				email = a.Address
			}
			result = append(result, model.EmailAccount{Email: email})
		}
	}
	return result
}

// compile-time interface check
var _ Provider = (*PrivyProvider)(nil)
