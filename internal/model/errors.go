// Package model はドメインモデルを定義する。
package model

import "fmt"

// APIError は統一エラーフォーマットを表す。
// UIに表示する原因カテゴリと対処方法を含む。
type APIError struct {
	Code     string `json:"code"`     // エラーコード
	Message  string `json:"message"`  // エラーメッセージ
	Category string `json:"category"` // カテゴリ: auth, validation, market, system
	Action   string `json:"action"`   // ユーザー向け対処方法
}

// Error はerrorインターフェースを実装する。
func (e *APIError) Error() string {
	return fmt.Sprintf("[%s] %s", e.Code, e.Message)
}

// 定義済みエラーコード
const (
	ErrCodeTransport           = "TRANSPORT_ERROR"
	ErrCodeInconsistentSession = "INCONSISTENT_SESSION"
	ErrCodeUnauthorizedUpdate  = "UNAUTHORIZED_TOKEN_UPDATE"
	ErrCodeTokenNotFound       = "TOKEN_NOT_FOUND"
	ErrCodeInvalidIdentifier   = "INVALID_IDENTIFIER"
	ErrCodeInvalidSortField    = "INVALID_SORT_FIELD"
	ErrCodeInvalidAvatarURL    = "INVALID_AVATAR_URL"
	ErrCodeInvalidPurchase     = "INVALID_PURCHASE"
	ErrCodeWalletRequired      = "WALLET_REQUIRED"
)

// NewTransportError はストア/ネットワーク到達不能エラーを生成する。
// このエラーは自動リトライされない。次のセッション遷移で再試行される。
func NewTransportError(reason string) *APIError {
	return &APIError{
		Code:     ErrCodeTransport,
		Message:  fmt.Sprintf("リモートストアへのアクセスに失敗しました: %s", reason),
		Category: "system",
		Action:   "しばらく待ってから再度お試しください。",
	}
}

// NewInconsistentSessionError は「認証済みだがユーザー情報なし」の不整合エラーを生成する。
// 唯一、自動是正（強制ログアウト）の対象となるエラー。
func NewInconsistentSessionError() *APIError {
	return &APIError{
		Code:     ErrCodeInconsistentSession,
		Message:  "認証トークンに問題が検出されました。",
		Category: "auth",
		Action:   "自動的にログアウトされます。再度ログインしてください。",
	}
}

// NewUnauthorizedUpdateError はトークン作成者以外による更新エラーを生成する。
func NewUnauthorizedUpdateError(tokenID string) *APIError {
	return &APIError{
		Code:     ErrCodeUnauthorizedUpdate,
		Message:  fmt.Sprintf("このトークンを更新する権限がありません: %s", tokenID),
		Category: "auth",
		Action:   "トークンの作成者アカウントでログインしてください。",
	}
}

// NewTokenNotFoundError はトークン未検出エラーを生成する。
func NewTokenNotFoundError(tokenID string) *APIError {
	return &APIError{
		Code:     ErrCodeTokenNotFound,
		Message:  fmt.Sprintf("指定されたトークンが見つかりません: %s", tokenID),
		Category: "market",
		Action:   "トークンIDを確認してください。",
	}
}

// NewInvalidIdentifierError は空または不正な識別子エラーを生成する。
func NewInvalidIdentifierError() *APIError {
	return &APIError{
		Code:     ErrCodeInvalidIdentifier,
		Message:  "ウォレットアドレスまたはメールアドレスが指定されていません。",
		Category: "validation",
		Action:   "ウォレットを接続するか、メールアドレスでログインしてください。",
	}
}

// NewInvalidSortFieldError は未定義のソートカラム指定エラーを生成する。
func NewInvalidSortFieldError(field string) *APIError {
	return &APIError{
		Code:     ErrCodeInvalidSortField,
		Message:  fmt.Sprintf("無効なソート項目です: %s", field),
		Category: "validation",
		Action:   "price、market_cap、change_24h、volume_24h のいずれかを指定してください。",
	}
}

// NewInvalidAvatarURLError は安全でないアバターURLエラーを生成する。
func NewInvalidAvatarURLError(reason string) *APIError {
	return &APIError{
		Code:     ErrCodeInvalidAvatarURL,
		Message:  fmt.Sprintf("アバターURLが無効です: %s", reason),
		Category: "validation",
		Action:   "https:// で始まる公開URLを指定してください。",
	}
}

// NewInvalidPurchaseError は不正な購入リクエストエラーを生成する。
func NewInvalidPurchaseError(reason string) *APIError {
	return &APIError{
		Code:     ErrCodeInvalidPurchase,
		Message:  fmt.Sprintf("購入リクエストが無効です: %s", reason),
		Category: "validation",
		Action:   "数量と単価は正の数値を指定してください。",
	}
}

// NewWalletRequiredError はウォレット未接続エラーを生成する。
// 保有・取引の照会およびトークン作成はウォレット識別子が必要。
func NewWalletRequiredError() *APIError {
	return &APIError{
		Code:     ErrCodeWalletRequired,
		Message:  "この操作にはウォレットの接続が必要です。",
		Category: "auth",
		Action:   "ウォレットを接続してから再度お試しください。",
	}
}
