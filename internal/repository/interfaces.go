// Package repository はデータ永続化層のインターフェースとPostgreSQL実装を提供する。
package repository

import (
	"context"
	"time"

	"github.com/cryptofund/cryptofund/internal/model"
)

// ProfileRepository はプロファイルの永続化を担う。
// 見つからない場合は(nil, nil)を返す。NotFoundはエラーではなく作成のシグナル。
type ProfileRepository interface {
	FindByAddress(ctx context.Context, address string) (*model.Profile, error)
	FindByEmail(ctx context.Context, email string) (*model.Profile, error)
	FindByID(ctx context.Context, id string) (*model.Profile, error)
	// Create は新規プロファイルを挿入する。識別子カラムの部分ユニークインデックスと
	// ON CONFLICT DO UPDATEにより、同一識別子への競合した初回作成は1行に収束する。
	Create(ctx context.Context, profile *model.Profile) error
	// Update は既存プロファイルのprivy_id/display_name/avatar_url/updated_atを更新する。
	Update(ctx context.Context, profile *model.Profile) error
}

// SessionRepository はログインセッションの永続化を担う。
type SessionRepository interface {
	Create(ctx context.Context, session *model.Session) error
	FindByID(ctx context.Context, id string) (*model.Session, error)
	DeleteByID(ctx context.Context, id string) error
	DeleteByProfileID(ctx context.Context, profileID string) error
}

// TokenListOptions はトークン一覧取得のクエリオプション。
type TokenListOptions struct {
	Search        string // name/symbolの部分一致（大文字小文字無視）
	SortBy        model.TokenSortField
	SortAscending bool
	FeaturedOnly  bool
	Limit         int
}

// TokenRepository はトークン・保有・取引の永続化を担う。
type TokenRepository interface {
	List(ctx context.Context, opts TokenListOptions) ([]model.Token, error)
	FindByID(ctx context.Context, id string) (*model.Token, error)
	Create(ctx context.Context, token *model.Token) error
	Update(ctx context.Context, token *model.Token) error
	// RecordPurchase は取引記録の挿入と保有量の積み増しを同一トランザクションで行う。
	RecordPurchase(ctx context.Context, txn *model.TokenTransaction) error
	ListHoldings(ctx context.Context, userAddress string) ([]model.Holding, error)
	ListTransactions(ctx context.Context, userAddress string) ([]model.TokenTransaction, error)
}

// NewsRepository はマーケットニュース記事の永続化を担う。
type NewsRepository interface {
	FindBySourceAndGUID(ctx context.Context, sourceURL, guidOrID string) (*model.NewsItem, error)
	Create(ctx context.Context, item *model.NewsItem) error
	Update(ctx context.Context, item *model.NewsItem) error
	ListRecent(ctx context.Context, limit int) ([]model.NewsItem, error)
	DeleteOlderThan(ctx context.Context, cutoff time.Time) (int64, error)
}
