// Package model はドメインモデルを定義する。
package model

import "time"

// Token はマーケットプレイスに上場されたトークンを表す。
// PriceとMarketCapは非負。Change24hは騰落率（%）で負値を取りうる。
type Token struct {
	ID             string
	Name           string
	Symbol         string
	Description    string
	Price          float64
	MarketCap      float64
	Change24h      float64
	Volume24h      float64
	ImageURL       string
	CreatorAddress string
	IsFeatured     bool
	CreatedAt      time.Time
	UpdatedAt      time.Time
}

// Holding はウォレットアドレスごとのトークン保有量を表す。
type Holding struct {
	ID               string
	UserAddress      string
	TokenID          string
	Amount           float64
	PurchaseValueUSD float64
	CreatedAt        time.Time
	UpdatedAt        time.Time
}

// TokenTransaction はトークン売買の記録を表す。
// チェーンへのトランザクション送信は行わない。帳簿上の記録のみ。
type TokenTransaction struct {
	ID              string
	UserAddress     string
	TokenID         string
	TransactionType string // "buy" / "sell"
	Amount          float64
	PricePerToken   float64
	TotalValueUSD   float64
	TxHash          *string
	CreatedAt       time.Time
}

// TokenSortField はトークン一覧のソート対象カラム。
type TokenSortField string

const (
	SortByPrice     TokenSortField = "price"
	SortByMarketCap TokenSortField = "market_cap"
	SortByChange24h TokenSortField = "change_24h"
	SortByVolume24h TokenSortField = "volume_24h"
)

// ValidTokenSortField はソート対象カラム名が定義済みかどうかを返す。
func ValidTokenSortField(field string) bool {
	switch TokenSortField(field) {
	case SortByPrice, SortByMarketCap, SortByChange24h, SortByVolume24h:
		return true
	}
	return false
}
