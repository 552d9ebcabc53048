// Package token はトークンマーケットプレイスのビジネスロジックを提供する。
package token

import (
	"sort"
	"strings"

	"github.com/cryptofund/cryptofund/internal/model"
)

// Presenter はメモリ上のトークン列に対するフィルタとソートを提供する。
// 永続化やネットワークアクセスは行わない。
type Presenter struct{}

// NewPresenter はPresenterを生成する。
func NewPresenter() *Presenter {
	return &Presenter{}
}

// Filter はname/symbolのいずれかにクエリが部分一致するトークンを返す。
// 大文字小文字は区別しない。空クエリは入力をそのままの順序で返す。
func (p *Presenter) Filter(records []model.Token, query string) []model.Token {
	if query == "" {
		return records
	}

	q := strings.ToLower(query)
	var result []model.Token
	for _, token := range records {
		if strings.Contains(strings.ToLower(token.Name), q) ||
			strings.Contains(strings.ToLower(token.Symbol), q) {
			result = append(result, token)
		}
	}
	return result
}

// SortDescendingBy は指定フィールドの降順で安定ソートした新しい列を返す。
// 入力の列は変更しない。field はprice/market_cap/change_24h/volume_24hのいずれか。
func (p *Presenter) SortDescendingBy(records []model.Token, field string) ([]model.Token, error) {
	if !model.ValidTokenSortField(field) {
		return nil, model.NewInvalidSortFieldError(field)
	}

	sorted := make([]model.Token, len(records))
	copy(sorted, records)

	key := sortKey(model.TokenSortField(field))
	sort.SliceStable(sorted, func(i, j int) bool {
		return key(sorted[i]) > key(sorted[j])
	})

	return sorted, nil
}

// sortKey はソート対象フィールドの値を取り出す関数を返す。
func sortKey(field model.TokenSortField) func(model.Token) float64 {
	switch field {
	case model.SortByPrice:
		return func(t model.Token) float64 { return t.Price }
	case model.SortByMarketCap:
		return func(t model.Token) float64 { return t.MarketCap }
	case model.SortByChange24h:
		return func(t model.Token) float64 { return t.Change24h }
	default:
		return func(t model.Token) float64 { return t.Volume24h }
	}
}
