// Package model はドメインモデルを定義する。
package model

import "time"

// NewsItem はマーケットニュースの記事を表す。
// 設定されたRSSソースからバッチワーカーが取得し、サニタイズ済みの状態で保存される。
type NewsItem struct {
	ID          string
	SourceURL   string
	GuidOrID    string
	Title       string
	Link        string
	Summary     string // サニタイズ済み
	Author      string
	PublishedAt *time.Time
	FetchedAt   time.Time
	CreatedAt   time.Time
	UpdatedAt   time.Time
}

// ParsedNewsItem はRSSソースからパース直後の記事を表す。
// サニタイズ前の生データであり、保存時にNewsItemへ変換される。
type ParsedNewsItem struct {
	GuidOrID    string
	Title       string
	Link        string
	Summary     string
	Author      string
	PublishedAt *time.Time
}
