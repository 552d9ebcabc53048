// Package security はアプリケーションのセキュリティ機能を提供する。
//
// SanitizerService はユーザー入力とニュース記事のコンテンツをサニタイズし、
// XSS攻撃などのセキュリティリスクからユーザーを保護する。
// bluemondayライブラリを使用した許可リストベースのポリシーで、
// 安全なタグと属性のみを通過させる。
package security

import (
	"net/url"
	"strings"

	"github.com/microcosm-cc/bluemonday"
)

// SanitizerService はコンテンツのサニタイズ機能のインターフェースを定義する。
type SanitizerService interface {
	// SanitizeHTML はニュース記事のHTMLをサニタイズして安全なHTMLを返す。
	// 許可タグ（p, br, a, ul, ol, li, blockquote, pre, code, strong, em）のみを通過させ、
	// script, iframe, styleタグおよびon*イベント属性を除去する。
	// aタグにはtarget="_blank"とrel="noopener noreferrer"が自動付与される。
	// 空文字列の入力には空文字列を返す。
	// 同一入力に対して常に同一出力を返す（冪等）。
	SanitizeHTML(rawHTML string) string

	// SanitizeText はプレーンテキスト入力（表示名、トークン名・シンボル・説明）から
	// HTMLタグを全て除去し、前後の空白をトリムして返す。
	SanitizeText(raw string) string
}

// sanitizer はSanitizerServiceの実装。
// bluemondayのポリシーを保持し、スレッドセーフにサニタイズ処理を行う。
type sanitizer struct {
	htmlPolicy *bluemonday.Policy
	textPolicy *bluemonday.Policy
}

// NewSanitizer はSanitizerServiceの新しいインスタンスを生成する。
// 初期化時にbluemondayのカスタムポリシーを構築する。
// HTMLポリシーの内容:
//   - 許可タグ: p, br, a, ul, ol, li, blockquote, pre, code, strong, em
//   - 禁止タグ: script, iframe, style および全てのon*イベント属性
//   - aタグ: target="_blank" と rel="noopener noreferrer" を自動付与
//
// テキストポリシーはStrictPolicy（全タグ除去）を使用する。
func NewSanitizer() *sanitizer {
	p := bluemonday.NewPolicy()

	// 許可タグの設定（属性なしのシンプルなタグ）。
	// scriptやiframe、on*イベント属性は許可リストに含めないことで自動的に除去される。
	p.AllowElements(
		"p", "br", "ul", "ol", "li",
		"blockquote", "pre", "code",
		"strong", "em",
	)

	// aタグ: href属性のみ許可、相対URLは不許可、
	// target="_blank"とrel="noreferrer noopener"を強制付与。
	p.AllowAttrs("href").OnElements("a")
	p.AllowRelativeURLs(false)
	p.AddTargetBlankToFullyQualifiedLinks(true)
	p.RequireNoReferrerOnLinks(true)

	// hrefはhttpsスキームのみ許可（http, javascript, data等は拒否）
	p.AllowURLSchemeWithCustomPolicy("https", func(_ *url.URL) bool {
		return true
	})

	return &sanitizer{
		htmlPolicy: p,
		textPolicy: bluemonday.StrictPolicy(),
	}
}

// SanitizeHTML はニュース記事のHTMLをサニタイズして安全なHTMLを返す。
func (s *sanitizer) SanitizeHTML(rawHTML string) string {
	return s.htmlPolicy.Sanitize(rawHTML)
}

// SanitizeText はHTMLタグを全て除去したプレーンテキストを返す。
func (s *sanitizer) SanitizeText(raw string) string {
	return strings.TrimSpace(s.textPolicy.Sanitize(raw))
}

// compile-time interface check
var _ SanitizerService = (*sanitizer)(nil)
