// Package news はマーケットニュースの取得、サニタイズ、保存を提供する。
package news

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"time"

	"github.com/mmcdole/gofeed"

	"github.com/cryptofund/cryptofund/internal/model"
	"github.com/cryptofund/cryptofund/internal/security"
)

// Fetcher はニュースソースのHTTPフェッチとパースを行う。
// SSRF検証付きのHTTPクライアントでフェッチし、gofeedでパースする。
type Fetcher struct {
	urlGuard    security.URLGuardService
	logger      *slog.Logger
	timeout     time.Duration
	maxBodySize int64
}

// NewFetcher はFetcherの新しいインスタンスを生成する。
func NewFetcher(urlGuard security.URLGuardService, logger *slog.Logger, timeout time.Duration, maxBodySize int64) *Fetcher {
	return &Fetcher{
		urlGuard:    urlGuard,
		logger:      logger,
		timeout:     timeout,
		maxBodySize: maxBodySize,
	}
}

// Fetch はニュースソースをフェッチし、パース済みの記事列を返す。
func (f *Fetcher) Fetch(ctx context.Context, sourceURL string) ([]model.ParsedNewsItem, error) {
	// SSRF検証
	if err := f.urlGuard.ValidateURL(sourceURL); err != nil {
		return nil, fmt.Errorf("SSRF検証に失敗: %w", err)
	}

	client := f.urlGuard.NewSafeClient(f.timeout, f.maxBodySize)
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, sourceURL, nil)
	if err != nil {
		return nil, fmt.Errorf("リクエスト作成に失敗: %w", err)
	}

	req.Header.Set("User-Agent", "CryptoFund/1.0 Market News")
	req.Header.Set("Accept", "application/rss+xml, application/atom+xml, application/xml, text/xml, */*")

	resp, err := client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("HTTPリクエスト失敗: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("予期しないHTTPステータス: %d", resp.StatusCode)
	}

	body, err := io.ReadAll(io.LimitReader(resp.Body, f.maxBodySize))
	if err != nil {
		return nil, fmt.Errorf("レスポンス読み取り失敗: %w", err)
	}

	parser := gofeed.NewParser()
	parsedFeed, err := parser.ParseString(string(body))
	if err != nil {
		return nil, fmt.Errorf("フィードのパースに失敗: %w", err)
	}

	items := convertGofeedItems(parsedFeed.Items)

	f.logger.Info("ニュースソースのフェッチが完了しました",
		slog.String("source_url", sourceURL),
		slog.Int("items_total", len(items)),
	)
	return items, nil
}

// convertGofeedItems はgofeedの記事をmodel.ParsedNewsItemに変換する。
func convertGofeedItems(items []*gofeed.Item) []model.ParsedNewsItem {
	parsed := make([]model.ParsedNewsItem, 0, len(items))

	for _, item := range items {
		if item == nil {
			continue
		}

		p := model.ParsedNewsItem{
			Title:   item.Title,
			Link:    item.Link,
			Summary: item.Description,
		}

		if item.GUID != "" {
			p.GuidOrID = item.GUID
		}

		if item.Author != nil {
			p.Author = item.Author.Name
		}
		if p.Author == "" && len(item.Authors) > 0 && item.Authors[0] != nil {
			p.Author = item.Authors[0].Name
		}

		if item.PublishedParsed != nil {
			t := *item.PublishedParsed
			p.PublishedAt = &t
		} else if item.UpdatedParsed != nil {
			t := *item.UpdatedParsed
			p.PublishedAt = &t
		}

		parsed = append(parsed, p)
	}

	return parsed
}
