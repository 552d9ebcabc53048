package news

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/cryptofund/cryptofund/internal/model"
	"github.com/cryptofund/cryptofund/internal/repository"
	"github.com/cryptofund/cryptofund/internal/security"
)

// デフォルトと上限の記事取得件数
const (
	defaultListLimit = 20
	maxListLimit     = 100
)

// Service はニュース記事のUPSERTと照会を提供する。
type Service struct {
	repo      repository.NewsRepository
	sanitizer security.SanitizerService
}

// NewService はServiceを生成する。
func NewService(repo repository.NewsRepository, sanitizer security.SanitizerService) *Service {
	return &Service{repo: repo, sanitizer: sanitizer}
}

// UpsertItems はパース済みの記事列をサニタイズして保存する。
// (source_url, guid_or_id)の組で既存記事を特定し、存在すれば更新、なければ作成する。
// GUIDがない記事はリンクをGUIDとして使い、両方ない記事はスキップする。
// 戻り値は挿入件数と更新件数。
func (s *Service) UpsertItems(ctx context.Context, sourceURL string, items []model.ParsedNewsItem) (int, int, error) {
	var inserted, updated int

	for _, item := range items {
		guid := item.GuidOrID
		if guid == "" {
			guid = item.Link
		}
		if guid == "" {
			continue
		}

		title := s.sanitizer.SanitizeText(item.Title)
		author := s.sanitizer.SanitizeText(item.Author)
		summary := s.sanitizer.SanitizeHTML(item.Summary)

		existing, err := s.repo.FindBySourceAndGUID(ctx, sourceURL, guid)
		if err != nil {
			return inserted, updated, fmt.Errorf("記事の検索に失敗しました: %w", err)
		}

		now := time.Now()

		if existing != nil {
			existing.Title = title
			existing.Link = item.Link
			existing.Summary = summary
			existing.Author = author
			existing.PublishedAt = item.PublishedAt
			existing.FetchedAt = now
			existing.UpdatedAt = now

			if err := s.repo.Update(ctx, existing); err != nil {
				return inserted, updated, fmt.Errorf("記事の更新に失敗しました: %w", err)
			}
			updated++
			continue
		}

		newsItem := &model.NewsItem{
			ID:          uuid.New().String(),
			SourceURL:   sourceURL,
			GuidOrID:    guid,
			Title:       title,
			Link:        item.Link,
			Summary:     summary,
			Author:      author,
			PublishedAt: item.PublishedAt,
			FetchedAt:   now,
			CreatedAt:   now,
			UpdatedAt:   now,
		}

		if err := s.repo.Create(ctx, newsItem); err != nil {
			return inserted, updated, fmt.Errorf("記事の作成に失敗しました: %w", err)
		}
		inserted++
	}

	return inserted, updated, nil
}

// ListRecent は公開日時の新しい順に記事を取得する。
// limitが0以下の場合はデフォルト件数、上限を超える場合は上限件数に丸める。
func (s *Service) ListRecent(ctx context.Context, limit int) ([]model.NewsItem, error) {
	if limit <= 0 {
		limit = defaultListLimit
	}
	if limit > maxListLimit {
		limit = maxListLimit
	}

	items, err := s.repo.ListRecent(ctx, limit)
	if err != nil {
		return nil, model.NewTransportError(err.Error())
	}
	return items, nil
}
