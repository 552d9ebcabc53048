package repository

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/cryptofund/cryptofund/internal/model"
)

// PostgresNewsRepo はPostgreSQLを使用したマーケットニュースリポジトリ。
type PostgresNewsRepo struct {
	db *sql.DB
}

// NewPostgresNewsRepo はPostgresNewsRepoを生成する。
func NewPostgresNewsRepo(db *sql.DB) *PostgresNewsRepo {
	return &PostgresNewsRepo{db: db}
}

const newsColumns = `id, source_url, guid_or_id, title, link, summary, author, published_at, fetched_at, created_at, updated_at`

// FindBySourceAndGUID は(source_url, guid_or_id)で記事を検索する。見つからない場合はnilを返す。
func (r *PostgresNewsRepo) FindBySourceAndGUID(ctx context.Context, sourceURL, guidOrID string) (*model.NewsItem, error) {
	item := &model.NewsItem{}
	err := r.db.QueryRowContext(ctx,
		`SELECT `+newsColumns+` FROM news_items WHERE source_url = $1 AND guid_or_id = $2`,
		sourceURL, guidOrID,
	).Scan(
		&item.ID, &item.SourceURL, &item.GuidOrID, &item.Title, &item.Link,
		&item.Summary, &item.Author, &item.PublishedAt, &item.FetchedAt,
		&item.CreatedAt, &item.UpdatedAt,
	)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to find news item: %w", err)
	}
	return item, nil
}

// Create は記事を新規作成する。
func (r *PostgresNewsRepo) Create(ctx context.Context, item *model.NewsItem) error {
	_, err := r.db.ExecContext(ctx,
		`INSERT INTO news_items (id, source_url, guid_or_id, title, link, summary, author, published_at, fetched_at, created_at, updated_at)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)`,
		item.ID, item.SourceURL, item.GuidOrID, item.Title, item.Link,
		item.Summary, item.Author, item.PublishedAt, item.FetchedAt,
		item.CreatedAt, item.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("failed to insert news item: %w", err)
	}
	return nil
}

// Update は既存記事を上書き更新する。
func (r *PostgresNewsRepo) Update(ctx context.Context, item *model.NewsItem) error {
	_, err := r.db.ExecContext(ctx,
		`UPDATE news_items
		 SET title = $2, link = $3, summary = $4, author = $5, published_at = $6, fetched_at = $7, updated_at = $8
		 WHERE id = $1`,
		item.ID, item.Title, item.Link, item.Summary, item.Author,
		item.PublishedAt, item.FetchedAt, item.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("failed to update news item: %w", err)
	}
	return nil
}

// ListRecent は公開日の新しい順に記事一覧を取得する。
func (r *PostgresNewsRepo) ListRecent(ctx context.Context, limit int) ([]model.NewsItem, error) {
	rows, err := r.db.QueryContext(ctx,
		`SELECT `+newsColumns+` FROM news_items
		 ORDER BY published_at DESC NULLS LAST, fetched_at DESC
		 LIMIT $1`,
		limit,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to list news items: %w", err)
	}
	defer rows.Close()

	var items []model.NewsItem
	for rows.Next() {
		var item model.NewsItem
		if err := rows.Scan(
			&item.ID, &item.SourceURL, &item.GuidOrID, &item.Title, &item.Link,
			&item.Summary, &item.Author, &item.PublishedAt, &item.FetchedAt,
			&item.CreatedAt, &item.UpdatedAt,
		); err != nil {
			return nil, fmt.Errorf("failed to scan news item: %w", err)
		}
		items = append(items, item)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate news items: %w", err)
	}
	return items, nil
}

// DeleteOlderThan はcutoffより古い記事を削除し、削除件数を返す。
func (r *PostgresNewsRepo) DeleteOlderThan(ctx context.Context, cutoff time.Time) (int64, error) {
	result, err := r.db.ExecContext(ctx,
		`DELETE FROM news_items WHERE fetched_at < $1`, cutoff)
	if err != nil {
		return 0, fmt.Errorf("failed to delete old news items: %w", err)
	}
	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("failed to get rows affected: %w", err)
	}
	return rowsAffected, nil
}

// compile-time interface check
var _ NewsRepository = (*PostgresNewsRepo)(nil)
