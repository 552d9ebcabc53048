// Package cleanup は期限切れセッションと古いニュース記事の自動削除ジョブを提供する。
// 日次バッチとして実行され、冪等な削除処理を保証する。
package cleanup

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"
	"time"
)

// Executor はSQLのExecContextを抽象化するインターフェース。
// *sql.DB や *sql.Tx を受け付けることができる。
type Executor interface {
	ExecContext(ctx context.Context, query string, args ...interface{}) (sql.Result, error)
}

// CleanupJob は期限切れセッションと保持期間を超えたニュース記事の削除ジョブ。
type CleanupJob struct {
	db     Executor
	logger *slog.Logger
	// NewsRetentionDays はニュース記事の保持日数（デフォルト: 90）
	NewsRetentionDays int
}

// NewCleanupJob は新しいCleanupJobを生成する。
// デフォルトのニュース保持日数は90日。
func NewCleanupJob(db Executor, logger *slog.Logger) *CleanupJob {
	return &CleanupJob{
		db:                db,
		logger:            logger,
		NewsRetentionDays: 90,
	}
}

// Run は期限切れセッションと古いニュース記事を削除する。
// 冪等: 削除対象がない場合でもエラーにならない。
func (j *CleanupJob) Run(ctx context.Context) error {
	start := time.Now()

	sessionsDeleted, err := j.deleteExpiredSessions(ctx)
	if err != nil {
		return err
	}

	newsDeleted, err := j.deleteOldNewsItems(ctx)
	if err != nil {
		return err
	}

	duration := time.Since(start)
	j.logger.Info("クリーンアップジョブが完了しました",
		slog.Int64("sessions_deleted", sessionsDeleted),
		slog.Int64("news_items_deleted", newsDeleted),
		slog.Int("news_retention_days", j.NewsRetentionDays),
		slog.Float64("duration_ms", float64(duration.Milliseconds())),
	)

	return nil
}

// deleteExpiredSessions は有効期限を過ぎたセッションを削除する。
func (j *CleanupJob) deleteExpiredSessions(ctx context.Context) (int64, error) {
	query := `DELETE FROM sessions WHERE expires_at < now()`
	result, err := j.db.ExecContext(ctx, query)
	if err != nil {
		j.logger.Error("セッションクリーンアップの実行に失敗しました",
			slog.String("error", err.Error()),
		)
		return 0, fmt.Errorf("セッションクリーンアップの実行に失敗: %w", err)
	}

	deleted, err := result.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("削除件数の取得に失敗: %w", err)
	}
	return deleted, nil
}

// deleteOldNewsItems は保持期間を超過したニュース記事を削除する。
func (j *CleanupJob) deleteOldNewsItems(ctx context.Context) (int64, error) {
	interval := fmt.Sprintf("%d days", j.NewsRetentionDays)

	query := `DELETE FROM news_items WHERE created_at < now() - $1::interval`
	result, err := j.db.ExecContext(ctx, query, interval)
	if err != nil {
		j.logger.Error("ニュースクリーンアップの実行に失敗しました",
			slog.String("error", err.Error()),
			slog.Int("retention_days", j.NewsRetentionDays),
		)
		return 0, fmt.Errorf("ニュースクリーンアップの実行に失敗: %w", err)
	}

	deleted, err := result.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("削除件数の取得に失敗: %w", err)
	}
	return deleted, nil
}
