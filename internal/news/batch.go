package news

import (
	"context"
	"log/slog"
	"time"

	"github.com/cryptofund/cryptofund/internal/metrics"
	"github.com/cryptofund/cryptofund/internal/model"
)

// SourceFetcher はニュースソースのフェッチのインターフェース。
// テスト時にモックに差し替え可能。
type SourceFetcher interface {
	Fetch(ctx context.Context, sourceURL string) ([]model.ParsedNewsItem, error)
}

// ItemUpserter は記事のUPSERT処理のインターフェース。
type ItemUpserter interface {
	UpsertItems(ctx context.Context, sourceURL string, items []model.ParsedNewsItem) (int, int, error)
}

// BatchConfig はニュースバッチジョブの設定パラメータ。
type BatchConfig struct {
	// FetchInterval はバッチサイクルの実行間隔。
	FetchInterval time.Duration
	// APIInterval はソース間のフェッチの最低間隔。
	APIInterval time.Duration
	// FeedURLs は取得対象のニュースソースURL。
	FeedURLs []string
}

// BatchJob は設定されたニュースソースを定期的にフェッチして保存するジョブ。
// 1ソースの失敗はログに記録し、残りのソースの処理を継続する。
type BatchJob struct {
	fetcher  SourceFetcher
	upserter ItemUpserter
	logger   *slog.Logger
	config   BatchConfig
	metrics  metrics.MetricsCollector
}

// NewBatchJob はBatchJobの新しいインスタンスを生成する。collectorはnil可。
func NewBatchJob(
	fetcher SourceFetcher,
	upserter ItemUpserter,
	logger *slog.Logger,
	config BatchConfig,
	collector metrics.MetricsCollector,
) *BatchJob {
	return &BatchJob{
		fetcher:  fetcher,
		upserter: upserter,
		logger:   logger,
		config:   config,
		metrics:  collector,
	}
}

// Start はバッチジョブをティッカーで定期実行する。
// コンテキストがキャンセルされるまで実行を継続する。
func (b *BatchJob) Start(ctx context.Context) {
	ticker := time.NewTicker(b.config.FetchInterval)
	defer ticker.Stop()

	b.logger.Info("ニュースバッチジョブを開始しました",
		slog.Duration("fetch_interval", b.config.FetchInterval),
		slog.Int("sources", len(b.config.FeedURLs)),
	)

	// 起動直後に1回実行
	if err := b.RunOnce(ctx); err != nil {
		b.logger.Error("ニュースバッチサイクルの実行に失敗しました",
			slog.String("error", err.Error()),
		)
	}

	for {
		select {
		case <-ctx.Done():
			b.logger.Info("ニュースバッチジョブを停止しました")
			return
		case <-ticker.C:
			if err := b.RunOnce(ctx); err != nil {
				b.logger.Error("ニュースバッチサイクルの実行に失敗しました",
					slog.String("error", err.Error()),
				)
			}
		}
	}
}

// RunOnce は1回のバッチサイクルを実行する。
// 全ソースを順番にフェッチし、ソース間にAPIIntervalの待機を挟む。
func (b *BatchJob) RunOnce(ctx context.Context) error {
	if len(b.config.FeedURLs) == 0 {
		b.logger.Info("取得対象のニュースソースがありません")
		return nil
	}

	for i, sourceURL := range b.config.FeedURLs {
		if ctx.Err() != nil {
			return ctx.Err()
		}

		// ソース間インターバル（初回は待たない）
		if i > 0 {
			select {
			case <-ctx.Done():
				return ctx.Err()
			case <-time.After(b.config.APIInterval):
			}
		}

		items, err := b.fetcher.Fetch(ctx, sourceURL)
		if err != nil {
			b.logger.Error("ニュースソースのフェッチに失敗しました",
				slog.String("source_url", sourceURL),
				slog.String("error", err.Error()),
			)
			if b.metrics != nil {
				b.metrics.RecordNewsFetchFailure(sourceURL, err.Error())
			}
			continue
		}

		inserted, updated, err := b.upserter.UpsertItems(ctx, sourceURL, items)
		if err != nil {
			b.logger.Error("記事のUPSERTに失敗しました",
				slog.String("source_url", sourceURL),
				slog.String("error", err.Error()),
			)
			if b.metrics != nil {
				b.metrics.RecordNewsFetchFailure(sourceURL, err.Error())
			}
			continue
		}

		if b.metrics != nil {
			b.metrics.RecordNewsFetchSuccess(sourceURL)
		}
		b.logger.Info("ニュースソースの取り込みが完了しました",
			slog.String("source_url", sourceURL),
			slog.Int("items_inserted", inserted),
			slog.Int("items_updated", updated),
		)
	}

	return nil
}
