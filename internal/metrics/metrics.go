// Package metrics はPrometheusメトリクスの収集と公開を提供する。
package metrics

import (
	"net/http"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// MetricsCollector はメトリクス収集のインターフェース。
// サービス層やワーカーから利用する。
type MetricsCollector interface {
	RecordSyncSuccess()
	RecordSyncFailure(reason string)
	RecordGuardTrip()
	RecordHTTPStatus(statusCode int)
	RecordRequestLatency(duration time.Duration)
	RecordNewsFetchSuccess(sourceURL string)
	RecordNewsFetchFailure(sourceURL string, reason string)
	RecordPurchase()
}

// Collector はPrometheusメトリクスを収集する実装。
type Collector struct {
	syncSuccess    prometheus.Counter
	syncFail       prometheus.Counter
	guardTrips     prometheus.Counter
	httpStatus     *prometheus.CounterVec
	requestLatency prometheus.Histogram
	newsSuccess    prometheus.Counter
	newsFail       prometheus.Counter
	purchases      prometheus.Counter
}

// NewCollector は新しいCollectorを生成し、指定されたレジストリにメトリクスを登録する。
func NewCollector(reg prometheus.Registerer) *Collector {
	c := &Collector{
		syncSuccess: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "cryptofund_profile_sync_success_total",
			Help: "プロファイル同期成功の合計数",
		}),
		syncFail: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "cryptofund_profile_sync_fail_total",
			Help: "プロファイル同期失敗の合計数",
		}),
		guardTrips: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "cryptofund_session_guard_trips_total",
			Help: "不整合セッションによる強制ログアウトの合計数",
		}),
		httpStatus: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "cryptofund_http_status_total",
			Help: "HTTPステータスコード別のレスポンス数",
		}, []string{"status_code"}),
		requestLatency: prometheus.NewHistogram(prometheus.HistogramOpts{
			Name:    "cryptofund_request_latency_seconds",
			Help:    "HTTPリクエストのレイテンシ（秒）",
			Buckets: prometheus.DefBuckets,
		}),
		newsSuccess: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "cryptofund_news_fetch_success_total",
			Help: "ニュースフィードフェッチ成功の合計数",
		}),
		newsFail: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "cryptofund_news_fetch_fail_total",
			Help: "ニュースフィードフェッチ失敗の合計数",
		}),
		purchases: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "cryptofund_token_purchases_total",
			Help: "記録されたトークン購入の合計数",
		}),
	}

	reg.MustRegister(
		c.syncSuccess,
		c.syncFail,
		c.guardTrips,
		c.httpStatus,
		c.requestLatency,
		c.newsSuccess,
		c.newsFail,
		c.purchases,
	)

	return c
}

// RecordSyncSuccess はプロファイル同期成功を記録する。
func (c *Collector) RecordSyncSuccess() {
	c.syncSuccess.Inc()
}

// RecordSyncFailure はプロファイル同期失敗を記録する。
func (c *Collector) RecordSyncFailure(reason string) {
	c.syncFail.Inc()
}

// RecordGuardTrip は強制ログアウトの実行を記録する。
func (c *Collector) RecordGuardTrip() {
	c.guardTrips.Inc()
}

// RecordHTTPStatus はHTTPステータスコードを記録する。
func (c *Collector) RecordHTTPStatus(statusCode int) {
	c.httpStatus.WithLabelValues(strconv.Itoa(statusCode)).Inc()
}

// RecordRequestLatency はリクエストのレイテンシを記録する。
func (c *Collector) RecordRequestLatency(duration time.Duration) {
	c.requestLatency.Observe(duration.Seconds())
}

// RecordNewsFetchSuccess はニュースフェッチ成功を記録する。
func (c *Collector) RecordNewsFetchSuccess(sourceURL string) {
	c.newsSuccess.Inc()
}

// RecordNewsFetchFailure はニュースフェッチ失敗を記録する。
func (c *Collector) RecordNewsFetchFailure(sourceURL string, reason string) {
	c.newsFail.Inc()
}

// RecordPurchase はトークン購入の記録を記録する。
func (c *Collector) RecordPurchase() {
	c.purchases.Inc()
}

// Handler はPrometheusスクレイプ用のHTTPハンドラーを返す。
func Handler(gatherer prometheus.Gatherer) http.Handler {
	return promhttp.HandlerFor(gatherer, promhttp.HandlerOpts{})
}
