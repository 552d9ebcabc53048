package middleware

import (
	"context"
	"log/slog"
	"net/http"
	"time"

	"github.com/cryptofund/cryptofund/internal/metrics"
)

// statusRecorder はレスポンスのステータスコードを記録するResponseWriterラッパー。
type statusRecorder struct {
	http.ResponseWriter
	statusCode int
}

func (r *statusRecorder) WriteHeader(code int) {
	r.statusCode = code
	r.ResponseWriter.WriteHeader(code)
}

// NewLoggingMiddleware はリクエストごとにメソッド、パス、ステータス、
// 所要時間を構造化ログに出力するミドルウェアを返す。
// collectorが指定された場合はステータスコードとレイテンシのメトリクスも記録する。
func NewLoggingMiddleware(logger *slog.Logger, collector metrics.MetricsCollector) func(next http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			start := time.Now()

			// WriteHeaderが呼ばれない場合は200
			recorder := &statusRecorder{ResponseWriter: w, statusCode: http.StatusOK}
			next.ServeHTTP(recorder, r)

			duration := time.Since(start)

			level := slog.LevelInfo
			if recorder.statusCode >= 500 {
				level = slog.LevelError
			} else if recorder.statusCode >= 400 {
				level = slog.LevelWarn
			}

			logger.Log(context.Background(), level, "http_request",
				slog.String("method", r.Method),
				slog.String("path", r.URL.Path),
				slog.Int("status", recorder.statusCode),
				slog.Duration("duration", duration),
				slog.String("remote_addr", r.RemoteAddr),
			)

			if collector != nil {
				collector.RecordHTTPStatus(recorder.statusCode)
				collector.RecordRequestLatency(duration)
			}
		})
	}
}
