package logger

import (
	"context"
	"log/slog"
	"sync"
	"time"
)

// defaultRingCapacity は保持する直近エラーレコードの既定件数。
const defaultRingCapacity = 10

// ErrorRecord はリングに保持されるエラーレコード。
type ErrorRecord struct {
	Time    time.Time `json:"time"`
	Message string    `json:"message"`
	Attrs   []string  `json:"attrs,omitempty"`
}

// ErrorRing はエラーレベル以上のログレコードを固定容量で保持するリングバッファ。
// グローバルなログフックの差し替えではなく、明示的に所有されるコンポーネントとして
// ハンドラーチェーンに組み込んで使用する。
type ErrorRing struct {
	mu      sync.Mutex
	records []ErrorRecord
	next    int
	full    bool
}

// NewErrorRing は容量capacityのErrorRingを生成する。
// capacityが0以下の場合は既定値（10件）を使用する。
func NewErrorRing(capacity int) *ErrorRing {
	if capacity <= 0 {
		capacity = defaultRingCapacity
	}
	return &ErrorRing{
		records: make([]ErrorRecord, capacity),
	}
}

// Add はレコードを追加する。容量を超えた場合は最古のレコードを上書きする。
func (r *ErrorRing) Add(rec ErrorRecord) {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.records[r.next] = rec
	r.next = (r.next + 1) % len(r.records)
	if r.next == 0 {
		r.full = true
	}
}

// Recent は保持中のレコードを古い順に返す。
func (r *ErrorRing) Recent() []ErrorRecord {
	r.mu.Lock()
	defer r.mu.Unlock()

	if !r.full {
		out := make([]ErrorRecord, r.next)
		copy(out, r.records[:r.next])
		return out
	}

	out := make([]ErrorRecord, 0, len(r.records))
	out = append(out, r.records[r.next:]...)
	out = append(out, r.records[:r.next]...)
	return out
}

// RingHandler はslog.Handlerをラップし、エラーレベル以上のレコードをErrorRingに写し取る。
type RingHandler struct {
	inner slog.Handler
	ring  *ErrorRing
}

// NewRingHandler はRingHandlerを生成する。
func NewRingHandler(inner slog.Handler, ring *ErrorRing) *RingHandler {
	return &RingHandler{inner: inner, ring: ring}
}

// Enabled は内側のハンドラーに委譲する。
func (h *RingHandler) Enabled(ctx context.Context, level slog.Level) bool {
	return h.inner.Enabled(ctx, level)
}

// Handle はエラーレベル以上のレコードをリングに記録してから委譲する。
func (h *RingHandler) Handle(ctx context.Context, rec slog.Record) error {
	if rec.Level >= slog.LevelError {
		entry := ErrorRecord{
			Time:    rec.Time,
			Message: rec.Message,
		}
		rec.Attrs(func(a slog.Attr) bool {
			entry.Attrs = append(entry.Attrs, a.String())
			return true
		})
		h.ring.Add(entry)
	}
	return h.inner.Handle(ctx, rec)
}

// WithAttrs は属性付きハンドラーを返す。リングは共有される。
func (h *RingHandler) WithAttrs(attrs []slog.Attr) slog.Handler {
	return &RingHandler{inner: h.inner.WithAttrs(attrs), ring: h.ring}
}

// WithGroup はグループ付きハンドラーを返す。リングは共有される。
func (h *RingHandler) WithGroup(name string) slog.Handler {
	return &RingHandler{inner: h.inner.WithGroup(name), ring: h.ring}
}

// compile-time interface check
var _ slog.Handler = (*RingHandler)(nil)
