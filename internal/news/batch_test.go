package news

import (
	"context"
	"errors"
	"log/slog"
	"testing"
	"time"

	"github.com/cryptofund/cryptofund/internal/model"
)

type mockSourceFetcher struct {
	fetchFn func(ctx context.Context, sourceURL string) ([]model.ParsedNewsItem, error)
	calls   []string
}

func (m *mockSourceFetcher) Fetch(ctx context.Context, sourceURL string) ([]model.ParsedNewsItem, error) {
	m.calls = append(m.calls, sourceURL)
	if m.fetchFn != nil {
		return m.fetchFn(ctx, sourceURL)
	}
	return nil, nil
}

type mockItemUpserter struct {
	upsertFn func(ctx context.Context, sourceURL string, items []model.ParsedNewsItem) (int, int, error)
	calls    int
}

func (m *mockItemUpserter) UpsertItems(ctx context.Context, sourceURL string, items []model.ParsedNewsItem) (int, int, error) {
	m.calls++
	if m.upsertFn != nil {
		return m.upsertFn(ctx, sourceURL, items)
	}
	return len(items), 0, nil
}

var _ SourceFetcher = (*mockSourceFetcher)(nil)
var _ ItemUpserter = (*mockItemUpserter)(nil)

func testBatchConfig(urls ...string) BatchConfig {
	return BatchConfig{
		FetchInterval: time.Hour,
		APIInterval:   time.Millisecond,
		FeedURLs:      urls,
	}
}

func TestRunOnce_FetchesAllSources(t *testing.T) {
	fetcher := &mockSourceFetcher{
		fetchFn: func(_ context.Context, _ string) ([]model.ParsedNewsItem, error) {
			return []model.ParsedNewsItem{{GuidOrID: "g1"}}, nil
		},
	}
	upserter := &mockItemUpserter{}

	job := NewBatchJob(fetcher, upserter, slog.Default(), testBatchConfig("https://a.example/feed", "https://b.example/feed"), nil)

	if err := job.RunOnce(context.Background()); err != nil {
		t.Fatalf("RunOnce() error = %v", err)
	}

	if len(fetcher.calls) != 2 {
		t.Errorf("fetch calls = %d, want 2", len(fetcher.calls))
	}
	if upserter.calls != 2 {
		t.Errorf("upsert calls = %d, want 2", upserter.calls)
	}
}

// 1ソースの失敗では残りのソースの処理が継続されること。
func TestRunOnce_ContinuesAfterSourceFailure(t *testing.T) {
	fetcher := &mockSourceFetcher{
		fetchFn: func(_ context.Context, sourceURL string) ([]model.ParsedNewsItem, error) {
			if sourceURL == "https://bad.example/feed" {
				return nil, errors.New("timeout")
			}
			return []model.ParsedNewsItem{{GuidOrID: "g1"}}, nil
		},
	}
	upserter := &mockItemUpserter{}

	job := NewBatchJob(fetcher, upserter, slog.Default(), testBatchConfig("https://bad.example/feed", "https://good.example/feed"), nil)

	if err := job.RunOnce(context.Background()); err != nil {
		t.Fatalf("RunOnce() error = %v", err)
	}

	if len(fetcher.calls) != 2 {
		t.Errorf("fetch calls = %d, want 2", len(fetcher.calls))
	}
	if upserter.calls != 1 {
		t.Errorf("upsert calls = %d, want 1 (failed source skipped)", upserter.calls)
	}
}

func TestRunOnce_NoSources(t *testing.T) {
	fetcher := &mockSourceFetcher{}
	job := NewBatchJob(fetcher, &mockItemUpserter{}, slog.Default(), testBatchConfig(), nil)

	if err := job.RunOnce(context.Background()); err != nil {
		t.Fatalf("RunOnce() error = %v", err)
	}
	if len(fetcher.calls) != 0 {
		t.Errorf("fetch calls = %d, want 0", len(fetcher.calls))
	}
}

func TestRunOnce_StopsOnContextCancel(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	fetcher := &mockSourceFetcher{}
	job := NewBatchJob(fetcher, &mockItemUpserter{}, slog.Default(), testBatchConfig("https://a.example/feed"), nil)

	if err := job.RunOnce(ctx); !errors.Is(err, context.Canceled) {
		t.Errorf("error = %v, want context.Canceled", err)
	}
	if len(fetcher.calls) != 0 {
		t.Errorf("fetch calls = %d, want 0", len(fetcher.calls))
	}
}

func TestStart_StopsOnContextCancel(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())

	job := NewBatchJob(&mockSourceFetcher{}, &mockItemUpserter{}, slog.Default(), testBatchConfig(), nil)

	done := make(chan struct{})
	go func() {
		job.Start(ctx)
		close(done)
	}()

	cancel()

	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("Start() did not stop after context cancellation")
	}
}
