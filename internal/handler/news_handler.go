package handler

import (
	"context"
	"net/http"
	"strconv"
	"time"

	"github.com/cryptofund/cryptofund/internal/model"
)

// NewsServiceInterface はニュースハンドラーが必要とするサービスインターフェース。
type NewsServiceInterface interface {
	// ListRecent は新しい順にニュース記事を取得する。
	ListRecent(ctx context.Context, limit int) ([]model.NewsItem, error)
}

// NewsHandler はマーケットニュースのHTTPハンドラー。
type NewsHandler struct {
	service NewsServiceInterface
}

// NewNewsHandler はNewsHandlerを生成する。
func NewNewsHandler(service NewsServiceInterface) *NewsHandler {
	return &NewsHandler{service: service}
}

// newsItemResponse はニュース記事のAPIレスポンス。
type newsItemResponse struct {
	ID          string     `json:"id"`
	Title       string     `json:"title"`
	Link        string     `json:"link"`
	Summary     string     `json:"summary"`
	Author      string     `json:"author,omitempty"`
	PublishedAt *time.Time `json:"published_at"`
}

// ListNews はマーケットニュース一覧を取得する。
// GET /api/news?limit=
func (h *NewsHandler) ListNews(w http.ResponseWriter, r *http.Request) {
	limit := 0
	if limitStr := r.URL.Query().Get("limit"); limitStr != "" {
		parsed, err := strconv.Atoi(limitStr)
		if err != nil || parsed < 0 {
			writeAPIErrorResponse(w, http.StatusBadRequest, &model.APIError{
				Code:     "INVALID_REQUEST",
				Message:  "limitは0以上の整数を指定してください。",
				Category: "validation",
				Action:   "クエリパラメータを確認してください。",
			})
			return
		}
		limit = parsed
	}

	items, err := h.service.ListRecent(r.Context(), limit)
	if err != nil {
		handleServiceError(w, err)
		return
	}

	responses := make([]newsItemResponse, 0, len(items))
	for _, item := range items {
		responses = append(responses, newsItemResponse{
			ID:          item.ID,
			Title:       item.Title,
			Link:        item.Link,
			Summary:     item.Summary,
			Author:      item.Author,
			PublishedAt: item.PublishedAt,
		})
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{"news": responses})
}
