package middleware

import (
	"encoding/json"
	"log/slog"
	"net/http"

	"github.com/cryptofund/cryptofund/internal/model"
)

// ErrorResponseBody は統一されたエラーレスポンスのボディ。
type ErrorResponseBody struct {
	Error model.APIError `json:"error"`
}

// WriteErrorResponse は統一フォーマットでエラーレスポンスを書き込む。
func WriteErrorResponse(w http.ResponseWriter, statusCode int, apiErr *model.APIError) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(statusCode)
	if err := json.NewEncoder(w).Encode(ErrorResponseBody{Error: *apiErr}); err != nil {
		slog.Error("failed to encode error response",
			slog.String("error", err.Error()),
		)
	}
}

// WriteInternalServerError は内部エラー用の500レスポンスを書き込む。
// 内部の詳細はクライアントに漏らさない。
func WriteInternalServerError(w http.ResponseWriter) {
	WriteErrorResponse(w, http.StatusInternalServerError, &model.APIError{
		Code:     "INTERNAL_ERROR",
		Message:  "internal server error",
		Category: "system",
		Action:   "しばらく待ってから再度お試しください。",
	})
}
