package handler

import (
	"net/http"

	"github.com/cryptofund/cryptofund/internal/logger"
)

// DebugHandler は開発・運用向けのデバッグ用HTTPハンドラー。
type DebugHandler struct {
	ring *logger.ErrorRing
}

// NewDebugHandler はDebugHandlerを生成する。
func NewDebugHandler(ring *logger.ErrorRing) *DebugHandler {
	return &DebugHandler{ring: ring}
}

// RecentErrors は直近のエラーログを古い順に返す。
// GET /api/debug/errors
func (h *DebugHandler) RecentErrors(w http.ResponseWriter, r *http.Request) {
	records := h.ring.Recent()
	writeJSON(w, http.StatusOK, map[string]interface{}{"errors": records})
}
