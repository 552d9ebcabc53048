package middleware

import (
	"crypto/rand"
	"crypto/subtle"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
)

const (
	csrfCookieName = "csrf_token"
	csrfHeaderName = "X-CSRF-Token"
)

// generateCSRFToken は暗号学的に安全な32バイトのトークンを生成する。
func generateCSRFToken() (string, error) {
	b := make([]byte, 32)
	if _, err := rand.Read(b); err != nil {
		return "", fmt.Errorf("failed to generate CSRF token: %w", err)
	}
	return hex.EncodeToString(b), nil
}

// NewCSRFMiddleware はDouble Submit Cookie方式のCSRF対策ミドルウェアを返す。
// 状態変更メソッド（POST, PUT, PATCH, DELETE）でCookieとヘッダーの
// トークン一致を検証する。
func NewCSRFMiddleware() func(next http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			switch r.Method {
			case http.MethodGet, http.MethodHead, http.MethodOptions:
				next.ServeHTTP(w, r)
				return
			}

			cookie, err := r.Cookie(csrfCookieName)
			if err != nil || cookie.Value == "" {
				http.Error(w, "CSRF token missing", http.StatusForbidden)
				return
			}

			header := r.Header.Get(csrfHeaderName)
			if header == "" {
				http.Error(w, "CSRF token missing", http.StatusForbidden)
				return
			}

			if subtle.ConstantTimeCompare([]byte(cookie.Value), []byte(header)) != 1 {
				slog.Warn("CSRF token mismatch",
					slog.String("path", r.URL.Path),
				)
				http.Error(w, "CSRF token mismatch", http.StatusForbidden)
				return
			}

			next.ServeHTTP(w, r)
		})
	}
}

// NewCSRFTokenHandler はCSRFトークンを発行するハンドラーを返す。
// トークンをCookieに設定し、レスポンスボディでも返す。
// クライアントは以降の状態変更リクエストでX-CSRF-Tokenヘッダーに同じ値を設定する。
func NewCSRFTokenHandler(secureCookie bool) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		token, err := generateCSRFToken()
		if err != nil {
			slog.Error("failed to generate CSRF token",
				slog.String("error", err.Error()),
			)
			WriteInternalServerError(w)
			return
		}

		http.SetCookie(w, &http.Cookie{
			Name:     csrfCookieName,
			Value:    token,
			Path:     "/",
			HttpOnly: false, // JSから読めるようにHttpOnlyにしない
			Secure:   secureCookie,
			SameSite: http.SameSiteStrictMode,
		})

		w.Header().Set("Content-Type", "application/json")
		if err := json.NewEncoder(w).Encode(map[string]string{"csrf_token": token}); err != nil {
			slog.Error("failed to encode CSRF token response",
				slog.String("error", err.Error()),
			)
		}
	}
}
