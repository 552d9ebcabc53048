package handler

import (
	"context"
	"encoding/json"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"

	"github.com/cryptofund/cryptofund/internal/middleware"
	"github.com/cryptofund/cryptofund/internal/model"
	"github.com/cryptofund/cryptofund/internal/repository"
	"github.com/cryptofund/cryptofund/internal/token"
)

// TokenServiceInterface はトークンハンドラーが必要とするサービスインターフェース。
type TokenServiceInterface interface {
	List(ctx context.Context, opts repository.TokenListOptions) ([]model.Token, error)
	Trending(ctx context.Context, field string, limit int) ([]model.Token, error)
	Get(ctx context.Context, id string) (*model.Token, error)
	Create(ctx context.Context, creatorAddress string, input token.CreateTokenInput) (*model.Token, error)
	Update(ctx context.Context, callerAddress, tokenID string, input token.UpdateTokenInput) (*model.Token, error)
	RecordPurchase(ctx context.Context, userAddress string, input token.PurchaseInput) (*model.TokenTransaction, error)
	ListHoldings(ctx context.Context, userAddress string) ([]model.Holding, error)
	ListTransactions(ctx context.Context, userAddress string) ([]model.TokenTransaction, error)
}

// ProfileGetter はプロファイルIDからプロファイルを取得するインターフェース。
// 認証済みリクエストの呼び出し元ウォレットアドレスの解決に使用する。
type ProfileGetter interface {
	GetByID(ctx context.Context, id string) (*model.Profile, error)
}

// TokenHandler はトークンマーケットプレイスのHTTPハンドラー。
type TokenHandler struct {
	service  TokenServiceInterface
	profiles ProfileGetter
}

// NewTokenHandler はTokenHandlerを生成する。
func NewTokenHandler(service TokenServiceInterface, profiles ProfileGetter) *TokenHandler {
	return &TokenHandler{
		service:  service,
		profiles: profiles,
	}
}

// tokenResponse はトークン情報のAPIレスポンス。
type tokenResponse struct {
	ID             string  `json:"id"`
	Name           string  `json:"name"`
	Symbol         string  `json:"symbol"`
	Description    string  `json:"description"`
	Price          float64 `json:"price"`
	MarketCap      float64 `json:"market_cap"`
	Change24h      float64 `json:"change_24h"`
	Volume24h      float64 `json:"volume_24h"`
	ImageURL       string  `json:"image_url"`
	CreatorAddress string  `json:"creator_address"`
	IsFeatured     bool    `json:"is_featured"`
}

func toTokenResponse(t *model.Token) tokenResponse {
	return tokenResponse{
		ID:             t.ID,
		Name:           t.Name,
		Symbol:         t.Symbol,
		Description:    t.Description,
		Price:          t.Price,
		MarketCap:      t.MarketCap,
		Change24h:      t.Change24h,
		Volume24h:      t.Volume24h,
		ImageURL:       t.ImageURL,
		CreatorAddress: t.CreatorAddress,
		IsFeatured:     t.IsFeatured,
	}
}

// createTokenRequest はトークン上場リクエストのボディ。
type createTokenRequest struct {
	Name        string  `json:"name"`
	Symbol      string  `json:"symbol"`
	Description string  `json:"description"`
	Price       float64 `json:"price"`
	ImageURL    string  `json:"image_url"`
}

// updateTokenRequest はトークン更新リクエストのボディ。nilのフィールドは変更しない。
type updateTokenRequest struct {
	Name        *string  `json:"name"`
	Symbol      *string  `json:"symbol"`
	Description *string  `json:"description"`
	Price       *float64 `json:"price"`
	ImageURL    *string  `json:"image_url"`
}

// purchaseRequest はトークン購入記録リクエストのボディ。
type purchaseRequest struct {
	Amount        float64 `json:"amount"`
	PricePerToken float64 `json:"price_per_token"`
	TxHash        *string `json:"tx_hash"`
}

// holdingResponse は保有情報のAPIレスポンス。
type holdingResponse struct {
	TokenID          string  `json:"token_id"`
	Amount           float64 `json:"amount"`
	PurchaseValueUSD float64 `json:"purchase_value_usd"`
}

// transactionResponse は取引記録のAPIレスポンス。
type transactionResponse struct {
	ID              string  `json:"id"`
	TokenID         string  `json:"token_id"`
	TransactionType string  `json:"transaction_type"`
	Amount          float64 `json:"amount"`
	PricePerToken   float64 `json:"price_per_token"`
	TotalValueUSD   float64 `json:"total_value_usd"`
	TxHash          *string `json:"tx_hash"`
}

// callerWalletAddress はリクエストコンテキストのプロファイルIDから
// 呼び出し元のウォレットアドレスを解決する。
// プロファイルがウォレット識別子を持たない場合は空文字列を返す。
func (h *TokenHandler) callerWalletAddress(r *http.Request) (string, error) {
	profileID, err := middleware.ProfileIDFromContext(r.Context())
	if err != nil {
		return "", err
	}

	profile, err := h.profiles.GetByID(r.Context(), profileID)
	if err != nil {
		return "", err
	}
	if profile == nil || profile.UserAddress == nil {
		return "", nil
	}
	return *profile.UserAddress, nil
}

// ListTokens はトークン一覧を取得する。
// GET /api/tokens?search=&sort_by=&featured=&limit=
func (h *TokenHandler) ListTokens(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()

	opts := repository.TokenListOptions{
		Search:       q.Get("search"),
		SortBy:       model.TokenSortField(q.Get("sort_by")),
		FeaturedOnly: q.Get("featured") == "true",
	}
	if limitStr := q.Get("limit"); limitStr != "" {
		limit, err := strconv.Atoi(limitStr)
		if err != nil || limit < 0 {
			writeAPIErrorResponse(w, http.StatusBadRequest, &model.APIError{
				Code:     "INVALID_REQUEST",
				Message:  "limitは0以上の整数を指定してください。",
				Category: "validation",
				Action:   "クエリパラメータを確認してください。",
			})
			return
		}
		opts.Limit = limit
	}

	tokens, err := h.service.List(r.Context(), opts)
	if err != nil {
		handleServiceError(w, err)
		return
	}

	responses := make([]tokenResponse, 0, len(tokens))
	for i := range tokens {
		responses = append(responses, toTokenResponse(&tokens[i]))
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{"tokens": responses})
}

// Trending は指定指標の上位トークンを取得する。
// GET /api/market/trending?by=change_24h&limit=5
func (h *TokenHandler) Trending(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()

	field := q.Get("by")
	if field == "" {
		field = string(model.SortByChange24h)
	}

	limit := 5
	if limitStr := q.Get("limit"); limitStr != "" {
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

	tokens, err := h.service.Trending(r.Context(), field, limit)
	if err != nil {
		handleServiceError(w, err)
		return
	}

	responses := make([]tokenResponse, 0, len(tokens))
	for i := range tokens {
		responses = append(responses, toTokenResponse(&tokens[i]))
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{"tokens": responses})
}

// GetToken はトークン詳細を取得する。
// GET /api/tokens/:id
func (h *TokenHandler) GetToken(w http.ResponseWriter, r *http.Request) {
	tokenID := chi.URLParam(r, "id")

	t, err := h.service.Get(r.Context(), tokenID)
	if err != nil {
		handleServiceError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, toTokenResponse(t))
}

// CreateToken は新しいトークンを上場する。
// POST /api/tokens
func (h *TokenHandler) CreateToken(w http.ResponseWriter, r *http.Request) {
	wallet, err := h.callerWalletAddress(r)
	if err != nil {
		writeUnauthorized(w)
		return
	}

	var req createTokenRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeInvalidRequestBody(w)
		return
	}

	t, err := h.service.Create(r.Context(), wallet, token.CreateTokenInput{
		Name:        req.Name,
		Symbol:      req.Symbol,
		Description: req.Description,
		Price:       req.Price,
		ImageURL:    req.ImageURL,
	})
	if err != nil {
		handleServiceError(w, err)
		return
	}

	writeJSON(w, http.StatusCreated, toTokenResponse(t))
}

// UpdateToken はトークンの属性を更新する。作成者本人のみ。
// PATCH /api/tokens/:id
func (h *TokenHandler) UpdateToken(w http.ResponseWriter, r *http.Request) {
	wallet, err := h.callerWalletAddress(r)
	if err != nil {
		writeUnauthorized(w)
		return
	}

	tokenID := chi.URLParam(r, "id")

	var req updateTokenRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeInvalidRequestBody(w)
		return
	}

	t, err := h.service.Update(r.Context(), wallet, tokenID, token.UpdateTokenInput{
		Name:        req.Name,
		Symbol:      req.Symbol,
		Description: req.Description,
		Price:       req.Price,
		ImageURL:    req.ImageURL,
	})
	if err != nil {
		handleServiceError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, toTokenResponse(t))
}

// Purchase はトークン購入を記録する。
// POST /api/tokens/:id/purchase
func (h *TokenHandler) Purchase(w http.ResponseWriter, r *http.Request) {
	wallet, err := h.callerWalletAddress(r)
	if err != nil {
		writeUnauthorized(w)
		return
	}

	tokenID := chi.URLParam(r, "id")

	var req purchaseRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeInvalidRequestBody(w)
		return
	}

	txn, err := h.service.RecordPurchase(r.Context(), wallet, token.PurchaseInput{
		TokenID:       tokenID,
		Amount:        req.Amount,
		PricePerToken: req.PricePerToken,
		TxHash:        req.TxHash,
	})
	if err != nil {
		handleServiceError(w, err)
		return
	}

	writeJSON(w, http.StatusCreated, transactionResponse{
		ID:              txn.ID,
		TokenID:         txn.TokenID,
		TransactionType: txn.TransactionType,
		Amount:          txn.Amount,
		PricePerToken:   txn.PricePerToken,
		TotalValueUSD:   txn.TotalValueUSD,
		TxHash:          txn.TxHash,
	})
}

// ListHoldings は自分のトークン保有一覧を取得する。
// GET /api/holdings
func (h *TokenHandler) ListHoldings(w http.ResponseWriter, r *http.Request) {
	wallet, err := h.callerWalletAddress(r)
	if err != nil {
		writeUnauthorized(w)
		return
	}

	holdings, err := h.service.ListHoldings(r.Context(), wallet)
	if err != nil {
		handleServiceError(w, err)
		return
	}

	responses := make([]holdingResponse, 0, len(holdings))
	for _, holding := range holdings {
		responses = append(responses, holdingResponse{
			TokenID:          holding.TokenID,
			Amount:           holding.Amount,
			PurchaseValueUSD: holding.PurchaseValueUSD,
		})
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{"holdings": responses})
}

// ListTransactions は自分の取引履歴を取得する。
// GET /api/transactions
func (h *TokenHandler) ListTransactions(w http.ResponseWriter, r *http.Request) {
	wallet, err := h.callerWalletAddress(r)
	if err != nil {
		writeUnauthorized(w)
		return
	}

	txns, err := h.service.ListTransactions(r.Context(), wallet)
	if err != nil {
		handleServiceError(w, err)
		return
	}

	responses := make([]transactionResponse, 0, len(txns))
	for _, txn := range txns {
		responses = append(responses, transactionResponse{
			ID:              txn.ID,
			TokenID:         txn.TokenID,
			TransactionType: txn.TransactionType,
			Amount:          txn.Amount,
			PricePerToken:   txn.PricePerToken,
			TotalValueUSD:   txn.TotalValueUSD,
			TxHash:          txn.TxHash,
		})
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{"transactions": responses})
}
