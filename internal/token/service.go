package token

import (
	"context"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/cryptofund/cryptofund/internal/metrics"
	"github.com/cryptofund/cryptofund/internal/model"
	"github.com/cryptofund/cryptofund/internal/repository"
	"github.com/cryptofund/cryptofund/internal/security"
)

// CreateTokenInput はトークン作成のリクエスト。
type CreateTokenInput struct {
	Name        string
	Symbol      string
	Description string
	Price       float64
	ImageURL    string
}

// UpdateTokenInput はトークン更新のリクエスト。nilのフィールドは変更しない。
type UpdateTokenInput struct {
	Name        *string
	Symbol      *string
	Description *string
	Price       *float64
	ImageURL    *string
}

// PurchaseInput はトークン購入記録のリクエスト。
type PurchaseInput struct {
	TokenID       string
	Amount        float64
	PricePerToken float64
	TxHash        *string
}

// Service はトークンマーケットプレイスのビジネスロジックを提供する。
type Service struct {
	repo      repository.TokenRepository
	presenter *Presenter
	sanitizer security.SanitizerService
	urlGuard  security.URLGuardService
	metrics   metrics.MetricsCollector
}

// NewService はServiceを生成する。collectorはnil可。
func NewService(
	repo repository.TokenRepository,
	sanitizer security.SanitizerService,
	urlGuard security.URLGuardService,
	collector metrics.MetricsCollector,
) *Service {
	return &Service{
		repo:      repo,
		presenter: NewPresenter(),
		sanitizer: sanitizer,
		urlGuard:  urlGuard,
		metrics:   collector,
	}
}

// List はクエリオプションに従ってトークン一覧を取得する。
func (s *Service) List(ctx context.Context, opts repository.TokenListOptions) ([]model.Token, error) {
	if opts.SortBy != "" && !model.ValidTokenSortField(string(opts.SortBy)) {
		return nil, model.NewInvalidSortFieldError(string(opts.SortBy))
	}

	tokens, err := s.repo.List(ctx, opts)
	if err != nil {
		return nil, model.NewTransportError(err.Error())
	}
	return tokens, nil
}

// Get はIDでトークンを取得する。見つからない場合はTOKEN_NOT_FOUND。
func (s *Service) Get(ctx context.Context, id string) (*model.Token, error) {
	token, err := s.repo.FindByID(ctx, id)
	if err != nil {
		return nil, model.NewTransportError(err.Error())
	}
	if token == nil {
		return nil, model.NewTokenNotFoundError(id)
	}
	return token, nil
}

// Create は新しいトークンを上場する。作成者のウォレットアドレスが必須。
func (s *Service) Create(ctx context.Context, creatorAddress string, input CreateTokenInput) (*model.Token, error) {
	if creatorAddress == "" {
		return nil, model.NewWalletRequiredError()
	}

	if input.ImageURL != "" {
		if err := s.urlGuard.ValidatePublicHTTPS(input.ImageURL); err != nil {
			return nil, model.NewInvalidAvatarURLError(err.Error())
		}
	}

	now := time.Now()
	token := &model.Token{
		ID:             uuid.New().String(),
		Name:           s.sanitizer.SanitizeText(input.Name),
		Symbol:         s.sanitizer.SanitizeText(input.Symbol),
		Description:    s.sanitizer.SanitizeText(input.Description),
		Price:          input.Price,
		ImageURL:       input.ImageURL,
		CreatorAddress: creatorAddress,
		CreatedAt:      now,
		UpdatedAt:      now,
	}

	if err := s.repo.Create(ctx, token); err != nil {
		return nil, model.NewTransportError(err.Error())
	}

	slog.Info("token listed",
		slog.String("token_id", token.ID),
		slog.String("symbol", token.Symbol),
		slog.String("creator", creatorAddress),
	)
	return token, nil
}

// Update はトークンの属性を更新する。作成者本人のみ更新できる。
func (s *Service) Update(ctx context.Context, callerAddress, tokenID string, input UpdateTokenInput) (*model.Token, error) {
	token, err := s.repo.FindByID(ctx, tokenID)
	if err != nil {
		return nil, model.NewTransportError(err.Error())
	}
	if token == nil {
		return nil, model.NewTokenNotFoundError(tokenID)
	}

	if callerAddress == "" || token.CreatorAddress != callerAddress {
		return nil, model.NewUnauthorizedUpdateError(tokenID)
	}

	if input.Name != nil {
		token.Name = s.sanitizer.SanitizeText(*input.Name)
	}
	if input.Symbol != nil {
		token.Symbol = s.sanitizer.SanitizeText(*input.Symbol)
	}
	if input.Description != nil {
		token.Description = s.sanitizer.SanitizeText(*input.Description)
	}
	if input.Price != nil {
		if *input.Price < 0 {
			return nil, model.NewInvalidPurchaseError("price must be non-negative")
		}
		token.Price = *input.Price
	}
	if input.ImageURL != nil {
		if *input.ImageURL != "" {
			if err := s.urlGuard.ValidatePublicHTTPS(*input.ImageURL); err != nil {
				return nil, model.NewInvalidAvatarURLError(err.Error())
			}
		}
		token.ImageURL = *input.ImageURL
	}
	token.UpdatedAt = time.Now()

	if err := s.repo.Update(ctx, token); err != nil {
		return nil, model.NewTransportError(err.Error())
	}

	slog.Info("token updated",
		slog.String("token_id", token.ID),
		slog.String("caller", callerAddress),
	)
	return token, nil
}

// RecordPurchase は購入を記録し、保有量を積み増す。
// チェーンへのトランザクション送信は行わない。
func (s *Service) RecordPurchase(ctx context.Context, userAddress string, input PurchaseInput) (*model.TokenTransaction, error) {
	if userAddress == "" {
		return nil, model.NewWalletRequiredError()
	}
	if input.Amount <= 0 {
		return nil, model.NewInvalidPurchaseError("amount must be positive")
	}
	if input.PricePerToken <= 0 {
		return nil, model.NewInvalidPurchaseError("price per token must be positive")
	}

	token, err := s.repo.FindByID(ctx, input.TokenID)
	if err != nil {
		return nil, model.NewTransportError(err.Error())
	}
	if token == nil {
		return nil, model.NewTokenNotFoundError(input.TokenID)
	}

	txn := &model.TokenTransaction{
		ID:              uuid.New().String(),
		UserAddress:     userAddress,
		TokenID:         input.TokenID,
		TransactionType: "buy",
		Amount:          input.Amount,
		PricePerToken:   input.PricePerToken,
		TotalValueUSD:   input.Amount * input.PricePerToken,
		TxHash:          input.TxHash,
		CreatedAt:       time.Now(),
	}

	if err := s.repo.RecordPurchase(ctx, txn); err != nil {
		return nil, model.NewTransportError(err.Error())
	}

	if s.metrics != nil {
		s.metrics.RecordPurchase()
	}

	slog.Info("purchase recorded",
		slog.String("token_id", input.TokenID),
		slog.String("user", userAddress),
		slog.Float64("amount", input.Amount),
	)
	return txn, nil
}

// Trending は指定フィールドの降順で上位limit件のトークンを返す。
// 全件をメモリに読み込み、安定ソートで順位付けする。
// limitが0以下の場合は全件を返す。
func (s *Service) Trending(ctx context.Context, field string, limit int) ([]model.Token, error) {
	tokens, err := s.repo.List(ctx, repository.TokenListOptions{})
	if err != nil {
		return nil, model.NewTransportError(err.Error())
	}

	ranked, err := s.presenter.SortDescendingBy(tokens, field)
	if err != nil {
		return nil, err
	}

	if limit > 0 && len(ranked) > limit {
		ranked = ranked[:limit]
	}
	return ranked, nil
}

// ListHoldings はウォレットアドレスの保有一覧を取得する。
func (s *Service) ListHoldings(ctx context.Context, userAddress string) ([]model.Holding, error) {
	if userAddress == "" {
		return nil, model.NewWalletRequiredError()
	}

	holdings, err := s.repo.ListHoldings(ctx, userAddress)
	if err != nil {
		return nil, model.NewTransportError(err.Error())
	}
	return holdings, nil
}

// ListTransactions はウォレットアドレスの取引履歴を取得する。
func (s *Service) ListTransactions(ctx context.Context, userAddress string) ([]model.TokenTransaction, error) {
	if userAddress == "" {
		return nil, model.NewWalletRequiredError()
	}

	transactions, err := s.repo.ListTransactions(ctx, userAddress)
	if err != nil {
		return nil, model.NewTransportError(err.Error())
	}
	return transactions, nil
}
