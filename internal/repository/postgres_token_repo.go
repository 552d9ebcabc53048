package repository

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/cryptofund/cryptofund/internal/model"
)

// PostgresTokenRepo はPostgreSQLを使用したトークンリポジトリ。
// トークン本体に加え、保有（holdings）と取引記録（transactions）も扱う。
type PostgresTokenRepo struct {
	db *sql.DB
}

// NewPostgresTokenRepo はPostgresTokenRepoを生成する。
func NewPostgresTokenRepo(db *sql.DB) *PostgresTokenRepo {
	return &PostgresTokenRepo{db: db}
}

const tokenColumns = `id, name, symbol, description, price, market_cap, change_24h, volume_24h, image_url, creator_address, is_featured, created_at, updated_at`

// List はクエリオプションに従ってトークン一覧を取得する。
// ソート未指定の場合はmarket_cap降順。検索はname/symbolのILIKE部分一致。
func (r *PostgresTokenRepo) List(ctx context.Context, opts TokenListOptions) ([]model.Token, error) {
	query := `SELECT ` + tokenColumns + ` FROM tokens`
	var conditions []string
	var args []any

	if opts.Search != "" {
		args = append(args, "%"+opts.Search+"%")
		conditions = append(conditions, fmt.Sprintf("(name ILIKE $%d OR symbol ILIKE $%d)", len(args), len(args)))
	}
	if opts.FeaturedOnly {
		conditions = append(conditions, "is_featured")
	}
	for i, cond := range conditions {
		if i == 0 {
			query += " WHERE " + cond
		} else {
			query += " AND " + cond
		}
	}

	sortBy := opts.SortBy
	if sortBy == "" {
		sortBy = model.SortByMarketCap
	}
	if !model.ValidTokenSortField(string(sortBy)) {
		return nil, model.NewInvalidSortFieldError(string(sortBy))
	}
	direction := "DESC"
	if opts.SortAscending {
		direction = "ASC"
	}
	// sortByは定義済みカラム名に検証済みのため文字列連結で安全
	query += fmt.Sprintf(" ORDER BY %s %s", sortBy, direction)

	if opts.Limit > 0 {
		args = append(args, opts.Limit)
		query += fmt.Sprintf(" LIMIT $%d", len(args))
	}

	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to list tokens: %w", err)
	}
	defer rows.Close()

	var tokens []model.Token
	for rows.Next() {
		var t model.Token
		if err := scanToken(rows, &t); err != nil {
			return nil, err
		}
		tokens = append(tokens, t)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate tokens: %w", err)
	}
	return tokens, nil
}

// FindByID は指定IDのトークンを取得する。見つからない場合はnilを返す。
func (r *PostgresTokenRepo) FindByID(ctx context.Context, id string) (*model.Token, error) {
	t := &model.Token{}
	row := r.db.QueryRowContext(ctx,
		`SELECT `+tokenColumns+` FROM tokens WHERE id = $1`, id)
	err := row.Scan(
		&t.ID, &t.Name, &t.Symbol, &t.Description, &t.Price, &t.MarketCap,
		&t.Change24h, &t.Volume24h, &t.ImageURL, &t.CreatorAddress,
		&t.IsFeatured, &t.CreatedAt, &t.UpdatedAt,
	)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to find token: %w", err)
	}
	return t, nil
}

// Create はトークンを新規作成する。
func (r *PostgresTokenRepo) Create(ctx context.Context, token *model.Token) error {
	_, err := r.db.ExecContext(ctx,
		`INSERT INTO tokens (id, name, symbol, description, price, market_cap, change_24h, volume_24h, image_url, creator_address, is_featured, created_at, updated_at)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13)`,
		token.ID, token.Name, token.Symbol, token.Description, token.Price,
		token.MarketCap, token.Change24h, token.Volume24h, token.ImageURL,
		token.CreatorAddress, token.IsFeatured, token.CreatedAt, token.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("failed to insert token: %w", err)
	}
	return nil
}

// Update は既存トークンの可変フィールドを更新する。
// creator_addressとcreated_atは変更しない。
func (r *PostgresTokenRepo) Update(ctx context.Context, token *model.Token) error {
	result, err := r.db.ExecContext(ctx,
		`UPDATE tokens
		 SET name = $2, symbol = $3, description = $4, price = $5, market_cap = $6,
		     change_24h = $7, volume_24h = $8, image_url = $9, is_featured = $10, updated_at = $11
		 WHERE id = $1`,
		token.ID, token.Name, token.Symbol, token.Description, token.Price,
		token.MarketCap, token.Change24h, token.Volume24h, token.ImageURL,
		token.IsFeatured, token.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("failed to update token: %w", err)
	}
	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get rows affected: %w", err)
	}
	if rowsAffected == 0 {
		return fmt.Errorf("token not found: %s", token.ID)
	}
	return nil
}

// RecordPurchase は取引記録の挿入と保有量の積み増しを同一トランザクションで行う。
// 保有行はUNIQUE (user_address, token_id)のON CONFLICTで加算更新される。
func (r *PostgresTokenRepo) RecordPurchase(ctx context.Context, txn *model.TokenTransaction) error {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	_, err = tx.ExecContext(ctx,
		`INSERT INTO transactions (id, user_address, token_id, transaction_type, amount, price_per_token, total_value_usd, tx_hash, created_at)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)`,
		txn.ID, txn.UserAddress, txn.TokenID, txn.TransactionType,
		txn.Amount, txn.PricePerToken, txn.TotalValueUSD, txn.TxHash, txn.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("failed to insert transaction: %w", err)
	}

	now := time.Now()
	_, err = tx.ExecContext(ctx,
		`INSERT INTO holdings (id, user_address, token_id, amount, purchase_value_usd, created_at, updated_at)
		 VALUES ($1, $2, $3, $4, $5, $6, $6)
		 ON CONFLICT (user_address, token_id)
		 DO UPDATE SET amount = holdings.amount + EXCLUDED.amount,
		               purchase_value_usd = holdings.purchase_value_usd + EXCLUDED.purchase_value_usd,
		               updated_at = EXCLUDED.updated_at`,
		uuid.New().String(), txn.UserAddress, txn.TokenID,
		txn.Amount, txn.TotalValueUSD, now,
	)
	if err != nil {
		return fmt.Errorf("failed to upsert holding: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit purchase: %w", err)
	}
	return nil
}

// ListHoldings は指定ウォレットアドレスの保有一覧を取得する。
func (r *PostgresTokenRepo) ListHoldings(ctx context.Context, userAddress string) ([]model.Holding, error) {
	rows, err := r.db.QueryContext(ctx,
		`SELECT id, user_address, token_id, amount, purchase_value_usd, created_at, updated_at
		 FROM holdings WHERE user_address = $1 ORDER BY created_at`,
		userAddress,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to list holdings: %w", err)
	}
	defer rows.Close()

	var holdings []model.Holding
	for rows.Next() {
		var h model.Holding
		if err := rows.Scan(&h.ID, &h.UserAddress, &h.TokenID, &h.Amount, &h.PurchaseValueUSD, &h.CreatedAt, &h.UpdatedAt); err != nil {
			return nil, fmt.Errorf("failed to scan holding: %w", err)
		}
		holdings = append(holdings, h)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate holdings: %w", err)
	}
	return holdings, nil
}

// ListTransactions は指定ウォレットアドレスの取引履歴を新しい順に取得する。
func (r *PostgresTokenRepo) ListTransactions(ctx context.Context, userAddress string) ([]model.TokenTransaction, error) {
	rows, err := r.db.QueryContext(ctx,
		`SELECT id, user_address, token_id, transaction_type, amount, price_per_token, total_value_usd, tx_hash, created_at
		 FROM transactions WHERE user_address = $1 ORDER BY created_at DESC`,
		userAddress,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to list transactions: %w", err)
	}
	defer rows.Close()

	var txns []model.TokenTransaction
	for rows.Next() {
		var t model.TokenTransaction
		if err := rows.Scan(&t.ID, &t.UserAddress, &t.TokenID, &t.TransactionType, &t.Amount, &t.PricePerToken, &t.TotalValueUSD, &t.TxHash, &t.CreatedAt); err != nil {
			return nil, fmt.Errorf("failed to scan transaction: %w", err)
		}
		txns = append(txns, t)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate transactions: %w", err)
	}
	return txns, nil
}

func scanToken(rows *sql.Rows, t *model.Token) error {
	if err := rows.Scan(
		&t.ID, &t.Name, &t.Symbol, &t.Description, &t.Price, &t.MarketCap,
		&t.Change24h, &t.Volume24h, &t.ImageURL, &t.CreatorAddress,
		&t.IsFeatured, &t.CreatedAt, &t.UpdatedAt,
	); err != nil {
		return fmt.Errorf("failed to scan token: %w", err)
	}
	return nil
}

// compile-time interface check
var _ TokenRepository = (*PostgresTokenRepo)(nil)
