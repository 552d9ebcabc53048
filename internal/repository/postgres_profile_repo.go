package repository

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/cryptofund/cryptofund/internal/model"
)

// PostgresProfileRepo はPostgreSQLを使用したプロファイルリポジトリ。
type PostgresProfileRepo struct {
	db *sql.DB
}

// NewPostgresProfileRepo はPostgresProfileRepoを生成する。
func NewPostgresProfileRepo(db *sql.DB) *PostgresProfileRepo {
	return &PostgresProfileRepo{db: db}
}

const profileColumns = `id, user_address, email, privy_id, display_name, avatar_url, created_at, updated_at`

// FindByAddress はuser_addressカラムでプロファイルを検索する。見つからない場合はnilを返す。
func (r *PostgresProfileRepo) FindByAddress(ctx context.Context, address string) (*model.Profile, error) {
	return r.scanProfile(ctx,
		`SELECT `+profileColumns+` FROM profiles WHERE user_address = $1`, address)
}

// FindByEmail はemailカラムでプロファイルを検索する。見つからない場合はnilを返す。
func (r *PostgresProfileRepo) FindByEmail(ctx context.Context, email string) (*model.Profile, error) {
	return r.scanProfile(ctx,
		`SELECT `+profileColumns+` FROM profiles WHERE email = $1`, email)
}

// FindByID は主キーでプロファイルを検索する。見つからない場合はnilを返す。
func (r *PostgresProfileRepo) FindByID(ctx context.Context, id string) (*model.Profile, error) {
	return r.scanProfile(ctx,
		`SELECT `+profileColumns+` FROM profiles WHERE id = $1`, id)
}

// Create は新規プロファイルを挿入する。
// 同一識別子への競合した初回作成は、部分ユニークインデックスとON CONFLICT DO UPDATEにより
// 重複行を作らず後着の値で1行に収束する。
func (r *PostgresProfileRepo) Create(ctx context.Context, profile *model.Profile) error {
	var query string
	if profile.UserAddress != nil {
		query = `INSERT INTO profiles (id, user_address, email, privy_id, display_name, avatar_url, created_at, updated_at)
			 VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
			 ON CONFLICT (user_address) WHERE user_address IS NOT NULL
			 DO UPDATE SET privy_id = EXCLUDED.privy_id,
			               display_name = EXCLUDED.display_name,
			               avatar_url = EXCLUDED.avatar_url,
			               updated_at = EXCLUDED.updated_at`
	} else {
		query = `INSERT INTO profiles (id, user_address, email, privy_id, display_name, avatar_url, created_at, updated_at)
			 VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
			 ON CONFLICT (email) WHERE email IS NOT NULL
			 DO UPDATE SET privy_id = EXCLUDED.privy_id,
			               display_name = EXCLUDED.display_name,
			               avatar_url = EXCLUDED.avatar_url,
			               updated_at = EXCLUDED.updated_at`
	}

	_, err := r.db.ExecContext(ctx, query,
		profile.ID, profile.UserAddress, profile.Email, profile.PrivyID,
		profile.DisplayName, profile.AvatarURL, profile.CreatedAt, profile.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("failed to insert profile: %w", err)
	}
	return nil
}

// Update は既存プロファイルの可変フィールドを更新する。
// created_atと識別子カラムは変更しない。
func (r *PostgresProfileRepo) Update(ctx context.Context, profile *model.Profile) error {
	result, err := r.db.ExecContext(ctx,
		`UPDATE profiles
		 SET privy_id = $2, display_name = $3, avatar_url = $4, updated_at = $5
		 WHERE id = $1`,
		profile.ID, profile.PrivyID, profile.DisplayName, profile.AvatarURL, profile.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("failed to update profile: %w", err)
	}
	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get rows affected: %w", err)
	}
	if rowsAffected == 0 {
		return fmt.Errorf("profile not found: %s", profile.ID)
	}
	return nil
}

func (r *PostgresProfileRepo) scanProfile(ctx context.Context, query string, arg any) (*model.Profile, error) {
	profile := &model.Profile{}
	err := r.db.QueryRowContext(ctx, query, arg).Scan(
		&profile.ID, &profile.UserAddress, &profile.Email, &profile.PrivyID,
		&profile.DisplayName, &profile.AvatarURL, &profile.CreatedAt, &profile.UpdatedAt,
	)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to find profile: %w", err)
	}
	return profile, nil
}

// compile-time interface check
var _ ProfileRepository = (*PostgresProfileRepo)(nil)
