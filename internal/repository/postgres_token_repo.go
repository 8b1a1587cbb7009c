package repository

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/hitoshi/fixman/internal/model"
)

// PostgresRefreshTokenRepo はPostgreSQLを使用したリフレッシュトークンリポジトリ。
type PostgresRefreshTokenRepo struct {
	db *sql.DB
}

// NewPostgresRefreshTokenRepo はPostgresRefreshTokenRepoを生成する。
func NewPostgresRefreshTokenRepo(db *sql.DB) *PostgresRefreshTokenRepo {
	return &PostgresRefreshTokenRepo{db: db}
}

// Create はリフレッシュトークン行を作成する。
func (r *PostgresRefreshTokenRepo) Create(ctx context.Context, token *model.RefreshToken) error {
	err := r.db.QueryRowContext(ctx,
		`INSERT INTO refresh_tokens (user_id, token, expires_at)
		 VALUES ($1, $2, $3)
		 RETURNING id, created_at`,
		token.UserID, token.Token, token.ExpiresAt,
	).Scan(&token.ID, &token.CreatedAt)
	if err != nil {
		return fmt.Errorf("failed to insert refresh token: %w", err)
	}
	return nil
}

// FindValid はトークン文字列・所有者ID・サーバー側有効期限の3条件で有効な行を検索する。
// 条件を満たす行がない場合はnilを返す。JWT自身のexpクレームではなく
// 保存行のexpires_atを権威とする（ログアウト済みトークンの拒否のため）。
func (r *PostgresRefreshTokenRepo) FindValid(ctx context.Context, token string, userID int64, now time.Time) (*model.RefreshToken, error) {
	rt := &model.RefreshToken{}
	err := r.db.QueryRowContext(ctx,
		`SELECT id, user_id, token, expires_at, created_at
		 FROM refresh_tokens
		 WHERE token = $1 AND user_id = $2 AND expires_at > $3`,
		token, userID, now,
	).Scan(&rt.ID, &rt.UserID, &rt.Token, &rt.ExpiresAt, &rt.CreatedAt)

	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to find valid refresh token: %w", err)
	}
	return rt, nil
}

// DeleteByToken は指定トークン文字列の行を削除する。存在しなくてもエラーにならない。
// ログアウトは期限切れトークンの後始末としても成功する必要がある。
func (r *PostgresRefreshTokenRepo) DeleteByToken(ctx context.Context, token string) error {
	_, err := r.db.ExecContext(ctx,
		`DELETE FROM refresh_tokens WHERE token = $1`, token)
	if err != nil {
		return fmt.Errorf("failed to delete refresh token: %w", err)
	}
	return nil
}

// DeleteByUserID は指定ユーザーの全トークンを削除する。
func (r *PostgresRefreshTokenRepo) DeleteByUserID(ctx context.Context, userID int64) error {
	_, err := r.db.ExecContext(ctx,
		`DELETE FROM refresh_tokens WHERE user_id = $1`, userID)
	if err != nil {
		return fmt.Errorf("failed to delete user refresh tokens: %w", err)
	}
	return nil
}

// DeleteExpired はexpires_atがnowより前の行を削除し、削除件数を返す。
func (r *PostgresRefreshTokenRepo) DeleteExpired(ctx context.Context, now time.Time) (int64, error) {
	result, err := r.db.ExecContext(ctx,
		`DELETE FROM refresh_tokens WHERE expires_at < $1`, now)
	if err != nil {
		return 0, fmt.Errorf("failed to delete expired refresh tokens: %w", err)
	}
	deleted, err := result.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("failed to get rows affected: %w", err)
	}
	return deleted, nil
}

// compile-time interface check
var _ RefreshTokenRepository = (*PostgresRefreshTokenRepo)(nil)
