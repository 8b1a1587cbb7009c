package repository

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/hitoshi/fixman/internal/model"
)

// PostgresUserRepo はPostgreSQLを使用したユーザーリポジトリ。
type PostgresUserRepo struct {
	db *sql.DB
}

// NewPostgresUserRepo はPostgresUserRepoを生成する。
func NewPostgresUserRepo(db *sql.DB) *PostgresUserRepo {
	return &PostgresUserRepo{db: db}
}

const userColumns = `id, full_name, phone, COALESCE(email, ''), password_hash,
	COALESCE(profile_picture, ''), is_active, is_staff, created_at, updated_at`

// scanUser は1行分のユーザーをスキャンする。
func scanUser(row *sql.Row) (*model.User, error) {
	user := &model.User{}
	err := row.Scan(
		&user.ID, &user.FullName, &user.Phone, &user.Email, &user.PasswordHash,
		&user.ProfilePicture, &user.IsActive, &user.IsStaff, &user.CreatedAt, &user.UpdatedAt,
	)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return user, nil
}

// FindByID は指定IDのユーザーを取得する。見つからない場合はnilを返す。
func (r *PostgresUserRepo) FindByID(ctx context.Context, id int64) (*model.User, error) {
	row := r.db.QueryRowContext(ctx,
		`SELECT `+userColumns+` FROM users WHERE id = $1`, id)
	user, err := scanUser(row)
	if err != nil {
		return nil, fmt.Errorf("failed to find user by ID: %w", err)
	}
	return user, nil
}

// FindByPhone はログイン識別子である電話番号でユーザーを検索する。
// 見つからない場合はnilを返す。
func (r *PostgresUserRepo) FindByPhone(ctx context.Context, phone string) (*model.User, error) {
	row := r.db.QueryRowContext(ctx,
		`SELECT `+userColumns+` FROM users WHERE phone = $1`, phone)
	user, err := scanUser(row)
	if err != nil {
		return nil, fmt.Errorf("failed to find user by phone: %w", err)
	}
	return user, nil
}

// Create はユーザーを作成し、採番されたIDとタイムスタンプをuserに書き戻す。
// 電話番号の重複はストレージの一意制約違反として返る。
func (r *PostgresUserRepo) Create(ctx context.Context, user *model.User) error {
	err := r.db.QueryRowContext(ctx,
		`INSERT INTO users (full_name, phone, email, password_hash, profile_picture, is_active, is_staff)
		 VALUES ($1, $2, NULLIF($3, ''), $4, NULLIF($5, ''), $6, $7)
		 RETURNING id, created_at, updated_at`,
		user.FullName, user.Phone, user.Email, user.PasswordHash,
		user.ProfilePicture, user.IsActive, user.IsStaff,
	).Scan(&user.ID, &user.CreatedAt, &user.UpdatedAt)
	if err != nil {
		return fmt.Errorf("failed to insert user: %w", err)
	}
	return nil
}

// Update はユーザーのプロフィール項目を更新する。
func (r *PostgresUserRepo) Update(ctx context.Context, user *model.User) error {
	err := r.db.QueryRowContext(ctx,
		`UPDATE users
		 SET full_name = $1, phone = $2, email = NULLIF($3, ''),
		     password_hash = $4, profile_picture = NULLIF($5, ''),
		     is_active = $6, is_staff = $7, updated_at = now()
		 WHERE id = $8
		 RETURNING updated_at`,
		user.FullName, user.Phone, user.Email, user.PasswordHash,
		user.ProfilePicture, user.IsActive, user.IsStaff, user.ID,
	).Scan(&user.UpdatedAt)
	if err == sql.ErrNoRows {
		return fmt.Errorf("user not found: %d", user.ID)
	}
	if err != nil {
		return fmt.Errorf("failed to update user: %w", err)
	}
	return nil
}

// DeleteByID は指定IDのユーザーを削除する。
// 関連するrole_enroll、refresh_tokensはCASCADE削除される。
func (r *PostgresUserRepo) DeleteByID(ctx context.Context, id int64) error {
	result, err := r.db.ExecContext(ctx, `DELETE FROM users WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("failed to delete user: %w", err)
	}
	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get rows affected: %w", err)
	}
	if rowsAffected == 0 {
		return fmt.Errorf("user not found: %d", id)
	}
	return nil
}

// List はユーザー一覧をID昇順でページング取得する。
func (r *PostgresUserRepo) List(ctx context.Context, limit, offset int) ([]*model.User, error) {
	rows, err := r.db.QueryContext(ctx,
		`SELECT `+userColumns+` FROM users ORDER BY id LIMIT $1 OFFSET $2`,
		limit, offset)
	if err != nil {
		return nil, fmt.Errorf("failed to list users: %w", err)
	}
	defer rows.Close()

	var users []*model.User
	for rows.Next() {
		user := &model.User{}
		if err := rows.Scan(
			&user.ID, &user.FullName, &user.Phone, &user.Email, &user.PasswordHash,
			&user.ProfilePicture, &user.IsActive, &user.IsStaff, &user.CreatedAt, &user.UpdatedAt,
		); err != nil {
			return nil, fmt.Errorf("failed to scan user: %w", err)
		}
		users = append(users, user)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate users: %w", err)
	}
	return users, nil
}

// compile-time interface check
var _ UserRepository = (*PostgresUserRepo)(nil)
