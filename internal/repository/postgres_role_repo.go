package repository

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/hitoshi/fixman/internal/model"
)

// PostgresRoleRepo はPostgreSQLを使用した役割リポジトリ。
type PostgresRoleRepo struct {
	db *sql.DB
}

// NewPostgresRoleRepo はPostgresRoleRepoを生成する。
func NewPostgresRoleRepo(db *sql.DB) *PostgresRoleRepo {
	return &PostgresRoleRepo{db: db}
}

// FindRoleByName は役割名で役割を検索する。見つからない場合はnilを返す。
func (r *PostgresRoleRepo) FindRoleByName(ctx context.Context, name string) (*model.Role, error) {
	role := &model.Role{}
	err := r.db.QueryRowContext(ctx,
		`SELECT id, name, COALESCE(description, ''), created_at FROM roles WHERE name = $1`,
		name,
	).Scan(&role.ID, &role.Name, &role.Description, &role.CreatedAt)

	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to find role by name: %w", err)
	}
	return role, nil
}

// CreateRole は役割を作成する。役割名の重複は一意制約違反として返る。
func (r *PostgresRoleRepo) CreateRole(ctx context.Context, role *model.Role) error {
	err := r.db.QueryRowContext(ctx,
		`INSERT INTO roles (name, description)
		 VALUES ($1, NULLIF($2, ''))
		 RETURNING id, created_at`,
		role.Name, role.Description,
	).Scan(&role.ID, &role.CreatedAt)
	if err != nil {
		return fmt.Errorf("failed to insert role: %w", err)
	}
	return nil
}

// ListRoles は全役割をID昇順で返す。
func (r *PostgresRoleRepo) ListRoles(ctx context.Context) ([]*model.Role, error) {
	rows, err := r.db.QueryContext(ctx,
		`SELECT id, name, COALESCE(description, ''), created_at FROM roles ORDER BY id`)
	if err != nil {
		return nil, fmt.Errorf("failed to list roles: %w", err)
	}
	defer rows.Close()

	var roles []*model.Role
	for rows.Next() {
		role := &model.Role{}
		if err := rows.Scan(&role.ID, &role.Name, &role.Description, &role.CreatedAt); err != nil {
			return nil, fmt.Errorf("failed to scan role: %w", err)
		}
		roles = append(roles, role)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate roles: %w", err)
	}
	return roles, nil
}

// FindEnroll はユーザーIDと役割IDで付与を検索する。見つからない場合はnilを返す。
func (r *PostgresRoleRepo) FindEnroll(ctx context.Context, userID, roleID int64) (*model.RoleEnroll, error) {
	enroll := &model.RoleEnroll{}
	err := r.db.QueryRowContext(ctx,
		`SELECT id, user_id, role_id, created_at
		 FROM role_enroll WHERE user_id = $1 AND role_id = $2`,
		userID, roleID,
	).Scan(&enroll.ID, &enroll.UserID, &enroll.RoleID, &enroll.CreatedAt)

	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to find role enroll: %w", err)
	}
	return enroll, nil
}

// CreateEnroll は役割付与を作成する。重複付与は一意制約違反として返る。
func (r *PostgresRoleRepo) CreateEnroll(ctx context.Context, enroll *model.RoleEnroll) error {
	err := r.db.QueryRowContext(ctx,
		`INSERT INTO role_enroll (user_id, role_id)
		 VALUES ($1, $2)
		 RETURNING id, created_at`,
		enroll.UserID, enroll.RoleID,
	).Scan(&enroll.ID, &enroll.CreatedAt)
	if err != nil {
		return fmt.Errorf("failed to insert role enroll: %w", err)
	}
	return nil
}

// compile-time interface check
var _ RoleRepository = (*PostgresRoleRepo)(nil)
