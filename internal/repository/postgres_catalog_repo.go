package repository

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/hitoshi/fixman/internal/model"
)

// PostgresCatalogRepo はPostgreSQLを使用した機器カタログリポジトリ。
// 機器種別・メーカー・機種のマスタデータを扱う。
type PostgresCatalogRepo struct {
	db *sql.DB
}

// NewPostgresCatalogRepo はPostgresCatalogRepoを生成する。
func NewPostgresCatalogRepo(db *sql.DB) *PostgresCatalogRepo {
	return &PostgresCatalogRepo{db: db}
}

// CreateDeviceType は機器種別を作成する。名称の重複は一意制約違反として返る。
func (r *PostgresCatalogRepo) CreateDeviceType(ctx context.Context, dt *model.DeviceType) error {
	err := r.db.QueryRowContext(ctx,
		`INSERT INTO device_types (name, description)
		 VALUES ($1, NULLIF($2, ''))
		 RETURNING id, created_at`,
		dt.Name, dt.Description,
	).Scan(&dt.ID, &dt.CreatedAt)
	if err != nil {
		return fmt.Errorf("failed to insert device type: %w", err)
	}
	return nil
}

// ListDeviceTypes は全機器種別をID昇順で返す。
func (r *PostgresCatalogRepo) ListDeviceTypes(ctx context.Context) ([]*model.DeviceType, error) {
	rows, err := r.db.QueryContext(ctx,
		`SELECT id, name, COALESCE(description, ''), created_at FROM device_types ORDER BY id`)
	if err != nil {
		return nil, fmt.Errorf("failed to list device types: %w", err)
	}
	defer rows.Close()

	var types []*model.DeviceType
	for rows.Next() {
		dt := &model.DeviceType{}
		if err := rows.Scan(&dt.ID, &dt.Name, &dt.Description, &dt.CreatedAt); err != nil {
			return nil, fmt.Errorf("failed to scan device type: %w", err)
		}
		types = append(types, dt)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate device types: %w", err)
	}
	return types, nil
}

// CreateBrand はメーカーを作成する。名称の重複は一意制約違反として返る。
func (r *PostgresCatalogRepo) CreateBrand(ctx context.Context, b *model.Brand) error {
	err := r.db.QueryRowContext(ctx,
		`INSERT INTO brands (name) VALUES ($1) RETURNING id, created_at`,
		b.Name,
	).Scan(&b.ID, &b.CreatedAt)
	if err != nil {
		return fmt.Errorf("failed to insert brand: %w", err)
	}
	return nil
}

// ListBrands は全メーカーをID昇順で返す。
func (r *PostgresCatalogRepo) ListBrands(ctx context.Context) ([]*model.Brand, error) {
	rows, err := r.db.QueryContext(ctx,
		`SELECT id, name, created_at FROM brands ORDER BY id`)
	if err != nil {
		return nil, fmt.Errorf("failed to list brands: %w", err)
	}
	defer rows.Close()

	var brands []*model.Brand
	for rows.Next() {
		b := &model.Brand{}
		if err := rows.Scan(&b.ID, &b.Name, &b.CreatedAt); err != nil {
			return nil, fmt.Errorf("failed to scan brand: %w", err)
		}
		brands = append(brands, b)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate brands: %w", err)
	}
	return brands, nil
}

// CreateModel は機種を作成する。(brand_id, name, device_type_id)の重複は
// 一意制約違反として返る。
func (r *PostgresCatalogRepo) CreateModel(ctx context.Context, m *model.DeviceModel) error {
	err := r.db.QueryRowContext(ctx,
		`INSERT INTO models (brand_id, name, device_type_id)
		 VALUES ($1, $2, $3)
		 RETURNING id, created_at`,
		m.BrandID, m.Name, m.DeviceTypeID,
	).Scan(&m.ID, &m.CreatedAt)
	if err != nil {
		return fmt.Errorf("failed to insert model: %w", err)
	}
	return nil
}

// ListModels は全機種をID昇順で返す。
func (r *PostgresCatalogRepo) ListModels(ctx context.Context) ([]*model.DeviceModel, error) {
	rows, err := r.db.QueryContext(ctx,
		`SELECT id, brand_id, name, device_type_id, created_at FROM models ORDER BY id`)
	if err != nil {
		return nil, fmt.Errorf("failed to list models: %w", err)
	}
	defer rows.Close()

	var models []*model.DeviceModel
	for rows.Next() {
		m := &model.DeviceModel{}
		if err := rows.Scan(&m.ID, &m.BrandID, &m.Name, &m.DeviceTypeID, &m.CreatedAt); err != nil {
			return nil, fmt.Errorf("failed to scan model: %w", err)
		}
		models = append(models, m)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate models: %w", err)
	}
	return models, nil
}

// compile-time interface check
var _ CatalogRepository = (*PostgresCatalogRepo)(nil)
