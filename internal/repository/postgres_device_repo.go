package repository

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/hitoshi/fixman/internal/model"
)

// PostgresDeviceRepo はPostgreSQLを使用した機器リポジトリ。
type PostgresDeviceRepo struct {
	db *sql.DB
}

// NewPostgresDeviceRepo はPostgresDeviceRepoを生成する。
func NewPostgresDeviceRepo(db *sql.DB) *PostgresDeviceRepo {
	return &PostgresDeviceRepo{db: db}
}

const deviceColumns = `id, brand_id, model_id, device_type_id,
	COALESCE(serial_number, ''), COALESCE(owner_id, 0), COALESCE(notes, ''),
	created_at, updated_at`

func scanDevice(row *sql.Row) (*model.Device, error) {
	d := &model.Device{}
	err := row.Scan(
		&d.ID, &d.BrandID, &d.ModelID, &d.DeviceTypeID,
		&d.SerialNumber, &d.OwnerID, &d.Notes, &d.CreatedAt, &d.UpdatedAt,
	)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return d, nil
}

// FindByID は指定IDの機器を取得する。見つからない場合はnilを返す。
func (r *PostgresDeviceRepo) FindByID(ctx context.Context, id int64) (*model.Device, error) {
	row := r.db.QueryRowContext(ctx,
		`SELECT `+deviceColumns+` FROM devices WHERE id = $1`, id)
	device, err := scanDevice(row)
	if err != nil {
		return nil, fmt.Errorf("failed to find device by ID: %w", err)
	}
	return device, nil
}

// FindBySerialNumber はシリアル番号で機器を検索する。見つからない場合はnilを返す。
func (r *PostgresDeviceRepo) FindBySerialNumber(ctx context.Context, serial string) (*model.Device, error) {
	row := r.db.QueryRowContext(ctx,
		`SELECT `+deviceColumns+` FROM devices WHERE serial_number = $1`, serial)
	device, err := scanDevice(row)
	if err != nil {
		return nil, fmt.Errorf("failed to find device by serial number: %w", err)
	}
	return device, nil
}

// Create は機器を作成する。シリアル番号の重複は一意制約違反として返る。
func (r *PostgresDeviceRepo) Create(ctx context.Context, device *model.Device) error {
	err := r.db.QueryRowContext(ctx,
		`INSERT INTO devices (brand_id, model_id, device_type_id, serial_number, owner_id, notes)
		 VALUES ($1, $2, $3, NULLIF($4, ''), NULLIF($5, 0), NULLIF($6, ''))
		 RETURNING id, created_at, updated_at`,
		device.BrandID, device.ModelID, device.DeviceTypeID,
		device.SerialNumber, device.OwnerID, device.Notes,
	).Scan(&device.ID, &device.CreatedAt, &device.UpdatedAt)
	if err != nil {
		return fmt.Errorf("failed to insert device: %w", err)
	}
	return nil
}

// Update は機器情報を更新する。
func (r *PostgresDeviceRepo) Update(ctx context.Context, device *model.Device) error {
	err := r.db.QueryRowContext(ctx,
		`UPDATE devices
		 SET brand_id = $1, model_id = $2, device_type_id = $3,
		     serial_number = NULLIF($4, ''), owner_id = NULLIF($5, 0),
		     notes = NULLIF($6, ''), updated_at = now()
		 WHERE id = $7
		 RETURNING updated_at`,
		device.BrandID, device.ModelID, device.DeviceTypeID,
		device.SerialNumber, device.OwnerID, device.Notes, device.ID,
	).Scan(&device.UpdatedAt)
	if err == sql.ErrNoRows {
		return fmt.Errorf("device not found: %d", device.ID)
	}
	if err != nil {
		return fmt.Errorf("failed to update device: %w", err)
	}
	return nil
}

// DeleteByID は指定IDの機器を削除する。
func (r *PostgresDeviceRepo) DeleteByID(ctx context.Context, id int64) error {
	result, err := r.db.ExecContext(ctx, `DELETE FROM devices WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("failed to delete device: %w", err)
	}
	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get rows affected: %w", err)
	}
	if rowsAffected == 0 {
		return fmt.Errorf("device not found: %d", id)
	}
	return nil
}

// List は機器一覧をID昇順でページング取得する。
func (r *PostgresDeviceRepo) List(ctx context.Context, limit, offset int) ([]*model.Device, error) {
	rows, err := r.db.QueryContext(ctx,
		`SELECT `+deviceColumns+` FROM devices ORDER BY id LIMIT $1 OFFSET $2`,
		limit, offset)
	if err != nil {
		return nil, fmt.Errorf("failed to list devices: %w", err)
	}
	defer rows.Close()

	var devices []*model.Device
	for rows.Next() {
		d := &model.Device{}
		if err := rows.Scan(
			&d.ID, &d.BrandID, &d.ModelID, &d.DeviceTypeID,
			&d.SerialNumber, &d.OwnerID, &d.Notes, &d.CreatedAt, &d.UpdatedAt,
		); err != nil {
			return nil, fmt.Errorf("failed to scan device: %w", err)
		}
		devices = append(devices, d)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate devices: %w", err)
	}
	return devices, nil
}

// compile-time interface check
var _ DeviceRepository = (*PostgresDeviceRepo)(nil)
