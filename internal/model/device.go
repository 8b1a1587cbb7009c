package model

import "time"

// DeviceType は機器種別（laptop, tablet等）を表す。
type DeviceType struct {
	ID          int64
	Name        string
	Description string
	CreatedAt   time.Time
}

// Brand は機器メーカーを表す。
type Brand struct {
	ID        int64
	Name      string
	CreatedAt time.Time
}

// DeviceModel は機種を表す。(brand_id, name, device_type_id) で一意。
type DeviceModel struct {
	ID           int64
	BrandID      int64
	Name         string
	DeviceTypeID int64
	CreatedAt    time.Time
}

// Device は修理受付対象の個体を表す。
// SerialNumber は任意入力だが、設定される場合は一意。
// OwnerID はユーザー削除時にNULLへ落とされるため0を「所有者なし」として扱う。
type Device struct {
	ID           int64
	BrandID      int64
	ModelID      int64
	DeviceTypeID int64
	SerialNumber string
	OwnerID      int64
	Notes        string
	CreatedAt    time.Time
	UpdatedAt    time.Time
}
