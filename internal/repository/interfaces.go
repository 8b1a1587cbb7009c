// Package repository はデータ永続化のインターフェースを定義する。
package repository

import (
	"context"
	"time"

	"github.com/hitoshi/fixman/internal/model"
)

// UserRepository はユーザーデータ（Credential Store）の永続化インターフェース。
type UserRepository interface {
	// FindByID は指定IDのユーザーを取得する。見つからない場合はnilを返す。
	FindByID(ctx context.Context, id int64) (*model.User, error)

	// FindByPhone はログイン識別子である電話番号でユーザーを検索する。
	// 見つからない場合はnilを返す。
	FindByPhone(ctx context.Context, phone string) (*model.User, error)

	// Create はユーザーを作成し、採番されたIDとタイムスタンプをuserに書き戻す。
	// 電話番号・メールの一意性はストレージ側の制約で保証され、
	// 違反はIsUniqueViolationで判定可能なエラーとして返る。
	Create(ctx context.Context, user *model.User) error

	// Update はユーザーのプロフィール項目を更新する。
	Update(ctx context.Context, user *model.User) error

	// DeleteByID は指定IDのユーザーを削除する。
	// 関連するrole_enroll、refresh_tokensはCASCADE削除される。
	DeleteByID(ctx context.Context, id int64) error

	// List はユーザー一覧をID昇順でページング取得する。
	List(ctx context.Context, limit, offset int) ([]*model.User, error)
}

// RoleRepository は役割と役割付与の永続化インターフェース。
type RoleRepository interface {
	// FindRoleByName は役割名で役割を検索する。見つからない場合はnilを返す。
	FindRoleByName(ctx context.Context, name string) (*model.Role, error)

	// CreateRole は役割を作成する。
	CreateRole(ctx context.Context, role *model.Role) error

	// ListRoles は全役割を返す。
	ListRoles(ctx context.Context) ([]*model.Role, error)

	// FindEnroll はユーザーIDと役割IDで付与を検索する。見つからない場合はnilを返す。
	FindEnroll(ctx context.Context, userID, roleID int64) (*model.RoleEnroll, error)

	// CreateEnroll は役割付与を作成する。
	CreateEnroll(ctx context.Context, enroll *model.RoleEnroll) error
}

// RefreshTokenRepository はリフレッシュトークン（Token Store）の永続化インターフェース。
type RefreshTokenRepository interface {
	// Create はリフレッシュトークン行を作成する。
	Create(ctx context.Context, token *model.RefreshToken) error

	// FindValid はトークン文字列・所有者ID・サーバー側有効期限の3条件で
	// 有効な行を検索する。条件を満たす行がない場合はnilを返す。
	// 有効性判定はJWTのexpクレームではなく保存行のexpires_atを権威とする。
	FindValid(ctx context.Context, token string, userID int64, now time.Time) (*model.RefreshToken, error)

	// DeleteByToken は指定トークン文字列の行を削除する。存在しなくてもエラーにならない。
	// ログアウトは期限切れトークンの後始末としても成功する必要がある。
	DeleteByToken(ctx context.Context, token string) error

	// DeleteByUserID は指定ユーザーの全トークンを削除する。ユーザー削除時の明示的な失効に使う。
	DeleteByUserID(ctx context.Context, userID int64) error

	// DeleteExpired はexpires_atがnowより前の行を削除し、削除件数を返す。
	DeleteExpired(ctx context.Context, now time.Time) (int64, error)
}

// CatalogRepository は機器カタログ（種別・メーカー・機種）の永続化インターフェース。
type CatalogRepository interface {
	// CreateDeviceType は機器種別を作成する。
	CreateDeviceType(ctx context.Context, dt *model.DeviceType) error
	// ListDeviceTypes は全機器種別を返す。
	ListDeviceTypes(ctx context.Context) ([]*model.DeviceType, error)

	// CreateBrand はメーカーを作成する。
	CreateBrand(ctx context.Context, b *model.Brand) error
	// ListBrands は全メーカーを返す。
	ListBrands(ctx context.Context) ([]*model.Brand, error)

	// CreateModel は機種を作成する。
	CreateModel(ctx context.Context, m *model.DeviceModel) error
	// ListModels は全機種を返す。
	ListModels(ctx context.Context) ([]*model.DeviceModel, error)
}

// DeviceRepository は修理対象機器の永続化インターフェース。
type DeviceRepository interface {
	// FindByID は指定IDの機器を取得する。見つからない場合はnilを返す。
	FindByID(ctx context.Context, id int64) (*model.Device, error)

	// FindBySerialNumber はシリアル番号で機器を検索する。見つからない場合はnilを返す。
	FindBySerialNumber(ctx context.Context, serial string) (*model.Device, error)

	// Create は機器を作成する。
	Create(ctx context.Context, device *model.Device) error

	// Update は機器情報を更新する。
	Update(ctx context.Context, device *model.Device) error

	// DeleteByID は指定IDの機器を削除する。
	DeleteByID(ctx context.Context, id int64) error

	// List は機器一覧をID昇順でページング取得する。
	List(ctx context.Context, limit, offset int) ([]*model.Device, error)
}

// OrderFilter はオーダー一覧の絞り込み条件。ゼロ値のフィールドは無視される。
type OrderFilter struct {
	Status     model.OrderStatus
	CustomerID int64
	DeviceID   int64
}

// OrderRepository は修理オーダー・割り当て・状態履歴の永続化インターフェース。
type OrderRepository interface {
	// FindByID は指定IDのオーダーを取得する。見つからない場合はnilを返す。
	FindByID(ctx context.Context, id int64) (*model.Order, error)

	// Create はオーダーを作成し、同一トランザクションで初期状態の履歴行も記録する。
	Create(ctx context.Context, order *model.Order, changedBy int64) error

	// Update はオーダーを更新する。状態が変化した場合は
	// 同一トランザクションで履歴行も記録する。
	Update(ctx context.Context, order *model.Order, statusChanged bool, changedBy int64) error

	// DeleteByID は指定IDのオーダーを削除する。
	// 関連するorder_assign、order_status_historyはCASCADE削除される。
	DeleteByID(ctx context.Context, id int64) error

	// List はフィルタ条件に合致するオーダー一覧をページング取得する。
	List(ctx context.Context, filter OrderFilter, limit, offset int) ([]*model.Order, error)

	// ListStatusHistory はオーダーの状態履歴を古い順に返す。
	ListStatusHistory(ctx context.Context, orderID int64) ([]*model.OrderStatusHistory, error)

	// FindAssign は指定IDの割り当てを取得する。見つからない場合はnilを返す。
	FindAssign(ctx context.Context, id int64) (*model.OrderAssign, error)

	// FindAssignByOrderAndUser はオーダーIDとユーザーIDで割り当てを検索する。
	// 見つからない場合はnilを返す。
	FindAssignByOrderAndUser(ctx context.Context, orderID, userID int64) (*model.OrderAssign, error)

	// CreateAssign は割り当てを作成する。
	CreateAssign(ctx context.Context, assign *model.OrderAssign) error

	// DeleteAssignByID は指定IDの割り当てを削除する。
	DeleteAssignByID(ctx context.Context, id int64) error

	// ListAssigns はオーダーIDまたはユーザーID（0は無条件）で割り当て一覧を取得する。
	ListAssigns(ctx context.Context, orderID, userID int64, limit, offset int) ([]*model.OrderAssign, error)
}

// PaymentFilter は支払い一覧の絞り込み条件。ゼロ値のフィールドは無視される。
type PaymentFilter struct {
	Status  model.PaymentStatus
	OrderID int64
}

// PaymentRepository は支払い記録の永続化インターフェース。
type PaymentRepository interface {
	// FindByID は指定IDの支払いを取得する。見つからない場合はnilを返す。
	FindByID(ctx context.Context, id int64) (*model.Payment, error)

	// Create は支払いを作成する。
	Create(ctx context.Context, payment *model.Payment) error

	// Update は支払いを更新する。
	Update(ctx context.Context, payment *model.Payment) error

	// DeleteByID は指定IDの支払いを削除する。
	DeleteByID(ctx context.Context, id int64) error

	// List はフィルタ条件に合致する支払い一覧をページング取得する。
	List(ctx context.Context, filter PaymentFilter, limit, offset int) ([]*model.Payment, error)
}
