package repository

import (
	"testing"
	"time"

	"github.com/hitoshi/fixman/internal/model"
)

// 各Postgres実装が対応するインターフェースを満たすことを検証
func TestPostgresRepos_ImplementInterfaces(t *testing.T) {
	var _ UserRepository = (*PostgresUserRepo)(nil)
	var _ RoleRepository = (*PostgresRoleRepo)(nil)
	var _ RefreshTokenRepository = (*PostgresRefreshTokenRepo)(nil)
	var _ CatalogRepository = (*PostgresCatalogRepo)(nil)
	var _ DeviceRepository = (*PostgresDeviceRepo)(nil)
	var _ OrderRepository = (*PostgresOrderRepo)(nil)
	var _ PaymentRepository = (*PostgresPaymentRepo)(nil)
}

// 各コンストラクタが正しく初期化されることを検証
func TestNewPostgresRepos_Initialize(t *testing.T) {
	if NewPostgresUserRepo(nil) == nil {
		t.Fatal("expected non-nil user repo")
	}
	if NewPostgresRoleRepo(nil) == nil {
		t.Fatal("expected non-nil role repo")
	}
	if NewPostgresRefreshTokenRepo(nil) == nil {
		t.Fatal("expected non-nil refresh token repo")
	}
	if NewPostgresCatalogRepo(nil) == nil {
		t.Fatal("expected non-nil catalog repo")
	}
	if NewPostgresDeviceRepo(nil) == nil {
		t.Fatal("expected non-nil device repo")
	}
	if NewPostgresOrderRepo(nil) == nil {
		t.Fatal("expected non-nil order repo")
	}
	if NewPostgresPaymentRepo(nil) == nil {
		t.Fatal("expected non-nil payment repo")
	}
}

// FindValidの有効性判定はexpires_atが権威であることの期待動作
// （DB接続なしでコンセプトを検証）
func TestRefreshToken_ExpiresAt_Authority_Concept(t *testing.T) {
	token := &model.RefreshToken{
		UserID:    1,
		Token:     "token-value",
		ExpiresAt: time.Now().Add(-1 * time.Hour),
	}

	if token.ExpiresAt.After(time.Now()) {
		t.Error("expected token to be expired")
	}
}

// オーダーのフィルタはゼロ値フィールドを条件に含めないことの検証
func TestOrderFilter_ZeroValues(t *testing.T) {
	filter := OrderFilter{}
	if filter.Status != "" || filter.CustomerID != 0 || filter.DeviceID != 0 {
		t.Error("zero-value filter should have no conditions")
	}

	filter = OrderFilter{Status: model.OrderStatusPending, CustomerID: 5}
	if filter.Status != model.OrderStatusPending {
		t.Errorf("filter.Status = %q, want %q", filter.Status, model.OrderStatusPending)
	}
	if filter.DeviceID != 0 {
		t.Error("unset DeviceID should stay zero")
	}
}
