package model

import (
	"math"
	"time"
)

// OrderStatus は修理オーダーの状態を表す。
type OrderStatus string

// オーダー状態の定義。ストレージ側のCHECK制約と一致させること。
const (
	OrderStatusPending   OrderStatus = "Pending"
	OrderStatusRepairing OrderStatus = "Repairing"
	OrderStatusCompleted OrderStatus = "Completed"
	OrderStatusCancelled OrderStatus = "Cancelled"
)

// ValidOrderStatus はsが定義済みのオーダー状態かどうかを返す。
func ValidOrderStatus(s OrderStatus) bool {
	switch s {
	case OrderStatusPending, OrderStatusRepairing, OrderStatusCompleted, OrderStatusCancelled:
		return true
	}
	return false
}

// Order は修理オーダーを表す。
// TotalCost は常に CalcTotalCost(Cost, Discount) と一致する。
type Order struct {
	ID                      int64
	DeviceID                int64
	CustomerID              int64
	ProblemID               int64
	Cost                    float64
	Discount                float64
	TotalCost               float64
	Note                    string
	Status                  OrderStatus
	EstimatedCompletionDate *time.Time
	CompletedAt             *time.Time
	CreatedAt               time.Time
	UpdatedAt               time.Time
}

// RoundMoney は金額を小数第2位に丸める。浮動小数点演算の誤差を吸収するために使う。
func RoundMoney(v float64) float64 {
	return math.Round(v*100) / 100
}

// CalcTotalCost は請求額を計算する。割引が費用を上回る場合は0円に切り上げる。
func CalcTotalCost(cost, discount float64) float64 {
	total := RoundMoney(cost - discount)
	if total < 0 {
		return 0
	}
	return total
}

// OrderAssign はオーダーへの技術者割り当てを表す。
// (order_id, user_id) の組はストレージ側の一意制約で保証される。
type OrderAssign struct {
	ID         int64
	OrderID    int64
	UserID     int64
	AssignedAt time.Time
}

// OrderStatusHistory はオーダー状態の変更履歴を表す。
type OrderStatusHistory struct {
	ID        int64
	OrderID   int64
	Status    OrderStatus
	ChangedBy int64
	Note      string
	CreatedAt time.Time
}
