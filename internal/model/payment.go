package model

import "time"

// PaymentStatus は支払いの状態を表す。
type PaymentStatus string

// 支払い状態の定義。ストレージ側のCHECK制約と一致させること。
const (
	PaymentStatusPaid    PaymentStatus = "Paid"
	PaymentStatusDue     PaymentStatus = "Due"
	PaymentStatusUnpaid  PaymentStatus = "Unpaid"
	PaymentStatusPartial PaymentStatus = "Partial"
)

// ValidPaymentStatus はsが定義済みの支払い状態かどうかを返す。
func ValidPaymentStatus(s PaymentStatus) bool {
	switch s {
	case PaymentStatusPaid, PaymentStatusDue, PaymentStatusUnpaid, PaymentStatusPartial:
		return true
	}
	return false
}

// Payment はオーダーに対する支払い記録を表す。
// PaidAt は状態がPaidになった時点で一度だけ設定される。
type Payment struct {
	ID            int64
	OrderID       int64
	DueAmount     float64
	Amount        float64
	Status        PaymentStatus
	PaymentMethod string
	TransactionID string
	PaidAt        *time.Time
	CreatedAt     time.Time
	UpdatedAt     time.Time
}
