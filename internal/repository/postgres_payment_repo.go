package repository

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/hitoshi/fixman/internal/model"
)

// PostgresPaymentRepo はPostgreSQLを使用した支払いリポジトリ。
type PostgresPaymentRepo struct {
	db *sql.DB
}

// NewPostgresPaymentRepo はPostgresPaymentRepoを生成する。
func NewPostgresPaymentRepo(db *sql.DB) *PostgresPaymentRepo {
	return &PostgresPaymentRepo{db: db}
}

const paymentColumns = `id, order_id, due_amount, amount, status,
	COALESCE(payment_method, ''), COALESCE(transaction_id, ''),
	paid_at, created_at, updated_at`

func scanPaymentRow(scan func(dest ...any) error) (*model.Payment, error) {
	p := &model.Payment{}
	err := scan(
		&p.ID, &p.OrderID, &p.DueAmount, &p.Amount, &p.Status,
		&p.PaymentMethod, &p.TransactionID,
		&p.PaidAt, &p.CreatedAt, &p.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	return p, nil
}

// FindByID は指定IDの支払いを取得する。見つからない場合はnilを返す。
func (r *PostgresPaymentRepo) FindByID(ctx context.Context, id int64) (*model.Payment, error) {
	row := r.db.QueryRowContext(ctx,
		`SELECT `+paymentColumns+` FROM payments WHERE id = $1`, id)
	payment, err := scanPaymentRow(row.Scan)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to find payment by ID: %w", err)
	}
	return payment, nil
}

// Create は支払いを作成する。
func (r *PostgresPaymentRepo) Create(ctx context.Context, payment *model.Payment) error {
	err := r.db.QueryRowContext(ctx,
		`INSERT INTO payments (order_id, due_amount, amount, status,
		                       payment_method, transaction_id, paid_at)
		 VALUES ($1, $2, $3, $4, NULLIF($5, ''), NULLIF($6, ''), $7)
		 RETURNING id, created_at, updated_at`,
		payment.OrderID, payment.DueAmount, payment.Amount, payment.Status,
		payment.PaymentMethod, payment.TransactionID, payment.PaidAt,
	).Scan(&payment.ID, &payment.CreatedAt, &payment.UpdatedAt)
	if err != nil {
		return fmt.Errorf("failed to insert payment: %w", err)
	}
	return nil
}

// Update は支払いを更新する。
func (r *PostgresPaymentRepo) Update(ctx context.Context, payment *model.Payment) error {
	err := r.db.QueryRowContext(ctx,
		`UPDATE payments
		 SET order_id = $1, due_amount = $2, amount = $3, status = $4,
		     payment_method = NULLIF($5, ''), transaction_id = NULLIF($6, ''),
		     paid_at = $7, updated_at = now()
		 WHERE id = $8
		 RETURNING updated_at`,
		payment.OrderID, payment.DueAmount, payment.Amount, payment.Status,
		payment.PaymentMethod, payment.TransactionID, payment.PaidAt, payment.ID,
	).Scan(&payment.UpdatedAt)
	if err == sql.ErrNoRows {
		return fmt.Errorf("payment not found: %d", payment.ID)
	}
	if err != nil {
		return fmt.Errorf("failed to update payment: %w", err)
	}
	return nil
}

// DeleteByID は指定IDの支払いを削除する。
func (r *PostgresPaymentRepo) DeleteByID(ctx context.Context, id int64) error {
	result, err := r.db.ExecContext(ctx, `DELETE FROM payments WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("failed to delete payment: %w", err)
	}
	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get rows affected: %w", err)
	}
	if rowsAffected == 0 {
		return fmt.Errorf("payment not found: %d", id)
	}
	return nil
}

// List はフィルタ条件に合致する支払い一覧をID昇順でページング取得する。
// フィルタのゼロ値フィールドは条件に含めない。
func (r *PostgresPaymentRepo) List(ctx context.Context, filter PaymentFilter, limit, offset int) ([]*model.Payment, error) {
	query := `SELECT ` + paymentColumns + ` FROM payments WHERE 1=1`
	args := []any{}

	if filter.Status != "" {
		args = append(args, filter.Status)
		query += fmt.Sprintf(" AND status = $%d", len(args))
	}
	if filter.OrderID != 0 {
		args = append(args, filter.OrderID)
		query += fmt.Sprintf(" AND order_id = $%d", len(args))
	}

	args = append(args, limit)
	query += fmt.Sprintf(" ORDER BY id LIMIT $%d", len(args))
	args = append(args, offset)
	query += fmt.Sprintf(" OFFSET $%d", len(args))

	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to list payments: %w", err)
	}
	defer rows.Close()

	var payments []*model.Payment
	for rows.Next() {
		payment, err := scanPaymentRow(rows.Scan)
		if err != nil {
			return nil, fmt.Errorf("failed to scan payment: %w", err)
		}
		payments = append(payments, payment)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate payments: %w", err)
	}
	return payments, nil
}

// compile-time interface check
var _ PaymentRepository = (*PostgresPaymentRepo)(nil)
