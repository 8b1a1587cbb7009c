package repository

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/hitoshi/fixman/internal/model"
)

// PostgresOrderRepo はPostgreSQLを使用した修理オーダーリポジトリ。
// オーダー本体・技術者割り当て・状態履歴を扱う。
type PostgresOrderRepo struct {
	db *sql.DB
}

// NewPostgresOrderRepo はPostgresOrderRepoを生成する。
func NewPostgresOrderRepo(db *sql.DB) *PostgresOrderRepo {
	return &PostgresOrderRepo{db: db}
}

const orderColumns = `id, device_id, COALESCE(customer_id, 0), COALESCE(problem_id, 0),
	cost, discount, total_cost, COALESCE(note, ''), status,
	estimated_completion_date, completed_at, created_at, updated_at`

func scanOrderRow(scan func(dest ...any) error) (*model.Order, error) {
	o := &model.Order{}
	err := scan(
		&o.ID, &o.DeviceID, &o.CustomerID, &o.ProblemID,
		&o.Cost, &o.Discount, &o.TotalCost, &o.Note, &o.Status,
		&o.EstimatedCompletionDate, &o.CompletedAt, &o.CreatedAt, &o.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	return o, nil
}

// FindByID は指定IDのオーダーを取得する。見つからない場合はnilを返す。
func (r *PostgresOrderRepo) FindByID(ctx context.Context, id int64) (*model.Order, error) {
	row := r.db.QueryRowContext(ctx,
		`SELECT `+orderColumns+` FROM orders WHERE id = $1`, id)
	order, err := scanOrderRow(row.Scan)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to find order by ID: %w", err)
	}
	return order, nil
}

// Create はオーダーと初期状態の履歴行を同一トランザクションで作成する。
// 履歴行の挿入に失敗した場合はオーダー本体もロールバックされる。
func (r *PostgresOrderRepo) Create(ctx context.Context, order *model.Order, changedBy int64) error {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	err = tx.QueryRowContext(ctx,
		`INSERT INTO orders (device_id, customer_id, problem_id, cost, discount, total_cost,
		                     note, status, estimated_completion_date, completed_at)
		 VALUES ($1, NULLIF($2, 0), NULLIF($3, 0), $4, $5, $6, NULLIF($7, ''), $8, $9, $10)
		 RETURNING id, created_at, updated_at`,
		order.DeviceID, order.CustomerID, order.ProblemID,
		order.Cost, order.Discount, order.TotalCost,
		order.Note, order.Status, order.EstimatedCompletionDate, order.CompletedAt,
	).Scan(&order.ID, &order.CreatedAt, &order.UpdatedAt)
	if err != nil {
		return fmt.Errorf("failed to insert order: %w", err)
	}

	_, err = tx.ExecContext(ctx,
		`INSERT INTO order_status_history (order_id, status, changed_by)
		 VALUES ($1, $2, NULLIF($3, 0))`,
		order.ID, order.Status, changedBy,
	)
	if err != nil {
		return fmt.Errorf("failed to insert order status history: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit transaction: %w", err)
	}
	return nil
}

// Update はオーダーを更新する。statusChangedがtrueの場合は
// 同一トランザクションで履歴行も記録する。
func (r *PostgresOrderRepo) Update(ctx context.Context, order *model.Order, statusChanged bool, changedBy int64) error {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	err = tx.QueryRowContext(ctx,
		`UPDATE orders
		 SET device_id = $1, customer_id = NULLIF($2, 0), problem_id = NULLIF($3, 0),
		     cost = $4, discount = $5, total_cost = $6, note = NULLIF($7, ''),
		     status = $8, estimated_completion_date = $9, completed_at = $10,
		     updated_at = now()
		 WHERE id = $11
		 RETURNING updated_at`,
		order.DeviceID, order.CustomerID, order.ProblemID,
		order.Cost, order.Discount, order.TotalCost, order.Note,
		order.Status, order.EstimatedCompletionDate, order.CompletedAt, order.ID,
	).Scan(&order.UpdatedAt)
	if err == sql.ErrNoRows {
		return fmt.Errorf("order not found: %d", order.ID)
	}
	if err != nil {
		return fmt.Errorf("failed to update order: %w", err)
	}

	if statusChanged {
		_, err = tx.ExecContext(ctx,
			`INSERT INTO order_status_history (order_id, status, changed_by, note)
			 VALUES ($1, $2, NULLIF($3, 0), NULLIF($4, ''))`,
			order.ID, order.Status, changedBy, order.Note,
		)
		if err != nil {
			return fmt.Errorf("failed to insert order status history: %w", err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit transaction: %w", err)
	}
	return nil
}

// DeleteByID は指定IDのオーダーを削除する。
// 関連するorder_assign、order_status_historyはCASCADE削除される。
func (r *PostgresOrderRepo) DeleteByID(ctx context.Context, id int64) error {
	result, err := r.db.ExecContext(ctx, `DELETE FROM orders WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("failed to delete order: %w", err)
	}
	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get rows affected: %w", err)
	}
	if rowsAffected == 0 {
		return fmt.Errorf("order not found: %d", id)
	}
	return nil
}

// List はフィルタ条件に合致するオーダー一覧をID昇順でページング取得する。
// フィルタのゼロ値フィールドは条件に含めない。
func (r *PostgresOrderRepo) List(ctx context.Context, filter OrderFilter, limit, offset int) ([]*model.Order, error) {
	query := `SELECT ` + orderColumns + ` FROM orders WHERE 1=1`
	args := []any{}

	if filter.Status != "" {
		args = append(args, filter.Status)
		query += fmt.Sprintf(" AND status = $%d", len(args))
	}
	if filter.CustomerID != 0 {
		args = append(args, filter.CustomerID)
		query += fmt.Sprintf(" AND customer_id = $%d", len(args))
	}
	if filter.DeviceID != 0 {
		args = append(args, filter.DeviceID)
		query += fmt.Sprintf(" AND device_id = $%d", len(args))
	}

	args = append(args, limit)
	query += fmt.Sprintf(" ORDER BY id LIMIT $%d", len(args))
	args = append(args, offset)
	query += fmt.Sprintf(" OFFSET $%d", len(args))

	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to list orders: %w", err)
	}
	defer rows.Close()

	var orders []*model.Order
	for rows.Next() {
		order, err := scanOrderRow(rows.Scan)
		if err != nil {
			return nil, fmt.Errorf("failed to scan order: %w", err)
		}
		orders = append(orders, order)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate orders: %w", err)
	}
	return orders, nil
}

// ListStatusHistory はオーダーの状態履歴を古い順に返す。
func (r *PostgresOrderRepo) ListStatusHistory(ctx context.Context, orderID int64) ([]*model.OrderStatusHistory, error) {
	rows, err := r.db.QueryContext(ctx,
		`SELECT id, order_id, status, COALESCE(changed_by, 0), COALESCE(note, ''), created_at
		 FROM order_status_history WHERE order_id = $1 ORDER BY id`,
		orderID)
	if err != nil {
		return nil, fmt.Errorf("failed to list order status history: %w", err)
	}
	defer rows.Close()

	var history []*model.OrderStatusHistory
	for rows.Next() {
		h := &model.OrderStatusHistory{}
		if err := rows.Scan(&h.ID, &h.OrderID, &h.Status, &h.ChangedBy, &h.Note, &h.CreatedAt); err != nil {
			return nil, fmt.Errorf("failed to scan order status history: %w", err)
		}
		history = append(history, h)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate order status history: %w", err)
	}
	return history, nil
}

// FindAssign は指定IDの割り当てを取得する。見つからない場合はnilを返す。
func (r *PostgresOrderRepo) FindAssign(ctx context.Context, id int64) (*model.OrderAssign, error) {
	a := &model.OrderAssign{}
	err := r.db.QueryRowContext(ctx,
		`SELECT id, order_id, user_id, assigned_at FROM order_assign WHERE id = $1`,
		id,
	).Scan(&a.ID, &a.OrderID, &a.UserID, &a.AssignedAt)

	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to find assign: %w", err)
	}
	return a, nil
}

// FindAssignByOrderAndUser はオーダーIDとユーザーIDで割り当てを検索する。
// 見つからない場合はnilを返す。
func (r *PostgresOrderRepo) FindAssignByOrderAndUser(ctx context.Context, orderID, userID int64) (*model.OrderAssign, error) {
	a := &model.OrderAssign{}
	err := r.db.QueryRowContext(ctx,
		`SELECT id, order_id, user_id, assigned_at
		 FROM order_assign WHERE order_id = $1 AND user_id = $2`,
		orderID, userID,
	).Scan(&a.ID, &a.OrderID, &a.UserID, &a.AssignedAt)

	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to find assign by order and user: %w", err)
	}
	return a, nil
}

// CreateAssign は割り当てを作成する。重複割り当ては一意制約違反として返る。
func (r *PostgresOrderRepo) CreateAssign(ctx context.Context, assign *model.OrderAssign) error {
	err := r.db.QueryRowContext(ctx,
		`INSERT INTO order_assign (order_id, user_id)
		 VALUES ($1, $2)
		 RETURNING id, assigned_at`,
		assign.OrderID, assign.UserID,
	).Scan(&assign.ID, &assign.AssignedAt)
	if err != nil {
		return fmt.Errorf("failed to insert assign: %w", err)
	}
	return nil
}

// DeleteAssignByID は指定IDの割り当てを削除する。
func (r *PostgresOrderRepo) DeleteAssignByID(ctx context.Context, id int64) error {
	result, err := r.db.ExecContext(ctx, `DELETE FROM order_assign WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("failed to delete assign: %w", err)
	}
	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get rows affected: %w", err)
	}
	if rowsAffected == 0 {
		return fmt.Errorf("assign not found: %d", id)
	}
	return nil
}

// ListAssigns はオーダーIDまたはユーザーID（0は無条件）で割り当て一覧を取得する。
func (r *PostgresOrderRepo) ListAssigns(ctx context.Context, orderID, userID int64, limit, offset int) ([]*model.OrderAssign, error) {
	query := `SELECT id, order_id, user_id, assigned_at FROM order_assign WHERE 1=1`
	args := []any{}

	if orderID != 0 {
		args = append(args, orderID)
		query += fmt.Sprintf(" AND order_id = $%d", len(args))
	}
	if userID != 0 {
		args = append(args, userID)
		query += fmt.Sprintf(" AND user_id = $%d", len(args))
	}

	args = append(args, limit)
	query += fmt.Sprintf(" ORDER BY id LIMIT $%d", len(args))
	args = append(args, offset)
	query += fmt.Sprintf(" OFFSET $%d", len(args))

	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to list assigns: %w", err)
	}
	defer rows.Close()

	var assigns []*model.OrderAssign
	for rows.Next() {
		a := &model.OrderAssign{}
		if err := rows.Scan(&a.ID, &a.OrderID, &a.UserID, &a.AssignedAt); err != nil {
			return nil, fmt.Errorf("failed to scan assign: %w", err)
		}
		assigns = append(assigns, a)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate assigns: %w", err)
	}
	return assigns, nil
}

// compile-time interface check
var _ OrderRepository = (*PostgresOrderRepo)(nil)
