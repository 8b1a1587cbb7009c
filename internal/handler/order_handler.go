package handler

import (
	"encoding/json"
	"net/http"
	"strconv"
	"time"

	"github.com/hitoshi/fixman/internal/middleware"
	"github.com/hitoshi/fixman/internal/model"
	"github.com/hitoshi/fixman/internal/repository"
	"github.com/hitoshi/fixman/internal/security"
)

// OrderHandler は修理オーダーのHTTPハンドラー。
type OrderHandler struct {
	orders    repository.OrderRepository
	devices   repository.DeviceRepository
	sanitizer security.NoteSanitizerService
}

// NewOrderHandler はOrderHandlerを生成する。
func NewOrderHandler(orders repository.OrderRepository, devices repository.DeviceRepository, sanitizer security.NoteSanitizerService) *OrderHandler {
	return &OrderHandler{
		orders:    orders,
		devices:   devices,
		sanitizer: sanitizer,
	}
}

// createOrderRequest はオーダー作成リクエストのボディ。
type createOrderRequest struct {
	DeviceID                int64      `json:"device_id"`
	CustomerID              int64      `json:"customer_id"`
	ProblemID               int64      `json:"problem_id"`
	Cost                    float64    `json:"cost"`
	Discount                float64    `json:"discount"`
	Note                    string     `json:"note"`
	Status                  string     `json:"status"`
	EstimatedCompletionDate *time.Time `json:"estimated_completion_date"`
}

// updateOrderRequest はオーダー更新リクエストのボディ。
// 金額フィールドはポインタで受け、未指定と0円を区別する。
type updateOrderRequest struct {
	DeviceID                int64      `json:"device_id"`
	CustomerID              int64      `json:"customer_id"`
	ProblemID               int64      `json:"problem_id"`
	Cost                    *float64   `json:"cost"`
	Discount                *float64   `json:"discount"`
	Note                    string     `json:"note"`
	Status                  string     `json:"status"`
	EstimatedCompletionDate *time.Time `json:"estimated_completion_date"`
}

// orderResponse はオーダーのAPIレスポンス。
type orderResponse struct {
	ID                      int64      `json:"id"`
	DeviceID                int64      `json:"device_id"`
	CustomerID              int64      `json:"customer_id,omitempty"`
	ProblemID               int64      `json:"problem_id,omitempty"`
	Cost                    float64    `json:"cost"`
	Discount                float64    `json:"discount"`
	TotalCost               float64    `json:"total_cost"`
	Note                    string     `json:"note,omitempty"`
	Status                  string     `json:"status"`
	EstimatedCompletionDate *time.Time `json:"estimated_completion_date,omitempty"`
	CompletedAt             *time.Time `json:"completed_at,omitempty"`
	CreatedAt               time.Time  `json:"created_at"`
}

// statusHistoryResponse はオーダー状態履歴のAPIレスポンス。
type statusHistoryResponse struct {
	ID        int64     `json:"id"`
	OrderID   int64     `json:"order_id"`
	Status    string    `json:"status"`
	ChangedBy int64     `json:"changed_by,omitempty"`
	Note      string    `json:"note,omitempty"`
	CreatedAt time.Time `json:"created_at"`
}

// ListOrders はオーダー一覧をフィルタ付きで取得する。
// GET /v1/orders?status=&customer_id=&device_id=
func (h *OrderHandler) ListOrders(w http.ResponseWriter, r *http.Request) {
	limit, offset := parsePaging(r)

	filter := repository.OrderFilter{}
	if v := r.URL.Query().Get("status"); v != "" {
		status := model.OrderStatus(v)
		if !model.ValidOrderStatus(status) {
			writeAPIErrorResponse(w, http.StatusBadRequest, model.NewInvalidOrderStatusError(v))
			return
		}
		filter.Status = status
	}
	if v := r.URL.Query().Get("customer_id"); v != "" {
		if id, err := strconv.ParseInt(v, 10, 64); err == nil {
			filter.CustomerID = id
		}
	}
	if v := r.URL.Query().Get("device_id"); v != "" {
		if id, err := strconv.ParseInt(v, 10, 64); err == nil {
			filter.DeviceID = id
		}
	}

	orders, err := h.orders.List(r.Context(), filter, limit, offset)
	if err != nil {
		handleServiceError(w, err)
		return
	}

	resp := make([]orderResponse, 0, len(orders))
	for _, o := range orders {
		resp = append(resp, toOrderResponse(o))
	}
	writeJSONResponse(w, http.StatusOK, resp)
}

// GetOrder はオーダー詳細を取得する。
// GET /v1/orders/{id}
func (h *OrderHandler) GetOrder(w http.ResponseWriter, r *http.Request) {
	id, ok := parseIDParam(w, r)
	if !ok {
		return
	}

	order, err := h.orders.FindByID(r.Context(), id)
	if err != nil {
		handleServiceError(w, err)
		return
	}
	if order == nil {
		writeAPIErrorResponse(w, http.StatusNotFound, model.NewOrderNotFoundError(id))
		return
	}

	writeJSONResponse(w, http.StatusOK, toOrderResponse(order))
}

// CreateOrder はオーダーを作成する。請求額は常にサーバー側で計算し、
// 初期状態の履歴行も同時に記録される。
// POST /v1/orders
func (h *OrderHandler) CreateOrder(w http.ResponseWriter, r *http.Request) {
	changedBy, err := middleware.UserIDFromContext(r.Context())
	if err != nil {
		writeAPIErrorResponse(w, http.StatusUnauthorized, model.NewUnauthorizedError())
		return
	}

	var req createOrderRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeAPIErrorResponse(w, http.StatusBadRequest,
			model.NewInvalidRequestError("リクエストボディの解析に失敗しました"))
		return
	}
	if req.DeviceID <= 0 {
		writeAPIErrorResponse(w, http.StatusBadRequest,
			model.NewInvalidRequestError("device_idは必須です"))
		return
	}

	status := model.OrderStatusPending
	if req.Status != "" {
		status = model.OrderStatus(req.Status)
		if !model.ValidOrderStatus(status) {
			writeAPIErrorResponse(w, http.StatusBadRequest, model.NewInvalidOrderStatusError(req.Status))
			return
		}
	}

	device, err := h.devices.FindByID(r.Context(), req.DeviceID)
	if err != nil {
		handleServiceError(w, err)
		return
	}
	if device == nil {
		writeAPIErrorResponse(w, http.StatusNotFound, model.NewDeviceNotFoundError(req.DeviceID))
		return
	}

	order := &model.Order{
		DeviceID:                req.DeviceID,
		CustomerID:              req.CustomerID,
		ProblemID:               req.ProblemID,
		Cost:                    req.Cost,
		Discount:                req.Discount,
		TotalCost:               model.CalcTotalCost(req.Cost, req.Discount),
		Note:                    h.sanitizer.Sanitize(req.Note),
		Status:                  status,
		EstimatedCompletionDate: req.EstimatedCompletionDate,
	}
	if status == model.OrderStatusCompleted {
		now := time.Now()
		order.CompletedAt = &now
	}

	if err := h.orders.Create(r.Context(), order, changedBy); err != nil {
		handleServiceError(w, err)
		return
	}

	writeJSONResponse(w, http.StatusCreated, toOrderResponse(order))
}

// UpdateOrder はオーダーを更新する。状態が変化した場合は履歴行が記録され、
// Completedへの遷移時にcompleted_atが設定される。
// PUT /v1/orders/{id}
func (h *OrderHandler) UpdateOrder(w http.ResponseWriter, r *http.Request) {
	changedBy, err := middleware.UserIDFromContext(r.Context())
	if err != nil {
		writeAPIErrorResponse(w, http.StatusUnauthorized, model.NewUnauthorizedError())
		return
	}

	id, ok := parseIDParam(w, r)
	if !ok {
		return
	}

	var req updateOrderRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeAPIErrorResponse(w, http.StatusBadRequest,
			model.NewInvalidRequestError("リクエストボディの解析に失敗しました"))
		return
	}

	order, err := h.orders.FindByID(r.Context(), id)
	if err != nil {
		handleServiceError(w, err)
		return
	}
	if order == nil {
		writeAPIErrorResponse(w, http.StatusNotFound, model.NewOrderNotFoundError(id))
		return
	}

	if req.DeviceID > 0 {
		order.DeviceID = req.DeviceID
	}
	if req.CustomerID > 0 {
		order.CustomerID = req.CustomerID
	}
	if req.ProblemID > 0 {
		order.ProblemID = req.ProblemID
	}
	if req.Cost != nil {
		order.Cost = *req.Cost
	}
	if req.Discount != nil {
		order.Discount = *req.Discount
	}
	// 金額はどちらか一方の変更でも再計算する
	order.TotalCost = model.CalcTotalCost(order.Cost, order.Discount)

	if req.Note != "" {
		order.Note = h.sanitizer.Sanitize(req.Note)
	}
	if req.EstimatedCompletionDate != nil {
		order.EstimatedCompletionDate = req.EstimatedCompletionDate
	}

	statusChanged := false
	if req.Status != "" {
		newStatus := model.OrderStatus(req.Status)
		if !model.ValidOrderStatus(newStatus) {
			writeAPIErrorResponse(w, http.StatusBadRequest, model.NewInvalidOrderStatusError(req.Status))
			return
		}
		if newStatus != order.Status {
			statusChanged = true
			order.Status = newStatus
			if newStatus == model.OrderStatusCompleted && order.CompletedAt == nil {
				now := time.Now()
				order.CompletedAt = &now
			}
		}
	}

	if err := h.orders.Update(r.Context(), order, statusChanged, changedBy); err != nil {
		handleServiceError(w, err)
		return
	}

	writeJSONResponse(w, http.StatusOK, toOrderResponse(order))
}

// DeleteOrder はオーダーを削除する。
// 割り当てと状態履歴はストレージ側でCASCADE削除される。
// DELETE /v1/orders/{id}
func (h *OrderHandler) DeleteOrder(w http.ResponseWriter, r *http.Request) {
	id, ok := parseIDParam(w, r)
	if !ok {
		return
	}

	order, err := h.orders.FindByID(r.Context(), id)
	if err != nil {
		handleServiceError(w, err)
		return
	}
	if order == nil {
		writeAPIErrorResponse(w, http.StatusNotFound, model.NewOrderNotFoundError(id))
		return
	}

	if err := h.orders.DeleteByID(r.Context(), id); err != nil {
		handleServiceError(w, err)
		return
	}

	w.WriteHeader(http.StatusNoContent)
}

// ListHistory はオーダーの状態履歴を古い順に取得する。
// GET /v1/orders/{id}/history
func (h *OrderHandler) ListHistory(w http.ResponseWriter, r *http.Request) {
	id, ok := parseIDParam(w, r)
	if !ok {
		return
	}

	order, err := h.orders.FindByID(r.Context(), id)
	if err != nil {
		handleServiceError(w, err)
		return
	}
	if order == nil {
		writeAPIErrorResponse(w, http.StatusNotFound, model.NewOrderNotFoundError(id))
		return
	}

	history, err := h.orders.ListStatusHistory(r.Context(), id)
	if err != nil {
		handleServiceError(w, err)
		return
	}

	resp := make([]statusHistoryResponse, 0, len(history))
	for _, entry := range history {
		resp = append(resp, statusHistoryResponse{
			ID:        entry.ID,
			OrderID:   entry.OrderID,
			Status:    string(entry.Status),
			ChangedBy: entry.ChangedBy,
			Note:      entry.Note,
			CreatedAt: entry.CreatedAt,
		})
	}
	writeJSONResponse(w, http.StatusOK, resp)
}

// --- ヘルパー関数 ---

// toOrderResponse はmodel.OrderからAPIレスポンスに変換する。
func toOrderResponse(o *model.Order) orderResponse {
	return orderResponse{
		ID:                      o.ID,
		DeviceID:                o.DeviceID,
		CustomerID:              o.CustomerID,
		ProblemID:               o.ProblemID,
		Cost:                    o.Cost,
		Discount:                o.Discount,
		TotalCost:               o.TotalCost,
		Note:                    o.Note,
		Status:                  string(o.Status),
		EstimatedCompletionDate: o.EstimatedCompletionDate,
		CompletedAt:             o.CompletedAt,
		CreatedAt:               o.CreatedAt,
	}
}
