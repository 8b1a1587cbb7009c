package handler

import (
	"encoding/json"
	"net/http"
	"strconv"
	"time"

	"github.com/hitoshi/fixman/internal/model"
	"github.com/hitoshi/fixman/internal/repository"
)

// PaymentHandler は支払い記録のHTTPハンドラー。
type PaymentHandler struct {
	payments repository.PaymentRepository
	orders   repository.OrderRepository
}

// NewPaymentHandler はPaymentHandlerを生成する。
func NewPaymentHandler(payments repository.PaymentRepository, orders repository.OrderRepository) *PaymentHandler {
	return &PaymentHandler{
		payments: payments,
		orders:   orders,
	}
}

// createPaymentRequest は支払い作成リクエストのボディ。
type createPaymentRequest struct {
	OrderID       int64   `json:"order_id"`
	DueAmount     float64 `json:"due_amount"`
	Amount        float64 `json:"amount"`
	Status        string  `json:"status"`
	PaymentMethod string  `json:"payment_method"`
	TransactionID string  `json:"transaction_id"`
}

// updatePaymentRequest は支払い更新リクエストのボディ。
// 金額フィールドはポインタで受け、未指定と0円を区別する。
type updatePaymentRequest struct {
	DueAmount     *float64 `json:"due_amount"`
	Amount        *float64 `json:"amount"`
	Status        string   `json:"status"`
	PaymentMethod string   `json:"payment_method"`
	TransactionID string   `json:"transaction_id"`
}

// paymentResponse は支払いのAPIレスポンス。
type paymentResponse struct {
	ID            int64      `json:"id"`
	OrderID       int64      `json:"order_id"`
	DueAmount     float64    `json:"due_amount"`
	Amount        float64    `json:"amount"`
	Status        string     `json:"status"`
	PaymentMethod string     `json:"payment_method,omitempty"`
	TransactionID string     `json:"transaction_id,omitempty"`
	PaidAt        *time.Time `json:"paid_at,omitempty"`
	CreatedAt     time.Time  `json:"created_at"`
}

// ListPayments は支払い一覧をフィルタ付きで取得する。
// GET /v1/payments?status=&order_id=
func (h *PaymentHandler) ListPayments(w http.ResponseWriter, r *http.Request) {
	limit, offset := parsePaging(r)

	filter := repository.PaymentFilter{}
	if v := r.URL.Query().Get("status"); v != "" {
		status := model.PaymentStatus(v)
		if !model.ValidPaymentStatus(status) {
			writeAPIErrorResponse(w, http.StatusBadRequest, model.NewInvalidPaymentStatusError(v))
			return
		}
		filter.Status = status
	}
	if v := r.URL.Query().Get("order_id"); v != "" {
		if id, err := strconv.ParseInt(v, 10, 64); err == nil {
			filter.OrderID = id
		}
	}

	payments, err := h.payments.List(r.Context(), filter, limit, offset)
	if err != nil {
		handleServiceError(w, err)
		return
	}

	resp := make([]paymentResponse, 0, len(payments))
	for _, p := range payments {
		resp = append(resp, toPaymentResponse(p))
	}
	writeJSONResponse(w, http.StatusOK, resp)
}

// GetPayment は支払い詳細を取得する。
// GET /v1/payments/{id}
func (h *PaymentHandler) GetPayment(w http.ResponseWriter, r *http.Request) {
	id, ok := parseIDParam(w, r)
	if !ok {
		return
	}

	payment, err := h.payments.FindByID(r.Context(), id)
	if err != nil {
		handleServiceError(w, err)
		return
	}
	if payment == nil {
		writeAPIErrorResponse(w, http.StatusNotFound, model.NewPaymentNotFoundError(id))
		return
	}

	writeJSONResponse(w, http.StatusOK, toPaymentResponse(payment))
}

// CreatePayment は支払いを作成する。
// 状態がPaidの場合はpaid_atが記録時点で設定される。
// POST /v1/payments
func (h *PaymentHandler) CreatePayment(w http.ResponseWriter, r *http.Request) {
	var req createPaymentRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeAPIErrorResponse(w, http.StatusBadRequest,
			model.NewInvalidRequestError("リクエストボディの解析に失敗しました"))
		return
	}
	if req.OrderID <= 0 {
		writeAPIErrorResponse(w, http.StatusBadRequest,
			model.NewInvalidRequestError("order_idは必須です"))
		return
	}

	status := model.PaymentStatusUnpaid
	if req.Status != "" {
		status = model.PaymentStatus(req.Status)
		if !model.ValidPaymentStatus(status) {
			writeAPIErrorResponse(w, http.StatusBadRequest, model.NewInvalidPaymentStatusError(req.Status))
			return
		}
	}

	order, err := h.orders.FindByID(r.Context(), req.OrderID)
	if err != nil {
		handleServiceError(w, err)
		return
	}
	if order == nil {
		writeAPIErrorResponse(w, http.StatusNotFound, model.NewOrderNotFoundError(req.OrderID))
		return
	}

	payment := &model.Payment{
		OrderID:       req.OrderID,
		DueAmount:     req.DueAmount,
		Amount:        req.Amount,
		Status:        status,
		PaymentMethod: req.PaymentMethod,
		TransactionID: req.TransactionID,
	}
	if status == model.PaymentStatusPaid {
		now := time.Now()
		payment.PaidAt = &now
	}

	if err := h.payments.Create(r.Context(), payment); err != nil {
		handleServiceError(w, err)
		return
	}

	writeJSONResponse(w, http.StatusCreated, toPaymentResponse(payment))
}

// UpdatePayment は支払いを更新する。
// 状態が初めてPaidになった時点でpaid_atが設定され、以降は上書きされない。
// PUT /v1/payments/{id}
func (h *PaymentHandler) UpdatePayment(w http.ResponseWriter, r *http.Request) {
	id, ok := parseIDParam(w, r)
	if !ok {
		return
	}

	var req updatePaymentRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeAPIErrorResponse(w, http.StatusBadRequest,
			model.NewInvalidRequestError("リクエストボディの解析に失敗しました"))
		return
	}

	payment, err := h.payments.FindByID(r.Context(), id)
	if err != nil {
		handleServiceError(w, err)
		return
	}
	if payment == nil {
		writeAPIErrorResponse(w, http.StatusNotFound, model.NewPaymentNotFoundError(id))
		return
	}

	if req.DueAmount != nil {
		payment.DueAmount = *req.DueAmount
	}
	if req.Amount != nil {
		payment.Amount = *req.Amount
	}
	if req.PaymentMethod != "" {
		payment.PaymentMethod = req.PaymentMethod
	}
	if req.TransactionID != "" {
		payment.TransactionID = req.TransactionID
	}
	if req.Status != "" {
		newStatus := model.PaymentStatus(req.Status)
		if !model.ValidPaymentStatus(newStatus) {
			writeAPIErrorResponse(w, http.StatusBadRequest, model.NewInvalidPaymentStatusError(req.Status))
			return
		}
		if newStatus == model.PaymentStatusPaid && payment.PaidAt == nil {
			now := time.Now()
			payment.PaidAt = &now
		}
		payment.Status = newStatus
	}

	if err := h.payments.Update(r.Context(), payment); err != nil {
		handleServiceError(w, err)
		return
	}

	writeJSONResponse(w, http.StatusOK, toPaymentResponse(payment))
}

// DeletePayment は支払いを削除する。
// DELETE /v1/payments/{id}
func (h *PaymentHandler) DeletePayment(w http.ResponseWriter, r *http.Request) {
	id, ok := parseIDParam(w, r)
	if !ok {
		return
	}

	payment, err := h.payments.FindByID(r.Context(), id)
	if err != nil {
		handleServiceError(w, err)
		return
	}
	if payment == nil {
		writeAPIErrorResponse(w, http.StatusNotFound, model.NewPaymentNotFoundError(id))
		return
	}

	if err := h.payments.DeleteByID(r.Context(), id); err != nil {
		handleServiceError(w, err)
		return
	}

	w.WriteHeader(http.StatusNoContent)
}

// --- ヘルパー関数 ---

// toPaymentResponse はmodel.PaymentからAPIレスポンスに変換する。
func toPaymentResponse(p *model.Payment) paymentResponse {
	return paymentResponse{
		ID:            p.ID,
		OrderID:       p.OrderID,
		DueAmount:     p.DueAmount,
		Amount:        p.Amount,
		Status:        string(p.Status),
		PaymentMethod: p.PaymentMethod,
		TransactionID: p.TransactionID,
		PaidAt:        p.PaidAt,
		CreatedAt:     p.CreatedAt,
	}
}
