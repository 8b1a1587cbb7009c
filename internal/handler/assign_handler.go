package handler

import (
	"encoding/json"
	"net/http"
	"strconv"
	"time"

	"github.com/hitoshi/fixman/internal/model"
	"github.com/hitoshi/fixman/internal/repository"
)

// AssignHandler はオーダーへの技術者割り当てのHTTPハンドラー。
type AssignHandler struct {
	orders repository.OrderRepository
	users  repository.UserRepository
}

// NewAssignHandler はAssignHandlerを生成する。
func NewAssignHandler(orders repository.OrderRepository, users repository.UserRepository) *AssignHandler {
	return &AssignHandler{
		orders: orders,
		users:  users,
	}
}

// createAssignRequest は割り当て作成リクエストのボディ。
type createAssignRequest struct {
	OrderID int64 `json:"order_id"`
	UserID  int64 `json:"user_id"`
}

// assignResponse は割り当てのAPIレスポンス。
type assignResponse struct {
	ID         int64     `json:"id"`
	OrderID    int64     `json:"order_id"`
	UserID     int64     `json:"user_id"`
	AssignedAt time.Time `json:"assigned_at"`
}

// ListAssigns は割り当て一覧をフィルタ付きで取得する。
// GET /v1/assigns?order_id=&user_id=
func (h *AssignHandler) ListAssigns(w http.ResponseWriter, r *http.Request) {
	limit, offset := parsePaging(r)

	var orderID, userID int64
	if v := r.URL.Query().Get("order_id"); v != "" {
		if id, err := strconv.ParseInt(v, 10, 64); err == nil {
			orderID = id
		}
	}
	if v := r.URL.Query().Get("user_id"); v != "" {
		if id, err := strconv.ParseInt(v, 10, 64); err == nil {
			userID = id
		}
	}

	assigns, err := h.orders.ListAssigns(r.Context(), orderID, userID, limit, offset)
	if err != nil {
		handleServiceError(w, err)
		return
	}

	resp := make([]assignResponse, 0, len(assigns))
	for _, a := range assigns {
		resp = append(resp, toAssignResponse(a))
	}
	writeJSONResponse(w, http.StatusOK, resp)
}

// GetAssign は割り当て詳細を取得する。
// GET /v1/assigns/{id}
func (h *AssignHandler) GetAssign(w http.ResponseWriter, r *http.Request) {
	id, ok := parseIDParam(w, r)
	if !ok {
		return
	}

	assign, err := h.orders.FindAssign(r.Context(), id)
	if err != nil {
		handleServiceError(w, err)
		return
	}
	if assign == nil {
		writeAPIErrorResponse(w, http.StatusNotFound, model.NewAssignNotFoundError(id))
		return
	}

	writeJSONResponse(w, http.StatusOK, toAssignResponse(assign))
}

// CreateAssign はオーダーに担当者を割り当てる。
// 同一オーダーへの同一担当者の重複割り当ては拒否される。
// POST /v1/assigns
func (h *AssignHandler) CreateAssign(w http.ResponseWriter, r *http.Request) {
	var req createAssignRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeAPIErrorResponse(w, http.StatusBadRequest,
			model.NewInvalidRequestError("リクエストボディの解析に失敗しました"))
		return
	}
	if req.OrderID <= 0 || req.UserID <= 0 {
		writeAPIErrorResponse(w, http.StatusBadRequest,
			model.NewInvalidRequestError("order_idとuser_idは必須です"))
		return
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

	user, err := h.users.FindByID(r.Context(), req.UserID)
	if err != nil {
		handleServiceError(w, err)
		return
	}
	if user == nil {
		writeAPIErrorResponse(w, http.StatusNotFound, model.NewUserNotFoundError(req.UserID))
		return
	}

	existing, err := h.orders.FindAssignByOrderAndUser(r.Context(), req.OrderID, req.UserID)
	if err != nil {
		handleServiceError(w, err)
		return
	}
	if existing != nil {
		writeAPIErrorResponse(w, http.StatusConflict, model.NewDuplicateAssignError())
		return
	}

	assign := &model.OrderAssign{
		OrderID: req.OrderID,
		UserID:  req.UserID,
	}

	if err := h.orders.CreateAssign(r.Context(), assign); err != nil {
		// 事前チェックをすり抜けた同時割り当てはストレージ側の一意制約で検出される
		if repository.IsUniqueViolation(err) {
			writeAPIErrorResponse(w, http.StatusConflict, model.NewDuplicateAssignError())
			return
		}
		handleServiceError(w, err)
		return
	}

	writeJSONResponse(w, http.StatusCreated, toAssignResponse(assign))
}

// DeleteAssign は割り当てを解除する。
// DELETE /v1/assigns/{id}
func (h *AssignHandler) DeleteAssign(w http.ResponseWriter, r *http.Request) {
	id, ok := parseIDParam(w, r)
	if !ok {
		return
	}

	assign, err := h.orders.FindAssign(r.Context(), id)
	if err != nil {
		handleServiceError(w, err)
		return
	}
	if assign == nil {
		writeAPIErrorResponse(w, http.StatusNotFound, model.NewAssignNotFoundError(id))
		return
	}

	if err := h.orders.DeleteAssignByID(r.Context(), id); err != nil {
		handleServiceError(w, err)
		return
	}

	w.WriteHeader(http.StatusNoContent)
}

// --- ヘルパー関数 ---

// toAssignResponse はmodel.OrderAssignからAPIレスポンスに変換する。
func toAssignResponse(a *model.OrderAssign) assignResponse {
	return assignResponse{
		ID:         a.ID,
		OrderID:    a.OrderID,
		UserID:     a.UserID,
		AssignedAt: a.AssignedAt,
	}
}
