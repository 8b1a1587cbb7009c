package handler

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/hitoshi/fixman/internal/middleware"
	"github.com/hitoshi/fixman/internal/model"
	"github.com/hitoshi/fixman/internal/repository"
	"github.com/hitoshi/fixman/internal/security"
)

// --- モック定義 ---

type mockOrderRepo struct {
	findByIDFn          func(ctx context.Context, id int64) (*model.Order, error)
	createFn            func(ctx context.Context, order *model.Order, changedBy int64) error
	updateFn            func(ctx context.Context, order *model.Order, statusChanged bool, changedBy int64) error
	deleteByIDFn        func(ctx context.Context, id int64) error
	listFn              func(ctx context.Context, filter repository.OrderFilter, limit, offset int) ([]*model.Order, error)
	listStatusHistoryFn func(ctx context.Context, orderID int64) ([]*model.OrderStatusHistory, error)
	findAssignFn        func(ctx context.Context, id int64) (*model.OrderAssign, error)
	findAssignByOUFn    func(ctx context.Context, orderID, userID int64) (*model.OrderAssign, error)
	createAssignFn      func(ctx context.Context, assign *model.OrderAssign) error
	deleteAssignByIDFn  func(ctx context.Context, id int64) error
	listAssignsFn       func(ctx context.Context, orderID, userID int64, limit, offset int) ([]*model.OrderAssign, error)
}

func (m *mockOrderRepo) FindByID(ctx context.Context, id int64) (*model.Order, error) {
	if m.findByIDFn != nil {
		return m.findByIDFn(ctx, id)
	}
	return nil, nil
}

func (m *mockOrderRepo) Create(ctx context.Context, order *model.Order, changedBy int64) error {
	if m.createFn != nil {
		return m.createFn(ctx, order, changedBy)
	}
	return nil
}

func (m *mockOrderRepo) Update(ctx context.Context, order *model.Order, statusChanged bool, changedBy int64) error {
	if m.updateFn != nil {
		return m.updateFn(ctx, order, statusChanged, changedBy)
	}
	return nil
}

func (m *mockOrderRepo) DeleteByID(ctx context.Context, id int64) error {
	if m.deleteByIDFn != nil {
		return m.deleteByIDFn(ctx, id)
	}
	return nil
}

func (m *mockOrderRepo) List(ctx context.Context, filter repository.OrderFilter, limit, offset int) ([]*model.Order, error) {
	if m.listFn != nil {
		return m.listFn(ctx, filter, limit, offset)
	}
	return nil, nil
}

func (m *mockOrderRepo) ListStatusHistory(ctx context.Context, orderID int64) ([]*model.OrderStatusHistory, error) {
	if m.listStatusHistoryFn != nil {
		return m.listStatusHistoryFn(ctx, orderID)
	}
	return nil, nil
}

func (m *mockOrderRepo) FindAssign(ctx context.Context, id int64) (*model.OrderAssign, error) {
	if m.findAssignFn != nil {
		return m.findAssignFn(ctx, id)
	}
	return nil, nil
}

func (m *mockOrderRepo) FindAssignByOrderAndUser(ctx context.Context, orderID, userID int64) (*model.OrderAssign, error) {
	if m.findAssignByOUFn != nil {
		return m.findAssignByOUFn(ctx, orderID, userID)
	}
	return nil, nil
}

func (m *mockOrderRepo) CreateAssign(ctx context.Context, assign *model.OrderAssign) error {
	if m.createAssignFn != nil {
		return m.createAssignFn(ctx, assign)
	}
	return nil
}

func (m *mockOrderRepo) DeleteAssignByID(ctx context.Context, id int64) error {
	if m.deleteAssignByIDFn != nil {
		return m.deleteAssignByIDFn(ctx, id)
	}
	return nil
}

func (m *mockOrderRepo) ListAssigns(ctx context.Context, orderID, userID int64, limit, offset int) ([]*model.OrderAssign, error) {
	if m.listAssignsFn != nil {
		return m.listAssignsFn(ctx, orderID, userID, limit, offset)
	}
	return nil, nil
}

type mockDeviceRepo struct {
	findByIDFn     func(ctx context.Context, id int64) (*model.Device, error)
	findBySerialFn func(ctx context.Context, serial string) (*model.Device, error)
	createFn       func(ctx context.Context, device *model.Device) error
	updateFn       func(ctx context.Context, device *model.Device) error
	deleteByIDFn   func(ctx context.Context, id int64) error
	listFn         func(ctx context.Context, limit, offset int) ([]*model.Device, error)
}

func (m *mockDeviceRepo) FindByID(ctx context.Context, id int64) (*model.Device, error) {
	if m.findByIDFn != nil {
		return m.findByIDFn(ctx, id)
	}
	return nil, nil
}

func (m *mockDeviceRepo) FindBySerialNumber(ctx context.Context, serial string) (*model.Device, error) {
	if m.findBySerialFn != nil {
		return m.findBySerialFn(ctx, serial)
	}
	return nil, nil
}

func (m *mockDeviceRepo) Create(ctx context.Context, device *model.Device) error {
	if m.createFn != nil {
		return m.createFn(ctx, device)
	}
	return nil
}

func (m *mockDeviceRepo) Update(ctx context.Context, device *model.Device) error {
	if m.updateFn != nil {
		return m.updateFn(ctx, device)
	}
	return nil
}

func (m *mockDeviceRepo) DeleteByID(ctx context.Context, id int64) error {
	if m.deleteByIDFn != nil {
		return m.deleteByIDFn(ctx, id)
	}
	return nil
}

func (m *mockDeviceRepo) List(ctx context.Context, limit, offset int) ([]*model.Device, error) {
	if m.listFn != nil {
		return m.listFn(ctx, limit, offset)
	}
	return nil, nil
}

// --- テストヘルパー ---

// newTestSanitizer はテスト用のノートサニタイザーを生成するヘルパー。
func newTestSanitizer() security.NoteSanitizerService {
	return security.NewNoteSanitizer()
}

// withUserID はテスト用に認証済みユーザーIDをコンテキストに注入するヘルパー。
func withUserID(r *http.Request, userID int64) *http.Request {
	ctx := middleware.ContextWithUserID(r.Context(), userID)
	return r.WithContext(ctx)
}

// withChiURLParam はテスト用にchiのURLパラメータを注入するヘルパー。
func withChiURLParam(r *http.Request, key, value string) *http.Request {
	rctx := chi.NewRouteContext()
	rctx.URLParams.Add(key, value)
	ctx := context.WithValue(r.Context(), chi.RouteCtxKey, rctx)
	return r.WithContext(ctx)
}

// existingDevice は存在する機器を返すDeviceRepositoryモックを生成するヘルパー。
func existingDevice(id int64) *mockDeviceRepo {
	return &mockDeviceRepo{
		findByIDFn: func(ctx context.Context, deviceID int64) (*model.Device, error) {
			if deviceID == id {
				return &model.Device{ID: id, SerialNumber: "SN-001"}, nil
			}
			return nil, nil
		},
	}
}

// --- テスト ---

func TestOrderHandler_CreateOrder_ComputesTotalCostServerSide(t *testing.T) {
	var created *model.Order
	var createdBy int64
	repo := &mockOrderRepo{
		createFn: func(ctx context.Context, order *model.Order, changedBy int64) error {
			order.ID = 10
			created = order
			createdBy = changedBy
			return nil
		},
	}
	h := NewOrderHandler(repo, existingDevice(5), newTestSanitizer())

	req := jsonRequest(http.MethodPost, "/v1/orders", createOrderRequest{
		DeviceID: 5,
		Cost:     10000,
		Discount: 2000,
	})
	req = withUserID(req, 7)
	w := httptest.NewRecorder()

	h.CreateOrder(w, req)

	resp := w.Result()
	if resp.StatusCode != http.StatusCreated {
		t.Fatalf("status = %d, want %d", resp.StatusCode, http.StatusCreated)
	}
	if created == nil {
		t.Fatal("expected Create to be called")
	}
	if created.TotalCost != 8000 {
		t.Errorf("total_cost = %v, want 8000", created.TotalCost)
	}
	if createdBy != 7 {
		t.Errorf("changedBy = %d, want 7", createdBy)
	}
	if created.Status != model.OrderStatusPending {
		t.Errorf("status = %q, want %q", created.Status, model.OrderStatusPending)
	}
}

func TestOrderHandler_CreateOrder_DiscountExceedsCost_TotalCostIsZero(t *testing.T) {
	var created *model.Order
	repo := &mockOrderRepo{
		createFn: func(ctx context.Context, order *model.Order, changedBy int64) error {
			created = order
			return nil
		},
	}
	h := NewOrderHandler(repo, existingDevice(5), newTestSanitizer())

	req := jsonRequest(http.MethodPost, "/v1/orders", createOrderRequest{
		DeviceID: 5,
		Cost:     3000,
		Discount: 5000,
	})
	req = withUserID(req, 7)
	w := httptest.NewRecorder()

	h.CreateOrder(w, req)

	if w.Result().StatusCode != http.StatusCreated {
		t.Fatalf("status = %d, want %d", w.Result().StatusCode, http.StatusCreated)
	}
	if created.TotalCost != 0 {
		t.Errorf("total_cost = %v, want 0", created.TotalCost)
	}
}

func TestOrderHandler_CreateOrder_UnknownDevice_ReturnsNotFound(t *testing.T) {
	h := NewOrderHandler(&mockOrderRepo{}, &mockDeviceRepo{}, newTestSanitizer())

	req := jsonRequest(http.MethodPost, "/v1/orders", createOrderRequest{
		DeviceID: 99,
		Cost:     1000,
	})
	req = withUserID(req, 7)
	w := httptest.NewRecorder()

	h.CreateOrder(w, req)

	resp := w.Result()
	if resp.StatusCode != http.StatusNotFound {
		t.Errorf("status = %d, want %d", resp.StatusCode, http.StatusNotFound)
	}
	body := decodeErrorBody(t, resp)
	if body.Code != model.ErrCodeDeviceNotFound {
		t.Errorf("code = %q, want %q", body.Code, model.ErrCodeDeviceNotFound)
	}
}

func TestOrderHandler_CreateOrder_WithoutAuthContext_ReturnsUnauthorized(t *testing.T) {
	h := NewOrderHandler(&mockOrderRepo{}, existingDevice(5), newTestSanitizer())

	req := jsonRequest(http.MethodPost, "/v1/orders", createOrderRequest{DeviceID: 5})
	w := httptest.NewRecorder()

	h.CreateOrder(w, req)

	if w.Result().StatusCode != http.StatusUnauthorized {
		t.Errorf("status = %d, want %d", w.Result().StatusCode, http.StatusUnauthorized)
	}
}

func TestOrderHandler_CreateOrder_InvalidStatus_ReturnsBadRequest(t *testing.T) {
	h := NewOrderHandler(&mockOrderRepo{}, existingDevice(5), newTestSanitizer())

	req := jsonRequest(http.MethodPost, "/v1/orders", createOrderRequest{
		DeviceID: 5,
		Status:   "Exploded",
	})
	req = withUserID(req, 7)
	w := httptest.NewRecorder()

	h.CreateOrder(w, req)

	resp := w.Result()
	if resp.StatusCode != http.StatusBadRequest {
		t.Errorf("status = %d, want %d", resp.StatusCode, http.StatusBadRequest)
	}
	body := decodeErrorBody(t, resp)
	if body.Code != model.ErrCodeInvalidOrderStatus {
		t.Errorf("code = %q, want %q", body.Code, model.ErrCodeInvalidOrderStatus)
	}
}

func TestOrderHandler_CreateOrder_CompletedStatus_SetsCompletedAt(t *testing.T) {
	var created *model.Order
	repo := &mockOrderRepo{
		createFn: func(ctx context.Context, order *model.Order, changedBy int64) error {
			created = order
			return nil
		},
	}
	h := NewOrderHandler(repo, existingDevice(5), newTestSanitizer())

	req := jsonRequest(http.MethodPost, "/v1/orders", createOrderRequest{
		DeviceID: 5,
		Status:   string(model.OrderStatusCompleted),
	})
	req = withUserID(req, 7)
	w := httptest.NewRecorder()

	h.CreateOrder(w, req)

	if w.Result().StatusCode != http.StatusCreated {
		t.Fatalf("status = %d, want %d", w.Result().StatusCode, http.StatusCreated)
	}
	if created.CompletedAt == nil {
		t.Error("expected completed_at to be set for an order created as Completed")
	}
}

func TestOrderHandler_UpdateOrder_StatusChange_RecordsHistoryAndCompletedAt(t *testing.T) {
	existing := &model.Order{
		ID:       3,
		DeviceID: 5,
		Cost:     10000,
		Discount: 0,
		Status:   model.OrderStatusRepairing,
	}
	var gotStatusChanged bool
	var updated *model.Order
	repo := &mockOrderRepo{
		findByIDFn: func(ctx context.Context, id int64) (*model.Order, error) {
			return existing, nil
		},
		updateFn: func(ctx context.Context, order *model.Order, statusChanged bool, changedBy int64) error {
			gotStatusChanged = statusChanged
			updated = order
			return nil
		},
	}
	h := NewOrderHandler(repo, existingDevice(5), newTestSanitizer())

	req := jsonRequest(http.MethodPut, "/v1/orders/3", updateOrderRequest{
		Status: string(model.OrderStatusCompleted),
	})
	req = withUserID(req, 7)
	req = withChiURLParam(req, "id", "3")
	w := httptest.NewRecorder()

	h.UpdateOrder(w, req)

	if w.Result().StatusCode != http.StatusOK {
		t.Fatalf("status = %d, want %d", w.Result().StatusCode, http.StatusOK)
	}
	if !gotStatusChanged {
		t.Error("expected statusChanged = true for a status transition")
	}
	if updated.Status != model.OrderStatusCompleted {
		t.Errorf("status = %q, want %q", updated.Status, model.OrderStatusCompleted)
	}
	if updated.CompletedAt == nil {
		t.Error("expected completed_at to be set on transition to Completed")
	}
}

func TestOrderHandler_UpdateOrder_SameStatus_DoesNotRecordHistory(t *testing.T) {
	existing := &model.Order{
		ID:       3,
		DeviceID: 5,
		Status:   model.OrderStatusRepairing,
	}
	gotStatusChanged := true
	repo := &mockOrderRepo{
		findByIDFn: func(ctx context.Context, id int64) (*model.Order, error) {
			return existing, nil
		},
		updateFn: func(ctx context.Context, order *model.Order, statusChanged bool, changedBy int64) error {
			gotStatusChanged = statusChanged
			return nil
		},
	}
	h := NewOrderHandler(repo, existingDevice(5), newTestSanitizer())

	req := jsonRequest(http.MethodPut, "/v1/orders/3", updateOrderRequest{
		Status: string(model.OrderStatusRepairing),
	})
	req = withUserID(req, 7)
	req = withChiURLParam(req, "id", "3")
	w := httptest.NewRecorder()

	h.UpdateOrder(w, req)

	if w.Result().StatusCode != http.StatusOK {
		t.Fatalf("status = %d, want %d", w.Result().StatusCode, http.StatusOK)
	}
	if gotStatusChanged {
		t.Error("expected statusChanged = false when status is unchanged")
	}
}

func TestOrderHandler_UpdateOrder_DiscountOnly_RecomputesTotalCost(t *testing.T) {
	existing := &model.Order{
		ID:        3,
		DeviceID:  5,
		Cost:      10000,
		Discount:  0,
		TotalCost: 10000,
		Status:    model.OrderStatusPending,
	}
	var updated *model.Order
	repo := &mockOrderRepo{
		findByIDFn: func(ctx context.Context, id int64) (*model.Order, error) {
			return existing, nil
		},
		updateFn: func(ctx context.Context, order *model.Order, statusChanged bool, changedBy int64) error {
			updated = order
			return nil
		},
	}
	h := NewOrderHandler(repo, existingDevice(5), newTestSanitizer())

	discount := 1500.0
	req := jsonRequest(http.MethodPut, "/v1/orders/3", updateOrderRequest{
		Discount: &discount,
	})
	req = withUserID(req, 7)
	req = withChiURLParam(req, "id", "3")
	w := httptest.NewRecorder()

	h.UpdateOrder(w, req)

	if w.Result().StatusCode != http.StatusOK {
		t.Fatalf("status = %d, want %d", w.Result().StatusCode, http.StatusOK)
	}
	if updated.TotalCost != 8500 {
		t.Errorf("total_cost = %v, want 8500", updated.TotalCost)
	}
}

func TestOrderHandler_ListOrders_InvalidStatusFilter_ReturnsBadRequest(t *testing.T) {
	h := NewOrderHandler(&mockOrderRepo{}, &mockDeviceRepo{}, newTestSanitizer())

	req := httptest.NewRequest(http.MethodGet, "/v1/orders?status=Bogus", nil)
	w := httptest.NewRecorder()

	h.ListOrders(w, req)

	if w.Result().StatusCode != http.StatusBadRequest {
		t.Errorf("status = %d, want %d", w.Result().StatusCode, http.StatusBadRequest)
	}
}

func TestOrderHandler_ListOrders_PassesFilterToRepository(t *testing.T) {
	var gotFilter repository.OrderFilter
	repo := &mockOrderRepo{
		listFn: func(ctx context.Context, filter repository.OrderFilter, limit, offset int) ([]*model.Order, error) {
			gotFilter = filter
			return []*model.Order{}, nil
		},
	}
	h := NewOrderHandler(repo, &mockDeviceRepo{}, newTestSanitizer())

	req := httptest.NewRequest(http.MethodGet, "/v1/orders?status=Pending&customer_id=2&device_id=9", nil)
	w := httptest.NewRecorder()

	h.ListOrders(w, req)

	if w.Result().StatusCode != http.StatusOK {
		t.Fatalf("status = %d, want %d", w.Result().StatusCode, http.StatusOK)
	}
	if gotFilter.Status != model.OrderStatusPending {
		t.Errorf("filter.Status = %q, want %q", gotFilter.Status, model.OrderStatusPending)
	}
	if gotFilter.CustomerID != 2 {
		t.Errorf("filter.CustomerID = %d, want 2", gotFilter.CustomerID)
	}
	if gotFilter.DeviceID != 9 {
		t.Errorf("filter.DeviceID = %d, want 9", gotFilter.DeviceID)
	}
}

func TestOrderHandler_ListHistory_ReturnsEntriesInOrder(t *testing.T) {
	now := time.Now()
	repo := &mockOrderRepo{
		findByIDFn: func(ctx context.Context, id int64) (*model.Order, error) {
			return &model.Order{ID: id, DeviceID: 5, Status: model.OrderStatusRepairing}, nil
		},
		listStatusHistoryFn: func(ctx context.Context, orderID int64) ([]*model.OrderStatusHistory, error) {
			return []*model.OrderStatusHistory{
				{ID: 1, OrderID: orderID, Status: model.OrderStatusPending, ChangedBy: 7, CreatedAt: now},
				{ID: 2, OrderID: orderID, Status: model.OrderStatusRepairing, ChangedBy: 7, CreatedAt: now},
			}, nil
		},
	}
	h := NewOrderHandler(repo, &mockDeviceRepo{}, newTestSanitizer())

	req := httptest.NewRequest(http.MethodGet, "/v1/orders/3/history", nil)
	req = withChiURLParam(req, "id", "3")
	w := httptest.NewRecorder()

	h.ListHistory(w, req)

	resp := w.Result()
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("status = %d, want %d", resp.StatusCode, http.StatusOK)
	}

	var body []statusHistoryResponse
	if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
		t.Fatalf("failed to decode body: %v", err)
	}
	if len(body) != 2 {
		t.Fatalf("len(history) = %d, want 2", len(body))
	}
	if body[0].Status != string(model.OrderStatusPending) {
		t.Errorf("history[0].status = %q, want %q", body[0].Status, model.OrderStatusPending)
	}
	if body[1].Status != string(model.OrderStatusRepairing) {
		t.Errorf("history[1].status = %q, want %q", body[1].Status, model.OrderStatusRepairing)
	}
}

func TestOrderHandler_DeleteOrder_UnknownID_ReturnsNotFound(t *testing.T) {
	h := NewOrderHandler(&mockOrderRepo{}, &mockDeviceRepo{}, newTestSanitizer())

	req := httptest.NewRequest(http.MethodDelete, "/v1/orders/99", nil)
	req = withChiURLParam(req, "id", "99")
	w := httptest.NewRecorder()

	h.DeleteOrder(w, req)

	if w.Result().StatusCode != http.StatusNotFound {
		t.Errorf("status = %d, want %d", w.Result().StatusCode, http.StatusNotFound)
	}
}
