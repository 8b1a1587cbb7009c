package handler

import (
	"encoding/json"
	"net/http"

	"github.com/hitoshi/fixman/internal/model"
	"github.com/hitoshi/fixman/internal/repository"
	"github.com/hitoshi/fixman/internal/security"
)

// DeviceHandler は機器カタログと機器個体のHTTPハンドラー。
type DeviceHandler struct {
	catalog   repository.CatalogRepository
	devices   repository.DeviceRepository
	users     repository.UserRepository
	sanitizer security.NoteSanitizerService
}

// NewDeviceHandler はDeviceHandlerを生成する。
func NewDeviceHandler(catalog repository.CatalogRepository, devices repository.DeviceRepository, users repository.UserRepository, sanitizer security.NoteSanitizerService) *DeviceHandler {
	return &DeviceHandler{
		catalog:   catalog,
		devices:   devices,
		users:     users,
		sanitizer: sanitizer,
	}
}

// createDeviceTypeRequest は機器種別作成リクエストのボディ。
type createDeviceTypeRequest struct {
	Name        string `json:"name"`
	Description string `json:"description"`
}

// createBrandRequest はメーカー作成リクエストのボディ。
type createBrandRequest struct {
	Name string `json:"name"`
}

// createModelRequest は機種作成リクエストのボディ。
type createModelRequest struct {
	BrandID      int64  `json:"brand_id"`
	Name         string `json:"name"`
	DeviceTypeID int64  `json:"device_type_id"`
}

// deviceRequest は機器の作成・更新リクエストのボディ。
type deviceRequest struct {
	BrandID      int64  `json:"brand_id"`
	ModelID      int64  `json:"model_id"`
	DeviceTypeID int64  `json:"device_type_id"`
	SerialNumber string `json:"serial_number"`
	OwnerID      int64  `json:"owner_id"`
	Notes        string `json:"notes"`
}

// deviceTypeResponse は機器種別のAPIレスポンス。
type deviceTypeResponse struct {
	ID          int64  `json:"id"`
	Name        string `json:"name"`
	Description string `json:"description,omitempty"`
}

// brandResponse はメーカーのAPIレスポンス。
type brandResponse struct {
	ID   int64  `json:"id"`
	Name string `json:"name"`
}

// modelResponse は機種のAPIレスポンス。
type modelResponse struct {
	ID           int64  `json:"id"`
	BrandID      int64  `json:"brand_id"`
	Name         string `json:"name"`
	DeviceTypeID int64  `json:"device_type_id"`
}

// deviceResponse は機器のAPIレスポンス。
type deviceResponse struct {
	ID           int64  `json:"id"`
	BrandID      int64  `json:"brand_id"`
	ModelID      int64  `json:"model_id"`
	DeviceTypeID int64  `json:"device_type_id"`
	SerialNumber string `json:"serial_number,omitempty"`
	OwnerID      int64  `json:"owner_id,omitempty"`
	Notes        string `json:"notes,omitempty"`
}

// ListDeviceTypes は機器種別一覧を取得する。
// GET /v1/device-types
func (h *DeviceHandler) ListDeviceTypes(w http.ResponseWriter, r *http.Request) {
	types, err := h.catalog.ListDeviceTypes(r.Context())
	if err != nil {
		handleServiceError(w, err)
		return
	}

	resp := make([]deviceTypeResponse, 0, len(types))
	for _, dt := range types {
		resp = append(resp, deviceTypeResponse{ID: dt.ID, Name: dt.Name, Description: dt.Description})
	}
	writeJSONResponse(w, http.StatusOK, resp)
}

// CreateDeviceType は機器種別を作成する。
// POST /v1/device-types
func (h *DeviceHandler) CreateDeviceType(w http.ResponseWriter, r *http.Request) {
	var req createDeviceTypeRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeAPIErrorResponse(w, http.StatusBadRequest,
			model.NewInvalidRequestError("リクエストボディの解析に失敗しました"))
		return
	}
	if req.Name == "" {
		writeAPIErrorResponse(w, http.StatusBadRequest,
			model.NewInvalidRequestError("nameは必須です"))
		return
	}

	dt := &model.DeviceType{
		Name:        req.Name,
		Description: h.sanitizer.Sanitize(req.Description),
	}
	if err := h.catalog.CreateDeviceType(r.Context(), dt); err != nil {
		if repository.IsUniqueViolation(err) {
			writeAPIErrorResponse(w, http.StatusConflict,
				model.NewDuplicateCatalogEntryError("機器種別", req.Name))
			return
		}
		handleServiceError(w, err)
		return
	}

	writeJSONResponse(w, http.StatusCreated, deviceTypeResponse{ID: dt.ID, Name: dt.Name, Description: dt.Description})
}

// ListBrands はメーカー一覧を取得する。
// GET /v1/brands
func (h *DeviceHandler) ListBrands(w http.ResponseWriter, r *http.Request) {
	brands, err := h.catalog.ListBrands(r.Context())
	if err != nil {
		handleServiceError(w, err)
		return
	}

	resp := make([]brandResponse, 0, len(brands))
	for _, b := range brands {
		resp = append(resp, brandResponse{ID: b.ID, Name: b.Name})
	}
	writeJSONResponse(w, http.StatusOK, resp)
}

// CreateBrand はメーカーを作成する。
// POST /v1/brands
func (h *DeviceHandler) CreateBrand(w http.ResponseWriter, r *http.Request) {
	var req createBrandRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeAPIErrorResponse(w, http.StatusBadRequest,
			model.NewInvalidRequestError("リクエストボディの解析に失敗しました"))
		return
	}
	if req.Name == "" {
		writeAPIErrorResponse(w, http.StatusBadRequest,
			model.NewInvalidRequestError("nameは必須です"))
		return
	}

	b := &model.Brand{Name: req.Name}
	if err := h.catalog.CreateBrand(r.Context(), b); err != nil {
		if repository.IsUniqueViolation(err) {
			writeAPIErrorResponse(w, http.StatusConflict,
				model.NewDuplicateCatalogEntryError("メーカー", req.Name))
			return
		}
		handleServiceError(w, err)
		return
	}

	writeJSONResponse(w, http.StatusCreated, brandResponse{ID: b.ID, Name: b.Name})
}

// ListModels は機種一覧を取得する。
// GET /v1/models
func (h *DeviceHandler) ListModels(w http.ResponseWriter, r *http.Request) {
	models, err := h.catalog.ListModels(r.Context())
	if err != nil {
		handleServiceError(w, err)
		return
	}

	resp := make([]modelResponse, 0, len(models))
	for _, m := range models {
		resp = append(resp, modelResponse{ID: m.ID, BrandID: m.BrandID, Name: m.Name, DeviceTypeID: m.DeviceTypeID})
	}
	writeJSONResponse(w, http.StatusOK, resp)
}

// CreateModel は機種を作成する。
// POST /v1/models
func (h *DeviceHandler) CreateModel(w http.ResponseWriter, r *http.Request) {
	var req createModelRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeAPIErrorResponse(w, http.StatusBadRequest,
			model.NewInvalidRequestError("リクエストボディの解析に失敗しました"))
		return
	}
	if req.Name == "" || req.BrandID <= 0 || req.DeviceTypeID <= 0 {
		writeAPIErrorResponse(w, http.StatusBadRequest,
			model.NewInvalidRequestError("name、brand_id、device_type_idは必須です"))
		return
	}

	m := &model.DeviceModel{
		BrandID:      req.BrandID,
		Name:         req.Name,
		DeviceTypeID: req.DeviceTypeID,
	}
	if err := h.catalog.CreateModel(r.Context(), m); err != nil {
		if repository.IsUniqueViolation(err) {
			writeAPIErrorResponse(w, http.StatusConflict,
				model.NewDuplicateCatalogEntryError("機種", req.Name))
			return
		}
		handleServiceError(w, err)
		return
	}

	writeJSONResponse(w, http.StatusCreated, modelResponse{ID: m.ID, BrandID: m.BrandID, Name: m.Name, DeviceTypeID: m.DeviceTypeID})
}

// ListDevices は機器一覧を取得する。
// GET /v1/devices
func (h *DeviceHandler) ListDevices(w http.ResponseWriter, r *http.Request) {
	limit, offset := parsePaging(r)

	devices, err := h.devices.List(r.Context(), limit, offset)
	if err != nil {
		handleServiceError(w, err)
		return
	}

	resp := make([]deviceResponse, 0, len(devices))
	for _, d := range devices {
		resp = append(resp, toDeviceResponse(d))
	}
	writeJSONResponse(w, http.StatusOK, resp)
}

// GetDevice は機器詳細を取得する。
// GET /v1/devices/{id}
func (h *DeviceHandler) GetDevice(w http.ResponseWriter, r *http.Request) {
	id, ok := parseIDParam(w, r)
	if !ok {
		return
	}

	device, err := h.devices.FindByID(r.Context(), id)
	if err != nil {
		handleServiceError(w, err)
		return
	}
	if device == nil {
		writeAPIErrorResponse(w, http.StatusNotFound, model.NewDeviceNotFoundError(id))
		return
	}

	writeJSONResponse(w, http.StatusOK, toDeviceResponse(device))
}

// CreateDevice は機器を登録する。
// POST /v1/devices
func (h *DeviceHandler) CreateDevice(w http.ResponseWriter, r *http.Request) {
	var req deviceRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeAPIErrorResponse(w, http.StatusBadRequest,
			model.NewInvalidRequestError("リクエストボディの解析に失敗しました"))
		return
	}
	if req.BrandID <= 0 || req.ModelID <= 0 || req.DeviceTypeID <= 0 {
		writeAPIErrorResponse(w, http.StatusBadRequest,
			model.NewInvalidRequestError("brand_id、model_id、device_type_idは必須です"))
		return
	}

	if req.OwnerID != 0 {
		owner, err := h.users.FindByID(r.Context(), req.OwnerID)
		if err != nil {
			handleServiceError(w, err)
			return
		}
		if owner == nil {
			writeAPIErrorResponse(w, http.StatusNotFound, model.NewUserNotFoundError(req.OwnerID))
			return
		}
	}

	device := &model.Device{
		BrandID:      req.BrandID,
		ModelID:      req.ModelID,
		DeviceTypeID: req.DeviceTypeID,
		SerialNumber: req.SerialNumber,
		OwnerID:      req.OwnerID,
		Notes:        h.sanitizer.Sanitize(req.Notes),
	}

	if err := h.devices.Create(r.Context(), device); err != nil {
		// serial_numberの一意制約
		if repository.IsUniqueViolation(err) {
			writeAPIErrorResponse(w, http.StatusConflict,
				model.NewSerialNumberTakenError(req.SerialNumber))
			return
		}
		handleServiceError(w, err)
		return
	}

	writeJSONResponse(w, http.StatusCreated, toDeviceResponse(device))
}

// UpdateDevice は機器情報を更新する。
// PUT /v1/devices/{id}
func (h *DeviceHandler) UpdateDevice(w http.ResponseWriter, r *http.Request) {
	id, ok := parseIDParam(w, r)
	if !ok {
		return
	}

	var req deviceRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeAPIErrorResponse(w, http.StatusBadRequest,
			model.NewInvalidRequestError("リクエストボディの解析に失敗しました"))
		return
	}

	device, err := h.devices.FindByID(r.Context(), id)
	if err != nil {
		handleServiceError(w, err)
		return
	}
	if device == nil {
		writeAPIErrorResponse(w, http.StatusNotFound, model.NewDeviceNotFoundError(id))
		return
	}

	if req.BrandID > 0 {
		device.BrandID = req.BrandID
	}
	if req.ModelID > 0 {
		device.ModelID = req.ModelID
	}
	if req.DeviceTypeID > 0 {
		device.DeviceTypeID = req.DeviceTypeID
	}
	if req.SerialNumber != "" {
		device.SerialNumber = req.SerialNumber
	}
	if req.OwnerID != 0 {
		device.OwnerID = req.OwnerID
	}
	if req.Notes != "" {
		device.Notes = h.sanitizer.Sanitize(req.Notes)
	}

	if err := h.devices.Update(r.Context(), device); err != nil {
		if repository.IsUniqueViolation(err) {
			writeAPIErrorResponse(w, http.StatusConflict,
				model.NewSerialNumberTakenError(req.SerialNumber))
			return
		}
		handleServiceError(w, err)
		return
	}

	writeJSONResponse(w, http.StatusOK, toDeviceResponse(device))
}

// DeleteDevice は機器を削除する。
// DELETE /v1/devices/{id}
func (h *DeviceHandler) DeleteDevice(w http.ResponseWriter, r *http.Request) {
	id, ok := parseIDParam(w, r)
	if !ok {
		return
	}

	device, err := h.devices.FindByID(r.Context(), id)
	if err != nil {
		handleServiceError(w, err)
		return
	}
	if device == nil {
		writeAPIErrorResponse(w, http.StatusNotFound, model.NewDeviceNotFoundError(id))
		return
	}

	if err := h.devices.DeleteByID(r.Context(), id); err != nil {
		handleServiceError(w, err)
		return
	}

	w.WriteHeader(http.StatusNoContent)
}

// --- ヘルパー関数 ---

// toDeviceResponse はmodel.DeviceからAPIレスポンスに変換する。
func toDeviceResponse(d *model.Device) deviceResponse {
	return deviceResponse{
		ID:           d.ID,
		BrandID:      d.BrandID,
		ModelID:      d.ModelID,
		DeviceTypeID: d.DeviceTypeID,
		SerialNumber: d.SerialNumber,
		OwnerID:      d.OwnerID,
		Notes:        d.Notes,
	}
}
