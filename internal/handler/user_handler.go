package handler

import (
	"encoding/json"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"

	"github.com/hitoshi/fixman/internal/model"
	"github.com/hitoshi/fixman/internal/repository"
	"github.com/hitoshi/fixman/internal/security"
)

// UserHandler はユーザー・役割管理のHTTPハンドラー。
type UserHandler struct {
	users     repository.UserRepository
	roles     repository.RoleRepository
	tokens    repository.RefreshTokenRepository
	sanitizer security.NoteSanitizerService
}

// NewUserHandler はUserHandlerを生成する。
func NewUserHandler(users repository.UserRepository, roles repository.RoleRepository, tokens repository.RefreshTokenRepository, sanitizer security.NoteSanitizerService) *UserHandler {
	return &UserHandler{
		users:     users,
		roles:     roles,
		tokens:    tokens,
		sanitizer: sanitizer,
	}
}

// updateUserRequest はユーザー更新リクエストのボディ。
// パスワードはこのエンドポイントでは変更できない。
type updateUserRequest struct {
	FullName       string `json:"full_name"`
	Email          string `json:"email"`
	ProfilePicture string `json:"profile_picture"`
	IsActive       *bool  `json:"is_active"`
	IsStaff        *bool  `json:"is_staff"`
}

// createRoleRequest は役割作成リクエストのボディ。
type createRoleRequest struct {
	Name        string `json:"name"`
	Description string `json:"description"`
}

// enrollRoleRequest は役割付与リクエストのボディ。
type enrollRoleRequest struct {
	UserID int64 `json:"user_id"`
	RoleID int64 `json:"role_id"`
}

// roleResponse は役割情報のAPIレスポンス。
type roleResponse struct {
	ID          int64  `json:"id"`
	Name        string `json:"name"`
	Description string `json:"description,omitempty"`
}

// roleEnrollResponse は役割付与のAPIレスポンス。
type roleEnrollResponse struct {
	ID     int64 `json:"id"`
	UserID int64 `json:"user_id"`
	RoleID int64 `json:"role_id"`
}

// ListUsers はユーザー一覧を取得する。
// GET /v1/users
func (h *UserHandler) ListUsers(w http.ResponseWriter, r *http.Request) {
	limit, offset := parsePaging(r)

	users, err := h.users.List(r.Context(), limit, offset)
	if err != nil {
		handleServiceError(w, err)
		return
	}

	resp := make([]userResponse, 0, len(users))
	for _, u := range users {
		resp = append(resp, toUserResponse(u))
	}
	writeJSONResponse(w, http.StatusOK, resp)
}

// GetUser はユーザー詳細を取得する。
// GET /v1/users/{id}
func (h *UserHandler) GetUser(w http.ResponseWriter, r *http.Request) {
	id, ok := parseIDParam(w, r)
	if !ok {
		return
	}

	user, err := h.users.FindByID(r.Context(), id)
	if err != nil {
		handleServiceError(w, err)
		return
	}
	if user == nil {
		writeAPIErrorResponse(w, http.StatusNotFound, model.NewUserNotFoundError(id))
		return
	}

	writeJSONResponse(w, http.StatusOK, toUserResponse(user))
}

// UpdateUser はユーザーのプロフィール項目を更新する。
// PUT /v1/users/{id}
func (h *UserHandler) UpdateUser(w http.ResponseWriter, r *http.Request) {
	id, ok := parseIDParam(w, r)
	if !ok {
		return
	}

	var req updateUserRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeAPIErrorResponse(w, http.StatusBadRequest,
			model.NewInvalidRequestError("リクエストボディの解析に失敗しました"))
		return
	}

	user, err := h.users.FindByID(r.Context(), id)
	if err != nil {
		handleServiceError(w, err)
		return
	}
	if user == nil {
		writeAPIErrorResponse(w, http.StatusNotFound, model.NewUserNotFoundError(id))
		return
	}

	if req.FullName != "" {
		user.FullName = req.FullName
	}
	if req.Email != "" {
		user.Email = req.Email
	}
	if req.ProfilePicture != "" {
		user.ProfilePicture = req.ProfilePicture
	}
	if req.IsActive != nil {
		user.IsActive = *req.IsActive
	}
	if req.IsStaff != nil {
		user.IsStaff = *req.IsStaff
	}

	if err := h.users.Update(r.Context(), user); err != nil {
		handleServiceError(w, err)
		return
	}

	writeJSONResponse(w, http.StatusOK, toUserResponse(user))
}

// DeleteUser はユーザーを削除する。
// 削除前に当該ユーザーのリフレッシュトークンを明示的に失効させる。
// 役割付与はストレージ側でCASCADE削除される。
// DELETE /v1/users/{id}
func (h *UserHandler) DeleteUser(w http.ResponseWriter, r *http.Request) {
	id, ok := parseIDParam(w, r)
	if !ok {
		return
	}

	user, err := h.users.FindByID(r.Context(), id)
	if err != nil {
		handleServiceError(w, err)
		return
	}
	if user == nil {
		writeAPIErrorResponse(w, http.StatusNotFound, model.NewUserNotFoundError(id))
		return
	}

	if err := h.tokens.DeleteByUserID(r.Context(), id); err != nil {
		handleServiceError(w, err)
		return
	}

	if err := h.users.DeleteByID(r.Context(), id); err != nil {
		handleServiceError(w, err)
		return
	}

	w.WriteHeader(http.StatusNoContent)
}

// ListRoles は役割一覧を取得する。
// GET /v1/roles
func (h *UserHandler) ListRoles(w http.ResponseWriter, r *http.Request) {
	roles, err := h.roles.ListRoles(r.Context())
	if err != nil {
		handleServiceError(w, err)
		return
	}

	resp := make([]roleResponse, 0, len(roles))
	for _, role := range roles {
		resp = append(resp, roleResponse{
			ID:          role.ID,
			Name:        role.Name,
			Description: role.Description,
		})
	}
	writeJSONResponse(w, http.StatusOK, resp)
}

// CreateRole は役割を作成する。
// POST /v1/roles
func (h *UserHandler) CreateRole(w http.ResponseWriter, r *http.Request) {
	var req createRoleRequest
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

	role := &model.Role{
		Name:        req.Name,
		Description: h.sanitizer.Sanitize(req.Description),
	}

	if err := h.roles.CreateRole(r.Context(), role); err != nil {
		if repository.IsUniqueViolation(err) {
			writeAPIErrorResponse(w, http.StatusConflict, model.NewDuplicateRoleError(req.Name))
			return
		}
		handleServiceError(w, err)
		return
	}

	writeJSONResponse(w, http.StatusCreated, roleResponse{
		ID:          role.ID,
		Name:        role.Name,
		Description: role.Description,
	})
}

// EnrollRole はユーザーに役割を付与する。
// POST /v1/roles/enroll
func (h *UserHandler) EnrollRole(w http.ResponseWriter, r *http.Request) {
	var req enrollRoleRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeAPIErrorResponse(w, http.StatusBadRequest,
			model.NewInvalidRequestError("リクエストボディの解析に失敗しました"))
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

	existing, err := h.roles.FindEnroll(r.Context(), req.UserID, req.RoleID)
	if err != nil {
		handleServiceError(w, err)
		return
	}
	if existing != nil {
		writeAPIErrorResponse(w, http.StatusConflict, model.NewDuplicateRoleEnrollError())
		return
	}

	enroll := &model.RoleEnroll{
		UserID: req.UserID,
		RoleID: req.RoleID,
	}

	if err := h.roles.CreateEnroll(r.Context(), enroll); err != nil {
		// 事前チェックをすり抜けた同時付与はストレージ側の一意制約で検出される
		if repository.IsUniqueViolation(err) {
			writeAPIErrorResponse(w, http.StatusConflict, model.NewDuplicateRoleEnrollError())
			return
		}
		handleServiceError(w, err)
		return
	}

	writeJSONResponse(w, http.StatusCreated, roleEnrollResponse{
		ID:     enroll.ID,
		UserID: enroll.UserID,
		RoleID: enroll.RoleID,
	})
}

// --- ヘルパー関数 ---

// defaultPageLimit は一覧取得のデフォルト件数。
const defaultPageLimit = 50

// maxPageLimit は一覧取得の最大件数。
const maxPageLimit = 200

// parsePaging はクエリパラメータからlimit/offsetを取り出す。
// 不正値・未指定にはデフォルトを適用する。
func parsePaging(r *http.Request) (limit, offset int) {
	limit = defaultPageLimit
	if v := r.URL.Query().Get("limit"); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n > 0 {
			limit = n
		}
	}
	if limit > maxPageLimit {
		limit = maxPageLimit
	}

	if v := r.URL.Query().Get("offset"); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n >= 0 {
			offset = n
		}
	}
	return limit, offset
}

// parseIDParam はURLパスの{id}を数値IDとして取り出す。
// 不正な場合は400を書き込みfalseを返す。
func parseIDParam(w http.ResponseWriter, r *http.Request) (int64, bool) {
	id, err := strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
	if err != nil || id <= 0 {
		writeAPIErrorResponse(w, http.StatusBadRequest,
			model.NewInvalidRequestError("IDは正の整数で指定してください"))
		return 0, false
	}
	return id, true
}
