// Package handler はHTTP APIのハンドラーを提供する。
package handler

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"

	"github.com/hitoshi/fixman/internal/auth"
	"github.com/hitoshi/fixman/internal/metrics"
	"github.com/hitoshi/fixman/internal/model"
)

// AuthServiceInterface は認証ハンドラーが必要とするサービスインターフェース。
type AuthServiceInterface interface {
	// Register は新規ユーザーを作成する。
	Register(ctx context.Context, input auth.RegisterInput) (*model.User, error)
	// Login は電話番号とパスワードで認証し、トークンの組を発行する。
	Login(ctx context.Context, phone, password string) (*auth.TokenPair, *model.User, error)
	// Refresh はリフレッシュトークンから新しいアクセストークンを発行する。
	Refresh(ctx context.Context, refreshToken string) (string, error)
	// Logout はリフレッシュトークンを失効させる。
	Logout(ctx context.Context, refreshToken string) error
}

// AuthHandler は認証のHTTPハンドラー。
type AuthHandler struct {
	service   AuthServiceInterface
	collector metrics.MetricsCollector
}

// NewAuthHandler はAuthHandlerを生成する。collectorはnil可。
func NewAuthHandler(service AuthServiceInterface, collector metrics.MetricsCollector) *AuthHandler {
	return &AuthHandler{
		service:   service,
		collector: collector,
	}
}

// registerRequest はユーザー登録リクエストのボディ。
type registerRequest struct {
	FullName       string `json:"full_name"`
	Phone          string `json:"phone"`
	Email          string `json:"email"`
	Password       string `json:"password"`
	ProfilePicture string `json:"profile_picture"`
}

// loginRequest はログインリクエストのボディ。
type loginRequest struct {
	Phone    string `json:"phone"`
	Password string `json:"password"`
}

// refreshRequest はトークン再発行・ログアウトリクエストのボディ。
type refreshRequest struct {
	RefreshToken string `json:"refresh_token"`
}

// tokenResponse はログイン成功時に発行されるトークンの組。
type tokenResponse struct {
	AccessToken  string `json:"access_token"`
	RefreshToken string `json:"refresh_token"`
	TokenType    string `json:"token_type"`
}

// loginResponse はログイン成功時のレスポンス。認証されたユーザーの
// 公開プロフィールとトークンの組を返す。
type loginResponse struct {
	User   userResponse  `json:"user"`
	Tokens tokenResponse `json:"tokens"`
}

// accessTokenResponse はトークン再発行成功時のレスポンス。
type accessTokenResponse struct {
	AccessToken string `json:"access_token"`
	TokenType   string `json:"token_type"`
}

// userResponse はユーザー情報のAPIレスポンス。パスワードハッシュは含めない。
type userResponse struct {
	ID             int64  `json:"id"`
	FullName       string `json:"full_name"`
	Phone          string `json:"phone"`
	Email          string `json:"email,omitempty"`
	ProfilePicture string `json:"profile_picture,omitempty"`
	IsActive       bool   `json:"is_active"`
	IsStaff        bool   `json:"is_staff"`
}

// Register はユーザー登録を処理する。
// POST /v1/auth/register
func (h *AuthHandler) Register(w http.ResponseWriter, r *http.Request) {
	var req registerRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeAPIErrorResponse(w, http.StatusBadRequest,
			model.NewInvalidRequestError("リクエストボディの解析に失敗しました"))
		return
	}

	user, err := h.service.Register(r.Context(), auth.RegisterInput{
		FullName:       req.FullName,
		Phone:          req.Phone,
		Email:          req.Email,
		Password:       req.Password,
		ProfilePicture: req.ProfilePicture,
	})
	if err != nil {
		handleServiceError(w, err)
		return
	}

	writeJSONResponse(w, http.StatusCreated, toUserResponse(user))
}

// Login はログインを処理する。
// POST /v1/auth/login
func (h *AuthHandler) Login(w http.ResponseWriter, r *http.Request) {
	var req loginRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeAPIErrorResponse(w, http.StatusBadRequest,
			model.NewInvalidRequestError("リクエストボディの解析に失敗しました"))
		return
	}

	pair, user, err := h.service.Login(r.Context(), req.Phone, req.Password)
	if err != nil {
		if h.collector != nil {
			h.collector.RecordLogin(metrics.LoginResultFailure)
		}
		handleServiceError(w, err)
		return
	}

	if h.collector != nil {
		h.collector.RecordLogin(metrics.LoginResultSuccess)
		h.collector.RecordTokenIssued(auth.TokenTypeAccess)
		h.collector.RecordTokenIssued(auth.TokenTypeRefresh)
	}

	writeJSONResponse(w, http.StatusOK, loginResponse{
		User: toUserResponse(user),
		Tokens: tokenResponse{
			AccessToken:  pair.AccessToken,
			RefreshToken: pair.RefreshToken,
			TokenType:    "bearer",
		},
	})
}

// Refresh は新しいアクセストークンの発行を処理する。
// POST /v1/auth/refresh
func (h *AuthHandler) Refresh(w http.ResponseWriter, r *http.Request) {
	var req refreshRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeAPIErrorResponse(w, http.StatusBadRequest,
			model.NewInvalidRequestError("リクエストボディの解析に失敗しました"))
		return
	}

	access, err := h.service.Refresh(r.Context(), req.RefreshToken)
	if err != nil {
		handleServiceError(w, err)
		return
	}

	if h.collector != nil {
		h.collector.RecordTokenIssued(auth.TokenTypeAccess)
	}

	writeJSONResponse(w, http.StatusOK, accessTokenResponse{
		AccessToken: access,
		TokenType:   "bearer",
	})
}

// Logout はログアウトを処理する。トークンが既に失効していても成功する。
// POST /v1/auth/logout
func (h *AuthHandler) Logout(w http.ResponseWriter, r *http.Request) {
	var req refreshRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeAPIErrorResponse(w, http.StatusBadRequest,
			model.NewInvalidRequestError("リクエストボディの解析に失敗しました"))
		return
	}

	if err := h.service.Logout(r.Context(), req.RefreshToken); err != nil {
		handleServiceError(w, err)
		return
	}

	w.WriteHeader(http.StatusNoContent)
}

// --- ヘルパー関数 ---

// toUserResponse はmodel.UserからAPIレスポンスに変換する。
func toUserResponse(user *model.User) userResponse {
	return userResponse{
		ID:             user.ID,
		FullName:       user.FullName,
		Phone:          user.Phone,
		Email:          user.Email,
		ProfilePicture: user.ProfilePicture,
		IsActive:       user.IsActive,
		IsStaff:        user.IsStaff,
	}
}

// apiErrorResponse は統一エラーフォーマットのレスポンス。
type apiErrorResponse struct {
	Code     string `json:"code"`
	Message  string `json:"message"`
	Category string `json:"category"`
	Action   string `json:"action"`
}

// writeJSONResponse はJSONレスポンスを書き込む。
func writeJSONResponse(w http.ResponseWriter, statusCode int, body any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(statusCode)
	json.NewEncoder(w).Encode(body)
}

// writeAPIErrorResponse は統一エラーフォーマットでエラーレスポンスを書き込む。
func writeAPIErrorResponse(w http.ResponseWriter, statusCode int, apiErr *model.APIError) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(statusCode)
	json.NewEncoder(w).Encode(apiErrorResponse{
		Code:     apiErr.Code,
		Message:  apiErr.Message,
		Category: apiErr.Category,
		Action:   apiErr.Action,
	})
}

// handleServiceError はサービス層から返されたエラーを適切なHTTPステータスコードに変換する。
func handleServiceError(w http.ResponseWriter, err error) {
	var apiErr *model.APIError
	if errors.As(err, &apiErr) {
		statusCode := mapAPIErrorToHTTPStatus(apiErr)
		writeAPIErrorResponse(w, statusCode, apiErr)
		return
	}

	// APIError以外のエラーは内部サーバーエラーとして扱う
	slog.Error("internal server error", slog.String("error", err.Error()))
	writeAPIErrorResponse(w, http.StatusInternalServerError, &model.APIError{
		Code:     "INTERNAL_ERROR",
		Message:  "内部エラーが発生しました。",
		Category: "system",
		Action:   "しばらく待ってから再度お試しください。",
	})
}

// mapAPIErrorToHTTPStatus はAPIErrorコードからHTTPステータスコードにマッピングする。
func mapAPIErrorToHTTPStatus(apiErr *model.APIError) int {
	switch apiErr.Code {
	case model.ErrCodeInvalidCredentials,
		model.ErrCodeInvalidToken,
		model.ErrCodeTokenNotFoundOrExpired,
		model.ErrCodeUnauthorized:
		return http.StatusUnauthorized
	case model.ErrCodeAccountInactive,
		model.ErrCodeUserNotFoundOrInactive:
		return http.StatusForbidden
	case model.ErrCodeCredentialStoreCorrupted:
		return http.StatusInternalServerError
	case model.ErrCodePhoneTaken,
		model.ErrCodeEmptyPassword,
		model.ErrCodeInvalidRequest,
		model.ErrCodeInvalidOrderStatus,
		model.ErrCodeInvalidPaymentStatus:
		return http.StatusBadRequest
	case model.ErrCodeDuplicateRole,
		model.ErrCodeDuplicateRoleEnroll,
		model.ErrCodeDuplicateCatalogEntry,
		model.ErrCodeDuplicateAssign,
		model.ErrCodeSerialNumberTaken:
		return http.StatusConflict
	case model.ErrCodeUserNotFound,
		model.ErrCodeRoleNotFound,
		model.ErrCodeDeviceNotFound,
		model.ErrCodeOrderNotFound,
		model.ErrCodeAssignNotFound,
		model.ErrCodePaymentNotFound:
		return http.StatusNotFound
	default:
		return http.StatusInternalServerError
	}
}
