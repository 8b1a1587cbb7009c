package model

import "fmt"

// APIError は統一エラーフォーマットを表す。
// UIに表示する原因カテゴリと対処方法を含む。
type APIError struct {
	Code     string // エラーコード
	Message  string // エラーメッセージ
	Category string // カテゴリ: auth, validation, resource, system
	Action   string // ユーザー向け対処方法
}

// Error はerrorインターフェースを実装する。
func (e *APIError) Error() string {
	return fmt.Sprintf("[%s] %s", e.Code, e.Message)
}

// 定義済みエラーコード
const (
	ErrCodeInvalidCredentials        = "INVALID_CREDENTIALS"
	ErrCodeAccountInactive           = "ACCOUNT_INACTIVE"
	ErrCodeCredentialStoreCorrupted  = "CREDENTIAL_STORE_CORRUPTED"
	ErrCodeInvalidToken              = "INVALID_TOKEN"
	ErrCodeTokenNotFoundOrExpired    = "TOKEN_NOT_FOUND_OR_EXPIRED"
	ErrCodeUserNotFoundOrInactive    = "USER_NOT_FOUND_OR_INACTIVE"
	ErrCodeUnauthorized              = "UNAUTHORIZED"
	ErrCodePhoneTaken                = "PHONE_TAKEN"
	ErrCodeEmptyPassword             = "EMPTY_PASSWORD"
	ErrCodeInvalidRequest            = "INVALID_REQUEST"
	ErrCodeUserNotFound              = "USER_NOT_FOUND"
	ErrCodeRoleNotFound              = "ROLE_NOT_FOUND"
	ErrCodeDuplicateRole             = "DUPLICATE_ROLE"
	ErrCodeDuplicateRoleEnroll       = "DUPLICATE_ROLE_ENROLL"
	ErrCodeDeviceNotFound            = "DEVICE_NOT_FOUND"
	ErrCodeDuplicateCatalogEntry     = "DUPLICATE_CATALOG_ENTRY"
	ErrCodeSerialNumberTaken         = "SERIAL_NUMBER_TAKEN"
	ErrCodeOrderNotFound             = "ORDER_NOT_FOUND"
	ErrCodeInvalidOrderStatus        = "INVALID_ORDER_STATUS"
	ErrCodeDuplicateAssign           = "DUPLICATE_ASSIGN"
	ErrCodeAssignNotFound            = "ASSIGN_NOT_FOUND"
	ErrCodePaymentNotFound           = "PAYMENT_NOT_FOUND"
	ErrCodeInvalidPaymentStatus      = "INVALID_PAYMENT_STATUS"
)

// NewInvalidCredentialsError は認証失敗エラーを生成する。
// 電話番号が未登録の場合とパスワード不一致の場合を区別しない
// （アカウント列挙攻撃の防止）。
func NewInvalidCredentialsError() *APIError {
	return &APIError{
		Code:     ErrCodeInvalidCredentials,
		Message:  "電話番号またはパスワードが正しくありません。",
		Category: "auth",
		Action:   "入力内容を確認して再度ログインしてください。",
	}
}

// NewAccountInactiveError は無効化済みアカウントのログイン試行エラーを生成する。
func NewAccountInactiveError() *APIError {
	return &APIError{
		Code:     ErrCodeAccountInactive,
		Message:  "このアカウントは無効化されています。",
		Category: "auth",
		Action:   "店舗の管理者にお問い合わせください。",
	}
}

// NewCredentialStoreCorruptedError は保存済みパスワードハッシュの破損エラーを生成する。
// ユーザー起因のエラーではなくサーバー側のデータ不整合であり、
// 「パスワードが違う」として握り潰してはならない。
func NewCredentialStoreCorruptedError() *APIError {
	return &APIError{
		Code:     ErrCodeCredentialStoreCorrupted,
		Message:  "アカウント情報に問題が発生しています。",
		Category: "system",
		Action:   "管理者にパスワードの再設定を依頼してください。",
	}
}

// NewInvalidTokenError は署名・形式・期限のいずれかが不正なトークンのエラーを生成する。
func NewInvalidTokenError() *APIError {
	return &APIError{
		Code:     ErrCodeInvalidToken,
		Message:  "トークンが無効です。",
		Category: "auth",
		Action:   "再度ログインしてください。",
	}
}

// NewTokenNotFoundOrExpiredError はリフレッシュトークンがストアに存在しない、
// またはサーバー側の有効期限を過ぎている場合のエラーを生成する。
func NewTokenNotFoundOrExpiredError() *APIError {
	return &APIError{
		Code:     ErrCodeTokenNotFoundOrExpired,
		Message:  "リフレッシュトークンが見つからないか、期限切れです。",
		Category: "auth",
		Action:   "再度ログインしてください。",
	}
}

// NewUserNotFoundOrInactiveError はリフレッシュ時のユーザー消失・無効化エラーを生成する。
func NewUserNotFoundOrInactiveError() *APIError {
	return &APIError{
		Code:     ErrCodeUserNotFoundOrInactive,
		Message:  "ユーザーが存在しないか、無効化されています。",
		Category: "auth",
		Action:   "店舗の管理者にお問い合わせください。",
	}
}

// NewUnauthorizedError は認証必須エンドポイントへの未認証アクセスエラーを生成する。
// 内部原因（ヘッダー欠落・トークン不正・ユーザー無効）は区別しない。
func NewUnauthorizedError() *APIError {
	return &APIError{
		Code:     ErrCodeUnauthorized,
		Message:  "認証が必要です。",
		Category: "auth",
		Action:   "ログインしてください。",
	}
}

// NewPhoneTakenError は電話番号の重複登録エラーを生成する。
func NewPhoneTakenError() *APIError {
	return &APIError{
		Code:     ErrCodePhoneTaken,
		Message:  "この電話番号は既に登録されています。",
		Category: "validation",
		Action:   "別の電話番号を使用するか、ログインしてください。",
	}
}

// NewEmptyPasswordError は空パスワードの登録試行エラーを生成する。
func NewEmptyPasswordError() *APIError {
	return &APIError{
		Code:     ErrCodeEmptyPassword,
		Message:  "パスワードが空です。",
		Category: "validation",
		Action:   "パスワードを入力してください。",
	}
}

// NewInvalidRequestError はリクエストボディの解析・検証失敗エラーを生成する。
func NewInvalidRequestError(reason string) *APIError {
	return &APIError{
		Code:     ErrCodeInvalidRequest,
		Message:  fmt.Sprintf("リクエストが不正です: %s", reason),
		Category: "validation",
		Action:   "リクエスト内容を確認してください。",
	}
}

// NewUserNotFoundError はユーザーが見つからない場合のエラーを生成する。
func NewUserNotFoundError(userID int64) *APIError {
	return &APIError{
		Code:     ErrCodeUserNotFound,
		Message:  fmt.Sprintf("指定されたユーザーが見つかりません: %d", userID),
		Category: "resource",
		Action:   "ユーザーIDを確認してください。",
	}
}

// NewRoleNotFoundError は役割が見つからない場合のエラーを生成する。
func NewRoleNotFoundError(roleID int64) *APIError {
	return &APIError{
		Code:     ErrCodeRoleNotFound,
		Message:  fmt.Sprintf("指定された役割が見つかりません: %d", roleID),
		Category: "resource",
		Action:   "役割IDを確認してください。",
	}
}

// NewDuplicateRoleError は役割名の重複エラーを生成する。
func NewDuplicateRoleError(name string) *APIError {
	return &APIError{
		Code:     ErrCodeDuplicateRole,
		Message:  fmt.Sprintf("この役割は既に存在します: %s", name),
		Category: "validation",
		Action:   "既存の役割を使用してください。",
	}
}

// NewDuplicateRoleEnrollError は役割の重複付与エラーを生成する。
func NewDuplicateRoleEnrollError() *APIError {
	return &APIError{
		Code:     ErrCodeDuplicateRoleEnroll,
		Message:  "このユーザーには既に同じ役割が付与されています。",
		Category: "validation",
		Action:   "付与済みの役割を確認してください。",
	}
}

// NewDeviceNotFoundError は機器が見つからない場合のエラーを生成する。
func NewDeviceNotFoundError(deviceID int64) *APIError {
	return &APIError{
		Code:     ErrCodeDeviceNotFound,
		Message:  fmt.Sprintf("指定された機器が見つかりません: %d", deviceID),
		Category: "resource",
		Action:   "機器IDを確認してください。",
	}
}

// NewDuplicateCatalogEntryError はカタログ（種別・メーカー・機種）の重複エラーを生成する。
func NewDuplicateCatalogEntryError(kind, name string) *APIError {
	return &APIError{
		Code:     ErrCodeDuplicateCatalogEntry,
		Message:  fmt.Sprintf("この%sは既に登録されています: %s", kind, name),
		Category: "validation",
		Action:   "既存の登録内容を確認してください。",
	}
}

// NewSerialNumberTakenError はシリアル番号の重複エラーを生成する。
func NewSerialNumberTakenError(serial string) *APIError {
	return &APIError{
		Code:     ErrCodeSerialNumberTaken,
		Message:  fmt.Sprintf("このシリアル番号は既に登録されています: %s", serial),
		Category: "validation",
		Action:   "シリアル番号を確認してください。",
	}
}

// NewOrderNotFoundError はオーダーが見つからない場合のエラーを生成する。
func NewOrderNotFoundError(orderID int64) *APIError {
	return &APIError{
		Code:     ErrCodeOrderNotFound,
		Message:  fmt.Sprintf("指定されたオーダーが見つかりません: %d", orderID),
		Category: "resource",
		Action:   "オーダーIDを確認してください。",
	}
}

// NewInvalidOrderStatusError は未定義のオーダー状態エラーを生成する。
func NewInvalidOrderStatusError(status string) *APIError {
	return &APIError{
		Code:     ErrCodeInvalidOrderStatus,
		Message:  fmt.Sprintf("無効なオーダー状態です: %s", status),
		Category: "validation",
		Action:   "状態には Pending、Repairing、Completed、Cancelled のいずれかを指定してください。",
	}
}

// NewDuplicateAssignError は同一オーダーへの重複割り当てエラーを生成する。
func NewDuplicateAssignError() *APIError {
	return &APIError{
		Code:     ErrCodeDuplicateAssign,
		Message:  "このオーダーには既に同じ担当者が割り当てられています。",
		Category: "validation",
		Action:   "割り当て状況を確認してください。",
	}
}

// NewAssignNotFoundError は割り当てが見つからない場合のエラーを生成する。
func NewAssignNotFoundError(assignID int64) *APIError {
	return &APIError{
		Code:     ErrCodeAssignNotFound,
		Message:  fmt.Sprintf("指定された割り当てが見つかりません: %d", assignID),
		Category: "resource",
		Action:   "割り当てIDを確認してください。",
	}
}

// NewPaymentNotFoundError は支払いが見つからない場合のエラーを生成する。
func NewPaymentNotFoundError(paymentID int64) *APIError {
	return &APIError{
		Code:     ErrCodePaymentNotFound,
		Message:  fmt.Sprintf("指定された支払いが見つかりません: %d", paymentID),
		Category: "resource",
		Action:   "支払いIDを確認してください。",
	}
}

// NewInvalidPaymentStatusError は未定義の支払い状態エラーを生成する。
func NewInvalidPaymentStatusError(status string) *APIError {
	return &APIError{
		Code:     ErrCodeInvalidPaymentStatus,
		Message:  fmt.Sprintf("無効な支払い状態です: %s", status),
		Category: "validation",
		Action:   "状態には Paid、Due、Unpaid、Partial のいずれかを指定してください。",
	}
}
