// Package model はドメインモデルを定義する。
package model

import "fmt"

// APIError は統一エラーフォーマットを表す。
// UIに表示する原因カテゴリと対処方法を含む。
type APIError struct {
	Code     string // エラーコード
	Message  string // エラーメッセージ
	Category string // カテゴリ: validation, auth, forbidden, not_found, conflict, rate_limit, system
	Action   string // ユーザー向け対処方法
}

// Error はerrorインターフェースを実装する。
func (e *APIError) Error() string {
	return fmt.Sprintf("[%s] %s", e.Code, e.Message)
}

// エラーカテゴリ
const (
	CategoryValidation = "validation"
	CategoryAuth       = "auth"
	CategoryForbidden  = "forbidden"
	CategoryNotFound   = "not_found"
	CategoryConflict   = "conflict"
	CategoryRateLimit  = "rate_limit"
	CategorySystem     = "system"
)

// 定義済みエラーコード
const (
	ErrCodeInvalidRequest             = "INVALID_REQUEST"
	ErrCodeMissingFields              = "MISSING_FIELDS"
	ErrCodeUsernameTooLong            = "USERNAME_TOO_LONG"
	ErrCodePasswordTooLong            = "PASSWORD_TOO_LONG"
	ErrCodeUsernameTaken              = "USERNAME_TAKEN"
	ErrCodeInvalidCredentials         = "INVALID_CREDENTIALS"
	ErrCodeMissingAuthorization       = "MISSING_AUTHORIZATION"
	ErrCodeInvalidAuthorizationFormat = "INVALID_AUTHORIZATION_FORMAT"
	ErrCodeInvalidToken               = "INVALID_TOKEN"
	ErrCodeNoRefreshToken             = "NO_REFRESH_TOKEN"
	ErrCodeInvalidRefreshToken        = "INVALID_REFRESH_TOKEN"
	ErrCodeRefreshTokenExpired        = "REFRESH_TOKEN_EXPIRED"
	ErrCodeUserNotFound               = "USER_NOT_FOUND"
	ErrCodeNotOwner                   = "NOT_OWNER"
	ErrCodeItemNotFound               = "ITEM_NOT_FOUND"
	ErrCodeRateLimitExceeded          = "RATE_LIMIT_EXCEEDED"
	ErrCodeInternal                   = "INTERNAL_ERROR"
)

// NewInvalidRequestError はリクエストボディの解析失敗エラーを生成する。
func NewInvalidRequestError() *APIError {
	return &APIError{
		Code:     ErrCodeInvalidRequest,
		Message:  "リクエストボディの解析に失敗しました。",
		Category: CategoryValidation,
		Action:   "正しいJSON形式でリクエストしてください。",
	}
}

// NewMissingFieldsError は必須項目の未入力エラーを生成する。
func NewMissingFieldsError(fields ...string) *APIError {
	return &APIError{
		Code:     ErrCodeMissingFields,
		Message:  fmt.Sprintf("必須項目が入力されていません: %v", fields),
		Category: CategoryValidation,
		Action:   "必須項目を入力してください。",
	}
}

// NewUsernameTooLongError はユーザー名の文字数超過エラーを生成する。
func NewUsernameTooLongError(max int) *APIError {
	return &APIError{
		Code:     ErrCodeUsernameTooLong,
		Message:  fmt.Sprintf("ユーザー名は%d文字以内で指定してください。", max),
		Category: CategoryValidation,
		Action:   "短いユーザー名を指定してください。",
	}
}

// NewPasswordTooLongError はパスワードのバイト数超過エラーを生成する。
func NewPasswordTooLongError(max int) *APIError {
	return &APIError{
		Code:     ErrCodePasswordTooLong,
		Message:  fmt.Sprintf("パスワードは%dバイト以内で指定してください。", max),
		Category: CategoryValidation,
		Action:   "短いパスワードを指定してください。",
	}
}

// NewUsernameTakenError はユーザー名重複エラーを生成する。
func NewUsernameTakenError() *APIError {
	return &APIError{
		Code:     ErrCodeUsernameTaken,
		Message:  "このユーザー名は既に使用されています。",
		Category: CategoryConflict,
		Action:   "別のユーザー名を指定してください。",
	}
}

// NewInvalidCredentialsError は認証情報不一致エラーを生成する。
// ユーザーの存在有無を推測されないよう、ユーザー不在とパスワード不一致で同一の内容を返す。
func NewInvalidCredentialsError() *APIError {
	return &APIError{
		Code:     ErrCodeInvalidCredentials,
		Message:  "ユーザー名またはパスワードが正しくありません。",
		Category: CategoryAuth,
		Action:   "入力内容を確認して再度ログインしてください。",
	}
}

// NewMissingAuthorizationError はAuthorizationヘッダー未指定エラーを生成する。
func NewMissingAuthorizationError() *APIError {
	return &APIError{
		Code:     ErrCodeMissingAuthorization,
		Message:  "Authorizationヘッダーがありません。",
		Category: CategoryAuth,
		Action:   "ログインしてアクセストークンを取得してください。",
	}
}

// NewInvalidAuthorizationFormatError はAuthorizationヘッダーの形式不正エラーを生成する。
func NewInvalidAuthorizationFormatError() *APIError {
	return &APIError{
		Code:     ErrCodeInvalidAuthorizationFormat,
		Message:  "Authorizationヘッダーの形式が不正です。",
		Category: CategoryAuth,
		Action:   "\"Bearer <token>\" 形式で指定してください。",
	}
}

// NewInvalidTokenError はアクセストークンの無効・期限切れエラーを生成する。
// 署名不一致と期限切れを区別しない。
func NewInvalidTokenError() *APIError {
	return &APIError{
		Code:     ErrCodeInvalidToken,
		Message:  "アクセストークンが無効または期限切れです。",
		Category: CategoryAuth,
		Action:   "トークンを更新するか、再度ログインしてください。",
	}
}

// NewNoRefreshTokenError はリフレッシュトークン未送信エラーを生成する。
func NewNoRefreshTokenError() *APIError {
	return &APIError{
		Code:     ErrCodeNoRefreshToken,
		Message:  "リフレッシュトークンがありません。",
		Category: CategoryAuth,
		Action:   "ログインしてください。",
	}
}

// NewInvalidRefreshTokenError は未登録のリフレッシュトークンエラーを生成する。
func NewInvalidRefreshTokenError() *APIError {
	return &APIError{
		Code:     ErrCodeInvalidRefreshToken,
		Message:  "リフレッシュトークンが無効です。",
		Category: CategoryAuth,
		Action:   "ログインし直してください。",
	}
}

// NewRefreshTokenExpiredError はリフレッシュトークン期限切れエラーを生成する。
func NewRefreshTokenExpiredError() *APIError {
	return &APIError{
		Code:     ErrCodeRefreshTokenExpired,
		Message:  "リフレッシュトークンの有効期限が切れています。",
		Category: CategoryAuth,
		Action:   "ログインし直してください。",
	}
}

// NewUserNotFoundError はユーザーが見つからない場合のエラーを生成する。
func NewUserNotFoundError() *APIError {
	return &APIError{
		Code:     ErrCodeUserNotFound,
		Message:  "ユーザーが見つかりません。",
		Category: CategoryAuth,
		Action:   "ログインし直してください。",
	}
}

// NewNotOwnerError は所有者以外による変更操作のエラーを生成する。
func NewNotOwnerError() *APIError {
	return &APIError{
		Code:     ErrCodeNotOwner,
		Message:  "このアイテムを変更する権限がありません。",
		Category: CategoryForbidden,
		Action:   "自分が作成したアイテムのみ変更・削除できます。",
	}
}

// NewItemNotFoundError はアイテム未検出エラーを生成する。
func NewItemNotFoundError(itemID string) *APIError {
	return &APIError{
		Code:     ErrCodeItemNotFound,
		Message:  fmt.Sprintf("指定されたアイテムが見つかりません: %s", itemID),
		Category: CategoryNotFound,
		Action:   "アイテムIDを確認してください。",
	}
}

// NewRateLimitExceededError はレート制限超過エラーを生成する。
func NewRateLimitExceededError() *APIError {
	return &APIError{
		Code:     ErrCodeRateLimitExceeded,
		Message:  "リクエストが多すぎます。",
		Category: CategoryRateLimit,
		Action:   "Retry-Afterヘッダーの秒数だけ待ってから再度お試しください。",
	}
}

// NewInternalError は内部エラーを生成する。
// 詳細はログのみに記録し、ユーザーには一般的なメッセージを返す。
func NewInternalError() *APIError {
	return &APIError{
		Code:     ErrCodeInternal,
		Message:  "内部エラーが発生しました。",
		Category: CategorySystem,
		Action:   "しばらく待ってから再度お試しください。",
	}
}
