// Package model はドメインモデルを定義する。
package model

import "fmt"

// APIError は統一エラーフォーマットを表す。
// UIに表示する原因カテゴリと対処方法を含む。
type APIError struct {
	Code     string // エラーコード
	Message  string // エラーメッセージ
	Category string // カテゴリ: auth, validation, catalog, system
	Action   string // ユーザー向け対処方法
}

// Error はerrorインターフェースを実装する。
func (e *APIError) Error() string {
	return fmt.Sprintf("[%s] %s", e.Code, e.Message)
}

// 定義済みエラーコード
const (
	ErrCodeUnauthorized       = "UNAUTHORIZED"
	ErrCodeForbidden          = "FORBIDDEN"
	ErrCodeCSRFFailed         = "CSRF_FAILED"
	ErrCodeInvalidCredentials = "INVALID_CREDENTIALS"
	ErrCodeEmailTaken         = "EMAIL_TAKEN"
	ErrCodeUserNotFound       = "USER_NOT_FOUND"
	ErrCodeCarNotFound        = "CAR_NOT_FOUND"
	ErrCodeCarAlreadySold     = "CAR_ALREADY_SOLD"
	ErrCodeFavoriteExists     = "FAVORITE_EXISTS"
	ErrCodeInquiryNotFound    = "INQUIRY_NOT_FOUND"
	ErrCodeValidationFailed   = "VALIDATION_FAILED"
	ErrCodeInvalidDownPayment = "INVALID_DOWN_PAYMENT"
	ErrCodeInvalidTerm        = "INVALID_TERM"
	ErrCodeInvalidRate        = "INVALID_RATE"
)

// NewUnauthorizedError は未認証エラーを生成する。
func NewUnauthorizedError() *APIError {
	return &APIError{
		Code:     ErrCodeUnauthorized,
		Message:  "認証が必要です。",
		Category: "auth",
		Action:   "ログインしてください。",
	}
}

// NewForbiddenError は権限不足エラーを生成する。
func NewForbiddenError() *APIError {
	return &APIError{
		Code:     ErrCodeForbidden,
		Message:  "この操作を行う権限がありません。",
		Category: "auth",
		Action:   "管理者アカウントでログインしてください。",
	}
}

// NewCSRFFailedError はCSRF検証失敗エラーを生成する。
// オラクル攻撃を避けるため、失敗理由の詳細は含めない。
func NewCSRFFailedError() *APIError {
	return &APIError{
		Code:     ErrCodeCSRFFailed,
		Message:  "リクエストの検証に失敗しました。",
		Category: "auth",
		Action:   "ページを再読み込みして、もう一度お試しください。",
	}
}

// NewInvalidCredentialsError は認証情報不一致エラーを生成する。
// メールアドレスの存在有無を漏らさないよう、メッセージは常に同一とする。
func NewInvalidCredentialsError() *APIError {
	return &APIError{
		Code:     ErrCodeInvalidCredentials,
		Message:  "メールアドレスまたはパスワードが正しくありません。",
		Category: "auth",
		Action:   "入力内容を確認して再度お試しください。",
	}
}

// NewEmailTakenError はメールアドレス重複エラーを生成する。
func NewEmailTakenError() *APIError {
	return &APIError{
		Code:     ErrCodeEmailTaken,
		Message:  "このメールアドレスは既に登録されています。",
		Category: "validation",
		Action:   "別のメールアドレスを使用するか、ログインしてください。",
	}
}

// NewUserNotFoundError はユーザーが見つからない場合のエラーを生成する。
func NewUserNotFoundError() *APIError {
	return &APIError{
		Code:     ErrCodeUserNotFound,
		Message:  "ユーザーが見つかりません。",
		Category: "auth",
		Action:   "ログインし直してください。",
	}
}

// NewCarNotFoundError は車両未検出エラーを生成する。
func NewCarNotFoundError(carID string) *APIError {
	return &APIError{
		Code:     ErrCodeCarNotFound,
		Message:  fmt.Sprintf("指定された車両が見つかりません: %s", carID),
		Category: "catalog",
		Action:   "車両IDを確認してください。",
	}
}

// NewCarAlreadySoldError は成約済み車両への操作エラーを生成する。
func NewCarAlreadySoldError() *APIError {
	return &APIError{
		Code:     ErrCodeCarAlreadySold,
		Message:  "この車両は既に成約済みです。",
		Category: "catalog",
		Action:   "他の車両をご検討ください。",
	}
}

// NewFavoriteExistsError はお気に入り重複登録エラーを生成する。
func NewFavoriteExistsError() *APIError {
	return &APIError{
		Code:     ErrCodeFavoriteExists,
		Message:  "この車両は既にお気に入りに登録されています。",
		Category: "catalog",
		Action:   "お気に入り一覧を確認してください。",
	}
}

// NewInquiryNotFoundError は問い合わせ未検出エラーを生成する。
func NewInquiryNotFoundError(inquiryID string) *APIError {
	return &APIError{
		Code:     ErrCodeInquiryNotFound,
		Message:  fmt.Sprintf("指定された問い合わせが見つかりません: %s", inquiryID),
		Category: "catalog",
		Action:   "問い合わせIDを確認してください。",
	}
}

// NewValidationError は入力値検証エラーを任意のメッセージで生成する。
func NewValidationError(message string) *APIError {
	return &APIError{
		Code:     ErrCodeValidationFailed,
		Message:  message,
		Category: "validation",
		Action:   "入力内容を確認してください。",
	}
}

// NewInvalidDownPaymentError は頭金が不正な場合のエラーを生成する。
func NewInvalidDownPaymentError() *APIError {
	return &APIError{
		Code:     ErrCodeInvalidDownPayment,
		Message:  "頭金は0円以上かつ車両価格未満で入力してください。",
		Category: "validation",
		Action:   "頭金の金額を確認してください。",
	}
}

// NewInvalidTermError は支払回数が不正な場合のエラーを生成する。
func NewInvalidTermError() *APIError {
	return &APIError{
		Code:     ErrCodeInvalidTerm,
		Message:  "支払回数は1回以上の整数で入力してください。",
		Category: "validation",
		Action:   "支払回数を確認してください。",
	}
}

// NewInvalidRateError は金利が不正な場合のエラーを生成する。
func NewInvalidRateError() *APIError {
	return &APIError{
		Code:     ErrCodeInvalidRate,
		Message:  "年利は0%以上で入力してください。",
		Category: "validation",
		Action:   "年利を確認してください。",
	}
}
