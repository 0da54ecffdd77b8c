package auth

import "errors"

// 認可・認証の失敗はすべて型付きエラーとして呼び出し側へ返す。
// リダイレクトするか403相当を表示するかはハンドラー層が決める。
// このパッケージ自体がエラー文言を描画することはない。
var (
	// ErrUnauthenticated は有効なプリンシパルが存在しない場合のエラー。
	// 呼び出し側はログイン画面への誘導で回復できる。
	ErrUnauthenticated = errors.New("auth: not authenticated")

	// ErrForbidden は認証済みだがロールの権限が不足している場合のエラー。
	ErrForbidden = errors.New("auth: insufficient role")

	// ErrInvalidCredentials は認証情報の検証に失敗した場合、
	// または検証を経ずにLoginが呼ばれた場合（契約違反）のエラー。
	ErrInvalidCredentials = errors.New("auth: invalid credentials")

	// ErrCSRFMismatch はCSRFトークンの検証に失敗した場合のエラー。
	// 失敗理由（欠落か不一致か）は区別して返さない。
	ErrCSRFMismatch = errors.New("auth: csrf token mismatch")
)
