package middleware

import (
	"log/slog"
	"net/http"

	"github.com/hitoshi/kurumart/internal/model"
)

// csrfHeaderName はリクエストヘッダーからCSRFトークンを読み取る際のヘッダー名。
const csrfHeaderName = "X-CSRF-Token"

// CSRFValidator はセッションに紐付くCSRFトークンの検証インターフェース。
// auth.Serviceの部分集合として定義する。
type CSRFValidator interface {
	ValidateCSRFToken(session *model.Session, submitted string) bool
}

// CSRFFailureRecorder はCSRF検証失敗のメトリクス記録インターフェース。
type CSRFFailureRecorder interface {
	RecordCSRFFailure()
}

// NewCSRFMiddleware はセッション紐付け方式のCSRF検証ミドルウェアを返す。
// 安全なメソッド（GET, HEAD, OPTIONS）は検証をスキップする。
// 状態変更メソッド（POST, PUT, PATCH, DELETE）はX-CSRF-Tokenヘッダーの
// トークンをセッション保持トークンと照合し、不一致の場合は403を返す。
// セッションミドルウェアの後に配置する必要がある。
func NewCSRFMiddleware(validator CSRFValidator, recorder CSRFFailureRecorder) func(next http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			// 安全なメソッドはトークン検証をスキップ
			if isSafeMethod(r.Method) {
				next.ServeHTTP(w, r)
				return
			}

			session, err := SessionFromContext(r.Context())
			if err != nil {
				slog.Warn("CSRF validation failed: no session in context",
					slog.String("method", r.Method),
					slog.String("path", r.URL.Path),
				)
				WriteErrorResponse(w, http.StatusForbidden, model.NewCSRFFailedError())
				return
			}

			submitted := r.Header.Get(csrfHeaderName)
			if !validator.ValidateCSRFToken(session, submitted) {
				// 失敗理由（欠落か不一致か）は応答に含めない
				slog.Warn("CSRF validation failed",
					slog.String("method", r.Method),
					slog.String("path", r.URL.Path),
				)
				if recorder != nil {
					recorder.RecordCSRFFailure()
				}
				WriteErrorResponse(w, http.StatusForbidden, model.NewCSRFFailedError())
				return
			}

			next.ServeHTTP(w, r)
		})
	}
}

// isSafeMethod はHTTPメソッドが安全（読み取り専用）かどうかを判定する。
func isSafeMethod(method string) bool {
	switch method {
	case http.MethodGet, http.MethodHead, http.MethodOptions:
		return true
	default:
		return false
	}
}
