// Package middleware はHTTPミドルウェアを提供する。
package middleware

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"time"

	"github.com/hitoshi/kurumart/internal/auth"
	"github.com/hitoshi/kurumart/internal/model"
)

const sessionCookieName = "session_id"

// contextKey はコンテキストに値を格納するための型安全なキー。
type contextKey string

// sessionContextKey はリクエストコンテキストにセッションを格納するためのキー。
var sessionContextKey = contextKey("session")

// SessionService はセッションミドルウェアが必要とする認証サービスの操作。
// auth.Serviceの部分集合として定義する。
type SessionService interface {
	StartSession(ctx context.Context) (*model.Session, error)
	CheckSessionTimeout(ctx context.Context, session *model.Session, now time.Time, idleThreshold time.Duration) (bool, error)
	RequireRole(session *model.Session, required model.Role) error
}

// SessionFinder はセッションの検索に必要なインターフェース。
// repository.SessionRepositoryの部分集合として定義する。
type SessionFinder interface {
	FindByID(ctx context.Context, id string) (*model.Session, error)
}

// SessionConfig はセッションミドルウェアの設定。
type SessionConfig struct {
	// IdleTimeout はスライディング方式のアイドルタイムアウト。
	IdleTimeout time.Duration
	// CookieMaxAge はセッションCookieの有効期間（秒）。
	CookieMaxAge int
	CookieSecure bool
	CookieDomain string
}

// NewSessionMiddleware はHTTP Only Cookieからセッションを読み取り、
// リクエストコンテキストに注入するミドルウェアを返す。
// Cookieが未設定・無効・期限切れの場合は匿名セッションを新規発行する。
// 認証済みセッションに対してはアイドルタイムアウトを判定し、
// タイムアウトしていれば匿名セッションに差し替える。
// 未認証でも拒否はしない（匿名閲覧を許容する）。認可はRequireAuth/RequireAdminで行う。
func NewSessionMiddleware(svc SessionService, finder SessionFinder, config SessionConfig) func(next http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			session := loadSession(r, finder)

			if session == nil {
				fresh, err := svc.StartSession(r.Context())
				if err != nil {
					slog.Error("failed to start session",
						slog.String("error", err.Error()),
					)
					WriteInternalServerError(w)
					return
				}
				session = fresh
				setSessionCookie(w, session.ID, config)
			} else {
				expired, err := svc.CheckSessionTimeout(r.Context(), session, time.Now(), config.IdleTimeout)
				if err != nil {
					slog.Error("failed to check session timeout",
						slog.String("error", err.Error()),
					)
					WriteInternalServerError(w)
					return
				}
				if expired {
					// アイドルタイムアウト。匿名セッションを発行し直す。
					fresh, err := svc.StartSession(r.Context())
					if err != nil {
						slog.Error("failed to start session after idle timeout",
							slog.String("error", err.Error()),
						)
						WriteInternalServerError(w)
						return
					}
					session = fresh
					setSessionCookie(w, session.ID, config)
				}
			}

			ctx := context.WithValue(r.Context(), sessionContextKey, session)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

// loadSession はCookieからセッションを読み取る。無効な場合はnilを返す。
func loadSession(r *http.Request, finder SessionFinder) *model.Session {
	cookie, err := r.Cookie(sessionCookieName)
	if err != nil || cookie.Value == "" {
		return nil
	}

	session, err := finder.FindByID(r.Context(), cookie.Value)
	if err != nil {
		slog.Error("failed to find session",
			slog.String("error", err.Error()),
		)
		return nil
	}
	return session
}

// setSessionCookie はセッションIDをHTTP Only Cookieに設定する。
func setSessionCookie(w http.ResponseWriter, sessionID string, config SessionConfig) {
	http.SetCookie(w, &http.Cookie{
		Name:     sessionCookieName,
		Value:    sessionID,
		Path:     "/",
		Domain:   config.CookieDomain,
		MaxAge:   config.CookieMaxAge,
		HttpOnly: true,
		Secure:   config.CookieSecure,
		SameSite: http.SameSiteLaxMode,
	})
}

// SetSessionCookie はハンドラー層からセッションCookieを更新するためのヘルパー。
// ログインによるセッションID更新後に使用する。
func SetSessionCookie(w http.ResponseWriter, sessionID string, config SessionConfig) {
	setSessionCookie(w, sessionID, config)
}

// ClearSessionCookie はセッションCookieを削除する。ログアウト時に使用する。
func ClearSessionCookie(w http.ResponseWriter, config SessionConfig) {
	http.SetCookie(w, &http.Cookie{
		Name:     sessionCookieName,
		Value:    "",
		Path:     "/",
		Domain:   config.CookieDomain,
		MaxAge:   -1,
		HttpOnly: true,
		Secure:   config.CookieSecure,
		SameSite: http.SameSiteLaxMode,
	})
}

// SessionFromContext はリクエストコンテキストからセッションを取得する。
// セッションミドルウェアを通過したリクエストでのみ有効。
func SessionFromContext(ctx context.Context) (*model.Session, error) {
	session, ok := ctx.Value(sessionContextKey).(*model.Session)
	if !ok || session == nil {
		return nil, errors.New("session not found in context")
	}
	return session, nil
}

// ContextWithSession はコンテキストにセッションを注入する。
// テストやミドルウェア以外のコンテキスト生成で使用する。
func ContextWithSession(ctx context.Context, session *model.Session) context.Context {
	return context.WithValue(ctx, sessionContextKey, session)
}

// NewRequireAuthMiddleware は認証済みユーザーのみを通過させるミドルウェアを返す。
// 未認証の場合は401 Unauthorizedを返す。
func NewRequireAuthMiddleware(svc SessionService) func(next http.Handler) http.Handler {
	return newRoleMiddleware(svc, model.RoleUser)
}

// NewRequireAdminMiddleware は管理者のみを通過させるミドルウェアを返す。
// 未認証は401、権限不足は403を返す。
func NewRequireAdminMiddleware(svc SessionService) func(next http.Handler) http.Handler {
	return newRoleMiddleware(svc, model.RoleAdmin)
}

func newRoleMiddleware(svc SessionService, required model.Role) func(next http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			session, err := SessionFromContext(r.Context())
			if err != nil {
				WriteErrorResponse(w, http.StatusUnauthorized, model.NewUnauthorizedError())
				return
			}

			if err := svc.RequireRole(session, required); err != nil {
				switch {
				case errors.Is(err, auth.ErrUnauthenticated):
					WriteErrorResponse(w, http.StatusUnauthorized, model.NewUnauthorizedError())
				case errors.Is(err, auth.ErrForbidden):
					WriteErrorResponse(w, http.StatusForbidden, model.NewForbiddenError())
				default:
					WriteInternalServerError(w)
				}
				return
			}

			next.ServeHTTP(w, r)
		})
	}
}
