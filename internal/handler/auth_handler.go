package handler

import (
	"context"
	"encoding/json"
	"net/http"

	"github.com/hitoshi/kurumart/internal/auth"
	"github.com/hitoshi/kurumart/internal/middleware"
	"github.com/hitoshi/kurumart/internal/model"
)

// AuthServiceInterface は認証ハンドラーが必要とするセッション操作のインターフェース。
type AuthServiceInterface interface {
	// Login はセッションを認証状態へ遷移させる。セッションIDとCSRFトークンは更新される。
	Login(ctx context.Context, session *model.Session, userID string, role model.Role) (*model.Session, error)
	// Logout はセッションを破棄する。冪等。
	Logout(ctx context.Context, session *model.Session) error
	// IssueCSRFToken はセッションのCSRFトークンを返す。
	IssueCSRFToken(ctx context.Context, session *model.Session) (string, error)
	// CurrentPrincipal はセッションから現在のプリンシパルを導出する。
	CurrentPrincipal(ctx context.Context, session *model.Session) (*auth.Principal, error)
}

// PrincipalResolver はセッションからプリンシパルを導出するインターフェース。
// 監査ログ用の操作者情報の解決に使用する。
type PrincipalResolver interface {
	CurrentPrincipal(ctx context.Context, session *model.Session) (*auth.Principal, error)
}

// AccountServiceInterface は認証ハンドラーが必要とするユーザー操作のインターフェース。
type AccountServiceInterface interface {
	// Register は新規ユーザーを登録する。
	Register(ctx context.Context, email, name, password string) (*model.User, error)
	// Authenticate はメールアドレスとパスワードを検証し、一致するユーザーを返す。
	Authenticate(ctx context.Context, email, password string) (*model.User, error)
}

// LoginMetricsRecorder はログイン試行のメトリクス記録インターフェース。
type LoginMetricsRecorder interface {
	RecordLoginSuccess()
	RecordLoginFailure(reason string)
}

// AuthHandler は認証関連のHTTPハンドラー。
type AuthHandler struct {
	authService   AuthServiceInterface
	accounts      AccountServiceInterface
	metrics       LoginMetricsRecorder
	sessionConfig middleware.SessionConfig
}

// NewAuthHandler はAuthHandlerを生成する。
func NewAuthHandler(
	authService AuthServiceInterface,
	accounts AccountServiceInterface,
	metrics LoginMetricsRecorder,
	sessionConfig middleware.SessionConfig,
) *AuthHandler {
	return &AuthHandler{
		authService:   authService,
		accounts:      accounts,
		metrics:       metrics,
		sessionConfig: sessionConfig,
	}
}

// registerRequest は会員登録リクエストのボディ。
type registerRequest struct {
	Email    string `json:"email"`
	Name     string `json:"name"`
	Password string `json:"password"`
}

// loginRequest はログインリクエストのボディ。
type loginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

// userResponse はユーザー情報のAPIレスポンス。パスワードハッシュは含めない。
type userResponse struct {
	ID    string `json:"id"`
	Email string `json:"email"`
	Name  string `json:"name"`
	Role  string `json:"role"`
}

// meResponse は現在のプリンシパルのAPIレスポンス。
type meResponse struct {
	Authenticated bool   `json:"authenticated"`
	ID            string `json:"id,omitempty"`
	Name          string `json:"name,omitempty"`
	Role          string `json:"role"`
}

// csrfTokenResponse はCSRFトークンのAPIレスポンス。
type csrfTokenResponse struct {
	CSRFToken string `json:"csrf_token"`
}

// Register は会員登録を処理する。登録後のログインは別途行う。
// POST /api/auth/register
func (h *AuthHandler) Register(w http.ResponseWriter, r *http.Request) {
	var req registerRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeAPIErrorResponse(w, http.StatusBadRequest, newInvalidRequestError())
		return
	}

	user, err := h.accounts.Register(r.Context(), req.Email, req.Name, req.Password)
	if err != nil {
		handleServiceError(w, err)
		return
	}

	writeJSONResponse(w, http.StatusCreated, toUserResponse(user))
}

// Login はログインを処理する。
// 認証成功時はセッションIDが更新され、新しいCookieが発行される。
// POST /api/auth/login
func (h *AuthHandler) Login(w http.ResponseWriter, r *http.Request) {
	session, err := middleware.SessionFromContext(r.Context())
	if err != nil {
		middleware.WriteInternalServerError(w)
		return
	}

	var req loginRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeAPIErrorResponse(w, http.StatusBadRequest, newInvalidRequestError())
		return
	}

	user, err := h.accounts.Authenticate(r.Context(), req.Email, req.Password)
	if err != nil {
		if h.metrics != nil {
			h.metrics.RecordLoginFailure("invalid_credentials")
		}
		handleServiceError(w, err)
		return
	}

	rotated, err := h.authService.Login(r.Context(), session, user.ID, user.Role)
	if err != nil {
		if h.metrics != nil {
			h.metrics.RecordLoginFailure("session_rotation")
		}
		handleServiceError(w, err)
		return
	}

	if h.metrics != nil {
		h.metrics.RecordLoginSuccess()
	}

	middleware.SetSessionCookie(w, rotated.ID, h.sessionConfig)
	writeJSONResponse(w, http.StatusOK, map[string]any{
		"user":       toUserResponse(user),
		"csrf_token": rotated.CSRFToken,
	})
}

// Logout はログアウトを処理する。冪等で、未ログインでも成功する。
// POST /api/auth/logout
func (h *AuthHandler) Logout(w http.ResponseWriter, r *http.Request) {
	session, err := middleware.SessionFromContext(r.Context())
	if err != nil {
		middleware.WriteInternalServerError(w)
		return
	}

	if err := h.authService.Logout(r.Context(), session); err != nil {
		handleServiceError(w, err)
		return
	}

	middleware.ClearSessionCookie(w, h.sessionConfig)
	w.WriteHeader(http.StatusNoContent)
}

// Me は現在のプリンシパルを返す。未ログインの場合はゲストを返す。
// GET /api/auth/me
func (h *AuthHandler) Me(w http.ResponseWriter, r *http.Request) {
	session, err := middleware.SessionFromContext(r.Context())
	if err != nil {
		middleware.WriteInternalServerError(w)
		return
	}

	principal, err := h.authService.CurrentPrincipal(r.Context(), session)
	if err != nil {
		handleServiceError(w, err)
		return
	}

	resp := meResponse{
		Authenticated: !principal.IsGuest(),
		Role:          string(principal.Role),
	}
	if !principal.IsGuest() {
		resp.ID = principal.ID
		resp.Name = principal.DisplayName
	}

	writeJSONResponse(w, http.StatusOK, resp)
}

// CSRFToken は現在のセッションのCSRFトークンを返す。
// 書き込み系リクエストの前にフロントエンドが取得する。
// GET /api/auth/csrf
func (h *AuthHandler) CSRFToken(w http.ResponseWriter, r *http.Request) {
	session, err := middleware.SessionFromContext(r.Context())
	if err != nil {
		middleware.WriteInternalServerError(w)
		return
	}

	token, err := h.authService.IssueCSRFToken(r.Context(), session)
	if err != nil {
		handleServiceError(w, err)
		return
	}

	writeJSONResponse(w, http.StatusOK, csrfTokenResponse{CSRFToken: token})
}

// resolveActor はリクエストのセッションから監査ログ用の操作者を解決する。
// 未認証の場合は401を書き込んでfalseを返す。
func resolveActor(w http.ResponseWriter, r *http.Request, principals PrincipalResolver) (*auth.Principal, bool) {
	session, err := middleware.SessionFromContext(r.Context())
	if err != nil {
		middleware.WriteInternalServerError(w)
		return nil, false
	}

	principal, err := principals.CurrentPrincipal(r.Context(), session)
	if err != nil {
		handleServiceError(w, err)
		return nil, false
	}
	if principal.IsGuest() {
		writeAPIErrorResponse(w, http.StatusUnauthorized, model.NewUnauthorizedError())
		return nil, false
	}

	return principal, true
}

// toUserResponse はドメインのUserをAPIレスポンスに変換する。
func toUserResponse(user *model.User) userResponse {
	return userResponse{
		ID:    user.ID,
		Email: user.Email,
		Name:  user.Name,
		Role:  string(user.Role),
	}
}
